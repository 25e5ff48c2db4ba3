package entity

import (
	"database/sql"
	"time"
)

const (
	LanguagePTBR = "PT-BR"
	LanguageENUS = "EN-US"

	DefaultLanguage = LanguagePTBR
)

// ValidLanguage reports whether lang is one of the supported preferred
// languages.
func ValidLanguage(lang string) bool {
	return lang == LanguagePTBR || lang == LanguageENUS
}

// User is one account row. A non-null DeletedAt marks the account as
// soft-deleted: the row stays queryable by ID but is excluded from login
// and frees its email for re-registration.
type User struct {
	ID                string
	Name              string
	Email             string
	PasswordHash      string
	Phone             sql.NullString
	Birthdate         sql.NullTime
	PreferredLanguage string
	BloodDonationID   sql.NullString
	TrustedContactID  sql.NullString
	HealthPlanID      sql.NullString
	DeletedAt         sql.NullTime
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (u *User) IsDeleted() bool {
	return u.DeletedAt.Valid
}

// Age derives the user's age in whole years at the given instant, or -1
// when no birthdate is stored.
func (u *User) Age(now time.Time) int {
	if !u.Birthdate.Valid {
		return -1
	}
	b := u.Birthdate.Time
	age := now.Year() - b.Year()
	if now.Month() < b.Month() || (now.Month() == b.Month() && now.Day() < b.Day()) {
		age--
	}
	return age
}
