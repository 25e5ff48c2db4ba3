package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/safestats/ms-account/app/entity"
)

// ProfileSlot names a linkable profile sub-resource column on the users
// table.
type ProfileSlot string

const (
	SlotBloodDonation  ProfileSlot = "blood_donation_id"
	SlotTrustedContact ProfileSlot = "trusted_contact_id"
	SlotHealthPlan     ProfileSlot = "health_plan_id"
)

var profileSlots = map[ProfileSlot]bool{
	SlotBloodDonation:  true,
	SlotTrustedContact: true,
	SlotHealthPlan:     true,
}

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, name, email, password_hash, phone, birthdate, preferred_language,
	       blood_donation_id, trusted_contact_id, health_plan_id, deleted_at, created_at, updated_at`

func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, phone, birthdate, preferred_language, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Phone,
		user.Birthdate,
		user.PreferredLanguage,
		user.CreatedAt,
		user.UpdatedAt,
	)
	return err
}

// FindByEmail returns the row for email regardless of soft-delete state,
// or nil when no row exists.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users WHERE email = ?
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

// FindActiveByEmail returns the row for email excluding soft-deleted
// accounts, or nil when no active row exists.
func (r *UserRepository) FindActiveByEmail(ctx context.Context, email string) (*entity.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users WHERE email = ? AND deleted_at IS NULL
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users WHERE id = ?
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

// SoftDelete stamps deleted_at on an active account. Returns the number
// of rows touched so callers can distinguish a missing or already
// deleted account.
func (r *UserRepository) SoftDelete(ctx context.Context, id string, when time.Time) (int64, error) {
	query := `UPDATE users SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, when, when, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// HardDelete removes the row entirely. Used when a new registration
// reclaims the email of a soft-deleted account.
func (r *UserRepository) HardDelete(ctx context.Context, id string) error {
	query := `DELETE FROM users WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) (int64, error) {
	query := `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, passwordHash, time.Now(), id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *UserRepository) UpdatePreferredLanguage(ctx context.Context, id, lang string) (int64, error) {
	query := `UPDATE users SET preferred_language = ?, updated_at = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, lang, time.Now(), id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// UpdateProfileLink repoints one of the profile sub-resource foreign
// keys. slot must be one of the declared ProfileSlot values.
func (r *UserRepository) UpdateProfileLink(ctx context.Context, id string, slot ProfileSlot, refID string) (int64, error) {
	if !profileSlots[slot] {
		return 0, fmt.Errorf("unknown profile slot %q", slot)
	}

	query := fmt.Sprintf(`UPDATE users SET %s = ?, updated_at = ? WHERE id = ?`, slot)
	result, err := r.db.ExecContext(ctx, query, refID, time.Now(), id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *UserRepository) scanUser(row *sql.Row) (*entity.User, error) {
	user := &entity.User{}
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Phone,
		&user.Birthdate,
		&user.PreferredLanguage,
		&user.BloodDonationID,
		&user.TrustedContactID,
		&user.HealthPlanID,
		&user.DeletedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
