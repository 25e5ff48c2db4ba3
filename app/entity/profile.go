package entity

import "time"

// Profile sub-resources linked from the users row. Each update creates a
// fresh row and repoints the user's foreign key, so the linked record is
// always the latest submission.

type BloodDonation struct {
	ID               string
	BloodType        string
	DonationLocation string
	DidDonate        bool
	CreatedAt        time.Time
}

type TrustedContact struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Birthdate time.Time
	Address   string
	CreatedAt time.Time
}

type HealthPlan struct {
	ID            string
	Institution   string
	Type          string
	Accommodation string
	CreatedAt     time.Time
}
