package repository

import (
	"context"
	"database/sql"

	"github.com/safestats/ms-account/app/entity"
)

// ProfileRepository persists the profile sub-resource tables referenced
// from users.
type ProfileRepository struct {
	db DBTX
}

func NewProfileRepository(db DBTX) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) CreateBloodDonation(ctx context.Context, d *entity.BloodDonation) error {
	query := `
		INSERT INTO blood_donations (id, blood_type, donation_location, did_donate, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, d.ID, d.BloodType, d.DonationLocation, d.DidDonate, d.CreatedAt)
	return err
}

func (r *ProfileRepository) FindBloodDonation(ctx context.Context, id string) (*entity.BloodDonation, error) {
	query := `
		SELECT id, blood_type, donation_location, did_donate, created_at
		FROM blood_donations WHERE id = ?
	`
	d := &entity.BloodDonation{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&d.ID, &d.BloodType, &d.DonationLocation, &d.DidDonate, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *ProfileRepository) CreateTrustedContact(ctx context.Context, c *entity.TrustedContact) error {
	query := `
		INSERT INTO trusted_contacts (id, name, email, phone, birthdate, address, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, c.ID, c.Name, c.Email, c.Phone, c.Birthdate, c.Address, c.CreatedAt)
	return err
}

func (r *ProfileRepository) FindTrustedContact(ctx context.Context, id string) (*entity.TrustedContact, error) {
	query := `
		SELECT id, name, email, phone, birthdate, address, created_at
		FROM trusted_contacts WHERE id = ?
	`
	c := &entity.TrustedContact{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Birthdate, &c.Address, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *ProfileRepository) CreateHealthPlan(ctx context.Context, p *entity.HealthPlan) error {
	query := `
		INSERT INTO health_plans (id, institution, type, accommodation, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, p.ID, p.Institution, p.Type, p.Accommodation, p.CreatedAt)
	return err
}

func (r *ProfileRepository) FindHealthPlan(ctx context.Context, id string) (*entity.HealthPlan, error) {
	query := `
		SELECT id, institution, type, accommodation, created_at
		FROM health_plans WHERE id = ?
	`
	p := &entity.HealthPlan{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Institution, &p.Type, &p.Accommodation, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}
