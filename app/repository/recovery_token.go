package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/safestats/ms-account/app/entity"
)

type RecoveryTokenRepository struct {
	db DBTX
}

func NewRecoveryTokenRepository(db DBTX) *RecoveryTokenRepository {
	return &RecoveryTokenRepository{db: db}
}

// Replace upserts the single recovery token row for a user. user_id is
// the primary key, so a second request overwrites the prior token and
// restarts its expiry clock.
func (r *RecoveryTokenRepository) Replace(ctx context.Context, token *entity.RecoveryToken) error {
	query := `
		INSERT INTO recovery_tokens (user_id, token, expires_in, created_at)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE token = VALUES(token), expires_in = VALUES(expires_in), created_at = VALUES(created_at)
	`
	_, err := r.db.ExecContext(ctx, query,
		token.UserID,
		token.Token,
		token.ExpiresIn,
		token.CreatedAt,
	)
	return err
}

// FindByToken looks up by the opaque secret alone. The token carries
// enough entropy to be unique on its own.
func (r *RecoveryTokenRepository) FindByToken(ctx context.Context, token string) (*entity.RecoveryToken, error) {
	query := `
		SELECT user_id, token, expires_in, created_at
		FROM recovery_tokens WHERE token = ?
	`
	rt := &entity.RecoveryToken{}
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&rt.UserID,
		&rt.Token,
		&rt.ExpiresIn,
		&rt.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rt, nil
}

// DeleteByUserID consumes the user's outstanding token. Must run after a
// successful reset so the token cannot be replayed.
func (r *RecoveryTokenRepository) DeleteByUserID(ctx context.Context, userID string) error {
	query := `DELETE FROM recovery_tokens WHERE user_id = ?`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}

func (r *RecoveryTokenRepository) DeleteExpired(ctx context.Context) error {
	query := `DELETE FROM recovery_tokens WHERE DATE_ADD(created_at, INTERVAL expires_in SECOND) < ?`
	_, err := r.db.ExecContext(ctx, query, time.Now())
	return err
}
