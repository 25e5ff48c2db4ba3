package entity

import "time"

// DefaultRecoveryExpiresIn is the lifetime, in seconds, stamped onto a
// recovery token row when none is configured.
const DefaultRecoveryExpiresIn = 3600

// RecoveryToken is the single outstanding password-recovery secret for a
// user. user_id is the primary key, so issuing a new token replaces the
// previous row instead of accumulating.
type RecoveryToken struct {
	UserID    string
	Token     string
	ExpiresIn int64
	CreatedAt time.Time
}

func (t *RecoveryToken) ExpiresAt() time.Time {
	return t.CreatedAt.Add(time.Duration(t.ExpiresIn) * time.Second)
}

func (t *RecoveryToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt())
}
