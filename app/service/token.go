package service

import (
	"context"
	"fmt"
	"time"

	"github.com/safestats/ms-account/app/entity"
	"github.com/safestats/ms-account/config"

	"github.com/golang-jwt/jwt/v5"
)

// UserClaims is the denormalized profile snapshot embedded in every
// session token. Fields are resolved once at issue time, never looked up
// per request, so they may be stale until the next login.
type UserClaims struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Email               string     `json:"email"`
	Phone               *string    `json:"phone"`
	Birthdate           *time.Time `json:"birthdate"`
	Age                 *int       `json:"age"`
	PreferredLanguage   string     `json:"preferredLanguage"`
	BloodType           *string    `json:"bloodType"`
	DidDonateBlood      *bool      `json:"didDonateBlood"`
	LegalRepresentative *string    `json:"legalRepresentative"`
	HealthPlan          *string    `json:"healthPlan"`
}

type Claims struct {
	User UserClaims `json:"user"`
	jwt.RegisteredClaims
}

type profileReader interface {
	FindBloodDonation(ctx context.Context, id string) (*entity.BloodDonation, error)
	FindTrustedContact(ctx context.Context, id string) (*entity.TrustedContact, error)
	FindHealthPlan(ctx context.Context, id string) (*entity.HealthPlan, error)
}

// TokenService mints and verifies the stateless session tokens. Tokens
// are self-contained: verification never touches the database, and
// revocation is not supported — a soft-deleted account keeps its issued
// tokens until they expire.
type TokenService struct {
	profiles profileReader
	cfg      *config.Config
}

func NewTokenService(profiles profileReader, cfg *config.Config) *TokenService {
	return &TokenService{profiles: profiles, cfg: cfg}
}

// Issue assembles the claims for user, resolving the linked profile
// sub-resources, and signs them with the process-wide secret.
func (s *TokenService) Issue(ctx context.Context, user *entity.User) (string, error) {
	now := time.Now()

	claims := &Claims{
		User: UserClaims{
			ID:                user.ID,
			Name:              user.Name,
			Email:             user.Email,
			PreferredLanguage: user.PreferredLanguage,
		},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenDuration)),
			Subject:   user.ID,
		},
	}

	if user.Phone.Valid {
		claims.User.Phone = &user.Phone.String
	}
	if user.Birthdate.Valid {
		claims.User.Birthdate = &user.Birthdate.Time
		age := user.Age(now)
		claims.User.Age = &age
	}

	if user.BloodDonationID.Valid {
		donation, err := s.profiles.FindBloodDonation(ctx, user.BloodDonationID.String)
		if err != nil {
			return "", err
		}
		if donation != nil {
			claims.User.BloodType = &donation.BloodType
			claims.User.DidDonateBlood = &donation.DidDonate
		}
	}

	if user.TrustedContactID.Valid {
		contact, err := s.profiles.FindTrustedContact(ctx, user.TrustedContactID.String)
		if err != nil {
			return "", err
		}
		if contact != nil {
			claims.User.LegalRepresentative = &contact.Name
		}
	}

	if user.HealthPlanID.Valid {
		plan, err := s.profiles.FindHealthPlan(ctx, user.HealthPlanID.String)
		if err != nil {
			return "", err
		}
		if plan != nil {
			claims.User.HealthPlan = &plan.Institution
		}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.CryptoKey))
}

// Verify checks signature, expiry and issuer, returning the embedded
// claims or ErrInvalidToken.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.CryptoKey), nil
	}, jwt.WithIssuer(s.cfg.Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
