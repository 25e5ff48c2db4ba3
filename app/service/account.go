package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"regexp"
	"time"

	"github.com/safestats/ms-account/app/entity"
	"github.com/safestats/ms-account/app/repository"
	"github.com/safestats/ms-account/config"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidEmail       = errors.New("invalid e-mail")
	ErrPasswordMismatch   = errors.New("password and confirmation must be equal")
	ErrEmailAlreadyUsed   = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserDeleted        = errors.New("user deleted")
	ErrUserNotFound       = errors.New("user not found")
	ErrTokenNotFound      = errors.New("token not found")
	ErrTokenExpired       = errors.New("expired token")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrInvalidLanguage    = errors.New("invalid preferred language")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrCorruptCredential  = errors.New("corrupt stored credential")
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

type userRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindActiveByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByID(ctx context.Context, id string) (*entity.User, error)
	SoftDelete(ctx context.Context, id string, when time.Time) (int64, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) (int64, error)
	UpdatePreferredLanguage(ctx context.Context, id, lang string) (int64, error)
}

type recoveryTokenRepository interface {
	Replace(ctx context.Context, token *entity.RecoveryToken) error
	FindByToken(ctx context.Context, token string) (*entity.RecoveryToken, error)
	DeleteByUserID(ctx context.Context, userID string) error
}

type tokenIssuer interface {
	Issue(ctx context.Context, user *entity.User) (string, error)
}

// AsyncRunner dispatches fire-and-forget work (notification sends).
// Injected so tests can run it synchronously.
type AsyncRunner func(task func())

type AccountServiceOption func(*AccountService)

// AccountService orchestrates the account lifecycle: registration,
// login, soft-delete, password recovery and profile updates. Failures
// surface as the sentinel errors above; notification failures are only
// logged.
type AccountService struct {
	db             *sql.DB
	users          userRepository
	recoveryTokens recoveryTokenRepository
	tokens         tokenIssuer
	hasher         *Hasher
	mailer         Mailer
	cfg            *config.Config
	asyncRunner    AsyncRunner
}

func NewAccountService(
	db *sql.DB,
	users userRepository,
	recoveryTokens recoveryTokenRepository,
	tokens tokenIssuer,
	hasher *Hasher,
	mailer Mailer,
	cfg *config.Config,
	opts ...AccountServiceOption,
) *AccountService {
	svc := &AccountService{
		db:             db,
		users:          users,
		recoveryTokens: recoveryTokens,
		tokens:         tokens,
		hasher:         hasher,
		mailer:         mailer,
		cfg:            cfg,
		asyncRunner: func(task func()) {
			go task()
		},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func WithAsyncRunner(runner AsyncRunner) AccountServiceOption {
	return func(s *AccountService) {
		if runner != nil {
			s.asyncRunner = runner
		}
	}
}

type RegisterInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
	Phone           string
	Birthdate       *time.Time
}

// Register creates an active account. An email held by a soft-deleted
// account is reclaimed by purging the old row in the same transaction
// that inserts the new one.
func (s *AccountService) Register(ctx context.Context, in *RegisterInput) (*entity.User, error) {
	if !emailPattern.MatchString(in.Email) {
		return nil, ErrInvalidEmail
	}
	if in.Password != in.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}

	existing, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil && !existing.IsDeleted() {
		return nil, ErrEmailAlreadyUsed
	}

	passwordHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &entity.User{
		ID:                uuid.New().String(),
		Name:              in.Name,
		Email:             in.Email,
		PasswordHash:      passwordHash,
		PreferredLanguage: entity.DefaultLanguage,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if in.Phone != "" {
		user.Phone = sql.NullString{String: in.Phone, Valid: true}
	}
	if in.Birthdate != nil {
		user.Birthdate = sql.NullTime{Time: *in.Birthdate, Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	txUserRepo := repository.NewUserRepository(tx)
	if existing != nil {
		if err = txUserRepo.HardDelete(ctx, existing.ID); err != nil {
			return nil, err
		}
	}
	if err = txUserRepo.Create(ctx, user); err != nil {
		// The unique index on email catches a registration that raced
		// past the FindByEmail check.
		if isDuplicateEntry(err) {
			return nil, ErrEmailAlreadyUsed
		}
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	subject, html := welcomeEmail()
	s.sendMail(user.Email, subject, html)

	return user, nil
}

// Login checks the credentials and mints a session token. An absent
// account and a wrong password yield the same error so callers cannot
// enumerate emails; a soft-deleted account is reported as such.
func (s *AccountService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrInvalidCredentials
	}
	if user.IsDeleted() {
		return "", ErrUserDeleted
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrInvalidCredentials
	}

	return s.tokens.Issue(ctx, user)
}

// SoftDelete marks the caller's account as deleted. The password and its
// confirmation must match; the record itself survives for audit.
func (s *AccountService) SoftDelete(ctx context.Context, userID, password, confirmation string) error {
	if password != confirmation {
		return ErrPasswordMismatch
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil || user.IsDeleted() {
		return ErrUserNotFound
	}

	rows, err := s.users.SoftDelete(ctx, userID, time.Now())
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// RequestRecovery issues or refreshes the single recovery token for the
// account and mails it. The token never appears in an API response.
func (s *AccountService) RequestRecovery(ctx context.Context, email string) error {
	user, err := s.users.FindActiveByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	secret, err := generateRecoverySecret()
	if err != nil {
		return err
	}

	token := &entity.RecoveryToken{
		UserID:    user.ID,
		Token:     secret,
		ExpiresIn: s.cfg.RecoveryExpiresIn,
		CreatedAt: time.Now(),
	}
	if err = s.recoveryTokens.Replace(ctx, token); err != nil {
		return err
	}

	subject, html := recoveryEmail(secret)
	s.sendMail(user.Email, subject, html)

	return nil
}

// CompleteRecovery trades a live recovery token for a new password. The
// password update and the token consumption commit together so the token
// can never be replayed.
func (s *AccountService) CompleteRecovery(ctx context.Context, tokenString, newPassword, confirmation string) error {
	if newPassword != confirmation {
		return ErrPasswordMismatch
	}

	token, err := s.recoveryTokens.FindByToken(ctx, tokenString)
	if err != nil {
		return err
	}
	if token == nil {
		return ErrTokenNotFound
	}
	if token.IsExpired(time.Now()) {
		return ErrTokenExpired
	}

	user, err := s.users.FindByID(ctx, token.UserID)
	if err != nil {
		return err
	}
	if user == nil || user.IsDeleted() {
		return ErrUserNotFound
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = repository.NewUserRepository(tx).UpdatePassword(ctx, user.ID, passwordHash); err != nil {
		return err
	}
	if err = repository.NewRecoveryTokenRepository(tx).DeleteByUserID(ctx, user.ID); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return err
	}

	subject, html := passwordChangedEmail()
	s.sendMail(user.Email, subject, html)

	return nil
}

// ChangePassword is the authenticated variant: the old password must
// verify before the new one is stored.
func (s *AccountService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword, confirmation string) error {
	if newPassword != confirmation {
		return ErrPasswordMismatch
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil || user.IsDeleted() {
		return ErrUserNotFound
	}

	ok, err := s.hasher.Verify(oldPassword, user.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidPassword
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	rows, err := s.users.UpdatePassword(ctx, userID, passwordHash)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *AccountService) UpdatePreferredLanguage(ctx context.Context, userID, lang string) error {
	if !entity.ValidLanguage(lang) {
		return ErrInvalidLanguage
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil || user.IsDeleted() {
		return ErrUserNotFound
	}

	rows, err := s.users.UpdatePreferredLanguage(ctx, userID, lang)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

type BloodDonationInput struct {
	BloodType        string
	DonationLocation string
	DidDonate        bool
}

func (s *AccountService) UpdateBloodDonation(ctx context.Context, userID string, in *BloodDonationInput) error {
	donation := &entity.BloodDonation{
		ID:               uuid.New().String(),
		BloodType:        in.BloodType,
		DonationLocation: in.DonationLocation,
		DidDonate:        in.DidDonate,
		CreatedAt:        time.Now(),
	}
	return s.linkProfile(ctx, userID, repository.SlotBloodDonation, donation.ID, func(tx *sql.Tx) error {
		return repository.NewProfileRepository(tx).CreateBloodDonation(ctx, donation)
	})
}

type TrustedContactInput struct {
	Name      string
	Email     string
	Phone     string
	Birthdate time.Time
	Address   string
}

func (s *AccountService) UpdateTrustedContact(ctx context.Context, userID string, in *TrustedContactInput) error {
	contact := &entity.TrustedContact{
		ID:        uuid.New().String(),
		Name:      in.Name,
		Email:     in.Email,
		Phone:     in.Phone,
		Birthdate: in.Birthdate,
		Address:   in.Address,
		CreatedAt: time.Now(),
	}
	return s.linkProfile(ctx, userID, repository.SlotTrustedContact, contact.ID, func(tx *sql.Tx) error {
		return repository.NewProfileRepository(tx).CreateTrustedContact(ctx, contact)
	})
}

type HealthPlanInput struct {
	Institution   string
	Type          string
	Accommodation string
}

func (s *AccountService) UpdateHealthPlan(ctx context.Context, userID string, in *HealthPlanInput) error {
	plan := &entity.HealthPlan{
		ID:            uuid.New().String(),
		Institution:   in.Institution,
		Type:          in.Type,
		Accommodation: in.Accommodation,
		CreatedAt:     time.Now(),
	}
	return s.linkProfile(ctx, userID, repository.SlotHealthPlan, plan.ID, func(tx *sql.Tx) error {
		return repository.NewProfileRepository(tx).CreateHealthPlan(ctx, plan)
	})
}

// linkProfile creates a sub-resource row and repoints the user's link to
// it inside one transaction, so a concurrent delete cannot leave a
// dangling reference.
func (s *AccountService) linkProfile(ctx context.Context, userID string, slot repository.ProfileSlot, refID string, create func(tx *sql.Tx) error) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil || user.IsDeleted() {
		return ErrUserNotFound
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err = create(tx); err != nil {
		return err
	}

	rows, err := repository.NewUserRepository(tx).UpdateProfileLink(ctx, userID, slot, refID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrUserNotFound
	}

	return tx.Commit()
}

func (s *AccountService) sendMail(to, subject, html string) {
	from := s.cfg.Mail.From
	s.asyncRunner(func() {
		if err := s.mailer.Send(from, to, subject, "", html); err != nil {
			logrus.WithError(err).WithField("to", to).Error("failed to send notification email")
		}
	})
}

// isDuplicateEntry reports whether err is MySQL error 1062, a unique
// key violation.
func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

// generateRecoverySecret draws 32 bytes from crypto/rand, hex encoded.
func generateRecoverySecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
