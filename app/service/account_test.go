package service_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/safestats/ms-account/app/entity"
	"github.com/safestats/ms-account/app/repository"
	"github.com/safestats/ms-account/app/service"
	"github.com/safestats/ms-account/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"golang.org/x/crypto/bcrypt"
)

const (
	findByEmailQuery        = `(?s)SELECT id, name, email, password_hash, phone, birthdate, preferred_language,\s+blood_donation_id, trusted_contact_id, health_plan_id, deleted_at, created_at, updated_at\s+FROM users WHERE email = \?\s*$`
	findActiveByEmailQuery  = `(?s)SELECT id, name, email, password_hash, phone, birthdate, preferred_language,\s+blood_donation_id, trusted_contact_id, health_plan_id, deleted_at, created_at, updated_at\s+FROM users WHERE email = \? AND deleted_at IS NULL`
	findByIDQuery           = `(?s)SELECT id, name, email, password_hash, phone, birthdate, preferred_language,\s+blood_donation_id, trusted_contact_id, health_plan_id, deleted_at, created_at, updated_at\s+FROM users WHERE id = \?`
	insertUserQuery         = `(?s)INSERT INTO users \(id, name, email, password_hash, phone, birthdate, preferred_language, created_at, updated_at\)\s+VALUES \(\?, \?, \?, \?, \?, \?, \?, \?, \?\)`
	hardDeleteUserQuery     = `(?s)DELETE FROM users WHERE id = \?`
	softDeleteUserQuery     = `(?s)UPDATE users SET deleted_at = \?, updated_at = \? WHERE id = \? AND deleted_at IS NULL`
	updatePasswordQuery     = `(?s)UPDATE users SET password_hash = \?, updated_at = \? WHERE id = \?`
	updateLanguageQuery     = `(?s)UPDATE users SET preferred_language = \?, updated_at = \? WHERE id = \?`
	replaceTokenQuery       = `(?s)INSERT INTO recovery_tokens \(user_id, token, expires_in, created_at\)\s+VALUES \(\?, \?, \?, \?\)\s+ON DUPLICATE KEY UPDATE`
	findTokenQuery          = `(?s)SELECT user_id, token, expires_in, created_at\s+FROM recovery_tokens WHERE token = \?`
	deleteTokenByUserQuery  = `(?s)DELETE FROM recovery_tokens WHERE user_id = \?`
	insertBloodDonation     = `(?s)INSERT INTO blood_donations \(id, blood_type, donation_location, did_donate, created_at\)\s+VALUES \(\?, \?, \?, \?, \?\)`
	updateBloodDonationLink = `(?s)UPDATE users SET blood_donation_id = \?, updated_at = \? WHERE id = \?`
)

var userColumns = []string{
	"id",
	"name",
	"email",
	"password_hash",
	"phone",
	"birthdate",
	"preferred_language",
	"blood_donation_id",
	"trusted_contact_id",
	"health_plan_id",
	"deleted_at",
	"created_at",
	"updated_at",
}

var recoveryColumns = []string{
	"user_id",
	"token",
	"expires_in",
	"created_at",
}

type sentMail struct {
	From    string
	To      string
	Subject string
	HTML    string
}

type recordingMailer struct {
	sent []sentMail
	err  error
}

func (m *recordingMailer) Send(from, to, subject, _, html string) error {
	m.sent = append(m.sent, sentMail{From: from, To: to, Subject: subject, HTML: html})
	return m.err
}

type stubTokenIssuer struct {
	token string
	err   error
}

func (s *stubTokenIssuer) Issue(_ context.Context, _ *entity.User) (string, error) {
	return s.token, s.err
}

func syncRunner(task func()) { task() }

func serviceConfig() *config.Config {
	return &config.Config{
		CryptoKey:         "test-secret",
		Issuer:            "safestats-test",
		TokenDuration:     time.Hour,
		EncryptCost:       4,
		RecoveryExpiresIn: 3600,
		Mail: config.MailConfig{
			From: `"Equipe SafeStats" <help@safestats.test>`,
		},
	}
}

func newAccountService(t *testing.T) (*service.AccountService, sqlmock.Sqlmock, *recordingMailer, func()) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	mailer := &recordingMailer{}
	cfg := serviceConfig()
	svc := service.NewAccountService(
		db,
		repository.NewUserRepository(db),
		repository.NewRecoveryTokenRepository(db),
		&stubTokenIssuer{token: "session-token"},
		service.NewHasher(cfg.EncryptCost),
		mailer,
		cfg,
		service.WithAsyncRunner(syncRunner),
	)
	return svc, mock, mailer, func() { _ = db.Close() }
}

func activeUserRow(id, email, passwordHash string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(userColumns).AddRow(
		id, "Maria", email, passwordHash, nil, nil, entity.DefaultLanguage,
		nil, nil, nil, nil, now, now,
	)
}

func deletedUserRow(id, email, passwordHash string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(userColumns).AddRow(
		id, "Maria", email, passwordHash, nil, nil, entity.DefaultLanguage,
		nil, nil, nil, now.Add(-time.Hour), now, now,
	)
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	return string(hash)
}

func TestAccountService_Register(t *testing.T) {
	svc, mock, mailer, cleanup := newAccountService(t)
	defer cleanup()

	mock.ExpectQuery(findByEmailQuery).
		WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows(userColumns))
	mock.ExpectBegin()
	mock.ExpectExec(insertUserQuery).
		WithArgs(sqlmock.AnyArg(), "A", "a@x.com", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), entity.DefaultLanguage, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	user, err := svc.Register(context.Background(), &service.RegisterInput{
		Name:            "A",
		Email:           "a@x.com",
		Password:        "123456",
		ConfirmPassword: "123456",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if user.ID == "" {
		t.Fatal("expected generated user ID")
	}
	if user.PasswordHash == "123456" {
		t.Fatal("password must be stored hashed")
	}
	if user.PreferredLanguage != entity.DefaultLanguage {
		t.Fatalf("expected default language, got %q", user.PreferredLanguage)
	}

	if len(mailer.sent) != 1 {
		t.Fatalf("expected 1 welcome mail, got %d", len(mailer.sent))
	}
	if mailer.sent[0].To != "a@x.com" {
		t.Fatalf("welcome mail sent to %q", mailer.sent[0].To)
	}
	if mailer.sent[0].Subject != "Seja bem-vindo ao SafeStats 🥰" {
		t.Fatalf("unexpected welcome mail subject %q", mailer.sent[0].Subject)
	}
	if mailer.sent[0].HTML == "" {
		t.Fatal("welcome mail has no body")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountService_Register_InvalidEmail(t *testing.T) {
	svc, _, mailer, cleanup := newAccountService(t)
	defer cleanup()

	_, err := svc.Register(context.Background(), &service.RegisterInput{
		Name:            "A",
		Email:           "not-an-email",
		Password:        "123456",
		ConfirmPassword: "123456",
	})
	if !errors.Is(err, service.ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Fatal("no mail may be sent on validation failure")
	}
}

func TestAccountService_Register_PasswordMismatch(t *testing.T) {
	svc, _, _, cleanup := newAccountService(t)
	defer cleanup()

	_, err := svc.Register(context.Background(), &service.RegisterInput{
		Name:            "A",
		Email:           "a@x.com",
		Password:        "123456",
		ConfirmPassword: "1234567",
	})
	if !errors.Is(err, service.ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
}

func TestAccountService_Register_EmailAlreadyUsed(t *testing.T) {
	svc, mock, _, cleanup := newAccountService(t)
	defer cleanup()

	mock.ExpectQuery(findByEmailQuery).
		WithArgs("a@x.com").
		WillReturnRows(activeUserRow("id-1", "a@x.com", "hash"))

	_, err := svc.Register(context.Background(), &service.RegisterInput{
		Name:            "A",
		Email:           "a@x.com",
		Password:        "123456",
		ConfirmPassword: "123456",
	})
	if !errors.Is(err, service.ErrEmailAlreadyUsed) {
		t.Fatalf("expected ErrEmailAlreadyUsed, got %v", err)
	}
}

func TestAccountService_Register_ReclaimsSoftDeletedEmail(t *testing.T) {
	svc, mock, _, cleanup := newAccountService(t)
	defer cleanup()

	mock.ExpectQuery(findByEmailQuery).
		WithArgs("a@x.com").
		WillReturnRows(deletedUserRow("old-id", "a@x.com", "hash"))
	mock.ExpectBegin()
	mock.ExpectExec(hardDeleteUserQuery).
		WithArgs("old-id").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insertUserQuery).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	user, err := svc.Register(context.Background(), &service.RegisterInput{
		Name:            "A",
		Email:           "a@x.com",
		Password:        "123456",
		ConfirmPassword: "123456",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if user.ID == "old-id" {
		t.Fatal("reclaimed email must belong to a fresh account")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountService_Register_DuplicateInsertMapsToEmailAlreadyUsed(t *testing.T) {
	svc, mock, mailer, cleanup := newAccountService(t)
	defer cleanup()

	// A concurrent registration can slip past the FindByEmail check;
	// the unique index on email rejects the second INSERT.
	mock.ExpectQuery(findByEmailQuery).
		WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows(userColumns))
	mock.ExpectBegin()
	mock.ExpectExec(insertUserQuery).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a@x.com' for key 'idx_users_email'"})
	mock.ExpectRollback()

	_, err := svc.Register(context.Background(), &service.RegisterInput{
		Name:            "A",
		Email:           "a@x.com",
		Password:        "123456",
		ConfirmPassword: "123456",
	})
	if !errors.Is(err, service.ErrEmailAlreadyUsed) {
		t.Fatalf("expected ErrEmailAlreadyUsed, got %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Fatal("no mail may be sent for a rejected registration")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountService_Login(t *testing.T) {
	svc, mock, _, cleanup := newAccountService(t)
	defer cleanup()

	hash := mustHash(t, "123456")
	mock.ExpectQuery(findByEmailQuery).
		WithArgs("a@x.com").
		WillReturnRows(activeUserRow("id-1", "a@x.com", hash))

	token, err := svc.Login(context.Background(), "a@x.com", "123456")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if token != "session-token" {
		t.Fatalf("unexpected token %q", token)
	}
}

func TestAccountService_Login_WrongPassword(t *testing.T) {
	svc, mock, _, cleanup := newAccountService(t)
	defer cleanup()

	hash := mustHash(t, "123456")
	mock.ExpectQuery(findByEmailQuery).
		WithArgs("a@x.com").
		WillReturnRows(activeUserRow("id-1", "a@x.com", hash))

	_, err := svc.Login(context.Background(), "a@x.com", "wrong")
	if !errors.Is(err, service.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAccountService_Login_UnknownEmail(t *testing.T) {
	svc, mock, _, cleanup := newAccountService(t)
	defer cleanup()

	mock.ExpectQuery(findByEmailQuery).
		WithArgs("missing@x.com").
		WillReturnRows(sqlmock.NewRows(userColumns))

	_, err := svc.Login(context.Background(), "missing@x.com", "123456")
	if !errors.Is(err, service.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAccountService_Login_SoftDeleted(t *testing.T) {
	svc, mock, _, cleanup := newAccountService(t)
	defer cleanup()

	hash := mustHash(t, "123456")
	mock.ExpectQuery(findByEmailQuery).
		WithArgs("a@x.com").
		WillReturnRows(deletedUserRow("id-1", "a@x.com", hash))

	_, err := svc.Login(context.Background(), "a@x.com", "123456")
	if !errors.Is(err, service.ErrUserDeleted) {
		t.Fatalf("expected ErrUserDeleted even with correct password, got %v", err)
	}
}

func TestAccountService_Login_CorruptHash(t *testing.T) {
	svc, mock, _, cleanup := newAccountService(t)
	defer cleanup()

	mock.ExpectQuery(findByEmailQuery).
		WithArgs("a@x.com").
		WillReturnRows(activeUserRow("id-1", "a@x.com", "not-a-bcrypt-hash"))

	_, err := svc.Login(context.Background(), "a@x.com", "123456")
	if !errors.Is(err, service.ErrCorruptCredential) {
		t.Fatalf("expected ErrCorruptCredential, got %v", err)
	}
}

func TestAccountService_SoftDelete(t *testing.T) {
	svc, mock, _, cleanup := newAccountService(t)
	defer cleanup()

	mock.ExpectQuery(findByIDQuery).
		WithArgs("id-1").
		WillReturnRows(activeUserRow("id-1", "a@x.com", "hash"))
	mock.ExpectExec(softDeleteUserQuery).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "id-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := svc.SoftDelete(context.Background(), "id-1", "123456", "123456"); err != nil {
		t.Fatalf("soft delete failed: %v", err)
	}
}

func TestAccountService_SoftDelete_ConfirmationMismatch(t *testing.T) {
	svc, _, _, cleanup := newAccountService(t)
	defer cleanup()

	err := svc.SoftDelete(context.Background(), "id-1", "123456", "1234567")
	if !errors.Is(err, service.ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
}

func TestAccountService_SoftDelete_UserNotFound(t *testing.T) {
	svc, mock, _, cleanup := newAccountService(t)
	defer cleanup()

	mock.ExpectQuery(findByIDQuery).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(userColumns))

	err := svc.SoftDelete(context.Background(), "missing", "123456", "123456")
	if !errors.Is(err, service.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAccountService_RequestRecovery(t *testing.T) {
	svc, mock, mailer, cleanup := newAccountService(t)
	defer cleanup()

	mock.ExpectQuery(findActiveByEmailQuery).
		WithArgs("a@x.com").
		WillReturnRows(activeUserRow("id-1", "a@x.com", "hash"))
	mock.ExpectExec(replaceTokenQuery).
		WithArgs("id-1", sqlmock.AnyArg(), int64(3600), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := svc.RequestRecovery(context.Background(), "a@x.com"); err != nil {
		t.Fatalf("request recovery failed: %v", err)
	}

	if len(mailer.sent) != 1 {
		t.Fatalf("expected 1 recovery mail, got %d", len(mailer.sent))
	}
	if mailer.sent[0].Subject != "Recuperação de senha 🚑" {
		t.Fatalf("unexpected recovery mail subject %q", mailer.sent[0].Subject)
	}
	// The secret only travels through the notification channel.
	hexSecret := regexp.MustCompile(`[0-9a-f]{64}`)
	if !hexSecret.MatchString(mailer.sent[0].HTML) {
		t.Fatalf("recovery mail does not carry a 64-char hex secret: %q", mailer.sent[0].HTML)
	}
}

func TestAccountService_RequestRecovery_UnknownEmail(t *testing.T) {
	svc, mock, mailer, cleanup := newAccountService(t)
	defer cleanup()

	mock.ExpectQuery(findActiveByEmailQuery).
		WithArgs("missing@x.com").
		WillReturnRows(sqlmock.NewRows(userColumns))

	err := svc.RequestRecovery(context.Background(), "missing@x.com")
	if !errors.Is(err, service.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Fatal("no mail may be sent for unknown email")
	}
}

func TestAccountService_CompleteRecovery(t *testing.T) {
	svc, mock, mailer, cleanup := newAccountService(t)
	defer cleanup()

	mock.ExpectQuery(findTokenQuery).
		WithArgs("secret").
		WillReturnRows(sqlmock.NewRows(recoveryColumns).
			AddRow("id-1", "secret", int64(3600), time.Now().Add(-5*time.Minute)))
	mock.ExpectQuery(findByIDQuery).
		WithArgs("id-1").
		WillReturnRows(activeUserRow("id-1", "a@x.com", "old-hash"))
	mock.ExpectBegin()
	mock.ExpectExec(updatePasswordQuery).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "id-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(deleteTokenByUserQuery).
		WithArgs("id-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := svc.CompleteRecovery(context.Background(), "secret", "newpass", "newpass"); err != nil {
		t.Fatalf("complete recovery failed: %v", err)
	}

	if len(mailer.sent) != 1 {
		t.Fatalf("expected password-changed mail, got %d", len(mailer.sent))
	}
	if mailer.sent[0].Subject != "Sua senha foi alterada 🔒" {
		t.Fatalf("unexpected mail subject %q", mailer.sent[0].Subject)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountService_CompleteRecovery_TokenNotFound(t *testing.T) {
	svc, mock, _, cleanup := newAccountService(t)
	defer cleanup()

	mock.ExpectQuery(findTokenQuery).
		WithArgs("garbage").
		WillReturnRows(sqlmock.NewRows(recoveryColumns))

	err := svc.CompleteRecovery(context.Background(), "garbage", "newpass", "newpass")
	if !errors.Is(err, service.ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestAccountService_CompleteRecovery_Expired(t *testing.T) {
	svc, mock, _, cleanup := newAccountService(t)
	defer cleanup()

	mock.ExpectQuery(findTokenQuery).
		WithArgs("secret").
		WillReturnRows(sqlmock.NewRows(recoveryColumns).
			AddRow("id-1", "secret", int64(3600), time.Now().Add(-2*time.Hour)))

	err := svc.CompleteRecovery(context.Background(), "secret", "newpass", "newpass")
	if !errors.Is(err, service.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestAccountService_CompleteRecovery_ConsumedTokenCannotReplay(t *testing.T) {
	svc, mock, _, cleanup := newAccountService(t)
	defer cleanup()

	mock.ExpectQuery(findTokenQuery).
		WithArgs("secret").
		WillReturnRows(sqlmock.NewRows(recoveryColumns).
			AddRow("id-1", "secret", int64(3600), time.Now()))
	mock.ExpectQuery(findByIDQuery).
		WithArgs("id-1").
		WillReturnRows(activeUserRow("id-1", "a@x.com", "old-hash"))
	mock.ExpectBegin()
	mock.ExpectExec(updatePasswordQuery).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(deleteTokenByUserQuery).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := svc.CompleteRecovery(context.Background(), "secret", "newpass", "newpass"); err != nil {
		t.Fatalf("first reset failed: %v", err)
	}

	// The row is gone after consumption, so the same secret is rejected.
	mock.ExpectQuery(findTokenQuery).
		WithArgs("secret").
		WillReturnRows(sqlmock.NewRows(recoveryColumns))

	err := svc.CompleteRecovery(context.Background(), "secret", "another", "another")
	if !errors.Is(err, service.ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound on replay, got %v", err)
	}
}

func TestAccountService_ChangePassword(t *testing.T) {
	svc, mock, _, cleanup := newAccountService(t)
	defer cleanup()

	hash := mustHash(t, "old-pass")
	mock.ExpectQuery(findByIDQuery).
		WithArgs("id-1").
		WillReturnRows(activeUserRow("id-1", "a@x.com", hash))
	mock.ExpectExec(updatePasswordQuery).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "id-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := svc.ChangePassword(context.Background(), "id-1", "old-pass", "new-pass", "new-pass"); err != nil {
		t.Fatalf("change password failed: %v", err)
	}
}

func TestAccountService_ChangePassword_WrongOldPassword(t *testing.T) {
	svc, mock, _, cleanup := newAccountService(t)
	defer cleanup()

	hash := mustHash(t, "old-pass")
	mock.ExpectQuery(findByIDQuery).
		WithArgs("id-1").
		WillReturnRows(activeUserRow("id-1", "a@x.com", hash))

	err := svc.ChangePassword(context.Background(), "id-1", "wrong", "new-pass", "new-pass")
	if !errors.Is(err, service.ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
}

func TestAccountService_UpdatePreferredLanguage(t *testing.T) {
	svc, mock, _, cleanup := newAccountService(t)
	defer cleanup()

	mock.ExpectQuery(findByIDQuery).
		WithArgs("id-1").
		WillReturnRows(activeUserRow("id-1", "a@x.com", "hash"))
	mock.ExpectExec(updateLanguageQuery).
		WithArgs(entity.LanguageENUS, sqlmock.AnyArg(), "id-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := svc.UpdatePreferredLanguage(context.Background(), "id-1", entity.LanguageENUS); err != nil {
		t.Fatalf("update language failed: %v", err)
	}
}

func TestAccountService_UpdatePreferredLanguage_Invalid(t *testing.T) {
	svc, _, _, cleanup := newAccountService(t)
	defer cleanup()

	err := svc.UpdatePreferredLanguage(context.Background(), "id-1", "XX-YY")
	if !errors.Is(err, service.ErrInvalidLanguage) {
		t.Fatalf("expected ErrInvalidLanguage, got %v", err)
	}
}

func TestAccountService_UpdateBloodDonation(t *testing.T) {
	svc, mock, _, cleanup := newAccountService(t)
	defer cleanup()

	mock.ExpectQuery(findByIDQuery).
		WithArgs("id-1").
		WillReturnRows(activeUserRow("id-1", "a@x.com", "hash"))
	mock.ExpectBegin()
	mock.ExpectExec(insertBloodDonation).
		WithArgs(sqlmock.AnyArg(), "O-", "Hemocentro SP", true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(updateBloodDonationLink).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "id-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := svc.UpdateBloodDonation(context.Background(), "id-1", &service.BloodDonationInput{
		BloodType:        "O-",
		DonationLocation: "Hemocentro SP",
		DidDonate:        true,
	})
	if err != nil {
		t.Fatalf("update blood donation failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountService_UpdateBloodDonation_UserNotFound(t *testing.T) {
	svc, mock, _, cleanup := newAccountService(t)
	defer cleanup()

	mock.ExpectQuery(findByIDQuery).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(userColumns))

	err := svc.UpdateBloodDonation(context.Background(), "missing", &service.BloodDonationInput{
		BloodType:        "O-",
		DonationLocation: "Hemocentro SP",
	})
	if !errors.Is(err, service.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAccountService_MailFailureDoesNotFailOperation(t *testing.T) {
	svc, mock, mailer, cleanup := newAccountService(t)
	defer cleanup()
	mailer.err = errors.New("smtp down")

	mock.ExpectQuery(findByEmailQuery).
		WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows(userColumns))
	mock.ExpectBegin()
	mock.ExpectExec(insertUserQuery).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if _, err := svc.Register(context.Background(), &service.RegisterInput{
		Name:            "A",
		Email:           "a@x.com",
		Password:        "123456",
		ConfirmPassword: "123456",
	}); err != nil {
		t.Fatalf("register must not fail on mail error: %v", err)
	}
}
