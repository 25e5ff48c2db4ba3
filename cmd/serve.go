package cmd

import (
	"context"
	"database/sql"
	"net"
	"time"

	"github.com/safestats/ms-account/app/controller"
	"github.com/safestats/ms-account/app/middleware"
	"github.com/safestats/ms-account/app/repository"
	"github.com/safestats/ms-account/app/service"
	"github.com/safestats/ms-account/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	configureLogging(cfg)

	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	userRepo := repository.NewUserRepository(db)
	recoveryTokenRepo := repository.NewRecoveryTokenRepository(db)
	profileRepo := repository.NewProfileRepository(db)

	tokenService := service.NewTokenService(profileRepo, cfg)
	hasher := service.NewHasher(cfg.EncryptCost)
	mailer := service.NewSMTPMailer(cfg.Mail)
	accountService := service.NewAccountService(db, userRepo, recoveryTokenRepo, tokenService, hasher, mailer, cfg)

	go sweepExpiredTokens(recoveryTokenRepo, time.Hour)

	startHTTPServer(cfg, accountService, tokenService)
}

// sweepExpiredTokens purges expired recovery tokens on a fixed interval.
// Expiry is already enforced on lookup; the sweep only keeps the table
// from accumulating dead rows.
func sweepExpiredTokens(repo *repository.RecoveryTokenRepository, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		if err := repo.DeleteExpired(context.Background()); err != nil {
			logrus.WithError(err).Error("Failed to purge expired recovery tokens")
		}
	}
}

func startHTTPServer(cfg *config.Config, accountService *service.AccountService, tokenService *service.TokenService) {
	e := echo.New()
	defer e.Close()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	accountController := controller.NewAccountController(accountService)
	profileController := controller.NewProfileController(accountService)
	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	users := e.Group("/api/users")
	users.POST("/register", accountController.Register)
	users.POST("/login", accountController.Login)

	// Recovery works for logged-out callers but still resolves an
	// identity when a token is present.
	recovery := users.Group("")
	recovery.Use(authMiddleware.OptionalAuth)
	recovery.POST("/recover-password", accountController.RecoverPassword)
	recovery.POST("/update-password", accountController.UpdatePassword)

	protected := users.Group("")
	protected.Use(authMiddleware.RequireAuth)
	protected.POST("/delete-user", profileController.DeleteUser)
	protected.POST("/change-password", profileController.ChangePassword)
	protected.PUT("/preferred-language", profileController.UpdatePreferredLanguage)
	protected.PUT("/blood-donation", profileController.UpdateBloodDonation)
	protected.PUT("/trusted-contact", profileController.UpdateTrustedContact)
	protected.PUT("/health-plan", profileController.UpdateHealthPlan)

	httpAddr := net.JoinHostPort(cfg.HTTPHost, cfg.HTTPPort)
	logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
	if err := e.Start(httpAddr); err != nil {
		logrus.WithError(err).Fatal("Failed to start HTTP server")
	}
}

func configureLogging(cfg *config.Config) {
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}
	if cfg.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
}
