package cmd

import (
	"context"
	"database/sql"

	"github.com/safestats/ms-account/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database tables",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS blood_donations (
		id CHAR(36) PRIMARY KEY,
		blood_type VARCHAR(8) NOT NULL,
		donation_location VARCHAR(255) NOT NULL,
		did_donate BOOLEAN NOT NULL DEFAULT FALSE,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS trusted_contacts (
		id CHAR(36) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL,
		phone VARCHAR(32) NOT NULL,
		birthdate DATETIME NOT NULL,
		address VARCHAR(255) NOT NULL,
		created_at DATETIME NOT NULL,
		INDEX idx_trusted_contacts_email (email)
	)`,
	`CREATE TABLE IF NOT EXISTS health_plans (
		id CHAR(36) PRIMARY KEY,
		institution VARCHAR(255) NOT NULL,
		type VARCHAR(64) NOT NULL,
		accommodation VARCHAR(64) NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id CHAR(36) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		phone VARCHAR(32) NULL,
		birthdate DATETIME NULL,
		preferred_language VARCHAR(8) NOT NULL DEFAULT 'PT-BR',
		blood_donation_id CHAR(36) NULL,
		trusted_contact_id CHAR(36) NULL,
		health_plan_id CHAR(36) NULL,
		deleted_at DATETIME NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE INDEX idx_users_email (email),
		CONSTRAINT fk_users_blood_donation FOREIGN KEY (blood_donation_id) REFERENCES blood_donations (id),
		CONSTRAINT fk_users_trusted_contact FOREIGN KEY (trusted_contact_id) REFERENCES trusted_contacts (id),
		CONSTRAINT fk_users_health_plan FOREIGN KEY (health_plan_id) REFERENCES health_plans (id)
	)`,
	`CREATE TABLE IF NOT EXISTS recovery_tokens (
		user_id CHAR(36) PRIMARY KEY,
		token VARCHAR(128) NOT NULL,
		expires_in BIGINT NOT NULL DEFAULT 3600,
		created_at DATETIME NOT NULL,
		INDEX idx_recovery_tokens_token (token),
		CONSTRAINT fk_recovery_tokens_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	)`,
}

func runMigrate(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	configureLogging(cfg)

	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	for _, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	logrus.Info("Database schema is up to date")
	return nil
}
