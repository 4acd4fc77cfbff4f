package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/browoko/assessment-api/internal/models"
)

// ConnectPostgres establishes a connection to the PostgreSQL database using the provided DSN.
func ConnectPostgres(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn must not be empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return db, nil
}

// Migrate creates the schema. The partial unique index backs the invariant
// that a user holds at most one draft per test at a time.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Test{},
		&models.TestBlock{},
		&models.TestSubmission{},
		&models.ReviewComment{},
	); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_test_submissions_draft ON test_submissions (test_id, user_id) WHERE status = 'DRAFT'",
	).Error; err != nil {
		return fmt.Errorf("failed to create draft uniqueness index: %w", err)
	}

	return nil
}
