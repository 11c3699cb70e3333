package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tvandenberg/thirteenf/internal/apperrors"
)

// SettingsRepository provides data access methods for the settings table, a
// small key/value store for operator-managed configuration such as the
// lookup-service API key. Values flagged encrypted hold fernet ciphertext.
type SettingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository creates a new SettingsRepository with the provided database connection.
func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Set stores or replaces a setting.
func (r *SettingsRepository) Set(key, value string, encrypted bool, updated time.Time) error {
	query := `
          INSERT INTO settings (key, value, encrypted, updated_at)
          VALUES (?, ?, ?, ?)
          ON CONFLICT (key) DO UPDATE SET
              value = excluded.value,
              encrypted = excluded.encrypted,
              updated_at = excluded.updated_at
      `
	if _, err := r.db.Exec(query, key, value, boolToInt(encrypted), formatTime(updated)); err != nil {
		return fmt.Errorf("failed to set setting: %w", err)
	}
	return nil
}

// Get retrieves a setting's value and whether it is stored encrypted.
func (r *SettingsRepository) Get(key string) (string, bool, error) {
	var (
		value     string
		encrypted int
	)
	err := r.db.QueryRow(`SELECT value, encrypted FROM settings WHERE key = ?`, key).Scan(&value, &encrypted)
	if err == sql.ErrNoRows {
		return "", false, apperrors.ErrSettingNotFound
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query setting: %w", err)
	}
	return value, encrypted != 0, nil
}
