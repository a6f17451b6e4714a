package oracle

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

const oracleURLKey = "oracle_url"

// Repository persists the oracle reference in the settings table so it
// survives restarts. Empty means never set.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new oracle settings repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "oracle").Logger(),
	}
}

// SetURL replaces the stored oracle reference.
func (r *Repository) SetURL(url string) error {
	_, err := r.db.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, oracleURLKey, url)
	if err != nil {
		return fmt.Errorf("failed to store oracle url: %w", err)
	}
	return nil
}

// URL returns the stored oracle reference, "" when never set.
func (r *Repository) URL() (string, error) {
	var url string
	err := r.db.QueryRow("SELECT value FROM settings WHERE key = ?", oracleURLKey).Scan(&url)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query oracle url: %w", err)
	}
	return url, nil
}
