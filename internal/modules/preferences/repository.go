package preferences

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/restakelabs/risk-oracle/internal/domain"
)

// Repository handles user preference database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new preferences repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "preferences").Logger(),
	}
}

// Upsert stores a user's preferences, replacing any prior value.
func (r *Repository) Upsert(pref domain.UserPreference) error {
	_, err := r.db.Exec(`
		INSERT INTO user_preferences (user_id, max_risk_score, auto_rebalance)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			max_risk_score = excluded.max_risk_score,
			auto_rebalance = excluded.auto_rebalance
	`, string(pref.User), pref.MaxRiskScore, boolToInt(pref.AutoRebalance))
	if err != nil {
		return fmt.Errorf("failed to upsert preferences: %w", err)
	}
	return nil
}

// Get returns a user's preferences. Users that never set preferences get
// the zero-value default (threshold 0, auto-rebalance off); this never
// errors on absence.
func (r *Repository) Get(user domain.Principal) (domain.UserPreference, error) {
	pref := domain.UserPreference{User: user}

	var autoRebalance int
	err := r.db.QueryRow(`
		SELECT max_risk_score, auto_rebalance
		FROM user_preferences WHERE user_id = ?
	`, string(user)).Scan(&pref.MaxRiskScore, &autoRebalance)
	if errors.Is(err, sql.ErrNoRows) {
		return pref, nil
	}
	if err != nil {
		return pref, fmt.Errorf("failed to query preferences: %w", err)
	}

	pref.AutoRebalance = autoRebalance != 0
	return pref, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
