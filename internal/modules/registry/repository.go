package registry

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/restakelabs/risk-oracle/internal/domain"
)

// Repository handles AVS database operations. The table is append-only per
// name: venues are registered once and never deleted.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new AVS repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "registry").Logger(),
	}
}

// Exists reports whether an AVS with the given name is registered.
func (r *Repository) Exists(name string) (bool, error) {
	var one int
	err := r.db.QueryRow("SELECT 1 FROM avs WHERE name = ?", name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check avs existence: %w", err)
	}
	return true, nil
}

// Create inserts a new AVS row.
func (r *Repository) Create(name string, riskScore int) error {
	_, err := r.db.Exec("INSERT INTO avs (name, risk_score) VALUES (?, ?)", name, riskScore)
	if err != nil {
		return fmt.Errorf("failed to insert avs: %w", err)
	}
	return nil
}

// Get returns one AVS by name.
func (r *Repository) Get(name string) (*domain.AVS, error) {
	var avs domain.AVS
	err := r.db.QueryRow("SELECT seq, name, risk_score FROM avs WHERE name = ?", name).
		Scan(&avs.Seq, &avs.Name, &avs.RiskScore)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Not registered
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query avs: %w", err)
	}
	return &avs, nil
}

// List returns all registered AVS in registration order.
func (r *Repository) List() ([]domain.AVS, error) {
	rows, err := r.db.Query("SELECT seq, name, risk_score FROM avs ORDER BY seq ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query avs list: %w", err)
	}
	defer rows.Close()

	var result []domain.AVS
	for rows.Next() {
		var avs domain.AVS
		if err := rows.Scan(&avs.Seq, &avs.Name, &avs.RiskScore); err != nil {
			return nil, fmt.Errorf("failed to scan avs: %w", err)
		}
		result = append(result, avs)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating avs rows: %w", err)
	}
	return result, nil
}

// SetScore overwrites the stored risk score. No history is kept.
func (r *Repository) SetScore(name string, score int) error {
	res, err := r.db.Exec("UPDATE avs SET risk_score = ? WHERE name = ?", score, name)
	if err != nil {
		return fmt.Errorf("failed to update risk score: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
