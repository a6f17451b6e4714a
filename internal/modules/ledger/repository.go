package ledger

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/restakelabs/risk-oracle/internal/domain"
)

// Repository handles (user, avs) balance database operations. Balances are
// only ever credited here; moving funds between venues is the rebalance
// engine's job and runs in its own transaction.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new balance repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "ledger").Logger(),
	}
}

// Credit adds amount to balance(user, avsName), creating the row if needed.
func (r *Repository) Credit(user domain.Principal, avsName string, amount int64) error {
	_, err := r.db.Exec(`
		INSERT INTO balances (user_id, avs_name, amount)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, avs_name) DO UPDATE SET
			amount = amount + excluded.amount
	`, string(user), avsName, amount)
	if err != nil {
		return fmt.Errorf("failed to credit balance: %w", err)
	}
	return nil
}

// BalanceOf returns the balance for one (user, avs) pair, 0 when absent.
func (r *Repository) BalanceOf(user domain.Principal, avsName string) (int64, error) {
	var amount int64
	err := r.db.QueryRow(`
		SELECT amount FROM balances WHERE user_id = ? AND avs_name = ?
	`, string(user), avsName).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query balance: %w", err)
	}
	return amount, nil
}

// Balances returns all positive balances for a user.
func (r *Repository) Balances(user domain.Principal) ([]domain.Balance, error) {
	rows, err := r.db.Query(`
		SELECT avs_name, amount FROM balances
		WHERE user_id = ? AND amount > 0
		ORDER BY avs_name ASC
	`, string(user))
	if err != nil {
		return nil, fmt.Errorf("failed to query balances: %w", err)
	}
	defer rows.Close()

	var result []domain.Balance
	for rows.Next() {
		b := domain.Balance{User: user}
		if err := rows.Scan(&b.AVSName, &b.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		result = append(result, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating balances: %w", err)
	}
	return result, nil
}

// Users returns every user that has ever deposited, in stable order. The
// trusted backend driver enumerates these for its rebalance cycle.
func (r *Repository) Users() ([]domain.Principal, error) {
	rows, err := r.db.Query("SELECT DISTINCT user_id FROM balances ORDER BY user_id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []domain.Principal
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, domain.Principal(id))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// SumBalances returns the total held by a user across all venues.
func (r *Repository) SumBalances(user domain.Principal) (int64, error) {
	var total sql.NullInt64
	err := r.db.QueryRow(`
		SELECT SUM(amount) FROM balances WHERE user_id = ?
	`, string(user)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum balances: %w", err)
	}
	return total.Int64, nil
}
