package rebalancing

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/restakelabs/risk-oracle/internal/auth"
	"github.com/restakelabs/risk-oracle/internal/database"
	"github.com/restakelabs/risk-oracle/internal/domain"
	"github.com/restakelabs/risk-oracle/internal/events"
	"github.com/restakelabs/risk-oracle/internal/locking"
	"github.com/restakelabs/risk-oracle/internal/modules/preferences"
)

// move is one staged debit/credit pair: the full balance of a risky venue
// headed for the safe target.
type move struct {
	fromAVS string
	amount  int64
}

// Service is the rebalance engine. One invocation performs a one-shot
// threshold sweep for a single user: every venue scored above the user's
// threshold is emptied into the single safest venue at or below it. The
// sweep is atomic and conserves the user's total balance.
type Service struct {
	db     *database.DB
	prefs  *preferences.Service
	guard  *auth.Guard
	locks  *locking.Manager
	events *events.Manager
	log    zerolog.Logger
}

// NewService creates a new rebalance engine
func NewService(
	db *database.DB,
	prefs *preferences.Service,
	guard *auth.Guard,
	locks *locking.Manager,
	ev *events.Manager,
	log zerolog.Logger,
) *Service {
	return &Service{
		db:     db,
		prefs:  prefs,
		guard:  guard,
		locks:  locks,
		events: ev,
		log:    log.With().Str("service", "rebalancing").Logger(),
	}
}

// TriggerRebalance sweeps one user's over-threshold balances into the safe
// target. Trusted backend only. Concurrent sweeps for the same user
// serialize; different users proceed independently.
func (s *Service) TriggerRebalance(caller domain.Principal, user domain.Principal) error {
	if err := s.guard.RequireTrustedBackend(caller); err != nil {
		return err
	}
	if user == "" {
		return fmt.Errorf("user cannot be empty: %w", domain.ErrInvalidInput)
	}

	lockKey := "rebalance:" + string(user)
	s.locks.Lock(lockKey)
	defer s.locks.Unlock(lockKey)

	pref, err := s.prefs.Get(user)
	if err != nil {
		return err
	}
	if !pref.AutoRebalance {
		return fmt.Errorf("user %q: %w", user, domain.ErrNotOptedIn)
	}
	threshold := pref.MaxRiskScore

	var target string
	var moves []move
	var movedTotal int64

	err = s.db.WithTx(func(tx *sql.Tx) error {
		venues, err := listVenues(tx)
		if err != nil {
			return err
		}

		// Safe target: lowest risk score at or below the threshold. The
		// list comes back in registration order, so a strict comparison
		// breaks score ties in favor of the earliest registration.
		targetIdx := -1
		for i, v := range venues {
			if v.RiskScore > threshold {
				continue
			}
			if targetIdx == -1 || v.RiskScore < venues[targetIdx].RiskScore {
				targetIdx = i
			}
		}
		if targetIdx == -1 {
			return fmt.Errorf("no avs at or below threshold %d: %w", threshold, domain.ErrNoSafeTarget)
		}
		target = venues[targetIdx].Name

		scores := make(map[string]int, len(venues))
		for _, v := range venues {
			scores[v.Name] = v.RiskScore
		}

		balances, err := listBalances(tx, user)
		if err != nil {
			return err
		}

		// Stage the full set of moves before touching anything. A venue
		// exactly at the threshold is safe and stays put.
		for _, b := range balances {
			if b.AVSName == target {
				continue
			}
			if scores[b.AVSName] > threshold && b.Amount > 0 {
				moves = append(moves, move{fromAVS: b.AVSName, amount: b.Amount})
				movedTotal += b.Amount
			}
		}

		for _, m := range moves {
			if err := debitAll(tx, user, m.fromAVS); err != nil {
				return err
			}
		}
		if movedTotal > 0 {
			if err := credit(tx, user, target, movedTotal); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Str("user", string(user)).
		Str("target", target).
		Int("threshold", threshold).
		Int("moves", len(moves)).
		Int64("moved_total", movedTotal).
		Msg("Rebalance completed")

	if movedTotal > 0 {
		s.events.Emit(events.RebalanceComplete, "rebalancing", map[string]interface{}{
			"user":        string(user),
			"target":      target,
			"moved_total": movedTotal,
			"moves":       len(moves),
		})
	}
	return nil
}

func listVenues(tx *sql.Tx) ([]domain.AVS, error) {
	rows, err := tx.Query("SELECT seq, name, risk_score FROM avs ORDER BY seq ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query venues: %w", err)
	}
	defer rows.Close()

	var venues []domain.AVS
	for rows.Next() {
		var v domain.AVS
		if err := rows.Scan(&v.Seq, &v.Name, &v.RiskScore); err != nil {
			return nil, fmt.Errorf("failed to scan venue: %w", err)
		}
		venues = append(venues, v)
	}
	return venues, rows.Err()
}

func listBalances(tx *sql.Tx, user domain.Principal) ([]domain.Balance, error) {
	rows, err := tx.Query(`
		SELECT avs_name, amount FROM balances
		WHERE user_id = ? AND amount > 0
	`, string(user))
	if err != nil {
		return nil, fmt.Errorf("failed to query balances: %w", err)
	}
	defer rows.Close()

	var balances []domain.Balance
	for rows.Next() {
		b := domain.Balance{User: user}
		if err := rows.Scan(&b.AVSName, &b.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

func debitAll(tx *sql.Tx, user domain.Principal, avsName string) error {
	_, err := tx.Exec(`
		UPDATE balances SET amount = 0
		WHERE user_id = ? AND avs_name = ?
	`, string(user), avsName)
	if err != nil {
		return fmt.Errorf("failed to debit %s: %w", avsName, err)
	}
	return nil
}

func credit(tx *sql.Tx, user domain.Principal, avsName string, amount int64) error {
	_, err := tx.Exec(`
		INSERT INTO balances (user_id, avs_name, amount)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, avs_name) DO UPDATE SET
			amount = amount + excluded.amount
	`, string(user), avsName, amount)
	if err != nil {
		return fmt.Errorf("failed to credit %s: %w", avsName, err)
	}
	return nil
}
