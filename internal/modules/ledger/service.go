package ledger

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/restakelabs/risk-oracle/internal/domain"
	"github.com/restakelabs/risk-oracle/internal/events"
	"github.com/restakelabs/risk-oracle/internal/modules/registry"
)

// Service is the balance ledger. Any authenticated user may deposit into a
// registered venue; there is no withdrawal path, funds only move between
// venues via the rebalance engine.
type Service struct {
	repo     *Repository
	registry *registry.Service
	events   *events.Manager
	log      zerolog.Logger
}

// NewService creates a new ledger service
func NewService(repo *Repository, reg *registry.Service, ev *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		registry: reg,
		events:   ev,
		log:      log.With().Str("service", "ledger").Logger(),
	}
}

// Deposit credits amount to the caller's balance in the named AVS.
func (s *Service) Deposit(caller domain.Principal, avsName string, amount int64) error {
	if caller == "" {
		return fmt.Errorf("anonymous caller: %w", domain.ErrUnauthorized)
	}
	if _, err := s.registry.Get(avsName); err != nil {
		return err
	}
	if amount <= 0 {
		return fmt.Errorf("deposit amount must be positive: %w", domain.ErrInvalidInput)
	}

	if err := s.repo.Credit(caller, avsName, amount); err != nil {
		return err
	}

	s.log.Info().
		Str("user", string(caller)).
		Str("avs", avsName).
		Int64("amount", amount).
		Msg("Deposit processed")

	s.events.Emit(events.DepositProcessed, "ledger", map[string]interface{}{
		"user":   string(caller),
		"avs":    avsName,
		"amount": amount,
	})
	return nil
}

// BalanceOf returns the balance for one (user, avs) pair, 0 when absent.
func (s *Service) BalanceOf(user domain.Principal, avsName string) (int64, error) {
	return s.repo.BalanceOf(user, avsName)
}

// Balances returns all positive balances for a user.
func (s *Service) Balances(user domain.Principal) ([]domain.Balance, error) {
	return s.repo.Balances(user)
}

// Users lists every known depositor.
func (s *Service) Users() ([]domain.Principal, error) {
	return s.repo.Users()
}
