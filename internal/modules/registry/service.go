package registry

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/restakelabs/risk-oracle/internal/auth"
	"github.com/restakelabs/risk-oracle/internal/domain"
	"github.com/restakelabs/risk-oracle/internal/events"
)

// Service is the canonical store of known venues and their current risk
// score. Registration and direct score updates are owner-only; the oracle
// adapter writes scores through ApplyScore after its own authorization.
type Service struct {
	repo   *Repository
	guard  *auth.Guard
	events *events.Manager
	log    zerolog.Logger
}

// NewService creates a new registry service
func NewService(repo *Repository, guard *auth.Guard, ev *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		guard:  guard,
		events: ev,
		log:    log.With().Str("service", "registry").Logger(),
	}
}

// Register adds a new AVS with its base risk score. Owner only.
func (s *Service) Register(caller domain.Principal, name string, baseRiskScore int) error {
	if err := s.guard.RequireOwner(caller); err != nil {
		return err
	}
	if err := domain.ValidateAVSName(name); err != nil {
		return err
	}
	if err := domain.ValidateRiskScore(baseRiskScore); err != nil {
		return err
	}

	exists, err := s.repo.Exists(name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("avs %q: %w", name, domain.ErrAlreadyExists)
	}

	if err := s.repo.Create(name, baseRiskScore); err != nil {
		return err
	}

	s.log.Info().
		Str("avs", name).
		Int("base_risk_score", baseRiskScore).
		Msg("AVS registered")

	s.events.Emit(events.AVSRegistered, "registry", map[string]interface{}{
		"avs":        name,
		"risk_score": baseRiskScore,
	})
	return nil
}

// SetRiskScore overwrites an AVS risk score. Owner only.
func (s *Service) SetRiskScore(caller domain.Principal, name string, score int) error {
	if err := s.guard.RequireOwner(caller); err != nil {
		return err
	}
	return s.ApplyScore(name, score)
}

// ApplyScore writes a risk score without a role check. Callers authorize
// separately: SetRiskScore requires the owner, the oracle adapter requires
// the trusted backend before delegating here.
func (s *Service) ApplyScore(name string, score int) error {
	avs, err := s.repo.Get(name)
	if err != nil {
		return err
	}
	if avs == nil {
		return fmt.Errorf("avs %q: %w", name, domain.ErrNotFound)
	}
	if err := domain.ValidateRiskScore(score); err != nil {
		return err
	}

	if err := s.repo.SetScore(name, score); err != nil {
		return err
	}

	s.log.Info().
		Str("avs", name).
		Int("old_score", avs.RiskScore).
		Int("new_score", score).
		Msg("Risk score updated")

	s.events.Emit(events.RiskScoreUpdated, "registry", map[string]interface{}{
		"avs":       name,
		"old_score": avs.RiskScore,
		"new_score": score,
	})
	return nil
}

// Get returns one registered AVS, or ErrNotFound.
func (s *Service) Get(name string) (*domain.AVS, error) {
	avs, err := s.repo.Get(name)
	if err != nil {
		return nil, err
	}
	if avs == nil {
		return nil, fmt.Errorf("avs %q: %w", name, domain.ErrNotFound)
	}
	return avs, nil
}

// List returns every registered AVS in registration order.
func (s *Service) List() ([]domain.AVS, error) {
	return s.repo.List()
}
