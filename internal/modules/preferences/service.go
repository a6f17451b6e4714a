package preferences

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/restakelabs/risk-oracle/internal/domain"
	"github.com/restakelabs/risk-oracle/internal/events"
)

// Service is the per-user risk tolerance store. Setting preferences needs
// no role: identity is the authorization, each user writes only their own
// row. The setter always opts the user into auto-rebalancing.
type Service struct {
	repo   *Repository
	events *events.Manager
	log    zerolog.Logger
}

// NewService creates a new preferences service
func NewService(repo *Repository, ev *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		events: ev,
		log:    log.With().Str("service", "preferences").Logger(),
	}
}

// Set stores the caller's risk tolerance. maxRiskScore must be in [1,100].
func (s *Service) Set(caller domain.Principal, maxRiskScore int) error {
	if caller == "" {
		return fmt.Errorf("anonymous caller: %w", domain.ErrUnauthorized)
	}
	if maxRiskScore <= 0 {
		return fmt.Errorf("risk threshold must be greater than 0: %w", domain.ErrInvalidInput)
	}
	if maxRiskScore > domain.MaxRiskScore {
		return fmt.Errorf("risk threshold %d above %d: %w", maxRiskScore, domain.MaxRiskScore, domain.ErrInvalidInput)
	}

	pref := domain.UserPreference{
		User:          caller,
		MaxRiskScore:  maxRiskScore,
		AutoRebalance: true,
	}
	if err := s.repo.Upsert(pref); err != nil {
		return err
	}

	s.log.Info().
		Str("user", string(caller)).
		Int("max_risk_score", maxRiskScore).
		Msg("User preferences set")

	s.events.Emit(events.PreferencesSet, "preferences", map[string]interface{}{
		"user":           string(caller),
		"max_risk_score": maxRiskScore,
	})
	return nil
}

// Get returns a user's preferences, defaulting for unknown users.
func (s *Service) Get(user domain.Principal) (domain.UserPreference, error) {
	return s.repo.Get(user)
}
