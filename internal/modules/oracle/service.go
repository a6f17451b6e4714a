package oracle

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/restakelabs/risk-oracle/internal/auth"
	oracleclient "github.com/restakelabs/risk-oracle/internal/clients/oracle"
	"github.com/restakelabs/risk-oracle/internal/domain"
	"github.com/restakelabs/risk-oracle/internal/modules/registry"
)

// Service is the risk oracle adapter: it pulls an authoritative score from
// the external oracle and writes it into the registry. One read, one
// write, both or neither.
type Service struct {
	repo     *Repository
	client   *oracleclient.Client
	registry *registry.Service
	guard    *auth.Guard
	log      zerolog.Logger
}

// NewService creates a new oracle adapter service
func NewService(
	repo *Repository,
	client *oracleclient.Client,
	reg *registry.Service,
	guard *auth.Guard,
	log zerolog.Logger,
) *Service {
	return &Service{
		repo:     repo,
		client:   client,
		registry: reg,
		guard:    guard,
		log:      log.With().Str("service", "oracle").Logger(),
	}
}

// SetOracle replaces the oracle reference. Owner only.
func (s *Service) SetOracle(caller domain.Principal, url string) error {
	if err := s.guard.RequireOwner(caller); err != nil {
		return err
	}
	if url == "" {
		return fmt.Errorf("oracle url cannot be empty: %w", domain.ErrInvalidInput)
	}

	if err := s.repo.SetURL(url); err != nil {
		return err
	}

	s.log.Info().Str("oracle_url", url).Msg("Oracle reference set")
	return nil
}

// OracleURL returns the configured oracle reference, "" when unset.
func (s *Service) OracleURL() (string, error) {
	return s.repo.URL()
}

// Refresh queries the oracle for the venue's current score and stores it.
// Trusted backend only. The oracle is trusted for range; the registry
// write still enforces [0,100], so a misbehaving oracle fails the call and
// writes nothing.
func (s *Service) Refresh(ctx context.Context, caller domain.Principal, avsName string) error {
	if err := s.guard.RequireTrustedBackend(caller); err != nil {
		return err
	}

	url, err := s.repo.URL()
	if err != nil {
		return err
	}
	if url == "" {
		return domain.ErrOracleUnset
	}

	// Unknown venues fail before the oracle round-trip.
	if _, err := s.registry.Get(avsName); err != nil {
		return err
	}

	score, err := s.client.GetScore(ctx, url, avsName)
	if err != nil {
		return fmt.Errorf("oracle refresh for %q failed: %w", avsName, err)
	}

	return s.registry.ApplyScore(avsName, score)
}
