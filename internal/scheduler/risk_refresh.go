package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/restakelabs/risk-oracle/internal/auth"
	"github.com/restakelabs/risk-oracle/internal/locking"
	"github.com/restakelabs/risk-oracle/internal/modules/oracle"
	"github.com/restakelabs/risk-oracle/internal/modules/registry"
)

// RiskRefreshJob pulls fresh oracle scores for every registered venue.
// Per-venue failures are logged and skipped so one unreachable score does
// not starve the rest of the cycle.
type RiskRefreshJob struct {
	log         zerolog.Logger
	lockManager *locking.Manager
	registry    *registry.Service
	oracle      *oracle.Service
	guard       *auth.Guard
}

// RiskRefreshConfig holds configuration for the risk refresh job
type RiskRefreshConfig struct {
	Log         zerolog.Logger
	LockManager *locking.Manager
	Registry    *registry.Service
	Oracle      *oracle.Service
	Guard       *auth.Guard
}

// NewRiskRefreshJob creates a new risk refresh job
func NewRiskRefreshJob(cfg RiskRefreshConfig) *RiskRefreshJob {
	return &RiskRefreshJob{
		log:         cfg.Log.With().Str("job", "risk_refresh").Logger(),
		lockManager: cfg.LockManager,
		registry:    cfg.Registry,
		oracle:      cfg.Oracle,
		guard:       cfg.Guard,
	}
}

// Name returns the job name
func (j *RiskRefreshJob) Name() string {
	return "risk_refresh"
}

// Run refreshes every registered venue's score from the oracle
func (j *RiskRefreshJob) Run() error {
	if err := j.lockManager.Acquire("job:risk_refresh"); err != nil {
		j.log.Warn().Err(err).Msg("Risk refresh already running")
		return nil
	}
	defer j.lockManager.Release("job:risk_refresh")

	url, err := j.oracle.OracleURL()
	if err != nil {
		return err
	}
	if url == "" {
		j.log.Debug().Msg("Oracle not configured, skipping refresh cycle")
		return nil
	}

	venues, err := j.registry.List()
	if err != nil {
		return err
	}

	start := time.Now()
	backend := j.guard.TrustedBackend()
	refreshed := 0

	for _, v := range venues {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err := j.oracle.Refresh(ctx, backend, v.Name)
		cancel()

		if err != nil {
			j.log.Warn().Err(err).Str("avs", v.Name).Msg("Refresh failed, continuing")
			continue
		}
		refreshed++
	}

	j.log.Info().
		Int("venues", len(venues)).
		Int("refreshed", refreshed).
		Dur("duration", time.Since(start)).
		Msg("Risk refresh cycle complete")
	return nil
}
