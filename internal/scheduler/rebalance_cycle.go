package scheduler

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/restakelabs/risk-oracle/internal/auth"
	"github.com/restakelabs/risk-oracle/internal/domain"
	"github.com/restakelabs/risk-oracle/internal/locking"
	"github.com/restakelabs/risk-oracle/internal/modules/ledger"
	"github.com/restakelabs/risk-oracle/internal/modules/rebalancing"
)

// RebalanceCycleJob sweeps every known user once. Users that never opted
// in or have no safe target are expected outcomes, not failures.
type RebalanceCycleJob struct {
	log         zerolog.Logger
	lockManager *locking.Manager
	ledger      *ledger.Service
	rebalancer  *rebalancing.Service
	guard       *auth.Guard
}

// RebalanceCycleConfig holds configuration for the rebalance cycle job
type RebalanceCycleConfig struct {
	Log         zerolog.Logger
	LockManager *locking.Manager
	Ledger      *ledger.Service
	Rebalancer  *rebalancing.Service
	Guard       *auth.Guard
}

// NewRebalanceCycleJob creates a new rebalance cycle job
func NewRebalanceCycleJob(cfg RebalanceCycleConfig) *RebalanceCycleJob {
	return &RebalanceCycleJob{
		log:         cfg.Log.With().Str("job", "rebalance_cycle").Logger(),
		lockManager: cfg.LockManager,
		ledger:      cfg.Ledger,
		rebalancer:  cfg.Rebalancer,
		guard:       cfg.Guard,
	}
}

// Name returns the job name
func (j *RebalanceCycleJob) Name() string {
	return "rebalance_cycle"
}

// Run triggers a rebalance for every known user
func (j *RebalanceCycleJob) Run() error {
	if err := j.lockManager.Acquire("job:rebalance_cycle"); err != nil {
		j.log.Warn().Err(err).Msg("Rebalance cycle already running")
		return nil
	}
	defer j.lockManager.Release("job:rebalance_cycle")

	users, err := j.ledger.Users()
	if err != nil {
		return err
	}

	start := time.Now()
	backend := j.guard.TrustedBackend()
	swept := 0

	for _, user := range users {
		err := j.rebalancer.TriggerRebalance(backend, user)
		switch {
		case err == nil:
			swept++
		case errors.Is(err, domain.ErrNotOptedIn), errors.Is(err, domain.ErrNoSafeTarget):
			j.log.Debug().Err(err).Str("user", string(user)).Msg("User skipped")
		default:
			j.log.Error().Err(err).Str("user", string(user)).Msg("Rebalance failed, continuing")
		}
	}

	j.log.Info().
		Int("users", len(users)).
		Int("swept", swept).
		Dur("duration", time.Since(start)).
		Msg("Rebalance cycle complete")
	return nil
}
