package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/restakelabs/risk-oracle/internal/auth"
	oracleclient "github.com/restakelabs/risk-oracle/internal/clients/oracle"
	"github.com/restakelabs/risk-oracle/internal/config"
	"github.com/restakelabs/risk-oracle/internal/database"
	"github.com/restakelabs/risk-oracle/internal/domain"
	"github.com/restakelabs/risk-oracle/internal/events"
	"github.com/restakelabs/risk-oracle/internal/locking"
	"github.com/restakelabs/risk-oracle/internal/modules/ledger"
	"github.com/restakelabs/risk-oracle/internal/modules/oracle"
	"github.com/restakelabs/risk-oracle/internal/modules/preferences"
	"github.com/restakelabs/risk-oracle/internal/modules/rebalancing"
	"github.com/restakelabs/risk-oracle/internal/modules/registry"
	"github.com/restakelabs/risk-oracle/internal/modules/riskreport"
	"github.com/restakelabs/risk-oracle/internal/notify"
	"github.com/restakelabs/risk-oracle/internal/scheduler"
	"github.com/restakelabs/risk-oracle/internal/server"
	"github.com/restakelabs/risk-oracle/pkg/logger"
)

// The two privileged principals. Credentials from config map onto these;
// ordinary users self-identify.
const (
	ownerPrincipal   = domain.Principal("owner")
	backendPrincipal = domain.Principal("trusted-backend")
)

func main() {
	log := logger.New(logger.Config{
		Level:  "info",
		Pretty: true,
	})

	log.Info().Msg("Starting restake risk oracle")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log = logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	guard := auth.NewGuard(ownerPrincipal, backendPrincipal)
	locks := locking.NewManager(log)
	eventManager := events.NewManager(log)

	// Core services
	registrySvc := registry.NewService(registry.NewRepository(db.Conn(), log), guard, eventManager, log)
	prefsSvc := preferences.NewService(preferences.NewRepository(db.Conn(), log), eventManager, log)
	ledgerSvc := ledger.NewService(ledger.NewRepository(db.Conn(), log), registrySvc, eventManager, log)
	oracleSvc := oracle.NewService(oracle.NewRepository(db.Conn(), log), oracleclient.NewClient(log), registrySvc, guard, log)
	rebalanceSvc := rebalancing.NewService(db, prefsSvc, guard, locks, eventManager, log)
	reportSvc := riskreport.NewService(ledgerSvc, registrySvc, prefsSvc, log)

	if cfg.OracleURL != "" {
		if err := seedOracle(oracleSvc, guard, cfg.OracleURL); err != nil {
			log.Fatal().Err(err).Msg("Failed to seed oracle reference")
		}
	}

	if cfg.NotifyWebhookURL != "" {
		notify.NewDispatcher(cfg.NotifyWebhookURL, log).Attach(eventManager)
		log.Info().Msg("Notification dispatcher attached")
	}

	// Embedded trusted backend driver
	sched := scheduler.New(log)
	sched.Start()
	defer sched.Stop()

	if cfg.BackgroundJobsEnabled {
		if err := registerJobs(sched, cfg, log, locks, guard, registrySvc, oracleSvc, ledgerSvc, rebalanceSvc); err != nil {
			log.Fatal().Err(err).Msg("Failed to register jobs")
		}
	}

	srv := server.New(server.Config{
		Port:    cfg.Port,
		DevMode: cfg.DevMode,
		Log:     log,
		Guard:   guard,
		Credentials: auth.Credentials{
			OwnerAPIKey:   cfg.OwnerAPIKey,
			BackendAPIKey: cfg.BackendAPIKey,
		},
		Registry:    registry.NewHandler(registrySvc, log),
		Oracle:      oracle.NewHandler(oracleSvc, log),
		Preferences: preferences.NewHandler(prefsSvc, log),
		Ledger:      ledger.NewHandler(ledgerSvc, log),
		Rebalancing: rebalancing.NewHandler(rebalanceSvc, log),
		RiskReport:  riskreport.NewHandler(reportSvc, log),
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// seedOracle pre-sets the oracle reference from the environment; the owner
// can still replace it at runtime.
func seedOracle(oracleSvc *oracle.Service, guard *auth.Guard, url string) error {
	current, err := oracleSvc.OracleURL()
	if err != nil {
		return err
	}
	if current != "" {
		return nil // Runtime setting wins over the env default
	}
	return oracleSvc.SetOracle(guard.Owner(), url)
}

func registerJobs(
	sched *scheduler.Scheduler,
	cfg *config.Config,
	log zerolog.Logger,
	locks *locking.Manager,
	guard *auth.Guard,
	registrySvc *registry.Service,
	oracleSvc *oracle.Service,
	ledgerSvc *ledger.Service,
	rebalanceSvc *rebalancing.Service,
) error {
	refreshJob := scheduler.NewRiskRefreshJob(scheduler.RiskRefreshConfig{
		Log:         log,
		LockManager: locks,
		Registry:    registrySvc,
		Oracle:      oracleSvc,
		Guard:       guard,
	})
	if err := sched.AddJob(cfg.RiskRefreshSchedule, refreshJob); err != nil {
		return err
	}

	rebalanceJob := scheduler.NewRebalanceCycleJob(scheduler.RebalanceCycleConfig{
		Log:         log,
		LockManager: locks,
		Ledger:      ledgerSvc,
		Rebalancer:  rebalanceSvc,
		Guard:       guard,
	})
	return sched.AddJob(cfg.RebalanceCycleSchedule, rebalanceJob)
}
