package rebalancing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restakelabs/risk-oracle/internal/auth"
	"github.com/restakelabs/risk-oracle/internal/database"
	"github.com/restakelabs/risk-oracle/internal/domain"
	"github.com/restakelabs/risk-oracle/internal/events"
	"github.com/restakelabs/risk-oracle/internal/locking"
	"github.com/restakelabs/risk-oracle/internal/modules/ledger"
	"github.com/restakelabs/risk-oracle/internal/modules/preferences"
	"github.com/restakelabs/risk-oracle/internal/modules/registry"
	"github.com/restakelabs/risk-oracle/pkg/logger"
)

const (
	owner   = domain.Principal("deployer")
	backend = domain.Principal("trusted-backend")
	alice   = domain.Principal("alice")
	bob     = domain.Principal("bob")
)

type stack struct {
	registry *registry.Service
	prefs    *preferences.Service
	ledger   *ledger.Service
	engine   *Service
}

func newTestStack(t *testing.T) *stack {
	t.Helper()

	log := logger.New(logger.Config{Level: "error"})
	db, err := database.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	guard := auth.NewGuard(owner, backend)
	ev := events.NewManager(log)
	locks := locking.NewManager(log)

	reg := registry.NewService(registry.NewRepository(db.Conn(), log), guard, ev, log)
	prefs := preferences.NewService(preferences.NewRepository(db.Conn(), log), ev, log)
	led := ledger.NewService(ledger.NewRepository(db.Conn(), log), reg, ev, log)
	engine := NewService(db, prefs, guard, locks, ev, log)

	return &stack{registry: reg, prefs: prefs, ledger: led, engine: engine}
}

func (s *stack) mustBalance(t *testing.T, user domain.Principal, avs string) int64 {
	t.Helper()
	balance, err := s.ledger.BalanceOf(user, avs)
	require.NoError(t, err)
	return balance
}

func (s *stack) totalBalance(t *testing.T, user domain.Principal) int64 {
	t.Helper()
	balances, err := s.ledger.Balances(user)
	require.NoError(t, err)
	var total int64
	for _, b := range balances {
		total += b.Amount
	}
	return total
}

func TestTriggerRebalance_SweepsRiskyIntoSafe(t *testing.T) {
	s := newTestStack(t)
	require.NoError(t, s.registry.Register(owner, "SafeAVS", 30))
	require.NoError(t, s.registry.Register(owner, "RiskyAVS", 70))
	require.NoError(t, s.prefs.Set(alice, 50))
	require.NoError(t, s.ledger.Deposit(alice, "RiskyAVS", 1))

	require.NoError(t, s.engine.TriggerRebalance(backend, alice))

	assert.Equal(t, int64(1), s.mustBalance(t, alice, "SafeAVS"))
	assert.Zero(t, s.mustBalance(t, alice, "RiskyAVS"))
}

func TestTriggerRebalance_Unauthorized(t *testing.T) {
	s := newTestStack(t)
	require.NoError(t, s.prefs.Set(alice, 50))

	assert.ErrorIs(t, s.engine.TriggerRebalance(alice, alice), domain.ErrUnauthorized)
	assert.ErrorIs(t, s.engine.TriggerRebalance(owner, alice), domain.ErrUnauthorized)
	assert.ErrorIs(t, s.engine.TriggerRebalance("", alice), domain.ErrUnauthorized)
}

func TestTriggerRebalance_NotOptedIn(t *testing.T) {
	s := newTestStack(t)
	require.NoError(t, s.registry.Register(owner, "SafeAVS", 30))

	err := s.engine.TriggerRebalance(backend, "never-set-prefs")
	assert.ErrorIs(t, err, domain.ErrNotOptedIn)
}

func TestTriggerRebalance_NoSafeTarget(t *testing.T) {
	s := newTestStack(t)
	require.NoError(t, s.registry.Register(owner, "RiskyAVS", 70))
	require.NoError(t, s.registry.Register(owner, "RiskierAVS", 90))
	require.NoError(t, s.prefs.Set(alice, 50))
	require.NoError(t, s.ledger.Deposit(alice, "RiskyAVS", 100))

	err := s.engine.TriggerRebalance(backend, alice)
	assert.ErrorIs(t, err, domain.ErrNoSafeTarget)

	// Balances untouched on failure
	assert.Equal(t, int64(100), s.mustBalance(t, alice, "RiskyAVS"))
}

func TestTriggerRebalance_Conservation(t *testing.T) {
	s := newTestStack(t)
	require.NoError(t, s.registry.Register(owner, "SafeAVS", 10))
	require.NoError(t, s.registry.Register(owner, "MidAVS", 50))
	require.NoError(t, s.registry.Register(owner, "RiskyAVS", 70))
	require.NoError(t, s.registry.Register(owner, "WildAVS", 95))
	require.NoError(t, s.prefs.Set(alice, 50))
	require.NoError(t, s.ledger.Deposit(alice, "SafeAVS", 100))
	require.NoError(t, s.ledger.Deposit(alice, "MidAVS", 200))
	require.NoError(t, s.ledger.Deposit(alice, "RiskyAVS", 300))
	require.NoError(t, s.ledger.Deposit(alice, "WildAVS", 400))

	before := s.totalBalance(t, alice)
	require.NoError(t, s.engine.TriggerRebalance(backend, alice))
	after := s.totalBalance(t, alice)

	assert.Equal(t, before, after, "sweep must conserve the user's total")
	assert.Equal(t, int64(800), s.mustBalance(t, alice, "SafeAVS"))
	assert.Equal(t, int64(200), s.mustBalance(t, alice, "MidAVS"), "at-threshold venue stays put")
	assert.Zero(t, s.mustBalance(t, alice, "RiskyAVS"))
	assert.Zero(t, s.mustBalance(t, alice, "WildAVS"))
}

func TestTriggerRebalance_Idempotent(t *testing.T) {
	s := newTestStack(t)
	require.NoError(t, s.registry.Register(owner, "SafeAVS", 30))
	require.NoError(t, s.registry.Register(owner, "RiskyAVS", 70))
	require.NoError(t, s.prefs.Set(alice, 50))
	require.NoError(t, s.ledger.Deposit(alice, "RiskyAVS", 500))

	require.NoError(t, s.engine.TriggerRebalance(backend, alice))
	safeAfterFirst := s.mustBalance(t, alice, "SafeAVS")

	require.NoError(t, s.engine.TriggerRebalance(backend, alice))

	assert.Equal(t, safeAfterFirst, s.mustBalance(t, alice, "SafeAVS"))
	assert.Zero(t, s.mustBalance(t, alice, "RiskyAVS"))
}

func TestTriggerRebalance_ThresholdBoundary(t *testing.T) {
	s := newTestStack(t)
	require.NoError(t, s.registry.Register(owner, "SafeAVS", 10))
	require.NoError(t, s.registry.Register(owner, "AtThreshold", 50))
	require.NoError(t, s.registry.Register(owner, "JustOver", 51))
	require.NoError(t, s.prefs.Set(alice, 50))
	require.NoError(t, s.ledger.Deposit(alice, "AtThreshold", 100))
	require.NoError(t, s.ledger.Deposit(alice, "JustOver", 100))

	require.NoError(t, s.engine.TriggerRebalance(backend, alice))

	assert.Equal(t, int64(100), s.mustBalance(t, alice, "AtThreshold"), "score == threshold is safe")
	assert.Zero(t, s.mustBalance(t, alice, "JustOver"), "score == threshold+1 is swept")
	assert.Equal(t, int64(100), s.mustBalance(t, alice, "SafeAVS"))
}

func TestTriggerRebalance_TieBreakByRegistrationOrder(t *testing.T) {
	s := newTestStack(t)
	require.NoError(t, s.registry.Register(owner, "FirstLow", 20))
	require.NoError(t, s.registry.Register(owner, "SecondLow", 20))
	require.NoError(t, s.registry.Register(owner, "RiskyAVS", 80))
	require.NoError(t, s.prefs.Set(alice, 50))
	require.NoError(t, s.ledger.Deposit(alice, "RiskyAVS", 100))

	require.NoError(t, s.engine.TriggerRebalance(backend, alice))

	assert.Equal(t, int64(100), s.mustBalance(t, alice, "FirstLow"), "earliest registration wins the tie")
	assert.Zero(t, s.mustBalance(t, alice, "SecondLow"))
}

func TestTriggerRebalance_TargetAccumulatesExistingBalance(t *testing.T) {
	s := newTestStack(t)
	require.NoError(t, s.registry.Register(owner, "SafeAVS", 30))
	require.NoError(t, s.registry.Register(owner, "RiskyAVS", 70))
	require.NoError(t, s.prefs.Set(alice, 50))
	require.NoError(t, s.ledger.Deposit(alice, "SafeAVS", 25))
	require.NoError(t, s.ledger.Deposit(alice, "RiskyAVS", 75))

	require.NoError(t, s.engine.TriggerRebalance(backend, alice))

	assert.Equal(t, int64(100), s.mustBalance(t, alice, "SafeAVS"))
	assert.Zero(t, s.mustBalance(t, alice, "RiskyAVS"))
}

func TestTriggerRebalance_UsersAreIndependent(t *testing.T) {
	s := newTestStack(t)
	require.NoError(t, s.registry.Register(owner, "SafeAVS", 30))
	require.NoError(t, s.registry.Register(owner, "RiskyAVS", 70))
	require.NoError(t, s.prefs.Set(alice, 50))
	require.NoError(t, s.ledger.Deposit(alice, "RiskyAVS", 10))
	require.NoError(t, s.ledger.Deposit(bob, "RiskyAVS", 10))

	require.NoError(t, s.engine.TriggerRebalance(backend, alice))

	assert.Zero(t, s.mustBalance(t, alice, "RiskyAVS"))
	assert.Equal(t, int64(10), s.mustBalance(t, bob, "RiskyAVS"), "other users' balances untouched")
}

func TestTriggerRebalance_EmptyUserRejected(t *testing.T) {
	s := newTestStack(t)
	assert.ErrorIs(t, s.engine.TriggerRebalance(backend, ""), domain.ErrInvalidInput)
}
