package preferences

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restakelabs/risk-oracle/internal/database"
	"github.com/restakelabs/risk-oracle/internal/domain"
	"github.com/restakelabs/risk-oracle/internal/events"
	"github.com/restakelabs/risk-oracle/pkg/logger"
)

const alice = domain.Principal("alice")

func newTestService(t *testing.T) *Service {
	t.Helper()

	log := logger.New(logger.Config{Level: "error"})
	db, err := database.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	return NewService(NewRepository(db.Conn(), log), events.NewManager(log), log)
}

func TestSet(t *testing.T) {
	svc := newTestService(t)

	require.NoError(t, svc.Set(alice, 50))

	pref, err := svc.Get(alice)
	require.NoError(t, err)
	assert.Equal(t, 50, pref.MaxRiskScore)
	assert.True(t, pref.AutoRebalance, "setter always opts the user in")
}

func TestSet_ThresholdBounds(t *testing.T) {
	tests := []struct {
		name      string
		threshold int
		wantErr   bool
	}{
		{"zero rejected", 0, true},
		{"one accepted", 1, false},
		{"hundred accepted", 100, false},
		{"over hundred rejected", 101, true},
		{"negative rejected", -5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t)
			err := svc.Set(alice, tt.threshold)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSet_ReplacesPriorValue(t *testing.T) {
	svc := newTestService(t)

	require.NoError(t, svc.Set(alice, 50))
	require.NoError(t, svc.Set(alice, 70))

	pref, err := svc.Get(alice)
	require.NoError(t, err)
	assert.Equal(t, 70, pref.MaxRiskScore)
	assert.True(t, pref.AutoRebalance)
}

func TestSet_AnonymousRejected(t *testing.T) {
	svc := newTestService(t)
	assert.ErrorIs(t, svc.Set("", 50), domain.ErrUnauthorized)
}

func TestGet_NeverSetDefaults(t *testing.T) {
	svc := newTestService(t)

	pref, err := svc.Get("stranger")
	require.NoError(t, err)
	assert.Equal(t, 0, pref.MaxRiskScore)
	assert.False(t, pref.AutoRebalance)
}
