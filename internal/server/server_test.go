package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restakelabs/risk-oracle/internal/auth"
	oracleclient "github.com/restakelabs/risk-oracle/internal/clients/oracle"
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
	"github.com/restakelabs/risk-oracle/pkg/logger"
)

const (
	ownerKey   = "owner-key"
	backendKey = "backend-key"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	log := logger.New(logger.Config{Level: "error"})
	db, err := database.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	guard := auth.NewGuard("owner", "trusted-backend")
	ev := events.NewManager(log)
	locks := locking.NewManager(log)

	reg := registry.NewService(registry.NewRepository(db.Conn(), log), guard, ev, log)
	prefs := preferences.NewService(preferences.NewRepository(db.Conn(), log), ev, log)
	led := ledger.NewService(ledger.NewRepository(db.Conn(), log), reg, ev, log)
	orc := oracle.NewService(oracle.NewRepository(db.Conn(), log), oracleclient.NewClient(log), reg, guard, log)
	engine := rebalancing.NewService(db, prefs, guard, locks, ev, log)
	report := riskreport.NewService(led, reg, prefs, log)

	return New(Config{
		Port:    0,
		DevMode: true,
		Log:     log,
		Guard:   guard,
		Credentials: auth.Credentials{
			OwnerAPIKey:   ownerKey,
			BackendAPIKey: backendKey,
		},
		Registry:    registry.NewHandler(reg, log),
		Oracle:      oracle.NewHandler(orc, log),
		Preferences: preferences.NewHandler(prefs, log),
		Ledger:      ledger.NewHandler(led, log),
		Rebalancing: rebalancing.NewHandler(engine, log),
		RiskReport:  riskreport.NewHandler(report, log),
	})
}

func do(t *testing.T, srv *Server, method, path string, headers map[string]string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func asOwner() map[string]string   { return map[string]string{"X-API-Key": ownerKey} }
func asBackend() map[string]string { return map[string]string{"X-API-Key": backendKey} }
func asUser(id string) map[string]string {
	return map[string]string{"X-Caller-Id": id}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	rec := do(t, srv, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterAVS_OwnerOnly(t *testing.T) {
	srv := newTestServer(t)
	body := map[string]interface{}{"name": "SafeAVS", "base_risk_score": 30}

	rec := do(t, srv, http.MethodPost, "/api/avs", asUser("alice"), body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/avs", asOwner(), body)
	assert.Equal(t, http.StatusCreated, rec.Code)

	// Duplicate registration conflicts
	rec = do(t, srv, http.MethodPost, "/api/avs", asOwner(), body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetAVS_NotFound(t *testing.T) {
	srv := newTestServer(t)
	rec := do(t, srv, http.MethodGet, "/api/avs/NonExistentAVS", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEndToEndRebalanceFlow(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/avs", asOwner(),
		map[string]interface{}{"name": "SafeAVS", "base_risk_score": 30})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, srv, http.MethodPost, "/api/avs", asOwner(),
		map[string]interface{}{"name": "RiskyAVS", "base_risk_score": 70})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, srv, http.MethodPut, "/api/preferences", asUser("alice"),
		map[string]interface{}{"max_risk_score": 50})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/deposits", asUser("alice"),
		map[string]interface{}{"avs_name": "RiskyAVS", "amount": 1})
	require.Equal(t, http.StatusOK, rec.Code)

	// Only the trusted backend may trigger
	rec = do(t, srv, http.MethodPost, "/api/rebalance/alice", asUser("alice"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/rebalance/alice", asBackend(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var safe domain.Balance
	rec = do(t, srv, http.MethodGet, "/api/users/alice/balances/SafeAVS", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &safe))
	assert.Equal(t, int64(1), safe.Amount)

	var risky domain.Balance
	rec = do(t, srv, http.MethodGet, "/api/users/alice/balances/RiskyAVS", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &risky))
	assert.Zero(t, risky.Amount)
}

func TestRefresh_WithoutOracleIs503(t *testing.T) {
	srv := newTestServer(t)
	rec := do(t, srv, http.MethodPost, "/api/avs", asOwner(),
		map[string]interface{}{"name": "SafeAVS", "base_risk_score": 30})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/avs/SafeAVS/refresh", asBackend(), nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSetPreferences_Validation(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPut, "/api/preferences", asUser("alice"),
		map[string]interface{}{"max_risk_score": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPut, "/api/preferences", asUser("alice"),
		map[string]interface{}{"max_risk_score": 101})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotOptedInRebalanceIs409(t *testing.T) {
	srv := newTestServer(t)
	rec := do(t, srv, http.MethodPost, "/api/rebalance/stranger", asBackend(), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
