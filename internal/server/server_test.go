package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tariktoplu/Opti-LogistiX/internal/config"
	"github.com/tariktoplu/Opti-LogistiX/internal/engine"
)

func testConfig() *config.Config {
	return &config.Config{
		Graph: config.GraphConfig{GridSize: 5},
		Scenario: config.ScenarioConfig{
			MinMagnitude:      4.0,
			MaxMagnitude:      9.0,
			BridgeFactor:      1.5,
			DecayKm:           2.0,
			DecayFloor:        0.05,
			DamagedMin:        0.3,
			DamagedMax:        1.0,
			BaselineMax:       0.2,
			CriticalThreshold: 0.8,
		},
		Router: config.RouterConfig{
			SlowdownFactor: 2.0,
			RiskPenalty:    10.0,
			MaxSnapMeters:  500,
			SearchTimeout:  2 * time.Second,
		},
		Allocator: config.AllocatorConfig{MaxParallelProbes: 4, ReplanPerturbation: 0.2},
	}
}

func newTestHandler(t *testing.T, cfg config.ServerConfig) http.Handler {
	t.Helper()
	eng, err := engine.New(testConfig(), nil)
	require.NoError(t, err)
	srv := New(cfg, eng)
	t.Cleanup(srv.Close)
	return srv.Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t, config.ServerConfig{})

	rec := doJSON(t, h, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 25, body["nodes"])
	assert.EqualValues(t, 80, body["edges"])
	assert.NotContains(t, body, "active_scenario")
}

func TestGraphEndpoints(t *testing.T) {
	h := newTestHandler(t, config.ServerConfig{})

	rec := doJSON(t, h, http.MethodGet, "/api/v1/graph/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 80, decode(t, rec)["edges"])

	rec = doJSON(t, h, http.MethodGet, "/api/v1/graph/nodes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 25, decode(t, rec)["count"])

	rec = doJSON(t, h, http.MethodGet, "/api/v1/graph/edges", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 80, decode(t, rec)["count"])
}

func TestGraphLoadRejectsEmptyDataset(t *testing.T) {
	h := newTestHandler(t, config.ServerConfig{})

	rec := doJSON(t, h, http.MethodPost, "/api/v1/graph/load", map[string]any{"nodes": []any{}, "edges": []any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGraphLoadRejectsDanglingEdge(t *testing.T) {
	h := newTestHandler(t, config.ServerConfig{})

	rec := doJSON(t, h, http.MethodPost, "/api/v1/graph/load", map[string]any{
		"nodes": []map[string]any{
			{"id": 1, "location": map[string]float64{"lat": 41.0, "lon": 29.0}},
		},
		"edges": []map[string]any{
			{"id": 1, "from": 1, "to": 99, "length_m": 100},
		},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "unknown node 99")
}

func TestScenarioLifecycle(t *testing.T) {
	h := newTestHandler(t, config.ServerConfig{})

	rec := doJSON(t, h, http.MethodGet, "/api/v1/damage-map", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/v1/scenarios/activate", map[string]any{
		"magnitude": 6.5,
		"seed":      42,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.NotEmpty(t, body["scenario_id"])
	assert.EqualValues(t, 6.5, body["magnitude"])

	rec = doJSON(t, h, http.MethodGet, "/api/v1/damage-map", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dm := decode(t, rec)
	assert.Equal(t, body["scenario_id"], dm["scenario_id"])
	assert.NotEmpty(t, dm["damage_zones"])

	rec = doJSON(t, h, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, body["scenario_id"], decode(t, rec)["active_scenario"])

	rec = doJSON(t, h, http.MethodDelete, "/api/v1/scenarios/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/damage-map", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScenarioValidation(t *testing.T) {
	h := newTestHandler(t, config.ServerConfig{})

	rec := doJSON(t, h, http.MethodPost, "/api/v1/scenarios/activate", map[string]any{"magnitude": 12.0})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scenarios/activate", bytes.NewBufferString("{not json"))
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusBadRequest, rec2.Code)
}

func TestScenarioPreset(t *testing.T) {
	h := newTestHandler(t, config.ServerConfig{})

	rec := doJSON(t, h, http.MethodPost, "/api/v1/scenarios/preset/severe", map[string]any{"seed": 7})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.EqualValues(t, 7.2, decode(t, rec)["magnitude"])

	rec = doJSON(t, h, http.MethodPost, "/api/v1/scenarios/preset/apocalypse", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestScenarioList(t *testing.T) {
	h := newTestHandler(t, config.ServerConfig{})

	rec := doJSON(t, h, http.MethodGet, "/api/v1/scenarios/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Len(t, body["presets"], 3)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/scenarios/?limit=nope", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoute(t *testing.T) {
	h := newTestHandler(t, config.ServerConfig{})

	rec := doJSON(t, h, http.MethodPost, "/api/v1/route", map[string]any{
		"start": map[string]float64{"lat": 41.00, "lon": 29.00},
		"end":   map[string]float64{"lat": 41.04, "lon": 29.04},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	route, ok := body["route"].(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, route["path"])
	assert.Greater(t, route["estimated_time"], 0.0)
	assert.NotEmpty(t, route["coordinates"])
	assert.Nil(t, body["alternative"])
}

func TestRouteValidation(t *testing.T) {
	h := newTestHandler(t, config.ServerConfig{})

	rec := doJSON(t, h, http.MethodPost, "/api/v1/route", map[string]any{
		"start":   map[string]float64{"lat": 41.00, "lon": 29.00},
		"end":     map[string]float64{"lat": 41.04, "lon": 29.04},
		"urgency": 3.0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/v1/route", map[string]any{
		"start":        map[string]float64{"lat": 41.00, "lon": 29.00},
		"end":          map[string]float64{"lat": 41.04, "lon": 29.04},
		"vehicle_type": "hovercraft",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/v1/route", map[string]any{
		"start": map[string]float64{"lat": 41.00, "lon": 29.00},
		"end":   map[string]float64{"lat": 10.00, "lon": 10.00},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRoutesCompare(t *testing.T) {
	h := newTestHandler(t, config.ServerConfig{})

	rec := doJSON(t, h, http.MethodGet,
		"/api/v1/routes/compare?start_lat=41.00&start_lon=29.00&end_lat=41.04&end_lon=29.04", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Contains(t, body, "optimal")
	assert.Contains(t, body, "standard")
	assert.Contains(t, body, "saved_minutes")

	rec = doJSON(t, h, http.MethodGet, "/api/v1/routes/compare?start_lat=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResources(t *testing.T) {
	h := newTestHandler(t, config.ServerConfig{})

	rec := doJSON(t, h, http.MethodGet, "/api/v1/resources/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 7, decode(t, rec)["count"])

	rec = doJSON(t, h, http.MethodGet, "/api/v1/resources/ambulance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, decode(t, rec)["count"])

	rec = doJSON(t, h, http.MethodGet, "/api/v1/resources/teleporter", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestResourceAssign(t *testing.T) {
	h := newTestHandler(t, config.ServerConfig{})

	rec := doJSON(t, h, http.MethodPost, "/api/v1/resources/AMB-1/assign", map[string]string{"zone_id": "Z1"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "assigned", body["status"])
	assert.Equal(t, "Z1", body["assigned_zone"])

	// Already assigned.
	rec = doJSON(t, h, http.MethodPost, "/api/v1/resources/AMB-1/assign", map[string]string{"zone_id": "Z2"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/v1/resources/AMB-2/assign", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAllocate(t *testing.T) {
	h := newTestHandler(t, config.ServerConfig{})

	rec := doJSON(t, h, http.MethodPost, "/api/v1/allocate", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/v1/allocate", map[string]any{
		"zones": []map[string]any{{
			"zone_id": "Z1",
			"center":  map[string]float64{"lat": 41.02, "lon": 29.02},
			"urgency": 0.9,
			"need":    "medical",
		}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assignments, ok := body["assignments"].([]any)
	require.True(t, ok)
	require.Len(t, assignments, 1)
	first := assignments[0].(map[string]any)
	assert.Equal(t, "Z1", first["zone_id"])

	rec = doJSON(t, h, http.MethodPost, "/api/v1/allocate", map[string]any{
		"zones": []map[string]any{{
			"zone_id": "Z2",
			"center":  map[string]float64{"lat": 41.02, "lon": 29.02},
			"urgency": 5.0,
		}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecommendationsEmptyState(t *testing.T) {
	h := newTestHandler(t, config.ServerConfig{})

	rec := doJSON(t, h, http.MethodGet, "/api/v1/recommendations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decode(t, rec)["count"])
}

func TestRateLimit(t *testing.T) {
	h := newTestHandler(t, config.ServerConfig{RateLimit: 1, RateBurst: 1})

	rec := doJSON(t, h, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	limited := false
	for i := 0; i < 5; i++ {
		rec = doJSON(t, h, http.MethodGet, "/api/v1/health", nil)
		if rec.Code == http.StatusServiceUnavailable {
			limited = true
			break
		}
	}
	assert.True(t, limited)
}

func TestRateLimiterStop(t *testing.T) {
	cl := newClientLimiters(10, 10)
	assert.True(t, cl.allow("192.0.2.1:1234"))

	done := make(chan struct{})
	go func() {
		cl.stop()
		cl.stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stop did not return")
	}

	select {
	case <-cl.done:
	default:
		t.Fatal("sweeper not signalled")
	}
}
