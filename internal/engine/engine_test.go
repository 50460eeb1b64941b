package engine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tariktoplu/Opti-LogistiX/internal/config"
	"github.com/tariktoplu/Opti-LogistiX/internal/model"
	"github.com/tariktoplu/Opti-LogistiX/internal/netgraph"
	"github.com/tariktoplu/Opti-LogistiX/internal/router"
	"github.com/tariktoplu/Opti-LogistiX/internal/scenario"
	"github.com/tariktoplu/Opti-LogistiX/internal/store"
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

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(testConfig(), nil)
	require.NoError(t, err)
	return e
}

func TestNewSeedsDemoWorld(t *testing.T) {
	e := newTestEngine(t)

	st := e.Stats()
	assert.Equal(t, 25, st.Nodes)
	assert.Equal(t, 80, st.Edges)
	assert.Len(t, e.Resources(), 7)
	assert.Nil(t, e.CurrentScenario())
	assert.Len(t, e.Presets(), 3)
}

func TestApplyAndClearScenario(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	sc, err := e.ApplyScenario(ctx, scenario.Params{Magnitude: 7.0, Seed: 42})
	require.NoError(t, err)
	assert.Equal(t, sc.ID, e.CurrentScenario().ID)

	dm, err := e.DamageMap()
	require.NoError(t, err)
	assert.Equal(t, sc.ID, dm.ScenarioID)
	assert.NotEmpty(t, dm.Edges)
	assert.Len(t, dm.Zones, 3)
	assert.Greater(t, dm.Stats.MeanScore, 0.0)

	e.ClearScenario()
	assert.Nil(t, e.CurrentScenario())
	_, err = e.DamageMap()
	assert.ErrorIs(t, err, ErrNoScenario)

	stats := e.Graph().DamageStats(0.3, 0.8)
	assert.Zero(t, stats.MeanScore)
}

func TestApplyPreset(t *testing.T) {
	e := newTestEngine(t)

	sc, err := e.ApplyPreset(context.Background(), "severe", 7)
	require.NoError(t, err)
	assert.Equal(t, 7.2, sc.Magnitude)
	assert.Contains(t, sc.ID, "PRESET-severe")

	_, err = e.ApplyPreset(context.Background(), "apocalyptic", 7)
	assert.ErrorIs(t, err, scenario.ErrInvalidParams)
}

func TestAllocateRequiresDemand(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Allocate(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoScenario)
}

func TestAllocateScenarioDemand(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.ApplyScenario(ctx, scenario.Params{Magnitude: 6.5, Seed: 42})
	require.NoError(t, err)

	plan, err := e.Allocate(ctx, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, plan.Assignments)
	assert.LessEqual(t, len(plan.Assignments), 3) // one per damage zone

	assigned := 0
	for _, r := range e.Resources() {
		if r.Status == model.StatusAssigned {
			assigned++
		}
	}
	assert.Equal(t, len(plan.Assignments), assigned)
}

func TestAllocateExplicitZones(t *testing.T) {
	e := newTestEngine(t)
	g := e.Graph()

	zones := []model.Zone{
		{ID: "Z1", Center: g.Node(4).Loc, RadiusM: 500, Urgency: 0.9, Need: model.NeedMedical},
	}
	plan, err := e.Allocate(context.Background(), zones)
	require.NoError(t, err)
	require.Len(t, plan.Assignments, 1)
	assert.Equal(t, "Z1", plan.Assignments[0].ZoneID)
}

func TestAssignResource(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	res, err := e.AssignResource(ctx, "AMB-1", "Z1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusAssigned, res.Status)
	assert.Equal(t, "Z1", res.TargetZone)

	_, err = e.AssignResource(ctx, "AMB-1", "Z2")
	assert.ErrorIs(t, err, ErrResourceNotFound)
	_, err = e.AssignResource(ctx, "GHOST-1", "Z1")
	assert.ErrorIs(t, err, ErrResourceNotFound)
}

func TestFindRouteFeedsWatchlist(t *testing.T) {
	e := newTestEngine(t)
	g := e.Graph()

	res, err := e.FindRoute(context.Background(), router.Request{
		Start: g.Node(0).Loc,
		End:   g.Node(24).Loc,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Route.EdgeIDs)

	e.mu.RLock()
	watched := len(e.watched)
	e.mu.RUnlock()
	assert.Equal(t, 1, watched)
}

func TestWatchlistIDsStayUniqueAfterTrim(t *testing.T) {
	e := newTestEngine(t)
	g := e.Graph()

	total := maxWatchedRoutes + 3
	for i := 0; i < total; i++ {
		_, err := e.FindRoute(context.Background(), router.Request{
			Start: g.Node(0).Loc,
			End:   g.Node(24).Loc,
		})
		require.NoError(t, err)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	require.Len(t, e.watched, maxWatchedRoutes)
	seen := make(map[string]bool, len(e.watched))
	for _, w := range e.watched {
		assert.False(t, seen[w.ID], "duplicate id %s", w.ID)
		seen[w.ID] = true
	}
	assert.Equal(t, routeID(int64(total)), e.watched[len(e.watched)-1].ID)
}

func TestRecommendationsAfterScenarioAndPlan(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.ApplyScenario(ctx, scenario.Params{Magnitude: 7.5, Seed: 42})
	require.NoError(t, err)
	_, err = e.Allocate(ctx, nil)
	require.NoError(t, err)

	recs, err := e.Recommendations(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, recs)

	// The epicentral critical zone always scores above the warning threshold.
	var zoneWarning bool
	for _, r := range recs {
		if r.Kind == model.RecommendWarning && r.ZoneID == "Z0-CRITICAL" {
			zoneWarning = true
		}
	}
	assert.True(t, zoneWarning)
}

func TestLoadDatasetReplacesWorld(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.ApplyScenario(ctx, scenario.Params{Magnitude: 6.5, Seed: 1})
	require.NoError(t, err)

	require.NoError(t, e.LoadDataset(ctx, netgraph.GridDataset(netgraph.GridOptions{Size: 3})))
	assert.Equal(t, 9, e.Stats().Nodes)
	assert.Nil(t, e.CurrentScenario())
	assert.Len(t, e.Resources(), 7)
}

func TestScenarioArchiveRoundTrip(t *testing.T) {
	archive, err := store.NewSQLite(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { archive.Close() })
	require.NoError(t, archive.Migrate(context.Background()))

	e, err := New(testConfig(), archive)
	require.NoError(t, err)
	ctx := context.Background()

	sc, err := e.ApplyScenario(ctx, scenario.Params{Magnitude: 7.0, Seed: 42})
	require.NoError(t, err)

	records, err := e.ArchivedScenarios(ctx, store.Filter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, sc.ID, records[0].ID)

	e.ClearScenario()
	require.Nil(t, e.CurrentScenario())

	restored, err := e.ReactivateArchived(ctx, sc.ID)
	require.NoError(t, err)
	assert.Equal(t, sc.ID, restored.ID)
	assert.Equal(t, sc.ID, e.CurrentScenario().ID)
	assert.Greater(t, e.Graph().DamageStats(0.3, 0.8).MeanScore, 0.0)
}
