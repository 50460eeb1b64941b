package allocator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tariktoplu/Opti-LogistiX/internal/config"
	"github.com/tariktoplu/Opti-LogistiX/internal/model"
	"github.com/tariktoplu/Opti-LogistiX/internal/netgraph"
	"github.com/tariktoplu/Opti-LogistiX/internal/router"
)

func testAllocator() *Allocator {
	rt := router.New(config.RouterConfig{
		SlowdownFactor: 2.0,
		RiskPenalty:    10.0,
		MaxSnapMeters:  500,
		SearchTimeout:  2 * time.Second,
	})
	return New(config.AllocatorConfig{MaxParallelProbes: 4, ReplanPerturbation: 0.2}, rt)
}

func testGrid(t *testing.T) *netgraph.Graph {
	t.Helper()
	g, err := netgraph.New(netgraph.GridDataset(netgraph.GridOptions{
		Size: 5, EdgeLengthM: 100, SpeedKmh: 6,
	}))
	require.NoError(t, err)
	return g
}

func addResource(t *testing.T, f *Fleet, g *netgraph.Graph, id string, typ model.ResourceType, nodeID int64) {
	t.Helper()
	require.NoError(t, f.Add(model.Resource{
		ID: id, Type: typ, NodeID: nodeID, Location: g.Node(nodeID).Loc,
	}))
}

func zoneAt(g *netgraph.Graph, id string, nodeID int64, urgency float64, need model.NeedKind) model.Zone {
	return model.Zone{ID: id, Center: g.Node(nodeID).Loc, RadiusM: 500, Urgency: urgency, Need: need}
}

func TestAllocatePicksNearestResource(t *testing.T) {
	g := testGrid(t)
	f := NewFleet()
	addResource(t, f, g, "AMB-NEAR", model.ResourceAmbulance, 0)  // 4 edges away
	addResource(t, f, g, "AMB-FAR", model.ResourceAmbulance, 20) // 8 edges away

	plan, err := testAllocator().Allocate(context.Background(), g,
		[]model.Zone{zoneAt(g, "Z1", 4, 0.9, model.NeedMedical)}, f)
	require.NoError(t, err)

	require.Len(t, plan.Assignments, 1)
	a := plan.Assignments[0]
	assert.Equal(t, "AMB-NEAR", a.ResourceID)
	assert.Equal(t, "Z1", a.ZoneID)
	assert.InDelta(t, 4.0, a.Minutes, 1e-9)
	assert.True(t, a.ExactMatch)
	require.NotNil(t, a.Route)
	assert.Len(t, a.Route.EdgeIDs, 4)
	assert.False(t, plan.Exhausted)

	far, _ := f.Get("AMB-FAR")
	assert.Equal(t, model.StatusAvailable, far.Status)
}

func TestAllocateUrgencyOrdersZones(t *testing.T) {
	g := testGrid(t)
	f := NewFleet()
	addResource(t, f, g, "AMB-1", model.ResourceAmbulance, 12)

	plan, err := testAllocator().Allocate(context.Background(), g, []model.Zone{
		zoneAt(g, "LOW", 0, 0.2, model.NeedMedical),
		zoneAt(g, "HIGH", 24, 0.9, model.NeedMedical),
	}, f)
	require.NoError(t, err)

	require.Len(t, plan.Assignments, 1)
	assert.Equal(t, "HIGH", plan.Assignments[0].ZoneID)
	assert.Equal(t, []string{"LOW"}, plan.Unmatched)
	assert.True(t, plan.Exhausted)
}

func TestAllocateNeverDoubleAssigns(t *testing.T) {
	g := testGrid(t)
	f := NewFleet()
	addResource(t, f, g, "AMB-1", model.ResourceAmbulance, 0)
	addResource(t, f, g, "AMB-2", model.ResourceAmbulance, 24)

	zones := []model.Zone{
		zoneAt(g, "Z1", 2, 0.9, model.NeedMedical),
		zoneAt(g, "Z2", 22, 0.8, model.NeedMedical),
		zoneAt(g, "Z3", 12, 0.7, model.NeedMedical),
	}
	plan, err := testAllocator().Allocate(context.Background(), g, zones, f)
	require.NoError(t, err)

	assert.Len(t, plan.Assignments, 2)
	assert.NotEqual(t, plan.Assignments[0].ResourceID, plan.Assignments[1].ResourceID)
	assert.Equal(t, []string{"Z3"}, plan.Unmatched)
	assert.True(t, plan.Exhausted)
	assert.Empty(t, f.Available())
}

func TestAllocateExactMatchWinsCostTie(t *testing.T) {
	g := testGrid(t)
	f := NewFleet()
	// Same node, same travel time; the rescue unit serves medical only as a
	// fallback so the ambulance must win.
	addResource(t, f, g, "RESCUE-1", model.ResourceRescue, 0)
	addResource(t, f, g, "AMB-1", model.ResourceAmbulance, 0)

	plan, err := testAllocator().Allocate(context.Background(), g,
		[]model.Zone{zoneAt(g, "Z1", 4, 0.9, model.NeedMedical)}, f)
	require.NoError(t, err)

	require.Len(t, plan.Assignments, 1)
	assert.Equal(t, "AMB-1", plan.Assignments[0].ResourceID)
	assert.True(t, plan.Assignments[0].ExactMatch)
}

func TestAllocateRescueServesMedicalWhenAlone(t *testing.T) {
	g := testGrid(t)
	f := NewFleet()
	addResource(t, f, g, "RESCUE-1", model.ResourceRescue, 0)

	plan, err := testAllocator().Allocate(context.Background(), g,
		[]model.Zone{zoneAt(g, "Z1", 4, 0.9, model.NeedMedical)}, f)
	require.NoError(t, err)

	require.Len(t, plan.Assignments, 1)
	assert.Equal(t, "RESCUE-1", plan.Assignments[0].ResourceID)
	assert.False(t, plan.Assignments[0].ExactMatch)
}

func TestAllocateIncompatibleTypeUnmatched(t *testing.T) {
	g := testGrid(t)
	f := NewFleet()
	addResource(t, f, g, "AMB-1", model.ResourceAmbulance, 0)

	plan, err := testAllocator().Allocate(context.Background(), g,
		[]model.Zone{zoneAt(g, "Z1", 4, 0.9, model.NeedFire)}, f)
	require.NoError(t, err)

	assert.Empty(t, plan.Assignments)
	assert.Equal(t, []string{"Z1"}, plan.Unmatched)
}

func TestAllocateOpenNeedAcceptsAnyType(t *testing.T) {
	g := testGrid(t)
	f := NewFleet()
	addResource(t, f, g, "SUPPLY-1", model.ResourceSupplyTruck, 0)

	plan, err := testAllocator().Allocate(context.Background(), g,
		[]model.Zone{zoneAt(g, "Z1", 4, 0.5, "")}, f)
	require.NoError(t, err)

	require.Len(t, plan.Assignments, 1)
	assert.Equal(t, "SUPPLY-1", plan.Assignments[0].ResourceID)
	assert.False(t, plan.Assignments[0].ExactMatch)
}

func TestFleetClaimIsExclusive(t *testing.T) {
	f := NewFleet()
	require.NoError(t, f.Add(model.Resource{ID: "AMB-1", Type: model.ResourceAmbulance}))

	const racers = 32
	var wins int32
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if f.Claim("AMB-1", "Z1") {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
	res, _ := f.Get("AMB-1")
	assert.Equal(t, model.StatusAssigned, res.Status)
	assert.Equal(t, "Z1", res.TargetZone)

	assert.True(t, f.Release("AMB-1"))
	assert.False(t, f.Release("AMB-1"))
	res, _ = f.Get("AMB-1")
	assert.Equal(t, model.StatusAvailable, res.Status)
	assert.Empty(t, res.TargetZone)
}

func TestFleetAddValidation(t *testing.T) {
	f := NewFleet()
	assert.Error(t, f.Add(model.Resource{Type: model.ResourceAmbulance}))
	assert.Error(t, f.Add(model.Resource{ID: "X-1", Type: "hovercraft"}))
	require.NoError(t, f.Add(model.Resource{ID: "AMB-1", Type: model.ResourceAmbulance}))
	assert.Error(t, f.Add(model.Resource{ID: "AMB-1", Type: model.ResourceAmbulance}))
}

func TestSeedDemoFleet(t *testing.T) {
	g := testGrid(t)
	f := NewFleet()
	require.NoError(t, f.SeedDemo(g))

	all := f.List()
	require.Len(t, all, 7)

	byType := make(map[model.ResourceType]int)
	for _, res := range all {
		byType[res.Type]++
		assert.Equal(t, model.StatusAvailable, res.Status)
		assert.NotNil(t, g.Node(res.NodeID))
	}
	assert.Equal(t, 3, byType[model.ResourceAmbulance])
	assert.Equal(t, 2, byType[model.ResourceFireTruck])
	assert.Equal(t, 1, byType[model.ResourceRescue])
	assert.Equal(t, 1, byType[model.ResourceSupplyTruck])

	// First demo vehicle starts at the depot.
	amb, ok := f.Get("AMB-1")
	require.True(t, ok)
	assert.Equal(t, model.RoleDepot, g.Node(amb.NodeID).Role)
}
