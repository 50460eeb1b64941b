package allocator

import (
	"sort"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/tariktoplu/Opti-LogistiX/internal/model"
	"github.com/tariktoplu/Opti-LogistiX/internal/netgraph"
)

// Fleet is the in-memory resource registry. Listing takes a read lock;
// claiming a resource is a compare-and-set on its status so two concurrent
// allocations can never hand out the same vehicle.
type Fleet struct {
	mu      sync.RWMutex
	entries map[string]*model.Resource
	order   []string
}

func NewFleet() *Fleet {
	return &Fleet{entries: make(map[string]*model.Resource)}
}

// Add registers a resource. Duplicate IDs are rejected.
func (f *Fleet) Add(res model.Resource) error {
	if res.ID == "" {
		return eris.New("allocator: resource id is empty")
	}
	if !res.Type.Known() {
		return eris.Errorf("allocator: unknown resource type %q", res.Type)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, dup := f.entries[res.ID]; dup {
		return eris.Errorf("allocator: duplicate resource id %q", res.ID)
	}
	if res.Status == "" {
		res.Status = model.StatusAvailable
	}
	f.entries[res.ID] = &res
	f.order = append(f.order, res.ID)
	return nil
}

// Get returns a copy of the resource.
func (f *Fleet) Get(id string) (model.Resource, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	res, ok := f.entries[id]
	if !ok {
		return model.Resource{}, false
	}
	return *res, true
}

// List returns copies of all resources in registration order.
func (f *Fleet) List() []model.Resource {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]model.Resource, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, *f.entries[id])
	}
	return out
}

// ListByType returns copies of all resources of the given type.
func (f *Fleet) ListByType(t model.ResourceType) []model.Resource {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []model.Resource
	for _, id := range f.order {
		if f.entries[id].Type == t {
			out = append(out, *f.entries[id])
		}
	}
	return out
}

// Available returns copies of every unassigned resource.
func (f *Fleet) Available() []model.Resource {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []model.Resource
	for _, id := range f.order {
		if f.entries[id].Status == model.StatusAvailable {
			out = append(out, *f.entries[id])
		}
	}
	return out
}

// Claim atomically moves a resource from available to assigned, recording the
// target zone. Returns false if the resource is unknown or already taken.
func (f *Fleet) Claim(id, zoneID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	res, ok := f.entries[id]
	if !ok || res.Status != model.StatusAvailable {
		return false
	}
	res.Status = model.StatusAssigned
	res.TargetZone = zoneID
	return true
}

// Release returns a claimed resource to the pool. Releasing an available
// resource is a no-op.
func (f *Fleet) Release(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	res, ok := f.entries[id]
	if !ok || res.Status != model.StatusAssigned {
		return false
	}
	res.Status = model.StatusAvailable
	res.TargetZone = ""
	return true
}

// Clone returns an independent copy of the fleet, resources and statuses
// included. Used for what-if replans that must not touch live state.
func (f *Fleet) Clone() *Fleet {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := &Fleet{
		entries: make(map[string]*model.Resource, len(f.entries)),
		order:   append([]string(nil), f.order...),
	}
	for id, res := range f.entries {
		cp := *res
		out.entries[id] = &cp
	}
	return out
}

// ReleaseAll returns every resource to the pool.
func (f *Fleet) ReleaseAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, res := range f.entries {
		res.Status = model.StatusAvailable
		res.TargetZone = ""
	}
}

// demoFleet mirrors the demo deployment: three ambulances, two fire trucks,
// one rescue unit and one supply truck spread over the network.
var demoFleet = []struct {
	id  string
	typ model.ResourceType
}{
	{"AMB-1", model.ResourceAmbulance},
	{"AMB-2", model.ResourceAmbulance},
	{"AMB-3", model.ResourceAmbulance},
	{"FIRE-1", model.ResourceFireTruck},
	{"FIRE-2", model.ResourceFireTruck},
	{"RESCUE-1", model.ResourceRescue},
	{"SUPPLY-1", model.ResourceSupplyTruck},
}

// SeedDemo populates the fleet with the demo vehicles, placed on nodes spread
// evenly across the graph. Depot nodes are preferred as starting points.
func (f *Fleet) SeedDemo(g *netgraph.Graph) error {
	var nodes []*netgraph.Node
	g.Nodes(func(n *netgraph.Node) bool {
		nodes = append(nodes, n)
		return true
	})
	if len(nodes) == 0 {
		return eris.New("allocator: cannot seed fleet on an empty graph")
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Role != nodes[j].Role {
			return nodes[i].Role == model.RoleDepot
		}
		return nodes[i].ID < nodes[j].ID
	})

	stride := len(nodes) / len(demoFleet)
	if stride == 0 {
		stride = 1
	}
	for i, d := range demoFleet {
		n := nodes[(i*stride)%len(nodes)]
		err := f.Add(model.Resource{
			ID:       d.id,
			Type:     d.typ,
			NodeID:   n.ID,
			Location: n.Loc,
			Status:   model.StatusAvailable,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
