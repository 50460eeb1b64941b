package scenario

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/tariktoplu/Opti-LogistiX/internal/netgraph"
)

// Store holds the single active scenario for a graph and is the sole mutation
// point for edge damage. Activation and clearing install a whole damage
// snapshot in one atomic swap, so concurrent route queries see either the
// fully-old or fully-new damage map, never a mix. The store is explicit state
// passed into every consumer; there is no package-level singleton.
type Store struct {
	graph             *netgraph.Graph
	criticalThreshold float64

	// mu serializes writers only; readers go through the atomic pointer.
	mu      sync.Mutex
	current atomic.Pointer[Scenario]
}

// NewStore creates a store bound to a graph.
func NewStore(g *netgraph.Graph, criticalThreshold float64) *Store {
	return &Store{graph: g, criticalThreshold: criticalThreshold}
}

// Graph returns the graph this store mutates.
func (s *Store) Graph() *netgraph.Graph { return s.graph }

// CriticalThreshold returns the damage score at which edges become blocking.
func (s *Store) CriticalThreshold() float64 { return s.criticalThreshold }

// Current returns the active scenario, or nil when none is active.
func (s *Store) Current() *Scenario { return s.current.Load() }

// Activate makes sc the active scenario, superseding any previous one, and
// installs its damage scores on the graph as one snapshot swap.
func (s *Store) Activate(sc *Scenario) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := netgraph.NewDamageSnapshot(s.graph, sc.ID, sc.EdgeDamage, s.criticalThreshold)
	s.graph.SwapDamage(snap)
	s.current.Store(sc)

	zap.L().Info("scenario activated",
		zap.String("scenario", sc.ID),
		zap.Float64("magnitude", sc.Magnitude),
		zap.Int("critical_edges", snap.CriticalCount()),
	)
}

// Clear deactivates the scenario and resets every edge's damage score to
// exactly 0. Idempotent; safe to call with no active scenario.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.graph.ClearDamage()
	s.current.Store(nil)
}
