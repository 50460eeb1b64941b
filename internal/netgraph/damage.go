package netgraph

// DamageSnapshot is an immutable view of per-edge damage, keyed by dense edge
// index. Route queries read a single snapshot for their whole run, so a
// scenario swap can never expose a half-updated damage map.
type DamageSnapshot struct {
	// ScenarioID names the scenario this snapshot came from; empty when clear.
	ScenarioID string

	scores  []float64
	blocked []bool
	// criticalCount is the number of blocked edges, kept for diagnostics.
	criticalCount int
}

func emptySnapshot(n int) *DamageSnapshot {
	return &DamageSnapshot{
		scores:  make([]float64, n),
		blocked: make([]bool, n),
	}
}

// NewDamageSnapshot builds a snapshot from a damage-score map. Edges absent
// from the map score exactly 0. Scores at or above criticalThreshold are
// marked blocking.
func NewDamageSnapshot(g *Graph, scenarioID string, scores map[int64]float64, criticalThreshold float64) *DamageSnapshot {
	snap := emptySnapshot(len(g.ordered))
	snap.ScenarioID = scenarioID
	for id, score := range scores {
		e := g.edges[id]
		if e == nil {
			continue
		}
		snap.scores[e.index] = score
		if score >= criticalThreshold {
			snap.blocked[e.index] = true
			snap.criticalCount++
		}
	}
	return snap
}

// Score returns the damage score of the edge in [0, 1].
func (s *DamageSnapshot) Score(e *Edge) float64 { return s.scores[e.index] }

// Blocked reports whether the edge is impassable under this snapshot.
func (s *DamageSnapshot) Blocked(e *Edge) bool { return s.blocked[e.index] }

// CriticalCount returns the number of impassable edges.
func (s *DamageSnapshot) CriticalCount() int { return s.criticalCount }

// Damage returns the current snapshot. Never nil.
func (g *Graph) Damage() *DamageSnapshot { return g.damage.Load() }

// SwapDamage atomically installs a snapshot.
func (g *Graph) SwapDamage(snap *DamageSnapshot) { g.damage.Store(snap) }

// ClearDamage atomically resets every edge's damage score to 0. Idempotent.
func (g *Graph) ClearDamage() { g.damage.Store(emptySnapshot(len(g.ordered))) }
