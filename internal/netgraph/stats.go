package netgraph

import "github.com/tariktoplu/Opti-LogistiX/internal/model"

// Stats summarizes the static network for display.
type Stats struct {
	Nodes         int     `json:"nodes"`
	Edges         int     `json:"edges"`
	TotalLengthKm float64 `json:"total_length_km"`
	Bridges       int     `json:"bridges"`
	AvgDegree     float64 `json:"avg_degree"`
}

// Stats folds the static network into summary counters.
func (g *Graph) Stats() Stats {
	st := Stats{Nodes: len(g.nodes), Edges: len(g.ordered)}
	for _, e := range g.ordered {
		st.TotalLengthKm += e.LengthM / 1000.0
		if e.Bridge {
			st.Bridges++
		}
	}
	if st.Nodes > 0 {
		st.AvgDegree = float64(st.Edges) / float64(st.Nodes)
	}
	return st
}

// Centroid returns the mean node coordinate, used as a default epicenter.
func (g *Graph) Centroid() model.LatLon {
	var c model.LatLon
	if len(g.nodes) == 0 {
		return c
	}
	for _, n := range g.nodes {
		c.Lat += n.Loc.Lat
		c.Lon += n.Loc.Lon
	}
	c.Lat /= float64(len(g.nodes))
	c.Lon /= float64(len(g.nodes))
	return c
}

// DamageStats buckets the current snapshot's scores for display.
type DamageStats struct {
	ScenarioID string  `json:"scenario_id,omitempty"`
	TotalEdges int     `json:"total_edges"`
	Safe       int     `json:"safe"`
	Moderate   int     `json:"moderate"`
	Critical   int     `json:"critical"`
	MeanScore  float64 `json:"avg_damage"`
	MaxScore   float64 `json:"max_damage"`
}

// DamageStats counts edges per damage bucket: safe below moderateAt, critical
// at or above criticalAt, moderate in between.
func (g *Graph) DamageStats(moderateAt, criticalAt float64) DamageStats {
	snap := g.Damage()
	st := DamageStats{ScenarioID: snap.ScenarioID, TotalEdges: len(g.ordered)}

	var sum float64
	for _, e := range g.ordered {
		score := snap.Score(e)
		sum += score
		if score > st.MaxScore {
			st.MaxScore = score
		}
		switch {
		case score >= criticalAt:
			st.Critical++
		case score >= moderateAt:
			st.Moderate++
		default:
			st.Safe++
		}
	}
	if st.TotalEdges > 0 {
		st.MeanScore = sum / float64(st.TotalEdges)
	}
	return st
}
