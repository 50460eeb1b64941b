// Package recommend derives ranked operator suggestions from the active
// scenario, watched routes and allocation state. It never mutates any of its
// inputs; replanning happens upstream and only the resulting plans are read.
package recommend

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tariktoplu/Opti-LogistiX/internal/allocator"
	"github.com/tariktoplu/Opti-LogistiX/internal/model"
	"github.com/tariktoplu/Opti-LogistiX/internal/netgraph"
	"github.com/tariktoplu/Opti-LogistiX/internal/router"
	"github.com/tariktoplu/Opti-LogistiX/internal/scenario"
)

// minSavingMinutes is how much a perturbed replan must save before it is
// worth surfacing to the operator.
const minSavingMinutes = 1.0

// bigSavingMinutes promotes a replan suggestion to high priority.
const bigSavingMinutes = 5.0

// zoneWarnScore is the damage score above which a zone gets its own warning.
const zoneWarnScore = 0.7

// WatchedRoute is a route an operator is actively following.
type WatchedRoute struct {
	ID    string        `json:"route_id"`
	Route *router.Route `json:"route"`
}

// Input gathers everything one evaluation reads. Scenario, Plan and Replan
// may be nil; the corresponding rules then stay silent.
type Input struct {
	Scenario *scenario.Scenario
	Graph    *netgraph.Graph
	Watched  []WatchedRoute
	// Plan is the standing allocation; Replan the same demand solved with
	// perturbed zone priorities.
	Plan   *allocator.Plan
	Replan *allocator.Plan
	// Idle lists currently unassigned resources; Zones the active demand.
	Idle  []model.Resource
	Zones []model.Zone
}

// Engine turns an Input into a ranked recommendation list.
type Engine struct {
	log *zap.Logger
}

func New() *Engine {
	return &Engine{log: zap.L().With(zap.String("component", "recommend"))}
}

// Build evaluates every rule and returns recommendations ordered by priority,
// then by time saved.
func (e *Engine) Build(in Input) []model.Recommendation {
	var out []model.Recommendation
	out = append(out, e.watchedRouteWarnings(in)...)
	out = append(out, e.replanSuggestions(in)...)
	out = append(out, e.zoneWarnings(in)...)
	out = append(out, e.idleResourceSuggestions(in)...)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority.Rank() != out[j].Priority.Rank() {
			return out[i].Priority.Rank() > out[j].Priority.Rank()
		}
		return out[i].SavedMinutes > out[j].SavedMinutes
	})

	e.log.Debug("recommendations built", zap.Int("count", len(out)))
	return out
}

// watchedRouteWarnings flags watched routes that now cross a blocking edge.
func (e *Engine) watchedRouteWarnings(in Input) []model.Recommendation {
	if in.Graph == nil {
		return nil
	}
	snap := in.Graph.Damage()
	if snap == nil {
		return nil
	}

	var out []model.Recommendation
	for _, w := range in.Watched {
		if w.Route == nil {
			continue
		}
		for _, edgeID := range w.Route.EdgeIDs {
			edge := in.Graph.Edge(edgeID)
			if edge == nil || !snap.Blocked(edge) {
				continue
			}
			out = append(out, model.Recommendation{
				ID:       newID(),
				Kind:     model.RecommendWarning,
				Priority: model.PriorityHigh,
				Message: fmt.Sprintf(
					"watched route %s crosses critically damaged road %d; recompute before dispatch",
					w.ID, edgeID),
				EdgeID: edgeID,
			})
			break
		}
	}
	return out
}

// replanSuggestions compares each zone's standing assignment against the
// perturbed replan and surfaces meaningful savings.
func (e *Engine) replanSuggestions(in Input) []model.Recommendation {
	if in.Plan == nil || in.Replan == nil {
		return nil
	}
	current := make(map[string]allocator.Assignment, len(in.Plan.Assignments))
	for _, a := range in.Plan.Assignments {
		current[a.ZoneID] = a
	}

	var out []model.Recommendation
	for _, alt := range in.Replan.Assignments {
		cur, ok := current[alt.ZoneID]
		if !ok {
			continue
		}
		saved := cur.Minutes - alt.Minutes
		if saved < minSavingMinutes {
			continue
		}
		priority := model.PriorityMedium
		if saved >= bigSavingMinutes {
			priority = model.PriorityHigh
		}
		rec := model.Recommendation{
			ID:           newID(),
			Priority:     priority,
			ZoneID:       alt.ZoneID,
			ResourceID:   alt.ResourceID,
			SavedMinutes: saved,
		}
		if alt.ResourceID == cur.ResourceID {
			rec.Kind = model.RecommendReroute
			rec.Message = fmt.Sprintf(
				"rerouting %s to zone %s saves %.1f min", alt.ResourceID, alt.ZoneID, saved)
		} else {
			rec.Kind = model.RecommendAllocation
			rec.Message = fmt.Sprintf(
				"reassigning zone %s from %s to %s saves %.1f min",
				alt.ZoneID, cur.ResourceID, alt.ResourceID, saved)
		}
		out = append(out, rec)
	}
	return out
}

// zoneWarnings raises a warning for every heavily damaged scenario zone.
func (e *Engine) zoneWarnings(in Input) []model.Recommendation {
	if in.Scenario == nil {
		return nil
	}
	var out []model.Recommendation
	for _, z := range in.Scenario.Zones {
		if z.Score <= zoneWarnScore {
			continue
		}
		priority := model.PriorityMedium
		if z.Level == model.SeverityCritical {
			priority = model.PriorityHigh
		}
		out = append(out, model.Recommendation{
			ID:       newID(),
			Kind:     model.RecommendWarning,
			Priority: priority,
			ZoneID:   z.ID,
			Message: fmt.Sprintf(
				"zone %s shows %s damage (score %.2f); expect road closures within %.0f m of its center",
				z.ID, z.Level, z.Score, z.RadiusM),
		})
	}
	return out
}

// idleResourceSuggestions points idle compatible vehicles at unserved zones.
func (e *Engine) idleResourceSuggestions(in Input) []model.Recommendation {
	if in.Plan == nil || len(in.Plan.Unmatched) == 0 || len(in.Idle) == 0 {
		return nil
	}
	zones := make(map[string]model.Zone, len(in.Zones))
	for _, z := range in.Zones {
		zones[z.ID] = z
	}

	var out []model.Recommendation
	for _, zoneID := range in.Plan.Unmatched {
		zone, ok := zones[zoneID]
		if !ok {
			continue
		}
		for _, res := range in.Idle {
			if res.Status != model.StatusAvailable {
				continue
			}
			serves := zone.Need == ""
			if !serves {
				serves, _ = res.Type.Serves(zone.Need)
			}
			if !serves {
				continue
			}
			out = append(out, model.Recommendation{
				ID:         newID(),
				Kind:       model.RecommendAllocation,
				Priority:   model.PriorityMedium,
				ZoneID:     zoneID,
				ResourceID: res.ID,
				Message: fmt.Sprintf(
					"%s %s is idle and could serve unserved zone %s",
					res.Type, res.ID, zoneID),
			})
			break
		}
	}
	return out
}

func newID() string {
	return "REC-" + uuid.NewString()[:8]
}
