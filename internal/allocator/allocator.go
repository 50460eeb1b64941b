package allocator

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tariktoplu/Opti-LogistiX/internal/config"
	"github.com/tariktoplu/Opti-LogistiX/internal/model"
	"github.com/tariktoplu/Opti-LogistiX/internal/netgraph"
	"github.com/tariktoplu/Opti-LogistiX/internal/router"
)

// Assignment pairs one resource with one zone, carrying the route the vehicle
// would drive.
type Assignment struct {
	ResourceID   string        `json:"resource_id"`
	ResourceType string        `json:"resource_type"`
	ZoneID       string        `json:"zone_id"`
	Route        *router.Route `json:"route"`
	Minutes      float64       `json:"estimated_minutes"`
	ExactMatch   bool          `json:"exact_match"`
}

// Plan is the outcome of one allocation round. Exhausted marks a round that
// ran out of compatible resources before every zone was served; that is a
// plan condition, not an error.
type Plan struct {
	Assignments []Assignment `json:"assignments"`
	Unmatched   []string     `json:"unmatched_zones,omitempty"`
	Exhausted   bool         `json:"exhausted"`
}

// Allocator greedily assigns the fleet to demand zones, most urgent first.
type Allocator struct {
	cfg config.AllocatorConfig
	rt  *router.Router
	log *zap.Logger
}

func New(cfg config.AllocatorConfig, rt *router.Router) *Allocator {
	return &Allocator{
		cfg: cfg,
		rt:  rt,
		log: zap.L().With(zap.String("component", "allocator")),
	}
}

// probe is one candidate evaluation: how long the resource would take to
// reach the zone.
type probe struct {
	res     model.Resource
	route   *router.Route
	minutes float64
	exact   bool
}

// Allocate serves zones in descending urgency. For each zone every
// still-available compatible resource is probed in parallel for travel cost,
// the cheapest claims the zone, and cost ties fall to exact capability
// matches, then resource ID. Zones that no resource can reach or serve are
// reported unmatched.
func (a *Allocator) Allocate(ctx context.Context, g *netgraph.Graph, zones []model.Zone, fleet *Fleet) (*Plan, error) {
	ordered := make([]model.Zone, len(zones))
	copy(ordered, zones)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Urgency != ordered[j].Urgency {
			return ordered[i].Urgency > ordered[j].Urgency
		}
		return ordered[i].ID < ordered[j].ID
	})

	plan := &Plan{}
	for _, zone := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		assignment, ok, err := a.serveZone(ctx, g, zone, fleet)
		if err != nil {
			return nil, err
		}
		if !ok {
			plan.Unmatched = append(plan.Unmatched, zone.ID)
			continue
		}
		plan.Assignments = append(plan.Assignments, assignment)
	}
	plan.Exhausted = len(plan.Unmatched) > 0

	a.log.Info("allocation round complete",
		zap.Int("zones", len(zones)),
		zap.Int("assigned", len(plan.Assignments)),
		zap.Int("unmatched", len(plan.Unmatched)))
	return plan, nil
}

func (a *Allocator) serveZone(ctx context.Context, g *netgraph.Graph, zone model.Zone, fleet *Fleet) (Assignment, bool, error) {
	target, err := a.rt.Snap(g, zone.Center)
	if err != nil {
		a.log.Warn("zone center snaps to no node", zap.String("zone", zone.ID))
		return Assignment{}, false, nil
	}

	var candidates []model.Resource
	var exactness []bool
	for _, res := range fleet.Available() {
		serves, exact := compatible(res.Type, zone.Need)
		if !serves {
			continue
		}
		candidates = append(candidates, res)
		exactness = append(exactness, exact)
	}
	if len(candidates) == 0 {
		return Assignment{}, false, nil
	}

	// Each goroutine writes its own slot, so no lock is needed around probes.
	probes := make([]*probe, len(candidates))
	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(a.cfg.MaxParallelProbes)
	for i, res := range candidates {
		grp.Go(func() error {
			route, err := a.rt.BetweenNodes(grpCtx, g, res.NodeID, target.ID, res.Type, zone.Urgency)
			if err != nil {
				// Unreachable candidates just drop out of the running.
				a.log.Debug("probe failed",
					zap.String("resource", res.ID), zap.String("zone", zone.ID), zap.Error(err))
				return nil
			}
			probes[i] = &probe{res: res, route: route, minutes: route.Minutes, exact: exactness[i]}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return Assignment{}, false, err
	}

	reachable := probes[:0]
	for _, p := range probes {
		if p != nil {
			reachable = append(reachable, p)
		}
	}
	sort.Slice(reachable, func(i, j int) bool {
		pi, pj := reachable[i], reachable[j]
		if pi.minutes != pj.minutes {
			return pi.minutes < pj.minutes
		}
		if pi.exact != pj.exact {
			return pi.exact
		}
		return pi.res.ID < pj.res.ID
	})

	// The cheapest probe may lose a concurrent claim race; fall through to
	// the next candidate.
	for _, p := range reachable {
		if !fleet.Claim(p.res.ID, zone.ID) {
			continue
		}
		a.log.Info("resource assigned",
			zap.String("resource", p.res.ID),
			zap.String("zone", zone.ID),
			zap.Float64("minutes", p.minutes))
		return Assignment{
			ResourceID:   p.res.ID,
			ResourceType: string(p.res.Type),
			ZoneID:       zone.ID,
			Route:        p.route,
			Minutes:      p.minutes,
			ExactMatch:   p.exact,
		}, true, nil
	}
	return Assignment{}, false, nil
}

// compatible applies the capability table; a zone without a declared need
// accepts any vehicle, with no exact-match preference.
func compatible(t model.ResourceType, need model.NeedKind) (serves, exact bool) {
	if need == "" {
		return true, false
	}
	return t.Serves(need)
}
