package router

import (
	"container/heap"
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/tariktoplu/Opti-LogistiX/internal/config"
	"github.com/tariktoplu/Opti-LogistiX/internal/model"
	"github.com/tariktoplu/Opti-LogistiX/internal/netgraph"
)

// costEpsilon is the tolerance below which two path costs count as tied, at
// which point fewer edges and then lower risk decide.
const costEpsilon = 1e-9

// deadlineCheckInterval is how many queue pops pass between deadline checks.
const deadlineCheckInterval = 256

// Router computes shortest-risk-adjusted paths. Stateless; all mutable state
// is the graph's damage snapshot, read once per query.
type Router struct {
	cfg config.RouterConfig
}

// New builds a router with the given tuning.
func New(cfg config.RouterConfig) *Router {
	return &Router{cfg: cfg}
}

// Snap resolves a coordinate to the nearest graph node within the configured
// snap distance.
func (r *Router) Snap(g *netgraph.Graph, pt model.LatLon) (*netgraph.Node, error) {
	node, dist := g.NearestNode(pt)
	if node == nil || dist > r.cfg.MaxSnapMeters {
		return nil, eris.Wrapf(ErrNoNearbyNode,
			"router: nothing within %.0f m of (%.5f, %.5f)", r.cfg.MaxSnapMeters, pt.Lat, pt.Lon)
	}
	return node, nil
}

// FindRoute snaps both endpoints and runs the risk-weighted search against
// the current damage snapshot. The whole query reads one snapshot, so a
// concurrent scenario swap never yields a mixed view.
func (r *Router) FindRoute(ctx context.Context, g *netgraph.Graph, req Request) (*Result, error) {
	start, err := r.Snap(g, req.Start)
	if err != nil {
		return nil, err
	}
	end, err := r.Snap(g, req.End)
	if err != nil {
		return nil, err
	}

	snap := g.Damage()
	route, err := r.search(ctx, g, snap, start, end, req, r.riskPenalty(req.Urgency))
	if err != nil {
		return nil, err
	}
	route.Optimal = true

	res := &Result{Route: route}
	if req.WithAlternative {
		// Pure fastest path: risk penalty off, blocked edges still excluded.
		alt, altErr := r.search(ctx, g, snap, start, end, req, 0)
		if altErr == nil {
			res.Alternative = alt
		}
	}
	return res, nil
}

// BetweenNodes routes between two known nodes; used by the allocator for
// travel-cost probes.
func (r *Router) BetweenNodes(ctx context.Context, g *netgraph.Graph, fromID, toID int64, vehicle model.ResourceType, urgency float64) (*Route, error) {
	from := g.Node(fromID)
	to := g.Node(toID)
	if from == nil || to == nil {
		return nil, eris.Errorf("router: unknown node %d or %d", fromID, toID)
	}
	req := Request{Vehicle: vehicle, Urgency: urgency}
	return r.search(ctx, g, g.Damage(), from, to, req, r.riskPenalty(urgency))
}

// riskPenalty scales the configured penalty by urgency: a fully urgent
// vehicle accepts more risk in exchange for time.
func (r *Router) riskPenalty(urgency float64) float64 {
	return r.cfg.RiskPenalty * (1 - 0.5*model.Clamp01(urgency))
}

// edgeCost is the search weight in minutes: travel time inflated by damage,
// plus an additive risk penalty proportional to the damage score.
func (r *Router) edgeCost(e *netgraph.Edge, damage, speedCap, riskPenalty float64) float64 {
	return e.TravelMinutes(speedCap)*(1+damage*r.cfg.SlowdownFactor) + damage*riskPenalty
}

type searchState struct {
	cost float64
	hops int
	risk float64 // length-weighted damage sum, for tie-breaking
}

// better reports whether a beats b under the cost → hops → risk ordering.
func (a searchState) better(b searchState) bool {
	if a.cost < b.cost-costEpsilon {
		return true
	}
	if a.cost > b.cost+costEpsilon {
		return false
	}
	if a.hops != b.hops {
		return a.hops < b.hops
	}
	return a.risk < b.risk-costEpsilon
}

// search runs Dijkstra, or A* with an admissible straight-line heuristic when
// enabled, excluding blocked edges outright. Cycles are expected; a closed
// set guards against re-expansion.
func (r *Router) search(ctx context.Context, g *netgraph.Graph, snap *netgraph.DamageSnapshot, start, end *netgraph.Node, req Request, riskPenalty float64) (*Route, error) {
	if start.ID == end.ID {
		return r.zeroRoute(start), nil
	}

	speedCap := 0.0
	if req.Vehicle != "" {
		speedCap = req.Vehicle.SpeedKmh()
	}

	heuristic := func(*netgraph.Node) float64 { return 0 }
	if r.cfg.UseAStar {
		// Straight-line time at the fastest speed any edge could allow keeps
		// the heuristic admissible.
		bound := r.speedBound(g, speedCap)
		goal := end.Loc
		heuristic = func(n *netgraph.Node) float64 {
			return n.Loc.HaversineKm(goal) / bound * 60
		}
	}

	deadline := time.Now().Add(r.cfg.SearchTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	best := map[int64]searchState{start.ID: {}}
	cameFrom := make(map[int64]*netgraph.Edge)
	closed := make(map[int64]bool)

	pq := &queue{{node: start.ID, state: searchState{}, priority: heuristic(start)}}
	heap.Init(pq)

	var pops int
	for pq.Len() > 0 {
		pops++
		if pops%deadlineCheckInterval == 1 {
			if time.Now().After(deadline) || ctx.Err() != nil {
				return nil, &NotFoundError{Reason: fmt.Sprintf(
					"search aborted after %s exploring %d nodes", r.cfg.SearchTimeout, len(closed))}
			}
		}

		item := heap.Pop(pq).(*queueItem)
		if closed[item.node] {
			continue
		}
		closed[item.node] = true

		if item.node == end.ID {
			return r.buildRoute(g, snap, start, end, cameFrom, speedCap), nil
		}

		for _, arc := range g.Neighbors(item.node) {
			if snap.Blocked(arc.Edge) {
				continue
			}
			if closed[arc.To] {
				continue
			}
			damage := snap.Score(arc.Edge)
			tentative := searchState{
				cost: item.state.cost + r.edgeCost(arc.Edge, damage, speedCap, riskPenalty),
				hops: item.state.hops + 1,
				risk: item.state.risk + damage*arc.Edge.LengthM,
			}
			if old, seen := best[arc.To]; seen && !tentative.better(old) {
				continue
			}
			best[arc.To] = tentative
			cameFrom[arc.To] = arc.Edge
			heap.Push(pq, &queueItem{
				node:     arc.To,
				state:    tentative,
				priority: tentative.cost + heuristic(g.Node(arc.To)),
			})
		}
	}

	return nil, &NotFoundError{Reason: fmt.Sprintf(
		"target unreachable: %d critical blockages isolate destination", snap.CriticalCount())}
}

// speedBound returns the fastest effective speed possible anywhere on the
// network for the given vehicle cap.
func (r *Router) speedBound(g *netgraph.Graph, speedCap float64) float64 {
	bound := 0.0
	for _, e := range g.Edges() {
		if e.SpeedKmh > bound {
			bound = e.SpeedKmh
		}
	}
	if speedCap > 0 && speedCap < bound {
		bound = speedCap
	}
	if bound <= 0 {
		bound = 1
	}
	return bound
}

// zeroRoute is the start == end degenerate case.
func (r *Router) zeroRoute(n *netgraph.Node) *Route {
	return &Route{
		Nodes:    []int64{n.ID},
		Geometry: geom.NewLineStringFlat(geom.XY, []float64{n.Loc.Lon, n.Loc.Lat, n.Loc.Lon, n.Loc.Lat}),
	}
}

// buildRoute walks cameFrom backwards and computes the summary metrics.
func (r *Router) buildRoute(g *netgraph.Graph, snap *netgraph.DamageSnapshot, start, end *netgraph.Node, cameFrom map[int64]*netgraph.Edge, speedCap float64) *Route {
	var edges []*netgraph.Edge
	for at := end.ID; at != start.ID; {
		e := cameFrom[at]
		edges = append(edges, e)
		at = e.From
	}
	// Reverse into travel order.
	for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
		edges[i], edges[j] = edges[j], edges[i]
	}

	route := &Route{Nodes: []int64{start.ID}}
	var flat []float64
	var riskSum, lengthSum float64
	for i, e := range edges {
		route.Nodes = append(route.Nodes, e.To)
		route.EdgeIDs = append(route.EdgeIDs, e.ID)

		damage := snap.Score(e)
		route.DistanceKm += e.LengthM / 1000
		route.Minutes += e.TravelMinutes(speedCap) * (1 + damage*r.cfg.SlowdownFactor)
		riskSum += damage * e.LengthM
		lengthSum += e.LengthM

		coords := e.Geometry.FlatCoords()
		if i > 0 {
			coords = coords[2:] // drop the joint shared with the previous edge
		}
		flat = append(flat, coords...)
	}
	if lengthSum > 0 {
		route.Risk = riskSum / lengthSum
	}
	route.Geometry = geom.NewLineStringFlat(geom.XY, flat)
	return route
}
