// Package netgraph models the road network as a weighted directed graph with
// an atomically swappable per-edge damage state.
package netgraph

import (
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/tariktoplu/Opti-LogistiX/internal/model"
)

// ErrGraphLoad is returned when a dataset cannot be turned into a graph. No
// partial graph is ever installed.
var ErrGraphLoad = eris.New("netgraph: malformed dataset")

// Node is a road-network vertex. Immutable after load.
type Node struct {
	ID   int64          `json:"id"`
	Loc  model.LatLon   `json:"location"`
	Role model.NodeRole `json:"role"`
}

// Edge is a directed road segment. Immutable after load; the mutable damage
// score lives in the graph's DamageSnapshot, keyed by the edge's dense index.
type Edge struct {
	ID       int64           `json:"id"`
	From     int64           `json:"from"`
	To       int64           `json:"to"`
	LengthM  float64         `json:"length_m"`
	Class    model.RoadClass `json:"road_class"`
	Lanes    int             `json:"lanes"`
	Bridge   bool            `json:"is_bridge"`
	Soil     model.SoilClass `json:"soil"`
	Density  float64         `json:"building_density"`
	SpeedKmh float64         `json:"base_speed_kmh"`

	// Geometry is display-only and has no routing significance.
	Geometry *geom.LineString `json:"-"`

	// index is the position in the graph's dense edge ordering.
	index int
	// midpoint is precomputed from the endpoint coordinates at build time.
	midpoint model.LatLon
}

// Midpoint returns the planar midpoint of the edge's endpoints as resolved at
// graph build time.
func (e *Edge) Midpoint() model.LatLon { return e.midpoint }

// TravelMinutes returns the undamaged traversal time at the given speed cap.
// A non-positive cap uses the edge's base speed.
func (e *Edge) TravelMinutes(capKmh float64) float64 {
	speed := e.SpeedKmh
	if capKmh > 0 && capKmh < speed {
		speed = capKmh
	}
	return e.LengthM / 1000.0 / speed * 60.0
}

// Arc pairs an outgoing edge with the node it leads to.
type Arc struct {
	Edge *Edge
	To   int64
}

// Graph owns all nodes and edges and the current damage snapshot. Reads are
// lock-free; the only mutation is the whole-snapshot swap.
type Graph struct {
	nodes   map[int64]*Node
	edges   map[int64]*Edge
	adj     map[int64][]Arc
	ordered []*Edge

	damage atomic.Pointer[DamageSnapshot]
}

// New validates the dataset and builds a graph. Every edge endpoint must
// exist in the node set; disconnected graphs are legal.
func New(ds *Dataset) (*Graph, error) {
	if len(ds.Nodes) == 0 {
		return nil, eris.Wrap(ErrGraphLoad, "netgraph: dataset has no nodes")
	}

	g := &Graph{
		nodes: make(map[int64]*Node, len(ds.Nodes)),
		edges: make(map[int64]*Edge, len(ds.Edges)),
		adj:   make(map[int64][]Arc, len(ds.Nodes)),
	}

	for _, spec := range ds.Nodes {
		if !spec.Loc.Valid() {
			return nil, eris.Wrapf(ErrGraphLoad, "netgraph: node %d has invalid coordinates", spec.ID)
		}
		if _, dup := g.nodes[spec.ID]; dup {
			return nil, eris.Wrapf(ErrGraphLoad, "netgraph: duplicate node id %d", spec.ID)
		}
		role := spec.Role
		if role == "" {
			role = model.RoleIntersection
		}
		g.nodes[spec.ID] = &Node{ID: spec.ID, Loc: spec.Loc, Role: role}
	}

	g.ordered = make([]*Edge, 0, len(ds.Edges))
	for _, spec := range ds.Edges {
		from, ok := g.nodes[spec.From]
		if !ok {
			return nil, eris.Wrapf(ErrGraphLoad, "netgraph: edge %d references unknown node %d", spec.ID, spec.From)
		}
		to, ok := g.nodes[spec.To]
		if !ok {
			return nil, eris.Wrapf(ErrGraphLoad, "netgraph: edge %d references unknown node %d", spec.ID, spec.To)
		}
		if _, dup := g.edges[spec.ID]; dup {
			return nil, eris.Wrapf(ErrGraphLoad, "netgraph: duplicate edge id %d", spec.ID)
		}
		if spec.LengthM <= 0 {
			return nil, eris.Wrapf(ErrGraphLoad, "netgraph: edge %d has non-positive length", spec.ID)
		}

		e := &Edge{
			ID:       spec.ID,
			From:     spec.From,
			To:       spec.To,
			LengthM:  spec.LengthM,
			Class:    spec.Class,
			Lanes:    spec.Lanes,
			Bridge:   spec.Bridge,
			Soil:     spec.Soil,
			Density:  spec.Density,
			SpeedKmh: spec.SpeedKmh,
			index:    len(g.ordered),
			midpoint: from.Loc.Midpoint(to.Loc),
		}
		if !e.Class.Known() {
			e.Class = model.RoadUnclassified
		}
		if e.SpeedKmh <= 0 {
			e.SpeedKmh = e.Class.DefaultSpeedKmh()
		}
		if e.Lanes <= 0 {
			e.Lanes = 1
		}
		e.Geometry = lineString(from.Loc, spec.Geometry, to.Loc)

		g.edges[e.ID] = e
		g.ordered = append(g.ordered, e)
		g.adj[e.From] = append(g.adj[e.From], Arc{Edge: e, To: e.To})
	}

	g.damage.Store(emptySnapshot(len(g.ordered)))
	return g, nil
}

// lineString builds display geometry from optional intermediate points.
func lineString(from model.LatLon, via []model.LatLon, to model.LatLon) *geom.LineString {
	flat := make([]float64, 0, (len(via)+2)*2)
	flat = append(flat, from.Lon, from.Lat)
	for _, p := range via {
		flat = append(flat, p.Lon, p.Lat)
	}
	flat = append(flat, to.Lon, to.Lat)
	return geom.NewLineStringFlat(geom.XY, flat)
}

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id int64) *Node { return g.nodes[id] }

// Edge returns the edge with the given id, or nil.
func (g *Graph) Edge(id int64) *Edge { return g.edges[id] }

// Neighbors returns the outgoing arcs of a node. The returned slice is owned
// by the graph and must not be mutated.
func (g *Graph) Neighbors(id int64) []Arc { return g.adj[id] }

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.ordered) }

// Edges returns all edges in dense-index order. The slice is owned by the
// graph and must not be mutated.
func (g *Graph) Edges() []*Edge { return g.ordered }

// Nodes iterates all nodes in unspecified order.
func (g *Graph) Nodes(fn func(*Node) bool) {
	for _, n := range g.nodes {
		if !fn(n) {
			return
		}
	}
}

// NearestNode returns the node closest to pt by planar distance, with the
// distance in meters. Returns nil on an empty graph.
func (g *Graph) NearestNode(pt model.LatLon) (*Node, float64) {
	var best *Node
	bestDist := 0.0
	for _, n := range g.nodes {
		d := pt.PlanarMeters(n.Loc)
		if best == nil || d < bestDist {
			best, bestDist = n, d
		}
	}
	return best, bestDist
}
