// Package engine wires the graph, scenario state, router, allocator and
// recommendation rules into one facade the HTTP server and CLI share.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tariktoplu/Opti-LogistiX/internal/allocator"
	"github.com/tariktoplu/Opti-LogistiX/internal/config"
	"github.com/tariktoplu/Opti-LogistiX/internal/model"
	"github.com/tariktoplu/Opti-LogistiX/internal/netgraph"
	"github.com/tariktoplu/Opti-LogistiX/internal/recommend"
	"github.com/tariktoplu/Opti-LogistiX/internal/router"
	"github.com/tariktoplu/Opti-LogistiX/internal/scenario"
	"github.com/tariktoplu/Opti-LogistiX/internal/store"
)

// ErrNoScenario is returned by operations that need an active scenario.
var ErrNoScenario = eris.New("engine: no active scenario")

// ErrResourceNotFound is returned when an assignment names an unknown or
// already claimed resource.
var ErrResourceNotFound = eris.New("engine: resource not available")

// maxWatchedRoutes bounds the per-session watchlist fed to recommendations.
const maxWatchedRoutes = 16

// Engine owns all runtime state. Graph reloads swap the whole world under the
// write lock; routine queries share the read lock and the graph's own atomic
// damage snapshot.
type Engine struct {
	cfg *config.Config
	log *zap.Logger

	mu        sync.RWMutex
	graph     *netgraph.Graph
	scenarios *scenario.Store
	fleet     *allocator.Fleet
	zones     []model.Zone
	watched   []recommend.WatchedRoute
	routeSeq  int64
	lastPlan  *allocator.Plan

	gen     *scenario.Generator
	presets []scenario.Preset
	rt      *router.Router
	alloc   *allocator.Allocator
	rec     *recommend.Engine
	archive store.Store
}

// New builds the engine: graph from the configured dataset (or the demo
// grid), fleet from the archive (or the demo deployment), presets from the
// configured catalog (or the built-ins). archive may be nil to disable
// persistence.
func New(cfg *config.Config, archive store.Store) (*Engine, error) {
	e := &Engine{
		cfg:     cfg,
		log:     zap.L().With(zap.String("component", "engine")),
		gen:     scenario.NewGenerator(cfg.Scenario),
		rt:      router.New(cfg.Router),
		rec:     recommend.New(),
		archive: archive,
	}
	e.alloc = allocator.New(cfg.Allocator, e.rt)

	var g *netgraph.Graph
	var err error
	if cfg.Graph.DatasetPath != "" {
		g, err = netgraph.LoadFile(cfg.Graph.DatasetPath)
	} else {
		g, err = netgraph.New(netgraph.GridDataset(netgraph.GridOptions{Size: cfg.Graph.GridSize}))
	}
	if err != nil {
		return nil, err
	}
	e.graph = g
	e.scenarios = scenario.NewStore(g, cfg.Scenario.CriticalThreshold)

	if cfg.Scenario.PresetsPath != "" {
		e.presets, err = scenario.LoadPresets(cfg.Scenario.PresetsPath)
		if err != nil {
			return nil, err
		}
	} else {
		e.presets = scenario.DefaultPresets()
	}

	if err := e.initFleet(context.Background()); err != nil {
		return nil, err
	}

	e.log.Info("engine ready",
		zap.Int("nodes", g.NodeCount()),
		zap.Int("edges", g.EdgeCount()),
		zap.Int("fleet", len(e.fleet.List())))
	return e, nil
}

// initFleet restores the persisted fleet when present, seeding the demo
// deployment otherwise.
func (e *Engine) initFleet(ctx context.Context) error {
	e.fleet = allocator.NewFleet()
	if e.archive != nil {
		saved, err := e.archive.LoadFleet(ctx)
		if err != nil {
			return err
		}
		if len(saved) > 0 {
			for _, r := range saved {
				if err := e.fleet.Add(r); err != nil {
					return err
				}
			}
			return nil
		}
	}
	if err := e.fleet.SeedDemo(e.graph); err != nil {
		return err
	}
	return e.persistFleet(ctx)
}

func (e *Engine) persistFleet(ctx context.Context) error {
	if e.archive == nil {
		return nil
	}
	return e.archive.SaveFleet(ctx, e.fleet.List())
}

// Graph returns the live graph.
func (e *Engine) Graph() *netgraph.Graph {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.graph
}

// Stats summarizes the live graph.
func (e *Engine) Stats() netgraph.Stats {
	return e.Graph().Stats()
}

// LoadDataset replaces the road network. Any active scenario, demand zones
// and watched routes are dropped; the fleet is reseeded onto the new graph.
func (e *Engine) LoadDataset(ctx context.Context, ds *netgraph.Dataset) error {
	g, err := netgraph.New(ds)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.graph = g
	e.scenarios = scenario.NewStore(g, e.cfg.Scenario.CriticalThreshold)
	e.zones = nil
	e.watched = nil
	e.routeSeq = 0
	e.lastPlan = nil
	e.fleet = allocator.NewFleet()
	if err := e.fleet.SeedDemo(g); err != nil {
		return err
	}
	e.log.Info("dataset loaded", zap.Int("nodes", g.NodeCount()), zap.Int("edges", g.EdgeCount()))
	return e.persistFleet(ctx)
}

// Presets lists the scenario catalog.
func (e *Engine) Presets() []scenario.Preset {
	return e.presets
}

// CurrentScenario returns the active scenario, or nil.
func (e *Engine) CurrentScenario() *scenario.Scenario {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.scenarios.Current()
}

// ApplyScenario generates and activates an earthquake scenario, archiving it
// when persistence is on.
func (e *Engine) ApplyScenario(ctx context.Context, p scenario.Params) (*scenario.Scenario, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sc, err := e.gen.Earthquake(e.graph, p)
	if err != nil {
		return nil, err
	}
	e.scenarios.Activate(sc)
	e.zones = demandZones(sc)
	e.lastPlan = nil

	if e.archive != nil {
		stats := e.graph.DamageStats(0.3, e.cfg.Scenario.CriticalThreshold)
		if err := e.archive.SaveScenario(ctx, sc, stats); err != nil {
			// Archival is best effort; the scenario is already live.
			e.log.Warn("scenario archive failed", zap.String("scenario", sc.ID), zap.Error(err))
		}
	}
	return sc, nil
}

// ApplyPreset activates a named preset from the catalog.
func (e *Engine) ApplyPreset(ctx context.Context, name string, seed int64) (*scenario.Scenario, error) {
	p, ok := scenario.FindPreset(e.presets, name)
	if !ok {
		return nil, eris.Wrapf(scenario.ErrInvalidParams, "engine: unknown preset %q", name)
	}
	return e.ApplyScenario(ctx, p.Params(e.Graph().Centroid(), seed))
}

// ReactivateArchived re-installs a previously archived scenario by ID.
func (e *Engine) ReactivateArchived(ctx context.Context, id string) (*scenario.Scenario, error) {
	if e.archive == nil {
		return nil, eris.Wrap(store.ErrNotFound, "engine: archive disabled")
	}
	sc, err := e.archive.GetScenario(ctx, id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.scenarios.Activate(sc)
	e.zones = demandZones(sc)
	e.lastPlan = nil
	return sc, nil
}

// ClearScenario resets all damage to zero. Idempotent.
func (e *Engine) ClearScenario() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scenarios.Clear()
	e.zones = nil
	e.lastPlan = nil
}

// ArchivedScenarios lists the scenario archive.
func (e *Engine) ArchivedScenarios(ctx context.Context, filter store.Filter) ([]store.Record, error) {
	if e.archive == nil {
		return nil, nil
	}
	return e.archive.ListScenarios(ctx, filter)
}

// DamageMap bundles the per-edge damage view for map overlays.
type DamageMap struct {
	ScenarioID string                `json:"scenario_id"`
	Stats      netgraph.DamageStats  `json:"stats"`
	Zones      []scenario.DamageZone `json:"damage_zones"`
	Edges      []DamagedEdge         `json:"edges"`
}

// DamagedEdge is one edge's damage entry with its display label.
type DamagedEdge struct {
	EdgeID  int64          `json:"edge_id"`
	Score   float64        `json:"damage_score"`
	Level   model.Severity `json:"damage_level"`
	Blocked bool           `json:"blocked"`
}

// DamageMap returns the active scenario's overlay payload, or ErrNoScenario.
func (e *Engine) DamageMap() (*DamageMap, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	sc := e.scenarios.Current()
	if sc == nil {
		return nil, ErrNoScenario
	}
	snap := e.graph.Damage()
	dm := &DamageMap{
		ScenarioID: sc.ID,
		Stats:      e.graph.DamageStats(0.3, e.cfg.Scenario.CriticalThreshold),
		Zones:      sc.Zones,
	}
	for _, edge := range e.graph.Edges() {
		score := snap.Score(edge)
		if score == 0 {
			continue
		}
		dm.Edges = append(dm.Edges, DamagedEdge{
			EdgeID:  edge.ID,
			Score:   score,
			Level:   model.SeverityFor(score),
			Blocked: snap.Blocked(edge),
		})
	}
	return dm, nil
}

// FindRoute runs a routing query and remembers the result on the session
// watchlist so recommendations can warn when later damage invalidates it.
func (e *Engine) FindRoute(ctx context.Context, req router.Request) (*router.Result, error) {
	g := e.Graph()
	res, err := e.rt.FindRoute(ctx, g, req)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.routeSeq++
	e.watched = append(e.watched, recommend.WatchedRoute{
		ID:    routeID(e.routeSeq),
		Route: res.Route,
	})
	if len(e.watched) > maxWatchedRoutes {
		e.watched = e.watched[len(e.watched)-maxWatchedRoutes:]
	}
	e.mu.Unlock()
	return res, nil
}

// Resources lists the fleet.
func (e *Engine) Resources() []model.Resource {
	return e.fleetRef().List()
}

// ResourcesByType lists the fleet filtered by vehicle type.
func (e *Engine) ResourcesByType(t model.ResourceType) []model.Resource {
	return e.fleetRef().ListByType(t)
}

// AssignResource manually claims one resource for a zone.
func (e *Engine) AssignResource(ctx context.Context, resourceID, zoneID string) (model.Resource, error) {
	fleet := e.fleetRef()
	if !fleet.Claim(resourceID, zoneID) {
		return model.Resource{}, eris.Wrapf(ErrResourceNotFound, "engine: assign %s", resourceID)
	}
	res, _ := fleet.Get(resourceID)
	if err := e.persistFleet(ctx); err != nil {
		e.log.Warn("fleet persist failed", zap.Error(err))
	}
	return res, nil
}

// Allocate runs one allocation round. With no explicit zones the demand
// derived from the active scenario is used.
func (e *Engine) Allocate(ctx context.Context, zones []model.Zone) (*allocator.Plan, error) {
	e.mu.RLock()
	g := e.graph
	fleet := e.fleet
	if zones == nil {
		zones = e.zones
	}
	e.mu.RUnlock()

	if len(zones) == 0 {
		return nil, ErrNoScenario
	}

	plan, err := e.alloc.Allocate(ctx, g, zones, fleet)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.lastPlan = plan
	e.zones = zones
	e.mu.Unlock()

	if err := e.persistFleet(ctx); err != nil {
		e.log.Warn("fleet persist failed", zap.Error(err))
	}
	return plan, nil
}

// Recommendations evaluates the rule set against current state. When a plan
// is standing, the same demand is re-solved with perturbed urgencies on a
// fleet copy to look for cheaper assignments.
func (e *Engine) Recommendations(ctx context.Context) ([]model.Recommendation, error) {
	e.mu.RLock()
	in := recommend.Input{
		Scenario: e.scenarios.Current(),
		Graph:    e.graph,
		Watched:  append([]recommend.WatchedRoute(nil), e.watched...),
		Plan:     e.lastPlan,
		Idle:     e.fleet.Available(),
		Zones:    append([]model.Zone(nil), e.zones...),
	}
	fleet := e.fleet
	e.mu.RUnlock()

	if in.Plan != nil && len(in.Zones) > 0 {
		replanFleet := fleet.Clone()
		replanFleet.ReleaseAll()
		replan, err := e.alloc.Allocate(ctx, in.Graph, perturb(in.Zones, e.cfg.Allocator.ReplanPerturbation), replanFleet)
		if err != nil {
			return nil, err
		}
		in.Replan = replan
	}
	return e.rec.Build(in), nil
}

func (e *Engine) fleetRef() *allocator.Fleet {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.fleet
}

// demandZones turns a scenario's damage zones into allocation demand. The
// most damaged areas call for search and rescue, severe ones for medical
// response, moderate ones for supply runs.
func demandZones(sc *scenario.Scenario) []model.Zone {
	zones := make([]model.Zone, 0, len(sc.Zones))
	for _, dz := range sc.Zones {
		z := model.Zone{
			ID:       dz.ID,
			Center:   dz.Center,
			RadiusM:  dz.RadiusM,
			Severity: dz.Level,
			Urgency:  model.Clamp01(dz.Score),
		}
		switch dz.Level {
		case model.SeverityCritical:
			z.Need = model.NeedSearch
		case model.SeveritySevere:
			z.Need = model.NeedMedical
		default:
			z.Need = model.NeedSupply
		}
		zones = append(zones, z)
	}
	return zones
}

// perturb nudges zone urgencies up and down alternately so the replan
// explores a different greedy order. Deterministic on purpose.
func perturb(zones []model.Zone, delta float64) []model.Zone {
	out := make([]model.Zone, len(zones))
	copy(out, zones)
	for i := range out {
		if i%2 == 0 {
			out[i].Urgency = model.Clamp01(out[i].Urgency + delta)
		} else {
			out[i].Urgency = model.Clamp01(out[i].Urgency - delta)
		}
	}
	return out
}

func routeID(seq int64) string {
	return fmt.Sprintf("ROUTE-%d", seq)
}
