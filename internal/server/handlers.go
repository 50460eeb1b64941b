package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tariktoplu/Opti-LogistiX/internal/engine"
	"github.com/tariktoplu/Opti-LogistiX/internal/model"
	"github.com/tariktoplu/Opti-LogistiX/internal/netgraph"
	"github.com/tariktoplu/Opti-LogistiX/internal/router"
	"github.com/tariktoplu/Opti-LogistiX/internal/scenario"
	"github.com/tariktoplu/Opti-LogistiX/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("response encode failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// respondErr maps domain errors onto HTTP statuses: malformed inputs are 400,
// missing things are 404, unprocessable inputs are 422, everything else is
// a 500.
func (s *Server) respondErr(w http.ResponseWriter, err error) {
	var nf *router.NotFoundError
	switch {
	case errors.Is(err, netgraph.ErrGraphLoad):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrNoScenario),
		errors.Is(err, engine.ErrResourceNotFound),
		errors.Is(err, store.ErrNotFound),
		errors.As(err, &nf):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, scenario.ErrInvalidParams),
		errors.Is(err, router.ErrNoNearbyNode):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.log.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.eng.Stats()
	resp := map[string]any{
		"status": "ok",
		"nodes":  st.Nodes,
		"edges":  st.Edges,
	}
	if sc := s.eng.CurrentScenario(); sc != nil {
		resp["active_scenario"] = sc.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGraphLoad(w http.ResponseWriter, r *http.Request) {
	var ds netgraph.Dataset
	if err := decodeBody(r, &ds); err != nil {
		writeError(w, http.StatusBadRequest, "malformed dataset: "+err.Error())
		return
	}
	if len(ds.Nodes) == 0 {
		writeError(w, http.StatusBadRequest, "dataset has no nodes")
		return
	}
	if err := s.eng.LoadDataset(r.Context(), &ds); err != nil {
		s.respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"loaded": true,
		"stats":  s.eng.Stats(),
	})
}

func (s *Server) handleGraphNodes(w http.ResponseWriter, r *http.Request) {
	nodes := make([]*netgraph.Node, 0, s.eng.Stats().Nodes)
	s.eng.Graph().Nodes(func(n *netgraph.Node) bool {
		nodes = append(nodes, n)
		return true
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"nodes": nodes,
		"count": len(nodes),
	})
}

func (s *Server) handleGraphEdges(w http.ResponseWriter, r *http.Request) {
	edges := s.eng.Graph().Edges()
	writeJSON(w, http.StatusOK, map[string]any{
		"edges": edges,
		"count": len(edges),
	})
}

func (s *Server) handleGraphStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.eng.Stats())
}

func (s *Server) handleScenarioList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.Filter{Type: q.Get("type")}
	if v := q.Get("min_magnitude"); v != "" {
		m, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "min_magnitude must be a number")
			return
		}
		filter.MinMagnitude = m
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		filter.Offset = n
	}

	archived, err := s.eng.ArchivedScenarios(r.Context(), filter)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	resp := map[string]any{
		"presets":  s.eng.Presets(),
		"archived": archived,
	}
	if sc := s.eng.CurrentScenario(); sc != nil {
		resp["current"] = sc
	}
	writeJSON(w, http.StatusOK, resp)
}

type activateRequest struct {
	Magnitude float64      `json:"magnitude"`
	Epicenter model.LatLon `json:"epicenter"`
	DepthKm   float64      `json:"depth_km"`
	Seed      int64        `json:"seed"`
	ID        string       `json:"scenario_id"`
}

func (s *Server) handleScenarioActivate(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed scenario request: "+err.Error())
		return
	}
	sc, err := s.eng.ApplyScenario(r.Context(), scenario.Params{
		Magnitude: req.Magnitude,
		Epicenter: req.Epicenter,
		DepthKm:   req.DepthKm,
		Seed:      req.Seed,
		ID:        req.ID,
	})
	if err != nil {
		s.respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sc)
}

func (s *Server) handleScenarioPreset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seed int64 `json:"seed"`
	}
	if err := decodeBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "malformed preset request: "+err.Error())
		return
	}
	sc, err := s.eng.ApplyPreset(r.Context(), chi.URLParam(r, "name"), req.Seed)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sc)
}

func (s *Server) handleScenarioReactivate(w http.ResponseWriter, r *http.Request) {
	sc, err := s.eng.ReactivateArchived(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (s *Server) handleScenarioClear(w http.ResponseWriter, r *http.Request) {
	s.eng.ClearScenario()
	writeJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

func (s *Server) handleDamageMap(w http.ResponseWriter, r *http.Request) {
	dm, err := s.eng.DamageMap()
	if err != nil {
		s.respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dm)
}

// routeView adds the flattened display geometry the map client draws.
type routeView struct {
	*router.Route
	Coordinates []model.LatLon `json:"coordinates"`
}

func newRouteView(rt *router.Route) *routeView {
	if rt == nil {
		return nil
	}
	return &routeView{Route: rt, Coordinates: rt.Coordinates()}
}

type routeRequest struct {
	Start           model.LatLon       `json:"start"`
	End             model.LatLon       `json:"end"`
	Vehicle         model.ResourceType `json:"vehicle_type,omitempty"`
	Urgency         *float64           `json:"urgency,omitempty"`
	WithAlternative bool               `json:"include_alternative,omitempty"`
}

func (req *routeRequest) toQuery() (router.Request, error) {
	urgency := 0.5
	if req.Urgency != nil {
		urgency = *req.Urgency
	}
	if urgency < 0 || urgency > 1 {
		return router.Request{}, errors.New("urgency must be in [0, 1]")
	}
	if req.Vehicle != "" && !req.Vehicle.Known() {
		return router.Request{}, errors.New("unknown vehicle type " + string(req.Vehicle))
	}
	return router.Request{
		Start:           req.Start,
		End:             req.End,
		Vehicle:         req.Vehicle,
		Urgency:         urgency,
		WithAlternative: req.WithAlternative,
	}, nil
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed route request: "+err.Error())
		return
	}
	query, err := req.toQuery()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.eng.FindRoute(r.Context(), query)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"route":       newRouteView(res.Route),
		"alternative": newRouteView(res.Alternative),
	})
}

func (s *Server) handleRoutesCompare(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	coord := func(key string) (float64, bool) {
		v, err := strconv.ParseFloat(q.Get(key), 64)
		return v, err == nil
	}
	req := routeRequest{WithAlternative: true}
	var ok bool
	if req.Start.Lat, ok = coord("start_lat"); !ok {
		writeError(w, http.StatusBadRequest, "start_lat must be a number")
		return
	}
	if req.Start.Lon, ok = coord("start_lon"); !ok {
		writeError(w, http.StatusBadRequest, "start_lon must be a number")
		return
	}
	if req.End.Lat, ok = coord("end_lat"); !ok {
		writeError(w, http.StatusBadRequest, "end_lat must be a number")
		return
	}
	if req.End.Lon, ok = coord("end_lon"); !ok {
		writeError(w, http.StatusBadRequest, "end_lon must be a number")
		return
	}
	req.Vehicle = model.ResourceType(q.Get("vehicle"))
	if v := q.Get("urgency"); v != "" {
		u, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "urgency must be a number")
			return
		}
		req.Urgency = &u
	}
	query, err := req.toQuery()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.eng.FindRoute(r.Context(), query)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	resp := map[string]any{"optimal": newRouteView(res.Route)}
	if res.Alternative != nil {
		resp["standard"] = newRouteView(res.Alternative)
		resp["saved_minutes"] = res.Alternative.Minutes - res.Route.Minutes
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResources(w http.ResponseWriter, r *http.Request) {
	resources := s.eng.Resources()
	writeJSON(w, http.StatusOK, map[string]any{
		"resources": resources,
		"count":     len(resources),
	})
}

func (s *Server) handleResourcesByType(w http.ResponseWriter, r *http.Request) {
	t := model.ResourceType(chi.URLParam(r, "type"))
	if !t.Known() {
		writeError(w, http.StatusUnprocessableEntity, "unknown resource type "+string(t))
		return
	}
	resources := s.eng.ResourcesByType(t)
	writeJSON(w, http.StatusOK, map[string]any{
		"resources": resources,
		"count":     len(resources),
	})
}

func (s *Server) handleResourceAssign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ZoneID string `json:"zone_id"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed assign request: "+err.Error())
		return
	}
	if req.ZoneID == "" {
		writeError(w, http.StatusBadRequest, "zone_id is required")
		return
	}
	res, err := s.eng.AssignResource(r.Context(), chi.URLParam(r, "id"), req.ZoneID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAllocate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Zones []model.Zone `json:"zones"`
	}
	if err := decodeBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "malformed allocation request: "+err.Error())
		return
	}
	for _, z := range req.Zones {
		if z.ID == "" {
			writeError(w, http.StatusBadRequest, "every zone needs a zone_id")
			return
		}
		if z.Urgency < 0 || z.Urgency > 1 {
			writeError(w, http.StatusBadRequest, "zone "+z.ID+": urgency must be in [0, 1]")
			return
		}
	}
	plan, err := s.eng.Allocate(r.Context(), req.Zones)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	recs, err := s.eng.Recommendations(r.Context())
	if err != nil {
		s.respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"recommendations": recs,
		"count":           len(recs),
	})
}
