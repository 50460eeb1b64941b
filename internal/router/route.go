// Package router computes risk-weighted routes over the road network under
// the current damage snapshot.
package router

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/tariktoplu/Opti-LogistiX/internal/model"
)

// ErrNoNearbyNode is returned when a query coordinate is too far from any
// graph node to snap.
var ErrNoNearbyNode = eris.New("router: no node near coordinate")

// NotFoundError reports that no passable path exists, with a diagnostic
// reason for the operator.
type NotFoundError struct {
	Reason string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("router: route not found: %s", e.Reason)
}

// Request is one route query.
type Request struct {
	Start model.LatLon
	End   model.LatLon
	// Vehicle caps the effective speed per edge. Empty means no cap.
	Vehicle model.ResourceType
	// Urgency in [0, 1]; higher urgency tolerates more risk for speed.
	Urgency float64
	// WithAlternative also computes the pure fastest path that ignores the
	// risk penalty, for a standard-vs-optimal comparison.
	WithAlternative bool
}

// Route is a computed path with its display geometry and summary metrics.
type Route struct {
	Nodes      []int64          `json:"path"`
	EdgeIDs    []int64          `json:"edge_ids"`
	Geometry   *geom.LineString `json:"-"`
	DistanceKm float64          `json:"distance_km"`
	// Minutes is the damage-inflated travel-time estimate.
	Minutes float64 `json:"estimated_time"`
	// Risk is the length-weighted mean damage score along the path, in [0, 1].
	Risk float64 `json:"risk_score"`
	// Optimal marks the risk-aware route in a comparison pair.
	Optimal bool `json:"is_optimal"`
}

// Result pairs the risk-aware route with its optional fastest alternative.
type Result struct {
	Route       *Route `json:"route"`
	Alternative *Route `json:"alternative,omitempty"`
}

// Coordinates flattens the geometry into lat/lon pairs for transport layers.
func (r *Route) Coordinates() []model.LatLon {
	if r.Geometry == nil {
		return nil
	}
	coords := r.Geometry.Coords()
	out := make([]model.LatLon, len(coords))
	for i, c := range coords {
		out[i] = model.LatLon{Lat: c.Y(), Lon: c.X()}
	}
	return out
}
