// Package scenario generates disaster damage scenarios and owns the single
// active one.
package scenario

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/tariktoplu/Opti-LogistiX/internal/model"
)

// ErrInvalidParams is returned when scenario parameters are rejected. The
// active scenario is left untouched.
var ErrInvalidParams = eris.New("scenario: invalid parameters")

// DisasterType is the kind of event a scenario models.
type DisasterType string

const (
	DisasterEarthquake DisasterType = "earthquake"
	DisasterFlood      DisasterType = "flood"
)

// DamageZone is a named area used for recommendation text and map overlays.
type DamageZone struct {
	ID      string         `json:"zone_id"`
	Center  model.LatLon   `json:"center"`
	RadiusM float64        `json:"radius_m"`
	Level   model.Severity `json:"damage_level"`
	Score   float64        `json:"damage_score"`
}

// Scenario is one generated disaster event with its per-edge damage scores.
// Scores are copied onto the live graph only through Store.Activate.
type Scenario struct {
	ID         string       `json:"scenario_id"`
	Type       DisasterType `json:"disaster_type"`
	Magnitude  float64      `json:"magnitude"`
	Epicenter  model.LatLon `json:"epicenter"`
	DepthKm    float64      `json:"depth_km,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	EdgeDamage map[int64]float64 `json:"edge_damage"`
	Zones      []DamageZone `json:"damage_zones"`

	AffectedRoads   int `json:"affected_roads"`
	AffectedBridges int `json:"affected_bridges"`
}
