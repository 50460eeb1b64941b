// Package store persists generated scenarios and fleet state. The archive is
// history only; the active scenario is always rebuilt in memory.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/tariktoplu/Opti-LogistiX/internal/config"
	"github.com/tariktoplu/Opti-LogistiX/internal/model"
	"github.com/tariktoplu/Opti-LogistiX/internal/netgraph"
	"github.com/tariktoplu/Opti-LogistiX/internal/scenario"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = eris.New("store: not found")

// Record is one archived scenario row, without the full damage payload.
type Record struct {
	ID              string       `json:"scenario_id"`
	Type            string       `json:"disaster_type"`
	Magnitude       float64      `json:"magnitude"`
	Epicenter       model.LatLon `json:"epicenter"`
	DepthKm         float64      `json:"depth_km,omitempty"`
	AffectedRoads   int          `json:"affected_roads"`
	AffectedBridges int          `json:"affected_bridges"`
	MeanDamage      float64      `json:"mean_damage"`
	MaxDamage       float64      `json:"max_damage"`
	CreatedAt       time.Time    `json:"created_at"`
}

// Filter specifies criteria for listing archived scenarios.
type Filter struct {
	Type         string  `json:"disaster_type,omitempty"`
	MinMagnitude float64 `json:"min_magnitude,omitempty"`
	Limit        int     `json:"limit,omitempty"`
	Offset       int     `json:"offset,omitempty"`
}

// Store defines the persistence interface for the scenario archive and fleet.
type Store interface {
	// Scenario archive
	SaveScenario(ctx context.Context, sc *scenario.Scenario, stats netgraph.DamageStats) error
	GetScenario(ctx context.Context, id string) (*scenario.Scenario, error)
	ListScenarios(ctx context.Context, filter Filter) ([]Record, error)
	DeleteScenario(ctx context.Context, id string) error

	// Fleet state
	SaveFleet(ctx context.Context, resources []model.Resource) error
	LoadFleet(ctx context.Context) ([]model.Resource, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open builds a Store for the configured driver. An empty driver defaults to
// SQLite in the working directory.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = "optilogistix.db"
		}
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
