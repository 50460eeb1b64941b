package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tariktoplu/Opti-LogistiX/internal/model"
	"github.com/tariktoplu/Opti-LogistiX/internal/netgraph"
	"github.com/tariktoplu/Opti-LogistiX/internal/scenario"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresWithPool(mock), mock
}

func archivedScenario() *scenario.Scenario {
	return &scenario.Scenario{
		ID:         "EQ-7.2-abcd1234",
		Type:       scenario.DisasterEarthquake,
		Magnitude:  7.2,
		Epicenter:  model.LatLon{Lat: 41.02, Lon: 29.02},
		DepthKm:    10,
		CreatedAt:  time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		EdgeDamage: map[int64]float64{1: 0.45, 2: 0.9},
	}
}

func TestPostgresStore_SaveScenario_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	sc := archivedScenario()

	mock.ExpectExec(`INSERT INTO scenarios`).
		WithArgs(sc.ID, "earthquake", 7.2, 41.02, 29.02, 10.0,
			0, 0, 0.12, 0.9, pgxmock.AnyArg(), sc.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SaveScenario(context.Background(), sc, netgraph.DamageStats{MeanScore: 0.12, MaxScore: 0.9})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetScenario(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	payload, err := json.Marshal(archivedScenario())
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT payload FROM scenarios WHERE id = \$1`).
		WithArgs("EQ-7.2-abcd1234").
		WillReturnRows(pgxmock.NewRows([]string{"payload"}).AddRow(payload))

	sc, err := s.GetScenario(context.Background(), "EQ-7.2-abcd1234")
	require.NoError(t, err)
	assert.Equal(t, 7.2, sc.Magnitude)
	assert.Equal(t, scenario.DisasterEarthquake, sc.Type)
	assert.InDelta(t, 0.9, sc.EdgeDamage[2], 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetScenario_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT payload FROM scenarios WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetScenario(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListScenarios_Filtered(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{
		"id", "disaster_type", "magnitude", "epicenter_lat", "epicenter_lon", "depth_km",
		"affected_roads", "affected_bridges", "mean_damage", "max_damage", "created_at",
	}).AddRow("EQ-7.2-a", "earthquake", 7.2, 41.0, 29.0, 10.0, 42, 2, 0.3, 0.95,
		time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))

	mock.ExpectQuery(`FROM scenarios WHERE true AND magnitude >= \$1 ORDER BY created_at DESC LIMIT \$2`).
		WithArgs(6.0, 10).
		WillReturnRows(rows)

	records, err := s.ListScenarios(context.Background(), Filter{MinMagnitude: 6.0, Limit: 10})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "EQ-7.2-a", records[0].ID)
	assert.Equal(t, 42, records[0].AffectedRoads)
	assert.InDelta(t, 0.95, records[0].MaxDamage, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteScenario_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM scenarios WHERE id = \$1`).
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := s.DeleteScenario(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveFleet_Transactional(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM fleet`).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`INSERT INTO fleet`).
		WithArgs("AMB-1", "ambulance", int64(3), 41.0, 29.0, "available", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := s.SaveFleet(context.Background(), []model.Resource{{
		ID: "AMB-1", Type: model.ResourceAmbulance, NodeID: 3,
		Location: model.LatLon{Lat: 41.0, Lon: 29.0}, Status: model.StatusAvailable,
	}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadFleet(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"id", "resource_type", "node_id", "lat", "lon", "status", "target_zone"}).
		AddRow("FIRE-1", "fire_truck", int64(7), 41.01, 29.01, "assigned", "Z1")

	mock.ExpectQuery(`SELECT id, resource_type, node_id, lat, lon, status, target_zone FROM fleet`).
		WillReturnRows(rows)

	resources, err := s.LoadFleet(context.Background())
	require.NoError(t, err)
	require.Len(t, resources, 1)
	assert.Equal(t, model.ResourceFireTruck, resources[0].Type)
	assert.Equal(t, model.StatusAssigned, resources[0].Status)
	assert.Equal(t, "Z1", resources[0].TargetZone)
	assert.NoError(t, mock.ExpectationsWereMet())
}
