package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/tariktoplu/Opti-LogistiX/internal/model"
	"github.com/tariktoplu/Opti-LogistiX/internal/netgraph"
	"github.com/tariktoplu/Opti-LogistiX/internal/scenario"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS scenarios (
	id               TEXT PRIMARY KEY,
	disaster_type    TEXT NOT NULL,
	magnitude        REAL NOT NULL,
	epicenter_lat    REAL NOT NULL,
	epicenter_lon    REAL NOT NULL,
	depth_km         REAL NOT NULL DEFAULT 0,
	affected_roads   INTEGER NOT NULL DEFAULT 0,
	affected_bridges INTEGER NOT NULL DEFAULT 0,
	mean_damage      REAL NOT NULL DEFAULT 0,
	max_damage       REAL NOT NULL DEFAULT 0,
	payload          TEXT NOT NULL,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS fleet (
	id            TEXT PRIMARY KEY,
	resource_type TEXT NOT NULL,
	node_id       INTEGER NOT NULL,
	lat           REAL NOT NULL,
	lon           REAL NOT NULL,
	status        TEXT NOT NULL DEFAULT 'available',
	target_zone   TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_scenarios_created_at ON scenarios(created_at);
CREATE INDEX IF NOT EXISTS idx_scenarios_type ON scenarios(disaster_type);
CREATE INDEX IF NOT EXISTS idx_scenarios_magnitude ON scenarios(magnitude);
CREATE INDEX IF NOT EXISTS idx_fleet_type ON fleet(resource_type);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveScenario(ctx context.Context, sc *scenario.Scenario, stats netgraph.DamageStats) error {
	payload, err := json.Marshal(sc)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal scenario")
	}

	createdAt := sc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scenarios
		 (id, disaster_type, magnitude, epicenter_lat, epicenter_lon, depth_km,
		  affected_roads, affected_bridges, mean_damage, max_damage, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET payload = excluded.payload,
		   mean_damage = excluded.mean_damage, max_damage = excluded.max_damage`,
		sc.ID, string(sc.Type), sc.Magnitude, sc.Epicenter.Lat, sc.Epicenter.Lon, sc.DepthKm,
		sc.AffectedRoads, sc.AffectedBridges, stats.MeanScore, stats.MaxScore,
		string(payload), createdAt,
	)
	return eris.Wrapf(err, "sqlite: save scenario %s", sc.ID)
}

func (s *SQLiteStore) GetScenario(ctx context.Context, id string) (*scenario.Scenario, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM scenarios WHERE id = ?`, id,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: scenario %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get scenario %s", id)
	}

	var sc scenario.Scenario
	if err := json.Unmarshal([]byte(payload), &sc); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal scenario")
	}
	return &sc, nil
}

func (s *SQLiteStore) ListScenarios(ctx context.Context, filter Filter) ([]Record, error) {
	query := `SELECT id, disaster_type, magnitude, epicenter_lat, epicenter_lon, depth_km,
	          affected_roads, affected_bridges, mean_damage, max_damage, created_at
	          FROM scenarios WHERE 1=1`
	var args []any

	if filter.Type != "" {
		query += ` AND disaster_type = ?`
		args = append(args, filter.Type)
	}
	if filter.MinMagnitude > 0 {
		query += ` AND magnitude >= ?`
		args = append(args, filter.MinMagnitude)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list scenarios")
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		err := rows.Scan(&r.ID, &r.Type, &r.Magnitude, &r.Epicenter.Lat, &r.Epicenter.Lon,
			&r.DepthKm, &r.AffectedRoads, &r.AffectedBridges, &r.MeanDamage, &r.MaxDamage,
			&r.CreatedAt)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan scenario")
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list scenarios iterate")
}

func (s *SQLiteStore) DeleteScenario(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scenarios WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete scenario %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: scenario %s", id)
	}
	return nil
}

// SaveFleet replaces the persisted fleet with the given resources, in one
// transaction.
func (s *SQLiteStore) SaveFleet(ctx context.Context, resources []model.Resource) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin fleet tx")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM fleet`); err != nil {
		return eris.Wrap(err, "sqlite: clear fleet")
	}
	for _, r := range resources {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO fleet (id, resource_type, node_id, lat, lon, status, target_zone)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.ID, string(r.Type), r.NodeID, r.Location.Lat, r.Location.Lon,
			string(r.Status), r.TargetZone,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert resource %s", r.ID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit fleet")
}

func (s *SQLiteStore) LoadFleet(ctx context.Context) ([]model.Resource, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, resource_type, node_id, lat, lon, status, target_zone FROM fleet ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load fleet")
	}
	defer rows.Close()

	var resources []model.Resource
	for rows.Next() {
		var r model.Resource
		var typ, status string
		err := rows.Scan(&r.ID, &typ, &r.NodeID, &r.Location.Lat, &r.Location.Lon, &status, &r.TargetZone)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan resource")
		}
		r.Type = model.ResourceType(typ)
		r.Status = model.ResourceStatus(status)
		resources = append(resources, r)
	}
	return resources, eris.Wrap(rows.Err(), "sqlite: load fleet iterate")
}
