package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/tariktoplu/Opti-LogistiX/internal/model"
	"github.com/tariktoplu/Opti-LogistiX/internal/netgraph"
	"github.com/tariktoplu/Opti-LogistiX/internal/scenario"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it in
// tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for the
// hottest archive operations.
var preparedStatements = map[string]string{
	"get_scenario":    `SELECT payload FROM scenarios WHERE id = $1`,
	"delete_scenario": `DELETE FROM scenarios WHERE id = $1`,
	"load_fleet":      `SELECT id, resource_type, node_id, lat, lon, status, target_zone FROM fleet ORDER BY id`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS scenarios (
	id               TEXT PRIMARY KEY,
	disaster_type    TEXT NOT NULL,
	magnitude        DOUBLE PRECISION NOT NULL,
	epicenter_lat    DOUBLE PRECISION NOT NULL,
	epicenter_lon    DOUBLE PRECISION NOT NULL,
	depth_km         DOUBLE PRECISION NOT NULL DEFAULT 0,
	affected_roads   INTEGER NOT NULL DEFAULT 0,
	affected_bridges INTEGER NOT NULL DEFAULT 0,
	mean_damage      DOUBLE PRECISION NOT NULL DEFAULT 0,
	max_damage       DOUBLE PRECISION NOT NULL DEFAULT 0,
	payload          JSONB NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS fleet (
	id            TEXT PRIMARY KEY,
	resource_type TEXT NOT NULL,
	node_id       BIGINT NOT NULL,
	lat           DOUBLE PRECISION NOT NULL,
	lon           DOUBLE PRECISION NOT NULL,
	status        TEXT NOT NULL DEFAULT 'available',
	target_zone   TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_scenarios_created_at ON scenarios(created_at);
CREATE INDEX IF NOT EXISTS idx_scenarios_type ON scenarios(disaster_type);
CREATE INDEX IF NOT EXISTS idx_scenarios_magnitude ON scenarios(magnitude);
CREATE INDEX IF NOT EXISTS idx_fleet_type ON fleet(resource_type);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveScenario(ctx context.Context, sc *scenario.Scenario, stats netgraph.DamageStats) error {
	payload, err := json.Marshal(sc)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal scenario")
	}

	createdAt := sc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO scenarios
		 (id, disaster_type, magnitude, epicenter_lat, epicenter_lon, depth_km,
		  affected_roads, affected_bridges, mean_damage, max_damage, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (id) DO UPDATE SET payload = $11, mean_damage = $9, max_damage = $10`,
		sc.ID, string(sc.Type), sc.Magnitude, sc.Epicenter.Lat, sc.Epicenter.Lon, sc.DepthKm,
		sc.AffectedRoads, sc.AffectedBridges, stats.MeanScore, stats.MaxScore,
		payload, createdAt,
	)
	return eris.Wrapf(err, "postgres: save scenario %s", sc.ID)
}

func (s *PostgresStore) GetScenario(ctx context.Context, id string) (*scenario.Scenario, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM scenarios WHERE id = $1`, id,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: scenario %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get scenario %s", id)
	}

	var sc scenario.Scenario
	if err := json.Unmarshal(payload, &sc); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal scenario")
	}
	return &sc, nil
}

func (s *PostgresStore) ListScenarios(ctx context.Context, filter Filter) ([]Record, error) {
	query := `SELECT id, disaster_type, magnitude, epicenter_lat, epicenter_lon, depth_km,
	          affected_roads, affected_bridges, mean_damage, max_damage, created_at
	          FROM scenarios WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Type != "" {
		query += fmt.Sprintf(` AND disaster_type = $%d`, argIdx)
		args = append(args, filter.Type)
		argIdx++
	}
	if filter.MinMagnitude > 0 {
		query += fmt.Sprintf(` AND magnitude >= $%d`, argIdx)
		args = append(args, filter.MinMagnitude)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list scenarios")
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		err := rows.Scan(&r.ID, &r.Type, &r.Magnitude, &r.Epicenter.Lat, &r.Epicenter.Lon,
			&r.DepthKm, &r.AffectedRoads, &r.AffectedBridges, &r.MeanDamage, &r.MaxDamage,
			&r.CreatedAt)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan scenario")
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list scenarios iterate")
}

func (s *PostgresStore) DeleteScenario(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM scenarios WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete scenario %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: scenario %s", id)
	}
	return nil
}

// SaveFleet replaces the persisted fleet in one transaction.
func (s *PostgresStore) SaveFleet(ctx context.Context, resources []model.Resource) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin fleet tx")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM fleet`); err != nil {
		return eris.Wrap(err, "postgres: clear fleet")
	}
	for _, r := range resources {
		_, err := tx.Exec(ctx,
			`INSERT INTO fleet (id, resource_type, node_id, lat, lon, status, target_zone)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			r.ID, string(r.Type), r.NodeID, r.Location.Lat, r.Location.Lon,
			string(r.Status), r.TargetZone,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert resource %s", r.ID)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit fleet")
}

func (s *PostgresStore) LoadFleet(ctx context.Context) ([]model.Resource, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, resource_type, node_id, lat, lon, status, target_zone FROM fleet ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load fleet")
	}
	defer rows.Close()

	var resources []model.Resource
	for rows.Next() {
		var r model.Resource
		var typ, status string
		err := rows.Scan(&r.ID, &typ, &r.NodeID, &r.Location.Lat, &r.Location.Lon, &status, &r.TargetZone)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan resource")
		}
		r.Type = model.ResourceType(typ)
		r.Status = model.ResourceStatus(status)
		resources = append(resources, r)
	}
	return resources, eris.Wrap(rows.Err(), "postgres: load fleet iterate")
}
