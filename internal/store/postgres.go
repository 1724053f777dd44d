package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/teleconseil/prospect-cli/internal/db"
	"github.com/teleconseil/prospect-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
	now  func() time.Time
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
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

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, now: time.Now}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, now: time.Now}
}

// WithNow overrides the clock used for modification stamps.
func (s *PostgresStore) WithNow(now func() time.Time) *PostgresStore {
	s.now = now
	return s
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS annotations (
	siret             TEXT PRIMARY KEY,
	statut            TEXT NOT NULL DEFAULT 'A traiter',
	date_modification TEXT NOT NULL DEFAULT '',
	funbooster        TEXT NOT NULL DEFAULT '',
	observation       TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_annotations_statut ON annotations(statut);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, siret string) (model.Annotation, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT siret, statut, date_modification, funbooster, observation FROM annotations WHERE siret = $1`,
		siret,
	)
	return scanPgAnnotation(row, siret)
}

func (s *PostgresStore) All(ctx context.Context) (map[string]model.Annotation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT siret, statut, date_modification, funbooster, observation FROM annotations`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list annotations")
	}
	defer rows.Close()

	annotations := make(map[string]model.Annotation)
	for rows.Next() {
		var a model.Annotation
		if err := rows.Scan(&a.Siret, &a.Status, &a.LastModified, &a.Funbooster, &a.Observation); err != nil {
			return nil, eris.Wrap(err, "postgres: scan annotation")
		}
		annotations[a.Siret] = a
	}
	return annotations, eris.Wrap(rows.Err(), "postgres: list annotations iterate")
}

func (s *PostgresStore) Upsert(ctx context.Context, siret string, patch AnnotationPatch) (model.Annotation, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Annotation{}, eris.Wrap(err, "postgres: begin upsert")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	row := tx.QueryRow(ctx,
		`SELECT siret, statut, date_modification, funbooster, observation FROM annotations WHERE siret = $1 FOR UPDATE`,
		siret,
	)
	ann, err := scanPgAnnotation(row, siret)
	if err != nil {
		return model.Annotation{}, err
	}

	ann, statusChanged := apply(ann, patch)
	if statusChanged {
		ann.LastModified = s.now().Format(timeLayout)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO annotations (siret, statut, date_modification, funbooster, observation)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (siret) DO UPDATE SET
		   statut = excluded.statut,
		   date_modification = excluded.date_modification,
		   funbooster = excluded.funbooster,
		   observation = excluded.observation`,
		ann.Siret, ann.Status, ann.LastModified, ann.Funbooster, ann.Observation,
	)
	if err != nil {
		return model.Annotation{}, eris.Wrapf(err, "postgres: upsert annotation %s", siret)
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Annotation{}, eris.Wrap(err, "postgres: commit upsert")
	}
	return ann, nil
}

func scanPgAnnotation(row pgx.Row, siret string) (model.Annotation, error) {
	var a model.Annotation
	err := row.Scan(&a.Siret, &a.Status, &a.LastModified, &a.Funbooster, &a.Observation)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.DefaultAnnotation(siret), nil
	}
	if err != nil {
		return model.Annotation{}, eris.Wrapf(err, "postgres: scan annotation %s", siret)
	}
	return a, nil
}
