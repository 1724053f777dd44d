package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/teleconseil/prospect-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
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
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// WithNow overrides the clock used for modification stamps.
func (s *SQLiteStore) WithNow(now func() time.Time) *SQLiteStore {
	s.now = now
	return s
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS annotations (
	siret             TEXT PRIMARY KEY,
	statut            TEXT NOT NULL DEFAULT 'A traiter',
	date_modification TEXT NOT NULL DEFAULT '',
	funbooster        TEXT NOT NULL DEFAULT '',
	observation       TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_annotations_statut ON annotations(statut);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, siret string) (model.Annotation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT siret, statut, date_modification, funbooster, observation FROM annotations WHERE siret = ?`,
		siret,
	)
	return scanAnnotation(row, siret)
}

func (s *SQLiteStore) All(ctx context.Context) (map[string]model.Annotation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT siret, statut, date_modification, funbooster, observation FROM annotations`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list annotations")
	}
	defer rows.Close()

	annotations := make(map[string]model.Annotation)
	for rows.Next() {
		var a model.Annotation
		if err := rows.Scan(&a.Siret, &a.Status, &a.LastModified, &a.Funbooster, &a.Observation); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan annotation")
		}
		annotations[a.Siret] = a
	}
	return annotations, eris.Wrap(rows.Err(), "sqlite: list annotations iterate")
}

func (s *SQLiteStore) Upsert(ctx context.Context, siret string, patch AnnotationPatch) (model.Annotation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Annotation{}, eris.Wrap(err, "sqlite: begin upsert")
	}
	defer tx.Rollback() //nolint:errcheck

	row := tx.QueryRowContext(ctx,
		`SELECT siret, statut, date_modification, funbooster, observation FROM annotations WHERE siret = ?`,
		siret,
	)
	ann, err := scanAnnotation(row, siret)
	if err != nil {
		return model.Annotation{}, err
	}

	ann, statusChanged := apply(ann, patch)
	if statusChanged {
		ann.LastModified = s.now().Format(timeLayout)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO annotations (siret, statut, date_modification, funbooster, observation)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(siret) DO UPDATE SET
		   statut = excluded.statut,
		   date_modification = excluded.date_modification,
		   funbooster = excluded.funbooster,
		   observation = excluded.observation`,
		ann.Siret, ann.Status, ann.LastModified, ann.Funbooster, ann.Observation,
	)
	if err != nil {
		return model.Annotation{}, eris.Wrapf(err, "sqlite: upsert annotation %s", siret)
	}
	if err := tx.Commit(); err != nil {
		return model.Annotation{}, eris.Wrap(err, "sqlite: commit upsert")
	}
	return ann, nil
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanAnnotation(row scannable, siret string) (model.Annotation, error) {
	var a model.Annotation
	err := row.Scan(&a.Siret, &a.Status, &a.LastModified, &a.Funbooster, &a.Observation)
	if err == sql.ErrNoRows {
		return model.DefaultAnnotation(siret), nil
	}
	if err != nil {
		return model.Annotation{}, eris.Wrapf(err, "sqlite: scan annotation %s", siret)
	}
	return a, nil
}
