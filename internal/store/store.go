// Package store persists operator annotations keyed by SIRET.
//
// Company records themselves are rebuilt on every registry query and never
// stored; annotations are the only durable state of the tool.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/teleconseil/prospect-cli/internal/model"
)

// timeLayout is the display format stamped into date_modification.
const timeLayout = "2006-01-02 15:04"

// Config selects and configures the persistence backend.
type Config struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	// Path is the SQLite database file.
	Path string `yaml:"path" mapstructure:"path"`
	// URL is the Postgres connection string.
	URL  string     `yaml:"url" mapstructure:"url"`
	Pool PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// AnnotationPatch carries a partial annotation update. Nil fields keep
// their stored value.
type AnnotationPatch struct {
	Status      *string `json:"statut,omitempty"`
	Funbooster  *string `json:"funbooster,omitempty"`
	Observation *string `json:"observation,omitempty"`
}

// Store defines the annotation persistence interface.
type Store interface {
	// Get returns the annotation for a SIRET. A SIRET that was never
	// annotated yields the default annotation, not an error.
	Get(ctx context.Context, siret string) (model.Annotation, error)

	// All returns every stored annotation keyed by SIRET.
	All(ctx context.Context) (map[string]model.Annotation, error)

	// Upsert applies a patch to the annotation for a SIRET, creating it if
	// needed, and returns the resulting state. The modification date is
	// stamped only when the status actually changes.
	Upsert(ctx context.Context, siret string, patch AnnotationPatch) (model.Annotation, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates the store selected by cfg.Driver and runs migrations.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "", "sqlite":
		s, err = NewSQLite(cfg.Path)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.URL, &cfg.Pool)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}

// apply folds a patch into an annotation and reports whether the status
// changed. Shared by both backends so they stamp dates identically.
func apply(ann model.Annotation, patch AnnotationPatch) (model.Annotation, bool) {
	statusChanged := patch.Status != nil && *patch.Status != ann.Status
	if patch.Status != nil {
		ann.Status = *patch.Status
	}
	if patch.Funbooster != nil {
		ann.Funbooster = *patch.Funbooster
	}
	if patch.Observation != nil {
		ann.Observation = *patch.Observation
	}
	return ann, statusChanged
}
