// Package enrich runs the record resolution pipeline: registry search,
// deep-link generation, best-effort phone and training-fund lookups, and
// annotation merging.
package enrich

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/teleconseil/prospect-cli/internal/links"
	"github.com/teleconseil/prospect-cli/internal/model"
)

// DefaultLimit caps a search when the caller does not set one.
const DefaultLimit = 300

// ErrMissingCriteria is returned before any network call when the search
// criteria are incomplete.
var ErrMissingCriteria = eris.New("enrich: sector and department are required")

// Registry searches the business registry. Implemented by pkg/sirene.
type Registry interface {
	Search(ctx context.Context, sector, department string, limit int) []model.CompanyRecord
	Demo() bool
}

// Directory resolves phone numbers. Implemented by pkg/pagesjaunes.
type Directory interface {
	LookupPhone(ctx context.Context, name, address string) (string, bool)
}

// Funds resolves training-fund affiliations. Implemented by internal/opco.
type Funds interface {
	Resolve(ctx context.Context, apeCode, siret string) (opco, idcc string)
}

// Annotations exposes the stored annotations for merging.
type Annotations interface {
	All(ctx context.Context) (map[string]model.Annotation, error)
}

// Enricher drives one search end to end. Directory and funds are optional:
// a nil resolver skips that lookup, leaving the deep links as the only
// pointer to the information.
type Enricher struct {
	registry  Registry
	directory Directory
	funds     Funds
	store     Annotations
}

// New builds an Enricher. directory and funds may be nil.
func New(registry Registry, store Annotations, directory Directory, funds Funds) *Enricher {
	return &Enricher{
		registry:  registry,
		directory: directory,
		funds:     funds,
		store:     store,
	}
}

// Demo reports whether results will come from the registry's demo mode.
func (e *Enricher) Demo() bool {
	return e.registry.Demo()
}

// Run searches for active establishments and enriches each in turn.
// Records are processed sequentially: the upstream APIs are rate-limited
// and a typical search yields a few hundred records at most.
func (e *Enricher) Run(ctx context.Context, sector, department string, limit int) ([]model.EnrichedRecord, error) {
	sector = strings.TrimSpace(sector)
	department = strings.TrimSpace(department)
	if sector == "" || department == "" {
		return nil, ErrMissingCriteria
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	records := e.registry.Search(ctx, sector, department, limit)

	annotations := e.loadAnnotations(ctx)

	enriched := make([]model.EnrichedRecord, 0, len(records))
	for _, rec := range records {
		if rec.Status != model.StatusActive {
			continue
		}

		er := model.EnrichedRecord{CompanyRecord: rec}
		er.PappersURL = links.PappersURL(rec.Siren)
		er.PagesJaunesURL = links.PagesJaunesURL(rec.Name, rec.Address)
		er.OpcoURL = links.OpcoURL(rec.Siret)

		// Demo records already carry a phone; don't overwrite it.
		if e.directory != nil && rec.Phone == "" {
			if phone, ok := e.directory.LookupPhone(ctx, rec.Name, rec.Address); ok {
				er.Phone = phone
			} else {
				zap.L().Debug("enrich: no phone found",
					zap.String("siret", rec.Siret),
					zap.String("name", rec.Name),
				)
			}
		}

		if e.funds != nil {
			er.Opco, er.IDCC = e.funds.Resolve(ctx, rec.Sector, rec.Siret)
		}

		if ann, ok := annotations[rec.Siret]; ok {
			er.Annotation = ann
		} else {
			er.Annotation = model.DefaultAnnotation(rec.Siret)
		}

		enriched = append(enriched, er)
	}
	return enriched, nil
}

// loadAnnotations fetches the stored annotations. A store failure degrades
// to defaults rather than aborting the search.
func (e *Enricher) loadAnnotations(ctx context.Context) map[string]model.Annotation {
	if e.store == nil {
		return nil
	}
	annotations, err := e.store.All(ctx)
	if err != nil {
		zap.L().Warn("enrich: loading annotations failed", zap.Error(err))
		return nil
	}
	return annotations
}
