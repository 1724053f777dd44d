package opco

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/teleconseil/prospect-cli/internal/links"
)

// Lookup is the authoritative OPCO/IDCC source, implemented by
// pkg/francecompetences. An error means "no answer", never a hard failure.
type Lookup interface {
	Lookup(ctx context.Context, siret string) (opco, idcc string, err error)
}

// Resolver cascades through the available sources for a company's
// training-fund affiliation:
//
//  1. France Compétences by SIRET (when the identifier is usable)
//  2. static APE→IDCC→OPCO tables
//  3. give up, returning empty strings
//
// Each tier only runs when the previous one produced nothing.
type Resolver struct {
	lookup Lookup // nil disables tier 1
	tables *Tables
}

// NewResolver builds a resolver over the given tables and optional
// authoritative lookup.
func NewResolver(tables *Tables, lookup Lookup) *Resolver {
	return &Resolver{lookup: lookup, tables: tables}
}

// Resolve returns the OPCO name and IDCC code for a company, either of
// which may be empty. It never fails: lookup errors are logged and the
// cascade falls through to the static tables.
func (r *Resolver) Resolve(ctx context.Context, apeCode, siret string) (string, string) {
	apeCode = strings.TrimSpace(apeCode)
	siret = strings.TrimSpace(siret)

	if r.lookup != nil && len(siret) >= 9 && links.IsDigits(siret) {
		opco, idcc, err := r.lookup.Lookup(ctx, siret)
		if err != nil {
			zap.L().Debug("opco: france compétences lookup failed",
				zap.String("siret", siret),
				zap.Error(err),
			)
		} else if opco != "" || idcc != "" {
			if opco == "" && idcc != "" {
				opco = r.tables.OPCOForIDCC(idcc)
			}
			return opco, idcc
		}
	}

	if apeCode != "" {
		if idcc := r.tables.IDCCForAPE(apeCode); idcc != "" {
			return r.tables.OPCOForIDCC(idcc), idcc
		}
	}

	return "", ""
}
