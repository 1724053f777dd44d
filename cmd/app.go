package main

import (
	"context"

	"github.com/teleconseil/prospect-cli/internal/config"
	"github.com/teleconseil/prospect-cli/internal/enrich"
	"github.com/teleconseil/prospect-cli/internal/opco"
	"github.com/teleconseil/prospect-cli/internal/store"
	"github.com/teleconseil/prospect-cli/pkg/francecompetences"
	"github.com/teleconseil/prospect-cli/pkg/pagesjaunes"
	"github.com/teleconseil/prospect-cli/pkg/sirene"
)

// appEnv wires the resolvers and the store for one command invocation.
type appEnv struct {
	cfg      *config.Config
	store    store.Store
	enricher *enrich.Enricher
}

// initApp builds the application environment from the loaded config.
func initApp(ctx context.Context) (*appEnv, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	registry := sirene.NewClient(cfg.Sirene.APIKey,
		sirene.WithBaseURL(cfg.Sirene.BaseURL),
	)

	var directory enrich.Directory
	if cfg.Search.Phones {
		directory = pagesjaunes.NewClient(cfg.PagesJaunes.APIKey,
			pagesjaunes.WithBaseURL(cfg.PagesJaunes.BaseURL),
		)
	}

	var funds enrich.Funds
	if cfg.Search.Opco {
		tables, err := opco.LoadTables()
		if err != nil {
			st.Close() //nolint:errcheck
			return nil, err
		}
		lookup := francecompetences.NewClient(
			francecompetences.WithBaseURL(cfg.Opco.BaseURL),
		)
		funds = opco.NewResolver(tables, lookup)
	}

	return &appEnv{
		cfg:      cfg,
		store:    st,
		enricher: enrich.New(registry, st, directory, funds),
	}, nil
}

func (e *appEnv) Close() {
	e.store.Close() //nolint:errcheck
}
