package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/procurewatch/bomrisk/internal/enrich"
	"github.com/procurewatch/bomrisk/internal/similarity"
	"github.com/procurewatch/bomrisk/internal/store"
	"github.com/procurewatch/bomrisk/pkg/digikey"
	"github.com/procurewatch/bomrisk/pkg/mouser"
)

// openStore opens the configured store backend and runs migrations.
func openStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite", "":
		st, err = store.NewSQLite(cfg.Store.Path)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// newCalculator builds the similarity calculator, loading a registry
// override file when configured.
func newCalculator() (*similarity.Calculator, error) {
	if cfg.Similarity.RegistryPath == "" {
		return similarity.NewCalculator(nil), nil
	}
	reg, err := similarity.LoadRegistry(cfg.Similarity.RegistryPath)
	if err != nil {
		return nil, err
	}
	return similarity.NewCalculator(reg), nil
}

// newEnricher wires the vendor clients, store, and calculator together.
// Mouser is optional and only used when an API key is configured.
func newEnricher(st store.Store) (*enrich.Enricher, error) {
	if err := cfg.Validate("digikey"); err != nil {
		return nil, err
	}

	dk := digikey.NewClient(cfg.DigiKey.ClientID, cfg.DigiKey.ClientSecret,
		digikey.WithBaseURL(cfg.DigiKey.BaseURL))

	var mo enrich.MouserAPI
	if cfg.Mouser.APIKey != "" {
		mo = mouser.NewClient(cfg.Mouser.APIKey, mouser.WithBaseURL(cfg.Mouser.BaseURL))
	}

	calc, err := newCalculator()
	if err != nil {
		return nil, err
	}

	return enrich.New(st, dk, mo, calc, enrich.Options{
		CacheTTL:      time.Duration(cfg.Enrich.CacheTTLHours) * time.Hour,
		MaxCandidates: cfg.Enrich.MaxCandidates,
		MaxConcurrent: cfg.Enrich.MaxConcurrent,
		DigiKeyRate:   cfg.DigiKey.RatePerSec,
		MouserRate:    cfg.Mouser.RatePerSec,
	}), nil
}
