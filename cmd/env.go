package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/vsatlink/termtrack/internal/boundary"
	"github.com/vsatlink/termtrack/internal/config"
	"github.com/vsatlink/termtrack/internal/store"
)

// loadBoundaryIndex builds the boundary index from the configured dataset.
func loadBoundaryIndex(cfg *config.Config) (*boundary.Index, error) {
	switch cfg.Boundary.Format {
	case "shapefile":
		opts := boundary.DefaultShapefileOptions()
		if cfg.Boundary.StateField != "" {
			opts.StateField = cfg.Boundary.StateField
		}
		if cfg.Boundary.DistrictField != "" {
			opts.DistrictField = cfg.Boundary.DistrictField
		}
		return boundary.LoadShapefile(cfg.Boundary.Path, opts)
	default:
		return boundary.LoadGeoJSON(cfg.Boundary.Path)
	}
}

// openStore opens the configured telemetry store, or returns nil for the
// "none" driver.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case "none":
		return nil, nil
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.Pool)
	case "sqlite":
		return store.NewSQLite(cfg.Store.Path)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
