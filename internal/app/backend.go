package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/odyssey-erp/odyssey-wms/internal/platform/db"
	"github.com/odyssey-erp/odyssey-wms/internal/rbac"
	"github.com/odyssey-erp/odyssey-wms/internal/warehouse/dashboard"
	"github.com/odyssey-erp/odyssey-wms/internal/warehouse/store/memory"
	"github.com/odyssey-erp/odyssey-wms/internal/warehouse/store/odoo"
	"github.com/odyssey-erp/odyssey-wms/internal/warehouse/store/postgres"
	"github.com/odyssey-erp/odyssey-wms/internal/warehouse/zones"
)

// Backend bundles the storage-facing dependencies of one WMS_BACKEND.
type Backend struct {
	Name       string
	Repository dashboard.Repository
	Registry   zones.Registry
	Directory  rbac.Directory
	close      func()
}

// Close releases backend resources.
func (b *Backend) Close() {
	if b != nil && b.close != nil {
		b.close()
	}
}

// OpenBackend connects the store selected by cfg.Backend.
func OpenBackend(ctx context.Context, cfg *Config, logger *slog.Logger) (*Backend, error) {
	switch cfg.Backend {
	case BackendPostgres:
		pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns, ApplicationName: "odyssey-wms"})
		if err != nil {
			return nil, err
		}
		st := postgres.New(pool)
		return &Backend{
			Name:       BackendPostgres,
			Repository: st,
			Registry:   st,
			Directory:  rbac.NewPostgresDirectory(pool),
			close:      pool.Close,
		}, nil

	case BackendOdoo:
		client := odoo.NewClient(odoo.Config{
			URL:      cfg.OdooURL,
			Database: cfg.OdooDB,
			Username: cfg.OdooUsername,
			Password: cfg.OdooPassword,
			Timeout:  cfg.OdooTimeout,
		})
		if _, err := client.Authenticate(ctx); err != nil {
			logger.Warn("odoo authenticate", slog.Any("error", err))
		}
		st := odoo.New(client)
		return &Backend{
			Name:       BackendOdoo,
			Repository: st,
			Registry:   st,
			Directory:  odoo.NewDirectory(client),
		}, nil

	case BackendMemory:
		st := memory.New()
		if cfg.MemoryFixture != "" {
			f, err := os.Open(cfg.MemoryFixture)
			if err != nil {
				return nil, fmt.Errorf("open memory fixture: %w", err)
			}
			defer f.Close()
			if err := st.Load(f); err != nil {
				return nil, fmt.Errorf("%s: %w", cfg.MemoryFixture, err)
			}
		}
		return &Backend{
			Name:       BackendMemory,
			Repository: st,
			Registry:   st,
			Directory:  st,
		}, nil
	}
	return nil, fmt.Errorf("unknown WMS_BACKEND %q", cfg.Backend)
}

// DashboardService builds the dashboard service over b.
func (b *Backend) DashboardService(cfg *Config, logger *slog.Logger) *dashboard.Service {
	resolver := zones.NewResolver(b.Registry, nil, logger)
	return dashboard.NewService(b.Repository, resolver, logger, dashboard.Options{
		DetailLimit:       cfg.DashboardDetailLimit,
		StaffExpectedSwap: cfg.DashboardStaffExpectedSwap,
	})
}
