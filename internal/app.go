// Package internal wires the application together.
package internal

import (
	"fmt"

	"github.com/karloscodes/cartridge"

	"vitrine/internal/config"
	"vitrine/internal/database"
)

// Application wraps cartridge.Application with vitrine-specific components
type Application struct {
	*cartridge.Application
	DBManager *database.DBManager // DB manager with migration methods
	Services  *Services
}

// NewApp creates a new application instance with default settings
func NewApp() (*Application, error) {
	return NewAppWithConfig(config.GetConfig())
}

// NewAppWithConfig creates a new application with the provided config
func NewAppWithConfig(cfg *config.Config) (*Application, error) {
	logger := cartridge.NewLogger(cfg, nil)

	dbManager := database.NewDBManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := dbManager.MigrateDatabase(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	services, err := NewServices(cfg, dbManager.GetConnection(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app, err := cartridge.NewApplication(cartridge.ApplicationOptions{
		Config:            cfg,
		Logger:            logger,
		DBManager:         dbManager,
		RouteMountFunc:    MountAppRoutes(services),
		BackgroundWorkers: []cartridge.BackgroundWorker{services.Scheduler},
	})
	if err != nil {
		services.Close()
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	return &Application{
		Application: app,
		DBManager:   dbManager,
		Services:    services,
	}, nil
}
