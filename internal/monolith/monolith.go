// Package monolith provides the application container wiring configuration,
// logging, and the multi-credential tick-stream manager together.
package monolith

import (
	"context"

	"github.com/brokerfeed/tickstream/internal/config"
	"github.com/brokerfeed/tickstream/internal/logger"
	"github.com/brokerfeed/tickstream/internal/multimanager"
)

// App is the application container providing access to shared
// infrastructure: configuration, the logger, and the running
// Multi-Credential Manager.
type App struct {
	config  *config.Config
	logger  logger.LoggerInterface
	manager *multimanager.Manager
}

// New builds an App and its Multi-Credential Manager from cfg, but does not
// start any connections; call Start for that.
func New(cfg *config.Config, log logger.LoggerInterface) (*App, error) {
	mgr, err := multimanager.New(cfg, log)
	if err != nil {
		return nil, err
	}
	return &App{config: cfg, logger: log, manager: mgr}, nil
}

// Config returns the loaded configuration.
func (a *App) Config() *config.Config { return a.config }

// Logger returns the application logger.
func (a *App) Logger() logger.LoggerInterface { return a.logger }

// Manager returns the Multi-Credential Manager.
func (a *App) Manager() *multimanager.Manager { return a.manager }

// Start opens every credential's connections in parallel.
func (a *App) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop drains every credential's connections and releases their resources.
func (a *App) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
