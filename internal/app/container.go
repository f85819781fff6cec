// Package app wires application services with infrastructure adapters.
package app

import (
	"context"

	"github.com/parley-ai/parley/internal/domain"
	"github.com/parley-ai/parley/internal/infrastructure/config"
	"github.com/parley-ai/parley/internal/infrastructure/memory"
	"github.com/parley-ai/parley/internal/nlp"
	"github.com/parley-ai/parley/internal/pkg/logger"
	"github.com/parley-ai/parley/internal/ports"
	"github.com/parley-ai/parley/internal/services"
)

// Container holds the constructed dependency graph.
type Container struct {
	Config domain.Config
	Parser *nlp.Parser
	Engine *services.ContextEngine
	Store  *memory.Store
	Logger ports.Logger
}

// BuildContainer constructs the dependency graph.
func BuildContainer(ctx context.Context, verbose bool) (*Container, error) {
	cfgLoader := config.NewFileLoader("")
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		return nil, err
	}

	var log ports.Logger
	if zl, err := logger.NewZap(verbose || cfg.Logging.Verbose); err == nil {
		log = zl
	} else {
		log = logger.NewStd(verbose || cfg.Logging.Verbose)
	}

	table := nlp.DefaultPatternTable()
	if cfg.Patterns.File != "" {
		loaded, err := nlp.LoadPatternTable(cfg.Patterns.File)
		if err != nil {
			return nil, err
		}
		table = loaded
	}
	parser := nlp.NewParser(table)

	key, err := memory.LoadOrCreateKey(cfg.Storage.KeyEnvVar, cfg.Storage.KeyFile)
	if err != nil {
		return nil, err
	}
	store, err := memory.Open(cfg.Storage.Path, key)
	if err != nil {
		return nil, err
	}

	engine := services.NewContextEngine(parser, store, store, store, log)

	return &Container{
		Config: cfg,
		Parser: parser,
		Engine: engine,
		Store:  store,
		Logger: log,
	}, nil
}

// Close releases container resources.
func (c *Container) Close() error {
	if c.Store != nil {
		return c.Store.Close()
	}
	return nil
}
