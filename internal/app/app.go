package app

import (
	"io"
	"log/slog"

	"github.com/vk/gridlink/internal/hcl"
	"github.com/vk/gridlink/internal/registry"
	"github.com/vk/gridlink/internal/resolver"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	registry *registry.Registry
	resolver *resolver.Resolver
}

// NewApp is the constructor for the main application. Reports go to outW,
// logs to logW. It returns a fully initialized App instance, including its
// own isolated logger and registry. Without modules, the compiled core
// modules are registered.
func NewApp(outW, logW io.Writer, cfg *Config, docs resolver.Documents, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	// Create and populate the registry with compiled processors.
	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		logger.Debug("Registering module.", "bundle", mod.BundleID())
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(modules))

	return &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		registry: reg,
		resolver: resolver.New(docs, reg),
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

func (a *App) options() resolver.Options {
	return resolver.Options{
		Bundles:         a.config.Bundles,
		Root:            a.config.Root,
		CoreVersion:     a.config.coreVersion,
		SpecCacheSize:   a.config.SpecCacheSize,
		LoadConcurrency: a.config.LoadConcurrency,
		ConfigPaths:     a.config.ConfigPaths,
		DescriptorFile:  hcl.DescriptorFile,
	}
}
