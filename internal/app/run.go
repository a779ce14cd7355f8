package app

import (
	"context"
	"fmt"

	"github.com/vk/gridlink/internal/ctxlog"
	"github.com/vk/gridlink/internal/report"
)

// Run resolves the bundles and, if configured, the configuration, then
// writes the report.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	res, err := a.resolver.Resolve(ctx, a.options())
	if err != nil {
		return fmt.Errorf("resolution failed: %w", err)
	}

	if err := report.Write(a.outW, res, a.config.Output); err != nil {
		return err
	}
	a.logger.Debug("App.Run method finished.")
	return nil
}

// Bundles resolves only the bundles and writes their load order and
// closure.
func (a *App) Bundles(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Bundles method started.")

	res, err := a.resolver.ResolveBundles(ctx, a.options())
	if err != nil {
		return fmt.Errorf("bundle resolution failed: %w", err)
	}
	return report.Write(a.outW, res, a.config.Output)
}
