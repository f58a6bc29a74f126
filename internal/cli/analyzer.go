package cli

import (
	"context"
	"fmt"

	"nudgify/internal/backend"
	"nudgify/internal/categorize"
	"nudgify/internal/config"
	applog "nudgify/internal/log"
	"nudgify/internal/nudge"
	"nudgify/internal/services"
)

// NewAnalyzer builds the analysis pipeline described by cfg, attaching the
// configured spreadsheet source when there is one.
func NewAnalyzer(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*services.Analyzer, error) {
	opts := []services.Option{services.WithLogger(logger.WithComponent(applog.ComponentAnalyzer))}

	sourceCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	source, err := backend.NewFactory(logger.WithComponent(applog.ComponentSheets).Slog()).CreateSource(ctx, sourceCfg)
	if err != nil {
		return nil, fmt.Errorf("initialize sheets source: %w", err)
	}
	if source != nil {
		opts = append(opts, services.WithSheets(source))
	}

	engine := nudge.Default(cfg.Thresholds())
	return services.NewAnalyzer(categorize.Default(), engine, opts...), nil
}
