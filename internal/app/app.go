package app

import (
	"log/slog"
	"os"
	"runtime"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"jsonlkit/internal/config"
	"jsonlkit/internal/converter"
	"jsonlkit/internal/httpapi"
	"jsonlkit/internal/locker"
	"jsonlkit/internal/server"
	"jsonlkit/internal/store"
)

// Build constructs an fx application configured with all dependencies.
func Build(cfg *config.Config) *fx.App {
	logger := NewLogger(cfg)
	applyRuntimeTuning(logger, cfg)
	return fx.New(Options(cfg, logger))
}

// Options returns the dependency graph of the HTTP service.
func Options(cfg *config.Config, logger *slog.Logger) fx.Option {
	return fx.Options(
		fx.WithLogger(func() fxevent.Logger {
			return fxevent.NopLogger
		}),
		fx.Supply(
			cfg,
			logger,
		),
		fx.Provide(
			locker.New,
			store.New,
			converter.New,
			httpapi.NewHandler,
		),
		server.Module,
	)
}

// NewLogger returns a text logger on stderr at the configured level.
func NewLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil {
		if parsed, err := cfg.Log.SlogLevel(); err == nil {
			level = parsed
		}
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

func applyRuntimeTuning(logger *slog.Logger, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.Runtime.GOMAXPROCS > 0 {
		prev := runtime.GOMAXPROCS(cfg.Runtime.GOMAXPROCS)
		logger.Info("set GOMAXPROCS", "value", cfg.Runtime.GOMAXPROCS, "previous", prev)
	}
}
