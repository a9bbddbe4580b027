package app

import (
	"context"
	"testing"

	"go.uber.org/fx"

	"jsonlkit/internal/config"
)

func TestOptionsGraphIsComplete(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.DataDir = t.TempDir()
	if err := fx.ValidateApp(Options(cfg, NewLogger(cfg))); err != nil {
		t.Fatalf("invalid dependency graph: %v", err)
	}
}

func TestBuildStartsAndStops(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.DataDir = t.TempDir()
	cfg.Server.Port = 0
	cfg.Log.Level = "error"

	application := Build(cfg)
	if err := application.Err(); err != nil {
		t.Fatalf("build app: %v", err)
	}
	ctx := context.Background()
	if err := application.Start(ctx); err != nil {
		t.Fatalf("start app: %v", err)
	}
	if err := application.Stop(ctx); err != nil {
		t.Fatalf("stop app: %v", err)
	}
}
