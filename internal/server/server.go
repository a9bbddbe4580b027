package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"jsonlkit/internal/config"
	"jsonlkit/internal/httpapi"
	"jsonlkit/internal/store"
)

// Module exposes fx providers for the HTTP server.
var Module = fx.Options(
	fx.Provide(NewEngine, NewHTTPServer),
	fx.Invoke(RegisterLifecycle),
)

// Params bundles dependencies for HTTP lifecycle registration.
type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Server    *http.Server
	Store     *store.Store
	Logger    *slog.Logger
}

// NewEngine constructs the gin engine with registered routes.
func NewEngine(handler *httpapi.Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	handler.Register(r)
	return r
}

// NewHTTPServer binds the engine to the configured address and timeouts.
func NewHTTPServer(cfg *config.Config, engine *gin.Engine) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout.Duration,
		WriteTimeout:      cfg.Server.WriteTimeout.Duration,
	}
}

// RegisterLifecycle wires the HTTP server and dataset cleanup into the fx lifecycle.
func RegisterLifecycle(p Params) {
	var cleanupCancel context.CancelFunc

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Logger.Info("starting HTTP server", slog.String("addr", p.Server.Addr))
			cleanupCtx, cancel := context.WithCancel(context.Background())
			cleanupCancel = cancel
			p.Store.StartCleanup(cleanupCtx)
			go func() {
				if err := p.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Error("http server failure", slog.Any("error", err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			p.Logger.Info("stopping HTTP server")
			if cleanupCancel != nil {
				cleanupCancel()
			}
			return p.Server.Shutdown(ctx)
		},
	})
}
