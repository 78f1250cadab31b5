package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UKHgit/meet-point/api/httpapi"
	"github.com/UKHgit/meet-point/api/ws"
	"github.com/UKHgit/meet-point/config"
	"github.com/UKHgit/meet-point/internal/chat"
	"github.com/UKHgit/meet-point/internal/port"
	"github.com/UKHgit/meet-point/internal/presence"
	"github.com/UKHgit/meet-point/internal/relay"
	"github.com/UKHgit/meet-point/pkg/logger"
)

// App wires the chat core to its transports and optional externals.
// Without NATS and Redis URLs the process is fully self-contained.
type App struct {
	cfg        config.Config
	logger     logger.Logger
	hub        *chat.Hub
	roster     port.Roster
	relay      *relay.Relay
	httpServer *http.Server
	rootCtx    context.Context
	cancel     context.CancelFunc
}

// NewApp initializes and connects all application dependencies.
func NewApp(cfg config.Config) (*App, error) {
	baseLogger := logger.NewLogger(cfg.LogLevel, cfg.LogFile)
	rootCtx := logger.NewContext(context.Background(), baseLogger)
	rootCtx, rootCancel := context.WithCancel(rootCtx)

	log := logger.FromContext(rootCtx).WithModule("app")
	log.Infof("Initializing application components...")

	var roster port.Roster
	if cfg.RedisURL != "" {
		redisRoster, err := presence.NewRedisRoster(cfg.RedisURL)
		if err != nil {
			rootCancel()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		roster = redisRoster
	} else {
		roster = presence.NewMemoryRoster()
	}

	registry := chat.NewRegistry(cfg.HistoryCapacity, cfg.TypingWindow)
	hub := chat.NewHub(baseLogger, registry, roster)

	var natsRelay *relay.Relay
	if cfg.NATSURL != "" {
		r, err := relay.NewRelay(cfg.NATSURL, baseLogger)
		if err != nil {
			rootCancel()
			_ = roster.Close()
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		if err := r.Subscribe(hub.DeliverRemote); err != nil {
			rootCancel()
			r.Close()
			_ = roster.Close()
			return nil, err
		}
		hub.SetRelay(r)
		natsRelay = r
	}

	httpServer := createHTTPServer(rootCtx, cfg.Port, hub)

	app := &App{
		cfg:        cfg,
		logger:     log,
		hub:        hub,
		roster:     roster,
		relay:      natsRelay,
		httpServer: httpServer,
		rootCtx:    rootCtx,
		cancel:     rootCancel,
	}

	log.Infof("Application initialized successfully")
	return app, nil
}

func createHTTPServer(ctx context.Context, port int, hub *chat.Hub) *http.Server {
	mux := http.NewServeMux()
	ws.RegisterRoutes(mux, ws.WSConfig{Hub: hub, RootCtx: ctx})
	httpapi.RegisterRoutes(mux, httpapi.APIConfig{Hub: hub, RootCtx: ctx})

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
}

// Start runs the application until a shutdown signal arrives or the
// listener fails. A bind failure is returned to the caller so the
// process can exit non-zero.
func (a *App) Start() error {
	log := a.logger.WithFields(map[string]interface{}{
		"port": a.cfg.Port,
	})
	log.Infof("Starting application server")

	serveErr := make(chan error, 1)
	go func() {
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		log.Errorf("HTTP server failed: %v", err)
		_ = a.Stop()
		return err
	case sig := <-quit:
		log.WithFields(map[string]interface{}{
			"signal": sig.String(),
		}).Warnf("Received shutdown signal")
		return a.Stop()
	}
}

// Stop gracefully shuts down the server and closes all connections.
func (a *App) Stop() error {
	a.logger.Infof("Initiating graceful shutdown")

	a.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Errorf("HTTP server shutdown error: %v", err)
	}

	if a.relay != nil {
		a.logger.Infof("Closing NATS relay")
		a.relay.Close()
	}

	a.logger.Infof("Closing roster")
	if err := a.roster.Close(); err != nil {
		a.logger.Errorf("roster close error: %v", err)
	}

	a.logger.Infof("Shutdown completed successfully")
	return nil
}
