package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	servernet "lifeworld/server/internal/net"
	"lifeworld/server/internal/net/ws"
	"lifeworld/server/internal/sim"
	"lifeworld/server/internal/store"
	"lifeworld/server/internal/store/redisstore"
	"lifeworld/server/internal/telemetry"
	"lifeworld/server/logging"
	loggingSinks "lifeworld/server/logging/sinks"
)

// Run starts the world and serves it until ctx is cancelled or the process
// receives SIGINT or SIGTERM. The final layout is saved before Run returns.
func Run(ctx context.Context, cfg Config) error {
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	fallbackLogger := log.Default()
	if provider, ok := telemetryLogger.(interface{ StandardLogger() *log.Logger }); ok {
		if candidate := provider.StandardLogger(); candidate != nil {
			fallbackLogger = candidate
		}
	}

	logConfig := logging.DefaultConfig()
	sinks := []logging.NamedSink{
		{Name: "console", Sink: loggingSinks.NewConsole(os.Stdout)},
	}
	if cfg.LogJSONPath != "" {
		file, err := os.OpenFile(cfg.LogJSONPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open json log %s: %w", cfg.LogJSONPath, err)
		}
		defer file.Close()
		logConfig.EnabledSinks = append(logConfig.EnabledSinks, "json")
		logConfig.JSON.FilePath = cfg.LogJSONPath
		sinks = append(sinks, logging.NamedSink{Name: "json", Sink: loggingSinks.NewJSON(file, logConfig.JSON.FlushInterval)})
	}

	router, err := logging.NewRouter(logConfig, logging.SystemClock{}, fallbackLogger, sinks)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		if cerr := router.Close(context.Background()); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	metrics := &logging.Metrics{}

	snapshots := cfg.Store
	if snapshots == nil {
		snapshots = openStore(ctx, cfg, telemetryLogger)
	}
	if closer, ok := snapshots.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	world := sim.NewWorld(cfg.World, sim.WorldDeps{
		Store:     snapshots,
		Logger:    telemetryLogger,
		Publisher: router,
		Metrics:   telemetry.WrapMetrics(metrics),
	})
	hub := ws.NewHub(ws.HubConfig{
		Logger:    telemetryLogger,
		Publisher: router,
		Metrics:   telemetry.WrapMetrics(metrics),
	})
	world.Subscribe(hub)

	handler := servernet.NewHTTPHandler(world, hub, servernet.HTTPHandlerConfig{
		Logger:        telemetryLogger,
		Publisher:     router,
		Observability: cfg.Observability,
		Router:        router,
		Metrics:       metrics,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := world.Start(ctx); err != nil {
		return fmt.Errorf("failed to start world: %w", err)
	}

	listener, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		shutdownWorld(world, cfg, telemetryLogger)
		return fmt.Errorf("failed to listen on %s: %w", cfg.Addr(), err)
	}

	srv := &http.Server{Handler: handler}
	telemetryLogger.Printf("game of life server listening on ws://%s/ws", listener.Addr())

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		telemetryLogger.Printf("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		hub.CloseAll("server shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			telemetryLogger.Printf("http shutdown: %v", err)
		}
		return nil
	})

	serveErr := group.Wait()
	shutdownWorld(world, cfg, telemetryLogger)
	return serveErr
}

func openStore(ctx context.Context, cfg Config, logger telemetry.Logger) store.Store {
	if cfg.Redis.Addr == "" {
		logger.Printf("REDIS_ADDR not set, keeping the world in memory")
		return store.NewMemory()
	}
	redis := redisstore.New(cfg.Redis)
	if err := redis.Ping(ctx); err != nil {
		logger.Printf("redis at %s unreachable, continuing: %v", cfg.Redis.Addr, err)
	}
	return redis
}

func shutdownWorld(world *sim.World, cfg Config, logger telemetry.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := world.Shutdown(ctx); err != nil {
		logger.Printf("world exit error: %v", err)
	}
}
