package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/qmdx00/lifecycle"
	"github.com/rs/zerolog/log"

	"github.com/adonini/LST-onsite-availability/core"
	"github.com/adonini/LST-onsite-availability/pkg/resources"
	"github.com/adonini/LST-onsite-availability/pkg/servers"
)

func main() {
	name, version, env := "onsite-availability", "1.0", "local"

	// 1. Config + logger
	cfg, err := resources.LoadConfig(name, version, env)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load config")
	}

	ctx := resources.SetupLogger(context.Background(), cfg)
	startupLogger := log.Ctx(ctx).With().Str("stage", "startup").Str("component", "main").Logger()
	shutdownLogger := log.Ctx(ctx).With().Str("stage", "shut down").Str("component", "main").Logger()

	startupLogger.Info().Msg("application starting up")
	defer shutdownLogger.Info().Msg("application stopped")

	// 2. Telemetry (traces/metrics/logs), zerolog bridged into OTel logs
	ctx, stopTelemetry, err := resources.Observe(ctx, cfg)
	if err != nil {
		shutdownLogger.Fatal().Err(err).Msg(fmt.Sprintf("unable to setup otel telemetry: %v", err))
	}

	loc, err := cfg.TimeLocation()
	if err != nil {
		shutdownLogger.Fatal().Err(err).Msg("unable to load calendar timezone")
	}

	// 3. Store
	repo, closeStore, err := openRepository(ctx, cfg, loc)
	if err != nil {
		shutdownLogger.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("unable to open store")
	}

	startupLogger.Info().Str("driver", cfg.Store.Driver).Str("timezone", loc.String()).Msg("store ready")

	// 4. Wiring
	handlers := core.NewHandlers(repo, loc)

	gin.SetMode(gin.ReleaseMode)

	restHandler := gin.New()
	restHandler.Use(gin.Recovery())
	restHandler.Use(resources.LoggerMiddleware())
	restHandler.Use(resources.TracerMiddleware(name))
	restHandler.Use(resources.MeterMiddleware(name))

	restHandler.GET("/healthz", handlers.GetHealth)
	restHandler.GET("/locations", handlers.GetLocations)
	restHandler.GET("/events", handlers.ListEvents)
	restHandler.GET("/events/feed", handlers.GetFeed)
	restHandler.GET("/events/:id", handlers.GetEvents)
	restHandler.GET("/calendar.ics", handlers.ExportEvents)

	mutating := restHandler.Group("/")
	if len(cfg.Auth.Users) > 0 {
		mutating.Use(gin.BasicAuth(gin.Accounts(cfg.Auth.Users)))
	} else {
		startupLogger.Warn().Msg("auth.users is empty, entries can be changed anonymously")
	}

	mutating.POST("/events", handlers.PostEvents)
	mutating.DELETE("/events/:id", handlers.DeleteEvents)
	mutating.POST("/events/import", handlers.ImportEvents)

	debugHandler := http.NewServeMux()
	debugHandler.HandleFunc("/debug/pprof/", pprof.Index)
	debugHandler.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	debugHandler.HandleFunc("/debug/pprof/profile", pprof.Profile)
	debugHandler.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	debugHandler.HandleFunc("/debug/pprof/trace", pprof.Trace)

	// 5. Daemons/servers lifecycle
	app := lifecycle.NewApp(
		lifecycle.WithName(name),
		lifecycle.WithVersion(version),
	)

	app.Attach(servers.BuildBaseServer(
		closeStore,
		resources.CloseFn(func() { stopTelemetry(ctx, 15*time.Second) }),
	))

	app.Attach(servers.BuildHttpServer("debug-server", newServer(ctx, cfg.Debug.Host, cfg.Debug.Port, debugHandler)))
	app.Attach(servers.BuildHttpServer("rest-server", newServer(ctx, cfg.HTTP.Host, cfg.HTTP.Port, restHandler)))

	cronName, cronServer, err := servers.BuildCronServer("purge-server", cfg.Purge.Schedule,
		core.NewPurger(ctx, repo, cfg.Purge.Retention))
	if err != nil {
		shutdownLogger.Fatal().Err(err).Msg("unable to build purge server")
	}

	app.Attach(cronName, cronServer)

	startupLogger.Info().Msg("application running")

	// 6. Run until SIGINT/SIGTERM
	err = app.Run()
	if err != nil {
		shutdownLogger.Error().Err(err).Msg("runtime error")
	}
}

func openRepository(ctx context.Context, cfg *resources.Config, loc *time.Location) (core.Repository, resources.Closable, error) {
	switch cfg.Store.Driver {
	case "postgres":
		pool, err := resources.CreateDatabaseConnectionPool(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}

		err = core.EnsurePostgresSchema(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}

		return core.NewRepository(pool), pool, nil
	case "sqlite":
		db, err := resources.OpenSQLite(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}

		err = core.EnsureSQLiteSchema(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}

		return core.NewSQLiteRepository(db, loc), resources.CloseFn(func() { _ = db.Close() }), nil
	case "memory":
		return core.NewMemoryRepository(), resources.CloseFn(func() {}), nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", core.ErrUnsupportedStore, cfg.Store.Driver)
	}
}

func newServer(ctx context.Context, host string, port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              net.JoinHostPort(host, port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}
