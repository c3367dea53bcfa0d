package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"georefgo/internal/api"
	"georefgo/pkg/config"
	"georefgo/pkg/core"
	"georefgo/pkg/db"
	"georefgo/pkg/db/maintenance"
	"georefgo/pkg/geo"
	"georefgo/pkg/logging"
	"georefgo/pkg/metrics"
	"georefgo/pkg/probe"
	"georefgo/pkg/store"
	"georefgo/pkg/stream"
	"georefgo/pkg/version"
	"georefgo/pkg/viewer/mockviewer"
)

const (
	defaultConfigPath = "configs/georef.yaml"
	sunSkyInterval    = time.Minute
	speedSyncInterval = 2 * time.Second
)

var (
	configPath = flag.String("config", defaultConfigPath, "Path to the config file")
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
)

func main() {
	flag.Parse()

	// Handle --init-config flag
	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated:", *configPath)
		return
	}

	// .env is optional; variables already set win
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to read .env: %v\n", err)
	}

	if err := run(context.Background(), *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	appCfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("georefd Started", "version", version.Version)

	dbConn, st, err := initDB(appCfg)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	if err := maintenance.Run(ctx, st, dbConn, maintenance.DefaultRetention); err != nil {
		slog.Error("Maintenance tasks failed", "error", err)
	}

	var collector *metrics.Collector
	if appCfg.Metrics.Enabled {
		collector, err = metrics.NewCollector(prometheus.DefaultRegisterer)
		if err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	provider := config.NewProvider(appCfg, st)
	engine, mock, err := initEngine(ctx, provider, st, collector)
	if err != nil {
		return err
	}
	defer mock.Close()

	// Startup Probes
	g := engine.Georeference()
	probes := []probe.Probe{
		probe.Database(dbConn),
		probe.ListenAddress(appCfg.Server.Address),
		probe.Ellipsoid(g.Ellipsoid(), g.Origin()),
		probe.Writable("Log directory", filepath.Dir(appCfg.Log.Server.Path)),
	}
	if err := probe.AnalyzeResults(probe.Run(ctx, probes)); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	// Telemetry Handler and Hub (must be created before scheduler to receive updates)
	telH := api.NewTelemetryHandler()
	hub := api.NewHub(engine.Snapshot)
	engine.OnPublish(hub.Publish)
	defer hub.Close()

	sched := setupScheduler(provider, mock, engine, st, telH, collector)
	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		sched.Start(ctx)
	}()

	err = runServer(ctx, provider, engine, st, telH, hub, collector, cfgPath)
	cancel()
	<-schedDone
	return err
}

func initDB(appCfg *config.Config) (*db.DB, *store.SQLiteStore, error) {
	dbConn, err := db.Init(appCfg.DB.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return dbConn, store.NewSQLiteStore(dbConn), nil
}

func mockConfig(c config.MockViewerConfig) mockviewer.Config {
	route := make([]geo.Geodetic, 0, len(c.Route))
	for _, wp := range c.Route {
		route = append(route, geo.Geodetic{Longitude: wp.Longitude, Latitude: wp.Latitude, Height: wp.Height})
	}
	return mockviewer.Config{
		Start:   geo.Geodetic{Longitude: c.StartLongitude, Latitude: c.StartLatitude, Height: c.StartHeight},
		Heading: c.Heading,
		Speed:   c.Speed,
		Route:   route,
	}
}

func initEngine(ctx context.Context, p config.Provider, st *store.SQLiteStore, m *metrics.Collector) (*core.Engine, *mockviewer.MockClient, error) {
	opts, _, err := core.OptionsFromConfig(p.AppConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("invalid georeference config: %w", err)
	}

	slog.Info("Viewer Source: Mock")
	mock := mockviewer.NewClient(opts.Ellipsoid, mockConfig(p.AppConfig().Viewer.Mock))

	engine, err := core.NewEngine(p, core.Deps{
		Shifter:  mock,
		Streamer: stream.NewLoggingStreamer(),
		Journal:  st,
		Metrics:  m,
	})
	if err != nil {
		mock.Close()
		return nil, nil, fmt.Errorf("failed to create engine: %w", err)
	}
	if err := engine.Initialize(ctx); err != nil {
		mock.Close()
		return nil, nil, fmt.Errorf("failed to initialize georeference: %w", err)
	}
	return engine, mock, nil
}

func setupScheduler(p config.Provider, mock *mockviewer.MockClient, e *core.Engine, st store.StateStore, telH *api.TelemetryHandler, m *metrics.Collector) *core.Scheduler {
	sched := core.NewScheduler(p, mock, e, telH, m)

	// Restore runs first so the other jobs see the restored origin
	sched.AddJob(core.NewRestoreJob(e, st))
	sched.AddJob(core.NewRebaseJob(e))
	sched.AddJob(core.NewSubLevelJob(e))
	sched.AddJob(core.NewSnapshotJob(e, time.Duration(p.AppConfig().Ticker.SnapshotInterval)))
	sched.AddJob(core.NewSunSkyJob(e, sunSkyInterval))
	sched.AddJob(core.NewOriginPersistenceJob(e, st))

	sched.AddJob(core.NewTimeJob("ViewerSpeed", speedSyncInterval, func(c context.Context, _ *core.Frame) {
		mock.SetSpeed(p.ViewerSpeed(c))
	}))

	return sched
}

func runServer(ctx context.Context, p config.Provider, e *core.Engine, st store.Store, telH *api.TelemetryHandler, hub *api.Hub, m *metrics.Collector, cfgPath string) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)
	shutdownFunc := func() { quit <- syscall.SIGTERM }

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go watchReload(ctx, hup, e, cfgPath)

	var metricsH http.Handler
	if m != nil {
		metricsH = m.Handler()
	}

	srv := api.NewServer(p.AppConfig().Server.Address,
		telH,
		api.NewGeorefHandler(e),
		api.NewConfigHandler(st, e),
		api.NewEventsHandler(st),
		hub,
		metricsH,
		shutdownFunc,
	)

	srv.Handler = api.WithLogging(srv.Handler, m)
	return runServerLifecycle(ctx, srv, hub, quit)
}

// watchReload re-reads the config file on SIGHUP and hands it to the engine.
func watchReload(ctx context.Context, hup <-chan os.Signal, e *core.Engine, cfgPath string) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			cfg, err := config.Load(cfgPath)
			if err != nil {
				slog.Error("Config reload failed", "path", cfgPath, "error", err)
				continue
			}
			if err := e.Reload(ctx, cfg); err != nil {
				slog.Error("Config reload rejected", "error", err)
				continue
			}
			slog.Info("Config reloaded", "path", cfgPath)
		}
	}
}

func runServerLifecycle(ctx context.Context, srv *http.Server, hub *api.Hub, quit chan os.Signal) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()
	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
