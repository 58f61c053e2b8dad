// Saphari Core - garden hub telemetry router
//
// This is the main entry point for the Saphari hub. It connects ESP32
// devices on an MQTT broker to dashboards:
//   - Device status and telemetry are routed into a registry and cache
//   - Dashboards bind widgets to device metrics and send commands back
//   - Live updates are pushed to user interfaces over WebSocket
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/saphari-core/internal/api"
	"github.com/nerrad567/saphari-core/internal/audit"
	"github.com/nerrad567/saphari-core/internal/dashboard"
	"github.com/nerrad567/saphari-core/internal/device"
	"github.com/nerrad567/saphari-core/internal/infrastructure/config"
	"github.com/nerrad567/saphari-core/internal/infrastructure/database"
	"github.com/nerrad567/saphari-core/internal/infrastructure/logging"
	"github.com/nerrad567/saphari-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/saphari-core/internal/metrics"
	"github.com/nerrad567/saphari-core/internal/router"
	"github.com/nerrad567/saphari-core/internal/telemetry"
	"github.com/nerrad567/saphari-core/internal/topic"
	"github.com/nerrad567/saphari-core/internal/widget"
	"github.com/nerrad567/saphari-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// configEnvVar overrides defaultConfigPath.
const configEnvVar = "SAPHARI_CONFIG"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It returns nil on a clean shutdown.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Saphari Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Database
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Device registry and telemetry cache
	registry := device.NewRegistry(device.NewSQLiteRepository(db.DB))
	registry.SetLogger(log.Component("device"))
	if refreshErr := registry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device registry: %w", refreshErr)
	}
	log.Info("device registry initialised", "devices", registry.Count())

	cache := telemetry.NewCache()
	m := metrics.New()
	topics := topic.New(cfg.MQTT.Namespace)

	// Router and live update hub
	rtr := router.New(topics, registry, cache)
	rtr.SetLogger(log.Component("router"))
	rtr.SetMetrics(m)

	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
	hub.SetMetrics(m)
	rtr.AddObserver(hub)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return rtr.Run(gctx) })
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	defer func() {
		stop()
		if waitErr := g.Wait(); waitErr != nil {
			log.Error("background task failed", "error", waitErr)
		}
	}()

	// MQTT
	mqttClient, err := mqtt.Connect(ctx, cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt"))
	mqttClient.SetOnStateChange(func(state mqtt.ConnectionState, err error) {
		m.SetTransportConnected(state == mqtt.StateConnected)
		if state == mqtt.StateDisconnected {
			log.Warn("MQTT connection state changed", "state", string(state), "error", err)
			return
		}
		log.Info("MQTT connection state changed", "state", string(state))
	})
	m.SetTransportConnected(true)
	log.Info("MQTT connected",
		"broker", mqtt.BrokerURL(cfg.MQTT.Broker),
		"client_id", cfg.MQTT.Broker.ClientID,
		"namespace", topics.Namespace(),
	)

	if attachErr := rtr.Attach(mqttClient, byte(cfg.MQTT.QoS)); attachErr != nil {
		return fmt.Errorf("subscribing router: %w", attachErr)
	}

	publisher := widget.NewPublisher(mqttClient, topics, byte(cfg.Commands.QoS))
	publisher.SetRateLimit(cfg.Commands.RateLimit, cfg.Commands.Burst)
	publisher.SetLogger(log.Component("commands"))
	publisher.SetMetrics(m)

	// Dashboards
	dashboards := dashboard.NewService(dashboard.NewSQLiteRepository(db.DB), cfg.Layout)
	dashboards.SetLogger(log.Component("dashboard"))

	// API
	srv, err := api.New(api.Deps{
		Config:     cfg.API,
		WS:         cfg.WebSocket,
		Logger:     log.Component("api"),
		Registry:   registry,
		Cache:      cache,
		Topics:     topics,
		Dashboards: dashboards,
		Publisher:  publisher,
		Audit:      audit.NewSQLiteRepository(db.DB),
		Transport:  mqttClient,
		DB:         db,
		Metrics:    m,
		Hub:        hub,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := srv.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, mqttClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal",
		"system_scope", cfg.Site.ID,
	)

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order: API server, MQTT, router and
	// hub, database.

	log.Info("Saphari Core stopped")
	return nil
}

// loadConfig reads the configuration file.
//
// A missing file at the default path falls back to the built-in defaults so
// the hub starts against a local broker without setup. A path given through
// SAPHARI_CONFIG must exist.
func loadConfig(log *logging.Logger) (*config.Config, error) {
	path, explicit := getConfigPath()

	cfg, err := config.Load(path)
	switch {
	case err == nil:
		log.Info("configuration loaded", "path", path)
		return cfg, nil
	case !explicit && errors.Is(err, fs.ErrNotExist):
		log.Warn("configuration file not found, using defaults", "path", path)
		cfg = config.Default()
		if vErr := cfg.Validate(); vErr != nil {
			return nil, fmt.Errorf("validating default config: %w", vErr)
		}
		return cfg, nil
	default:
		return nil, fmt.Errorf("loading config: %w", err)
	}
}

// getConfigPath returns the configuration file path and whether it was set
// explicitly through SAPHARI_CONFIG.
func getConfigPath() (string, bool) {
	if path := os.Getenv(configEnvVar); path != "" {
		return path, true
	}
	return defaultConfigPath, false
}

// healthCheck verifies the database and broker connections.
// It returns the first failure.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	return nil
}
