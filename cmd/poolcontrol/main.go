// Pool Control - swimming pool automation controller
//
// poolcontrol drives the filtration pump, treatment devices and booster of
// a pool through an MQTT-connected home automation host. It derives the
// daily filtration window from water temperature, protects the plant
// against frost in winter and runs the sand-filter backwash sequence.
//
// Configuration is read from configs/config.yaml, or from the path in
// POOLCONTROL_CONFIG.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/gray-logic-pool/migrations"

	"github.com/nerrad567/gray-logic-pool/internal/api"
	"github.com/nerrad567/gray-logic-pool/internal/controller"
	"github.com/nerrad567/gray-logic-pool/internal/device"
	"github.com/nerrad567/gray-logic-pool/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-pool/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-pool/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-pool/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-pool/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-pool/internal/platform"
	"github.com/nerrad567/gray-logic-pool/internal/scheduler"
	"github.com/nerrad567/gray-logic-pool/internal/state"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

// shutdownTimeout bounds the final state write once the run context is gone.
const shutdownTimeout = 5 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Pool Control",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	store, err := state.Open(ctx, state.NewSQLiteRepository(db.DB))
	if err != nil {
		return fmt.Errorf("loading controller state: %w", err)
	}
	store.SetLogger(log)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("saving controller state")
		if closeErr := store.Close(closeCtx); closeErr != nil {
			log.Error("error saving controller state", "error", closeErr)
		}
	}()

	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	host := platform.New(mqttClient, platform.Options{QoS: byte(cfg.MQTT.QoS)}) //nolint:gosec // qos validated 0-2
	host.SetLogger(log)
	if startErr := host.Start(ctx); startErr != nil {
		return fmt.Errorf("starting platform: %w", startErr)
	}
	defer func() {
		log.Info("stopping platform")
		host.Stop()
	}()

	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
		host.RepublishDisplays()
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	influxClient, err := connectInfluxDB(cfg.InfluxDB, log)
	if err != nil {
		return err
	}
	if influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	ticker := scheduler.NewTicker(ctx)
	deps := buildDeps(cfg, host, store, ticker, log)
	if influxClient != nil {
		deps.Telemetry = cycleRecorder{client: influxClient, site: cfg.Site.ID}
	}

	ctrl, err := controller.New(cfg.Pool, deps)
	if err != nil {
		return fmt.Errorf("creating controller: %w", err)
	}
	defer func() {
		log.Info("stopping controller")
		ctrl.Close()
		ticker.Wait()
	}()

	if subErr := host.SubscribeButtons(ctrl); subErr != nil {
		return fmt.Errorf("subscribing buttons: %w", subErr)
	}

	if cfg.API.Enabled {
		srv, apiErr := startAPI(ctx, cfg, log, ctrl, store, host, mqttClient)
		if apiErr != nil {
			return apiErr
		}
		defer func() {
			log.Info("stopping API server")
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error stopping API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API server disabled")
	}

	ctrl.Start(ctx)
	log.Info("initialisation complete, waiting for shutdown signal",
		"winter_mode", store.Snapshot().WinterMode,
		"cycle_interval", cfg.Pool.Timing.CycleInterval,
	)

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// 1. API server (if enabled)
	// 2. Controller and its drivers
	// 3. InfluxDB (if enabled)
	// 4. Platform subscriptions
	// 5. MQTT
	// 6. Controller state
	// 7. Database

	log.Info("Pool Control stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses POOLCONTROL_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("POOLCONTROL_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// connectInfluxDB returns nil without error when telemetry is disabled.
func connectInfluxDB(cfg config.InfluxDBConfig, log *logging.Logger) (*influxdb.Client, error) {
	client, err := influxdb.Connect(cfg)
	if errors.Is(err, influxdb.ErrDisabled) {
		log.Info("InfluxDB disabled")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected",
		"url", cfg.URL,
		"org", cfg.Org,
		"bucket", cfg.Bucket,
	)
	return client, nil
}

// buildDeps binds the configured entities to actuators and displays on the
// platform.
func buildDeps(cfg *config.Config, host *platform.Platform, store *state.Store, sched scheduler.Scheduler, log *logging.Logger) controller.Deps {
	opts := device.Options{
		MaxRetries:    cfg.Pool.Actions.MaxRetries,
		RetryDelay:    cfg.Pool.Actions.RetryDelay,
		VerifyState:   cfg.Pool.Actions.VerifyState,
		VerifyDelay:   cfg.Pool.Actions.VerifyDelay,
		VerifyTimeout: cfg.Pool.Actions.VerifyTimeout,
	}
	entities := cfg.Pool.Entities

	newActuator := func(name, entityID string) *device.Actuator {
		a := device.NewActuator(name, entityID, host, opts)
		a.SetNotifier(host)
		a.SetLogger(log.With("actuator", name))
		return a
	}

	filtration := newActuator("filtration", entities.Filtration)
	filtration.SetDisplay(host.Display(platform.DisplayFiltration))

	return controller.Deps{
		Store:      store,
		Sensors:    host,
		Scheduler:  sched,
		Filtration: filtration,
		Treatment:  newActuator("treatment", entities.Treatment),
		Treatment2: newActuator("treatment_2", entities.Treatment2),
		Booster:    newActuator("booster", entities.Booster),
		Displays: controller.Displays{
			Control:            host.Display(platform.DisplayControl),
			FiltrationTime:     host.Display(platform.DisplayFiltrationTime),
			FiltrationSchedule: host.Display(platform.DisplayFiltrationSchedule),
			Booster:            host.Display(platform.DisplayBooster),
			Backwash:           host.Display(platform.DisplayBackwash),
			Temperature:        host.NumericDisplay(entities.TemperatureDisplay),
		},
		Notifier: host,
		Logger:   log.With("component", "controller"),
		Location: cfg.Site.Location(),
	}
}

// startAPI creates the HTTP server, mirrors display changes to WebSocket
// clients and starts listening.
func startAPI(ctx context.Context, cfg *config.Config, log *logging.Logger, ctrl *controller.Controller, store *state.Store, host *platform.Platform, mqttClient *mqtt.Client) (*api.Server, error) {
	srv, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Logger:   log,
		Buttons:  ctrl,
		State:    store,
		Displays: host.Board(),
		MQTT:     mqttClient,
		Version:  version,
	})
	if err != nil {
		return nil, fmt.Errorf("creating API server: %w", err)
	}
	host.Board().SetOnChange(srv.BroadcastDisplay)

	if err := srv.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting API server: %w", err)
	}
	log.Info("API server started", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))
	return srv, nil
}

// healthCheck verifies all infrastructure connections are healthy.
// influxClient may be nil when telemetry is disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}

// cycleWriter is the part of *influxdb.Client used for cycle telemetry.
type cycleWriter interface {
	WriteCycle(s influxdb.CycleSample)
}

// cycleRecorder adapts controller samples to InfluxDB points.
type cycleRecorder struct {
	client cycleWriter
	site   string
}

func (r cycleRecorder) RecordCycle(s controller.Sample) {
	r.client.WriteCycle(influxdb.CycleSample{
		Time:            s.Time,
		Site:            r.site,
		WinterMode:      s.WinterMode,
		WaterTemp:       s.WaterTemp,
		OutdoorTemp:     s.OutdoorTemp,
		TemperatureMax:  s.TemperatureMax,
		FiltrationOn:    s.FiltrationOn,
		TreatmentOn:     s.TreatmentOn,
		BoosterOn:       s.BoosterOn,
		BackwashStep:    s.BackwashStep,
		FrostLatch:      s.FrostLatch,
		ForcedOn:        s.ForcedOn,
		TotalStop:       s.TotalStop,
		WindowStart:     s.WindowStart,
		WindowEnd:       s.WindowEnd,
		CycleDurationMs: s.Duration.Milliseconds(),
	})
}
