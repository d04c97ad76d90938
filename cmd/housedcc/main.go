// HouseDCC - Model Railroad Command Station
//
// This is the main entry point for the HouseDCC service. It drives a
// DCC model railroad through the pidcc waveform worker:
//   - Fleet registry of decoder models, vehicles and consists
//   - HTTP API and WebSocket status stream for throttles and dashboards
//   - Retained MQTT status for the rest of the house
//   - Flight recorder of all wire traffic, optionally mirrored to InfluxDB
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pascal-fb-martin/housedcc/internal/api"
	"github.com/pascal-fb-martin/housedcc/internal/capture"
	"github.com/pascal-fb-martin/housedcc/internal/depot"
	"github.com/pascal-fb-martin/housedcc/internal/fleet"
	"github.com/pascal-fb-martin/housedcc/internal/infrastructure/config"
	"github.com/pascal-fb-martin/housedcc/internal/infrastructure/influxdb"
	"github.com/pascal-fb-martin/housedcc/internal/infrastructure/logging"
	"github.com/pascal-fb-martin/housedcc/internal/infrastructure/mqtt"
	"github.com/pascal-fb-martin/housedcc/internal/pidcc"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	configPath := flag.String("config", getConfigPath(), "path to the configuration file")
	flag.Parse()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - configPath: Configuration file to load
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, configPath string) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting HouseDCC",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Flight recorder for wire traffic
	recorder := capture.New(cfg.DCC.Capture.Capacity)

	// Mirror the recorder into InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		recorder.SetSink(influxClient)
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Track link to the pidcc worker
	link := pidcc.New(pidcc.Config{
		Binary:           cfg.DCC.Pidcc.Binary,
		Args:             cfg.DCC.Pidcc.Args,
		PinA:             cfg.DCC.Gpio.PinA,
		PinB:             cfg.DCC.Gpio.PinB,
		RestartDelay:     time.Duration(cfg.DCC.Pidcc.RestartDelaySeconds) * time.Second,
		GracefulTimeout:  time.Duration(cfg.DCC.Pidcc.GracefulTimeoutSeconds) * time.Second,
		ReadinessTimeout: time.Duration(cfg.DCC.Pidcc.ReadinessTimeoutSeconds) * time.Second,
	})
	link.SetLogger(log.With("component", "pidcc"))
	link.SetRecorder(recorder)
	if err := link.Start(ctx); err != nil {
		return fmt.Errorf("starting track link: %w", err)
	}
	defer func() {
		log.Info("closing track link")
		if closeErr := link.Close(); closeErr != nil {
			log.Error("error closing track link", "error", closeErr)
		}
	}()
	log.Info("track link started", "dry_run", link.DryRun())

	// Fleet registry
	registry := fleet.New(link)
	registry.SetLogger(log.With("component", "fleet"))

	// Restore the fleet from the depot snapshot
	fleetDepot := depot.New(cfg.DCC.Depot.Path)
	fleetDepot.SetLogger(log.With("component", "depot"))
	snapshot, err := fleetDepot.Load()
	switch {
	case err == nil:
		registry.Restore(snapshot)
		log.Info("fleet restored from depot", "path", fleetDepot.Path())
	case errors.Is(err, depot.ErrNoSnapshot):
		log.Info("no depot snapshot, starting with an empty fleet", "path", fleetDepot.Path())
	default:
		return fmt.Errorf("loading depot snapshot: %w", err)
	}

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT, cfg.Service.ID)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.With("component", "mqtt"))
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT connected")
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// HTTP API server
	server, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Logger:   log.With("component", "api"),
		Registry: registry,
		Link:     link,
		Recorder: recorder,
		Depot:    fleetDepot,
		MQTT:     mqttClient,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server (stops accepting commands)
	// 2. MQTT (if enabled, publishes offline availability)
	// 3. Track link (stops the worker)
	// 4. InfluxDB (if enabled, flushes the capture mirror)

	log.Info("HouseDCC stopped")
	return nil
}

// getConfigPath returns the default configuration file path.
// Uses the HOUSEDCC_CONFIG environment variable if set.
func getConfigPath() string {
	if path := os.Getenv("HOUSEDCC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
