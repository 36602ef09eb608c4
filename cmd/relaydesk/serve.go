package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/relaydesk/relaydesk-core/internal/api"
	"github.com/relaydesk/relaydesk-core/internal/audit"
	"github.com/relaydesk/relaydesk-core/internal/bridges/feishu"
	"github.com/relaydesk/relaydesk-core/internal/command"
	"github.com/relaydesk/relaydesk-core/internal/console"
	"github.com/relaydesk/relaydesk-core/internal/device"
	"github.com/relaydesk/relaydesk-core/internal/event"
	"github.com/relaydesk/relaydesk-core/internal/form"
	"github.com/relaydesk/relaydesk-core/internal/infrastructure/config"
	"github.com/relaydesk/relaydesk-core/internal/infrastructure/database"
	"github.com/relaydesk/relaydesk-core/internal/infrastructure/influxdb"
	"github.com/relaydesk/relaydesk-core/internal/infrastructure/logging"
	"github.com/relaydesk/relaydesk-core/internal/infrastructure/mqtt"
	"github.com/relaydesk/relaydesk-core/internal/message"
	"github.com/relaydesk/relaydesk-core/internal/session"
	"github.com/relaydesk/relaydesk-core/migrations"
)

// busDrainTimeout bounds how long shutdown waits for queued events.
const busDrainTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the device API, operator console and event sinks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

// runServe is the server lifecycle, separated from cobra for testability.
//
// Startup order: config, logging, database and audit, stores, event bus,
// operator console and its channel, optional MQTT and InfluxDB sinks, HTTP
// server, presence sweeper. Teardown runs in reverse through defers.
//
// Returns:
//   - error: nil on clean shutdown, or error describing a startup failure
func runServe(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting RelayDesk Core", "version", version, "commit", commit, "build_date", date)

	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", path, "level", cfg.Logging.Level)

	if err := os.MkdirAll(cfg.Storage.Dir, 0o750); err != nil {
		return fmt.Errorf("creating storage dir: %w", err)
	}

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
	applied, err := db.Migrate(ctx, migrations.FS)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", cfg.Database.Path, "migrations_applied", applied)
	auditRepo := audit.NewSQLiteRepository(db.DB)

	registry := device.NewRegistry(cfg.OnlineWindow())
	registry.SetLogger(log)

	cmdStore := command.NewStore(cfg.Storage.Dir)
	cmdStore.SetLogger(log)
	commands := command.NewService(cmdStore)
	commands.SetLogger(log)

	messages := message.NewStore(cfg.Storage.Dir, cfg.Storage.MessageCap)
	messages.SetLogger(log)
	forms := form.NewStore(cfg.Storage.Dir)

	bus := event.NewBus(event.DefaultQueueSize, event.DefaultSinkTimeout)
	bus.SetLogger(log)
	commands.SetHooks(commandHooks(bus, registry))

	engine := session.NewEngine(registry, commands, session.Options{
		TTL:       cfg.SessionTTL(),
		TextLimit: cfg.Operator.TextLimit,
	})
	engine.SetLogger(log)

	channel, bridge, err := newChannel(cfg, log)
	if err != nil {
		return err
	}

	debounce := cfg.Debounce()
	if debounce == 0 {
		debounce = -1
	}
	operatorConsole := console.New(console.Deps{
		Registry:  registry,
		Engine:    engine,
		Messages:  messages,
		Channel:   channel,
		AdminIDs:  cfg.Operator.AdminIDs,
		Debounce:  debounce,
		PageSize:  cfg.Operator.PageSize,
		TextLimit: cfg.Operator.TextLimit,
		Developer: cfg.Operator.Developer,
		Logger:    log,
	})

	bus.Register(operatorConsole)
	bus.Register(audit.NewSink(auditRepo))

	health := map[string]api.HealthChecker{"database": db}
	var mqttState api.ConnectionReporter

	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		bus.Register(mqtt.NewSink(mqttClient, mqttClient.Topics(), mqttClient.QoS()))
		health["mqtt"] = mqttClient
		mqttState = mqttClient
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"prefix", mqttClient.Topics().Prefix(),
		)
	} else {
		log.Info("MQTT disabled")
	}

	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
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
		bus.Register(influxdb.NewSink(influxClient))
		health["influxdb"] = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", influxClient.Bucket())
	} else {
		log.Info("InfluxDB disabled")
	}

	// Drain the bus before the sinks above are closed.
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), busDrainTimeout)
		defer cancel()
		if closeErr := bus.Close(drainCtx); closeErr != nil {
			log.Warn("event bus did not drain", "error", closeErr)
		}
	}()

	server, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Logger:   log,
		Registry: registry,
		Commands: commands,
		Messages: messages,
		Forms:    forms,
		Events:   bus,
		Audit:    auditRepo,
		DB:       db,
		MQTT:     mqttState,
		Health:   health,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	bus.Register(server.Hub())
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	go registry.RunSweeper(ctx, cfg.SweepInterval(), cfg.StaleTimeout(), func(ids []string) {
		now := time.Now()
		for _, id := range ids {
			log.Info("device evicted", "device_id", id)
			bus.Publish(event.Event{Type: event.DeviceEvicted, DeviceID: id, Time: now})
		}
	})

	if bridge != nil {
		go func() {
			if runErr := bridge.Run(ctx, operatorConsole); runErr != nil && !errors.Is(runErr, context.Canceled) {
				log.Error("feishu event connection ended", "error", runErr)
			}
		}()
	}

	log.Info("initialisation complete",
		"address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		"operators", len(operatorConsole.Admins()),
		"sinks", bus.Sinks(),
	)

	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")
	return nil
}

// newChannel returns the Feishu bridge when enabled, otherwise a channel
// that writes operator messages to the log.
func newChannel(cfg *config.Config, log *logging.Logger) (console.Channel, *feishu.Bridge, error) {
	if !cfg.Feishu.Enabled {
		log.Warn("feishu disabled, operator messages go to the log")
		return &console.LogChannel{Logger: log}, nil, nil
	}

	bridge, err := feishu.New(feishu.Config{
		AppID:     cfg.Feishu.AppID,
		AppSecret: cfg.Feishu.AppSecret,
		BaseURL:   cfg.Feishu.BaseURL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating feishu bridge: %w", err)
	}
	bridge.SetLogger(log)
	return bridge, bridge, nil
}

// commandHooks publishes queue changes on the bus.
func commandHooks(bus *event.Bus, registry *device.Registry) command.Hooks {
	publish := func(typ event.Type, deviceID string, cmds []command.Command) {
		e := event.Event{Type: typ, DeviceID: deviceID, Time: time.Now(), Commands: cmds}
		if d, ok := registry.Get(deviceID); ok {
			e.Device = &d
		}
		bus.Publish(e)
	}
	return command.Hooks{
		Enqueued: func(deviceID string, cmd command.Command) {
			publish(event.CommandEnqueued, deviceID, []command.Command{cmd})
		},
		Delivered: func(deviceID string, cmds []command.Command) {
			publish(event.CommandDelivered, deviceID, cmds)
		},
	}
}
