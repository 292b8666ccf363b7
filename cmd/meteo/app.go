package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/meteo-core/internal/api"
	"github.com/nerrad567/meteo-core/internal/infrastructure/config"
	"github.com/nerrad567/meteo-core/internal/infrastructure/database"
	"github.com/nerrad567/meteo-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/meteo-core/internal/infrastructure/logging"
	"github.com/nerrad567/meteo-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/meteo-core/internal/metric"
	"github.com/nerrad567/meteo-core/internal/monitor"
	"github.com/nerrad567/meteo-core/internal/query"
	"github.com/nerrad567/meteo-core/internal/resample"
	"github.com/nerrad567/meteo-core/internal/sensor"
	"github.com/nerrad567/meteo-core/internal/sensor/drivers"
)

// app holds the infrastructure shared by every subcommand.
type app struct {
	cfg   *config.Config
	log   *logging.Logger
	db    *database.DB
	store *metric.SQLiteStore

	// checks holds the connected mirrors for GET /health.
	checks map[string]api.HealthChecker

	// closers run in reverse order on close.
	closers []func()
}

// setup opens the application and brings the schema up to date.
//
// Parameters:
//   - ctx: Context for migrations
//   - configPath: Path to config.yaml
//
// Returns:
//   - *app: Ready application; call close when done
//   - error: If any step fails
func setup(ctx context.Context, configPath string) (*app, error) {
	a, err := openApp(configPath)
	if err != nil {
		return nil, err
	}

	if err := a.db.Migrate(ctx); err != nil {
		a.close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	a.store = metric.NewSQLiteStore(a.db)
	if err := a.store.EnsureCatalog(ctx); err != nil {
		a.close()
		return nil, fmt.Errorf("checking metric catalog: %w", err)
	}
	return a, nil
}

// openApp loads configuration, builds the logger and opens the database
// without touching the schema.
func openApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	log := logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", configPath, "site", cfg.Site.ID)

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	log.Info("database connected", "path", cfg.Database.Path)

	a := &app{cfg: cfg, log: log, db: db}
	a.onClose(func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	})
	return a, nil
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// close releases everything acquired by setup and later wiring.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// primarySink returns the storage backend selected by monitor.storage.
func (a *app) primarySink() (monitor.Sink, error) {
	switch a.cfg.Monitor.Storage {
	case config.StorageDB:
		return monitor.NewStoreSink(a.store, a.log), nil
	case config.StorageFile:
		return monitor.NewCSVSink(a.cfg.Monitor.FilePath), nil
	case config.StorageDummy:
		return monitor.NewLogSink(a.log), nil
	default:
		return nil, fmt.Errorf("unknown storage %q", a.cfg.Monitor.Storage)
	}
}

// sinks returns the primary sink followed by the enabled mirrors.
func (a *app) sinks() ([]monitor.Sink, error) {
	primary, err := a.primarySink()
	if err != nil {
		return nil, err
	}
	sinks := []monitor.Sink{primary}
	a.log.Info("primary storage selected", "storage", a.cfg.Monitor.Storage, "sink", primary.Name())

	if a.cfg.MQTT.Enabled {
		client, err := mqtt.Connect(a.cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("connecting to MQTT: %w", err)
		}
		a.onClose(func() {
			a.log.Info("disconnecting from MQTT")
			if closeErr := client.Close(); closeErr != nil {
				a.log.Error("error closing MQTT", "error", closeErr)
			}
		})
		client.SetOnConnect(func() {
			a.log.Info("MQTT reconnected")
		})
		client.SetOnDisconnect(func(err error) {
			a.log.Warn("MQTT disconnected", "error", err)
		})
		a.log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", a.cfg.MQTT.Broker.Host, a.cfg.MQTT.Broker.Port),
			"client_id", a.cfg.MQTT.Broker.ClientID,
		)
		sink := mqtt.NewSink(client, client.Topics(), byte(a.cfg.MQTT.QoS)) // #nosec G115 -- QoS validated to 0..2
		sinks = append(sinks, sink)
		a.addCheck(sink.Name(), client)
	}

	if a.cfg.InfluxDB.Enabled {
		client, err := influxdb.Connect(a.cfg.InfluxDB)
		if err != nil {
			return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		a.onClose(func() {
			a.log.Info("closing InfluxDB connection")
			if closeErr := client.Close(); closeErr != nil {
				a.log.Error("error closing InfluxDB", "error", closeErr)
			}
		})
		client.SetOnError(func(err error) {
			a.log.Error("InfluxDB write error", "error", err)
		})
		a.log.Info("InfluxDB connected",
			"url", a.cfg.InfluxDB.URL,
			"org", a.cfg.InfluxDB.Org,
			"bucket", a.cfg.InfluxDB.Bucket,
		)
		sink := influxdb.NewSink(client)
		sinks = append(sinks, sink)
		a.addCheck(sink.Name(), client)
	}

	return sinks, nil
}

func (a *app) addCheck(name string, c api.HealthChecker) {
	if a.checks == nil {
		a.checks = make(map[string]api.HealthChecker)
	}
	a.checks[name] = c
}

// newMonitor attaches the configured readers behind sinks.
//
// Readers that fail to open or attach are logged and skipped so one
// missing probe does not stop the station.
func (a *app) newMonitor(ctx context.Context, sinks []monitor.Sink, reg prometheus.Registerer) *monitor.Monitor {
	registry := sensor.NewRegistry()
	registry.SetLogger(a.log)
	a.onClose(func() {
		if err := registry.Close(); err != nil {
			a.log.Error("error closing readers", "error", err)
		}
	})

	var metrics *monitor.Metrics
	if reg != nil {
		metrics = monitor.NewMetrics(reg)
	}

	m := monitor.New(monitor.Config{
		Registry:      registry,
		Sinks:         sinks,
		MedianSamples: a.cfg.Monitor.MedianSamples,
		Metrics:       metrics,
		Logger:        a.log,
	})

	if err := m.AttachConfigured(ctx, a.cfg.Readers, drivers.Open); err != nil {
		a.log.Warn("some readers were not attached", "error", err)
	}
	a.log.Info("readers attached",
		"readers", len(registry.Readers()),
		"sensors", len(m.Sensors()),
	)
	return m
}

// queryService builds the query facade from the query section.
func (a *app) queryService() (*query.Service, error) {
	opts := query.Options{Resample: a.cfg.Query.Resampling}
	if opts.Resample {
		freq, err := a.cfg.ResamplingFrequency()
		if err != nil {
			return nil, fmt.Errorf("query.resampling_frequency: %w", err)
		}
		fill, err := resample.ParseFill(a.cfg.Query.ResamplingFill)
		if err != nil {
			return nil, fmt.Errorf("query.resampling_fill: %w", err)
		}
		opts.Frequency = freq
		opts.Fill = fill
	}

	svc := query.NewService(a.store, opts)
	svc.SetLogger(a.log)
	return svc, nil
}
