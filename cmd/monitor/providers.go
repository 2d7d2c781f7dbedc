package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"fuel-station-monitor/internal/calibration"
	"fuel-station-monitor/internal/config"
	"fuel-station-monitor/internal/connectivity"
	"fuel-station-monitor/internal/dedup"
	"fuel-station-monitor/internal/delivery/http/handler"
	"fuel-station-monitor/internal/diagnostics"
	"fuel-station-monitor/internal/domain/station"
	"fuel-station-monitor/internal/infrastructure/database/postgres"
	"fuel-station-monitor/internal/ingestion"
	"fuel-station-monitor/internal/jobs"
	"fuel-station-monitor/internal/liveness"
	"fuel-station-monitor/internal/logger"
	"fuel-station-monitor/internal/middleware"
	"fuel-station-monitor/internal/notify"
	"fuel-station-monitor/internal/reconciler"
	"fuel-station-monitor/internal/routes"
	pkgmqtt "fuel-station-monitor/pkg/mqtt"
)

const (
	resyncTimeout = 30 * time.Second
	redisPingWait = 3 * time.Second
)

func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	env := cfg.Server.Environment
	if env == "" {
		env = "development"
	}
	if err := logger.Init(env, cfg.Server.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Starting fuel station monitor", zap.String("environment", env))
	return logger.Logger, nil
}

func provideDatabase(lc fx.Lifecycle, cfg *config.Config) (*postgres.DB, error) {
	if cfg.Database.Host == "" || cfg.Database.DBName == "" {
		return nil, errors.New("database configuration is missing, set DB_HOST and DB_NAME")
	}
	db, err := postgres.NewDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return db.Close()
		},
	})
	return db, nil
}

func provideDispenserRepository(db *postgres.DB) station.DispenserRepository {
	return postgres.NewDispenserRepository(db)
}

func provideNozzleRepository(db *postgres.DB) station.NozzleRepository {
	return postgres.NewNozzleRepository(db)
}

func provideTankRepository(db *postgres.DB) station.TankRepository {
	return postgres.NewTankRepository(db)
}

func provideTransactionRepository(db *postgres.DB) station.TransactionRepository {
	return postgres.NewTransactionRepository(db)
}

func provideDiagnosticsRepository(db *postgres.DB) diagnostics.Repository {
	return postgres.NewDiagnosticsRepository(db)
}

func provideHub(log *zap.Logger) *notify.Hub {
	return notify.NewHub(log)
}

func provideNotifier(hub *notify.Hub) notify.Notifier {
	return hub
}

func provideCalibrationCache(cfg *config.Config, log *zap.Logger) *calibration.Cache {
	return calibration.NewCache(cfg.Calibration.CacheTTL, log)
}

// provideDeduplicator shares the window through redis when enabled and reachable.
func provideDeduplicator(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) dedup.Deduplicator {
	if !cfg.Redis.Enabled {
		return dedup.NewWindow(cfg.Dedup.Window)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingWait)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("Redis unreachable, using in-process dedup window",
			zap.String("addr", cfg.Redis.Addr),
			zap.Error(err),
		)
		_ = client.Close()
		return dedup.NewWindow(cfg.Dedup.Window)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	log.Info("Using redis dedup window", zap.String("addr", cfg.Redis.Addr))
	return dedup.NewRedisWindow(client, cfg.Redis.Prefix, cfg.Dedup.Window, log)
}

func provideDiagnostics(repo diagnostics.Repository, notifier notify.Notifier, log *zap.Logger) *diagnostics.Service {
	return diagnostics.NewService(diagnostics.NewRegistry(), repo, notifier, log)
}

func provideCollector() *ingestion.Collector {
	return ingestion.NewCollector()
}

type stateParams struct {
	fx.In

	Config       *config.Config
	Dispensers   station.DispenserRepository
	Nozzles      station.NozzleRepository
	Tanks        station.TankRepository
	Transactions station.TransactionRepository
	Calibration  *calibration.Cache
	Dedup        dedup.Deduplicator
	Notifier     notify.Notifier
	Collector    *ingestion.Collector
	Logger       *zap.Logger
}

// provideStateTracking builds the reconciler and the liveness monitor, which
// refer to each other: the reconciler touches the monitor on online readings and
// the monitor marks nozzles offline through the reconciler.
func provideStateTracking(p stateParams) (*reconciler.Reconciler, *liveness.Monitor) {
	rec := reconciler.New(reconciler.Dependencies{
		Dispensers:   p.Dispensers,
		Nozzles:      p.Nozzles,
		Tanks:        p.Tanks,
		Transactions: p.Transactions,
		Calibration:  p.Calibration,
		Dedup:        p.Dedup,
	}, reconciler.Thresholds{
		MinProductLevelMm: p.Config.Thresholds.MinProductLevelMm,
		MinWaterLevelMm:   p.Config.Thresholds.MinWaterLevelMm,
		MaxDecimal:        p.Config.Thresholds.MaxDecimal,
	}, p.Logger)

	monitor := liveness.NewMonitor(liveness.Config{
		Timeout:  p.Config.Liveness.OfflineTimeout,
		Interval: p.Config.Liveness.SweepInterval,
	}, rec, p.Notifier, p.Logger)
	monitor.OnOffline(func(liveness.Entry) {
		p.Collector.LivenessOffline()
	})

	rec.SetLiveness(monitor)
	return rec, monitor
}

func provideConnectivity(
	dispensers station.DispenserRepository,
	nozzles station.NozzleRepository,
	tanks station.TankRepository,
	notifier notify.Notifier,
	log *zap.Logger,
) *connectivity.Handler {
	return connectivity.NewHandler(dispensers, nozzles, tanks, notifier, log)
}

func provideProcessor(
	cfg *config.Config,
	rec *reconciler.Reconciler,
	dispensers station.DispenserRepository,
	conn *connectivity.Handler,
	diag *diagnostics.Service,
	collector *ingestion.Collector,
	log *zap.Logger,
) *ingestion.Processor {
	return ingestion.NewProcessor(ingestion.ProcessorConfig{
		Workers:    cfg.Ingestion.Workers,
		BufferSize: cfg.Ingestion.BufferSize,
		ConnPrefix: cfg.MQTT.ConnStatusPrefix,
	}, ingestion.ProcessorDeps{
		State:        rec,
		Dispensers:   dispensers,
		Connectivity: conn,
		Diagnostics:  diag,
		Collector:    collector,
	}, log)
}

func provideIngestionClient(
	cfg *config.Config,
	processor *ingestion.Processor,
	dispensers station.DispenserRepository,
	tanks station.TankRepository,
	nozzles station.NozzleRepository,
	monitor *liveness.Monitor,
	log *zap.Logger,
) (*ingestion.MQTTIngestionClient, error) {
	return ingestion.NewMQTTIngestionClient(&ingestion.MQTTIngestionConfig{
		ClientConfig: &pkgmqtt.Config{
			Broker:               cfg.MQTT.Broker,
			ClientID:             cfg.MQTT.ClientID,
			Username:             cfg.MQTT.Username,
			Password:             cfg.MQTT.Password,
			CleanSession:         cfg.MQTT.CleanSession,
			KeepAlive:            cfg.MQTT.KeepAlive,
			ConnectTimeout:       cfg.MQTT.ConnectTimeout,
			OperationTimeout:     cfg.MQTT.OperationTimeout,
			AutoReconnect:        true,
			MaxReconnectInterval: cfg.MQTT.MaxReconnectInterval,
		},
		QoS:           cfg.MQTT.QoS,
		ResyncTimeout: resyncTimeout,
	}, processor, ingestion.MQTTIngestionDeps{
		Dispensers: dispensers,
		Tanks:      tanks,
		Nozzles:    nozzles,
		Liveness:   monitor,
	}, log)
}

func provideDailySalesJob(cfg *config.Config, nozzles station.NozzleRepository, txs station.TransactionRepository, log *zap.Logger) (*jobs.DailySalesJob, error) {
	loc, err := cfg.Jobs.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid JOBS_TIMEZONE %q: %w", cfg.Jobs.Timezone, err)
	}
	return jobs.NewDailySalesJob(nozzles, txs, loc, log), nil
}

func provideRateLimiter(cfg *config.Config) *middleware.RateLimiter {
	return middleware.NewRateLimiter(cfg.RateLimit.GeneralRPS, cfg.RateLimit.GeneralBurst)
}

type httpParams struct {
	fx.In

	Config      *config.Config
	DB          *postgres.DB
	Client      *ingestion.MQTTIngestionClient
	Processor   *ingestion.Processor
	Diagnostics *diagnostics.Service
	Calibration *calibration.Cache
	Monitor     *liveness.Monitor
	Hub         *notify.Hub
	Limiter     *middleware.RateLimiter
	Logger      *zap.Logger
}

func provideHTTPServer(p httpParams) *http.Server {
	router := routes.SetupRoutes(p.Config, routes.Dependencies{
		Database:      p.DB,
		Broker:        p.Client,
		RateLimiter:   p.Limiter,
		Diagnostics:   handler.NewDiagnosticsHandler(p.Diagnostics.Registry()),
		Subscriptions: handler.NewSubscriptionHandler(p.Client.Subscriptions()),
		Calibration:   handler.NewCalibrationHandler(p.Calibration),
		Monitor:       handler.NewMonitorHandler(p.Monitor, p.Processor.Metrics()),
		Metrics:       p.Processor.Collector().Handler(),
		Notifications: p.Hub.Handler(),
	}, p.Logger)

	host := p.Config.Server.Host
	if host == "" {
		host = "0.0.0.0"
	}
	port := p.Config.Server.Port
	if port == "" {
		port = "8080"
	}

	return &http.Server{
		Addr:         net.JoinHostPort(host, port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

type lifecycleParams struct {
	fx.In

	Lifecycle   fx.Lifecycle
	Config      *config.Config
	Tanks       station.TankRepository
	Calibration *calibration.Cache
	Processor   *ingestion.Processor
	Monitor     *liveness.Monitor
	Client      *ingestion.MQTTIngestionClient
	DailySales  *jobs.DailySalesJob
	Limiter     *middleware.RateLimiter
	Hub         *notify.Hub
	Server      *http.Server
	Logger      *zap.Logger
}

// registerLifecycle starts the pipeline bottom-up; fx stops it in reverse.
func registerLifecycle(p lifecycleParams) {
	bg, cancel := context.WithCancel(context.Background())
	log := p.Logger

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := p.DailySales.Initialize(ctx); err != nil {
				log.Error("Daily sales initialization failed", zap.Error(err))
			}
			if p.Config.Calibration.Preload {
				go preloadCalibration(bg, p.Tanks, p.Calibration, log)
			}
			go p.DailySales.Run(bg)
			go p.Monitor.Run(bg)
			go p.Limiter.Run(bg)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			return p.Hub.Close(ctx)
		},
	})

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			p.Processor.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			p.Processor.Stop()
			return nil
		},
	})

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return p.Client.Start()
		},
		OnStop: func(context.Context) error {
			p.Client.Stop()
			return nil
		},
	})

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", p.Server.Addr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", p.Server.Addr, err)
			}
			go func() {
				log.Info("HTTP server starting", zap.String("address", p.Server.Addr))
				if err := p.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("HTTP server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down HTTP server")
			return p.Server.Shutdown(ctx)
		},
	})
}

func preloadCalibration(ctx context.Context, tanks station.TankRepository, cache *calibration.Cache, log *zap.Logger) {
	list, err := tanks.List(ctx)
	if err != nil {
		log.Warn("Calibration preload skipped, failed to list tanks", zap.Error(err))
		return
	}

	refs := make([]calibration.TankRef, 0, len(list))
	for _, t := range list {
		refs = append(refs, calibration.TankRef{Address: t.Address, TankID: t.TankID, Path: t.DipChartPath})
	}
	cache.Preload(ctx, refs)
}
