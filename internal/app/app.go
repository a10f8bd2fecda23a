package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/groupcart-backend/internal/data/db"
	"github.com/yungbote/groupcart-backend/internal/data/repos"
	"github.com/yungbote/groupcart-backend/internal/http"
	"github.com/yungbote/groupcart-backend/internal/observability"
	"github.com/yungbote/groupcart-backend/internal/platform/logger"
	"github.com/yungbote/groupcart-backend/internal/realtime"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Repos    repos.Repos
	Clients  Clients
	Services Services
	SSEHub   *realtime.SSEHub
	Server   *http.Server
	Metrics  *observability.Metrics

	database     *db.Service
	otelShutdown func(context.Context) error
}

// NewLogger builds the process logger from LOG_MODE before config is loaded.
func NewLogger(mode string) (*logger.Logger, error) {
	if mode == "" {
		mode = "development"
	}
	log, err := logger.New(mode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

// OpenDatabase connects using cfg; used directly by the migrate command.
func OpenDatabase(log *logger.Logger, cfg Config) (*db.Service, error) {
	svc, err := db.Open(log, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	return svc, nil
}

func New(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
		Enabled:     cfg.OtelEnabled,
	})
	metrics := observability.Init(log, cfg.MetricsEnabled)

	database, err := OpenDatabase(log, cfg)
	if err != nil {
		return nil, err
	}
	// SQLite dev databases are created on the fly; Postgres goes through `migrate`.
	if database.Driver() == db.DriverSQLite {
		if err := db.AutoMigrateAll(database.DB()); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("sqlite automigrate: %w", err)
		}
	}
	theDB := database.DB()

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		_ = database.Close()
		return nil, err
	}

	ssehub := realtime.NewSSEHub(log)
	if metrics != nil {
		ssehub.WithDropObserver(metrics)
	}

	reposet := repos.New(theDB, log)
	serviceset := wireServices(theDB, log, cfg, reposet, clients, ssehub, metrics)
	handlerset := wireHandlers(log, serviceset, clients, database, ssehub, metrics)
	middleware := wireMiddleware(log, cfg)
	server := wireServer(log, cfg, handlerset, middleware, metrics)

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clients,
		Services:     serviceset,
		SSEHub:       ssehub,
		Server:       server,
		Metrics:      metrics,
		database:     database,
		otelShutdown: otelShutdown,
	}, nil
}

// Run serves HTTP and forwards bus messages into the local hub until ctx ends
// or one of them fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)

	if err := a.Clients.SSEBus.StartForwarder(gctx, a.SSEHub.Dispatch); err != nil {
		return fmt.Errorf("start SSE forwarder: %w", err)
	}
	if a.Metrics != nil {
		a.Metrics.StartServer(gctx, a.Log, a.Cfg.MetricsAddr)
		if a.Clients.Redis != nil {
			a.Metrics.StartRedisCollector(gctx, a.Log, a.Clients.Redis)
		}
	}

	g.Go(func() error {
		a.Log.Info("HTTP server listening", "addr", a.Cfg.HTTPAddr)
		return a.Server.Run(gctx, a.Cfg.HTTPAddr)
	})
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.database != nil {
		_ = a.database.Close()
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
