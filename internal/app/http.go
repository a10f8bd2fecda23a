package app

import (
	"context"

	"github.com/yungbote/groupcart-backend/internal/data/db"
	"github.com/yungbote/groupcart-backend/internal/http"
	httpH "github.com/yungbote/groupcart-backend/internal/http/handlers"
	httpMW "github.com/yungbote/groupcart-backend/internal/http/middleware"
	"github.com/yungbote/groupcart-backend/internal/observability"
	"github.com/yungbote/groupcart-backend/internal/platform/logger"
	"github.com/yungbote/groupcart-backend/internal/realtime"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health     *httpH.HealthHandler
	Realtime   *httpH.RealtimeHandler
	GroupOrder *httpH.GroupOrderHandler
	Payment    *httpH.PaymentHandler
}

func wireHandlers(log *logger.Logger, services Services, clients Clients, database *db.Service, sseHub *realtime.SSEHub, metrics *observability.Metrics) Handlers {
	log.Info("Wiring handlers...")
	checks := map[string]httpH.Pinger{
		"database": func(context.Context) error { return database.Ping() },
	}
	if clients.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return clients.Redis.Ping(ctx).Err() }
	}
	return Handlers{
		Health:     httpH.NewHealthHandler(checks),
		Realtime:   httpH.NewRealtimeHandler(log, sseHub, services.Gateway, metrics),
		GroupOrder: httpH.NewGroupOrderHandler(log, services.Sessions, services.Notifier),
		Payment:    httpH.NewPaymentHandler(log, services.Payments),
	}
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, cfg.Auth.JWTSecretKey, cfg.Auth.Issuer),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware, metrics *observability.Metrics) *http.Server {
	serviceName := ""
	if cfg.OtelEnabled {
		serviceName = cfg.ServiceName
	}
	return http.NewServer(http.RouterConfig{
		Log:               log,
		ServiceName:       serviceName,
		CORSOrigins:       cfg.CORSOrigins,
		Metrics:           metrics,
		AuthMiddleware:    middleware.Auth,
		HealthHandler:     handlers.Health,
		RealtimeHandler:   handlers.Realtime,
		GroupOrderHandler: handlers.GroupOrder,
		PaymentHandler:    handlers.Payment,
	})
}
