package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/groupcart-backend/internal/http/handlers"
	httpMW "github.com/yungbote/groupcart-backend/internal/http/middleware"
	"github.com/yungbote/groupcart-backend/internal/observability"
	"github.com/yungbote/groupcart-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	CORSOrigins    []string
	Metrics        *observability.Metrics
	AuthMiddleware *httpMW.AuthMiddleware

	RealtimeHandler   *httpH.RealtimeHandler
	GroupOrderHandler *httpH.GroupOrderHandler
	PaymentHandler    *httpH.PaymentHandler
	HealthHandler     *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	protected := api.Group("/")
	{
		// Middleware
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			protected.GET("/realtime/stream", cfg.RealtimeHandler.SSEStream)
			protected.POST("/realtime/connections/:connectionId/events", cfg.RealtimeHandler.PostEvent)
		}

		// Group orders
		if cfg.GroupOrderHandler != nil {
			protected.POST("/group-orders", cfg.GroupOrderHandler.Create)
			protected.GET("/group-orders", cfg.GroupOrderHandler.ListMine)
			protected.GET("/group-orders/:sessionId", cfg.GroupOrderHandler.Get)
			protected.POST("/group-orders/:sessionId/participants/leave", cfg.GroupOrderHandler.Leave)
			protected.PUT("/group-orders/:sessionId/spending-limits", cfg.GroupOrderHandler.SetSpendingLimits)
			protected.PUT("/group-orders/:sessionId/charges", cfg.GroupOrderHandler.SetCharges)
		}

		// Payments
		if cfg.PaymentHandler != nil {
			protected.POST("/group-orders/:sessionId/payments/process", cfg.PaymentHandler.Process)
			protected.POST("/group-orders/:sessionId/payments/refund", cfg.PaymentHandler.Refund)
			protected.POST("/payments/intents", cfg.PaymentHandler.CreateIntent)
			protected.POST("/payments/intents/:intentId/confirm", cfg.PaymentHandler.ConfirmIntent)
		}
	}

	return r
}
