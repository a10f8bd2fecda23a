package app

import (
	"gorm.io/gorm"

	dataagg "github.com/yungbote/groupcart-backend/internal/data/aggregates"
	"github.com/yungbote/groupcart-backend/internal/data/repos"
	domainagg "github.com/yungbote/groupcart-backend/internal/domain/aggregates"
	"github.com/yungbote/groupcart-backend/internal/gateway"
	"github.com/yungbote/groupcart-backend/internal/observability"
	"github.com/yungbote/groupcart-backend/internal/platform/logger"
	"github.com/yungbote/groupcart-backend/internal/realtime"
	"github.com/yungbote/groupcart-backend/internal/services"
)

type Services struct {
	Orders     domainagg.GroupOrderAggregate
	Notifier   services.GroupOrderNotifier
	Sessions   services.SessionService
	Cart       services.CartService
	Submission services.SubmissionService
	Payments   services.PaymentService
	Gateway    *gateway.Gateway
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet repos.Repos, clients Clients, hub *realtime.SSEHub, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")

	orders := dataagg.NewGroupOrderAggregate(dataagg.GroupOrderAggregateDeps{
		Base: dataagg.BaseDeps{
			DB:    db,
			Log:   log,
			Hooks: dataagg.NewObservabilityHooks(metrics),
		},
		Orders: reposet.GroupOrders,
	})

	// Deltas go through the bus so every node's hub sees them.
	notifier := services.NewGroupOrderNotifier(&services.BusEmitter{Bus: clients.SSEBus, Log: log})

	sessions := services.NewSessionService(db, log, orders, reposet.GroupOrders)
	cart := services.NewCartService(log, orders)
	submission := services.NewSubmissionService(log, orders, clients.Fulfillment)
	payments := services.NewPaymentService(services.PaymentServiceDeps{
		Log:       log,
		Orders:    orders,
		Processor: clients.Payments,
		Billing:   clients.Billing,
		Locks:     clients.Locks,
		Notifier:  notifier,
		Metrics:   metrics,
		Currency:  cfg.Payments.Currency,
		LockTTL:   cfg.PaymentLockTTL(),
	})

	gw := gateway.New(gateway.Deps{
		Log:        log,
		Hub:        hub,
		Notifier:   notifier,
		Sessions:   sessions,
		Cart:       cart,
		Submission: submission,
		Metrics:    metrics,
	})

	return Services{
		Orders:     orders,
		Notifier:   notifier,
		Sessions:   sessions,
		Cart:       cart,
		Submission: submission,
		Payments:   payments,
		Gateway:    gw,
	}
}
