package app

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/groupcart-backend/internal/platform/billing"
	"github.com/yungbote/groupcart-backend/internal/platform/envutil"
	"github.com/yungbote/groupcart-backend/internal/platform/fulfillment"
	"github.com/yungbote/groupcart-backend/internal/platform/locks"
	"github.com/yungbote/groupcart-backend/internal/platform/logger"
	"github.com/yungbote/groupcart-backend/internal/platform/payments"
	"github.com/yungbote/groupcart-backend/internal/realtime/bus"
)

type Clients struct {
	Redis       *goredis.Client
	SSEBus      bus.Bus
	Locks       locks.Locker
	Payments    payments.Client
	Billing     billing.Client
	Fulfillment fulfillment.Client

	kafkaWriter fulfillment.Producer
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// Redis: shared SSE fan-out and payment locks. Without it everything is
	// process-local.
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		rdb, err := bus.NewRedisClient(ctx, bus.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
		out.Redis = rdb
		b, err := bus.NewRedisBus(log, rdb, cfg.Redis.Channel)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init redis SSE bus: %w", err)
		}
		out.SSEBus = b
		l, err := locks.NewRedis(rdb, "")
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init redis locks: %w", err)
		}
		out.Locks = l
	} else {
		log.Warn("REDIS_ADDR not set; realtime fan-out and payment locks are process-local")
		out.SSEBus = bus.NewLocalBus()
		out.Locks = locks.NewMemory()
	}

	// Payment processor
	if strings.TrimSpace(cfg.Payments.BaseURL) != "" {
		pc := payments.ConfigFromEnv()
		pc.BaseURL, pc.APIKey, pc.Currency = cfg.Payments.BaseURL, cfg.Payments.APIKey, cfg.Payments.Currency
		p, err := payments.New(log, pc)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init payments client: %w", err)
		}
		out.Payments = p
	} else {
		log.Warn("PAYMENTS_BASE_URL not set; payment calls will fail")
		out.Payments = payments.Disabled{}
	}

	// Billing (payment credentials)
	if strings.TrimSpace(cfg.Billing.BaseURL) != "" {
		bc := billing.ConfigFromEnv()
		bc.BaseURL, bc.APIKey = cfg.Billing.BaseURL, cfg.Billing.APIKey
		b, err := billing.New(log, bc)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init billing client: %w", err)
		}
		out.Billing = b
	} else {
		log.Warn("BILLING_BASE_URL not set; no payer has a credential")
		out.Billing = billing.Static{}
	}

	// Fulfillment
	switch cfg.Fulfillment.Mode {
	case FulfillmentKafka:
		w, err := fulfillment.NewKafkaWriter(fulfillment.KafkaConfig{
			Brokers:      cfg.Fulfillment.Brokers,
			Topic:        cfg.Fulfillment.Topic,
			WriteTimeout: envutil.Seconds("KAFKA_WRITE_TIMEOUT_SECONDS", 0),
		})
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init kafka writer: %w", err)
		}
		out.kafkaWriter = w
		fc, err := fulfillment.NewKafka(log, w, cfg.Fulfillment.Topic)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init kafka fulfillment: %w", err)
		}
		out.Fulfillment = fc
	default:
		if strings.TrimSpace(cfg.Fulfillment.BaseURL) == "" {
			log.Warn("FULFILLMENT_BASE_URL not set; submissions will fail as retryable")
			out.Fulfillment = fulfillment.Disabled{}
			break
		}
		fcfg := fulfillment.HTTPConfigFromEnv()
		fcfg.BaseURL, fcfg.APIKey = cfg.Fulfillment.BaseURL, cfg.Fulfillment.APIKey
		fc, err := fulfillment.NewHTTP(log, fcfg)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init fulfillment client: %w", err)
		}
		out.Fulfillment = fc
	}

	return out, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.SSEBus != nil {
		_ = c.SSEBus.Close()
	}
	if c.kafkaWriter != nil {
		_ = c.kafkaWriter.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
