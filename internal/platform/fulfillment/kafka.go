package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/yungbote/groupcart-backend/internal/platform/envutil"
	"github.com/yungbote/groupcart-backend/internal/platform/logger"
)

// orderNamespace seeds deterministic order ids so a resubmitted session maps to
// the same order.
var orderNamespace = uuid.MustParse("6f1d3c2a-8a4e-4c55-9d7b-2f0e5b7a9c11")

// Producer is the subset of *kafka.Writer used here.
type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

func KafkaConfigFromEnv() KafkaConfig {
	return KafkaConfig{
		Brokers:      envutil.List("KAFKA_BROKERS", []string{"localhost:9092"}),
		Topic:        envutil.String("KAFKA_ORDERS_TOPIC", "group-orders.submitted"),
		WriteTimeout: envutil.Seconds("KAFKA_WRITE_TIMEOUT_SECONDS", 10*time.Second),
	}
}

type kafkaClient struct {
	log      *logger.Logger
	producer Producer
	topic    string
}

type orderEvent struct {
	OrderID string `json:"orderId"`
	Order
}

// NewKafkaWriter builds the writer used by NewKafka.
func NewKafkaWriter(cfg KafkaConfig) (*kafka.Writer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("missing KAFKA_BROKERS")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, fmt.Errorf("missing KAFKA_ORDERS_TOPIC")
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		WriteTimeout:           cfg.WriteTimeout,
		AllowAutoTopicCreation: true,
	}, nil
}

// NewKafka publishes submitted orders to a topic keyed by session id. The order
// id is derived from the session id, so a retried submission reuses it.
func NewKafka(log *logger.Logger, producer Producer, topic string) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if producer == nil {
		return nil, fmt.Errorf("kafka producer required")
	}
	return &kafkaClient{log: log.With("client", "FulfillmentKafkaClient"), producer: producer, topic: topic}, nil
}

func (c *kafkaClient) CreateOrder(ctx context.Context, order Order) (string, error) {
	orderID := uuid.NewSHA1(orderNamespace, []byte(order.IdempotencyKey)).String()
	body, err := json.Marshal(orderEvent{OrderID: orderID, Order: order})
	if err != nil {
		return "", fmt.Errorf("encode order event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(order.SessionID),
		Value: body,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte("order-submitted")},
			{Key: "idempotency-key", Value: []byte(order.IdempotencyKey)},
		},
		Time: order.SubmittedAt,
	}
	if err := c.producer.WriteMessages(ctx, msg); err != nil {
		c.log.Warn("publish order failed", "session_id", order.SessionID, "topic", c.topic, "error", err)
		return "", fmt.Errorf("publish order: %w", err)
	}
	c.log.Info("order published", "session_id", order.SessionID, "order_id", orderID, "topic", c.topic)
	return orderID, nil
}
