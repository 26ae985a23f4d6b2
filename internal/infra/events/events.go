// Package events delivers committed medicine stock movements to external
// consumers. Publishers are selected from the environment by Open.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"hsecore/pkg/domain"
)

// Publisher is the contract implemented by every backend. It matches the
// service's EventPublisher option.
type Publisher interface {
	PublishStockMovements(ctx context.Context, movements []domain.StockMovement) error
	Close() error
}

// Logger is the subset of *slog.Logger used by LogPublisher.
type Logger interface {
	Info(msg string, args ...any)
}

// Driver names accepted by HSE_EVENTS_DRIVER.
const (
	DriverNone  = "none"
	DriverLog   = "log"
	DriverKafka = "kafka"
	DriverSQS   = "sqs"
)

const defaultKafkaTopic = "hse.stock-movements"

// envelope is the wire format of one movement.
type envelope struct {
	Type string `json:"type"`
	domain.StockMovement
}

const stockMovementType = "medicine.stock_movement"

func encode(m domain.StockMovement) ([]byte, error) {
	return json.Marshal(envelope{Type: stockMovementType, StockMovement: m})
}

// Decode parses a payload produced by any publisher in this package.
func Decode(payload []byte) (domain.StockMovement, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return domain.StockMovement{}, fmt.Errorf("decode stock movement: %w", err)
	}
	if env.Type != stockMovementType {
		return domain.StockMovement{}, fmt.Errorf("decode stock movement: unexpected type %q", env.Type)
	}
	return env.StockMovement, nil
}

// Open selects a publisher using environment variables. It returns nil
// when publishing is disabled.
//
//	HSE_EVENTS_DRIVER: none|log|kafka|sqs (default none)
//	HSE_KAFKA_BROKERS: comma separated broker addresses (kafka)
//	HSE_KAFKA_TOPIC: topic name (kafka, default hse.stock-movements)
//	HSE_SQS_QUEUE_URL: queue url (sqs)
//	HSE_SQS_REGION: region override (sqs)
func Open(ctx context.Context, logger Logger) (Publisher, error) {
	driver := strings.ToLower(strings.TrimSpace(os.Getenv("HSE_EVENTS_DRIVER")))
	switch driver {
	case "", DriverNone:
		return nil, nil
	case DriverLog:
		return NewLogPublisher(logger), nil
	case DriverKafka:
		var brokers []string
		for _, b := range strings.Split(os.Getenv("HSE_KAFKA_BROKERS"), ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
		topic := os.Getenv("HSE_KAFKA_TOPIC")
		if topic == "" {
			topic = defaultKafkaTopic
		}
		return NewKafkaPublisher(brokers, topic)
	case DriverSQS:
		return NewSQSPublisher(ctx, os.Getenv("HSE_SQS_QUEUE_URL"), os.Getenv("HSE_SQS_REGION"))
	default:
		return nil, fmt.Errorf("unsupported events driver %q", driver)
	}
}
