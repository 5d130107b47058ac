package event

import (
	"context"
	"time"

	"github.com/larder/backend/internal/domain/inventory"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

// MessageWriter is the subset of *kafka.Writer the sink uses
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig configures the Kafka writer
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

// KafkaEventSink publishes events to a Kafka topic, keyed by
// stock key so events for one stock key stay on one partition in order.
type KafkaEventSink struct {
	writer       MessageWriter
	writeTimeout time.Duration
	logger       *zap.Logger
}

// NewKafkaWriter creates a hash-balanced kafka writer
func NewKafkaWriter(cfg KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           cfg.BatchTimeout,
		WriteTimeout:           cfg.WriteTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

// NewKafkaEventSink wraps writer. writeTimeout bounds each Publish call.
func NewKafkaEventSink(writer MessageWriter, writeTimeout time.Duration, logger *zap.Logger) *KafkaEventSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &KafkaEventSink{
		writer:       writer,
		writeTimeout: writeTimeout,
		logger:       logger,
	}
}

// Publish writes events in one batch. Failures are logged.
func (s *KafkaEventSink) Publish(ctx context.Context, events ...inventory.Event) {
	if err := s.write(ctx, events...); err != nil {
		s.logger.Error("Failed to publish events to kafka",
			zap.Int("count", len(events)),
			zap.Error(err),
		)
	}
}

// Name identifies the sink when subscribed to the bus
func (s *KafkaEventSink) Name() string { return "kafka" }

// Handle publishes a single event and reports the error to the bus
func (s *KafkaEventSink) Handle(ctx context.Context, event inventory.Event) error {
	return s.write(ctx, event)
}

// Close flushes pending messages and closes the writer
func (s *KafkaEventSink) Close() error {
	return s.writer.Close()
}

func (s *KafkaEventSink) write(ctx context.Context, events ...inventory.Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		msg, err := s.message(ctx, e)
		if err != nil {
			s.logger.Error("Dropping event that failed to encode",
				zap.String("event_id", e.ID.String()),
				zap.String("event_kind", string(e.Kind)),
				zap.Error(err),
			)
			continue
		}
		msgs = append(msgs, msg)
	}
	if len(msgs) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.writeTimeout)
	defer cancel()
	return s.writer.WriteMessages(ctx, msgs...)
}

func (s *KafkaEventSink) message(ctx context.Context, e inventory.Event) (kafka.Message, error) {
	value, err := Marshal(e)
	if err != nil {
		return kafka.Message{}, err
	}
	headers := []kafka.Header{
		{Key: "event_kind", Value: []byte(e.Kind)},
		{Key: "event_id", Value: []byte(e.ID.String())},
	}
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for k, v := range carrier {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return kafka.Message{
		Key:     []byte(inventory.NewStockKey(e.ItemID, e.LocationID).String()),
		Value:   value,
		Headers: headers,
		Time:    e.OccurredAt,
	}, nil
}

var (
	_ inventory.EventSink = (*KafkaEventSink)(nil)
	_ Handler             = (*KafkaEventSink)(nil)
)
