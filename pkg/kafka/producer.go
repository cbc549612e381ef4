package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/civicpulse/civicpulse/pkg/metrics"
	"github.com/civicpulse/civicpulse/pkg/tracing"
)

// Producer handles Kafka event emission
type Producer struct {
	writer *kafka.Writer
	logger ectologger.Logger
	topic  string
}

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	compression := kafka.Snappy
	switch cfg.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	case "none":
		compression = 0
	}

	requiredAcks := kafka.RequiredAcks(cfg.RequiredAcks)

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           requiredAcks,
		Compression:            compression,
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		logger: logger,
		topic:  cfg.Topic,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// ReportEvent represents a lifecycle event about a report
type ReportEvent struct {
	EventType    string          `json:"event_type"`
	ReportID     int64           `json:"report_id"`
	Action       string          `json:"action,omitempty"`
	FromStatus   string          `json:"from_status,omitempty"`
	ToStatus     string          `json:"to_status,omitempty"`
	ActorID      string          `json:"actor_id,omitempty"`
	DepartmentID int64           `json:"department_id,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
}

// PublishReportEvent publishes a report event to Kafka. Events about the same
// report share a partition key so their ordering is preserved.
func (p *Producer) PublishReportEvent(ctx context.Context, event *ReportEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishReportEvent")
	defer span.End()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(strconv.FormatInt(event.ReportID, 10)),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "schema_version", Value: []byte("1.0")},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		metrics.EventsPublished.WithLabelValues(event.EventType, "error").Inc()
		p.logger.WithContext(ctx).WithError(err).Error("Failed to publish report event")
		return err
	}

	metrics.EventsPublished.WithLabelValues(event.EventType, "ok").Inc()
	p.logger.WithContext(ctx).WithFields(map[string]any{
		"event_type": event.EventType,
		"report_id":  event.ReportID,
	}).Debug("Published report event")

	return nil
}
