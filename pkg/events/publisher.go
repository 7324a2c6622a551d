// Package events publishes timetable domain events to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// DefaultQueue receives run completion events.
const DefaultQueue = "timetable.generated"

// RunCompletedEvent is emitted once a generation run has been persisted.
type RunCompletedEvent struct {
	RunID       string         `json:"run_id"`
	Status      string         `json:"status"`
	Placed      int            `json:"placed"`
	Unplaced    int            `json:"unplaced"`
	FastPath    int            `json:"fast_path"`
	Fallback    int            `json:"fallback"`
	PerDay      map[string]int `json:"per_day,omitempty"`
	RequestedBy string         `json:"requested_by,omitempty"`
	CompletedAt time.Time      `json:"completed_at"`
}

// Publisher delivers run events to downstream consumers.
type Publisher interface {
	PublishRunCompleted(ctx context.Context, event RunCompletedEvent) error
}

// NoopPublisher discards every event.
type NoopPublisher struct{}

// PublishRunCompleted implements Publisher.
func (NoopPublisher) PublishRunCompleted(context.Context, RunCompletedEvent) error { return nil }

// AMQPPublisher sends events to a durable queue on the default exchange,
// dialing the broker for each publish.
type AMQPPublisher struct {
	url    string
	queue  string
	logger *zap.Logger
}

// NewAMQPPublisher builds a publisher for the broker at url.
func NewAMQPPublisher(url, queue string, logger *zap.Logger) *AMQPPublisher {
	if queue == "" {
		queue = DefaultQueue
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AMQPPublisher{url: url, queue: queue, logger: logger}
}

// New returns an AMQP publisher when enabled, otherwise a no-op.
func New(enabled bool, url, queue string, logger *zap.Logger) Publisher {
	if !enabled || url == "" {
		return NoopPublisher{}
	}
	return NewAMQPPublisher(url, queue, logger)
}

// Queue reports the destination queue name.
func (p *AMQPPublisher) Queue() string { return p.queue }

// PublishRunCompleted marshals the event and publishes it as a persistent message.
func (p *AMQPPublisher) PublishRunCompleted(ctx context.Context, event RunCompletedEvent) error {
	body, err := encode(event)
	if err != nil {
		return err
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.logger.Warn("amqp dial failed", zap.Error(err))
		return fmt.Errorf("dial broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", p.queue, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    event.RunID,
		Type:         "timetable.run.completed",
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("publish run event: %w", err)
	}
	p.logger.Debug("run event published", zap.String("run_id", event.RunID), zap.String("queue", p.queue))
	return nil
}

func encode(event RunCompletedEvent) ([]byte, error) {
	if event.RunID == "" {
		return nil, fmt.Errorf("run id required")
	}
	if event.CompletedAt.IsZero() {
		event.CompletedAt = time.Now().UTC()
	}
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal run event: %w", err)
	}
	return body, nil
}
