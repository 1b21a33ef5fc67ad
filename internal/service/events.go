package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/agro-operations/internal/config"
	"github.com/iliyamo/agro-operations/internal/queue"
)

// EventPublisher delivers audit events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.AuditEvent) error
}

// NopPublisher drops every event.  It is used when the broker is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.AuditEvent) error { return nil }

// AMQPPublisher publishes events to a durable RabbitMQ queue.  Each publish
// opens its own connection so a broker outage never leaves a broken
// connection cached in the process.
type AMQPPublisher struct {
	url         string
	queue       string
	dialTimeout time.Duration
}

func NewAMQPPublisher(cfg config.AMQPConfig) *AMQPPublisher {
	q := cfg.Queue
	if q == "" {
		q = queue.AuditQueueName
	}
	return &AMQPPublisher{url: cfg.URL, queue: q, dialTimeout: 5 * time.Second}
}

// Publish marshals ev and sends it as a persistent message on the default
// exchange, routed by queue name.
func (p *AMQPPublisher) Publish(ctx context.Context, ev queue.AuditEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(p.dialTimeout)})
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		p.queue, // name
		true,    // durable
		false,   // autoDelete
		false,   // exclusive
		false,   // noWait
		nil,     // args
	); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// emitter publishes in the background so a slow or absent broker never
// delays or fails the request that produced the event.
type emitter struct {
	pub     EventPublisher
	log     logrus.FieldLogger
	timeout time.Duration
}

func newEmitter(pub EventPublisher, log logrus.FieldLogger) emitter {
	if pub == nil {
		pub = NopPublisher{}
	}
	return emitter{pub: pub, log: log, timeout: 10 * time.Second}
}

func (e emitter) emit(ev queue.AuditEvent) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()
		if err := e.pub.Publish(ctx, ev); err != nil {
			e.log.WithError(err).WithFields(logrus.Fields{
				"event":   ev.Type,
				"user_id": ev.UserID,
			}).Warn("audit event not published")
		}
	}()
}
