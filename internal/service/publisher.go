// Package service publishes domain events to RabbitMQ.  Publishing is best
// effort: failures are logged and returned, and callers never fail a
// request because of them.
package service

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/coworking-space-reservation/internal/queue"
)

// Publisher sends events to queue.QueueName on the default exchange.  A
// disabled Publisher drops every event.
type Publisher struct {
	url     string
	enabled bool
	log     *zap.Logger
}

func NewPublisher(url string, enabled bool, log *zap.Logger) *Publisher {
	return &Publisher{url: url, enabled: enabled, log: log}
}

// Publish marshals ev and sends it as a persistent message.  It opens a
// short-lived connection per event.
func (p *Publisher) Publish(ctx context.Context, ev queue.Event) error {
	if !p.enabled {
		return nil
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		p.log.Error("rabbitmq: marshal event failed", zap.String("type", ev.Type), zap.Error(err))
		return err
	}

	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(5 * time.Second)})
	if err != nil {
		p.log.Warn("rabbitmq: dial failed", zap.Error(err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn("rabbitmq: channel open failed", zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queue.QueueName, true, false, false, false, nil); err != nil {
		p.log.Warn("rabbitmq: queue declare failed", zap.Error(err))
		return err
	}

	err = ch.PublishWithContext(ctx, "", queue.QueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.OccurredAt,
		Type:         ev.Type,
		Body:         body,
	})
	if err != nil {
		p.log.Warn("rabbitmq: publish failed", zap.String("type", ev.Type), zap.Error(err))
		return err
	}
	return nil
}
