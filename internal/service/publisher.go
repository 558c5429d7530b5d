package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/theatre-reservation/internal/queue"
)

// EventPublisher delivers reservation events.  Implementations should not
// block for long; callers treat failures as non-fatal.
type EventPublisher interface {
	PublishReservationCreated(ctx context.Context, ev queue.ReservationCreatedEvent) error
}

// AMQPPublisher publishes events to RabbitMQ, dialing per message.
// Reservation traffic is low enough that a long-lived channel is not needed.
type AMQPPublisher struct {
	URL string
}

// NewAMQPPublisher returns a publisher for the broker at url.
func NewAMQPPublisher(url string) *AMQPPublisher { return &AMQPPublisher{URL: url} }

// PublishReservationCreated sends ev as a persistent JSON message to the
// reservation.created queue on the default exchange.
func (p *AMQPPublisher) PublishReservationCreated(ctx context.Context, ev queue.ReservationCreatedEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queue.ReservationCreatedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	err = ch.PublishWithContext(ctx, "", queue.ReservationCreatedQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) PublishReservationCreated(context.Context, queue.ReservationCreatedEvent) error {
	return nil
}
