package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Consumer listens on the reservation.created queue and appends one line
// per event to its sink.
type Consumer struct {
	URL  string
	Log  logrus.FieldLogger
	Sink io.Writer
}

// OpenLogSink opens (creating if needed) the append-only reservation log.
func OpenLogSink(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return os.OpenFile(filepath.Join(dir, "reservations.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

// Run dials the broker and consumes until ctx is cancelled, reconnecting
// with exponential backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) {
	backoff := time.Second
	for ctx.Err() == nil {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Log.WithError(err).Warnf("reservation-consumer: dial failed, retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		c.Log.WithError(err).Warn("reservation-consumer: consume loop ended, reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Log.WithError(err).Warn("reservation-consumer: set QoS failed")
	}
	if _, err := ch.QueueDeclare(ReservationCreatedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(ReservationCreatedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.Handle(d.Body); err != nil {
				c.Log.WithError(err).Error("reservation-consumer: handle message failed")
				_ = d.Nack(false, false) // no requeue, a bad payload would loop
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle decodes one message body and writes its log line to the sink.
func (c *Consumer) Handle(body []byte) error {
	var ev ReservationCreatedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if _, err := io.WriteString(c.Sink, FormatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatLine renders an event as a single human-readable line.
func FormatLine(ev ReservationCreatedEvent) string {
	places := make([]string, 0, len(ev.Tickets))
	for _, t := range ev.Tickets {
		places = append(places, fmt.Sprintf("p%d:r%d:s%d", t.PerformanceID, t.Row, t.Seat))
	}
	return fmt.Sprintf("[%s] Reservation created | reservation_id=%d | user_id=%d | tickets=[%s]\n",
		ev.CreatedAt.UTC().Format(time.RFC3339), ev.ReservationID, ev.UserID, strings.Join(places, ","))
}
