package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/rentals-marketplace/internal/logger"
)

// DeliveryLogFile is the file the consumer appends to inside its log dir.
const DeliveryLogFile = "delivery.log"

// StartDeliveryConsumer connects to RabbitMQ, declares the queue (durable)
// and appends every event to <logDir>/delivery.log in a single-line,
// human-friendly format.  It reconnects with backoff until ctx is
// cancelled, then returns ctx.Err().  Malformed messages are rejected
// without requeue so they cannot loop.
func StartDeliveryConsumer(ctx context.Context, url, queue, logDir string) error {
	log := logger.WithComponent("delivery-consumer")
	backoff := minBackoff
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn("failed to dial broker", "error", err, "retry_in", backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = minBackoff

		err = consumeLoop(ctx, conn, queue, logDir)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("consume loop ended; reconnecting", "error", err)
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, queue, logDir string) error {
	log := logger.WithComponent("delivery-consumer")
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("set QoS failed", "error", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handleMessage(logDir, d.Body); err != nil {
				log.Error("handle message failed", "error", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func handleMessage(logDir string, body []byte) error {
	var ev StatusChangedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.ListingID == 0 || ev.Status == "" {
		return errors.New("event missing listing_id or status")
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(logDir, DeliveryLogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	at := ev.OccurredAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	line := fmt.Sprintf("[%s] Delivery status changed | listing_id=%d | request_id=%d | model=%q | status=%s\n",
		at.Format(time.RFC3339), ev.ListingID, ev.RequestID, ev.Model, ev.Status)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
