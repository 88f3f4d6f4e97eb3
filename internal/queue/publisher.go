package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/rentals-marketplace/internal/logger"
)

const (
	minBackoff     = time.Second
	maxBackoff     = 30 * time.Second
	publishTimeout = 5 * time.Second
)

// amqpChannel is the part of *amqp.Channel the publisher uses.
type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// dialFunc opens a channel and returns a func that closes it together
// with its connection.
type dialFunc func(url string) (amqpChannel, func(), error)

func dialAMQP(url string) (amqpChannel, func(), error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return ch, func() {
		_ = ch.Close()
		_ = conn.Close()
	}, nil
}

// Publisher owns one long-lived broker connection and forwards events
// from a bounded buffer.  Publish never blocks: while the broker is
// unreachable or the buffer is full, events are dropped and logged.  A
// nil *Publisher is a valid no-op publisher.
type Publisher struct {
	url       string
	queue     string
	events    chan StatusChangedEvent
	dial      dialFunc
	connected atomic.Bool
	log       *slog.Logger
	done      chan struct{}
}

// NewPublisher returns a publisher for queue with room for buffer pending
// events.  Call Start to connect.
func NewPublisher(url, queue string, buffer int) *Publisher {
	return newPublisher(url, queue, buffer, dialAMQP)
}

func newPublisher(url, queue string, buffer int, dial dialFunc) *Publisher {
	if buffer < 1 {
		buffer = 1
	}
	return &Publisher{
		url:    url,
		queue:  queue,
		events: make(chan StatusChangedEvent, buffer),
		dial:   dial,
		log:    logger.WithComponent("notifier"),
		done:   make(chan struct{}),
	}
}

// Start runs the connection manager until ctx is cancelled.
func (p *Publisher) Start(ctx context.Context) {
	if p == nil {
		return
	}
	go func() {
		defer close(p.done)
		p.run(ctx)
	}()
}

// Done is closed once the connection manager has stopped.
func (p *Publisher) Done() <-chan struct{} { return p.done }

// Publish enqueues ev and reports whether it was accepted.
func (p *Publisher) Publish(ev StatusChangedEvent) bool {
	if p == nil {
		return false
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	if !p.connected.Load() {
		p.log.Warn("notification dropped: broker unavailable",
			"listing_id", ev.ListingID, "request_id", ev.RequestID, "status", ev.Status)
		return false
	}
	select {
	case p.events <- ev:
		return true
	default:
		p.log.Warn("notification dropped: buffer full",
			"listing_id", ev.ListingID, "request_id", ev.RequestID, "status", ev.Status)
		return false
	}
}

func (p *Publisher) run(ctx context.Context) {
	backoff := minBackoff
	for ctx.Err() == nil {
		ch, closeConn, err := p.dial(p.url)
		if err == nil {
			_, err = ch.QueueDeclare(p.queue, true, false, false, false, nil)
			if err != nil {
				closeConn()
			}
		}
		if err != nil {
			p.log.Warn("broker connect failed", "error", err, "retry_in", backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		backoff = minBackoff
		p.connected.Store(true)
		p.log.Info("broker connected", "queue", p.queue)
		err = p.forward(ctx, ch)
		p.connected.Store(false)
		closeConn()
		if err != nil {
			p.log.Warn("broker connection lost", "error", err)
		}
	}
}

// forward publishes buffered events until ctx ends or a publish fails.
func (p *Publisher) forward(ctx context.Context, ch amqpChannel) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-p.events:
			body, err := json.Marshal(ev)
			if err != nil {
				p.log.Error("notification dropped: marshal failed", "error", err)
				continue
			}
			pctx, cancel := context.WithTimeout(ctx, publishTimeout)
			err = ch.PublishWithContext(pctx, "", p.queue, false, false, amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				Timestamp:    ev.OccurredAt,
				Body:         body,
			})
			cancel()
			if err != nil {
				p.log.Warn("notification dropped: publish failed",
					"listing_id", ev.ListingID, "request_id", ev.RequestID, "error", err)
				return err
			}
		}
	}
}
