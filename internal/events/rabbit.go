package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// RabbitBus fans task events out across server instances through a fanout
// exchange. Each instance consumes from its own exclusive queue, so every
// instance's hub sees every event regardless of which instance handled the
// mutating request.
type RabbitBus struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	logger   *logrus.Logger

	mu       sync.RWMutex
	next     int
	handlers map[int]Handler

	done chan struct{}
}

func NewRabbitBus(url, exchange string, logger *logrus.Logger) (*RabbitBus, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(
		exchange,
		"fanout",
		false, // durable: events are fire-and-forget, nothing to replay
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	if err := ch.QueueBind(q.Name, "", exchange, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	b := &RabbitBus{
		conn:     conn,
		ch:       ch,
		exchange: exchange,
		logger:   logger,
		handlers: make(map[int]Handler),
		done:     make(chan struct{}),
	}
	go b.consume(deliveries)
	return b, nil
}

func (b *RabbitBus) consume(deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-b.done:
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal(d.Body, &ev); err != nil {
				if b.logger != nil {
					b.logger.WithError(err).Warn("dropping malformed broadcast event")
				}
				continue
			}
			b.mu.RLock()
			hs := make([]Handler, 0, len(b.handlers))
			for _, h := range b.handlers {
				hs = append(hs, h)
			}
			b.mu.RUnlock()
			for _, h := range hs {
				h(ev)
			}
		}
	}
}

func (b *RabbitBus) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.ch.PublishWithContext(ctx,
		b.exchange,
		"",    // fanout ignores the routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Now().UTC(),
			Body:        body,
		},
	)
}

func (b *RabbitBus) Subscribe(h Handler) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.handlers[id] = h
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}
}

func (b *RabbitBus) Close() error {
	close(b.done)
	if b.ch != nil {
		_ = b.ch.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}

var _ Bus = (*RabbitBus)(nil)
