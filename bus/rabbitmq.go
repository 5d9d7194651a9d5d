// bus/rabbitmq.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package bus

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// exchange is the single topic exchange every route of spec.md §4.5 and
// §6 is published to and bound from, with the route name as the routing
// key. Queue/exchange topology is explicitly out of the engine's scope
// per spec.md §1; this is the one concrete topology a working adapter
// needs to pick.
const exchange = "eventproc.events"

// RabbitMQ implements both Publisher and Subscriber over a single AMQP
// connection, following cmd/vice/main.go's pattern of dialing once at
// startup and handing the live connection down to collaborators.
type RabbitMQ struct {
	conn *amqp.Connection
	pub  *amqp.Channel
}

// NewRabbitMQ dials url and declares the shared topic exchange.
func NewRabbitMQ(url string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("bus: dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("bus: open publish channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("bus: declare exchange: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("bus: enable publisher confirms: %w", err)
	}

	return &RabbitMQ{conn: conn, pub: ch}, nil
}

// Publish durably publishes envelope to route and waits for the broker's
// confirmation, per spec.md §4.5's "durable publish with broker-level
// acknowledgement."
func (r *RabbitMQ) Publish(ctx context.Context, route string, envelope any) error {
	body, err := encode(envelope)
	if err != nil {
		return err
	}

	confirm, err := r.pub.PublishWithDeferredConfirmWithContext(ctx, exchange, route, false, false,
		amqp.Publishing{
			ContentType:  "application/x-msgpack+zstd",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("bus: publish %s: %w", route, err)
	}

	ok, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("bus: wait confirm %s: %w", route, err)
	}
	if !ok {
		return fmt.Errorf("bus: broker nacked publish to %s", route)
	}
	return nil
}

// Consume declares a durable queue bound to route and returns a channel
// of deliveries, in delivery order, matching spec.md §5's single-
// logical-event-loop-per-pipeline scheduling model: decoding happens on
// a background goroutine, but dispatch -- and therefore every tracker
// call -- stays on whatever goroutine drains the returned channel. It
// uses a connection-private channel so a slow consumer never blocks
// Publish on the shared publish channel.
func (r *RabbitMQ) Consume(ctx context.Context, route string) (<-chan Delivery, error) {
	ch, err := r.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("bus: open consume channel for %s: %w", route, err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("bus: declare exchange: %w", err)
	}

	queueName := "eventproc." + route
	q, err := ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("bus: declare queue %s: %w", queueName, err)
	}

	if err := ch.QueueBind(q.Name, route, exchange, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("bus: bind queue %s to %s: %w", queueName, route, err)
	}

	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("bus: set qos: %w", err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx, q.Name, "", false, false, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("bus: consume %s: %w", queueName, err)
	}

	out := make(chan Delivery)
	go func() {
		defer ch.Close()
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				delivery := d
				var env envelope
				if err := decode(delivery.Body, &env); err != nil {
					// Malformed snapshot per spec.md §7: drop and ack so
					// the broker does not redeliver an unparseable
					// message forever.
					delivery.Ack(false)
					continue
				}
				out2 := Delivery{
					Inbound: Inbound{Data: []byte(env.Data), BatchID: env.BatchID},
					Ack:     func() { delivery.Ack(false) },
					Nack:    func() { delivery.Nack(false, true) },
				}
				select {
				case out <- out2:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Ping reports whether the underlying AMQP connection is open.
func (r *RabbitMQ) Ping(ctx context.Context) error {
	if r.conn.IsClosed() {
		return fmt.Errorf("bus: rabbitmq connection closed")
	}
	return nil
}

func (r *RabbitMQ) Close() error {
	if r.pub != nil {
		r.pub.Close()
	}
	return r.conn.Close()
}
