// Package events announces finished pipeline runs to other services.
package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/maheshrc27/autopost/internal/content"
	amqp "github.com/rabbitmq/amqp091-go"
)

const DefaultExchange = "autopost.runs"

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitNotifier publishes one persistent JSON message per finished run to a
// topic exchange, routed as "run.<status>".
type RabbitNotifier struct {
	conn     *amqp.Connection
	ch       amqpChannel
	exchange string
}

func NewRabbitNotifier(url, exchange string) (*RabbitNotifier, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
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
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &RabbitNotifier{conn: conn, ch: ch, exchange: exchange}, nil
}

func (n *RabbitNotifier) Close() error {
	if n.ch != nil {
		_ = n.ch.Close()
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}

func RoutingKey(e content.RunEvent) string {
	status := strings.ToLower(e.Status)
	if status == "" {
		status = "unknown"
	}
	return "run." + status
}

func (n *RabbitNotifier) RunFinished(ctx context.Context, e content.RunEvent) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return n.ch.PublishWithContext(cctx,
		n.exchange,
		RoutingKey(e),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    e.RunID,
			Body:         body,
			Timestamp:    e.FinishedAt,
		},
	)
}

// Noop drops events. It is used when no broker is configured.
type Noop struct{}

func (Noop) RunFinished(context.Context, content.RunEvent) error { return nil }
