package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges.
const (
	ExchangePosts Exchange = "smarttweet.posts"
	ExchangeDLQ   Exchange = "smarttweet.dlq"
)

// Queues.
const (
	QueuePostEvents Queue = "posts.events"
	QueueDLQPosts   Queue = "dlq.posts"
)

// Routing keys совпадают с последним сегментом типа события.
const (
	RoutingKeyPosted    RoutingKey = "posted"
	RoutingKeyFailed    RoutingKey = "failed"
	RoutingKeyScheduled RoutingKey = "scheduled"
	RoutingKeyCancelled RoutingKey = "cancelled"
	RoutingKeyDLQPosts  RoutingKey = "posts"
)

// EventRoutingKeys — ключи, по которым posts.events получает события.
var EventRoutingKeys = []RoutingKey{
	RoutingKeyPosted,
	RoutingKeyFailed,
	RoutingKeyScheduled,
	RoutingKeyCancelled,
}

type binding struct {
	queue      Queue
	routingKey RoutingKey
	exchange   Exchange
}

// bindings возвращает все привязки очередей.
func bindings() []binding {
	out := make([]binding, 0, len(EventRoutingKeys)+1)
	for _, key := range EventRoutingKeys {
		out = append(out, binding{QueuePostEvents, key, ExchangePosts})
	}
	return append(out, binding{QueueDLQPosts, RoutingKeyDLQPosts, ExchangeDLQ})
}

// SetupTopology объявляет exchanges, queues и bindings. Идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		for _, ex := range []Exchange{ExchangePosts, ExchangeDLQ} {
			if err := ch.ExchangeDeclare(string(ex), "direct", true, false, false, false, nil); err != nil {
				return fmt.Errorf("declare exchange %s: %w", ex, err)
			}
		}

		// posts.events отправляет отклонённые сообщения в dlq.posts
		queues := []struct {
			name Queue
			args amqp.Table
		}{
			{QueuePostEvents, amqp.Table{
				"x-dead-letter-exchange":    string(ExchangeDLQ),
				"x-dead-letter-routing-key": string(RoutingKeyDLQPosts),
			}},
			{QueueDLQPosts, nil},
		}
		for _, q := range queues {
			if _, err := ch.QueueDeclare(string(q.name), true, false, false, false, q.args); err != nil {
				return fmt.Errorf("declare queue %s: %w", q.name, err)
			}
		}

		for _, b := range bindings() {
			if err := ch.QueueBind(string(b.queue), string(b.routingKey), string(b.exchange), false, nil); err != nil {
				return fmt.Errorf("bind queue %s to %s/%s: %w", b.queue, b.exchange, b.routingKey, err)
			}
		}

		return nil
	})
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  SmartTweet RabbitMQ Topology:

    smarttweet.posts (direct)
    └── posts.events [routing: posted, failed, scheduled, cancelled]
            Consumer: smarttweet-notifier
            DLQ: dlq.posts

    smarttweet.dlq (direct)
    └── dlq.posts [routing: posts]
            Manual processing
  `
}
