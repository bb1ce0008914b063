package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"
)

// Exchange — обменник доменных событий сайта подписок.
const Exchange = "events"

// Ключи маршрутизации публикуемых событий.
const (
	RoutingSubscriptionCreated = "subscription.created"
	RoutingSubscriberCreated   = "subscriber.created"
)

// QueueConfig описывает очередь и её ключ маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetEventQueues возвращает очереди конвейера уведомлений.
func GetEventQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "events.subscriptions", RoutingKey: RoutingSubscriptionCreated},
		{QueueName: "events.subscribers", RoutingKey: RoutingSubscriberCreated},
	}
}

// SetupChannel открывает канал, объявляет обменник и привязывает очереди.
func SetupChannel(conn *amqp.Connection, queues []QueueConfig) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	err = ch.ExchangeDeclare(
		Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			q.QueueName,
			true,
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, q.QueueName, err)
		}

		err = ch.QueueBind(
			q.QueueName,
			q.RoutingKey,
			Exchange,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w", op, q.QueueName, q.RoutingKey, err)
		}
	}

	return ch, nil
}
