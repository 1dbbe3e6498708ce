package core

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

type IRabbitMQ interface {
	ConsumeMessage(ctx context.Context, queue, consumer string) (<-chan amqp.Delivery, error)
	IsAlive() bool
	Close() error
}
