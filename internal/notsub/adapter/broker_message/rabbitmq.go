package brokermessage

import (
	"context"
	"fmt"
	"sync"

	"weighline/internal/notsub/app/core"
	"weighline/internal/xpkg/config"
	"weighline/internal/xpkg/logger"

	weighingmb "weighline/internal/weighing/adapter/broker_message"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQ is the consuming side of the notifications exchange.
type RabbitMQ struct {
	cfg   *config.RabbitMQ
	conn  *amqp.Connection
	ch    *amqp.Channel
	mylog logger.Logger
	mu    *sync.Mutex

	prefetch int
}

// Scheduled messages reach the queue only once due, so little is ever in flight.
const defaultPrefetch = 10

func New(rabbitmqCfg *config.RabbitMQ, mylog logger.Logger) (core.IRabbitMQ, error) {
	r := &RabbitMQ{
		cfg:   rabbitmqCfg,
		mylog:    mylog,
		mu:       &sync.Mutex{},
		prefetch: defaultPrefetch,
	}
	if err := r.connect(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrRMQConn, err)
	}
	return r, nil
}

func (r *RabbitMQ) IsAlive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil || r.conn.IsClosed() {
		return false
	}
	if r.ch == nil || r.ch.IsClosed() {
		return false
	}
	return true
}

func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ch != nil && !r.ch.IsClosed() {
		if err := r.ch.Close(); err != nil {
			return fmt.Errorf("close rabbitmq channel: %v", err)
		}
	}
	if r.conn != nil && !r.conn.IsClosed() {
		if err := r.conn.Close(); err != nil {
			return fmt.Errorf("close rabbitmq connection: %v", err)
		}
	}
	return nil
}

func (r *RabbitMQ) connect() error {
	conn, err := amqp.Dial(r.cfg.URL())
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}

	if err := weighingmb.DeclareTopology(ch); err != nil {
		conn.Close()
		return err
	}

	if err := ch.Qos(r.prefetch, 0, false); err != nil {
		conn.Close()
		return err
	}

	r.conn = conn
	r.ch = ch
	return nil
}

func (r *RabbitMQ) ConsumeMessage(ctx context.Context, queue, consumer string) (<-chan amqp.Delivery, error) {
	return r.ch.ConsumeWithContext(ctx, queue, consumer, false, false, false, false, nil)
}
