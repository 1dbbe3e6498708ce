package brokermessage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"weighline/internal/weighing/domain/dto"
	"weighline/internal/xpkg/config"
	xerrors "weighline/internal/xpkg/errors"
	"weighline/internal/xpkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	IsClosed() bool
}

// A delay queue is removed once it has gone unused this long past its TTL.
const delayQueueGrace = time.Minute

// RabbitMQ publishes bin notifications to the notifications fanout exchange.
type RabbitMQ struct {
	ctx          context.Context
	cfg          *config.RabbitMQ
	conn         *amqp.Connection
	ch           *amqp.Channel
	pub          publisher
	mylog        logger.Logger
	reconnecting bool
	mu           *sync.Mutex
	now          func() time.Time
}

// New connects and declares the notification topology.
func New(ctx context.Context, rabbitmqCfg *config.RabbitMQ, mylog logger.Logger) (*RabbitMQ, error) {
	r := &RabbitMQ{
		ctx:   ctx,
		cfg:   rabbitmqCfg,
		mylog: mylog,
		mu:    &sync.Mutex{},
		now:   time.Now,
	}
	if err := r.connect(); err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrRMQConn, err)
	}
	return r, nil
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

	if err := DeclareTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return err
	}

	r.mu.Lock()
	r.conn = conn
	r.ch = ch
	r.pub = ch
	r.mu.Unlock()
	return nil
}

// DeclareTopology declares the durable fanout exchange and the queue bound to it.
func DeclareTopology(ch *amqp.Channel) error {
	err := ch.ExchangeDeclare(
		dto.NotificationExchange, // name
		"fanout",                 // type
		true,                     // durable
		false,                    // auto-deleted
		false,                    // internal
		false,                    // no-wait
		nil,                      // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		dto.NotificationQueue, // name
		true,                  // durable
		false,                 // delete when unused
		false,                 // exclusive
		false,                 // no-wait
		nil,                   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(dto.NotificationQueue, "", dto.NotificationExchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

func (r *RabbitMQ) IsAlive() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil || r.conn.IsClosed() {
		return xerrors.ErrMBConn
	}
	if r.ch == nil || r.ch.IsClosed() {
		return xerrors.ErrMBCh
	}
	return nil
}

// RequestPermission grants delivery while the broker connection is up.
func (r *RabbitMQ) RequestPermission(context.Context) (bool, error) {
	if err := r.IsAlive(); err != nil {
		return false, err
	}
	return true, nil
}

// Notify parks the message in a delay queue whose TTL is fireAfter. When it
// expires the broker dead-letters it into the notifications exchange, so the
// subscriber only receives it once it is due.
func (r *RabbitMQ) Notify(ctx context.Context, title, body string, fireAfter time.Duration) error {
	now := r.now()
	return r.publish(ctx, dto.NotificationMessage{
		Kind:   dto.KindScheduled,
		Title:  title,
		Body:   body,
		FireAt: now.Add(fireAfter),
		SentAt: now,
	}, fireAfter)
}

func (r *RabbitMQ) NotifyNow(ctx context.Context, title, body string) error {
	now := r.now()
	return r.publish(ctx, dto.NotificationMessage{
		Kind:   dto.KindImmediate,
		Title:  title,
		Body:   body,
		FireAt: now,
		SentAt: now,
	}, 0)
}

// DelayQueue names the queue holding messages that fire after d.
func DelayQueue(d time.Duration) string {
	return fmt.Sprintf("%s.delay.%d", dto.NotificationQueue, d.Milliseconds())
}

func declareDelayQueue(pub publisher, d time.Duration) (string, error) {
	name := DelayQueue(d)
	_, err := pub.QueueDeclare(
		name,  // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-message-ttl":          d.Milliseconds(),
			"x-expires":              (d + delayQueueGrace).Milliseconds(),
			"x-dead-letter-exchange": dto.NotificationExchange,
		},
	)
	if err != nil {
		return "", fmt.Errorf("declare delay queue %s: %w", name, err)
	}
	return name, nil
}

func (r *RabbitMQ) publish(ctx context.Context, msg dto.NotificationMessage, delay time.Duration) error {
	r.mu.Lock()
	pub := r.pub
	connClosed := r.conn != nil && r.conn.IsClosed()
	r.mu.Unlock()

	if pub == nil || connClosed {
		r.mylog.Action("publish_failed").Error("Connection to rabbitmq is closed", xerrors.ErrMBConn)
		go r.reconnect(r.ctx)
		return xerrors.ErrMBConn
	}
	if pub.IsClosed() {
		r.mylog.Action("publish_failed").Error("Channel to rabbitmq is closed", xerrors.ErrMBCh)
		go r.reconnect(r.ctx)
		return xerrors.ErrMBCh
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	exchange, key := dto.NotificationExchange, ""
	if delay > 0 {
		queue, err := declareDelayQueue(pub, delay)
		if err != nil {
			return err
		}
		// Default exchange: route straight to the delay queue by name.
		exchange, key = "", queue
	}

	err = pub.PublishWithContext(ctx, exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    msg.SentAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}

	r.mylog.Action("notification_published").Debug("Notification published", "kind", msg.Kind, "fire_at", msg.FireAt, "queue", key)
	return nil
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

func (r *RabbitMQ) reconnect(ctx context.Context) {
	r.mu.Lock()
	if r.reconnecting {
		r.mu.Unlock()
		return
	}
	r.reconnecting = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.reconnecting = false
		r.mu.Unlock()
	}()

	t := time.NewTicker(5 * time.Second)
	defer t.Stop()
	log := r.mylog.Action("rabbitmq_reconnecting")

	for {
		select {
		case <-t.C:
			if err := r.connect(); err != nil {
				log.Warn("rabbitmq failed to reconnect", "error", err.Error())
				continue
			}
			log.Info("rabbitmq reconnected")
			return
		case <-ctx.Done():
			return
		}
	}
}
