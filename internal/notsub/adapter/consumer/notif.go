package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"weighline/internal/notsub/app/core"
	"weighline/internal/notsub/app/services"
	"weighline/internal/weighing/domain/dto"
	"weighline/internal/xpkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const consumerName = "weighline-notifier"

type Notification struct {
	mylog    logger.Logger
	mb       core.IRabbitMQ
	delivery *services.DeliveryService
	ctx      context.Context
	cancel   context.CancelFunc

	mu sync.Mutex
	wg sync.WaitGroup
}

func NewNotification(ctx context.Context, mb core.IRabbitMQ, delivery *services.DeliveryService, mylog logger.Logger) *Notification {
	ctx, cancel := context.WithCancel(ctx)
	return &Notification{
		ctx:      ctx,
		cancel:   cancel,
		mb:       mb,
		delivery: delivery,
		mylog:    mylog,
	}
}

// Run consumes the notification queue until ctx is cancelled. A delivery
// channel closed by the broker is reported as ErrConsumerClosed.
func (n *Notification) Run() error {
	messageBus, err := n.mb.ConsumeMessage(n.ctx, dto.NotificationQueue, consumerName)
	if err != nil {
		return fmt.Errorf("failed to consume message from rabbitmq: %w", err)
	}
	n.mylog.Action("consume_started").Info("Waiting for bin notifications", "queue", dto.NotificationQueue)

	return n.work(messageBus)
}

// Stop releases held deliveries back to the queue, waits for them and
// closes the broker connection.
func (n *Notification) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.mylog.Action("graceful_shutdown_started").Info("Shutting down")

	n.cancel()
	n.wg.Wait()

	if n.mb != nil {
		if err := n.mb.Close(); err != nil {
			n.mylog.Action("mb_close_failed").Error("Failed to close message broker", err)
			return fmt.Errorf("mb close: %w", err)
		}
		n.mylog.Action("mb_closed").Info("Message broker closed")
	}

	n.mylog.Action("graceful_shutdown_completed").Info("Successfully shut down")
	return nil
}

func (n *Notification) work(notifCh <-chan amqp.Delivery) error {
	for {
		select {
		case <-n.ctx.Done():
			n.mylog.Action("work_shutdown").Info("Stopping message consumption due to context cancel")
			return nil

		case msg, ok := <-notifCh:
			if !ok {
				if n.ctx.Err() != nil {
					return nil
				}
				n.mylog.Action("consume_closed").Error("Delivery channel closed by broker", core.ErrConsumerClosed)
				return core.ErrConsumerClosed
			}
			n.wg.Add(1)
			go func(msg amqp.Delivery) {
				defer n.wg.Done()

				if requeue, err := n.processMsg(msg); err != nil {
					n.mylog.Action("processMsg").Error("Failed to process notification", err, "requeue", requeue)
					if err := msg.Nack(false, requeue); err != nil {
						n.mylog.Action("Nack").Error("Failed to nack", err)
					}
				}
			}(msg)
		}
	}
}

// processMsg delivers one message and acks it. On failure it reports whether
// the message should go back to the queue.
func (n *Notification) processMsg(msg amqp.Delivery) (bool, error) {
	var notification dto.NotificationMessage
	if err := json.Unmarshal(msg.Body, &notification); err != nil {
		return false, fmt.Errorf("%w: %v", core.ErrBadMessage, err)
	}
	if err := n.delivery.Validate(notification); err != nil {
		return false, err
	}

	log := n.mylog.WithGroup("details").With("kind", notification.Kind, "fire_at", notification.FireAt)
	log.Action("notification_received").Info("Received bin notification")

	if err := n.delivery.Deliver(n.ctx, notification); err != nil {
		// Undelivered scheduled messages wait in the queue for the next start.
		return errors.Is(err, core.ErrDeliveryStop), err
	}

	if err := msg.Ack(false); err != nil {
		return false, fmt.Errorf("acknowledge message: %w", err)
	}
	n.mylog.Debug("Ack message", "title", notification.Title)
	return false, nil
}
