package services

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"weighline/internal/notsub/app/core"
	"weighline/internal/weighing/domain/dto"
	"weighline/internal/xpkg/logger"
)

// DeliveryService shows notifications to the operator. Scheduled ones arrive
// from the broker's delay queue when due; any remaining wait, from clock skew
// between hosts, is capped at MaxHold.
type DeliveryService struct {
	out   io.Writer
	outMu sync.Mutex
	mylog logger.Logger
	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// MaxHold bounds how long an unacked delivery is kept.
const MaxHold = time.Minute

func NewDeliveryService(out io.Writer, mylog logger.Logger) *DeliveryService {
	return &DeliveryService{
		out:   out,
		mylog: mylog,
		now:   time.Now,
		after: time.After,
	}
}

// Validate rejects messages that can never be shown.
func (ds *DeliveryService) Validate(msg dto.NotificationMessage) error {
	switch msg.Kind {
	case dto.KindImmediate, dto.KindScheduled:
	default:
		return fmt.Errorf("%w: unknown kind %q", core.ErrBadMessage, msg.Kind)
	}
	if msg.Title == "" {
		return fmt.Errorf("%w: empty title", core.ErrBadMessage)
	}
	return nil
}

// Deliver waits until the message is due, at most MaxHold, then writes it
// out. It returns ErrDeliveryStop if ctx ends first.
func (ds *DeliveryService) Deliver(ctx context.Context, msg dto.NotificationMessage) error {
	if msg.Kind == dto.KindScheduled {
		if wait := msg.FireAt.Sub(ds.now()); wait > 0 {
			if wait > MaxHold {
				ds.mylog.Action("notification_early").Warn("Notification arrived early, capping wait", "title", msg.Title, "early_by", wait.String())
				wait = MaxHold
			}
			ds.mylog.Action("notification_scheduled").Debug("Holding notification", "title", msg.Title, "wait", wait.String())
			select {
			case <-ds.after(wait):
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", core.ErrDeliveryStop, ctx.Err())
			}
		}
	}

	ds.outMu.Lock()
	_, err := fmt.Fprintf(ds.out, "Notification: %s. %s\n", msg.Title, msg.Body)
	ds.outMu.Unlock()
	if err != nil {
		return fmt.Errorf("write notification: %w", err)
	}

	ds.mylog.Action("notification_delivered").Info("Notification delivered", "title", msg.Title, "kind", msg.Kind)
	return nil
}
