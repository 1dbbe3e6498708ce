package notifier

import (
	"context"
	"time"

	"weighline/internal/xpkg/logger"
)

// LogNotifier writes notifications to the service log. It is used when no
// broker is configured.
type LogNotifier struct {
	mylog logger.Logger
}

func NewLogNotifier(mylog logger.Logger) *LogNotifier {
	return &LogNotifier{mylog: mylog.Action("notification")}
}

func (n *LogNotifier) RequestPermission(context.Context) (bool, error) {
	return true, nil
}

func (n *LogNotifier) Notify(_ context.Context, title, body string, fireAfter time.Duration) error {
	n.mylog.Info(title, "body", body, "kind", "scheduled", "fire_after", fireAfter.String())
	return nil
}

func (n *LogNotifier) NotifyNow(_ context.Context, title, body string) error {
	n.mylog.Info(title, "body", body, "kind", "immediate")
	return nil
}

func (n *LogNotifier) Close() error {
	return nil
}
