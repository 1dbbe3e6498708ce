package notsub

import (
	"context"
	"io"
	"os/signal"
	"syscall"

	"weighline/internal/notsub/adapter/consumer"
	"weighline/internal/notsub/app/services"
	"weighline/internal/xpkg/config"
	"weighline/internal/xpkg/logger"

	brokermessage "weighline/internal/notsub/adapter/broker_message"
)

// Execute runs the notification subscriber until a shutdown signal arrives.
func Execute(ctx context.Context, mylog logger.Logger, configPath string, out io.Writer) error {
	newCtx, stop := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadBrokerConfig(configPath)
	if err != nil {
		mylog.Action("config_load_failed").Error("Invalid configuration", err)
		return err
	}

	mb, err := brokermessage.New(cfg.RMQ, mylog)
	if err != nil {
		mylog.Action("mb_connection_failed").Error("Failed to connect to message broker", err)
		return err
	}
	mylog.Action("mb_connected").Info("Successful message broker connection")

	notsub := consumer.NewNotification(newCtx, mb, services.NewDeliveryService(out, mylog), mylog)

	if err := notsub.Run(); err != nil {
		mylog.Action("notsub_run_failed").Error("Notification subscriber stopped with error", err)
		_ = notsub.Stop()
		return err
	}
	return notsub.Stop()
}
