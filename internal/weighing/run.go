package weighing

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"weighline/internal/weighing/api/http"
	"weighline/internal/weighing/app/core"
	"weighline/internal/weighing/app/services"
	"weighline/internal/xpkg/config"
	"weighline/internal/xpkg/db"
	xerrors "weighline/internal/xpkg/errors"
	"weighline/internal/xpkg/logger"

	brokermessage "weighline/internal/weighing/adapter/broker_message"
	repo "weighline/internal/weighing/adapter/db"
	"weighline/internal/weighing/adapter/notifier"
	"weighline/internal/weighing/adapter/store"

	"golang.org/x/sync/errgroup"
)

// Execute starts the weighing service and blocks until a shutdown signal
// arrives or one of its loops fails.
func Execute(ctx context.Context, mylog logger.Logger, params core.ServiceParams) error {
	newCtx, stop := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(params.ConfigPath)
	if err != nil {
		mylog.Action("config_load_failed").Error("Invalid configuration", err)
		return err
	}
	if params.Port != 0 {
		cfg.Server.Port = params.Port
	}
	if err := cfg.Validate(); err != nil {
		mylog.Action("config_validation_failed").Error("Invalid configuration", err)
		return err
	}
	mylog.Action("config_loaded").Info("Configuration loaded", "port", cfg.Server.Port, "store", cfg.Store.Path, "rabbitmq", cfg.RMQ.Enabled())

	database, err := db.Start(newCtx, cfg.DB, mylog)
	if err != nil {
		mylog.Action("db_connection_failed").Error("Failed to connect to database", err)
		return fmt.Errorf("%w: %v", xerrors.ErrDBConn, err)
	}
	defer closeWith(mylog, "db", database.Close)

	kv, err := store.Open(newCtx, cfg.Store.Path, mylog)
	if err != nil {
		mylog.Action("store_open_failed").Error("Failed to open device store", err)
		return fmt.Errorf("%w: %v", xerrors.ErrStoreOpen, err)
	}
	defer closeWith(mylog, "store", kv.Close)

	notify, err := newNotifier(newCtx, cfg, mylog)
	if err != nil {
		mylog.Action("mb_connection_failed").Error("Failed to connect to message broker", err)
		return err
	}
	defer closeWith(mylog, "notifier", notify.Close)

	app := buildApp(cfg, database, kv, notify, mylog)
	app.Load(newCtx)

	server := http.NewServer(newCtx, app, database, cfg.Server.Port, mylog)

	g, gctx := errgroup.WithContext(newCtx)
	g.Go(server.Run)
	g.Go(func() error { return app.Bins.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		mylog.Action("shutdown_signal_received").Info("Shutdown signal received")
		return server.Stop(context.Background())
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		mylog.Action("weighing_service_failed").Error("Service failed unexpectedly", err)
		return err
	}
	mylog.Action("service_stopped").Info("Service exited normally")
	return nil
}

func buildApp(cfg *config.Config, database *db.DB, kv core.IStore, notify core.INotifier, mylog logger.Logger) *services.App {
	recipes := repo.NewRecipeRepo(database.Pool())
	materials := repo.NewMaterialRepo(database.Pool())
	aggregator := services.NewAggregator(recipes, cfg.Lookup.Timeout, mylog)

	return &services.App{
		Orders: services.NewOrderBook(recipes, aggregator, kv, mylog),
		Bins: services.NewBinTracker(kv, notify, mylog,
			services.WithFullClean(time.Duration(cfg.Bins.FullCleanMinutes)*time.Minute),
			services.WithTickInterval(cfg.Bins.TickInterval),
		),
		Catalog:  services.NewCatalogService(materials, cfg.Lookup.Timeout, mylog),
		Settings: services.NewSettingsService(kv, mylog),
	}
}

func newNotifier(ctx context.Context, cfg *config.Config, mylog logger.Logger) (core.INotifier, error) {
	if !cfg.RMQ.Enabled() {
		mylog.Action("notifier_selected").Warn("No message broker configured, notifications go to the log")
		return notifier.NewLogNotifier(mylog), nil
	}
	mb, err := brokermessage.New(ctx, cfg.RMQ, mylog)
	if err != nil {
		return nil, err
	}
	mylog.Action("mb_connected").Info("Successful message broker connection")
	return mb, nil
}

func closeWith(mylog logger.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		mylog.Action(name+"_close_failed").Error("Failed to close "+name, err)
	}
}
