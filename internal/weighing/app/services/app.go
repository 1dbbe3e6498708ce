package services

import "context"

// App is the application state handed to the transport layer.
type App struct {
	Orders   *OrderBook
	Bins     *BinTracker
	Catalog  *CatalogService
	Settings *SettingsService
}

// Load restores every component from the device store.
func (a *App) Load(ctx context.Context) {
	a.Settings.Load(ctx)
	a.Orders.Load(ctx)
	a.Bins.Load(ctx)
}
