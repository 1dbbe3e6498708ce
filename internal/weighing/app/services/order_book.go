package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"weighline/internal/weighing/app/core"
	"weighline/internal/weighing/app/validation"
	"weighline/internal/weighing/domain/models"
	"weighline/internal/weighing/domain/records"
	"weighline/internal/xpkg/logger"

	"github.com/google/go-cmp/cmp"
)

// OrderBook owns the order list and the excipient mapping derived from it.
// Every operation holds mu for its whole duration, lookups included, so the
// book behaves as a single actor even when called from concurrent handlers.
type OrderBook struct {
	mu sync.Mutex

	recipes    core.IRecipeLookup
	aggregator *Aggregator
	store      core.IStore
	mylog      logger.Logger

	orders     []models.Order
	excipients models.Excipients
	filter     string
	autoOP     opSequence
}

// opSequence hands out zero-padded production order numbers.
type opSequence struct {
	active    bool
	next      int
	exhausted bool
}

func NewOrderBook(
	recipes core.IRecipeLookup,
	aggregator *Aggregator,
	store core.IStore,
	mylog logger.Logger,
) *OrderBook {
	return &OrderBook{
		recipes:    recipes,
		aggregator: aggregator,
		store:      store,
		mylog:      mylog,
		excipients: models.Excipients{},
	}
}

// Load restores orders and the active filter from the store. Rejected blobs
// are logged and ignored. The excipient mapping is always rebuilt from the
// restored pending orders, so a stored mapping never outlives its orders.
func (ob *OrderBook) Load(ctx context.Context) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	mylog := ob.mylog.Action("load_orders")

	if raw, ok := ob.read(ctx, core.KeyOrders); ok {
		orders, err := records.DecodeOrders(raw)
		if err != nil {
			mylog.Error("Discarding stored orders", err)
		} else {
			ob.orders = orders
		}
	}

	ob.excipients = ob.aggregator.Recompute(ctx, ob.pendingOrders())
	if raw, ok := ob.read(ctx, core.KeyExcipients); ok && raw != "" {
		stored, err := records.DecodeExcipients(raw)
		if err != nil || !cmp.Equal(stored, ob.excipients) {
			mylog.Warn("Stored excipients replaced by recompute", "materials", len(ob.excipients))
			ob.write(ctx, core.KeyExcipients, ob.excipients)
		}
	}

	if raw, ok := ob.read(ctx, core.KeyOrderFilter); ok {
		filter, err := records.DecodeFilter(raw)
		if err != nil {
			mylog.Error("Discarding stored order filter", err)
		} else {
			ob.filter = filter
		}
	}

	mylog.Info("Orders restored", "orders", len(ob.orders), "materials", len(ob.excipients))
}

// AddOrder looks the recipe up and appends a new pending order.
func (ob *OrderBook) AddOrder(ctx context.Context, code string) (models.Order, error) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	mylog := ob.mylog.Action("add_order")

	code, err := validation.RecipeCode(code)
	if err != nil {
		return models.Order{}, err
	}
	if ob.autoOP.active && ob.autoOP.exhausted {
		mylog.Warn("Production order sequence exhausted", "code", code)
		return models.Order{}, core.ErrOPSequenceExhausted
	}

	recipe, err := ob.lookup(ctx, code)
	if err != nil {
		if errors.Is(err, core.ErrRecipeNotFound) {
			mylog.Warn("Recipe not found", "code", code)
			return models.Order{}, err
		}
		mylog.Error("Failed to look up recipe", err, "code", code)
		return models.Order{}, fmt.Errorf("cannot look up recipe %s: %w", code, err)
	}

	order := models.Order{
		Code: code,
		Name: recipe.Name,
	}
	if ob.autoOP.active {
		order.ProductionOrderID = ob.autoOP.take()
	}

	ob.orders = append(ob.orders, order)
	ob.refresh(ctx)

	mylog.Info("Order added", "code", order.Code, "production_order_id", order.ProductionOrderID)
	return order.Clone(), nil
}

// RemoveOrder drops the order at index.
func (ob *OrderBook) RemoveOrder(ctx context.Context, index int) error {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	if err := ob.checkIndex(index); err != nil {
		return err
	}

	removed := ob.orders[index]
	ob.orders = append(ob.orders[:index], ob.orders[index+1:]...)
	ob.refresh(ctx)

	ob.mylog.Action("remove_order").Info("Order removed", "index", index, "code", removed.Code)
	return nil
}

// ToggleWeighed flips the weighed flag. Weighed orders stay in the list but
// no longer count towards the excipient totals.
func (ob *OrderBook) ToggleWeighed(ctx context.Context, index int) (models.Order, error) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	if err := ob.checkIndex(index); err != nil {
		return models.Order{}, err
	}

	ob.orders[index].Weighed = !ob.orders[index].Weighed
	ob.refresh(ctx)

	order := ob.orders[index]
	ob.mylog.Action("toggle_weighed").Info("Order weighed flag changed", "index", index, "code", order.Code, "weighed", order.Weighed)
	return order.Clone(), nil
}

// AssignProductionOrder stores the OP number and the bins used for the order.
func (ob *OrderBook) AssignProductionOrder(ctx context.Context, index int, opID string, bins []models.BinTare) (models.Order, error) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	if err := ob.checkIndex(index); err != nil {
		return models.Order{}, err
	}
	if err := validation.ProductionOrder(opID); err != nil {
		return models.Order{}, err
	}
	tares, err := validation.BinTares(bins)
	if err != nil {
		return models.Order{}, err
	}

	ob.orders[index].ProductionOrderID = opID
	ob.orders[index].Bins = tares
	// The OP shows up in contribution details, so the mapping is rebuilt too.
	ob.refresh(ctx)

	order := ob.orders[index]
	ob.mylog.Action("assign_production_order").Info("Production order assigned", "index", index, "production_order_id", opID, "bins", len(tares))
	return order.Clone(), nil
}

// SetAutoOPBase starts numbering new orders from base.
func (ob *OrderBook) SetAutoOPBase(base string) error {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	if err := validation.ProductionOrder(base); err != nil {
		return err
	}
	n, err := strconv.Atoi(base)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidFormat, err)
	}

	ob.autoOP = opSequence{active: true, next: n}
	ob.mylog.Action("set_auto_op").Info("Automatic production order numbering enabled", "base", base)
	return nil
}

func (ob *OrderBook) ClearAutoOP() {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	ob.autoOP = opSequence{}
	ob.mylog.Action("clear_auto_op").Info("Automatic production order numbering disabled")
}

// NextAutoOP reports the number the next order would receive.
func (ob *OrderBook) NextAutoOP() (string, bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	if !ob.autoOP.active || ob.autoOP.exhausted {
		return "", false
	}
	return formatOP(ob.autoOP.next), true
}

func (ob *OrderBook) Orders() []models.Order {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	out := make([]models.Order, len(ob.orders))
	for i, o := range ob.orders {
		out[i] = o.Clone()
	}
	return out
}

func (ob *OrderBook) Partition() models.Partition {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	p := models.Partition{
		Pending: []models.IndexedOrder{},
		Weighed: []models.IndexedOrder{},
	}
	for i, o := range ob.orders {
		io := models.IndexedOrder{Index: i, Order: o.Clone()}
		if o.Weighed {
			p.Weighed = append(p.Weighed, io)
		} else {
			p.Pending = append(p.Pending, io)
		}
	}
	return p
}

// Excipients returns a copy of the canonical mapping.
func (ob *OrderBook) Excipients() models.Excipients {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	return ob.excipients.Clone()
}

// View projects the mapping for display. An empty orderCode falls back to the
// stored filter; automaticOnly keeps only automatic-line materials.
func (ob *OrderBook) View(orderCode string, automaticOnly bool) models.Excipients {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	if orderCode == "" {
		orderCode = ob.filter
	}

	view := ob.excipients
	if orderCode != "" {
		view = FilterByOrder(view, orderCode)
	}
	if automaticOnly {
		view = FilterAutomaticOnly(view)
	}
	return view.Clone()
}

// SetFilter stores the active order filter; empty clears it.
func (ob *OrderBook) SetFilter(ctx context.Context, orderCode string) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	ob.filter = orderCode
	ob.write(context.WithoutCancel(ctx), core.KeyOrderFilter, orderCode)
}

func (ob *OrderBook) Filter() string {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	return ob.filter
}

func (ob *OrderBook) checkIndex(index int) error {
	if index < 0 || index >= len(ob.orders) {
		return fmt.Errorf("%w: %d", core.ErrInvalidIndex, index)
	}
	return nil
}

func (ob *OrderBook) lookup(ctx context.Context, code string) (models.Recipe, error) {
	ctx, cancel := context.WithTimeout(ctx, ob.aggregator.timeout)
	defer cancel()
	return ob.recipes.LookupRecipe(ctx, code)
}

func (ob *OrderBook) pendingOrders() []models.Order {
	pending := make([]models.Order, 0, len(ob.orders))
	for _, o := range ob.orders {
		if !o.Weighed {
			pending = append(pending, o)
		}
	}
	return pending
}

// refresh recomputes the mapping over the pending orders and persists both.
// The mutation is already applied, so the caller's cancellation must not cut
// the recompute short; each lookup is still bounded by the lookup timeout.
func (ob *OrderBook) refresh(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	ob.excipients = ob.aggregator.Recompute(ctx, ob.pendingOrders())
	ob.write(ctx, core.KeyOrders, ob.orders)
	ob.write(ctx, core.KeyExcipients, ob.excipients)
}

func (ob *OrderBook) read(ctx context.Context, key string) (string, bool) {
	raw, ok, err := ob.store.Get(ctx, key)
	if err != nil {
		ob.mylog.Action("store_read_failed").Error("Failed to read from device store", err, "key", key)
		return "", false
	}
	return raw, ok
}

func (ob *OrderBook) write(ctx context.Context, key string, v any) {
	mylog := ob.mylog.Action("store_write_failed")

	raw, err := records.Encode(v)
	if err != nil {
		mylog.Error("Failed to encode record", err, "key", key)
		return
	}
	if err := ob.store.Set(ctx, key, raw); err != nil {
		mylog.Error("Failed to write to device store", err, "key", key)
	}
}

func (s *opSequence) take() string {
	op := formatOP(s.next)
	if s.next >= core.MaxOP {
		s.exhausted = true
	} else {
		s.next++
	}
	return op
}

func formatOP(n int) string {
	return fmt.Sprintf("%0*d", core.OPLength, n)
}
