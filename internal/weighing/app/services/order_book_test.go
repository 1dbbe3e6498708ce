package services

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"weighline/internal/weighing/app/core"
	"weighline/internal/weighing/domain/models"
	"weighline/internal/weighing/domain/records"
	"weighline/internal/xpkg/logger"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrderBook(t *testing.T) (*OrderBook, *fakeRecipes, *memStore) {
	t.Helper()
	recipes := newFakeRecipes()
	store := newMemStore()
	agg := NewAggregator(recipes, time.Second, logger.NewNop())
	return NewOrderBook(recipes, agg, store, logger.NewNop()), recipes, store
}

func TestAddOrder(t *testing.T) {
	ob, _, store := newTestOrderBook(t)
	ctx := context.Background()

	order, err := ob.AddOrder(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, models.Order{Code: "1001", Name: "Paracetamol 500mg"}, order)

	// Same recipe twice is allowed; position is identity.
	_, err = ob.AddOrder(ctx, "1001")
	require.NoError(t, err)
	assert.Len(t, ob.Orders(), 2)

	ex := ob.Excipients()
	assert.Equal(t, 2.2, ex["AMIDO"].Total)
	assert.Len(t, ex["AMIDO"].Contributions, 2)

	stored, err := records.DecodeOrders(store.data[core.KeyOrders])
	require.NoError(t, err)
	assert.Len(t, stored, 2)
	storedEx, err := records.DecodeExcipients(store.data[core.KeyExcipients])
	require.NoError(t, err)
	assert.Equal(t, ex, storedEx)
}

func TestAddOrder_NotFoundLeavesStateUnchanged(t *testing.T) {
	ob, _, store := newTestOrderBook(t)
	ctx := context.Background()

	_, err := ob.AddOrder(ctx, "1001")
	require.NoError(t, err)
	sets := store.sets
	before := ob.Excipients()

	_, err = ob.AddOrder(ctx, "0000")
	assert.ErrorIs(t, err, core.ErrRecipeNotFound)
	assert.Len(t, ob.Orders(), 1)
	assert.Equal(t, before, ob.Excipients())
	assert.Equal(t, sets, store.sets)

	_, err = ob.AddOrder(ctx, "  ")
	assert.ErrorIs(t, err, core.ErrFieldIsEmpty)
}

func TestRemoveOrder(t *testing.T) {
	ob, _, _ := newTestOrderBook(t)
	ctx := context.Background()

	_, _ = ob.AddOrder(ctx, "1001")
	_, _ = ob.AddOrder(ctx, "1002")

	require.NoError(t, ob.RemoveOrder(ctx, 0))
	orders := ob.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, "1002", orders[0].Code)
	assert.NotContains(t, ob.Excipients(), "LACTOSE (200)")

	assert.ErrorIs(t, ob.RemoveOrder(ctx, 1), core.ErrInvalidIndex)
	assert.ErrorIs(t, ob.RemoveOrder(ctx, -1), core.ErrInvalidIndex)
}

func TestToggleWeighed_PartitionsAndAggregates(t *testing.T) {
	ob, _, _ := newTestOrderBook(t)
	ctx := context.Background()

	for _, code := range []string{"1001", "1002", "1003"} {
		_, err := ob.AddOrder(ctx, code)
		require.NoError(t, err)
	}

	order, err := ob.ToggleWeighed(ctx, 1)
	require.NoError(t, err)
	assert.True(t, order.Weighed)

	p := ob.Partition()
	require.Len(t, p.Pending, 2)
	require.Len(t, p.Weighed, 1)
	assert.Equal(t, 0, p.Pending[0].Index)
	assert.Equal(t, 2, p.Pending[1].Index)
	assert.Equal(t, 1, p.Weighed[0].Index)
	assert.Equal(t, "1002", p.Weighed[0].Order.Code)

	ex := ob.Excipients()
	assert.Equal(t, 1.1, ex["AMIDO"].Total)
	assert.Equal(t, 0.1, ex["TALCO"].Total)

	_, err = ob.ToggleWeighed(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.3, ob.Excipients()["AMIDO"].Total)

	_, err = ob.ToggleWeighed(ctx, 3)
	assert.ErrorIs(t, err, core.ErrInvalidIndex)
}

func TestToggleWeighed_AllWeighedEmptiesMapping(t *testing.T) {
	ob, _, _ := newTestOrderBook(t)
	ctx := context.Background()

	_, _ = ob.AddOrder(ctx, "1001")
	_, err := ob.ToggleWeighed(ctx, 0)
	require.NoError(t, err)

	assert.Empty(t, ob.Excipients())
	assert.Len(t, ob.Orders(), 1)
}

func TestAssignProductionOrder(t *testing.T) {
	ob, _, _ := newTestOrderBook(t)
	ctx := context.Background()
	_, _ = ob.AddOrder(ctx, "1001")

	for _, op := range []string{"123456", "abcdefg", "12345678", ""} {
		_, err := ob.AssignProductionOrder(ctx, 0, op, nil)
		assert.ErrorIs(t, err, core.ErrInvalidFormat, op)
	}
	assert.Empty(t, ob.Orders()[0].ProductionOrderID)

	_, err := ob.AssignProductionOrder(ctx, 0, "1234567", make([]models.BinTare, 3))
	assert.ErrorIs(t, err, core.ErrInvalidFormat)

	order, err := ob.AssignProductionOrder(ctx, 0, "1234567", []models.BinTare{
		{BinNumber: "12345678", TareWeight: "15,250"},
	})
	require.NoError(t, err)
	assert.Equal(t, "1234567", order.ProductionOrderID)
	assert.Equal(t, []models.BinTare{{BinNumber: "12345678", TareWeight: "15.250"}}, order.Bins)
	assert.Equal(t, "1234567", ob.Excipients()["AMIDO"].Contributions[0].ProductionOrderID)

	_, err = ob.AssignProductionOrder(ctx, 5, "1234567", nil)
	assert.ErrorIs(t, err, core.ErrInvalidIndex)
}

func TestAutoOPSequence(t *testing.T) {
	ob, _, _ := newTestOrderBook(t)
	ctx := context.Background()

	require.NoError(t, ob.SetAutoOPBase("0000001"))

	first, err := ob.AddOrder(ctx, "1001")
	require.NoError(t, err)
	second, err := ob.AddOrder(ctx, "1002")
	require.NoError(t, err)

	assert.Equal(t, "0000001", first.ProductionOrderID)
	assert.Equal(t, "0000002", second.ProductionOrderID)

	// A failed add does not consume a number.
	_, err = ob.AddOrder(ctx, "404")
	require.ErrorIs(t, err, core.ErrRecipeNotFound)
	next, ok := ob.NextAutoOP()
	require.True(t, ok)
	assert.Equal(t, "0000003", next)

	ob.ClearAutoOP()
	third, err := ob.AddOrder(ctx, "1003")
	require.NoError(t, err)
	assert.Empty(t, third.ProductionOrderID)

	assert.ErrorIs(t, ob.SetAutoOPBase("12"), core.ErrInvalidFormat)
}

func TestAutoOPSequence_Exhausted(t *testing.T) {
	ob, _, _ := newTestOrderBook(t)
	ctx := context.Background()

	require.NoError(t, ob.SetAutoOPBase("9999999"))
	last, err := ob.AddOrder(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, "9999999", last.ProductionOrderID)

	_, err = ob.AddOrder(ctx, "1002")
	assert.ErrorIs(t, err, core.ErrOPSequenceExhausted)
	assert.Len(t, ob.Orders(), 1)

	_, ok := ob.NextAutoOP()
	assert.False(t, ok)
}

func TestMutations_MatchFreshRecompute(t *testing.T) {
	ob, recipes, _ := newTestOrderBook(t)
	ctx := context.Background()
	fresh := NewAggregator(recipes, time.Second, logger.NewNop())
	codes := []string{"1001", "1002", "1003", "404"}
	rng := rand.New(rand.NewSource(42))

	for step := 0; step < 300; step++ {
		n := len(ob.Orders())
		switch op := rng.Intn(3); {
		case op == 0 || n == 0:
			_, _ = ob.AddOrder(ctx, codes[rng.Intn(len(codes))])
		case op == 1:
			require.NoError(t, ob.RemoveOrder(ctx, rng.Intn(n)))
		default:
			_, err := ob.ToggleWeighed(ctx, rng.Intn(n))
			require.NoError(t, err)
		}

		var pending []models.Order
		for _, o := range ob.Orders() {
			if !o.Weighed {
				pending = append(pending, o)
			}
		}
		want := fresh.Recompute(ctx, pending)
		if diff := cmp.Diff(want, ob.Excipients()); diff != "" {
			t.Fatalf("step %d: mapping drifted from a fresh recompute (-want +got):\n%s", step, diff)
		}
	}
}

func TestPersistenceFailureIsNotSurfaced(t *testing.T) {
	ob, _, store := newTestOrderBook(t)
	store.failSet = true
	ctx := context.Background()

	order, err := ob.AddOrder(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, "1001", order.Code)
	require.NoError(t, ob.RemoveOrder(ctx, 0))
	assert.Empty(t, ob.Orders())
}

func TestLoad_RestoresState(t *testing.T) {
	ob, recipes, store := newTestOrderBook(t)
	ctx := context.Background()

	_, _ = ob.AddOrder(ctx, "1001")
	_, _ = ob.AddOrder(ctx, "1002")
	_, _ = ob.ToggleWeighed(ctx, 1)
	ob.SetFilter(ctx, "1001")

	restored := NewOrderBook(recipes, NewAggregator(recipes, time.Second, logger.NewNop()), store, logger.NewNop())
	sets := store.sets
	restored.Load(ctx)

	assert.Equal(t, ob.Orders(), restored.Orders())
	assert.Equal(t, ob.Excipients(), restored.Excipients())
	assert.Equal(t, "1001", restored.Filter())
	assert.Equal(t, sets, store.sets, "a matching stored mapping is not rewritten")
}

func TestLoad_FailsClosed(t *testing.T) {
	ob, recipes, store := newTestOrderBook(t)
	ctx := context.Background()

	_, _ = ob.AddOrder(ctx, "1001")
	store.data[core.KeyExcipients] = `{"version":1,"data":{"AMIDO":{"total":99,"contributions":[{"order_code":"1001","order_name":"x","production_order_id":"","quantity":1}]}}}`
	store.data[core.KeyOrderFilter] = `"1001"`

	restored := NewOrderBook(recipes, NewAggregator(recipes, time.Second, logger.NewNop()), store, logger.NewNop())
	restored.Load(ctx)

	// Orders survive, the tampered mapping is rebuilt, the unversioned filter is dropped.
	assert.Len(t, restored.Orders(), 1)
	assert.Equal(t, 1.1, restored.Excipients()["AMIDO"].Total)
	assert.Empty(t, restored.Filter())

	store.data[core.KeyOrders] = `[{"code":"1001"}]`
	empty := NewOrderBook(recipes, NewAggregator(recipes, time.Second, logger.NewNop()), store, logger.NewNop())
	empty.Load(ctx)
	assert.Empty(t, empty.Orders())
}

func TestLoad_RejectedOrdersDropStoredExcipients(t *testing.T) {
	recipes := newFakeRecipes()
	store := newMemStore()
	ctx := context.Background()

	store.data[core.KeyExcipients] = `{"version":1,"data":{"AMIDO":{"total":1.1,"contributions":[{"order_code":"1001","order_name":"Paracetamol 500mg","production_order_id":"","quantity":1.1}]}}}`
	store.data[core.KeyOrders] = `{"version":1,"data":[{"code":"1001","name":"Paracetamol 500mg","color":"red"}]}`

	ob := NewOrderBook(recipes, NewAggregator(recipes, time.Second, logger.NewNop()), store, logger.NewNop())
	ob.Load(ctx)

	assert.Empty(t, ob.Orders())
	assert.Empty(t, ob.Excipients())

	stored, err := records.DecodeExcipients(store.data[core.KeyExcipients])
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestLoad_StaleExcipientsRebuilt(t *testing.T) {
	ob, recipes, store := newTestOrderBook(t)
	ctx := context.Background()

	_, _ = ob.AddOrder(ctx, "1001")
	_, _ = ob.AddOrder(ctx, "1002")
	snapshot := store.data[core.KeyExcipients]
	require.NoError(t, ob.RemoveOrder(ctx, 1))
	// The orders write landed, the mapping write did not.
	store.data[core.KeyExcipients] = snapshot

	restored := NewOrderBook(recipes, NewAggregator(recipes, time.Second, logger.NewNop()), store, logger.NewNop())
	restored.Load(ctx)

	assert.Empty(t, cmp.Diff(ob.Excipients(), restored.Excipients()))
	assert.NotContains(t, restored.Excipients(), "TALCO")
}

func TestMutations_SurviveCancelledContext(t *testing.T) {
	ob, recipes, store := newTestOrderBook(t)
	ctx := context.Background()

	_, _ = ob.AddOrder(ctx, "1001")
	_, _ = ob.AddOrder(ctx, "1002")
	_, _ = ob.AddOrder(ctx, "1003")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	_, err := ob.ToggleWeighed(cancelled, 1)
	require.NoError(t, err)
	require.NoError(t, ob.RemoveOrder(cancelled, 2))
	_, err = ob.AssignProductionOrder(cancelled, 0, "1234567", nil)
	require.NoError(t, err)

	agg := NewAggregator(recipes, time.Second, logger.NewNop())
	fresh := agg.Recompute(ctx, ob.pendingOrders())
	require.Len(t, fresh, 3)
	assert.Empty(t, cmp.Diff(fresh, ob.Excipients()))

	stored, err := records.DecodeExcipients(store.data[core.KeyExcipients])
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(fresh, stored))
	storedOrders, err := records.DecodeOrders(store.data[core.KeyOrders])
	require.NoError(t, err)
	assert.Equal(t, ob.Orders(), storedOrders)
}

func TestView(t *testing.T) {
	ob, _, _ := newTestOrderBook(t)
	ctx := context.Background()
	_, _ = ob.AddOrder(ctx, "1001")
	_, _ = ob.AddOrder(ctx, "1002")

	all := ob.View("", false)
	assert.Len(t, all, 4)

	only := ob.View("1002", false)
	assert.Equal(t, []string{"AMIDO", "TALCO"}, only.Names())

	ob.SetFilter(ctx, "1002")
	assert.Equal(t, only, ob.View("", false))

	auto := ob.View("1002", true)
	assert.Equal(t, []string{"AMIDO"}, auto.Names())
	assert.Equal(t, 0.2, auto["AMIDO"].Total)

	ob.SetFilter(ctx, "")
	assert.Equal(t, []string{"AMIDO", "LACTOSE (200)"}, ob.View("", true).Names())
}
