package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"weighline/internal/weighing/app/core"
	"weighline/internal/weighing/domain/models"
	"weighline/internal/xpkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

var t0 = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func newTestBinTracker(t *testing.T) (*BinTracker, *fakeNotifier, *memStore, *manualClock) {
	t.Helper()
	clock := &manualClock{now: t0}
	notifier := &fakeNotifier{}
	store := newMemStore()
	bt := NewBinTracker(store, notifier, logger.NewNop(), WithClock(clock.Now))
	return bt, notifier, store, clock
}

func TestAddBin_Validation(t *testing.T) {
	bt, _, _, _ := newTestBinTracker(t)
	ctx := context.Background()

	for _, n := range []string{"1234567", "123456789", "12ab5678", ""} {
		_, err := bt.AddBin(ctx, n, 30, false)
		assert.ErrorIs(t, err, core.ErrInvalidNumber, n)
	}

	_, err := bt.AddBin(ctx, "12345678", 0, false)
	assert.ErrorIs(t, err, core.ErrInvalidDuration)
	_, err = bt.AddBin(ctx, "12345678", -5, false)
	assert.ErrorIs(t, err, core.ErrInvalidDuration)

	bin, err := bt.AddBin(ctx, "12345678", 30, false)
	require.NoError(t, err)
	assert.Equal(t, "12345678", bin.Number)
	assert.Equal(t, (30 * time.Minute).Milliseconds(), bin.CleaningDurationMs)
	assert.Equal(t, t0.UnixMilli(), bin.CleaningStartedAt)
	assert.False(t, bin.FullClean)
	assert.NotEmpty(t, bin.ID)
}

func TestAddBin_Duplicate(t *testing.T) {
	bt, _, _, _ := newTestBinTracker(t)
	ctx := context.Background()

	_, err := bt.AddBin(ctx, "11111111", 10, false)
	require.NoError(t, err)
	_, err = bt.AddBin(ctx, "11111111", 20, true)
	assert.ErrorIs(t, err, core.ErrDuplicateNumber)
	assert.Len(t, bt.ListSortedByRemaining(t0), 1)
}

func TestAddBin_FullClean(t *testing.T) {
	bt, notifier, _, _ := newTestBinTracker(t)

	bin, err := bt.AddBin(context.Background(), "22222222", 0, true)
	require.NoError(t, err)
	assert.True(t, bin.FullClean)
	assert.Equal(t, (72 * time.Minute).Milliseconds(), bin.CleaningDurationMs)

	scheduled := notifier.scheduled()
	require.Len(t, scheduled, 1)
	assert.Equal(t, 72*time.Minute, scheduled[0].fireAfter)
	assert.Contains(t, scheduled[0].body, "22222222")
}

func TestTick_NotifiesExactlyOnce(t *testing.T) {
	bt, notifier, _, _ := newTestBinTracker(t)
	ctx := context.Background()

	_, err := bt.AddBin(ctx, "12345678", 30, false)
	require.NoError(t, err)

	statuses := bt.Tick(ctx, t0.Add(29*time.Minute))
	require.Len(t, statuses, 1)
	assert.Greater(t, statuses[0].RemainingMs, int64(0))
	assert.False(t, statuses[0].Clean)
	assert.Empty(t, notifier.immediate())

	statuses = bt.Tick(ctx, t0.Add(30*time.Minute))
	assert.Zero(t, statuses[0].RemainingMs)
	assert.True(t, statuses[0].Clean)
	assert.True(t, statuses[0].Notified)
	require.Len(t, notifier.immediate(), 1)

	bt.Tick(ctx, t0.Add(30*time.Minute))
	bt.Tick(ctx, t0.Add(31*time.Minute))
	assert.Len(t, notifier.immediate(), 1)
}

func TestTick_NotifyFailureStillMarksBin(t *testing.T) {
	bt, notifier, _, _ := newTestBinTracker(t)
	ctx := context.Background()
	notifier.failNow = true

	_, err := bt.AddBin(ctx, "12345678", 1, false)
	require.NoError(t, err)

	statuses := bt.Tick(ctx, t0.Add(time.Hour))
	assert.True(t, statuses[0].Notified)
}

func TestListSortedByRemaining(t *testing.T) {
	bt, _, _, clock := newTestBinTracker(t)
	ctx := context.Background()

	_, _ = bt.AddBin(ctx, "00000010", 10, false)
	_, _ = bt.AddBin(ctx, "00000072", 0, true)
	clock.Set(t0.Add(5 * time.Minute))
	_, _ = bt.AddBin(ctx, "00000030", 30, false)

	got := bt.ListSortedByRemaining(t0.Add(20 * time.Minute))
	require.Len(t, got, 3)
	assert.Equal(t, "00000072", got[0].Number)
	assert.Equal(t, "00000030", got[1].Number)
	assert.Equal(t, "00000010", got[2].Number)
	assert.True(t, got[2].Clean)
	assert.Equal(t, float64(100), got[2].Progress)
	assert.InDelta(t, 50.0, got[1].Progress, 0.001)
}

func TestRemoveBin(t *testing.T) {
	bt, _, store, _ := newTestBinTracker(t)
	ctx := context.Background()

	bin, err := bt.AddBin(ctx, "12345678", 30, false)
	require.NoError(t, err)

	assert.ErrorIs(t, bt.RemoveBin(ctx, "nope"), core.ErrBinNotFound)
	require.NoError(t, bt.RemoveBin(ctx, bin.ID))
	assert.Empty(t, bt.ListSortedByRemaining(t0))

	// The number is free again once the bin is gone.
	_, err = bt.AddBin(ctx, "12345678", 30, false)
	require.NoError(t, err)
	assert.Contains(t, store.data, core.KeyBins)
}

func TestBinTracker_LoadRoundTrip(t *testing.T) {
	bt, notifier, store, clock := newTestBinTracker(t)
	ctx := context.Background()

	_, _ = bt.AddBin(ctx, "12345678", 5, false)
	bt.Tick(ctx, t0.Add(10*time.Minute))

	restored := NewBinTracker(store, notifier, logger.NewNop(), WithClock(clock.Now))
	restored.Load(ctx)
	got := restored.ListSortedByRemaining(t0.Add(10 * time.Minute))
	require.Len(t, got, 1)
	assert.True(t, got[0].Notified)

	// Restored bins that were already notified stay quiet.
	restored.Tick(ctx, t0.Add(11*time.Minute))
	assert.Len(t, notifier.immediate(), 1)

	store.data[core.KeyBins] = `{"version":1,"data":[{"id":"x","number":"1"}]}`
	rejected := NewBinTracker(store, notifier, logger.NewNop())
	rejected.Load(ctx)
	assert.Empty(t, rejected.ListSortedByRemaining(t0))
}

func TestRun_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	clock := &manualClock{now: t0}
	notifier := &fakeNotifier{}
	bt := NewBinTracker(newMemStore(), notifier, logger.NewNop(),
		WithClock(clock.Now),
		WithTickInterval(5*time.Millisecond),
	)
	ctx, cancel := context.WithCancel(context.Background())

	_, err := bt.AddBin(ctx, "12345678", 1, false)
	require.NoError(t, err)
	clock.Set(t0.Add(2 * time.Minute))

	done := make(chan error, 1)
	go func() { done <- bt.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(notifier.immediate()) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Len(t, notifier.immediate(), 1)
}

func TestBinStatusAt(t *testing.T) {
	b := models.Bin{CleaningStartedAt: t0.UnixMilli(), CleaningDurationMs: 60_000}

	s := b.StatusAt(t0.Add(15 * time.Second))
	assert.Equal(t, int64(45_000), s.RemainingMs)
	assert.InDelta(t, 25.0, s.Progress, 0.001)

	s = b.StatusAt(t0.Add(2 * time.Minute))
	assert.Zero(t, s.RemainingMs)
	assert.True(t, s.Clean)
}
