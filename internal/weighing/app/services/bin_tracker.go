package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"weighline/internal/weighing/app/core"
	"weighline/internal/weighing/app/validation"
	"weighline/internal/weighing/domain/models"
	"weighline/internal/weighing/domain/records"
	"weighline/internal/xpkg/logger"

	"github.com/google/uuid"
)

// BinTracker follows the cleaning cycle of mixing bins. A bin only moves
// from cleaning to clean; the one notification per bin is guarded by its
// notified flag.
type BinTracker struct {
	mu sync.Mutex

	store    core.IStore
	notifier core.INotifier
	mylog    logger.Logger

	fullClean time.Duration
	interval  time.Duration
	now       func() time.Time

	bins []models.Bin
}

type BinTrackerOption func(*BinTracker)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) BinTrackerOption {
	return func(bt *BinTracker) { bt.now = now }
}

func WithFullClean(d time.Duration) BinTrackerOption {
	return func(bt *BinTracker) { bt.fullClean = d }
}

func WithTickInterval(d time.Duration) BinTrackerOption {
	return func(bt *BinTracker) { bt.interval = d }
}

func NewBinTracker(store core.IStore, notifier core.INotifier, mylog logger.Logger, opts ...BinTrackerOption) *BinTracker {
	bt := &BinTracker{
		store:     store,
		notifier:  notifier,
		mylog:     mylog,
		fullClean: 72 * time.Minute,
		interval:  core.DefaultTickPeriod,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(bt)
	}
	return bt
}

// Load restores bins from the store; a rejected blob leaves the tracker empty.
func (bt *BinTracker) Load(ctx context.Context) {
	bt.mu.Lock()
	defer bt.mu.Unlock()

	mylog := bt.mylog.Action("load_bins")

	raw, ok, err := bt.store.Get(ctx, core.KeyBins)
	if err != nil {
		mylog.Error("Failed to read bins from device store", err)
		return
	}
	if !ok {
		return
	}
	bins, err := records.DecodeBins(raw)
	if err != nil {
		mylog.Error("Discarding stored bins", err)
		return
	}
	bt.bins = bins
	mylog.Info("Bins restored", "bins", len(bins))
}

// AddBin starts the cleaning cycle of a bin. With fullClean set, minutes is ignored.
func (bt *BinTracker) AddBin(ctx context.Context, number string, minutes int, fullClean bool) (models.Bin, error) {
	bt.mu.Lock()
	defer bt.mu.Unlock()

	mylog := bt.mylog.Action("add_bin")

	if err := validation.BinNumber(number); err != nil {
		return models.Bin{}, err
	}

	duration := bt.fullClean
	if !fullClean {
		if minutes <= 0 {
			return models.Bin{}, fmt.Errorf("%w: %d", core.ErrInvalidDuration, minutes)
		}
		duration = time.Duration(minutes) * time.Minute
	}

	for _, b := range bt.bins {
		if b.Number == number {
			mylog.Warn("Duplicate bin number", "number", number)
			return models.Bin{}, fmt.Errorf("%w: %s", core.ErrDuplicateNumber, number)
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return models.Bin{}, fmt.Errorf("generate bin id: %w", err)
	}

	bin := models.Bin{
		ID:                 id.String(),
		Number:             number,
		CleaningDurationMs: duration.Milliseconds(),
		CleaningStartedAt:  bt.now().UnixMilli(),
		FullClean:          fullClean,
	}
	bt.bins = append(bt.bins, bin)
	bt.persist(ctx)

	if err := bt.notifier.Notify(ctx, core.BinCleanTitle, fmt.Sprintf(core.BinCleanBodyFmt, number), duration); err != nil {
		mylog.Error("Failed to schedule bin notification", err, "number", number)
	}

	mylog.Info("Bin cleaning started", "id", bin.ID, "number", number, "duration", duration.String(), "full_clean", fullClean)
	return bin, nil
}

// RemoveBin deletes a bin. Asking the operator for confirmation is the caller's job.
func (bt *BinTracker) RemoveBin(ctx context.Context, id string) error {
	bt.mu.Lock()
	defer bt.mu.Unlock()

	for i, b := range bt.bins {
		if b.ID != id {
			continue
		}
		bt.bins = append(bt.bins[:i], bt.bins[i+1:]...)
		bt.persist(ctx)
		bt.mylog.Action("remove_bin").Info("Bin removed", "id", id, "number", b.Number)
		return nil
	}
	return fmt.Errorf("%w: %s", core.ErrBinNotFound, id)
}

// Tick notifies once for every bin whose cleaning finished by now and
// returns the status of all bins. Repeating a tick changes nothing.
func (bt *BinTracker) Tick(ctx context.Context, now time.Time) []models.BinStatus {
	bt.mu.Lock()
	defer bt.mu.Unlock()

	changed := false
	for i := range bt.bins {
		b := &bt.bins[i]
		if b.Notified || !b.IsClean(now) {
			continue
		}
		b.Notified = true
		changed = true

		if err := bt.notifier.NotifyNow(ctx, core.BinCleanTitle, fmt.Sprintf(core.BinCleanBodyFmt, b.Number)); err != nil {
			bt.mylog.Action("notify_bin_clean").Error("Failed to send bin notification", err, "number", b.Number)
			continue
		}
		bt.mylog.Action("bin_clean").Info("Bin is clean", "id", b.ID, "number", b.Number)
	}
	if changed {
		bt.persist(ctx)
	}

	out := make([]models.BinStatus, len(bt.bins))
	for i, b := range bt.bins {
		out[i] = b.StatusAt(now)
	}
	return out
}

// ListSortedByRemaining returns bins furthest from completion first.
func (bt *BinTracker) ListSortedByRemaining(now time.Time) []models.BinStatus {
	bt.mu.Lock()
	defer bt.mu.Unlock()

	out := make([]models.BinStatus, len(bt.bins))
	for i, b := range bt.bins {
		out[i] = b.StatusAt(now)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RemainingMs > out[j].RemainingMs
	})
	return out
}

func (bt *BinTracker) Now() time.Time {
	return bt.now()
}

// Run ticks every interval until ctx is cancelled.
func (bt *BinTracker) Run(ctx context.Context) error {
	mylog := bt.mylog.Action("bin_ticker")

	granted, err := bt.notifier.RequestPermission(ctx)
	switch {
	case err != nil:
		mylog.Error("Failed to request notification permission", err)
	case !granted:
		mylog.Warn("Notifications were not allowed")
	}

	ticker := time.NewTicker(bt.interval)
	defer ticker.Stop()

	mylog.Info("Bin ticker started", "interval", bt.interval.String())
	for {
		select {
		case <-ctx.Done():
			mylog.Info("Bin ticker stopped")
			return nil
		case <-ticker.C:
			bt.Tick(ctx, bt.now())
		}
	}
}

func (bt *BinTracker) persist(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	mylog := bt.mylog.Action("store_write_failed")

	raw, err := records.Encode(bt.bins)
	if err != nil {
		mylog.Error("Failed to encode bins", err)
		return
	}
	if err := bt.store.Set(ctx, core.KeyBins, raw); err != nil {
		mylog.Error("Failed to write bins to device store", err)
	}
}
