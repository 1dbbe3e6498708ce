package models

import "time"

// Bin is a mixing bin going through a timed cleaning cycle.
// Times are stored as unix milliseconds so persisted blobs stay portable.
type Bin struct {
	ID                 string `json:"id"`
	Number             string `json:"number"`
	CleaningDurationMs int64  `json:"cleaning_duration_ms"`
	CleaningStartedAt  int64  `json:"cleaning_started_at"`
	FullClean          bool   `json:"full_clean"`
	Notified           bool   `json:"notified"`
}

// Remaining is max(0, start + duration - now).
func (b Bin) Remaining(now time.Time) time.Duration {
	left := b.CleaningStartedAt + b.CleaningDurationMs - now.UnixMilli()
	if left < 0 {
		left = 0
	}
	return time.Duration(left) * time.Millisecond
}

func (b Bin) IsClean(now time.Time) bool {
	return b.Remaining(now) == 0
}

// Progress is the elapsed share of the cleaning cycle, 0 to 100.
func (b Bin) Progress(now time.Time) float64 {
	if b.CleaningDurationMs <= 0 || b.IsClean(now) {
		return 100
	}
	remaining := b.Remaining(now).Milliseconds()
	return float64(b.CleaningDurationMs-remaining) / float64(b.CleaningDurationMs) * 100
}

// BinStatus is a bin as seen at a given instant.
type BinStatus struct {
	Bin
	RemainingMs int64   `json:"remaining_ms"`
	Clean       bool    `json:"clean"`
	Progress    float64 `json:"progress"`
}

func (b Bin) StatusAt(now time.Time) BinStatus {
	return BinStatus{
		Bin:         b,
		RemainingMs: b.Remaining(now).Milliseconds(),
		Clean:       b.IsClean(now),
		Progress:    b.Progress(now),
	}
}
