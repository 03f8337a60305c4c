package transport

import (
	"sync"
	"time"

	"wifitransfer/pkg/types"
)

// ProgressTracker accumulates transferred bytes and derives rate and ETA.
// BytesTransferred never decreases.
type ProgressTracker struct {
	mu          sync.Mutex
	total       int64
	transferred int64
	start       time.Time
	now         func() time.Time
}

// NewProgressTracker starts tracking a transfer of total bytes (types.UnknownSize if undeclared)
func NewProgressTracker(total int64) *ProgressTracker {
	return newProgressTracker(total, time.Now)
}

func newProgressTracker(total int64, now func() time.Time) *ProgressTracker {
	if total < 0 {
		total = types.UnknownSize
	}
	return &ProgressTracker{
		total: total,
		start: now(),
		now:   now,
	}
}

// Add records n new bytes and returns the resulting snapshot. Non-positive n only snapshots.
func (p *ProgressTracker) Add(n int64) types.ProgressUpdate {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n < 0 {
		n = 0
	}
	p.transferred += n
	return p.snapshot(n)
}

// Snapshot returns the current state without recording bytes
func (p *ProgressTracker) Snapshot() types.ProgressUpdate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot(0)
}

func (p *ProgressTracker) snapshot(newBytes int64) types.ProgressUpdate {
	elapsed := p.now().Sub(p.start)
	update := types.ProgressUpdate{
		BytesTransferred: p.transferred,
		TotalBytes:       p.total,
		NewBytes:         newBytes,
		Elapsed:          elapsed,
	}

	if elapsed > 0 {
		update.Throughput = float64(p.transferred) / elapsed.Seconds()
	}

	if p.total >= 0 {
		left := p.total - p.transferred
		switch {
		case left <= 0:
			update.Remaining = 0
			update.RemainingKnown = true
		case update.Throughput > 0:
			update.Remaining = time.Duration(float64(left) / update.Throughput * float64(time.Second))
			update.RemainingKnown = true
		}
	}

	return update
}
