package reporter

import (
	"context"
	"log"

	"wifitransfer/internal/ui"
	"wifitransfer/pkg/types"
)

// ProgressReporter feeds progress updates from a transfer into a progress bar
type ProgressReporter struct {
	progress *ui.ProgressUI
}

// NewProgressReporter creates a reporter rendering to progress
func NewProgressReporter(progress *ui.ProgressUI) *ProgressReporter {
	return &ProgressReporter{progress: progress}
}

// Forward returns a progress callback that hands updates to progressCh.
// Updates are dropped once ctx is done so a stalled reader never blocks the transfer.
func Forward(ctx context.Context, progressCh chan<- types.ProgressUpdate) func(types.ProgressUpdate) {
	return func(update types.ProgressUpdate) {
		select {
		case progressCh <- update:
		case <-ctx.Done():
		}
	}
}

// StartUpdatingProgress renders updates until progressCh is closed or ctx is done,
// and returns the last update rendered
func (pr *ProgressReporter) StartUpdatingProgress(ctx context.Context, progressCh <-chan types.ProgressUpdate) types.ProgressUpdate {
	started := false

	for {
		select {
		case <-ctx.Done():
			log.Println("Progress reporting stopped: context cancelled")
			pr.progress.Abort()
			return pr.progress.Last()
		case update, ok := <-progressCh:
			last := pr.progress.Last()
			if !ok {
				// Channel closed - transfer finished one way or another
				if started && (last.TotalBytes < 0 || last.BytesTransferred >= last.TotalBytes) {
					pr.progress.Complete()
				} else {
					pr.progress.Abort()
				}
				return last
			}

			if started && update.BytesTransferred < last.BytesTransferred {
				continue
			}
			if !started {
				log.Printf("Starting transfer (%d bytes)", update.TotalBytes)
				started = true
			}
			pr.progress.Update(update)
		}
	}
}
