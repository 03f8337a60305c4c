package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"wifitransfer/pkg/types"
	"wifitransfer/pkg/utils"
)

// ProgressUI renders a single transfer as a progress bar
type ProgressUI struct {
	out       io.Writer
	bar       *progressbar.ProgressBar
	operation string // "Sending" or "Receiving"
	filename  string
	last      types.ProgressUpdate
}

// NewProgressUI creates a progress UI writing to out
func NewProgressUI(out io.Writer, operation, filename string) *ProgressUI {
	return &ProgressUI{
		out:       out,
		operation: operation,
		filename:  filename,
	}
}

// initProgressBar creates the bar on the first update, once the total is known
func (p *ProgressUI) initProgressBar(total int64) {
	limit := total
	if limit <= 0 {
		limit = -1 // spinner for empty or undeclared sizes
	}
	p.bar = progressbar.NewOptions64(limit,
		progressbar.OptionSetDescription(fmt.Sprintf("%s %s", p.operation, p.filename)),
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
	)
}

// Update moves the bar to the state in update
func (p *ProgressUI) Update(update types.ProgressUpdate) {
	if p.bar == nil {
		p.initProgressBar(update.TotalBytes)
	}
	p.last = update

	_ = p.bar.Set64(update.BytesTransferred)
	p.bar.Describe(p.describe(update))
}

func (p *ProgressUI) describe(update types.ProgressUpdate) string {
	if update.Percentage() < 0 {
		return fmt.Sprintf("%s %s (%s)", p.operation, p.filename, utils.FormatFileSize(update.BytesTransferred))
	}
	eta := "unknown"
	if update.RemainingKnown {
		eta = update.Remaining.Round(time.Second).String()
	}
	return fmt.Sprintf("%s %s (%.1f%%, %s left)", p.operation, p.filename, update.Percentage(), eta)
}

// Last returns the most recent update rendered
func (p *ProgressUI) Last() types.ProgressUpdate {
	return p.last
}

// Complete finishes the bar
func (p *ProgressUI) Complete() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	fmt.Fprintln(p.out)
}

// Abort leaves the bar where it stopped
func (p *ProgressUI) Abort() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Exit()
	fmt.Fprintln(p.out)
}
