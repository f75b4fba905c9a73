package cli

import (
	"io"
	"sync/atomic"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/rommsync/rommsync/internal/domain"
)

// progressBar renders sync progress as a single item counter bar
type progressBar struct {
	progress *mpb.Progress
	bar      *mpb.Bar
	step     atomic.Value // string
}

// newProgressBar writes to out; a quiet bar discards every update
func newProgressBar(out io.Writer, quiet bool) *progressBar {
	b := &progressBar{}
	b.step.Store("")
	if !quiet {
		b.progress = mpb.New(mpb.WithOutput(out), mpb.WithWidth(48))
	}
	return b
}

// Update consumes one progress snapshot from the sync service
func (b *progressBar) Update(update domain.SyncProgress) {
	if b.progress == nil {
		return
	}

	b.step.Store(update.Step)

	// Nothing is known about the run size until transfers start
	if b.bar == nil && update.TotalItems > 0 {
		b.bar = b.progress.AddBar(int64(update.TotalItems),
			mpb.PrependDecorators(
				decor.CountersNoUnit("%d / %d", decor.WCSyncSpace),
			),
			mpb.AppendDecorators(
				decor.OnComplete(decor.Percentage(decor.WCSyncSpace), "done"),
				decor.Any(func(decor.Statistics) string {
					return b.step.Load().(string)
				}, decor.WCSyncSpaceR),
			),
		)
	}

	if b.bar == nil {
		return
	}

	b.bar.SetCurrent(int64(update.ItemsProcessed))
	if update.Complete {
		b.bar.SetTotal(-1, true)
	}
}

// Wait flushes the bar; it must be called once the run has returned
func (b *progressBar) Wait() {
	if b.progress == nil {
		return
	}
	if b.bar != nil && !b.bar.Completed() {
		b.bar.Abort(false)
	}
	b.progress.Wait()
}
