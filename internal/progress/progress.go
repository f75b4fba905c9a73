package progress

import (
	"fmt"
	"sync"
	"time"

	"github.com/rommsync/rommsync/internal/domain"
)

// Callback is a function that receives progress updates
type Callback func(update domain.SyncProgress)

// Tracker accumulates the progress of one sync run and forwards snapshots
// to a callback. It is safe for concurrent use.
type Tracker struct {
	callback Callback
	mu       sync.Mutex
	state    domain.SyncProgress
}

// NewTracker creates a tracker; a nil callback discards updates
func NewTracker(callback Callback) *Tracker {
	return &Tracker{callback: callback}
}

// Step reports a phase change without touching the counters
func (t *Tracker) Step(step string) {
	t.mu.Lock()
	t.state.Step = step
	update := t.snapshotLocked()
	t.mu.Unlock()

	t.emit(update)
}

// SetTotal sets the number of items and bytes the run will transfer
func (t *Tracker) SetTotal(totalItems int, totalBytes int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.TotalItems = totalItems
	t.state.TotalBytes = totalBytes
}

// StartItem reports that the next item is about to be transferred
func (t *Tracker) StartItem(step string) {
	t.Step(step)
}

// ItemDone records a successful transfer of the given size
func (t *Tracker) ItemDone(bytes int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.ItemsProcessed++
	t.state.BytesTransferred += bytes
}

// ItemFailed records a failed transfer
func (t *Tracker) ItemFailed(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.ItemsProcessed++
	t.state.Errors = append(t.state.Errors, message)
}

// Error records an error not tied to a single item
func (t *Tracker) Error(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Errors = append(t.state.Errors, message)
}

// Finish marks the run as complete and emits the final snapshot
func (t *Tracker) Finish(step string) {
	t.mu.Lock()
	t.state.Step = step
	t.state.Complete = true
	update := t.snapshotLocked()
	t.mu.Unlock()

	t.emit(update)
}

// Snapshot returns a copy of the current progress
func (t *Tracker) Snapshot() domain.SyncProgress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// Errors returns a copy of the collected error messages
func (t *Tracker) Errors() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.state.Errors...)
}

func (t *Tracker) snapshotLocked() domain.SyncProgress {
	s := t.state
	s.Errors = append([]string(nil), t.state.Errors...)
	return s
}

// Callback is called outside the lock so it may call back into the tracker
func (t *Tracker) emit(update domain.SyncProgress) {
	if t.callback != nil {
		t.callback(update)
	}
}

// FormatBytes formats bytes into human-readable string
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatDuration rounds a duration for display
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	case d < time.Minute:
		return d.Round(100 * time.Millisecond).String()
	default:
		return d.Round(time.Second).String()
	}
}
