package progress

import (
	"sync"
	"testing"
	"time"

	"github.com/rommsync/rommsync/internal/domain"
)

// TestTracker_StartItemEmitsCounts tests that each item start carries the counters so far
func TestTracker_StartItemEmitsCounts(t *testing.T) {
	var updates []domain.SyncProgress
	tracker := NewTracker(func(u domain.SyncProgress) {
		updates = append(updates, u)
	})

	tracker.SetTotal(3, 300)
	tracker.StartItem("Uploading a.srm")
	tracker.ItemDone(100)
	tracker.StartItem("Uploading b.srm")
	tracker.ItemFailed("b.srm: boom")
	tracker.StartItem("Downloading c.srm")

	if len(updates) != 3 {
		t.Fatalf("expected 3 updates, got %d", len(updates))
	}

	first := updates[0]
	if first.ItemsProcessed != 0 || first.TotalItems != 3 || first.TotalBytes != 300 {
		t.Errorf("unexpected first update: %+v", first)
	}

	last := updates[2]
	if last.Step != "Downloading c.srm" {
		t.Errorf("expected step 'Downloading c.srm', got %q", last.Step)
	}
	if last.ItemsProcessed != 2 || last.BytesTransferred != 100 {
		t.Errorf("unexpected counters: %+v", last)
	}
	if !last.HasErrors() || len(last.Errors) != 1 {
		t.Errorf("expected one error, got %v", last.Errors)
	}
	if last.Complete {
		t.Error("run should not be complete yet")
	}
}

// TestTracker_Finish tests the final snapshot
func TestTracker_Finish(t *testing.T) {
	var final domain.SyncProgress
	tracker := NewTracker(func(u domain.SyncProgress) { final = u })

	tracker.SetTotal(2, 0)
	tracker.ItemDone(10)
	tracker.ItemDone(20)
	tracker.Finish("Sync complete")

	if !final.Complete || final.Step != "Sync complete" {
		t.Errorf("unexpected final update: %+v", final)
	}
	if final.Percent() != 100 {
		t.Errorf("expected 100%%, got %.1f", final.Percent())
	}
}

// TestTracker_SnapshotIsCopy tests that callers cannot mutate tracker state
func TestTracker_SnapshotIsCopy(t *testing.T) {
	tracker := NewTracker(nil)
	tracker.Error("first")

	snap := tracker.Snapshot()
	snap.Errors[0] = "changed"

	if tracker.Errors()[0] != "first" {
		t.Error("snapshot should not share the error slice")
	}
}

// TestTracker_Concurrent tests thread safety
func TestTracker_Concurrent(t *testing.T) {
	tracker := NewTracker(func(domain.SyncProgress) {})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.StartItem("item")
			tracker.ItemDone(1)
		}()
	}
	wg.Wait()

	snap := tracker.Snapshot()
	if snap.ItemsProcessed != 20 || snap.BytesTransferred != 20 {
		t.Errorf("expected 20/20, got %d/%d", snap.ItemsProcessed, snap.BytesTransferred)
	}
}

// TestFormatBytes tests byte formatting
func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1024 * 1024, "1.0 MB"},
		{1024 * 1024 * 1024, "1.0 GB"},
	}

	for _, tt := range tests {
		if got := FormatBytes(tt.bytes); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

// TestFormatDuration tests duration rounding
func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{1234567 * time.Nanosecond, "1ms"},
		{1530 * time.Millisecond, "1.5s"},
		{90*time.Second + 400*time.Millisecond, "1m30s"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
