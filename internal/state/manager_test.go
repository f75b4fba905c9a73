package state

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/rommsync/rommsync/internal/domain"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	manager, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	t.Cleanup(func() { manager.Close() })
	return manager
}

func TestNewManager(t *testing.T) {
	tmpDir := t.TempDir()

	manager, err := NewManager(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	defer manager.Close()

	if manager.db == nil {
		t.Error("Database connection is nil")
	}

	if _, err := os.Stat(filepath.Join(tmpDir, DBFileName)); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestNewManager_EmptyDir(t *testing.T) {
	if _, err := NewManager(""); err == nil {
		t.Error("Expected error for empty directory, got nil")
	}
}

func TestSaveAndGetRun(t *testing.T) {
	manager := newTestManager(t)

	record := RunRecord{
		RunID:      "run-1",
		Direction:  domain.Bidirectional,
		StartTime:  time.Now().Add(-10 * time.Minute),
		EndTime:    time.Now(),
		Status:     domain.StatusPartial,
		Uploaded:   3,
		Downloaded: 2,
		Skipped:    7,
		Errors:     []string{"upload a.srm: boom", "download b.sav: gone"},
	}

	if err := manager.SaveRun(record); err != nil {
		t.Fatalf("Failed to save run: %v", err)
	}

	history, err := manager.GetHistory(10)
	if err != nil {
		t.Fatalf("Failed to get history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(history))
	}

	got := history[0]
	if got.RunID != record.RunID || got.Direction != record.Direction || got.Status != record.Status {
		t.Errorf("Unexpected record: %+v", got)
	}
	if got.Uploaded != 3 || got.Downloaded != 2 || got.Skipped != 7 {
		t.Errorf("Unexpected counts: %+v", got)
	}
	if !reflect.DeepEqual(got.Errors, record.Errors) {
		t.Errorf("Expected errors %v, got %v", record.Errors, got.Errors)
	}
}

func TestRecordResult(t *testing.T) {
	manager := newTestManager(t)

	result := domain.SyncResult{
		RunID:     "run-ok",
		Direction: domain.UploadOnly,
		Success:   true,
		Uploaded:  4,
		StartTime: time.Now().Add(-time.Minute),
		Duration:  2 * time.Second,
	}
	if err := manager.RecordResult(result); err != nil {
		t.Fatalf("Failed to record result: %v", err)
	}

	last, err := manager.GetLastSuccess()
	if err != nil {
		t.Fatalf("Failed to get last success: %v", err)
	}
	if last == nil || last.RunID != "run-ok" || last.Uploaded != 4 {
		t.Fatalf("Unexpected last success: %+v", last)
	}
	if last.Errors != nil {
		t.Errorf("Expected no errors, got %v", last.Errors)
	}
	if d := last.EndTime.Sub(last.StartTime); d != 2*time.Second {
		t.Errorf("Expected 2s between start and end, got %v", d)
	}
}

func TestSaveRun_DuplicateRunID(t *testing.T) {
	manager := newTestManager(t)

	record := RunRecord{RunID: "dup", Direction: domain.Bidirectional, StartTime: time.Now(), EndTime: time.Now(), Status: domain.StatusSuccess}
	if err := manager.SaveRun(record); err != nil {
		t.Fatalf("Failed to save run: %v", err)
	}
	if err := manager.SaveRun(record); err == nil {
		t.Error("Expected error for duplicate run id")
	}
}

func TestGetLastSuccess(t *testing.T) {
	manager := newTestManager(t)

	records := []RunRecord{
		{RunID: "a", Direction: domain.Bidirectional, StartTime: time.Now().Add(-30 * time.Minute), EndTime: time.Now().Add(-29 * time.Minute), Status: domain.StatusSuccess, Uploaded: 5},
		{RunID: "b", Direction: domain.Bidirectional, StartTime: time.Now().Add(-20 * time.Minute), EndTime: time.Now().Add(-19 * time.Minute), Status: domain.StatusFailed, Errors: []string{"network error"}},
		{RunID: "c", Direction: domain.Bidirectional, StartTime: time.Now().Add(-10 * time.Minute), EndTime: time.Now().Add(-9 * time.Minute), Status: domain.StatusSuccess, Uploaded: 10},
	}
	for _, record := range records {
		if err := manager.SaveRun(record); err != nil {
			t.Fatalf("Failed to save run: %v", err)
		}
	}

	lastSuccess, err := manager.GetLastSuccess()
	if err != nil {
		t.Fatalf("Failed to get last success: %v", err)
	}
	if lastSuccess == nil {
		t.Fatal("Expected last success, got nil")
	}
	if lastSuccess.RunID != "c" {
		t.Errorf("Expected run c, got %s", lastSuccess.RunID)
	}
}

func TestGetLastSuccess_NoSuccess(t *testing.T) {
	manager := newTestManager(t)

	record := RunRecord{RunID: "f", Direction: domain.DownloadOnly, StartTime: time.Now(), EndTime: time.Now(), Status: domain.StatusFailed}
	if err := manager.SaveRun(record); err != nil {
		t.Fatalf("Failed to save run: %v", err)
	}

	lastSuccess, err := manager.GetLastSuccess()
	if err != nil {
		t.Fatalf("Failed to get last success: %v", err)
	}
	if lastSuccess != nil {
		t.Error("Expected nil for last success, got a record")
	}
}

func TestGetHistory_LimitAndOrder(t *testing.T) {
	manager := newTestManager(t)

	for i := 0; i < 5; i++ {
		record := RunRecord{
			RunID:     string(rune('a' + i)),
			Direction: domain.Bidirectional,
			StartTime: time.Now().Add(time.Duration(-i*10) * time.Minute),
			EndTime:   time.Now().Add(time.Duration(-i*10+1) * time.Minute),
			Status:    domain.StatusSuccess,
			Uploaded:  i,
		}
		if err := manager.SaveRun(record); err != nil {
			t.Fatalf("Failed to save run: %v", err)
		}
	}

	history, err := manager.GetHistory(3)
	if err != nil {
		t.Fatalf("Failed to get history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(history))
	}
	if history[0].Uploaded != 0 {
		t.Errorf("Expected most recent record first, got %+v", history[0])
	}
}

func TestGetHistoryByDirection(t *testing.T) {
	manager := newTestManager(t)

	for i, dir := range []domain.SyncDirection{domain.UploadOnly, domain.DownloadOnly, domain.UploadOnly} {
		record := RunRecord{
			RunID:     string(rune('a' + i)),
			Direction: dir,
			StartTime: time.Now().Add(time.Duration(-i) * time.Minute),
			EndTime:   time.Now(),
			Status:    domain.StatusSuccess,
		}
		if err := manager.SaveRun(record); err != nil {
			t.Fatalf("Failed to save run: %v", err)
		}
	}

	history, err := manager.GetHistoryByDirection(domain.UploadOnly, 10)
	if err != nil {
		t.Fatalf("Failed to get history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 upload runs, got %d", len(history))
	}
	for _, r := range history {
		if r.Direction != domain.UploadOnly {
			t.Errorf("Unexpected direction %s", r.Direction)
		}
	}
}

func TestSaveRun_Validation(t *testing.T) {
	manager := newTestManager(t)

	if err := manager.SaveRun(RunRecord{RunID: "x", StartTime: time.Now(), EndTime: time.Now(), Status: "invalid_status"}); err == nil {
		t.Error("Expected error for invalid status, got nil")
	}
	if err := manager.SaveRun(RunRecord{StartTime: time.Now(), EndTime: time.Now(), Status: domain.StatusSuccess}); err == nil {
		t.Error("Expected error for empty run id, got nil")
	}
}

func TestGetHistory_InvalidLimit(t *testing.T) {
	manager := newTestManager(t)

	if _, err := manager.GetHistory(0); err == nil {
		t.Error("Expected error for limit=0, got nil")
	}
	if _, err := manager.GetHistoryByDirection(domain.UploadOnly, -1); err == nil {
		t.Error("Expected error for limit=-1, got nil")
	}
}
