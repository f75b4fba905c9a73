package domain

import (
	"fmt"
	"strings"
	"time"
)

// SyncDirection defines which way transfers are allowed to flow
type SyncDirection string

const (
	// UploadOnly pushes local changes to the server only
	UploadOnly SyncDirection = "upload"

	// DownloadOnly pulls server changes to the device only
	DownloadOnly SyncDirection = "download"

	// Bidirectional transfers whichever side is newer
	Bidirectional SyncDirection = "bidirectional"
)

// IsValid checks if the direction is a known value
func (d SyncDirection) IsValid() bool {
	switch d {
	case UploadOnly, DownloadOnly, Bidirectional:
		return true
	}
	return false
}

// AllowsUpload reports whether local files may be pushed to the server
func (d SyncDirection) AllowsUpload() bool {
	return d == UploadOnly || d == Bidirectional
}

// AllowsDownload reports whether server files may be pulled to the device
func (d SyncDirection) AllowsDownload() bool {
	return d == DownloadOnly || d == Bidirectional
}

// ParseSyncDirection parses a direction name (case-insensitive).
// "upload_only", "download_only" and "both" are accepted as aliases.
func ParseSyncDirection(s string) (SyncDirection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "upload", "upload_only", "upload-only":
		return UploadOnly, nil
	case "download", "download_only", "download-only":
		return DownloadOnly, nil
	case "bidirectional", "both", "":
		return Bidirectional, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// SyncAction is the action recommended for one identifier
type SyncAction string

const (
	ActionUpload        SyncAction = "upload"
	ActionDownload      SyncAction = "download"
	ActionSkipConflict  SyncAction = "skip_conflict"
	ActionSkipIdentical SyncAction = "skip_identical"
)

// IsSkip reports whether the action transfers nothing
func (a SyncAction) IsSkip() bool {
	return a == ActionSkipConflict || a == ActionSkipIdentical
}

// SyncComparison is the reconciliation result for one identifier.
// At least one of Local and Remote is set.
type SyncComparison struct {
	Local  *LocalSyncItem
	Remote *RemoteSyncItem
	Action SyncAction
	Reason string
}

// Identifier returns the join key shared by both sides
func (c SyncComparison) Identifier() string {
	if c.Local != nil {
		return c.Local.Identifier()
	}
	if c.Remote != nil {
		return c.Remote.Identifier()
	}
	return ""
}

// Platform returns the platform slug of whichever side is present
func (c SyncComparison) Platform() string {
	if c.Local != nil {
		return c.Local.Platform
	}
	if c.Remote != nil {
		return c.Remote.Platform
	}
	return ""
}

// Type returns the item type of whichever side is present
func (c SyncComparison) Type() ItemType {
	if c.Local != nil {
		return c.Local.Type
	}
	if c.Remote != nil {
		return c.Remote.Type
	}
	return SaveFile
}

// FileName returns the file name of whichever side is present, local first
func (c SyncComparison) FileName() string {
	if c.Local != nil {
		return c.Local.FileName
	}
	if c.Remote != nil {
		return c.Remote.FileName
	}
	return ""
}

// SyncPlan aggregates the comparisons of one run
type SyncPlan struct {
	Direction   SyncDirection
	Comparisons []SyncComparison

	UploadCount   int
	DownloadCount int
	SkipCount     int

	// Estimated byte totals, taken from the side being transferred
	UploadBytes   int64
	DownloadBytes int64
}

// HasWork reports whether the plan transfers anything
func (p *SyncPlan) HasWork() bool {
	return p.UploadCount > 0 || p.DownloadCount > 0
}

// ByAction returns the comparisons carrying the given action, in plan order
func (p *SyncPlan) ByAction(action SyncAction) []SyncComparison {
	var out []SyncComparison
	for _, c := range p.Comparisons {
		if c.Action == action {
			out = append(out, c)
		}
	}
	return out
}

// EmptyPlan returns a plan with no comparisons
func EmptyPlan(direction SyncDirection) *SyncPlan {
	return &SyncPlan{Direction: direction, Comparisons: []SyncComparison{}}
}

// SyncRequest holds the caller-supplied parameters of one run
type SyncRequest struct {
	Direction  SyncDirection
	SaveFiles  bool
	SaveStates bool

	// Filters; empty means no filtering
	PlatformFilter string
	EmulatorFilter string
	GameFilter     string

	// Remote records kept per game after an upload; zero keeps everything
	SaveFileHistoryLimit  int
	SaveStateHistoryLimit int

	// DryRun plans without transferring anything
	DryRun bool
}

// DefaultSyncRequest returns a bidirectional request for both item types
func DefaultSyncRequest() SyncRequest {
	return SyncRequest{
		Direction:  Bidirectional,
		SaveFiles:  true,
		SaveStates: true,
	}
}

// Enabled reports whether the request covers the given item type
func (r SyncRequest) Enabled(t ItemType) bool {
	if t == SaveState {
		return r.SaveStates
	}
	return r.SaveFiles
}

// HistoryLimit returns the retention limit for the given item type
func (r SyncRequest) HistoryLimit(t ItemType) int {
	if t == SaveState {
		return r.SaveStateHistoryLimit
	}
	return r.SaveFileHistoryLimit
}

// Settings are the device-side settings supplied on each invocation
type Settings struct {
	SaveFilesDir  string
	SaveStatesDir string

	// Used when the request leaves its own limits at zero
	SaveFileHistoryLimit  int
	SaveStateHistoryLimit int
}

// Root returns the scan root for the given item type
func (s Settings) Root(t ItemType) string {
	if t == SaveState {
		return s.SaveStatesDir
	}
	return s.SaveFilesDir
}

// SyncProgress is a snapshot emitted while a sync runs
type SyncProgress struct {
	Step             string
	ItemsProcessed   int
	TotalItems       int
	BytesTransferred int64
	TotalBytes       int64
	Complete         bool
	Errors           []string
}

// HasErrors reports whether any item failed so far
func (p SyncProgress) HasErrors() bool {
	return len(p.Errors) > 0
}

// Percent returns item progress in the range 0-100
func (p SyncProgress) Percent() float64 {
	if p.TotalItems <= 0 {
		return 0
	}
	return float64(p.ItemsProcessed) / float64(p.TotalItems) * 100
}

// Result statuses, shared with the history store
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// SyncResult is the terminal outcome of one run
type SyncResult struct {
	RunID      string
	Direction  SyncDirection
	Success    bool
	Uploaded   int
	Downloaded int
	Skipped    int
	Errors     []string
	StartTime  time.Time
	Duration   time.Duration
}

// ErrorCount returns the number of collected errors
func (r SyncResult) ErrorCount() int {
	return len(r.Errors)
}

// Status classifies the result as success, partial or failed
func (r SyncResult) Status() string {
	switch {
	case len(r.Errors) == 0:
		return StatusSuccess
	case r.Uploaded+r.Downloaded > 0:
		return StatusPartial
	default:
		return StatusFailed
	}
}
