package conflict

import (
	"fmt"
	"time"

	"github.com/rommsync/rommsync/internal/domain"
)

// IdenticalTolerance is the largest timestamp gap still treated as the same file
const IdenticalTolerance = time.Second

// Resolver decides what to do with an identifier present on both sides
type Resolver interface {
	// Resolve returns the comparison for a local/remote pair.
	// Both items must be non-nil.
	Resolve(local *domain.LocalSyncItem, remote *domain.RemoteSyncItem, direction domain.SyncDirection) domain.SyncComparison
}

// NewestWinsResolver keeps whichever side was modified last.
// Equal sizes within IdenticalTolerance are considered identical.
type NewestWinsResolver struct {
	Tolerance time.Duration
}

// NewDefaultResolver creates a resolver with the standard one second tolerance
func NewDefaultResolver() *NewestWinsResolver {
	return &NewestWinsResolver{Tolerance: IdenticalTolerance}
}

// Resolve implements the Resolver interface
func (r *NewestWinsResolver) Resolve(local *domain.LocalSyncItem, remote *domain.RemoteSyncItem, direction domain.SyncDirection) domain.SyncComparison {
	cmp := domain.SyncComparison{Local: local, Remote: remote}

	if local == nil || remote == nil {
		cmp.Action = domain.ActionSkipConflict
		cmp.Reason = "Missing local or remote item"
		return cmp
	}

	gap := local.ModTime.Sub(remote.ModTime)
	if gap < 0 {
		gap = -gap
	}

	switch {
	case local.Size == remote.Size && gap <= r.Tolerance:
		cmp.Action = domain.ActionSkipIdentical
		cmp.Reason = "Files are identical"

	case local.ModTime.After(remote.ModTime):
		if direction.AllowsUpload() {
			cmp.Action = domain.ActionUpload
			cmp.Reason = "Local file is newer"
		} else {
			cmp.Action = domain.ActionSkipConflict
			cmp.Reason = "Local file newer but download-only mode"
		}

	case remote.ModTime.After(local.ModTime):
		if direction.AllowsDownload() {
			cmp.Action = domain.ActionDownload
			cmp.Reason = "Remote file is newer"
		} else {
			cmp.Action = domain.ActionSkipConflict
			cmp.Reason = "Remote file newer but upload-only mode"
		}

	default:
		cmp.Action = domain.ActionSkipConflict
		cmp.Reason = fmt.Sprintf("Files have same timestamp but different sizes (%d vs %d bytes)", local.Size, remote.Size)
	}

	return cmp
}
