package planner

import (
	"github.com/rommsync/rommsync/internal/core/conflict"
	"github.com/rommsync/rommsync/internal/domain"
)

// Planner reconciles local and remote items into a plan
type Planner interface {
	Reconcile(local []domain.LocalSyncItem, remote []domain.RemoteSyncItem, direction domain.SyncDirection) []domain.SyncComparison
	Plan(local []domain.LocalSyncItem, remote []domain.RemoteSyncItem, direction domain.SyncDirection) *domain.SyncPlan
}

// DefaultPlanner joins both sides by identifier and delegates pairs to a Resolver
type DefaultPlanner struct {
	Resolver conflict.Resolver
}

// NewDefaultPlanner creates a new planner with the newest-wins resolver
func NewDefaultPlanner() *DefaultPlanner {
	return &DefaultPlanner{
		Resolver: conflict.NewDefaultResolver(),
	}
}

// Reconcile returns one comparison per distinct identifier.
// Comparisons follow the first appearance of each identifier, local items first.
// A duplicate identifier within one side keeps the last item seen.
func (p *DefaultPlanner) Reconcile(local []domain.LocalSyncItem, remote []domain.RemoteSyncItem, direction domain.SyncDirection) []domain.SyncComparison {
	localMap := make(map[string]*domain.LocalSyncItem, len(local))
	remoteMap := make(map[string]*domain.RemoteSyncItem, len(remote))
	order := make([]string, 0, len(local)+len(remote))
	seen := make(map[string]bool, len(local)+len(remote))

	for i := range local {
		id := local[i].Identifier()
		localMap[id] = &local[i]
		if !seen[id] {
			seen[id] = true
			order = append(order, id)
		}
	}
	for i := range remote {
		id := remote[i].Identifier()
		remoteMap[id] = &remote[i]
		if !seen[id] {
			seen[id] = true
			order = append(order, id)
		}
	}

	comparisons := make([]domain.SyncComparison, 0, len(order))
	for _, id := range order {
		l, hasLocal := localMap[id]
		r, hasRemote := remoteMap[id]

		switch {
		case hasLocal && hasRemote:
			comparisons = append(comparisons, p.Resolver.Resolve(l, r, direction))

		case hasLocal:
			cmp := domain.SyncComparison{Local: l}
			if direction.AllowsUpload() {
				cmp.Action = domain.ActionUpload
				cmp.Reason = "File only exists locally"
			} else {
				cmp.Action = domain.ActionSkipConflict
				cmp.Reason = "Download-only mode, local file exists"
			}
			comparisons = append(comparisons, cmp)

		case hasRemote:
			cmp := domain.SyncComparison{Remote: r}
			if direction.AllowsDownload() {
				cmp.Action = domain.ActionDownload
				cmp.Reason = "File only exists remotely"
			} else {
				cmp.Action = domain.ActionSkipConflict
				cmp.Reason = "Upload-only mode, remote file exists"
			}
			comparisons = append(comparisons, cmp)
		}
	}

	return comparisons
}

// Plan reconciles both sides and aggregates the result
func (p *DefaultPlanner) Plan(local []domain.LocalSyncItem, remote []domain.RemoteSyncItem, direction domain.SyncDirection) *domain.SyncPlan {
	return BuildPlan(direction, p.Reconcile(local, remote, direction))
}

// BuildPlan wraps comparisons in a plan with its counts and byte totals
func BuildPlan(direction domain.SyncDirection, comparisons []domain.SyncComparison) *domain.SyncPlan {
	plan := domain.EmptyPlan(direction)
	if comparisons != nil {
		plan.Comparisons = comparisons
	}
	calculateStats(plan)
	return plan
}

// calculateStats computes summary statistics for a plan
func calculateStats(plan *domain.SyncPlan) {
	plan.UploadCount, plan.DownloadCount, plan.SkipCount = 0, 0, 0
	plan.UploadBytes, plan.DownloadBytes = 0, 0

	for _, cmp := range plan.Comparisons {
		switch cmp.Action {
		case domain.ActionUpload:
			plan.UploadCount++
			if cmp.Local != nil {
				plan.UploadBytes += cmp.Local.Size
			}
		case domain.ActionDownload:
			plan.DownloadCount++
			if cmp.Remote != nil {
				plan.DownloadBytes += cmp.Remote.Size
			}
		case domain.ActionSkipConflict, domain.ActionSkipIdentical:
			plan.SkipCount++
		}
	}
}
