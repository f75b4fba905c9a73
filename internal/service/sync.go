package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rommsync/rommsync/internal/adapter"
	"github.com/rommsync/rommsync/internal/core/matcher"
	"github.com/rommsync/rommsync/internal/core/planner"
	"github.com/rommsync/rommsync/internal/core/remote"
	"github.com/rommsync/rommsync/internal/core/retention"
	"github.com/rommsync/rommsync/internal/core/scanner"
	"github.com/rommsync/rommsync/internal/domain"
	"github.com/rommsync/rommsync/internal/logger"
	"github.com/rommsync/rommsync/internal/progress"
)

// GameResolver finds the remote game a local file belongs to
type GameResolver interface {
	Resolve(ctx context.Context, item domain.LocalSyncItem) (int, error)
}

// HistoryRecorder persists the outcome of executed runs
type HistoryRecorder interface {
	RecordResult(result domain.SyncResult) error
}

// SyncService plans and executes save synchronization
type SyncService struct {
	dirs     adapter.DirectoryAccess
	api      adapter.RemoteAPI
	scanner  *scanner.Scanner
	fetcher  *remote.Fetcher
	planner  planner.Planner
	resolver GameResolver
	history  HistoryRecorder
	now      func() time.Time
	newRunID func() string
}

// NewSyncService creates a sync service over the given collaborators
func NewSyncService(dirs adapter.DirectoryAccess, api adapter.RemoteAPI) *SyncService {
	return &SyncService{
		dirs:     dirs,
		api:      api,
		scanner:  scanner.New(dirs),
		fetcher:  remote.New(api),
		planner:  planner.NewDefaultPlanner(),
		resolver: matcher.NewResolver(api),
		now:      time.Now,
		newRunID: uuid.NewString,
	}
}

// SetHistory sets where executed runs are recorded
func (s *SyncService) SetHistory(history HistoryRecorder) {
	s.history = history
}

// SetResolver replaces the game resolver used for new uploads
func (s *SyncService) SetResolver(resolver GameResolver) {
	s.resolver = resolver
}

// SetClock replaces the clock used for durations and unparsable timestamps
func (s *SyncService) SetClock(now func() time.Time) {
	s.now = now
	s.fetcher.WithClock(now)
}

// CreatePlan computes what a sync would do without changing anything.
// Failures never propagate: they collapse to an empty plan.
func (s *SyncService) CreatePlan(ctx context.Context, req domain.SyncRequest, settings domain.Settings) (plan *domain.SyncPlan) {
	log := logger.With("direction", string(req.Direction))

	defer func() {
		if r := recover(); r != nil {
			log.Error("planning panicked", "panic", r, "stack", string(debug.Stack()))
			plan = domain.EmptyPlan(req.Direction)
		}
	}()

	plan, err := s.createPlan(ctx, req, settings)
	if err != nil {
		log.Error("planning failed", "error", err)
		return domain.EmptyPlan(req.Direction)
	}

	log.Info("sync plan created",
		"comparisons", len(plan.Comparisons),
		"uploads", plan.UploadCount,
		"downloads", plan.DownloadCount,
		"skipped", plan.SkipCount,
		"upload_bytes", plan.UploadBytes,
		"download_bytes", plan.DownloadBytes,
	)
	return plan
}

func (s *SyncService) createPlan(ctx context.Context, req domain.SyncRequest, settings domain.Settings) (*domain.SyncPlan, error) {
	if !req.Direction.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidDirection, req.Direction)
	}

	var (
		local   []domain.LocalSyncItem
		remotes []domain.RemoteSyncItem
	)

	g, gctx := errgroup.WithContext(ctx)
	goSafe(g, "scan", func() error {
		local = FilterLocal(s.scanner.Scan(gctx, settings), req)
		return nil
	})
	goSafe(g, "fetch", func() error {
		remotes = s.fetcher.Fetch(gctx, req)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Get().Debug("reconciling", "local", len(local), "remote", len(remotes))
	return s.planner.Plan(local, remotes, req.Direction), nil
}

// goSafe runs fn in the group, turning a panic into an error
func goSafe(g *errgroup.Group, name string, fn func() error) {
	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s panicked: %v", name, r)
			}
		}()
		return fn()
	})
}

// FilterLocal keeps the local items the request selects.
// An item without a recognized emulator never matches an emulator filter.
func FilterLocal(items []domain.LocalSyncItem, req domain.SyncRequest) []domain.LocalSyncItem {
	out := make([]domain.LocalSyncItem, 0, len(items))
	for _, item := range items {
		if !req.Enabled(item.Type) {
			continue
		}
		if req.PlatformFilter != "" && !strings.EqualFold(item.Platform, req.PlatformFilter) {
			continue
		}
		if req.EmulatorFilter != "" && (item.Emulator == "" || !strings.EqualFold(item.Emulator, req.EmulatorFilter)) {
			continue
		}
		if req.GameFilter != "" && !strings.EqualFold(item.BaseName(), req.GameFilter) {
			continue
		}
		out = append(out, item)
	}
	return out
}

// ExecuteSync plans and performs a sync, reporting progress through onProgress.
// It always returns exactly one result; per-item failures are collected in
// the result rather than stopping the run.
func (s *SyncService) ExecuteSync(ctx context.Context, req domain.SyncRequest, settings domain.Settings, onProgress progress.Callback) (result domain.SyncResult) {
	start := s.now()
	runID := s.newRunID()
	log := logger.With("run_id", runID, "direction", string(req.Direction))
	tracker := progress.NewTracker(onProgress)

	defer func() {
		if r := recover(); r != nil {
			log.Error("sync execution panicked", "panic", r, "stack", string(debug.Stack()))
			result = domain.SyncResult{
				RunID:     runID,
				Direction: req.Direction,
				Errors:    []string{fmt.Sprintf("Sync failed: %v", r)},
				StartTime: start,
				Duration:  s.now().Sub(start),
			}
		}
		if !req.DryRun {
			s.record(result)
		}
	}()

	tracker.Step("Planning sync...")
	plan := s.CreatePlan(ctx, req, settings)

	result = domain.SyncResult{
		RunID:     runID,
		Direction: req.Direction,
		Skipped:   plan.SkipCount,
		StartTime: start,
	}

	if !plan.HasWork() {
		log.Info("nothing to sync", "skipped", plan.SkipCount)
		tracker.Finish("Nothing to sync")
		result.Success = true
		result.Duration = s.now().Sub(start)
		return result
	}

	if req.DryRun {
		log.Info("dry run, no transfers performed",
			"uploads", plan.UploadCount,
			"downloads", plan.DownloadCount,
		)
		tracker.Finish("Dry run complete")
		result.Success = true
		result.Duration = s.now().Sub(start)
		return result
	}

	tracker.SetTotal(plan.UploadCount+plan.DownloadCount, plan.UploadBytes+plan.DownloadBytes)

	// Files that received an upload, per type, in upload order
	uploaded := make(map[domain.ItemType][]retention.Key)

	for _, cmp := range plan.ByAction(domain.ActionUpload) {
		if ctx.Err() != nil {
			break
		}

		tracker.StartItem(fmt.Sprintf("Uploading %s...", cmp.FileName()))
		romID, err := s.upload(ctx, cmp)
		if err != nil {
			log.Warn("upload failed", "file", cmp.Identifier(), "error", err)
			tracker.ItemFailed(fmt.Sprintf("Upload error: %s - %v", cmp.FileName(), err))
			continue
		}

		log.Debug("uploaded", "file", cmp.Identifier(), "rom_id", romID)
		tracker.ItemDone(cmp.Local.Size)
		result.Uploaded++
		key := retention.Key{RomID: romID, FileName: cmp.Local.FileName}
		uploaded[cmp.Type()] = appendUnique(uploaded[cmp.Type()], key)
	}

	s.applyRetention(ctx, req, settings, uploaded, planned(plan), tracker)

	for _, cmp := range plan.ByAction(domain.ActionDownload) {
		if ctx.Err() != nil {
			break
		}

		tracker.StartItem(fmt.Sprintf("Downloading %s...", cmp.FileName()))
		if err := s.download(ctx, cmp, settings); err != nil {
			log.Warn("download failed", "file", cmp.Identifier(), "error", err)
			tracker.ItemFailed(fmt.Sprintf("Download error: %s - %v", cmp.FileName(), err))
			continue
		}

		log.Debug("downloaded", "file", cmp.Identifier())
		tracker.ItemDone(cmp.Remote.Size)
		result.Downloaded++
	}

	if err := ctx.Err(); err != nil {
		tracker.Error(fmt.Sprintf("Sync cancelled: %v", err))
	}

	result.Errors = tracker.Errors()
	result.Success = len(result.Errors) == 0
	result.Duration = s.now().Sub(start)
	tracker.Finish("Sync complete")

	log.Info("sync execution completed",
		"status", result.Status(),
		"uploaded", result.Uploaded,
		"downloaded", result.Downloaded,
		"skipped", result.Skipped,
		"errors", len(result.Errors),
		"duration", result.Duration,
	)
	return result
}

// upload sends one local item and returns the rom id it was stored under
func (s *SyncService) upload(ctx context.Context, cmp domain.SyncComparison) (int, error) {
	item := cmp.Local
	if item == nil {
		return 0, domain.ErrMissingRecord
	}

	rc, err := s.dirs.Open(ctx, item.Root, item.RelPath)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrNotFile) {
			return 0, fmt.Errorf("%w: %s", domain.ErrFileNotFound, item.RelPath)
		}
		return 0, fmt.Errorf("open %s: %w", item.RelPath, err)
	}
	defer rc.Close()

	up := domain.Upload{
		FileName: item.FileName,
		Size:     item.Size,
		ModTime:  item.ModTime,
		Content:  rc,
	}

	if cmp.Remote != nil {
		if _, err := s.api.UpdateSave(ctx, item.Type, cmp.Remote.ID(), up); err != nil {
			return 0, fmt.Errorf("update record %d: %w", cmp.Remote.ID(), err)
		}
		return cmp.Remote.RomID, nil
	}

	romID, err := s.resolver.Resolve(ctx, *item)
	if err != nil {
		return 0, err
	}

	if _, err := s.api.CreateSave(ctx, item.Type, romID, item.Emulator, up); err != nil {
		return 0, fmt.Errorf("create record for game %d: %w", romID, err)
	}
	return romID, nil
}

// download fetches one remote item into the matching local directory.
// The file keeps the remote timestamp so the next plan sees both sides as identical.
func (s *SyncService) download(ctx context.Context, cmp domain.SyncComparison, settings domain.Settings) error {
	item := cmp.Remote
	if item == nil {
		return domain.ErrMissingRecord
	}

	root := settings.Root(item.Type)
	if cmp.Local != nil && cmp.Local.Root != "" {
		root = cmp.Local.Root
	}
	if root == "" {
		return fmt.Errorf("no local directory configured for %s", item.Type)
	}

	rel := path.Join(item.Platform, path.Base(item.FileName))
	if cmp.Local != nil {
		rel = cmp.Local.RelPath
	}

	rc, err := s.api.DownloadSave(ctx, item.Type, item.Record)
	if err != nil {
		return fmt.Errorf("download record %d: %w", item.ID(), err)
	}
	defer rc.Close()

	if err := s.dirs.Write(ctx, root, rel, rc, item.ModTime); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	return nil
}

// applyRetention trims older server copies of the files uploaded in this run.
// Records referenced by the plan are never deleted.
func (s *SyncService) applyRetention(ctx context.Context, req domain.SyncRequest, settings domain.Settings, uploaded map[domain.ItemType][]retention.Key, keep map[int]bool, tracker *progress.Tracker) {
	for _, itemType := range []domain.ItemType{domain.SaveFile, domain.SaveState} {
		limit := historyLimit(req, settings, itemType)
		if limit <= 0 {
			continue
		}

		for _, key := range uploaded[itemType] {
			if ctx.Err() != nil {
				return
			}

			deleted, err := s.trimHistory(ctx, itemType, key, limit, keep)
			if err != nil {
				logger.Get().Warn("retention failed", "type", string(itemType), "rom_id", key.RomID, "file", key.FileName, "error", err)
				tracker.Error(fmt.Sprintf("Retention error: %s %s for game %d - %v", itemType, key.FileName, key.RomID, err))
				continue
			}
			if deleted > 0 {
				logger.Get().Info("removed old records", "type", string(itemType), "rom_id", key.RomID, "file", key.FileName, "count", deleted, "limit", limit)
			}
		}
	}
}

func (s *SyncService) trimHistory(ctx context.Context, itemType domain.ItemType, key retention.Key, limit int, keep map[int]bool) (int, error) {
	records, err := s.api.ListSaves(ctx, itemType, key.RomID)
	if err != nil {
		return 0, fmt.Errorf("list records: %w", err)
	}

	var versions []domain.SaveRecord
	for _, rec := range records {
		if retention.KeyOf(rec) == key {
			versions = append(versions, rec)
		}
	}

	surplus := retention.Exclude(retention.Select(versions, limit), keep)
	if len(surplus) == 0 {
		return 0, nil
	}

	if err := s.api.DeleteSaves(ctx, itemType, retention.IDs(surplus)); err != nil {
		return 0, fmt.Errorf("delete records: %w", err)
	}
	return len(surplus), nil
}

// planned returns the ids of the server records the plan refers to
func planned(plan *domain.SyncPlan) map[int]bool {
	ids := make(map[int]bool)
	for _, cmp := range plan.Comparisons {
		if cmp.Remote != nil {
			ids[cmp.Remote.ID()] = true
		}
	}
	return ids
}

func historyLimit(req domain.SyncRequest, settings domain.Settings, itemType domain.ItemType) int {
	if limit := req.HistoryLimit(itemType); limit > 0 {
		return limit
	}
	if itemType == domain.SaveState {
		return settings.SaveStateHistoryLimit
	}
	return settings.SaveFileHistoryLimit
}

func (s *SyncService) record(result domain.SyncResult) {
	if s.history == nil {
		return
	}
	if err := s.history.RecordResult(result); err != nil {
		logger.Get().Warn("failed to record sync history", "run_id", result.RunID, "error", err)
	}
}

func appendUnique(keys []retention.Key, key retention.Key) []retention.Key {
	for _, existing := range keys {
		if existing == key {
			return keys
		}
	}
	return append(keys, key)
}
