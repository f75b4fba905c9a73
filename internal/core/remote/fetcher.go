package remote

import (
	"context"
	"strings"
	"time"

	"github.com/rommsync/rommsync/internal/adapter"
	"github.com/rommsync/rommsync/internal/domain"
	"github.com/rommsync/rommsync/internal/logger"
)

// localLayout is the server timestamp format once fractional seconds are cut
const localLayout = "2006-01-02T15:04:05"

// Fetcher lists remote saves and states and enriches them with game data
type Fetcher struct {
	api adapter.RemoteAPI
	now func() time.Time
}

// New creates a fetcher using the wall clock
func New(api adapter.RemoteAPI) *Fetcher {
	return &Fetcher{api: api, now: time.Now}
}

// WithClock replaces the clock used when a timestamp cannot be parsed
func (f *Fetcher) WithClock(now func() time.Time) *Fetcher {
	f.now = now
	return f
}

// Fetch returns the remote items enabled by the request, save files first.
// Items keep the order the server returned them in.
func (f *Fetcher) Fetch(ctx context.Context, req domain.SyncRequest) []domain.RemoteSyncItem {
	items := make([]domain.RemoteSyncItem, 0)
	if req.SaveFiles {
		items = append(items, f.FetchType(ctx, req, domain.SaveFile)...)
	}
	if req.SaveStates {
		items = append(items, f.FetchType(ctx, req, domain.SaveState)...)
	}
	return items
}

// FetchType returns the remote items of one type.
// A failed list call gives no items; a failed game lookup drops only that record.
func (f *Fetcher) FetchType(ctx context.Context, req domain.SyncRequest, itemType domain.ItemType) []domain.RemoteSyncItem {
	log := logger.With("component", "fetcher", "type", string(itemType))

	records, err := f.api.ListSaves(ctx, itemType, 0)
	if err != nil {
		log.Warn("Failed to list remote records", "error", err)
		return nil
	}

	items := make([]domain.RemoteSyncItem, 0, len(records))
	for _, rec := range records {
		if ctx.Err() != nil {
			log.Warn("Fetch cancelled", "error", ctx.Err())
			return items
		}

		if req.EmulatorFilter != "" && !strings.EqualFold(rec.Emulator, req.EmulatorFilter) {
			continue
		}

		game, err := f.api.GetGame(ctx, rec.RomID)
		if err != nil {
			log.Warn("Failed to look up game, dropping record", "id", rec.ID, "rom_id", rec.RomID, "error", err)
			continue
		}

		if req.PlatformFilter != "" && !strings.EqualFold(game.PlatformSlug, req.PlatformFilter) {
			continue
		}
		if req.GameFilter != "" && !strings.EqualFold(game.FsNameNoExt, req.GameFilter) {
			continue
		}

		items = append(items, domain.RemoteSyncItem{
			Record:   rec,
			Type:     itemType,
			Platform: game.PlatformSlug,
			Emulator: rec.Emulator,
			GameName: game.DisplayName(),
			FileName: rec.FileName,
			ModTime:  ParseTimestamp(rec.UpdatedAt, rec.CreatedAt, f.now),
			Size:     rec.FileSizeBytes,
			RomID:    rec.RomID,
		})
	}

	log.Debug("Fetch complete", "records", len(records), "items", len(items))
	return items
}

// ParseTimestamp reads a server timestamp, preferring updatedAt over createdAt.
// ISO-8601 values are read as local time with fractional seconds dropped.
// Anything unparsable resolves to now().
func ParseTimestamp(updatedAt, createdAt string, now func() time.Time) time.Time {
	raw := strings.TrimSpace(updatedAt)
	if raw == "" {
		raw = strings.TrimSpace(createdAt)
	}
	if raw == "" || !strings.Contains(raw, "T") {
		return now()
	}

	trimmed := raw
	if i := strings.Index(trimmed, "."); i >= 0 {
		trimmed = trimmed[:i]
	}
	if t, err := time.ParseInLocation(localLayout, trimmed, time.Local); err == nil {
		return t
	}

	// Zone-qualified values without fractional seconds, e.g. "...Z" or "...+00:00"
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t
	}

	logger.Get().Debug("Unparsable timestamp, using current time", "value", raw)
	return now()
}
