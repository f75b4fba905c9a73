package scanner

import (
	"context"
	"path"

	"github.com/rommsync/rommsync/internal/adapter"
	"github.com/rommsync/rommsync/internal/domain"
	"github.com/rommsync/rommsync/internal/logger"
)

// MaxDepth is how many directory levels below a root are visited
const MaxDepth = 2

// Scanner enumerates local save files and save states
type Scanner struct {
	dirs adapter.DirectoryAccess
}

// New creates a scanner reading through the given directory collaborator
func New(dirs adapter.DirectoryAccess) *Scanner {
	return &Scanner{dirs: dirs}
}

// Scan returns the save files found under the save-file root followed by
// the save states found under the save-state root.
// Unreadable roots contribute zero items.
func (s *Scanner) Scan(ctx context.Context, settings domain.Settings) []domain.LocalSyncItem {
	items := s.ScanRoot(ctx, settings.SaveFilesDir, domain.SaveFile)
	return append(items, s.ScanRoot(ctx, settings.SaveStatesDir, domain.SaveState)...)
}

// ScanRoot returns the items of one type found under root
func (s *Scanner) ScanRoot(ctx context.Context, root string, itemType domain.ItemType) []domain.LocalSyncItem {
	log := logger.With("component", "scanner", "type", string(itemType))

	if root == "" {
		log.Warn("No directory configured, skipping")
		return nil
	}

	items := make([]domain.LocalSyncItem, 0)
	if err := s.walk(ctx, root, "", itemType, &items); err != nil {
		log.Warn("Failed to scan directory", "root", root, "error", err)
		return nil
	}

	log.Debug("Scan complete", "root", root, "items", len(items))
	return items
}

func (s *Scanner) walk(ctx context.Context, root, rel string, itemType domain.ItemType, items *[]domain.LocalSyncItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := s.dirs.List(ctx, root, rel)
	if err != nil {
		return err
	}

	depth := 0
	if rel != "" {
		depth = len(splitSegments(rel))
	}

	for _, entry := range entries {
		child := entry.Name
		if rel != "" {
			child = path.Join(rel, entry.Name)
		}

		if entry.IsDir {
			if depth >= MaxDepth {
				continue
			}
			if err := s.walk(ctx, root, child, itemType, items); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Get().Warn("Failed to scan subdirectory", "root", root, "path", child, "error", err)
			}
			continue
		}

		if !IsSyncable(entry.Name, itemType) {
			continue
		}

		*items = append(*items, newItem(root, child, itemType, entry))
	}

	return nil
}

func newItem(root, rel string, itemType domain.ItemType, entry domain.Entry) domain.LocalSyncItem {
	segments, fileName := domain.SplitRelPath(rel)
	return domain.LocalSyncItem{
		Root:     root,
		Type:     itemType,
		Platform: DerivePlatform(segments),
		Emulator: DeriveEmulator(segments),
		GameName: DeriveGameName(segments, fileName),
		FileName: fileName,
		ModTime:  entry.ModTime,
		Size:     entry.Size,
		RelPath:  rel,
	}
}

func splitSegments(rel string) []string {
	segments, last := domain.SplitRelPath(rel)
	if last != "" {
		segments = append(segments, last)
	}
	return segments
}
