package adapter

import (
	"context"
	"io"
	"time"

	"github.com/rommsync/rommsync/internal/domain"
)

// DirectoryAccess is the device-side file collaborator.
// Paths are slash-separated and relative to root; implementations
// must refuse paths that escape root and return domain-level errors.
type DirectoryAccess interface {
	// List returns the direct children of rel
	// Returns domain.ErrNotFound if rel doesn't exist
	// Returns domain.ErrNotDirectory if rel is a file
	List(ctx context.Context, root, rel string) ([]domain.Entry, error)

	// Open opens a file for reading
	// Caller is responsible for closing the reader
	// Returns domain.ErrNotFound if the file doesn't exist
	Open(ctx context.Context, root, rel string) (io.ReadCloser, error)

	// Write creates or replaces a file and sets its modification time.
	// Parent directories are created automatically.
	Write(ctx context.Context, root, rel string, r io.Reader, modTime time.Time) error
}

// RemoteAPI is the server-side collaborator.
// Save files and save states share one record shape and are selected by item type.
type RemoteAPI interface {
	// ListSaves returns all records of the given type; romID 0 lists every game
	ListSaves(ctx context.Context, itemType domain.ItemType, romID int) ([]domain.SaveRecord, error)

	// GetGame returns a single game
	// Returns domain.ErrNotFound if the id is unknown
	GetGame(ctx context.Context, id int) (domain.Game, error)

	// ListPlatforms returns all platforms known to the server
	ListPlatforms(ctx context.Context) ([]domain.Platform, error)

	// SearchGames returns games of a platform matching a search term
	SearchGames(ctx context.Context, platformID int, term string) ([]domain.Game, error)

	// CreateSave uploads a new record for a game
	CreateSave(ctx context.Context, itemType domain.ItemType, gameID int, emulator string, upload domain.Upload) (domain.SaveRecord, error)

	// UpdateSave replaces the content of an existing record
	UpdateSave(ctx context.Context, itemType domain.ItemType, id int, upload domain.Upload) (domain.SaveRecord, error)

	// DownloadSave streams the content of a record
	// Caller is responsible for closing the reader
	DownloadSave(ctx context.Context, itemType domain.ItemType, record domain.SaveRecord) (io.ReadCloser, error)

	// DeleteSaves removes records by id
	DeleteSaves(ctx context.Context, itemType domain.ItemType, ids []int) error
}
