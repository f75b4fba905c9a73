package domain

import (
	"io"
	"path"
	"strings"
	"time"
)

// ItemType distinguishes battery saves from emulator save states
type ItemType string

const (
	SaveFile  ItemType = "save_file"
	SaveState ItemType = "save_state"
)

// String returns a human-readable label
func (t ItemType) String() string {
	if t == SaveState {
		return "save state"
	}
	return "save file"
}

// MakeIdentifier builds the reconciliation key "<platform>/<fileName>"
func MakeIdentifier(platform, fileName string) string {
	return platform + "/" + fileName
}

// LocalSyncItem is a save file or state found on the device
type LocalSyncItem struct {
	// Root is the scan root the item was found under
	Root string

	Type     ItemType
	Platform string

	// Emulator is empty when the directory name is not a known emulator
	Emulator string

	// GameName is empty when it cannot be inferred
	GameName string

	FileName string
	ModTime  time.Time
	Size     int64

	// RelPath is slash-separated and relative to Root
	RelPath string
}

// Identifier returns the reconciliation key
func (i LocalSyncItem) Identifier() string {
	return MakeIdentifier(i.Platform, i.FileName)
}

// BaseName returns the file name without its last extension
func (i LocalSyncItem) BaseName() string {
	return TrimExt(i.FileName)
}

// RemoteSyncItem is a server save or state enriched with its game context
type RemoteSyncItem struct {
	Record SaveRecord

	Type     ItemType
	Platform string
	Emulator string
	GameName string
	FileName string
	ModTime  time.Time
	Size     int64
	RomID    int
}

// ID returns the server id of the underlying record
func (i RemoteSyncItem) ID() int {
	return i.Record.ID
}

// Identifier returns the reconciliation key
func (i RemoteSyncItem) Identifier() string {
	return MakeIdentifier(i.Platform, i.FileName)
}

// Upload carries the content of a local file to a create or update call
type Upload struct {
	FileName string
	Size     int64
	ModTime  time.Time
	Content  io.Reader
}

// TrimExt removes the last extension from a file name.
// A name without a dot is returned unchanged.
func TrimExt(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[:i]
	}
	return name
}

// SplitRelPath splits a slash-separated relative path into its directory
// segments and file name
func SplitRelPath(rel string) ([]string, string) {
	dir, file := path.Split(rel)
	var segments []string
	for _, s := range strings.Split(dir, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments, file
}

// Entry is one child of a local directory
type Entry struct {
	Name    string
	IsDir   bool
	ModTime time.Time
	Size    int64
}
