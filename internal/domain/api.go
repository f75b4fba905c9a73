package domain

// SaveRecord is a save file or save state as the server describes it.
// Saves and states share one shape on the wire.
type SaveRecord struct {
	ID            int    `json:"id"`
	Name          string `json:"name,omitempty"`
	FileName      string `json:"file_name"`
	FilePath      string `json:"file_path"`
	FullPath      string `json:"full_path,omitempty"`
	DownloadPath  string `json:"download_path,omitempty"`
	FileSizeBytes int64  `json:"file_size_bytes"`
	FileExtension string `json:"file_extension"`
	Emulator      string `json:"emulator,omitempty"`
	RomID         int    `json:"rom_id"`
	UserID        int    `json:"user_id"`
	MissingFromFS bool   `json:"missing_from_fs,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// Game is a ROM entry of the library
type Game struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	FsName         string `json:"fs_name"`
	FsNameNoTags   string `json:"fs_name_no_tags"`
	FsNameNoExt    string `json:"fs_name_no_ext"`
	PlatformID     int    `json:"platform_id"`
	PlatformSlug   string `json:"platform_slug"`
	PlatformFsSlug string `json:"platform_fs_slug"`
}

// DisplayName returns the game name, falling back to the file name without extension
func (g Game) DisplayName() string {
	if g.Name != "" {
		return g.Name
	}
	return g.FsNameNoExt
}

// Platform is a platform known to the server
type Platform struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	FsSlug      string `json:"fs_slug"`
	RomCount    int    `json:"rom_count"`
	CustomName  string `json:"custom_name,omitempty"`
	DisplayName string `json:"display_name"`
}
