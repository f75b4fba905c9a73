package scanner

import (
	"context"
	"errors"
	"io"
	"sort"
	"testing"
	"time"

	"github.com/rommsync/rommsync/internal/adapter/local"
	"github.com/rommsync/rommsync/internal/domain"
	"github.com/rommsync/rommsync/internal/testutil"
)

func TestIsSyncable(t *testing.T) {
	tests := []struct {
		name     string
		itemType domain.ItemType
		want     bool
	}{
		{"mario.srm", domain.SaveFile, true},
		{"Zelda.SAV", domain.SaveFile, true},
		{"card.mcr", domain.SaveFile, true},
		{"game.eep", domain.SaveFile, true},
		{"Super Mario World.sfc.srm", domain.SaveFile, true},
		{"rom.smc", domain.SaveFile, true},
		{"mario.state", domain.SaveFile, false},
		{"mario.st", domain.SaveFile, false},
		{"mario.png", domain.SaveFile, false},
		{"README", domain.SaveFile, false},
		{"mario.state", domain.SaveState, true},
		{"mario.state1", domain.SaveState, true},
		{"mario.st0", domain.SaveState, true},
		{"game.ss1", domain.SaveState, true},
		{"mario.savestate", domain.SaveState, true},
		{"quick_slot_2.bin", domain.SaveState, true},
		{"mario.state.png", domain.SaveState, false},
		{"mario.srm", domain.SaveState, false},
	}

	for _, tt := range tests {
		if got := IsSyncable(tt.name, tt.itemType); got != tt.want {
			t.Errorf("IsSyncable(%q, %s) = %v, want %v", tt.name, tt.itemType, got, tt.want)
		}
	}
}

func TestDerivePlatform(t *testing.T) {
	tests := []struct {
		segments []string
		want     string
	}{
		{nil, "unknown"},
		{[]string{"SNES"}, "snes"},
		{[]string{"Super Nintendo"}, "snes"},
		{[]string{"nes"}, "nes"},
		{[]string{"Genesis"}, "genesis"},
		{[]string{"gba"}, "gba"},
		{[]string{"gbc"}, "gbc"},
		{[]string{"gb"}, "gb"},
		{[]string{"PS2"}, "ps2"},
		{[]string{"psx", "epsxe"}, "psx"},
		{[]string{"wiiu"}, "wiiu"},
		{[]string{"Wii"}, "wii"},
		{[]string{"MyConsole"}, "myconsole"},
	}

	for _, tt := range tests {
		if got := DerivePlatform(tt.segments); got != tt.want {
			t.Errorf("DerivePlatform(%v) = %q, want %q", tt.segments, got, tt.want)
		}
	}
}

func TestDerivePlatform_SlugRoundTrip(t *testing.T) {
	var slugs []string
	for slug := range serverSlugs {
		slugs = append(slugs, slug)
	}
	for _, m := range platformTable {
		slugs = append(slugs, m.value)
	}

	for _, slug := range slugs {
		if got := DerivePlatform([]string{slug}); got != slug {
			t.Errorf("directory %q scans back as %q", slug, got)
		}
	}

	// Descriptive names still go through the table
	if got := DerivePlatform([]string{"Super Famicom"}); got != "snes" {
		t.Errorf("DerivePlatform(Super Famicom) = %q, want snes", got)
	}
	if got := DerivePlatform([]string{"Nintendo 3DS"}); got != "3ds" {
		t.Errorf("DerivePlatform(Nintendo 3DS) = %q, want 3ds", got)
	}
}

func TestDeriveEmulator(t *testing.T) {
	tests := []struct {
		segments []string
		want     string
	}{
		{nil, ""},
		{[]string{"RetroArch"}, "RetroArch"},
		{[]string{"snes", "snes9x"}, "Snes9x"},
		{[]string{"gba", "mGBA-0.10"}, "mGBA"},
		{[]string{"arcade", "fbneo"}, "FinalBurn Neo"},
		{[]string{"snes", "Super Mario World"}, ""},
		{[]string{"snes"}, ""},
	}

	for _, tt := range tests {
		if got := DeriveEmulator(tt.segments); got != tt.want {
			t.Errorf("DeriveEmulator(%v) = %q, want %q", tt.segments, got, tt.want)
		}
	}
}

func TestDeriveGameName(t *testing.T) {
	if got := DeriveGameName([]string{"snes", "Chrono Trigger"}, "ct.srm"); got != "Chrono Trigger" {
		t.Errorf("Expected directory name, got %q", got)
	}
	if got := DeriveGameName([]string{"snes"}, "Chrono Trigger.srm"); got != "Chrono Trigger" {
		t.Errorf("Expected file base name, got %q", got)
	}
	if got := DeriveGameName(nil, "noext"); got != "noext" {
		t.Errorf("Expected name unchanged, got %q", got)
	}
}

func TestScan_DepthAndTypes(t *testing.T) {
	saves, cleanup := testutil.TempDir(t)
	defer cleanup()
	states, cleanup2 := testutil.TempDir(t)
	defer cleanup2()

	mod := time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)
	testutil.CreateSaveFile(t, saves, "root.srm", 8, mod)
	testutil.CreateSaveFile(t, saves, "snes/mario.srm", 100, mod)
	testutil.CreateSaveFile(t, saves, "snes/snes9x/zelda.srm", 32, mod)
	testutil.CreateSaveFile(t, saves, "snes/snes9x/deep/hidden.srm", 1, mod)
	testutil.CreateSaveFile(t, saves, "snes/shot.png", 1, mod)
	testutil.CreateSaveFile(t, states, "gba/mgba/pokemon.ss1", 64, mod)

	s := New(local.New())
	items := s.Scan(context.Background(), domain.Settings{SaveFilesDir: saves, SaveStatesDir: states})

	byRel := map[string]domain.LocalSyncItem{}
	for _, item := range items {
		byRel[item.RelPath] = item
	}

	var rels []string
	for rel := range byRel {
		rels = append(rels, rel)
	}
	sort.Strings(rels)
	want := []string{"gba/mgba/pokemon.ss1", "root.srm", "snes/mario.srm", "snes/snes9x/zelda.srm"}
	if len(rels) != len(want) {
		t.Fatalf("Expected %v, got %v", want, rels)
	}
	for i := range want {
		if rels[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, rels)
		}
	}

	root := byRel["root.srm"]
	if root.Platform != "unknown" || root.GameName != "root" {
		t.Errorf("Unexpected root item: %+v", root)
	}

	mario := byRel["snes/mario.srm"]
	if mario.Platform != "snes" || mario.Emulator != "" || mario.GameName != "mario" {
		t.Errorf("Unexpected mario item: %+v", mario)
	}
	if mario.Size != 100 || !mario.ModTime.Equal(mod) {
		t.Errorf("Unexpected size/mtime: %d %v", mario.Size, mario.ModTime)
	}
	if mario.Identifier() != "snes/mario.srm" {
		t.Errorf("Unexpected identifier %q", mario.Identifier())
	}

	zelda := byRel["snes/snes9x/zelda.srm"]
	if zelda.Emulator != "Snes9x" || zelda.GameName != "snes9x" || zelda.Type != domain.SaveFile {
		t.Errorf("Unexpected zelda item: %+v", zelda)
	}

	poke := byRel["gba/mgba/pokemon.ss1"]
	if poke.Type != domain.SaveState || poke.Root != states || poke.Emulator != "mGBA" {
		t.Errorf("Unexpected state item: %+v", poke)
	}
}

func TestScan_SaveFilesBeforeStates(t *testing.T) {
	saves, cleanup := testutil.TempDir(t)
	defer cleanup()
	states, cleanup2 := testutil.TempDir(t)
	defer cleanup2()

	testutil.CreateTestFile(t, saves, "a.srm", "x")
	testutil.CreateTestFile(t, states, "a.state", "x")

	items := New(local.New()).Scan(context.Background(), domain.Settings{SaveFilesDir: saves, SaveStatesDir: states})

	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(items))
	}
	if items[0].Type != domain.SaveFile || items[1].Type != domain.SaveState {
		t.Errorf("Unexpected order: %s, %s", items[0].Type, items[1].Type)
	}
}

func TestScan_MissingRootYieldsNothing(t *testing.T) {
	states, cleanup := testutil.TempDir(t)
	defer cleanup()
	testutil.CreateTestFile(t, states, "psx/slot1.sts", "x")

	items := New(local.New()).Scan(context.Background(), domain.Settings{
		SaveFilesDir:  "/nonexistent/rommsync/saves",
		SaveStatesDir: states,
	})

	if len(items) != 1 || items[0].Type != domain.SaveState {
		t.Errorf("Expected only the state item, got %+v", items)
	}
}

type failingDirs struct {
	failRel string
}

func (f *failingDirs) List(ctx context.Context, root, rel string) ([]domain.Entry, error) {
	if rel == f.failRel {
		return nil, domain.ErrPermissionDenied
	}
	if rel == "" {
		return []domain.Entry{
			{Name: "broken", IsDir: true},
			{Name: "ok.sav", Size: 3},
		}, nil
	}
	return nil, nil
}

func (f *failingDirs) Open(ctx context.Context, root, rel string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func (f *failingDirs) Write(ctx context.Context, root, rel string, r io.Reader, modTime time.Time) error {
	return errors.New("not implemented")
}

func TestScan_SubdirectoryErrorIsSkipped(t *testing.T) {
	items := New(&failingDirs{failRel: "broken"}).ScanRoot(context.Background(), "/virtual", domain.SaveFile)

	if len(items) != 1 || items[0].FileName != "ok.sav" {
		t.Errorf("Expected the readable file only, got %+v", items)
	}
}

func TestScan_RootErrorYieldsNothing(t *testing.T) {
	items := New(&failingDirs{failRel: ""}).ScanRoot(context.Background(), "/virtual", domain.SaveFile)

	if len(items) != 0 {
		t.Errorf("Expected no items, got %+v", items)
	}
}
