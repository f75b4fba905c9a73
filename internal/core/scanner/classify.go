package scanner

import (
	"strings"

	"github.com/rommsync/rommsync/internal/domain"
)

var saveFileExtensions = []string{
	".sav", ".srm", ".save", ".mcr", ".mc", ".gme", ".fla", ".dat", ".eep", ".bkp",
}

var saveStateExtensions = []string{
	".state", ".st", ".st0", ".st1", ".st2", ".st3", ".st4", ".st5", ".st6", ".st7", ".st8", ".st9",
	".ss0", ".ss1", ".sts", ".savestate",
}

// IsSyncable reports whether a file name looks like an item of the given type.
// Screenshots are never syncable.
func IsSyncable(name string, itemType domain.ItemType) bool {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".png") {
		return false
	}

	if itemType == domain.SaveState {
		return isSaveState(lower)
	}
	return isSaveFile(lower)
}

func isSaveFile(lower string) bool {
	if hasAnySuffix(lower, saveFileExtensions) {
		return true
	}
	// RetroArch names saves after the full ROM file name, so any dotted name
	// that is not a state counts
	return strings.Contains(lower, ".") &&
		!strings.HasSuffix(lower, ".state") &&
		!strings.HasSuffix(lower, ".st")
}

func isSaveState(lower string) bool {
	if hasAnySuffix(lower, saveStateExtensions) {
		return true
	}
	return strings.Contains(lower, "state") || strings.Contains(lower, "slot")
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}

type mapping struct {
	match string
	value string
}

// platformTable is checked in order; longer names come before their prefixes
var platformTable = []mapping{
	{"genesis", "genesis"},
	{"megadrive", "genesis"},
	{"mega drive", "genesis"},
	{"snes", "snes"},
	{"super nintendo", "snes"},
	{"super famicom", "snes"},
	{"sfc", "snes"},
	{"famicom", "nes"},
	{"nes", "nes"},
	{"n64", "n64"},
	{"nintendo 64", "n64"},
	{"gbc", "gbc"},
	{"game boy color", "gbc"},
	{"gba", "gba"},
	{"game boy advance", "gba"},
	{"gb", "gb"},
	{"game boy", "gb"},
	{"nds", "nds"},
	{"3ds", "3ds"},
	{"wiiu", "wiiu"},
	{"wii u", "wiiu"},
	{"wii", "wii"},
	{"gamecube", "ngc"},
	{"gc", "ngc"},
	{"ngc", "ngc"},
	{"switch", "switch"},
	{"ps2", "ps2"},
	{"playstation 2", "ps2"},
	{"psp", "psp"},
	{"psx", "psx"},
	{"ps1", "psx"},
	{"playstation", "psx"},
	{"saturn", "saturn"},
	{"dreamcast", "dreamcast"},
	{"mastersystem", "sms"},
	{"master system", "sms"},
	{"sms", "sms"},
	{"gamegear", "gamegear"},
	{"game gear", "gamegear"},
	{"segacd", "segacd"},
	{"sega cd", "segacd"},
	{"32x", "sega32x"},
	{"arcade", "arcade"},
	{"mame", "arcade"},
	{"fbneo", "arcade"},
	{"neogeo", "neogeo"},
	{"atari2600", "atari2600"},
	{"2600", "atari2600"},
	{"lynx", "lynx"},
	{"pce", "pce"},
	{"pcengine", "pce"},
	{"turbografx", "pce"},
}

// emulatorTable is checked in order against the lowercased directory name
var emulatorTable = []mapping{
	{"retroarch", "RetroArch"},
	{"snes9x", "Snes9x"},
	{"zsnes", "ZSNES"},
	{"bsnes", "bsnes"},
	{"nestopia", "Nestopia"},
	{"fceux", "FCEUX"},
	{"mupen64", "Mupen64Plus"},
	{"project64", "Project64"},
	{"dolphin", "Dolphin"},
	{"visualboy", "VisualBoy Advance"},
	{"mgba", "mGBA"},
	{"desmume", "DeSmuME"},
	{"pcsx2", "PCSX2"},
	{"ppsspp", "PPSSPP"},
	{"epsxe", "ePSXe"},
	{"mednafen", "Mednafen"},
	{"mame", "MAME"},
	{"finalburn", "FinalBurn Neo"},
	{"fbneo", "FinalBurn Neo"},
	{"gens", "Gens"},
	{"fusion", "Fusion"},
	{"opera", "Opera"},
}

// serverSlugs are RomM platform slugs that the substring table would
// otherwise rewrite. Downloads land in a directory named after the slug,
// so the name has to scan back unchanged.
var serverSlugs = map[string]bool{
	"famicom":          true,
	"sfc":              true,
	"sgb":              true,
	"n3ds":             true,
	"new-nintendo-3ds": true,
	"neogeoaes":        true,
	"neogeomvs":        true,
	"segacd32":         true,
	"turbografx16--1":  true,
}

// isPlatformSlug reports whether name is already a slug the scanner emits
// or a server slug that must not be remapped
func isPlatformSlug(name string) bool {
	if serverSlugs[name] {
		return true
	}
	for _, m := range platformTable {
		if m.value == name {
			return true
		}
	}
	return false
}

func lookup(table []mapping, name string) (string, bool) {
	lower := strings.ToLower(name)
	for _, m := range table {
		if strings.Contains(lower, m.match) {
			return m.value, true
		}
	}
	return lower, false
}

// DerivePlatform maps the first directory segment to a platform slug.
// A segment that already is a slug is kept as is. Unknown directories keep
// their lowercased name; no directory means "unknown".
func DerivePlatform(segments []string) string {
	if len(segments) == 0 {
		return "unknown"
	}
	lower := strings.ToLower(segments[0])
	if isPlatformSlug(lower) {
		return lower
	}
	platform, _ := lookup(platformTable, lower)
	return platform
}

// DeriveEmulator maps the emulator directory to a known emulator name.
// The second segment is used when present, else the first.
// Unrecognized names give an empty string.
func DeriveEmulator(segments []string) string {
	var dir string
	switch {
	case len(segments) >= 2:
		dir = segments[1]
	case len(segments) == 1:
		dir = segments[0]
	default:
		return ""
	}

	if emulator, ok := lookup(emulatorTable, dir); ok {
		return emulator
	}
	return ""
}

// DeriveGameName returns the innermost directory when two levels exist,
// else the file name without extension
func DeriveGameName(segments []string, fileName string) string {
	if len(segments) >= 2 {
		return segments[len(segments)-1]
	}
	return domain.TrimExt(fileName)
}
