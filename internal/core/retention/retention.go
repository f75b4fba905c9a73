package retention

import (
	"sort"
	"time"

	"github.com/rommsync/rommsync/internal/core/remote"
	"github.com/rommsync/rommsync/internal/domain"
)

// Select returns the records to delete so that each saved file keeps at most
// limit records. Records are versions of the same file when they share the
// game and the file name; different names are different saves and are never
// weighed against each other. Newer records are kept; equal timestamps keep
// the higher id. A limit of zero or less keeps everything.
func Select(records []domain.SaveRecord, limit int) []domain.SaveRecord {
	if limit <= 0 || len(records) <= limit {
		return nil
	}

	// Timestamps that cannot be parsed sort as oldest
	zero := func() time.Time { return time.Time{} }

	type entry struct {
		rec domain.SaveRecord
		at  time.Time
	}

	groups := make(map[Key][]entry)
	var order []Key
	for _, rec := range records {
		key := KeyOf(rec)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], entry{
			rec: rec,
			at:  remote.ParseTimestamp(rec.UpdatedAt, rec.CreatedAt, zero),
		})
	}

	var surplus []domain.SaveRecord
	for _, key := range order {
		group := groups[key]
		if len(group) <= limit {
			continue
		}

		sort.SliceStable(group, func(i, j int) bool {
			if !group[i].at.Equal(group[j].at) {
				return group[i].at.After(group[j].at)
			}
			return group[i].rec.ID > group[j].rec.ID
		})

		for _, e := range group[limit:] {
			surplus = append(surplus, e.rec)
		}
	}

	return surplus
}

// Key identifies one saved file of one game
type Key struct {
	RomID    int
	FileName string
}

// KeyOf returns the key of a server record
func KeyOf(rec domain.SaveRecord) Key {
	return Key{RomID: rec.RomID, FileName: rec.FileName}
}

// Exclude drops the records whose id is in keep
func Exclude(records []domain.SaveRecord, keep map[int]bool) []domain.SaveRecord {
	var out []domain.SaveRecord
	for _, rec := range records {
		if !keep[rec.ID] {
			out = append(out, rec)
		}
	}
	return out
}

// IDs returns the ids of the given records
func IDs(records []domain.SaveRecord) []int {
	ids := make([]int, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.ID)
	}
	return ids
}
