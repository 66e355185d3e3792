package domain

import (
	"sort"
	"time"
)

// Entry wraps a Record with its provenance. A locally created, not yet
// confirmed entry has no ID; a relay-confirmed entry carries the event id,
// the author key and the relay confirmation time.
type Entry struct {
	ID          string // event id, empty for local optimistic entries
	Author      string // author pubkey, empty for local entries
	Record      Record
	CreatedAt   time.Time // local creation time
	ConfirmedAt time.Time // relay confirmation time, zero for local entries
}

// Confirmed reports whether the entry has been seen on a relay.
func (e Entry) Confirmed() bool { return e.ID != "" }

// EffectiveTime is the time an entry sorts by: confirmation time when
// present, local creation time otherwise.
func (e Entry) EffectiveTime() time.Time {
	if !e.ConfirmedAt.IsZero() {
		return e.ConfirmedAt
	}
	return e.CreatedAt
}

// View is an ordered sequence of entries merged from local and fetched
// state: effective time descending, ties broken by id ascending, no
// duplicate ids.
type View []Entry

// Merge combines locally-optimistic entries with relay-confirmed ones.
// A local entry is dropped once a confirmed entry with the same
// uniqueness key appears. Duplicate confirmed ids keep the entry with the
// later effective time. The result is total and deterministic for the
// same inputs.
func Merge(local, fetched []Entry) View {
	confirmedKeys := make(map[string]struct{})
	byID := make(map[string]Entry)
	for _, e := range fetched {
		if !e.Confirmed() {
			continue
		}
		if key := e.Record.UniquenessKey(); key != "" {
			confirmedKeys[key] = struct{}{}
		}
		if prev, ok := byID[e.ID]; !ok || e.EffectiveTime().After(prev.EffectiveTime()) {
			byID[e.ID] = e
		}
	}

	view := make(View, 0, len(byID)+len(local))
	for _, e := range byID {
		view = append(view, e)
	}
	for _, e := range local {
		if e.Confirmed() {
			// Caller mixed a confirmed entry into the local side; treat
			// it like a fetched one.
			if _, dup := byID[e.ID]; dup {
				continue
			}
			view = append(view, e)
			continue
		}
		if key := e.Record.UniquenessKey(); key != "" {
			if _, superseded := confirmedKeys[key]; superseded {
				continue
			}
		}
		view = append(view, e)
	}

	sort.Slice(view, func(i, j int) bool {
		ti, tj := view[i].EffectiveTime(), view[j].EffectiveTime()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return view[i].ID < view[j].ID
	})
	return view
}
