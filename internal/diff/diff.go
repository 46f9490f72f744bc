// Package diff classifies the differences between two observations of the
// same calendar feed. It is pure: no I/O, no clock access beyond the
// caller-supplied reference time.
package diff

import (
	"strings"
	"time"

	"planningwatch/internal/domain"
)

// EventKey derives the diffing identity of an event: the source UID when
// the feed provides one, otherwise a normalized content fingerprint of
// summary and raw timestamps.
func EventKey(e domain.Event) string {
	if uid := strings.TrimSpace(e.UID); uid != "" {
		return uid
	}

	return norm(e.Summary) + ":" + norm(e.Start) + ":" + norm(e.End)
}

func norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// eventIndex is a key→event map that remembers source insertion order.
// Duplicate keys are last-write-wins, keeping the first occurrence's
// position.
type eventIndex struct {
	byKey map[string]domain.Event
	order []string
}

func indexEvents(events []domain.Event) eventIndex {
	idx := eventIndex{byKey: make(map[string]domain.Event, len(events))}

	for _, e := range events {
		key := EventKey(e)
		if _, ok := idx.byKey[key]; !ok {
			idx.order = append(idx.order, key)
		}
		idx.byKey[key] = e
	}

	return idx
}

// Compare diffs previous against current and returns the four disjoint
// change sets. now anchors the "past events are not removals" cutoff.
//
// Classification rules:
//   - key only in current: Added
//   - key in both, start or end raw string differs: Modified (time change
//     takes precedence over a simultaneous room change)
//   - key in both, same times, location differs: LocationChanged
//   - key only in previous: Removed, but only when the old event ends
//     today or later at UTC date granularity; feeds trimming their own
//     history must not read as cancellations
func Compare(previous, current []domain.Event, now time.Time) domain.ChangeSet {
	prev := indexEvents(previous)
	curr := indexEvents(current)

	var cs domain.ChangeSet

	for _, key := range curr.order {
		ne := curr.byKey[key]

		oe, ok := prev.byKey[key]
		if !ok {
			cs.Added = append(cs.Added, ne)
			continue
		}

		switch {
		case oe.Start != ne.Start || oe.End != ne.End:
			cs.Modified = append(cs.Modified, domain.ChangePair{Old: oe, New: ne})
		case oe.Location != ne.Location:
			cs.LocationChanged = append(cs.LocationChanged, domain.ChangePair{Old: oe, New: ne})
		}
	}

	todayUTC := midnightUTC(now)

	for _, key := range prev.order {
		if _, ok := curr.byKey[key]; ok {
			continue
		}

		oe := prev.byKey[key]
		if oe.EndEpoch >= todayUTC {
			cs.Removed = append(cs.Removed, oe)
		}
	}

	return cs
}

func midnightUTC(now time.Time) int64 {
	utc := now.UTC()

	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC).Unix()
}
