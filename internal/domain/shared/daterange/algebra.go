package daterange

import (
	"sort"
	"time"
)

// MergeAll normalizes every range to day granularity, sorts by start and
// folds overlapping or touching neighbours into a minimal sorted,
// non-overlapping cover. Idempotent: merging a merged set is a no-op.
func MergeAll(ranges []DateRange) []DateRange {
	if len(ranges) == 0 {
		return nil
	}
	normalized := make([]DateRange, 0, len(ranges))
	for _, r := range ranges {
		normalized = append(normalized, r.Normalize())
	}
	sort.Slice(normalized, func(i, j int) bool {
		return normalized[i].Start.Before(normalized[j].Start)
	})
	merged := []DateRange{normalized[0]}
	for _, next := range normalized[1:] {
		last := &merged[len(merged)-1]
		if union, ok := last.Merge(next); ok {
			*last = union
			continue
		}
		merged = append(merged, next)
	}
	return merged
}

// IsBlocked reports whether the candidate interval intersects any blocked
// range. Boundaries are closed on both sides: a candidate that touches a
// blocked range on a shared day is blocked.
func IsBlocked(candidateStart, candidateEnd time.Time, blocked []DateRange) bool {
	candidate := DateRange{Start: candidateStart, End: candidateEnd}.Normalize()
	for _, b := range blocked {
		if candidate.Overlaps(b.Normalize()) {
			return true
		}
	}
	return false
}

// EarliestAvailableStart scans forward from `from` for the first day whose
// window of durationDays is fully unblocked. The second return value is
// false when the answer is undecidable (no blocked ranges to scan against);
// callers should then treat the reference date itself as available.
func EarliestAvailableStart(blocked []DateRange, from time.Time, durationDays int) (time.Time, bool) {
	if len(blocked) == 0 {
		return time.Time{}, false
	}
	if durationDays < 1 {
		durationDays = 1
	}
	cursor := Day(from)
	window := time.Duration(durationDays) * 24 * time.Hour
	for _, b := range MergeAll(blocked) {
		candidate := DateRange{Start: cursor, End: cursor.Add(window)}
		if candidate.Overlaps(b) {
			cursor = b.End.Add(24 * time.Hour)
		}
	}
	return cursor, true
}
