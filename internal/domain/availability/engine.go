package availability

import (
	"context"
	"sort"
	"time"

	"boxstand/internal/domain/booking"
	"boxstand/internal/domain/boxes"
	"boxstand/internal/domain/shared/daterange"
)

// BookingSource yields the bookings that currently reserve a box.
type BookingSource interface {
	BlockingByBox(ctx context.Context, boxID boxes.BoxID) ([]*booking.Booking, error)
}

// Engine answers availability questions for boxes. It holds no state:
// blocked ranges are derived fresh from current booking rows on every call,
// so staleness is bounded by read isolation, not by a cache, and queries run
// fully concurrently.
type Engine struct {
	Bookings BookingSource
}

// BlockedRanges maps a box's non-cancelled bookings to a minimal merged
// range cover. An empty result means the box is fully available.
func (e Engine) BlockedRanges(ctx context.Context, boxID boxes.BoxID) ([]daterange.DateRange, error) {
	blocking, err := e.Bookings.BlockingByBox(ctx, boxID)
	if err != nil {
		return nil, err
	}
	ranges := make([]daterange.DateRange, 0, len(blocking))
	for _, b := range blocking {
		if !b.Status.Blocks() {
			continue
		}
		ranges = append(ranges, b.Range)
	}
	return daterange.MergeAll(ranges), nil
}

func (e Engine) IsAvailable(ctx context.Context, boxID boxes.BoxID, start, end time.Time) (bool, error) {
	blocked, err := e.BlockedRanges(ctx, boxID)
	if err != nil {
		return false, err
	}
	return !daterange.IsBlocked(start, end, blocked), nil
}

// Ranked pairs a box with its computed opening for response rendering.
type Ranked struct {
	Box           *boxes.Box
	AvailableNow  bool
	EarliestStart time.Time
}

// RankByEarliestAvailability partitions boxes into available-now (kept in
// input order) and busy (ascending by earliest opening, no computable
// opening last), available first. Upstream auto-select takes the head.
func (e Engine) RankByEarliestAvailability(ctx context.Context, candidates []*boxes.Box, start, end time.Time) ([]Ranked, error) {
	duration := daterange.DateRange{Start: start, End: end}.Normalize()
	durationDays := int(duration.End.Sub(duration.Start).Hours()/24) + 1

	var available, busy []Ranked
	for _, box := range candidates {
		blocked, err := e.BlockedRanges(ctx, box.ID)
		if err != nil {
			return nil, err
		}
		if !daterange.IsBlocked(start, end, blocked) {
			available = append(available, Ranked{Box: box, AvailableNow: true})
			continue
		}
		earliest, ok := daterange.EarliestAvailableStart(blocked, start, durationDays)
		if !ok {
			busy = append(busy, Ranked{Box: box})
			continue
		}
		busy = append(busy, Ranked{Box: box, EarliestStart: earliest})
	}
	sort.SliceStable(busy, func(i, j int) bool {
		a, b := busy[i].EarliestStart, busy[j].EarliestStart
		if a.IsZero() {
			return false
		}
		if b.IsZero() {
			return true
		}
		return a.Before(b)
	})
	return append(available, busy...), nil
}
