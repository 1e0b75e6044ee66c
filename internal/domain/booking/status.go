package booking

import "time"

// CalculateStatus derives the externally visible status from timing facts:
//
//  1. a recorded return always wins, even inside the rental window;
//  2. a lapsed window without a return is Overdue;
//  3. now inside [start, end] is Active;
//  4. everything else is Upcoming.
//
// Zero or inverted dates fail open to Upcoming instead of erroring: the
// derived status only drives display and sorting, never money.
func CalculateStatus(start, end, now time.Time, returnedAt *time.Time) BookingStatus {
	if returnedAt != nil && !returnedAt.IsZero() {
		return StatusCompleted
	}
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return StatusUpcoming
	}
	if end.Before(now) {
		return StatusOverdue
	}
	if !now.Before(start) {
		return StatusActive
	}
	return StatusUpcoming
}

// StatusChange is one drifted booking status to persist.
type StatusChange struct {
	BookingID BookingID
	From      BookingStatus
	To        BookingStatus
}

// DiffStatuses recomputes status for every non-terminal booking and emits
// only the diffs. Terminal bookings are skipped: Completed and Cancelled
// never flip back. The caller persists the result with a conditional write
// per change so that concurrent recomputation stays a no-op.
func DiffStatuses(bookings []*Booking, now time.Time) []StatusChange {
	var changes []StatusChange
	for _, b := range bookings {
		if b == nil || b.Status.Terminal() {
			continue
		}
		next := CalculateStatus(b.Range.Start, b.Range.End, now, b.ReturnedAt)
		if next == b.Status {
			continue
		}
		changes = append(changes, StatusChange{BookingID: b.ID, From: b.Status, To: next})
	}
	return changes
}
