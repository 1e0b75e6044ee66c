package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"boxstand/internal/domain/shared/daterange"
)

func ts(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func TestCalculateStatus(t *testing.T) {
	start := ts(2024, 6, 10, 9)
	end := ts(2024, 6, 12, 17)
	returned := ts(2024, 6, 11, 8)

	tests := []struct {
		name       string
		now        time.Time
		returnedAt *time.Time
		want       BookingStatus
	}{
		{"before start", ts(2024, 6, 9, 12), nil, StatusUpcoming},
		{"exactly at start", start, nil, StatusActive},
		{"inside window", ts(2024, 6, 11, 12), nil, StatusActive},
		{"exactly at end", end, nil, StatusActive},
		{"after end", ts(2024, 6, 13, 0), nil, StatusOverdue},
		{"returned mid-rental", ts(2024, 6, 11, 12), &returned, StatusCompleted},
		{"returned before start", ts(2024, 6, 9, 12), &returned, StatusCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateStatus(start, end, tt.now, tt.returnedAt))
		})
	}
}

func TestCalculateStatusFailsOpenOnBadDates(t *testing.T) {
	now := ts(2024, 6, 10, 12)

	assert.Equal(t, StatusUpcoming, CalculateStatus(time.Time{}, ts(2024, 6, 12, 0), now, nil))
	assert.Equal(t, StatusUpcoming, CalculateStatus(ts(2024, 6, 10, 0), time.Time{}, now, nil))
	assert.Equal(t, StatusUpcoming, CalculateStatus(ts(2024, 6, 12, 0), ts(2024, 6, 10, 0), now, nil))
}

func TestDiffStatuses(t *testing.T) {
	now := ts(2024, 6, 11, 12)
	mk := func(id string, status BookingStatus, start, end time.Time) *Booking {
		return &Booking{
			ID:     BookingID(id),
			Status: status,
			Range:  daterange.DateRange{Start: start, End: end},
		}
	}

	bookings := []*Booking{
		mk("drifted-active", StatusUpcoming, ts(2024, 6, 10, 9), ts(2024, 6, 12, 17)),
		mk("drifted-overdue", StatusActive, ts(2024, 6, 8, 9), ts(2024, 6, 10, 17)),
		mk("in sync", StatusUpcoming, ts(2024, 6, 15, 9), ts(2024, 6, 16, 17)),
		mk("terminal stays", StatusCancelled, ts(2024, 6, 10, 9), ts(2024, 6, 12, 17)),
		nil,
	}

	changes := DiffStatuses(bookings, now)
	assert.Equal(t, []StatusChange{
		{BookingID: "drifted-active", From: StatusUpcoming, To: StatusActive},
		{BookingID: "drifted-overdue", From: StatusActive, To: StatusOverdue},
	}, changes)
}

func TestDiffStatusesSkipsReturnedBookings(t *testing.T) {
	returned := ts(2024, 6, 10, 12)
	b := &Booking{
		ID:         "returned",
		Status:     StatusActive,
		Range:      daterange.DateRange{Start: ts(2024, 6, 10, 9), End: ts(2024, 6, 12, 17)},
		ReturnedAt: &returned,
	}

	changes := DiffStatuses([]*Booking{b}, ts(2024, 6, 13, 0))
	assert.Equal(t, []StatusChange{{BookingID: "returned", From: StatusActive, To: StatusCompleted}}, changes)
}
