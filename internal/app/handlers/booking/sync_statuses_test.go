package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainbooking "boxstand/internal/domain/booking"
	"boxstand/internal/domain/shared/daterange"
	"boxstand/internal/infra/storage/memory"
)

func seedBooking(t *testing.T, factory memory.Factory, id string, status domainbooking.BookingStatus, start, end time.Time) {
	t.Helper()
	require.NoError(t, factory.BookingRepo.Save(context.Background(), &domainbooking.Booking{
		ID:     domainbooking.BookingID(id),
		BoxID:  "box-1",
		Status: status,
		Range:  daterange.DateRange{Start: start, End: end},
	}))
}

func TestSyncStatuses(t *testing.T) {
	now := time.Date(2024, 6, 11, 12, 0, 0, 0, time.UTC)
	factory := memory.NewFactory()
	ctx := context.Background()

	seedBooking(t, factory, "active-drift", domainbooking.StatusUpcoming,
		time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC), time.Date(2024, 6, 12, 17, 0, 0, 0, time.UTC))
	seedBooking(t, factory, "overdue-drift", domainbooking.StatusActive,
		time.Date(2024, 6, 8, 9, 0, 0, 0, time.UTC), time.Date(2024, 6, 10, 17, 0, 0, 0, time.UTC))
	seedBooking(t, factory, "in-sync", domainbooking.StatusUpcoming,
		time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC), time.Date(2024, 6, 16, 17, 0, 0, 0, time.UTC))
	seedBooking(t, factory, "cancelled", domainbooking.StatusCancelled,
		time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC), time.Date(2024, 6, 12, 17, 0, 0, 0, time.UTC))

	h := &SyncStatusesHandler{UoWFactory: factory, Clock: func() time.Time { return now }}

	result, err := h.Handle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Examined)
	assert.Equal(t, 2, result.Drifted)
	assert.Equal(t, int64(2), result.Applied)

	b, err := factory.BookingRepo.ByID(ctx, "active-drift")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusActive, b.Status)

	b, err = factory.BookingRepo.ByID(ctx, "overdue-drift")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusOverdue, b.Status)

	b, err = factory.BookingRepo.ByID(ctx, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusCancelled, b.Status)
}

func TestSyncStatusesRerunIsNoOp(t *testing.T) {
	now := time.Date(2024, 6, 11, 12, 0, 0, 0, time.UTC)
	factory := memory.NewFactory()

	seedBooking(t, factory, "active-drift", domainbooking.StatusUpcoming,
		time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC), time.Date(2024, 6, 12, 17, 0, 0, 0, time.UTC))

	h := &SyncStatusesHandler{UoWFactory: factory, Clock: func() time.Time { return now }}

	first, err := h.Handle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Applied)

	second, err := h.Handle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Drifted)
	assert.Equal(t, int64(0), second.Applied)
}
