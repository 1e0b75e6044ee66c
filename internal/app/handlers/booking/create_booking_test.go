package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainbooking "boxstand/internal/domain/booking"
	domainboxes "boxstand/internal/domain/boxes"
	domainpayments "boxstand/internal/domain/payments"
	"boxstand/internal/domain/shared/money"
	"boxstand/internal/infra/storage/memory"
)

func newCreateHandler(t *testing.T, now time.Time) (*CreateBookingHandler, memory.Factory, *recordingNotifier) {
	t.Helper()
	factory := memory.NewFactory()
	require.NoError(t, factory.BoxRepo.Save(context.Background(), &domainboxes.Box{
		ID:      "box-1",
		StandID: "stand-1",
		Active:  true,
	}))
	notifier := &recordingNotifier{}
	h := &CreateBookingHandler{
		UoWFactory: factory,
		Notifier:   notifier,
		Clock:      func() time.Time { return now },
	}
	return h, factory, notifier
}

func createCmd() CreateBookingCommand {
	return CreateBookingCommand{
		BookingID:  "b-1",
		BoxID:      "box-1",
		StandID:    "stand-1",
		CustomerID: "cust-1",
		Start:      time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC),
		End:        time.Date(2024, 6, 12, 17, 0, 0, 0, time.UTC),
		Total:      money.Must(10000, "EUR"),
		ChargeRef:  "ch_123",
	}
}

func TestCreateBooking(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	h, factory, notifier := newCreateHandler(t, now)
	ctx := context.Background()

	result, err := h.Handle(ctx, createCmd())
	require.NoError(t, err)
	assert.Equal(t, "b-1", result.BookingID)
	assert.Equal(t, string(domainbooking.StatusUpcoming), result.Status)

	pay, err := factory.PaymentRepo.ByBookingID(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, "cust-1", pay.UserID)
	assert.Equal(t, domainpayments.StatusPaid, pay.Status)

	box, err := factory.BoxRepo.ByID(ctx, "box-1")
	require.NoError(t, err)
	assert.Equal(t, 56, box.UtilizationHours)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, "booking.requested", notifier.events[0].EventName())
}

func TestCreateBookingRejectsOverlap(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	h, factory, _ := newCreateHandler(t, now)
	ctx := context.Background()

	_, err := h.Handle(ctx, createCmd())
	require.NoError(t, err)

	second := createCmd()
	second.BookingID = "b-2"
	second.CustomerID = "cust-2"
	second.Start = time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC)
	second.End = time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)

	_, err = h.Handle(ctx, second)
	assert.ErrorIs(t, err, ErrBoxUnavailable)

	// Utilization stays at the first booking's accrual.
	box, err := factory.BoxRepo.ByID(ctx, "box-1")
	require.NoError(t, err)
	assert.Equal(t, 56, box.UtilizationHours)
}

func TestCreateBookingAfterCancellationFreesRange(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	h, factory, _ := newCreateHandler(t, now)
	ctx := context.Background()

	_, err := h.Handle(ctx, createCmd())
	require.NoError(t, err)

	cancel := &CancelBookingHandler{
		UoWFactory: factory,
		Ledger: &mockLedger{
			state:    domainpayments.ChargeState{Amount: money.Must(10000, "EUR"), AmountRefunded: money.Must(0, "EUR")},
			refundID: "re_1",
		},
		Policy: domainbooking.RefundPolicy{TransactionFee: money.Must(250, "EUR")},
		Clock:  func() time.Time { return time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC) },
	}
	_, err = cancel.Handle(ctx, CancelBookingCommand{BookingID: "b-1", RequestingUserID: "cust-1"})
	require.NoError(t, err)

	second := createCmd()
	second.BookingID = "b-2"
	_, err = h.Handle(ctx, second)
	assert.NoError(t, err)
}

func TestCreateBookingInactiveBox(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	h, factory, _ := newCreateHandler(t, now)
	ctx := context.Background()

	box, err := factory.BoxRepo.ByID(ctx, "box-1")
	require.NoError(t, err)
	box.Active = false
	require.NoError(t, factory.BoxRepo.Save(ctx, box))

	_, err = h.Handle(ctx, createCmd())
	assert.ErrorIs(t, err, ErrBoxInactive)
}

func TestCreateBookingUnknownBox(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	h, _, _ := newCreateHandler(t, now)

	cmd := createCmd()
	cmd.BoxID = "missing"
	_, err := h.Handle(context.Background(), cmd)
	assert.ErrorIs(t, err, domainboxes.ErrBoxNotFound)
}
