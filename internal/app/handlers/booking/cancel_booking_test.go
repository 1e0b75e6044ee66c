package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boxstand/internal/app/policies"
	domainbooking "boxstand/internal/domain/booking"
	domainboxes "boxstand/internal/domain/boxes"
	domainpayments "boxstand/internal/domain/payments"
	"boxstand/internal/domain/shared/daterange"
	"boxstand/internal/domain/shared/events"
	"boxstand/internal/domain/shared/money"
	"boxstand/internal/infra/storage/memory"
)

type issuedRefund struct {
	chargeRef string
	amount    money.Money
	meta      policies.RefundMetadata
}

type mockLedger struct {
	state     domainpayments.ChargeState
	stateErr  error
	refundID  string
	refundErr error
	refunds   []issuedRefund
}

func (m *mockLedger) ChargeState(_ context.Context, _ string) (domainpayments.ChargeState, error) {
	return m.state, m.stateErr
}

func (m *mockLedger) IssueRefund(_ context.Context, chargeRef string, amount money.Money, meta policies.RefundMetadata) (string, error) {
	if m.refundErr != nil {
		return "", m.refundErr
	}
	m.refunds = append(m.refunds, issuedRefund{chargeRef: chargeRef, amount: amount, meta: meta})
	return m.refundID, nil
}

type recordingNotifier struct {
	events []events.DomainEvent
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, ev events.DomainEvent) error {
	if n.err != nil {
		return n.err
	}
	n.events = append(n.events, ev)
	return nil
}

type cancelFixture struct {
	factory  memory.Factory
	ledger   *mockLedger
	notifier *recordingNotifier
	handler  *CancelBookingHandler
	now      time.Time
}

// newCancelFixture seeds a 56h upcoming booking priced at 100.00 EUR,
// its paid charge and its box with the scheduled hours already accrued.
func newCancelFixture(t *testing.T, now time.Time) *cancelFixture {
	t.Helper()
	factory := memory.NewFactory()
	ctx := context.Background()

	b := &domainbooking.Booking{
		ID:         "b-1",
		BoxID:      "box-1",
		StandID:    "stand-1",
		CustomerID: "cust-1",
		Status:     domainbooking.StatusUpcoming,
		Range: daterange.DateRange{
			Start: time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 6, 12, 17, 0, 0, 0, time.UTC),
		},
		Total: money.Must(10000, "EUR"),
	}
	require.NoError(t, factory.BookingRepo.Save(ctx, b))
	require.NoError(t, factory.PaymentRepo.Save(ctx, &domainpayments.Payment{
		BookingID: "b-1",
		UserID:    "cust-1",
		ChargeRef: "ch_123",
		Amount:    b.Total,
		Status:    domainpayments.StatusPaid,
	}))
	require.NoError(t, factory.BoxRepo.Save(ctx, &domainboxes.Box{
		ID:               "box-1",
		StandID:          "stand-1",
		Active:           true,
		UtilizationHours: 56,
	}))

	ledger := &mockLedger{
		state: domainpayments.ChargeState{
			Amount:         money.Must(10000, "EUR"),
			AmountRefunded: money.Must(0, "EUR"),
		},
		refundID: "re_1",
	}
	notifier := &recordingNotifier{}
	return &cancelFixture{
		factory:  factory,
		ledger:   ledger,
		notifier: notifier,
		handler: &CancelBookingHandler{
			UoWFactory: factory,
			Ledger:     ledger,
			Notifier:   notifier,
			Policy:     domainbooking.RefundPolicy{TransactionFee: money.Must(250, "EUR")},
			Clock:      func() time.Time { return now },
		},
		now: now,
	}
}

func TestCancelBookingFullNotice(t *testing.T) {
	// 25h before start: 100% tier, fee deducted.
	fx := newCancelFixture(t, time.Date(2024, 6, 9, 8, 0, 0, 0, time.UTC))
	ctx := context.Background()

	result, err := fx.handler.Handle(ctx, CancelBookingCommand{BookingID: "b-1", RequestingUserID: "cust-1"})
	require.NoError(t, err)

	assert.True(t, result.Cancelled)
	assert.False(t, result.AlreadyCancelled)
	assert.Equal(t, int64(9750), result.Refund.Amount)
	assert.Equal(t, 100, result.Percentage)
	assert.Equal(t, "re_1", result.RefundID)

	require.Len(t, fx.ledger.refunds, 1)
	assert.Equal(t, "ch_123", fx.ledger.refunds[0].chargeRef)
	assert.Equal(t, int64(9750), fx.ledger.refunds[0].amount.Amount)
	assert.Equal(t, "b-1", fx.ledger.refunds[0].meta.BookingID)

	b, err := fx.factory.BookingRepo.ByID(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusCancelled, b.Status)

	pay, err := fx.factory.PaymentRepo.ByBookingID(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, domainpayments.StatusRefunded, pay.Status)
	assert.Equal(t, int64(9750), pay.Refunded.Amount)
	assert.Equal(t, "re_1", pay.RefundID)

	box, err := fx.factory.BoxRepo.ByID(ctx, "box-1")
	require.NoError(t, err)
	assert.Equal(t, 0, box.UtilizationHours)

	require.Len(t, fx.notifier.events, 1)
	assert.Equal(t, "booking.cancelled", fx.notifier.events[0].EventName())
}

func TestCancelBookingLateNotice(t *testing.T) {
	// 13h before start: 50% tier, no fee.
	fx := newCancelFixture(t, time.Date(2024, 6, 9, 20, 0, 0, 0, time.UTC))

	result, err := fx.handler.Handle(context.Background(), CancelBookingCommand{BookingID: "b-1", RequestingUserID: "cust-1"})
	require.NoError(t, err)

	assert.True(t, result.Cancelled)
	assert.Equal(t, 50, result.Percentage)
	assert.Equal(t, int64(5000), result.Refund.Amount)
	require.Len(t, fx.ledger.refunds, 1)
	assert.Equal(t, int64(5000), fx.ledger.refunds[0].amount.Amount)
}

func TestCancelBookingIdempotentRetry(t *testing.T) {
	fx := newCancelFixture(t, time.Date(2024, 6, 9, 8, 0, 0, 0, time.UTC))
	ctx := context.Background()
	cmd := CancelBookingCommand{BookingID: "b-1", RequestingUserID: "cust-1"}

	first, err := fx.handler.Handle(ctx, cmd)
	require.NoError(t, err)
	require.True(t, first.Cancelled)

	second, err := fx.handler.Handle(ctx, cmd)
	require.NoError(t, err)
	assert.True(t, second.AlreadyCancelled)
	assert.False(t, second.Cancelled)
	assert.Equal(t, int64(9750), second.Refund.Amount)
	assert.Equal(t, "re_1", second.RefundID)

	// No second refund reaches the ledger.
	assert.Len(t, fx.ledger.refunds, 1)
}

func TestCancelBookingClampsToLedgerBalance(t *testing.T) {
	fx := newCancelFixture(t, time.Date(2024, 6, 9, 8, 0, 0, 0, time.UTC))
	fx.ledger.state.AmountRefunded = money.Must(7000, "EUR")

	result, err := fx.handler.Handle(context.Background(), CancelBookingCommand{BookingID: "b-1", RequestingUserID: "cust-1"})
	require.NoError(t, err)

	assert.True(t, result.Cancelled)
	assert.False(t, result.Reconciled)
	assert.Equal(t, int64(3000), result.Refund.Amount)
	require.Len(t, fx.ledger.refunds, 1)
	assert.Equal(t, int64(3000), fx.ledger.refunds[0].amount.Amount)
	assert.Equal(t, int64(9750), fx.ledger.refunds[0].meta.ProposedAmount.Amount)
}

func TestCancelBookingReconcilesOutOfBandRefund(t *testing.T) {
	fx := newCancelFixture(t, time.Date(2024, 6, 9, 8, 0, 0, 0, time.UTC))
	fx.ledger.state.AmountRefunded = money.Must(10000, "EUR")
	ctx := context.Background()

	result, err := fx.handler.Handle(ctx, CancelBookingCommand{BookingID: "b-1", RequestingUserID: "cust-1"})
	require.NoError(t, err)

	assert.True(t, result.Cancelled)
	assert.True(t, result.Reconciled)
	assert.True(t, result.Refund.IsZero())
	assert.Empty(t, result.RefundID)
	assert.Empty(t, fx.ledger.refunds)

	// The cancellation itself still converges.
	b, err := fx.factory.BookingRepo.ByID(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusCancelled, b.Status)
}

func TestCancelBookingRefusesForeignCaller(t *testing.T) {
	fx := newCancelFixture(t, time.Date(2024, 6, 9, 8, 0, 0, 0, time.UTC))
	ctx := context.Background()

	_, err := fx.handler.Handle(ctx, CancelBookingCommand{BookingID: "b-1", RequestingUserID: "intruder"})
	require.ErrorIs(t, err, domainpayments.ErrNotOwner)

	b, err := fx.factory.BookingRepo.ByID(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusUpcoming, b.Status)
	assert.Empty(t, fx.ledger.refunds)
}

func TestCancelBookingIneligibleWhenOverdue(t *testing.T) {
	fx := newCancelFixture(t, time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	result, err := fx.handler.Handle(ctx, CancelBookingCommand{BookingID: "b-1", RequestingUserID: "cust-1"})
	require.NoError(t, err)

	assert.False(t, result.Cancelled)
	assert.NotEmpty(t, result.Reason)
	assert.Empty(t, fx.ledger.refunds)

	b, err := fx.factory.BookingRepo.ByID(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusUpcoming, b.Status)
}

func TestCancelBookingActiveRentalNoRefund(t *testing.T) {
	fx := newCancelFixture(t, time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	result, err := fx.handler.Handle(ctx, CancelBookingCommand{BookingID: "b-1", RequestingUserID: "cust-1"})
	require.NoError(t, err)

	assert.True(t, result.Cancelled)
	assert.True(t, result.Refund.IsZero())
	// Zero refund never touches the processor.
	assert.Empty(t, fx.ledger.refunds)

	b, err := fx.factory.BookingRepo.ByID(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusCancelled, b.Status)
}

func TestCancelBookingLedgerFailureAborts(t *testing.T) {
	fx := newCancelFixture(t, time.Date(2024, 6, 9, 8, 0, 0, 0, time.UTC))
	fx.ledger.stateErr = errors.New("processor down")
	ctx := context.Background()

	_, err := fx.handler.Handle(ctx, CancelBookingCommand{BookingID: "b-1", RequestingUserID: "cust-1"})
	require.Error(t, err)

	var critical *CriticalInconsistencyError
	assert.False(t, errors.As(err, &critical), "no money moved, failure must stay ordinary")

	b, err := fx.factory.BookingRepo.ByID(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusUpcoming, b.Status)
}

type failingBookingRepo struct {
	domainbooking.Repository
}

func (failingBookingRepo) Save(context.Context, *domainbooking.Booking) error {
	return errors.New("write refused")
}

func TestCancelBookingCriticalInconsistency(t *testing.T) {
	fx := newCancelFixture(t, time.Date(2024, 6, 9, 8, 0, 0, 0, time.UTC))
	fx.factory.BookingRepo = failingBookingRepo{Repository: fx.factory.BookingRepo}
	fx.handler.UoWFactory = fx.factory

	_, err := fx.handler.Handle(context.Background(), CancelBookingCommand{BookingID: "b-1", RequestingUserID: "cust-1"})
	require.Error(t, err)

	var critical *CriticalInconsistencyError
	require.ErrorAs(t, err, &critical)
	assert.Equal(t, "b-1", critical.BookingID)
	assert.Equal(t, "re_1", critical.RefundID)

	// The refund did go out exactly once before the local write failed.
	assert.Len(t, fx.ledger.refunds, 1)
}

func TestCancelBookingNotifierFailureIsNotFatal(t *testing.T) {
	fx := newCancelFixture(t, time.Date(2024, 6, 9, 8, 0, 0, 0, time.UTC))
	fx.notifier.err = errors.New("broker unreachable")

	result, err := fx.handler.Handle(context.Background(), CancelBookingCommand{BookingID: "b-1", RequestingUserID: "cust-1"})
	require.NoError(t, err)
	assert.True(t, result.Cancelled)
}
