package booking

import (
	"context"
	"errors"
	"time"

	"boxstand/internal/domain/boxes"
	"boxstand/internal/domain/shared/daterange"
	"boxstand/internal/domain/shared/events"
	"boxstand/internal/domain/shared/money"
)

var (
	ErrBookingNotFound = errors.New("booking: not found")
	ErrInvalidState    = errors.New("booking: invalid state transition")
	ErrStartInPast     = errors.New("booking: start date is in the past")
	ErrCustomerMissing = errors.New("booking: customer id required")
)

type BookingID string

type BookingStatus string

const (
	StatusPending   BookingStatus = "PENDING"
	StatusUpcoming  BookingStatus = "UPCOMING"
	StatusActive    BookingStatus = "ACTIVE"
	StatusOverdue   BookingStatus = "OVERDUE"
	StatusCompleted BookingStatus = "COMPLETED"
	StatusCancelled BookingStatus = "CANCELLED"
)

// Terminal reports whether the status admits no further transitions.
func (s BookingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Blocks reports whether a booking in this status keeps its box reserved.
// Cancelled and Completed bookings never block availability.
func (s BookingStatus) Blocks() bool {
	switch s {
	case StatusPending, StatusUpcoming, StatusActive, StatusOverdue:
		return true
	}
	return false
}

// Booking is a reservation of a single box for a rental window. Bookings are
// never hard-deleted; terminal rows are kept for audit and refund history.
type Booking struct {
	ID             BookingID
	BoxID          boxes.BoxID
	StandID        string
	CustomerID     string
	Range          daterange.DateRange
	Status         BookingStatus
	ReturnedAt     *time.Time
	Total          money.Money
	ExtensionCount int
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Version        int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Save(ctx context.Context, booking *Booking) error
	// BlockingByBox returns bookings whose status still reserves the box.
	BlockingByBox(ctx context.Context, boxID boxes.BoxID) ([]*Booking, error)
	ListNonTerminal(ctx context.Context) ([]*Booking, error)
	// ApplyStatusChanges persists recomputed statuses with a conditional
	// write per change (matched only while the stored status differs), so
	// concurrent recalculation is a no-op. Returns the number of rows that
	// actually changed.
	ApplyStatusChanges(ctx context.Context, changes []StatusChange) (int64, error)
}

type CreateParams struct {
	ID         BookingID
	BoxID      boxes.BoxID
	StandID    string
	CustomerID string
	Range      daterange.DateRange
	Total      money.Money
	ChargeRef  string
	CreatedAt  time.Time
}

func NewBooking(params CreateParams) (*Booking, error) {
	if params.CustomerID == "" {
		return nil, ErrCustomerMissing
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	now := params.CreatedAt.UTC()
	if daterange.Day(params.Range.Start).Before(daterange.Day(now)) {
		return nil, ErrStartInPast
	}
	status := StatusUpcoming
	if params.ChargeRef == "" {
		status = StatusPending
	}
	b := &Booking{
		ID:         params.ID,
		BoxID:      params.BoxID,
		StandID:    params.StandID,
		CustomerID: params.CustomerID,
		Range:      params.Range,
		Total:      params.Total,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	b.Record(BookingRequested{
		BookingID:  b.ID,
		BoxID:      b.BoxID,
		CustomerID: b.CustomerID,
		Range:      b.Range,
		Total:      b.Total,
		At:         now,
	})
	return b, nil
}

// ScheduledHours is the utilization accrual for this booking: the scheduled
// rental length in whole hours. Cancellation releases exactly this amount
// regardless of when it happens.
func (b *Booking) ScheduledHours() int {
	return boxes.DurationHours(b.Range.Start, b.Range.End)
}

// EffectiveEnd is the return timestamp when the box came back, else the
// scheduled end.
func (b *Booking) EffectiveEnd() time.Time {
	if b.ReturnedAt != nil && !b.ReturnedAt.IsZero() {
		return *b.ReturnedAt
	}
	return b.Range.End
}

func (b *Booking) Cancel(now time.Time) error {
	if b.Status.Terminal() {
		return ErrInvalidState
	}
	b.Status = StatusCancelled
	b.UpdatedAt = now.UTC()
	return nil
}

// MarkReturned confirms the physical box came back. Return always wins: the
// booking completes even while the rental window is still open.
func (b *Booking) MarkReturned(at time.Time) error {
	if b.Status.Terminal() {
		return ErrInvalidState
	}
	ret := at.UTC()
	b.ReturnedAt = &ret
	b.Status = StatusCompleted
	b.UpdatedAt = ret
	b.Record(BoxReturned{BookingID: b.ID, BoxID: b.BoxID, At: ret})
	return nil
}
