package booking

import (
	"time"

	"boxstand/internal/domain/boxes"
	"boxstand/internal/domain/shared/daterange"
	"boxstand/internal/domain/shared/money"
)

type BookingRequested struct {
	BookingID  BookingID
	BoxID      boxes.BoxID
	CustomerID string
	Range      daterange.DateRange
	Total      money.Money
	At         time.Time
}

func (e BookingRequested) EventName() string     { return "booking.requested" }
func (e BookingRequested) AggregateID() string   { return string(e.BookingID) }
func (e BookingRequested) OccurredAt() time.Time { return e.At }

type BookingCancelled struct {
	BookingID  BookingID
	BoxID      boxes.BoxID
	CustomerID string
	Refund     money.Money
	Percentage int
	RefundID   string
	Reason     string
	At         time.Time
}

func (e BookingCancelled) EventName() string     { return "booking.cancelled" }
func (e BookingCancelled) AggregateID() string   { return string(e.BookingID) }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }

type BoxReturned struct {
	BookingID BookingID
	BoxID     boxes.BoxID
	At        time.Time
}

func (e BoxReturned) EventName() string     { return "booking.returned" }
func (e BoxReturned) AggregateID() string   { return string(e.BookingID) }
func (e BoxReturned) OccurredAt() time.Time { return e.At }
