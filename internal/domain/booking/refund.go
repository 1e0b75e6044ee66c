package booking

import (
	"math"
	"time"

	"boxstand/internal/domain/shared/money"
)

const (
	// shortRentalMaxDays splits rentals into the 24h/50% tier set and the
	// 48h/75% tier set.
	shortRentalMaxDays = 3

	shortNoticeCutoff = 24 * time.Hour
	longNoticeCutoff  = 48 * time.Hour
)

// RefundCalculation is a value object describing cancellation eligibility
// and the proposed refund. It is recomputed on demand and never persisted;
// the same booking timing and the same `now` always produce the same result.
type RefundCalculation struct {
	Amount         money.Money
	Percentage     int
	TransactionFee money.Money
	Reason         string
	Eligible       bool
}

// RefundPolicy holds the tiered cancellation policy. TransactionFee is a
// fixed amount recovered from the customer only on the 100% tier, where the
// merchant otherwise makes them whole.
type RefundPolicy struct {
	TransactionFee money.Money
}

// Calculate walks the refund decision tree for a cancellation attempted at
// `now`. Pure: no I/O, no clock reads.
func (p RefundPolicy) Calculate(b *Booking, now time.Time) RefundCalculation {
	zero := money.Money{Currency: b.Total.Currency}
	none := RefundCalculation{Amount: zero, TransactionFee: zero}

	if b.Status == StatusCancelled {
		none.Reason = "booking already cancelled"
		return none
	}
	switch CalculateStatus(b.Range.Start, b.Range.End, now, b.ReturnedAt) {
	case StatusCompleted:
		none.Reason = "rental already completed"
		return none
	case StatusOverdue:
		none.Reason = "rental window lapsed without return"
		return none
	case StatusActive:
		// Early return is allowed mid-rental, but nothing is refunded.
		none.Eligible = true
		none.Reason = "rental in progress: cancellation returns the box without refund"
		return none
	}

	rentalDays := ceilDays(b.Range.Start, b.Range.End)
	untilStart := b.Range.Start.Sub(now)

	cutoff, midPercent := shortNoticeCutoff, 50
	if rentalDays > shortRentalMaxDays {
		cutoff, midPercent = longNoticeCutoff, 75
	}

	switch {
	case untilStart <= 0:
		// Start passed but persisted status has not flipped yet; refuse
		// the refund rather than paying out on a stale row.
		none.Eligible = true
		none.Reason = "rental start already passed; status pending recalculation"
		return none
	case untilStart > cutoff:
		fee := p.fee(b.Total.Currency)
		amount, _ := b.Total.Sub(fee)
		return RefundCalculation{
			Amount:         amount.ClampNonNegative(),
			Percentage:     100,
			TransactionFee: fee,
			Reason:         "cancelled in advance: full refund minus transaction fee",
			Eligible:       true,
		}
	default:
		return RefundCalculation{
			Amount:         b.Total.Percent(midPercent),
			Percentage:     midPercent,
			TransactionFee: zero,
			Reason:         "late cancellation: partial refund",
			Eligible:       true,
		}
	}
}

func (p RefundPolicy) fee(currency string) money.Money {
	if p.TransactionFee.Currency != currency {
		return money.Money{Currency: currency}
	}
	return p.TransactionFee
}

func ceilDays(start, end time.Time) int {
	days := int(math.Ceil(end.Sub(start).Hours() / 24))
	if days < 1 {
		return 1
	}
	return days
}
