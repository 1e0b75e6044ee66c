package policies

import (
	"context"

	"boxstand/internal/domain/payments"
	"boxstand/internal/domain/shared/money"
)

// RefundMetadata travels with a refund request so the processor can
// deduplicate retries of the same cancellation.
type RefundMetadata struct {
	BookingID      string
	Percentage     int
	ProposedAmount money.Money
	IssuedAmount   money.Money
}

// LedgerPort is the narrow contract to the payment processor. The core
// never initiates a charge; it only reads charge state and issues refunds.
// ChargeState is authoritative over any locally cached amount.
type LedgerPort interface {
	ChargeState(ctx context.Context, chargeRef string) (payments.ChargeState, error)
	IssueRefund(ctx context.Context, chargeRef string, amount money.Money, meta RefundMetadata) (string, error)
}
