package payments

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"boxstand/internal/app/policies"
	domainpayments "boxstand/internal/domain/payments"
	"boxstand/internal/domain/shared/money"
)

// ChargeLedger reads and refunds directly against charge objects. Used for
// the older bookings whose payment reference is a bare charge id.
type ChargeLedger struct {
	Client *Client
}

func (l ChargeLedger) ChargeState(ctx context.Context, chargeRef string) (domainpayments.ChargeState, error) {
	var resp chargeResponse
	if err := l.Client.getJSON(ctx, "/v1/charges/"+chargeRef, &resp); err != nil {
		return domainpayments.ChargeState{}, err
	}
	return chargeState(resp), nil
}

func (l ChargeLedger) IssueRefund(ctx context.Context, chargeRef string, amount money.Money, meta policies.RefundMetadata) (string, error) {
	var resp refundResponse
	req := refundRequest{Charge: chargeRef, Amount: amount.Amount, Metadata: refundMetadata(meta)}
	if err := l.Client.postJSON(ctx, "/v1/refunds", refundIdempotencyKey(meta), req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// IntentLedger resolves a payment intent to its latest charge before
// reading the balance, and refunds against the intent.
type IntentLedger struct {
	Client *Client
}

func (l IntentLedger) ChargeState(ctx context.Context, intentRef string) (domainpayments.ChargeState, error) {
	var intent intentResponse
	if err := l.Client.getJSON(ctx, "/v1/payment_intents/"+intentRef, &intent); err != nil {
		return domainpayments.ChargeState{}, err
	}
	if intent.LatestCharge == "" {
		return domainpayments.ChargeState{}, fmt.Errorf("payments: intent %s has no charge", intentRef)
	}
	var resp chargeResponse
	if err := l.Client.getJSON(ctx, "/v1/charges/"+intent.LatestCharge, &resp); err != nil {
		return domainpayments.ChargeState{}, err
	}
	return chargeState(resp), nil
}

func (l IntentLedger) IssueRefund(ctx context.Context, intentRef string, amount money.Money, meta policies.RefundMetadata) (string, error) {
	var resp refundResponse
	req := refundRequest{PaymentIntent: intentRef, Amount: amount.Amount, Metadata: refundMetadata(meta)}
	if err := l.Client.postJSON(ctx, "/v1/refunds", refundIdempotencyKey(meta), req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// Selector routes ledger calls by the discriminator on the stored payment
// reference: payment-intent refs carry the "pi_" prefix, everything else is
// treated as a charge id.
type Selector struct {
	Charges policies.LedgerPort
	Intents policies.LedgerPort
}

func NewSelector(client *Client) Selector {
	return Selector{Charges: ChargeLedger{Client: client}, Intents: IntentLedger{Client: client}}
}

func (s Selector) ChargeState(ctx context.Context, chargeRef string) (domainpayments.ChargeState, error) {
	return s.ledgerFor(chargeRef).ChargeState(ctx, chargeRef)
}

func (s Selector) IssueRefund(ctx context.Context, chargeRef string, amount money.Money, meta policies.RefundMetadata) (string, error) {
	return s.ledgerFor(chargeRef).IssueRefund(ctx, chargeRef, amount, meta)
}

func (s Selector) ledgerFor(ref string) policies.LedgerPort {
	if strings.HasPrefix(ref, "pi_") {
		return s.Intents
	}
	return s.Charges
}

func chargeState(resp chargeResponse) domainpayments.ChargeState {
	currency := strings.ToUpper(resp.Currency)
	return domainpayments.ChargeState{
		Amount:         money.Money{Amount: resp.Amount, Currency: currency},
		AmountRefunded: money.Money{Amount: resp.AmountRefunded, Currency: currency},
	}
}

func refundMetadata(meta policies.RefundMetadata) map[string]string {
	return map[string]string{
		"booking_id":      meta.BookingID,
		"percentage":      strconv.Itoa(meta.Percentage),
		"proposed_amount": strconv.FormatInt(meta.ProposedAmount.Amount, 10),
		"issued_amount":   strconv.FormatInt(meta.IssuedAmount.Amount, 10),
	}
}

// refundIdempotencyKey keys retries on booking and tier: replaying the same
// cancellation can never double-refund.
func refundIdempotencyKey(meta policies.RefundMetadata) string {
	return fmt.Sprintf("refund-%s-%d", meta.BookingID, meta.Percentage)
}
