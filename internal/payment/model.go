package payment

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Provider identifiers, used as webhook path segments and event log keys.
const (
	ProviderCardGate    = "cardgate"
	ProviderInstallment = "installment"
	ProviderWallet      = "wallet"
)

// NormalizedStatus is the internal order-status vocabulary every provider
// status maps into. Paid and Cancelled are mutually exclusive terminal
// states; Refunded is reachable only from Paid.
type NormalizedStatus string

const (
	StatusPending   NormalizedStatus = "PENDING"
	StatusPaid      NormalizedStatus = "PAID"
	StatusCancelled NormalizedStatus = "CANCELLED"
	StatusRefunded  NormalizedStatus = "REFUNDED"
	StatusUnknown   NormalizedStatus = "UNKNOWN"
)

// Direction of a logged provider interaction.
type Direction string

const (
	DirectionOutbound Direction = "OUT"
	DirectionInbound  Direction = "IN"
)

type LineItem struct {
	Name           string
	UnitPriceMinor int64
	Quantity       int64
}

// PaymentRequest is the internal representation of one checkout attempt.
// It is ephemeral: constructed per create-payment call, never persisted.
type PaymentRequest struct {
	OrderID       string
	AmountMinor   int64
	Currency      string
	Description   string
	CustomerEmail string
	CustomerPhone string
	LineItems     []LineItem
	SuccessURL    string
	FailURL       string
	CallbackURL   string
}

// Validate checks the amount invariant before anything is signed or sent:
// the total must equal the line-item sum in minor currency units.
func (r PaymentRequest) Validate() error {
	if r.OrderID == "" {
		return fmt.Errorf("payment request: order id is required")
	}
	if r.AmountMinor <= 0 {
		return fmt.Errorf("payment request: amount must be positive, got %d", r.AmountMinor)
	}
	var sum int64
	for _, item := range r.LineItems {
		if item.Quantity <= 0 || item.UnitPriceMinor < 0 {
			return fmt.Errorf("payment request: invalid line item %q", item.Name)
		}
		sum += item.UnitPriceMinor * item.Quantity
	}
	if len(r.LineItems) > 0 && sum != r.AmountMinor {
		return fmt.Errorf("payment request: amount %d does not match line item sum %d", r.AmountMinor, sum)
	}
	return nil
}

// PaymentEvent is one row of the append-only audit trail. Rows are created
// and never mutated or deleted; the reconciled timestamp is the only field
// written after insert.
type PaymentEvent struct {
	ID           int64
	Provider     string
	Direction    Direction
	OrderID      string
	PaymentID    string
	RawStatus    string
	RawPayload   []byte
	Verified     bool
	CreatedAt    time.Time
	ReconciledAt *time.Time
}

// CreateResult is what the checkout collaborator gets back from a
// successful create-payment call. Server-side providers return PaymentURL;
// the wallet provider returns SDKConfig for its client-side flow instead.
type CreateResult struct {
	PaymentURL        string
	ProviderPaymentID string
	SDKConfig         map[string]string
}

// CallbackResult is the normalized outcome of parsing one inbound webhook.
type CallbackResult struct {
	EventID   int64
	OrderID   string
	PaymentID string
	RawStatus string
	Verified  bool
}

// Ack is the provider-specific acknowledgment body for a webhook. Each
// provider documents an exact shape; anything else triggers redelivery
// storms.
type Ack struct {
	StatusCode int
	Body       []byte
}

// Provider adapts one external payment provider. The three
// implementations differ in trust model (shared-secret signing, mutual
// TLS, bearer token) but share this contract, so registering a fourth
// provider never touches the existing ones.
type Provider interface {
	Name() string

	// CreatePayment translates the request into the provider's wire
	// format and initiates payment. It writes one outbound event to the
	// audit log regardless of success or failure.
	CreatePayment(ctx context.Context, req PaymentRequest) (*CreateResult, error)

	// ParseCallback authenticates and normalizes an inbound webhook. It
	// writes one inbound event with the full (sanitized) payload even
	// when verification fails. The returned error reports only a failure
	// to durably log the event.
	ParseCallback(ctx context.Context, body []byte, header http.Header) (*CallbackResult, error)

	// AckResponse is the exact acknowledgment this provider expects.
	AckResponse(verified bool) Ack
}
