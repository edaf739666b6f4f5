package order

import (
	"errors"
	"time"

	"storepay-core/internal/payment"
)

var ErrNotFound = errors.New("order not found")

// Summary is the slice of an order this core is allowed to see: the
// status it reconciles and the amount/contact data the adapters need.
// Everything else belongs to the order-storage collaborator.
type Summary struct {
	ID            string
	AmountMinor   int64
	Currency      string
	CustomerEmail string
	CustomerPhone string
	Status        payment.NormalizedStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PaymentMeta is the provider-specific identifier blob attached to an
// order after a successful create-payment call.
type PaymentMeta struct {
	Provider   string `json:"provider"`
	PaymentID  string `json:"payment_id,omitempty"`
	PaymentURL string `json:"payment_url,omitempty"`
}
