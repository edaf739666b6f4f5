package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"storepay-core/internal/payment"
)

// Store is the outbound interface to the order-storage collaborator. The
// reconciler is the only writer of order status in the whole system;
// storefront code may only read it.
type Store interface {
	GetOrder(ctx context.Context, orderID string) (*Summary, error)

	// UpdateStatusIf performs the conditional status write: it succeeds
	// only when the row still holds the expected current status. This is
	// the one place mutual exclusion matters, and it lives in the
	// storage layer because multiple process instances run concurrently.
	UpdateStatusIf(ctx context.Context, orderID string, from, to payment.NormalizedStatus) (bool, error)

	AttachPaymentMeta(ctx context.Context, orderID string, meta PaymentMeta) error

	// GetPaymentMeta returns the provider identifiers attached to an
	// order, or nil when no payment was created for it yet.
	GetPaymentMeta(ctx context.Context, orderID string) (*PaymentMeta, error)
}

type store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) Store {
	return &store{db: db}
}

func (s *store) GetOrder(ctx context.Context, orderID string) (*Summary, error) {
	const q = `
	SELECT id, amount_minor, currency, customer_email, customer_phone, status, created_at, updated_at
	FROM orders WHERE id = $1
	`

	var o Summary
	err := s.db.QueryRowContext(ctx, q, orderID).Scan(
		&o.ID, &o.AmountMinor, &o.Currency, &o.CustomerEmail, &o.CustomerPhone,
		&o.Status, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *store) UpdateStatusIf(ctx context.Context, orderID string, from, to payment.NormalizedStatus) (bool, error) {
	const q = `
	UPDATE orders
	SET status = $1, updated_at = now()
	WHERE id = $2 AND status = $3
	`

	res, err := s.db.ExecContext(ctx, q, string(to), orderID, string(from))
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (s *store) AttachPaymentMeta(ctx context.Context, orderID string, meta PaymentMeta) error {
	blob, err := json.Marshal(meta)
	if err != nil {
		return err
	}

	const q = `
	UPDATE orders
	SET payment_meta = $1, updated_at = now()
	WHERE id = $2
	`

	res, err := s.db.ExecContext(ctx, q, blob, orderID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *store) GetPaymentMeta(ctx context.Context, orderID string) (*PaymentMeta, error) {
	const q = `SELECT payment_meta FROM orders WHERE id = $1`

	var blob []byte
	err := s.db.QueryRowContext(ctx, q, orderID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(blob) == 0 {
		return nil, nil
	}

	var meta PaymentMeta
	if err := json.Unmarshal(blob, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}
