package payment

import (
	"context"
	"database/sql"
	"encoding/json"

	"storepay-core/internal/logger"
)

// EventLog is the append-only audit trail of provider interactions. It is
// the sole source of truth for "did we already process this exact
// callback": rows are inserted and never removed, and reconciliation marks
// a row instead of mutating payload data.
type EventLog interface {
	AppendOutbound(ctx context.Context, provider, orderID, paymentID string, payload []byte) (int64, error)
	AppendInbound(ctx context.Context, provider, orderID, paymentID, rawStatus string, payload []byte, verified bool) (int64, error)

	// WasReconciled reports whether an inbound event with the same
	// provider, payment id and raw status already drove a successful
	// status transition.
	WasReconciled(ctx context.Context, provider, paymentID, rawStatus string) (bool, error)

	MarkReconciled(ctx context.Context, eventID int64) error
	MarkFailed(ctx context.Context, eventID int64, reason string) error
}

type eventLog struct {
	db *sql.DB
}

func NewEventLog(db *sql.DB) EventLog {
	return &eventLog{db: db}
}

func (l *eventLog) AppendOutbound(ctx context.Context, provider, orderID, paymentID string, payload []byte) (int64, error) {
	return l.append(ctx, provider, DirectionOutbound, orderID, paymentID, "", payload, true)
}

func (l *eventLog) AppendInbound(ctx context.Context, provider, orderID, paymentID, rawStatus string, payload []byte, verified bool) (int64, error) {
	return l.append(ctx, provider, DirectionInbound, orderID, paymentID, rawStatus, payload, verified)
}

func (l *eventLog) append(ctx context.Context, provider string, dir Direction, orderID, paymentID, rawStatus string, payload []byte, verified bool) (int64, error) {
	const q = `
	INSERT INTO payment_events (
		provider,
		direction,
		order_ref,
		payment_id,
		raw_status,
		verified,
		payload
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id;
	`

	var id int64
	err := l.db.QueryRowContext(
		ctx,
		q,
		provider,
		string(dir),
		orderID,
		paymentID,
		rawStatus,
		verified,
		scrubPayload(payload),
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (l *eventLog) WasReconciled(ctx context.Context, provider, paymentID, rawStatus string) (bool, error) {
	const q = `
	SELECT EXISTS (
		SELECT 1 FROM payment_events
		WHERE provider = $1
		  AND payment_id = $2
		  AND raw_status = $3
		  AND direction = 'IN'
		  AND reconciled_at IS NOT NULL
	);
	`

	var exists bool
	err := l.db.QueryRowContext(ctx, q, provider, paymentID, rawStatus).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (l *eventLog) MarkReconciled(ctx context.Context, eventID int64) error {
	const q = `
	UPDATE payment_events
	SET reconciled_at = now()
	WHERE id = $1;
	`

	_, err := l.db.ExecContext(ctx, q, eventID)
	return err
}

func (l *eventLog) MarkFailed(ctx context.Context, eventID int64, reason string) error {
	const q = `
	UPDATE payment_events
	SET process_error = $2
	WHERE id = $1;
	`

	_, err := l.db.ExecContext(ctx, q, eventID, reason)
	return err
}

// scrubPayload strips known-sensitive fields from a JSON payload before it
// is stored. Non-JSON payloads are stored as received; they come straight
// off the wire from providers that never embed secrets in form bodies.
func scrubPayload(payload []byte) []byte {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err != nil {
		return payload
	}

	changed := false
	for k := range obj {
		if logger.IsSensitiveKey(k) {
			delete(obj, k)
			changed = true
		}
	}
	if !changed {
		return payload
	}

	scrubbed, err := json.Marshal(obj)
	if err != nil {
		return payload
	}
	return scrubbed
}
