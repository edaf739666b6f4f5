package order

import (
	"context"
	"errors"
	"fmt"

	"storepay-core/internal/logger"
	"storepay-core/internal/payment"

	"go.uber.org/zap"
)

// Outcome of one reconciliation attempt.
type Outcome string

const (
	// OutcomeApplied means the conditional status write succeeded.
	OutcomeApplied Outcome = "applied"
	// OutcomeNoOp means the order already holds the target status.
	OutcomeNoOp Outcome = "noop"
	// OutcomeDuplicate means this exact event was reconciled before.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeConflict means the transition is not allowed from the
	// order's current status; the order is left untouched.
	OutcomeConflict Outcome = "conflict"
)

// allowedTransitions is the order-status state machine. Paid and
// Cancelled are terminal relative to each other; Refunded is reachable
// only from Paid.
var allowedTransitions = map[payment.NormalizedStatus]map[payment.NormalizedStatus]bool{
	payment.StatusPending: {
		payment.StatusPaid:      true,
		payment.StatusCancelled: true,
	},
	payment.StatusPaid: {
		payment.StatusRefunded: true,
	},
}

// Transition describes one verified inbound event to apply.
type Transition struct {
	EventID   int64
	Provider  string
	OrderID   string
	PaymentID string
	RawStatus string
	Target    payment.NormalizedStatus
}

// Reconciler applies status transitions idempotently. Duplicate detection
// reads the append-only event log, and the write itself is conditional on
// the current status, so no cross-process lock is needed.
type Reconciler struct {
	store  Store
	events payment.EventLog
}

func NewReconciler(store Store, events payment.EventLog) *Reconciler {
	return &Reconciler{store: store, events: events}
}

// Apply runs one transition through the state machine. It returns an
// error only for infrastructure failures; business rejections (conflict,
// duplicate, no-op) are outcomes, logged here and acknowledged upstream.
func (r *Reconciler) Apply(ctx context.Context, t Transition) (Outcome, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("provider", t.Provider),
		zap.String("order_id", t.OrderID),
		zap.String("payment_id", t.PaymentID),
		zap.String("raw_status", t.RawStatus),
		zap.String("target_status", string(t.Target)),
	)

	reconciled, err := r.events.WasReconciled(ctx, t.Provider, t.PaymentID, t.RawStatus)
	if err != nil {
		return "", fmt.Errorf("duplicate check failed: %w", err)
	}
	if reconciled {
		log.Info("duplicate callback, already reconciled")
		return OutcomeDuplicate, nil
	}

	current, err := r.currentStatus(ctx, t.OrderID)
	if err != nil {
		return "", err
	}

	if current == t.Target {
		log.Info("order already in target status")
		r.markReconciled(ctx, t.EventID, log)
		return OutcomeNoOp, nil
	}

	if !allowedTransitions[current][t.Target] {
		log.Warn("rejected order status transition",
			zap.String("current_status", string(current)),
		)
		r.markFailed(ctx, t.EventID, fmt.Sprintf("invalid transition %s -> %s", current, t.Target), log)
		return OutcomeConflict, nil
	}

	ok, err := r.store.UpdateStatusIf(ctx, t.OrderID, current, t.Target)
	if err != nil {
		return "", fmt.Errorf("conditional status update failed: %w", err)
	}
	if !ok {
		// Lost a race with a concurrent callback. Re-read and decide:
		// reaching the target some other way is still success.
		latest, rerr := r.currentStatus(ctx, t.OrderID)
		if rerr != nil {
			return "", rerr
		}
		if latest == t.Target {
			log.Info("concurrent callback already applied target status")
			r.markReconciled(ctx, t.EventID, log)
			return OutcomeNoOp, nil
		}
		log.Warn("lost status race, transition no longer valid",
			zap.String("current_status", string(latest)),
		)
		r.markFailed(ctx, t.EventID, fmt.Sprintf("conflict after race: order is %s", latest), log)
		return OutcomeConflict, nil
	}

	log.Info("order status reconciled",
		zap.String("previous_status", string(current)),
	)
	r.markReconciled(ctx, t.EventID, log)
	return OutcomeApplied, nil
}

func (r *Reconciler) currentStatus(ctx context.Context, orderID string) (payment.NormalizedStatus, error) {
	o, err := r.store.GetOrder(ctx, orderID)
	if errors.Is(err, ErrNotFound) {
		return "", payment.ErrUnknownOrder
	}
	if err != nil {
		return "", fmt.Errorf("order lookup failed: %w", err)
	}
	return o.Status, nil
}

func (r *Reconciler) markReconciled(ctx context.Context, eventID int64, log *zap.Logger) {
	if eventID == 0 {
		return
	}
	if err := r.events.MarkReconciled(ctx, eventID); err != nil {
		log.Error("failed to mark event reconciled", zap.Int64("event_id", eventID), zap.Error(err))
	}
}

func (r *Reconciler) markFailed(ctx context.Context, eventID int64, reason string, log *zap.Logger) {
	if eventID == 0 {
		return
	}
	if err := r.events.MarkFailed(ctx, eventID, reason); err != nil {
		log.Error("failed to mark event failed", zap.Int64("event_id", eventID), zap.Error(err))
	}
}
