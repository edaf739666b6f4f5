package webhook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"storepay-core/internal/logger"
	"storepay-core/internal/metrics"
	"storepay-core/internal/notify"
	"storepay-core/internal/order"
	"storepay-core/internal/payment"

	"go.uber.org/zap"
)

// maxCallbackBody caps webhook bodies; provider payloads are small and an
// unbounded read is an easy DoS.
const maxCallbackBody = 1 << 20

// Handler authenticates inbound provider callbacks, persists them to the
// audit log via the adapters, and drives the status reconciler. Once a
// payload is durably logged the handler always returns the provider's
// success-shaped acknowledgment, even for unverifiable or unprocessable
// events: a non-2xx here only buys a retry storm, and mismatched events
// are never trusted for status writes anyway.
type Handler struct {
	providers  map[string]payment.Provider
	mapper     *payment.StatusMapper
	reconciler *order.Reconciler
	notifier   notify.Notifier
	stats      *metrics.Webhook

	// allowUnverified lets sandbox terminals drive transitions from
	// unverified events. Each use is logged loudly.
	allowUnverified bool
}

func NewHandler(
	svc *payment.Service,
	mapper *payment.StatusMapper,
	reconciler *order.Reconciler,
	notifier notify.Notifier,
	stats *metrics.Webhook,
	allowUnverified bool,
) *Handler {
	providers := make(map[string]payment.Provider)
	for _, name := range svc.Providers() {
		if p, ok := svc.Provider(name); ok {
			providers[name] = p
		}
	}
	return &Handler{
		providers:       providers,
		mapper:          mapper,
		reconciler:      reconciler,
		notifier:        notifier,
		stats:           stats,
		allowUnverified: allowUnverified,
	}
}

// Register mounts one POST endpoint per provider.
func (h *Handler) Register(mux *http.ServeMux) {
	for name, p := range h.providers {
		mux.Handle("/webhook/"+name, h.callbackHandler(p))
	}
}

func (h *Handler) callbackHandler(p payment.Provider) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}

		ctx := r.Context()
		log := logger.FromCtx(ctx).With(zap.String("provider", p.Name()))
		h.stats.Received.Inc()

		body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
		if err != nil {
			log.Error("failed to read callback body", zap.Error(err))
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		result, err := p.ParseCallback(ctx, body, r.Header)
		if err != nil {
			// The payload is not durably logged; a retry is the one
			// thing that can still save this event.
			log.Error("failed to persist callback event", zap.Error(err))
			http.Error(w, "failed to persist event", http.StatusInternalServerError)
			return
		}

		h.process(ctx, p.Name(), result, log)
		h.writeAck(w, p.AckResponse(result.Verified), log)
	})
}

// process runs the status transition pipeline. Every early return is an
// "acknowledge and ignore" path: the event is already in the audit log.
func (h *Handler) process(ctx context.Context, provider string, result *payment.CallbackResult, log *zap.Logger) {
	log = log.With(
		zap.String("order_id", result.OrderID),
		zap.String("payment_id", result.PaymentID),
		zap.String("raw_status", result.RawStatus),
	)

	if !result.Verified {
		h.stats.SignatureMismatch.Inc()
		if !h.allowUnverified {
			log.Warn("skipping status transition for unverified callback")
			return
		}
		log.Warn("sandbox mode: processing unverified callback")
	}

	if result.OrderID == "" {
		h.stats.UnknownOrder.Inc()
		log.Warn("callback carries no order id")
		return
	}

	target := h.mapper.Map(provider, result.RawStatus)
	if target == payment.StatusUnknown {
		h.stats.UnknownStatus.Inc()
		log.Warn("unmapped provider status, ignoring")
		return
	}

	outcome, err := h.reconciler.Apply(ctx, order.Transition{
		EventID:   result.EventID,
		Provider:  provider,
		OrderID:   result.OrderID,
		PaymentID: result.PaymentID,
		RawStatus: result.RawStatus,
		Target:    target,
	})
	if errors.Is(err, payment.ErrUnknownOrder) {
		h.stats.UnknownOrder.Inc()
		log.Warn("callback for unknown order")
		return
	}
	if err != nil {
		log.Error("reconciliation failed", zap.Error(err))
		return
	}

	switch outcome {
	case order.OutcomeApplied:
		h.stats.Reconciled.Inc()
		log.Info("callback reconciled", zap.String("status", string(target)))
		h.notifier.Notify(context.WithoutCancel(ctx), fmt.Sprintf("Order %s is now %s (%s, payment %s)",
			result.OrderID, target, provider, result.PaymentID))
	case order.OutcomeDuplicate:
		h.stats.Duplicate.Inc()
	case order.OutcomeConflict:
		h.stats.Conflict.Inc()
		h.notifier.Notify(context.WithoutCancel(ctx), fmt.Sprintf("Conflicting callback for order %s: %s reported %s",
			result.OrderID, provider, result.RawStatus))
	case order.OutcomeNoOp:
		// already in target status, nothing to report
	}
}

func (h *Handler) writeAck(w http.ResponseWriter, ack payment.Ack, log *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ack.StatusCode)
	if _, err := w.Write(ack.Body); err != nil {
		log.Warn("failed to write acknowledgment", zap.Error(err))
	}
}
