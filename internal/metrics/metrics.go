package metrics

import (
	"sync/atomic"
	"time"
)

type Counter struct {
	value uint64
}

func (c *Counter) Inc() {
	atomic.AddUint64(&c.value, 1)
}

func (c *Counter) Add(n uint64) {
	atomic.AddUint64(&c.value, n)
}

func (c *Counter) Load() uint64 {
	return atomic.LoadUint64(&c.value)
}

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Webhook counts callback outcomes across all providers. Counters are
// atomic, so concurrent handlers need no coordination.
type Webhook struct {
	Received          Counter
	SignatureMismatch Counter
	UnknownStatus     Counter
	UnknownOrder      Counter
	Duplicate         Counter
	Conflict          Counter
	Reconciled        Counter
}

// Snapshot returns current counts keyed by outcome name.
func (w *Webhook) Snapshot() map[string]uint64 {
	return map[string]uint64{
		"received":           w.Received.Load(),
		"signature_mismatch": w.SignatureMismatch.Load(),
		"unknown_status":     w.UnknownStatus.Load(),
		"unknown_order":      w.UnknownOrder.Load(),
		"duplicate":          w.Duplicate.Load(),
		"conflict":           w.Conflict.Load(),
		"reconciled":         w.Reconciled.Load(),
	}
}
