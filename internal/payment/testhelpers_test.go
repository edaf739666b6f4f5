package payment

import (
	"context"
	"sync"
)

// memEventLog is an in-memory EventLog for adapter tests.
type memEventLog struct {
	mu         sync.Mutex
	outbound   []memEvent
	inbound    []memEvent
	reconciled map[int64]bool
	failures   map[int64]string
	nextID     int64
	appendErr  error
}

type memEvent struct {
	id        int64
	provider  string
	orderID   string
	paymentID string
	rawStatus string
	payload   []byte
	verified  bool
}

func newMemEventLog() *memEventLog {
	return &memEventLog{
		reconciled: make(map[int64]bool),
		failures:   make(map[int64]string),
	}
}

func (m *memEventLog) AppendOutbound(_ context.Context, provider, orderID, paymentID string, payload []byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return 0, m.appendErr
	}
	m.nextID++
	m.outbound = append(m.outbound, memEvent{
		id: m.nextID, provider: provider, orderID: orderID, paymentID: paymentID, payload: payload, verified: true,
	})
	return m.nextID, nil
}

func (m *memEventLog) AppendInbound(_ context.Context, provider, orderID, paymentID, rawStatus string, payload []byte, verified bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return 0, m.appendErr
	}
	m.nextID++
	m.inbound = append(m.inbound, memEvent{
		id: m.nextID, provider: provider, orderID: orderID, paymentID: paymentID,
		rawStatus: rawStatus, payload: payload, verified: verified,
	})
	return m.nextID, nil
}

func (m *memEventLog) WasReconciled(_ context.Context, provider, paymentID, rawStatus string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ev := range m.inbound {
		if ev.provider == provider && ev.paymentID == paymentID && ev.rawStatus == rawStatus && m.reconciled[ev.id] {
			return true, nil
		}
	}
	return false, nil
}

func (m *memEventLog) MarkReconciled(_ context.Context, eventID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconciled[eventID] = true
	return nil
}

func (m *memEventLog) MarkFailed(_ context.Context, eventID int64, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[eventID] = reason
	return nil
}
