package payment

// Per-provider status vocabularies. These are finite lookup tables, not
// heuristics: a raw status missing from its table maps to StatusUnknown
// and must not drive a reconciliation write.

var cardGateStatuses = map[string]NormalizedStatus{
	"NEW":              StatusPending,
	"FORM_SHOWED":      StatusPending,
	"AUTHORIZING":      StatusPending,
	"AUTHORIZED":       StatusPending,
	"3DS_CHECKING":     StatusPending,
	"3DS_CHECKED":      StatusPending,
	"CONFIRMING":       StatusPending,
	"CONFIRMED":        StatusPaid,
	"REJECTED":         StatusCancelled,
	"CANCELED":         StatusCancelled,
	"DEADLINE_EXPIRED": StatusCancelled,
	"REVERSED":         StatusCancelled,
	"REFUNDING":        StatusPaid,
	"PARTIAL_REFUNDED": StatusRefunded,
	"REFUNDED":         StatusRefunded,
}

var installmentStatuses = map[string]NormalizedStatus{
	"appointed": StatusPending,
	"approved":  StatusPending,
	"signed":    StatusPaid,
	"issued":    StatusPaid,
	"canceled":  StatusCancelled,
	"rejected":  StatusCancelled,
	"refused":   StatusCancelled,
	"refunded":  StatusRefunded,
}

var walletStatuses = map[string]NormalizedStatus{
	"pending":             StatusPending,
	"waiting_for_capture": StatusPending,
	"succeeded":           StatusPaid,
	"canceled":            StatusCancelled,
	"refunded":            StatusRefunded,
}

// StatusMapper resolves a provider's raw status string into the internal
// enum.
type StatusMapper struct {
	tables map[string]map[string]NormalizedStatus
}

func NewStatusMapper() *StatusMapper {
	return &StatusMapper{
		tables: map[string]map[string]NormalizedStatus{
			ProviderCardGate:    cardGateStatuses,
			ProviderInstallment: installmentStatuses,
			ProviderWallet:      walletStatuses,
		},
	}
}

// Map returns StatusUnknown for unmapped providers or raw statuses.
func (m *StatusMapper) Map(provider, rawStatus string) NormalizedStatus {
	table, ok := m.tables[provider]
	if !ok {
		return StatusUnknown
	}
	status, ok := table[rawStatus]
	if !ok {
		return StatusUnknown
	}
	return status
}
