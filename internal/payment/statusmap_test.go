package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusMapper_Map(t *testing.T) {
	mapper := NewStatusMapper()

	tests := []struct {
		name     string
		provider string
		raw      string
		want     NormalizedStatus
	}{
		{"CardConfirmed", ProviderCardGate, "CONFIRMED", StatusPaid},
		{"CardAuthorized", ProviderCardGate, "AUTHORIZED", StatusPending},
		{"CardRejected", ProviderCardGate, "REJECTED", StatusCancelled},
		{"CardDeadlineExpired", ProviderCardGate, "DEADLINE_EXPIRED", StatusCancelled},
		{"CardRefunded", ProviderCardGate, "REFUNDED", StatusRefunded},
		{"CardRefundInFlightStaysPaid", ProviderCardGate, "REFUNDING", StatusPaid},
		{"InstallmentSigned", ProviderInstallment, "signed", StatusPaid},
		{"InstallmentAppointed", ProviderInstallment, "appointed", StatusPending},
		{"InstallmentRefused", ProviderInstallment, "refused", StatusCancelled},
		{"WalletSucceeded", ProviderWallet, "succeeded", StatusPaid},
		{"WalletWaitingForCapture", ProviderWallet, "waiting_for_capture", StatusPending},
		{"WalletCanceled", ProviderWallet, "canceled", StatusCancelled},
		{"UnknownRawStatus", ProviderCardGate, "SOMETHING_NEW", StatusUnknown},
		{"CaseSensitive", ProviderCardGate, "confirmed", StatusUnknown},
		{"VocabulariesAreNotShared", ProviderWallet, "CONFIRMED", StatusUnknown},
		{"UnknownProvider", "paypal", "COMPLETED", StatusUnknown},
		{"EmptyRawStatus", ProviderInstallment, "", StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mapper.Map(tt.provider, tt.raw))
		})
	}
}
