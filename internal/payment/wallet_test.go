package payment

import (
	"context"
	"encoding/base64"
	"net/http"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storepay-core/internal/config"
)

const testWalletKey = "wallet-api-key"

func newWalletGatewayForTest(events EventLog) Provider {
	return NewWalletGateway(config.WalletCredentials{
		MerchantID:  "m-100",
		APIKey:      testWalletKey,
		Environment: "sandbox",
	}, events)
}

func walletToken(t *testing.T, paymentID, key string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &walletClaims{PaymentID: paymentID}).
		SignedString([]byte(key))
	require.NoError(t, err)
	return token
}

func TestWalletGateway_CreatePayment(t *testing.T) {
	t.Run("ReturnsSDKConfig", func(t *testing.T) {
		events := newMemEventLog()
		g := newWalletGatewayForTest(events)

		result, err := g.CreatePayment(context.Background(), PaymentRequest{
			OrderID:     "ord-1",
			AmountMinor: 2500,
			Currency:    "RUB",
			Description: "subscription",
		})
		require.NoError(t, err)

		assert.Empty(t, result.PaymentURL)
		assert.Empty(t, result.ProviderPaymentID)
		assert.Equal(t, "m-100", result.SDKConfig["merchant_id"])
		assert.Equal(t, "sandbox", result.SDKConfig["environment"])
		assert.Equal(t, "ord-1", result.SDKConfig["order_id"])
		assert.Equal(t, "2500", result.SDKConfig["amount_minor"])

		require.Len(t, events.outbound, 1)
		assert.Equal(t, "ord-1", events.outbound[0].orderID)
	})

	t.Run("MissingCredentials", func(t *testing.T) {
		g := NewWalletGateway(config.WalletCredentials{}, newMemEventLog())

		_, err := g.CreatePayment(context.Background(), PaymentRequest{
			OrderID: "ord-1", AmountMinor: 100,
		})
		require.Error(t, err)
		assert.True(t, IsConfigError(err))
	})

	t.Run("EnvironmentDefaultsToSandbox", func(t *testing.T) {
		g := NewWalletGateway(config.WalletCredentials{
			MerchantID: "m-100", APIKey: testWalletKey,
		}, newMemEventLog())

		result, err := g.CreatePayment(context.Background(), PaymentRequest{
			OrderID: "ord-2", AmountMinor: 100,
		})
		require.NoError(t, err)
		assert.Equal(t, "sandbox", result.SDKConfig["environment"])
	})
}

func TestWalletGateway_ParseCallback(t *testing.T) {
	body := []byte(`{"order_id":"ord-1","payment_id":"wp-9","status":"succeeded"}`)

	header := func(token string) http.Header {
		h := http.Header{}
		h.Set("Content-Type", "application/json")
		if token != "" {
			h.Set(walletTokenHeader, token)
		}
		return h
	}

	t.Run("Verified", func(t *testing.T) {
		events := newMemEventLog()
		g := newWalletGatewayForTest(events)

		result, err := g.ParseCallback(context.Background(), body,
			header(walletToken(t, "wp-9", testWalletKey)))
		require.NoError(t, err)
		assert.True(t, result.Verified)
		assert.Equal(t, "ord-1", result.OrderID)
		assert.Equal(t, "wp-9", result.PaymentID)
		assert.Equal(t, "succeeded", result.RawStatus)
		require.Len(t, events.inbound, 1)
	})

	t.Run("Base64WrappedBody", func(t *testing.T) {
		g := newWalletGatewayForTest(newMemEventLog())

		wrapped := []byte(base64.StdEncoding.EncodeToString(body))
		result, err := g.ParseCallback(context.Background(), wrapped,
			header(walletToken(t, "wp-9", testWalletKey)))
		require.NoError(t, err)
		assert.True(t, result.Verified)
		assert.Equal(t, "ord-1", result.OrderID)
	})

	t.Run("TokenPaymentIDMismatch", func(t *testing.T) {
		events := newMemEventLog()
		g := newWalletGatewayForTest(events)

		result, err := g.ParseCallback(context.Background(), body,
			header(walletToken(t, "wp-other", testWalletKey)))
		require.NoError(t, err)
		assert.False(t, result.Verified)

		require.Len(t, events.inbound, 1)
		assert.False(t, events.inbound[0].verified)
	})

	t.Run("WrongSigningKey", func(t *testing.T) {
		g := newWalletGatewayForTest(newMemEventLog())

		result, err := g.ParseCallback(context.Background(), body,
			header(walletToken(t, "wp-9", "attacker-key")))
		require.NoError(t, err)
		assert.False(t, result.Verified)
	})

	t.Run("MissingToken", func(t *testing.T) {
		g := newWalletGatewayForTest(newMemEventLog())

		result, err := g.ParseCallback(context.Background(), body, header(""))
		require.NoError(t, err)
		assert.False(t, result.Verified)
	})

	t.Run("EmptyPaymentIDNeverVerifies", func(t *testing.T) {
		g := newWalletGatewayForTest(newMemEventLog())

		noID := []byte(`{"order_id":"ord-1","status":"succeeded"}`)
		result, err := g.ParseCallback(context.Background(), noID,
			header(walletToken(t, "", testWalletKey)))
		require.NoError(t, err)
		assert.False(t, result.Verified)
	})
}

func TestWalletGateway_AckResponse(t *testing.T) {
	g := newWalletGatewayForTest(newMemEventLog())

	ack := g.AckResponse(false)
	assert.Equal(t, http.StatusOK, ack.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, string(ack.Body))
}
