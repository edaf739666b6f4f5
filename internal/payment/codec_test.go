package payment

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFlatFields(t *testing.T) {
	t.Run("JSON", func(t *testing.T) {
		body := []byte(`{"OrderId":"ord-1","Amount":1920000,"Success":true,"Rate":10.50,"Receipt":{"Items":[]},"PaidAt":null}`)

		fields, err := decodeFlatFields(body, "application/json")
		require.NoError(t, err)

		assert.Equal(t, "ord-1", fields["OrderId"])
		// numeric values keep their exact wire representation
		assert.Equal(t, "1920000", fields["Amount"])
		assert.Equal(t, "10.50", fields["Rate"])
		assert.Equal(t, "true", fields["Success"])
		// nested structures and nulls are excluded
		assert.NotContains(t, fields, "Receipt")
		assert.NotContains(t, fields, "PaidAt")
	})

	t.Run("FormURLEncoded", func(t *testing.T) {
		body := []byte(`status=signed&orderId=ord-2&id=cr-7`)

		fields, err := decodeFlatFields(body, "application/x-www-form-urlencoded")
		require.NoError(t, err)

		assert.Equal(t, "signed", fields["status"])
		assert.Equal(t, "ord-2", fields["orderId"])
		assert.Equal(t, "cr-7", fields["id"])
	})

	t.Run("Base64WrappedJSON", func(t *testing.T) {
		inner := `{"order_id":"ord-3","status":"succeeded"}`
		body := []byte(base64.StdEncoding.EncodeToString([]byte(inner)))

		fields, err := decodeFlatFields(body, "text/plain")
		require.NoError(t, err)

		assert.Equal(t, "ord-3", fields["order_id"])
		assert.Equal(t, "succeeded", fields["status"])
	})

	t.Run("WrongContentTypeFallsBack", func(t *testing.T) {
		// JSON body mislabeled as form data still decodes
		body := []byte(`{"OrderId":"ord-4","Status":"CONFIRMED"}`)

		fields, err := decodeFlatFields(body, "application/x-www-form-urlencoded")
		require.NoError(t, err)
		assert.Equal(t, "ord-4", fields["OrderId"])
	})

	t.Run("MissingContentType", func(t *testing.T) {
		fields, err := decodeFlatFields([]byte(`{"a":"b"}`), "")
		require.NoError(t, err)
		assert.Equal(t, "b", fields["a"])
	})

	t.Run("Undecodable", func(t *testing.T) {
		_, err := decodeFlatFields([]byte{0x00, 0x01, 0x02}, "application/octet-stream")
		assert.Error(t, err)
	})
}
