package payment

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventLog_AppendInbound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	log := NewEventLog(db)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO payment_events`).
			WithArgs(ProviderCardGate, "IN", "ord-1", "pay-1", "CONFIRMED", true, []byte(`{"Status":"CONFIRMED"}`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

		id, err := log.AppendInbound(context.Background(), ProviderCardGate, "ord-1", "pay-1", "CONFIRMED", []byte(`{"Status":"CONFIRMED"}`), true)
		require.NoError(t, err)
		assert.Equal(t, int64(7), id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UnverifiedStillAppends", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO payment_events`).
			WithArgs(ProviderWallet, "IN", "", "pay-2", "succeeded", false, []byte(`{"status":"succeeded"}`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(8)))

		id, err := log.AppendInbound(context.Background(), ProviderWallet, "", "pay-2", "succeeded", []byte(`{"status":"succeeded"}`), false)
		require.NoError(t, err)
		assert.Equal(t, int64(8), id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DBError", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO payment_events`).
			WillReturnError(errors.New("connection reset"))

		_, err := log.AppendInbound(context.Background(), ProviderCardGate, "ord-1", "pay-1", "CONFIRMED", []byte(`{}`), true)
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEventLog_AppendOutbound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	log := NewEventLog(db)

	mock.ExpectQuery(`INSERT INTO payment_events`).
		WithArgs(ProviderInstallment, "OUT", "ord-3", "cr-9", "", true, []byte(`{"orderId":"ord-3"}`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(12)))

	id, err := log.AppendOutbound(context.Background(), ProviderInstallment, "ord-3", "cr-9", []byte(`{"orderId":"ord-3"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventLog_SecretsScrubbedBeforeStorage(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	log := NewEventLog(db)

	payload := []byte(`{"TerminalKey":"tk-1","Password":"s3cret","Amount":100}`)

	mock.ExpectQuery(`INSERT INTO payment_events`).
		WithArgs(ProviderCardGate, "OUT", "ord-1", "", sqlmock.AnyArg(), true, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	_, err = log.AppendOutbound(context.Background(), ProviderCardGate, "ord-1", "", payload)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScrubPayload(t *testing.T) {
	t.Run("RemovesSensitiveKeys", func(t *testing.T) {
		out := scrubPayload([]byte(`{"Password":"s3cret","api_key":"k","Amount":100}`))

		var got map[string]interface{}
		require.NoError(t, json.Unmarshal(out, &got))
		assert.NotContains(t, got, "Password")
		assert.NotContains(t, got, "api_key")
		assert.Equal(t, float64(100), got["Amount"])
	})

	t.Run("CleanPayloadUntouched", func(t *testing.T) {
		in := []byte(`{"Amount":100,"OrderId":"ord-1"}`)
		assert.Equal(t, in, scrubPayload(in))
	})

	t.Run("NonJSONPassthrough", func(t *testing.T) {
		in := []byte(`status=signed&orderId=ord-2`)
		assert.Equal(t, in, scrubPayload(in))
	})
}

func TestEventLog_WasReconciled(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	log := NewEventLog(db)

	t.Run("AlreadyReconciled", func(t *testing.T) {
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(ProviderCardGate, "pay-1", "CONFIRMED").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		seen, err := log.WasReconciled(context.Background(), ProviderCardGate, "pay-1", "CONFIRMED")
		require.NoError(t, err)
		assert.True(t, seen)
	})

	t.Run("NotReconciled", func(t *testing.T) {
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(ProviderCardGate, "pay-1", "REFUNDED").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		seen, err := log.WasReconciled(context.Background(), ProviderCardGate, "pay-1", "REFUNDED")
		require.NoError(t, err)
		assert.False(t, seen)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventLog_Marks(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	log := NewEventLog(db)

	t.Run("MarkReconciled", func(t *testing.T) {
		mock.ExpectExec(`UPDATE payment_events`).
			WithArgs(int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, log.MarkReconciled(context.Background(), 7))
	})

	t.Run("MarkFailed", func(t *testing.T) {
		mock.ExpectExec(`UPDATE payment_events`).
			WithArgs(int64(8), "invalid transition").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, log.MarkFailed(context.Background(), 8, "invalid transition"))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
