package services

import (
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"io"
	"testing"

	"github.com/seatrans/ferry-booking-backend/internal/config"
	"github.com/seatrans/ferry-booking-backend/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signPayload(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestVerifySignature(t *testing.T) {
	serverKey := "SB-Mid-server-testkey"
	orderID := "FRY-20260901-A1B2C3"
	statusCode := "200"
	grossAmount := "350000.00"

	valid := signPayload(orderID, statusCode, grossAmount, serverKey)

	assert.True(t, VerifySignature(orderID, statusCode, grossAmount, valid, serverKey))

	t.Run("signature computed with a different server key is rejected", func(t *testing.T) {
		forged := signPayload(orderID, statusCode, grossAmount, "attacker-key")
		assert.False(t, VerifySignature(orderID, statusCode, grossAmount, forged, serverKey))
	})

	t.Run("tampered amount is rejected", func(t *testing.T) {
		assert.False(t, VerifySignature(orderID, statusCode, "1.00", valid, serverKey))
	})

	t.Run("tampered order id is rejected", func(t *testing.T) {
		assert.False(t, VerifySignature("FRY-20260901-XXXXXX", statusCode, grossAmount, valid, serverKey))
	})

	t.Run("empty signature is rejected", func(t *testing.T) {
		assert.False(t, VerifySignature(orderID, statusCode, grossAmount, "", serverKey))
	})
}

func TestParseNotification(t *testing.T) {
	serverKey := "SB-Mid-server-testkey"
	svc := NewMidtransService(&config.MidtransConfig{
		Environment: "sandbox",
		ServerKey:   serverKey,
	}, testLogger())

	payload := TransactionStatusResponse{
		OrderID:           "FRY-20260901-A1B2C3",
		StatusCode:        "200",
		GrossAmount:       "350000.00",
		TransactionStatus: "settlement",
		PaymentType:       "qris",
	}
	payload.SignatureKey = signPayload(payload.OrderID, payload.StatusCode, payload.GrossAmount, serverKey)

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	parsed, err := svc.ParseNotification(body)
	require.NoError(t, err)
	assert.Equal(t, "settlement", parsed.TransactionStatus)
	assert.Equal(t, payload.OrderID, parsed.OrderID)

	t.Run("invalid signature", func(t *testing.T) {
		bad := payload
		bad.SignatureKey = signPayload(payload.OrderID, payload.StatusCode, payload.GrossAmount, "wrong-key")
		body, err := json.Marshal(bad)
		require.NoError(t, err)

		_, err = svc.ParseNotification(body)
		assert.ErrorIs(t, err, models.ErrPaymentVerificationFailed)
	})

	t.Run("malformed body", func(t *testing.T) {
		_, err := svc.ParseNotification([]byte("{not json"))
		assert.Error(t, err)
	})

	t.Run("missing order id", func(t *testing.T) {
		_, err := svc.ParseNotification([]byte(`{"status_code":"200"}`))
		assert.Error(t, err)
	})
}

func TestMapGatewayStatus(t *testing.T) {
	tests := []struct {
		name        string
		txStatus    string
		fraudStatus string
		payment     models.PaymentStatus
		booking     models.BookingStatus
		actionable  bool
	}{
		{"settlement confirms", "settlement", "", models.PaymentStatusSuccess, models.BookingStatusConfirmed, true},
		{"capture accepted confirms", "capture", "accept", models.PaymentStatusSuccess, models.BookingStatusConfirmed, true},
		{"capture challenged holds", "capture", "challenge", models.PaymentStatusChallenge, "", false},
		{"deny cancels", "deny", "", models.PaymentStatusFailed, models.BookingStatusCancelled, true},
		{"cancel cancels", "cancel", "", models.PaymentStatusFailed, models.BookingStatusCancelled, true},
		{"expire expires", "expire", "", models.PaymentStatusExpired, models.BookingStatusExpired, true},
		{"refund refunds", "refund", "", models.PaymentStatusRefunded, models.BookingStatusRefunded, true},
		{"partial refund refunds", "partial_refund", "", models.PaymentStatusRefunded, models.BookingStatusRefunded, true},
		{"pending waits", "pending", "", models.PaymentStatusPending, "", false},
		{"unknown status waits", "authorize", "", models.PaymentStatusPending, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payment, booking, actionable := MapGatewayStatus(tt.txStatus, tt.fraudStatus)
			assert.Equal(t, tt.payment, payment)
			assert.Equal(t, tt.booking, booking)
			assert.Equal(t, tt.actionable, actionable)
		})
	}
}
