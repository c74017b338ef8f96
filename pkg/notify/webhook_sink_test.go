package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookSinkPublish(t *testing.T) {
	var received Event
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sink := NewWebhookSink(server.URL)
	err := sink.Publish(Event{
		Type:     EventBookingConfirmed,
		Title:    "Booking Confirmed",
		Message:  "Your booking FRY-20260901-A1B2C3 is confirmed.",
		Priority: PriorityNormal,
		UserID:   "user-1",
		Data:     map[string]interface{}{"booking_code": "FRY-20260901-A1B2C3"},
	})
	require.NoError(t, err)

	assert.Equal(t, EventBookingConfirmed, received.Type)
	assert.Equal(t, "user-1", received.UserID)
	assert.Equal(t, "FRY-20260901-A1B2C3", received.Data["booking_code"])
}

func TestWebhookSinkPublishServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sink := NewWebhookSink(server.URL)
	err := sink.Publish(Event{Type: EventPaymentSuccess, Title: "Payment Received"})
	assert.ErrorContains(t, err, "status 500")
}

func TestWebhookSinkPublishUnreachable(t *testing.T) {
	sink := NewWebhookSink("http://127.0.0.1:1")
	err := sink.Publish(Event{Type: EventPaymentSuccess})
	assert.Error(t, err)
}
