package services

import (
	"bytes"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/seatrans/ferry-booking-backend/internal/config"
	"github.com/seatrans/ferry-booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// MidtransEnvironmentURLs maps environment names to the Snap endpoint
var MidtransEnvironmentURLs = map[string]string{
	"sandbox":    "https://app.sandbox.midtrans.com/snap/v1/transactions",
	"production": "https://app.midtrans.com/snap/v1/transactions",
}

// MidtransStatusURLs maps environment names to the core API base for status
// queries. The order id is appended as /v2/{orderID}/status.
var MidtransStatusURLs = map[string]string{
	"sandbox":    "https://api.sandbox.midtrans.com",
	"production": "https://api.midtrans.com",
}

// MidtransService handles payment gateway integration with Midtrans
type MidtransService struct {
	config *config.MidtransConfig
	logger *logrus.Logger
	client *http.Client
}

// NewMidtransService creates a new Midtrans payment service
func NewMidtransService(cfg *config.MidtransConfig, logger *logrus.Logger) *MidtransService {
	return &MidtransService{
		config: cfg,
		logger: logger,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SnapItem is one line item sent to the Snap API
type SnapItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// SnapTransactionRequest is the request body for Snap transaction creation
type SnapTransactionRequest struct {
	TransactionDetails struct {
		OrderID     string  `json:"order_id"`
		GrossAmount float64 `json:"gross_amount"`
	} `json:"transaction_details"`
	CustomerDetails struct {
		FirstName string `json:"first_name"`
		Email     string `json:"email,omitempty"`
		Phone     string `json:"phone,omitempty"`
	} `json:"customer_details"`
	ItemDetails []SnapItem `json:"item_details,omitempty"`
	Expiry      *struct {
		Unit     string `json:"unit"`
		Duration int    `json:"duration"`
	} `json:"expiry,omitempty"`
}

// SnapTransactionResponse is the Snap API response
type SnapTransactionResponse struct {
	Token       string   `json:"token"`
	RedirectURL string   `json:"redirect_url"`
	ErrorMsgs   []string `json:"error_messages,omitempty"`
}

// TransactionStatusResponse is the core API status query / webhook payload
type TransactionStatusResponse struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	PaymentType       string `json:"payment_type"`
	SignatureKey      string `json:"signature_key"`
	SettlementTime    string `json:"settlement_time,omitempty"`
	StatusMessage     string `json:"status_message,omitempty"`
}

// CreateTransaction creates a Snap transaction and returns the payment token
// and redirect URL.
func (s *MidtransService) CreateTransaction(orderID string, amount float64, customer models.UserProfile, items []SnapItem, expiry time.Duration) (*SnapTransactionResponse, error) {
	if !s.IsConfigured() {
		return nil, fmt.Errorf("payment gateway not configured: missing server key")
	}

	request := &SnapTransactionRequest{}
	request.TransactionDetails.OrderID = orderID
	request.TransactionDetails.GrossAmount = amount
	request.CustomerDetails.FirstName = customer.Name
	request.CustomerDetails.Email = customer.Email
	request.CustomerDetails.Phone = customer.Phone
	request.ItemDetails = items
	if expiry > 0 {
		request.Expiry = &struct {
			Unit     string `json:"unit"`
			Duration int    `json:"duration"`
		}{Unit: "minute", Duration: int(expiry.Minutes())}
	}

	endpointURL, ok := MidtransEnvironmentURLs[s.config.Environment]
	if !ok {
		endpointURL = MidtransEnvironmentURLs["sandbox"]
	}

	jsonBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"amount":   amount,
		"endpoint": endpointURL,
	}).Info("Creating Midtrans Snap transaction")

	req, err := http.NewRequest(http.MethodPost, endpointURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", s.basicAuth())

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &models.GatewayUnavailableError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("payment gateway returned status %d: %s", resp.StatusCode, string(body))
	}

	var snapResp SnapTransactionResponse
	if err := json.Unmarshal(body, &snapResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if snapResp.Token == "" {
		return nil, fmt.Errorf("transaction creation failed: no token returned (%s)", string(body))
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":     orderID,
		"redirect_url": snapResp.RedirectURL,
	}).Info("Midtrans Snap transaction created")

	return &snapResp, nil
}

// QueryStatus queries the current status of a transaction by order id
func (s *MidtransService) QueryStatus(orderID string) (*TransactionStatusResponse, error) {
	baseURL, ok := MidtransStatusURLs[s.config.Environment]
	if !ok {
		baseURL = MidtransStatusURLs["sandbox"]
	}
	statusURL := fmt.Sprintf("%s/v2/%s/status", baseURL, orderID)

	req, err := http.NewRequest(http.MethodGet, statusURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", s.basicAuth())

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &models.GatewayUnavailableError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return nil, &models.GatewayUnavailableError{Err: fmt.Errorf("gateway returned status %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status query returned %d: %s", resp.StatusCode, string(body))
	}

	var statusResp TransactionStatusResponse
	if err := json.Unmarshal(body, &statusResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &statusResp, nil
}

// ParseNotification parses and verifies a webhook notification body. A
// payload whose signature does not match the SHA-512 derivation is rejected;
// nothing downstream may mutate state off an unverified notification.
func (s *MidtransService) ParseNotification(body []byte) (*TransactionStatusResponse, error) {
	var payload TransactionStatusResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("invalid notification payload: %w", err)
	}

	if payload.OrderID == "" || payload.StatusCode == "" {
		return nil, fmt.Errorf("notification missing required fields")
	}

	if !VerifySignature(payload.OrderID, payload.StatusCode, payload.GrossAmount, payload.SignatureKey, s.config.ServerKey) {
		return nil, models.ErrPaymentVerificationFailed
	}

	return &payload, nil
}

// VerifySignature checks a notification signature:
// SHA-512(order_id + status_code + gross_amount + server_key).
// Pure function, no ambient state.
func VerifySignature(orderID, statusCode, grossAmount, signatureKey, serverKey string) bool {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	expected := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signatureKey)) == 1
}

// MapGatewayStatus maps a gateway transaction status (plus fraud status for
// captures) to the internal payment status and the booking status the state
// machine should drive toward. The third return is false for statuses that
// require no action yet (still pending).
func MapGatewayStatus(transactionStatus, fraudStatus string) (models.PaymentStatus, models.BookingStatus, bool) {
	switch transactionStatus {
	case "capture":
		if fraudStatus == "challenge" {
			return models.PaymentStatusChallenge, "", false
		}
		return models.PaymentStatusSuccess, models.BookingStatusConfirmed, true
	case "settlement":
		return models.PaymentStatusSuccess, models.BookingStatusConfirmed, true
	case "deny":
		return models.PaymentStatusFailed, models.BookingStatusCancelled, true
	case "cancel":
		return models.PaymentStatusFailed, models.BookingStatusCancelled, true
	case "expire":
		return models.PaymentStatusExpired, models.BookingStatusExpired, true
	case "refund", "partial_refund":
		return models.PaymentStatusRefunded, models.BookingStatusRefunded, true
	case "pending":
		return models.PaymentStatusPending, "", false
	}
	return models.PaymentStatusPending, "", false
}

// IsConfigured returns true if the gateway is properly configured
func (s *MidtransService) IsConfigured() bool {
	return s.config.ServerKey != ""
}

func (s *MidtransService) basicAuth() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(s.config.ServerKey+":"))
}
