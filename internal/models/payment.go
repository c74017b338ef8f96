package models

import "time"

// PaymentStatus represents the status of a payment record
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSuccess   PaymentStatus = "success"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusExpired   PaymentStatus = "expired"
	PaymentStatusRefunded  PaymentStatus = "refunded"
	PaymentStatusChallenge PaymentStatus = "challenge"
)

// PaymentMethod represents how the customer pays
type PaymentMethod string

const (
	PaymentMethodGateway  PaymentMethod = "gateway" // online via Midtrans
	PaymentMethodCounter  PaymentMethod = "counter" // pay at counter, settled immediately
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodTransfer PaymentMethod = "transfer"
)

// IsValid reports whether the method is a recognized payment method
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodGateway, PaymentMethodCounter, PaymentMethodCash, PaymentMethodTransfer:
		return true
	}
	return false
}

// IsPayNow reports whether the method settles immediately. Pay-now bookings
// start confirmed instead of pending; the transition graph treats this as the
// recognized cash/counter shortcut.
func (m PaymentMethod) IsPayNow() bool {
	return m == PaymentMethodCounter || m == PaymentMethodCash
}

// Payment represents one payment record for a booking. Reschedules may add a
// second record against the same booking chain.
type Payment struct {
	ID            string        `json:"id" db:"id"`
	BookingID     string        `json:"booking_id" db:"booking_id"`
	OrderID       string        `json:"order_id" db:"order_id"` // external gateway order reference
	Amount        float64       `json:"amount" db:"amount"`
	Method        PaymentMethod `json:"method" db:"method"`
	Channel       *string       `json:"channel,omitempty" db:"channel"` // bank_transfer, gopay, qris, ...
	Status        PaymentStatus `json:"status" db:"status"`
	TransactionID *string       `json:"transaction_id,omitempty" db:"transaction_id"`
	ExpiryDate    *time.Time    `json:"expiry_date,omitempty" db:"expiry_date"`
	PaidAt        *time.Time    `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}
