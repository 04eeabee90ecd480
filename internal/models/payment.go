package models

import "time"

// PaymentStatus is the status of a single charge attempt
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "PENDING"
	PaymentStatusProcessing PaymentStatus = "PROCESSING"
	PaymentStatusSucceeded  PaymentStatus = "SUCCEEDED"
	PaymentStatusFailed     PaymentStatus = "FAILED"
	PaymentStatusCancelled  PaymentStatus = "CANCELLED"
	PaymentStatusRefunded   PaymentStatus = "REFUNDED"
)

// IsOpen reports whether the payment can still be completed by the guest
func (s PaymentStatus) IsOpen() bool {
	return s == PaymentStatusPending || s == PaymentStatusProcessing
}

// CheckoutSessionStatus mirrors the gateway session state
type CheckoutSessionStatus string

const (
	CheckoutSessionActive  CheckoutSessionStatus = "active"
	CheckoutSessionPaid    CheckoutSessionStatus = "paid"
	CheckoutSessionExpired CheckoutSessionStatus = "expired"
)

// LineItemType identifies a charge component
type LineItemType string

const (
	LineItemRoom LineItemType = "ROOM"
	LineItemTax  LineItemType = "TAX"
	LineItemFee  LineItemType = "FEE"
)

// PaymentProviderPayMongo is the provider name stored on payments and reservations
const PaymentProviderPayMongo = "paymongo"

// Payment is one charge attempt against a reservation.
// ProviderPaymentID is unique across all payments.
type Payment struct {
	ID                string        `json:"id" db:"id"`
	ReservationID     string        `json:"reservation_id" db:"reservation_id"`
	Amount            float64       `json:"amount" db:"amount"`
	Currency          string        `json:"currency" db:"currency"`
	Method            *string       `json:"method,omitempty" db:"method"`
	Status            PaymentStatus `json:"status" db:"status"`
	Provider          string        `json:"provider" db:"provider"`
	ProviderPaymentID string        `json:"provider_payment_id" db:"provider_payment_id"`
	IdempotencyKey    *string       `json:"-" db:"idempotency_key"`

	// Guest snapshot at time of payment
	GuestName  string  `json:"guest_name" db:"guest_name"`
	GuestEmail string  `json:"guest_email" db:"guest_email"`
	GuestPhone *string `json:"guest_phone,omitempty" db:"guest_phone"`

	// Itemized breakdown
	RoomTotal float64 `json:"room_total" db:"room_total"`
	TaxTotal  float64 `json:"tax_total" db:"tax_total"`
	FeeTotal  float64 `json:"fee_total" db:"fee_total"`

	FailureCode    *string    `json:"failure_code,omitempty" db:"failure_code"`
	FailureMessage *string    `json:"failure_message,omitempty" db:"failure_message"`
	ProcessedAt    *time.Time `json:"processed_at,omitempty" db:"processed_at"`
	CapturedAt     *time.Time `json:"captured_at,omitempty" db:"captured_at"`
	FailedAt       *time.Time `json:"failed_at,omitempty" db:"failed_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// PaymentLineItem is one priced component of a payment
type PaymentLineItem struct {
	ID          string       `json:"id" db:"id"`
	PaymentID   string       `json:"payment_id" db:"payment_id"`
	ItemType    LineItemType `json:"item_type" db:"item_type"`
	Name        string       `json:"name" db:"name"`
	Description string       `json:"description" db:"description"`
	Quantity    int          `json:"quantity" db:"quantity"`
	UnitAmount  float64      `json:"unit_amount" db:"unit_amount"`
	Amount      float64      `json:"amount" db:"amount"`
	Currency    string       `json:"currency" db:"currency"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
}

// CheckoutSession is the gateway hosted checkout page for a payment
type CheckoutSession struct {
	ID          string                `json:"id" db:"id"`
	PaymentID   string                `json:"payment_id" db:"payment_id"`
	SessionID   string                `json:"session_id" db:"session_id"`
	CheckoutURL string                `json:"checkout_url" db:"checkout_url"`
	SuccessURL  string                `json:"success_url" db:"success_url"`
	CancelURL   string                `json:"cancel_url" db:"cancel_url"`
	Status      CheckoutSessionStatus `json:"status" db:"status"`
	ExpiresAt   time.Time             `json:"expires_at" db:"expires_at"`
	PaidAt      *time.Time            `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt   time.Time             `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at" db:"updated_at"`
}

// IsUsable reports whether the guest can still be redirected to the session
func (s *CheckoutSession) IsUsable(now time.Time) bool {
	return s.Status == CheckoutSessionActive && s.CheckoutURL != "" && now.Before(s.ExpiresAt)
}

// ProviderPayment holds gateway specific detail of how a payment was fulfilled
type ProviderPayment struct {
	ID                string    `json:"id" db:"id"`
	PaymentID         string    `json:"payment_id" db:"payment_id"`
	Provider          string    `json:"provider" db:"provider"`
	ProviderPaymentID string    `json:"provider_payment_id" db:"provider_payment_id"`
	PaymentMethodType string    `json:"payment_method_type" db:"payment_method_type"`
	BillingName       *string   `json:"billing_name,omitempty" db:"billing_name"`
	BillingEmail      *string   `json:"billing_email,omitempty" db:"billing_email"`
	BillingPhone      *string   `json:"billing_phone,omitempty" db:"billing_phone"`
	Metadata          JSONB     `json:"metadata,omitempty" db:"metadata"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// ProviderCard holds non-sensitive card detail. Full card numbers are never stored.
type ProviderCard struct {
	ID                string    `json:"id" db:"id"`
	ProviderPaymentID string    `json:"provider_payment_id" db:"provider_payment_id"`
	Brand             *string   `json:"brand,omitempty" db:"brand"`
	Last4             *string   `json:"last4,omitempty" db:"last4"`
	ExpMonth          *int      `json:"exp_month,omitempty" db:"exp_month"`
	ExpYear           *int      `json:"exp_year,omitempty" db:"exp_year"`
	Country           *string   `json:"country,omitempty" db:"country"`
	Funding           *string   `json:"funding,omitempty" db:"funding"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}
