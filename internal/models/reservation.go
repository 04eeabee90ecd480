package models

import "time"

// ============================================================================
// RESERVATION STATUSES (match DB CHECK constraints)
// ============================================================================

// ReservationStatus is the lifecycle status of a reservation
type ReservationStatus string

const (
	ReservationStatusPending    ReservationStatus = "PENDING"
	ReservationStatusConfirmed  ReservationStatus = "CONFIRMED"
	ReservationStatusCheckedIn  ReservationStatus = "CHECKED_IN"
	ReservationStatusCheckedOut ReservationStatus = "CHECKED_OUT"
	ReservationStatusCancelled  ReservationStatus = "CANCELLED"
	ReservationStatusNoShow     ReservationStatus = "NO_SHOW"
)

// ReservationPaymentStatus is the payment projection kept on the reservation
type ReservationPaymentStatus string

const (
	ReservationPaymentPending       ReservationPaymentStatus = "PENDING"
	ReservationPaymentPaid          ReservationPaymentStatus = "PAID"
	ReservationPaymentPartiallyPaid ReservationPaymentStatus = "PARTIALLY_PAID"
	ReservationPaymentRefunded      ReservationPaymentStatus = "REFUNDED"
	ReservationPaymentFailed        ReservationPaymentStatus = "FAILED"
)

// ReservationSourceWebsite marks reservations created by the booking endpoint
const ReservationSourceWebsite = "WEBSITE"

// ============================================================================
// RESERVATION
// ============================================================================

// Reservation is the central transactional entity of a booking.
// ConfirmationNumber is assigned once at creation and never changes.
type Reservation struct {
	ID                 string                   `json:"id" db:"id"`
	ConfirmationNumber string                   `json:"confirmation_number" db:"confirmation_number"`
	BusinessUnitID     string                   `json:"business_unit_id" db:"business_unit_id"`
	GuestID            string                   `json:"guest_id" db:"guest_id"`
	CheckInDate        time.Time                `json:"check_in_date" db:"check_in_date"`
	CheckOutDate       time.Time                `json:"check_out_date" db:"check_out_date"`
	Nights             int                      `json:"nights" db:"nights"`
	Adults             int                      `json:"adults" db:"adults"`
	Children           int                      `json:"children" db:"children"`
	Subtotal           float64                  `json:"subtotal" db:"subtotal"`
	Taxes              float64                  `json:"taxes" db:"taxes"`
	ServiceFee         float64                  `json:"service_fee" db:"service_fee"`
	TotalAmount        float64                  `json:"total_amount" db:"total_amount"`
	Currency           string                   `json:"currency" db:"currency"`
	Status             ReservationStatus        `json:"status" db:"status"`
	PaymentStatus      ReservationPaymentStatus `json:"payment_status" db:"payment_status"`
	PaymentProvider    *string                  `json:"payment_provider,omitempty" db:"payment_provider"`
	PaymentProviderID  *string                  `json:"payment_provider_id,omitempty" db:"payment_provider_id"`
	Source             string                   `json:"source" db:"source"`
	SpecialRequests    *string                  `json:"special_requests,omitempty" db:"special_requests"`
	GuestNotes         *string                  `json:"guest_notes,omitempty" db:"guest_notes"`
	DeviceInfo         JSONB                    `json:"device_info,omitempty" db:"device_info"`
	PaidAt             *time.Time               `json:"paid_at,omitempty" db:"paid_at"`
	CancelledAt        *time.Time               `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CancellationReason *string                  `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
	CreatedAt          time.Time                `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time                `json:"updated_at" db:"updated_at"`

	// Loaded by the transaction writer, not columns
	Guest        *Guest            `json:"guest,omitempty" db:"-"`
	BusinessUnit *BusinessUnit     `json:"business_unit,omitempty" db:"-"`
	Rooms        []ReservationRoom `json:"rooms,omitempty" db:"-"`
}

// IsAwaitingPayment reports whether a new checkout session may be created
func (r *Reservation) IsAwaitingPayment() bool {
	return r.Status == ReservationStatusPending && r.PaymentStatus == ReservationPaymentPending
}

// ReservationRoom is a room line item of a reservation
type ReservationRoom struct {
	ID            string    `json:"id" db:"id"`
	ReservationID string    `json:"reservation_id" db:"reservation_id"`
	RoomTypeID    string    `json:"room_type_id" db:"room_type_id"`
	RatePerNight  float64   `json:"rate_per_night" db:"rate_per_night"`
	Nights        int       `json:"nights" db:"nights"`
	Adults        int       `json:"adults" db:"adults"`
	Children      int       `json:"children" db:"children"`
	RoomSubtotal  float64   `json:"room_subtotal" db:"room_subtotal"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
