package models

import "time"

// ============================================================================
// BOOKING API DTOs
// ============================================================================

// CreateBookingRequest is the body of POST /api/v1/bookings.
// Price fields are computed client-side and re-checked by the validator.
type CreateBookingRequest struct {
	// Guest
	FirstName       string  `json:"firstName" binding:"required,max=100"`
	LastName        string  `json:"lastName" binding:"required,max=100"`
	Email           string  `json:"email" binding:"required,email"`
	Phone           *string `json:"phone,omitempty"`
	SpecialRequests *string `json:"specialRequests,omitempty" binding:"omitempty,max=2000"`
	GuestNotes      *string `json:"guestNotes,omitempty" binding:"omitempty,max=2000"`

	// Stay
	CheckInDate  time.Time `json:"checkInDate" binding:"required"`
	CheckOutDate time.Time `json:"checkOutDate" binding:"required,gtfield=CheckInDate"`
	Adults       int       `json:"adults" binding:"required,min=1"`
	Children     int       `json:"children" binding:"min=0"`

	// Price
	TotalAmount float64 `json:"totalAmount" binding:"required,gt=0"`
	Nights      int     `json:"nights" binding:"required,min=1"`
	Subtotal    float64 `json:"subtotal" binding:"gte=0"`
	Taxes       float64 `json:"taxes" binding:"gte=0"`
	ServiceFee  float64 `json:"serviceFee" binding:"gte=0"`

	// Identifiers
	BusinessUnitID string `json:"businessUnitId" binding:"required,uuid"`
	RoomTypeID     string `json:"roomTypeId" binding:"required,uuid"`
}

// RequestContext carries request metadata captured at the HTTP boundary
type RequestContext struct {
	IPAddress string
	UserAgent string
}

// ValidatedBooking is a booking request that passed every validator rule,
// with normalized guest fields and the resolved catalog rows.
type ValidatedBooking struct {
	Request      CreateBookingRequest
	Email        string
	Phone        *string
	BusinessUnit *BusinessUnit
	RoomType     *RoomType
}

// BookingConfirmation is returned after a booking and its checkout session are created
type BookingConfirmation struct {
	ReservationID      string `json:"reservationId"`
	ConfirmationNumber string `json:"confirmationNumber"`
	CheckoutURL        string `json:"checkoutUrl"`
	PaymentSessionID   string `json:"paymentSessionId"`
}

// PaymentStatusResponse is the projection polled by the booking widget
type PaymentStatusResponse struct {
	ReservationID      string                   `json:"reservationId"`
	ConfirmationNumber string                   `json:"confirmationNumber"`
	Status             ReservationStatus        `json:"status"`
	PaymentStatus      ReservationPaymentStatus `json:"paymentStatus"`
	TotalAmount        float64                  `json:"totalAmount"`
	Currency           string                   `json:"currency"`
	PaidAt             *time.Time               `json:"paidAt,omitempty"`
	CancellationReason *string                  `json:"cancellationReason,omitempty"`
	CheckoutURL        *string                  `json:"checkoutUrl,omitempty"`
}

// NewPaymentStatusResponse projects a reservation and its open checkout session
func NewPaymentStatusResponse(r *Reservation, session *CheckoutSession, now time.Time) *PaymentStatusResponse {
	resp := &PaymentStatusResponse{
		ReservationID:      r.ID,
		ConfirmationNumber: r.ConfirmationNumber,
		Status:             r.Status,
		PaymentStatus:      r.PaymentStatus,
		TotalAmount:        r.TotalAmount,
		Currency:           r.Currency,
		PaidAt:             r.PaidAt,
		CancellationReason: r.CancellationReason,
	}
	if session != nil && r.PaymentStatus == ReservationPaymentPending && session.IsUsable(now) {
		url := session.CheckoutURL
		resp.CheckoutURL = &url
	}
	return resp
}

// WebhookAck is the body returned to the payment gateway
type WebhookAck struct {
	Received  bool   `json:"received"`
	Processed *bool  `json:"processed,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ErrorResponse is the error body of the public API
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
