package services

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies failures of the booking and webhook flows
type ErrorKind string

const (
	// Booking validation (400)
	KindInvalidProperty     ErrorKind = "InvalidProperty"
	KindInvalidRoomType     ErrorKind = "InvalidRoomType"
	KindOccupancyExceeded   ErrorKind = "OccupancyExceeded"
	KindTooManyAdults       ErrorKind = "TooManyAdults"
	KindTooManyChildren     ErrorKind = "TooManyChildren"
	KindInvalidStayDates    ErrorKind = "InvalidStayDates"
	KindPriceMismatch       ErrorKind = "PriceMismatch"
	KindInvalidGuestDetails ErrorKind = "InvalidGuestDetails"

	// Storage and external dependencies (500)
	KindReservationCreationFailed ErrorKind = "ReservationCreationFailed"
	KindConfirmationCollision     ErrorKind = "ConfirmationCollision"
	KindPaymentGatewayError       ErrorKind = "PaymentGatewayError"

	// Lookups and state (404/409)
	KindReservationNotFound ErrorKind = "ReservationNotFound"
	KindReservationNotOpen  ErrorKind = "ReservationNotAwaitingPayment"
	KindWebhookNotFound     ErrorKind = "WebhookEventNotFound"
	KindAlreadyProcessed    ErrorKind = "WebhookEventAlreadyProcessed"

	// Webhook ingress (400/401)
	KindConfigurationError ErrorKind = "ConfigurationError"
	KindInvalidSignature   ErrorKind = "InvalidSignature"
	KindMalformedEvent     ErrorKind = "MalformedEvent"

	// Reconciliation (recorded on the webhook event, never an HTTP error)
	KindReconciliationFailed ErrorKind = "ReconciliationFailed"

	// Operator auth
	KindInvalidCredentials ErrorKind = "InvalidCredentials"

	KindInternal ErrorKind = "InternalError"
)

var kindStatus = map[ErrorKind]int{
	KindInvalidProperty:           http.StatusBadRequest,
	KindInvalidRoomType:           http.StatusBadRequest,
	KindOccupancyExceeded:         http.StatusBadRequest,
	KindTooManyAdults:             http.StatusBadRequest,
	KindTooManyChildren:           http.StatusBadRequest,
	KindInvalidStayDates:          http.StatusBadRequest,
	KindPriceMismatch:             http.StatusBadRequest,
	KindInvalidGuestDetails:       http.StatusBadRequest,
	KindReservationCreationFailed: http.StatusInternalServerError,
	KindConfirmationCollision:     http.StatusInternalServerError,
	KindPaymentGatewayError:       http.StatusInternalServerError,
	KindReservationNotFound:       http.StatusNotFound,
	KindReservationNotOpen:        http.StatusConflict,
	KindWebhookNotFound:           http.StatusNotFound,
	KindAlreadyProcessed:          http.StatusConflict,
	KindConfigurationError:        http.StatusBadRequest,
	KindInvalidSignature:          http.StatusUnauthorized,
	KindMalformedEvent:            http.StatusBadRequest,
	KindReconciliationFailed:      http.StatusInternalServerError,
	KindInvalidCredentials:        http.StatusUnauthorized,
	KindInternal:                  http.StatusInternalServerError,
}

// HTTPStatus maps a kind to its response status
func (k ErrorKind) HTTPStatus() int {
	if status, ok := kindStatus[k]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Error is a classified service error. Message is safe to show to clients.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, or KindInternal when it is not classified
func KindOf(err error) ErrorKind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindInternal
}
