package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/staylane/reservation-backend/internal/database"
	"github.com/staylane/reservation-backend/internal/models"
	"github.com/staylane/reservation-backend/internal/utils"
)

// maxConfirmationAttempts bounds retries after a confirmation number collision
const maxConfirmationAttempts = 3

// BookingService runs the booking flow: validate, write the reservation
// atomically, then open a checkout session.
type BookingService struct {
	validator    *BookingValidator
	reservations ReservationStore
	sessions     *PaymentSessionService
	logger       *logrus.Logger

	newConfirmationNumber func() (string, error)
	now                   func() time.Time
}

// NewBookingService creates a new booking service
func NewBookingService(
	validator *BookingValidator,
	reservations ReservationStore,
	sessions *PaymentSessionService,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		validator:             validator,
		reservations:          reservations,
		sessions:              sessions,
		logger:                logger,
		newConfirmationNumber: GenerateConfirmationNumber,
		now:                   time.Now,
	}
}

// ============================================================================
// CREATE BOOKING
// ============================================================================

// CreateBooking validates the request, creates the guest, reservation and room
// in one transaction and returns the checkout URL to redirect the guest to.
func (s *BookingService) CreateBooking(
	ctx context.Context,
	req *models.CreateBookingRequest,
	rc models.RequestContext,
) (*models.BookingConfirmation, error) {
	// 1. Validate (no writes)
	validated, err := s.validator.Validate(ctx, req)
	if err != nil {
		var svcErr *Error
		if errors.As(err, &svcErr) {
			return nil, err
		}
		return nil, newError(KindInternal, "Failed to validate booking", err)
	}

	// 2. Reservation transaction
	reservation, err := s.createReservation(ctx, validated, rc)
	if err != nil {
		return nil, err
	}
	reservation.BusinessUnit = validated.BusinessUnit

	s.logger.WithFields(logrus.Fields{
		"reservation_id":      reservation.ID,
		"confirmation_number": reservation.ConfirmationNumber,
		"business_unit_id":    reservation.BusinessUnitID,
		"guest_id":            reservation.GuestID,
		"total_amount":        reservation.TotalAmount,
		"nights":              reservation.Nights,
	}).Info("Reservation created")

	// 3. Checkout session. On failure the reservation stays PENDING and the
	// session can be retried against it.
	session, err := s.sessions.Initiate(ctx, reservation)
	if err != nil {
		return nil, err
	}

	return &models.BookingConfirmation{
		ReservationID:      reservation.ID,
		ConfirmationNumber: reservation.ConfirmationNumber,
		CheckoutURL:        session.CheckoutURL,
		PaymentSessionID:   session.SessionID,
	}, nil
}

func (s *BookingService) createReservation(
	ctx context.Context,
	validated *models.ValidatedBooking,
	rc models.RequestContext,
) (*models.Reservation, error) {
	req := validated.Request
	nights := req.Nights

	guest := &models.Guest{
		ID:             uuid.New().String(),
		BusinessUnitID: validated.BusinessUnit.ID,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          validated.Email,
		Phone:          validated.Phone,
		Source:         models.GuestSourceWebsite,
	}

	deviceInfo := models.JSONB(utils.ParseUserAgent(rc.UserAgent).ToMap())
	if rc.IPAddress != "" {
		deviceInfo["ip_address"] = rc.IPAddress
	}

	reservation := &models.Reservation{
		ID:              uuid.New().String(),
		BusinessUnitID:  validated.BusinessUnit.ID,
		CheckInDate:     req.CheckInDate,
		CheckOutDate:    req.CheckOutDate,
		Nights:          nights,
		Adults:          req.Adults,
		Children:        req.Children,
		Subtotal:        req.Subtotal,
		Taxes:           req.Taxes,
		ServiceFee:      req.ServiceFee,
		TotalAmount:     req.TotalAmount,
		Currency:        validated.BusinessUnit.Currency,
		Status:          models.ReservationStatusPending,
		PaymentStatus:   models.ReservationPaymentPending,
		Source:          models.ReservationSourceWebsite,
		SpecialRequests: req.SpecialRequests,
		GuestNotes:      req.GuestNotes,
		DeviceInfo:      deviceInfo,
	}

	room := &models.ReservationRoom{
		ID:           uuid.New().String(),
		RoomTypeID:   validated.RoomType.ID,
		RatePerNight: req.Subtotal / float64(nights),
		Nights:       nights,
		Adults:       req.Adults,
		Children:     req.Children,
		RoomSubtotal: req.Subtotal,
	}

	for attempt := 1; attempt <= maxConfirmationAttempts; attempt++ {
		number, err := s.newConfirmationNumber()
		if err != nil {
			return nil, newError(KindReservationCreationFailed, "Failed to create reservation", err)
		}
		reservation.ConfirmationNumber = number

		err = s.reservations.CreateWithGuest(ctx, guest, reservation, room)
		if err == nil {
			return reservation, nil
		}
		if !errors.Is(err, database.ErrConfirmationCollision) {
			s.logger.WithError(err).WithField("business_unit_id", reservation.BusinessUnitID).Error("Reservation transaction failed")
			return nil, newError(KindReservationCreationFailed, "Failed to create reservation", err)
		}

		s.logger.WithFields(logrus.Fields{
			"confirmation_number": number,
			"attempt":             attempt,
		}).Warn("Confirmation number collision, regenerating")
	}

	return nil, newError(KindConfirmationCollision, "Failed to allocate a confirmation number", database.ErrConfirmationCollision)
}

// ============================================================================
// PAYMENT STATUS / RETRY
// ============================================================================

// GetPaymentStatus returns the status projection polled by the booking widget
func (s *BookingService) GetPaymentStatus(ctx context.Context, reservationID string) (*models.PaymentStatusResponse, error) {
	reservation, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, newError(KindInternal, "Failed to load reservation", err)
	}
	if reservation == nil {
		return nil, newError(KindReservationNotFound, "Reservation not found", nil)
	}

	session, err := s.sessions.LatestSession(ctx, reservation.ID)
	if err != nil {
		return nil, newError(KindInternal, "Failed to load checkout session", err)
	}

	return models.NewPaymentStatusResponse(reservation, session, s.now()), nil
}

// RetryPaymentSession returns a usable checkout session for a reservation that
// is still awaiting payment, creating a new one if the last one expired.
func (s *BookingService) RetryPaymentSession(ctx context.Context, reservationID string) (*models.BookingConfirmation, error) {
	reservation, err := s.reservations.GetWithDetails(ctx, reservationID)
	if err != nil {
		return nil, newError(KindInternal, "Failed to load reservation", err)
	}
	if reservation == nil {
		return nil, newError(KindReservationNotFound, "Reservation not found", nil)
	}
	if !reservation.IsAwaitingPayment() {
		return nil, newError(KindReservationNotOpen, "Reservation is not awaiting payment", nil)
	}

	session, err := s.sessions.Initiate(ctx, reservation)
	if err != nil {
		return nil, err
	}

	return &models.BookingConfirmation{
		ReservationID:      reservation.ID,
		ConfirmationNumber: reservation.ConfirmationNumber,
		CheckoutURL:        session.CheckoutURL,
		PaymentSessionID:   session.SessionID,
	}, nil
}
