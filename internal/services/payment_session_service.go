package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/staylane/reservation-backend/internal/config"
	"github.com/staylane/reservation-backend/internal/database"
	"github.com/staylane/reservation-backend/internal/models"
)

// PaymentSessionService creates (or reuses) the gateway checkout session for a reservation
type PaymentSessionService struct {
	gateway  PaymentGateway
	payments PaymentStore
	audits   AuditStore
	config   *config.PaymentConfig
	logger   *logrus.Logger
	now      func() time.Time
}

// NewPaymentSessionService creates a new payment session service
func NewPaymentSessionService(
	gateway PaymentGateway,
	payments PaymentStore,
	audits AuditStore,
	cfg *config.PaymentConfig,
	logger *logrus.Logger,
) *PaymentSessionService {
	return &PaymentSessionService{
		gateway:  gateway,
		payments: payments,
		audits:   audits,
		config:   cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Initiate returns a usable checkout session for the reservation. An open
// payment with an active, unexpired session is reused; otherwise a new
// session is created at the gateway and stored. reservation.Guest must be loaded.
func (s *PaymentSessionService) Initiate(ctx context.Context, reservation *models.Reservation) (*models.CheckoutSession, error) {
	if reservation.Guest == nil {
		return nil, newError(KindInternal, "Reservation guest not loaded", nil)
	}

	log := s.logger.WithFields(logrus.Fields{
		"reservation_id":      reservation.ID,
		"confirmation_number": reservation.ConfirmationNumber,
	})

	// 1. Reuse an open session
	if session, err := s.openSession(ctx, reservation); err != nil {
		return nil, err
	} else if session != nil {
		log.WithField("session_id", session.SessionID).Info("Reusing open checkout session")
		s.logAudit(ctx, models.NewPaymentAudit(models.PaymentEventSessionReused, models.PaymentSourceBackend).
			SetReservation(reservation.ID).
			SetPayment(session.PaymentID, session.SessionID))
		return session, nil
	}

	// 2. Attempt number keys the gateway idempotency header
	attempts, err := s.payments.CountByReservation(ctx, reservation.ID)
	if err != nil {
		return nil, newError(KindInternal, "Failed to prepare payment session", err)
	}
	idempotencyKey := fmt.Sprintf("%s:%d", reservation.ID, attempts+1)

	paymentID := uuid.New().String()
	items := buildLineItems(paymentID, reservation)
	params := s.checkoutParams(reservation, items, idempotencyKey)

	// 3. Gateway
	result, err := s.gateway.CreateCheckoutSession(ctx, params)
	if err != nil {
		log.WithError(err).Error("Failed to create checkout session")
		s.logAudit(ctx, models.NewPaymentAudit(models.PaymentEventGatewayError, models.PaymentSourceAPI).
			SetReservation(reservation.ID).
			SetPayloads(models.JSONB{"idempotency_key": idempotencyKey, "reference_number": params.ReferenceNumber}, nil).
			SetError(err.Error()))
		return nil, newError(KindPaymentGatewayError, "Failed to create payment session", err)
	}

	providerPaymentID := result.PaymentIntentID
	if providerPaymentID == "" {
		providerPaymentID = result.SessionID
	}

	now := s.now()
	payment := &models.Payment{
		ID:                paymentID,
		ReservationID:     reservation.ID,
		Amount:            reservation.TotalAmount,
		Currency:          reservation.Currency,
		Status:            models.PaymentStatusPending,
		Provider:          models.PaymentProviderPayMongo,
		ProviderPaymentID: providerPaymentID,
		IdempotencyKey:    &idempotencyKey,
		GuestName:         reservation.Guest.FullName(),
		GuestEmail:        reservation.Guest.Email,
		GuestPhone:        reservation.Guest.Phone,
		RoomTotal:         reservation.Subtotal,
		TaxTotal:          reservation.Taxes,
		FeeTotal:          reservation.ServiceFee,
	}
	session := &models.CheckoutSession{
		ID:          uuid.New().String(),
		PaymentID:   paymentID,
		SessionID:   result.SessionID,
		CheckoutURL: result.CheckoutURL,
		SuccessURL:  params.SuccessURL,
		CancelURL:   params.CancelURL,
		Status:      models.CheckoutSessionActive,
		ExpiresAt:   now.Add(s.sessionTTL()),
	}

	// 4. Persist payment, session and line items together
	if err := s.payments.CreateCheckout(ctx, payment, session, items, result.SessionID); err != nil {
		if errors.Is(err, database.ErrDuplicateIdempotencyKey) {
			// A concurrent attempt with the same key won the insert
			existing, lookupErr := s.openSession(ctx, reservation)
			if lookupErr == nil && existing != nil {
				return existing, nil
			}
		}
		log.WithError(err).Error("Failed to store checkout session")
		return nil, newError(KindInternal, "Failed to store payment session", err)
	}

	audit := models.NewPaymentAudit(models.PaymentEventSessionCreated, models.PaymentSourceBackend).
		SetReservation(reservation.ID).
		SetPayment(payment.ID, providerPaymentID).
		SetPaymentStatus(string(payment.Status)).
		SetPayloads(
			models.JSONB{"idempotency_key": idempotencyKey, "line_items": len(params.LineItems)},
			models.JSONB{"session_id": result.SessionID, "payment_intent_id": result.PaymentIntentID},
		)
	audit.SetAmounts(reservation.TotalAmount, FromMinorUnits(sumGatewayItems(params.LineItems)), reservation.Currency)
	s.logAudit(ctx, audit)

	log.WithFields(logrus.Fields{
		"payment_id":  payment.ID,
		"session_id":  session.SessionID,
		"expires_at":  session.ExpiresAt,
		"amount":      payment.Amount,
		"attempt_key": idempotencyKey,
	}).Info("Checkout session created")

	return session, nil
}

// LatestSession returns the checkout session of the reservation's most recent payment, or nil
func (s *PaymentSessionService) LatestSession(ctx context.Context, reservationID string) (*models.CheckoutSession, error) {
	latest, err := s.payments.GetLatestByReservation(ctx, reservationID)
	if err != nil || latest == nil {
		return nil, err
	}
	return s.payments.GetSessionByPaymentID(ctx, latest.ID)
}

// openSession returns the session of the latest open payment when it can still be used
func (s *PaymentSessionService) openSession(ctx context.Context, reservation *models.Reservation) (*models.CheckoutSession, error) {
	if !reservation.IsAwaitingPayment() {
		return nil, nil
	}

	latest, err := s.payments.GetLatestByReservation(ctx, reservation.ID)
	if err != nil {
		return nil, newError(KindInternal, "Failed to load payment", err)
	}
	if latest == nil || !latest.Status.IsOpen() {
		return nil, nil
	}

	session, err := s.payments.GetSessionByPaymentID(ctx, latest.ID)
	if err != nil {
		return nil, newError(KindInternal, "Failed to load checkout session", err)
	}
	if session == nil || !session.IsUsable(s.now()) {
		return nil, nil
	}
	return session, nil
}

func (s *PaymentSessionService) checkoutParams(reservation *models.Reservation, items []models.PaymentLineItem, idempotencyKey string) *CheckoutSessionParams {
	guest := reservation.Guest

	gatewayItems := make([]GatewayLineItem, 0, len(items))
	for _, item := range items {
		// Gateways reject zero-amount lines
		if item.Amount <= 0 {
			continue
		}
		gatewayItems = append(gatewayItems, GatewayLineItem{
			Amount:      ToMinorUnits(item.UnitAmount),
			Currency:    item.Currency,
			Description: item.Description,
			Name:        item.Name,
			Quantity:    item.Quantity,
		})
	}
	balanceMinorUnits(gatewayItems, ToMinorUnits(reservation.TotalAmount))

	billing := GatewayBilling{
		Name:  guest.FullName(),
		Email: guest.Email,
	}
	if guest.Phone != nil {
		billing.Phone = *guest.Phone
	}

	metadata := map[string]string{
		"reservation_id":      reservation.ID,
		"confirmation_number": reservation.ConfirmationNumber,
		"business_unit_id":    reservation.BusinessUnitID,
		"guest_id":            reservation.GuestID,
		"check_in_date":       reservation.CheckInDate.Format(time.RFC3339),
		"check_out_date":      reservation.CheckOutDate.Format(time.RFC3339),
	}
	if len(reservation.Rooms) > 0 {
		metadata["room_type_id"] = reservation.Rooms[0].RoomTypeID
	}

	base := s.config.AppBaseURL
	return &CheckoutSessionParams{
		LineItems:          gatewayItems,
		PaymentMethodTypes: s.config.PaymentMethods,
		Billing:            billing,
		Description:        fmt.Sprintf("Reservation %s, %d night(s)", reservation.ConfirmationNumber, reservation.Nights),
		ReferenceNumber:    reservation.ConfirmationNumber,
		Metadata:           metadata,
		SuccessURL:         fmt.Sprintf("%s/booking/confirmation?reservation=%s", base, reservation.ID),
		CancelURL:          fmt.Sprintf("%s/booking/payment-cancelled?reservation=%s", base, reservation.ID),
		IdempotencyKey:     idempotencyKey,
	}
}

func (s *PaymentSessionService) sessionTTL() time.Duration {
	if s.config.SessionTTL > 0 {
		return s.config.SessionTTL
	}
	return 24 * time.Hour
}

func (s *PaymentSessionService) logAudit(ctx context.Context, audit *models.PaymentAudit) {
	if err := s.audits.Log(ctx, audit); err != nil {
		s.logger.WithError(err).WithField("event_type", audit.EventType).Warn("Failed to write payment audit")
	}
}

// buildLineItems mirrors the reservation's room/tax/fee breakdown. All three
// rows are kept for the audit trail even when an amount is zero.
func buildLineItems(paymentID string, reservation *models.Reservation) []models.PaymentLineItem {
	nights := reservation.Nights
	if nights <= 0 {
		nights = 1
	}
	rate := reservation.Subtotal / float64(nights)

	return []models.PaymentLineItem{
		{
			ID:          uuid.New().String(),
			PaymentID:   paymentID,
			ItemType:    models.LineItemRoom,
			Name:        "Room",
			Description: fmt.Sprintf("%d night(s), %d adult(s), %d child(ren)", nights, reservation.Adults, reservation.Children),
			Quantity:    1,
			UnitAmount:  reservation.Subtotal,
			Amount:      reservation.Subtotal,
			Currency:    reservation.Currency,
		},
		{
			ID:          uuid.New().String(),
			PaymentID:   paymentID,
			ItemType:    models.LineItemTax,
			Name:        "Taxes",
			Description: fmt.Sprintf("Taxes on %.2f per night", rate),
			Quantity:    1,
			UnitAmount:  reservation.Taxes,
			Amount:      reservation.Taxes,
			Currency:    reservation.Currency,
		},
		{
			ID:          uuid.New().String(),
			PaymentID:   paymentID,
			ItemType:    models.LineItemFee,
			Name:        "Service fee",
			Description: "Booking service fee",
			Quantity:    1,
			UnitAmount:  reservation.ServiceFee,
			Amount:      reservation.ServiceFee,
			Currency:    reservation.Currency,
		},
	}
}

// balanceMinorUnits folds rounding drift into the first line so the gateway
// total equals the reservation total exactly.
func balanceMinorUnits(items []GatewayLineItem, total int64) {
	if len(items) == 0 {
		return
	}
	if diff := total - sumGatewayItems(items); diff != 0 && items[0].Quantity == 1 {
		items[0].Amount += diff
	}
}

func sumGatewayItems(items []GatewayLineItem) int64 {
	var sum int64
	for _, item := range items {
		sum += item.Amount * int64(item.Quantity)
	}
	return sum
}
