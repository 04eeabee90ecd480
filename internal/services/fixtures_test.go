package services

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/staylane/reservation-backend/internal/config"
	"github.com/staylane/reservation-backend/internal/database"
	"github.com/staylane/reservation-backend/internal/models"
)

const (
	testUnitID     = "6f1c2f7e-8a57-4a0e-9a55-1f0b8b1f3c01"
	testRoomTypeID = "0b3c5a7e-2d4f-4e61-8a9b-7c6d5e4f3a02"
	testOtherRoom  = "9e8d7c6b-5a49-4382-9170-6f5e4d3c2b03"
	testSecret     = "whsk_test_secret"
)

// fixtureStore is an in-memory implementation of every store interface
type fixtureStore struct {
	mu  sync.Mutex
	seq int

	units     map[string]*models.BusinessUnit
	roomTypes map[string]*models.RoomType

	guests       map[string]*models.Guest
	reservations map[string]*models.Reservation
	rooms        map[string][]models.ReservationRoom

	payments         []*models.Payment
	sessions         map[string]*models.CheckoutSession // by payment id
	lineItems        map[string][]models.PaymentLineItem
	providerPayments map[string]*models.ProviderPayment // by payment id
	cards            map[string]*models.ProviderCard    // by provider payment row id

	events map[string]*models.WebhookEvent
	audits []models.PaymentAudit

	// failure injection
	collisions       int
	createErr        error
	upsertEventErr   error
	succeededUpdates int
}

func newFixtureStore() *fixtureStore {
	s := &fixtureStore{
		units:            map[string]*models.BusinessUnit{},
		roomTypes:        map[string]*models.RoomType{},
		guests:           map[string]*models.Guest{},
		reservations:     map[string]*models.Reservation{},
		rooms:            map[string][]models.ReservationRoom{},
		sessions:         map[string]*models.CheckoutSession{},
		lineItems:        map[string][]models.PaymentLineItem{},
		providerPayments: map[string]*models.ProviderPayment{},
		cards:            map[string]*models.ProviderCard{},
		events:           map[string]*models.WebhookEvent{},
	}
	s.units[testUnitID] = &models.BusinessUnit{
		ID: testUnitID, Name: "Harbor View Hotel", Slug: "harbor-view", Currency: "PHP", IsActive: true,
	}
	s.roomTypes[testRoomTypeID] = &models.RoomType{
		ID: testRoomTypeID, BusinessUnitID: testUnitID, Name: "Deluxe King",
		BaseRate: 5500, MaxOccupancy: 4, MaxAdults: 3, MaxChildren: 2, IsActive: true,
	}
	return s
}

func (s *fixtureStore) tick() time.Time {
	s.seq++
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(s.seq) * time.Second)
}

// ---------------------------------------------------------------------------
// CatalogStore

func (s *fixtureStore) GetBusinessUnit(ctx context.Context, id string) (*models.BusinessUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.units[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (s *fixtureStore) GetRoomType(ctx context.Context, id string) (*models.RoomType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rt, ok := s.roomTypes[id]; ok {
		cp := *rt
		return &cp, nil
	}
	return nil, nil
}

// ---------------------------------------------------------------------------
// ReservationStore

func (s *fixtureStore) CreateWithGuest(ctx context.Context, guest *models.Guest, reservation *models.Reservation, room *models.ReservationRoom) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.createErr != nil {
		return s.createErr
	}
	if s.collisions > 0 {
		s.collisions--
		return database.ErrConfirmationCollision
	}
	for _, r := range s.reservations {
		if r.ConfirmationNumber == reservation.ConfirmationNumber {
			return database.ErrConfirmationCollision
		}
	}

	// Guest upsert on (business unit, email), applied only with the reservation
	stored := s.findGuest(guest.BusinessUnitID, guest.Email)
	var next models.Guest
	if stored != nil {
		next = *stored
		next.FirstName = guest.FirstName
		next.LastName = guest.LastName
		if guest.Phone != nil {
			next.Phone = guest.Phone
		}
	} else {
		next = *guest
		next.CreatedAt = s.tick()
	}
	next.UpdatedAt = s.tick()
	s.guests[next.ID] = &next
	*guest = next

	reservation.GuestID = next.ID
	reservation.CreatedAt = s.tick()
	reservation.UpdatedAt = reservation.CreatedAt
	room.ReservationID = reservation.ID
	room.CreatedAt = reservation.CreatedAt

	cp := *reservation
	cp.Guest, cp.BusinessUnit, cp.Rooms = nil, nil, nil
	s.reservations[reservation.ID] = &cp
	s.rooms[reservation.ID] = []models.ReservationRoom{*room}

	reservation.Guest = guest
	reservation.Rooms = []models.ReservationRoom{*room}
	return nil
}

func (s *fixtureStore) findGuest(unitID, email string) *models.Guest {
	for _, g := range s.guests {
		if g.BusinessUnitID == unitID && g.Email == email {
			return g
		}
	}
	return nil
}

func (s *fixtureStore) GetByID(ctx context.Context, id string) (*models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.reservations[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (s *fixtureStore) GetWithDetails(ctx context.Context, id string) (*models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	if g, ok := s.guests[r.GuestID]; ok {
		gc := *g
		cp.Guest = &gc
	}
	cp.Rooms = append([]models.ReservationRoom(nil), s.rooms[id]...)
	return &cp, nil
}

func (s *fixtureStore) MarkPaid(ctx context.Context, id string, paidAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok {
		return false, nil
	}
	r.PaymentStatus = models.ReservationPaymentPaid
	if r.Status == models.ReservationStatusPending || r.Status == models.ReservationStatusCancelled {
		r.Status = models.ReservationStatusConfirmed
	}
	if r.PaidAt == nil {
		r.PaidAt = &paidAt
	}
	return true, nil
}

func (s *fixtureStore) MarkPaymentFailed(ctx context.Context, id, reason string, failedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok || r.PaymentStatus == models.ReservationPaymentPaid {
		return false, nil
	}
	r.PaymentStatus = models.ReservationPaymentFailed
	r.Status = models.ReservationStatusCancelled
	if r.CancelledAt == nil {
		r.CancelledAt = &failedAt
	}
	r.CancellationReason = &reason
	return true, nil
}

// ---------------------------------------------------------------------------
// PaymentStore

func (s *fixtureStore) CreateCheckout(ctx context.Context, payment *models.Payment, session *models.CheckoutSession, items []models.PaymentLineItem, providerReference string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.payments {
		if payment.IdempotencyKey != nil && p.IdempotencyKey != nil && *p.IdempotencyKey == *payment.IdempotencyKey {
			return database.ErrDuplicateIdempotencyKey
		}
		if p.ProviderPaymentID == payment.ProviderPaymentID {
			return fmt.Errorf("duplicate provider payment id %s", payment.ProviderPaymentID)
		}
	}

	payment.CreatedAt = s.tick()
	payment.UpdatedAt = payment.CreatedAt
	pc := *payment
	s.payments = append(s.payments, &pc)

	session.CreatedAt = payment.CreatedAt
	sc := *session
	s.sessions[payment.ID] = &sc
	s.lineItems[payment.ID] = append([]models.PaymentLineItem(nil), items...)

	if r, ok := s.reservations[payment.ReservationID]; ok {
		provider := payment.Provider
		ref := providerReference
		r.PaymentProvider = &provider
		r.PaymentProviderID = &ref
	}
	return nil
}

func (s *fixtureStore) CountByReservation(ctx context.Context, reservationID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.payments {
		if p.ReservationID == reservationID {
			n++
		}
	}
	return n, nil
}

func (s *fixtureStore) GetLatestByReservation(ctx context.Context, reservationID string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.payments) - 1; i >= 0; i-- {
		if s.payments[i].ReservationID == reservationID {
			cp := *s.payments[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fixtureStore) GetSessionByPaymentID(ctx context.Context, paymentID string) (*models.CheckoutSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cs, ok := s.sessions[paymentID]; ok {
		cp := *cs
		return &cp, nil
	}
	return nil, nil
}

func (s *fixtureStore) findPayment(reservationID string, providerIDs []string) *models.Payment {
	for i := len(s.payments) - 1; i >= 0; i-- {
		p := s.payments[i]
		if reservationID != "" && p.ReservationID != reservationID {
			continue
		}
		for _, id := range providerIDs {
			if p.ProviderPaymentID == id {
				return p
			}
		}
	}
	return nil
}

func (s *fixtureStore) FindByProviderIDs(ctx context.Context, providerIDs []string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.findPayment("", providerIDs); p != nil {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (s *fixtureStore) FindByReservationAndProviderIDs(ctx context.Context, reservationID string, providerIDs []string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.findPayment(reservationID, providerIDs); p != nil {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (s *fixtureStore) CreateIfAbsent(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.findPayment("", []string{payment.ProviderPaymentID}); p != nil {
		cp := *p
		return &cp, nil
	}
	payment.CreatedAt = s.tick()
	pc := *payment
	s.payments = append(s.payments, &pc)
	cp := pc
	return &cp, nil
}

func (s *fixtureStore) paymentByID(id string) *models.Payment {
	for _, p := range s.payments {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *fixtureStore) MarkSucceeded(ctx context.Context, id string, amount float64, method *string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.paymentByID(id)
	if p == nil {
		return fmt.Errorf("payment not found: %s", id)
	}
	s.succeededUpdates++
	p.Status = models.PaymentStatusSucceeded
	p.Amount = amount
	if method != nil {
		p.Method = method
	}
	if p.ProcessedAt == nil {
		p.ProcessedAt = &at
	}
	if p.CapturedAt == nil {
		p.CapturedAt = &at
	}
	return nil
}

func (s *fixtureStore) MarkFailed(ctx context.Context, id string, code *string, message string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.paymentByID(id)
	if p == nil || p.Status == models.PaymentStatusSucceeded {
		return false, nil
	}
	p.Status = models.PaymentStatusFailed
	p.FailureCode = code
	p.FailureMessage = &message
	if p.FailedAt == nil {
		p.FailedAt = &at
	}
	return true, nil
}

func (s *fixtureStore) MarkProcessing(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.paymentByID(id)
	if p == nil || p.Status != models.PaymentStatusPending {
		return false, nil
	}
	p.Status = models.PaymentStatusProcessing
	return true, nil
}

func (s *fixtureStore) UpsertProviderPayment(ctx context.Context, pp *models.ProviderPayment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.providerPayments[pp.PaymentID]; ok {
		pp.ID = existing.ID
	}
	cp := *pp
	s.providerPayments[pp.PaymentID] = &cp
	return nil
}

func (s *fixtureStore) UpsertProviderCard(ctx context.Context, card *models.ProviderCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.cards[card.ProviderPaymentID]; ok {
		card.ID = existing.ID
	}
	cp := *card
	s.cards[card.ProviderPaymentID] = &cp
	return nil
}

func (s *fixtureStore) UpsertSessionPaid(ctx context.Context, session *models.CheckoutSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cs := range s.sessions {
		if cs.SessionID == session.SessionID {
			cs.Status = models.CheckoutSessionPaid
			if cs.PaidAt == nil {
				cs.PaidAt = session.PaidAt
			}
			return nil
		}
	}
	cp := *session
	cp.Status = models.CheckoutSessionPaid
	s.sessions[session.PaymentID] = &cp
	return nil
}

// ---------------------------------------------------------------------------
// WebhookEventStore

func (s *fixtureStore) GetByEventID(ctx context.Context, eventID string) (*models.WebhookEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.events[eventID]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, nil
}

func (s *fixtureStore) Upsert(ctx context.Context, event *models.WebhookEvent) (*models.WebhookEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertEventErr != nil {
		return nil, s.upsertEventErr
	}
	existing, ok := s.events[event.EventID]
	if !ok {
		cp := *event
		cp.CreatedAt = s.tick()
		cp.UpdatedAt = time.Now()
		s.events[event.EventID] = &cp
		out := cp
		return &out, nil
	}
	if !s.reopenable(existing) {
		return nil, nil
	}
	existing.RetryCount++
	existing.Status = models.WebhookStatusProcessing
	existing.UpdatedAt = time.Now()
	out := *existing
	return &out, nil
}

// reopenable mirrors the repository's claim rule: failed, ignored, or a
// processing row whose lease ran out
func (s *fixtureStore) reopenable(e *models.WebhookEvent) bool {
	switch e.Status {
	case models.WebhookStatusFailed, models.WebhookStatusIgnored:
		return true
	case models.WebhookStatusProcessing:
		return time.Since(e.UpdatedAt) > database.WebhookProcessingLease
	}
	return false
}

func (s *fixtureStore) BeginReprocess(ctx context.Context, eventID string) (*models.WebhookEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.events[eventID]
	if !ok || !s.reopenable(existing) {
		return nil, nil
	}
	existing.RetryCount++
	existing.Status = models.WebhookStatusProcessing
	existing.UpdatedAt = time.Now()
	out := *existing
	return &out, nil
}

func (s *fixtureStore) Finalize(ctx context.Context, eventID string, status models.WebhookEventStatus, errorMessage *string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.events[eventID]
	if !ok {
		return fmt.Errorf("webhook event not found: %s", eventID)
	}
	existing.Status = status
	existing.ErrorMessage = errorMessage
	existing.ProcessedAt = &at
	return nil
}

func (s *fixtureStore) List(ctx context.Context, status string, limit, offset int) ([]models.WebhookEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.WebhookEvent{}
	for _, e := range s.events {
		if status == "" || string(e.Status) == status {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return []models.WebhookEvent{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// AuditStore

func (s *fixtureStore) Log(ctx context.Context, audit *models.PaymentAudit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audits = append(s.audits, *audit)
	return nil
}

func (s *fixtureStore) ListByReservation(ctx context.Context, reservationID string) ([]models.PaymentAudit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.PaymentAudit{}
	for _, a := range s.audits {
		if a.ReservationID != nil && *a.ReservationID == reservationID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *fixtureStore) auditsOfType(t models.PaymentEventType) []models.PaymentAudit {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.PaymentAudit
	for _, a := range s.audits {
		if a.EventType == t {
			out = append(out, a)
		}
	}
	return out
}

func (s *fixtureStore) reservationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reservations)
}

func (s *fixtureStore) guestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.guests)
}

func (s *fixtureStore) reservation(id string) models.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.reservations[id]
}

func (s *fixtureStore) paymentsFor(reservationID string) []models.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Payment
	for _, p := range s.payments {
		if p.ReservationID == reservationID {
			out = append(out, *p)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Gateway and publisher

type fakeGateway struct {
	mu     sync.Mutex
	calls  []*CheckoutSessionParams
	err    error
	nextID int
}

func (g *fakeGateway) CreateCheckoutSession(ctx context.Context, params *CheckoutSessionParams) (*CheckoutSessionResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, params)
	if g.err != nil {
		return nil, g.err
	}
	g.nextID++
	return &CheckoutSessionResult{
		SessionID:       fmt.Sprintf("cs_test_%d", g.nextID),
		CheckoutURL:     fmt.Sprintf("https://checkout.paymongo.com/cs_test_%d", g.nextID),
		PaymentIntentID: fmt.Sprintf("pi_test_%d", g.nextID),
	}, nil
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*ReservationEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event *ReservationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// ---------------------------------------------------------------------------
// Wiring

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testPaymentConfig() *config.PaymentConfig {
	return &config.PaymentConfig{
		APIURL:         "https://api.paymongo.test/v1",
		SecretKey:      "sk_test_key",
		WebhookSecret:  testSecret,
		PaymentMethods: []string{"card", "gcash"},
		AppBaseURL:     "https://hotel.example.com",
		SessionTTL:     24 * time.Hour,
	}
}

type testEnv struct {
	store      *fixtureStore
	gateway    *fakeGateway
	publisher  *recordingPublisher
	sessions   *PaymentSessionService
	bookings   *BookingService
	reconciler *ReconciliationService
	webhooks   *WebhookService
}

func newTestEnv() *testEnv {
	store := newFixtureStore()
	gateway := &fakeGateway{}
	publisher := &recordingPublisher{}
	logger := testLogger()
	cfg := testPaymentConfig()

	sessions := NewPaymentSessionService(gateway, store, store, cfg, logger)
	bookings := NewBookingService(NewBookingValidator(store), store, sessions, logger)
	reconciler := NewReconciliationService(store, store, store, publisher, logger)
	webhooks := NewWebhookService(NewPayMongoService(cfg, logger), store, reconciler, store, logger)

	return &testEnv{
		store:      store,
		gateway:    gateway,
		publisher:  publisher,
		sessions:   sessions,
		bookings:   bookings,
		reconciler: reconciler,
		webhooks:   webhooks,
	}
}

// happyPathRequest is 2 adults, 3 nights: 15000 + 1800 + 750 = 17550
func happyPathRequest() *models.CreateBookingRequest {
	checkIn := time.Date(2026, 12, 20, 14, 0, 0, 0, time.UTC)
	phone := "+63 917 555 0123"
	return &models.CreateBookingRequest{
		FirstName:      "Maria",
		LastName:       "Santos",
		Email:          "Maria.Santos@Example.com",
		Phone:          &phone,
		CheckInDate:    checkIn,
		CheckOutDate:   checkIn.AddDate(0, 0, 3),
		Adults:         2,
		Children:       0,
		TotalAmount:    17550,
		Nights:         3,
		Subtotal:       15000,
		Taxes:          1800,
		ServiceFee:     750,
		BusinessUnitID: testUnitID,
		RoomTypeID:     testRoomTypeID,
	}
}

var testRequestContext = models.RequestContext{
	IPAddress: "203.0.113.7",
	UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// ---------------------------------------------------------------------------
// Webhook payloads

func checkoutPaidBody(eventID, sessionID, intentID, reservationID string) []byte {
	return []byte(fmt.Sprintf(`{
  "data": {
    "id": %q,
    "type": "event",
    "attributes": {
      "type": "checkout_session.payment.paid",
      "livemode": false,
      "data": {
        "id": %q,
        "type": "checkout_session",
        "attributes": {
          "billing": {"name": "Maria Santos", "email": "maria.santos@example.com", "phone": "+639175550123"},
          "checkout_url": "https://checkout.paymongo.com/%s",
          "line_items": [
            {"amount": 1500000, "currency": "PHP", "name": "Room", "quantity": 1},
            {"amount": 180000, "currency": "PHP", "name": "Taxes", "quantity": 1},
            {"amount": 75000, "currency": "PHP", "name": "Service fee", "quantity": 1}
          ],
          "metadata": {"reservation_id": %q},
          "payment_intent": {"id": %q, "type": "payment_intent", "attributes": {"amount": 1755000, "status": "succeeded"}},
          "payments": [
            {"id": "pay_card_1", "type": "payment", "attributes": {
              "amount": 1755000, "currency": "PHP", "status": "paid", "paid_at": 1766230000,
              "source": {"id": "card_1", "type": "card", "brand": "visa", "last4": "4242", "country": "PH", "exp_month": 12, "exp_year": 2030, "funding": "credit"}
            }}
          ],
          "payment_method_used": "card",
          "reference_number": "RES-TEST",
          "status": "active"
        }
      }
    }
  }
}`, eventID, sessionID, sessionID, reservationID, intentID))
}

func checkoutFailedBody(eventID, sessionID, intentID, reservationID, failedMessage string) []byte {
	lastError := "null"
	if failedMessage != "" {
		lastError = fmt.Sprintf(`{"failed_code": "card_declined", "failed_message": %q}`, failedMessage)
	}
	return []byte(fmt.Sprintf(`{
  "data": {
    "id": %q,
    "type": "event",
    "attributes": {
      "type": "checkout_session.payment.failed",
      "livemode": false,
      "data": {
        "id": %q,
        "type": "checkout_session",
        "attributes": {
          "line_items": [{"amount": 1755000, "currency": "PHP", "name": "Stay", "quantity": 1}],
          "metadata": {"reservation_id": %q},
          "payment_intent": {"id": %q, "type": "payment_intent", "attributes": {"last_payment_error": %s}}
        }
      }
    }
  }
}`, eventID, sessionID, reservationID, intentID, lastError))
}

func paymentEventBody(eventID, eventType, resourceType, resourceID, attributes string) []byte {
	return []byte(fmt.Sprintf(`{"data":{"id":%q,"type":"event","attributes":{"type":%q,"livemode":false,"data":{"id":%q,"type":%q,"attributes":%s}}}}`,
		eventID, eventType, resourceID, resourceType, attributes))
}

func mustEnvelope(body []byte) *WebhookEnvelope {
	env, err := ParseWebhookEnvelope(body)
	if err != nil {
		panic(err)
	}
	return env
}

// signatureHeader signs body the way the gateway does, in the te (test) slot
// or li (live) slot.
func signatureHeader(secret string, body []byte, live bool) string {
	ts := fmt.Sprintf("%d", time.Now().Unix())
	sig := ComputeSignature(secret, ts, body)
	if live {
		return fmt.Sprintf("t=%s,te=,li=%s", ts, sig)
	}
	return fmt.Sprintf("t=%s,te=%s,li=", ts, sig)
}

func delivery(body []byte, signature string) *WebhookDelivery {
	return &WebhookDelivery{
		Body:      body,
		Signature: signature,
		SourceIP:  "52.74.0.1",
		UserAgent: "PayMongo-Webhooks/1.0",
	}
}
