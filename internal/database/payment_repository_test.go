package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staylane/reservation-backend/internal/models"
)

func newCheckoutFixture() (*models.Payment, *models.CheckoutSession, []models.PaymentLineItem) {
	key := "res-1:1"
	payment := &models.Payment{
		ID:                uuid.New().String(),
		ReservationID:     uuid.New().String(),
		Amount:            17550,
		Currency:          "PHP",
		Status:            models.PaymentStatusPending,
		Provider:          models.PaymentProviderPayMongo,
		ProviderPaymentID: "pi_test_123",
		IdempotencyKey:    &key,
		GuestName:         "Maria Santos",
		GuestEmail:        "maria@example.com",
		RoomTotal:         15000,
		TaxTotal:          1800,
		FeeTotal:          750,
	}
	session := &models.CheckoutSession{
		ID:          uuid.New().String(),
		PaymentID:   payment.ID,
		SessionID:   "cs_test_123",
		CheckoutURL: "https://checkout.paymongo.com/cs_test_123",
		Status:      models.CheckoutSessionActive,
		ExpiresAt:   time.Now().Add(24 * time.Hour),
	}
	items := []models.PaymentLineItem{
		{ID: uuid.New().String(), PaymentID: payment.ID, ItemType: models.LineItemRoom, Name: "Room", Quantity: 1, UnitAmount: 15000, Amount: 15000, Currency: "PHP"},
		{ID: uuid.New().String(), PaymentID: payment.ID, ItemType: models.LineItemTax, Name: "Taxes", Quantity: 1, UnitAmount: 1800, Amount: 1800, Currency: "PHP"},
		{ID: uuid.New().String(), PaymentID: payment.ID, ItemType: models.LineItemFee, Name: "Service fee", Quantity: 1, UnitAmount: 750, Amount: 750, Currency: "PHP"},
	}
	return payment, session, items
}

func TestCreateCheckout(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPaymentRepository(db)
		payment, session, items := newCheckoutFixture()
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO payments`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectQuery(`INSERT INTO checkout_sessions`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		for range items {
			mock.ExpectExec(`INSERT INTO payment_line_items`).WillReturnResult(sqlmock.NewResult(0, 1))
		}
		mock.ExpectExec(`UPDATE reservations`).
			WithArgs(payment.ReservationID, models.PaymentProviderPayMongo, "cs_test_123").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.CreateCheckout(ctx, payment, session, items, "cs_test_123")
		require.NoError(t, err)
		assert.Equal(t, now, payment.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Duplicate Attempt", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPaymentRepository(db)
		payment, session, items := newCheckoutFixture()

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO payments`).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "payments_idempotency_key_key"})
		mock.ExpectRollback()

		err := repo.CreateCheckout(ctx, payment, session, items, "cs_test_123")
		assert.True(t, errors.Is(err, ErrDuplicateIdempotencyKey))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMarkFailedNeverDowngradesSucceeded(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)
	at := time.Now()

	mock.ExpectExec(`UPDATE payments SET .* WHERE id = \$1 AND status <> 'SUCCEEDED'`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	updated, err := repo.MarkFailed(context.Background(), "pay-1", nil, "Card declined", at)
	require.NoError(t, err)
	assert.False(t, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkSucceededMissingPayment(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)

	mock.ExpectExec(`UPDATE payments SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkSucceeded(context.Background(), "pay-1", 17550, nil, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "payment not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}
