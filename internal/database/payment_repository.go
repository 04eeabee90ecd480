package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/staylane/reservation-backend/internal/models"
)

const paymentColumns = `
	id, reservation_id, amount, currency, method, status,
	provider, provider_payment_id, idempotency_key,
	guest_name, guest_email, guest_phone,
	room_total, tax_total, fee_total,
	failure_code, failure_message, processed_at, captured_at, failed_at,
	created_at, updated_at`

// PaymentRepository handles payments, their line items, checkout sessions
// and provider detail records
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// ============================================================================
// CHECKOUT CREATION
// ============================================================================

// CreateCheckout persists a payment attempt with its checkout session and line
// items, and points the reservation at the gateway reference, in one transaction.
// Returns ErrDuplicateIdempotencyKey if the same attempt was already stored.
func (r *PaymentRepository) CreateCheckout(
	ctx context.Context,
	payment *models.Payment,
	session *models.CheckoutSession,
	items []models.PaymentLineItem,
	providerReference string,
) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	paymentQuery := `
		INSERT INTO payments (
			id, reservation_id, amount, currency, status,
			provider, provider_payment_id, idempotency_key,
			guest_name, guest_email, guest_phone,
			room_total, tax_total, fee_total,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11,
			$12, $13, $14,
			NOW(), NOW()
		)
		RETURNING created_at, updated_at`

	err = tx.QueryRowxContext(ctx, paymentQuery,
		payment.ID, payment.ReservationID, payment.Amount, payment.Currency, payment.Status,
		payment.Provider, payment.ProviderPaymentID, payment.IdempotencyKey,
		payment.GuestName, payment.GuestEmail, payment.GuestPhone,
		payment.RoomTotal, payment.TaxTotal, payment.FeeTotal,
	).Scan(&payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "payments_idempotency_key_key") {
			return ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to insert payment: %w", err)
	}

	sessionQuery := `
		INSERT INTO checkout_sessions (
			id, payment_id, session_id, checkout_url, success_url, cancel_url,
			status, expires_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING created_at, updated_at`

	err = tx.QueryRowxContext(ctx, sessionQuery,
		session.ID, session.PaymentID, session.SessionID, session.CheckoutURL,
		session.SuccessURL, session.CancelURL, session.Status, session.ExpiresAt,
	).Scan(&session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert checkout session: %w", err)
	}

	itemQuery := `
		INSERT INTO payment_line_items (
			id, payment_id, item_type, name, description,
			quantity, unit_amount, amount, currency, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())`

	for _, item := range items {
		_, err = tx.ExecContext(ctx, itemQuery,
			item.ID, item.PaymentID, item.ItemType, item.Name, item.Description,
			item.Quantity, item.UnitAmount, item.Amount, item.Currency,
		)
		if err != nil {
			return fmt.Errorf("failed to insert payment line item: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE reservations
		SET payment_provider = $2, payment_provider_id = $3, updated_at = NOW()
		WHERE id = $1`,
		payment.ReservationID, payment.Provider, providerReference,
	)
	if err != nil {
		return fmt.Errorf("failed to link reservation to payment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit payment: %w", err)
	}
	return nil
}

// CountByReservation returns the number of payment attempts for a reservation
func (r *PaymentRepository) CountByReservation(ctx context.Context, reservationID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM payments WHERE reservation_id = $1`, reservationID)
	if err != nil {
		return 0, fmt.Errorf("failed to count payments: %w", err)
	}
	return count, nil
}

// ============================================================================
// LOOKUPS
// ============================================================================

// GetLatestByReservation returns the most recent payment attempt, or nil
func (r *PaymentRepository) GetLatestByReservation(ctx context.Context, reservationID string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE reservation_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	var payment models.Payment
	err := r.db.GetContext(ctx, &payment, query, reservationID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest payment: %w", err)
	}
	return &payment, nil
}

// FindByProviderIDs returns the payment matching any of the gateway ids, or nil
func (r *PaymentRepository) FindByProviderIDs(ctx context.Context, providerIDs []string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE provider_payment_id = ANY($1)
		ORDER BY created_at DESC
		LIMIT 1`

	var payment models.Payment
	err := r.db.GetContext(ctx, &payment, query, pq.Array(providerIDs))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find payment by provider id: %w", err)
	}
	return &payment, nil
}

// FindByReservationAndProviderIDs is FindByProviderIDs scoped to one reservation
func (r *PaymentRepository) FindByReservationAndProviderIDs(ctx context.Context, reservationID string, providerIDs []string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE reservation_id = $1 AND provider_payment_id = ANY($2)
		ORDER BY created_at DESC
		LIMIT 1`

	var payment models.Payment
	err := r.db.GetContext(ctx, &payment, query, reservationID, pq.Array(providerIDs))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find reservation payment: %w", err)
	}
	return &payment, nil
}

// GetSessionByPaymentID returns the checkout session of a payment, or nil
func (r *PaymentRepository) GetSessionByPaymentID(ctx context.Context, paymentID string) (*models.CheckoutSession, error) {
	query := `
		SELECT id, payment_id, session_id, checkout_url, success_url, cancel_url,
			status, expires_at, paid_at, created_at, updated_at
		FROM checkout_sessions
		WHERE payment_id = $1`

	var session models.CheckoutSession
	err := r.db.GetContext(ctx, &session, query, paymentID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkout session: %w", err)
	}
	return &session, nil
}

// ============================================================================
// RECONCILIATION UPDATES (single-row, idempotent)
// ============================================================================

// CreateIfAbsent inserts the payment unless one with the same provider payment
// id exists, and returns the stored row either way.
func (r *PaymentRepository) CreateIfAbsent(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	query := `
		INSERT INTO payments (
			id, reservation_id, amount, currency, status,
			provider, provider_payment_id,
			guest_name, guest_email, guest_phone,
			room_total, tax_total, fee_total,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
		ON CONFLICT (provider_payment_id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query,
		payment.ID, payment.ReservationID, payment.Amount, payment.Currency, payment.Status,
		payment.Provider, payment.ProviderPaymentID,
		payment.GuestName, payment.GuestEmail, payment.GuestPhone,
		payment.RoomTotal, payment.TaxTotal, payment.FeeTotal,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	stored, err := r.FindByProviderIDs(ctx, []string{payment.ProviderPaymentID})
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("payment %s missing after insert", payment.ProviderPaymentID)
	}
	return stored, nil
}

// MarkSucceeded records a captured payment. Timestamps keep their first value.
func (r *PaymentRepository) MarkSucceeded(ctx context.Context, id string, amount float64, method *string, at time.Time) error {
	query := `
		UPDATE payments SET
			status = 'SUCCEEDED',
			amount = $2,
			method = COALESCE($3, method),
			processed_at = COALESCE(processed_at, $4),
			captured_at = COALESCE(captured_at, $4),
			updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, amount, method, at)
	if err != nil {
		return fmt.Errorf("failed to mark payment succeeded: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("payment not found: %s", id)
	}
	return nil
}

// MarkFailed records a failed payment. A SUCCEEDED payment is never downgraded
// and false is returned for it.
func (r *PaymentRepository) MarkFailed(ctx context.Context, id string, code *string, message string, at time.Time) (bool, error) {
	query := `
		UPDATE payments SET
			status = 'FAILED',
			failure_code = $2,
			failure_message = $3,
			failed_at = COALESCE(failed_at, $4),
			updated_at = NOW()
		WHERE id = $1 AND status <> 'SUCCEEDED'`

	result, err := r.db.ExecContext(ctx, query, id, code, message, at)
	if err != nil {
		return false, fmt.Errorf("failed to mark payment failed: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}

// MarkProcessing moves a PENDING payment to PROCESSING
func (r *PaymentRepository) MarkProcessing(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE payments SET status = 'PROCESSING', updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'`, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark payment processing: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}

// UpsertProviderPayment stores gateway method detail, one row per payment.
// pp.ID is replaced by the stored row's ID.
func (r *PaymentRepository) UpsertProviderPayment(ctx context.Context, pp *models.ProviderPayment) error {
	query := `
		INSERT INTO provider_payments (
			id, payment_id, provider, provider_payment_id, payment_method_type,
			billing_name, billing_email, billing_phone, metadata,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		ON CONFLICT (payment_id) DO UPDATE SET
			provider_payment_id = EXCLUDED.provider_payment_id,
			payment_method_type = EXCLUDED.payment_method_type,
			billing_name = COALESCE(EXCLUDED.billing_name, provider_payments.billing_name),
			billing_email = COALESCE(EXCLUDED.billing_email, provider_payments.billing_email),
			billing_phone = COALESCE(EXCLUDED.billing_phone, provider_payments.billing_phone),
			metadata = COALESCE(EXCLUDED.metadata, provider_payments.metadata),
			updated_at = NOW()
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		pp.ID, pp.PaymentID, pp.Provider, pp.ProviderPaymentID, pp.PaymentMethodType,
		pp.BillingName, pp.BillingEmail, pp.BillingPhone, pp.Metadata,
	).Scan(&pp.ID, &pp.CreatedAt, &pp.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert provider payment: %w", err)
	}
	return nil
}

// UpsertProviderCard stores brand/last4/expiry for a card payment
func (r *PaymentRepository) UpsertProviderCard(ctx context.Context, card *models.ProviderCard) error {
	query := `
		INSERT INTO provider_cards (
			id, provider_payment_id, brand, last4, exp_month, exp_year,
			country, funding, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		ON CONFLICT (provider_payment_id) DO UPDATE SET
			brand = COALESCE(EXCLUDED.brand, provider_cards.brand),
			last4 = COALESCE(EXCLUDED.last4, provider_cards.last4),
			exp_month = COALESCE(EXCLUDED.exp_month, provider_cards.exp_month),
			exp_year = COALESCE(EXCLUDED.exp_year, provider_cards.exp_year),
			country = COALESCE(EXCLUDED.country, provider_cards.country),
			funding = COALESCE(EXCLUDED.funding, provider_cards.funding),
			updated_at = NOW()`

	_, err := r.db.ExecContext(ctx, query,
		card.ID, card.ProviderPaymentID, card.Brand, card.Last4, card.ExpMonth, card.ExpYear,
		card.Country, card.Funding,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert provider card: %w", err)
	}
	return nil
}

// UpsertSessionPaid marks the checkout session paid, creating it when the
// payment was first seen through a webhook.
func (r *PaymentRepository) UpsertSessionPaid(ctx context.Context, session *models.CheckoutSession) error {
	query := `
		INSERT INTO checkout_sessions (
			id, payment_id, session_id, checkout_url, success_url, cancel_url,
			status, expires_at, paid_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, 'paid', $7, $8, NOW(), NOW())
		ON CONFLICT (session_id) DO UPDATE SET
			status = 'paid',
			paid_at = COALESCE(checkout_sessions.paid_at, EXCLUDED.paid_at),
			updated_at = NOW()`

	_, err := r.db.ExecContext(ctx, query,
		session.ID, session.PaymentID, session.SessionID, session.CheckoutURL,
		session.SuccessURL, session.CancelURL, session.ExpiresAt, session.PaidAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert checkout session: %w", err)
	}
	return nil
}
