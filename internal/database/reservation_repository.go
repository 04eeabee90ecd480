package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/staylane/reservation-backend/internal/models"
)

const reservationColumns = `
	id, confirmation_number, business_unit_id, guest_id,
	check_in_date, check_out_date, nights, adults, children,
	subtotal, taxes, service_fee, total_amount, currency,
	status, payment_status, payment_provider, payment_provider_id,
	source, special_requests, guest_notes, device_info,
	paid_at, cancelled_at, cancellation_reason, created_at, updated_at`

// ReservationRepository handles reservation persistence
type ReservationRepository struct {
	db *sqlx.DB
}

// NewReservationRepository creates a new reservation repository
func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// CreateWithGuest upserts the guest, then inserts the reservation and its room
// line item in one transaction. guest is overwritten with the stored row, so
// on a repeat booking guest.ID becomes the existing guest's ID.
// Returns ErrConfirmationCollision when the confirmation number is taken.
func (r *ReservationRepository) CreateWithGuest(
	ctx context.Context,
	guest *models.Guest,
	reservation *models.Reservation,
	room *models.ReservationRoom,
) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 1. Guest: insert on first booking, refresh contact fields on repeat bookings
	guestQuery := `
		INSERT INTO guests (
			id, business_unit_id, first_name, last_name, email, phone, source,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (business_unit_id, email) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			phone = COALESCE(EXCLUDED.phone, guests.phone),
			updated_at = NOW()
		RETURNING id, business_unit_id, first_name, last_name, email, phone,
			is_vip, is_blacklisted, source, created_at, updated_at`

	err = tx.QueryRowxContext(ctx, guestQuery,
		guest.ID, guest.BusinessUnitID, guest.FirstName, guest.LastName,
		guest.Email, guest.Phone, guest.Source,
	).StructScan(guest)
	if err != nil {
		return fmt.Errorf("failed to upsert guest: %w", err)
	}

	// 2. Reservation
	reservation.GuestID = guest.ID
	reservationQuery := `
		INSERT INTO reservations (
			id, confirmation_number, business_unit_id, guest_id,
			check_in_date, check_out_date, nights, adults, children,
			subtotal, taxes, service_fee, total_amount, currency,
			status, payment_status, source, special_requests, guest_notes, device_info,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9,
			$10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20,
			NOW(), NOW()
		)
		RETURNING created_at, updated_at`

	err = tx.QueryRowxContext(ctx, reservationQuery,
		reservation.ID, reservation.ConfirmationNumber, reservation.BusinessUnitID, reservation.GuestID,
		reservation.CheckInDate, reservation.CheckOutDate, reservation.Nights, reservation.Adults, reservation.Children,
		reservation.Subtotal, reservation.Taxes, reservation.ServiceFee, reservation.TotalAmount, reservation.Currency,
		reservation.Status, reservation.PaymentStatus, reservation.Source,
		reservation.SpecialRequests, reservation.GuestNotes, reservation.DeviceInfo,
	).Scan(&reservation.CreatedAt, &reservation.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "reservations_confirmation_number_key") {
			return ErrConfirmationCollision
		}
		return fmt.Errorf("failed to insert reservation: %w", err)
	}

	// 3. Exactly one room line item
	room.ReservationID = reservation.ID
	roomQuery := `
		INSERT INTO reservation_rooms (
			id, reservation_id, room_type_id, rate_per_night, nights,
			adults, children, room_subtotal, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING created_at`

	err = tx.QueryRowxContext(ctx, roomQuery,
		room.ID, room.ReservationID, room.RoomTypeID, room.RatePerNight, room.Nights,
		room.Adults, room.Children, room.RoomSubtotal,
	).Scan(&room.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert reservation room: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reservation: %w", err)
	}

	reservation.Guest = guest
	reservation.Rooms = []models.ReservationRoom{*room}
	return nil
}

// GetByID returns a reservation by ID, or nil if not found
func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`

	var reservation models.Reservation
	err := r.db.GetContext(ctx, &reservation, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return &reservation, nil
}

// GetWithDetails returns a reservation with its guest and room line items, or nil
func (r *ReservationRepository) GetWithDetails(ctx context.Context, id string) (*models.Reservation, error) {
	reservation, err := r.GetByID(ctx, id)
	if err != nil || reservation == nil {
		return reservation, err
	}

	var guest models.Guest
	err = r.db.GetContext(ctx, &guest, `
		SELECT id, business_unit_id, first_name, last_name, email, phone,
			is_vip, is_blacklisted, source, created_at, updated_at
		FROM guests WHERE id = $1`, reservation.GuestID)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get reservation guest: %w", err)
	}
	if err == nil {
		reservation.Guest = &guest
	}

	err = r.db.SelectContext(ctx, &reservation.Rooms, `
		SELECT id, reservation_id, room_type_id, rate_per_night, nights,
			adults, children, room_subtotal, created_at
		FROM reservation_rooms WHERE reservation_id = $1
		ORDER BY created_at`, reservation.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation rooms: %w", err)
	}

	return reservation, nil
}

// MarkPaid confirms a reservation after a successful payment.
// Retries keep the first paid_at. Stays that already started keep their status.
func (r *ReservationRepository) MarkPaid(ctx context.Context, id string, paidAt time.Time) (bool, error) {
	query := `
		UPDATE reservations SET
			payment_status = 'PAID',
			status = CASE WHEN status IN ('PENDING', 'CANCELLED') THEN 'CONFIRMED' ELSE status END,
			paid_at = COALESCE(paid_at, $2),
			updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, paidAt)
	if err != nil {
		return false, fmt.Errorf("failed to mark reservation paid: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}

// MarkPaymentFailed cancels a reservation whose payment failed.
// A reservation that is already PAID is left untouched and false is returned.
func (r *ReservationRepository) MarkPaymentFailed(ctx context.Context, id, reason string, failedAt time.Time) (bool, error) {
	query := `
		UPDATE reservations SET
			payment_status = 'FAILED',
			status = 'CANCELLED',
			cancelled_at = COALESCE(cancelled_at, $3),
			cancellation_reason = $2,
			updated_at = NOW()
		WHERE id = $1 AND payment_status <> 'PAID'`

	result, err := r.db.ExecContext(ctx, query, id, reason, failedAt)
	if err != nil {
		return false, fmt.Errorf("failed to mark reservation payment failed: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}
