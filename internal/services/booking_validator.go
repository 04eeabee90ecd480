package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/staylane/reservation-backend/internal/models"
	"github.com/staylane/reservation-backend/pkg/validator"
)

// priceTolerance absorbs float rounding in client-computed totals
const priceTolerance = 0.01

// BookingValidator checks a booking request against the catalog.
// It never writes.
type BookingValidator struct {
	catalog CatalogStore
	phone   *validator.PhoneValidator
}

// NewBookingValidator creates a new booking validator
func NewBookingValidator(catalog CatalogStore) *BookingValidator {
	return &BookingValidator{
		catalog: catalog,
		phone:   validator.NewPhoneValidator(),
	}
}

// Validate runs the rules in order and returns the first violation
func (v *BookingValidator) Validate(ctx context.Context, req *models.CreateBookingRequest) (*models.ValidatedBooking, error) {
	// 1. Property
	unit, err := v.catalog.GetBusinessUnit(ctx, req.BusinessUnitID)
	if err != nil {
		return nil, fmt.Errorf("failed to load business unit: %w", err)
	}
	if unit == nil || !unit.IsActive {
		return nil, newError(KindInvalidProperty, "Property not found or inactive", nil)
	}

	// 2. Room type
	roomType, err := v.catalog.GetRoomType(ctx, req.RoomTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load room type: %w", err)
	}
	if roomType == nil || !roomType.IsActive || roomType.BusinessUnitID != unit.ID {
		return nil, newError(KindInvalidRoomType, "Room type not found, inactive, or not offered by this property", nil)
	}

	// 3-5. Occupancy
	if req.Adults+req.Children > roomType.MaxOccupancy {
		return nil, newError(KindOccupancyExceeded,
			fmt.Sprintf("Total guests (%d) exceeds room capacity (%d)", req.Adults+req.Children, roomType.MaxOccupancy), nil)
	}
	if req.Adults > roomType.MaxAdults {
		return nil, newError(KindTooManyAdults,
			fmt.Sprintf("Number of adults (%d) exceeds maximum allowed (%d)", req.Adults, roomType.MaxAdults), nil)
	}
	if req.Children > roomType.MaxChildren {
		return nil, newError(KindTooManyChildren,
			fmt.Sprintf("Number of children (%d) exceeds maximum allowed (%d)", req.Children, roomType.MaxChildren), nil)
	}

	// 6. Stay dates
	if !req.CheckOutDate.After(req.CheckInDate) {
		return nil, newError(KindInvalidStayDates, "Check-out date must be after check-in date", nil)
	}
	if nights := StayNights(req); nights != req.Nights {
		return nil, newError(KindInvalidStayDates,
			fmt.Sprintf("Nights (%d) does not match the stay dates (%d nights)", req.Nights, nights), nil)
	}

	// 7. Price breakdown
	if math.Abs(req.Subtotal+req.Taxes+req.ServiceFee-req.TotalAmount) > priceTolerance {
		return nil, newError(KindPriceMismatch,
			fmt.Sprintf("Subtotal, taxes and service fee (%.2f) do not add up to total (%.2f)",
				req.Subtotal+req.Taxes+req.ServiceFee, req.TotalAmount), nil)
	}

	// Guest details
	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if firstName == "" || lastName == "" || email == "" {
		return nil, newError(KindInvalidGuestDetails, "First name, last name and email are required", nil)
	}

	var phone *string
	if req.Phone != nil && strings.TrimSpace(*req.Phone) != "" {
		sanitized, err := v.phone.Validate(*req.Phone)
		if err != nil {
			return nil, newError(KindInvalidGuestDetails, err.Error(), nil)
		}
		phone = &sanitized
	}

	validated := &models.ValidatedBooking{
		Request:      *req,
		Email:        email,
		Phone:        phone,
		BusinessUnit: unit,
		RoomType:     roomType,
	}
	validated.Request.FirstName = firstName
	validated.Request.LastName = lastName
	return validated, nil
}

// StayNights is the number of nights between check-in and check-out,
// rounded so arrival/departure times of day do not matter.
func StayNights(req *models.CreateBookingRequest) int {
	return int(math.Round(req.CheckOutDate.Sub(req.CheckInDate).Hours() / 24))
}
