package services

import (
	"errors"
	"fmt"
	"strings"

	"mindvibe/internal/repositories"
)

var (
	// ErrValidation signals the caller provided invalid data.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates the requested record could not be located.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition indicates the order is not in a state that allows the action.
	ErrInvalidTransition = errors.New("invalid order status transition")
	// ErrUnavailable indicates requested outfits are booked for the range.
	ErrUnavailable = errors.New("outfit unavailable for the selected dates")
	// ErrEmptyCart is returned when checkout has nothing left to order.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrOutfitInUse blocks deleting an outfit that appears on orders.
	ErrOutfitInUse = errors.New("outfit has order history")
	// ErrInvalidCredentials is returned for any failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrConflict signals a uniqueness clash such as a taken username.
	ErrConflict = errors.New("conflict")
)

// AvailabilityConflictError names the outfits that could not be booked.
type AvailabilityConflictError struct {
	OutfitIDs   []string
	OutfitNames []string
}

func (e *AvailabilityConflictError) Error() string {
	names := e.OutfitNames
	if len(names) == 0 {
		names = e.OutfitIDs
	}
	return fmt.Sprintf("%s: %s", ErrUnavailable, strings.Join(names, ", "))
}

func (e *AvailabilityConflictError) Unwrap() error { return ErrUnavailable }

func mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
