package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRoom          = errors.New("invalid room number")
	ErrRoomOccupied         = errors.New("room occupied")
	ErrEmptyGuestName       = errors.New("empty guest name")
	ErrCheckOutNotAfterIn   = errors.New("check-out not after check-in")
	ErrPaymentNotAfterLast  = errors.New("payment date not after last paid date")
	ErrPaymentAfterCheckOut = errors.New("payment date after check-out")
	ErrInvalidPaymentAmount = errors.New("invalid payment amount")
	ErrExtensionNotLater    = errors.New("new check-out not after current check-out")
	ErrNotFullyPaid         = errors.New("stay not fully paid")
	ErrStayCheckedOut       = errors.New("stay already checked out")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrEmptyTitle           = errors.New("empty title")
	ErrInvalidCategory      = errors.New("invalid category")
	ErrInvalidDate          = errors.New("invalid date")
	ErrInvalidPeriod        = errors.New("invalid period")
	ErrInvalidFlow          = errors.New("invalid flow delta")
	ErrNotFound             = errors.New("not found")
)

// ValidationError carries a user-facing message. It wraps one of the
// sentinel errors above so callers can branch with errors.Is.
type ValidationError struct {
	Err error
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(err error, msg string) error {
	return &ValidationError{Err: err, Msg: msg}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// PersistenceError is a store failure. Local state may be stale after one
// and the caller is expected to retry.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Persistence wraps err as a PersistenceError for op. Nil stays nil and
// validation or not-found errors pass through untouched.
func Persistence(op string, err error) error {
	if err == nil || IsValidation(err) || errors.Is(err, ErrNotFound) {
		return err
	}
	var p *PersistenceError
	if errors.As(err, &p) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

func IsPersistence(err error) bool {
	var p *PersistenceError
	return errors.As(err, &p)
}
