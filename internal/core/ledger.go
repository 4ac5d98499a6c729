package core

import (
	"fmt"
	"strings"
	"time"
)

const day = 24 * time.Hour

// DaysBetween returns the whole days from from to to, floored.
func DaysBetween(from, to Date) int {
	d := to.Sub(from.Time)
	n := d / day
	if d < 0 && d%day != 0 {
		n--
	}
	return int(n)
}

// DeriveStatus maps the three billing dates of s to a status.
//
// LastDayPaid on the check-in day means nothing has been paid yet, on the
// check-out day means fully paid, and anything else is partial. A
// LastDayPaid past check-out is a data anomaly and lands in the partial
// branch. The stored Status is not consulted.
func DeriveStatus(s Stay) Status {
	switch {
	case s.LastDayPaid.IsSame(s.CheckInDate):
		return StatusCheckedIn
	case !s.LastDayPaid.IsSame(s.CheckOutDate):
		return StatusPartiallyPaid
	default:
		return StatusPaid
	}
}

// refreshStatus re-derives the status of an open stay. Checked-out stays
// keep their terminal status.
func refreshStatus(s Stay) Stay {
	if s.Status != StatusCheckedOut {
		s.Status = DeriveStatus(s)
	}
	return s
}

// OutstandingBalance is the rate times the unpaid nights, never negative.
func OutstandingBalance(s Stay) Money {
	rate, _ := RoomRate(s.RoomNumber)
	days := DaysBetween(s.LastDayPaid, s.CheckOutDate)
	if days <= 0 {
		return 0
	}
	return rate * Money(days)
}

// PaymentQuote returns the nights and amount due to move LastDayPaid to
// paidThrough. Both are zero when paidThrough does not advance.
func PaymentQuote(s Stay, paidThrough Date) (int, Money) {
	rate, _ := RoomRate(s.RoomNumber)
	days := DaysBetween(s.LastDayPaid, paidThrough)
	if days < 0 {
		days = 0
	}
	return days, rate * Money(days)
}

// PaymentSummary is the short billing label shown next to a stay.
func PaymentSummary(s Stay) string {
	switch DeriveStatus(s) {
	case StatusCheckedIn:
		return fmt.Sprintf("Not Paid, %d days", DaysBetween(s.LastDayPaid, s.CheckOutDate))
	case StatusPartiallyPaid:
		return fmt.Sprintf("%d days", DaysBetween(s.CheckInDate, s.LastDayPaid))
	default:
		return "Paid"
	}
}

// RecordPayment advances LastDayPaid to newLastDayPaid and adds amount to
// the running total.
func RecordPayment(s Stay, newLastDayPaid Date, amount Money) (Stay, error) {
	if s.Status == StatusCheckedOut {
		return s, invalid(ErrStayCheckedOut, "This stay has already been checked out")
	}
	if err := newLastDayPaid.Validate(); err != nil {
		return s, err
	}
	if !newLastDayPaid.IsAfter(s.LastDayPaid) {
		return s, invalid(ErrPaymentNotAfterLast, "New payment date must be after the last paid date")
	}
	if newLastDayPaid.IsAfter(s.CheckOutDate) {
		return s, invalid(ErrPaymentAfterCheckOut, "Payment date cannot be after check-out date")
	}
	days, due := PaymentQuote(s, newLastDayPaid)
	if days <= 0 || due <= 0 || amount <= 0 {
		return s, invalid(ErrInvalidPaymentAmount, "Invalid payment amount")
	}

	s.LastDayPaid = newLastDayPaid
	s.TotalPayment += amount
	return refreshStatus(s), nil
}

// ExtendStay moves the check-out date later. A fully paid stay drops back
// to partially paid since LastDayPaid no longer reaches check-out.
func ExtendStay(s Stay, newCheckOutDate Date) (Stay, error) {
	if s.Status == StatusCheckedOut {
		return s, invalid(ErrStayCheckedOut, "This stay has already been checked out")
	}
	if err := newCheckOutDate.Validate(); err != nil {
		return s, err
	}
	if !newCheckOutDate.IsAfter(s.CheckOutDate) {
		return s, invalid(ErrExtensionNotLater, "New check-out date must be after the current check-out date")
	}

	s.CheckOutDate = newCheckOutDate
	return refreshStatus(s), nil
}

// CheckOut closes a fully paid stay. CheckedOut is terminal.
func CheckOut(s Stay) (Stay, error) {
	if s.Status == StatusCheckedOut {
		return s, invalid(ErrStayCheckedOut, "This stay has already been checked out")
	}
	if s.Status != StatusPaid {
		return s, invalid(ErrNotFullyPaid, "Stay must be fully paid before check-out")
	}
	s.Status = StatusCheckedOut
	return s, nil
}

// CheckInRequest holds the inputs for a new stay.
type CheckInRequest struct {
	RoomNumber   int
	GuestName    string
	CheckInDate  Date
	CheckOutDate Date
}

// NewCheckIn validates req against the currently known stays and returns
// the new stay. The caller assigns ID before persisting.
func NewCheckIn(req CheckInRequest, stays []Stay, now time.Time) (Stay, error) {
	if !ValidRoom(req.RoomNumber) {
		return Stay{}, invalid(ErrInvalidRoom, "Please enter a valid room number")
	}
	for _, s := range stays {
		if s.RoomNumber == req.RoomNumber && s.Active() {
			return Stay{}, RoomOccupied(req.RoomNumber)
		}
	}
	guest := strings.TrimSpace(req.GuestName)
	if guest == "" {
		return Stay{}, invalid(ErrEmptyGuestName, "Please enter a guest name")
	}
	if err := req.CheckInDate.Validate(); err != nil {
		return Stay{}, err
	}
	if err := req.CheckOutDate.Validate(); err != nil {
		return Stay{}, err
	}
	if !req.CheckOutDate.IsAfter(req.CheckInDate) {
		return Stay{}, invalid(ErrCheckOutNotAfterIn, "Check-out date must be after check-in date")
	}

	return Stay{
		RoomNumber:   req.RoomNumber,
		GuestName:    strings.ToUpper(guest),
		Status:       StatusCheckedIn,
		CheckInDate:  req.CheckInDate,
		CheckOutDate: req.CheckOutDate,
		LastDayPaid:  req.CheckInDate,
		TotalPayment: 0,
		CreatedAt:    now.UTC(),
	}, nil
}

// RoomOccupied is the validation error for a second open stay in room.
func RoomOccupied(room int) error {
	return invalid(ErrRoomOccupied, fmt.Sprintf("Room %d is already occupied", room))
}
