package core

import (
	"errors"
	"testing"
	"time"
)

var testNow = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func newTestStay(t *testing.T, room int, in, out Date) Stay {
	t.Helper()
	s, err := NewCheckIn(CheckInRequest{RoomNumber: room, GuestName: "budi", CheckInDate: in, CheckOutDate: out}, nil, testNow)
	if err != nil {
		t.Fatalf("NewCheckIn: %v", err)
	}
	return s
}

func TestStayLifecycle(t *testing.T) {
	s := newTestStay(t, 105, NewDate(2024, 1, 1), NewDate(2024, 1, 5))
	if s.Status != StatusCheckedIn || s.TotalPayment != 0 || !s.LastDayPaid.IsSame(s.CheckInDate) {
		t.Fatalf("unexpected initial stay: %+v", s)
	}
	if s.GuestName != "BUDI" {
		t.Fatalf("guest name not upper-cased: %q", s.GuestName)
	}
	if got := OutstandingBalance(s); got != 800000 {
		t.Fatalf("initial outstanding = %d, want 800000", got)
	}

	s, err := RecordPayment(s, NewDate(2024, 1, 3), 400000)
	if err != nil {
		t.Fatalf("first payment: %v", err)
	}
	if s.Status != StatusPartiallyPaid || s.TotalPayment != 400000 {
		t.Fatalf("after first payment: %+v", s)
	}
	if got := OutstandingBalance(s); got != 400000 {
		t.Fatalf("outstanding = %d, want 400000", got)
	}

	s, err = RecordPayment(s, NewDate(2024, 1, 5), 400000)
	if err != nil {
		t.Fatalf("second payment: %v", err)
	}
	if s.Status != StatusPaid || OutstandingBalance(s) != 0 || s.TotalPayment != 800000 {
		t.Fatalf("after second payment: %+v", s)
	}

	s, err = CheckOut(s)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if s.Status != StatusCheckedOut {
		t.Fatalf("status = %s, want checkOut", s.Status)
	}

	if _, err := ExtendStay(s, NewDate(2024, 1, 9)); !errors.Is(err, ErrStayCheckedOut) {
		t.Fatalf("extend after checkout: %v", err)
	}
	if _, err := RecordPayment(s, NewDate(2024, 1, 6), 1); !errors.Is(err, ErrStayCheckedOut) {
		t.Fatalf("payment after checkout: %v", err)
	}
	if _, err := CheckOut(s); !errors.Is(err, ErrStayCheckedOut) {
		t.Fatalf("double checkout: %v", err)
	}
}

func TestDeriveStatus(t *testing.T) {
	in, out := NewDate(2024, 1, 1), NewDate(2024, 1, 5)
	cases := []struct {
		name string
		last Date
		want Status
	}{
		{"unpaid", in, StatusCheckedIn},
		{"partial", NewDate(2024, 1, 2), StatusPartiallyPaid},
		{"paid", out, StatusPaid},
		{"overshoot", NewDate(2024, 1, 7), StatusPartiallyPaid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := Stay{CheckInDate: in, CheckOutDate: out, LastDayPaid: tc.last}
			if got := DeriveStatus(s); got != tc.want {
				t.Fatalf("DeriveStatus = %s, want %s", got, tc.want)
			}
			s.Status = StatusCheckedOut
			if got := DeriveStatus(s); got != tc.want {
				t.Fatalf("DeriveStatus must ignore stored status, got %s", got)
			}
		})
	}
}

func TestOutstandingBalanceClampsOvershoot(t *testing.T) {
	s := Stay{RoomNumber: 203, CheckInDate: NewDate(2024, 1, 1), CheckOutDate: NewDate(2024, 1, 5), LastDayPaid: NewDate(2024, 1, 8)}
	if got := OutstandingBalance(s); got != 0 {
		t.Fatalf("outstanding = %d, want 0", got)
	}
	s.LastDayPaid = NewDate(2024, 1, 2)
	if got := OutstandingBalance(s); got != 3*EconomyRate {
		t.Fatalf("outstanding = %d, want %d", got, 3*EconomyRate)
	}
}

func TestRecordPaymentRejections(t *testing.T) {
	base := newTestStay(t, 106, NewDate(2024, 1, 1), NewDate(2024, 1, 5))
	base, _ = RecordPayment(base, NewDate(2024, 1, 2), 200000)

	cases := []struct {
		name   string
		date   Date
		amount Money
		want   error
	}{
		{"same day as last paid", NewDate(2024, 1, 2), 200000, ErrPaymentNotAfterLast},
		{"before last paid", NewDate(2024, 1, 1), 200000, ErrPaymentNotAfterLast},
		{"after checkout", NewDate(2024, 1, 6), 200000, ErrPaymentAfterCheckOut},
		{"zero amount", NewDate(2024, 1, 3), 0, ErrInvalidPaymentAmount},
		{"zero date", Date{}, 200000, ErrInvalidDate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := RecordPayment(base, tc.date, tc.amount)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			if got.TotalPayment != base.TotalPayment || !got.LastDayPaid.IsSame(base.LastDayPaid) {
				t.Fatalf("stay mutated on failure: %+v", got)
			}
		})
	}
}

func TestPaymentForUnknownRoomIsRejected(t *testing.T) {
	s := Stay{RoomNumber: 999, Status: StatusCheckedIn, CheckInDate: NewDate(2024, 1, 1), CheckOutDate: NewDate(2024, 1, 3), LastDayPaid: NewDate(2024, 1, 1)}
	if _, err := RecordPayment(s, NewDate(2024, 1, 2), 100); !errors.Is(err, ErrInvalidPaymentAmount) {
		t.Fatalf("err = %v, want ErrInvalidPaymentAmount", err)
	}
}

func TestExtendStay(t *testing.T) {
	s := newTestStay(t, 107, NewDate(2024, 1, 1), NewDate(2024, 1, 3))
	s, _ = RecordPayment(s, NewDate(2024, 1, 3), 400000)
	if s.Status != StatusPaid {
		t.Fatalf("setup: status = %s", s.Status)
	}

	if _, err := ExtendStay(s, NewDate(2024, 1, 3)); !errors.Is(err, ErrExtensionNotLater) {
		t.Fatalf("same-day extension: %v", err)
	}

	ext, err := ExtendStay(s, NewDate(2024, 1, 6))
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if ext.Status != StatusPartiallyPaid {
		t.Fatalf("status after extension = %s, want partiallyPaid", ext.Status)
	}
	if got := OutstandingBalance(ext); got != 3*StandardRate {
		t.Fatalf("outstanding after extension = %d", got)
	}

	unpaid := newTestStay(t, 108, NewDate(2024, 1, 1), NewDate(2024, 1, 3))
	ext, err = ExtendStay(unpaid, NewDate(2024, 1, 4))
	if err != nil || ext.Status != StatusCheckedIn {
		t.Fatalf("unpaid extension: status=%s err=%v", ext.Status, err)
	}
}

func TestCheckOutRequiresPaid(t *testing.T) {
	s := newTestStay(t, 201, NewDate(2024, 1, 1), NewDate(2024, 1, 3))
	if _, err := CheckOut(s); !errors.Is(err, ErrNotFullyPaid) {
		t.Fatalf("checkout unpaid: %v", err)
	}
	s, _ = RecordPayment(s, NewDate(2024, 1, 2), 200000)
	if _, err := CheckOut(s); !errors.Is(err, ErrNotFullyPaid) {
		t.Fatalf("checkout partial: %v", err)
	}
}

func TestNewCheckInValidation(t *testing.T) {
	occupied := []Stay{
		{RoomNumber: 202, Status: StatusPartiallyPaid},
		{RoomNumber: 203, Status: StatusCheckedOut},
	}
	in, out := NewDate(2024, 2, 1), NewDate(2024, 2, 3)
	cases := []struct {
		name string
		req  CheckInRequest
		want error
		msg  string
	}{
		{"invalid room", CheckInRequest{RoomNumber: 999, GuestName: "x", CheckInDate: in, CheckOutDate: out}, ErrInvalidRoom, "Please enter a valid room number"},
		{"occupied", CheckInRequest{RoomNumber: 202, GuestName: "x", CheckInDate: in, CheckOutDate: out}, ErrRoomOccupied, "Room 202 is already occupied"},
		{"blank guest", CheckInRequest{RoomNumber: 204, GuestName: "   ", CheckInDate: in, CheckOutDate: out}, ErrEmptyGuestName, "Please enter a guest name"},
		{"same day", CheckInRequest{RoomNumber: 204, GuestName: "x", CheckInDate: in, CheckOutDate: in}, ErrCheckOutNotAfterIn, "Check-out date must be after check-in date"},
		{"reversed", CheckInRequest{RoomNumber: 204, GuestName: "x", CheckInDate: out, CheckOutDate: in}, ErrCheckOutNotAfterIn, "Check-out date must be after check-in date"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewCheckIn(tc.req, occupied, testNow)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			if err.Error() != tc.msg {
				t.Fatalf("message = %q, want %q", err.Error(), tc.msg)
			}
		})
	}

	// A checked-out stay frees the room.
	if _, err := NewCheckIn(CheckInRequest{RoomNumber: 203, GuestName: "sari", CheckInDate: in, CheckOutDate: out}, occupied, testNow); err != nil {
		t.Fatalf("room freed by checkout should accept check-in: %v", err)
	}
}

func TestPaymentQuoteAndSummary(t *testing.T) {
	s := newTestStay(t, 301, NewDate(2024, 1, 1), NewDate(2024, 1, 5))
	if got := PaymentSummary(s); got != "Not Paid, 4 days" {
		t.Fatalf("summary = %q", got)
	}
	days, amount := PaymentQuote(s, NewDate(2024, 1, 4))
	if days != 3 || amount != 600000 {
		t.Fatalf("quote = %d days %d", days, amount)
	}
	if days, amount := PaymentQuote(s, NewDate(2023, 12, 30)); days != 0 || amount != 0 {
		t.Fatalf("backward quote = %d days %d", days, amount)
	}
	s, _ = RecordPayment(s, NewDate(2024, 1, 3), amount)
	if got := PaymentSummary(s); got != "2 days" {
		t.Fatalf("summary = %q", got)
	}
	s, _ = RecordPayment(s, NewDate(2024, 1, 5), 400000)
	if got := PaymentSummary(s); got != "Paid" {
		t.Fatalf("summary = %q", got)
	}
}

func TestDaysBetween(t *testing.T) {
	cases := []struct {
		from, to Date
		want     int
	}{
		{NewDate(2024, 1, 1), NewDate(2024, 1, 1), 0},
		{NewDate(2024, 1, 1), NewDate(2024, 1, 5), 4},
		{NewDate(2024, 2, 28), NewDate(2024, 3, 1), 2},
		{NewDate(2024, 1, 5), NewDate(2024, 1, 1), -4},
	}
	for _, tc := range cases {
		if got := DaysBetween(tc.from, tc.to); got != tc.want {
			t.Errorf("DaysBetween(%s, %s) = %d, want %d", tc.from, tc.to, got, tc.want)
		}
	}
}
