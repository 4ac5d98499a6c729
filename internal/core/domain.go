package core

import (
	"encoding/json"
	"strings"
	"time"
)

const (
	StatusCheckedIn     Status = "checkIn"
	StatusPartiallyPaid Status = "partiallyPaid"
	StatusPaid          Status = "paid"
	StatusCheckedOut    Status = "checkOut"
)

const (
	CategoryWater       Category = "water"
	CategoryElectricity Category = "electricity"
	CategoryWage        Category = "wage"
	CategoryEquipment   Category = "equipment"
	CategoryOther       Category = "other"
)

const dateLayout = "2006-01-02"

type (
	// Status is the billing state of a stay.
	Status string

	// Category classifies an expense.
	Category string

	// Date is a calendar day stored as midnight UTC.
	Date struct {
		time.Time
	}

	// Stay is one guest occupancy of one room.
	Stay struct {
		ID           string    `json:"id"`
		RoomNumber   int       `json:"roomNumber"`
		GuestName    string    `json:"guestName"`
		Status       Status    `json:"status"`
		CheckInDate  Date      `json:"checkInDate"`
		CheckOutDate Date      `json:"checkOutDate"`
		LastDayPaid  Date      `json:"lastDayPaid"`
		TotalPayment Money     `json:"totalPayment"`
		CreatedAt    time.Time `json:"createdAt"`
	}

	// DateFlow is the income and expense total for one calendar day.
	DateFlow struct {
		ID          string `json:"id"`
		Date        Date   `json:"date"`
		Amount      Money  `json:"amount"`
		NegAmount   Money  `json:"negAmount"`
		PendingSync bool   `json:"pendingSync,omitempty"`
	}

	Expense struct {
		ID        string    `json:"id"`
		Title     string    `json:"title"`
		Amount    Money     `json:"amount"`
		Date      Date      `json:"date"`
		Category  Category  `json:"category"`
		CreatedAt time.Time `json:"createdAt"`
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day as observed in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, invalid(ErrInvalidDate, "Please enter a valid date")
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return invalid(ErrInvalidDate, "Please enter a valid date")
	}
	return nil
}

// AddDays returns the date n days later (or earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// IsBefore, IsAfter and IsSame compare at day granularity.
func (d Date) IsBefore(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) IsAfter(o Date) bool  { return d.Time.After(o.Time) }
func (d Date) IsSame(o Date) bool   { return d.Time.Equal(o.Time) }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Active reports whether the stay still occupies its room.
func (s Stay) Active() bool {
	return s.Status != StatusCheckedOut
}

func (c Category) Valid() bool {
	switch c {
	case CategoryWater, CategoryElectricity, CategoryWage, CategoryEquipment, CategoryOther:
		return true
	}
	return false
}

// Categories lists expense categories in display order.
func Categories() []Category {
	return []Category{CategoryWater, CategoryElectricity, CategoryWage, CategoryEquipment, CategoryOther}
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return invalid(ErrEmptyTitle, "Please enter a title")
	}
	if len(e.Title) > 200 {
		return invalid(ErrEmptyTitle, "Title too long (max 200 characters)")
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if !e.Category.Valid() {
		return invalid(ErrInvalidCategory, "Please choose a valid category")
	}
	return nil
}
