package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateOfTruncatesInLocation(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	// 20:30 UTC on Jan 1 is already Jan 2 in Jakarta.
	ts := time.Date(2024, 1, 1, 20, 30, 0, 0, time.UTC)
	if got := DateOf(ts, jakarta); !got.IsSame(NewDate(2024, 1, 2)) {
		t.Fatalf("DateOf = %s, want 2024-01-02", got)
	}
	if got := DateOf(ts, nil); !got.IsSame(NewDate(2024, 1, 1)) {
		t.Fatalf("DateOf(nil loc) = %s, want 2024-01-01", got)
	}
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2024, 3, 1)
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2024-03-01"` {
		t.Fatalf("marshal = %s", b)
	}
	var back Date
	if err := json.Unmarshal([]byte(`"2024-03-01"`), &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.IsSame(d) {
		t.Fatalf("unmarshal = %s, want %s", back, d)
	}
	if err := json.Unmarshal([]byte(`"03/01/2024"`), &back); err == nil {
		t.Fatalf("expected error for non ISO date")
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		Title:    "Electricity bill",
		Amount:   350000,
		Date:     NewDate(2025, 1, 1),
		Category: CategoryElectricity,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		e    Expense
		want error
	}{
		{Expense{Title: " ", Amount: 1, Date: NewDate(2025, 1, 1), Category: CategoryOther}, ErrEmptyTitle},
		{Expense{Title: "a", Amount: 0, Date: NewDate(2025, 1, 1), Category: CategoryOther}, ErrInvalidAmount},
		{Expense{Title: "a", Amount: -5, Date: NewDate(2025, 1, 1), Category: CategoryOther}, ErrInvalidAmount},
		{Expense{Title: "a", Amount: 1, Category: CategoryOther}, ErrInvalidDate},
		{Expense{Title: "a", Amount: 1, Date: NewDate(2025, 1, 1), Category: "food"}, ErrInvalidCategory},
	}
	for i, tc := range bads {
		err := tc.e.Validate()
		if !errors.Is(err, tc.want) {
			t.Fatalf("case %d: got %v, want %v", i, err, tc.want)
		}
		if !IsValidation(err) {
			t.Fatalf("case %d: expected ValidationError, got %T", i, err)
		}
	}
}

func TestPersistenceWrapping(t *testing.T) {
	if Persistence("op", nil) != nil {
		t.Fatalf("nil should stay nil")
	}
	base := errors.New("disk full")
	err := Persistence("save stay", base)
	if !IsPersistence(err) || !errors.Is(err, base) {
		t.Fatalf("expected wrapped persistence error, got %v", err)
	}
	if again := Persistence("outer", err); again != err {
		t.Fatalf("double wrap should be a no-op")
	}
	v := invalid(ErrInvalidRoom, "Please enter a valid room number")
	if Persistence("op", v) != v {
		t.Fatalf("validation errors must pass through")
	}
	if Persistence("op", ErrNotFound) != ErrNotFound {
		t.Fatalf("not found must pass through")
	}
}
