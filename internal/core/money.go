// Package core provides money parsing and handling utilities.
//
// Amounts are whole rupiah. There is no minor unit, so Money is a plain
// integer and all ledger arithmetic stays exact.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// Money is an amount in whole rupiah.
type Money int64

func (m Money) Validate() error {
	if m <= 0 {
		return invalid(ErrInvalidAmount, "Please enter a valid amount")
	}
	return nil
}

// String formats m with dot thousands separators, e.g. "Rp 200.000".
func (m Money) String() string {
	neg := m < 0
	v := int64(m)
	if neg {
		v = -v
	}
	digits := strconv.FormatInt(v, 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-Rp " + b.String()
	}
	return "Rp " + b.String()
}

// ParseMoney parses a positive whole-rupiah amount.
//
// It accepts an optional "Rp" prefix and dot, comma or space thousands
// separators. Fractions are not accepted.
//
// Examples:
//
//	ParseMoney("200000")      -> 200000, nil
//	ParseMoney("Rp 200.000")  -> 200000, nil
//	ParseMoney("1,500,000")   -> 1500000, nil
//	ParseMoney("-5")          -> 0, ErrInvalidAmount
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "Rp")
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, invalid(ErrInvalidAmount, "Please enter a valid amount")
	}
	var digits strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits.WriteRune(r)
		case r == '.' || r == ',' || r == ' ':
		default:
			return 0, invalid(ErrInvalidAmount, "Please enter a valid amount")
		}
	}
	v, err := strconv.ParseInt(digits.String(), 10, 64)
	if err != nil || v <= 0 {
		return 0, invalid(ErrInvalidAmount, "Please enter a valid amount")
	}
	return Money(v), nil
}
