package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"wisma/internal/core"
)

const maxBodyBytes = 64 << 10

var errBadRequest = errors.New("bad request")

// fieldError is a DTO that failed tag validation. Fields maps the JSON
// field name to its message.
type fieldError struct {
	Msg    string
	Fields map[string]string
}

func (e *fieldError) Error() string { return e.Msg }

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads a single JSON object into dst and validates its tags.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if core.IsValidation(err) {
			return err
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return s.validateStruct(dst)
}

func (s *Server) validateStruct(dst any) error {
	err := s.validate.Struct(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	fe := &fieldError{Fields: make(map[string]string, len(verrs))}
	for _, v := range verrs {
		msg := fieldMessage(v)
		fe.Fields[v.Field()] = msg
		if fe.Msg == "" {
			fe.Msg = msg
		}
	}
	return fe
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Please enter %s", humanField(fe.Field()))
	case "datetime":
		return "Please enter a valid date"
	case "email":
		return "Please enter a valid email address"
	case "max":
		return fmt.Sprintf("%s is too long", capitalize(humanField(fe.Field())))
	case "oneof":
		return fmt.Sprintf("Please choose a valid %s", humanField(fe.Field()))
	default:
		return fmt.Sprintf("Invalid %s", humanField(fe.Field()))
	}
}

// humanField turns a camelCase JSON name into words: checkOutDate becomes
// "check out date".
func humanField(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte(' ')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// moneyInput accepts a JSON number or a formatted string such as
// "Rp 200.000". An empty string is zero.
type moneyInput core.Money

func (m *moneyInput) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			*m = 0
			return nil
		}
		v, err := core.ParseMoney(s)
		if err != nil {
			return err
		}
		*m = moneyInput(v)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return &core.ValidationError{Err: core.ErrInvalidAmount, Msg: "Please enter a valid amount"}
	}
	*m = moneyInput(n)
	return nil
}

type createSessionRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

type grantAdminRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type checkInRequest struct {
	RoomNumber   int    `json:"roomNumber"`
	GuestName    string `json:"guestName" validate:"max=100"`
	CheckInDate  string `json:"checkInDate" validate:"required,datetime=2006-01-02"`
	CheckOutDate string `json:"checkOutDate" validate:"required,datetime=2006-01-02"`
}

type paymentRequest struct {
	PaidThrough string      `json:"paidThrough" validate:"required,datetime=2006-01-02"`
	Amount      *moneyInput `json:"amount,omitempty"`
}

type extendRequest struct {
	CheckOutDate string `json:"checkOutDate" validate:"required,datetime=2006-01-02"`
}

type flowRequest struct {
	Date    string     `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Income  moneyInput `json:"income"`
	Expense moneyInput `json:"expense"`
}

type expenseRequest struct {
	Title    string     `json:"title" validate:"max=200"`
	Amount   moneyInput `json:"amount"`
	Date     string     `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Category string     `json:"category"`
}

// dateOrToday parses s, using today when it is empty.
func dateOrToday(s string, today core.Date) (core.Date, error) {
	if strings.TrimSpace(s) == "" {
		return today, nil
	}
	return core.ParseDate(s)
}

// parseRollupParams reads ?period= and ?offset=. Both default: week, 0.
func parseRollupParams(r *http.Request) (core.Period, int, error) {
	q := r.URL.Query()
	p, err := core.ParsePeriod(q.Get("period"))
	if err != nil {
		return "", 0, err
	}
	offset := 0
	if v := strings.TrimSpace(q.Get("offset")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return "", 0, &core.ValidationError{Err: core.ErrInvalidPeriod, Msg: "Offset must be zero or a positive number"}
		}
		if n > core.MaxPeriodOffset {
			return "", 0, &core.ValidationError{Err: core.ErrInvalidPeriod, Msg: fmt.Sprintf("Offset cannot exceed %d", core.MaxPeriodOffset)}
		}
		offset = n
	}
	return p, offset, nil
}

func parseBoolQuery(r *http.Request, key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(r.URL.Query().Get(key)))
	return err == nil && v
}

// sanitizeInput trims s and drops control characters other than tab and
// newlines.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
