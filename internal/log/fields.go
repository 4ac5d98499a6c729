package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldErrorType  = "error_type"
	FieldOperation  = "operation"
	FieldStayID     = "stay_id"
	FieldRoom       = "room"
	FieldStatus     = "status"
	FieldDate       = "date"
	FieldAmount     = "amount"
	FieldNegAmount  = "neg_amount"
	FieldExpenseID  = "expense_id"
	FieldCategory   = "category"
	FieldPeriod     = "period"
	FieldOffset     = "offset"
	FieldUserID     = "user_id"
	FieldOutboxID   = "outbox_id"
	FieldAttempts   = "attempts"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentStay      = "stay"
	ComponentCashFlow  = "cashflow"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentAuth      = "auth"
	ComponentOutbox    = "outbox"
	ComponentCache     = "cache"
	ComponentReport    = "report"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
	ComponentBackend   = "backend"
)

// Operations defines standard operation names
const (
	OpCheckIn  = "check_in"
	OpPayment  = "record_payment"
	OpExtend   = "extend_stay"
	OpCheckOut = "check_out"
	OpFlow     = "record_flow"
	OpCreate   = "create"
	OpRead     = "read"
	OpDelete   = "delete"
	OpList     = "list"
	OpSync     = "sync"
	OpValidate = "validate"
	OpExport   = "export"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// ErrorTypes mirrors the error taxonomy surfaced to clients
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypePersistence   = "persistence_error"
	ErrorTypeAuth          = "auth_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds the error message; a nil error adds nothing.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithErrorType(kind string) LogFields {
	f[FieldErrorType] = kind
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithStay adds the identifying fields of a stay.
func (f LogFields) WithStay(id string, room int, status string) LogFields {
	f[FieldStayID] = id
	f[FieldRoom] = room
	f[FieldStatus] = status
	return f
}

// WithFlow adds a day's cash-flow delta.
func (f LogFields) WithFlow(date string, income, expense int64) LogFields {
	f[FieldDate] = date
	f[FieldAmount] = income
	f[FieldNegAmount] = expense
	return f
}

func (f LogFields) WithExpense(id, category string, amount int64) LogFields {
	f[FieldExpenseID] = id
	f[FieldCategory] = category
	f[FieldAmount] = amount
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
