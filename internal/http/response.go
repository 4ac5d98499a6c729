package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"wisma/internal/auth"
	"wisma/internal/core"
	"wisma/internal/log"
)

const persistenceMessage = "Could not save changes, please retry"

// ResponseBuilder assembles a JSON response: status, headers and body.
type ResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
	hasBody    bool
}

func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.body = v
	b.hasBody = true
	return b
}

func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if !b.hasBody {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	NewResponse().Status(status).JSON(v).Write(w)
}

type errorBody struct {
	Error    string            `json:"error"`
	Redirect string            `json:"redirect,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
}

// errorStatus maps the error taxonomy onto a status and a client-safe body.
func errorStatus(err error) (int, errorBody, string) {
	var (
		fieldErr *fieldError
		valErr   *core.ValidationError
		authErr  *auth.AuthError
	)
	switch {
	case errors.As(err, &authErr):
		return http.StatusUnauthorized, errorBody{Error: authErr.Error(), Redirect: "/login"}, log.ErrorTypeAuth
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, errorBody{Error: "Only admins can do that"}, log.ErrorTypeAuth
	case errors.As(err, &fieldErr):
		return http.StatusUnprocessableEntity, errorBody{Error: fieldErr.Msg, Fields: fieldErr.Fields}, log.ErrorTypeValidation
	case errors.As(err, &valErr):
		return http.StatusUnprocessableEntity, errorBody{Error: valErr.Msg}, log.ErrorTypeValidation
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, errorBody{Error: "Malformed request"}, log.ErrorTypeValidation
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, errorBody{Error: "Not found"}, log.ErrorTypeNotFound
	case core.IsPersistence(err):
		return http.StatusServiceUnavailable, errorBody{Error: persistenceMessage}, log.ErrorTypePersistence
	default:
		return http.StatusInternalServerError, errorBody{Error: "Something went wrong"}, log.ErrorTypeInternal
	}
}

// writeError logs err and answers with its mapped status. Client mistakes
// log at warn, everything else at error.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, body, kind := errorStatus(err)

	fields := log.NewFields().
		WithOperation(op).
		WithError(err).
		WithErrorType(kind)
	logger := log.FromContext(r.Context())
	if status >= 500 {
		logger.ErrorContext(r.Context(), "Request failed", fields.ToSlice()...)
	} else {
		logger.WarnContext(r.Context(), "Request rejected", fields.ToSlice()...)
	}

	if status == http.StatusUnauthorized {
		auth.ClearCookie(w, s.cookieSecure)
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}
	writeJSON(w, status, body)
}
