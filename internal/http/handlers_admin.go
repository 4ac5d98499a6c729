package http

import (
	"errors"
	"net/http"

	"wisma/internal/log"
)

var errOutboxDisabled = errors.New("outbox processor not configured")

func (s *Server) handleOutboxStats(w http.ResponseWriter, r *http.Request) {
	if s.outbox == nil {
		s.writeError(w, r, log.OpRead, errOutboxDisabled)
		return
	}
	stats, err := s.outbox.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleOutboxRetry returns failed outbox items to pending.
func (s *Server) handleOutboxRetry(w http.ResponseWriter, r *http.Request) {
	if s.outbox == nil {
		s.writeError(w, r, log.OpSync, errOutboxDisabled)
		return
	}
	n, err := s.outbox.RetryFailed(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpSync, err)
		return
	}
	log.FromContext(r.Context()).WithComponent(log.ComponentOutbox).InfoContext(r.Context(), "Failed outbox items requeued",
		log.FieldOperation, log.OpSync,
		"count", n)
	writeJSON(w, http.StatusOK, map[string]int64{"requeued": n})
}
