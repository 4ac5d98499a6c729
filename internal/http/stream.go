package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"wisma/internal/log"
)

type watchFunc[T any] func(ctx context.Context, fn func([]T)) (func(), error)

// streamSnapshots serves a server-sent event stream. Every change sends
// the full ordered snapshot as one "snapshot" event. A slow client only
// ever sees the latest snapshot; intermediate ones are dropped.
func streamSnapshots[T any](s *Server, w http.ResponseWriter, r *http.Request, render func([]T) any, watch watchFunc[T]) {
	rc := http.NewResponseController(w)
	ctx := r.Context()

	updates := make(chan []T, 1)
	cancel, err := watch(ctx, func(items []T) {
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- items:
		default:
		}
	})
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	defer cancel()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Streaming unsupported", log.FieldError, err)
		return
	}

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case items := <-updates:
			data, err := json.Marshal(render(items))
			if err != nil {
				log.FromContext(ctx).ErrorContext(ctx, "Encode snapshot failed", log.FieldError, err)
				return
			}
			if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data); err != nil {
				return
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
