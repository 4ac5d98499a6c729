package http

import (
	"context"
	"net/http"

	"wisma/internal/auth"
	"wisma/internal/log"
)

type sessionKey struct{}

func withSession(ctx context.Context, s auth.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// sessionFrom returns the session attached by requireSession.
func sessionFrom(ctx context.Context) (auth.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(auth.Session)
	return s, ok
}

// requireSession rejects requests without a live session and attaches the
// session and the caller's id to the request logger.
func (s *Server) requireSession(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.Authenticate(r.Context(), auth.TokenFromRequest(r))
		if err != nil {
			s.writeError(w, r, log.OpValidate, err)
			return
		}
		ctx := withSession(r.Context(), sess)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUserID, sess.Subject))
		next(w, r.WithContext(ctx))
	})
}

// requireAdmin is requireSession plus the admin claim.
func (s *Server) requireAdmin(next http.HandlerFunc) http.Handler {
	return s.requireSession(func(w http.ResponseWriter, r *http.Request) {
		if sess, _ := sessionFrom(r.Context()); !sess.Admin {
			s.writeError(w, r, log.OpValidate, auth.ErrForbidden)
			return
		}
		next(w, r)
	})
}
