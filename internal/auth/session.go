package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"wisma/internal/core"
	"wisma/internal/log"
)

// SessionTTL is how long a session token and its cookie stay valid.
const SessionTTL = 5 * 24 * time.Hour

const sessionIssuer = "wisma"

// Session is the server-side record behind a session token. Deleting the
// record ends the session even while the token is still unexpired.
type Session struct {
	ID        string
	Subject   string
	Email     string
	Admin     bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionStore persists sessions and admin grants. Get returns ErrNoSession
// for unknown or deleted ids.
type SessionStore interface {
	SaveSession(ctx context.Context, s Session) error
	GetSession(ctx context.Context, id string) (Session, error)
	DeleteSession(ctx context.Context, id string) error
	GrantAdmin(ctx context.Context, email, grantedBy string, at time.Time) error
	IsAdmin(ctx context.Context, email string) (bool, error)
}

type sessionClaims struct {
	Email string `json:"email,omitempty"`
	Admin bool   `json:"admin"`
	jwt.RegisteredClaims
}

// Manager issues and checks session tokens.
type Manager struct {
	verifier *IdentityVerifier
	store    SessionStore
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
	logger   *log.Logger
}

func NewManager(verifier *IdentityVerifier, store SessionStore, secret string, logger *log.Logger) *Manager {
	return &Manager{
		verifier: verifier,
		store:    store,
		secret:   []byte(secret),
		ttl:      SessionTTL,
		now:      time.Now,
		logger:   logger.WithComponent(log.ComponentAuth),
	}
}

// CreateSession exchanges an identity provider token for a session token.
// The admin claim is the provider's flag or a stored grant for the email.
func (m *Manager) CreateSession(ctx context.Context, idToken string) (string, Session, error) {
	identity, err := m.verifier.Verify(ctx, idToken)
	if err != nil {
		m.logger.WarnContext(ctx, "Identity token rejected", log.FieldError, err)
		return "", Session{}, err
	}

	admin := identity.Admin
	if !admin && identity.Email != "" {
		granted, err := m.store.IsAdmin(ctx, identity.Email)
		if err != nil {
			return "", Session{}, fmt.Errorf("check admin grant: %w", err)
		}
		admin = granted
	}

	now := m.now().UTC()
	s := Session{
		ID:        uuid.NewString(),
		Subject:   identity.Subject,
		Email:     identity.Email,
		Admin:     admin,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	token, err := m.sign(s)
	if err != nil {
		return "", Session{}, err
	}
	if err := m.store.SaveSession(ctx, s); err != nil {
		return "", Session{}, core.Persistence("save session", err)
	}

	m.logger.InfoContext(ctx, "Session created",
		log.FieldUserID, s.Subject,
		"admin", s.Admin,
		"expires_at", s.ExpiresAt.Format(time.RFC3339),
	)
	return token, s, nil
}

func (m *Manager) sign(s Session) (string, error) {
	claims := sessionClaims{
		Email: s.Email,
		Admin: s.Admin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ID,
			Subject:   s.Subject,
			Issuer:    sessionIssuer,
			IssuedAt:  jwt.NewNumericDate(s.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return token, nil
}

func (m *Manager) parse(raw string, opts ...jwt.ParserOption) (*sessionClaims, error) {
	opts = append(opts,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithTimeFunc(m.now),
	)
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrInvalidKeyType
		}
		return m.secret, nil
	}, opts...)
	return claims, err
}

// Authenticate resolves a session token to its live session.
func (m *Manager) Authenticate(ctx context.Context, raw string) (Session, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Session{}, unauthenticated(ErrNoSession, "Please sign in")
	}

	claims, err := m.parse(raw, jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Session{}, unauthenticated(ErrSessionExpired, "Your session has expired, please sign in again")
		}
		return Session{}, unauthenticated(fmt.Errorf("%w: %v", ErrNoSession, err), "Please sign in")
	}

	s, err := m.store.GetSession(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return Session{}, unauthenticated(ErrNoSession, "Please sign in")
		}
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	if !m.now().Before(s.ExpiresAt) {
		return Session{}, unauthenticated(ErrSessionExpired, "Your session has expired, please sign in again")
	}
	return s, nil
}

// Revoke deletes the record behind raw. Expired or unknown tokens are not
// an error since the outcome is the same.
func (m *Manager) Revoke(ctx context.Context, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	claims, err := m.parse(raw, jwt.WithoutClaimsValidation())
	if err != nil || claims.ID == "" {
		return nil
	}
	if err := m.store.DeleteSession(ctx, claims.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	m.logger.InfoContext(ctx, "Session revoked", log.FieldUserID, claims.Subject)
	return nil
}

// GrantAdmin records an admin grant for email. Only admins may grant, and
// the grant applies from the grantee's next sign-in.
func (m *Manager) GrantAdmin(ctx context.Context, actor Session, email string) error {
	if !actor.Admin {
		m.logger.WarnContext(ctx, "Admin grant refused", log.FieldUserID, actor.Subject)
		return ErrForbidden
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return &core.ValidationError{Err: ErrInvalidEmail, Msg: "Please enter a valid email address"}
	}
	if err := m.store.GrantAdmin(ctx, email, actor.Email, m.now().UTC()); err != nil {
		return core.Persistence("grant admin", err)
	}
	m.logger.InfoContext(ctx, "Admin granted", "email", email, "granted_by", actor.Email)
	return nil
}
