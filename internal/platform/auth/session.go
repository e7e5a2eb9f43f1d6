package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

const (
	defaultCookieName  = "fabrow_admin"
	defaultCookiePath  = "/"
	defaultLifetime    = 12 * time.Hour
	defaultIdleTimeout = 30 * time.Minute
	minKeyLength       = 32
)

var (
	// ErrNoSession indicates the request carries no readable session cookie.
	ErrNoSession = errors.New("auth: no session")
	// ErrExpired indicates the stored session passed its idle or absolute expiry.
	ErrExpired = errors.New("auth: session expired")
	// ErrInvalidConfig indicates the session manager was built with missing or weak keys.
	ErrInvalidConfig = errors.New("auth: invalid session config")
)

// Session is the payload persisted in the signed and encrypted admin cookie.
type Session struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	CSRFToken  string    `json:"csrf"`
	CreatedAt  time.Time `json:"createdAt"`
	LastActive time.Time `json:"lastActive"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// SessionConfig controls cookie encoding and lifecycle limits.
type SessionConfig struct {
	CookieName   string
	CookiePath   string
	CookieSecure bool
	HashKey      []byte
	BlockKey     []byte
	IdleTimeout  time.Duration
	Lifetime     time.Duration
	Now          func() time.Time
}

// SessionManager issues and validates admin session cookies with gorilla/securecookie.
type SessionManager struct {
	cfg   SessionConfig
	codec *securecookie.SecureCookie
	now   func() time.Time
}

// NewSessionManager validates the keys and applies defaults.
func NewSessionManager(cfg SessionConfig) (*SessionManager, error) {
	if len(cfg.HashKey) < minKeyLength {
		return nil, fmt.Errorf("%w: hash key must be at least %d bytes", ErrInvalidConfig, minKeyLength)
	}
	switch len(cfg.BlockKey) {
	case 0, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: block key must be 16, 24, or 32 bytes", ErrInvalidConfig)
	}
	if cfg.CookieName == "" {
		cfg.CookieName = defaultCookieName
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = defaultCookiePath
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = defaultLifetime
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	codec := securecookie.New(cfg.HashKey, cfg.BlockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(cfg.Lifetime.Seconds()))

	return &SessionManager{
		cfg:   cfg,
		codec: codec,
		now:   func() time.Time { return now().UTC() },
	}, nil
}

// Issue starts a new session for username and writes the cookie.
func (m *SessionManager) Issue(w http.ResponseWriter, username string) (Session, error) {
	id, err := generateToken(24)
	if err != nil {
		return Session{}, err
	}
	csrf, err := generateToken(32)
	if err != nil {
		return Session{}, err
	}
	now := m.now()
	sess := Session{
		ID:         id,
		Username:   username,
		CSRFToken:  csrf,
		CreatedAt:  now,
		LastActive: now,
		ExpiresAt:  now.Add(m.cfg.Lifetime),
	}
	if err := m.write(w, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Load decodes the session cookie. Expired sessions return ErrExpired.
func (m *SessionManager) Load(r *http.Request) (Session, error) {
	cookie, err := r.Cookie(m.cfg.CookieName)
	if err != nil || cookie.Value == "" {
		return Session{}, ErrNoSession
	}
	var sess Session
	if err := m.codec.Decode(m.cfg.CookieName, cookie.Value, &sess); err != nil {
		return Session{}, ErrNoSession
	}
	if sess.ID == "" || sess.Username == "" {
		return Session{}, ErrNoSession
	}
	now := m.now()
	if !sess.ExpiresAt.IsZero() && now.After(sess.ExpiresAt) {
		return Session{}, ErrExpired
	}
	if now.Sub(sess.LastActive) > m.cfg.IdleTimeout {
		return Session{}, ErrExpired
	}
	return sess, nil
}

// Touch slides the idle window forward. The absolute expiry is unchanged.
func (m *SessionManager) Touch(w http.ResponseWriter, sess Session) (Session, error) {
	now := m.now()
	if !now.After(sess.LastActive) {
		return sess, nil
	}
	sess.LastActive = now
	return sess, m.write(w, sess)
}

// Destroy clears the session cookie.
func (m *SessionManager) Destroy(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    "",
		Path:     m.cfg.CookiePath,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   m.cfg.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *SessionManager) write(w http.ResponseWriter, sess Session) error {
	encoded, err := m.codec.Encode(m.cfg.CookieName, sess)
	if err != nil {
		return fmt.Errorf("auth: encode session: %w", err)
	}
	cookie := &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    encoded,
		Path:     m.cfg.CookiePath,
		Secure:   m.cfg.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  sess.ExpiresAt,
	}
	if remaining := sess.ExpiresAt.Sub(m.now()); remaining > 0 {
		cookie.MaxAge = int(remaining.Round(time.Second).Seconds())
	}
	http.SetCookie(w, cookie)
	return nil
}

func generateToken(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("auth: generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
