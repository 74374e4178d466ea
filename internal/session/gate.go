// Package session gates access to the board behind a static credential pair.
package session

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/s1natex/taskorbit/internal/kv"
)

const Key = "taskOrbit_session"

var (
	ErrCredentialsRequired = errors.New("email and password are required")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrNoSession           = errors.New("no active session")
	ErrInvalidToken        = errors.New("invalid session token")
)

type Session struct {
	Email      string    `json:"email"`
	LoggedInAt time.Time `json:"loggedInAt"`
}

type Config struct {
	Email    string
	Password string
	Secret   []byte
	TTL      time.Duration
}

// Gate holds the single active session. Remembered sessions are written to
// the durable store, others to the session-scoped one.
type Gate struct {
	mu       sync.Mutex
	cfg      Config
	durable  *kv.Store
	scoped   *kv.Store
	current  *Session
	onLogin  []func(Session)
	onLogout []func()
	now      func() time.Time
	logger   *slog.Logger
}

// NewGate restores a stored session, preferring the durable store.
func NewGate(cfg Config, durable, scoped *kv.Store, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	g := &Gate{
		cfg:     cfg,
		durable: durable,
		scoped:  scoped,
		now:     func() time.Time { return time.Now().UTC() },
		logger:  logger,
	}

	var s Session
	if durable.Get(Key, &s) && s.Email != "" {
		g.current = &s
	} else if scoped.Get(Key, &s) && s.Email != "" {
		g.current = &s
	}
	if g.current != nil {
		logger.Info("session_restored", slog.String("email", g.current.Email))
	}
	return g
}

func (g *Gate) OnLogin(fn func(Session)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onLogin = append(g.onLogin, fn)
}

func (g *Gate) OnLogout(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onLogout = append(g.onLogout, fn)
}

// Login checks the credentials, stores the session and returns it with a
// signed token.
func (g *Gate) Login(email, password string, remember bool) (Session, string, error) {
	email = strings.TrimSpace(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return Session{}, "", ErrCredentialsRequired
	}
	if !constantTimeEq(email, g.cfg.Email) || !constantTimeEq(password, g.cfg.Password) {
		g.logger.Warn("login_rejected", slog.String("email", email))
		return Session{}, "", ErrInvalidCredentials
	}

	g.mu.Lock()
	s := Session{Email: email, LoggedInAt: g.now().Truncate(time.Second)}
	token, err := g.issue(s)
	if err != nil {
		g.mu.Unlock()
		return Session{}, "", err
	}
	g.current = &s
	if remember {
		g.durable.Set(Key, s)
		g.scoped.Remove(Key)
	} else {
		g.scoped.Set(Key, s)
		g.durable.Remove(Key)
	}
	hooks := append([]func(Session){}, g.onLogin...)
	g.mu.Unlock()

	g.logger.Info("login", slog.String("email", email), slog.Bool("remember", remember))
	for _, fn := range hooks {
		fn(s)
	}
	return s, token, nil
}

// Logout clears the session from memory and from both stores.
func (g *Gate) Logout() {
	g.mu.Lock()
	g.current = nil
	g.durable.Remove(Key)
	g.scoped.Remove(Key)
	hooks := append([]func(){}, g.onLogout...)
	g.mu.Unlock()

	g.logger.Info("logout")
	for _, fn := range hooks {
		fn()
	}
}

func (g *Gate) Current() (Session, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current == nil {
		return Session{}, false
	}
	return *g.current, true
}

func (g *Gate) IsAuthenticated() bool {
	_, ok := g.Current()
	return ok
}

// Token issues a fresh token for the active session.
func (g *Gate) Token() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current == nil {
		return "", ErrNoSession
	}
	return g.issue(*g.current)
}

// Verify accepts tokens issued for the active session only.
func (g *Gate) Verify(token string) bool {
	claims, err := g.parse(token)
	if err != nil {
		return false
	}
	s, ok := g.Current()
	if !ok {
		return false
	}
	return claims.Subject == s.Email && claims.IssuedAt != nil && claims.IssuedAt.Unix() == s.LoggedInAt.Unix()
}

func constantTimeEq(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
