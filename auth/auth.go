// ABOUTME: Hardcoded single-user authentication with persisted session
// ABOUTME: Not a security boundary; mirrors the client-side login check
package auth

import (
	"errors"
	"log"
	"strings"
	"sync"
	"time"
)

const (
	adminEmail    = "admin@indik4.com"
	adminPassword = "admin123"

	// DefaultLoginDelay imitates a round trip so the login screen feels
	// like it talked to something.
	DefaultLoginDelay = 500 * time.Millisecond
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type User struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Session is the persisted auth partition: {user, isAuthenticated}.
type Session struct {
	User            *User `json:"user"`
	IsAuthenticated bool  `json:"isAuthenticated"`
}

// SessionStore persists sessions across restarts. Saves are best-effort.
type SessionStore interface {
	SaveSession(Session) error
	LoadSession() (Session, error)
}

type Manager struct {
	// Delay is the artificial login latency. Tests set it to zero.
	Delay time.Duration

	mu       sync.Mutex
	session  Session
	sessions SessionStore
}

// NewManager creates a manager, restoring any persisted session. A nil
// store keeps the session in memory only.
func NewManager(sessions SessionStore) *Manager {
	m := &Manager{Delay: DefaultLoginDelay, sessions: sessions}
	if sessions != nil {
		if sess, err := sessions.LoadSession(); err == nil {
			m.session = sess
		}
	}
	return m
}

// Login checks the hardcoded credential and establishes the session.
func (m *Manager) Login(email, password string) (Session, error) {
	time.Sleep(m.Delay)
	if !strings.EqualFold(email, adminEmail) || password != adminPassword {
		return Session{}, ErrInvalidCredentials
	}
	m.mu.Lock()
	m.session = Session{
		User:            &User{Name: "Administrator", Email: adminEmail},
		IsAuthenticated: true,
	}
	sess := m.session
	m.mu.Unlock()
	m.persist(sess)
	return sess, nil
}

// Logout clears the session.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.session = Session{}
	sess := m.session
	m.mu.Unlock()
	m.persist(sess)
}

// Session returns the current session.
func (m *Manager) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

func (m *Manager) persist(sess Session) {
	if m.sessions == nil {
		return
	}
	if err := m.sessions.SaveSession(sess); err != nil {
		log.Printf("Failed to persist session: %v", err)
	}
}
