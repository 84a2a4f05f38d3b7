// ABOUTME: Tests for the single-user auth manager
// ABOUTME: Covers credential checks, session lifecycle, and persistence
package auth

import (
	"errors"
	"testing"
)

type fakeSessionStore struct {
	saved    []Session
	restored Session
}

func (f *fakeSessionStore) SaveSession(sess Session) error {
	f.saved = append(f.saved, sess)
	return nil
}

func (f *fakeSessionStore) LoadSession() (Session, error) {
	return f.restored, nil
}

func newTestManager(store SessionStore) *Manager {
	m := NewManager(store)
	m.Delay = 0
	return m
}

func TestLoginSuccess(t *testing.T) {
	m := newTestManager(nil)

	sess, err := m.Login("admin@indik4.com", "admin123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !sess.IsAuthenticated {
		t.Error("session not authenticated")
	}
	if sess.User == nil || sess.User.Email != "admin@indik4.com" {
		t.Errorf("user = %+v", sess.User)
	}
	if sess.User.Name != "Administrator" {
		t.Errorf("name = %q", sess.User.Name)
	}
}

func TestLoginEmailCaseInsensitive(t *testing.T) {
	m := newTestManager(nil)
	if _, err := m.Login("Admin@Indik4.COM", "admin123"); err != nil {
		t.Errorf("case-insensitive login failed: %v", err)
	}
}

func TestLoginWrongCredentials(t *testing.T) {
	m := newTestManager(nil)

	tests := []struct{ email, password string }{
		{"admin@indik4.com", "wrong"},
		{"someone@else.com", "admin123"},
		{"", ""},
	}
	for _, tt := range tests {
		if _, err := m.Login(tt.email, tt.password); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Login(%q, %q) err = %v, want ErrInvalidCredentials", tt.email, tt.password, err)
		}
	}

	if m.Session().IsAuthenticated {
		t.Error("failed login left an authenticated session")
	}
}

func TestLogoutClearsSession(t *testing.T) {
	m := newTestManager(nil)
	_, _ = m.Login("admin@indik4.com", "admin123")

	m.Logout()

	sess := m.Session()
	if sess.IsAuthenticated || sess.User != nil {
		t.Errorf("session after logout = %+v", sess)
	}
}

func TestSessionPersisted(t *testing.T) {
	store := &fakeSessionStore{}
	m := newTestManager(store)

	_, _ = m.Login("admin@indik4.com", "admin123")
	m.Logout()

	if len(store.saved) != 2 {
		t.Fatalf("saved %d sessions, want 2", len(store.saved))
	}
	if !store.saved[0].IsAuthenticated {
		t.Error("login not persisted as authenticated")
	}
	if store.saved[1].IsAuthenticated {
		t.Error("logout not persisted as cleared")
	}
}

func TestSessionRestoredOnStartup(t *testing.T) {
	store := &fakeSessionStore{
		restored: Session{
			User:            &User{Name: "Administrator", Email: "admin@indik4.com"},
			IsAuthenticated: true,
		},
	}
	m := newTestManager(store)

	if !m.Session().IsAuthenticated {
		t.Error("persisted session not restored")
	}
}
