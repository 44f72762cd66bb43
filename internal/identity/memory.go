package identity

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

type memoryUser struct {
	id       string
	password string
}

// Memory is an in-process provider for local development and tests.
// Accounts live only as long as the process.
type Memory struct {
	mu    sync.Mutex
	users map[string]memoryUser
}

func NewMemory() *Memory {
	return &Memory{users: make(map[string]memoryUser)}
}

var _ Provider = (*Memory)(nil)

func (m *Memory) SignUp(_ context.Context, email, password string) (Session, error) {
	if err := validateCredentials(email, password); err != nil {
		return Session{}, err
	}
	email = normalizeEmail(email)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[email]; ok {
		return Session{}, ErrUserExists
	}
	user := memoryUser{id: uuid.NewString(), password: password}
	m.users[email] = user
	return Session{UserID: user.id, Email: email}, nil
}

func (m *Memory) SignIn(_ context.Context, email, password string) (Session, error) {
	if err := validateCredentials(email, password); err != nil {
		return Session{}, err
	}
	email = normalizeEmail(email)

	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[email]
	if !ok || user.password != password {
		return Session{}, ErrInvalidCredentials
	}
	return Session{UserID: user.id, Email: email}, nil
}

func (m *Memory) SignOut(_ context.Context, _ Session) error {
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
