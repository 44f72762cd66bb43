package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserExists         = errors.New("user already registered")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
)

// Session identifies a signed-in user. The user id keys both the local and
// the remote document, so it must be stable across sign-ins.
type Session struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	AccessToken string `json:"access_token,omitempty"`
}

// Provider is the port for the authentication backend.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (Session, error)
	SignIn(ctx context.Context, email, password string) (Session, error)
	SignOut(ctx context.Context, s Session) error
}

// EncodeSession renders a session for the local session slot.
func EncodeSession(s Session) ([]byte, error) {
	doc, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return doc, nil
}

func DecodeSession(doc []byte) (Session, error) {
	var s Session
	if err := json.Unmarshal(doc, &s); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	if s.UserID == "" {
		return Session{}, errors.New("decode session: missing user id")
	}
	return s, nil
}

// validateCredentials applies the checks shared by every provider before
// any network or lookup work happens.
func validateCredentials(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}
	if len(password) < 6 {
		return ErrWeakPassword
	}
	return nil
}
