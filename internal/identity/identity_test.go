package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMemorySignUpAndSignIn(t *testing.T) {
	provider := NewMemory()
	ctx := context.Background()

	created, err := provider.SignUp(ctx, "ana@example.com", "secret1")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if created.UserID == "" {
		t.Fatal("expected a user id")
	}

	again, err := provider.SignIn(ctx, "Ana@Example.com", "secret1")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if again.UserID != created.UserID {
		t.Fatalf("user id must be stable: %q vs %q", again.UserID, created.UserID)
	}
}

func TestMemoryRejections(t *testing.T) {
	provider := NewMemory()
	ctx := context.Background()
	if _, err := provider.SignUp(ctx, "ana@example.com", "secret1"); err != nil {
		t.Fatalf("sign up: %v", err)
	}

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"duplicate sign up", func() error {
			_, err := provider.SignUp(ctx, "ana@example.com", "other99")
			return err
		}, ErrUserExists},
		{"wrong password", func() error {
			_, err := provider.SignIn(ctx, "ana@example.com", "wrong99")
			return err
		}, ErrInvalidCredentials},
		{"unknown user", func() error {
			_, err := provider.SignIn(ctx, "bob@example.com", "secret1")
			return err
		}, ErrInvalidCredentials},
		{"bad email", func() error {
			_, err := provider.SignUp(ctx, "not-an-email", "secret1")
			return err
		}, ErrInvalidEmail},
		{"short password", func() error {
			_, err := provider.SignUp(ctx, "bob@example.com", "tiny")
			return err
		}, ErrWeakPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSessionEncodeDecodeRoundTrip(t *testing.T) {
	s := Session{UserID: "u1", Email: "ana@example.com", AccessToken: "tok"}
	doc, err := EncodeSession(s)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeSession(doc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != s {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestDecodeSessionRequiresUserID(t *testing.T) {
	if _, err := DecodeSession([]byte(`{"email":"ana@example.com"}`)); err == nil {
		t.Fatal("expected error for missing user id")
	}
}

func TestHTTPProviderSignIn(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" || r.URL.Query().Get("grant_type") != "password" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL)
		}
		if r.Header.Get("apikey") != "anon-key" {
			t.Errorf("missing apikey header")
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret1" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error_description": "invalid grant"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok",
			"user":         map[string]string{"id": "u1", "email": body["email"]},
		})
	}))
	defer server.Close()

	provider := NewHTTPProvider(server.URL, "anon-key")
	ctx := context.Background()

	s, err := provider.SignIn(ctx, "ana@example.com", "secret1")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if s.UserID != "u1" || s.AccessToken != "tok" {
		t.Fatalf("unexpected session: %+v", s)
	}

	if _, err := provider.SignIn(ctx, "ana@example.com", "wrong99"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestHTTPProviderSignUpDuplicate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"msg": "User already registered"})
	}))
	defer server.Close()

	provider := NewHTTPProvider(server.URL, "anon-key")
	if _, err := provider.SignUp(context.Background(), "ana@example.com", "secret1"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}
