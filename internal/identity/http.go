package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPProvider talks to a GoTrue-compatible authentication service
// (the API Supabase exposes). Only the password grant is used.
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPProvider(baseURL, apiKey string) *HTTPProvider {
	return &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

var _ Provider = (*HTTPProvider)(nil)

type authResponse struct {
	AccessToken string `json:"access_token"`
	User        struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
	// Error shapes vary between endpoints.
	Msg              string `json:"msg"`
	ErrorDescription string `json:"error_description"`
}

func (p *HTTPProvider) SignUp(ctx context.Context, email, password string) (Session, error) {
	if err := validateCredentials(email, password); err != nil {
		return Session{}, err
	}
	return p.authRequest(ctx, "/signup", email, password)
}

func (p *HTTPProvider) SignIn(ctx context.Context, email, password string) (Session, error) {
	if err := validateCredentials(email, password); err != nil {
		return Session{}, err
	}
	return p.authRequest(ctx, "/token?grant_type=password", email, password)
}

func (p *HTTPProvider) SignOut(ctx context.Context, s Session) error {
	if s.AccessToken == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/logout", nil)
	if err != nil {
		return fmt.Errorf("build logout request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.AccessToken)
	req.Header.Set("apikey", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	// GoTrue answers 204; any 2xx means the token is revoked.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("logout: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (p *HTTPProvider) authRequest(ctx context.Context, path, email, password string) (Session, error) {
	body, err := json.Marshal(map[string]string{
		"email":    normalizeEmail(email),
		"password": password,
	})
	if err != nil {
		return Session{}, fmt.Errorf("encode auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return Session{}, fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return Session{}, fmt.Errorf("auth request: %w", err)
	}
	defer resp.Body.Close()

	var parsed authResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Session{}, fmt.Errorf("decode auth response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
		return Session{}, ErrInvalidCredentials
	case resp.StatusCode == http.StatusUnprocessableEntity:
		if strings.Contains(strings.ToLower(parsed.Msg), "registered") {
			return Session{}, ErrUserExists
		}
		return Session{}, fmt.Errorf("auth rejected: %s", firstNonEmpty(parsed.Msg, parsed.ErrorDescription))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return Session{}, fmt.Errorf("auth: unexpected status %d: %s", resp.StatusCode, firstNonEmpty(parsed.Msg, parsed.ErrorDescription))
	}

	if parsed.User.ID == "" {
		return Session{}, errors.New("auth response missing user id")
	}
	return Session{
		UserID:      parsed.User.ID,
		Email:       parsed.User.Email,
		AccessToken: parsed.AccessToken,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return "unknown error"
}
