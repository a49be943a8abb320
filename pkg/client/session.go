package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"tritmo/internal/models"
)

// SessionState describes where the identity provider is in its lifecycle.
type SessionState string

const (
	// SessionInitializing means the persisted token is being validated.
	// Consumers should hold role-dependent decisions until this resolves.
	SessionInitializing SessionState = "INITIALIZING"
	// SessionReady means a validated user identity is available.
	SessionReady SessionState = "READY"
	// SessionAnonymous means there is no usable identity.
	SessionAnonymous SessionState = "ANONYMOUS"
)

// Session is the single source of identity for the SDK. It resumes from the
// token store on Init, and only Login, Logout and Refresh mutate it. State
// changes are fanned out to subscribers, which is how the realtime bridge
// learns when to connect and when to stand down.
type Session struct {
	baseURL string
	http    *http.Client
	store   TokenStore

	mu        sync.RWMutex
	state     SessionState
	tokens    TokenPair
	user      *models.UserSanitized
	listeners []func(SessionState)
}

// NewSession creates a session talking to the given API base URL.
func NewSession(baseURL string, store TokenStore, httpClient *http.Client) *Session {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Session{
		baseURL: baseURL,
		http:    httpClient,
		store:   store,
		state:   SessionInitializing,
	}
}

// OnChange registers a callback invoked after every state transition.
// Callbacks run synchronously on the mutating goroutine.
func (s *Session) OnChange(fn func(SessionState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// User returns the validated identity, or nil when anonymous.
func (s *Session) User() *models.UserSanitized {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// AccessToken returns the current bearer token, empty when anonymous.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.AccessToken
}

// Init resumes the session from the token store. A persisted token is
// validated against the profile endpoint before the session reports ready;
// a stale access token gets one refresh attempt. Any failure resolves to
// anonymous, never to an error the caller must handle.
func (s *Session) Init(ctx context.Context) {
	pair, err := s.store.Load()
	if err != nil || pair.Empty() {
		s.become(SessionAnonymous, TokenPair{}, nil)
		return
	}

	s.mu.Lock()
	s.tokens = pair
	s.mu.Unlock()

	user, err := s.fetchProfile(ctx, pair.AccessToken)
	if err == nil {
		s.become(SessionReady, pair, user)
		return
	}

	if err := s.Refresh(ctx); err != nil {
		s.store.Clear()
		s.become(SessionAnonymous, TokenPair{}, nil)
		return
	}
	pair = s.currentTokens()
	user, err = s.fetchProfile(ctx, pair.AccessToken)
	if err != nil {
		s.store.Clear()
		s.become(SessionAnonymous, TokenPair{}, nil)
		return
	}
	s.become(SessionReady, pair, user)
}

// Login authenticates with credentials and persists the issued tokens.
func (s *Session) Login(ctx context.Context, email, password string) error {
	var out struct {
		AccessToken  string               `json:"accessToken"`
		RefreshToken string               `json:"refreshToken"`
		User         models.UserSanitized `json:"user"`
	}
	err := s.post(ctx, "/api/v1/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return err
	}

	pair := TokenPair{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken}
	if err := s.store.Save(pair); err != nil {
		return fmt.Errorf("persisting tokens: %w", err)
	}
	s.become(SessionReady, pair, &out.User)
	return nil
}

// Logout revokes the refresh token server-side and clears local state. The
// local session ends even when the server call fails.
func (s *Session) Logout(ctx context.Context) error {
	pair := s.currentTokens()
	var serverErr error
	if pair.RefreshToken != "" {
		serverErr = s.post(ctx, "/api/v1/auth/logout", map[string]string{
			"refreshToken": pair.RefreshToken,
		}, nil)
	}

	s.store.Clear()
	s.become(SessionAnonymous, TokenPair{}, nil)
	return serverErr
}

// Refresh exchanges the refresh token for a new pair. On failure the session
// is cleared; the caller must not retry.
func (s *Session) Refresh(ctx context.Context) error {
	pair := s.currentTokens()
	if pair.RefreshToken == "" {
		return &APIError{Status: http.StatusUnauthorized, Message: "no refresh token available"}
	}

	var out struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	err := s.post(ctx, "/api/v1/auth/refresh-token", map[string]string{
		"refreshToken": pair.RefreshToken,
	}, &out)
	if err != nil {
		s.store.Clear()
		s.become(SessionAnonymous, TokenPair{}, nil)
		return err
	}

	next := TokenPair{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken}
	if err := s.store.Save(next); err != nil {
		return fmt.Errorf("persisting refreshed tokens: %w", err)
	}

	s.mu.Lock()
	s.tokens = next
	s.mu.Unlock()
	return nil
}

func (s *Session) currentTokens() TokenPair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens
}

// become applies a state transition and notifies subscribers outside the lock.
func (s *Session) become(state SessionState, tokens TokenPair, user *models.UserSanitized) {
	s.mu.Lock()
	s.state = state
	s.tokens = tokens
	s.user = user
	listeners := append([]func(SessionState){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
}

func (s *Session) fetchProfile(ctx context.Context, accessToken string) (*models.UserSanitized, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/v1/auth/profile", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var user models.UserSanitized
	if err := decodeEnvelope(resp, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// post sends an unauthenticated JSON request and decodes the envelope data.
func (s *Session) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeEnvelope(resp, out)
}
