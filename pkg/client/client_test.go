package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"tritmo/internal/models"
)

func writeEnvelope(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]any{"status": status, "message": "ok"}
	if status >= 400 {
		body["message"] = "An error occurred"
		body["error"] = "request failed"
	} else if data != nil {
		body["data"] = data
	}
	json.NewEncoder(w).Encode(body)
}

// newAPIStub builds a server whose /ping endpoint accepts only the token in
// *accepted, and whose refresh endpoint rotates to "fresh" while counting
// invocations.
func newAPIStub(t *testing.T, accepted *atomic.Value, refreshCalls *int32, refreshFails bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/ping", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+accepted.Load().(string) {
			writeEnvelope(w, http.StatusUnauthorized, nil)
			return
		}
		writeEnvelope(w, http.StatusOK, map[string]string{"pong": "true"})
	})
	mux.HandleFunc("/api/v1/auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(refreshCalls, 1)
		if refreshFails {
			writeEnvelope(w, http.StatusUnauthorized, nil)
			return
		}
		writeEnvelope(w, http.StatusOK, map[string]string{
			"accessToken":  "fresh",
			"refreshToken": "fresh-refresh",
		})
	})
	return httptest.NewServer(mux)
}

// readySession builds a session already holding tokens, as after a login.
func readySession(baseURL string, store TokenStore, access, refresh string) *Session {
	s := NewSession(baseURL, store, nil)
	store.Save(TokenPair{AccessToken: access, RefreshToken: refresh})
	s.become(SessionReady, TokenPair{AccessToken: access, RefreshToken: refresh}, &models.UserSanitized{
		ID:   "user-1",
		Role: models.RolePatient,
	})
	return s
}

func TestClient_RefreshesOnceAndRetries(t *testing.T) {
	var accepted atomic.Value
	accepted.Store("fresh")
	var refreshCalls int32
	server := newAPIStub(t, &accepted, &refreshCalls, false)
	defer server.Close()

	store := &MemoryTokenStore{}
	session := readySession(server.URL, store, "stale", "valid-refresh")
	c := New(server.URL, session, nil)

	var out map[string]string
	if err := c.Get(context.Background(), "/api/v1/ping", &out); err != nil {
		t.Fatalf("Get() error = %v, want success after refresh", err)
	}
	if got := atomic.LoadInt32(&refreshCalls); got != 1 {
		t.Errorf("refresh calls = %d, want 1", got)
	}
	if out["pong"] != "true" {
		t.Errorf("response data = %v, want pong", out)
	}

	pair, _ := store.Load()
	if pair.AccessToken != "fresh" {
		t.Errorf("persisted access token = %q, want rotated token", pair.AccessToken)
	}
}

func TestClient_NoSecondRefreshWhenRetryStillUnauthorized(t *testing.T) {
	var accepted atomic.Value
	accepted.Store("never-issued")
	var refreshCalls int32
	server := newAPIStub(t, &accepted, &refreshCalls, false)
	defer server.Close()

	session := readySession(server.URL, &MemoryTokenStore{}, "stale", "valid-refresh")
	c := New(server.URL, session, nil)

	err := c.Get(context.Background(), "/api/v1/ping", nil)
	if !IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("Get() error = %v, want 401 APIError", err)
	}
	// The retry's 401 must be surfaced, not fed back into another refresh.
	if got := atomic.LoadInt32(&refreshCalls); got != 1 {
		t.Errorf("refresh calls = %d, want exactly 1", got)
	}
}

func TestClient_FailedRefreshClearsSession(t *testing.T) {
	var accepted atomic.Value
	accepted.Store("never-issued")
	var refreshCalls int32
	server := newAPIStub(t, &accepted, &refreshCalls, true)
	defer server.Close()

	store := &MemoryTokenStore{}
	session := readySession(server.URL, store, "stale", "dead-refresh")
	c := New(server.URL, session, nil)

	err := c.Get(context.Background(), "/api/v1/ping", nil)
	if !IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("Get() error = %v, want original 401", err)
	}
	if session.State() != SessionAnonymous {
		t.Errorf("session state = %v, want anonymous after failed refresh", session.State())
	}
	if pair, _ := store.Load(); !pair.Empty() {
		t.Errorf("token store still holds %+v, want cleared", pair)
	}
}

func TestSession_InitResumesFromStore(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/profile", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer persisted" {
			writeEnvelope(w, http.StatusUnauthorized, nil)
			return
		}
		writeEnvelope(w, http.StatusOK, models.UserSanitized{ID: "user-1", Role: models.RoleDoctor})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	store := &MemoryTokenStore{}
	store.Save(TokenPair{AccessToken: "persisted", RefreshToken: "persisted-refresh"})

	session := NewSession(server.URL, store, nil)
	if session.State() != SessionInitializing {
		t.Fatalf("state before Init = %v, want initializing", session.State())
	}

	session.Init(context.Background())

	if session.State() != SessionReady {
		t.Fatalf("state after Init = %v, want ready", session.State())
	}
	if user := session.User(); user == nil || user.ID != "user-1" {
		t.Errorf("User() = %+v, want validated identity", user)
	}
}

func TestSession_InitWithNoTokensIsAnonymous(t *testing.T) {
	session := NewSession("http://unused", &MemoryTokenStore{}, nil)
	session.Init(context.Background())

	if session.State() != SessionAnonymous {
		t.Errorf("state = %v, want anonymous", session.State())
	}
	if session.User() != nil {
		t.Errorf("User() = %+v, want nil", session.User())
	}
}

func TestSession_InitWithDeadTokensIsAnonymous(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/profile", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusUnauthorized, nil)
	})
	mux.HandleFunc("/api/v1/auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusUnauthorized, nil)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	store := &MemoryTokenStore{}
	store.Save(TokenPair{AccessToken: "dead", RefreshToken: "dead"})

	session := NewSession(server.URL, store, nil)
	session.Init(context.Background())

	if session.State() != SessionAnonymous {
		t.Errorf("state = %v, want anonymous", session.State())
	}
	if pair, _ := store.Load(); !pair.Empty() {
		t.Errorf("token store still holds %+v, want cleared", pair)
	}
}

func TestSession_OnChangeFiresOnTransitions(t *testing.T) {
	session := NewSession("http://unused", &MemoryTokenStore{}, nil)

	var seen []SessionState
	session.OnChange(func(state SessionState) {
		seen = append(seen, state)
	})

	session.Init(context.Background())

	if len(seen) != 1 || seen[0] != SessionAnonymous {
		t.Errorf("transitions = %v, want single anonymous", seen)
	}
}
