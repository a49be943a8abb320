package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tritmo/internal/models"
	"tritmo/internal/realtime"
)

// fakeWSConn scripts a websocket connection: events pushed into the channel
// come out of ReadJSON, identity frames are recorded, Close unblocks readers.
type fakeWSConn struct {
	mu        sync.Mutex
	writes    []realtime.ClientMessage
	events    chan realtime.Event
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeWSConn() *fakeWSConn {
	return &fakeWSConn{
		events: make(chan realtime.Event, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeWSConn) ReadJSON(v any) error {
	select {
	case event := <-c.events:
		raw, err := json.Marshal(event)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, v)
	case <-c.closed:
		return errors.New("connection closed")
	}
}

func (c *fakeWSConn) WriteJSON(v any) error {
	msg, ok := v.(realtime.ClientMessage)
	if !ok {
		return errors.New("unexpected frame type")
	}
	c.mu.Lock()
	c.writes = append(c.writes, msg)
	c.mu.Unlock()
	return nil
}

func (c *fakeWSConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeWSConn) registerFrames() []realtime.ClientMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]realtime.ClientMessage, len(c.writes))
	copy(out, c.writes)
	return out
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func bridgeSession() *Session {
	return readySession("http://unused", &MemoryTokenStore{}, "token", "refresh")
}

func TestBridge_AnnouncesOncePerConnection(t *testing.T) {
	session := bridgeSession()
	conn := newFakeWSConn()
	var dials int32

	b := NewBridge("ws://unused", session, nil, nil)
	b.SetDialer(func(_ context.Context, _, _ string) (WSConn, error) {
		atomic.AddInt32(&dials, 1)
		return conn, nil
	})

	b.Start(context.Background())
	waitFor(t, func() bool { return b.State() == BridgeRegistered }, "bridge never registered")

	// A second Start from a duplicate session event must not reconnect or
	// re-announce.
	b.Start(context.Background())
	time.Sleep(20 * time.Millisecond)

	frames := conn.registerFrames()
	if len(frames) != 1 {
		t.Fatalf("register frames = %d, want exactly 1", len(frames))
	}
	if frames[0].Action != "register" || frames[0].UserID != "user-1" || frames[0].Role != "PATIENT" {
		t.Errorf("register frame = %+v, want session identity", frames[0])
	}
	if got := atomic.LoadInt32(&dials); got != 1 {
		t.Errorf("dials = %d, want 1", got)
	}

	b.Stop()
}

func TestBridge_DeliversOnlyMatchingScopes(t *testing.T) {
	session := bridgeSession()
	conn := newFakeWSConn()

	var mu sync.Mutex
	var delivered []string
	b := NewBridge("ws://unused", session, func(event realtime.Event) {
		mu.Lock()
		delivered = append(delivered, event.Scope)
		mu.Unlock()
	}, nil)
	b.SetDialer(func(_ context.Context, _, _ string) (WSConn, error) {
		return conn, nil
	})

	b.Start(context.Background())
	waitFor(t, func() bool { return b.State() == BridgeRegistered }, "bridge never registered")

	conn.events <- realtime.Event{Type: realtime.EventNotificationNew, Scope: "someone-else"}
	conn.events <- realtime.Event{Type: realtime.EventNotificationNew, Scope: "user-1"}
	conn.events <- realtime.Event{Type: realtime.EventNotificationNew, Scope: string(models.RolePatient)}
	conn.events <- realtime.Event{Type: realtime.EventNotificationNew, Scope: models.ScopeAll}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(delivered) == 3
	}, "expected three matching events")

	mu.Lock()
	defer mu.Unlock()
	for _, scope := range delivered {
		if scope == "someone-else" {
			t.Errorf("event for another user was delivered")
		}
	}

	b.Stop()
}

func TestBridge_ReconnectBudgetIsBounded(t *testing.T) {
	session := bridgeSession()
	var dials int32

	b := NewBridge("ws://unused", session, nil, nil)
	b.maxRetries = 2
	b.backoff = time.Millisecond
	b.SetDialer(func(_ context.Context, _, _ string) (WSConn, error) {
		atomic.AddInt32(&dials, 1)
		return nil, errors.New("dial refused")
	})

	b.Start(context.Background())
	waitFor(t, func() bool {
		return b.State() == BridgeDisconnected && atomic.LoadInt32(&dials) == 3
	}, "bridge did not exhaust its reconnect budget")

	// Budget spent: no further attempts on their own.
	time.Sleep(20 * time.Millisecond)
	if got := atomic.LoadInt32(&dials); got != 3 {
		t.Errorf("dials after budget exhausted = %d, want 3", got)
	}
}

func TestBridge_SessionEventResetsReconnectBudget(t *testing.T) {
	session := bridgeSession()
	var dials int32
	var failing atomic.Bool
	failing.Store(true)
	conn := newFakeWSConn()

	b := NewBridge("ws://unused", session, nil, nil)
	b.maxRetries = 1
	b.backoff = time.Millisecond
	b.SetDialer(func(_ context.Context, _, _ string) (WSConn, error) {
		atomic.AddInt32(&dials, 1)
		if failing.Load() {
			return nil, errors.New("dial refused")
		}
		return conn, nil
	})

	b.Start(context.Background())
	waitFor(t, func() bool { return b.State() == BridgeDisconnected && atomic.LoadInt32(&dials) == 2 },
		"bridge did not spend its budget")

	// A fresh login event revives the bridge with a full budget.
	failing.Store(false)
	session.become(SessionReady, session.currentTokens(), session.User())

	waitFor(t, func() bool { return b.State() == BridgeRegistered }, "bridge did not reconnect after session event")
	b.Stop()
}

func TestBridge_DroppedConnectionLeavesRegisteredState(t *testing.T) {
	session := bridgeSession()
	first := newFakeWSConn()

	b := NewBridge("ws://unused", session, nil, nil)
	// A long backoff keeps the bridge waiting after the drop, where the
	// reported state must already reflect the dead connection.
	b.backoff = time.Minute
	b.SetDialer(func(_ context.Context, _, _ string) (WSConn, error) {
		return first, nil
	})

	b.Start(context.Background())
	waitFor(t, func() bool { return b.State() == BridgeRegistered }, "bridge never registered")

	first.Close()

	waitFor(t, func() bool { return b.State() == BridgeConnecting },
		"bridge still reports a registration on a dead connection")

	b.Stop()
}

func TestBridge_LogoutTearsDownConnection(t *testing.T) {
	session := bridgeSession()
	conn := newFakeWSConn()

	b := NewBridge("ws://unused", session, nil, nil)
	b.SetDialer(func(_ context.Context, _, _ string) (WSConn, error) {
		return conn, nil
	})

	b.Start(context.Background())
	waitFor(t, func() bool { return b.State() == BridgeRegistered }, "bridge never registered")

	session.become(SessionAnonymous, TokenPair{}, nil)

	waitFor(t, func() bool { return b.State() == BridgeDisconnected }, "bridge did not stop on logout")

	select {
	case <-conn.closed:
	default:
		t.Error("connection was not closed on logout")
	}
}
