package client

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"tritmo/internal/realtime"
)

// BridgeState describes the realtime connection lifecycle.
type BridgeState string

const (
	BridgeDisconnected BridgeState = "DISCONNECTED"
	BridgeConnecting   BridgeState = "CONNECTING"
	BridgeRegistered   BridgeState = "REGISTERED"
)

// WSConn is the subset of a websocket connection the bridge needs. Tests
// substitute their own implementation.
type WSConn interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	Close() error
}

// Dialer opens a websocket connection to the given URL.
type Dialer func(ctx context.Context, url, accessToken string) (WSConn, error)

// GorillaDialer is the production Dialer.
func GorillaDialer(ctx context.Context, url, accessToken string) (WSConn, error) {
	header := map[string][]string{"Authorization": {"Bearer " + accessToken}}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Bridge keeps a registered realtime connection alive while a session exists.
// The identity announcement is sent exactly once per connection, from the
// Connecting state only; reconnect attempts are bounded, and once the budget
// is spent the bridge stays down until the next session event resets it.
type Bridge struct {
	url     string
	session *Session
	dial    Dialer
	handler func(realtime.Event)
	log     *zap.Logger

	maxRetries int
	backoff    time.Duration

	mu     sync.Mutex
	state  BridgeState
	conn   WSConn
	cancel context.CancelFunc
}

// NewBridge creates a bridge. handler receives every event addressed to the
// session's identity. The bridge subscribes to session changes: a session
// becoming ready starts a connection, a session ending tears it down.
func NewBridge(url string, session *Session, handler func(realtime.Event), log *zap.Logger) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	b := &Bridge{
		url:        url,
		session:    session,
		dial:       GorillaDialer,
		handler:    handler,
		log:        log,
		maxRetries: 5,
		backoff:    3 * time.Second,
		state:      BridgeDisconnected,
	}
	session.OnChange(func(state SessionState) {
		switch state {
		case SessionReady:
			b.Start(context.Background())
		case SessionAnonymous:
			b.Stop()
		}
	})
	return b
}

// SetDialer replaces the websocket dialer. For tests.
func (b *Bridge) SetDialer(dial Dialer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dial = dial
}

// State returns the current connection state.
func (b *Bridge) State() BridgeState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Start opens the connection loop if the session is ready and the bridge is
// down. Starting an already-running bridge is a no-op, so session events and
// manual starts cannot stack connections.
func (b *Bridge) Start(ctx context.Context) {
	b.mu.Lock()
	if b.state != BridgeDisconnected || b.session.State() != SessionReady {
		b.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.state = BridgeConnecting
	b.mu.Unlock()

	go b.run(runCtx)
}

// Stop cancels the connect loop and closes any open connection.
func (b *Bridge) Stop() {
	b.mu.Lock()
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
	b.state = BridgeDisconnected
	b.mu.Unlock()
}

// run drives connect attempts until the retry budget is spent or the context
// is cancelled.
func (b *Bridge) run(ctx context.Context) {
	for attempt := 0; attempt <= b.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return
		}
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(b.backoff):
			}
		}

		if err := b.connectAndRead(ctx); err != nil {
			// The connection is gone; never report a live registration
			// while waiting out the backoff.
			b.mu.Lock()
			b.state = BridgeConnecting
			b.mu.Unlock()
			b.log.Warn("realtime connection lost", zap.Error(err), zap.Int("attempt", attempt))
			continue
		}
		return
	}

	// Budget spent. Stay down; the next session event resets the bridge.
	b.mu.Lock()
	b.state = BridgeDisconnected
	b.mu.Unlock()
	b.log.Warn("realtime reconnect budget exhausted")
}

// connectAndRead dials, announces the identity once, then pumps events until
// the connection drops. A nil return means the context ended the loop.
func (b *Bridge) connectAndRead(ctx context.Context) error {
	user := b.session.User()
	if user == nil {
		return nil
	}

	conn, err := b.dial(ctx, b.url, b.session.AccessToken())
	if err != nil {
		return err
	}

	b.mu.Lock()
	if b.state != BridgeConnecting {
		// Stopped while dialing.
		b.mu.Unlock()
		conn.Close()
		return nil
	}
	b.conn = conn
	b.mu.Unlock()

	// The announcement happens exactly once per connection, only from the
	// Connecting state. Re-renders, duplicate session events and event
	// handlers can never cause a second registration.
	announce := realtime.ClientMessage{
		Action: "register",
		UserID: user.ID,
		Role:   string(user.Role),
	}
	if err := conn.WriteJSON(announce); err != nil {
		conn.Close()
		return err
	}

	b.mu.Lock()
	b.state = BridgeRegistered
	b.mu.Unlock()

	for {
		var event realtime.Event
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			b.mu.Lock()
			b.conn = nil
			b.mu.Unlock()
			return err
		}

		// The hub already filters by scope; this is the client-side guard
		// for anything that slips through or arrives via replay.
		if !event.MatchesIdentity(user.ID, user.Role) {
			continue
		}
		if b.handler != nil {
			b.handler(event)
		}
	}
}
