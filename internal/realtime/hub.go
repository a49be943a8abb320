// Package realtime provides the push-notification channel. It implements a
// hub-and-spoke pattern over WebSockets: each session holds at most one live
// connection, a client announces its identity exactly once after connecting,
// and events are delivered only to connections whose identity matches the
// event's recipient scope (a user id, a role, or "all").
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	gorillawebsocket "github.com/gorilla/websocket"
	"go.uber.org/zap"

	"tritmo/internal/middleware"
	"tritmo/internal/models"
)

// Well-known event types carried on the channel.
const (
	EventNotificationNew     = "notification.new"
	EventAppointmentReminder = "appointment.reminder"
	EventSessionStart        = "session.start"
)

// Event is a realtime notification. Scope is a user id, a role name, or
// models.ScopeAll; clients whose identity does not match never see it.
type Event struct {
	Type      string          `json:"type"`
	Scope     string          `json:"scope"`
	Message   string          `json:"message,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// MatchesIdentity reports whether the event's scope addresses the given user.
func (e Event) MatchesIdentity(userID string, role models.Role) bool {
	return e.Scope == models.ScopeAll || e.Scope == userID || e.Scope == string(role)
}

// ClientMessage is an inbound frame. The only action is "register", carrying
// the identity announcement made once after connecting.
type ClientMessage struct {
	Action string `json:"action"`
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// EventPublisher is the interface handlers use to push events.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// Conn abstracts a WebSocket connection for testability.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client represents a single connection. Identity fields are set by the
// registration announcement; the registered flag makes repeat announcements
// no-ops.
type Client struct {
	SessionID  string
	UserID     string
	Role       models.Role
	Send       chan []byte
	registered bool
	conn       Conn
}

// Registered reports whether the client has announced its identity.
func (c *Client) Registered() bool {
	return c.registered
}

// Hub is the central connection manager. All operations are thread-safe.
type Hub struct {
	mu        sync.RWMutex
	all       map[*Client]struct{}
	bySession map[string]*Client
	log       *zap.Logger
}

// NewHub creates a Hub ready to manage connections.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		all:       make(map[*Client]struct{}),
		bySession: make(map[string]*Client),
		log:       log,
	}
}

// Attach adds a connection. A session may hold only one live connection: a
// new connection for an already-attached session supersedes the old one,
// which is detached and closed.
func (h *Hub) Attach(client *Client) {
	h.mu.Lock()
	var superseded *Client
	if client.SessionID != "" {
		if old, ok := h.bySession[client.SessionID]; ok && old != client {
			superseded = old
		}
		h.bySession[client.SessionID] = client
	}
	h.all[client] = struct{}{}
	h.mu.Unlock()

	if superseded != nil {
		h.Detach(superseded)
		h.log.Debug("superseded realtime connection", zap.String("session", client.SessionID))
	}
}

// Detach removes a connection and closes its Send channel.
func (h *Hub) Detach(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[client]; !ok {
		return
	}
	if client.SessionID != "" && h.bySession[client.SessionID] == client {
		delete(h.bySession, client.SessionID)
	}
	delete(h.all, client)
	close(client.Send)
}

// Register records the client's identity announcement. The first call wins;
// any further call is a no-op, so re-announcing on every reconnect render
// cycle cannot duplicate registrations.
func (h *Hub) Register(client *Client, userID string, role models.Role) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client.registered {
		return
	}
	client.UserID = userID
	client.Role = role
	client.registered = true
}

// ProcessMessage handles one inbound frame from a connection.
func (h *Hub) ProcessMessage(client *Client, msg ClientMessage) {
	if msg.Action == "register" {
		h.Register(client, msg.UserID, models.Role(msg.Role))
	}
}

// Publish delivers an event to every registered connection whose identity
// matches the event scope. Unregistered connections receive nothing.
func (h *Hub) Publish(_ context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error("failed to marshal realtime event", zap.Error(err))
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.all {
		if !client.registered || !event.MatchesIdentity(client.UserID, client.Role) {
			continue
		}
		select {
		case client.Send <- data:
		default:
			// Client buffer full; skip to avoid blocking.
		}
	}
	return nil
}

// ClientCount returns the number of attached connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

// SessionClient returns the connection currently bound to a session id.
func (h *Hub) SessionClient(sessionID string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.bySession[sessionID]
	return c, ok
}

var upgrader = gorillawebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Origin is enforced by the CORS layer in front.
	},
}

// Handler upgrades authenticated HTTP requests into hub connections.
type Handler struct {
	hub *Hub
	log *zap.Logger
}

// NewHandler creates a connection handler bound to the given Hub.
func NewHandler(hub *Hub, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{hub: hub, log: log}
}

// HandleConnect upgrades the request and starts the read/write pumps. The
// authenticated user id doubles as the session id, so a second tab or a
// reconnect supersedes the previous connection rather than racing it.
func (hdl *Handler) HandleConnect(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	tokenRole, _ := middleware.GetUserRoleFromContext(c)

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hdl.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		SessionID: userID,
		Send:      make(chan []byte, 256),
		conn:      &gorillaConnAdapter{ws},
	}
	hdl.hub.Attach(client)

	go hdl.writePump(client)
	go hdl.readPump(client, userID, tokenRole)
}

// readPump reads frames until the connection drops. The announced identity
// must match the token identity; mismatched announcements are ignored.
func (hdl *Handler) readPump(client *Client, tokenUserID string, tokenRole models.Role) {
	defer func() {
		hdl.hub.Detach(client)
		client.conn.Close()
	}()

	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue // Ignore malformed frames.
		}
		if msg.Action == "register" && tokenUserID != "" && msg.UserID != tokenUserID {
			hdl.log.Warn("register frame identity mismatch",
				zap.String("token", tokenUserID), zap.String("claimed", msg.UserID))
			continue
		}
		if msg.Action == "register" {
			msg.Role = string(tokenRole)
		}
		hdl.hub.ProcessMessage(client, msg)
	}
}

// writePump drains the Send channel onto the wire.
func (hdl *Handler) writePump(client *Client) {
	defer client.conn.Close()

	for message := range client.Send {
		if err := client.conn.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
			break
		}
	}
}

// gorillaConnAdapter wraps a gorilla/websocket.Conn to satisfy Conn.
type gorillaConnAdapter struct {
	conn *gorillawebsocket.Conn
}

func (a *gorillaConnAdapter) ReadMessage() (int, []byte, error) {
	return a.conn.ReadMessage()
}

func (a *gorillaConnAdapter) WriteMessage(messageType int, data []byte) error {
	return a.conn.WriteMessage(messageType, data)
}

func (a *gorillaConnAdapter) Close() error {
	return a.conn.Close()
}
