package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"tritmo/internal/models"
)

func newClient(session string) *Client {
	return &Client{
		SessionID: session,
		Send:      make(chan []byte, 256),
	}
}

func register(h *Hub, c *Client, userID string, role models.Role) {
	h.Attach(c)
	h.Register(c, userID, role)
}

func expectEvent(t *testing.T, c *Client, wantType string) Event {
	t.Helper()
	select {
	case msg := <-c.Send:
		var ev Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			t.Fatalf("failed to unmarshal event: %v", err)
		}
		if ev.Type != wantType {
			t.Fatalf("expected event type %s, got %s", wantType, ev.Type)
		}
		return ev
	case <-time.After(time.Second):
		t.Fatalf("client %s did not receive event", c.SessionID)
		return Event{}
	}
}

func expectNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case <-c.Send:
		t.Fatalf("client %s should not have received an event", c.SessionID)
	default:
	}
}

func TestHub_PublishToUserScope(t *testing.T) {
	hub := NewHub(nil)

	target := newClient("s1")
	other := newClient("s2")
	register(hub, target, "user-1", models.RolePatient)
	register(hub, other, "user-2", models.RolePatient)

	hub.Publish(context.Background(), Event{
		Type:    EventNotificationNew,
		Scope:   "user-1",
		Message: "your appointment was accepted",
	})

	expectEvent(t, target, EventNotificationNew)
	expectNoEvent(t, other)
}

func TestHub_PublishToRoleScope(t *testing.T) {
	hub := NewHub(nil)

	doctor := newClient("d1")
	patient := newClient("p1")
	register(hub, doctor, "doc-1", models.RoleDoctor)
	register(hub, patient, "pat-1", models.RolePatient)

	hub.Publish(context.Background(), Event{
		Type:    EventAppointmentReminder,
		Scope:   string(models.RoleDoctor),
		Message: "upcoming consultation",
	})

	expectEvent(t, doctor, EventAppointmentReminder)
	expectNoEvent(t, patient)
}

func TestHub_PublishToAll(t *testing.T) {
	hub := NewHub(nil)

	a := newClient("a")
	b := newClient("b")
	register(hub, a, "u-a", models.RolePatient)
	register(hub, b, "u-b", models.RoleAdmin)

	hub.Publish(context.Background(), Event{
		Type:    EventSessionStart,
		Scope:   models.ScopeAll,
		Message: "maintenance window tonight",
	})

	expectEvent(t, a, EventSessionStart)
	expectEvent(t, b, EventSessionStart)
}

func TestHub_UnregisteredReceivesNothing(t *testing.T) {
	hub := NewHub(nil)

	silent := newClient("quiet")
	hub.Attach(silent) // attached but never announced

	hub.Publish(context.Background(), Event{
		Type:  EventNotificationNew,
		Scope: models.ScopeAll,
	})

	expectNoEvent(t, silent)
}

func TestHub_RegisterIsIdempotent(t *testing.T) {
	hub := NewHub(nil)

	c := newClient("s1")
	hub.Attach(c)

	hub.ProcessMessage(c, ClientMessage{Action: "register", UserID: "user-1", Role: "PATIENT"})
	// A re-render announces again; the second registration must not change
	// anything.
	hub.ProcessMessage(c, ClientMessage{Action: "register", UserID: "intruder", Role: "ADMIN"})

	if c.UserID != "user-1" || c.Role != models.RolePatient {
		t.Fatalf("repeat registration overwrote identity: %s/%s", c.UserID, c.Role)
	}

	hub.Publish(context.Background(), Event{Type: EventNotificationNew, Scope: "intruder"})
	expectNoEvent(t, c)
}

func TestHub_SecondConnectionSupersedesFirst(t *testing.T) {
	hub := NewHub(nil)

	first := newClient("session-1")
	register(hub, first, "user-1", models.RolePatient)

	second := newClient("session-1")
	register(hub, second, "user-1", models.RolePatient)

	if hub.ClientCount() != 1 {
		t.Fatalf("expected 1 connection after supersede, got %d", hub.ClientCount())
	}
	if got, ok := hub.SessionClient("session-1"); !ok || got != second {
		t.Fatal("session not bound to the new connection")
	}

	// The superseded connection's channel is closed.
	if _, ok := <-first.Send; ok {
		t.Fatal("expected superseded client's Send channel to be closed")
	}

	hub.Publish(context.Background(), Event{Type: EventNotificationNew, Scope: "user-1"})
	expectEvent(t, second, EventNotificationNew)
}

func TestHub_DetachClosesChannel(t *testing.T) {
	hub := NewHub(nil)

	c := newClient("s1")
	register(hub, c, "u", models.RolePatient)
	hub.Detach(c)

	if hub.ClientCount() != 0 {
		t.Fatalf("expected 0 clients, got %d", hub.ClientCount())
	}
	if _, ok := <-c.Send; ok {
		t.Fatal("expected Send channel closed after detach")
	}

	// Detaching twice must not panic.
	hub.Detach(c)
}

func TestHub_PublishSetsTimestamp(t *testing.T) {
	hub := NewHub(nil)

	c := newClient("s1")
	register(hub, c, "u", models.RolePatient)

	hub.Publish(context.Background(), Event{Type: EventNotificationNew, Scope: models.ScopeAll})
	ev := expectEvent(t, c, EventNotificationNew)
	if ev.Timestamp.IsZero() {
		t.Fatal("expected publish to stamp the event")
	}
}

func TestEvent_MatchesIdentity(t *testing.T) {
	cases := []struct {
		scope  string
		userID string
		role   models.Role
		want   bool
	}{
		{"all", "u1", models.RolePatient, true},
		{"u1", "u1", models.RolePatient, true},
		{"PATIENT", "u1", models.RolePatient, true},
		{"DOCTOR", "u1", models.RolePatient, false},
		{"u2", "u1", models.RolePatient, false},
		{"", "u1", models.RolePatient, false},
	}
	for _, tc := range cases {
		ev := Event{Scope: tc.scope}
		if got := ev.MatchesIdentity(tc.userID, tc.role); got != tc.want {
			t.Fatalf("scope %q vs %s/%s: expected %v, got %v", tc.scope, tc.userID, tc.role, tc.want, got)
		}
	}
}
