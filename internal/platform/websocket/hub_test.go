package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/patientflow/internal/platform/auth"
)

func newClient(id string, topics ...string) *Client {
	return &Client{ID: id, Topics: topics, Send: make(chan []byte, 8)}
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := newClient("c1", UserTopic("u1"))

	hub.Register(client)
	if hub.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.ClientCount())
	}
	if hub.TopicCount(UserTopic("u1")) != 1 {
		t.Fatalf("expected 1 subscriber on user topic, got %d", hub.TopicCount(UserTopic("u1")))
	}

	hub.Unregister(client)
	if hub.ClientCount() != 0 || hub.TopicCount(UserTopic("u1")) != 0 {
		t.Fatal("expected hub to be empty after unregister")
	}
	if _, ok := <-client.Send; ok {
		t.Fatal("expected Send channel to be closed")
	}

	// second unregister is a no-op
	hub.Unregister(client)
}

func TestHub_BroadcastOnlyToTopic(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	a := newClient("a", UserTopic("u1"))
	b := newClient("b", UserTopic("u2"))
	hub.Register(a)
	hub.Register(b)

	hub.Broadcast(UserTopic("u1"), Event{Type: "NEW_ASSIGNMENT", Topic: UserTopic("u1")})

	select {
	case data := <-a.Send:
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if ev.Type != "NEW_ASSIGNMENT" {
			t.Errorf("expected NEW_ASSIGNMENT, got %s", ev.Type)
		}
	default:
		t.Fatal("expected client a to receive the event")
	}
	select {
	case <-b.Send:
		t.Fatal("client b should not receive events for u1")
	default:
	}
}

func TestHub_FullBufferDoesNotBlock(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := &Client{ID: "slow", Topics: []string{"user:x"}, Send: make(chan []byte, 1)}
	hub.Register(client)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			hub.Broadcast("user:x", Event{Type: "DEPARTMENT_ALERT"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a full client buffer")
	}
}

func TestHub_ProcessMessage_DepartmentTopicsOnly(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := newClient("c", UserTopic("u1"))
	hub.Register(client)

	dept := DepartmentTopic("h1", "TRIAGE")
	hub.ProcessMessage(client, ClientMessage{Action: "subscribe", Topics: []string{dept, UserTopic("someone-else")}})

	if hub.TopicCount(dept) != 1 {
		t.Errorf("expected subscription to %s", dept)
	}
	if hub.TopicCount(UserTopic("someone-else")) != 0 {
		t.Error("client must not subscribe to another user's topic")
	}

	// duplicate subscribe keeps a single entry
	hub.ProcessMessage(client, ClientMessage{Action: "subscribe", Topics: []string{dept}})
	if len(client.Topics) != 2 {
		t.Errorf("expected 2 topics on client, got %v", client.Topics)
	}

	hub.ProcessMessage(client, ClientMessage{Action: "unsubscribe", Topics: []string{dept, UserTopic("u1")}})
	if hub.TopicCount(dept) != 0 {
		t.Error("expected department topic to be removed")
	}
	if hub.TopicCount(UserTopic("u1")) != 1 {
		t.Error("user topic must survive unsubscribe requests")
	}
}

func TestHub_Publish(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := newClient("c", UserTopic("u1"))
	hub.Register(client)

	var pub EventPublisher = hub
	if err := pub.Publish(context.Background(), Event{Type: "PATIENT_TRANSFER", Topic: UserTopic("u1")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.Send) != 1 {
		t.Fatalf("expected 1 queued message, got %d", len(client.Send))
	}
}

func TestRedisRelay_HandleSkipsOwnOrigin(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := newClient("c", UserTopic("u1"))
	hub.Register(client)
	relay := NewRedisRelay(nil, hub, zerolog.Nop())

	own, _ := json.Marshal(relayEnvelope{Origin: relay.origin, Event: Event{Topic: UserTopic("u1")}})
	relay.handle(string(own))
	if len(client.Send) != 0 {
		t.Fatal("events from this instance must not be re-broadcast")
	}

	other, _ := json.Marshal(relayEnvelope{Origin: "other-instance", Event: Event{Topic: UserTopic("u1"), Type: "CRITICAL_RESULT"}})
	relay.handle(string(other))
	if len(client.Send) != 1 {
		t.Fatal("expected event from another instance to be broadcast")
	}

	relay.handle("{not json")
	if len(client.Send) != 1 {
		t.Fatal("malformed payload must be dropped")
	}
}

func TestHandler_RequiresUser(t *testing.T) {
	h := NewHandler(NewHub(zerolog.Nop()), nil)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	rec := httptest.NewRecorder()

	err := h.HandleConnect(e.NewContext(req, rec))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a user, got %v", err)
	}
}

func TestHandler_FullUpgrade(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	e := echo.New()
	g := e.Group("", auth.DevAuthMiddleware())
	NewHandler(hub, nil).RegisterRoutes(g)

	server := httptest.NewServer(e)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	header := http.Header{}
	header.Set(auth.DevUserHeader, "nurse-1")
	conn, resp, err := gorillawebsocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	defer conn.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("expected 101, got %d", resp.StatusCode)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.TopicCount(UserTopic("nurse-1")) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.TopicCount(UserTopic("nurse-1")) != 1 {
		t.Fatal("expected client to be subscribed to its user topic")
	}

	hub.Broadcast(UserTopic("nurse-1"), Event{Type: "DEPARTMENT_ALERT", Topic: UserTopic("nurse-1")})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var received Event
	if err := conn.ReadJSON(&received); err != nil {
		t.Fatalf("failed to read event: %v", err)
	}
	if received.Type != "DEPARTMENT_ALERT" {
		t.Fatalf("expected DEPARTMENT_ALERT, got %s", received.Type)
	}
}
