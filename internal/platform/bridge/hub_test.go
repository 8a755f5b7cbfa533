package bridge

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/ehr/auxcare/internal/platform/resource"
)

func newClient(hub *Hub, id string, topics ...string) *Client {
	return &Client{ID: id, Topics: topics, Send: make(chan []byte, 16), hub: hub}
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case msg := <-c.Send:
		var ev Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			t.Fatalf("failed to unmarshal event: %v", err)
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
	return Event{}
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	c := newClient(hub, "c1", "rooms")

	hub.Register(c)
	if hub.ClientCount() != 1 || hub.TopicCount("rooms") != 1 {
		t.Fatalf("expected 1 client on rooms, got %d/%d", hub.ClientCount(), hub.TopicCount("rooms"))
	}

	hub.Unregister(c)
	hub.Unregister(c)
	if hub.ClientCount() != 0 || hub.TopicCount("rooms") != 0 {
		t.Fatalf("expected no clients, got %d/%d", hub.ClientCount(), hub.TopicCount("rooms"))
	}
	if _, ok := <-c.Send; ok {
		t.Error("expected Send to be closed")
	}
}

func TestHub_SubscribeIgnoresDuplicates(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	c := newClient(hub, "c1")
	hub.Register(c)

	hub.Subscribe(c, []string{"rooms", "rooms", "login"})
	if len(c.Topics) != 2 {
		t.Errorf("expected 2 topics, got %v", c.Topics)
	}

	hub.Unsubscribe(c, []string{"rooms"})
	if hub.TopicCount("rooms") != 0 || len(c.Topics) != 1 || c.Topics[0] != "login" {
		t.Errorf("unexpected topics after unsubscribe: %v", c.Topics)
	}
}

func TestHub_PublishSnapshotOnlyToSubscribers(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	sub := newClient(hub, "sub", "rooms")
	other := newClient(hub, "other", "patient")
	hub.Register(sub)
	hub.Register(other)

	st := resource.Succeeded([]int{101, 102})
	hub.PublishSnapshot(st.Snapshot("rooms"))

	ev := receive(t, sub)
	if ev.Type != EventStateChanged || ev.Resource != "rooms" || ev.Kind != "success" {
		t.Errorf("unexpected event %+v", ev)
	}
	if string(ev.Payload) != "[101,102]" {
		t.Errorf("unexpected payload %s", ev.Payload)
	}

	select {
	case <-other.Send:
		t.Fatal("non-subscriber received event")
	default:
	}
}

func TestHub_PublishFailureCarriesError(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	c := newClient(hub, "c", "login")
	hub.Register(c)

	st := resource.Failed[int](resource.InvalidCredentials, errors.New("401"))
	hub.PublishSnapshot(st.Snapshot("login"))

	ev := receive(t, c)
	if ev.Kind != "invalid_credentials" || ev.Error == "" || len(ev.Payload) != 0 {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestHub_PublishAggregate(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	c := newClient(hub, "c", "assigned-patients")
	hub.Register(c)

	hub.PublishAggregate("assigned-patients", []int{7})
	ev := receive(t, c)
	if ev.Type != EventAggregateChanged || string(ev.Payload) != "[7]" {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestHub_NotifyClosingReachesEveryClient(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	subscribed := newClient(hub, "a", "rooms")
	idle := newClient(hub, "b")
	hub.Register(subscribed)
	hub.Register(idle)

	hub.NotifyClosing("shutting down")
	for _, c := range []*Client{subscribed, idle} {
		ev := receive(t, c)
		if ev.Type != EventClosing || ev.Error != "shutting down" {
			t.Errorf("client %s: unexpected event %+v", c.ID, ev)
		}
	}
}

func TestHub_FullBufferDropsEvent(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	c := &Client{ID: "slow", Topics: []string{"rooms"}, Send: make(chan []byte, 1), hub: hub}
	hub.Register(c)

	hub.Broadcast("rooms", Event{Type: "a"})
	hub.Broadcast("rooms", Event{Type: "b"})

	if ev := receive(t, c); ev.Type != "a" {
		t.Errorf("expected first event kept, got %s", ev.Type)
	}
	select {
	case <-c.Send:
		t.Error("expected second event dropped")
	default:
	}
}

func TestHub_ConcurrentRegisterBroadcast(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c := newClient(hub, "c", "rooms")
			hub.Register(c)
			hub.Unregister(c)
		}()
		go func() {
			defer wg.Done()
			hub.Broadcast("rooms", Event{Type: "x"})
		}()
	}
	wg.Wait()
	if hub.ClientCount() != 0 {
		t.Errorf("expected no clients, got %d", hub.ClientCount())
	}
}

func TestHandler_SubscribeSendsCurrentState(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	h := NewWebSocketHandler(hub, func(topic string) (resource.Snapshot, bool) {
		if topic != "rooms" {
			return resource.Snapshot{}, false
		}
		return resource.LoadingState[int]().Snapshot("rooms"), true
	})
	c := newClient(hub, "c")
	hub.Register(c)

	h.handleMessage(c, ClientMessage{Action: "subscribe", Topics: []string{"rooms", "unknown"}})

	ev := receive(t, c)
	if ev.Resource != "rooms" || ev.Kind != "loading" {
		t.Errorf("unexpected initial event %+v", ev)
	}
	if hub.TopicCount("unknown") != 1 {
		t.Error("subscription to a topic without state should still register")
	}
}

func TestServer_WebSocketRoundTrip(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	srv := httptest.NewServer(NewServer(hub, nil, prometheus.NewRegistry(), zerolog.Nop()))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := gorillawebsocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	defer conn.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("expected 101, got %d", resp.StatusCode)
	}

	if err := conn.WriteJSON(ClientMessage{Action: "subscribe", Topics: []string{"rooms"}}); err != nil {
		t.Fatalf("failed to subscribe: %v", err)
	}
	deadline := time.Now().Add(time.Second)
	for hub.TopicCount("rooms") != 1 {
		if time.Now().After(deadline) {
			t.Fatal("subscription not registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.PublishSnapshot(resource.Succeeded("ok").Snapshot("rooms"))

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	var ev Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("failed to read event: %v", err)
	}
	if ev.Resource != "rooms" || string(ev.Payload) != `"ok"` {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestServer_HealthAndMetrics(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	e := NewServer(hub, nil, prometheus.NewRegistry(), zerolog.Nop())

	for _, path := range []string{"/health", "/metrics"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}
