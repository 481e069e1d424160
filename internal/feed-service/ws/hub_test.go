package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialTestHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestSubscribeReceivesBroadcast(t *testing.T) {
	hub := NewHub(func(*http.Request) bool { return true })
	conn := dialTestHub(t, hub)

	if err := conn.WriteJSON(ClientMsg{Type: "subscribe", MatchID: "m1"}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	// subscription lands on the hub's read loop asynchronously
	deadline := time.Now().Add(time.Second)
	for {
		hub.mu.RLock()
		_, ok := hub.subs["m1"]
		hub.mu.RUnlock()
		if ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("subscription never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.Broadcast(MatchUpdate{MatchID: "m1", Payload: map[string]string{"status": "LIVE"}})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var got MatchUpdate
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	if got.MatchID != "m1" {
		t.Fatalf("expected update for m1, got %q", got.MatchID)
	}
}

func TestBroadcastSkipsOtherMatches(t *testing.T) {
	hub := NewHub(func(*http.Request) bool { return true })
	conn := dialTestHub(t, hub)

	if err := conn.WriteJSON(ClientMsg{Type: "subscribe", MatchID: "m1"}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	hub.Broadcast(MatchUpdate{MatchID: "other", Payload: "x"})

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var got MatchUpdate
	if err := conn.ReadJSON(&got); err == nil {
		t.Fatalf("expected no message, got update for %q", got.MatchID)
	}
}

// Pong replies come from the read loop while broadcasts come from the
// Redis subscriber goroutine; both target the same connection and must
// be serialized.
func TestConcurrentBroadcastAndPong(t *testing.T) {
	hub := NewHub(func(*http.Request) bool { return true })
	conn := dialTestHub(t, hub)

	if err := conn.WriteJSON(ClientMsg{Type: "subscribe", MatchID: "m1"}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	deadline := time.Now().Add(time.Second)
	for {
		hub.mu.RLock()
		_, ok := hub.subs["m1"]
		hub.mu.RUnlock()
		if ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("subscription never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	const rounds = 50
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < rounds; i++ {
			hub.Broadcast(MatchUpdate{MatchID: "m1", Payload: "tick"})
		}
	}()
	for i := 0; i < rounds; i++ {
		if err := conn.WriteJSON(ClientMsg{Type: "ping"}); err != nil {
			t.Fatalf("ping %d: %v", i, err)
		}
	}
	<-done

	// drain everything the hub wrote; a torn frame surfaces as a read error
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for i := 0; i < 2*rounds; i++ {
		if _, _, err := conn.ReadMessage(); err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
	}
}

func TestPingPong(t *testing.T) {
	hub := NewHub(func(*http.Request) bool { return true })
	conn := dialTestHub(t, hub)

	if err := conn.WriteJSON(ClientMsg{Type: "ping"}); err != nil {
		t.Fatalf("ping: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var got map[string]string
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if got["type"] != "pong" {
		t.Fatalf("expected pong, got %v", got)
	}
}
