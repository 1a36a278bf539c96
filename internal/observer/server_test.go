package observer

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap/zaptest"

	"github.com/hexworld/engine/internal/chunk"
	"github.com/hexworld/engine/internal/config"
	"github.com/hexworld/engine/internal/core/event"
)

func dial(t *testing.T, s *Server, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for s.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
	return m
}

func TestBusEventsReachClients(t *testing.T) {
	s := NewServer(config.ObserverConfig{}, zaptest.NewLogger(t))
	ts := httptest.NewServer(s.Mux())
	defer ts.Close()
	conn := dial(t, s, ts)

	bus := event.NewBus()
	s.Subscribe(bus)
	event.Emit(bus, chunk.PoppedIn{Index: chunk.Index{X: 2, Y: -1}, Triangles: 96, Trees: 3, HasWater: true})
	event.Emit(bus, chunk.PoppedOut{Index: chunk.Index{X: 2, Y: -1}})
	event.Emit(bus, chunk.Nuked{Index: chunk.Index{X: 2, Y: -1}})
	bus.SwapBuffers()
	bus.DispatchAll()

	in := readMessage(t, conn)
	if in.Type != "pop_in" || in.Chunk != [2]int32{2, -1} || in.Triangles != 96 || in.Trees != 3 || !in.HasWater || in.Version != Version {
		t.Fatalf("pop_in frame = %+v", in)
	}
	if out := readMessage(t, conn); out.Type != "pop_out" {
		t.Fatalf("second frame = %+v", out)
	}
	if nuked := readMessage(t, conn); nuked.Type != "nuked" {
		t.Fatalf("third frame = %+v", nuked)
	}
}

func TestSlowClientDropsFrames(t *testing.T) {
	s := NewServer(config.ObserverConfig{QueueSize: 1}, zaptest.NewLogger(t))
	c := s.join()
	defer s.leave(c)

	for i := 0; i < 5; i++ {
		s.Broadcast(Message{Type: "pop_out"})
	}
	if s.Dropped() != 4 {
		t.Fatalf("dropped = %d, want 4", s.Dropped())
	}
	if len(c.out) != 1 {
		t.Fatalf("queued = %d", len(c.out))
	}
}

func TestStatsEndpoint(t *testing.T) {
	s := NewServer(config.ObserverConfig{}, zaptest.NewLogger(t))
	ts := httptest.NewServer(s.Mux())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/stats")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status before publish = %d", resp.StatusCode)
	}

	s.PublishStats(map[string]int{"chunks": 12})
	resp, err = http.Get(ts.URL + "/stats")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) != `{"chunks":12}` {
		t.Fatalf("status=%d body=%s", resp.StatusCode, body)
	}
}

func TestLoopbackOnly(t *testing.T) {
	for addr, want := range map[string]bool{
		"127.0.0.1:5000": true,
		"[::1]:5000":     true,
		"10.0.0.8:5000":  false,
		"garbage":        false,
	} {
		if got := isLoopbackRemote(addr); got != want {
			t.Fatalf("%s: got %v", addr, got)
		}
	}
}

func TestClientLeaves(t *testing.T) {
	s := NewServer(config.ObserverConfig{}, zaptest.NewLogger(t))
	ts := httptest.NewServer(s.Mux())
	defer ts.Close()
	conn := dial(t, s, ts)
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.Clients() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("client not removed after close")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
