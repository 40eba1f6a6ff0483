package stream

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialControl(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	var msg map[string]any
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestHandleControlInitialState(t *testing.T) {
	h, _ := newTestHandler(t, Config{MaxConcurrentPerIP: 4})
	srv := httptest.NewServer(http.HandlerFunc(h.HandleControl))
	defer srv.Close()

	conn := dialControl(t, srv)

	msg := readMessage(t, conn)
	if msg["type"] != "clock" {
		t.Fatalf("first message type = %v, want clock", msg["type"])
	}
	if msg["currentTime"] != 0.0 || msg["playing"] != false {
		t.Fatalf("initial state = %v", msg)
	}
}

func TestHandleControlAppliesCommands(t *testing.T) {
	h, clk := newTestHandler(t, Config{MaxConcurrentPerIP: 4})
	srv := httptest.NewServer(http.HandlerFunc(h.HandleControl))
	defer srv.Close()

	conn := dialControl(t, srv)
	readMessage(t, conn) // initial state

	if err := conn.WriteJSON(controlMessage{Action: "seek", Value: 720}); err != nil {
		t.Fatal(err)
	}

	msg := readMessage(t, conn)
	if msg["type"] != "clock" {
		t.Fatalf("message type = %v", msg["type"])
	}
	if msg["currentTime"] != 720.0 {
		t.Fatalf("currentTime = %v, want 720", msg["currentTime"])
	}
	if got := clk.Snapshot().CurrentTime; got != 720 {
		t.Fatalf("clock time = %v, want 720", got)
	}
}

func TestHandleControlRejectsBadSpeed(t *testing.T) {
	h, clk := newTestHandler(t, Config{MaxConcurrentPerIP: 4})
	srv := httptest.NewServer(http.HandlerFunc(h.HandleControl))
	defer srv.Close()

	conn := dialControl(t, srv)
	readMessage(t, conn) // initial state

	if err := conn.WriteJSON(controlMessage{Action: "speed", Value: 0}); err != nil {
		t.Fatal(err)
	}

	msg := readMessage(t, conn)
	if msg["type"] != "error" {
		t.Fatalf("message type = %v, want error", msg["type"])
	}
	if clk.Snapshot().Speed != 60 {
		t.Fatalf("speed changed despite rejection: %v", clk.Snapshot().Speed)
	}
}

func TestHandleControlPushesExternalChanges(t *testing.T) {
	h, clk := newTestHandler(t, Config{MaxConcurrentPerIP: 4})
	srv := httptest.NewServer(http.HandlerFunc(h.HandleControl))
	defer srv.Close()

	conn := dialControl(t, srv)
	readMessage(t, conn) // initial state

	// A change made elsewhere (REST, another socket) must reach this one.
	clk.Seek(100)

	msg := readMessage(t, conn)
	if msg["currentTime"] != 100.0 {
		t.Fatalf("currentTime = %v, want 100", msg["currentTime"])
	}
}
