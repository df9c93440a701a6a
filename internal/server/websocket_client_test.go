package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/delve/internal/protocol"
)

// pipe serves one upgraded connection to handle and returns the dialed side.
func pipe(t *testing.T, handle func(conn *websocket.Conn)) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Failed to upgrade: %v", err)
			return
		}
		defer conn.Close()
		handle(conn)
	}))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// TestWebSocketClient_ReadRequest_SkipsBlankMessages tests that empty
// messages are skipped before the request is decoded.
func TestWebSocketClient_ReadRequest_SkipsBlankMessages(t *testing.T) {
	conn := pipe(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(""))
		conn.WriteMessage(websocket.TextMessage, []byte("   "))
		conn.WriteMessage(websocket.TextMessage, []byte("\n\n"))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"seed":"abc123","mode":"incremental","start":{"x":1,"y":2,"z":3}}`))
		time.Sleep(100 * time.Millisecond)
	})

	req, err := NewWebSocketClient(conn).ReadRequest()
	if err != nil {
		t.Fatalf("ReadRequest failed: %v", err)
	}
	if req.Seed != "abc123" || req.Mode != "incremental" {
		t.Errorf("Unexpected request: %+v", req)
	}
	if req.Start == nil || req.Start.Y != 2 {
		t.Errorf("Start not decoded: %+v", req.Start)
	}
	if req.Goal != nil {
		t.Errorf("Goal should be nil when omitted, got %+v", req.Goal)
	}
}

func TestWebSocketClient_ReadRequest_Malformed(t *testing.T) {
	conn := pipe(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte("generate please"))
		time.Sleep(100 * time.Millisecond)
	})

	_, err := NewWebSocketClient(conn).ReadRequest()
	if !errors.Is(err, ErrMalformedRequest) {
		t.Errorf("Expected ErrMalformedRequest, got %v", err)
	}
}

// TestWebSocketClient_Send tests that events arrive as envelopes.
func TestWebSocketClient_Send(t *testing.T) {
	received := make(chan []byte, 1)
	conn := pipe(t, func(conn *websocket.Conn) {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		received <- msg
	})

	client := NewWebSocketClient(conn)
	if err := client.Send(7, protocol.Warning{Message: "dead end"}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	select {
	case msg := <-received:
		var env protocol.Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			t.Fatalf("Frame is not an envelope: %v", err)
		}
		if env.Sequence != 7 || env.Type != protocol.EventWarning {
			t.Errorf("Unexpected envelope: %+v", env)
		}
		var w protocol.Warning
		if err := json.Unmarshal(env.Payload, &w); err != nil || w.Message != "dead end" {
			t.Errorf("Unexpected payload %s (%v)", env.Payload, err)
		}
	case <-time.After(time.Second):
		t.Error("Timeout waiting for message")
	}
}

func TestWebSocketClient_RemoteAddr(t *testing.T) {
	done := make(chan struct{})
	conn := pipe(t, func(conn *websocket.Conn) { <-done })
	defer close(done)

	if addr := NewWebSocketClient(conn).RemoteAddr(); addr == "" {
		t.Error("RemoteAddr should not be empty")
	}
}
