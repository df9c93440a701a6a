package server

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/delve/internal/protocol"
)

// WebSocketClient reads JSON requests and writes event envelopes over a
// WebSocket connection.
type WebSocketClient struct {
	conn *websocket.Conn
	mu   sync.Mutex // serializes writes
}

// NewWebSocketClient creates a new WebSocketClient from a WebSocket connection.
func NewWebSocketClient(conn *websocket.Conn) *WebSocketClient {
	return &WebSocketClient{conn: conn}
}

// ReadRequest reads the next non-blank message and decodes it. Decoding
// failures wrap ErrMalformedRequest.
func (c *WebSocketClient) ReadRequest() (protocol.GenerateRequest, error) {
	var req protocol.GenerateRequest
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return req, err
		}
		if strings.TrimSpace(string(message)) == "" {
			continue
		}
		if err := json.Unmarshal(message, &req); err != nil {
			return req, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
		}
		return req, nil
	}
}

// Send writes one envelope as a text message.
func (c *WebSocketClient) Send(seq uint64, e protocol.Event) error {
	frame, err := protocol.Encode(seq, e)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

// Close sends a normal close frame and closes the connection.
func (c *WebSocketClient) Close() error {
	c.mu.Lock()
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.mu.Unlock()
	return c.conn.Close()
}

// RemoteAddr returns the remote address as a string.
func (c *WebSocketClient) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
