// Package server streams generation sessions to WebSocket clients.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/delve/internal/config"
	"github.com/lawnchairsociety/delve/internal/database"
	"github.com/lawnchairsociety/delve/internal/dungeon"
	"github.com/lawnchairsociety/delve/internal/logger"
	"github.com/lawnchairsociety/delve/internal/protocol"
)

type Server struct {
	address      string
	cfg          *config.Config
	db           *database.Database
	connLimiter  *ConnLimiter
	httpServer   *http.Server
	clients      map[Client]struct{}
	mu           sync.Mutex
	shutdown     chan struct{}
	shutdownOnce sync.Once
	StartTime    time.Time
	generations  atomic.Int64
}

// NewServer creates a server for the configured address. The configuration
// is copied; requests merge their overrides into per-request copies.
func NewServer(cfg *config.Config) *Server {
	cp := cfg.Clone()
	return &Server{
		address:     cp.Server.Address,
		cfg:         cp,
		connLimiter: NewConnLimiter(cp.Server.Connections),
		clients:     make(map[Client]struct{}),
		shutdown:    make(chan struct{}),
		StartTime:   time.Now(),
	}
}

// SetDatabase enables saving layouts for requests that name one.
func (s *Server) SetDatabase(db *database.Database) {
	s.db = db
}

// Handler returns the HTTP routes: /ws for sessions and /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocketUpgrade)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Addr:              s.address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	logger.Info("Server listening", "address", s.address)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and closes open sessions. Safe to
// call more than once.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		close(s.shutdown)

		s.mu.Lock()
		srv := s.httpServer
		clients := make([]Client, 0, len(s.clients))
		for c := range s.clients {
			clients = append(clients, c)
		}
		s.mu.Unlock()

		if srv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("HTTP shutdown failed", "error", err)
			}
		}
		for _, c := range clients {
			c.Close()
		}

		logger.Info("Server shutdown complete", "generations", s.generations.Load())
	})
}

// handleWebSocketUpgrade upgrades an HTTP connection to WebSocket.
func (s *Server) handleWebSocketUpgrade(w http.ResponseWriter, r *http.Request) {
	clientIP := getRealIP(r)

	if !s.connLimiter.TryAcquire(clientIP) {
		logger.Warning("WebSocket connection rejected - limit exceeded",
			"remote_addr", r.RemoteAddr,
			"client_ip", clientIP)
		http.Error(w, "Too many connections. Please try again later.", http.StatusTooManyRequests)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			allowed := s.cfg.Server.WebSocket.IsOriginAllowed(origin, r.Host)
			if !allowed {
				logger.Warning("WebSocket connection rejected - origin not allowed",
					"origin", origin,
					"host", r.Host,
					"remote_addr", r.RemoteAddr)
			}
			return allowed
		},
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", "error", err)
		s.connLimiter.Release(clientIP)
		return
	}
	if limit := s.cfg.Server.WebSocket.MaxMessageSize; limit > 0 {
		wsConn.SetReadLimit(limit)
	}

	go func() {
		defer s.connLimiter.Release(clientIP)
		s.handleClient(NewWebSocketClient(wsConn))
	}()
}

// handleClient answers requests until the client disconnects.
func (s *Server) handleClient(client Client) {
	s.mu.Lock()
	s.clients[client] = struct{}{}
	s.mu.Unlock()

	logger.Info("Client connected", "remote_addr", client.RemoteAddr())
	defer func() {
		s.mu.Lock()
		delete(s.clients, client)
		s.mu.Unlock()
		client.Close()
		logger.Info("Client disconnected", "remote_addr", client.RemoteAddr())
	}()

	for {
		req, err := client.ReadRequest()
		if errors.Is(err, ErrMalformedRequest) {
			if err := client.Send(0, protocol.Failure{Message: err.Error()}); err != nil {
				return
			}
			continue
		}
		if err != nil {
			return
		}
		if err := s.serve(client, req); err != nil {
			logger.Debug("Stream write failed", "remote_addr", client.RemoteAddr(), "error", err)
			return
		}
	}
}

// serve runs one generation and streams its events. The returned error is
// a transport failure; generation failures are reported to the client.
func (s *Server) serve(client Client, req protocol.GenerateRequest) error {
	var seq uint64
	var sendErr error
	send := func(e protocol.Event) {
		if sendErr != nil {
			return
		}
		seq++
		sendErr = client.Send(seq, e)
	}

	fail := func(err error) error {
		send(protocol.Failure{Message: err.Error()})
		return sendErr
	}

	mode, err := dungeon.ParseMode(req.Mode)
	if err != nil {
		return fail(err)
	}
	b := dungeon.NewBuilder(s.cfg)
	if err := b.Configure(req.Config); err != nil {
		return fail(err)
	}
	b.SetListener(protocol.ListenerFunc(send))

	start, goal := dungeon.DefaultStart, dungeon.DefaultGoal
	if req.Start != nil {
		start = *req.Start
	}
	if req.Goal != nil {
		goal = *req.Goal
	}

	logger.Info("Generation requested",
		"remote_addr", client.RemoteAddr(),
		"seed", req.Seed,
		"mode", string(mode))

	l, err := b.Run(mode, req.Seed, start, goal)
	if sendErr != nil {
		return sendErr
	}
	if err != nil {
		return fail(err)
	}
	s.generations.Add(1)

	if req.Save != "" && s.db != nil {
		if _, err := s.db.SaveLayout(req.Save, l); err != nil {
			logger.Error("Failed to save streamed layout", "name", req.Save, "error", err)
		}
	}
	return nil
}

type healthStatus struct {
	Status      string  `json:"status"`
	Uptime      float64 `json:"uptimeSeconds"`
	Connections int     `json:"connections"`
	Generations int64   `json:"generations"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	total, _ := s.connLimiter.Stats()
	status := healthStatus{
		Status:      "ok",
		Uptime:      time.Since(s.StartTime).Seconds(),
		Connections: total,
		Generations: s.generations.Load(),
	}
	w.Header().Set("Content-Type", "application/json")
	select {
	case <-s.shutdown:
		status.Status = "shutting down"
		w.WriteHeader(http.StatusServiceUnavailable)
	default:
	}
	json.NewEncoder(w).Encode(status)
}
