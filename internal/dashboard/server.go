// Package dashboard exposes the engine's reactive read surface.
//
// A WebSocket server broadcasts aggregate-changed and sync-status messages
// to connected UI clients, and plain HTTP endpoints serve the current
// aggregate, the derived summary and the sync status for one-shot reads.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	gosync "sync"
	"time"

	"github.com/coder/websocket"
)

// MessageType defines the type of dashboard message.
type MessageType string

const (
	// MessageTypeAggregate carries the full aggregate after a change.
	MessageTypeAggregate MessageType = "aggregate"

	// MessageTypeSyncStatus carries the orchestrator's sync status.
	MessageTypeSyncStatus MessageType = "sync_status"

	// MessageTypeSummary carries the derived view summary.
	MessageTypeSummary MessageType = "summary"
)

// Message is a dashboard broadcast message.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Revision  int64           `json:"revision,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Source supplies the data the server broadcasts and serves. The bridge
// in this package adapts the engine to it.
type Source interface {
	// Aggregate returns the current aggregate as JSON.
	Aggregate() (json.RawMessage, error)
	// SyncStatus returns the current sync status as JSON.
	SyncStatus() (json.RawMessage, error)
	// Summary returns the derived view summary as JSON.
	Summary() (json.RawMessage, error)
}

// Config holds server configuration.
type Config struct {
	// Port to listen on (default: 8377).
	Port int
	// Logger for server activity (default: stderr logger).
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:   8377,
		Logger: log.Default(),
	}
}

// Server manages WebSocket connections and broadcasts engine messages.
type Server struct {
	addr     string
	source   Source
	listener net.Listener
	server   *http.Server

	clients   map[*websocket.Conn]bool
	clientsMu gosync.RWMutex

	broadcast chan Message

	ctx    context.Context
	cancel context.CancelFunc
	wg     gosync.WaitGroup

	logger *log.Logger
}

// NewServer creates a dashboard server over the given source.
func NewServer(source Source, config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:      fmt.Sprintf(":%d", config.Port),
		source:    source,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Message, 100),
		ctx:       ctx,
		cancel:    cancel,
		logger:    config.Logger,
	}
}

// Start begins the HTTP server and the broadcast loop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/aggregate", s.handleAggregate)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/summary", s.handleSummary)
	mux.HandleFunc("/health", s.handleHealth)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go s.broadcastLoop()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("Dashboard server listening on %s", s.addr)
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("Server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	s.logger.Println("Stopping dashboard server")
	s.cancel()

	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close(websocket.StatusGoingAway, "Server shutting down")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.wg.Wait()
	s.logger.Println("Dashboard server stopped")
	return nil
}

// Broadcast queues a message for all connected clients. When the queue is
// full the message is dropped; the next change resends fresher data.
func (s *Server) Broadcast(msg Message) {
	select {
	case s.broadcast <- msg:
	case <-s.ctx.Done():
	default:
		s.logger.Println("Warning: broadcast channel full, dropping message")
	}
}

func (s *Server) broadcastLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return

		case msg := <-s.broadcast:
			if msg.Timestamp.IsZero() {
				msg.Timestamp = time.Now()
			}
			data, err := json.Marshal(msg)
			if err != nil {
				s.logger.Printf("Failed to marshal message: %v", err)
				continue
			}

			s.clientsMu.RLock()
			clients := make([]*websocket.Conn, 0, len(s.clients))
			for conn := range s.clients {
				clients = append(clients, conn)
			}
			s.clientsMu.RUnlock()

			for _, conn := range clients {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				err := conn.Write(ctx, websocket.MessageText, data)
				cancel()
				if err != nil {
					s.logger.Printf("Failed to send to client: %v", err)
					s.removeClient(conn)
				}
			}
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	clientCount := len(s.clients)
	s.clientsMu.Unlock()
	s.logger.Printf("Client connected (total: %d)", clientCount)

	// New clients get the current aggregate and status immediately.
	for _, welcome := range s.snapshotMessages() {
		data, err := json.Marshal(welcome)
		if err != nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = conn.Write(ctx, websocket.MessageText, data)
		cancel()
	}

	go s.readLoop(conn)
}

// snapshotMessages builds the initial messages sent to a new client.
func (s *Server) snapshotMessages() []Message {
	var msgs []Message
	if agg, err := s.source.Aggregate(); err == nil {
		msgs = append(msgs, Message{Type: MessageTypeAggregate, Timestamp: time.Now(), Data: agg})
	}
	if st, err := s.source.SyncStatus(); err == nil {
		msgs = append(msgs, Message{Type: MessageTypeSyncStatus, Timestamp: time.Now(), Data: st})
	}
	return msgs
}

func (s *Server) readLoop(conn *websocket.Conn) {
	defer s.removeClient(conn)
	for {
		// Clients don't send anything meaningful; reading keeps the
		// connection alive and detects disconnects.
		if _, _, err := conn.Read(s.ctx); err != nil {
			return
		}
	}
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	if _, exists := s.clients[conn]; exists {
		delete(s.clients, conn)
		clientCount := len(s.clients)
		s.clientsMu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "")
		s.logger.Printf("Client disconnected (total: %d)", clientCount)
	} else {
		s.clientsMu.Unlock()
	}
}

func (s *Server) serveJSON(w http.ResponseWriter, data json.RawMessage, err error) {
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	data, err := s.source.Aggregate()
	s.serveJSON(w, data, err)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	data, err := s.source.SyncStatus()
	s.serveJSON(w, data, err)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	data, err := s.source.Summary()
	s.serveJSON(w, data, err)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.clientsMu.RLock()
	clientCount := len(s.clients)
	s.clientsMu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"clients": clientCount,
	})
}

// GetAddr returns the server's listening address.
func (s *Server) GetAddr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the current number of connected clients.
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}
