// Package inspect exposes a running store over HTTP for development:
// current keys and values as JSON, Prometheus metrics, and a WebSocket
// stream of store-level change events.
package inspect

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Fxcilities/state-pool/pkg/store"
)

// eventMessage is the JSON frame sent to connected WebSocket clients for
// every store-level change event.
type eventMessage struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// stateMessage is the JSON body for single-key reads.
type stateMessage struct {
	Key     string `json:"key"`
	Value   any    `json:"value"`
	Persist bool   `json:"persist"`
}

// Server serves one store's inspection endpoints.
type Server struct {
	store *store.Store

	clients  map[*websocket.Conn]bool
	mu       sync.RWMutex
	upgrader websocket.Upgrader

	unsubscribe func()
}

// Option configures the inspector.
type Option func(*Server)

// WithCheckOrigin overrides the WebSocket origin check. The default
// accepts all origins, which is only appropriate for development.
func WithCheckOrigin(check func(r *http.Request) bool) Option {
	return func(s *Server) {
		s.upgrader.CheckOrigin = check
	}
}

// New creates an inspector bound to st and subscribes it to the store's
// change events. Call Close to detach.
func New(st *store.Store, opts ...Option) *Server {
	s := &Server{
		store:   st,
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins in dev
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.unsubscribe = st.Subscribe(store.NewObserver(func(ev store.Event) {
		s.broadcast(eventMessage{Key: ev.Key, Value: ev.Value})
	}))
	return s
}

// Router returns the HTTP routes:
//
//	GET /keys         current keys in insertion order
//	GET /state/{key}  one key's value and persistence flag
//	GET /events       WebSocket stream of change events
//	GET /metrics      Prometheus metrics
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/keys", s.handleKeys)
	r.Get("/state/{key}", s.handleState)
	r.Get("/events", s.handleEvents)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Close detaches the inspector from the store and disconnects all clients.
func (s *Server) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		conn.Close()
	}
	s.clients = make(map[*websocket.Conn]bool)
}

func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Keys())
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	cell, err := s.store.Cell(key)
	if err != nil {
		if store.IsNotFound(err) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, stateMessage{
		Key:     key,
		Value:   cell.GetAny(),
		Persist: cell.Persist(),
	})
}

// handleEvents upgrades the connection and keeps it registered until the
// client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()

	// Keep connection alive until client disconnects
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	conn.Close()
}

// broadcast sends msg to all connected clients, dropping any whose write
// fails.
func (s *Server) broadcast(msg eventMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	s.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for conn := range s.clients {
		conns = append(conns, conn)
	}
	s.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			s.mu.Lock()
			delete(s.clients, conn)
			s.mu.Unlock()
			conn.Close()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
