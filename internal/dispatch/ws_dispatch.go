package dispatch

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/example/crowdship/internal/models"
)

// WSSession represents one connected dashboard (a traveler watching the
// marketplace feed).
type WSSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *WSSession) Send(ev models.RequestEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(ev)
}

// WSRegistry holds live-feed sessions keyed by traveler id.
type WSRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*WSSession
}

func NewWSRegistry() *WSRegistry { return &WSRegistry{sessions: make(map[string]*WSSession)} }

func (r *WSRegistry) Add(travelerID string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[travelerID] = &WSSession{conn: conn}
}

func (r *WSRegistry) Remove(travelerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, travelerID)
}

func (r *WSRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Broadcast pushes a lifecycle event to every connected session. Sessions
// whose connection has gone away are dropped from the registry.
func (r *WSRegistry) Broadcast(ev models.RequestEvent) {
	r.mu.RLock()
	targets := make(map[string]*WSSession, len(r.sessions))
	for id, s := range r.sessions {
		targets[id] = s
	}
	r.mu.RUnlock()

	for id, s := range targets {
		if err := s.Send(ev); err != nil {
			log.Printf("ws send error for %s: %v", id, err)
			r.Remove(id)
		}
	}
}
