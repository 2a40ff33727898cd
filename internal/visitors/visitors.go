// Package visitors assigns the visitor and session identifiers a browser
// attaches to every tracked event.
package visitors

import (
	"sync"

	"github.com/google/uuid"
)

// Storage keys. Changing them fragments every existing visitor.
const (
	VisitorIDKey = "visitor_id"
	SessionIDKey = "session_id"
)

// Storage is a client-side key/value store.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// MemoryStorage is a Storage held in process memory.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (s *MemoryStorage) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *MemoryStorage) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Clear drops every key, as a browser does with session storage when the session ends.
func (s *MemoryStorage) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]string)
}

// Identity is the pair sent with each event.
type Identity struct {
	VisitorID string `json:"visitor_id"`
	SessionID string `json:"session_id"`
}

// Assigner reads identifiers from storage, creating them on first use.
type Assigner struct {
	local   Storage
	session Storage
	newID   func() string
	mu      sync.Mutex
}

// NewAssigner uses local for the long-lived visitor ID and session for the per-visit session ID.
func NewAssigner(local, session Storage) *Assigner {
	return &Assigner{local: local, session: session, newID: uuid.NewString}
}

// WithIDGenerator replaces the UUID generator.
func (a *Assigner) WithIDGenerator(newID func() string) *Assigner {
	a.newID = newID
	return a
}

// Assign returns the current identity.
func (a *Assigner) Assign() Identity {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Identity{
		VisitorID: a.getOrCreate(a.local, VisitorIDKey),
		SessionID: a.getOrCreate(a.session, SessionIDKey),
	}
}

func (a *Assigner) getOrCreate(s Storage, key string) string {
	if id, ok := s.Get(key); ok && id != "" {
		return id
	}
	id := a.newID()
	s.Set(key, id)
	return id
}
