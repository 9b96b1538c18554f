package store

import (
	"sort"
	"sync"

	"roomsync/pkg/models"
)

// Store is the normalized in-memory state: one table per entity keyed by
// id, plus the relation indexes and lifecycle registries. All mutation
// goes through Update, which applies a function atomically and bumps the
// revision once, so readers never observe a half-applied envelope.
type Store struct {
	mu  sync.RWMutex
	rev uint64

	rooms    map[string]*models.Room
	threads  map[string]*models.Thread
	messages map[string]*models.Message
	parts    map[string]*models.MessagePart
	members  map[string]*models.RoomMember
	tabs     map[string]*models.Tab

	activations map[string]*models.Activation
	responses   map[string]*models.Response

	// activeActivations / activeResponses map thread id to the ids of
	// in-flight lifecycles. Emptied entries are deleted rather than kept
	// as empty slices.
	activeActivations map[string][]string
	activeResponses   map[string][]string

	// placeholders maps response id to the optimistic local message
	// standing in for it; confirmed records response ids whose real
	// message has arrived.
	placeholders map[string]string
	confirmed    map[string]struct{}

	partsByMessage   map[string][]string
	messagesByThread map[string][]string
}

func New() *Store {
	return &Store{
		rooms:             make(map[string]*models.Room),
		threads:           make(map[string]*models.Thread),
		messages:          make(map[string]*models.Message),
		parts:             make(map[string]*models.MessagePart),
		members:           make(map[string]*models.RoomMember),
		tabs:              make(map[string]*models.Tab),
		activations:       make(map[string]*models.Activation),
		responses:         make(map[string]*models.Response),
		activeActivations: make(map[string][]string),
		activeResponses:   make(map[string][]string),
		placeholders:      make(map[string]string),
		confirmed:         make(map[string]struct{}),
		partsByMessage:    make(map[string][]string),
		messagesByThread:  make(map[string][]string),
	}
}

// Update runs fn under the write lock. The revision advances exactly once
// per call, whether fn made one change or twenty. An error from fn is
// returned as-is; the revision still advances since partial mutation is
// not rolled back.
func (s *Store) Update(fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := fn(&Tx{s: s})
	s.rev++
	return err
}

// Revision returns the current revision counter. Selector memoization
// keys off this value.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rev
}

// Room returns a copy of the room with the given id.
func (s *Store) Room(id string) (models.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	if !ok {
		return models.Room{}, false
	}
	return r.Clone(), true
}

// Thread returns a copy of the thread with the given id.
func (s *Store) Thread(id string) (models.Thread, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.threads[id]
	if !ok {
		return models.Thread{}, false
	}
	return t.Clone(), true
}

// Message returns a copy of the message with the given id.
func (s *Store) Message(id string) (models.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messages[id]
	if !ok {
		return models.Message{}, false
	}
	return m.Clone(), true
}

// Part returns a copy of the part with the given id.
func (s *Store) Part(id string) (models.MessagePart, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.parts[id]
	if !ok {
		return models.MessagePart{}, false
	}
	return p.Clone(), true
}

// Member returns a copy of the room member with the given id.
func (s *Store) Member(id string) (models.RoomMember, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[id]
	if !ok {
		return models.RoomMember{}, false
	}
	return *m, true
}

// Tab returns a copy of the tab with the given id.
func (s *Store) Tab(id string) (models.Tab, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tabs[id]
	if !ok {
		return models.Tab{}, false
	}
	return t.Clone(), true
}

// Activation returns a copy of the activation lifecycle with the given id.
func (s *Store) Activation(id string) (models.Activation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.activations[id]
	if !ok {
		return models.Activation{}, false
	}
	return a.Clone(), true
}

// Response returns a copy of the response lifecycle with the given id.
func (s *Store) Response(id string) (models.Response, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.responses[id]
	if !ok {
		return models.Response{}, false
	}
	return r.Clone(), true
}

// MessageIDs returns the ids of the messages in a thread, in insertion
// order. Callers own the returned slice.
func (s *Store) MessageIDs(threadID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.messagesByThread[threadID]...)
}

// PartIDs returns the ids of a message's parts in insertion order.
func (s *Store) PartIDs(messageID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.partsByMessage[messageID]...)
}

// Messages returns copies of the messages in a thread, in insertion order.
func (s *Store) Messages(threadID string) []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.messagesByThread[threadID]
	out := make([]models.Message, 0, len(ids))
	for _, id := range ids {
		if m, ok := s.messages[id]; ok {
			out = append(out, m.Clone())
		}
	}
	return out
}

// Parts returns copies of a message's parts in insertion order.
func (s *Store) Parts(messageID string) []models.MessagePart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.partsByMessage[messageID]
	out := make([]models.MessagePart, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.parts[id]; ok {
			out = append(out, p.Clone())
		}
	}
	return out
}

// ThreadIDs returns every thread id, sorted for determinism.
func (s *Store) ThreadIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.threads))
	for id := range s.threads {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// RoomIDs returns every room id, sorted for determinism.
func (s *Store) RoomIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ActiveActivations returns the in-flight activation ids for a thread.
func (s *Store) ActiveActivations(threadID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.activeActivations[threadID]...)
}

// ActiveResponses returns the in-flight response ids for a thread.
func (s *Store) ActiveResponses(threadID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.activeResponses[threadID]...)
}

// Confirmed reports whether the server-side message for a response id has
// arrived, meaning any placeholder for it must be suppressed.
func (s *Store) Confirmed(responseID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.confirmed[responseID]
	return ok
}

// PlaceholderFor returns the placeholder message id registered for a
// response id, if any.
func (s *Store) PlaceholderFor(responseID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.placeholders[responseID]
	return id, ok
}

// ActivationIDs returns every activation id, sorted. Used by the sweep.
func (s *Store) ActivationIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.activations))
	for id := range s.activations {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ResponseIDs returns every response id, sorted.
func (s *Store) ResponseIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.responses))
	for id := range s.responses {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
