// Package selectors derives read views from the store. Derivations are
// memoized against the store revision: repeated calls between updates
// return the cached result without rescanning tables.
package selectors

import (
	"sort"
	"sync"

	"roomsync/pkg/models"
	"roomsync/pkg/store"
)

type timelineMemo struct {
	rev uint64
	ids []string
}

type partsMemo struct {
	rev   uint64
	parts []models.MessagePart
}

// Selectors wraps a store with memoized derivations. Safe for concurrent
// readers.
type Selectors struct {
	st *store.Store

	mu        sync.Mutex
	timelines map[string]timelineMemo
	parts     map[string]partsMemo
}

func New(st *store.Store) *Selectors {
	return &Selectors{
		st:        st,
		timelines: make(map[string]timelineMemo),
		parts:     make(map[string]partsMemo),
	}
}

// TimelineMessageIDs returns the ids a thread view renders: confirmed
// messages sorted by creation time (ties broken by id), with surviving
// placeholders appended after in insertion order. Deleted messages are
// filtered out.
func (s *Selectors) TimelineMessageIDs(threadID string) []string {
	rev := s.st.Revision()
	s.mu.Lock()
	if memo, ok := s.timelines[threadID]; ok && memo.rev == rev {
		ids := memo.ids
		s.mu.Unlock()
		return ids
	}
	s.mu.Unlock()

	msgs := s.st.Messages(threadID)
	confirmed := make([]models.Message, 0, len(msgs))
	var placeholders []string
	for _, m := range msgs {
		if m.Deleted {
			continue
		}
		if m.Placeholder {
			placeholders = append(placeholders, m.ID)
			continue
		}
		confirmed = append(confirmed, m)
	}
	starter := ""
	if th, ok := s.st.Thread(threadID); ok {
		starter = th.StarterMessageID
	}
	sort.SliceStable(confirmed, func(i, j int) bool {
		// the starter message anchors the top of the thread
		if starter != "" && (confirmed[i].ID == starter || confirmed[j].ID == starter) {
			return confirmed[i].ID == starter
		}
		if confirmed[i].DateCreation.Equal(confirmed[j].DateCreation) {
			return confirmed[i].ID < confirmed[j].ID
		}
		return confirmed[i].DateCreation.Before(confirmed[j].DateCreation)
	})
	ids := make([]string, 0, len(confirmed)+len(placeholders))
	for _, m := range confirmed {
		ids = append(ids, m.ID)
	}
	ids = append(ids, placeholders...)

	s.mu.Lock()
	s.timelines[threadID] = timelineMemo{rev: rev, ids: ids}
	s.mu.Unlock()
	return ids
}

// GroupedParts returns a message's parts ordered by (Order, BlockOrder, ID).
func (s *Selectors) GroupedParts(messageID string) []models.MessagePart {
	rev := s.st.Revision()
	s.mu.Lock()
	if memo, ok := s.parts[messageID]; ok && memo.rev == rev {
		parts := memo.parts
		s.mu.Unlock()
		return parts
	}
	s.mu.Unlock()

	parts := s.st.Parts(messageID)
	sort.SliceStable(parts, func(i, j int) bool {
		if parts[i].Order != parts[j].Order {
			return parts[i].Order < parts[j].Order
		}
		if parts[i].BlockOrder != parts[j].BlockOrder {
			return parts[i].BlockOrder < parts[j].BlockOrder
		}
		return parts[i].ID < parts[j].ID
	})

	s.mu.Lock()
	s.parts[messageID] = partsMemo{rev: rev, parts: parts}
	s.mu.Unlock()
	return parts
}

// PartsByType buckets a message's ordered parts by part type. Order
// within each bucket follows GroupedParts.
func (s *Selectors) PartsByType(messageID string) map[string][]models.MessagePart {
	out := make(map[string][]models.MessagePart)
	for _, p := range s.GroupedParts(messageID) {
		out[p.Type] = append(out[p.Type], p)
	}
	return out
}

// MessageByID returns a copy of the message.
func (s *Selectors) MessageByID(id string) (models.Message, bool) {
	return s.st.Message(id)
}

// ThreadMessageCount counts the renderable messages in a thread.
func (s *Selectors) ThreadMessageCount(threadID string) int {
	return len(s.TimelineMessageIDs(threadID))
}

// MoreMessagesAvailable reports whether an older page can still be
// fetched for the thread. Unknown threads have no more pages.
func (s *Selectors) MoreMessagesAvailable(threadID string) bool {
	th, ok := s.st.Thread(threadID)
	if !ok {
		return false
	}
	return th.Page.More()
}

// ActiveResponses returns copies of the in-flight responses for a thread.
func (s *Selectors) ActiveResponses(threadID string) []models.Response {
	ids := s.st.ActiveResponses(threadID)
	out := make([]models.Response, 0, len(ids))
	for _, id := range ids {
		if r, ok := s.st.Response(id); ok {
			out = append(out, r)
		}
	}
	return out
}

// ActiveActivations returns copies of the in-flight activations for a
// thread.
func (s *Selectors) ActiveActivations(threadID string) []models.Activation {
	ids := s.st.ActiveActivations(threadID)
	out := make([]models.Activation, 0, len(ids))
	for _, id := range ids {
		if a, ok := s.st.Activation(id); ok {
			out = append(out, a)
		}
	}
	return out
}

// ThreadIsBusy reports whether any activation or response is in flight
// for the thread.
func (s *Selectors) ThreadIsBusy(threadID string) bool {
	return len(s.st.ActiveResponses(threadID)) > 0 || len(s.st.ActiveActivations(threadID)) > 0
}

// ThreadsByActivity returns thread ids ordered by the creation time of
// their newest message, most recent first. Threads with no messages sort
// last, by id. A non-empty roomID restricts the result to that room.
func (s *Selectors) ThreadsByActivity(roomID string) []string {
	type entry struct {
		id     string
		latest int64
	}
	ids := s.st.ThreadIDs()
	entries := make([]entry, 0, len(ids))
	for _, id := range ids {
		if roomID != "" {
			if th, ok := s.st.Thread(id); !ok || th.RoomID != roomID {
				continue
			}
		}
		var latest int64
		for _, m := range s.st.Messages(id) {
			if ts := m.DateCreation.UnixNano(); ts > latest {
				latest = ts
			}
		}
		entries = append(entries, entry{id: id, latest: latest})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].latest == entries[j].latest {
			return entries[i].id < entries[j].id
		}
		return entries[i].latest > entries[j].latest
	})
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.id
	}
	return out
}
