package store

import (
	"roomsync/pkg/logger"
	"roomsync/pkg/models"
)

// Tx is a handle passed to Update callbacks. It exposes mutating access
// to the tables while the write lock is held; pointers it returns are
// only valid inside the callback.
type Tx struct {
	s *Store
}

// Room returns the live room record, if present.
func (tx *Tx) Room(id string) (*models.Room, bool) {
	r, ok := tx.s.rooms[id]
	return r, ok
}

// Thread returns the live thread record, if present.
func (tx *Tx) Thread(id string) (*models.Thread, bool) {
	t, ok := tx.s.threads[id]
	return t, ok
}

// Message returns the live message record, if present.
func (tx *Tx) Message(id string) (*models.Message, bool) {
	m, ok := tx.s.messages[id]
	return m, ok
}

// Part returns the live part record, if present.
func (tx *Tx) Part(id string) (*models.MessagePart, bool) {
	p, ok := tx.s.parts[id]
	return p, ok
}

// Member returns the live member record, if present.
func (tx *Tx) Member(id string) (*models.RoomMember, bool) {
	m, ok := tx.s.members[id]
	return m, ok
}

// Tab returns the live tab record, if present.
func (tx *Tx) Tab(id string) (*models.Tab, bool) {
	t, ok := tx.s.tabs[id]
	return t, ok
}

// UpsertRoom creates the room if absent and merges the patch into it.
func (tx *Tx) UpsertRoom(p models.RoomPatch) *models.Room {
	r, ok := tx.s.rooms[p.ID]
	if !ok {
		r = &models.Room{ID: p.ID}
		tx.s.rooms[p.ID] = r
	}
	p.Apply(r)
	return r
}

// UpsertThread creates the thread if absent and merges the patch into it.
func (tx *Tx) UpsertThread(p models.ThreadPatch) *models.Thread {
	t, ok := tx.s.threads[p.ID]
	if !ok {
		t = &models.Thread{ID: p.ID}
		tx.s.threads[p.ID] = t
	}
	p.Apply(t)
	return t
}

// UpsertMessage creates the message if absent, merges the patch, and
// keeps the thread index current. A message moving between threads is
// re-homed in the index.
func (tx *Tx) UpsertMessage(p models.MessagePatch) *models.Message {
	m, ok := tx.s.messages[p.ID]
	prevThread := ""
	if ok {
		prevThread = m.ThreadID
	} else {
		m = &models.Message{ID: p.ID}
		tx.s.messages[p.ID] = m
	}
	p.Apply(m)
	if m.ThreadID != prevThread {
		if prevThread != "" {
			tx.s.messagesByThread[prevThread] = removeID(tx.s.messagesByThread[prevThread], m.ID)
			if len(tx.s.messagesByThread[prevThread]) == 0 {
				delete(tx.s.messagesByThread, prevThread)
			}
		}
		if m.ThreadID != "" {
			tx.s.messagesByThread[m.ThreadID] = appendUnique(tx.s.messagesByThread[m.ThreadID], m.ID)
		}
	}
	// arrival of the real message for a response suppresses its placeholder
	if m.ResponseID != "" && !m.Placeholder {
		tx.ConfirmResponse(m.ResponseID)
	}
	return m
}

// InsertPlaceholder adds an optimistic local message and registers it
// against the response id it anticipates. If the response was already
// confirmed the placeholder is not inserted and false is returned. A
// response id holds at most one placeholder: inserting again replaces
// the earlier one so it cannot outlive confirmation.
func (tx *Tx) InsertPlaceholder(m models.Message, responseID string) bool {
	if _, ok := tx.s.confirmed[responseID]; ok {
		return false
	}
	if prev, ok := tx.s.placeholders[responseID]; ok {
		tx.RemoveMessage(prev)
	}
	m.Placeholder = true
	m.ResponseID = responseID
	mm := m
	tx.s.messages[m.ID] = &mm
	if m.ThreadID != "" {
		tx.s.messagesByThread[m.ThreadID] = appendUnique(tx.s.messagesByThread[m.ThreadID], m.ID)
	}
	tx.s.placeholders[responseID] = m.ID
	return true
}

// ConfirmResponse records that the server message for responseID exists
// and removes any placeholder standing in for it.
func (tx *Tx) ConfirmResponse(responseID string) {
	tx.s.confirmed[responseID] = struct{}{}
	if phID, ok := tx.s.placeholders[responseID]; ok {
		delete(tx.s.placeholders, responseID)
		tx.RemoveMessage(phID)
	}
}

// RemoveMessage deletes a message, its parts, and its index entries.
func (tx *Tx) RemoveMessage(id string) {
	m, ok := tx.s.messages[id]
	if !ok {
		return
	}
	for _, pid := range tx.s.partsByMessage[id] {
		delete(tx.s.parts, pid)
	}
	delete(tx.s.partsByMessage, id)
	if m.ThreadID != "" {
		tx.s.messagesByThread[m.ThreadID] = removeID(tx.s.messagesByThread[m.ThreadID], id)
		if len(tx.s.messagesByThread[m.ThreadID]) == 0 {
			delete(tx.s.messagesByThread, m.ThreadID)
		}
	}
	delete(tx.s.messages, id)
}

// BatchUpdateMessages applies the same patch to each listed message. Ids
// without a record are skipped with a diagnostic, never created.
func (tx *Tx) BatchUpdateMessages(ids []string, p models.MessagePatch) {
	for _, id := range ids {
		if _, ok := tx.s.messages[id]; !ok {
			logger.Debug("batch update skipped", "kind", "message", "id", id)
			continue
		}
		p.ID = id
		tx.UpsertMessage(p)
	}
}

// BatchUpdateThreads applies the same patch to each listed thread. Ids
// without a record are skipped with a diagnostic, never created.
func (tx *Tx) BatchUpdateThreads(ids []string, p models.ThreadPatch) {
	for _, id := range ids {
		if _, ok := tx.s.threads[id]; !ok {
			logger.Debug("batch update skipped", "kind", "thread", "id", id)
			continue
		}
		p.ID = id
		tx.UpsertThread(p)
	}
}

// BatchUpdateParts applies the same patch to each listed part. Ids
// without a record are skipped with a diagnostic, never created.
func (tx *Tx) BatchUpdateParts(ids []string, p models.PartPatch) {
	for _, id := range ids {
		if _, ok := tx.s.parts[id]; !ok {
			logger.Debug("batch update skipped", "kind", "part", "id", id)
			continue
		}
		p.ID = id
		tx.UpsertPart(p)
	}
}

// EnsurePart returns the part with the given id, creating a skeleton
// bound to messageID when it does not exist yet. Deltas may arrive before
// the creating event, so the skeleton starts streaming.
func (tx *Tx) EnsurePart(id, messageID string) *models.MessagePart {
	p, ok := tx.s.parts[id]
	if !ok {
		p = &models.MessagePart{
			ID:          id,
			MessageID:   messageID,
			IsStreaming: true,
			LastApplied: -1,
		}
		tx.s.parts[id] = p
		if messageID != "" {
			tx.s.partsByMessage[messageID] = appendUnique(tx.s.partsByMessage[messageID], id)
		}
	} else if p.MessageID == "" && messageID != "" {
		p.MessageID = messageID
		tx.s.partsByMessage[messageID] = appendUnique(tx.s.partsByMessage[messageID], id)
	}
	return p
}

// UpsertPart creates the part if absent and merges the replacement fields
// of the patch. Delta/Index fields are ignored here.
func (tx *Tx) UpsertPart(p models.PartPatch) *models.MessagePart {
	msgID := ""
	if p.MessageID != nil {
		msgID = *p.MessageID
	}
	mp := tx.EnsurePart(p.ID, msgID)
	p.Apply(mp)
	return mp
}

// RemovePart deletes a part and its index entry.
func (tx *Tx) RemovePart(id string) {
	p, ok := tx.s.parts[id]
	if !ok {
		return
	}
	if p.MessageID != "" {
		tx.s.partsByMessage[p.MessageID] = removeID(tx.s.partsByMessage[p.MessageID], id)
		if len(tx.s.partsByMessage[p.MessageID]) == 0 {
			delete(tx.s.partsByMessage, p.MessageID)
		}
	}
	delete(tx.s.parts, id)
}

// UpsertMember creates the member if absent and merges the patch.
func (tx *Tx) UpsertMember(p models.RoomMemberPatch) *models.RoomMember {
	m, ok := tx.s.members[p.ID]
	if !ok {
		m = &models.RoomMember{ID: p.ID}
		tx.s.members[p.ID] = m
	}
	p.Apply(m)
	return m
}

// UpsertTab creates the tab if absent and merges the patch.
func (tx *Tx) UpsertTab(p models.TabPatch) *models.Tab {
	t, ok := tx.s.tabs[p.ID]
	if !ok {
		t = &models.Tab{ID: p.ID}
		tx.s.tabs[p.ID] = t
	}
	p.Apply(t)
	return t
}

// EnsureActivation returns the activation record for id, creating it on
// first sight.
func (tx *Tx) EnsureActivation(id, threadID string) *models.Activation {
	a, ok := tx.s.activations[id]
	if !ok {
		a = &models.Activation{ID: id}
		tx.s.activations[id] = a
	}
	if a.ThreadID == "" && threadID != "" {
		a.ThreadID = threadID
	}
	return a
}

// EnsureResponse returns the response record for id, creating it on
// first sight.
func (tx *Tx) EnsureResponse(id, threadID string) *models.Response {
	r, ok := tx.s.responses[id]
	if !ok {
		r = &models.Response{ID: id}
		tx.s.responses[id] = r
	}
	if r.ThreadID == "" && threadID != "" {
		r.ThreadID = threadID
	}
	return r
}

// MarkActivationActive adds the activation to its thread's active list.
func (tx *Tx) MarkActivationActive(threadID, id string) {
	if threadID == "" {
		return
	}
	tx.s.activeActivations[threadID] = appendUnique(tx.s.activeActivations[threadID], id)
}

// ClearActivationActive removes the activation from its thread's active
// list, dropping the list when it empties.
func (tx *Tx) ClearActivationActive(threadID, id string) {
	if threadID == "" {
		return
	}
	tx.s.activeActivations[threadID] = removeID(tx.s.activeActivations[threadID], id)
	if len(tx.s.activeActivations[threadID]) == 0 {
		delete(tx.s.activeActivations, threadID)
	}
}

// MarkResponseActive adds the response to its thread's active list.
func (tx *Tx) MarkResponseActive(threadID, id string) {
	if threadID == "" {
		return
	}
	tx.s.activeResponses[threadID] = appendUnique(tx.s.activeResponses[threadID], id)
}

// ClearResponseActive removes the response from its thread's active list.
func (tx *Tx) ClearResponseActive(threadID, id string) {
	if threadID == "" {
		return
	}
	tx.s.activeResponses[threadID] = removeID(tx.s.activeResponses[threadID], id)
	if len(tx.s.activeResponses[threadID]) == 0 {
		delete(tx.s.activeResponses, threadID)
	}
}

// RemoveActivation deletes a settled activation record entirely.
func (tx *Tx) RemoveActivation(id string) {
	a, ok := tx.s.activations[id]
	if !ok {
		return
	}
	tx.ClearActivationActive(a.ThreadID, id)
	delete(tx.s.activations, id)
}

// RemoveResponse deletes a finished response record entirely.
func (tx *Tx) RemoveResponse(id string) {
	r, ok := tx.s.responses[id]
	if !ok {
		return
	}
	tx.ClearResponseActive(r.ThreadID, id)
	delete(tx.s.responses, id)
	delete(tx.s.confirmed, id)
	delete(tx.s.placeholders, id)
}

// Activations returns the live activation records, for the sweep.
func (tx *Tx) Activations() []*models.Activation {
	out := make([]*models.Activation, 0, len(tx.s.activations))
	for _, a := range tx.s.activations {
		out = append(out, a)
	}
	return out
}

// Responses returns the live response records, for the sweep.
func (tx *Tx) Responses() []*models.Response {
	out := make([]*models.Response, 0, len(tx.s.responses))
	for _, r := range tx.s.responses {
		out = append(out, r)
	}
	return out
}

func appendUnique(ids []string, id string) []string {
	for _, v := range ids {
		if v == id {
			return ids
		}
	}
	return append(ids, id)
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
