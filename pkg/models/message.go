package models

import "time"

// Message is a single entry in a thread timeline. Parts are stored
// separately and linked back via MessagePart.MessageID.
type Message struct {
	ID           string    `json:"id"`
	ThreadID     string    `json:"thread_id"`
	SenderID     string    `json:"sender_id,omitempty"`
	SenderType   string    `json:"sender_type,omitempty"`
	Content      string    `json:"content,omitempty"`
	Status       string    `json:"status,omitempty"`
	DateCreation time.Time `json:"date_creation,omitempty"`
	Deleted      bool      `json:"deleted,omitempty"`
	ReplyToID    string    `json:"reply_to_id,omitempty"`
	// Error carries a delivery or generation failure reported for this
	// message; empty means none.
	Error string `json:"error,omitempty"`
	// Replied marks a message that has received at least one reply.
	Replied bool `json:"replied,omitempty"`
	// Reactions maps emoji key to the member ids that reacted with it.
	Reactions map[string][]string `json:"reactions,omitempty"`
	// ResponseID links an agent message to the response lifecycle that
	// produced it.
	ResponseID string `json:"response_id,omitempty"`
	// Placeholder marks an optimistic local message awaiting its confirmed
	// counterpart. Never set on data received from the server.
	Placeholder bool `json:"-"`
	// Meta carries open-ended attributes that ride along unmodified.
	Meta map[string]any `json:"meta,omitempty"`
}

// MessagePatch is a partial message update.
type MessagePatch struct {
	ID           string               `json:"id"`
	ThreadID     *string              `json:"thread_id,omitempty"`
	SenderID     *string              `json:"sender_id,omitempty"`
	SenderType   *string              `json:"sender_type,omitempty"`
	Content      *string              `json:"content,omitempty"`
	Status       *string              `json:"status,omitempty"`
	DateCreation *time.Time           `json:"date_creation,omitempty"`
	Deleted      *bool                `json:"deleted,omitempty"`
	ReplyToID    *string              `json:"reply_to_id,omitempty"`
	Error        *string              `json:"error,omitempty"`
	Replied      *bool                `json:"replied,omitempty"`
	Reactions    *map[string][]string `json:"reactions,omitempty"`
	ResponseID   *string              `json:"response_id,omitempty"`
	Meta         *map[string]any      `json:"meta,omitempty"`
}

// Apply merges the set fields of the patch into m. Reactions are replaced
// wholesale (the server sends the full map), Meta is merged key-wise.
func (p MessagePatch) Apply(m *Message) {
	if p.ThreadID != nil {
		m.ThreadID = *p.ThreadID
	}
	if p.SenderID != nil {
		m.SenderID = *p.SenderID
	}
	if p.SenderType != nil {
		m.SenderType = *p.SenderType
	}
	if p.Content != nil {
		m.Content = *p.Content
	}
	if p.Status != nil {
		m.Status = *p.Status
	}
	if p.DateCreation != nil {
		m.DateCreation = *p.DateCreation
	}
	if p.Deleted != nil {
		m.Deleted = *p.Deleted
	}
	if p.ReplyToID != nil {
		m.ReplyToID = *p.ReplyToID
	}
	if p.Error != nil {
		m.Error = *p.Error
	}
	if p.Replied != nil {
		m.Replied = *p.Replied
	}
	if p.Reactions != nil {
		m.Reactions = *p.Reactions
	}
	if p.ResponseID != nil {
		m.ResponseID = *p.ResponseID
	}
	if p.Meta != nil {
		if m.Meta == nil {
			m.Meta = map[string]any{}
		}
		for k, v := range *p.Meta {
			m.Meta[k] = v
		}
	}
}
