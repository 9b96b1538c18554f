package models

import "time"

// Thread is a message container inside a room. A room has exactly one
// thread with IsMain=true (the primary channel) plus any number of
// secondary threads.
type Thread struct {
	ID               string    `json:"id"`
	RoomID           string    `json:"room_id"`
	Name             string    `json:"name,omitempty"`
	IsMain           bool      `json:"is_main"`
	Status           string    `json:"status,omitempty"`
	StarterMessageID string    `json:"starter_message_id,omitempty"`
	DateCreation     time.Time `json:"date_creation,omitempty"`
	Deleted          bool      `json:"deleted,omitempty"`
	// ReadState maps member id to the timestamp of the last read message.
	ReadState map[string]string `json:"read_state,omitempty"`
	// Page tracks the backward-pagination continuation state for this
	// thread's message history. Derived from the last fetch, never from a
	// local count.
	Page PageInfo `json:"-"`
}

// PageInfo is the store-canonical pagination state. Wire variants
// (has_next_page/next_cursor/startCursor) are normalized into this shape
// before storing.
type PageInfo struct {
	HasNextPage bool
	Cursor      string
	// Primed is set after the first fetch; until then HasNextPage=false
	// means "unknown", not "exhausted".
	Primed bool
}

// More reports whether another backward page can be requested. Both the
// flag and a cursor are required.
func (p PageInfo) More() bool {
	return p.HasNextPage && p.Cursor != ""
}

// ThreadPatch is a partial thread update.
type ThreadPatch struct {
	ID               string             `json:"id"`
	RoomID           *string            `json:"room_id,omitempty"`
	Name             *string            `json:"name,omitempty"`
	IsMain           *bool              `json:"is_main,omitempty"`
	Status           *string            `json:"status,omitempty"`
	StarterMessageID *string            `json:"starter_message_id,omitempty"`
	DateCreation     *time.Time         `json:"date_creation,omitempty"`
	Deleted          *bool              `json:"deleted,omitempty"`
	ReadState        *map[string]string `json:"read_state,omitempty"`
}

// Apply merges the set fields of the patch into t.
func (p ThreadPatch) Apply(t *Thread) {
	if p.RoomID != nil {
		t.RoomID = *p.RoomID
	}
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.IsMain != nil {
		t.IsMain = *p.IsMain
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.StarterMessageID != nil {
		t.StarterMessageID = *p.StarterMessageID
	}
	if p.DateCreation != nil {
		t.DateCreation = *p.DateCreation
	}
	if p.Deleted != nil {
		t.Deleted = *p.Deleted
	}
	if p.ReadState != nil {
		if t.ReadState == nil {
			t.ReadState = map[string]string{}
		}
		for k, v := range *p.ReadState {
			t.ReadState[k] = v
		}
	}
}
