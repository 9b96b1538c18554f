package models

// Tab is an auxiliary surface attached to a room (canvas, document,
// task board). Tabs share the envelope/upsert path with the other
// entities but carry no streaming state.
type Tab struct {
	ID       string         `json:"id"`
	RoomID   string         `json:"room_id"`
	ThreadID string         `json:"thread_id,omitempty"`
	Name     string         `json:"name,omitempty"`
	TabType  string         `json:"tab_type,omitempty"`
	Order    int            `json:"order,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
	// IsActive marks the tab currently in front; IsMainThread marks the
	// tab showing the room's primary thread.
	IsActive     bool `json:"is_active,omitempty"`
	IsMainThread bool `json:"is_main_thread,omitempty"`
	Deleted      bool `json:"deleted,omitempty"`
}

// TabPatch is a partial tab update.
type TabPatch struct {
	ID           string          `json:"id"`
	RoomID       *string         `json:"room_id,omitempty"`
	ThreadID     *string         `json:"thread_id,omitempty"`
	Name         *string         `json:"name,omitempty"`
	TabType      *string         `json:"tab_type,omitempty"`
	Order        *int            `json:"order,omitempty"`
	Data         *map[string]any `json:"data,omitempty"`
	IsActive     *bool           `json:"is_active,omitempty"`
	IsMainThread *bool           `json:"is_main_thread,omitempty"`
	Deleted      *bool           `json:"deleted,omitempty"`
}

// Apply merges the set fields of the patch into t. Data is merged
// key-wise.
func (p TabPatch) Apply(t *Tab) {
	if p.RoomID != nil {
		t.RoomID = *p.RoomID
	}
	if p.ThreadID != nil {
		t.ThreadID = *p.ThreadID
	}
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.TabType != nil {
		t.TabType = *p.TabType
	}
	if p.Order != nil {
		t.Order = *p.Order
	}
	if p.Data != nil {
		if t.Data == nil {
			t.Data = map[string]any{}
		}
		for k, v := range *p.Data {
			t.Data[k] = v
		}
	}
	if p.IsActive != nil {
		t.IsActive = *p.IsActive
	}
	if p.IsMainThread != nil {
		t.IsMainThread = *p.IsMainThread
	}
	if p.Deleted != nil {
		t.Deleted = *p.Deleted
	}
}
