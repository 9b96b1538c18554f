package models

// Room is the top-level conversation container.
type Room struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name,omitempty"`
	Description string                 `json:"description,omitempty"`
	IsDM        bool                   `json:"is_dm,omitempty"`
	Status      string                 `json:"status,omitempty"`
	Policy      map[string]interface{} `json:"policy,omitempty"`
	MetaData    map[string]interface{} `json:"meta_data,omitempty"`
	AccountID   string                 `json:"account_id,omitempty"`
}

// RoomPatch is a partial room update; nil fields are left untouched on merge.
type RoomPatch struct {
	ID          string                  `json:"id"`
	Name        *string                 `json:"name,omitempty"`
	Description *string                 `json:"description,omitempty"`
	IsDM        *bool                   `json:"is_dm,omitempty"`
	Status      *string                 `json:"status,omitempty"`
	Policy      *map[string]interface{} `json:"policy,omitempty"`
	MetaData    *map[string]interface{} `json:"meta_data,omitempty"`
	AccountID   *string                 `json:"account_id,omitempty"`
}

// Apply merges the set fields of the patch into r.
func (p RoomPatch) Apply(r *Room) {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.IsDM != nil {
		r.IsDM = *p.IsDM
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.Policy != nil {
		r.Policy = *p.Policy
	}
	if p.MetaData != nil {
		if r.MetaData == nil {
			r.MetaData = map[string]interface{}{}
		}
		for k, v := range *p.MetaData {
			r.MetaData[k] = v
		}
	}
	if p.AccountID != nil {
		r.AccountID = *p.AccountID
	}
}
