package models

import (
	"maps"
	"slices"
)

// Clone methods back the store's read accessors: copies handed out while
// the read lock is held must not share map or slice headers with the
// live record, or a later Update races with the holder.

func (r Room) Clone() Room {
	r.Policy = maps.Clone(r.Policy)
	r.MetaData = maps.Clone(r.MetaData)
	return r
}

func (t Thread) Clone() Thread {
	t.ReadState = maps.Clone(t.ReadState)
	return t
}

func (m Message) Clone() Message {
	if m.Reactions != nil {
		rs := make(map[string][]string, len(m.Reactions))
		for k, v := range m.Reactions {
			rs[k] = slices.Clone(v)
		}
		m.Reactions = rs
	}
	m.Meta = maps.Clone(m.Meta)
	return m
}

func (mp MessagePart) Clone() MessagePart {
	mp.ToolInput = maps.Clone(mp.ToolInput)
	mp.Pending = maps.Clone(mp.Pending)
	mp.Seen = maps.Clone(mp.Seen)
	return mp
}

func (t Tab) Clone() Tab {
	t.Data = maps.Clone(t.Data)
	return t
}

func (a Activation) Clone() Activation {
	a.Events = slices.Clone(a.Events)
	return a
}

func (r Response) Clone() Response {
	r.Events = slices.Clone(r.Events)
	return r
}
