package ingest

import (
	"encoding/json"
	"fmt"

	"roomsync/pkg/lifecycle"
	"roomsync/pkg/logger"
	"roomsync/pkg/models"
	"roomsync/pkg/store"
	"roomsync/pkg/stream"
	"roomsync/pkg/timeline"
)

// deleteRef is the minimal payload of tombstone events.
type deleteRef struct {
	ID string `json:"id"`
}

func registerRoomHandlers(r *Router) {
	upsert := func(tx *store.Tx, data json.RawMessage) error {
		var p models.RoomPatch
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		if p.ID == "" {
			return fmt.Errorf("room event without id")
		}
		tx.UpsertRoom(p)
		return nil
	}
	r.Register("room.created", upsert)
	r.Register("room.updated", upsert)
	r.Register("room.deleted", func(tx *store.Tx, data json.RawMessage) error {
		var ref deleteRef
		if err := json.Unmarshal(data, &ref); err != nil {
			return err
		}
		if room, ok := tx.Room(ref.ID); ok {
			room.Status = "deleted"
		}
		return nil
	})
}

func registerThreadHandlers(r *Router) {
	upsert := func(tx *store.Tx, data json.RawMessage) error {
		var p models.ThreadPatch
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		if p.ID == "" {
			return fmt.Errorf("thread event without id")
		}
		tx.UpsertThread(p)
		return nil
	}
	r.Register("thread.created", upsert)
	r.Register("thread.updated", upsert)
	// opened carries a full thread snapshot; same merge path
	r.Register("thread.opened", upsert)
	r.Register("thread.deleted", func(tx *store.Tx, data json.RawMessage) error {
		var ref deleteRef
		if err := json.Unmarshal(data, &ref); err != nil {
			return err
		}
		if th, ok := tx.Thread(ref.ID); ok {
			th.Deleted = true
		}
		return nil
	})
	r.Register("thread.read", func(tx *store.Tx, data json.RawMessage) error {
		var ev struct {
			ID        string `json:"id"`
			ThreadID  string `json:"thread_id"`
			MemberID  string `json:"member_id"`
			Timestamp string `json:"timestamp"`
		}
		if err := json.Unmarshal(data, &ev); err != nil {
			return err
		}
		id := ev.ThreadID
		if id == "" {
			id = ev.ID
		}
		if id == "" || ev.MemberID == "" {
			return fmt.Errorf("read event without thread/member id")
		}
		th := tx.UpsertThread(models.ThreadPatch{ID: id})
		if th.ReadState == nil {
			th.ReadState = map[string]string{}
		}
		th.ReadState[ev.MemberID] = ev.Timestamp
		return nil
	})
}

func registerMessageHandlers(r *Router) {
	upsert := func(tx *store.Tx, data json.RawMessage) error {
		var p models.MessagePatch
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		if p.ID == "" {
			return fmt.Errorf("message event without id")
		}
		tx.UpsertMessage(p)
		return nil
	}
	r.Register("message.created", upsert)
	r.Register("message.updated", upsert)
	r.Register("message.deleted", func(tx *store.Tx, data json.RawMessage) error {
		var ref deleteRef
		if err := json.Unmarshal(data, &ref); err != nil {
			return err
		}
		if m, ok := tx.Message(ref.ID); ok {
			m.Deleted = true
		}
		return nil
	})
	r.Register("message.reaction.created", func(tx *store.Tx, data json.RawMessage) error {
		var ev struct {
			MessageID string `json:"message_id"`
			Reaction  string `json:"reaction"`
			MemberID  string `json:"member_id"`
		}
		if err := json.Unmarshal(data, &ev); err != nil {
			return err
		}
		if ev.MessageID == "" || ev.Reaction == "" {
			return fmt.Errorf("reaction event without message/reaction")
		}
		m, ok := tx.Message(ev.MessageID)
		if !ok {
			logger.Debug("reaction for unknown message", "message", ev.MessageID)
			return nil
		}
		if m.Reactions == nil {
			m.Reactions = map[string][]string{}
		}
		for _, id := range m.Reactions[ev.Reaction] {
			if id == ev.MemberID {
				return nil
			}
		}
		m.Reactions[ev.Reaction] = append(m.Reactions[ev.Reaction], ev.MemberID)
		return nil
	})
}

func registerPartHandlers(r *Router) {
	upsert := func(tx *store.Tx, data json.RawMessage) error {
		var p models.PartPatch
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		if p.ID == "" {
			return fmt.Errorf("part event without id")
		}
		tx.UpsertPart(p)
		return nil
	}
	r.Register("message_part.created", upsert)
	r.Register("message_part.updated", upsert)
	r.Register("message_part.delta", func(tx *store.Tx, data json.RawMessage) error {
		var p models.PartPatch
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		if p.ID == "" {
			return fmt.Errorf("part delta without id")
		}
		stream.ApplyDelta(tx, p)
		return nil
	})
	r.Register("message_part.completed", func(tx *store.Tx, data json.RawMessage) error {
		var p models.PartPatch
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		if p.ID == "" {
			return fmt.Errorf("part completion without id")
		}
		status := ""
		if p.Status != nil {
			status = *p.Status
		}
		// a completion may carry the final fields alongside the flag
		if p.Content != nil || p.ToolInput != nil || p.Order != nil {
			tx.UpsertPart(models.PartPatch{
				ID: p.ID, MessageID: p.MessageID,
				Content: p.Content, ToolInput: p.ToolInput, Order: p.Order,
			})
		}
		stream.MarkPartComplete(tx, p.ID, status)
		return nil
	})
}

func registerMemberHandlers(r *Router) {
	upsert := func(tx *store.Tx, data json.RawMessage) error {
		var p models.RoomMemberPatch
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		if p.ID == "" {
			return fmt.Errorf("member event without id")
		}
		tx.UpsertMember(p)
		return nil
	}
	r.Register("room_member.added", upsert)
	r.Register("room_member.updated", upsert)
	r.Register("room_member.removed", func(tx *store.Tx, data json.RawMessage) error {
		var p models.RoomMemberPatch
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		if p.ID == "" {
			return fmt.Errorf("member event without id")
		}
		m := tx.UpsertMember(p)
		m.Removed = true
		return nil
	})
}

func registerTabHandlers(r *Router) {
	upsert := func(tx *store.Tx, data json.RawMessage) error {
		var p models.TabPatch
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		if p.ID == "" {
			return fmt.Errorf("tab event without id")
		}
		tx.UpsertTab(p)
		return nil
	}
	r.Register("tab.created", upsert)
	r.Register("tab.updated", upsert)
	r.Register("tab.deleted", func(tx *store.Tx, data json.RawMessage) error {
		var ref deleteRef
		if err := json.Unmarshal(data, &ref); err != nil {
			return err
		}
		if t, ok := tx.Tab(ref.ID); ok {
			t.Deleted = true
		}
		return nil
	})
}

// activationTypes and responseTypes enumerate the lifecycle events this
// process tracks. The tables are exact: a new event kind upstream is
// ignored until added here.
var activationTypes = []string{
	"activation.created",
	"activation.requested",
	"activation.queued",
	"activation.failed",
	"activation.scheduled",
	"activation.rescheduled",
	"activation.discarded",
}

var responseTypes = []string{
	"response.started",
	"response.completed",
	"response.failed",
	"response.empty",
	"response.stopped",
	"response.interrupted",
	"response.suspended",
	"response.requeued",
}

func registerLifecycleHandlers(r *Router) {
	for _, typ := range activationTypes {
		suffix := lifecycle.EventSuffix(typ)
		r.Register(typ, func(tx *store.Tx, data json.RawMessage) error {
			var ev models.LifecycleEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				return err
			}
			lifecycle.ApplyActivationEvent(tx, suffix, ev)
			return nil
		})
	}
	for _, typ := range responseTypes {
		suffix := lifecycle.EventSuffix(typ)
		r.Register(typ, func(tx *store.Tx, data json.RawMessage) error {
			var ev models.LifecycleEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				return err
			}
			lifecycle.ApplyResponseEvent(tx, suffix, ev)
			// the agent's message renders as pending until the server copy
			// arrives and confirms it
			if suffix == "started" && ev.ThreadID != "" {
				timeline.CreatePlaceholder(tx, ev.ThreadID, ev.ID, ev.AgentID)
			}
			return nil
		})
	}
}
