package timeline

import (
	"time"

	"github.com/google/uuid"

	"roomsync/pkg/models"
	"roomsync/pkg/store"
)

// Now is replaceable in tests.
var Now = time.Now

// CreatePlaceholder inserts an optimistic local message for a response
// that has started but whose server message has not arrived. It runs
// inside the transaction applying the lifecycle event, so the pending
// message and the lifecycle state land in one revision. Returns the
// placeholder's id, or "" when the response was already confirmed and
// no placeholder is needed.
func CreatePlaceholder(tx *store.Tx, threadID, responseID, senderID string) string {
	id := "ph-" + uuid.NewString()
	inserted := tx.InsertPlaceholder(models.Message{
		ID:           id,
		ThreadID:     threadID,
		SenderID:     senderID,
		SenderType:   models.MemberAgent,
		Status:       "pending",
		DateCreation: Now(),
	}, responseID)
	if !inserted {
		return ""
	}
	return id
}

// CreateLocalEcho inserts an optimistic copy of an outgoing message so it
// renders before the server confirms it. correlationID ties the echo to
// the confirmed message that will replace it.
func CreateLocalEcho(st *store.Store, threadID, senderID, content, correlationID string) string {
	id := "ph-" + uuid.NewString()
	inserted := false
	_ = st.Update(func(tx *store.Tx) error {
		inserted = tx.InsertPlaceholder(models.Message{
			ID:           id,
			ThreadID:     threadID,
			SenderID:     senderID,
			SenderType:   models.MemberUser,
			Content:      content,
			Status:       "pending",
			DateCreation: Now(),
		}, correlationID)
		return nil
	})
	if !inserted {
		return ""
	}
	return id
}

// DropLocalEcho removes a failed echo so the timeline does not show a
// message the server never accepted.
func DropLocalEcho(st *store.Store, id string) {
	_ = st.Update(func(tx *store.Tx) error {
		tx.RemoveMessage(id)
		return nil
	})
}
