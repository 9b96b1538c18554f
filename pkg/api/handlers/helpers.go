package handlers

import (
	"encoding/json"
	"net/http"

	"roomsync/pkg/ingest"
	"roomsync/pkg/models"
	"roomsync/pkg/selectors"
	"roomsync/pkg/store"
	"roomsync/pkg/timeline"
)

// Sender is the slice of the data-service client the send endpoint uses.
type Sender interface {
	SendMessage(threadID, senderID, content, correlationID string) (models.MessagePatch, error)
}

// Deps carries the engine components the HTTP handlers operate on.
// Sender may be nil when no history backend is configured.
type Deps struct {
	Store     *store.Store
	Selectors *selectors.Selectors
	Queue     *ingest.Queue
	Paginator *timeline.Paginator
	Sender    Sender
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
