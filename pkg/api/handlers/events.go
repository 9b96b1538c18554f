package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"roomsync/pkg/ingest"
	"roomsync/pkg/logger"
	"roomsync/pkg/models"
)

// RegisterEvents registers the event intake endpoints.
func RegisterEvents(r *mux.Router, d *Deps) {
	r.HandleFunc("/events", d.postEvent).Methods(http.MethodPost)
	r.HandleFunc("/events/batch", d.postEventBatch).Methods(http.MethodPost)
}

// postEvent enqueues one envelope. 202 means accepted for processing,
// not yet applied.
func (d *Deps) postEvent(w http.ResponseWriter, r *http.Request) {
	var ev models.Envelope
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if !ev.Valid() {
		writeErr(w, http.StatusBadRequest, "type and data required")
		return
	}
	if err := d.Queue.EnqueueBytes(ev.Type, ev.Data, time.Now().UTC().UnixNano()); err != nil {
		if err == ingest.ErrQueueFull {
			writeErr(w, http.StatusServiceUnavailable, "queue full")
			return
		}
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	logger.Debug("event accepted", "type", ev.Type)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// postEventBatch enqueues a JSON array of envelopes in order. The batch
// is rejected wholesale if any envelope is invalid; a full queue rejects
// the remainder and reports how many were accepted.
func (d *Deps) postEventBatch(w http.ResponseWriter, r *http.Request) {
	var evs []models.Envelope
	if err := json.NewDecoder(r.Body).Decode(&evs); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	for _, ev := range evs {
		if !ev.Valid() {
			writeErr(w, http.StatusBadRequest, "type and data required")
			return
		}
	}
	now := time.Now().UTC().UnixNano()
	accepted := 0
	for _, ev := range evs {
		if err := d.Queue.EnqueueBytes(ev.Type, ev.Data, now); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status":   "partial",
				"accepted": accepted,
				"total":    len(evs),
			})
			return
		}
		accepted++
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "accepted", "accepted": accepted})
}
