package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"roomsync/pkg/logger"
	"roomsync/pkg/models"
	"roomsync/pkg/store"
	"roomsync/pkg/timeline"
)

// RegisterThreads registers the thread read and pagination endpoints.
func RegisterThreads(r *mux.Router, d *Deps) {
	r.HandleFunc("/threads", d.listThreads).Methods(http.MethodGet)
	r.HandleFunc("/threads/{id}", d.getThread).Methods(http.MethodGet)
	r.HandleFunc("/threads/{id}/messages", d.listThreadMessages).Methods(http.MethodGet)
	r.HandleFunc("/threads/{id}/messages", d.postThreadMessage).Methods(http.MethodPost)
	r.HandleFunc("/threads/{id}/page", d.loadOlderPage).Methods(http.MethodPost)
	r.HandleFunc("/threads/{id}/responses", d.listThreadResponses).Methods(http.MethodGet)
	r.HandleFunc("/threads/{id}/view", d.attachView).Methods(http.MethodPost)
	r.HandleFunc("/threads/{id}/view", d.detachView).Methods(http.MethodDelete)
}

// listThreads returns thread ids ordered by recent activity, optionally
// restricted to one room via ?room=.
func (d *Deps) listThreads(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"threads": d.Selectors.ThreadsByActivity(r.URL.Query().Get("room")),
	})
}

func (d *Deps) getThread(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	th, ok := d.Store.Thread(id)
	if !ok {
		writeErr(w, http.StatusNotFound, "thread not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"thread":        th,
		"message_count": d.Selectors.ThreadMessageCount(id),
		"more":          th.Page.More(),
	})
}

// messageView is a message with its ordered parts inlined, the shape a
// rendering client consumes.
type messageView struct {
	models.Message
	Parts []models.MessagePart `json:"parts,omitempty"`
}

// listThreadMessages returns the renderable timeline: confirmed messages
// in creation order followed by surviving placeholders.
func (d *Deps) listThreadMessages(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ids := d.Selectors.TimelineMessageIDs(id)
	out := make([]messageView, 0, len(ids))
	for _, mid := range ids {
		m, ok := d.Selectors.MessageByID(mid)
		if !ok {
			continue
		}
		out = append(out, messageView{Message: m, Parts: d.Selectors.GroupedParts(mid)})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"thread":   id,
		"messages": out,
		"more":     d.Selectors.MoreMessagesAvailable(id),
	})
}

// postThreadMessage sends a message through the data service with an
// optimistic local echo. The echo renders immediately; the confirmed
// message replaces it when the send succeeds, or the echo is dropped
// when it fails.
func (d *Deps) postThreadMessage(w http.ResponseWriter, r *http.Request) {
	if d.Sender == nil {
		writeErr(w, http.StatusServiceUnavailable, "send not configured")
		return
	}
	id := mux.Vars(r)["id"]
	var body struct {
		Content  string `json:"content"`
		SenderID string `json:"sender_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if body.Content == "" {
		writeErr(w, http.StatusBadRequest, "content required")
		return
	}

	corr := "send-" + uuid.NewString()
	echoID := timeline.CreateLocalEcho(d.Store, id, body.SenderID, body.Content, corr)

	mp, err := d.Sender.SendMessage(id, body.SenderID, body.Content, corr)
	if err != nil {
		if echoID != "" {
			timeline.DropLocalEcho(d.Store, echoID)
		}
		logger.Warn("send failed", "thread", id, "err", err)
		writeErr(w, http.StatusBadGateway, "send failed")
		return
	}
	if mp.ThreadID == nil {
		mp.ThreadID = &id
	}
	if mp.ResponseID == nil {
		mp.ResponseID = &corr
	}
	_ = d.Store.Update(func(tx *store.Tx) error {
		tx.UpsertMessage(mp)
		return nil
	})
	writeJSON(w, http.StatusCreated, map[string]string{"id": mp.ID, "status": "sent"})
}

// loadOlderPage fetches the next older history page for the thread. The
// view must be attached first. A fetch already in flight is reported as
// a conflict rather than queued.
func (d *Deps) loadOlderPage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	n, err := d.Paginator.LoadOlder(id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{
			"merged": n,
			"more":   d.Selectors.MoreMessagesAvailable(id),
		})
	case errors.Is(err, timeline.ErrNotAttached):
		writeErr(w, http.StatusConflict, "thread view not attached")
	case errors.Is(err, timeline.ErrFetchInFlight):
		writeErr(w, http.StatusConflict, "fetch already in flight")
	case errors.Is(err, timeline.ErrNoMorePages):
		writeJSON(w, http.StatusOK, map[string]any{"merged": 0, "more": false})
	default:
		logger.Warn("page load failed", "thread", id, "err", err)
		writeErr(w, http.StatusBadGateway, "history fetch failed")
	}
}

// listThreadResponses returns the in-flight lifecycles for the thread.
func (d *Deps) listThreadResponses(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	writeJSON(w, http.StatusOK, map[string]any{
		"responses":   d.Selectors.ActiveResponses(id),
		"activations": d.Selectors.ActiveActivations(id),
		"busy":        d.Selectors.ThreadIsBusy(id),
	})
}

func (d *Deps) attachView(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	d.Paginator.Attach(id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "attached"})
}

func (d *Deps) detachView(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	d.Paginator.Detach(id)
	w.WriteHeader(http.StatusNoContent)
}
