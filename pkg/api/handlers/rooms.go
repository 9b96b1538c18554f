package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRooms registers the room read endpoints.
func RegisterRooms(r *mux.Router, d *Deps) {
	r.HandleFunc("/rooms", d.listRooms).Methods(http.MethodGet)
	r.HandleFunc("/rooms/{id}", d.getRoom).Methods(http.MethodGet)
}

func (d *Deps) listRooms(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"rooms": d.Store.RoomIDs()})
}

func (d *Deps) getRoom(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	room, ok := d.Store.Room(id)
	if !ok {
		writeErr(w, http.StatusNotFound, "room not found")
		return
	}
	writeJSON(w, http.StatusOK, room)
}
