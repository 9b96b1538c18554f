package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"roomsync/pkg/api/handlers"
)

// Handler builds the versioned HTTP API over the engine's components.
func Handler(d *handlers.Deps) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	handlers.RegisterEvents(v1, d)
	handlers.RegisterThreads(v1, d)
	handlers.RegisterRooms(v1, d)
	return r
}
