package app

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"roomsync/pkg/api"
	"roomsync/pkg/api/handlers"
	"roomsync/pkg/logger"
)

const httpDrainTimeout = 5 * time.Second

// printBanner logs the startup summary and build info.
func (a *App) printBanner() {
	verStr := a.version
	if a.commit != "none" && a.commit != "" {
		verStr += " (" + a.commit + ")"
	}
	if a.buildDate != "unknown" && a.buildDate != "" {
		verStr += " @ " + a.buildDate
	}
	logger.Info("roomsync starting",
		"version", verStr,
		"addr", a.eff.Addr,
		"config_source", a.eff.Source,
		"journal", a.eff.Config.Storage.JournalEnabled,
		"history", a.eff.Config.History.BaseURL,
	)
}

// setupHTTPHandlers sets up all HTTP handlers on the provided mux.
func (a *App) setupHTTPHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/readyz", a.readyzHandler)
	mux.Handle("/metrics", promhttp.Handler())
	deps := &handlers.Deps{
		Store:     a.st,
		Selectors: a.sel,
		Queue:     a.q,
		Paginator: a.pag,
	}
	if a.eff.Config.History.BaseURL != "" {
		deps.Sender = a.ds
	}
	mux.Handle("/", api.Handler(deps))
}

// readyzHandler reports readiness: the queue must have headroom.
func (a *App) readyzHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if a.q.Len() >= a.q.Cap() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"queue saturated"}`))
		return
	}
	ver := a.version
	if ver == "" {
		ver = "dev"
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok","version":"` + ver + `"}`))
}

// startHTTP builds the handler, starts the HTTP server in a goroutine
// and returns a channel that will contain any server error.
func (a *App) startHTTP(_ context.Context) <-chan error {
	mux := http.NewServeMux()
	a.setupHTTPHandlers(mux)

	rl := a.eff.Config.Server.RateLimit
	wrapped := api.RateLimit(api.RateLimitConfig{RPS: rl.RPS, Burst: rl.Burst}, mux)
	wrapped = api.Telemetry(wrapped)

	a.srv = &http.Server{Addr: a.eff.Addr, Handler: wrapped}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.srv.ListenAndServe()
	}()
	return errCh
}
