package ingest

import (
	"encoding/json"
	"fmt"
	"strings"

	"roomsync/pkg/logger"
	"roomsync/pkg/models"
	"roomsync/pkg/store"
)

// Handler applies the payload of one envelope type inside a store
// transaction.
type Handler func(tx *store.Tx, data json.RawMessage) error

// Router maps envelope types to handlers, grouped by domain (the part of
// the type before the final dot, e.g. "message_part" for
// "message_part.delta"). Lookups are exact matches only: an unknown type
// inside a known domain is not guessed at.
type Router struct {
	domains map[string]map[string]Handler
}

// NewRouter returns a router with the built-in handler tables installed.
func NewRouter() *Router {
	r := &Router{domains: make(map[string]map[string]Handler)}
	registerRoomHandlers(r)
	registerThreadHandlers(r)
	registerMessageHandlers(r)
	registerPartHandlers(r)
	registerMemberHandlers(r)
	registerTabHandlers(r)
	registerLifecycleHandlers(r)
	return r
}

// Register adds a handler for an exact envelope type.
func (r *Router) Register(typ string, h Handler) {
	domain := typeDomain(typ)
	tbl, ok := r.domains[domain]
	if !ok {
		tbl = make(map[string]Handler)
		r.domains[domain] = tbl
	}
	tbl[typ] = h
}

// Dispatch validates the envelope and applies its handler inside tx.
// Unknown domains and unknown types within a domain are skipped with a
// debug log, not failed: the stream may carry event kinds this process
// does not track.
func (r *Router) Dispatch(tx *store.Tx, ev models.Envelope) error {
	if !ev.Valid() {
		eventsTotal.WithLabelValues("invalid", "rejected").Inc()
		return fmt.Errorf("invalid envelope: type=%q data=%d bytes", ev.Type, len(ev.Data))
	}
	domain := typeDomain(ev.Type)
	tbl, ok := r.domains[domain]
	if !ok {
		eventsTotal.WithLabelValues(domain, "unknown").Inc()
		logger.Debug("unknown event domain", "type", ev.Type)
		return nil
	}
	h, ok := tbl[ev.Type]
	if !ok {
		eventsTotal.WithLabelValues(domain, "unknown").Inc()
		logger.Debug("unknown event type", "type", ev.Type)
		return nil
	}
	if err := h(tx, ev.Data); err != nil {
		eventsTotal.WithLabelValues(domain, "error").Inc()
		return fmt.Errorf("apply %s: %w", ev.Type, err)
	}
	eventsTotal.WithLabelValues(domain, "ok").Inc()
	return nil
}

// Known reports whether the router has a handler for the exact type.
func (r *Router) Known(typ string) bool {
	tbl, ok := r.domains[typeDomain(typ)]
	if !ok {
		return false
	}
	_, ok = tbl[typ]
	return ok
}

func typeDomain(typ string) string {
	i := strings.LastIndexByte(typ, '.')
	if i < 0 {
		return typ
	}
	return typ[:i]
}
