// Package lifecycle tracks agent activation and response machines. Each
// event records its suffix as the current status; settled records are
// retained for a grace window so late readers still see the outcome,
// then removed by the sweep.
package lifecycle

import (
	"strings"
	"time"

	"roomsync/pkg/logger"
	"roomsync/pkg/models"
	"roomsync/pkg/store"
)

// Now is replaceable in tests to pin timestamps.
var Now = time.Now

// DefaultSweepWindow is how long settled lifecycle records linger before
// the sweep removes them.
const DefaultSweepWindow = 5 * time.Minute

// ApplyActivationEvent applies one activation.* event. The status becomes
// the event suffix; scheduled and rescheduled settle the activation as
// completed, discarded settles it as discarded, and every other suffix
// leaves it in flight. A failed activation stays visible until a later
// event settles it.
func ApplyActivationEvent(tx *store.Tx, suffix string, ev models.LifecycleEvent) {
	if ev.ID == "" {
		logger.Warn("activation event without id", "suffix", suffix)
		return
	}
	a := tx.EnsureActivation(ev.ID, ev.ThreadID)
	if a.AgentID == "" && ev.AgentID != "" {
		a.AgentID = ev.AgentID
	}
	if ev.Reason != "" {
		a.Reason = ev.Reason
	}
	a.Status = suffix
	// redelivered events must not grow the timeline
	if n := len(a.Events); n == 0 || a.Events[n-1] != suffix {
		a.Events = append(a.Events, suffix)
	}
	a.UpdatedAt = Now()

	switch suffix {
	case "scheduled", "rescheduled":
		a.CompletedAt = a.UpdatedAt
		tx.ClearActivationActive(a.ThreadID, a.ID)
	case "discarded":
		a.DiscardedAt = a.UpdatedAt
		tx.ClearActivationActive(a.ThreadID, a.ID)
	default:
		tx.MarkActivationActive(a.ThreadID, a.ID)
	}
}

// ApplyResponseEvent applies one response.* event. "started" captures the
// message id the response writes into; terminal suffixes settle the
// response and drop it from the thread's active list.
func ApplyResponseEvent(tx *store.Tx, suffix string, ev models.LifecycleEvent) {
	if ev.ID == "" {
		logger.Warn("response event without id", "suffix", suffix)
		return
	}
	r := tx.EnsureResponse(ev.ID, ev.ThreadID)
	if r.AgentID == "" && ev.AgentID != "" {
		r.AgentID = ev.AgentID
	}
	if ev.Reason != "" {
		r.Reason = ev.Reason
	}
	if suffix == "started" && ev.MessageID != "" {
		r.MessageID = ev.MessageID
	}
	if ev.LLMResponseID != "" {
		r.LLMResponseID = ev.LLMResponseID
	}
	r.Status = suffix
	if n := len(r.Events); n == 0 || r.Events[n-1] != suffix {
		r.Events = append(r.Events, suffix)
	}
	r.UpdatedAt = Now()

	if models.TerminalResponseStatus(suffix) {
		r.CompletedAt = r.UpdatedAt
		tx.ClearResponseActive(r.ThreadID, r.ID)
		return
	}
	tx.MarkResponseActive(r.ThreadID, r.ID)
}

// EventSuffix splits a lifecycle event type like "activation.scheduled"
// into its suffix. An empty string means the type had no suffix.
func EventSuffix(typ string) string {
	i := strings.LastIndexByte(typ, '.')
	if i < 0 || i == len(typ)-1 {
		return ""
	}
	return typ[i+1:]
}

// Sweep removes settled lifecycle records whose settling timestamp is
// older than the window. Records exactly at the cutoff survive. Returns
// the number of records removed.
func Sweep(tx *store.Tx, now time.Time, window time.Duration) int {
	if window <= 0 {
		window = DefaultSweepWindow
	}
	cutoff := now.Add(-window)
	removed := 0
	for _, a := range tx.Activations() {
		settled := a.CompletedAt
		if settled.IsZero() {
			settled = a.DiscardedAt
		}
		if settled.IsZero() {
			continue
		}
		if settled.Before(cutoff) {
			tx.RemoveActivation(a.ID)
			removed++
		}
	}
	for _, r := range tx.Responses() {
		if r.CompletedAt.IsZero() {
			continue
		}
		if r.CompletedAt.Before(cutoff) {
			tx.RemoveResponse(r.ID)
			removed++
		}
	}
	return removed
}
