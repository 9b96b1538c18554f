package models

import "time"

// Activation is the lifecycle record of one agent activation request:
// created when the first activation.* event for its id arrives, updated
// as the activation advances, and swept once it settles and ages out.
type Activation struct {
	ID       string `json:"id"`
	ThreadID string `json:"thread_id"`
	AgentID  string `json:"agent_id,omitempty"`
	// Status is the suffix of the last applied activation event, e.g.
	// "requested", "scheduled", "discarded".
	Status      string    `json:"status"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
	DiscardedAt time.Time `json:"discarded_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	// Events is the ordered list of applied event suffixes.
	Events []string `json:"events,omitempty"`
}

// Settled reports whether the activation has reached a resting state and
// is eligible for sweeping.
func (a Activation) Settled() bool {
	return !a.CompletedAt.IsZero() || !a.DiscardedAt.IsZero()
}

// Response is the lifecycle record of one agent response run, from
// response.started through a terminal event.
type Response struct {
	ID       string `json:"id"`
	ThreadID string `json:"thread_id"`
	AgentID  string `json:"agent_id,omitempty"`
	// MessageID is the message the response writes into, captured from the
	// started event and kept through later transitions.
	MessageID string `json:"message_id,omitempty"`
	// LLMResponseID is the provider-side response id, kept for
	// interruption requests.
	LLMResponseID string    `json:"llm_response_id,omitempty"`
	Status        string    `json:"status"`
	CompletedAt   time.Time `json:"completed_at,omitempty"`
	UpdatedAt     time.Time `json:"updated_at,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	// Events is the ordered list of applied event suffixes.
	Events []string `json:"events,omitempty"`
}

// responseTerminal lists the response statuses after which no further
// streaming is expected.
var responseTerminal = map[string]struct{}{
	"completed":   {},
	"failed":      {},
	"empty":       {},
	"stopped":     {},
	"interrupted": {},
	"suspended":   {},
	"requeued":    {},
}

// Terminal reports whether the response has finished in any form.
func (r Response) Terminal() bool {
	_, ok := responseTerminal[r.Status]
	return ok
}

// TerminalResponseStatus reports whether status names a terminal response
// state.
func TerminalResponseStatus(status string) bool {
	_, ok := responseTerminal[status]
	return ok
}

// LifecycleEvent is the decoded payload of activation.* and response.*
// envelopes.
type LifecycleEvent struct {
	ID            string `json:"id"`
	ThreadID      string `json:"thread_id"`
	AgentID       string `json:"agent_id,omitempty"`
	MessageID     string `json:"message_id,omitempty"`
	LLMResponseID string `json:"llm_response_id,omitempty"`
	Reason        string `json:"reason,omitempty"`
}
