package models

import "encoding/json"

// Envelope is the typed event wrapper delivered by the transport
// collaborator. Type is "<domain>.<verb>" (e.g. "message.created",
// "response.started"). Data carries the domain-specific payload and is
// decoded by the handler registered for the exact type.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
	// Timestamp is an optional RFC3339 event time supplied by the
	// transport; handlers fall back to receipt time when absent.
	Timestamp string `json:"timestamp,omitempty"`
}

// Valid reports whether the envelope carries the minimum required fields.
func (e Envelope) Valid() bool {
	return e.Type != "" && len(e.Data) > 0
}
