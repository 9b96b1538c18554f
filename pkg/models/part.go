package models

import "time"

// Part types.
const (
	PartText     = "text"
	PartThinking = "thinking"
	PartTool     = "tool"
	PartMedia    = "media"
)

// MessagePart is one segment of a message body: a text run, a reasoning
// block, or a tool invocation. Parts stream in incrementally; Content
// (or Arguments for tool parts) grows as deltas arrive until the part is
// marked done.
type MessagePart struct {
	ID           string    `json:"id"`
	MessageID    string    `json:"message_id"`
	Type         string    `json:"type"`
	Content      string    `json:"content,omitempty"`
	Status       string    `json:"status,omitempty"`
	Order        int       `json:"order"`
	IsDone       bool      `json:"is_done"`
	IsStreaming  bool      `json:"is_streaming"`
	DateCreation time.Time `json:"date_creation,omitempty"`

	// BlockOrder orders parts that share an Order slot (sub-blocks of one
	// generation step).
	BlockOrder int       `json:"block_order,omitempty"`
	FinishedAt time.Time `json:"finished_at,omitempty"`

	// Tool parts only.
	ToolName string `json:"tool_name,omitempty"`
	CallID   string `json:"call_id,omitempty"`
	// Arguments is the raw argument text accumulated from deltas. When the
	// part completes it is parsed; ToolInput holds the result on success.
	Arguments  string         `json:"arguments,omitempty"`
	ToolInput  map[string]any `json:"tool_input,omitempty"`
	ToolResult string         `json:"tool_result,omitempty"`

	// Streaming bookkeeping for indexed deltas. LastApplied is the highest
	// contiguous index folded into the part (-1 before any indexed delta).
	// Pending holds out-of-order deltas keyed by index, Seen records every
	// index ever received so retransmits can be dropped.
	LastApplied int              `json:"-"`
	Pending     map[int]string   `json:"-"`
	Seen        map[int]struct{} `json:"-"`
}

// PartPatch is a partial part update. Delta carries an incremental chunk
// to append rather than a replacement value; Index orders indexed deltas.
type PartPatch struct {
	ID           string          `json:"id"`
	MessageID    *string         `json:"message_id,omitempty"`
	Type         *string         `json:"type,omitempty"`
	Content      *string         `json:"content,omitempty"`
	Status       *string         `json:"status,omitempty"`
	Order        *int            `json:"order,omitempty"`
	IsDone       *bool           `json:"is_done,omitempty"`
	IsStreaming  *bool           `json:"is_streaming,omitempty"`
	DateCreation *time.Time      `json:"date_creation,omitempty"`
	BlockOrder   *int            `json:"block_order,omitempty"`
	FinishedAt   *time.Time      `json:"finished_at,omitempty"`
	ToolName     *string         `json:"tool_name,omitempty"`
	CallID       *string         `json:"call_id,omitempty"`
	Arguments    *string         `json:"arguments,omitempty"`
	ToolInput    *map[string]any `json:"tool_input,omitempty"`
	ToolResult   *string         `json:"tool_result,omitempty"`

	Delta *string `json:"delta,omitempty"`
	Index *int    `json:"index,omitempty"`
}

// Apply merges the set replacement fields of the patch into mp. Delta and
// Index are not applied here; they go through the streaming merge path.
func (p PartPatch) Apply(mp *MessagePart) {
	if p.MessageID != nil {
		mp.MessageID = *p.MessageID
	}
	if p.Type != nil {
		mp.Type = *p.Type
	}
	if p.Content != nil {
		mp.Content = *p.Content
	}
	if p.Status != nil {
		mp.Status = *p.Status
	}
	if p.Order != nil {
		mp.Order = *p.Order
	}
	if p.IsDone != nil {
		mp.IsDone = *p.IsDone
	}
	if p.IsStreaming != nil {
		mp.IsStreaming = *p.IsStreaming
	}
	if p.DateCreation != nil {
		mp.DateCreation = *p.DateCreation
	}
	if p.BlockOrder != nil {
		mp.BlockOrder = *p.BlockOrder
	}
	if p.FinishedAt != nil {
		mp.FinishedAt = *p.FinishedAt
	}
	if p.ToolName != nil {
		mp.ToolName = *p.ToolName
	}
	if p.CallID != nil {
		mp.CallID = *p.CallID
	}
	if p.Arguments != nil {
		mp.Arguments = *p.Arguments
	}
	if p.ToolInput != nil {
		mp.ToolInput = *p.ToolInput
	}
	if p.ToolResult != nil {
		mp.ToolResult = *p.ToolResult
	}
}
