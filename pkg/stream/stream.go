// Package stream folds incremental part deltas into the store. Deltas
// may carry an index; indexed deltas are applied in index order with
// out-of-order arrivals buffered and retransmits dropped. Unindexed
// deltas append in arrival order.
package stream

import (
	"encoding/json"
	"time"

	"roomsync/pkg/logger"
	"roomsync/pkg/models"
	"roomsync/pkg/store"
)

// Now is replaceable in tests.
var Now = time.Now

// ApplyDelta merges one delta chunk into the part named by the patch,
// creating the part skeleton if the delta raced ahead of the creating
// event. Deltas for a finished part are ignored.
func ApplyDelta(tx *store.Tx, p models.PartPatch) {
	if p.Delta == nil {
		return
	}
	msgID := ""
	if p.MessageID != nil {
		msgID = *p.MessageID
	}
	mp := tx.EnsurePart(p.ID, msgID)
	if p.Type != nil && mp.Type == "" {
		mp.Type = *p.Type
	}
	if p.ToolName != nil && mp.ToolName == "" {
		mp.ToolName = *p.ToolName
	}
	if p.Order != nil {
		mp.Order = *p.Order
	}
	if mp.IsDone {
		logger.Debug("delta after part done, dropped", "part", mp.ID)
		return
	}
	mp.IsStreaming = true
	if p.Index == nil {
		appendChunk(mp, *p.Delta)
		return
	}
	applyIndexed(mp, *p.Index, *p.Delta)
}

// applyIndexed applies a chunk at a known position. Chunks at or below
// the high-water mark, and chunks whose index was already received, are
// duplicates and dropped. A chunk extending the contiguous prefix is
// appended and drains any buffered successors; anything else waits in
// the buffer.
func applyIndexed(mp *models.MessagePart, idx int, chunk string) {
	if idx <= mp.LastApplied {
		return
	}
	if mp.Seen == nil {
		mp.Seen = make(map[int]struct{})
	}
	if _, dup := mp.Seen[idx]; dup {
		return
	}
	mp.Seen[idx] = struct{}{}

	if idx == mp.LastApplied+1 {
		appendChunk(mp, chunk)
		mp.LastApplied = idx
		for {
			next, ok := mp.Pending[mp.LastApplied+1]
			if !ok {
				break
			}
			delete(mp.Pending, mp.LastApplied+1)
			appendChunk(mp, next)
			mp.LastApplied++
		}
		return
	}
	if mp.Pending == nil {
		mp.Pending = make(map[int]string)
	}
	mp.Pending[idx] = chunk
}

// appendChunk routes a chunk to the field the part type accumulates
// into: tool parts grow Arguments, everything else grows Content.
func appendChunk(mp *models.MessagePart, chunk string) {
	if mp.Type == models.PartTool {
		mp.Arguments += chunk
	} else {
		mp.Content += chunk
	}
}

// MarkPartComplete finalizes a part: streaming stops, buffered state is
// released, and tool arguments are parsed. Calling it again on a done
// part is a no-op. An empty status defaults to "success" for tool parts
// and "completed" otherwise; a supplied status is kept as-is.
func MarkPartComplete(tx *store.Tx, id, status string) {
	mp, ok := tx.Part(id)
	if !ok {
		return
	}
	if mp.IsDone {
		return
	}
	mp.IsDone = true
	mp.IsStreaming = false
	mp.FinishedAt = Now()
	mp.Pending = nil
	mp.Seen = nil

	if mp.Type == models.PartTool {
		if mp.Arguments != "" {
			var input map[string]any
			if err := json.Unmarshal([]byte(mp.Arguments), &input); err != nil {
				// keep the raw buffer for inspection
				mp.Status = "error"
				logger.Warn("tool arguments not valid json", "part", mp.ID, "err", err)
				return
			}
			mp.ToolInput = input
		}
		switch status {
		case "success", "error", "completed":
			mp.Status = status
		default:
			mp.Status = "success"
		}
		return
	}
	if status != "" {
		mp.Status = status
	} else {
		mp.Status = "completed"
	}
}
