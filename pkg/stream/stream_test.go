package stream

import (
	"testing"

	"roomsync/pkg/models"
	"roomsync/pkg/store"
)

func strp(s string) *string { return &s }
func intp(i int) *int       { return &i }

func applyDelta(t *testing.T, s *store.Store, p models.PartPatch) {
	t.Helper()
	if err := s.Update(func(tx *store.Tx) error {
		ApplyDelta(tx, p)
		return nil
	}); err != nil {
		t.Fatalf("apply delta: %v", err)
	}
}

func complete(t *testing.T, s *store.Store, id, status string) {
	t.Helper()
	_ = s.Update(func(tx *store.Tx) error {
		MarkPartComplete(tx, id, status)
		return nil
	})
}

func TestIndexedDeltasInOrder(t *testing.T) {
	s := store.New()
	applyDelta(t, s, models.PartPatch{ID: "p1", MessageID: strp("m1"), Delta: strp("Hel"), Index: intp(0)})
	applyDelta(t, s, models.PartPatch{ID: "p1", Delta: strp("lo"), Index: intp(1)})
	p, _ := s.Part("p1")
	if p.Content != "Hello" {
		t.Fatalf("content = %q, want Hello", p.Content)
	}
	if !p.IsStreaming {
		t.Fatalf("part should be streaming")
	}
}

func TestIndexedDeltasOutOfOrder(t *testing.T) {
	s := store.New()
	applyDelta(t, s, models.PartPatch{ID: "p1", MessageID: strp("m1"), Delta: strp("lo"), Index: intp(1)})
	p, _ := s.Part("p1")
	if p.Content != "" {
		t.Fatalf("out-of-order chunk applied early: %q", p.Content)
	}
	applyDelta(t, s, models.PartPatch{ID: "p1", Delta: strp("Hel"), Index: intp(0)})
	p, _ = s.Part("p1")
	if p.Content != "Hello" {
		t.Fatalf("content = %q, want Hello", p.Content)
	}
}

func TestDuplicateIndexDropped(t *testing.T) {
	s := store.New()
	applyDelta(t, s, models.PartPatch{ID: "p1", MessageID: strp("m1"), Delta: strp("ab"), Index: intp(0)})
	applyDelta(t, s, models.PartPatch{ID: "p1", Delta: strp("ab"), Index: intp(0)})
	applyDelta(t, s, models.PartPatch{ID: "p1", Delta: strp("cd"), Index: intp(1)})
	// retransmit of a buffered index
	applyDelta(t, s, models.PartPatch{ID: "p1", Delta: strp("xx"), Index: intp(1)})
	p, _ := s.Part("p1")
	if p.Content != "abcd" {
		t.Fatalf("content = %q, want abcd", p.Content)
	}
}

func TestGapBuffersUntilFilled(t *testing.T) {
	s := store.New()
	applyDelta(t, s, models.PartPatch{ID: "p1", MessageID: strp("m1"), Delta: strp("a"), Index: intp(0)})
	applyDelta(t, s, models.PartPatch{ID: "p1", Delta: strp("c"), Index: intp(2)})
	applyDelta(t, s, models.PartPatch{ID: "p1", Delta: strp("d"), Index: intp(3)})
	p, _ := s.Part("p1")
	if p.Content != "a" {
		t.Fatalf("content before gap fill = %q, want a", p.Content)
	}
	applyDelta(t, s, models.PartPatch{ID: "p1", Delta: strp("b"), Index: intp(1)})
	p, _ = s.Part("p1")
	if p.Content != "abcd" {
		t.Fatalf("content after gap fill = %q, want abcd", p.Content)
	}
}

func TestUnindexedDeltasAppendInArrivalOrder(t *testing.T) {
	s := store.New()
	applyDelta(t, s, models.PartPatch{ID: "p1", MessageID: strp("m1"), Delta: strp("foo")})
	applyDelta(t, s, models.PartPatch{ID: "p1", Delta: strp("bar")})
	p, _ := s.Part("p1")
	if p.Content != "foobar" {
		t.Fatalf("content = %q, want foobar", p.Content)
	}
}

func TestDeltaAfterDoneDropped(t *testing.T) {
	s := store.New()
	applyDelta(t, s, models.PartPatch{ID: "p1", MessageID: strp("m1"), Delta: strp("done")})
	complete(t, s, "p1", "")
	applyDelta(t, s, models.PartPatch{ID: "p1", Delta: strp("late")})
	p, _ := s.Part("p1")
	if p.Content != "done" {
		t.Fatalf("late delta applied: %q", p.Content)
	}
}

func TestMarkCompleteIdempotent(t *testing.T) {
	s := store.New()
	applyDelta(t, s, models.PartPatch{ID: "p1", MessageID: strp("m1"), Delta: strp("x")})
	complete(t, s, "p1", "")
	complete(t, s, "p1", "error")
	p, _ := s.Part("p1")
	if !p.IsDone || p.IsStreaming {
		t.Fatalf("flags wrong: done=%v streaming=%v", p.IsDone, p.IsStreaming)
	}
	if p.Status != "completed" {
		t.Fatalf("second completion changed status: %q", p.Status)
	}
}

func TestToolArgumentsParsedOnComplete(t *testing.T) {
	s := store.New()
	applyDelta(t, s, models.PartPatch{ID: "p1", MessageID: strp("m1"), Type: strp(models.PartTool), ToolName: strp("search"), Delta: strp(`{"query":`)})
	applyDelta(t, s, models.PartPatch{ID: "p1", Delta: strp(`"weather"}`)})
	complete(t, s, "p1", "")
	p, _ := s.Part("p1")
	if p.Status != "success" {
		t.Fatalf("status = %q, want success", p.Status)
	}
	if got := p.ToolInput["query"]; got != "weather" {
		t.Fatalf("tool input = %v", p.ToolInput)
	}
}

func TestToolArgumentsParseFailureKeepsRaw(t *testing.T) {
	s := store.New()
	applyDelta(t, s, models.PartPatch{ID: "p1", MessageID: strp("m1"), Type: strp(models.PartTool), Delta: strp(`{"broken`)})
	complete(t, s, "p1", "")
	p, _ := s.Part("p1")
	if p.Status != "error" {
		t.Fatalf("status = %q, want error", p.Status)
	}
	if p.Arguments != `{"broken` {
		t.Fatalf("raw buffer lost: %q", p.Arguments)
	}
	if !p.IsDone {
		t.Fatalf("part not finalized")
	}
}

func TestDeltaBeforePartEventCreatesSkeleton(t *testing.T) {
	s := store.New()
	applyDelta(t, s, models.PartPatch{ID: "p9", MessageID: strp("m1"), Delta: strp("early"), Index: intp(0)})
	p, ok := s.Part("p9")
	if !ok {
		t.Fatalf("skeleton not created")
	}
	if p.MessageID != "m1" || p.Content != "early" {
		t.Fatalf("skeleton wrong: %+v", p)
	}
}
