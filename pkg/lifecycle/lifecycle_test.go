package lifecycle

import (
	"reflect"
	"testing"
	"time"

	"roomsync/pkg/models"
	"roomsync/pkg/store"
)

func pinNow(t *testing.T, at time.Time) {
	t.Helper()
	old := Now
	Now = func() time.Time { return at }
	t.Cleanup(func() { Now = old })
}

func applyActivation(s *store.Store, suffix string, ev models.LifecycleEvent) {
	_ = s.Update(func(tx *store.Tx) error {
		ApplyActivationEvent(tx, suffix, ev)
		return nil
	})
}

func applyResponse(s *store.Store, suffix string, ev models.LifecycleEvent) {
	_ = s.Update(func(tx *store.Tx) error {
		ApplyResponseEvent(tx, suffix, ev)
		return nil
	})
}

func TestActivationStatusFollowsEvents(t *testing.T) {
	s := store.New()
	applyActivation(s, "requested", models.LifecycleEvent{ID: "a1", ThreadID: "t1"})
	a, _ := s.Activation("a1")
	if a.Status != "requested" || a.Settled() {
		t.Fatalf("after requested: %+v", a)
	}
	if got := s.ActiveActivations("t1"); len(got) != 1 {
		t.Fatalf("not active: %v", got)
	}

	applyActivation(s, "scheduled", models.LifecycleEvent{ID: "a1", ThreadID: "t1"})
	a, _ = s.Activation("a1")
	if a.Status != "scheduled" || a.CompletedAt.IsZero() {
		t.Fatalf("after scheduled: %+v", a)
	}
	if len(a.Events) != 2 || a.Events[0] != "requested" || a.Events[1] != "scheduled" {
		t.Fatalf("timeline: %v", a.Events)
	}
	if got := s.ActiveActivations("t1"); len(got) != 0 {
		t.Fatalf("still active after scheduled: %v", got)
	}
}

func TestActivationDiscarded(t *testing.T) {
	s := store.New()
	applyActivation(s, "requested", models.LifecycleEvent{ID: "a1", ThreadID: "t1"})
	applyActivation(s, "discarded", models.LifecycleEvent{ID: "a1", ThreadID: "t1", Reason: "superseded"})
	a, _ := s.Activation("a1")
	if a.DiscardedAt.IsZero() || !a.CompletedAt.IsZero() {
		t.Fatalf("discard timestamps wrong: %+v", a)
	}
	if a.Reason != "superseded" {
		t.Fatalf("reason not kept: %q", a.Reason)
	}
}

func TestActivationFailedStaysInFlight(t *testing.T) {
	s := store.New()
	applyActivation(s, "requested", models.LifecycleEvent{ID: "a1", ThreadID: "t1"})
	applyActivation(s, "failed", models.LifecycleEvent{ID: "a1", ThreadID: "t1"})
	a, _ := s.Activation("a1")
	if a.Settled() {
		t.Fatalf("failed should not settle: %+v", a)
	}
	if got := s.ActiveActivations("t1"); len(got) != 1 {
		t.Fatalf("failed activation dropped from active: %v", got)
	}
	// a later reschedule settles it
	applyActivation(s, "rescheduled", models.LifecycleEvent{ID: "a1", ThreadID: "t1"})
	a, _ = s.Activation("a1")
	if !a.Settled() {
		t.Fatalf("reschedule did not settle")
	}
}

func TestResponseStartedCapturesMessageID(t *testing.T) {
	s := store.New()
	applyResponse(s, "started", models.LifecycleEvent{ID: "r1", ThreadID: "t1", MessageID: "m1"})
	r, _ := s.Response("r1")
	if r.MessageID != "m1" || r.Status != "started" {
		t.Fatalf("after started: %+v", r)
	}
	if got := s.ActiveResponses("t1"); len(got) != 1 {
		t.Fatalf("not active: %v", got)
	}

	applyResponse(s, "completed", models.LifecycleEvent{ID: "r1", ThreadID: "t1"})
	r, _ = s.Response("r1")
	if r.MessageID != "m1" {
		t.Fatalf("message id lost on completion: %+v", r)
	}
	if !r.Terminal() || r.CompletedAt.IsZero() {
		t.Fatalf("not terminal: %+v", r)
	}
	if got := s.ActiveResponses("t1"); len(got) != 0 {
		t.Fatalf("still active: %v", got)
	}
}

func TestAllTerminalResponseStatuses(t *testing.T) {
	for _, status := range []string{"completed", "failed", "empty", "stopped", "interrupted", "suspended", "requeued"} {
		s := store.New()
		applyResponse(s, "started", models.LifecycleEvent{ID: "r1", ThreadID: "t1"})
		applyResponse(s, status, models.LifecycleEvent{ID: "r1", ThreadID: "t1"})
		r, _ := s.Response("r1")
		if !r.Terminal() {
			t.Fatalf("%s not terminal", status)
		}
		if got := s.ActiveResponses("t1"); len(got) != 0 {
			t.Fatalf("%s left response active", status)
		}
	}
}

func TestRedeliveredEventIsIdempotent(t *testing.T) {
	pinNow(t, time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	s := store.New()

	applyActivation(s, "requested", models.LifecycleEvent{ID: "a1", ThreadID: "t1"})
	applyActivation(s, "requested", models.LifecycleEvent{ID: "a1", ThreadID: "t1"})
	a, _ := s.Activation("a1")
	once := store.New()
	applyActivation(once, "requested", models.LifecycleEvent{ID: "a1", ThreadID: "t1"})
	want, _ := once.Activation("a1")
	if !reflect.DeepEqual(a, want) {
		t.Fatalf("redelivery changed state:\n got %+v\nwant %+v", a, want)
	}
	if got := s.ActiveActivations("t1"); len(got) != 1 {
		t.Fatalf("active set: %v", got)
	}

	applyResponse(s, "started", models.LifecycleEvent{ID: "resp1", ThreadID: "t1", MessageID: "m1"})
	applyResponse(s, "started", models.LifecycleEvent{ID: "resp1", ThreadID: "t1", MessageID: "m1"})
	r, _ := s.Response("resp1")
	if len(r.Events) != 1 || r.Events[0] != "started" {
		t.Fatalf("timeline grew on redelivery: %v", r.Events)
	}
	if got := s.ActiveResponses("t1"); len(got) != 1 {
		t.Fatalf("active set: %v", got)
	}
}

func TestSweepWindowBoundary(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s := store.New()

	pinNow(t, base)
	applyActivation(s, "scheduled", models.LifecycleEvent{ID: "old", ThreadID: "t1"})
	applyResponse(s, "completed", models.LifecycleEvent{ID: "rold", ThreadID: "t1"})

	pinNow(t, base.Add(time.Minute))
	applyActivation(s, "scheduled", models.LifecycleEvent{ID: "fresh", ThreadID: "t1"})

	window := 5 * time.Minute

	// exactly at the cutoff: settled == now-window must survive
	removed := 0
	_ = s.Update(func(tx *store.Tx) error {
		removed = Sweep(tx, base.Add(window), window)
		return nil
	})
	if removed != 0 {
		t.Fatalf("removed %d at exact cutoff, want 0", removed)
	}

	// one past the cutoff removes only the old pair
	_ = s.Update(func(tx *store.Tx) error {
		removed = Sweep(tx, base.Add(window+time.Millisecond), window)
		return nil
	})
	if removed != 2 {
		t.Fatalf("removed %d, want 2", removed)
	}
	if _, ok := s.Activation("old"); ok {
		t.Fatalf("old activation survived")
	}
	if _, ok := s.Response("rold"); ok {
		t.Fatalf("old response survived")
	}
	if _, ok := s.Activation("fresh"); !ok {
		t.Fatalf("fresh activation swept")
	}
}

func TestSweepSkipsUnsettled(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s := store.New()
	pinNow(t, base)
	applyActivation(s, "requested", models.LifecycleEvent{ID: "a1", ThreadID: "t1"})
	applyResponse(s, "started", models.LifecycleEvent{ID: "r1", ThreadID: "t1"})

	removed := 0
	_ = s.Update(func(tx *store.Tx) error {
		removed = Sweep(tx, base.Add(24*time.Hour), DefaultSweepWindow)
		return nil
	})
	if removed != 0 {
		t.Fatalf("swept in-flight records: %d", removed)
	}
}

func TestEventSuffix(t *testing.T) {
	cases := map[string]string{
		"activation.scheduled": "scheduled",
		"response.started":     "started",
		"noperiod":             "",
		"trailing.":            "",
	}
	for in, want := range cases {
		if got := EventSuffix(in); got != want {
			t.Fatalf("EventSuffix(%q) = %q, want %q", in, got, want)
		}
	}
}
