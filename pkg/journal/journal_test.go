package journal

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"roomsync/pkg/models"
)

var errBoom = errors.New("boom")

func TestAppendReplayRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "journal")
	j, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	events := []models.Envelope{
		{Type: "room.created", Data: json.RawMessage(`{"id":"r1"}`)},
		{Type: "thread.created", Data: json.RawMessage(`{"id":"t1","room_id":"r1"}`)},
		{Type: "message.created", Data: json.RawMessage(`{"id":"m1","thread_id":"t1"}`)},
	}
	for _, ev := range events {
		if err := j.Append(ev, 0); err != nil {
			t.Fatalf("append %s: %v", ev.Type, err)
		}
	}
	if n, err := j.Len(); err != nil || n != 3 {
		t.Fatalf("len = %d, %v", n, err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	j, err = Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j.Close()

	var got []models.Envelope
	err = j.Replay(func(ev models.Envelope) error {
		got = append(got, ev)
		return nil
	})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(got) != len(events) {
		t.Fatalf("replayed %d, want %d", len(got), len(events))
	}
	for i, ev := range got {
		if ev.Type != events[i].Type || string(ev.Data) != string(events[i].Data) {
			t.Fatalf("record %d: %+v", i, ev)
		}
	}
}

func TestReplayPreservesAppendOrderAcrossEqualTimestamps(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "journal"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer j.Close()

	// identical timestamps must still replay in append order
	for _, id := range []string{"a", "b", "c", "d"} {
		ev := models.Envelope{Type: "message_part.delta", Data: json.RawMessage(`{"id":"` + id + `"}`)}
		if err := j.Append(ev, 12345); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	var order []string
	err = j.Replay(func(ev models.Envelope) error {
		var ref struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(ev.Data, &ref); err != nil {
			return err
		}
		order = append(order, ref.ID)
		return nil
	})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	want := "abcd"
	got := ""
	for _, id := range order {
		got += id
	}
	if got != want {
		t.Fatalf("order %q, want %q", got, want)
	}
}

func TestReplayStopsOnError(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "journal"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer j.Close()

	for i := 0; i < 3; i++ {
		if err := j.Append(models.Envelope{Type: "room.created", Data: json.RawMessage(`{}`)}, 0); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	seen := 0
	err = j.Replay(func(ev models.Envelope) error {
		seen++
		if seen == 2 {
			return errBoom
		}
		return nil
	})
	if err != errBoom || seen != 2 {
		t.Fatalf("err=%v seen=%d", err, seen)
	}
}
