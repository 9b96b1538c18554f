package ingest

import (
	"context"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}

func TestTryEnqueueFull(t *testing.T) {
	q := NewQueue(1)
	if err := q.TryEnqueue(&Op{Type: "a", Payload: []byte("x")}); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	if err := q.TryEnqueue(&Op{Type: "b", Payload: []byte("y")}); err != ErrQueueFull {
		t.Fatalf("want ErrQueueFull, got %v", err)
	}
	if q.Dropped() != 1 {
		t.Fatalf("dropped = %d", q.Dropped())
	}
	q.CloseAndDrain()
}

func TestEnqueuePayloadIsCopied(t *testing.T) {
	q := NewQueue(4)
	src := []byte("original")
	if err := q.EnqueueBytes("t", src, 0); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	copy(src, "clobberd")

	it := <-q.Out()
	if string(it.Op.Payload) != "original" {
		t.Fatalf("payload aliased producer buffer: %q", it.Op.Payload)
	}
	it.Done()
	q.CloseAndDrain()
}

func TestWorkerSeesEnqueueOrder(t *testing.T) {
	q := NewQueue(16)
	for _, typ := range []string{"a", "b", "c"} {
		if err := q.EnqueueBytes(typ, []byte("{}"), 0); err != nil {
			t.Fatalf("enqueue %s: %v", typ, err)
		}
	}

	var got []string
	var lastSeq uint64
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		q.RunWorker(stop, func(op *Op) error {
			if op.EnqSeq <= lastSeq {
				t.Errorf("sequence went backwards: %d after %d", op.EnqSeq, lastSeq)
			}
			lastSeq = op.EnqSeq
			got = append(got, op.Type)
			if len(got) == 3 {
				close(stop)
			}
			return nil
		})
	}()
	<-done
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("order: %v", got)
	}
	q.CloseAndDrain()
}

func TestEnqueueHonorsContext(t *testing.T) {
	q := NewQueue(1)
	_ = q.TryEnqueue(&Op{Type: "fill"})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := q.Enqueue(ctx, &Op{Type: "blocked"}); err != context.DeadlineExceeded {
		t.Fatalf("want deadline exceeded, got %v", err)
	}
	q.CloseAndDrain()
}
