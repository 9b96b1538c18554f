package ingest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/valyala/bytebufferpool"
)

// Op is a lightweight in-memory representation of one received event
// envelope awaiting processing. Payload may be backed by a pooled
// ByteBuffer; consumers must call Item.Done() when finished.
type Op struct {
	// Type is the envelope type, e.g. "message_part.delta".
	Type string
	// Payload holds the raw envelope data bytes (may be nil).
	Payload []byte
	// TS is an optional transport timestamp (nanoseconds).
	TS int64
	// EnqSeq is a monotonic enqueue sequence assigned when the op is
	// accepted into the queue. With a single consumer it makes arrival
	// order explicit and testable.
	EnqSeq uint64
}

// ErrQueueFull is returned by TryEnqueue when the queue is at capacity.
var ErrQueueFull = errors.New("ingest queue full")

// Item wraps an Op and owns a pooled ByteBuffer if one was used.
// Consumers MUST call Done() exactly once after processing the item.
type Item struct {
	Op *Op

	buf  *bytebufferpool.ByteBuffer
	once sync.Once
}

// Done releases internal pooled resources (buffer + op) back to the pool.
func (it *Item) Done() {
	it.once.Do(func() {
		if it.buf != nil {
			// avoid retaining huge buffers in the pool
			if cap(it.buf.B) > maxPooledBuffer {
				it.buf = nil
			} else {
				bytebufferpool.Put(it.buf)
				it.buf = nil
			}
		}
		if it.Op != nil {
			it.Op.Payload = nil
			opPool.Put(it.Op)
			it.Op = nil
		}
		itemPool.Put(it)
	})
}

// Queue is a bounded in-memory queue between the transport layer and the
// single event processor. It is safe for concurrent producers.
type Queue struct {
	ch       chan *Item
	capacity int
	dropped  uint64
}

var opPool = sync.Pool{New: func() any { return &Op{} }}
var itemPool = sync.Pool{New: func() any { return &Item{} }}

// maxPooledBuffer controls the largest buffer size that will be returned
// to the pooled ByteBuffer. Larger buffers are dropped to avoid
// unbounded resident memory.
var maxPooledBuffer = 256 * 1024 // 256 KiB

// NewQueue creates a new bounded Queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Queue{ch: make(chan *Item, capacity), capacity: capacity}
}

var enqSeq uint64

// Out returns a read-only channel consumers can range over. Do not close
// it from callers.
func (q *Queue) Out() <-chan *Item { return q.ch }

// TryEnqueue attempts to enqueue an Op by copying its payload into a
// pooled buffer. If the queue is full ErrQueueFull is returned and the
// caller may reject or retry.
func (q *Queue) TryEnqueue(op *Op) error {
	newOp := opPool.Get().(*Op)
	*newOp = *op
	newOp.EnqSeq = atomic.AddUint64(&enqSeq, 1)

	var bb *bytebufferpool.ByteBuffer
	if len(op.Payload) > 0 {
		bb = bytebufferpool.Get()
		bb.B = append(bb.B[:0], op.Payload...)
		newOp.Payload = bb.B[:len(op.Payload)]
	}

	it := itemPool.Get().(*Item)
	*it = Item{Op: newOp, buf: bb}

	select {
	case q.ch <- it:
		queueDepth.Set(float64(len(q.ch)))
		return nil
	default:
		if bb != nil {
			bytebufferpool.Put(bb)
		}
		opPool.Put(newOp)
		atomic.AddUint64(&q.dropped, 1)
		droppedTotal.Inc()
		return ErrQueueFull
	}
}

// Enqueue blocks until space is available or the context is done.
func (q *Queue) Enqueue(ctx context.Context, op *Op) error {
	newOp := opPool.Get().(*Op)
	*newOp = *op
	newOp.EnqSeq = atomic.AddUint64(&enqSeq, 1)

	var bb *bytebufferpool.ByteBuffer
	if len(op.Payload) > 0 {
		bb = bytebufferpool.Get()
		bb.B = append(bb.B[:0], op.Payload...)
		newOp.Payload = bb.B[:len(op.Payload)]
	}
	it := itemPool.Get().(*Item)
	*it = Item{Op: newOp, buf: bb}

	select {
	case q.ch <- it:
		queueDepth.Set(float64(len(q.ch)))
		return nil
	case <-ctx.Done():
		if bb != nil {
			bytebufferpool.Put(bb)
		}
		opPool.Put(newOp)
		atomic.AddUint64(&q.dropped, 1)
		droppedTotal.Inc()
		return ctx.Err()
	}
}

// EnqueueBytes copies payload into a pooled buffer and enqueues a new Op
// constructed from the provided fields.
func (q *Queue) EnqueueBytes(typ string, payload []byte, ts int64) error {
	return q.TryEnqueue(&Op{Type: typ, Payload: payload, TS: ts})
}

// CloseAndDrain closes the queue channel and drains remaining items,
// ensuring their resources are released.
func (q *Queue) CloseAndDrain() {
	close(q.ch)
	for it := range q.ch {
		it.Done()
	}
}

// RunWorker runs a consumer loop invoking handler for each dequeued Op.
// Item.Done() is guaranteed even when the handler returns an error. The
// worker exits when stop is closed or the queue is closed.
func (q *Queue) RunWorker(stop <-chan struct{}, handler func(*Op) error) {
	for {
		select {
		case it, ok := <-q.ch:
			if !ok {
				return
			}
			func(it *Item) {
				defer it.Done()
				_ = handler(it.Op)
			}(it)
			queueDepth.Set(float64(len(q.ch)))
		case <-stop:
			return
		}
	}
}

// Len returns the current number of items in the queue.
func (q *Queue) Len() int { return len(q.ch) }

// Cap returns the configured capacity of the queue.
func (q *Queue) Cap() int { return q.capacity }

// Dropped returns the number of operations rejected because the queue
// was full or the enqueue context expired.
func (q *Queue) Dropped() uint64 { return atomic.LoadUint64(&q.dropped) }
