package ingest

import (
	"encoding/json"

	"roomsync/pkg/logger"
	"roomsync/pkg/models"
	"roomsync/pkg/store"
)

// Journal receives every accepted envelope after it is applied. The
// pebble-backed implementation lives in pkg/journal; a nil Journal
// disables persistence.
type Journal interface {
	Append(ev models.Envelope, ts int64) error
}

// Processor drains the queue with a single consumer goroutine and applies
// each envelope to the store as one atomic update. One consumer is the
// ordering guarantee: envelopes apply in enqueue-sequence order, so
// arrival order is total even for unindexed deltas.
type Processor struct {
	q       *Queue
	st      *store.Store
	router  *Router
	journal Journal

	stop chan struct{}
	done chan struct{}
}

// NewProcessor wires a processor over the queue and store. journal may be
// nil.
func NewProcessor(q *Queue, st *store.Store, router *Router, journal Journal) *Processor {
	if router == nil {
		router = NewRouter()
	}
	return &Processor{
		q:       q,
		st:      st,
		router:  router,
		journal: journal,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Router exposes the processor's handler table for extension.
func (p *Processor) Router() *Router { return p.router }

// Start launches the consumer goroutine.
func (p *Processor) Start() {
	go func() {
		defer close(p.done)
		p.q.RunWorker(p.stop, p.apply)
	}()
}

// Stop signals the consumer and waits for it to exit. Items left in the
// queue are not processed; call Queue.CloseAndDrain afterwards to release
// them.
func (p *Processor) Stop() {
	close(p.stop)
	<-p.done
}

// Apply processes one envelope synchronously, bypassing the queue. Used
// by tests and by replay on startup.
func (p *Processor) Apply(ev models.Envelope) error {
	return p.st.Update(func(tx *store.Tx) error {
		return p.router.Dispatch(tx, ev)
	})
}

func (p *Processor) apply(op *Op) error {
	// the payload buffer is pooled; Dispatch decodes into fresh values so
	// nothing retains op.Payload after return
	ev := models.Envelope{Type: op.Type, Data: json.RawMessage(op.Payload)}
	err := p.st.Update(func(tx *store.Tx) error {
		return p.router.Dispatch(tx, ev)
	})
	if err != nil {
		logger.Warn("event apply failed", "type", op.Type, "seq", op.EnqSeq, "err", err)
		return err
	}
	if p.journal != nil {
		if jerr := p.journal.Append(ev, op.TS); jerr != nil {
			logger.Warn("journal append failed", "type", op.Type, "err", jerr)
		}
	}
	return nil
}
