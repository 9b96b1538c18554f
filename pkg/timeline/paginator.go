// Package timeline manages per-thread history views: backward
// pagination against the history backend, optimistic placeholders, and
// the scroll trigger that requests older pages.
package timeline

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"roomsync/pkg/dataservice"
	"roomsync/pkg/logger"
	"roomsync/pkg/models"
	"roomsync/pkg/store"
)

var (
	// ErrFetchInFlight is returned when a page fetch for the thread is
	// already running.
	ErrFetchInFlight = errors.New("page fetch already in flight")
	// ErrNoMorePages is returned when the thread's continuation state says
	// the history is exhausted.
	ErrNoMorePages = errors.New("no more pages")
	// ErrNotAttached is returned for threads without an attached view.
	ErrNotAttached = errors.New("thread view not attached")
)

// Fetcher is the slice of the dataservice client the paginator needs.
type Fetcher interface {
	FetchMessages(threadID, cursor string, limit int) (dataservice.Page, error)
}

// viewState tracks one attached thread view.
type viewState struct {
	inFlight bool
	limiter  *rate.Limiter
}

// Paginator drives history loading for attached thread views. One fetch
// per thread at a time; scroll triggers are throttled so a fast wheel
// does not queue a fetch per pixel.
type Paginator struct {
	st      *store.Store
	fetcher Fetcher
	limit   int

	mu    sync.Mutex
	views map[string]*viewState

	// throttle window for scroll triggers
	window time.Duration
}

// Options tunes the paginator.
type Options struct {
	// PageSize is the per-fetch message limit (default 50).
	PageSize int
	// ScrollThrottle is the minimum spacing between scroll-triggered
	// fetches (default 500ms).
	ScrollThrottle time.Duration
}

func NewPaginator(st *store.Store, fetcher Fetcher, opts Options) *Paginator {
	limit := opts.PageSize
	if limit <= 0 {
		limit = 50
	}
	window := opts.ScrollThrottle
	if window <= 0 {
		window = 500 * time.Millisecond
	}
	return &Paginator{
		st:      st,
		fetcher: fetcher,
		limit:   limit,
		views:   make(map[string]*viewState),
		window:  window,
	}
}

// Attach registers a view for the thread. Attaching twice is a no-op.
func (p *Paginator) Attach(threadID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.views[threadID]; ok {
		return
	}
	p.views[threadID] = &viewState{
		limiter: rate.NewLimiter(rate.Every(p.window), 1),
	}
}

// Detach drops the view state for the thread. A fetch already running
// finishes and merges; only the trigger state is discarded.
func (p *Paginator) Detach(threadID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.views, threadID)
}

// Attached reports whether the thread has a registered view.
func (p *Paginator) Attached(threadID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.views[threadID]
	return ok
}

// LoadOlder fetches the next older page for the thread and merges it
// into the store. The first call on a thread fetches the newest page;
// later calls continue from the stored cursor. Returns the number of
// messages merged.
func (p *Paginator) LoadOlder(threadID string) (int, error) {
	p.mu.Lock()
	vs, ok := p.views[threadID]
	if !ok {
		p.mu.Unlock()
		return 0, ErrNotAttached
	}
	if vs.inFlight {
		p.mu.Unlock()
		return 0, ErrFetchInFlight
	}

	th, _ := p.st.Thread(threadID)
	if th.Page.Primed && !th.Page.More() {
		p.mu.Unlock()
		return 0, ErrNoMorePages
	}
	cursor := th.Page.Cursor
	vs.inFlight = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		if vs2, ok := p.views[threadID]; ok {
			vs2.inFlight = false
		}
		p.mu.Unlock()
	}()

	page, err := p.fetcher.FetchMessages(threadID, cursor, p.limit)
	if err != nil {
		return 0, err
	}
	return p.merge(threadID, page), nil
}

// TriggerLoadOlder is the scroll-edge entry point. Triggers inside the
// throttle window are dropped; a passing trigger runs LoadOlder and
// reports its outcome. Dropped triggers return (0, nil).
func (p *Paginator) TriggerLoadOlder(threadID string) (int, error) {
	p.mu.Lock()
	vs, ok := p.views[threadID]
	if !ok {
		p.mu.Unlock()
		return 0, ErrNotAttached
	}
	if !vs.limiter.Allow() {
		p.mu.Unlock()
		return 0, nil
	}
	p.mu.Unlock()
	n, err := p.LoadOlder(threadID)
	if errors.Is(err, ErrFetchInFlight) || errors.Is(err, ErrNoMorePages) {
		return 0, nil
	}
	return n, err
}

// merge applies a fetched page in one store update: messages and parts
// upserted, continuation state replaced with the page's.
func (p *Paginator) merge(threadID string, page dataservice.Page) int {
	merged := 0
	_ = p.st.Update(func(tx *store.Tx) error {
		tid := threadID
		for _, mp := range page.Messages {
			if mp.ID == "" {
				continue
			}
			if mp.ThreadID == nil {
				mp.ThreadID = &tid
			}
			tx.UpsertMessage(mp)
			merged++
		}
		for _, pp := range page.Parts {
			if pp.ID == "" {
				continue
			}
			tx.UpsertPart(pp)
		}
		th := tx.UpsertThread(models.ThreadPatch{ID: threadID})
		th.Page = page.Info
		return nil
	})
	logger.Debug("page merged", "thread", threadID, "messages", merged,
		"more", page.Info.More())
	return merged
}
