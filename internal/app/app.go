package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/joho/godotenv"

	"roomsync/pkg/config"
	"roomsync/pkg/dataservice"
	"roomsync/pkg/ingest"
	"roomsync/pkg/journal"
	"roomsync/pkg/lifecycle"
	"roomsync/pkg/logger"
	"roomsync/pkg/models"
	"roomsync/pkg/selectors"
	"roomsync/pkg/state"
	"roomsync/pkg/store"
	"roomsync/pkg/timeline"
)

// App encapsulates the engine components and lifecycle.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	st   *store.Store
	sel  *selectors.Selectors
	q    *ingest.Queue
	proc *ingest.Processor
	jrnl *journal.Journal
	pag  *timeline.Paginator
	ds   *dataservice.Client

	srv         *http.Server
	sweepCancel context.CancelFunc
}

// New builds the engine: store, queue, processor, paginator, and the
// optional journal (replayed before anything else runs). It does not
// start the processor or the HTTP server; call Run for that.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	_ = godotenv.Load(".env")
	logger.InitWithLevel(eff.Config.Logging.Level)

	a := &App{eff: eff, version: version, commit: commit, buildDate: buildDate}
	a.st = store.New()
	a.sel = selectors.New(a.st)

	capacity := eff.Config.Ingest.Queue.Capacity
	if capacity <= 0 {
		capacity = 64 * 1024
	}
	a.q = ingest.NewQueue(capacity)

	if eff.Config.Storage.JournalEnabled && eff.JournalPath != "" {
		if err := state.EnsureStateDirs(eff.JournalPath); err != nil {
			return nil, fmt.Errorf("state dirs at %s: %w", eff.JournalPath, err)
		}
		j, err := journal.Open(state.PathsVar.Journal)
		if err != nil {
			return nil, err
		}
		a.jrnl = j
	}

	a.proc = ingest.NewProcessor(a.q, a.st, nil, a.jrnl)

	if a.jrnl != nil {
		replayed := 0
		if err := a.jrnl.Replay(func(ev models.Envelope) error {
			replayed++
			return a.proc.Apply(ev)
		}); err != nil {
			return nil, fmt.Errorf("journal replay: %w", err)
		}
		if replayed > 0 {
			logger.Info("journal replayed", "events", replayed)
		}
	}

	hist := eff.Config.History
	a.ds = dataservice.New(hist.BaseURL, hist.Timeout.Duration())
	a.pag = timeline.NewPaginator(a.st, a.ds, timeline.Options{
		PageSize:       hist.PageSize,
		ScrollThrottle: hist.ScrollThrottle.Duration(),
	})

	return a, nil
}

// Run starts the processor, the sweep scheduler, and the HTTP server,
// blocking until ctx is canceled or a fatal server error occurs.
func (a *App) Run(ctx context.Context) error {
	a.proc.Start()

	if a.eff.Config.Sweep.Enabled {
		cancel, err := lifecycle.StartSweeper(ctx, a.st, lifecycle.SweeperOptions{
			Cron:   a.eff.Config.Sweep.Cron,
			Window: a.eff.Config.Sweep.Window.Duration(),
		})
		if err != nil {
			return err
		}
		a.sweepCancel = cancel
	}

	a.printBanner()
	errCh := a.startHTTP(ctx)

	select {
	case <-ctx.Done():
		a.shutdown()
		return nil
	case err := <-errCh:
		a.shutdown()
		return err
	}
}

// shutdown stops intake first, drains the processor, then releases the
// journal.
func (a *App) shutdown() {
	if a.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), httpDrainTimeout)
		defer cancel()
		_ = a.srv.Shutdown(ctx)
	}
	if a.sweepCancel != nil {
		a.sweepCancel()
	}
	a.proc.Stop()
	a.q.CloseAndDrain()
	if a.jrnl != nil {
		if err := a.jrnl.Close(); err != nil {
			logger.Error("journal close failed", "err", err)
		}
	}
	logger.Info("shutdown complete")
}
