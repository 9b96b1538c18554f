package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"roomsync/pkg/logger"
	"roomsync/pkg/store"
)

// SweeperOptions configures the background sweep scheduler.
type SweeperOptions struct {
	// Cron schedule; empty means every minute.
	Cron string
	// Window overrides DefaultSweepWindow when positive.
	Window time.Duration
}

// StartSweeper runs sweeps on the cron schedule until the context is
// cancelled. Returns a cancel func for the scheduler goroutine.
func StartSweeper(ctx context.Context, st *store.Store, opts SweeperOptions) (context.CancelFunc, error) {
	cronExpr := opts.Cron
	if cronExpr == "" {
		cronExpr = "* * * * *"
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("sweep_invalid_cron", "cron", opts.Cron)
		return nil, fmt.Errorf("invalid sweep cron expression: %s", opts.Cron)
	}
	window := opts.Window
	if window <= 0 {
		window = DefaultSweepWindow
	}

	logger.Info("sweep_enabled", "cron", cronExpr, "window", window)
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, st, cronExpr, window)
	return cancel, nil
}

// runScheduler computes the next cron tick with gronx and sleeps until
// then, sweeping once per tick.
func runScheduler(ctx context.Context, st *store.Store, cronExpr string, window time.Duration) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("sweep_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("sweep_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		wait := time.Until(next)
		if wait <= 0 {
			runOnce(st, window)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(wait):
			runOnce(st, window)
		case <-ctx.Done():
			logger.Info("sweep_scheduler_stopping")
			return
		}
	}
}

func runOnce(st *store.Store, window time.Duration) {
	var removed int
	_ = st.Update(func(tx *store.Tx) error {
		removed = Sweep(tx, Now(), window)
		return nil
	})
	if removed > 0 {
		logger.Info("sweep_run", "removed", removed)
	}
}
