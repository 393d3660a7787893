package workers

import (
	"context"
	"time"

	"habit-league-system/services"
	"habit-league-system/store"

	"go.uber.org/zap"
)

// ReplayWorker sweeps queues that clients never came back to drain
// themselves. A client normally replays its own queue on reconnect; the
// worker picks up queues whose oldest entry has been sitting longer than
// MinAge.
type ReplayWorker struct {
	Store    store.Store
	Replay   *services.ReplayService
	Log      *zap.Logger
	Interval time.Duration
	MinAge   time.Duration
}

func NewReplayWorker(st store.Store, replay *services.ReplayService, log *zap.Logger, interval, minAge time.Duration) *ReplayWorker {
	return &ReplayWorker{
		Store:    st,
		Replay:   replay,
		Log:      log,
		Interval: interval,
		MinAge:   minAge,
	}
}

// Run polls until ctx is cancelled.
func (w *ReplayWorker) Run(ctx context.Context) {
	w.Log.Info("replay worker started",
		zap.Duration("interval", w.Interval),
		zap.Duration("min_age", w.MinAge))

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Log.Info("replay worker stopped")
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *ReplayWorker) sweep() {
	cutoff := time.Now().UTC().Add(-w.MinAge)
	userIDs, err := w.Store.UsersWithPendingActions(cutoff)
	if err != nil {
		w.Log.Error("replay sweep query failed", zap.Error(err))
		return
	}
	if len(userIDs) == 0 {
		return
	}

	w.Log.Info("replay sweep found stale queues", zap.Int("users", len(userIDs)))

	for _, userID := range userIDs {
		report, err := w.Replay.ProcessQueuedActions(userID)
		if err != nil {
			// Transient failure: the remaining entries stay queued and the
			// next sweep retries from where this one stopped.
			w.Log.Warn("replay sweep aborted for user",
				zap.String("user_id", userID), zap.Error(err))
			continue
		}
		if report.Attempted > 0 {
			w.Log.Info("replay sweep drained queue",
				zap.String("user_id", userID),
				zap.Int("attempted", report.Attempted),
				zap.Int("succeeded", report.Succeeded),
				zap.Int("dropped", report.Dropped))
		}
	}
}
