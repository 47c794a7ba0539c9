package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/flagforge/play-api/internal/service"
)

// LeaderboardWorker serializes full leaderboard recomputations behind a
// coalescing signal channel. Any number of Signal calls while a
// recomputation is running collapse into a single follow-up run, and a
// floor ticker guarantees one recomputation per interval even without
// signals.
type LeaderboardWorker struct {
	leaderboard service.LeaderboardService
	signals     chan struct{}
	floor       time.Duration
	logger      zerolog.Logger
}

// NewLeaderboardWorker builds the recalculation worker. floor is the maximum
// time between recomputations while the worker runs.
func NewLeaderboardWorker(leaderboard service.LeaderboardService, floor time.Duration, logger zerolog.Logger) *LeaderboardWorker {
	return &LeaderboardWorker{
		leaderboard: leaderboard,
		signals:     make(chan struct{}, 1),
		floor:       floor,
		logger:      logger.With().Str("component", "leaderboard_worker").Logger(),
	}
}

// Signal requests a recomputation. It never blocks; a request is dropped when
// one is already pending, which is safe because the pending run will pick up
// the same state.
func (w *LeaderboardWorker) Signal() {
	select {
	case w.signals <- struct{}{}:
	default:
	}
}

// Run consumes signals until the context is cancelled.
func (w *LeaderboardWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.floor)
	defer ticker.Stop()

	w.logger.Info().Dur("floor", w.floor).Msg("leaderboard worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("leaderboard worker stopped")
			return
		case <-ticker.C:
			w.Signal()
		case <-w.signals:
			if err := w.leaderboard.Recalculate(ctx); err != nil && ctx.Err() == nil {
				w.logger.Error().Err(err).Msg("leaderboard recalculation failed")
			}
		}
	}
}
