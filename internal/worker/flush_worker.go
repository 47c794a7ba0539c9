package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/flagforge/play-api/internal/buffer"
	"github.com/flagforge/play-api/internal/cache"
	"github.com/flagforge/play-api/internal/models"
	"github.com/flagforge/play-api/internal/observability"
	"github.com/flagforge/play-api/internal/repository"
	"github.com/flagforge/play-api/internal/service"
)

// FlushWorker periodically copies the in-memory write buffer to the durable
// store. Every insert path tolerates rows that already landed in an earlier
// cycle, so a retried batch cannot score twice; hint deductions are applied
// only for usages that were actually new.
type FlushWorker struct {
	buffers     *buffer.Store
	submissions repository.SubmissionRepository
	solves      repository.SolveRepository
	hints       repository.HintRepository
	activities  repository.PointsActivityRepository
	cache       *cache.Cache
	recalc      service.RecalcSignaler
	interval    time.Duration
	logger      zerolog.Logger
}

// NewFlushWorker builds the buffer flush worker.
func NewFlushWorker(
	buffers *buffer.Store,
	submissions repository.SubmissionRepository,
	solves repository.SolveRepository,
	hints repository.HintRepository,
	activities repository.PointsActivityRepository,
	cacheLayer *cache.Cache,
	recalc service.RecalcSignaler,
	interval time.Duration,
	logger zerolog.Logger,
) *FlushWorker {
	return &FlushWorker{
		buffers:     buffers,
		submissions: submissions,
		solves:      solves,
		hints:       hints,
		activities:  activities,
		cache:       cacheLayer,
		recalc:      recalc,
		interval:    interval,
		logger:      logger.With().Str("component", "flush_worker").Logger(),
	}
}

// Run flushes on the configured interval until ctx is cancelled, finishing
// with one last flush so a clean shutdown leaves the buffer empty.
func (w *FlushWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info().Dur("interval", w.interval).Msg("flush worker started")

	for {
		select {
		case <-ctx.Done():
			w.Flush(context.Background())
			w.logger.Info().Msg("flush worker stopped")
			return
		case <-ticker.C:
			w.Flush(ctx)
		}
	}
}

// Flush runs one full cycle over all three buffered tables. Failed tables are
// requeued whole and picked up by the next cycle.
func (w *FlushWorker) Flush(ctx context.Context) {
	started := time.Now()

	w.flushSubmissions(ctx)
	w.flushSolves(ctx)
	w.flushHintUsages(ctx)

	submissions, solves, hintUsages := w.buffers.Len()
	observability.BufferedRows().WithLabelValues("submissions").Set(float64(submissions))
	observability.BufferedRows().WithLabelValues("solves").Set(float64(solves))
	observability.BufferedRows().WithLabelValues("hint_usages").Set(float64(hintUsages))
	observability.FlushDuration().Observe(time.Since(started).Seconds())
}

func (w *FlushWorker) flushSubmissions(ctx context.Context) {
	rows := w.buffers.DrainSubmissions()
	if len(rows) == 0 {
		return
	}

	if err := w.submissions.BulkInsert(ctx, rows); err != nil {
		w.logger.Error().Err(err).Int("rows", len(rows)).Msg("failed to flush submissions, requeueing")
		w.buffers.RequeueSubmissions(rows)
		return
	}

	observability.FlushRows().WithLabelValues("submissions").Add(float64(len(rows)))
}

// flushSolves persists the buffered solves and appends one positive ledger
// entry per solve that was not already durable, in one transaction so the
// two can never land apart. The conflict-ignoring insert is the backstop;
// the pre-check keeps the ledger free of duplicate deltas.
func (w *FlushWorker) flushSolves(ctx context.Context) {
	rows := w.buffers.DrainSolves()
	if len(rows) == 0 {
		return
	}

	requeue := func(err error) {
		w.logger.Error().Err(err).Int("rows", len(rows)).Msg("failed to flush solves, requeueing")
		w.buffers.RequeueSolves(rows)
	}

	pairs := make([]repository.Pair, 0, len(rows))
	for _, row := range rows {
		pairs = append(pairs, repository.Pair{ParticipantID: row.ParticipantID, ChallengeID: row.ChallengeID})
	}
	durable, err := w.solves.ExistingPairs(ctx, pairs)
	if err != nil {
		requeue(err)
		return
	}

	solves := make([]models.Solve, 0, len(rows))
	ledger := make([]models.PointsActivity, 0, len(rows))
	touched := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		touched[row.ParticipantID] = struct{}{}
		if _, ok := durable[repository.Pair{ParticipantID: row.ParticipantID, ChallengeID: row.ChallengeID}]; ok {
			continue
		}

		solves = append(solves, models.Solve{
			ID:            row.ID,
			ParticipantID: row.ParticipantID,
			ChallengeID:   row.ChallengeID,
			SolvedAt:      row.SolvedAt,
		})
		ledger = append(ledger, models.PointsActivity{
			ParticipantID: row.ParticipantID,
			IsSolve:       true,
			ChallengeID:   row.ChallengeID,
			ChallengeName: row.ChallengeName,
			Delta:         row.Points,
			OccurredAt:    row.SolvedAt,
		})
	}

	if err := w.activities.AppendWithSolves(ctx, solves, ledger); err != nil {
		requeue(err)
		return
	}

	w.invalidateStats(ctx, touched)
	observability.FlushRows().WithLabelValues("solves").Add(float64(len(solves)))
	w.recalc.Signal()
}

// flushHintUsages persists buffered hint usages and, for the rows that were
// new, the point debit and the negative ledger entry, all in one transaction
// so a partial failure requeues cleanly.
func (w *FlushWorker) flushHintUsages(ctx context.Context) {
	rows := w.buffers.DrainHintUsages()
	if len(rows) == 0 {
		return
	}

	requeue := func(err error) {
		w.logger.Error().Err(err).Int("rows", len(rows)).Msg("failed to flush hint usages, requeueing")
		w.buffers.RequeueHintUsages(rows)
	}

	usages := make([]models.HintUsage, 0, len(rows))
	for _, row := range rows {
		usages = append(usages, models.HintUsage{
			ParticipantID: row.ParticipantID,
			HintID:        row.HintID,
			ChallengeID:   row.ChallengeID,
			Deduction:     row.Deduction,
			UsedAt:        row.UsedAt,
		})
	}

	existing, err := w.hints.ExistingUsages(ctx, usages)
	if err != nil {
		requeue(err)
		return
	}

	ledger := make([]models.PointsActivity, 0, len(rows))
	debits := make(map[string]int, len(rows))
	touched := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		touched[row.ParticipantID] = struct{}{}
		if _, ok := existing[row.ParticipantID+"/"+row.HintID.String()]; ok {
			continue
		}

		debits[row.ParticipantID] += row.Deduction
		ledger = append(ledger, models.PointsActivity{
			ParticipantID: row.ParticipantID,
			IsSolve:       false,
			ChallengeID:   row.ChallengeID,
			HintID:        row.HintID,
			ChallengeName: row.ChallengeName,
			Delta:         -row.Deduction,
			OccurredAt:    row.UsedAt,
		})
	}

	if err := w.activities.AppendWithHintUsages(ctx, usages, ledger, debits); err != nil {
		requeue(err)
		return
	}

	w.invalidateStats(ctx, touched)
	observability.FlushRows().WithLabelValues("hint_usages").Add(float64(len(usages)))
	if len(ledger) > 0 {
		w.recalc.Signal()
	}
}

func (w *FlushWorker) invalidateStats(ctx context.Context, participantIDs map[string]struct{}) {
	for id := range participantIDs {
		if err := w.cache.Delete(ctx, cache.ParticipantStats(id)); err != nil {
			w.logger.Warn().Err(err).Str("participant_id", id).Msg("failed to invalidate stats cache")
		}
	}
}
