package worker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/flagforge/play-api/internal/buffer"
	"github.com/flagforge/play-api/internal/events"
	"github.com/flagforge/play-api/internal/models"
	"github.com/flagforge/play-api/internal/observability"
	"github.com/flagforge/play-api/internal/repository"
	"github.com/flagforge/play-api/internal/service"
)

// IngestWorker runs the two asynchronous batch consumers behind the
// submission path. The submitted stream only appends audit rows to the write
// buffer; the solved stream is the single writer of the scoring aggregates,
// so per-batch deduplication here is what keeps redelivered events from
// scoring twice.
type IngestWorker struct {
	stream    events.Stream
	buffers   *buffer.Store
	solves    repository.SolveRepository
	scores    repository.ScoreRepository
	recalc    service.RecalcSignaler
	batchSize int
	batchWait time.Duration
	logger    zerolog.Logger
}

// NewIngestWorker builds the ingestion consumers.
func NewIngestWorker(
	stream events.Stream,
	buffers *buffer.Store,
	solves repository.SolveRepository,
	scores repository.ScoreRepository,
	recalc service.RecalcSignaler,
	batchSize int,
	batchWait time.Duration,
	logger zerolog.Logger,
) *IngestWorker {
	return &IngestWorker{
		stream:    stream,
		buffers:   buffers,
		solves:    solves,
		scores:    scores,
		recalc:    recalc,
		batchSize: batchSize,
		batchWait: batchWait,
		logger:    logger.With().Str("component", "ingest_worker").Logger(),
	}
}

// Run subscribes to both streams and consumes them until ctx is cancelled.
func (w *IngestWorker) Run(ctx context.Context) error {
	submittedIn, cancelSubmitted, err := subscribeTyped(ctx, w.stream, events.SubjectSubmitted, decodeEvent[events.SubmittedEvent], w.logger)
	if err != nil {
		return err
	}
	defer cancelSubmitted()

	solvedIn, cancelSolved, err := subscribeTyped(ctx, w.stream, events.SubjectSolved, decodeEvent[events.SolvedEvent], w.logger)
	if err != nil {
		return err
	}
	defer cancelSolved()

	w.logger.Info().
		Int("batch_size", w.batchSize).
		Dur("batch_wait", w.batchWait).
		Msg("ingest worker started")

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		batcher := events.NewBatcher(w.batchSize, w.batchWait, w.applySubmittedBatch, w.logger.With().Str("stream", "submitted").Logger())
		batcher.Run(ctx, submittedIn)
	}()

	go func() {
		defer wg.Done()
		batcher := events.NewBatcher(w.batchSize, w.batchWait, w.applySolvedBatch, w.logger.With().Str("stream", "solved").Logger())
		batcher.Run(ctx, solvedIn)
	}()

	wg.Wait()
	w.logger.Info().Msg("ingest worker stopped")

	return nil
}

// subscribeTyped opens a raw subscription and bridges it to a typed channel,
// dropping payloads that do not decode.
func subscribeTyped[T any](ctx context.Context, stream events.Stream, subject string, decode func([]byte) (T, error), logger zerolog.Logger) (<-chan T, func(), error) {
	raw, cancel, err := stream.Subscribe(subject)
	if err != nil {
		return nil, nil, err
	}

	out := make(chan T, 4096)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case payload, ok := <-raw:
				if !ok {
					return
				}
				event, err := decode(payload)
				if err != nil {
					logger.Error().Err(err).Str("subject", subject).Msg("discarding undecodable event")
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, cancel, nil
}

func decodeEvent[T any](payload []byte) (T, error) {
	var event T
	err := json.Unmarshal(payload, &event)
	return event, err
}

// applySubmittedBatch appends one audit row per attempt to the write buffer.
func (w *IngestWorker) applySubmittedBatch(_ context.Context, batch []events.SubmittedEvent) error {
	rows := make([]models.Submission, 0, len(batch))
	for _, event := range batch {
		rows = append(rows, models.Submission{
			ID:            uuid.New(),
			ParticipantID: event.ParticipantID,
			ChallengeID:   event.ChallengeID,
			Value:         event.Value,
			Correct:       event.Correct,
			SubmittedAt:   event.SubmittedAt,
		})
	}

	w.buffers.AddSubmissions(rows...)
	observability.IngestBatchSize().WithLabelValues("submitted").Observe(float64(len(batch)))

	return nil
}

// applySolvedBatch collapses the batch to one solve per pair, skips pairs
// already scored durably or sitting in the buffer, then applies the aggregate
// increments for the surviving solves.
func (w *IngestWorker) applySolvedBatch(ctx context.Context, batch []events.SolvedEvent) error {
	observability.IngestBatchSize().WithLabelValues("solved").Observe(float64(len(batch)))

	// Keep the earliest event per pair; later duplicates in the same batch
	// are redeliveries.
	firstByPair := make(map[repository.Pair]events.SolvedEvent, len(batch))
	order := make([]repository.Pair, 0, len(batch))
	for _, event := range batch {
		pair := repository.Pair{ParticipantID: event.ParticipantID, ChallengeID: event.ChallengeID}
		existing, seen := firstByPair[pair]
		if !seen {
			firstByPair[pair] = event
			order = append(order, pair)
			continue
		}
		if event.SolvedAt.Before(existing.SolvedAt) {
			firstByPair[pair] = event
		}
	}

	durable, err := w.solves.ExistingPairs(ctx, order)
	if err != nil {
		return err
	}

	var (
		fresh  []buffer.SolveRow
		scored []repository.ScoredSolve
	)
	for _, pair := range order {
		if _, ok := durable[pair]; ok {
			continue
		}
		if w.buffers.HasSolve(pair.ParticipantID, pair.ChallengeID) {
			continue
		}

		event := firstByPair[pair]
		fresh = append(fresh, buffer.SolveRow{
			ID:            uuid.New(),
			ParticipantID: event.ParticipantID,
			ChallengeID:   event.ChallengeID,
			ChallengeName: event.ChallengeName,
			Points:        event.Points,
			SolvedAt:      event.SolvedAt,
		})
		scored = append(scored, repository.ScoredSolve{
			ParticipantID: event.ParticipantID,
			ChallengeID:   event.ChallengeID,
			Points:        event.Points,
			SolvedAt:      event.SolvedAt,
		})
	}

	if len(fresh) == 0 {
		return nil
	}

	// Aggregates land in one transaction before anything is buffered. A
	// failed batch leaves no trace, so the retry reapplies it whole instead
	// of being skipped by the buffered-pair check.
	if err := w.scores.ApplySolvedAggregates(ctx, scored); err != nil {
		return err
	}

	w.buffers.AddSolves(fresh...)
	w.recalc.Signal()
	w.logger.Debug().
		Int("events", len(batch)).
		Int("fresh_solves", len(fresh)).
		Msg("solved batch applied")

	return nil
}
