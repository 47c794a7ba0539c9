package events

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// FlushFunc applies one accumulated batch. A non-nil error means the whole
// batch is retried as a unit; implementations must tolerate reprocessing.
type FlushFunc[T any] func(ctx context.Context, batch []T) error

// Batcher accumulates events into a batch bounded by a maximum count or a
// maximum wait since the first buffered event, whichever is reached first.
// Run flushes inline on its own goroutine, so exactly one batch is ever in
// flight per stream and per-batch aggregate updates stay race-free.
type Batcher[T any] struct {
	maxSize    int
	maxWait    time.Duration
	retryDelay time.Duration
	flush      FlushFunc[T]
	logger     zerolog.Logger
}

// NewBatcher builds a batch accumulator for one event stream.
func NewBatcher[T any](maxSize int, maxWait time.Duration, flush FlushFunc[T], logger zerolog.Logger) *Batcher[T] {
	if maxSize <= 0 {
		maxSize = 1
	}

	return &Batcher[T]{
		maxSize:    maxSize,
		maxWait:    maxWait,
		retryDelay: time.Second,
		flush:      flush,
		logger:     logger,
	}
}

// Run consumes events from in until ctx is cancelled or in is closed. Any
// partially accumulated batch is flushed on shutdown.
func (b *Batcher[T]) Run(ctx context.Context, in <-chan T) {
	var pending []T
	var deadline <-chan time.Time
	var timer *time.Timer

	stopTimer := func() {
		if timer != nil {
			timer.Stop()
			timer = nil
		}
		deadline = nil
	}
	defer stopTimer()

	apply := func() {
		if len(pending) == 0 {
			stopTimer()
			return
		}
		b.applyBatch(ctx, pending)
		pending = nil
		stopTimer()
	}

	for {
		select {
		case <-ctx.Done():
			apply()
			return
		case item, ok := <-in:
			if !ok {
				apply()
				return
			}
			pending = append(pending, item)
			if len(pending) == 1 {
				timer = time.NewTimer(b.maxWait)
				deadline = timer.C
			}
			if len(pending) >= b.maxSize {
				apply()
			}
		case <-deadline:
			apply()
		}
	}
}

// applyBatch retries the whole batch until it succeeds or ctx ends. Events
// are never dropped on a consumer fault.
func (b *Batcher[T]) applyBatch(ctx context.Context, batch []T) {
	for {
		err := b.flush(ctx, batch)
		if err == nil {
			return
		}

		b.logger.Error().Err(err).Int("batch_size", len(batch)).Msg("batch flush failed, retrying")

		select {
		case <-ctx.Done():
			b.logger.Warn().Int("batch_size", len(batch)).Msg("abandoning batch on shutdown")
			return
		case <-time.After(b.retryDelay):
		}
	}
}
