// Package guard provides per-key exclusive sections for the submission path.
// Evaluation-then-mutate for one (participant, challenge) pair is not atomic
// against the backing stores, so two near-simultaneous submissions for the
// same pair must be serialized. Unrelated pairs never block each other.
//
// The registry is process-local. When the ingestion path is scaled
// horizontally, the unique index on solves(participant_id, challenge_id) is
// the correctness backstop; the guard is a latency and contention
// optimization.
package guard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrBusy is returned when the exclusive section could not be entered within
// the wait budget. Callers surface it as a retryable "try again" signal.
var ErrBusy = errors.New("another process is running for this key")

// Key identifies one exclusive section.
type Key struct {
	ParticipantID string
	ChallengeID   uuid.UUID
}

type entry struct {
	sem  chan struct{}
	refs int
}

// Registry owns the map from key to exclusive-section primitive. Entries are
// evicted as soon as nothing holds or waits on them, bounding memory to the
// number of concurrently active pairs.
type Registry struct {
	mu      sync.Mutex
	entries map[Key]*entry
}

// NewRegistry builds an empty guard registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[Key]*entry)}
}

// Acquire blocks until the section for key is free, the wait budget elapses,
// or ctx is cancelled. On success it returns a release function that must be
// called on every exit path; releasing more than once is a no-op.
func (r *Registry) Acquire(ctx context.Context, key Key, wait time.Duration) (func(), error) {
	e := r.checkIn(key)

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-e.sem:
		var once sync.Once
		release := func() {
			once.Do(func() {
				e.sem <- struct{}{}
				r.checkOut(key, e)
			})
		}
		return release, nil
	case <-timer.C:
		r.checkOut(key, e)
		return nil, ErrBusy
	case <-ctx.Done():
		r.checkOut(key, e)
		return nil, ctx.Err()
	}
}

// Len reports the number of live entries. Used by tests and metrics.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.entries)
}

func (r *Registry) checkIn(key Key) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		e.sem <- struct{}{}
		r.entries[key] = e
	}
	e.refs++

	return e
}

func (r *Registry) checkOut(key Key, e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(r.entries, key)
	}
}
