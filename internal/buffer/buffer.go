// Package buffer holds newly-created rows in process memory until the flush
// worker copies them to the durable store in bulk. Rows buffered here survive
// only as long as the process; a crash before the next flush loses them. That
// trade-off is accepted and bounded by keeping the flush interval short —
// aggregate counters remain recomputable from the points ledger.
package buffer

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flagforge/play-api/internal/models"
)

// SolveRow mirrors a Solve plus the challenge name and point value the flush
// worker needs to append the matching ledger entry.
type SolveRow struct {
	ID            uuid.UUID
	ParticipantID string
	ChallengeID   uuid.UUID
	ChallengeName string
	Points        int
	SolvedAt      time.Time
}

// HintUsageRow mirrors a HintUsage plus the challenge name for the ledger.
type HintUsageRow struct {
	ParticipantID string
	HintID        uuid.UUID
	ChallengeID   uuid.UUID
	ChallengeName string
	Deduction     int
	UsedAt        time.Time
}

// Store is the ephemeral write buffer. All methods are safe for concurrent
// use; each drain atomically takes everything currently buffered for one
// table.
type Store struct {
	mu          sync.Mutex
	submissions []models.Submission
	solves      []SolveRow
	hintUsages  []HintUsageRow
}

// NewStore builds an empty buffer store.
func NewStore() *Store {
	return &Store{}
}

// AddSubmissions buffers submission audit rows.
func (s *Store) AddSubmissions(rows ...models.Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.submissions = append(s.submissions, rows...)
}

// AddSolves buffers solve rows.
func (s *Store) AddSolves(rows ...SolveRow) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.solves = append(s.solves, rows...)
}

// AddHintUsages buffers hint usage rows.
func (s *Store) AddHintUsages(rows ...HintUsageRow) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hintUsages = append(s.hintUsages, rows...)
}

// DrainSubmissions removes and returns every buffered submission.
func (s *Store) DrainSubmissions() []models.Submission {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.submissions
	s.submissions = nil

	return rows
}

// DrainSolves removes and returns every buffered solve.
func (s *Store) DrainSolves() []SolveRow {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.solves
	s.solves = nil

	return rows
}

// DrainHintUsages removes and returns every buffered hint usage.
func (s *Store) DrainHintUsages() []HintUsageRow {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.hintUsages
	s.hintUsages = nil

	return rows
}

// RequeueSubmissions puts drained rows back after a failed flush so the batch
// is retried as a unit.
func (s *Store) RequeueSubmissions(rows []models.Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.submissions = append(rows, s.submissions...)
}

// RequeueSolves puts drained solve rows back after a failed flush.
func (s *Store) RequeueSolves(rows []SolveRow) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.solves = append(rows, s.solves...)
}

// RequeueHintUsages puts drained hint usage rows back after a failed flush.
func (s *Store) RequeueHintUsages(rows []HintUsageRow) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hintUsages = append(rows, s.hintUsages...)
}

// HasSolve reports whether a solve for the pair is sitting in the buffer,
// i.e. created but not yet flushed to the durable store.
func (s *Store) HasSolve(participantID string, challengeID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range s.solves {
		if row.ParticipantID == participantID && row.ChallengeID == challengeID {
			return true
		}
	}

	return false
}

// Len reports how many rows are buffered per table.
func (s *Store) Len() (submissions, solves, hintUsages int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.submissions), len(s.solves), len(s.hintUsages)
}
