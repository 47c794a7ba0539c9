package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/flagforge/play-api/internal/buffer"
	"github.com/flagforge/play-api/internal/cache"
	"github.com/flagforge/play-api/internal/models"
	"github.com/flagforge/play-api/internal/repository"
)

type flushHarness struct {
	db      *gorm.DB
	buffers *buffer.Store
	worker  *FlushWorker
	recalc  *countingSignaler
}

func newFlushHarness(t *testing.T) *flushHarness {
	t.Helper()

	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)

	redisClient := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	db := openWorkerDB(t)
	buffers := buffer.NewStore()
	recalc := &countingSignaler{}

	w := NewFlushWorker(
		buffers,
		repository.NewSubmissionRepository(db),
		repository.NewSolveRepository(db),
		repository.NewHintRepository(db),
		repository.NewPointsActivityRepository(db),
		cache.New(redisClient, zerolog.Nop()),
		recalc,
		time.Second,
		zerolog.Nop(),
	)

	return &flushHarness{db: db, buffers: buffers, worker: w, recalc: recalc}
}

func TestFlushPersistsSubmissions(t *testing.T) {
	h := newFlushHarness(t)
	challengeID := uuid.New()

	h.buffers.AddSubmissions(
		models.Submission{ID: uuid.New(), ParticipantID: "p1", ChallengeID: challengeID, Value: "a", SubmittedAt: time.Now().UTC()},
		models.Submission{ID: uuid.New(), ParticipantID: "p1", ChallengeID: challengeID, Value: "b", SubmittedAt: time.Now().UTC()},
	)

	h.worker.Flush(context.Background())

	var count int64
	require.NoError(t, h.db.Model(&models.Submission{}).Count(&count).Error)
	require.Equal(t, int64(2), count)

	submissions, _, _ := h.buffers.Len()
	require.Zero(t, submissions)
}

func TestFlushSolvesAppendsLedgerOnce(t *testing.T) {
	h := newFlushHarness(t)
	solvedAt := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	challengeID := uuid.New()

	row := buffer.SolveRow{
		ID:            uuid.New(),
		ParticipantID: "p1",
		ChallengeID:   challengeID,
		ChallengeName: "Challenge",
		Points:        100,
		SolvedAt:      solvedAt,
	}

	h.buffers.AddSolves(row)
	h.worker.Flush(context.Background())

	// A replayed row, as after a requeue or an upstream redelivery.
	h.buffers.AddSolves(row)
	h.worker.Flush(context.Background())

	var solveCount int64
	require.NoError(t, h.db.Model(&models.Solve{}).Count(&solveCount).Error)
	require.Equal(t, int64(1), solveCount)

	var activities []models.PointsActivity
	require.NoError(t, h.db.Find(&activities).Error)
	require.Len(t, activities, 1)
	require.True(t, activities[0].IsSolve)
	require.Equal(t, 100, activities[0].Delta)
	require.Equal(t, "Challenge", activities[0].ChallengeName)
}

func TestFlushHintUsageDebitsOnce(t *testing.T) {
	h := newFlushHarness(t)
	usedAt := time.Now().UTC()

	require.NoError(t, h.db.Create(&models.Participant{ID: "p1", Name: "Participant", Points: 100}).Error)

	row := buffer.HintUsageRow{
		ParticipantID: "p1",
		HintID:        uuid.New(),
		ChallengeID:   uuid.New(),
		ChallengeName: "Challenge",
		Deduction:     30,
		UsedAt:        usedAt,
	}

	h.buffers.AddHintUsages(row)
	h.worker.Flush(context.Background())

	h.buffers.AddHintUsages(row)
	h.worker.Flush(context.Background())

	var participant models.Participant
	require.NoError(t, h.db.First(&participant, "id = ?", "p1").Error)
	require.Equal(t, 70, participant.Points)

	var activities []models.PointsActivity
	require.NoError(t, h.db.Find(&activities).Error)
	require.Len(t, activities, 1)
	require.False(t, activities[0].IsSolve)
	require.Equal(t, -30, activities[0].Delta)

	var usageCount int64
	require.NoError(t, h.db.Model(&models.HintUsage{}).Count(&usageCount).Error)
	require.Equal(t, int64(1), usageCount)
}

// flakyLedger fails a number of ledger appends before delegating.
type flakyLedger struct {
	repository.PointsActivityRepository
	failures int
}

func (f *flakyLedger) AppendWithSolves(ctx context.Context, solves []models.Solve, ledger []models.PointsActivity) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("transient database error")
	}
	return f.PointsActivityRepository.AppendWithSolves(ctx, solves, ledger)
}

func TestFlushSolvesRequeuedBatchKeepsLedgerComplete(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)

	redisClient := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	db := openWorkerDB(t)
	buffers := buffer.NewStore()
	recalc := &countingSignaler{}
	ledger := &flakyLedger{PointsActivityRepository: repository.NewPointsActivityRepository(db), failures: 1}

	w := NewFlushWorker(
		buffers,
		repository.NewSubmissionRepository(db),
		repository.NewSolveRepository(db),
		repository.NewHintRepository(db),
		ledger,
		cache.New(redisClient, zerolog.Nop()),
		recalc,
		time.Second,
		zerolog.Nop(),
	)

	buffers.AddSolves(buffer.SolveRow{
		ID:            uuid.New(),
		ParticipantID: "p1",
		ChallengeID:   uuid.New(),
		ChallengeName: "Challenge",
		Points:        100,
		SolvedAt:      time.Now().UTC(),
	})

	// First cycle fails and requeues; nothing may land without its ledger
	// entry.
	w.Flush(context.Background())

	var solveCount int64
	require.NoError(t, db.Model(&models.Solve{}).Count(&solveCount).Error)
	require.Zero(t, solveCount)

	_, solves, _ := buffers.Len()
	require.Equal(t, 1, solves)

	w.Flush(context.Background())

	require.NoError(t, db.Model(&models.Solve{}).Count(&solveCount).Error)
	require.Equal(t, int64(1), solveCount)

	var activities []models.PointsActivity
	require.NoError(t, db.Find(&activities).Error)
	require.Len(t, activities, 1)
	require.Equal(t, 100, activities[0].Delta)
}

func TestFlushSignalsRecalculationForSolves(t *testing.T) {
	h := newFlushHarness(t)

	h.buffers.AddSolves(buffer.SolveRow{
		ID:            uuid.New(),
		ParticipantID: "p1",
		ChallengeID:   uuid.New(),
		ChallengeName: "Challenge",
		Points:        100,
		SolvedAt:      time.Now().UTC(),
	})

	h.worker.Flush(context.Background())
	require.Equal(t, int64(1), h.recalc.signals.Load())

	// An empty cycle signals nothing.
	h.worker.Flush(context.Background())
	require.Equal(t, int64(1), h.recalc.signals.Load())
}
