package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/flagforge/play-api/internal/cache"
	"github.com/flagforge/play-api/internal/models"
	"github.com/flagforge/play-api/internal/repository"
)

type recalcCounter struct {
	signals atomic.Int64
}

func (r *recalcCounter) Signal() {
	r.signals.Add(1)
}

func TestClearPlayDataRemovesEverything(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)

	redisClient := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	db := openTestDB(t)
	ctx := context.Background()

	cacheLayer := cache.New(redisClient, zerolog.Nop())
	recalc := &recalcCounter{}
	svc := NewPlayDataService(
		repository.NewParticipantRepository(db),
		repository.NewPlayDataRepository(db),
		cacheLayer,
		recalc,
		zerolog.Nop(),
	)

	challengeID := uuid.New()
	solvedAt := time.Now().UTC()
	require.NoError(t, db.Create(&models.Participant{ID: "p1", Name: "Alice", Points: 100, LatestSolve: solvedAt}).Error)
	require.NoError(t, db.Create(&models.Submission{ID: uuid.New(), ParticipantID: "p1", ChallengeID: challengeID, Value: "flag{x}", Correct: true, SubmittedAt: solvedAt}).Error)
	require.NoError(t, db.Create(&models.Solve{ID: uuid.New(), ParticipantID: "p1", ChallengeID: challengeID, SolvedAt: solvedAt}).Error)
	require.NoError(t, db.Create(&models.PointsActivity{ParticipantID: "p1", IsSolve: true, ChallengeID: challengeID, Delta: 100, OccurredAt: solvedAt}).Error)

	// Fast-path entries that would otherwise leak the cleared state.
	hintID := uuid.New()
	require.NoError(t, cacheLayer.SetJSON(ctx, cache.PairSolved("p1", challengeID), "1", time.Minute))
	require.NoError(t, cacheLayer.SetJSON(ctx, cache.HintUsed("p1", hintID), true, time.Hour))
	require.NoError(t, cacheLayer.SetJSON(ctx, cache.ParticipantStats("p1"), map[string]int{"points": 100}, time.Minute))

	require.NoError(t, svc.ClearPlayData(ctx, "p1"))

	for _, model := range []any{&models.Submission{}, &models.Solve{}, &models.PointsActivity{}} {
		var count int64
		require.NoError(t, db.Model(model).Where("participant_id = ?", "p1").Count(&count).Error)
		require.Zero(t, count)
	}

	var participant models.Participant
	require.NoError(t, db.First(&participant, "id = ?", "p1").Error)
	require.Zero(t, participant.Points)

	require.False(t, mini.Exists(cache.PairSolved("p1", challengeID)))
	require.False(t, mini.Exists(cache.HintUsed("p1", hintID)))
	require.False(t, mini.Exists(cache.ParticipantStats("p1")))
	require.Equal(t, int64(1), recalc.signals.Load())
}

func TestClearPlayDataUnknownParticipant(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)

	redisClient := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	db := openTestDB(t)

	svc := NewPlayDataService(
		repository.NewParticipantRepository(db),
		repository.NewPlayDataRepository(db),
		cache.New(redisClient, zerolog.Nop()),
		&recalcCounter{},
		zerolog.Nop(),
	)

	require.ErrorIs(t, svc.ClearPlayData(context.Background(), "ghost"), ErrParticipantNotFound)
}

func TestSetHiddenTogglesVisibility(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)

	redisClient := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	db := openTestDB(t)
	ctx := context.Background()

	recalc := &recalcCounter{}
	svc := NewPlayDataService(
		repository.NewParticipantRepository(db),
		repository.NewPlayDataRepository(db),
		cache.New(redisClient, zerolog.Nop()),
		recalc,
		zerolog.Nop(),
	)

	require.NoError(t, db.Create(&models.Participant{ID: "p1", Name: "Alice"}).Error)

	require.NoError(t, svc.SetHidden(ctx, "p1", true))

	var participant models.Participant
	require.NoError(t, db.First(&participant, "id = ?", "p1").Error)
	require.True(t, participant.Hidden)
	require.Equal(t, int64(1), recalc.signals.Load())

	require.ErrorIs(t, svc.SetHidden(ctx, "ghost", true), ErrParticipantNotFound)
}
