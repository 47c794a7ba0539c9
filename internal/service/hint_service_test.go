package service

import (
	"context"
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
	"github.com/flagforge/play-api/internal/guard"
	"github.com/flagforge/play-api/internal/models"
	"github.com/flagforge/play-api/internal/repository"
)

type hintHarness struct {
	db      *gorm.DB
	service HintService
	config  PlayConfigService
	buffers *buffer.Store
	cache   *cache.Cache
}

func newHintHarness(t *testing.T) *hintHarness {
	t.Helper()

	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)

	redisClient := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	db := openTestDB(t)

	cacheLayer := cache.New(redisClient, zerolog.Nop())
	pairState := cache.NewPairStateStore(redisClient, 2*time.Minute, 30*time.Second, zerolog.Nop())
	buffers := buffer.NewStore()
	configService := NewPlayConfigService(repository.NewConfigurationRepository(db), cacheLayer, time.Minute, zerolog.Nop())

	svc := NewHintService(
		repository.NewHintRepository(db),
		repository.NewSolveRepository(db),
		configService,
		buffers,
		guard.NewRegistry(),
		cacheLayer,
		pairState,
		5*time.Second,
		zerolog.Nop(),
	)

	return &hintHarness{db: db, service: svc, config: configService, buffers: buffers, cache: cacheLayer}
}

func (h *hintHarness) seedHint(t *testing.T, deduction int) models.Hint {
	t.Helper()

	challenge := models.Challenge{
		ID:     uuid.New(),
		Name:   "Challenge",
		Points: 100,
		Flags:  models.EncodeFlags([]string{"flag{x}"}),
	}
	require.NoError(t, h.db.Create(&challenge).Error)

	hint := models.Hint{
		ID:          uuid.New(),
		ChallengeID: challenge.ID,
		Content:     "look closer",
		Deduction:   deduction,
	}
	require.NoError(t, h.db.Create(&hint).Error)

	return hint
}

func TestUseHintChargesOnce(t *testing.T) {
	h := newHintHarness(t)
	ctx := context.Background()
	hint := h.seedHint(t, 15)

	first, err := h.service.UseHint(ctx, "p1", hint.ID)
	require.NoError(t, err)
	require.Equal(t, "look closer", first.Content)
	require.Equal(t, 15, first.Deduction)

	// Repeat reveals return the content without buffering another charge.
	second, err := h.service.UseHint(ctx, "p1", hint.ID)
	require.NoError(t, err)
	require.Equal(t, first, second)

	_, _, hintUsages := h.buffers.Len()
	require.Equal(t, 1, hintUsages)
}

func TestUseHintFreeRepeatAfterDurableUsage(t *testing.T) {
	h := newHintHarness(t)
	ctx := context.Background()
	hint := h.seedHint(t, 15)

	// A usage row already flushed to the durable store.
	require.NoError(t, h.db.Create(&models.HintUsage{
		ParticipantID: "p1",
		HintID:        hint.ID,
		ChallengeID:   hint.ChallengeID,
		Deduction:     hint.Deduction,
		UsedAt:        time.Now().UTC(),
	}).Error)

	response, err := h.service.UseHint(ctx, "p1", hint.ID)
	require.NoError(t, err)
	require.Equal(t, "look closer", response.Content)

	_, _, hintUsages := h.buffers.Len()
	require.Zero(t, hintUsages)
}

func TestUseHintChargedAgainAfterPlayDataClear(t *testing.T) {
	h := newHintHarness(t)
	ctx := context.Background()
	hint := h.seedHint(t, 15)

	require.NoError(t, h.db.Create(&models.Participant{ID: "p1", Name: "Alice"}).Error)

	_, err := h.service.UseHint(ctx, "p1", hint.ID)
	require.NoError(t, err)
	_, _, hintUsages := h.buffers.Len()
	require.Equal(t, 1, hintUsages)

	// The flush lands the usage, then an admin wipes the play data.
	h.buffers.DrainHintUsages()
	playData := NewPlayDataService(
		repository.NewParticipantRepository(h.db),
		repository.NewPlayDataRepository(h.db),
		h.cache,
		&recalcCounter{},
		zerolog.Nop(),
	)
	require.NoError(t, playData.ClearPlayData(ctx, "p1"))

	// The used flag went with the play data, so the reveal charges again.
	_, err = h.service.UseHint(ctx, "p1", hint.ID)
	require.NoError(t, err)
	_, _, hintUsages = h.buffers.Len()
	require.Equal(t, 1, hintUsages)
}

func TestUseHintRejectedAfterSolve(t *testing.T) {
	h := newHintHarness(t)
	ctx := context.Background()
	hint := h.seedHint(t, 15)

	require.NoError(t, h.db.Create(&models.Solve{
		ID:            uuid.New(),
		ParticipantID: "p1",
		ChallengeID:   hint.ChallengeID,
		SolvedAt:      time.Now().UTC(),
	}).Error)

	_, err := h.service.UseHint(ctx, "p1", hint.ID)
	require.ErrorIs(t, err, ErrChallengeSolvedByUser)
}

func TestUseHintRejectedForBufferedSolve(t *testing.T) {
	h := newHintHarness(t)
	ctx := context.Background()
	hint := h.seedHint(t, 15)

	// Solve created but not yet flushed.
	h.buffers.AddSolves(buffer.SolveRow{
		ID:            uuid.New(),
		ParticipantID: "p1",
		ChallengeID:   hint.ChallengeID,
		SolvedAt:      time.Now().UTC(),
	})

	_, err := h.service.UseHint(ctx, "p1", hint.ID)
	require.ErrorIs(t, err, ErrChallengeSolvedByUser)
}

func TestUseHintUnknownHint(t *testing.T) {
	h := newHintHarness(t)
	_, err := h.service.UseHint(context.Background(), "p1", uuid.New())
	require.ErrorIs(t, err, ErrHintNotFound)
}

func TestUseHintBlockedWhileSubmissionsDisabled(t *testing.T) {
	h := newHintHarness(t)
	ctx := context.Background()
	hint := h.seedHint(t, 15)

	require.NoError(t, h.config.SetSubmissionsAllowed(ctx, false))

	_, err := h.service.UseHint(ctx, "p1", hint.ID)
	require.ErrorIs(t, err, ErrHintsNotAllowed)
}
