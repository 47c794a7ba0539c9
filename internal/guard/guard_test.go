package guard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestAcquireSerializesSameKey(t *testing.T) {
	registry := NewRegistry()
	key := Key{ParticipantID: "p1", ChallengeID: uuid.New()}

	var mu sync.Mutex
	inSection := 0
	maxInSection := 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			release, err := registry.Acquire(context.Background(), key, 5*time.Second)
			require.NoError(t, err)
			defer release()

			mu.Lock()
			inSection++
			if inSection > maxInSection {
				maxInSection = inSection
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inSection--
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Equal(t, 1, maxInSection)
	require.Equal(t, 0, registry.Len())
}

func TestAcquireDifferentKeysDoNotBlock(t *testing.T) {
	registry := NewRegistry()
	keyA := Key{ParticipantID: "p1", ChallengeID: uuid.New()}
	keyB := Key{ParticipantID: "p2", ChallengeID: uuid.New()}

	releaseA, err := registry.Acquire(context.Background(), keyA, 10*time.Millisecond)
	require.NoError(t, err)
	defer releaseA()

	releaseB, err := registry.Acquire(context.Background(), keyB, 10*time.Millisecond)
	require.NoError(t, err)
	releaseB()
}

func TestAcquireBusyAfterWaitBudget(t *testing.T) {
	registry := NewRegistry()
	key := Key{ParticipantID: "p1", ChallengeID: uuid.New()}

	release, err := registry.Acquire(context.Background(), key, time.Second)
	require.NoError(t, err)

	_, err = registry.Acquire(context.Background(), key, 20*time.Millisecond)
	require.ErrorIs(t, err, ErrBusy)

	release()

	release, err = registry.Acquire(context.Background(), key, 20*time.Millisecond)
	require.NoError(t, err)
	release()
}

func TestAcquireHonoursContextCancellation(t *testing.T) {
	registry := NewRegistry()
	key := Key{ParticipantID: "p1", ChallengeID: uuid.New()}

	release, err := registry.Acquire(context.Background(), key, time.Second)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err = registry.Acquire(ctx, key, 5*time.Second)
	require.ErrorIs(t, err, context.Canceled)
}

func TestReleaseIsIdempotent(t *testing.T) {
	registry := NewRegistry()
	key := Key{ParticipantID: "p1", ChallengeID: uuid.New()}

	release, err := registry.Acquire(context.Background(), key, time.Second)
	require.NoError(t, err)

	release()
	release()

	again, err := registry.Acquire(context.Background(), key, 20*time.Millisecond)
	require.NoError(t, err)
	again()

	require.Equal(t, 0, registry.Len())
}

func TestEntriesEvictedWhenIdle(t *testing.T) {
	registry := NewRegistry()

	for i := 0; i < 100; i++ {
		key := Key{ParticipantID: "p1", ChallengeID: uuid.New()}
		release, err := registry.Acquire(context.Background(), key, time.Second)
		require.NoError(t, err)
		release()
	}

	require.Equal(t, 0, registry.Len())
}
