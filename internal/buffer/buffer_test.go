package buffer

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/flagforge/play-api/internal/models"
)

func TestDrainTakesEverythingAtomically(t *testing.T) {
	store := NewStore()

	store.AddSubmissions(models.Submission{ID: uuid.New()}, models.Submission{ID: uuid.New()})
	store.AddSolves(SolveRow{ID: uuid.New(), ParticipantID: "p1"})

	submissions := store.DrainSubmissions()
	require.Len(t, submissions, 2)
	require.Empty(t, store.DrainSubmissions())

	solves := store.DrainSolves()
	require.Len(t, solves, 1)
	require.Empty(t, store.DrainSolves())
}

func TestRequeuePrependsFailedBatch(t *testing.T) {
	store := NewStore()

	first := SolveRow{ID: uuid.New(), ParticipantID: "p1"}
	store.AddSolves(first)

	drained := store.DrainSolves()
	require.Len(t, drained, 1)

	// A row buffered while the failed batch was in flight must flush after it.
	second := SolveRow{ID: uuid.New(), ParticipantID: "p2"}
	store.AddSolves(second)
	store.RequeueSolves(drained)

	rows := store.DrainSolves()
	require.Len(t, rows, 2)
	require.Equal(t, first.ID, rows[0].ID)
	require.Equal(t, second.ID, rows[1].ID)
}

func TestHasSolveSeesOnlyBufferedPairs(t *testing.T) {
	store := NewStore()
	challengeID := uuid.New()

	require.False(t, store.HasSolve("p1", challengeID))

	store.AddSolves(SolveRow{ID: uuid.New(), ParticipantID: "p1", ChallengeID: challengeID, SolvedAt: time.Now()})
	require.True(t, store.HasSolve("p1", challengeID))
	require.False(t, store.HasSolve("p2", challengeID))
	require.False(t, store.HasSolve("p1", uuid.New()))

	store.DrainSolves()
	require.False(t, store.HasSolve("p1", challengeID))
}

func TestLenReportsPerTable(t *testing.T) {
	store := NewStore()

	store.AddSubmissions(models.Submission{ID: uuid.New()})
	store.AddSolves(SolveRow{ID: uuid.New()}, SolveRow{ID: uuid.New()})
	store.AddHintUsages(HintUsageRow{ParticipantID: "p1", HintID: uuid.New()})

	submissions, solves, hintUsages := store.Len()
	require.Equal(t, 1, submissions)
	require.Equal(t, 2, solves)
	require.Equal(t, 1, hintUsages)
}
