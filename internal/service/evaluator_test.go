package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func baseInput() EvaluationInput {
	return EvaluationInput{
		Flags:              []string{"flag{alpha}", "flag{beta}", "flag{gamma}"},
		MaxAttempts:        0,
		SubmissionsAllowed: true,
		ChallengesLocked:   false,
		RecentLimit:        5,
		Value:              "flag{alpha}",
		Now:                time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestEvaluateCorrectMatchesAnyFlag(t *testing.T) {
	in := baseInput()
	in.Value = "flag{gamma}"
	require.Equal(t, VerdictCorrect, Evaluate(in))
}

func TestEvaluateIncorrectIsCaseSensitive(t *testing.T) {
	in := baseInput()
	in.Value = "FLAG{ALPHA}"
	require.Equal(t, VerdictIncorrect, Evaluate(in))
}

func TestEvaluateSubmissionsDisabled(t *testing.T) {
	in := baseInput()
	in.SubmissionsAllowed = false
	require.Equal(t, VerdictSubmissionsNotAllowed, Evaluate(in))
}

func TestEvaluateChallengesLocked(t *testing.T) {
	in := baseInput()
	in.ChallengesLocked = true
	require.Equal(t, VerdictSubmissionsNotAllowed, Evaluate(in))
}

func TestEvaluateAlreadySolvedBeatsEverythingButToggles(t *testing.T) {
	in := baseInput()
	in.AlreadySolved = true
	in.DeadlineEnabled = true
	in.Deadline = in.Now.Add(-time.Hour)
	require.Equal(t, VerdictAlreadySolved, Evaluate(in))

	in.SubmissionsAllowed = false
	require.Equal(t, VerdictSubmissionsNotAllowed, Evaluate(in))
}

func TestEvaluateDeadline(t *testing.T) {
	in := baseInput()
	in.DeadlineEnabled = true

	in.Deadline = in.Now.Add(time.Minute)
	require.Equal(t, VerdictCorrect, Evaluate(in))

	// Arriving exactly at the deadline is already too late.
	in.Deadline = in.Now
	require.Equal(t, VerdictDeadlineReached, Evaluate(in))

	in.Deadline = in.Now.Add(-time.Minute)
	require.Equal(t, VerdictDeadlineReached, Evaluate(in))
}

func TestEvaluateDeadlineIgnoredWhenDisabled(t *testing.T) {
	in := baseInput()
	in.DeadlineEnabled = false
	in.Deadline = in.Now.Add(-time.Hour)
	require.Equal(t, VerdictCorrect, Evaluate(in))
}

func TestEvaluateMaxAttempts(t *testing.T) {
	in := baseInput()
	in.MaxAttempts = 3

	in.AttemptsUsed = 2
	require.Equal(t, VerdictCorrect, Evaluate(in))

	// The fourth attempt after three used is rejected even when correct.
	in.AttemptsUsed = 3
	require.Equal(t, VerdictMaxAttemptReached, Evaluate(in))
}

func TestEvaluateUnlimitedAttempts(t *testing.T) {
	in := baseInput()
	in.MaxAttempts = 0
	in.AttemptsUsed = 1000
	require.Equal(t, VerdictCorrect, Evaluate(in))
}

func TestEvaluateSubmittingTooOften(t *testing.T) {
	in := baseInput()
	in.RecentCount = 5
	require.Equal(t, VerdictCorrect, Evaluate(in))

	in.RecentCount = 6
	require.Equal(t, VerdictSubmittingTooOften, Evaluate(in))
}

func TestEvaluatePrecedenceDeadlineBeforeAttempts(t *testing.T) {
	in := baseInput()
	in.DeadlineEnabled = true
	in.Deadline = in.Now.Add(-time.Minute)
	in.MaxAttempts = 1
	in.AttemptsUsed = 5
	in.RecentCount = 10
	require.Equal(t, VerdictDeadlineReached, Evaluate(in))
}

func TestEvaluateEmptyFlagListNeverCorrect(t *testing.T) {
	in := baseInput()
	in.Flags = nil
	require.Equal(t, VerdictIncorrect, Evaluate(in))
}

func TestVerdictString(t *testing.T) {
	require.Equal(t, "Correct", VerdictCorrect.String())
	require.Equal(t, "AlreadySolved", VerdictAlreadySolved.String())
	require.Equal(t, "SubmittingTooOften", VerdictSubmittingTooOften.String())
}
