package service

import "time"

// EvaluationInput is the full snapshot a verdict is decided from. The
// evaluator performs no I/O; the caller gathers the snapshot under the
// per-pair concurrency guard and mutates state only after the verdict.
type EvaluationInput struct {
	// Challenge snapshot.
	Flags           []string
	DeadlineEnabled bool
	Deadline        time.Time
	MaxAttempts     int

	// Configuration snapshot.
	SubmissionsAllowed bool
	ChallengesLocked   bool

	// Participant snapshot for this pair.
	AlreadySolved bool
	AttemptsUsed  int
	RecentCount   int
	RecentLimit   int

	Value string
	Now   time.Time
}

// Evaluate classifies one submission attempt. First match wins:
// global/lock toggles, already solved, deadline, attempt limit, rate window,
// then the case-sensitive exact flag comparison.
func Evaluate(in EvaluationInput) Verdict {
	if !in.SubmissionsAllowed || in.ChallengesLocked {
		return VerdictSubmissionsNotAllowed
	}

	if in.AlreadySolved {
		return VerdictAlreadySolved
	}

	// A submission arriving exactly at the deadline is already too late.
	if in.DeadlineEnabled && !in.Now.Before(in.Deadline) {
		return VerdictDeadlineReached
	}

	if in.MaxAttempts > 0 && in.AttemptsUsed >= in.MaxAttempts {
		return VerdictMaxAttemptReached
	}

	if in.RecentLimit > 0 && in.RecentCount > in.RecentLimit {
		return VerdictSubmittingTooOften
	}

	for _, flag := range in.Flags {
		if flag == in.Value {
			return VerdictCorrect
		}
	}

	return VerdictIncorrect
}
