package service

// Verdict classifies the outcome of evaluating one submission attempt.
// Verdicts are meaningful outcomes, not errors: they are always returned to
// the caller, never wrapped in an error.
type Verdict int

// Verdict kinds, in evaluation precedence order.
const (
	VerdictSubmissionsNotAllowed Verdict = iota
	VerdictAlreadySolved
	VerdictDeadlineReached
	VerdictMaxAttemptReached
	VerdictSubmittingTooOften
	VerdictCorrect
	VerdictIncorrect
)

var verdictNames = map[Verdict]string{
	VerdictSubmissionsNotAllowed: "SubmissionsNotAllowed",
	VerdictAlreadySolved:         "AlreadySolved",
	VerdictDeadlineReached:       "DeadlineReached",
	VerdictMaxAttemptReached:     "MaxAttemptReached",
	VerdictSubmittingTooOften:    "SubmittingTooOften",
	VerdictCorrect:               "Correct",
	VerdictIncorrect:             "Incorrect",
}

func (v Verdict) String() string {
	if name, ok := verdictNames[v]; ok {
		return name
	}

	return "Unknown"
}
