package dto

// SubmitRequest carries one flag attempt.
type SubmitRequest struct {
	Value string `json:"value" validate:"required,max=100"`
}

// SubmitResponse reports the verdict for one attempt.
type SubmitResponse struct {
	Verdict string `json:"verdict"`
}

// ChallengeStatusResponse reports a participant's state on one challenge.
type ChallengeStatusResponse struct {
	Solved       bool `json:"solved"`
	AttemptsUsed int  `json:"attempts_used"`
	MaxAttempts  int  `json:"max_attempts"`
}
