package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/flagforge/play-api/internal/dto"
	"github.com/flagforge/play-api/internal/middleware"
	"github.com/flagforge/play-api/internal/service"
	"github.com/flagforge/play-api/internal/utils"
)

type stubSubmissionService struct {
	verdict service.Verdict
	err     error

	lastParticipant string
	lastChallenge   uuid.UUID
	lastValue       string
}

func (s *stubSubmissionService) Submit(_ context.Context, participantID string, challengeID uuid.UUID, value string) (service.Verdict, error) {
	s.lastParticipant = participantID
	s.lastChallenge = challengeID
	s.lastValue = value
	return s.verdict, s.err
}

func (s *stubSubmissionService) ChallengeStatus(context.Context, string, uuid.UUID) (dto.ChallengeStatusResponse, error) {
	return dto.ChallengeStatusResponse{Solved: true, AttemptsUsed: 2, MaxAttempts: 5}, s.err
}

func newSubmissionApp(stub *stubSubmissionService) *fiber.App {
	app := fiber.New()
	h := NewSubmissionHandler(stub, validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop())

	group := app.Group("/challenges", middleware.Participant())
	h.Register(group)

	return app
}

func TestSubmitEndpointReturnsVerdict(t *testing.T) {
	stub := &stubSubmissionService{verdict: service.VerdictCorrect}
	app := newSubmissionApp(stub)
	challengeID := uuid.New()

	req := httptest.NewRequest(fiber.MethodPost, "/challenges/"+challengeID.String()+"/submit", bytes.NewBufferString(`{"value":"flag{x}"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.ParticipantHeader, "p1")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload utils.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.True(t, payload.Success)

	data, ok := payload.Data.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "Correct", data["verdict"])

	require.Equal(t, "p1", stub.lastParticipant)
	require.Equal(t, challengeID, stub.lastChallenge)
	require.Equal(t, "flag{x}", stub.lastValue)
}

func TestSubmitEndpointRequiresIdentity(t *testing.T) {
	app := newSubmissionApp(&stubSubmissionService{verdict: service.VerdictCorrect})

	req := httptest.NewRequest(fiber.MethodPost, "/challenges/"+uuid.NewString()+"/submit", bytes.NewBufferString(`{"value":"flag{x}"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestSubmitEndpointValidatesBody(t *testing.T) {
	app := newSubmissionApp(&stubSubmissionService{verdict: service.VerdictCorrect})

	req := httptest.NewRequest(fiber.MethodPost, "/challenges/"+uuid.NewString()+"/submit", bytes.NewBufferString(`{"value":""}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.ParticipantHeader, "p1")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSubmitEndpointRejectsBadChallengeID(t *testing.T) {
	app := newSubmissionApp(&stubSubmissionService{verdict: service.VerdictCorrect})

	req := httptest.NewRequest(fiber.MethodPost, "/challenges/not-a-uuid/submit", bytes.NewBufferString(`{"value":"flag{x}"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.ParticipantHeader, "p1")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSubmitEndpointMapsContention(t *testing.T) {
	app := newSubmissionApp(&stubSubmissionService{err: service.ErrAnotherProcessRunning})

	req := httptest.NewRequest(fiber.MethodPost, "/challenges/"+uuid.NewString()+"/submit", bytes.NewBufferString(`{"value":"flag{x}"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.ParticipantHeader, "p1")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

func TestStatusEndpoint(t *testing.T) {
	app := newSubmissionApp(&stubSubmissionService{})

	req := httptest.NewRequest(fiber.MethodGet, "/challenges/"+uuid.NewString()+"/status", nil)
	req.Header.Set(middleware.ParticipantHeader, "p1")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload utils.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	data, ok := payload.Data.(map[string]any)
	require.True(t, ok)
	require.Equal(t, true, data["solved"])
	require.Equal(t, float64(2), data["attempts_used"])
}
