package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/selekta/portal-backend/internal/exam"
	"github.com/selekta/portal-backend/internal/middleware"
	"github.com/selekta/portal-backend/internal/model"
	"github.com/selekta/portal-backend/internal/response"
	"github.com/selekta/portal-backend/internal/service"
	"github.com/selekta/portal-backend/internal/validator"
)

// PortalHandler handles the participant-facing endpoints: code redemption
// and the exam session lifecycle.
type PortalHandler struct {
	accessService *service.AccessService
	examService   *service.ExamSessionService
	log           zerolog.Logger
}

// NewPortalHandler creates a new PortalHandler.
func NewPortalHandler(accessService *service.AccessService, examService *service.ExamSessionService, log zerolog.Logger) *PortalHandler {
	return &PortalHandler{
		accessService: accessService,
		examService:   examService,
		log:           log.With().Str("component", "portal_handler").Logger(),
	}
}

// Redeem godoc
// POST /api/v1/portal/redeem
// Consumes an invitation code and opens a test session.
func (h *PortalHandler) Redeem(c *gin.Context) {
	var req model.RedeemRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.accessService.Redeem(c.Request.Context(), req.Code, req.ParticipantName)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrCodeNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrInvalidCode)
		case errors.Is(err, model.ErrCodeAlreadyUsed):
			response.Fail(c, http.StatusConflict, response.ErrCodeAlreadyUsed)
		default:
			h.log.Error().Err(err).Msg("Redeem failed")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, result)
}

// StartSession godoc
// POST /api/v1/portal/session/start
// Draws the question set and starts (or resumes) the attempt.
func (h *PortalHandler) StartSession(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}

	result, err := h.examService.Start(c.Request.Context(), sessionID)
	if err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// GetState godoc
// GET /api/v1/portal/session/state
// Returns the live attempt snapshot: remaining time, answers, flags.
func (h *PortalHandler) GetState(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}

	snap, err := h.examService.State(c.Request.Context(), sessionID)
	if err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, snap)
}

// Answer godoc
// PUT /api/v1/portal/session/answer
// Records an answer for a question index.
func (h *PortalHandler) Answer(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}

	var req model.AnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.examService.Answer(c.Request.Context(), sessionID, req.Index, req.Answer); err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// ToggleFlag godoc
// PUT /api/v1/portal/session/flag
// Flips the review flag for a question index.
func (h *PortalHandler) ToggleFlag(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}

	var req model.FlagRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	flagged, err := h.examService.ToggleFlag(c.Request.Context(), sessionID, req.Index)
	if err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"flagged": flagged})
}

// SetPosition godoc
// PUT /api/v1/portal/session/position
// Moves the current question pointer.
func (h *PortalHandler) SetPosition(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}

	var req model.PositionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.examService.SetPosition(c.Request.Context(), sessionID, req.Index); err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// Submit godoc
// POST /api/v1/portal/session/submit
// Finalizes the attempt and returns the score.
func (h *PortalHandler) Submit(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}

	var req model.SubmitRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	summary, err := h.examService.Submit(c.Request.Context(), sessionID, req.Force)
	if err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, summary)
}

// sessionID resolves the session from the participant token claims.
func (h *PortalHandler) sessionID(c *gin.Context) (uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return uuid.Nil, false
	}

	sessionID, err := uuid.Parse(claims.SessionID)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
		return uuid.Nil, false
	}
	return sessionID, true
}

func (h *PortalHandler) failSession(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrSessionCompleted), errors.Is(err, exam.ErrNotInProgress):
		response.Fail(c, http.StatusConflict, response.ErrSessionCompleted)
	case errors.Is(err, service.ErrSessionExpired):
		response.Fail(c, http.StatusGone, response.ErrSessionExpired)
	case errors.Is(err, exam.ErrFailed):
		response.Fail(c, http.StatusConflict, response.ErrSessionFailed)
	case errors.Is(err, exam.ErrIncompleteAnswers):
		response.Fail(c, http.StatusBadRequest, response.ErrIncompleteAnswers)
	case errors.Is(err, exam.ErrIndexOutOfRange):
		response.Fail(c, http.StatusBadRequest, response.ErrQuestionIndex)
	case errors.Is(err, exam.ErrInvalidAnswer):
		response.Fail(c, http.StatusBadRequest, response.ErrValidation)
	case errors.Is(err, exam.ErrInsufficientQuestions):
		response.Fail(c, http.StatusInternalServerError, response.ErrInsufficientQuestions)
	case errors.Is(err, service.ErrPersistFailed):
		response.Fail(c, http.StatusInternalServerError, response.ErrPersistence)
	default:
		h.log.Error().Err(err).Msg("Session operation failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
