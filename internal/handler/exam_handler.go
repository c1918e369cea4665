package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/satfergana/bluebook-gateway/internal/auth"
	"github.com/satfergana/bluebook-gateway/internal/examservice"
	"github.com/satfergana/bluebook-gateway/internal/middleware"
	"github.com/satfergana/bluebook-gateway/internal/model"
	"github.com/satfergana/bluebook-gateway/internal/response"
	"github.com/satfergana/bluebook-gateway/internal/session"
	"github.com/satfergana/bluebook-gateway/internal/validator"
)

// ExamHandler exposes the session controller's operations over REST. Every
// route reads the student id from the validated JWT and the exam id from the
// path; the registry resolves the pair to its live controller.
type ExamHandler struct {
	registry *session.Registry
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(registry *session.Registry) *ExamHandler {
	return &ExamHandler{registry: registry}
}

// BeginAttempt godoc
// POST /api/v1/student/exams/:exam_id/attempt
// Starts or resumes the student's attempt (idempotent on re-entry).
func (h *ExamHandler) BeginAttempt(c *gin.Context) {
	claims, examID, ok := h.identify(c)
	if !ok {
		return
	}

	ctrl := h.registry.GetOrCreate(claims.UserID, examID)
	proj, err := ctrl.Begin(c.Request.Context())
	if err != nil {
		h.failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, proj)
}

// GetState godoc
// GET /api/v1/student/exams/:exam_id/state
// Returns the current session projection: phase, module, answered/flagged
// ids and the remaining seconds. Covers page reloads.
func (h *ExamHandler) GetState(c *gin.Context) {
	ctrl, ok := h.resolve(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, ctrl.Projection())
}

// SetAnswer godoc
// POST /api/v1/student/exams/:exam_id/answers
// Records or overwrites one answer in the current module's buffer.
func (h *ExamHandler) SetAnswer(c *gin.Context) {
	ctrl, ok := h.resolve(c)
	if !ok {
		return
	}

	var req model.AnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	proj, err := ctrl.SetAnswer(req.QuestionID, req.Value)
	if err != nil {
		h.failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, proj)
}

// ToggleFlag godoc
// POST /api/v1/student/exams/:exam_id/flags
// Toggles the review flag for one question.
func (h *ExamHandler) ToggleFlag(c *gin.Context) {
	ctrl, ok := h.resolve(c)
	if !ok {
		return
	}

	var req model.FlagRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	proj, err := ctrl.ToggleFlag(req.QuestionID)
	if err != nil {
		h.failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, proj)
}

// SetPosition godoc
// POST /api/v1/student/exams/:exam_id/position
// Moves the question pointer. Out-of-range indices leave it unchanged.
func (h *ExamHandler) SetPosition(c *gin.Context) {
	ctrl, ok := h.resolve(c)
	if !ok {
		return
	}

	var req model.PositionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	proj, err := ctrl.GoTo(*req.Index)
	if err != nil {
		h.failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, proj)
}

// SubmitModule godoc
// POST /api/v1/student/exams/:exam_id/submit-module
// Submits the current module with the full answer/flag snapshot. Safe to
// race the countdown expiration: only one upstream call results.
func (h *ExamHandler) SubmitModule(c *gin.Context) {
	ctrl, ok := h.resolve(c)
	if !ok {
		return
	}

	proj, err := ctrl.SubmitModule(c.Request.Context())
	if err != nil {
		h.failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, proj)
}

// ResumeBreak godoc
// POST /api/v1/student/exams/:exam_id/resume
// Ends the break early and enters the next module.
func (h *ExamHandler) ResumeBreak(c *gin.Context) {
	ctrl, ok := h.resolve(c)
	if !ok {
		return
	}

	proj, err := ctrl.ResumeNow(c.Request.Context())
	if err != nil {
		h.failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, proj)
}

// ExitAttempt godoc
// POST /api/v1/student/exams/:exam_id/exit
// Pauses the session: cancels the countdown, submits nothing, and drops the
// in-memory controller. The attempt stays resumable upstream.
func (h *ExamHandler) ExitAttempt(c *gin.Context) {
	claims, examID, ok := h.identify(c)
	if !ok {
		return
	}

	h.registry.Remove(claims.UserID, examID)
	response.Success(c, http.StatusOK, gin.H{"exited": true})
}

// GetResults godoc
// GET /api/v1/student/exams/:exam_id/results
// Returns the final scored results of a completed attempt.
func (h *ExamHandler) GetResults(c *gin.Context) {
	ctrl, ok := h.resolve(c)
	if !ok {
		return
	}

	proj := ctrl.Projection()
	if proj.Phase != session.PhaseCompleted || proj.Results == nil {
		response.Fail(c, http.StatusConflict, response.ErrResultsNotReady)
		return
	}
	response.Success(c, http.StatusOK, proj.Results)
}

// identify extracts the student claims and exam id shared by every route.
func (h *ExamHandler) identify(c *gin.Context) (claims *auth.Claims, examID uuid.UUID, ok bool) {
	cl := middleware.GetClaims(c)
	if cl == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, uuid.Nil, false
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, uuid.Nil, false
	}
	return cl, examID, true
}

// resolve looks up the live controller for the authenticated pair.
func (h *ExamHandler) resolve(c *gin.Context) (*session.Controller, bool) {
	claims, examID, ok := h.identify(c)
	if !ok {
		return nil, false
	}

	ctrl := h.registry.Get(claims.UserID, examID)
	if ctrl == nil {
		response.Fail(c, http.StatusNotFound, response.ErrNoActiveSession)
		return nil, false
	}
	return ctrl, true
}

// failFromError maps controller and upstream errors to API error codes.
func (h *ExamHandler) failFromError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrWrongPhase):
		response.Fail(c, http.StatusConflict, response.ErrWrongPhase)
	case errors.Is(err, session.ErrUnknownQuestion):
		response.Fail(c, http.StatusBadRequest, response.ErrUnknownQuestion)
	case errors.Is(err, session.ErrSessionClosed):
		response.Fail(c, http.StatusNotFound, response.ErrNoActiveSession)
	case errors.Is(err, examservice.ErrAttemptNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrAttemptNotFound)
	case errors.Is(err, examservice.ErrAttemptCompleted):
		response.Fail(c, http.StatusConflict, response.ErrAttemptCompleted)
	case errors.Is(err, examservice.ErrUnavailable):
		response.Fail(c, http.StatusBadGateway, response.ErrUpstreamDown)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
