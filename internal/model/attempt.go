package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates the server-owned states of an exam attempt.
type AttemptStatus string

const (
	AttemptStatusCreated   AttemptStatus = "CREATED"
	AttemptStatusStarted   AttemptStatus = "STARTED"
	AttemptStatusBreak     AttemptStatus = "BREAK"
	AttemptStatusCompleted AttemptStatus = "COMPLETED"
)

// Attempt is one student's run through one exam instance. The upstream exam
// service owns it; the gateway only holds a cached snapshot for the duration
// of the session.
type Attempt struct {
	ID          uuid.UUID     `json:"id"`
	ExamID      uuid.UUID     `json:"exam_id"`
	StudentID   int           `json:"student_id"`
	Status      AttemptStatus `json:"status"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	SubmittedAt *time.Time    `json:"submitted_at,omitempty"`
	// RemainingSeconds is reported by the upstream on status fetches so a
	// resumed session continues with the authoritative clock, not a fresh one.
	RemainingSeconds *int `json:"remaining_seconds,omitempty"`
}

// BeginAttemptRequest is the payload for starting or resuming an attempt.
type BeginAttemptRequest struct {
	ExamID uuid.UUID `json:"exam_id" binding:"required"`
}

// AnswerRequest records or overwrites the answer to one question.
type AnswerRequest struct {
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
	Value      string    `json:"value" binding:"required,max=500"`
}

// FlagRequest toggles the review flag on one question.
type FlagRequest struct {
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
}

// PositionRequest moves the question pointer within the current module.
type PositionRequest struct {
	Index *int `json:"index" binding:"required,min=0"`
}
