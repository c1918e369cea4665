package session

import (
	"github.com/google/uuid"
	"github.com/satfergana/bluebook-gateway/internal/model"
)

// Phase is the controller's explicit lifecycle state. Every transition into
// and out of a phase happens inside the controller; presentation code only
// ever observes the tagged value.
type Phase string

const (
	PhaseInstructions Phase = "INSTRUCTIONS"
	PhaseStarting     Phase = "STARTING"
	PhaseInModule     Phase = "IN_MODULE"
	PhaseSubmitting   Phase = "SUBMITTING"
	PhaseOnBreak      Phase = "ON_BREAK"
	PhaseCompleted    Phase = "COMPLETED"
	PhaseError        Phase = "ERROR"
)

// ErrorInfo describes the last transition failure for display. Retryable
// errors leave the session in its previous phase with a retry affordance;
// terminal ones route the student back to the exam list.
type ErrorInfo struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// ModuleInfo is the module metadata exposed to presentation.
type ModuleInfo struct {
	ID               uuid.UUID             `json:"id"`
	SectionType      model.SectionType     `json:"section_type"`
	ModuleOrder      int                   `json:"module_order"`
	TimeLimitMinutes int                   `json:"time_limit_minutes"`
	Difficulty       model.DifficultyLevel `json:"difficulty_level,omitempty"`
	QuestionCount    int                   `json:"question_count"`
}

// Projection is the read-only view of a session consumed by the REST and
// WebSocket adapters. It is a value snapshot: mutating it has no effect on
// the controller.
type Projection struct {
	Phase            Phase               `json:"phase"`
	Attempt          *model.Attempt      `json:"attempt,omitempty"`
	Module           *ModuleInfo         `json:"module,omitempty"`
	Questions        []model.Question    `json:"questions,omitempty"`
	CurrentIndex     int                 `json:"current_index"`
	AnsweredIDs      []uuid.UUID         `json:"answered_ids"`
	FlaggedIDs       []uuid.UUID         `json:"flagged_ids"`
	RemainingSeconds int                 `json:"remaining_seconds"`
	Results          *model.FinalResults `json:"results,omitempty"`
	Error            *ErrorInfo          `json:"error,omitempty"`
}
