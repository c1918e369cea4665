package model

import (
	"github.com/google/uuid"
)

// SectionType enumerates the two top-level exam sections.
type SectionType string

const (
	SectionReadingWriting SectionType = "READING_WRITING"
	SectionMath           SectionType = "MATH"
)

// DifficultyLevel is the server-assigned difficulty of a second module.
// Adaptivity is decided upstream from module-1 performance; the gateway
// never computes it.
type DifficultyLevel string

const (
	DifficultyBaseline DifficultyLevel = "BASELINE"
	DifficultyEasier   DifficultyLevel = "EASIER"
	DifficultyHarder   DifficultyLevel = "HARDER"
)

// QuestionType distinguishes lettered multiple choice from free entry.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionTypeFreeResponse   QuestionType = "FREE_RESPONSE"
)

// AnswerOption is one lettered choice of a multiple-choice question.
type AnswerOption struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

// Question is a single assessment item. Correct answers never leave the
// upstream service, so there is nothing to strip here.
type Question struct {
	ID      uuid.UUID      `json:"id"`
	Text    string         `json:"text"`
	Passage string         `json:"passage,omitempty"`
	Type    QuestionType   `json:"type"`
	Options []AnswerOption `json:"options,omitempty"`
}

// Module is one timed, ordered block of questions within a section. It is
// immutable once fetched and superseded wholesale by the next fetch.
type Module struct {
	ID               uuid.UUID       `json:"id"`
	SectionType      SectionType     `json:"section_type"`
	ModuleOrder      int             `json:"module_order"`
	TimeLimitMinutes int             `json:"time_limit_minutes"`
	Difficulty       DifficultyLevel `json:"difficulty_level,omitempty"`
	Questions        []Question      `json:"questions"`
	// RemainingSeconds is set by the upstream when an in-progress module is
	// re-fetched after a pause. Zero means "use the full time limit".
	RemainingSeconds int `json:"remaining_seconds,omitempty"`
}

// WorkSeconds returns the countdown duration for this module: the upstream
// remaining time when resuming, the full limit otherwise.
func (m *Module) WorkSeconds() int {
	if m.RemainingSeconds > 0 {
		return m.RemainingSeconds
	}
	return m.TimeLimitMinutes * 60
}

// ModuleSubmission is the authoritative answer/flag payload flushed to the
// upstream service when a module ends. It always carries the full snapshot,
// never a delta.
type ModuleSubmission struct {
	ModuleID         uuid.UUID            `json:"module_id"`
	Answers          map[uuid.UUID]string `json:"answers"`
	FlaggedQuestions []uuid.UUID          `json:"flagged_questions"`
}
