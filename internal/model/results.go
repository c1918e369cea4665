package model

import (
	"time"

	"github.com/google/uuid"
)

// SectionScore is the upstream-computed score for one exam section.
type SectionScore struct {
	SectionType SectionType `json:"section_type"`
	Score       int         `json:"score"`
	MaxScore    int         `json:"max_score"`
}

// FinalResults is the scored outcome of a completed attempt. Scoring is
// produced entirely upstream; the gateway only relays it for display.
type FinalResults struct {
	AttemptID     uuid.UUID      `json:"attempt_id"`
	TotalScore    int            `json:"total_score"`
	MaxScore      int            `json:"max_score"`
	SectionScores []SectionScore `json:"section_scores"`
	CompletedAt   time.Time      `json:"completed_at"`
}
