package session

import (
	"sync"

	"github.com/google/uuid"
)

// Buffer holds the volatile answers and review flags for the current module
// only. It is reset wholesale on every module transition, so its keys are
// always a subset of the current module's question ids.
//
// Answer values are stored as-is — the upstream service validates them
// against the question type at submission time.
type Buffer struct {
	mu      sync.Mutex
	answers map[uuid.UUID]string
	flags   map[uuid.UUID]bool
}

// NewBuffer creates an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{
		answers: make(map[uuid.UUID]string),
		flags:   make(map[uuid.UUID]bool),
	}
}

// SetAnswer records or overwrites the answer for a question.
func (b *Buffer) SetAnswer(questionID uuid.UUID, value string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.answers[questionID] = value
}

// ToggleFlag flips the review flag on a question and returns the new state.
func (b *Buffer) ToggleFlag(questionID uuid.UUID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.flags[questionID] {
		delete(b.flags, questionID)
		return false
	}
	b.flags[questionID] = true
	return true
}

// Reset clears all answers and flags. Called exactly once per module
// transition, before the new module's questions are attached.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.answers = make(map[uuid.UUID]string)
	b.flags = make(map[uuid.UUID]bool)
}

// Snapshot returns independent copies of the answer map and flagged id list,
// safe to hand to submission or rendering code while input keeps arriving.
func (b *Buffer) Snapshot() (map[uuid.UUID]string, []uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	answers := make(map[uuid.UUID]string, len(b.answers))
	for qid, v := range b.answers {
		answers[qid] = v
	}

	flagged := make([]uuid.UUID, 0, len(b.flags))
	for qid := range b.flags {
		flagged = append(flagged, qid)
	}

	return answers, flagged
}

// AnsweredCount returns how many questions currently hold an answer.
func (b *Buffer) AnsweredCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.answers)
}
