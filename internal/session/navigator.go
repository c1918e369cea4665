package session

import (
	"sync"

	"github.com/satfergana/bluebook-gateway/internal/model"
)

// Navigator is a bounds-checked question pointer over the current module's
// question list. It can never reach a question outside that list: switching
// modules happens only through Attach, which replaces the list wholesale and
// resets the pointer to the first question.
type Navigator struct {
	mu        sync.Mutex
	questions []model.Question
	current   int
}

// NewNavigator creates a Navigator with no questions attached.
func NewNavigator() *Navigator {
	return &Navigator{}
}

// Attach replaces the question list with the given module's questions and
// resets the pointer to index 0.
func (n *Navigator) Attach(questions []model.Question) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.questions = questions
	n.current = 0
}

// GoTo moves the pointer to index if it is within bounds. Out-of-range
// requests are ignored rather than clamped, so a stray UI event cannot move
// the pointer at all.
func (n *Navigator) GoTo(index int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if index < 0 || index >= len(n.questions) {
		return
	}
	n.current = index
}

// Next advances the pointer by one question, if possible.
func (n *Navigator) Next() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current+1 < len(n.questions) {
		n.current++
	}
}

// Previous moves the pointer back one question, if possible. Backward
// movement never crosses a module boundary because only the current module
// is ever attached.
func (n *Navigator) Previous() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current > 0 {
		n.current--
	}
}

// Index returns the current question index.
func (n *Navigator) Index() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Current returns the question under the pointer, or nil when no module is
// attached.
func (n *Navigator) Current() *model.Question {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.questions) == 0 {
		return nil
	}
	q := n.questions[n.current]
	return &q
}

// Count returns the number of questions in the attached module.
func (n *Navigator) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.questions)
}
