package session

import (
	"testing"

	"github.com/google/uuid"
	"github.com/satfergana/bluebook-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeQuestions(n int) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{ID: uuid.New(), Type: model.QuestionTypeMultipleChoice}
	}
	return qs
}

func TestNavigatorGoToWithinBounds(t *testing.T) {
	n := NewNavigator()
	n.Attach(makeQuestions(27))

	n.GoTo(26)
	assert.Equal(t, 26, n.Index())

	n.GoTo(0)
	assert.Equal(t, 0, n.Index())
}

func TestNavigatorGoToOutOfRangeIsIgnored(t *testing.T) {
	n := NewNavigator()
	n.Attach(makeQuestions(27))
	n.GoTo(5)

	for _, idx := range []int{-1, 27, 30, 1 << 20} {
		n.GoTo(idx)
		assert.Equal(t, 5, n.Index(), "index %d must not move the pointer", idx)
	}
}

func TestNavigatorNextPreviousClampAtEnds(t *testing.T) {
	n := NewNavigator()
	n.Attach(makeQuestions(3))

	n.Previous()
	assert.Equal(t, 0, n.Index())

	n.Next()
	n.Next()
	n.Next() // Already at the last question.
	assert.Equal(t, 2, n.Index())
}

func TestNavigatorAttachResetsPointer(t *testing.T) {
	n := NewNavigator()
	first := makeQuestions(10)
	n.Attach(first)
	n.GoTo(7)

	second := makeQuestions(22)
	n.Attach(second)

	assert.Equal(t, 0, n.Index())
	assert.Equal(t, 22, n.Count())
}

// After a module transition the navigator may only reference the new
// module's questions, never the submitted one's.
func TestNavigatorNeverReferencesPreviousModule(t *testing.T) {
	n := NewNavigator()
	first := makeQuestions(5)
	n.Attach(first)

	previousIDs := make(map[uuid.UUID]bool, len(first))
	for _, q := range first {
		previousIDs[q.ID] = true
	}

	n.Attach(makeQuestions(5))
	for i := 0; i < 5; i++ {
		n.GoTo(i)
		q := n.Current()
		require.NotNil(t, q)
		assert.False(t, previousIDs[q.ID])
	}
}

func TestNavigatorEmptyModule(t *testing.T) {
	n := NewNavigator()
	assert.Nil(t, n.Current())
	assert.Equal(t, 0, n.Count())

	n.Attach(nil)
	n.GoTo(0)
	n.Next()
	assert.Nil(t, n.Current())
}
