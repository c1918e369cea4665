package session

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferSetAnswerOverwrites(t *testing.T) {
	b := NewBuffer()
	qid := uuid.New()

	b.SetAnswer(qid, "A")
	b.SetAnswer(qid, "C")

	answers, _ := b.Snapshot()
	require.Len(t, answers, 1)
	assert.Equal(t, "C", answers[qid])
}

func TestBufferToggleFlag(t *testing.T) {
	b := NewBuffer()
	qid := uuid.New()

	assert.True(t, b.ToggleFlag(qid))
	_, flagged := b.Snapshot()
	assert.Equal(t, []uuid.UUID{qid}, flagged)

	assert.False(t, b.ToggleFlag(qid))
	_, flagged = b.Snapshot()
	assert.Empty(t, flagged)
}

func TestBufferFlagIndependentOfAnswer(t *testing.T) {
	b := NewBuffer()
	qid := uuid.New()

	b.ToggleFlag(qid)

	answers, flagged := b.Snapshot()
	assert.Empty(t, answers)
	assert.Len(t, flagged, 1)
}

func TestBufferResetClearsBothMaps(t *testing.T) {
	b := NewBuffer()
	b.SetAnswer(uuid.New(), "B")
	b.SetAnswer(uuid.New(), "D")
	b.ToggleFlag(uuid.New())

	b.Reset()

	answers, flagged := b.Snapshot()
	assert.Empty(t, answers)
	assert.Empty(t, flagged)
	assert.Equal(t, 0, b.AnsweredCount())
}

// The snapshot must be detached: late mutations of the buffer cannot leak
// into a payload already handed to submission code.
func TestBufferSnapshotIsImmutableCopy(t *testing.T) {
	b := NewBuffer()
	qid := uuid.New()
	b.SetAnswer(qid, "A")

	answers, flagged := b.Snapshot()
	b.SetAnswer(qid, "B")
	b.SetAnswer(uuid.New(), "C")
	b.ToggleFlag(uuid.New())

	assert.Equal(t, "A", answers[qid])
	assert.Len(t, answers, 1)
	assert.Empty(t, flagged)
}
