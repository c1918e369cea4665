package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	svc := &fakeService{}
	r := NewRegistry(svc, 600, time.Hour, zerolog.Nop())
	t.Cleanup(r.CloseAll)
	return r
}

func TestRegistryGetOrCreateReturnsSameController(t *testing.T) {
	r := newTestRegistry(t)
	examID := uuid.New()

	first := r.GetOrCreate(7, examID)
	second := r.GetOrCreate(7, examID)
	assert.Same(t, first, second)

	// Distinct per student and per exam.
	assert.NotSame(t, first, r.GetOrCreate(8, examID))
	assert.NotSame(t, first, r.GetOrCreate(7, uuid.New()))
}

func TestRegistryGetReturnsNilForUnknownPair(t *testing.T) {
	r := newTestRegistry(t)
	assert.Nil(t, r.Get(7, uuid.New()))
}

func TestRegistryRemoveClosesController(t *testing.T) {
	r := newTestRegistry(t)
	examID := uuid.New()

	ctrl := r.GetOrCreate(7, examID)
	r.Remove(7, examID)

	assert.Nil(t, r.Get(7, examID))
	_, err := ctrl.Begin(context.Background())
	assert.ErrorIs(t, err, ErrSessionClosed)

	// Removing an absent session is a no-op.
	r.Remove(7, examID)
}

func TestRegistryEvictsIdleSessions(t *testing.T) {
	svc := &fakeService{}
	r := NewRegistry(svc, 600, time.Nanosecond, zerolog.Nop())
	t.Cleanup(r.CloseAll)

	examID := uuid.New()
	ctrl := r.GetOrCreate(7, examID)

	time.Sleep(5 * time.Millisecond)
	r.evictIdle()

	assert.Nil(t, r.Get(7, examID))
	_, err := ctrl.Begin(context.Background())
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestRegistryCloseAllTearsDownEverySession(t *testing.T) {
	r := newTestRegistry(t)

	a := r.GetOrCreate(1, uuid.New())
	b := r.GetOrCreate(2, uuid.New())

	r.CloseAll()

	for _, ctrl := range []*Controller{a, b} {
		_, err := ctrl.Begin(context.Background())
		require.ErrorIs(t, err, ErrSessionClosed)
	}
}
