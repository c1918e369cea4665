package session

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTick = 5 * time.Millisecond

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting: %s", msg)
}

func TestCountdownExpiresExactlyOnce(t *testing.T) {
	cd := newCountdownInterval(testTick)

	var expires int32
	cd.Start(3, nil, func() { atomic.AddInt32(&expires, 1) })

	waitFor(t, func() bool { return atomic.LoadInt32(&expires) > 0 }, "expiration")
	// Give any stray ticks a chance to fire a second expiration.
	time.Sleep(10 * testTick)

	assert.Equal(t, int32(1), atomic.LoadInt32(&expires))
	assert.Equal(t, 0, cd.Remaining())
	assert.False(t, cd.Active())
}

func TestCountdownTicksDecreaseByOne(t *testing.T) {
	cd := newCountdownInterval(testTick)

	var mu sync.Mutex
	var seen []int
	done := make(chan struct{})

	cd.Start(4, func(remaining int) {
		mu.Lock()
		seen = append(seen, remaining)
		mu.Unlock()
	}, func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("countdown never expired")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{3, 2, 1, 0}, seen)
}

func TestCountdownCancelStopsExpiration(t *testing.T) {
	cd := newCountdownInterval(testTick)

	var expires int32
	cd.Start(1000, nil, func() { atomic.AddInt32(&expires, 1) })
	require.True(t, cd.Active())

	cd.Cancel()
	assert.False(t, cd.Active())

	time.Sleep(10 * testTick)
	assert.Equal(t, int32(0), atomic.LoadInt32(&expires))
}

// Restarting must cancel the previous run first: only the second run's
// expiration may ever fire, and only once.
func TestCountdownRestartCancelsPreviousRun(t *testing.T) {
	cd := newCountdownInterval(testTick)

	var firstExpired, secondExpired int32
	cd.Start(2, nil, func() { atomic.AddInt32(&firstExpired, 1) })
	cd.Start(4, nil, func() { atomic.AddInt32(&secondExpired, 1) })

	waitFor(t, func() bool { return atomic.LoadInt32(&secondExpired) > 0 }, "second expiration")
	time.Sleep(10 * testTick)

	assert.Equal(t, int32(0), atomic.LoadInt32(&firstExpired))
	assert.Equal(t, int32(1), atomic.LoadInt32(&secondExpired))
}

func TestCountdownZeroSecondsExpiresImmediately(t *testing.T) {
	cd := newCountdownInterval(testTick)

	done := make(chan struct{})
	cd.Start(0, nil, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("immediate expiration never fired")
	}
	assert.Equal(t, 0, cd.Remaining())
}

func TestCountdownRemainingNeverNegative(t *testing.T) {
	cd := newCountdownInterval(testTick)

	done := make(chan struct{})
	cd.Start(2, nil, func() { close(done) })
	<-done

	time.Sleep(5 * testTick)
	assert.GreaterOrEqual(t, cd.Remaining(), 0)
}
