package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/satfergana/bluebook-gateway/internal/examservice"
)

// Registry holds the live Controller per (student, exam) pair. Controllers
// are created lazily on the first begin call, removed on explicit exit, and
// evicted after the idle TTL so abandoned tabs do not pin timers forever.
// Eviction only drops the in-memory session; the attempt stays resumable
// upstream.
type Registry struct {
	mu           sync.Mutex
	sessions     map[string]*Controller
	svc          examservice.Service
	breakSeconds int
	idleTTL      time.Duration
	log          zerolog.Logger
}

// NewRegistry creates a Registry backed by the given upstream service.
func NewRegistry(svc examservice.Service, breakSeconds int, idleTTL time.Duration, log zerolog.Logger) *Registry {
	return &Registry{
		sessions:     make(map[string]*Controller),
		svc:          svc,
		breakSeconds: breakSeconds,
		idleTTL:      idleTTL,
		log:          log.With().Str("component", "session_registry").Logger(),
	}
}

func sessionKey(studentID int, examID uuid.UUID) string {
	return fmt.Sprintf("%d:%s", studentID, examID)
}

// GetOrCreate returns the live controller for the pair, creating an idle one
// if none exists.
func (r *Registry) GetOrCreate(studentID int, examID uuid.UUID) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := sessionKey(studentID, examID)
	if ctrl, ok := r.sessions[key]; ok {
		return ctrl
	}

	ctrl := NewController(r.svc, examID, studentID, r.breakSeconds, r.log)
	r.sessions[key] = ctrl
	r.log.Info().Str("session", key).Msg("Session created")
	return ctrl
}

// Get returns the live controller for the pair, or nil.
func (r *Registry) Get(studentID int, examID uuid.UUID) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[sessionKey(studentID, examID)]
}

// Remove closes and drops the controller for the pair. This is the explicit
// exit/pause path: the countdown is cancelled and nothing is submitted.
func (r *Registry) Remove(studentID int, examID uuid.UUID) {
	r.mu.Lock()
	key := sessionKey(studentID, examID)
	ctrl, ok := r.sessions[key]
	if ok {
		delete(r.sessions, key)
	}
	r.mu.Unlock()

	if ok {
		ctrl.Close()
		r.log.Info().Str("session", key).Msg("Session removed")
	}
}

// Sweep runs the idle-eviction loop until ctx is cancelled. Call in a
// goroutine.
func (r *Registry) Sweep(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.evictIdle()
		}
	}
}

func (r *Registry) evictIdle() {
	cutoff := time.Now().Add(-r.idleTTL)

	r.mu.Lock()
	var stale []*Controller
	for key, ctrl := range r.sessions {
		if ctrl.IdleSince().Before(cutoff) {
			stale = append(stale, ctrl)
			delete(r.sessions, key)
			r.log.Info().Str("session", key).Msg("Evicting idle session")
		}
	}
	r.mu.Unlock()

	for _, ctrl := range stale {
		ctrl.Close()
	}
}

// CloseAll tears down every live session. Called on shutdown so no countdown
// can fire after the gateway stops serving.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := make([]*Controller, 0, len(r.sessions))
	for key, ctrl := range r.sessions {
		all = append(all, ctrl)
		delete(r.sessions, key)
	}
	r.mu.Unlock()

	for _, ctrl := range all {
		ctrl.Close()
	}
	if len(all) > 0 {
		r.log.Info().Int("count", len(all)).Msg("All sessions closed")
	}
}
