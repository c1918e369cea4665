package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/satfergana/bluebook-gateway/internal/examservice"
	"github.com/satfergana/bluebook-gateway/internal/model"
)

// Controller errors surfaced to the gateway handlers.
var (
	ErrWrongPhase      = errors.New("operation not valid in current phase")
	ErrUnknownQuestion = errors.New("question does not belong to the current module")
	ErrSessionClosed   = errors.New("session is closed")
)

// flagSyncTimeout bounds the fire-and-forget flag sync call so a hung
// upstream cannot leak goroutines for the whole module duration.
const flagSyncTimeout = 5 * time.Second

// Controller drives one student's attempt through a multi-section, timed,
// adaptive exam: start, per-module countdown, submission, break, completion.
//
// It owns only volatile state (answer/flag buffer, question pointer, local
// countdown); the upstream exam service stays the source of truth for
// attempt status, module sequencing and timing baseline. One Controller
// exists per (student, exam) pair and all operations are serialized on its
// mutex, mirroring the single-writer event loop the exam UI runs.
type Controller struct {
	mu  sync.Mutex
	svc examservice.Service
	log zerolog.Logger

	examID    uuid.UUID
	studentID int

	phase   Phase
	attempt *model.Attempt
	module  *model.Module

	nav       *Navigator
	buffer    *Buffer
	countdown *Countdown

	breakSeconds int
	submitting   bool
	closed       bool
	// moduleGen increments on every module/break entry. Countdown callbacks
	// carry the generation they were armed for, so an expiration that was
	// already in flight when a manual submit won the race cannot fire
	// against the next module.
	moduleGen int
	lastErr   *ErrorInfo
	results   *model.FinalResults

	listeners  map[int]chan Projection
	listenerID int
	touchedAt  time.Time
}

// NewController creates an idle Controller in the INSTRUCTIONS phase.
func NewController(svc examservice.Service, examID uuid.UUID, studentID int, breakSeconds int, log zerolog.Logger) *Controller {
	return &Controller{
		svc: svc,
		log: log.With().
			Str("component", "session_controller").
			Str("exam_id", examID.String()).
			Int("student_id", studentID).
			Logger(),
		examID:       examID,
		studentID:    studentID,
		phase:        PhaseInstructions,
		nav:          NewNavigator(),
		buffer:       NewBuffer(),
		countdown:    NewCountdown(),
		breakSeconds: breakSeconds,
		listeners:    make(map[int]chan Projection),
		touchedAt:    time.Now(),
	}
}

// Begin starts or resumes the attempt. From INSTRUCTIONS it creates (or
// re-fetches) the attempt upstream, issues an explicit start when the status
// is still CREATED, and enters whichever phase the upstream reports: the
// current module, a break, or the completed results. Calling Begin on a
// session that is already past INSTRUCTIONS is a no-op returning the current
// projection, so a page reload cannot restart the clock.
func (c *Controller) Begin(ctx context.Context) (Projection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return Projection{}, ErrSessionClosed
	}
	if c.phase != PhaseInstructions && c.phase != PhaseError {
		return c.projectionLocked(), nil
	}

	c.phase = PhaseStarting
	c.lastErr = nil
	c.broadcastLocked()

	attempt, err := c.svc.CreateAttempt(ctx, c.examID, c.studentID)
	if err != nil {
		return c.failLocked(PhaseInstructions, err)
	}

	if attempt.Status == model.AttemptStatusCreated {
		attempt, err = c.svc.StartAttempt(ctx, attempt.ID)
		if err != nil {
			return c.failLocked(PhaseInstructions, err)
		}
	}
	c.attempt = attempt

	switch attempt.Status {
	case model.AttemptStatusStarted:
		module, err := c.svc.GetCurrentModule(ctx, attempt.ID)
		if err != nil {
			return c.failLocked(PhaseInstructions, err)
		}
		c.enterModuleLocked(module)

	case model.AttemptStatusBreak:
		seconds := c.breakSeconds
		if attempt.RemainingSeconds != nil && *attempt.RemainingSeconds > 0 {
			seconds = *attempt.RemainingSeconds
		}
		c.enterBreakLocked(seconds)

	case model.AttemptStatusCompleted:
		if err := c.loadResultsLocked(ctx); err != nil {
			return c.failLocked(PhaseInstructions, err)
		}

	default:
		return c.failLocked(PhaseInstructions, examservice.ErrBadRequest)
	}

	return c.projectionLocked(), nil
}

// SetAnswer records an answer for a question in the current module. The
// value is not validated against the question type here; the upstream does
// that at submission.
func (c *Controller) SetAnswer(questionID uuid.UUID, value string) (Projection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireModuleLocked(questionID); err != nil {
		return Projection{}, err
	}
	c.buffer.SetAnswer(questionID, value)
	c.broadcastLocked()
	return c.projectionLocked(), nil
}

// ToggleFlag flips the review flag on a question. The toggle applies locally
// at once; the upstream sync runs fire-and-forget and its failure is logged
// and swallowed, since the submission snapshot reconciles flags anyway.
func (c *Controller) ToggleFlag(questionID uuid.UUID) (Projection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireModuleLocked(questionID); err != nil {
		return Projection{}, err
	}
	flagged := c.buffer.ToggleFlag(questionID)
	attemptID := c.attempt.ID

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), flagSyncTimeout)
		defer cancel()
		if err := c.svc.FlagQuestion(ctx, attemptID, questionID, flagged); err != nil {
			c.log.Warn().Err(err).Str("question_id", questionID.String()).Msg("Flag sync failed")
		}
	}()

	c.broadcastLocked()
	return c.projectionLocked(), nil
}

// GoTo moves the question pointer within the current module. Out-of-range
// indices leave the pointer unchanged.
func (c *Controller) GoTo(index int) (Projection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseInModule {
		return Projection{}, ErrWrongPhase
	}
	c.touchedAt = time.Now()
	c.nav.GoTo(index)
	c.broadcastLocked()
	return c.projectionLocked(), nil
}

// Next advances the question pointer by one.
func (c *Controller) Next() (Projection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseInModule {
		return Projection{}, ErrWrongPhase
	}
	c.touchedAt = time.Now()
	c.nav.Next()
	c.broadcastLocked()
	return c.projectionLocked(), nil
}

// Previous moves the question pointer back by one.
func (c *Controller) Previous() (Projection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseInModule {
		return Projection{}, ErrWrongPhase
	}
	c.touchedAt = time.Now()
	c.nav.Previous()
	c.broadcastLocked()
	return c.projectionLocked(), nil
}

// SubmitModule submits the current module explicitly. Countdown expiration
// funnels into the same routine, so both paths produce an identical upstream
// call carrying whatever partial snapshot exists — including an empty one.
func (c *Controller) SubmitModule(ctx context.Context) (Projection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitLocked(ctx)
	return c.projectionLocked(), nil
}

// ResumeNow ends a break early: the countdown is cancelled and the next
// module is fetched exactly as if the break had expired.
func (c *Controller) ResumeNow(ctx context.Context) (Projection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseOnBreak {
		return Projection{}, ErrWrongPhase
	}
	c.countdown.Cancel()
	c.resumeFromBreakLocked(ctx)
	return c.projectionLocked(), nil
}

// Projection returns a read-only snapshot of the session state.
func (c *Controller) Projection() Projection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionLocked()
}

// Close tears the session down without submitting: the countdown is
// cancelled so no stray expiration can fire submission logic afterwards, and
// the attempt stays resumable at its last server-confirmed state. This is
// the exit/pause path and the registry eviction path.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.countdown.Cancel()
	for id, ch := range c.listeners {
		close(ch)
		delete(c.listeners, id)
	}
	c.log.Info().Str("phase", string(c.phase)).Msg("Session closed")
}

// IdleSince reports the time of the last student-driven operation.
func (c *Controller) IdleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.touchedAt
}

// Subscribe registers a listener that receives a projection after every
// state change and countdown tick. The returned cancel func must be called
// when the consumer goes away.
func (c *Controller) Subscribe() (<-chan Projection, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.listenerID
	c.listenerID++
	ch := make(chan Projection, 16)
	c.listeners[id] = ch

	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if existing, ok := c.listeners[id]; ok {
			close(existing)
			delete(c.listeners, id)
		}
	}
	return ch, cancel
}

// ─── Internal transitions (mutex held) ──────────────────────────────

// enterModuleLocked attaches a freshly fetched module: buffer reset first,
// then navigator attach, then the countdown start. The reset-before-attach
// order keeps buffer keys a subset of the current module at all times.
func (c *Controller) enterModuleLocked(module *model.Module) {
	c.module = module
	c.buffer.Reset()
	c.nav.Attach(module.Questions)

	c.phase = PhaseInModule
	c.lastErr = nil

	c.moduleGen++
	gen := c.moduleGen
	c.countdown.Start(module.WorkSeconds(), c.onTick, func() { c.onModuleExpired(gen) })

	c.log.Info().
		Str("module_id", module.ID.String()).
		Str("section", string(module.SectionType)).
		Int("order", module.ModuleOrder).
		Int("seconds", module.WorkSeconds()).
		Msg("Entered module")
	c.broadcastLocked()
}

// enterBreakLocked starts the interstitial rest period. No answer/flag
// buffer exists during a break.
func (c *Controller) enterBreakLocked(seconds int) {
	c.module = nil
	c.buffer.Reset()
	c.nav.Attach(nil)

	c.phase = PhaseOnBreak
	c.lastErr = nil

	c.moduleGen++
	gen := c.moduleGen
	c.countdown.Start(seconds, c.onTick, func() { c.onBreakExpired(gen) })

	c.log.Info().Int("seconds", seconds).Msg("Entered break")
	c.broadcastLocked()
}

// submitLocked is the single submission routine shared by the manual action
// and countdown expiration. A second call while one submission is in flight
// is suppressed, so a manual click racing the expiry produces exactly one
// upstream call.
func (c *Controller) submitLocked(ctx context.Context) {
	if c.phase != PhaseInModule || c.submitting {
		return
	}

	c.submitting = true
	c.phase = PhaseSubmitting
	c.touchedAt = time.Now()

	// Hold the remaining time so a transient failure can resume the clock
	// instead of granting free minutes.
	remaining := c.countdown.Remaining()
	c.countdown.Cancel()

	answers, flagged := c.buffer.Snapshot()
	sub := &model.ModuleSubmission{
		ModuleID:         c.module.ID,
		Answers:          answers,
		FlaggedQuestions: flagged,
	}
	c.broadcastLocked()

	result, err := c.svc.SubmitModule(ctx, c.attempt.ID, sub)
	c.submitting = false

	if err != nil {
		c.handleSubmitErrorLocked(ctx, err, remaining)
		return
	}

	c.attempt = result.Attempt
	c.log.Info().
		Str("status", string(result.Attempt.Status)).
		Int("answers", len(answers)).
		Int("flags", len(flagged)).
		Msg("Module submitted")

	switch result.Attempt.Status {
	case model.AttemptStatusStarted:
		if result.NextModule != nil {
			c.enterModuleLocked(result.NextModule)
			return
		}
		// The upstream did not inline the next module. The submission is
		// already counted, so fetch through the same retryable wait state a
		// break resume uses: a transient failure here must not strand the
		// session in a terminal phase.
		c.module = nil
		c.buffer.Reset()
		c.nav.Attach(nil)
		c.phase = PhaseOnBreak
		// Zero the clock display; the module's held remaining time is over.
		c.countdown.Start(0, nil, nil)
		c.resumeFromBreakLocked(ctx)

	case model.AttemptStatusBreak:
		c.enterBreakLocked(c.breakSeconds)

	case model.AttemptStatusCompleted:
		if err := c.loadResultsLocked(ctx); err != nil {
			c.toErrorLocked(err)
		}

	default:
		c.toErrorLocked(examservice.ErrBadRequest)
	}
}

// handleSubmitErrorLocked keeps the never-drop-a-submission policy: a
// transient failure returns to IN_MODULE with the clock resumed (when time
// was left) and a retryable error; an attempt that is gone or already
// completed upstream is adopted or surfaced terminally.
func (c *Controller) handleSubmitErrorLocked(ctx context.Context, err error, remaining int) {
	if errors.Is(err, examservice.ErrAttemptCompleted) {
		// The upstream already counted a submission for this module. Adopt
		// the completed state instead of erroring.
		if resErr := c.loadResultsLocked(ctx); resErr != nil {
			c.toErrorLocked(resErr)
		}
		return
	}

	if errors.Is(err, examservice.ErrUnavailable) {
		c.phase = PhaseInModule
		c.lastErr = &ErrorInfo{
			Code:      "SUBMIT_RETRYABLE",
			Message:   "Submission could not reach the exam service. Your answers are kept; submit again.",
			Retryable: true,
		}
		if remaining > 0 {
			// Same module, same generation: the clock resumes rather than
			// restarts.
			gen := c.moduleGen
			c.countdown.Start(remaining, c.onTick, func() { c.onModuleExpired(gen) })
		}
		c.log.Warn().Err(err).Int("remaining", remaining).Msg("Submit failed, retryable")
		c.broadcastLocked()
		return
	}

	c.toErrorLocked(err)
}

// resumeFromBreakLocked fetches the next module after a break, entered both
// by break expiry and by the explicit resume action.
func (c *Controller) resumeFromBreakLocked(ctx context.Context) {
	module, err := c.svc.GetCurrentModule(ctx, c.attempt.ID)
	if err != nil {
		if errors.Is(err, examservice.ErrUnavailable) {
			// Stay on break with a retry affordance; the countdown is done
			// so only the explicit resume can re-enter.
			c.lastErr = &ErrorInfo{
				Code:      "RESUME_RETRYABLE",
				Message:   "Could not fetch the next module. Try resuming again.",
				Retryable: true,
			}
			c.log.Warn().Err(err).Msg("Break resume failed, retryable")
			c.broadcastLocked()
			return
		}
		c.toErrorLocked(err)
		return
	}
	c.enterModuleLocked(module)
}

// loadResultsLocked finalizes a completed attempt: no further timers run and
// the scored results are fetched once for display.
func (c *Controller) loadResultsLocked(ctx context.Context) error {
	c.countdown.Cancel()
	c.module = nil

	results, err := c.svc.GetResults(ctx, c.attempt.ID)
	if err != nil {
		return err
	}
	c.results = results
	c.attempt.Status = model.AttemptStatusCompleted
	c.phase = PhaseCompleted
	c.lastErr = nil
	c.log.Info().Int("total_score", results.TotalScore).Msg("Attempt completed")
	c.broadcastLocked()
	return nil
}

// failLocked records a failed transition: transient upstream trouble rolls
// back to the given phase as retryable, anything else is terminal.
func (c *Controller) failLocked(rollback Phase, err error) (Projection, error) {
	if errors.Is(err, examservice.ErrUnavailable) {
		c.phase = rollback
		c.lastErr = &ErrorInfo{
			Code:      "UPSTREAM_UNAVAILABLE",
			Message:   "The exam service is unreachable. Try again.",
			Retryable: true,
		}
		c.log.Warn().Err(err).Msg("Transition failed, retryable")
		c.broadcastLocked()
		return c.projectionLocked(), nil
	}
	c.toErrorLocked(err)
	return c.projectionLocked(), nil
}

// toErrorLocked moves the session to the terminal ERROR phase. The student
// is routed back to the exam list; re-entering builds a fresh controller.
func (c *Controller) toErrorLocked(err error) {
	c.countdown.Cancel()
	c.phase = PhaseError

	code := "SESSION_ERROR"
	switch {
	case errors.Is(err, examservice.ErrAttemptNotFound):
		code = "ATTEMPT_NOT_FOUND"
	case errors.Is(err, examservice.ErrAttemptCompleted):
		code = "ATTEMPT_COMPLETED"
	}
	c.lastErr = &ErrorInfo{Code: code, Message: err.Error(), Retryable: false}
	c.log.Error().Err(err).Msg("Session entered error state")
	c.broadcastLocked()
}

func (c *Controller) requireModuleLocked(questionID uuid.UUID) error {
	if c.closed {
		return ErrSessionClosed
	}
	if c.phase != PhaseInModule {
		return ErrWrongPhase
	}
	for i := range c.module.Questions {
		if c.module.Questions[i].ID == questionID {
			c.touchedAt = time.Now()
			return nil
		}
	}
	return ErrUnknownQuestion
}

// ─── Countdown callbacks ────────────────────────────────────────────

// onTick pushes a fresh projection to listeners each second.
func (c *Controller) onTick(remaining int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.broadcastLocked()
}

// onModuleExpired is the countdown expiration path into the shared
// submission routine. It must never panic: an escaped error here would stop
// the clock silently and strand the student mid-module. A stale generation
// means a manual submit already moved the session on while this callback
// waited for the mutex.
func (c *Controller) onModuleExpired(gen int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.phase != PhaseInModule || gen != c.moduleGen {
		return
	}
	c.log.Info().Msg("Module time expired, auto-submitting")
	c.submitLocked(context.Background())
}

// onBreakExpired auto-resumes into the next module when the break ends.
func (c *Controller) onBreakExpired(gen int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.phase != PhaseOnBreak || gen != c.moduleGen {
		return
	}
	c.log.Info().Msg("Break expired, resuming")
	c.resumeFromBreakLocked(context.Background())
}

// ─── Projection / broadcast ─────────────────────────────────────────

func (c *Controller) projectionLocked() Projection {
	p := Projection{
		Phase:            c.phase,
		RemainingSeconds: c.countdown.Remaining(),
		Results:          c.results,
		Error:            c.lastErr,
	}

	if c.attempt != nil {
		attempt := *c.attempt
		p.Attempt = &attempt
	}

	if c.module != nil {
		p.Module = &ModuleInfo{
			ID:               c.module.ID,
			SectionType:      c.module.SectionType,
			ModuleOrder:      c.module.ModuleOrder,
			TimeLimitMinutes: c.module.TimeLimitMinutes,
			Difficulty:       c.module.Difficulty,
			QuestionCount:    len(c.module.Questions),
		}
		p.Questions = c.module.Questions
		p.CurrentIndex = c.nav.Index()

		answers, flagged := c.buffer.Snapshot()
		p.AnsweredIDs = make([]uuid.UUID, 0, len(answers))
		for qid := range answers {
			p.AnsweredIDs = append(p.AnsweredIDs, qid)
		}
		p.FlaggedIDs = flagged
	} else {
		p.AnsweredIDs = []uuid.UUID{}
		p.FlaggedIDs = []uuid.UUID{}
	}

	return p
}

// broadcastLocked fans the current projection out to listeners. Slow
// consumers drop updates rather than block the controller.
func (c *Controller) broadcastLocked() {
	if len(c.listeners) == 0 {
		return
	}
	p := c.projectionLocked()
	for _, ch := range c.listeners {
		select {
		case ch <- p:
		default:
		}
	}
}
