package examservice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/satfergana/bluebook-gateway/internal/config"
	"github.com/satfergana/bluebook-gateway/internal/model"
)

// Service is the upstream exam service contract. The upstream owns attempt
// state, module sequencing, timing baseline, adaptivity and scoring; the
// gateway only drives it through these operations.
type Service interface {
	CreateAttempt(ctx context.Context, examID uuid.UUID, studentID int) (*model.Attempt, error)
	StartAttempt(ctx context.Context, attemptID uuid.UUID) (*model.Attempt, error)
	GetAttemptStatus(ctx context.Context, attemptID uuid.UUID) (*model.Attempt, error)
	GetCurrentModule(ctx context.Context, attemptID uuid.UUID) (*model.Module, error)
	SubmitModule(ctx context.Context, attemptID uuid.UUID, sub *model.ModuleSubmission) (*SubmitResult, error)
	FlagQuestion(ctx context.Context, attemptID, questionID uuid.UUID, flagged bool) error
	GetResults(ctx context.Context, attemptID uuid.UUID) (*model.FinalResults, error)
}

// SubmitResult is the upstream's answer to a module submission: the updated
// attempt plus the next module when the attempt continues immediately.
type SubmitResult struct {
	Attempt    *model.Attempt `json:"attempt"`
	NextModule *model.Module  `json:"next_module,omitempty"`
}

// upstreamError is the error body shape the exam service returns.
type upstreamError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client is the resty-backed implementation of Service.
type Client struct {
	http *resty.Client
	log  zerolog.Logger
}

// NewClient creates a Client against cfg.ExamAPIBaseURL. Transient failures
// (network errors and 5xx) are retried with backoff up to cfg.ExamAPIRetries
// times before surfacing ErrUnavailable.
func NewClient(cfg *config.Config, log zerolog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.ExamAPIBaseURL).
		SetTimeout(cfg.ExamAPITimeout).
		SetRetryCount(cfg.ExamAPIRetries).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})

	return &Client{
		http: httpClient,
		log:  log.With().Str("component", "examservice_client").Logger(),
	}
}

// CreateAttempt creates (or returns the existing) attempt for a student on an
// exam. The upstream treats this as idempotent per (exam, student).
func (c *Client) CreateAttempt(ctx context.Context, examID uuid.UUID, studentID int) (*model.Attempt, error) {
	var attempt model.Attempt
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{"exam_id": examID, "student_id": studentID}).
		SetResult(&attempt).
		Post("/attempts")
	if err := c.check(resp, err, "create attempt"); err != nil {
		return nil, err
	}
	return &attempt, nil
}

// StartAttempt moves a CREATED attempt to STARTED. Starting an attempt that
// is already STARTED is tolerated: a conflict response is treated as success
// and the current state is re-fetched.
func (c *Client) StartAttempt(ctx context.Context, attemptID uuid.UUID) (*model.Attempt, error) {
	var attempt model.Attempt
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&attempt).
		Post(fmt.Sprintf("/attempts/%s/start", attemptID))
	if err == nil && resp != nil && resp.StatusCode() == http.StatusConflict {
		// Already started elsewhere. Not an error for us.
		return c.GetAttemptStatus(ctx, attemptID)
	}
	if err := c.check(resp, err, "start attempt"); err != nil {
		return nil, err
	}
	return &attempt, nil
}

// GetAttemptStatus fetches the authoritative attempt state, including the
// server-reported remaining seconds for an in-progress phase.
func (c *Client) GetAttemptStatus(ctx context.Context, attemptID uuid.UUID) (*model.Attempt, error) {
	var attempt model.Attempt
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&attempt).
		Get(fmt.Sprintf("/attempts/%s", attemptID))
	if err := c.check(resp, err, "get attempt status"); err != nil {
		return nil, err
	}
	return &attempt, nil
}

// GetCurrentModule fetches the module the attempt is currently positioned at.
func (c *Client) GetCurrentModule(ctx context.Context, attemptID uuid.UUID) (*model.Module, error) {
	var module model.Module
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&module).
		Get(fmt.Sprintf("/attempts/%s/current-module", attemptID))
	if err := c.check(resp, err, "get current module"); err != nil {
		return nil, err
	}
	return &module, nil
}

// SubmitModule flushes the full answer/flag snapshot for the given module and
// returns the upstream's verdict on what comes next.
func (c *Client) SubmitModule(ctx context.Context, attemptID uuid.UUID, sub *model.ModuleSubmission) (*SubmitResult, error) {
	var result SubmitResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(sub).
		SetResult(&result).
		Post(fmt.Sprintf("/attempts/%s/modules/%s/submit", attemptID, sub.ModuleID))
	if err := c.check(resp, err, "submit module"); err != nil {
		return nil, err
	}
	if result.Attempt == nil {
		return nil, fmt.Errorf("submit module: %w: missing attempt in response", ErrBadRequest)
	}
	return &result, nil
}

// FlagQuestion syncs a single flag toggle upstream. Best effort: callers run
// it fire-and-forget and only log failures.
func (c *Client) FlagQuestion(ctx context.Context, attemptID, questionID uuid.UUID, flagged bool) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{"question_id": questionID, "flagged": flagged}).
		Post(fmt.Sprintf("/attempts/%s/flags", attemptID))
	return c.check(resp, err, "flag question")
}

// GetResults fetches the final scored results of a completed attempt.
func (c *Client) GetResults(ctx context.Context, attemptID uuid.UUID) (*model.FinalResults, error) {
	var results model.FinalResults
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&results).
		Get(fmt.Sprintf("/attempts/%s/results", attemptID))
	if err := c.check(resp, err, "get results"); err != nil {
		return nil, err
	}
	return &results, nil
}

// check converts a resty response into the sentinel error taxonomy.
func (c *Client) check(resp *resty.Response, err error, op string) error {
	if err != nil {
		c.log.Warn().Err(err).Str("op", op).Msg("Upstream request failed")
		return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}
	if resp.IsSuccess() {
		return nil
	}

	var body upstreamError
	_ = json.Unmarshal(resp.Body(), &body)

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, ErrAttemptNotFound)
	case resp.StatusCode() == http.StatusGone || body.Error.Code == "ATTEMPT_COMPLETED":
		return fmt.Errorf("%s: %w", op, ErrAttemptCompleted)
	case resp.StatusCode() >= http.StatusInternalServerError:
		c.log.Warn().Int("status", resp.StatusCode()).Str("op", op).Msg("Upstream error after retries")
		return fmt.Errorf("%s: %w: status %d", op, ErrUnavailable, resp.StatusCode())
	default:
		return fmt.Errorf("%s: %w: status %d %s", op, ErrBadRequest, resp.StatusCode(), body.Error.Code)
	}
}
