package examservice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/satfergana/bluebook-gateway/internal/config"
	"github.com/satfergana/bluebook-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		ExamAPIBaseURL: srv.URL,
		ExamAPITimeout: 2 * time.Second,
		ExamAPIRetries: 2,
	}
	return NewClient(cfg, zerolog.Nop())
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestCreateAttemptPostsExamAndStudent(t *testing.T) {
	examID := uuid.New()
	attemptID := uuid.New()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/attempts", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, examID.String(), body["exam_id"])
		assert.Equal(t, float64(7), body["student_id"])

		writeJSON(w, http.StatusCreated, model.Attempt{
			ID:     attemptID,
			ExamID: examID,
			Status: model.AttemptStatusCreated,
		})
	}))

	attempt, err := client.CreateAttempt(context.Background(), examID, 7)
	require.NoError(t, err)
	assert.Equal(t, attemptID, attempt.ID)
	assert.Equal(t, model.AttemptStatusCreated, attempt.Status)
}

func TestStartAttemptConflictFallsBackToStatus(t *testing.T) {
	attemptID := uuid.New()
	var statusFetches int32

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost:
			assert.Equal(t, fmt.Sprintf("/attempts/%s/start", attemptID), r.URL.Path)
			writeJSON(w, http.StatusConflict, map[string]interface{}{
				"error": map[string]string{"code": "ALREADY_STARTED"},
			})
		default:
			atomic.AddInt32(&statusFetches, 1)
			assert.Equal(t, fmt.Sprintf("/attempts/%s", attemptID), r.URL.Path)
			writeJSON(w, http.StatusOK, model.Attempt{
				ID:     attemptID,
				Status: model.AttemptStatusStarted,
			})
		}
	}))

	attempt, err := client.StartAttempt(context.Background(), attemptID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptStatusStarted, attempt.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&statusFetches))
}

func TestClientRetriesServerErrors(t *testing.T) {
	attemptID := uuid.New()
	var calls int32

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			writeJSON(w, http.StatusBadGateway, map[string]string{})
			return
		}
		writeJSON(w, http.StatusOK, model.Attempt{ID: attemptID, Status: model.AttemptStatusStarted})
	}))

	attempt, err := client.GetAttemptStatus(context.Background(), attemptID)
	require.NoError(t, err)
	assert.Equal(t, attemptID, attempt.ID)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestExhaustedRetriesSurfaceUnavailable(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{})
	}))

	_, err := client.GetAttemptStatus(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNotFoundMapsToSentinel(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"error": map[string]string{"code": "ATTEMPT_NOT_FOUND"},
		})
	}))

	_, err := client.GetCurrentModule(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrAttemptNotFound)
}

func TestCompletedAttemptMapsToSentinel(t *testing.T) {
	byGone := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusGone, map[string]interface{}{})
	})
	byCode := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error": map[string]string{"code": "ATTEMPT_COMPLETED"},
		})
	})

	for name, handler := range map[string]http.Handler{"gone": byGone, "code": byCode} {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, handler)
			sub := &model.ModuleSubmission{ModuleID: uuid.New()}
			_, err := client.SubmitModule(context.Background(), uuid.New(), sub)
			assert.ErrorIs(t, err, ErrAttemptCompleted)
		})
	}
}

func TestSubmitModulePostsSnapshotAndParsesVerdict(t *testing.T) {
	attemptID := uuid.New()
	moduleID := uuid.New()
	q1, q2 := uuid.New(), uuid.New()
	nextID := uuid.New()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, fmt.Sprintf("/attempts/%s/modules/%s/submit", attemptID, moduleID), r.URL.Path)

		var sub model.ModuleSubmission
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sub))
		assert.Equal(t, moduleID, sub.ModuleID)
		assert.Equal(t, "A", sub.Answers[q1])
		assert.Equal(t, []uuid.UUID{q2}, sub.FlaggedQuestions)

		writeJSON(w, http.StatusOK, SubmitResult{
			Attempt:    &model.Attempt{ID: attemptID, Status: model.AttemptStatusStarted},
			NextModule: &model.Module{ID: nextID, SectionType: model.SectionReadingWriting, ModuleOrder: 2},
		})
	}))

	result, err := client.SubmitModule(context.Background(), attemptID, &model.ModuleSubmission{
		ModuleID:         moduleID,
		Answers:          map[uuid.UUID]string{q1: "A"},
		FlaggedQuestions: []uuid.UUID{q2},
	})
	require.NoError(t, err)
	assert.Equal(t, model.AttemptStatusStarted, result.Attempt.Status)
	require.NotNil(t, result.NextModule)
	assert.Equal(t, nextID, result.NextModule.ID)
}

func TestSubmitModuleWithoutAttemptIsBadRequest(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{})
	}))

	sub := &model.ModuleSubmission{ModuleID: uuid.New()}
	_, err := client.SubmitModule(context.Background(), uuid.New(), sub)
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestFlagQuestionPostsToggle(t *testing.T) {
	attemptID := uuid.New()
	questionID := uuid.New()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, fmt.Sprintf("/attempts/%s/flags", attemptID), r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, questionID.String(), body["question_id"])
		assert.Equal(t, true, body["flagged"])

		writeJSON(w, http.StatusNoContent, nil)
	}))

	err := client.FlagQuestion(context.Background(), attemptID, questionID, true)
	assert.NoError(t, err)
}

func TestGetResultsParsesScores(t *testing.T) {
	attemptID := uuid.New()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, fmt.Sprintf("/attempts/%s/results", attemptID), r.URL.Path)
		writeJSON(w, http.StatusOK, model.FinalResults{
			AttemptID:  attemptID,
			TotalScore: 1310,
			MaxScore:   1600,
			SectionScores: []model.SectionScore{
				{SectionType: model.SectionReadingWriting, Score: 650, MaxScore: 800},
				{SectionType: model.SectionMath, Score: 660, MaxScore: 800},
			},
		})
	}))

	results, err := client.GetResults(context.Background(), attemptID)
	require.NoError(t, err)
	assert.Equal(t, 1310, results.TotalScore)
	require.Len(t, results.SectionScores, 2)
	assert.Equal(t, model.SectionMath, results.SectionScores[1].SectionType)
}
