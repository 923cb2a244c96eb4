package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-steps-nosql/internal/domain"
	"github.com/go-steps-nosql/internal/pkg/reqlog"
	"github.com/go-steps-nosql/internal/transport/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mock ---

type mockSubmissionSvc struct{ mock.Mock }

func (m *mockSubmissionSvc) Submit(ctx context.Context, userID string, req domain.SubmitStepsRequest) (*domain.Entry, error) {
	args := m.Called(ctx, userID, req)
	if e, _ := args.Get(0).(*domain.Entry); e != nil {
		return e, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- helpers ---

const identityHeader = "X-User-Id"

func withIdentity(h http.HandlerFunc) http.Handler {
	return middleware.Identity(identityHeader, nil)(h)
}

func postSteps(t *testing.T, h http.Handler, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/steps", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(identityHeader, userID)
	}
	req = req.WithContext(reqlog.WithRequestID(req.Context(), "req-1"))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) MessageEnvelope {
	t.Helper()
	var env MessageEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	return env
}

// captureLogs routes the default logger into a buffer for the test's duration.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return buf
}

func matchSteps(n int64) interface{} {
	return mock.MatchedBy(func(req domain.SubmitStepsRequest) bool {
		return req.Steps != nil && *req.Steps == n
	})
}

// --- Submit ---

func TestSubmit_Created(t *testing.T) {
	svc := &mockSubmissionSvc{}
	entry := &domain.Entry{UserID: "u1", RecordID: "r1", Timestamp: 1717254245000, StepCount: 4321}
	svc.On("Submit", mock.Anything, "u1", matchSteps(4321)).Return(entry, nil)

	rr := postSteps(t, withIdentity(NewStepsHandler(svc).Submit), "u1", `{"steps":4321}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	var got domain.Entry
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, *entry, got)
	svc.AssertExpectations(t)
}

func TestSubmit_ErrorMapping(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
	}{
		"invalid":   {fmt.Errorf("negative steps: %w", domain.ErrInvalidInput), http.StatusBadRequest},
		"duplicate": {domain.ErrAlreadySubmittedToday, http.StatusConflict},
		"storage":   {fmt.Errorf("put: %w: %w", domain.ErrStorage, errors.New("throttled")), http.StatusInternalServerError},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &mockSubmissionSvc{}
			svc.On("Submit", mock.Anything, "u1", mock.Anything).Return(nil, tc.err)

			rr := postSteps(t, withIdentity(NewStepsHandler(svc).Submit), "u1", `{"steps":1}`)
			assert.Equal(t, tc.status, rr.Code)
			env := decodeEnvelope(t, rr)
			assert.NotEmpty(t, env.Error)
			assert.Equal(t, "req-1", env.RequestID)
		})
	}
}

func TestSubmit_StorageErrorIsNotLeaked(t *testing.T) {
	svc := &mockSubmissionSvc{}
	svc.On("Submit", mock.Anything, "u1", mock.Anything).
		Return(nil, fmt.Errorf("put: %w: %w", domain.ErrStorage, errors.New("arn:aws:dynamodb:secret")))

	rr := postSteps(t, withIdentity(NewStepsHandler(svc).Submit), "u1", `{"steps":1}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "arn:aws")
}

func TestSubmit_MalformedBody(t *testing.T) {
	logs := captureLogs(t)
	svc := &mockSubmissionSvc{}
	rr := postSteps(t, withIdentity(NewStepsHandler(svc).Submit), "u1", `{"steps":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "req-1", decodeEnvelope(t, rr).RequestID)
	svc.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything)

	assert.Contains(t, logs.String(), `msg="could not parse body"`)
	assert.Contains(t, logs.String(), "request_id=req-1")
}

func TestSubmit_MissingIdentity(t *testing.T) {
	logs := captureLogs(t)
	svc := &mockSubmissionSvc{}
	rr := postSteps(t, withIdentity(NewStepsHandler(svc).Submit), "", `{"steps":1}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	svc.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything)

	assert.Contains(t, logs.String(), `msg="missing user identity"`)
	assert.Contains(t, logs.String(), "request_id=req-1")
}

func TestSubmit_WithoutIdentityMiddleware(t *testing.T) {
	svc := &mockSubmissionSvc{}
	rr := postSteps(t, http.HandlerFunc(NewStepsHandler(svc).Submit), "u1", `{"steps":1}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
