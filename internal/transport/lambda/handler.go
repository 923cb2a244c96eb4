// Package lambda adapts API Gateway proxy events onto the submission and
// aggregate services.
package lambda

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/go-steps-nosql/internal/application/aggregate"
	"github.com/go-steps-nosql/internal/application/submission"
	"github.com/go-steps-nosql/internal/domain"
	"github.com/go-steps-nosql/internal/pkg/id"
	"github.com/go-steps-nosql/internal/pkg/reqlog"
)

var corsHeaders = map[string]string{
	"Content-Type":                     "application/json",
	"Access-Control-Allow-Origin":      "*",
	"Access-Control-Allow-Credentials": "true",
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// Handlers holds one function per deployed Lambda.
type Handlers struct {
	submissions submission.Service
	totals      aggregate.Service
}

func NewHandlers(submissions submission.Service, totals aggregate.Service) *Handlers {
	return &Handlers{submissions: submissions, totals: totals}
}

// Submit stores the caller's daily step count. The caller is the Cognito
// identity attached by API Gateway.
func (h *Handlers) Submit(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ctx = withRequestID(ctx, req)

	userID := req.RequestContext.Identity.CognitoIdentityID
	if userID == "" {
		return respondError(ctx, http.StatusUnauthorized, "not authorized: no user id present"), nil
	}
	var body domain.SubmitStepsRequest
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		reqlog.From(ctx).Info("could not parse body", "err", err)
		return respondError(ctx, http.StatusBadRequest, "error parsing body"), nil
	}

	e, err := h.submissions.Submit(ctx, userID, body)
	if err != nil {
		return respondServiceError(ctx, err), nil
	}
	return respond(http.StatusOK, e), nil
}

// Total returns the full-scan sum of every stored step count.
func (h *Handlers) Total(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ctx = withRequestID(ctx, req)

	t, err := h.totals.Aggregate(ctx)
	if err != nil {
		return respondServiceError(ctx, err), nil
	}
	return respond(http.StatusOK, t), nil
}

// withRequestID prefers the invocation's AwsRequestID, then the gateway's
// request id, then a fresh ULID.
func withRequestID(ctx context.Context, req events.APIGatewayProxyRequest) context.Context {
	rid := req.RequestContext.RequestID
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		rid = lc.AwsRequestID
	}
	if rid == "" {
		rid = id.New()
	}
	return reqlog.WithRequestID(ctx, rid)
}

func respond(status int, v interface{}) events.APIGatewayProxyResponse {
	b, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		b = []byte(`{"error":"internal error"}`)
	}
	return events.APIGatewayProxyResponse{StatusCode: status, Headers: headers(), Body: string(b)}
}

func respondError(ctx context.Context, status int, msg string) events.APIGatewayProxyResponse {
	return respond(status, errorBody{Error: msg, RequestID: reqlog.RequestID(ctx)})
}

func respondServiceError(ctx context.Context, err error) events.APIGatewayProxyResponse {
	log := reqlog.From(ctx)
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		log.Info("invalid request", "err", err)
		return respondError(ctx, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrAlreadySubmittedToday):
		log.Info("submission rejected", "err", err)
		return respondError(ctx, http.StatusConflict, domain.ErrAlreadySubmittedToday.Error())
	default:
		log.Error("invocation failed", "err", err)
		return respondError(ctx, http.StatusInternalServerError, "internal error")
	}
}

func headers() map[string]string {
	h := make(map[string]string, len(corsHeaders))
	for k, v := range corsHeaders {
		h[k] = v
	}
	return h
}
