package submission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-steps-nosql/internal/domain"
	"github.com/go-steps-nosql/internal/pkg/metrics"
	"github.com/go-steps-nosql/internal/pkg/reqlog"
	"github.com/go-steps-nosql/internal/pkg/validate"
)

type Service interface {
	// Submit validates and stores one daily step submission for userID.
	Submit(ctx context.Context, userID string, req domain.SubmitStepsRequest) (*domain.Entry, error)
}

type entryStore interface {
	entryReader
	entryWriter
}

type eventPublisher interface {
	PublishSubmission(ctx context.Context, e *domain.Entry) error
}

// ServiceDeps wires the submission service.
type ServiceDeps struct {
	Store entryStore
	// Guarded enables the conditional daily guard; nil keeps check-then-write.
	Guarded   guardedWriter
	Publisher eventPublisher // optional
	Metrics   *metrics.Manager
	MaxSteps  int64 // 0 means unbounded
	Now       func() time.Time
}

type service struct {
	validator *Validator
	writer    *Writer
	publisher eventPublisher
	metrics   *metrics.Manager
	maxSteps  int64
	now       func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		validator: NewValidator(deps.Store),
		writer:    NewWriter(deps.Store, deps.Guarded),
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		maxSteps:  deps.MaxSteps,
		now:       now,
	}
}

func (s *service) Submit(ctx context.Context, userID string, req domain.SubmitStepsRequest) (*domain.Entry, error) {
	if err := s.check(userID, req); err != nil {
		s.metrics.RecordSubmission(metrics.OutcomeInvalid, 0)
		return nil, err
	}
	steps := *req.Steps

	// The same instant drives the midnight boundary and the stored timestamp.
	now := s.now()
	if err := s.validator.Admit(ctx, userID, now); err != nil {
		s.fail(err)
		return nil, err
	}
	e, err := s.writer.Write(ctx, userID, steps, now)
	if err != nil {
		s.fail(err)
		return nil, err
	}
	s.metrics.RecordSubmission(metrics.OutcomeAccepted, steps)

	if s.publisher != nil {
		if err := s.publisher.PublishSubmission(ctx, e); err != nil {
			reqlog.From(ctx).Warn("failed to publish submission event", "user_id", userID, "record_id", e.RecordID, "err", err)
		}
	}
	return e, nil
}

func (s *service) check(userID string, req domain.SubmitStepsRequest) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("missing user id: %w", domain.ErrInvalidInput)
	}
	if err := validate.Struct(&req); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if s.maxSteps > 0 && *req.Steps > s.maxSteps {
		return fmt.Errorf("steps %d exceed limit %d: %w", *req.Steps, s.maxSteps, domain.ErrInvalidInput)
	}
	return nil
}

func (s *service) fail(err error) {
	if errors.Is(err, domain.ErrAlreadySubmittedToday) {
		s.metrics.RecordSubmission(metrics.OutcomeRejected, 0)
		return
	}
	s.metrics.RecordSubmission(metrics.OutcomeError, 0)
	if errors.Is(err, domain.ErrStorage) {
		s.metrics.RecordStorageError("submit")
	}
}
