package aggregate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-steps-nosql/internal/domain"
	"github.com/go-steps-nosql/internal/pkg/metrics"
)

type Service interface {
	// Aggregate sums step counts over every stored entry.
	Aggregate(ctx context.Context) (*domain.Total, error)
	// Running returns the incrementally maintained counter.
	Running(ctx context.Context) (*domain.Total, error)
	// Publish aggregates and stores the result as a snapshot, returning its location.
	Publish(ctx context.Context) (*domain.Total, string, error)
}

type entryScanner interface {
	ScanAll(ctx context.Context) ([]domain.Entry, error)
}

type runningTotals interface {
	RunningTotal(ctx context.Context) (*domain.Total, error)
}

type snapshotStore interface {
	PutSnapshot(ctx context.Context, t *domain.Total) (string, error)
}

// ServiceDeps wires the aggregate service. Totals and Snapshots are optional;
// the operations that need them return ErrNotSupported when unset.
type ServiceDeps struct {
	Store     entryScanner
	Totals    runningTotals
	Snapshots snapshotStore
	Metrics   *metrics.Manager
	Now       func() time.Time
}

type service struct {
	store     entryScanner
	totals    runningTotals
	snapshots snapshotStore
	metrics   *metrics.Manager
	now       func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		store:     deps.Store,
		totals:    deps.Totals,
		snapshots: deps.Snapshots,
		metrics:   deps.Metrics,
		now:       now,
	}
}

func (s *service) Aggregate(ctx context.Context) (*domain.Total, error) {
	start := time.Now()
	entries, err := s.store.ScanAll(ctx)
	if err != nil {
		s.metrics.RecordAggregation(time.Since(start), 0, err)
		if errors.Is(err, domain.ErrStorage) {
			s.metrics.RecordStorageError("aggregate")
		}
		return nil, err
	}
	sum, err := sumSteps(entries)
	if err != nil {
		s.metrics.RecordAggregation(time.Since(start), 0, err)
		return nil, err
	}
	t := &domain.Total{TotalSteps: sum, ComputedAtMs: s.now().UnixMilli()}
	s.metrics.RecordAggregation(time.Since(start), sum, nil)
	return t, nil
}

// sumSteps adds every step count, failing rather than wrapping past MaxInt64.
func sumSteps(entries []domain.Entry) (int64, error) {
	var sum int64
	for _, e := range entries {
		if e.StepCount < 0 || sum > math.MaxInt64-e.StepCount {
			return 0, fmt.Errorf("step_count %d on %s/%s overflows the total: %w",
				e.StepCount, e.UserID, e.RecordID, domain.ErrMalformedEntry)
		}
		sum += e.StepCount
	}
	return sum, nil
}

func (s *service) Running(ctx context.Context) (*domain.Total, error) {
	if s.totals == nil {
		return nil, fmt.Errorf("running total requires the conditional submission guard: %w", domain.ErrNotSupported)
	}
	t, err := s.totals.RunningTotal(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrStorage) {
			s.metrics.RecordStorageError("running_total")
		}
		return nil, err
	}
	// Commits can land out of timestamp order, so the counter's own stamp is
	// not monotonic; report when it was read.
	t.ComputedAtMs = s.now().UnixMilli()
	return t, nil
}

func (s *service) Publish(ctx context.Context) (*domain.Total, string, error) {
	if s.snapshots == nil {
		return nil, "", fmt.Errorf("no snapshot bucket configured: %w", domain.ErrNotSupported)
	}
	t, err := s.Aggregate(ctx)
	if err != nil {
		return nil, "", err
	}
	loc, err := s.snapshots.PutSnapshot(ctx, t)
	if err != nil {
		return nil, "", err
	}
	return t, loc, nil
}
