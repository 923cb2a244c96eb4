// Package memory is an in-process entry store used for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-steps-nosql/internal/domain"
)

type entryKey struct {
	userID   string
	recordID string
}

type guardKey struct {
	userID string
	day    string
}

// EntryStore mirrors the DynamoDB repo semantics: item-level atomic puts,
// strict-greater timestamp queries and a transactional first-of-day write.
type EntryStore struct {
	mu      sync.RWMutex
	entries map[entryKey]domain.Entry
	guards  map[guardKey]string
	total   domain.Total
}

func NewEntryStore() *EntryStore {
	return &EntryStore{
		entries: make(map[entryKey]domain.Entry),
		guards:  make(map[guardKey]string),
	}
}

func (s *EntryStore) Put(ctx context.Context, e *domain.Entry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("put entry: %w: %w", domain.ErrStorage, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entryKey{e.UserID, e.RecordID}] = *e
	return nil
}

func (s *EntryStore) QueryByUserSince(ctx context.Context, userID string, sinceMs int64) ([]domain.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("query entries: %w: %w", domain.ErrStorage, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Entry
	for k, e := range s.entries {
		if k.userID == userID && e.Timestamp > sinceMs {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *EntryStore) ScanAll(ctx context.Context) ([]domain.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scan entries: %w: %w", domain.ErrStorage, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out, nil
}

// PutFirstOfDay writes e and bumps the running total unless the user already
// has an entry guarded for e's UTC day.
func (s *EntryStore) PutFirstOfDay(ctx context.Context, e *domain.Entry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transact put entry: %w: %w", domain.ErrStorage, err)
	}
	day := domain.DayUTC(time.UnixMilli(e.Timestamp))
	s.mu.Lock()
	defer s.mu.Unlock()
	gk := guardKey{e.UserID, day}
	if _, ok := s.guards[gk]; ok {
		return fmt.Errorf("user %s on %s: %w", e.UserID, day, domain.ErrAlreadySubmittedToday)
	}
	s.guards[gk] = e.RecordID
	s.entries[entryKey{e.UserID, e.RecordID}] = *e
	s.total.TotalSteps += e.StepCount
	if e.Timestamp > s.total.ComputedAtMs {
		s.total.ComputedAtMs = e.Timestamp
	}
	return nil
}

func (s *EntryStore) RunningTotal(ctx context.Context) (*domain.Total, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get running total: %w: %w", domain.ErrStorage, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t := s.total
	return &t, nil
}

// Len returns the number of stored entries.
func (s *EntryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
