package submission

import (
	"context"
	"fmt"
	"time"

	"github.com/go-steps-nosql/internal/domain"
)

type entryReader interface {
	QueryByUserSince(ctx context.Context, userID string, sinceMs int64) ([]domain.Entry, error)
}

// Validator admits at most one submission per user per UTC calendar day.
type Validator struct {
	store entryReader
}

func NewValidator(store entryReader) *Validator { return &Validator{store: store} }

// Admit returns ErrAlreadySubmittedToday when the user has an entry stamped
// strictly after today's UTC midnight. An entry exactly at midnight does not count.
func (v *Validator) Admit(ctx context.Context, userID string, now time.Time) error {
	midnight := domain.StartOfDayUTC(now).UnixMilli()
	existing, err := v.store.QueryByUserSince(ctx, userID, midnight)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return fmt.Errorf("user %s has %d entries since %d: %w", userID, len(existing), midnight, domain.ErrAlreadySubmittedToday)
	}
	return nil
}
