package submission

import (
	"context"
	"time"

	"github.com/go-steps-nosql/internal/domain"
	"github.com/go-steps-nosql/internal/pkg/id"
)

type entryWriter interface {
	Put(ctx context.Context, e *domain.Entry) error
}

// guardedWriter commits an entry only if it is the user's first for its UTC day.
type guardedWriter interface {
	PutFirstOfDay(ctx context.Context, e *domain.Entry) error
}

// Writer persists admitted submissions.
type Writer struct {
	store   entryWriter
	guarded guardedWriter
	newID   func() string
}

// NewWriter returns a Writer. With a nil guarded writer entries are written with
// a plain put (check-then-write); otherwise through the conditional daily guard.
func NewWriter(store entryWriter, guarded guardedWriter) *Writer {
	return &Writer{store: store, guarded: guarded, newID: id.NewRecordID}
}

// Write stores a new entry stamped with now and returns it. Nothing is stored on error.
func (w *Writer) Write(ctx context.Context, userID string, steps int64, now time.Time) (*domain.Entry, error) {
	e := &domain.Entry{
		UserID:    userID,
		RecordID:  w.newID(),
		Timestamp: now.UnixMilli(),
		StepCount: steps,
	}
	var err error
	if w.guarded != nil {
		err = w.guarded.PutFirstOfDay(ctx, e)
	} else {
		err = w.store.Put(ctx, e)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}
