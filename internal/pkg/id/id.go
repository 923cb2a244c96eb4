package id

import (
	"crypto/rand"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. ULIDs are lexicographically sortable by
// creation time; used for correlation and event identifiers.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// NewRecordID returns a random 128-bit (v4) UUID used as an entry sort key.
func NewRecordID() string {
	return uuid.NewString()
}
