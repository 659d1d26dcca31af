// Package store persists file records and answers "what relates to this
// file" queries. The database is an accumulating ledger: rows are upserted,
// never aged out, so a checksum computed once keeps paying for itself across
// sweeps.
package store

import (
	"context"

	"github.com/avandam/datasweep/pkg/models"
)

// RecordStore is the persistence contract for file records.
//
// Matches performs any coarse pre-filtering it likes, but the returned
// records are always re-classified locally against the subject; the store is
// an optimization, never the classification authority.
type RecordStore interface {
	// Add upserts a record. Writing the same (location, algorithm) pair again
	// replaces the previous row, so re-scans are idempotent.
	Add(ctx context.Context, rec models.FileRecord) error

	// Matches returns stored records whose classification against subject
	// falls in any of the given sets. With no sets, every non-ignored match
	// is returned. The subject's own row, if present, classifies as a self
	// kind and is returned when a self set is requested.
	Matches(ctx context.Context, subject models.FileRecord, sets ...models.MatchSet) ([]models.FileRecord, error)

	// BySession returns every record belonging to a session, any tier
	BySession(ctx context.Context, sessionID string) ([]models.FileRecord, error)

	Close() error
}
