package repositories

import (
	"context"
	"time"

	"github.com/mamadbah2/pumpschedule/internal/domain/models"
)

// EntryRepository is the persistence collaborator that owns the durable copy
// of every schedule entry. Implementations return models.ErrNotFound for
// unknown identities; any other error is treated as a store failure.
//
// Insert, Replace and Remove must be all-or-nothing.
type EntryRepository interface {
	// Insert stores a new entry and returns its generated identity. The ID
	// field of entry is ignored.
	Insert(ctx context.Context, entry models.ScheduleEntry) (string, error)
	// Replace overwrites every field of the entry with the given identity.
	Replace(ctx context.Context, id string, entry models.ScheduleEntry) error
	// Remove deletes the entry with the given identity.
	Remove(ctx context.Context, id string) error
	// FindByID loads one entry.
	FindByID(ctx context.Context, id string) (models.ScheduleEntry, error)
	// QueryByDate returns the entries whose start falls in [from, to).
	QueryByDate(ctx context.Context, from, to time.Time) ([]models.ScheduleEntry, error)
	// LatestStart returns the most recent start stored for the pair.
	LatestStart(ctx context.Context, company, product string) (time.Time, bool, error)
	// Close releases the underlying resources.
	Close(ctx context.Context) error
}
