package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mamadbah2/pumpschedule/internal/domain/models"
	"github.com/mamadbah2/pumpschedule/internal/domain/repositories"
)

// EntryRepository provides in-memory entry storage in insertion order.
type EntryRepository struct {
	mu      sync.RWMutex
	entries []models.ScheduleEntry
	index   map[string]int
	newID   func() string
}

// NewEntryRepository creates a new in-memory entry repository
func NewEntryRepository() *EntryRepository {
	return &EntryRepository{
		index: make(map[string]int),
		newID: uuid.NewString,
	}
}

// Verify interface compliance
var _ repositories.EntryRepository = (*EntryRepository)(nil)

// Insert stores a copy of entry under a fresh identity.
func (r *EntryRepository) Insert(ctx context.Context, entry models.ScheduleEntry) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.ID = r.newID()
	if _, exists := r.index[entry.ID]; exists {
		return "", fmt.Errorf("duplicate entry id %s", entry.ID)
	}
	r.index[entry.ID] = len(r.entries)
	r.entries = append(r.entries, entry)
	return entry.ID, nil
}

// Replace overwrites the stored entry.
func (r *EntryRepository) Replace(ctx context.Context, id string, entry models.ScheduleEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	i, exists := r.index[id]
	if !exists {
		return models.ErrNotFound
	}
	entry.ID = id
	r.entries[i] = entry
	return nil
}

// Remove deletes the entry and keeps the remaining ones in insertion order.
func (r *EntryRepository) Remove(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	i, exists := r.index[id]
	if !exists {
		return models.ErrNotFound
	}
	r.entries = append(r.entries[:i], r.entries[i+1:]...)
	delete(r.index, id)
	for j := i; j < len(r.entries); j++ {
		r.index[r.entries[j].ID] = j
	}
	return nil
}

// FindByID returns a copy of the stored entry.
func (r *EntryRepository) FindByID(ctx context.Context, id string) (models.ScheduleEntry, error) {
	if err := ctx.Err(); err != nil {
		return models.ScheduleEntry{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, exists := r.index[id]
	if !exists {
		return models.ScheduleEntry{}, models.ErrNotFound
	}
	return r.entries[i], nil
}

// QueryByDate returns the entries starting in [from, to).
func (r *EntryRepository) QueryByDate(ctx context.Context, from, to time.Time) ([]models.ScheduleEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []models.ScheduleEntry{}
	for _, e := range r.entries {
		if !e.Start.Before(from) && e.Start.Before(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

// LatestStart returns the latest start recorded for the pair.
func (r *EntryRepository) LatestStart(ctx context.Context, company, product string) (time.Time, bool, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		latest time.Time
		found  bool
	)
	for _, e := range r.entries {
		if e.Company != company || e.Product != product {
			continue
		}
		if !found || e.Start.After(latest) {
			latest = e.Start
			found = true
		}
	}
	return latest, found, nil
}

// Close is a no-op.
func (r *EntryRepository) Close(context.Context) error { return nil }
