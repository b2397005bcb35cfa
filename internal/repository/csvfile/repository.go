// Package csvfile keeps schedule entries in a flat CSV file.
//
// The whole file is rewritten on every change through a temporary file and a
// rename, so a failed write leaves the previous contents in place.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/pumpschedule/internal/domain/models"
	"github.com/mamadbah2/pumpschedule/internal/domain/repositories"
)

var header = []string{"id", "company", "product", "quota", "start", "end", "duration", "flow_rate", "span_explicit"}

// Repository implements repositories.EntryRepository on a CSV file.
type Repository struct {
	path   string
	logger *zap.Logger

	mu      sync.Mutex
	entries []models.ScheduleEntry
}

var _ repositories.EntryRepository = (*Repository)(nil)

// Open loads path, creating an empty file when it does not exist.
func Open(path string, logger *zap.Logger) (*Repository, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("csv path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create csv dir: %w", err)
	}

	r := &Repository{path: path, logger: logger}

	entries, err := readEntries(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := r.writeLocked(nil); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		r.entries = entries
	}

	logger.Info("csv repository ready", zap.String("path", path), zap.Int("entries", len(r.entries)))
	return r, nil
}

// Insert appends entry under a fresh identity.
func (r *Repository) Insert(ctx context.Context, entry models.ScheduleEntry) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.ID = uuid.NewString()
	next := append(r.snapshotLocked(), entry)
	if err := r.writeLocked(next); err != nil {
		return "", err
	}
	r.entries = next
	return entry.ID, nil
}

// Replace overwrites the entry with the given identity.
func (r *Repository) Replace(ctx context.Context, id string, entry models.ScheduleEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(id)
	if i < 0 {
		return models.ErrNotFound
	}
	next := r.snapshotLocked()
	entry.ID = id
	next[i] = entry
	if err := r.writeLocked(next); err != nil {
		return err
	}
	r.entries = next
	return nil
}

// Remove deletes the entry with the given identity.
func (r *Repository) Remove(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(id)
	if i < 0 {
		return models.ErrNotFound
	}
	next := r.snapshotLocked()
	next = append(next[:i], next[i+1:]...)
	if err := r.writeLocked(next); err != nil {
		return err
	}
	r.entries = next
	return nil
}

// FindByID returns the entry with the given identity.
func (r *Repository) FindByID(ctx context.Context, id string) (models.ScheduleEntry, error) {
	if err := ctx.Err(); err != nil {
		return models.ScheduleEntry{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(id)
	if i < 0 {
		return models.ScheduleEntry{}, models.ErrNotFound
	}
	return r.entries[i], nil
}

// QueryByDate returns the entries starting in [from, to) in file order.
func (r *Repository) QueryByDate(ctx context.Context, from, to time.Time) ([]models.ScheduleEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []models.ScheduleEntry{}
	for _, e := range r.entries {
		if !e.Start.Before(from) && e.Start.Before(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

// LatestStart returns the most recent start stored for the pair.
func (r *Repository) LatestStart(ctx context.Context, company, product string) (time.Time, bool, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		latest time.Time
		found  bool
	)
	for _, e := range r.entries {
		if e.Company == company && e.Product == product && (!found || e.Start.After(latest)) {
			latest, found = e.Start, true
		}
	}
	return latest, found, nil
}

// Close is a no-op; every change is already on disk.
func (r *Repository) Close(context.Context) error { return nil }

func (r *Repository) indexLocked(id string) int {
	for i, e := range r.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (r *Repository) snapshotLocked() []models.ScheduleEntry {
	return append([]models.ScheduleEntry(nil), r.entries...)
}

func (r *Repository) writeLocked(entries []models.ScheduleEntry) error {
	tmp := r.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open %s: %w", tmp, err)
	}

	if err := writeEntries(f, entries); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace %s: %w", r.path, err)
	}

	r.logger.Debug("csv file written", zap.String("path", r.path), zap.Int("entries", len(entries)))
	return nil
}

func writeEntries(w io.Writer, entries []models.ScheduleEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range entries {
		record := []string{
			e.ID,
			e.Company,
			e.Product,
			strconv.FormatFloat(e.Quota, 'f', -1, 64),
			e.Start.Format(time.RFC3339Nano),
			e.End.Format(time.RFC3339Nano),
			e.Duration,
			strconv.FormatFloat(e.FlowRate, 'f', -1, 64),
			strconv.FormatBool(e.SpanExplicit),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record %s: %w", e.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func readEntries(path string) ([]models.ScheduleEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = len(header)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	entries := make([]models.ScheduleEntry, 0, len(records)-1)
	for line, rec := range records[1:] {
		e, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("csv %s line %d: %w", path, line+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func parseRecord(rec []string) (models.ScheduleEntry, error) {
	quota, err := strconv.ParseFloat(rec[3], 64)
	if err != nil {
		return models.ScheduleEntry{}, fmt.Errorf("quota: %w", err)
	}
	start, err := time.Parse(time.RFC3339Nano, rec[4])
	if err != nil {
		return models.ScheduleEntry{}, fmt.Errorf("start: %w", err)
	}
	end, err := time.Parse(time.RFC3339Nano, rec[5])
	if err != nil {
		return models.ScheduleEntry{}, fmt.Errorf("end: %w", err)
	}
	rate, err := strconv.ParseFloat(rec[7], 64)
	if err != nil {
		return models.ScheduleEntry{}, fmt.Errorf("flow_rate: %w", err)
	}
	explicit, err := strconv.ParseBool(rec[8])
	if err != nil {
		return models.ScheduleEntry{}, fmt.Errorf("span_explicit: %w", err)
	}
	return models.ScheduleEntry{
		ID:           rec[0],
		Company:      rec[1],
		Product:      rec[2],
		Quota:        quota,
		Start:        start,
		End:          end,
		Duration:     rec[6],
		FlowRate:     rate,
		SpanExplicit: explicit,
	}, nil
}
