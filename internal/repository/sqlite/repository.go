// Package sqlite stores schedule entries in an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mamadbah2/pumpschedule/internal/domain/models"
	"github.com/mamadbah2/pumpschedule/internal/domain/repositories"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// Instants are stored as Unix seconds; entries are whole-second aligned.
const entryColumns = `id, company, product, quota, start_unix, end_unix, duration, flow_rate, span_explicit`

// Repository implements repositories.EntryRepository on SQLite.
type Repository struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ repositories.EntryRepository = (*Repository)(nil)

// Open creates the database file if needed and applies the schema.
func Open(ctx context.Context, path string, busyTimeout time.Duration, logger *zap.Logger) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{"PRAGMA journal_mode = WAL", "PRAGMA synchronous = NORMAL"}
	if busyTimeout > 0 {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds()))
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			logger.Warn("sqlite pragma not applied", zap.String("pragma", p), zap.Error(err))
		}
	}

	r := &Repository{db: db, logger: logger}
	if err := r.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	logger.Info("sqlite repository ready", zap.String("path", path))
	return r, nil
}

func (r *Repository) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, string(b))
	return err
}

// Insert stores entry under a fresh identity.
func (r *Repository) Insert(ctx context.Context, entry models.ScheduleEntry) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO schedule_entries(`+entryColumns+`, created_at, updated_at)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		id, entry.Company, entry.Product, entry.Quota,
		entry.Start.Unix(), entry.End.Unix(), entry.Duration, entry.FlowRate, entry.SpanExplicit,
		now, now,
	)
	if err != nil {
		return "", fmt.Errorf("insert schedule entry: %w", err)
	}

	r.logger.Debug("schedule entry inserted", zap.String("id", id))
	return id, nil
}

// Replace overwrites every stored field in one statement.
func (r *Repository) Replace(ctx context.Context, id string, entry models.ScheduleEntry) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE schedule_entries
		 SET company=?, product=?, quota=?, start_unix=?, end_unix=?, duration=?, flow_rate=?, span_explicit=?, updated_at=?
		 WHERE id=?`,
		entry.Company, entry.Product, entry.Quota,
		entry.Start.Unix(), entry.End.Unix(), entry.Duration, entry.FlowRate, entry.SpanExplicit,
		time.Now().UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("update schedule entry %s: %w", id, err)
	}
	return expectOneRow(res, id)
}

// Remove deletes the entry.
func (r *Repository) Remove(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM schedule_entries WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete schedule entry %s: %w", id, err)
	}
	return expectOneRow(res, id)
}

// FindByID loads one entry.
func (r *Repository) FindByID(ctx context.Context, id string) (models.ScheduleEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM schedule_entries WHERE id=?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ScheduleEntry{}, models.ErrNotFound
	}
	if err != nil {
		return models.ScheduleEntry{}, fmt.Errorf("select schedule entry %s: %w", id, err)
	}
	return e, nil
}

// QueryByDate returns entries starting in [from, to) in insertion order.
func (r *Repository) QueryByDate(ctx context.Context, from, to time.Time) ([]models.ScheduleEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM schedule_entries
		 WHERE start_unix >= ? AND start_unix < ?
		 ORDER BY rowid ASC`,
		from.Unix(), to.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("query schedule entries: %w", err)
	}
	defer rows.Close()

	out := []models.ScheduleEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// LatestStart returns the most recent start for the pair.
func (r *Repository) LatestStart(ctx context.Context, company, product string) (time.Time, bool, error) {
	var sec sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(start_unix) FROM schedule_entries WHERE company=? AND product=?`,
		company, product,
	).Scan(&sec)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("select latest start: %w", err)
	}
	if !sec.Valid {
		return time.Time{}, false, nil
	}
	return time.Unix(sec.Int64, 0).UTC(), true, nil
}

// Close closes the database.
func (r *Repository) Close(context.Context) error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (models.ScheduleEntry, error) {
	var (
		e          models.ScheduleEntry
		start, end int64
	)
	if err := s.Scan(&e.ID, &e.Company, &e.Product, &e.Quota, &start, &end, &e.Duration, &e.FlowRate, &e.SpanExplicit); err != nil {
		return models.ScheduleEntry{}, err
	}
	e.Start = time.Unix(start, 0).UTC()
	e.End = time.Unix(end, 0).UTC()
	return e, nil
}

func expectOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for %s: %w", id, err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}
