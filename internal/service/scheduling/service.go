// Package scheduling owns the schedule entry lifecycle: every write resolves
// the flow rate and re-derives end and duration before reaching the store.
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/pumpschedule/internal/domain/models"
	"github.com/mamadbah2/pumpschedule/internal/domain/repositories"
	"github.com/mamadbah2/pumpschedule/internal/domain/schedule"
	"github.com/mamadbah2/pumpschedule/internal/metrics"
)

const (
	defaultStoreTimeout = 5 * time.Second
	defaultSuggestGap   = 15 * time.Minute
)

// RateResolver resolves the flow rate for a product pumped by a company.
type RateResolver interface {
	Resolve(product, company string) (float64, error)
}

// Options tunes the service. Zero values fall back to defaults.
type Options struct {
	Location     *time.Location
	StoreTimeout time.Duration
	SuggestGap   time.Duration
	Metrics      *metrics.Metrics
}

// Service implements the schedule entry lifecycle on top of a repository.
type Service struct {
	repo       repositories.EntryRepository
	rates      RateResolver
	loc        *time.Location
	timeout    time.Duration
	suggestGap time.Duration
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewService wires a new scheduling service instance.
func NewService(repo repositories.EntryRepository, rates RateResolver, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = defaultStoreTimeout
	}
	if opts.SuggestGap <= 0 {
		opts.SuggestGap = defaultSuggestGap
	}
	return &Service{
		repo:       repo,
		rates:      rates,
		loc:        opts.Location,
		timeout:    opts.StoreTimeout,
		suggestGap: opts.SuggestGap,
		metrics:    opts.Metrics,
		logger:     logger,
	}
}

// Location returns the timezone used for calendar dates.
func (s *Service) Location() *time.Location { return s.loc }

// Draft derives a complete entry from user input without persisting it.
func (s *Service) Draft(in models.EntryInput) (models.ScheduleEntry, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return models.ScheduleEntry{}, err
	}

	rate, err := s.rates.Resolve(in.Product, in.Company)
	if err != nil {
		return models.ScheduleEntry{}, err
	}

	start := in.Start.Truncate(time.Second).In(s.loc)
	entry := models.ScheduleEntry{
		Company:  in.Company,
		Product:  in.Product,
		Quota:    in.Quota,
		Start:    start,
		FlowRate: rate,
	}

	if in.End != nil {
		// Explicit span: the rate must still resolve, but the span wins.
		if rate <= 0 {
			return models.ScheduleEntry{}, fmt.Errorf("rate %v: %w", rate, models.ErrDivision)
		}
		end := in.End.Truncate(time.Second).In(s.loc)
		duration, err := schedule.DeriveDuration(start, end)
		if err != nil {
			return models.ScheduleEntry{}, err
		}
		entry.End = end
		entry.Duration = duration
		entry.SpanExplicit = true
		return entry, nil
	}

	d, err := schedule.DeriveEnd(start, in.Quota, rate)
	if err != nil {
		return models.ScheduleEntry{}, err
	}
	if !models.InRange(d.End) {
		return models.ScheduleEntry{}, &models.ValidationError{Field: "quota", Err: models.ErrInvalidEntry}
	}
	entry.End = d.End
	entry.Duration = d.Duration
	return entry, nil
}

// Create validates and derives a new entry, then stores it.
func (s *Service) Create(ctx context.Context, in models.EntryInput) (models.ScheduleEntry, error) {
	entry, err := s.Draft(in)
	if err != nil {
		s.observe("create", err)
		return models.ScheduleEntry{}, err
	}

	var id string
	err = s.call(ctx, "insert", func(ctx context.Context) error {
		var err error
		id, err = s.repo.Insert(ctx, entry)
		return err
	})
	s.observe("create", err)
	if err != nil {
		s.logger.Error("failed to store schedule entry", zap.Error(err))
		return models.ScheduleEntry{}, err
	}

	entry.ID = id
	s.logger.Info("schedule entry created",
		zap.String("id", id),
		zap.String("company", entry.Company),
		zap.String("product", entry.Product),
		zap.Time("start", entry.Start),
		zap.Time("end", entry.End))
	return entry, nil
}

// Update recomputes every derived field from the submitted values and
// replaces the stored entry. Previously stored derived fields are ignored.
func (s *Service) Update(ctx context.Context, id string, in models.EntryInput) (models.ScheduleEntry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		s.observe("update", models.ErrNotFound)
		return models.ScheduleEntry{}, models.ErrNotFound
	}

	entry, err := s.Draft(in)
	if err != nil {
		s.observe("update", err)
		return models.ScheduleEntry{}, err
	}
	entry.ID = id

	err = s.call(ctx, "replace", func(ctx context.Context) error {
		return s.repo.Replace(ctx, id, entry)
	})
	s.observe("update", err)
	if err != nil {
		return models.ScheduleEntry{}, err
	}

	s.logger.Info("schedule entry updated", zap.String("id", id), zap.Time("end", entry.End))
	return entry, nil
}

// Delete removes the entry.
func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		s.observe("delete", models.ErrNotFound)
		return models.ErrNotFound
	}

	err := s.call(ctx, "remove", func(ctx context.Context) error {
		return s.repo.Remove(ctx, id)
	})
	s.observe("delete", err)
	if err != nil {
		return err
	}

	s.logger.Info("schedule entry deleted", zap.String("id", id))
	return nil
}

// Get loads one entry.
func (s *Service) Get(ctx context.Context, id string) (models.ScheduleEntry, error) {
	var entry models.ScheduleEntry
	err := s.call(ctx, "find", func(ctx context.Context) error {
		var err error
		entry, err = s.repo.FindByID(ctx, strings.TrimSpace(id))
		return err
	})
	if err != nil {
		return models.ScheduleEntry{}, err
	}
	return s.localize(entry), nil
}

// ListForDate returns the entries starting on the calendar day of date in the
// service timezone. Stored values are returned as-is.
func (s *Service) ListForDate(ctx context.Context, date time.Time) ([]models.ScheduleEntry, error) {
	from, to := models.DayBounds(date, s.loc)

	var entries []models.ScheduleEntry
	err := s.call(ctx, "query", func(ctx context.Context) error {
		var err error
		entries, err = s.repo.QueryByDate(ctx, from, to)
		return err
	})
	s.observe("list", err)
	if err != nil {
		return nil, err
	}

	for i := range entries {
		entries[i] = s.localize(entries[i])
	}
	return entries, nil
}

// SuggestStart proposes a start on the day of date: the clock time of the
// latest start for the pair plus the configured gap, or midnight when the
// pair has no history.
func (s *Service) SuggestStart(ctx context.Context, company, product string, date time.Time) (time.Time, error) {
	company, product = models.NormalizeCode(company), models.NormalizeCode(product)
	day, _ := models.DayBounds(date, s.loc)

	var (
		latest time.Time
		found  bool
	)
	err := s.call(ctx, "latest_start", func(ctx context.Context) error {
		var err error
		latest, found, err = s.repo.LatestStart(ctx, company, product)
		return err
	})
	if err != nil {
		return time.Time{}, err
	}
	if !found {
		return day, nil
	}

	next := latest.Add(s.suggestGap).In(s.loc)
	return time.Date(day.Year(), day.Month(), day.Day(), next.Hour(), next.Minute(), 0, 0, s.loc), nil
}

// call runs one repository operation under the store timeout. Failures other
// than a missing identity are reported as models.ErrStoreUnavailable.
func (s *Service) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	err := fn(ctx)
	s.metrics.ObserveStore(op, time.Since(started))

	if err == nil || errors.Is(err, models.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, models.ErrStoreUnavailable, err)
}

func (s *Service) observe(op string, err error) {
	s.metrics.ObserveOperation(op, resultLabel(err))
}

func (s *Service) localize(e models.ScheduleEntry) models.ScheduleEntry {
	e.Start = e.Start.In(s.loc)
	e.End = e.End.In(s.loc)
	return e
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case models.IsValidation(err):
		return "invalid"
	default:
		return "unavailable"
	}
}
