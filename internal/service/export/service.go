// Package export publishes a day's schedule to spreadsheets.
package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/pumpschedule/internal/domain/models"
	"github.com/mamadbah2/pumpschedule/internal/repository/sheets"
	"github.com/mamadbah2/pumpschedule/internal/service/scheduling"
)

// EntryLister is the read side of the scheduling service.
type EntryLister interface {
	ListForDate(ctx context.Context, date time.Time) ([]models.ScheduleEntry, error)
	Location() *time.Location
}

// Service publishes day schedules to Google Sheets.
type Service struct {
	entries    EntryLister
	sheets     sheets.Repository
	sheetRange string
	logger     *zap.Logger
}

// NewService wires a new export service instance.
func NewService(entries EntryLister, sheetsRepo sheets.Repository, sheetRange string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		entries:    entries,
		sheets:     sheetsRepo,
		sheetRange: sheetRange,
		logger:     logger,
	}
}

// Bars loads the timeline of the day containing date.
func (s *Service) Bars(ctx context.Context, date time.Time) ([]models.TimelineBar, error) {
	entries, err := s.entries.ListForDate(ctx, date)
	if err != nil {
		return nil, err
	}
	return scheduling.Timeline(entries, s.entries.Location()), nil
}

// PublishDay replaces the rows of the day containing date in the sheet and
// returns the number of rows written for that day. Rows of other days are
// kept, the header is written once, and publishing the same day twice leaves
// the sheet unchanged.
func (s *Service) PublishDay(ctx context.Context, date time.Time) (int, error) {
	if s.sheets == nil {
		return 0, fmt.Errorf("sheets export is not configured")
	}

	bars, err := s.Bars(ctx, date)
	if err != nil {
		return 0, fmt.Errorf("load schedule: %w", err)
	}

	existing, err := s.sheets.ReadRange(ctx, s.sheetRange)
	if err != nil {
		return 0, fmt.Errorf("read sheet: %w", err)
	}

	day := date.In(s.entries.Location()).Format(dateLayout)
	rows := Rows(bars)
	merged := MergeDay(existing, day, rows)
	if err := s.sheets.UpdateRange(ctx, s.sheetRange, merged); err != nil {
		return 0, fmt.Errorf("publish schedule: %w", err)
	}

	s.logger.Info("schedule published to sheets",
		zap.String("date", day),
		zap.Int("rows", len(rows)))
	return len(rows), nil
}

// MergeDay rebuilds sheet contents: the header, every existing row not dated
// day, then rows. Blank rows pad the result to the existing height so stale
// rows below are cleared by the same write.
func MergeDay(existing [][]interface{}, day string, rows [][]interface{}) [][]interface{} {
	merged := make([][]interface{}, 0, len(existing)+len(rows)+1)
	merged = append(merged, append([]interface{}(nil), Header...))

	for i, row := range existing {
		if i == 0 && isHeader(row) {
			continue
		}
		if len(row) == 0 || cellString(row[0]) == "" || cellString(row[0]) == day {
			continue
		}
		merged = append(merged, row)
	}
	merged = append(merged, rows...)

	for len(merged) < len(existing) {
		merged = append(merged, blankRow())
	}
	return merged
}

func isHeader(row []interface{}) bool {
	return len(row) > 0 && cellString(row[0]) == cellString(Header[0])
}

func cellString(v interface{}) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func blankRow() []interface{} {
	row := make([]interface{}, len(Header))
	for i := range row {
		row[i] = ""
	}
	return row
}
