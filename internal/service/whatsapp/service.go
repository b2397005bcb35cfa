// Package whatsapp sends the daily pumping digest over WhatsApp.
package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/pumpschedule/internal/domain/models"
	client "github.com/mamadbah2/pumpschedule/pkg/clients/whatsapp"
)

// EntryLister is the read side of the scheduling service.
type EntryLister interface {
	ListForDate(ctx context.Context, date time.Time) ([]models.ScheduleEntry, error)
	Location() *time.Location
}

// DigestService formats a day's schedule and sends it to a fixed recipient.
type DigestService struct {
	entries EntryLister
	client  client.Client
	to      string
	logger  *zap.Logger
}

// NewDigestService wires a new digest service instance.
func NewDigestService(entries EntryLister, c client.Client, to string, logger *zap.Logger) *DigestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DigestService{entries: entries, client: c, to: to, logger: logger}
}

// SendDay sends the digest for the day containing date. Empty days are skipped.
func (s *DigestService) SendDay(ctx context.Context, date time.Time) error {
	if s.client == nil || s.to == "" {
		return errors.New("whatsapp digest is not configured")
	}

	entries, err := s.entries.ListForDate(ctx, date)
	if err != nil {
		return fmt.Errorf("load schedule: %w", err)
	}
	if len(entries) == 0 {
		s.logger.Info("no entries for digest", zap.String("date", date.Format("2006-01-02")))
		return nil
	}

	id, err := s.client.SendText(ctx, s.to, FormatDigest(date.In(s.entries.Location()), entries, s.entries.Location()))
	if err != nil {
		return fmt.Errorf("send digest: %w", err)
	}

	s.logger.Info("digest sent", zap.String("message_id", id), zap.Int("entries", len(entries)))
	return nil
}

// FormatDigest renders entries as one line per pumping, in storage order.
func FormatDigest(day time.Time, entries []models.ScheduleEntry, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Bombeios %s\n", day.Format("02/01/2006"))
	for _, e := range entries {
		fmt.Fprintf(&b, "%s-%s %s %s %g m3 (%s)\n",
			e.Start.In(loc).Format("15:04"),
			e.End.In(loc).Format("15:04"),
			e.Company,
			e.Product,
			e.Quota,
			e.Duration)
	}
	return strings.TrimRight(b.String(), "\n")
}
