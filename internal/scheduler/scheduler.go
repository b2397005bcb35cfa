package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Publisher pushes a day's schedule to a spreadsheet.
type Publisher interface {
	PublishDay(ctx context.Context, date time.Time) (int, error)
}

// Notifier sends a day's schedule as a message.
type Notifier interface {
	SendDay(ctx context.Context, date time.Time) error
}

// Scheduler runs the daily export of the next day's schedule.
type Scheduler struct {
	cron      *cron.Cron
	spec      string
	loc       *time.Location
	publisher Publisher
	notifier  Notifier
	now       func() time.Time
	logger    *zap.Logger
}

// NewScheduler creates a scheduler firing on the cron spec in loc.
// Either publisher or notifier may be nil.
func NewScheduler(spec string, loc *time.Location, publisher Publisher, notifier Notifier, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}

	return &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		spec:      spec,
		loc:       loc,
		publisher: publisher,
		notifier:  notifier,
		now:       time.Now,
		logger:    logger,
	}
}

// Start registers the export job and starts the scheduler.
func (s *Scheduler) Start() error {
	if s.publisher == nil && s.notifier == nil {
		s.logger.Info("no export targets configured, scheduler idle")
		return nil
	}

	if _, err := s.cron.AddFunc(s.spec, s.exportNextDay); err != nil {
		return fmt.Errorf("schedule export %q: %w", s.spec, err)
	}

	s.logger.Info("starting scheduler", zap.String("spec", s.spec), zap.String("timezone", s.loc.String()))
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) exportNextDay() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	s.RunOnce(ctx)
}

// RunOnce exports tomorrow's schedule to every configured target.
func (s *Scheduler) RunOnce(ctx context.Context) {
	day := s.now().In(s.loc).AddDate(0, 0, 1)
	s.logger.Info("exporting schedule", zap.String("date", day.Format("2006-01-02")))

	if s.publisher != nil {
		if n, err := s.publisher.PublishDay(ctx, day); err != nil {
			s.logger.Error("failed to publish schedule", zap.Error(err))
		} else {
			s.logger.Info("schedule published", zap.Int("rows", n))
		}
	}

	if s.notifier != nil {
		if err := s.notifier.SendDay(ctx, day); err != nil {
			s.logger.Error("failed to send digest", zap.Error(err))
		}
	}
}
