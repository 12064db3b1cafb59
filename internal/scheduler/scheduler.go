package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/hotelerp/internal/config"
	"github.com/mamadbah2/hotelerp/internal/domain/models"
	"github.com/mamadbah2/hotelerp/internal/service/reporting"
)

const (
	jobTimeout = 2 * time.Minute
	lockTTL    = 10 * time.Minute
)

// Snapshotter produces and exports the nightly leakage snapshot.
type Snapshotter interface {
	DailySnapshot(ctx context.Context, day time.Time, loc *time.Location) (*models.DailyReport, error)
	ExportDailyToSheets(ctx context.Context, daily *models.DailyReport) error
}

// DailyNotifier delivers the snapshot to the MD.
type DailyNotifier interface {
	DailyLeakage(ctx context.Context, report models.DailyReport)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron     *cron.Cron
	schedule string
	loc      *time.Location
	reports  Snapshotter
	notifier DailyNotifier
	lock     JobLock
	logger   *zap.Logger
	now      func() time.Time
}

// NewScheduler creates a new scheduler instance. notifier and lock may be nil; without a
// lock every replica runs the job.
func NewScheduler(cfg config.ReportingConfig, reports Snapshotter, notifier DailyNotifier, lock JobLock, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", cfg.Timezone, err)
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		schedule: cfg.CronSchedule,
		loc:      loc,
		reports:  reports,
		notifier: notifier,
		lock:     lock,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.runDailySnapshot); err != nil {
		return fmt.Errorf("schedule daily leakage snapshot %q: %w", s.schedule, err)
	}

	s.logger.Info("starting scheduler", zap.String("schedule", s.schedule), zap.String("timezone", s.loc.String()))
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runDailySnapshot() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := s.RunDailySnapshot(ctx); err != nil {
		s.logger.Error("daily leakage snapshot failed", zap.Error(err))
	}
}

// RunDailySnapshot stores, exports and sends the leakage of the previous local day.
func (s *Scheduler) RunDailySnapshot(ctx context.Context) error {
	day := s.now().In(s.loc).AddDate(0, 0, -1)
	key := "hotelerp:daily-leakage:" + day.Format("2006-01-02")

	if s.lock != nil {
		release, ok, err := s.lock.Acquire(ctx, key, lockTTL)
		if err != nil {
			return fmt.Errorf("acquire %s: %w", key, err)
		}
		if !ok {
			s.logger.Info("daily leakage snapshot running elsewhere", zap.String("lock", key))
			return nil
		}
		defer release()
	}

	report, err := s.reports.DailySnapshot(ctx, day, s.loc)
	if err != nil {
		return err
	}

	if err := s.reports.ExportDailyToSheets(ctx, report); err != nil {
		if !errors.Is(err, reporting.ErrSheetsDisabled) {
			s.logger.Error("failed to export daily leakage to sheets", zap.Error(err))
		}
	}

	if s.notifier != nil {
		s.notifier.DailyLeakage(ctx, *report)
	}
	return nil
}
