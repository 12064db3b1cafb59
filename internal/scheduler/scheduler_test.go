package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/hotelerp/internal/config"
	"github.com/mamadbah2/hotelerp/internal/domain/models"
	"github.com/mamadbah2/hotelerp/internal/service/reporting"
)

type fakeReports struct {
	days      []time.Time
	exported  int
	exportErr error
	snapErr   error
}

func (f *fakeReports) DailySnapshot(_ context.Context, day time.Time, _ *time.Location) (*models.DailyReport, error) {
	if f.snapErr != nil {
		return nil, f.snapErr
	}
	f.days = append(f.days, day)
	return &models.DailyReport{
		Date:  day,
		Total: models.LeakageRow{Label: "Total", Leakage: decimal.NewFromInt(3)},
	}, nil
}

func (f *fakeReports) ExportDailyToSheets(context.Context, *models.DailyReport) error {
	f.exported++
	return f.exportErr
}

type fakeNotifier struct {
	reports []models.DailyReport
}

func (f *fakeNotifier) DailyLeakage(_ context.Context, report models.DailyReport) {
	f.reports = append(f.reports, report)
}

type fakeLock struct {
	mu       sync.Mutex
	held     map[string]bool
	released int
}

func (l *fakeLock) Acquire(_ context.Context, key string, _ time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
		l.released++
	}, true, nil
}

func newTestScheduler(t *testing.T, reports Snapshotter, notifier DailyNotifier, lock JobLock) *Scheduler {
	t.Helper()
	s, err := NewScheduler(config.ReportingConfig{CronSchedule: "30 0 * * *", Timezone: "Asia/Kolkata"}, reports, notifier, lock, nil)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2026, 3, 11, 0, 30, 0, 0, s.loc) }
	return s
}

func TestRunDailySnapshotUsesPreviousDay(t *testing.T) {
	reports := &fakeReports{}
	notifier := &fakeNotifier{}
	lock := &fakeLock{}
	s := newTestScheduler(t, reports, notifier, lock)

	require.NoError(t, s.RunDailySnapshot(context.Background()))

	require.Len(t, reports.days, 1)
	assert.Equal(t, "2026-03-10", reports.days[0].Format("2006-01-02"))
	assert.Equal(t, 1, reports.exported)
	require.Len(t, notifier.reports, 1)
	assert.True(t, decimal.NewFromInt(3).Equal(notifier.reports[0].Total.Leakage))
	assert.Equal(t, 1, lock.released)
}

func TestRunDailySnapshotSkipsWhenLocked(t *testing.T) {
	reports := &fakeReports{}
	notifier := &fakeNotifier{}
	lock := &fakeLock{held: map[string]bool{"hotelerp:daily-leakage:2026-03-10": true}}
	s := newTestScheduler(t, reports, notifier, lock)

	require.NoError(t, s.RunDailySnapshot(context.Background()))

	assert.Empty(t, reports.days)
	assert.Empty(t, notifier.reports)
}

func TestRunDailySnapshotToleratesExportFailures(t *testing.T) {
	for _, exportErr := range []error{reporting.ErrSheetsDisabled, errors.New("quota exceeded")} {
		reports := &fakeReports{exportErr: exportErr}
		notifier := &fakeNotifier{}
		s := newTestScheduler(t, reports, notifier, nil)

		require.NoError(t, s.RunDailySnapshot(context.Background()))
		assert.Len(t, notifier.reports, 1)
	}
}

func TestRunDailySnapshotReturnsSnapshotError(t *testing.T) {
	reports := &fakeReports{snapErr: errors.New("mongo down")}
	notifier := &fakeNotifier{}
	lock := &fakeLock{}
	s := newTestScheduler(t, reports, notifier, lock)

	err := s.RunDailySnapshot(context.Background())
	require.Error(t, err)
	assert.Empty(t, notifier.reports)
	assert.Equal(t, 1, lock.released)
}

func TestNewSchedulerRejectsUnknownTimezone(t *testing.T) {
	_, err := NewScheduler(config.ReportingConfig{CronSchedule: "30 0 * * *", Timezone: "Mars/Olympus"}, &fakeReports{}, nil, nil, nil)
	require.Error(t, err)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s, err := NewScheduler(config.ReportingConfig{CronSchedule: "every night", Timezone: "UTC"}, &fakeReports{}, nil, nil, nil)
	require.NoError(t, err)
	require.Error(t, s.Start())
}
