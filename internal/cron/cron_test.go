package cron

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/andresuchdata/stockcount/internal/domain"
	"github.com/andresuchdata/stockcount/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLock struct {
	acquired bool
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.acquired {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error { f.acquired = false; return nil }

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	ok := &testJob{name: "success"}
	bad := &testJob{name: "fail", err: errors.New("boom")}
	svc, err := NewService(ServiceParams{
		Registry: NewRegistry(ok, nil, bad),
		Lock:     &fakeLock{},
		Metrics:  metrics.NewCronJobMetrics(prometheus.NewRegistry()),
	})
	require.NoError(t, err)

	require.NoError(t, svc.RunCycle(context.Background()))
	assert.Equal(t, 1, ok.runs)
	assert.Equal(t, 1, bad.runs)
}

func TestServiceSkipsCycleWhenLockHeld(t *testing.T) {
	job := &testJob{name: "success"}
	svc, err := NewService(ServiceParams{Registry: NewRegistry(job), Lock: &fakeLock{acquired: true}})
	require.NoError(t, err)

	require.NoError(t, svc.RunCycle(context.Background()))
	assert.Zero(t, job.runs)
}

func TestServiceRunJobByName(t *testing.T) {
	job := &testJob{name: "daily_summary"}
	svc, err := NewService(ServiceParams{Registry: NewRegistry(job), Lock: NewLocalLock()})
	require.NoError(t, err)

	require.NoError(t, svc.RunJob(context.Background(), "daily_summary"))
	assert.Equal(t, 1, job.runs)
	assert.Error(t, svc.RunJob(context.Background(), "missing"))

	_, err = NewService(ServiceParams{})
	assert.Error(t, err)
}

type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestRedisLockIsExclusive(t *testing.T) {
	store := &fakeRedis{data: map[string]string{}}
	ctx := context.Background()

	first, err := NewRedisLock(store, "stockcount:cron:lock", 0)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "stockcount:cron:lock", time.Minute)
	require.NoError(t, err)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// A non-owner release leaves the lock in place.
	require.NoError(t, second.Release(ctx))
	assert.Contains(t, store.data, "stockcount:cron:lock")

	require.NoError(t, first.Release(ctx))
	assert.NotContains(t, store.data, "stockcount:cron:lock")

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = NewRedisLock(nil, "k", 0)
	assert.Error(t, err)
	_, err = NewRedisLock(store, "", 0)
	assert.Error(t, err)
}

func TestLocalLock(t *testing.T) {
	l := NewLocalLock()
	ctx := context.Background()

	ok, _ := l.Acquire(ctx)
	assert.True(t, ok)
	ok, _ = l.Acquire(ctx)
	assert.False(t, ok)
	require.NoError(t, l.Release(ctx))
	ok, _ = l.Acquire(ctx)
	assert.True(t, ok)
}

type movingClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *movingClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *movingClock) set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

type fakeMessenger struct {
	reminders int
	summaries int
	alerts    int
}

func (m *fakeMessenger) CheckReminder(context.Context, *domain.Checklist) int {
	m.reminders++
	return 1
}

func (m *fakeMessenger) DailySummary(context.Context, *domain.DashboardReport) int {
	m.summaries++
	return 1
}

func (m *fakeMessenger) StockAlert(context.Context, []domain.StockLine) int {
	m.alerts++
	return 1
}

type stubSources struct {
	recounts    []domain.RecountRecord
	scans       int
	lowNotified bool
	err         error
}

func (s *stubSources) TodayChecklist(context.Context, string) (*domain.Checklist, error) {
	return &domain.Checklist{TodayTotal: 2}, s.err
}

func (s *stubSources) Aggregate(_ context.Context, asOf time.Time) (*domain.DashboardReport, error) {
	return &domain.DashboardReport{Date: asOf.Format("2006-01-02")}, s.err
}

func (s *stubSources) LowStock(context.Context) ([]domain.StockLine, error) {
	return []domain.StockLine{{ItemID: "A"}}, nil
}

func (s *stubSources) ScanNotified(_ context.Context, lowNotified bool) ([]domain.AlertEvent, error) {
	s.scans++
	s.lowNotified = lowNotified
	return nil, nil
}

func (s *stubSources) ListRecountsSince(_ context.Context, since time.Time) ([]domain.RecountRecord, error) {
	var out []domain.RecountRecord
	for _, r := range s.recounts {
		if !r.Timestamp.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

var zone = time.FixedZone("MYT", 8*3600)

func TestCheckReminderRunsOnceADayAfterHour(t *testing.T) {
	clock := &movingClock{t: time.Date(2026, time.October, 14, 9, 45, 0, 0, zone)}
	msgs := &fakeMessenger{}
	job, err := NewCheckReminderJob(&stubSources{}, msgs, 10, clock.now)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, job.Run(ctx))
	assert.Zero(t, msgs.reminders)

	clock.set(time.Date(2026, time.October, 14, 10, 0, 0, 0, zone))
	require.NoError(t, job.Run(ctx))
	require.NoError(t, job.Run(ctx))
	assert.Equal(t, 1, msgs.reminders)

	clock.set(time.Date(2026, time.October, 15, 10, 15, 0, 0, zone))
	require.NoError(t, job.Run(ctx))
	assert.Equal(t, 2, msgs.reminders)
}

func TestDailySummaryRetriesAfterFailure(t *testing.T) {
	clock := &movingClock{t: time.Date(2026, time.October, 14, 21, 5, 0, 0, zone)}
	src := &stubSources{err: errors.New("store offline")}
	msgs := &fakeMessenger{}
	job, err := NewDailySummaryJob(src, msgs, 21, clock.now)
	require.NoError(t, err)
	ctx := context.Background()

	assert.Error(t, job.Run(ctx))
	assert.Zero(t, msgs.summaries)

	src.err = nil
	require.NoError(t, job.Run(ctx))
	require.NoError(t, job.Run(ctx))
	assert.Equal(t, 1, msgs.summaries)
	assert.Equal(t, JobDailySummary, job.Name())
}

func TestStockAlertOnlyAfterNewRecounts(t *testing.T) {
	start := time.Date(2026, time.October, 14, 9, 0, 0, 0, zone)
	clock := &movingClock{t: start}
	src := &stubSources{}
	msgs := &fakeMessenger{}
	job, err := NewStockAlertJob(src, src, src, msgs, clock.now)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, job.Run(ctx))
	assert.Zero(t, msgs.alerts)

	src.recounts = append(src.recounts, domain.RecountRecord{Timestamp: start.Add(10 * time.Minute)})
	clock.set(start.Add(15 * time.Minute))
	require.NoError(t, job.Run(ctx))
	assert.Equal(t, 1, msgs.alerts)
	assert.Equal(t, 1, src.scans)
	assert.True(t, src.lowNotified)

	clock.set(start.Add(30 * time.Minute))
	require.NoError(t, job.Run(ctx))
	assert.Equal(t, 1, msgs.alerts)
}

func TestJobConstructorsRequireCollaborators(t *testing.T) {
	now := func() time.Time { return time.Now() }
	_, err := NewCheckReminderJob(nil, &fakeMessenger{}, 10, now)
	assert.Error(t, err)
	_, err = NewDailySummaryJob(&stubSources{}, nil, 21, now)
	assert.Error(t, err)
	_, err = NewStockAlertJob(nil, nil, nil, nil, now)
	assert.Error(t, err)
}
