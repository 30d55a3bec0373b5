package backup_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/backup"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/metrics"
)

type fakeRunner struct {
	mu      sync.Mutex
	calls   []time.Time
	results []entity.RunResult
	err     error
}

func (f *fakeRunner) RunDue(_ context.Context, now time.Time) (entity.RunResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, now)
	if f.err != nil {
		return entity.RunResult{Reason: entity.RunReasonError}, f.err
	}
	if len(f.results) == 0 {
		return entity.RunResult{Reason: entity.RunReasonBeforeSchedule}, nil
	}
	res := f.results[0]
	f.results = f.results[1:]
	return res, nil
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestNewScheduler_ClampsInterval(t *testing.T) {
	s := backup.NewScheduler(&fakeRunner{}, time.Second, nil, nil)
	assert.Equal(t, backup.MinInterval, s.Interval())

	s = backup.NewScheduler(&fakeRunner{}, time.Minute, nil, nil)
	assert.Equal(t, time.Minute, s.Interval())
}

func TestTriggerOnce_RecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	runner := &fakeRunner{results: []entity.RunResult{
		{Executed: true, Reason: entity.RunReasonExecuted, Snapshot: "backup_auto_20250310_190000.db"},
		{Reason: entity.RunReasonAlreadyRan},
	}}
	s := backup.NewScheduler(runner, time.Minute, nil, metrics.NewJobMetrics(reg)).
		WithClock(func() time.Time { return monday })

	res, err := s.TriggerOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Executed)

	res, err = s.TriggerOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entity.RunReasonAlreadyRan, res.Reason)

	runner.err = errors.New("disco cheio")
	_, err = s.TriggerOnce(context.Background())
	require.Error(t, err)

	assert.Equal(t, []time.Time{monday, monday, monday}, runner.calls)
	assert.Equal(t, 1, testutil.CollectAndCount(reg, "job_success_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(reg, "job_failure_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(reg, "job_skipped_total"))
}

func TestRun_EvaluatesImmediatelyAndStopsOnCancel(t *testing.T) {
	runner := &fakeRunner{}
	s := backup.NewScheduler(runner, time.Hour, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return runner.callCount() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("el scheduler no se detuvo al cancelar el contexto")
	}
	assert.Equal(t, 1, runner.callCount())
}
