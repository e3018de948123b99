package framework

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailedUnitIsRetried(t *testing.T) {
	logger := &recordingTestLogger{}
	var calls int32
	units := []Unit{{
		ID: NewTestID("chromium", "home"),
		Action: func(c *Context) {
			n := atomic.AddInt32(&calls, 1)
			c.Debug("attempt %d", c.Attempt())
			if n < 3 {
				c.Errorf("failure %d", n)
			}
		},
	}}

	results := RunUnits(context.Background(), Options{Retries: 2, Workers: 1}, nil, logger, units)

	assert.Equal(t, int32(3), calls)
	assert.True(t, results.OK())
	r := findResult(t, results, "chromium/home")
	assert.Equal(t, 3, r.Attempts)
	assert.Equal(t, "flaky", r.Status())
	assert.Empty(t, r.Errors, "errors of earlier attempts are not reported")
	assert.Equal(t, 1, results.Count("flaky"))
	assert.Equal(t,
		[]string{"started", "error", "retrying", "error", "retrying", "finished"},
		logger.kinds("chromium/home"))
}

func TestUnitIsNotRetriedWithoutRetries(t *testing.T) {
	var calls int32
	units := []Unit{{
		ID: NewTestID("fails"),
		Action: func(c *Context) {
			atomic.AddInt32(&calls, 1)
			c.FailNow()
		},
	}}
	results := RunUnits(context.Background(), Options{}, nil, nil, units)
	assert.Equal(t, int32(1), calls)
	require.Len(t, results.Failures, 1)
	assert.Equal(t, 1, results.Failures[0].Attempts)
}

func TestRetriesStopAtConfiguredCount(t *testing.T) {
	var calls int32
	units := []Unit{{
		ID: NewTestID("always-fails"),
		Action: func(c *Context) {
			atomic.AddInt32(&calls, 1)
			c.Errorf("still broken")
		},
	}}
	results := RunUnits(context.Background(), Options{Retries: 2}, nil, nil, units)
	assert.Equal(t, int32(3), calls)
	assert.False(t, results.OK())
	assert.Equal(t, "failed", results.Failures[0].Status())
}

func TestSubtestResultsComeFromLastAttemptOnly(t *testing.T) {
	var calls int32
	units := []Unit{{
		ID: NewTestID("file"),
		Action: func(c *Context) {
			n := atomic.AddInt32(&calls, 1)
			c.Run("case", func(c *Context) {
				if n == 1 {
					c.Errorf("first attempt fails")
				}
			})
		},
	}}
	results := RunUnits(context.Background(), Options{Retries: 1}, nil, nil, units)
	assert.True(t, results.OK())
	require.Len(t, results.Tests, 1)
	assert.Equal(t, 2, findResult(t, results, "file/case").Attempts)
}

func TestFailingSubtestIsCountedOnce(t *testing.T) {
	units := []Unit{{
		ID: NewTestID("chromium", "home"),
		Action: func(c *Context) {
			c.Run("responds without error", func(c *Context) { c.Errorf("status 500") })
			c.Run("has a title", func(*Context) {})
		},
	}}

	results := RunUnits(context.Background(), Options{}, nil, nil, units)

	assert.Len(t, results.Tests, 2)
	require.Len(t, results.Failures, 1)
	assert.Equal(t, "chromium/home/responds without error", results.Failures[0].TestID.String())
	assert.Equal(t, 1, results.Count("failed"))
	assert.Equal(t, 1, results.Count("passed"))
}

func TestUnitFailingOutsideItsSubtestsIsReported(t *testing.T) {
	units := []Unit{{
		ID: NewTestID("chromium", "home"),
		Action: func(c *Context) {
			c.Run("renders", func(*Context) {})
			panic("browser crashed")
		},
	}}

	results := RunUnits(context.Background(), Options{}, nil, nil, units)

	require.Len(t, results.Failures, 1)
	assert.Equal(t, "chromium/home", results.Failures[0].TestID.String())
	assert.Len(t, results.Tests, 2)
}

func TestCancellationStopsRunningAndPendingUnits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	var calls int32
	units := []Unit{
		{
			ID: NewTestID("a-waits"),
			Action: func(c *Context) {
				atomic.AddInt32(&calls, 1)
				close(started)
				select {
				case <-c.Ctx().Done():
				case <-time.After(5 * time.Second):
				}
			},
		},
		{
			ID:     NewTestID("b-pending"),
			Action: func(*Context) { atomic.AddInt32(&calls, 1) },
		},
	}
	go func() {
		<-started
		cancel()
	}()

	begin := time.Now()
	results := RunUnits(ctx, Options{Workers: 1, Retries: 3}, nil, nil, units)

	assert.Less(t, time.Since(begin), 2*time.Second)
	assert.Equal(t, int32(1), calls, "neither a retry nor the pending unit is started")
	a := findResult(t, results, "a-waits")
	assert.True(t, a.Failed)
	assert.Equal(t, 1, a.Attempts)
	assert.Contains(t, a.Errors[len(a.Errors)-1].Error(), "test run was cancelled")
	b := findResult(t, results, "b-pending")
	assert.True(t, b.Skipped)
	assert.Equal(t, "test run was cancelled", b.SkipReason)
}

func TestWorkersBoundConcurrency(t *testing.T) {
	var (
		current, peak int32
		lock          sync.Mutex
	)
	var units []Unit
	for i := 0; i < 8; i++ {
		units = append(units, Unit{
			ID: NewTestID("unit", string(rune('a'+i))),
			Action: func(c *Context) {
				n := atomic.AddInt32(&current, 1)
				lock.Lock()
				if n > peak {
					peak = n
				}
				lock.Unlock()
				time.Sleep(20 * time.Millisecond)
				atomic.AddInt32(&current, -1)
			},
		})
	}

	results := RunUnits(context.Background(), Options{Workers: 2}, nil, nil, units)

	assert.Len(t, results.Tests, 8)
	assert.LessOrEqual(t, peak, int32(2))
	assert.Equal(t, "unit/a", results.Tests[0].TestID.String(), "results are ordered by ID")
}

func TestSingleWorkerRunsUnitsSequentially(t *testing.T) {
	var current, peak int32
	var units []Unit
	for i := 0; i < 4; i++ {
		units = append(units, Unit{
			ID: NewTestID(string(rune('a' + i))),
			Action: func(c *Context) {
				n := atomic.AddInt32(&current, 1)
				if n > atomic.LoadInt32(&peak) {
					atomic.StoreInt32(&peak, n)
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&current, -1)
			},
		})
	}
	RunUnits(context.Background(), Options{Workers: 1}, nil, nil, units)
	assert.Equal(t, int32(1), peak)
}

func TestFilteredUnitIsNotExecuted(t *testing.T) {
	ran := false
	filters := RegexFilters{}
	require.NoError(t, filters.MustNotMatch.Set("^firefox/"))
	units := []Unit{{ID: NewTestID("firefox", "home"), Action: func(*Context) { ran = true }}}
	results := RunUnits(context.Background(), Options{}, filters.AsFilter, nil, units)
	assert.False(t, ran)
	assert.Empty(t, results.Tests)
}

func TestSelectUnitsHonorsFocus(t *testing.T) {
	units := []Unit{
		{ID: NewTestID("a")},
		{ID: NewTestID("b"), Only: true},
	}

	selected, err := SelectUnits(Options{}, units)
	require.NoError(t, err)
	require.Len(t, selected, 1)
	assert.Equal(t, "b", selected[0].ID.String())

	_, err = SelectUnits(Options{ForbidOnly: true}, units)
	assert.ErrorIs(t, err, ErrFocusedTests)

	all, err := SelectUnits(Options{ForbidOnly: true}, units[:1])
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
