package framework

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Options controls how RunUnits schedules and re-executes units.
type Options struct {
	// Retries is the number of additional attempts given to a unit that failed.
	Retries int

	// Workers is the maximum number of units executing at the same time. Values below 1
	// are treated as 1.
	Workers int

	// Timeout bounds each attempt of a unit through the deadline of Context.Ctx; an attempt
	// that outlives it fails. Zero means no limit.
	Timeout time.Duration

	// ForbidOnly makes SelectUnits reject focused units.
	ForbidOnly bool
}

// Unit is an independently schedulable piece of a test run: a test file, or a single test
// case, bound to one project of the test matrix.
type Unit struct {
	ID     TestID
	Only   bool
	Action func(*Context)
}

const cancelledReason = "test run was cancelled"

// ErrFocusedTests is returned by SelectUnits when focused units are present and the
// options forbid them.
var ErrFocusedTests = errors.New("focused tests are not allowed in this run")

// SelectUnits applies focus: if any unit has Only set, only those units are kept.
func SelectUnits(opts Options, units []Unit) ([]Unit, error) {
	var focused []Unit
	for _, u := range units {
		if u.Only {
			focused = append(focused, u)
		}
	}
	if len(focused) == 0 {
		return units, nil
	}
	if opts.ForbidOnly {
		var names []string
		for _, u := range focused {
			names = append(names, u.ID.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrFocusedTests, strings.Join(names, ", "))
	}
	return focused, nil
}

// RunUnits executes every unit on a bounded pool of workers and returns the combined
// results, ordered by test ID. Units share no state; each attempt of a unit gets a fresh
// Context, derived from ctx. Once ctx is done no further unit or retry is started, and
// the units that never ran are reported as skipped.
func RunUnits(
	ctx context.Context,
	opts Options,
	filter Filter,
	testLogger TestLogger,
	units []Unit,
) Results {
	if testLogger == nil {
		testLogger = nullTestLogger{}
	}
	env := &environment{
		filter:     filter,
		testLogger: testLogger,
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(units) {
		workers = len(units)
	}

	queue := make(chan Unit)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range queue {
				env.runUnit(ctx, opts, u)
			}
		}()
	}
	for _, u := range units {
		queue <- u
	}
	close(queue)
	wg.Wait()

	env.results.sort()
	return env.results
}

func (env *environment) runUnit(ctx context.Context, opts Options, u Unit) {
	env.testLogger.TestStarted(u.ID)
	if env.filter != nil && !env.filter(u.ID) {
		env.testLogger.TestSkipped(u.ID, "excluded by filter parameters")
		return
	}
	if ctx.Err() != nil {
		env.lock.Lock()
		env.results.add(TestResult{TestID: u.ID, Skipped: true, SkipReason: cancelledReason})
		env.lock.Unlock()
		env.testLogger.TestSkipped(u.ID, cancelledReason)
		return
	}

	started := time.Now()
	var (
		c    *Context
		sink *resultSink
	)
	for attempt := 0; attempt <= opts.Retries; attempt++ {
		if attempt > 0 {
			env.testLogger.TestRetrying(u.ID, attempt)
		}
		sink = &resultSink{}
		c = newContext(env, sink, u.ID, attempt, ctx, opts.Timeout)
		c.run(u.Action)
		if c.skipped || !c.Failed() || ctx.Err() != nil {
			break
		}
	}

	if root := sink.last(); root != nil {
		root.Duration = time.Since(started)
	}
	env.merge(sink.unitResults())

	if c.skipped {
		env.testLogger.TestSkipped(u.ID, c.skipReason)
	} else {
		env.testLogger.TestFinished(u.ID, c.Failed(), c.debugLogger.Output())
	}
}
