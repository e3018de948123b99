package framework

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"
)

type environment struct {
	results    Results
	testLogger TestLogger
	filter     Filter
	lock       sync.Mutex
}

func (env *environment) merge(results []TestResult) {
	env.lock.Lock()
	for _, r := range results {
		env.results.add(r)
	}
	env.lock.Unlock()
}

// resultSink collects the results of one execution of a test and its subtests. A retried
// test gets a fresh sink per attempt so that only the last attempt is reported.
type resultSink struct {
	tests []TestResult
	lock  sync.Mutex
}

func (s *resultSink) add(r TestResult) {
	s.lock.Lock()
	s.tests = append(s.tests, r)
	s.lock.Unlock()
}

// unitResults are the results a unit contributes to the run. A unit whose cases ran as
// subtests is only a container, so its own result is left out unless it failed for a
// reason of its own; otherwise every failing case would be counted twice.
func (s *resultSink) unitResults() []TestResult {
	s.lock.Lock()
	defer s.lock.Unlock()
	n := len(s.tests)
	if n > 1 && len(s.tests[n-1].Errors) == 0 {
		return s.tests[:n-1]
	}
	return s.tests
}

func (s *resultSink) last() *TestResult {
	s.lock.Lock()
	defer s.lock.Unlock()
	if len(s.tests) == 0 {
		return nil
	}
	return &s.tests[len(s.tests)-1]
}

type Context struct {
	env         *environment
	sink        *resultSink
	id          TestID
	attempt     int
	ctx         context.Context
	cancel      context.CancelFunc
	timeout     time.Duration
	debugLogger CapturingLogger
	failed      bool
	skipped     bool
	skipReason  string
	errors      []error
	attachments []Attachment
	deferred    []func()
	lock        sync.Mutex
}

// Run executes action as the root of a sequential test tree and returns the results of
// every subtest started with Context.Run.
func Run(
	filter func(TestID) bool,
	testLogger TestLogger,
	action func(*Context),
) Results {
	if testLogger == nil {
		testLogger = nullTestLogger{}
	}
	env := &environment{
		filter:     filter,
		testLogger: testLogger,
	}
	sink := &resultSink{}
	c := newContext(env, sink, TestID{}, 0, context.Background(), 0)
	c.run(action)
	env.merge(sink.tests)
	env.results.sort()
	return env.results
}

func newContext(
	env *environment,
	sink *resultSink,
	id TestID,
	attempt int,
	parent context.Context,
	timeout time.Duration,
) *Context {
	c := &Context{env: env, sink: sink, id: id, attempt: attempt, timeout: timeout}
	if timeout > 0 {
		c.ctx, c.cancel = context.WithTimeout(parent, timeout)
	} else {
		c.ctx, c.cancel = context.WithCancel(parent)
	}
	return c
}

func (c *Context) run(action func(*Context)) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			c.recovered(r)
		}
		c.runDeferred()
		if !c.skipped {
			switch c.ctx.Err() {
			case context.DeadlineExceeded:
				if c.timeout > 0 {
					c.addError(fmt.Errorf("test timeout of %s exceeded", c.timeout))
				}
			case context.Canceled:
				c.addError(errors.New(cancelledReason))
			}
		}
		c.cancel()

		c.lock.Lock()
		result := TestResult{
			TestID:      c.id,
			Errors:      append([]error(nil), c.errors...),
			Skipped:     c.skipped,
			SkipReason:  c.skipReason,
			Failed:      c.failed && !c.skipped,
			Attempts:    c.attempt + 1,
			Duration:    time.Since(started),
			Attachments: append([]Attachment(nil), c.attachments...),
		}
		c.lock.Unlock()
		if len(c.id.Path) > 0 {
			c.sink.add(result)
		}
	}()

	action(c)
}

func (c *Context) recovered(r interface{}) {
	if c.skipped {
		return
	}
	var addError error
	if _, ok := r.(*Context); ok {
		c.lock.Lock()
		noErrors := len(c.errors) == 0
		c.lock.Unlock()
		if noErrors {
			addError = errors.New("test failed with no failure message")
		}
	} else {
		addError = fmt.Errorf("unexpected panic in test: %+v\n%s", r, string(debug.Stack()))
	}
	c.lock.Lock()
	c.failed = true
	c.lock.Unlock()
	if addError != nil {
		c.addError(addError)
	}
}

func (c *Context) runDeferred() {
	for i := len(c.deferred) - 1; i >= 0; i-- {
		func(f func()) {
			defer func() {
				if r := recover(); r != nil {
					c.addError(fmt.Errorf("unexpected panic in deferred cleanup: %+v", r))
				}
			}()
			f()
		}(c.deferred[i])
	}
	c.deferred = nil
}

func (c *Context) addError(err error) {
	c.lock.Lock()
	c.failed = true
	c.errors = append(c.errors, err)
	c.lock.Unlock()
	c.env.testLogger.TestError(c.id, reformatError(err))
}

func (c *Context) ID() TestID {
	return c.id
}

// Attempt is 0 for the first execution of a test and n for its n-th retry.
func (c *Context) Attempt() int {
	return c.attempt
}

// Ctx returns a context.Context that is cancelled when the test ends or its timeout
// elapses. Blocking operations inside a test should use it.
func (c *Context) Ctx() context.Context {
	return c.ctx
}

func (c *Context) Failed() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.failed
}

func (c *Context) Run(name string, action func(*Context)) {
	id := c.id.Plus(name)

	c.env.testLogger.TestStarted(id)
	if c.env.filter != nil && !c.env.filter(id) {
		c.env.testLogger.TestSkipped(id, "excluded by filter parameters")
		return
	}
	c1 := newContext(c.env, c.sink, id, c.attempt, c.ctx, 0)
	c1.timeout = c.timeout
	c1.run(action)
	if c1.skipped {
		c.env.testLogger.TestSkipped(id, c1.skipReason)
	} else {
		if c1.Failed() {
			c.lock.Lock()
			c.failed = true
			c.lock.Unlock()
		}
		c.env.testLogger.TestFinished(id, c1.Failed(), c1.debugLogger.Output())
	}
}

func (c *Context) Errorf(format string, args ...interface{}) {
	c.addError(fmt.Errorf(format, args...))
}

func (c *Context) FailNow() {
	panic(c)
}

func (c *Context) Skip() {
	c.skipped = true
	panic(c)
}

func (c *Context) SkipWithReason(reason string) {
	c.skipReason = reason
	c.Skip()
}

// Defer schedules cleanup to run when the test ends, whether it passed, failed or panicked.
// Deferred functions run in reverse order.
func (c *Context) Defer(cleanup func()) {
	c.deferred = append(c.deferred, cleanup)
}

// Attach records a file produced by the test, such as a screenshot, so that reports can
// refer to it.
func (c *Context) Attach(name, path string) {
	c.lock.Lock()
	c.attachments = append(c.attachments, Attachment{Name: name, Path: path})
	c.lock.Unlock()
}

func (c *Context) Debug(message string, args ...interface{}) {
	c.debugLogger.Printf(message, args...)
}

func (c *Context) DebugLogger() Logger {
	return &c.debugLogger
}
