// Package browser runs test pages in a real browser. Two drivers are available:
// playwright, which covers every engine of the test matrix, and rod, which drives a
// local Chromium over the DevTools protocol.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/prepwise/website-e2e/config"
	"github.com/prepwise/website-e2e/fixtures"
	"github.com/prepwise/website-e2e/framework"
)

// Driver creates isolated browser sessions for projects of the test matrix.
type Driver interface {
	NewSession(ctx context.Context, project config.Project, opts SessionOptions) (Session, error)
	Close() error
}

type SessionOptions struct {
	// Attempt is 0 for the first execution of a test and n for its n-th retry.
	Attempt int

	// ArtifactName identifies the test in artifact file names.
	ArtifactName string

	BaseURL string

	// ExpectTimeout bounds each wait on page state, such as reading the title or
	// counting elements. Zero leaves only the caller's context as the bound.
	ExpectTimeout time.Duration
}

// Session is one isolated browser context with a single page. It can also send HTTP
// requests that share the context's cookies.
type Session interface {
	fixtures.Requester

	// Goto navigates to path, relative to the base URL, and returns the HTTP status of
	// the main document.
	Goto(ctx context.Context, path string) (int, error)
	Title(ctx context.Context) (string, error)
	Count(ctx context.Context, selector string) (int, error)
	Screenshot(path string) error

	// Finish ends the session's recordings and keeps the artifacts the policy asks
	// for. It is called once, before Close.
	Finish(failed bool) (Artifacts, error)
	Close() error
}

// Artifacts are the paths of the files kept for a session; empty means not kept.
type Artifacts struct {
	Screenshot string
	Video      string
	Trace      string
}

// NewDriver creates the driver selected by cfg.Driver.
func NewDriver(cfg config.Config, logger framework.Logger) (Driver, error) {
	policy := PolicyFromConfig(cfg)
	switch cfg.Driver {
	case config.DriverPlaywright, "":
		return NewPlaywrightDriver(cfg.Headless, policy, logger)
	case config.DriverRod:
		return NewRodDriver(cfg.Headless, policy, logger)
	default:
		return nil, fmt.Errorf("unknown browser driver %q", cfg.Driver)
	}
}

// timeoutMillis converts the time left before ctx's deadline into the millisecond
// timeout browser APIs take. Zero means no deadline.
func timeoutMillis(ctx context.Context) float64 {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0
	}
	left := time.Until(deadline)
	if left < time.Millisecond {
		return 1
	}
	return float64(left / time.Millisecond)
}

// expectContext bounds ctx by the expect timeout of a session.
func expectContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// await returns the result of call, or ctx's error if ctx is done first. It is for
// browser APIs that take neither a context nor a timeout; an abandoned call finishes in
// the background once the browser answers or is closed.
func await[T any](ctx context.Context, call func() (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := call()
		done <- result{v, err}
	}()
	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
