package sitetests

import (
	"context"
	"fmt"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/prepwise/website-e2e/browser"
	"github.com/prepwise/website-e2e/config"
	"github.com/prepwise/website-e2e/fixtures"
	"github.com/prepwise/website-e2e/framework"
	"github.com/prepwise/website-e2e/lifecycle"
)

// T represents a test or subtest in the site suite.
//
// It implements the same basic functionality as Go's testing.T, but in an environment that
// is outside of the Go test runner. To make assertions, use the assert and require
// packages, passing the *T as if it were a *testing.T.
//
// Every T runs in one project of the test matrix and owns at most one browser session,
// which is opened the first time the test touches the page and released when the test
// ends, whatever its outcome.
type T struct {
	context *framework.Context
	harness *Harness
	project config.Project
	session browser.Session
}

func newTestScope(c *framework.Context, h *Harness, project config.Project) *T {
	return &T{context: c, harness: h, project: project}
}

// Errorf is called by assertions to log a test failure. It does not cause an immediate exit.
func (t *T) Errorf(format string, args ...interface{}) {
	t.context.Errorf(format, args...)
}

// FailNow is called by assertions when a test should fail and immediately exit. The methods in
// the require package call FailNow.
func (t *T) FailNow() {
	t.context.FailNow()
}

// Run runs a subtest. The subtest gets its own browser session if it uses one.
func (t *T) Run(name string, action func(*T)) {
	t.context.Run(name, func(c *framework.Context) {
		action(newTestScope(c, t.harness, t.project))
	})
}

func (t *T) Debug(format string, args ...interface{}) {
	t.context.Debug(format, args...)
}

func (t *T) Skip(reason string) {
	t.context.SkipWithReason(reason)
}

func (t *T) Project() config.Project {
	return t.project
}

func (t *T) RunContext() lifecycle.RunContext {
	return t.harness.RunContext
}

// Ctx is cancelled when the test times out.
func (t *T) Ctx() context.Context {
	return t.context.Ctx()
}

// Page returns the test's browser session, opening it if necessary.
func (t *T) Page() browser.Session {
	if t.session != nil {
		return t.session
	}
	s, err := t.harness.Driver.NewSession(t.Ctx(), t.project, browser.SessionOptions{
		Attempt:       t.context.Attempt(),
		ArtifactName:  t.context.ID().String(),
		BaseURL:       t.harness.baseURL(),
		ExpectTimeout: time.Duration(t.harness.Config.ExpectTimeout),
	})
	require.NoError(t, err, "could not open a browser session")
	t.session = s
	t.context.Defer(func() { t.releaseSession(s) })
	return s
}

func (t *T) releaseSession(s browser.Session) {
	artifacts, err := s.Finish(t.context.Failed())
	if err != nil {
		t.Debug("Could not save all artifacts: %s", err)
	}
	for name, path := range map[string]string{
		"screenshot": artifacts.Screenshot,
		"video":      artifacts.Video,
		"trace":      artifacts.Trace,
	} {
		if path != "" {
			t.context.Attach(name, path)
		}
	}
	if err := s.Close(); err != nil {
		t.Debug("Could not close browser session: %s", err)
	}
}

// Goto navigates to path and returns the HTTP status of the page. The test fails and
// exits if navigation itself fails.
func (t *T) Goto(path string) int {
	status, err := t.Page().Goto(t.Ctx(), path)
	require.NoError(t, err, "navigation to %s failed", path)
	t.Debug("GET %s => %d", path, status)
	return status
}

func (t *T) Title() string {
	title, err := t.Page().Title(t.Ctx())
	require.NoError(t, err)
	return title
}

// Count returns the number of elements matching selector on the current page.
func (t *T) Count(selector string) int {
	n, err := t.Page().Count(t.Ctx(), selector)
	require.NoError(t, err, "could not query %s", selector)
	return n
}

// Fixtures returns a client for the backend's test-data API that sends its requests
// through the browser session, with the page's cookies.
func (t *T) Fixtures() *fixtures.Client {
	return t.harness.fixturesClient(t.Page(), t)
}

// RequireFixture skips the test if the run has no fixture of the given kind.
func (t *T) RequireFixture(kind, id string) {
	if id == "" {
		t.Skip(fmt.Sprintf("no %s was prepared for this run", kind))
	}
}
