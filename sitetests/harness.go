package sitetests

import (
	"github.com/prepwise/website-e2e/browser"
	"github.com/prepwise/website-e2e/config"
	"github.com/prepwise/website-e2e/fixtures"
	"github.com/prepwise/website-e2e/lifecycle"
)

// Harness is the state shared by every test of a run.
type Harness struct {
	Config     config.Config
	Driver     browser.Driver
	RunContext lifecycle.RunContext
}

// backendURL prefers the backend recorded by setup over the configured one.
func (h *Harness) backendURL() string {
	if h.RunContext.BackendURL != "" {
		return h.RunContext.BackendURL
	}
	return h.Config.BackendURL
}

func (h *Harness) baseURL() string {
	if h.RunContext.BaseURL != "" {
		return h.RunContext.BaseURL
	}
	return h.Config.BaseURL
}

func (h *Harness) fixturesClient(requester fixtures.Requester, t *T) *fixtures.Client {
	return fixtures.NewClient(h.backendURL(), requester, t.context.DebugLogger())
}
