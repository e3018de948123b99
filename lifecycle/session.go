package lifecycle

import (
	"context"
	"errors"

	"github.com/prepwise/website-e2e/browser"
	"github.com/prepwise/website-e2e/config"
	"github.com/prepwise/website-e2e/fixtures"
)

// CleanupSession is the HTTP client teardown works through.
type CleanupSession interface {
	fixtures.Requester
	Close() error
}

type SessionOpener interface {
	Open(ctx context.Context) (CleanupSession, error)
}

type SessionOpenerFunc func(ctx context.Context) (CleanupSession, error)

func (f SessionOpenerFunc) Open(ctx context.Context) (CleanupSession, error) {
	return f(ctx)
}

// HTTPSessionOpener opens sessions that send requests directly, without a browser.
type HTTPSessionOpener struct {
	Requester fixtures.Requester
}

func (o HTTPSessionOpener) Open(context.Context) (CleanupSession, error) {
	r := o.Requester
	if r == nil {
		r = fixtures.NewHTTPRequester()
	}
	return httpSession{r}, nil
}

type httpSession struct {
	fixtures.Requester
}

func (httpSession) Close() error { return nil }

// BrowserSessionOpener launches a browser of its own and opens one page in it. Closing
// the session closes both the page's context and the browser.
type BrowserSessionOpener struct {
	NewDriver func() (browser.Driver, error)
	Project   config.Project
	BaseURL   string
}

func (o BrowserSessionOpener) Open(ctx context.Context) (CleanupSession, error) {
	driver, err := o.NewDriver()
	if err != nil {
		return nil, err
	}
	s, err := driver.NewSession(ctx, o.Project, browser.SessionOptions{ArtifactName: "teardown", BaseURL: o.BaseURL})
	if err != nil {
		_ = driver.Close()
		return nil, err
	}
	return &browserSession{Session: s, driver: driver}, nil
}

type browserSession struct {
	browser.Session
	driver browser.Driver
}

func (s *browserSession) Close() error {
	return errors.Join(s.Session.Close(), s.driver.Close())
}
