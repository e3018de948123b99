// Package browsertest provides an in-memory browser driver for testing code that runs
// on top of browser sessions.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/prepwise/website-e2e/browser"
	"github.com/prepwise/website-e2e/config"
	"github.com/prepwise/website-e2e/fixtures"
)

// Page is the canned state of one path.
type Page struct {
	Status int
	Title  string
	Counts map[string]int
	// Hang makes reads of the page block until their context is done, like a browser
	// that stopped answering.
	Hang bool
}

// Driver serves Pages by path and forwards HTTP requests to Requester.
type Driver struct {
	Pages     map[string]Page
	Requester fixtures.Requester
	// OpenErr, if set, is returned by NewSession.
	OpenErr error

	sessions []*Session
	closed   bool
	lock     sync.Mutex
}

func (d *Driver) NewSession(ctx context.Context, project config.Project, opts browser.SessionOptions) (browser.Session, error) {
	if d.OpenErr != nil {
		return nil, d.OpenErr
	}
	s := &Session{driver: d, Project: project, Options: opts}
	d.lock.Lock()
	d.sessions = append(d.sessions, s)
	d.lock.Unlock()
	return s, nil
}

func (d *Driver) Close() error {
	d.lock.Lock()
	d.closed = true
	d.lock.Unlock()
	return nil
}

// Sessions returns every session created so far.
func (d *Driver) Sessions() []*Session {
	d.lock.Lock()
	defer d.lock.Unlock()
	return append([]*Session(nil), d.sessions...)
}

func (d *Driver) Closed() bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.closed
}

type Session struct {
	Project config.Project
	Options browser.SessionOptions

	driver   *Driver
	current  string
	visited  []string
	finished bool
	failed   bool
	closed   bool
	lock     sync.Mutex
}

func (s *Session) Goto(ctx context.Context, path string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.current = path
	s.visited = append(s.visited, path)
	p, ok := s.driver.Pages[path]
	if !ok {
		return 404, nil
	}
	return p.Status, nil
}

func (s *Session) page() (Page, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.current == "" {
		return Page{}, errors.New("no page loaded")
	}
	return s.driver.Pages[s.current], nil
}

func (s *Session) read(ctx context.Context) (Page, error) {
	p, err := s.page()
	if err != nil {
		return p, err
	}
	if p.Hang {
		<-ctx.Done()
	}
	return p, ctx.Err()
}

func (s *Session) Title(ctx context.Context) (string, error) {
	p, err := s.read(ctx)
	return p.Title, err
}

func (s *Session) Count(ctx context.Context, selector string) (int, error) {
	p, err := s.read(ctx)
	return p.Counts[selector], err
}

func (s *Session) Screenshot(path string) error {
	return nil
}

func (s *Session) Do(ctx context.Context, req fixtures.Request) (fixtures.Response, error) {
	if s.driver.Requester == nil {
		return fixtures.Response{}, fmt.Errorf("no requester for %s %s", req.Method, req.URL)
	}
	return s.driver.Requester.Do(ctx, req)
}

func (s *Session) Finish(failed bool) (browser.Artifacts, error) {
	s.lock.Lock()
	s.finished = true
	s.failed = failed
	s.lock.Unlock()
	return browser.Artifacts{}, nil
}

func (s *Session) Close() error {
	s.lock.Lock()
	s.closed = true
	s.lock.Unlock()
	return nil
}

func (s *Session) Visited() []string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]string(nil), s.visited...)
}

// State reports whether Finish and Close were called, and the outcome passed to Finish.
func (s *Session) State() (finished, failed, closed bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.finished, s.failed, s.closed
}
