package webserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/prepwise/website-e2e/config"
	"github.com/prepwise/website-e2e/framework"
)

const (
	defaultPollInterval = 100 * time.Millisecond
	defaultStopTimeout  = 10 * time.Second

	// recentOutputLines of a server's output are shown when it fails to become ready.
	recentOutputLines = 20
)

// Manager starts the web servers a run depends on and stops them again afterward.
type Manager struct {
	output       io.Writer
	logger       framework.Logger
	spawn        spawnFunc
	checkReady   func(context.Context, config.WebServer) error
	pollInterval time.Duration
	stopTimeout  time.Duration
	running      []*server
	lock         sync.Mutex
}

type server struct {
	config  config.WebServer
	process process // nil for a reused server
}

// NewManager creates a Manager that prints progress to output and sends the output of
// spawned servers to logger.
func NewManager(output io.Writer, logger framework.Logger) *Manager {
	if output == nil {
		output = io.Discard
	}
	if logger == nil {
		logger = framework.NullLogger()
	}
	return &Manager{
		output:       output,
		logger:       logger,
		spawn:        spawnExec,
		checkReady:   CheckReady,
		pollInterval: defaultPollInterval,
		stopTimeout:  defaultStopTimeout,
	}
}

// Start brings up every server in order. If any of them cannot be started, the ones
// that were already started are stopped and the error is returned; no test should run
// in that case.
func (m *Manager) Start(ctx context.Context, servers []config.WebServer) error {
	for _, ws := range servers {
		if err := m.start(ctx, ws); err != nil {
			_ = m.Stop()
			return fmt.Errorf("web server %q: %w", ws.Name, err)
		}
	}
	return nil
}

func (m *Manager) start(ctx context.Context, ws config.WebServer) error {
	if err := m.checkReady(ctx, ws); err == nil {
		if !ws.ReuseExistingServer {
			return fmt.Errorf("%s is already used, make sure that nothing is running on the port or set reuseExistingServer",
				describe(ws))
		}
		fmt.Fprintf(m.output, "♻️  Reusing %s already running at %s\n", ws.Name, describe(ws))
		m.add(&server{config: ws})
		return nil
	}

	fmt.Fprintf(m.output, "🚀 Starting %s: %s\n", ws.Name, commandLine(ws))
	recent := &framework.CapturingLogger{Limit: recentOutputLines}
	logger := framework.LoggerWithPrefix(framework.MultiLogger(m.logger, recent), "["+ws.Name+"] ")
	p, err := m.spawn(ws, logger)
	if err != nil {
		return fmt.Errorf("could not start %q: %w", ws.Command, err)
	}
	m.add(&server{config: ws, process: p})

	check := func(ctx context.Context) error { return m.checkReady(ctx, ws) }
	if err := waitReady(ctx, check, time.Duration(ws.Timeout), m.pollInterval, p); err != nil {
		if output := recent.Output(); len(output) > 0 {
			fmt.Fprintf(m.output, "Last output of %s:\n", ws.Name)
			output.Dump(m.output, "  ")
		}
		return err
	}
	fmt.Fprintf(m.output, "✅ %s is ready at %s\n", ws.Name, describe(ws))
	return nil
}

func (m *Manager) add(s *server) {
	m.lock.Lock()
	m.running = append(m.running, s)
	m.lock.Unlock()
}

// Stop stops every server this Manager spawned, in reverse order of starting. Servers
// that were reused are left alone.
func (m *Manager) Stop() error {
	m.lock.Lock()
	running := m.running
	m.running = nil
	m.lock.Unlock()

	var errs []error
	for i := len(running) - 1; i >= 0; i-- {
		s := running[i]
		if s.process == nil {
			continue
		}
		if err := s.process.Stop(m.stopTimeout); err != nil {
			errs = append(errs, fmt.Errorf("stopping %s: %w", s.config.Name, err))
		}
	}
	return errors.Join(errs...)
}

// waitReady calls check every interval until it succeeds. It gives up when timeout
// elapses, when ctx is done, or when the process exits first.
func waitReady(
	ctx context.Context,
	check func(context.Context) error,
	timeout time.Duration,
	interval time.Duration,
	p process,
) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var exited <-chan struct{}
	if p != nil {
		exited = p.Exited()
	}
	lastErr := errors.New("readiness was never checked")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-exited:
			if err := p.Err(); err != nil {
				return fmt.Errorf("process exited before becoming ready: %w", err)
			}
			return errors.New("process exited before becoming ready")
		case <-deadline.C:
			return fmt.Errorf("timed out after %s waiting for readiness, last result was: %w", timeout, lastErr)
		case <-ticker.C:
			if lastErr = check(ctx); lastErr == nil {
				return nil
			}
		}
	}
}

func describe(ws config.WebServer) string {
	if ws.URL != "" {
		return ws.URL
	}
	return fmt.Sprintf("port %d", ws.Port)
}
