package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/prepwise/website-e2e/config"
	"github.com/prepwise/website-e2e/fixtures"
	"github.com/prepwise/website-e2e/framework"
)

type playwrightDriver struct {
	pw       *playwright.Playwright
	headless bool
	policy   ArtifactPolicy
	logger   framework.Logger
	browsers map[string]playwright.Browser
	lock     sync.Mutex
}

// NewPlaywrightDriver starts the Playwright server. Browsers are launched on first use
// and shared by every session of the same engine.
func NewPlaywrightDriver(headless bool, policy ArtifactPolicy, logger framework.Logger) (Driver, error) {
	if logger == nil {
		logger = framework.NullLogger()
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}
	return &playwrightDriver{
		pw:       pw,
		headless: headless,
		policy:   policy,
		logger:   logger,
		browsers: make(map[string]playwright.Browser),
	}, nil
}

func (d *playwrightDriver) browser(engine string) (playwright.Browser, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if b, ok := d.browsers[engine]; ok {
		return b, nil
	}
	var bt playwright.BrowserType
	switch engine {
	case config.Chromium:
		bt = d.pw.Chromium
	case config.Firefox:
		bt = d.pw.Firefox
	case config.WebKit:
		bt = d.pw.WebKit
	default:
		return nil, fmt.Errorf("unknown browser engine %q", engine)
	}
	d.logger.Printf("Launching %s (headless=%t)", engine, d.headless)
	b, err := bt.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(d.headless),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch %s: %w", engine, err)
	}
	d.browsers[engine] = b
	return b, nil
}

func (d *playwrightDriver) contextOptions(project config.Project, opts SessionOptions) (playwright.BrowserNewContextOptions, error) {
	var o playwright.BrowserNewContextOptions
	if project.Device != "" {
		device, ok := d.pw.Devices[project.Device]
		if !ok || device == nil {
			return o, fmt.Errorf("unknown device %q in project %q", project.Device, project.Name)
		}
		o.UserAgent = playwright.String(device.UserAgent)
		o.Viewport = device.Viewport
		o.Screen = device.Screen
		o.DeviceScaleFactor = playwright.Float(device.DeviceScaleFactor)
		o.IsMobile = playwright.Bool(device.IsMobile)
		o.HasTouch = playwright.Bool(device.HasTouch)
	}
	if project.Viewport != nil {
		o.Viewport = &playwright.Size{Width: project.Viewport.Width, Height: project.Viewport.Height}
	}
	if opts.BaseURL != "" {
		o.BaseURL = playwright.String(opts.BaseURL)
	}
	if d.policy.RecordVideo(opts.Attempt) {
		o.RecordVideo = &playwright.RecordVideo{Dir: d.policy.VideoTempDir()}
	}
	return o, nil
}

func (d *playwrightDriver) NewSession(ctx context.Context, project config.Project, opts SessionOptions) (Session, error) {
	b, err := d.browser(project.Browser)
	if err != nil {
		return nil, err
	}
	o, err := d.contextOptions(project, opts)
	if err != nil {
		return nil, err
	}
	bc, err := b.NewContext(o)
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	s := &playwrightSession{context: bc, policy: d.policy, opts: opts}
	if d.policy.TraceEnabled(opts.Attempt) {
		err = bc.Tracing().Start(playwright.TracingStartOptions{
			Screenshots: playwright.Bool(true),
			Snapshots:   playwright.Bool(true),
		})
		if err != nil {
			_ = bc.Close()
			return nil, fmt.Errorf("failed to start tracing: %w", err)
		}
		s.tracing = true
	}
	if s.page, err = bc.NewPage(); err != nil {
		_ = bc.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	if opts.ExpectTimeout > 0 {
		s.page.SetDefaultTimeout(float64(opts.ExpectTimeout / time.Millisecond))
	}
	return s, nil
}

func (d *playwrightDriver) Close() error {
	d.lock.Lock()
	defer d.lock.Unlock()
	var errs []error
	for engine, b := range d.browsers {
		if err := b.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", engine, err))
		}
	}
	d.browsers = make(map[string]playwright.Browser)
	if err := d.pw.Stop(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

type playwrightSession struct {
	context playwright.BrowserContext
	page    playwright.Page
	policy  ArtifactPolicy
	opts    SessionOptions
	tracing bool
	closed  bool
}

func (s *playwrightSession) Goto(ctx context.Context, path string) (int, error) {
	resp, err := s.page.Goto(path, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(timeoutMillis(ctx)),
	})
	if err != nil {
		return 0, err
	}
	if resp == nil {
		return 0, nil
	}
	return resp.Status(), nil
}

func (s *playwrightSession) Title(ctx context.Context) (string, error) {
	ctx, cancel := expectContext(ctx, s.opts.ExpectTimeout)
	defer cancel()
	return await(ctx, s.page.Title)
}

func (s *playwrightSession) Count(ctx context.Context, selector string) (int, error) {
	ctx, cancel := expectContext(ctx, s.opts.ExpectTimeout)
	defer cancel()
	return await(ctx, s.page.Locator(selector).Count)
}

func (s *playwrightSession) Screenshot(path string) error {
	if err := ensureParent(path); err != nil {
		return err
	}
	_, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	return err
}

func (s *playwrightSession) Do(ctx context.Context, req fixtures.Request) (fixtures.Response, error) {
	o := playwright.APIRequestContextFetchOptions{
		Method:  playwright.String(req.Method),
		Headers: req.Headers,
		Timeout: playwright.Float(timeoutMillis(ctx)),
	}
	if req.Body != nil {
		o.Data = string(req.Body)
	}
	resp, err := s.context.Request().Fetch(req.URL, o)
	if err != nil {
		return fixtures.Response{}, err
	}
	defer resp.Dispose()
	body, err := resp.Body()
	if err != nil {
		return fixtures.Response{}, err
	}
	return fixtures.Response{Status: resp.Status(), Body: body}, nil
}

func (s *playwrightSession) Finish(failed bool) (Artifacts, error) {
	var (
		a    Artifacts
		errs []error
	)
	name, attempt := s.opts.ArtifactName, s.opts.Attempt

	if s.policy.TakeScreenshot(failed) {
		path := s.policy.ScreenshotPath(name, attempt)
		if err := s.Screenshot(path); err != nil {
			errs = append(errs, fmt.Errorf("screenshot: %w", err))
		} else {
			a.Screenshot = path
		}
	}

	if s.tracing {
		s.tracing = false
		if s.policy.KeepTrace(failed, attempt) {
			path := s.policy.TracePath(name, attempt)
			if err := ensureParent(path); err != nil {
				errs = append(errs, err)
			} else if err := s.context.Tracing().Stop(path); err != nil {
				errs = append(errs, fmt.Errorf("trace: %w", err))
			} else {
				a.Trace = path
			}
		} else if err := s.context.Tracing().Stop(); err != nil {
			errs = append(errs, fmt.Errorf("trace: %w", err))
		}
	}

	video := s.page.Video()
	// the video is only complete once the page is closed
	if err := s.Close(); err != nil {
		errs = append(errs, err)
	}
	if video != nil {
		if s.policy.KeepVideo(failed, attempt) {
			path := s.policy.VideoPath(name, attempt)
			if err := video.SaveAs(path); err != nil {
				errs = append(errs, fmt.Errorf("video: %w", err))
			} else {
				a.Video = path
			}
		}
		if err := video.Delete(); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("video: %w", err))
		}
	}
	return a, errors.Join(errs...)
}

func (s *playwrightSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.context.Close()
}
