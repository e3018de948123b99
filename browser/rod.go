package browser

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/prepwise/website-e2e/config"
	"github.com/prepwise/website-e2e/fixtures"
	"github.com/prepwise/website-e2e/framework"
)

// rodDevice is the emulation applied for a named device. Only the devices of the
// default matrix that run on Chromium are known.
type rodDevice struct {
	width, height int
	scale         float64
	mobile        bool
	userAgent     string
}

var rodDevices = map[string]rodDevice{
	"Desktop Chrome": {width: 1280, height: 720, scale: 1},
	"Pixel 5": {
		width: 393, height: 851, scale: 2.75, mobile: true,
		userAgent: "Mozilla/5.0 (Linux; Android 11; Pixel 5) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36",
	},
}

type rodDriver struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	policy   ArtifactPolicy
	logger   framework.Logger
}

// NewRodDriver launches a local Chromium. Only chromium projects are supported, and
// neither traces nor videos are recorded; screenshots follow the policy.
func NewRodDriver(headless bool, policy ArtifactPolicy, logger framework.Logger) (Driver, error) {
	if logger == nil {
		logger = framework.NullLogger()
	}
	l := launcher.New().
		Headless(headless).
		Set("no-sandbox").
		Set("disable-gpu")

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch Chrome: %w", err)
	}
	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to Chrome: %w", err)
	}
	logger.Printf("Connected to Chrome at %s", u)
	return &rodDriver{launcher: l, browser: browser, policy: policy, logger: logger}, nil
}

func (d *rodDriver) NewSession(ctx context.Context, project config.Project, opts SessionOptions) (Session, error) {
	if project.Browser != config.Chromium {
		return nil, fmt.Errorf("the rod driver cannot run %s (project %q)", project.Browser, project.Name)
	}
	incognito, err := d.browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = incognito.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	s := &rodSession{browser: incognito, page: page, policy: d.policy, opts: opts}
	if err := s.emulate(project); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (d *rodDriver) Close() error {
	err := d.browser.Close()
	d.launcher.Kill()
	d.launcher.Cleanup()
	return err
}

type rodSession struct {
	browser *rod.Browser
	page    *rod.Page
	policy  ArtifactPolicy
	opts    SessionOptions
	closed  bool
}

func (s *rodSession) emulate(project config.Project) error {
	device, known := rodDevices[project.Device]
	if project.Device != "" && !known {
		return fmt.Errorf("unknown device %q in project %q", project.Device, project.Name)
	}
	if project.Viewport != nil {
		device.width, device.height = project.Viewport.Width, project.Viewport.Height
	}
	if device.width == 0 {
		return nil
	}
	if device.scale == 0 {
		device.scale = 1
	}
	err := s.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             device.width,
		Height:            device.height,
		DeviceScaleFactor: device.scale,
		Mobile:            device.mobile,
	})
	if err != nil {
		return err
	}
	if device.userAgent != "" {
		return s.page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: device.userAgent})
	}
	return nil
}

func (s *rodSession) resolve(path string) (string, error) {
	if s.opts.BaseURL == "" {
		return path, nil
	}
	base, err := url.Parse(s.opts.BaseURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

const navigationStatusJS = `() => {
	const entry = performance.getEntriesByType('navigation')[0];
	return entry && entry.responseStatus ? entry.responseStatus : 0;
}`

func (s *rodSession) Goto(ctx context.Context, path string) (int, error) {
	target, err := s.resolve(path)
	if err != nil {
		return 0, err
	}
	page := s.page.Context(ctx)
	if err := page.Navigate(target); err != nil {
		return 0, fmt.Errorf("failed to navigate to %s: %w", target, err)
	}
	if err := page.WaitLoad(); err != nil {
		return 0, err
	}
	res, err := page.Eval(navigationStatusJS)
	if err != nil {
		return 0, err
	}
	return res.Value.Int(), nil
}

func (s *rodSession) Title(ctx context.Context) (string, error) {
	ctx, cancel := expectContext(ctx, s.opts.ExpectTimeout)
	defer cancel()
	info, err := s.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.Title, nil
}

func (s *rodSession) Count(ctx context.Context, selector string) (int, error) {
	ctx, cancel := expectContext(ctx, s.opts.ExpectTimeout)
	defer cancel()
	els, err := s.page.Context(ctx).Elements(selector)
	if err != nil {
		return 0, err
	}
	return len(els), nil
}

func (s *rodSession) Screenshot(path string) error {
	data, err := s.page.Screenshot(true, nil)
	if err != nil {
		return err
	}
	if err := ensureParent(path); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

const fetchJS = `async (url, method, headers, body) => {
	const resp = await fetch(url, {
		method: method,
		headers: headers,
		body: body === '' ? undefined : body,
		credentials: 'include',
	});
	return { status: resp.status, body: await resp.text() };
}`

// Do sends the request with the page's fetch. The page is first moved to the target's
// origin so that the request is same-origin and carries the context's cookies.
func (s *rodSession) Do(ctx context.Context, req fixtures.Request) (fixtures.Response, error) {
	target, err := url.Parse(req.URL)
	if err != nil {
		return fixtures.Response{}, err
	}
	page := s.page.Context(ctx)
	origin := target.Scheme + "://" + target.Host
	info, err := page.Info()
	if err != nil {
		return fixtures.Response{}, err
	}
	if !strings.HasPrefix(info.URL, origin+"/") && info.URL != origin {
		if err := page.Navigate(origin + "/"); err != nil {
			return fixtures.Response{}, fmt.Errorf("failed to navigate to %s: %w", origin, err)
		}
		if err := page.WaitLoad(); err != nil {
			return fixtures.Response{}, err
		}
	}

	headers := req.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	res, err := page.Eval(fetchJS, req.URL, req.Method, headers, string(req.Body))
	if err != nil {
		return fixtures.Response{}, err
	}
	return fixtures.Response{
		Status: res.Value.Get("status").Int(),
		Body:   []byte(res.Value.Get("body").Str()),
	}, nil
}

func (s *rodSession) Finish(failed bool) (Artifacts, error) {
	var a Artifacts
	if s.policy.TakeScreenshot(failed) {
		path := s.policy.ScreenshotPath(s.opts.ArtifactName, s.opts.Attempt)
		if err := s.Screenshot(path); err != nil {
			return a, fmt.Errorf("screenshot: %w", err)
		}
		a.Screenshot = path
	}
	return a, nil
}

func (s *rodSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.browser.Close()
}
