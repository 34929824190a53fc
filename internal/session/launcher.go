package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/storefront-e2e/internal/errs"
	"github.com/kuitang/storefront-e2e/internal/obs"
	"github.com/kuitang/storefront-e2e/internal/wait"
)

// Options configure the browser and every session it hands out.
type Options struct {
	Browser           string
	Headless          bool
	SlowMo            time.Duration
	BaseURL           string
	ViewportWidth     int
	ViewportHeight    int
	Wait              wait.Options
	NavigationTimeout time.Duration

	// TagRequests sends obs.SessionHeader with every request so a server
	// that logs through obs.AccessLog can attribute traffic to a session.
	TagRequests bool
}

func (o Options) withDefaults() Options {
	if o.Browser == "" {
		o.Browser = "chromium"
	}
	if o.ViewportWidth <= 0 {
		o.ViewportWidth = 1280
	}
	if o.ViewportHeight <= 0 {
		o.ViewportHeight = 800
	}
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = 10 * time.Second
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	return o
}

// Launcher owns one Playwright driver and one browser process. Acquire is
// safe for concurrent use; each session gets its own BrowserContext, so no
// cookies or storage are shared between sessions.
type Launcher struct {
	opts Options

	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
	closed  bool
}

// NewLauncher returns a launcher that starts the browser on first Acquire.
func NewLauncher(opts Options) *Launcher {
	return &Launcher{opts: opts.withDefaults()}
}

// Start launches the driver and browser if they are not running yet.
func (l *Launcher) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.startLocked()
}

func (l *Launcher) startLocked() error {
	if l.closed {
		return errs.New(errs.FailedPrecondition, "launcher is closed")
	}
	if l.browser != nil {
		return nil
	}

	pw, err := playwright.Run()
	if err != nil {
		return errs.Wrap(errs.Unavailable, "start playwright driver", err)
	}

	var bt playwright.BrowserType
	switch l.opts.Browser {
	case "chromium":
		bt = pw.Chromium
	case "firefox":
		bt = pw.Firefox
	case "webkit":
		bt = pw.WebKit
	default:
		_ = pw.Stop()
		return errs.New(errs.InvalidArgument, fmt.Sprintf("unsupported browser %q", l.opts.Browser))
	}

	browser, err := bt.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(l.opts.Headless),
		SlowMo:   playwright.Float(float64(l.opts.SlowMo.Milliseconds())),
	})
	if err != nil {
		_ = pw.Stop()
		return errs.Wrap(errs.Unavailable, "launch "+l.opts.Browser, err)
	}

	l.pw = pw
	l.browser = browser
	obs.Pkg("session").Info("browser_started", "browser", l.opts.Browser, "headless", l.opts.Headless)
	return nil
}

// Acquire opens a fresh logged-out session: new BrowserContext, new Page, no
// cookies, empty storage. The caller must Close it.
func (l *Launcher) Acquire(ctx context.Context, name string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	if err := l.startLocked(); err != nil {
		l.mu.Unlock()
		return nil, err
	}
	browser := l.browser
	l.mu.Unlock()

	id := uuid.NewString()
	ctxOpts := playwright.BrowserNewContextOptions{
		BaseURL: playwright.String(l.opts.BaseURL),
		Viewport: &playwright.Size{
			Width:  l.opts.ViewportWidth,
			Height: l.opts.ViewportHeight,
		},
	}
	if l.opts.TagRequests {
		ctxOpts.ExtraHttpHeaders = map[string]string{obs.SessionHeader: id}
	}
	bctx, err := browser.NewContext(ctxOpts)
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "create browser context", err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, errs.Wrap(errs.Unavailable, "open page", err)
	}

	waitOpts := l.opts.Wait
	if waitOpts.Timeout <= 0 {
		waitOpts.Timeout = wait.DefaultTimeout
	}
	page.SetDefaultTimeout(float64(waitOpts.Timeout.Milliseconds()))
	page.SetDefaultNavigationTimeout(float64(l.opts.NavigationTimeout.Milliseconds()))

	s := &Session{
		id:      id,
		name:    name,
		baseURL: l.opts.BaseURL,
		wait:    waitOpts,
		nav:     l.opts.NavigationTimeout,
		bctx:    bctx,
		page:    page,
	}
	obs.From(ctx).Debug("session_acquired", "session_id", s.id, "session", name)
	return s, nil
}

// With runs fn in a fresh session and always closes it afterwards.
func (l *Launcher) With(ctx context.Context, name string, fn func(ctx context.Context, s *Session) error) (err error) {
	s, err := l.Acquire(ctx, name)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()
	return fn(obs.WithSessionID(ctx, s.ID()), s)
}

// Close stops the browser and the driver. Sessions still open are closed with
// the browser.
func (l *Launcher) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true

	var errList []error
	if l.browser != nil {
		if err := l.browser.Close(); err != nil {
			errList = append(errList, fmt.Errorf("close browser: %w", err))
		}
	}
	if l.pw != nil {
		if err := l.pw.Stop(); err != nil {
			errList = append(errList, fmt.Errorf("stop playwright: %w", err))
		}
	}
	return errors.Join(errList...)
}
