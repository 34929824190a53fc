// Package session wraps one Playwright BrowserContext and Page as an explicit
// value. Every action resolves only once the page confirms the DOM state it
// needs, and every failure comes back as a coded error carrying a DOM
// snapshot.
package session

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/storefront-e2e/internal/dom"
	"github.com/kuitang/storefront-e2e/internal/errs"
	"github.com/kuitang/storefront-e2e/internal/obs"
	"github.com/kuitang/storefront-e2e/internal/wait"
)

// Session is one simulated user. It is driven by a single goroutine.
type Session struct {
	id      string
	name    string
	baseURL string
	wait    wait.Options
	nav     time.Duration

	bctx   playwright.BrowserContext
	page   playwright.Page
	closed bool
}

// ID returns the session id used in logs.
func (s *Session) ID() string { return s.id }

// Name returns the label the session was acquired with.
func (s *Session) Name() string { return s.name }

// BaseURL returns the target origin without a trailing slash.
func (s *Session) BaseURL() string { return s.baseURL }

// Page exposes the underlying page for checks the session does not cover.
func (s *Session) Page() playwright.Page { return s.page }

// WaitOptions returns the bounded wait applied to element checks.
func (s *Session) WaitOptions() wait.Options { return s.wait }

// NavigationTimeout bounds route changes and ready gates.
func (s *Session) NavigationTimeout() time.Duration { return s.nav }

// Close releases the browser context. It is safe to call more than once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.bctx.Close(); err != nil {
		return fmt.Errorf("close session %s: %w", s.id, err)
	}
	return nil
}

// Visit navigates to route relative to the base URL.
func (s *Session) Visit(ctx context.Context, route string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target := s.baseURL + route
	obs.From(ctx).Debug("session_visit", "session_id", s.id, "url", target)
	_, err := s.page.Goto(target, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(s.nav.Milliseconds())),
	})
	if err != nil {
		return s.Annotate(ctx, errs.Navigation(route, s.page.URL(), s.nav, err))
	}
	return nil
}

// Back goes one step back in history.
func (s *Session) Back(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.page.GoBack(playwright.PageGoBackOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(s.nav.Milliseconds())),
	})
	if err != nil {
		return s.Annotate(ctx, errs.Navigation("history back", s.page.URL(), s.nav, err))
	}
	return nil
}

// URL returns the current page URL.
func (s *Session) URL() string {
	return s.page.URL()
}

// Query reads every element matching selector without waiting.
func (s *Session) Query(ctx context.Context, selector string) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := s.page.Evaluate(queryScript, selector)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", selector, err)
	}
	var els []Element
	if err := decodeInto(raw, &els); err != nil {
		return nil, err
	}
	return els, nil
}

// Eval runs a page function with one argument and decodes its result into out.
func (s *Session) Eval(ctx context.Context, script string, arg any, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := s.page.Evaluate(script, arg)
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	return decodeInto(raw, out)
}

// WaitVisible waits until at least one element matching selector is visible
// and returns it.
func (s *Session) WaitVisible(ctx context.Context, selector string) (Element, error) {
	var found Element
	_, err := wait.Poll(ctx, s.wait, "visible "+selector, func(ctx context.Context) (string, bool, error) {
		els, err := s.Query(ctx, selector)
		if err != nil {
			return "", false, err
		}
		e, ok := firstVisible(els)
		found = e
		return describe(els), ok, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return Element{}, ctx.Err()
		}
		return Element{}, s.Annotate(ctx, errs.NotFound(selector, s.wait.Timeout, err), selector)
	}
	return found, nil
}

// WaitAttached waits, within the navigation timeout, until selector matches at
// least one element. Visibility is not required.
func (s *Session) WaitAttached(ctx context.Context, selector string) error {
	opts := s.wait.WithTimeout(s.nav)
	_, err := wait.Poll(ctx, opts, "attached "+selector, func(ctx context.Context) (int, bool, error) {
		els, err := s.Query(ctx, selector)
		if err != nil {
			return 0, false, err
		}
		return len(els), len(els) > 0, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return s.Annotate(ctx, errs.NotFound(selector, s.nav, err), selector)
	}
	return nil
}

// WaitAbsent waits until no element matches selector.
func (s *Session) WaitAbsent(ctx context.Context, selector string) error {
	n, err := wait.Poll(ctx, s.wait, "absent "+selector, func(ctx context.Context) (int, bool, error) {
		els, err := s.Query(ctx, selector)
		if err != nil {
			return 0, false, err
		}
		return len(els), len(els) == 0, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return s.Annotate(ctx, s.timedMismatch(selector, "element still present", "absent", fmt.Sprintf("%d present", n), err), selector)
	}
	return nil
}

// WaitCount waits until exactly n elements match selector.
func (s *Session) WaitCount(ctx context.Context, selector string, n int) error {
	got, err := wait.Poll(ctx, s.wait, fmt.Sprintf("%d of %s", n, selector), func(ctx context.Context) (int, bool, error) {
		els, err := s.Query(ctx, selector)
		if err != nil {
			return 0, false, err
		}
		return len(els), len(els) == n, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return s.Annotate(ctx, s.timedMismatch(selector, "unexpected element count", fmt.Sprint(n), fmt.Sprint(got), err), selector)
	}
	return nil
}

// ExpectText waits until the first element matching selector contains want.
func (s *Session) ExpectText(ctx context.Context, selector, want string) error {
	return s.expect(ctx, selector, "text does not contain expected value", want, func(e Element) (string, bool) {
		text := e.TrimmedText()
		return text, strings.Contains(text, want)
	})
}

// ExpectExactText waits until the first element's trimmed text equals want.
func (s *Session) ExpectExactText(ctx context.Context, selector, want string) error {
	return s.expect(ctx, selector, "text mismatch", want, func(e Element) (string, bool) {
		text := e.TrimmedText()
		return text, text == want
	})
}

// ExpectClass waits until the first element matching selector carries class.
func (s *Session) ExpectClass(ctx context.Context, selector, class string) error {
	return s.expect(ctx, selector, "missing class", class, func(e Element) (string, bool) {
		return e.Class, e.HasClass(class)
	})
}

// ExpectValue waits until the first element's form value equals want.
func (s *Session) ExpectValue(ctx context.Context, selector, want string) error {
	return s.expect(ctx, selector, "value mismatch", want, func(e Element) (string, bool) {
		return e.Value, e.Value == want
	})
}

// expect polls the first element matching selector with match. A selector
// that never matches is locator-not-found; one that matches with the wrong
// value is assertion-mismatch.
func (s *Session) expect(ctx context.Context, selector, message, want string, match func(Element) (string, bool)) error {
	found := false
	observed, err := wait.Poll(ctx, s.wait, selector+" "+message, func(ctx context.Context) (string, bool, error) {
		els, err := s.Query(ctx, selector)
		if err != nil {
			return "", false, err
		}
		if len(els) == 0 {
			return "", false, nil
		}
		found = true
		got, ok := match(els[0])
		return got, ok, nil
	})
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if !found {
		return s.Annotate(ctx, errs.NotFound(selector, s.wait.Timeout, err), selector)
	}
	return s.Annotate(ctx, s.timedMismatch(selector, message, want, observed, err), selector)
}

// visibleSelector narrows selector to rendered matches, the same set
// WaitVisible waits for, so actions never land on a hidden twin.
func visibleSelector(selector string) string {
	return selector + " >> visible=true"
}

// Fill clears the first visible match and types text into it.
func (s *Session) Fill(ctx context.Context, selector, text string) error {
	if _, err := s.WaitVisible(ctx, selector); err != nil {
		return err
	}
	loc := s.page.Locator(visibleSelector(selector)).First()
	if err := loc.Clear(); err != nil {
		return s.Annotate(ctx, errs.Wrap(errs.Internal, "clear "+selector, err), selector)
	}
	if err := loc.Fill(text); err != nil {
		return s.Annotate(ctx, errs.Wrap(errs.Internal, "fill "+selector, err), selector)
	}
	return nil
}

// Click waits for selector to be visible and clicks the first visible match.
func (s *Session) Click(ctx context.Context, selector string) error {
	if _, err := s.WaitVisible(ctx, selector); err != nil {
		return err
	}
	obs.From(ctx).Debug("session_click", "session_id", s.id, "selector", selector)
	if err := s.page.Locator(visibleSelector(selector)).First().Click(); err != nil {
		return s.Annotate(ctx, errs.Wrap(errs.Internal, "click "+selector, err), selector)
	}
	return nil
}

// ClickNth clicks the i-th element matching selector once it is visible.
func (s *Session) ClickNth(ctx context.Context, selector string, i int) error {
	if _, err := s.WaitVisible(ctx, selector); err != nil {
		return err
	}
	if err := s.page.Locator(selector).Nth(i).Click(); err != nil {
		return s.Annotate(ctx, errs.Wrap(errs.Internal, fmt.Sprintf("click %s #%d", selector, i), err), selector)
	}
	return nil
}

// Select picks an option by value in a select element.
func (s *Session) Select(ctx context.Context, selector, value string) error {
	if _, err := s.WaitVisible(ctx, selector); err != nil {
		return err
	}
	_, err := s.page.Locator(visibleSelector(selector)).First().SelectOption(playwright.SelectOptionValues{
		Values: &[]string{value},
	})
	if err != nil {
		return s.Annotate(ctx, errs.Wrap(errs.Internal, "select "+value+" in "+selector, err), selector)
	}
	return nil
}

// WaitForRoute waits, within the navigation timeout, until the URL path equals
// route.
func (s *Session) WaitForRoute(ctx context.Context, route string) error {
	opts := s.wait.WithTimeout(s.nav)
	last, err := wait.Poll(ctx, opts, "route "+route, func(ctx context.Context) (string, bool, error) {
		current := s.page.URL()
		return current, RouteMatches(current, route), nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if last == "" {
			last = s.page.URL()
		}
		return s.Annotate(ctx, errs.Navigation(route, last, s.nav, err))
	}
	return nil
}

// OnRoute reports whether the page is currently on route.
func (s *Session) OnRoute(route string) bool {
	return RouteMatches(s.page.URL(), route)
}

// RouteMatches reports whether rawURL's path is route.
func RouteMatches(rawURL, route string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	return path == route
}

// HTML returns the current page markup.
func (s *Session) HTML() (string, error) {
	html, err := s.page.Content()
	if err != nil {
		return "", fmt.Errorf("read page content: %w", err)
	}
	return html, nil
}

// Snapshot summarizes the current page, counting matches for selectors.
func (s *Session) Snapshot(selectors ...string) (dom.Snapshot, error) {
	html, err := s.HTML()
	if err != nil {
		return dom.Snapshot{}, err
	}
	return dom.Summarize(s.page.URL(), html, selectors...)
}

// Screenshot captures the full page as PNG.
func (s *Session) Screenshot() ([]byte, error) {
	b, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return b, nil
}

// Annotate attaches a DOM snapshot to a coded error that does not have one.
// Other errors are returned unchanged.
func (s *Session) Annotate(ctx context.Context, err error, selectors ...string) error {
	coded, ok := errs.As(err)
	if !ok || coded.Snapshot != "" {
		return err
	}
	snap, serr := s.Snapshot(selectors...)
	if serr != nil {
		obs.From(ctx).Warn("session_snapshot_failed", "session_id", s.id, "error", serr)
		return err
	}
	coded.Snapshot = snap.String()
	obs.From(ctx).Info(
		"session_failure",
		"session_id", s.id,
		"code", string(coded.Code),
		"selector", coded.Selector,
		"url", snap.URL,
	)
	return err
}

func (s *Session) timedMismatch(selector, message, expected, observed string, cause error) error {
	return &errs.Error{
		Code:     errs.AssertionMismatch,
		Message:  message,
		Selector: selector,
		Expected: expected,
		Observed: observed,
		Timeout:  s.wait.Timeout,
		Err:      cause,
	}
}
