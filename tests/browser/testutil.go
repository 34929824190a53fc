// Package browser runs the page objects and the scenario catalog against the
// storefront fixture in a real browser. All browser test files use
// BrowserTestEnv via SetupBrowserTestEnv(t).
package browser

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/kuitang/storefront-e2e/internal/artifacts"
	"github.com/kuitang/storefront-e2e/internal/session"
	"github.com/kuitang/storefront-e2e/internal/storefront"
	"github.com/kuitang/storefront-e2e/internal/wait"
)

const (
	// Never introduce a larger timeout value anywhere in tests/browser.
	browserMaxTimeout = 5 * time.Second
	browserPoll       = 50 * time.Millisecond

	// The glitch account's delay must stay well inside the navigation wait.
	browserGlitchDelay = 300 * time.Millisecond

	browserTestBucketName = "browser-test-artifacts"
)

var (
	browserFixtureMu     sync.Mutex
	browserSharedFixture *BrowserTestEnv
)

// BrowserTestEnv is the shared environment: one storefront fixture, one
// browser, and an in-memory artifact bucket.
type BrowserTestEnv struct {
	Server     *httptest.Server
	BaseURL    string
	Storefront *storefront.Server
	Launcher   *session.Launcher

	startOnce sync.Once
	startErr  error
}

// SetupBrowserTestEnv returns the shared environment with a running browser.
// The test is skipped in -short mode and when no browser can be launched.
func SetupBrowserTestEnv(t *testing.T) *BrowserTestEnv {
	t.Helper()

	if testing.Short() {
		t.Skip("browser tests skipped in -short mode")
	}
	env := getOrCreateSharedBrowserTestEnv(t)
	env.InitBrowser(t)
	return env
}

func getOrCreateSharedBrowserTestEnv(t *testing.T) *BrowserTestEnv {
	t.Helper()

	browserFixtureMu.Lock()
	defer browserFixtureMu.Unlock()

	if browserSharedFixture != nil {
		return browserSharedFixture
	}

	front, err := storefront.New(storefront.Options{
		GlitchDelay: browserGlitchDelay,
		BcryptCost:  bcrypt.MinCost,
	})
	if err != nil {
		t.Fatalf("failed to create storefront fixture: %v", err)
	}
	server := httptest.NewServer(front.Handler())

	browserSharedFixture = &BrowserTestEnv{
		Server:     server,
		BaseURL:    server.URL,
		Storefront: front,
		Launcher: session.NewLauncher(session.Options{
			Browser:           "chromium",
			Headless:          true,
			BaseURL:           server.URL,
			Wait:              wait.Options{Timeout: browserMaxTimeout, Interval: browserPoll},
			NavigationTimeout: browserMaxTimeout,
			TagRequests:       true,
		}),
	}
	return browserSharedFixture
}

func cleanupSharedBrowserTestEnv() {
	browserFixtureMu.Lock()
	defer browserFixtureMu.Unlock()

	if browserSharedFixture == nil {
		return
	}
	_ = browserSharedFixture.Launcher.Close()
	browserSharedFixture.Server.Close()
	browserSharedFixture = nil
}

// InitBrowser starts Playwright and the browser once. Skips the test if not
// available.
func (env *BrowserTestEnv) InitBrowser(t *testing.T) {
	t.Helper()

	env.startOnce.Do(func() {
		env.startErr = env.Launcher.Start()
	})
	if env.startErr != nil {
		t.Skip("Playwright not available:", env.startErr)
	}
}

// NewSession opens a fresh session named after the test and closes it when
// the test completes.
func (env *BrowserTestEnv) NewSession(t *testing.T) *session.Session {
	t.Helper()

	s, err := env.Launcher.Acquire(context.Background(), t.Name())
	if err != nil {
		t.Fatalf("failed to acquire session: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Logf("close session: %v", err)
		}
	})
	return s
}

// Context returns a context bounded well above any single wait.
func (env *BrowserTestEnv) Context(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 12*browserMaxTimeout)
	t.Cleanup(cancel)
	return ctx
}

// ArtifactSink returns an in-memory bucket for failure artifacts.
func (env *BrowserTestEnv) ArtifactSink(t *testing.T) *artifacts.S3Sink {
	t.Helper()
	return artifacts.TestS3Sink(t, browserTestBucketName)
}
