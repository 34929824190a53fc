package browser

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kuitang/storefront-e2e/internal/artifacts"
	"github.com/kuitang/storefront-e2e/internal/errs"
	"github.com/kuitang/storefront-e2e/internal/scenario"
)

// TestBrowser_ScenarioCatalog runs every catalog scenario against the
// fixture, each in its own session.
func TestBrowser_ScenarioCatalog(t *testing.T) {
	env := SetupBrowserTestEnv(t)

	for _, sc := range scenario.Catalog() {
		t.Run(sc.Label(), func(t *testing.T) {
			t.Parallel()
			ctx := env.Context(t)
			err := env.Launcher.With(ctx, sc.Label(), sc.Execute)
			require.NoError(t, err)
		})
	}
}

func TestBrowser_Runner_CapturesFailureArtifacts(t *testing.T) {
	env := SetupBrowserTestEnv(t)
	ctx := env.Context(t)
	sink := env.ArtifactSink(t)

	failing := scenario.Scenario{
		Name:   "expects a badge on an empty cart",
		Actor:  scenario.StandardUser,
		Screen: scenario.ScreenInventory,
		Start:  scenario.StartInventory,
		Run: func(ctx context.Context, e *scenario.Env) error {
			return e.Inventory.ExpectBadgeCount(ctx, 1)
		},
	}
	passing := scenario.Scenario{
		Name:   "has a login button",
		Actor:  scenario.Anonymous,
		Screen: scenario.ScreenLogin,
		Start:  scenario.StartLogin,
		Run:    func(context.Context, *scenario.Env) error { return nil },
	}

	runner := scenario.NewRunner(env.Launcher, scenario.RunnerOptions{Parallel: 2, Sink: sink, RunID: "browser-run"})
	report := runner.Run(ctx, []scenario.Scenario{failing, passing})

	require.Equal(t, 1, report.Failed())
	res := report.Results[0]
	require.Equal(t, errs.LocatorNotFound, res.Code(), "the badge never appears: %v", res.Err)
	require.Len(t, res.Artifacts, 3)

	keys, err := sink.List(ctx, "runs/browser-run/")
	require.NoError(t, err)
	require.Len(t, keys, 3)

	html, err := sink.Get(ctx, artifacts.Key("browser-run", failing.Label(), artifacts.HTMLName))
	require.NoError(t, err)
	require.True(t, strings.Contains(string(html), "inventory_list"))

	record, err := sink.Get(ctx, artifacts.Key("browser-run", failing.Label(), artifacts.FailureName))
	require.NoError(t, err)
	require.Contains(t, string(record), `"code": "locator_not_found"`)
	require.Contains(t, string(record), "shopping_cart_badge")
}
