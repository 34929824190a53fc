package scenario

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/kuitang/storefront-e2e/internal/artifacts"
	"github.com/kuitang/storefront-e2e/internal/errs"
	"github.com/kuitang/storefront-e2e/internal/obs"
	"github.com/kuitang/storefront-e2e/internal/pages"
	"github.com/kuitang/storefront-e2e/internal/session"
)

// fakeProvider runs scenarios without a browser and records concurrency.
type fakeProvider struct {
	mu        sync.Mutex
	active    int
	maxActive int
	names     []string
	closeErr  error
}

func (f *fakeProvider) With(ctx context.Context, name string, fn func(ctx context.Context, s *session.Session) error) error {
	f.mu.Lock()
	f.active++
	f.maxActive = max(f.maxActive, f.active)
	f.names = append(f.names, name)
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()
	return errors.Join(fn(ctx, nil), f.closeErr)
}

func blank(name string, run Step) Scenario {
	return Scenario{Name: name, Actor: StandardUser, Screen: ScreenInventory, Start: StartBlank, Run: run}
}

func pass(context.Context, *Env) error { return nil }

func TestRunner_ReportsResultsInOrder(t *testing.T) {
	t.Parallel()

	mismatch := errs.Mismatch(".inventory_item", "catalog size", "6", "5")
	scenarios := []Scenario{
		blank("first", pass),
		blank("second", func(context.Context, *Env) error { return mismatch }),
		blank("third", pass),
	}
	p := &fakeProvider{}
	report := NewRunner(p, RunnerOptions{Parallel: 3, RunID: "run-1"}).Run(context.Background(), scenarios)

	require.Equal(t, "run-1", report.RunID)
	require.Len(t, report.Results, 3)
	require.Equal(t, 2, report.Passed())
	require.Equal(t, 1, report.Failed())
	require.False(t, report.OK())

	require.Equal(t, scenarios[1].Label(), report.Results[1].Label)
	require.ErrorIs(t, report.Results[1].Err, mismatch)
	require.Equal(t, errs.AssertionMismatch, report.Results[1].Code())
	require.Equal(t, "assertion_mismatch at .inventory_item", report.Results[1].Summary())
	require.True(t, report.Results[0].Passed())
	require.Equal(t, "ok", report.Results[0].Summary())
	require.Empty(t, report.Results[0].Code())
	require.ElementsMatch(t, []string{scenarios[0].Label(), scenarios[1].Label(), scenarios[2].Label()}, p.names)
}

func TestRunner_RespectsParallelLimit(t *testing.T) {
	t.Parallel()

	var scenarios []Scenario
	for i := range 8 {
		scenarios = append(scenarios, blank(strings.Repeat("x", i+1), func(ctx context.Context, _ *Env) error {
			time.Sleep(20 * time.Millisecond)
			return nil
		}))
	}
	p := &fakeProvider{}
	report := NewRunner(p, RunnerOptions{Parallel: 2}).Run(context.Background(), scenarios)

	require.True(t, report.OK())
	require.LessOrEqual(t, p.maxActive, 2)
	require.GreaterOrEqual(t, p.maxActive, 1)
	require.NotEmpty(t, report.RunID, "a run id is generated")
}

func TestRunner_SessionTeardownFailureFailsScenario(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{closeErr: errors.New("close browser context: boom")}
	report := NewRunner(p, RunnerOptions{}).Run(context.Background(), []Scenario{blank("only", pass)})

	require.Equal(t, 1, report.Failed())
	require.ErrorContains(t, report.Results[0].Err, "boom")
}

func TestRunner_CancelledContextSkipsScenarios(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &fakeProvider{}
	report := NewRunner(p, RunnerOptions{Parallel: 2}).Run(ctx, []Scenario{blank("a", pass), blank("b", pass)})

	require.Equal(t, 2, report.Failed())
	for _, res := range report.Results {
		require.ErrorIs(t, res.Err, context.Canceled)
	}
	require.Empty(t, p.names, "no session is acquired after cancellation")
}

func TestRunner_SavesFailureArtifacts(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	sc := blank("adds to cart", func(context.Context, *Env) error {
		return errs.NotFound(`[data-test="add-to-cart-sauce-labs-backpack"]`, 5*time.Second, nil)
	})
	report := NewRunner(&fakeProvider{}, RunnerOptions{Sink: artifacts.DirSink{Root: root}, RunID: "r1"}).
		Run(context.Background(), []Scenario{sc, blank("passes", pass)})

	require.Equal(t, 1, report.Failed())
	require.Len(t, report.Results[0].Artifacts, 1, "no page means only the failure record")
	require.Empty(t, report.Results[1].Artifacts)

	raw, err := os.ReadFile(filepath.Join(root, artifacts.Key("r1", sc.Label(), artifacts.FailureName)))
	require.NoError(t, err)
	var f artifacts.Failure
	require.NoError(t, json.Unmarshal(raw, &f))
	require.Equal(t, "r1", f.RunID)
	require.Equal(t, sc.Label(), f.Scenario)
	require.Equal(t, "standard_user", f.Actor)
	require.Equal(t, string(errs.LocatorNotFound), f.Code)
	require.Equal(t, int64(5000), f.TimeoutMS)
}

func TestRunner_LogsScenarioCorrelation(t *testing.T) {
	var buf bytes.Buffer
	restore := obs.SetOutputForTests(&buf)
	defer restore()

	sc := blank("fails", func(context.Context, *Env) error { return errs.New(errs.NavigationTimeout, "stuck") })
	NewRunner(&fakeProvider{}, RunnerOptions{RunID: "run-log"}).Run(context.Background(), []Scenario{sc})

	var found bool
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry["msg"] == "scenario_failed" {
			found = true
			require.Equal(t, "run-log", entry["run_id"])
			require.Equal(t, sc.Label(), entry["scenario"])
			require.Equal(t, "standard_user", entry["actor"])
			require.Equal(t, string(errs.NavigationTimeout), entry["code"])
		}
	}
	require.True(t, found, "scenario_failed was logged: %s", buf.String())
}

func TestCatalog_Shape(t *testing.T) {
	t.Parallel()

	all := Catalog()
	require.NotEmpty(t, all)

	labels := make(map[string]bool, len(all))
	actors := make(map[string]bool)
	for _, sc := range all {
		require.NotNil(t, sc.Run, sc.Label())
		require.False(t, labels[sc.Label()], "duplicate scenario %q", sc.Label())
		labels[sc.Label()] = true
		actors[sc.Actor.Identity] = true
		if sc.Actor == Anonymous || sc.Actor == LockedOut {
			require.NotEqual(t, StartInventory, sc.Start, "%s cannot start logged in", sc.Label())
		}
	}
	for _, a := range Actors() {
		require.True(t, actors[a.Identity], "no scenario for %s", a.Identity)
	}

	for _, want := range []string{
		"standard_user/cart: keeps the cart across cart navigation",
		"anonymous/login: rejects a wrong password",
		"anonymous/login: requires a username when both fields are empty",
		"standard_user/inventory: reverses the list between name orders",
		"standard_user/inventory: sorts by price low to high",
		"standard_user/inventory: sorts by price high to low",
		"locked_out_user/login: is locked out",
	} {
		require.True(t, labels[want], "missing scenario %q", want)
	}
}

func TestCatalog_LogoutForEveryAcceptedActor(t *testing.T) {
	t.Parallel()

	logouts := Filter(Catalog(), nil, regexp.MustCompile(`logs in and out$`))
	require.Len(t, logouts, len(Actors())-1)
	for _, sc := range logouts {
		require.NotEqual(t, LockedOut, sc.Actor)
	}
}

func testFilter_KeepsOnlyMatchingActors(t *rapid.T) {
	all := Catalog()
	picked := rapid.SliceOfDistinct(rapid.SampledFrom(Actors()), func(a Actor) string { return a.Identity }).Draw(t, "actors")

	idents := make([]string, len(picked))
	for i, a := range picked {
		idents[i] = regexp.QuoteMeta(a.Identity)
	}
	re := regexp.MustCompile("^(" + strings.Join(idents, "|") + ")$")
	if len(picked) == 0 {
		re = regexp.MustCompile(`^$`)
	}

	got := Filter(all, re, nil)
	want := 0
	for _, sc := range all {
		if re.MatchString(sc.Actor.Identity) {
			want++
		}
	}
	if len(got) != want {
		t.Fatalf("filter kept %d scenarios, want %d", len(got), want)
	}
	for _, sc := range got {
		if !re.MatchString(sc.Actor.Identity) {
			t.Fatalf("filter kept %s", sc.Label())
		}
	}
}

func TestFilter_KeepsOnlyMatchingActors(t *testing.T) {
	rapid.Check(t, testFilter_KeepsOnlyMatchingActors)
}

func TestFilter_NilPatternsKeepEverything(t *testing.T) {
	t.Parallel()

	all := Catalog()
	got := Filter(all, nil, nil)
	require.Len(t, got, len(all))

	got[0].Name = "changed"
	require.NotEqual(t, "changed", all[0].Name, "filter does not alias its input")
}

func TestExpectCode(t *testing.T) {
	t.Parallel()

	require.NoError(t, expectCode(errs.New(errs.FailedPrecondition, "already in cart"), errs.FailedPrecondition))

	err := expectCode(nil, errs.FailedPrecondition)
	require.True(t, errs.Is(err, errs.AssertionMismatch))

	err = expectCode(errs.New(errs.LocatorNotFound, "gone"), errs.FailedPrecondition)
	coded, ok := errs.As(err)
	require.True(t, ok)
	require.Equal(t, errs.AssertionMismatch, coded.Code)
	require.Equal(t, string(errs.FailedPrecondition), coded.Expected)
	require.Equal(t, string(errs.LocatorNotFound), coded.Observed)
}

func TestCheck(t *testing.T) {
	t.Parallel()

	require.NoError(t, check(true, ".x", "unused", 1, 2))
	err := check(false, ".shopping_cart_badge", "cart badge", 2, "absent")
	coded, ok := errs.As(err)
	require.True(t, ok)
	require.Equal(t, errs.AssertionMismatch, coded.Code)
	require.Equal(t, ".shopping_cart_badge", coded.Selector)
	require.Equal(t, "2", coded.Expected)
	require.Equal(t, "absent", coded.Observed)
}

func TestDescending(t *testing.T) {
	t.Parallel()

	require.True(t, descending([]int{3, 3, 2, 1}))
	require.False(t, descending([]int{1, 2}))
	require.True(t, ascending([]string{"a", "b", "b"}))
	require.False(t, ascending([]string{"b", "a"}))
}

func TestShowsBrokenImage_IgnoresLoadState(t *testing.T) {
	t.Parallel()

	loading := pages.CatalogItem{Name: "Sauce Labs Backpack", ImageSrc: "/static/img/sauce-backpack-1200x1500.svg"}
	require.False(t, showsBrokenImage(loading), "a healthy image still loading is not broken")

	placeholder := pages.CatalogItem{Name: "Sauce Labs Backpack", ImageSrc: "/static/img/sl-404.jpg", ImageVisible: true, ImageLoaded: true}
	require.True(t, showsBrokenImage(placeholder), "the placeholder counts even once it has loaded")
}
