package main

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/storefront-e2e/internal/artifacts"
	"github.com/kuitang/storefront-e2e/internal/config"
	"github.com/kuitang/storefront-e2e/internal/errs"
	"github.com/kuitang/storefront-e2e/internal/scenario"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	m.Run()
}

func TestPrintReport(t *testing.T) {
	report := scenario.Report{
		RunID:    "run-7",
		Duration: 1500 * time.Millisecond,
		Results: []scenario.Result{
			{Label: "standard_user/inventory: counts one added item", Duration: 120 * time.Millisecond},
			{
				Label: "standard_user/cart: keeps the cart across cart navigation",
				Err: &errs.Error{
					Code:     errs.AssertionMismatch,
					Message:  "text mismatch",
					Selector: ".shopping_cart_badge",
					Expected: "1",
					Observed: "2",
					Timeout:  5 * time.Second,
					Snapshot: "url: http://127.0.0.1/inventory.html\ntitle: Swag Labs",
				},
				Artifacts: []string{"artifacts/runs/run-7/x/failure.json"},
			},
			{Label: "anonymous/login: requires a username", Err: errors.New("browser crashed")},
		},
	}

	var buf bytes.Buffer
	printReport(&buf, report)
	out := buf.String()

	require.Contains(t, out, "✓ standard_user/inventory: counts one added item 120ms")
	require.Contains(t, out, "✗ standard_user/cart: keeps the cart across cart navigation")
	require.Contains(t, out, "code: assertion_mismatch")
	require.Contains(t, out, "selector: .shopping_cart_badge")
	require.Contains(t, out, "expected: 1")
	require.Contains(t, out, "observed: 2")
	require.Contains(t, out, "timeout: 5s")
	require.Contains(t, out, "      title: Swag Labs")
	require.Contains(t, out, "artifact: artifacts/runs/run-7/x/failure.json")
	require.Contains(t, out, "error: browser crashed")
	require.Contains(t, out, "1 passed, 2 failed, 3 total")
	require.Contains(t, out, "run run-7 in 1.5s")
}

func TestPrintCatalog_GroupsByActorAndScreen(t *testing.T) {
	var buf bytes.Buffer
	printCatalog(&buf, scenario.Catalog())
	out := buf.String()

	require.Contains(t, out, "standard_user (inventory)")
	require.Contains(t, out, "locked_out_user (login)")
	require.Contains(t, out, "anonymous (login)")
	require.Contains(t, out, "  lists six well formed items")
	require.True(t, strings.HasSuffix(out, "scenarios\n"))
}

func TestFilterFlags(t *testing.T) {
	all := scenario.Catalog()

	got, err := (&filterFlags{actor: "^visual_user$"}).apply(all)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	for _, sc := range got {
		require.Equal(t, "visual_user", sc.Actor.Identity)
	}

	got, err = (&filterFlags{run: "logs in and out"}).apply(all)
	require.NoError(t, err)
	require.Len(t, got, len(scenario.Actors())-1)

	_, err = (&filterFlags{run: "("}).apply(all)
	require.ErrorContains(t, err, "--run")
}

func TestListCommand(t *testing.T) {
	cmd := newRootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"list", "--actor", "error_user"})
	require.NoError(t, cmd.Execute())
	require.Contains(t, buf.String(), "error_user (inventory)")
	require.NotContains(t, buf.String(), "standard_user")
}

func TestRunCommand_RejectsEmptySelection(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"run", "--run", "no scenario is called this"})
	require.ErrorContains(t, cmd.Execute(), "no scenarios match")
}

func TestLauncherOptions(t *testing.T) {
	cfg := &config.Config{
		BaseURL:           "http://127.0.0.1:9999",
		Browser:           "firefox",
		Headless:          true,
		ViewportWidth:     800,
		ViewportHeight:    600,
		WaitTimeout:       3 * time.Second,
		PollInterval:      50 * time.Millisecond,
		NavigationTimeout: 7 * time.Second,
	}
	opts := launcherOptions(cfg)
	require.Equal(t, "firefox", opts.Browser)
	require.Equal(t, cfg.BaseURL, opts.BaseURL)
	require.Equal(t, 3*time.Second, opts.Wait.Timeout)
	require.Equal(t, 50*time.Millisecond, opts.Wait.Interval)
	require.Equal(t, 7*time.Second, opts.NavigationTimeout)
	require.False(t, opts.TagRequests)
}

func TestNewSink_Dir(t *testing.T) {
	dir := t.TempDir()
	sink, err := newSink(context.Background(), &config.Config{ArtifactDir: dir})
	require.NoError(t, err)
	require.Equal(t, artifacts.DirSink{Root: dir}, sink)
}

func TestNewSink_S3(t *testing.T) {
	backend := s3mem.New()
	require.NoError(t, backend.CreateBucket("e2e-artifacts"))
	ts := httptest.NewServer(gofakes3.New(backend).Server())
	defer ts.Close()

	ctx := context.Background()
	sink, err := newSink(ctx, &config.Config{
		ArtifactBucket:     "e2e-artifacts",
		AWSEndpointS3:      ts.URL,
		AWSRegion:          "us-east-1",
		AWSAccessKeyID:     "test-key",
		AWSSecretAccessKey: "test-secret",
	})
	require.NoError(t, err)

	loc, err := sink.Put(ctx, "runs/r/x/dom.html", []byte("<html></html>"), "text/html")
	require.NoError(t, err)
	require.Equal(t, "s3://e2e-artifacts/runs/r/x/dom.html", loc)

	s3sink, ok := sink.(*artifacts.S3Sink)
	require.True(t, ok)
	body, err := s3sink.Get(ctx, "runs/r/x/dom.html")
	require.NoError(t, err)
	require.Equal(t, "<html></html>", string(body))
}
