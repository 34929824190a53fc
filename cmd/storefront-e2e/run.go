package main

import (
	"context"
	"fmt"
	"net/http/httptest"

	"github.com/spf13/cobra"

	"github.com/kuitang/storefront-e2e/internal/artifacts"
	"github.com/kuitang/storefront-e2e/internal/config"
	"github.com/kuitang/storefront-e2e/internal/obs"
	"github.com/kuitang/storefront-e2e/internal/scenario"
	"github.com/kuitang/storefront-e2e/internal/session"
	"github.com/kuitang/storefront-e2e/internal/storefront"
	"github.com/kuitang/storefront-e2e/internal/wait"
)

type runFlags struct {
	overrides config.Overrides
	fixture   bool
	filter    filterFlags
}

func newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scenario catalog in a browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScenarios(cmd, f)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.overrides.BaseURL, "base-url", "", "storefront to test (default $BASE_URL)")
	flags.BoolVar(&f.fixture, "fixture", false, "test an in-process storefront fixture instead of --base-url")
	flags.StringVar(&f.overrides.Browser, "browser", "", "chromium, firefox or webkit (default $BROWSER)")
	flags.BoolVar(&f.overrides.Headed, "headed", false, "show the browser window")
	flags.IntVar(&f.overrides.Parallel, "parallel", 0, "scenarios to run at once (default $PARALLEL or 1)")
	f.filter.register(cmd)
	return cmd
}

func runScenarios(cmd *cobra.Command, f runFlags) error {
	ctx := cmd.Context()
	log := obs.Pkg("main")

	scenarios, err := f.filter.apply(scenario.Catalog())
	if err != nil {
		return err
	}
	if len(scenarios) == 0 {
		return fmt.Errorf("no scenarios match the filters")
	}

	cfg, err := config.LoadConfig(f.overrides)
	if err != nil {
		return err
	}
	if f.fixture {
		front, err := storefront.New(storefront.Options{GlitchDelay: cfg.GlitchDelay})
		if err != nil {
			return fmt.Errorf("storefront fixture: %w", err)
		}
		ts := httptest.NewServer(front.Handler())
		defer ts.Close()
		cfg.BaseURL = ts.URL
		log.Info("fixture_started", "url", ts.URL)
	}
	cfg.PrintStartupSummary(cmd.ErrOrStderr())

	sink, err := newSink(ctx, cfg)
	if err != nil {
		return err
	}

	opts := launcherOptions(cfg)
	opts.TagRequests = f.fixture
	launcher := session.NewLauncher(opts)
	defer func() {
		if err := launcher.Close(); err != nil {
			log.Warn("launcher_close_failed", "error", err)
		}
	}()
	if err := launcher.Start(); err != nil {
		return err
	}

	runner := scenario.NewRunner(launcher, scenario.RunnerOptions{
		Parallel: cfg.Parallel,
		Sink:     sink,
	})
	report := runner.Run(ctx, scenarios)
	printReport(cmd.OutOrStdout(), report)

	if !report.OK() {
		return errScenariosFailed
	}
	return nil
}

func launcherOptions(cfg *config.Config) session.Options {
	return session.Options{
		Browser:        cfg.Browser,
		Headless:       cfg.Headless,
		SlowMo:         cfg.SlowMo,
		BaseURL:        cfg.BaseURL,
		ViewportWidth:  cfg.ViewportWidth,
		ViewportHeight: cfg.ViewportHeight,
		Wait: wait.Options{
			Timeout:  cfg.WaitTimeout,
			Interval: cfg.PollInterval,
		},
		NavigationTimeout: cfg.NavigationTimeout,
	}
}

// newSink picks the artifact destination: S3 when a bucket is configured,
// the local artifact directory otherwise.
func newSink(ctx context.Context, cfg *config.Config) (artifacts.Sink, error) {
	if !cfg.UsesS3Artifacts() {
		return artifacts.DirSink{Root: cfg.ArtifactDir}, nil
	}
	sink, err := artifacts.NewS3Sink(ctx, artifacts.S3Config{
		Endpoint:        cfg.AWSEndpointS3,
		Region:          cfg.AWSRegion,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
		Bucket:          cfg.ArtifactBucket,
		UsePathStyle:    cfg.AWSEndpointS3 != "",
	})
	if err != nil {
		return nil, fmt.Errorf("artifact bucket: %w", err)
	}
	return sink, nil
}
