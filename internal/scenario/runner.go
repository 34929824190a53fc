package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kuitang/storefront-e2e/internal/artifacts"
	"github.com/kuitang/storefront-e2e/internal/errs"
	"github.com/kuitang/storefront-e2e/internal/obs"
	"github.com/kuitang/storefront-e2e/internal/session"
)

// Provider hands out a fresh session per scenario and tears it down when fn
// returns. *session.Launcher is the production provider.
type Provider interface {
	With(ctx context.Context, name string, fn func(ctx context.Context, s *session.Session) error) error
}

// RunnerOptions configure a Runner.
type RunnerOptions struct {
	// Parallel is how many scenarios run at once, each in its own session.
	Parallel int
	// Sink receives failure artifacts. Nil disables capture.
	Sink artifacts.Sink
	// RunID names the run in logs and artifact keys. Empty generates one.
	RunID string
}

// Runner executes scenarios in isolated sessions.
type Runner struct {
	provider Provider
	opts     RunnerOptions
}

func NewRunner(p Provider, opts RunnerOptions) *Runner {
	if opts.Parallel < 1 {
		opts.Parallel = 1
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	return &Runner{provider: p, opts: opts}
}

// RunID returns the run's identifier.
func (r *Runner) RunID() string {
	return r.opts.RunID
}

// Result is the outcome of one scenario.
type Result struct {
	Label     string
	Actor     string
	Screen    Screen
	Err       error
	Duration  time.Duration
	Artifacts []string
}

// Passed reports whether the scenario met every condition.
func (r Result) Passed() bool {
	return r.Err == nil
}

// Code is the failure category, empty for a pass.
func (r Result) Code() errs.Code {
	if r.Err == nil {
		return ""
	}
	return errs.CodeOf(r.Err)
}

// Report collects the results of one run in catalog order.
type Report struct {
	RunID    string
	Results  []Result
	Duration time.Duration
}

func (r Report) Passed() int {
	n := 0
	for _, res := range r.Results {
		if res.Passed() {
			n++
		}
	}
	return n
}

func (r Report) Failed() int {
	return len(r.Results) - r.Passed()
}

// OK reports whether every scenario passed.
func (r Report) OK() bool {
	return r.Failed() == 0
}

// Run executes scenarios with at most Parallel sessions open. A failing
// scenario never stops the others; only cancelling ctx does.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) Report {
	start := time.Now()
	results := make([]Result, len(scenarios))

	var g errgroup.Group
	g.SetLimit(r.opts.Parallel)
	for i, sc := range scenarios {
		g.Go(func() error {
			results[i] = r.runOne(ctx, sc)
			return nil
		})
	}
	_ = g.Wait()

	report := Report{RunID: r.opts.RunID, Results: results, Duration: time.Since(start)}
	obs.From(ctx).Info("run_finished",
		"run_id", report.RunID,
		"passed", report.Passed(),
		"failed", report.Failed(),
		"duration_ms", report.Duration.Milliseconds(),
	)
	return report
}

func (r *Runner) runOne(ctx context.Context, sc Scenario) Result {
	label := sc.Label()
	ctx = obs.WithScenario(ctx, r.opts.RunID, label, sc.Actor.Identity)
	res := Result{Label: label, Actor: sc.Actor.Identity, Screen: sc.Screen}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	start := time.Now()
	err := r.provider.With(ctx, label, func(ctx context.Context, s *session.Session) error {
		runErr := sc.Execute(ctx, s)
		if runErr != nil && r.opts.Sink != nil {
			res.Artifacts = r.capture(ctx, s, sc, runErr)
		}
		return runErr
	})
	res.Err = err
	res.Duration = time.Since(start)

	log := obs.From(ctx)
	if err != nil {
		log.Warn("scenario_failed", "code", string(errs.CodeOf(err)), "error", err, "duration_ms", res.Duration.Milliseconds())
	} else {
		log.Info("scenario_passed", "duration_ms", res.Duration.Milliseconds())
	}
	return res
}

// capture stores the failure record plus whatever the page still offers.
// Capture problems are logged and never replace the scenario's failure.
func (r *Runner) capture(ctx context.Context, s *session.Session, sc Scenario, runErr error) []string {
	log := obs.From(ctx)
	var (
		url    string
		bundle artifacts.Bundle
	)
	if s != nil {
		url = s.URL()
		shot, err := s.Screenshot()
		if err != nil {
			log.Warn("artifact_screenshot_failed", "error", err)
		}
		html, err := s.HTML()
		if err != nil {
			log.Warn("artifact_html_failed", "error", err)
		}
		bundle.Screenshot, bundle.HTML = shot, html
	}
	bundle.Failure = artifacts.NewFailure(r.opts.RunID, sc.Label(), sc.Actor.Identity, url, runErr)

	locations, err := artifacts.Save(ctx, r.opts.Sink, bundle)
	if err != nil {
		log.Warn("artifact_save_failed", "error", err)
	}
	return locations
}

// Summary is a one-line description of a failed result.
func (r Result) Summary() string {
	if r.Err == nil {
		return "ok"
	}
	if coded, ok := errs.As(r.Err); ok && coded.Selector != "" {
		return fmt.Sprintf("%s at %s", coded.Code, coded.Selector)
	}
	return string(r.Code())
}
