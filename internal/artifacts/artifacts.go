// Package artifacts stores what a failed scenario leaves behind: a
// screenshot, the page HTML, and a JSON failure record. Artifacts go to a
// local directory or to an S3 bucket.
package artifacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/kuitang/storefront-e2e/internal/errs"
	"github.com/kuitang/storefront-e2e/internal/locator"
	"github.com/kuitang/storefront-e2e/internal/obs"
)

// Artifact names inside a scenario's prefix.
const (
	ScreenshotName = "screenshot.png"
	HTMLName       = "dom.html"
	FailureName    = "failure.json"
)

// Sink stores one object and returns where it ended up.
type Sink interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// Key builds the object key for one artifact of one scenario run.
func Key(runID, scenario, name string) string {
	slug := locator.Slug(scenario)
	if slug == "" {
		slug = "unnamed"
	}
	return path.Join("runs", runID, slug, name)
}

// Failure is the JSON record written for every failed scenario.
type Failure struct {
	RunID     string    `json:"run_id"`
	Scenario  string    `json:"scenario"`
	Actor     string    `json:"actor,omitempty"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Error     string    `json:"error"`
	Selector  string    `json:"selector,omitempty"`
	Expected  string    `json:"expected,omitempty"`
	Observed  string    `json:"observed,omitempty"`
	TimeoutMS int64     `json:"timeout_ms,omitempty"`
	Snapshot  string    `json:"snapshot,omitempty"`
	URL       string    `json:"url,omitempty"`
	At        time.Time `json:"at"`
}

// NewFailure builds a record from a scenario error.
func NewFailure(runID, scenario, actor, url string, err error) Failure {
	f := Failure{
		RunID:    runID,
		Scenario: scenario,
		Actor:    actor,
		Code:     string(errs.CodeOf(err)),
		Message:  errs.MessageOf(err),
		URL:      url,
		At:       time.Now().UTC(),
	}
	if err != nil {
		f.Error = err.Error()
	}
	if coded, ok := errs.As(err); ok {
		f.Selector = coded.Selector
		f.Expected = coded.Expected
		f.Observed = coded.Observed
		f.TimeoutMS = coded.Timeout.Milliseconds()
		f.Snapshot = coded.Snapshot
	}
	return f
}

// Bundle is everything captured for one failure. Screenshot and HTML may be
// empty when the page could not be read.
type Bundle struct {
	Failure    Failure
	Screenshot []byte
	HTML       string
}

// Save writes every non-empty part of b and returns the stored locations.
// It keeps going after a failed write and reports all errors together.
func Save(ctx context.Context, sink Sink, b Bundle) ([]string, error) {
	record, err := json.MarshalIndent(b.Failure, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode failure record: %w", err)
	}

	type part struct {
		name        string
		body        []byte
		contentType string
	}
	parts := []part{{FailureName, record, "application/json"}}
	if len(b.Screenshot) > 0 {
		parts = append(parts, part{ScreenshotName, b.Screenshot, "image/png"})
	}
	if b.HTML != "" {
		parts = append(parts, part{HTMLName, []byte(b.HTML), "text/html; charset=utf-8"})
	}

	var (
		locations []string
		errList   []error
	)
	for _, p := range parts {
		key := Key(b.Failure.RunID, b.Failure.Scenario, p.name)
		loc, err := sink.Put(ctx, key, p.body, p.contentType)
		if err != nil {
			errList = append(errList, err)
			continue
		}
		locations = append(locations, loc)
	}
	if len(locations) > 0 {
		obs.From(ctx).Info("artifacts_saved", "scenario", b.Failure.Scenario, "count", len(locations))
	}
	return locations, errors.Join(errList...)
}

// DirSink writes artifacts under a local directory.
type DirSink struct {
	Root string
}

// Put implements Sink.
func (d DirSink) Put(_ context.Context, key string, body []byte, _ string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", errs.New(errs.InvalidArgument, fmt.Sprintf("artifact key %q escapes the artifact dir", key))
	}
	dst := filepath.Join(d.Root, clean)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("artifacts: create dir for %q: %w", key, err)
	}
	if err := os.WriteFile(dst, body, 0o644); err != nil {
		return "", fmt.Errorf("artifacts: write %q: %w", key, err)
	}
	return dst, nil
}
