package artifacts

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kuitang/storefront-e2e/internal/errs"
)

func sampleBundle() Bundle {
	failure := NewFailure("run-1", "Standard user: cart badge counts", "standard_user", "http://127.0.0.1/inventory.html", &errs.Error{
		Code:     errs.AssertionMismatch,
		Message:  "text mismatch",
		Selector: ".shopping_cart_badge",
		Expected: "2",
		Observed: "1",
		Timeout:  5 * time.Second,
		Snapshot: "url: http://127.0.0.1/inventory.html",
	})
	return Bundle{
		Failure:    failure,
		Screenshot: []byte("\x89PNG fake"),
		HTML:       "<html><body>inventory</body></html>",
	}
}

func TestKey(t *testing.T) {
	t.Parallel()

	require.Equal(t, "runs/abc/standard-user-cart-badge-counts/failure.json", Key("abc", "Standard user: cart badge counts", FailureName))
	require.Equal(t, "runs/abc/unnamed/dom.html", Key("abc", "  ", HTMLName))
}

func TestNewFailure_CopiesCodedContext(t *testing.T) {
	t.Parallel()

	f := sampleBundle().Failure
	require.Equal(t, "assertion_mismatch", f.Code)
	require.Equal(t, "text mismatch", f.Message)
	require.Equal(t, ".shopping_cart_badge", f.Selector)
	require.Equal(t, "2", f.Expected)
	require.Equal(t, "1", f.Observed)
	require.EqualValues(t, 5000, f.TimeoutMS)
	require.Contains(t, f.Error, "assertion_mismatch")

	plain := NewFailure("run-1", "x", "", "", errors.New("boom"))
	require.Equal(t, "internal", plain.Code)
	require.Empty(t, plain.Selector)
}

func TestSave_DirSink(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	locs, err := Save(context.Background(), DirSink{Root: root}, sampleBundle())
	require.NoError(t, err)
	require.Len(t, locs, 3)

	dir := filepath.Join(root, "runs", "run-1", "standard-user-cart-badge-counts")
	raw, err := os.ReadFile(filepath.Join(dir, FailureName))
	require.NoError(t, err)

	var got Failure
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Equal(t, "standard_user", got.Actor)
	require.Equal(t, "1", got.Observed)

	png, err := os.ReadFile(filepath.Join(dir, ScreenshotName))
	require.NoError(t, err)
	require.Equal(t, []byte("\x89PNG fake"), png)
}

func TestSave_SkipsEmptyParts(t *testing.T) {
	t.Parallel()

	b := sampleBundle()
	b.Screenshot = nil
	b.HTML = ""
	locs, err := Save(context.Background(), DirSink{Root: t.TempDir()}, b)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	require.Equal(t, FailureName, filepath.Base(locs[0]))
}

func TestDirSink_RejectsEscapingKeys(t *testing.T) {
	t.Parallel()

	_, err := DirSink{Root: t.TempDir()}.Put(context.Background(), "../outside.txt", []byte("x"), "text/plain")
	require.True(t, errs.Is(err, errs.InvalidArgument), "err = %v", err)
}

func TestSave_S3Sink(t *testing.T) {
	t.Parallel()

	sink := TestS3Sink(t, "e2e-artifacts")
	ctx := context.Background()

	locs, err := Save(ctx, sink, sampleBundle())
	require.NoError(t, err)
	require.Len(t, locs, 3)
	require.Contains(t, locs, "s3://e2e-artifacts/runs/run-1/standard-user-cart-badge-counts/failure.json")

	keys, err := sink.List(ctx, "runs/run-1/")
	require.NoError(t, err)
	sort.Strings(keys)
	require.Equal(t, []string{
		"runs/run-1/standard-user-cart-badge-counts/dom.html",
		"runs/run-1/standard-user-cart-badge-counts/failure.json",
		"runs/run-1/standard-user-cart-badge-counts/screenshot.png",
	}, keys)

	html, err := sink.Get(ctx, "runs/run-1/standard-user-cart-badge-counts/dom.html")
	require.NoError(t, err)
	require.Equal(t, "<html><body>inventory</body></html>", string(html))

	_, err = sink.Get(ctx, "runs/run-1/missing.json")
	require.ErrorIs(t, err, ErrObjectNotFound)
}
