// Package dom turns raw page HTML into the short snapshot attached to
// failures: page title, the test ids present on the page, visible error text,
// and a truncated text preview.
package dom

import (
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kuitang/storefront-e2e/internal/locator"
	"github.com/kuitang/storefront-e2e/internal/logutil"
)

// DefaultPreviewChars bounds the text preview in a snapshot.
const DefaultPreviewChars = 400

// Snapshot is a structured summary of a page.
type Snapshot struct {
	URL     string
	Title   string
	TestIDs []string
	Error   string
	Matches map[string]int
	Preview string
}

// Summarize parses html and counts matches for each of the given selectors.
func Summarize(url, html string, selectors ...string) (Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Snapshot{}, fmt.Errorf("parse page html: %w", err)
	}

	snap := Snapshot{
		URL:   url,
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
	}

	seen := make(map[string]bool)
	doc.Find("[" + locator.TestIDAttribute + "]").Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr(locator.TestIDAttribute)
		if id != "" && !seen[id] {
			seen[id] = true
			snap.TestIDs = append(snap.TestIDs, id)
		}
	})
	sort.Strings(snap.TestIDs)

	snap.Error = strings.TrimSpace(doc.Find(locator.ErrorBanner).First().Text())

	if len(selectors) > 0 {
		snap.Matches = make(map[string]int, len(selectors))
		for _, sel := range selectors {
			snap.Matches[sel] = doc.Find(sel).Length()
		}
	}

	doc.Find("script, style").Remove()
	text := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	snap.Preview = logutil.TruncateForLog(text, DefaultPreviewChars)
	return snap, nil
}

// String renders the snapshot as a compact multi-line block.
func (s Snapshot) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "url: %s\n", s.URL)
	if s.Title != "" {
		fmt.Fprintf(&b, "title: %s\n", s.Title)
	}
	if s.Error != "" {
		fmt.Fprintf(&b, "error banner: %s\n", s.Error)
	}
	if len(s.Matches) > 0 {
		keys := make([]string, 0, len(s.Matches))
		for k := range s.Matches {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "matches %s: %d\n", k, s.Matches[k])
		}
	}
	if len(s.TestIDs) > 0 {
		fmt.Fprintf(&b, "test ids: %s\n", strings.Join(s.TestIDs, ", "))
	}
	if s.Preview != "" {
		fmt.Fprintf(&b, "text: %s\n", s.Preview)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Count returns how many elements in html match selector.
func Count(html, selector string) (int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0, fmt.Errorf("parse page html: %w", err)
	}
	return doc.Find(selector).Length(), nil
}
