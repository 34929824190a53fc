package session

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Element is a point-in-time read of one DOM node. It is never cached; every
// query re-reads the live page.
type Element struct {
	Text    string `json:"text"`
	Visible bool   `json:"visible"`
	Class   string `json:"class"`
	Value   string `json:"value"`
	TestID  string `json:"testId"`
	Src     string `json:"src"`
	Loaded  bool   `json:"loaded"`
}

// HasClass reports whether the element carries class c.
func (e Element) HasClass(c string) bool {
	return slices.Contains(strings.Fields(e.Class), c)
}

// TrimmedText is Text with surrounding whitespace removed.
func (e Element) TrimmedText() string {
	return strings.TrimSpace(e.Text)
}

// queryScript reads every node matching a selector in one round trip so the
// result is a consistent view of a single render.
const queryScript = `(sel) => Array.from(document.querySelectorAll(sel)).map((e) => {
  const style = window.getComputedStyle(e);
  const rect = e.getBoundingClientRect();
  return {
    text: e.textContent || "",
    visible: style.visibility !== "hidden" && style.display !== "none" && rect.width > 0 && rect.height > 0,
    class: e.getAttribute("class") || "",
    value: "value" in e ? String(e.value) : "",
    testId: e.getAttribute("data-test") || "",
    src: e.getAttribute("src") || "",
    loaded: e.tagName === "IMG" ? (e.complete && e.naturalWidth > 0) : true,
  };
})`

// decodeInto converts a value returned by page.Evaluate into out.
func decodeInto(raw any, out any) error {
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode evaluate result: %w", err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode evaluate result: %w", err)
	}
	return nil
}

func firstVisible(els []Element) (Element, bool) {
	for _, e := range els {
		if e.Visible {
			return e, true
		}
	}
	return Element{}, false
}

func describe(els []Element) string {
	switch len(els) {
	case 0:
		return "0 matches"
	case 1:
		return fmt.Sprintf("1 match: %q", els[0].TrimmedText())
	default:
		return fmt.Sprintf("%d matches, first %q", len(els), els[0].TrimmedText())
	}
}
