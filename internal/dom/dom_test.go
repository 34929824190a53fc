package dom

import (
	"strings"
	"testing"

	"github.com/kuitang/storefront-e2e/internal/locator"
)

const loginErrorPage = `<!doctype html>
<html><head><title>Swag Labs</title><style>.x{}</style></head>
<body>
  <form>
    <input class="input_error form_input" data-test="username">
    <svg class="error_icon"></svg>
    <input class="input_error form_input" data-test="password">
    <svg class="error_icon"></svg>
    <div class="error-message-container error">
      <h3 data-test="error">Epic sadface: Username is required<button class="error-button" data-test="error-button">x</button></h3>
    </div>
    <input type="submit" data-test="login-button" value="Login">
  </form>
  <script>console.log("ignored")</script>
</body></html>`

func TestSummarize_LoginErrorPage(t *testing.T) {
	t.Parallel()

	snap, err := Summarize("http://127.0.0.1/", loginErrorPage, locator.ErrorIcon, locator.CartBadge)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if snap.Title != "Swag Labs" {
		t.Fatalf("Title = %q", snap.Title)
	}
	if !strings.HasPrefix(snap.Error, "Epic sadface: Username is required") {
		t.Fatalf("Error = %q", snap.Error)
	}
	if snap.Matches[locator.ErrorIcon] != 2 || snap.Matches[locator.CartBadge] != 0 {
		t.Fatalf("Matches = %v", snap.Matches)
	}
	wantIDs := []string{"error", "error-button", "login-button", "password", "username"}
	if strings.Join(snap.TestIDs, ",") != strings.Join(wantIDs, ",") {
		t.Fatalf("TestIDs = %v", snap.TestIDs)
	}
	if strings.Contains(snap.Preview, "ignored") {
		t.Fatalf("script text leaked into preview: %q", snap.Preview)
	}

	rendered := snap.String()
	for _, want := range []string{"url: http://127.0.0.1/", "error banner: Epic sadface", "matches .error_icon: 2"} {
		if !strings.Contains(rendered, want) {
			t.Fatalf("String() missing %q:\n%s", want, rendered)
		}
	}
}

func TestCount(t *testing.T) {
	t.Parallel()

	n, err := Count(loginErrorPage, "."+locator.InputErrorClass)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Fatalf("Count = %d, want 2", n)
	}
}
