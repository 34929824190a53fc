package logutil

import (
	"net/url"
	"strings"
	"testing"
	"unicode/utf8"

	"pgregory.net/rapid"
)

func TestIsSensitiveLogField(t *testing.T) {
	t.Parallel()

	for _, key := range []string{"password", "Secret", "session-cookie", "X-Api-Key", "api_token", "Authorization", "credential"} {
		if !IsSensitiveLogField(key) {
			t.Errorf("IsSensitiveLogField(%q) = false", key)
		}
	}
	for _, key := range []string{"user-name", "identity", "sort", "item", "X-E2E-Session"} {
		if IsSensitiveLogField(key) {
			t.Errorf("IsSensitiveLogField(%q) = true", key)
		}
	}
}

func TestFormatFormForLog_RedactsPassword(t *testing.T) {
	t.Parallel()

	form := url.Values{
		"user-name": {"standard_user"},
		"password":  {"secret_sauce"},
	}
	got := FormatFormForLog(form)
	if want := `password="[REDACTED]"; user-name="standard_user"`; got != want {
		t.Fatalf("FormatFormForLog = %s, want %s", got, want)
	}
	if FormatFormForLog(nil) != "{}" {
		t.Fatal("empty form should format as {}")
	}
}

func testMaskSecret_NeverContainsSecret(t *rapid.T) {
	secret := rapid.StringMatching(`[a-z_]{4,32}`).Draw(t, "secret")
	masked := MaskSecret(secret)
	if strings.Contains(masked, secret) {
		t.Fatalf("MaskSecret leaked %q in %q", secret, masked)
	}
}

func TestMaskSecret_NeverContainsSecret(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testMaskSecret_NeverContainsSecret)
	if MaskSecret("") != "<empty>" {
		t.Fatal("empty secret should be distinguishable")
	}
}

func testTruncateForLog_BoundsRunes(t *rapid.T) {
	value := rapid.StringMatching(`[a-zé€ \n]{0,200}`).Draw(t, "value")
	limit := rapid.IntRange(1, 50).Draw(t, "limit")

	got := TruncateForLog(value, limit)
	if strings.Contains(got, "\n") {
		t.Fatalf("newline survived: %q", got)
	}
	if !utf8.ValidString(got) {
		t.Fatalf("cut through a rune: %q", got)
	}
	if n := utf8.RuneCountInString(strings.TrimSuffix(got, truncatedMark)); n > limit {
		t.Fatalf("%q has %d runes, limit %d", got, n, limit)
	}
}

func TestTruncateForLog_BoundsRunes(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testTruncateForLog_BoundsRunes)
	if got := TruncateForLog("  <html>\n</html>  ", 0); got != `<html>\n</html>` {
		t.Fatalf("uncut = %q", got)
	}
}
