package commands

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func testCredential_LogValueHidesSecret(t *rapid.T) {
	cred := Credential{
		Identity: rapid.StringMatching(`[a-z_]{1,20}`).Draw(t, "identity"),
		Secret:   "s3cr3t-" + rapid.StringMatching(`[A-Za-z0-9]{1,24}`).Draw(t, "secret"),
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logger.Info("login", "credential", cred)

	out := buf.String()
	if strings.Contains(out, cred.Secret) {
		t.Fatalf("secret %q leaked into log line: %s", cred.Secret, out)
	}
	if !strings.Contains(out, `"identity":"`+cred.Identity+`"`) {
		t.Fatalf("identity missing from log line: %s", out)
	}
}

func TestCredential_LogValueHidesSecret(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testCredential_LogValueHidesSecret)
}

func TestCredential_EmptySecretIsDistinguishable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	slog.New(slog.NewJSONHandler(&buf, nil)).Info("login", "credential", Credential{Identity: "standard_user"})
	if !strings.Contains(buf.String(), "<empty>") {
		t.Fatalf("empty secret not marked: %s", buf.String())
	}
}

func TestErrorIconCountIsOnePerInput(t *testing.T) {
	t.Parallel()
	if ErrorIconCount != 2 {
		t.Fatalf("ErrorIconCount = %d; the login form has two inputs", ErrorIconCount)
	}
}
