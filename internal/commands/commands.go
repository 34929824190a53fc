// Package commands holds the reusable multi-step flows shared by page objects
// and scenarios: login, logout, and the two login-error assertions.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kuitang/storefront-e2e/internal/locator"
	"github.com/kuitang/storefront-e2e/internal/logutil"
	"github.com/kuitang/storefront-e2e/internal/obs"
	"github.com/kuitang/storefront-e2e/internal/session"
)

// ErrorIconCount is the number of error icons a failed login shows: one per
// input. Both inputs are always marked together, so a single-field check
// also asserts this screen-wide count. Do not derive it from the form.
const ErrorIconCount = 2

// Credential is one login attempt. The secret never reaches the logs.
type Credential struct {
	Identity string
	Secret   string
}

// LogValue implements slog.LogValuer.
func (c Credential) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("identity", c.Identity),
		slog.String("secret", logutil.MaskSecret(c.Secret)),
	)
}

// Login opens the entry screen, clears and fills both fields, and submits.
// It does not check the outcome; callers assert where the browser landed.
func Login(ctx context.Context, s *session.Session, cred Credential) error {
	obs.From(ctx).Info("login", "credential", cred)

	if err := s.Visit(ctx, locator.RouteLogin); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := s.Fill(ctx, locator.Username, cred.Identity); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := s.Fill(ctx, locator.Password, cred.Secret); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := s.Click(ctx, locator.LoginButton); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return nil
}

// Logout opens the navigation drawer, clicks logout, and waits for the entry
// route.
func Logout(ctx context.Context, s *session.Session) error {
	obs.From(ctx).Info("logout")

	if err := s.Click(ctx, locator.BurgerButton); err != nil {
		return fmt.Errorf("logout: open menu: %w", err)
	}
	if _, err := s.WaitVisible(ctx, locator.LogoutLink); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	if err := s.Click(ctx, locator.LogoutLink); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	if err := s.WaitForRoute(ctx, locator.RouteLogin); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// AssertInputErrorState checks that field carries the error class and that
// exactly ErrorIconCount error icons are on screen.
func AssertInputErrorState(ctx context.Context, s *session.Session, field string) error {
	if err := s.ExpectClass(ctx, field, locator.InputErrorClass); err != nil {
		return fmt.Errorf("input error state: %w", err)
	}
	if err := s.WaitCount(ctx, locator.ErrorIcon, ErrorIconCount); err != nil {
		return fmt.Errorf("input error state: %w", err)
	}
	return nil
}

// AssertErrorDismisses checks the error banner is visible, clicks its close
// control, and waits for the banner to be gone.
func AssertErrorDismisses(ctx context.Context, s *session.Session) error {
	if _, err := s.WaitVisible(ctx, locator.ErrorBanner); err != nil {
		return fmt.Errorf("error dismiss: %w", err)
	}
	if err := s.Click(ctx, locator.ErrorButton); err != nil {
		return fmt.Errorf("error dismiss: %w", err)
	}
	if err := s.WaitAbsent(ctx, locator.ErrorBanner); err != nil {
		return fmt.Errorf("error dismiss: %w", err)
	}
	return nil
}
