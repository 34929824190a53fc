// Package pages holds one facade per storefront screen. Page objects keep no
// state between calls; every operation re-reads the live page through the
// session.
package pages

import (
	"context"

	"github.com/kuitang/storefront-e2e/internal/commands"
	"github.com/kuitang/storefront-e2e/internal/locator"
	"github.com/kuitang/storefront-e2e/internal/session"
)

// LoginPage is the entry screen.
type LoginPage struct {
	s *session.Session
}

func NewLoginPage(s *session.Session) *LoginPage {
	return &LoginPage{s: s}
}

// Visit opens the entry route and waits for the login control.
func (p *LoginPage) Visit(ctx context.Context) error {
	if err := p.s.Visit(ctx, locator.RouteLogin); err != nil {
		return err
	}
	_, err := p.s.WaitVisible(ctx, locator.LoginButton)
	return err
}

func (p *LoginPage) EnterIdentity(ctx context.Context, text string) error {
	return p.s.Fill(ctx, locator.Username, text)
}

func (p *LoginPage) EnterSecret(ctx context.Context, text string) error {
	return p.s.Fill(ctx, locator.Password, text)
}

func (p *LoginPage) Submit(ctx context.Context) error {
	return p.s.Click(ctx, locator.LoginButton)
}

// AssertErrorContains waits until the error banner contains text.
func (p *LoginPage) AssertErrorContains(ctx context.Context, text string) error {
	return p.s.ExpectText(ctx, locator.ErrorBanner, text)
}

// ErrorMessage reads the error banner without waiting.
func (p *LoginPage) ErrorMessage(ctx context.Context) (ErrorState, error) {
	els, err := p.s.Query(ctx, locator.ErrorBanner)
	if err != nil {
		return ErrorState{}, err
	}
	if len(els) == 0 {
		return ErrorState{}, nil
	}
	return ErrorState{Message: els[0].TrimmedText(), Active: els[0].Visible}, nil
}

// LoginAs runs the login command. The outcome is left to the caller.
func (p *LoginPage) LoginAs(ctx context.Context, cred commands.Credential) error {
	return commands.Login(ctx, p.s, cred)
}

// AssertInputErrorState checks field is marked invalid along with the
// screen-wide icon count.
func (p *LoginPage) AssertInputErrorState(ctx context.Context, field string) error {
	return commands.AssertInputErrorState(ctx, p.s, field)
}

// AssertErrorDismisses checks the banner closes through its dismiss control.
func (p *LoginPage) AssertErrorDismisses(ctx context.Context) error {
	return commands.AssertErrorDismisses(ctx, p.s)
}
