package scenario

import (
	"context"

	"github.com/kuitang/storefront-e2e/internal/commands"
	"github.com/kuitang/storefront-e2e/internal/locator"
	"github.com/kuitang/storefront-e2e/internal/pages"
)

const epicSadface = "Epic sadface"

// loginRejected submits identity and secret and expects to stay on the entry
// route with message in the banner, both fields marked, and a dismissable
// banner.
func loginRejected(identity, secret, message string) Step {
	return func(ctx context.Context, e *Env) error {
		if err := e.Login.LoginAs(ctx, commands.Credential{Identity: identity, Secret: secret}); err != nil {
			return err
		}
		if err := e.Login.AssertErrorContains(ctx, epicSadface); err != nil {
			return err
		}
		if err := e.Login.AssertErrorContains(ctx, message); err != nil {
			return err
		}
		if err := check(e.Session.OnRoute(locator.RouteLogin), locator.LoginButton,
			"rejected login left the entry route", locator.RouteLogin, e.Session.URL()); err != nil {
			return err
		}
		for _, field := range []string{locator.Username, locator.Password} {
			if err := e.Login.AssertInputErrorState(ctx, field); err != nil {
				return err
			}
		}
		return e.Login.AssertErrorDismisses(ctx)
	}
}

// loginAndOut logs in as the scenario's actor, checks the inventory is ready,
// and logs out again.
func loginAndOut(ctx context.Context, e *Env) error {
	if err := e.Login.LoginAs(ctx, e.Actor.Credential()); err != nil {
		return err
	}
	if err := e.Inventory.VerifyLoaded(ctx); err != nil {
		return err
	}
	if _, err := e.Inventory.Logout(ctx); err != nil {
		return err
	}
	if _, err := e.Session.WaitVisible(ctx, locator.LoginButton); err != nil {
		return err
	}
	return e.Session.WaitAbsent(ctx, locator.InventoryList)
}

func loginScenarios() []Scenario {
	var out []Scenario
	for _, a := range Actors() {
		if a == LockedOut {
			continue
		}
		out = append(out, Scenario{
			Name:   "logs in and out",
			Actor:  a,
			Screen: ScreenLogin,
			Start:  StartLogin,
			Run:    loginAndOut,
		})
	}

	anon := func(name string, run Step) Scenario {
		return Scenario{Name: name, Actor: Anonymous, Screen: ScreenLogin, Start: StartLogin, Run: run}
	}
	out = append(out,
		Scenario{
			Name:   "is locked out",
			Actor:  LockedOut,
			Screen: ScreenLogin,
			Start:  StartLogin,
			Run:    loginRejected(LockedOut.Identity, LockedOut.Secret, "Sorry, this user has been locked out."),
		},
		anon("rejects a wrong password",
			loginRejected(StandardUser.Identity, "wrong_password", "Username and password do not match any user in this service")),
		anon("rejects an unknown user",
			loginRejected("not_a_user", DemoSecret, "Username and password do not match any user in this service")),
		anon("requires a username",
			loginRejected("", DemoSecret, "Username is required")),
		anon("requires a password",
			loginRejected(StandardUser.Identity, "", "Password is required")),
		anon("requires a username when both fields are empty",
			loginRejected("", "", "Username is required")),
		anon("starts without an error", func(ctx context.Context, e *Env) error {
			state, err := e.Login.ErrorMessage(ctx)
			if err != nil {
				return err
			}
			if err := check(!state.Active, locator.ErrorBanner, "fresh entry screen shows an error", "no banner", state.Message); err != nil {
				return err
			}
			return e.Session.WaitCount(ctx, locator.ErrorIcon, 0)
		}),
		anon("clears fields left over from a previous attempt", func(ctx context.Context, e *Env) error {
			if err := e.Login.EnterIdentity(ctx, "leftover"); err != nil {
				return err
			}
			if err := e.Login.EnterSecret(ctx, "leftover"); err != nil {
				return err
			}
			if err := e.Login.LoginAs(ctx, StandardUser.Credential()); err != nil {
				return err
			}
			return e.Inventory.VerifyLoaded(ctx)
		}),
		Scenario{
			Name:   "guards the inventory route",
			Actor:  Anonymous,
			Screen: ScreenInventory,
			Start:  StartBlank,
			Run: func(ctx context.Context, e *Env) error {
				if err := e.Session.Visit(ctx, locator.RouteInventory); err != nil {
					return err
				}
				if err := e.Session.WaitForRoute(ctx, locator.RouteLogin); err != nil {
					return err
				}
				return e.Login.AssertErrorContains(ctx, "You can only access '"+locator.RouteInventory+"' when you are logged in.")
			},
		},
	)
	return out
}

// expectLoginOutcome is used by role scenarios that only care whether the
// actor reaches the inventory. A rejected login fails with the navigation
// timeout, whose snapshot carries the error banner text.
func expectLoginOutcome(ctx context.Context, e *Env) (*pages.InventoryPage, error) {
	if err := e.Login.LoginAs(ctx, e.Actor.Credential()); err != nil {
		return nil, err
	}
	if err := e.Inventory.VerifyLoaded(ctx); err != nil {
		return nil, err
	}
	return e.Inventory, nil
}
