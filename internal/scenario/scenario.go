// Package scenario is the declarative suite: scenarios grouped by actor and
// screen, written only against page objects and command extensions, and a
// runner that gives each scenario its own fresh browser session.
package scenario

import (
	"context"
	"fmt"
	"regexp"
	"slices"

	"github.com/kuitang/storefront-e2e/internal/commands"
	"github.com/kuitang/storefront-e2e/internal/errs"
	"github.com/kuitang/storefront-e2e/internal/pages"
	"github.com/kuitang/storefront-e2e/internal/session"
)

// DemoSecret is the password shared by the demo accounts.
const DemoSecret = "secret_sauce"

// Actor is a user role with its credential.
type Actor struct {
	Identity string
	Secret   string
	Role     string
}

func (a Actor) Credential() commands.Credential {
	return commands.Credential{Identity: a.Identity, Secret: a.Secret}
}

var (
	StandardUser = Actor{"standard_user", DemoSecret, "baseline shopper"}
	LockedOut    = Actor{"locked_out_user", DemoSecret, "rejected at login"}
	ProblemUser  = Actor{"problem_user", DemoSecret, "broken product images"}
	GlitchUser   = Actor{"performance_glitch_user", DemoSecret, "slow login"}
	ErrorUser    = Actor{"error_user", DemoSecret, "broken sorting"}
	VisualUser   = Actor{"visual_user", DemoSecret, "visual checks"}
	Anonymous    = Actor{Role: "logged out visitor"}
)

// Actors lists every demo account in catalog order.
func Actors() []Actor {
	return []Actor{StandardUser, LockedOut, ProblemUser, GlitchUser, ErrorUser, VisualUser}
}

// Screen is where a scenario's assertions happen.
type Screen string

const (
	ScreenLogin     Screen = "login"
	ScreenInventory Screen = "inventory"
	ScreenCart      Screen = "cart"
	ScreenDetail    Screen = "detail"
)

// Start is the state a scenario begins from.
type Start int

const (
	// StartBlank runs the steps on an empty page.
	StartBlank Start = iota
	// StartLogin opens the entry screen first.
	StartLogin
	// StartInventory logs in as the actor and waits for the inventory.
	StartInventory
)

// Env is what scenario steps work with. Page objects are stateless, so
// they are created once per scenario.
type Env struct {
	Actor     Actor
	Session   *session.Session
	Login     *pages.LoginPage
	Inventory *pages.InventoryPage
}

// Step is the body of a scenario.
type Step func(ctx context.Context, e *Env) error

// Scenario is one user story.
type Scenario struct {
	Name   string
	Actor  Actor
	Screen Screen
	Start  Start
	Run    Step
}

// Label is the scenario's display name prefixed with its actor.
func (sc Scenario) Label() string {
	who := sc.Actor.Identity
	if who == "" {
		who = "anonymous"
	}
	return who + "/" + string(sc.Screen) + ": " + sc.Name
}

func newEnv(s *session.Session, a Actor) *Env {
	return &Env{
		Actor:     a,
		Session:   s,
		Login:     pages.NewLoginPage(s),
		Inventory: pages.NewInventoryPage(s),
	}
}

// Execute brings the session to the scenario's start state and runs it.
// The first unmet condition ends the scenario.
func (sc Scenario) Execute(ctx context.Context, s *session.Session) error {
	env := newEnv(s, sc.Actor)
	switch sc.Start {
	case StartLogin:
		if err := env.Login.Visit(ctx); err != nil {
			return err
		}
	case StartInventory:
		if err := env.Login.LoginAs(ctx, sc.Actor.Credential()); err != nil {
			return err
		}
		if err := env.Inventory.VerifyLoaded(ctx); err != nil {
			return err
		}
	}
	return sc.Run(ctx, env)
}

// Filter keeps scenarios whose actor identity matches actor and whose label
// matches name. Nil patterns match everything.
func Filter(scenarios []Scenario, actor, name *regexp.Regexp) []Scenario {
	return slices.DeleteFunc(slices.Clone(scenarios), func(sc Scenario) bool {
		if actor != nil && !actor.MatchString(sc.Actor.Identity) {
			return true
		}
		if name != nil && !name.MatchString(sc.Label()) {
			return true
		}
		return false
	})
}

// check turns a failed expectation into an assertion-mismatch error.
func check(ok bool, selector, message string, expected, observed any) error {
	if ok {
		return nil
	}
	return errs.Mismatch(selector, message, fmt.Sprint(expected), fmt.Sprint(observed))
}

// expectCode passes only when err carries code.
func expectCode(err error, code errs.Code) error {
	if err == nil {
		return errs.New(errs.AssertionMismatch, fmt.Sprintf("expected a %s failure, got success", code))
	}
	if !errs.Is(err, code) {
		return &errs.Error{
			Code:     errs.AssertionMismatch,
			Message:  "unexpected failure kind",
			Expected: string(code),
			Observed: string(errs.CodeOf(err)),
			Err:      err,
		}
	}
	return nil
}
