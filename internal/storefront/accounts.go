package storefront

import (
	"sort"

	"golang.org/x/crypto/bcrypt"

	"github.com/kuitang/storefront-e2e/internal/errs"
)

// DemoPassword is the password every demo account accepts.
const DemoPassword = "secret_sauce"

// Behaviour is how the storefront treats an account after login.
type Behaviour string

const (
	BehaviourStandard     Behaviour = "standard"
	BehaviourLocked       Behaviour = "locked"
	BehaviourBrokenImages Behaviour = "broken-images"
	BehaviourGlitch       Behaviour = "glitch"
	BehaviourSortBroken   Behaviour = "sort-broken"
	BehaviourVisual       Behaviour = "visual"
)

// Login error messages, as shown in the banner.
const (
	MsgUsernameRequired = "Epic sadface: Username is required"
	MsgPasswordRequired = "Epic sadface: Password is required"
	MsgNoMatch          = "Epic sadface: Username and password do not match any user in this service"
	MsgLockedOut        = "Epic sadface: Sorry, this user has been locked out."
	MsgLoginRequired    = "Epic sadface: You can only access '%s' when you are logged in."
)

var demoAccounts = map[string]Behaviour{
	"standard_user":           BehaviourStandard,
	"locked_out_user":         BehaviourLocked,
	"problem_user":            BehaviourBrokenImages,
	"performance_glitch_user": BehaviourGlitch,
	"error_user":              BehaviourSortBroken,
	"visual_user":             BehaviourVisual,
}

// Account is one demo user.
type Account struct {
	Username  string
	Behaviour Behaviour
	hash      []byte
}

// Accounts holds the demo users with bcrypt-hashed passwords.
type Accounts struct {
	byName map[string]Account
}

// NewAccounts hashes the demo password for every account at cost.
func NewAccounts(cost int) (*Accounts, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	a := &Accounts{byName: make(map[string]Account, len(demoAccounts))}
	for name, behaviour := range demoAccounts {
		hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), cost)
		if err != nil {
			return nil, errs.Wrap(errs.Internal, "hash demo password", err)
		}
		a.byName[name] = Account{Username: name, Behaviour: behaviour, hash: hash}
	}
	return a, nil
}

// Usernames lists the accepted usernames in sorted order.
func (a *Accounts) Usernames() []string {
	out := make([]string, 0, len(a.byName))
	for name := range a.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Authenticate checks a login attempt in the order the banner reports
// problems: missing username, missing password, bad credentials, lock.
func (a *Accounts) Authenticate(username, password string) (Account, error) {
	if username == "" {
		return Account{}, errs.New(errs.InvalidArgument, MsgUsernameRequired)
	}
	if password == "" {
		return Account{}, errs.New(errs.InvalidArgument, MsgPasswordRequired)
	}
	acct, ok := a.byName[username]
	if !ok {
		return Account{}, errs.New(errs.InvalidArgument, MsgNoMatch)
	}
	if err := bcrypt.CompareHashAndPassword(acct.hash, []byte(password)); err != nil {
		return Account{}, errs.New(errs.InvalidArgument, MsgNoMatch)
	}
	if acct.Behaviour == BehaviourLocked {
		return Account{}, errs.New(errs.FailedPrecondition, MsgLockedOut)
	}
	return acct, nil
}
