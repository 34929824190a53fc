package pages

import (
	"context"
	"fmt"

	"github.com/kuitang/storefront-e2e/internal/errs"
	"github.com/kuitang/storefront-e2e/internal/locator"
	"github.com/kuitang/storefront-e2e/internal/session"
	"github.com/kuitang/storefront-e2e/internal/wait"
)

// DetailPage is the single product screen.
type DetailPage struct {
	s *session.Session
}

func NewDetailPage(s *session.Session) *DetailPage {
	return &DetailPage{s: s}
}

// VerifyLoaded waits for the detail route and a visible product name.
func (p *DetailPage) VerifyLoaded(ctx context.Context) error {
	if err := p.s.WaitForRoute(ctx, locator.RouteDetail); err != nil {
		return fmt.Errorf("detail: %w", err)
	}
	if _, err := p.s.WaitVisible(ctx, locator.DetailName); err != nil {
		return fmt.Errorf("detail: %w", err)
	}
	return nil
}

func (p *DetailPage) text(ctx context.Context, selector string) (string, error) {
	e, err := p.s.WaitVisible(ctx, selector)
	if err != nil {
		return "", err
	}
	return e.TrimmedText(), nil
}

func (p *DetailPage) Name(ctx context.Context) (string, error) {
	return p.text(ctx, locator.DetailName)
}

func (p *DetailPage) Description(ctx context.Context) (string, error) {
	return p.text(ctx, locator.DetailDesc)
}

// Price reads and parses the price; a malformed price is an
// assertion-mismatch.
func (p *DetailPage) Price(ctx context.Context) (Price, error) {
	text, err := p.text(ctx, locator.DetailPrice)
	if err != nil {
		return 0, err
	}
	price, err := ParsePrice(text)
	if err != nil {
		return 0, p.s.Annotate(ctx, errs.Mismatch(locator.DetailPrice, "price breaks the price contract", `$<digits>.<2 digits>`, text))
	}
	return price, nil
}

// ExpectName waits until the product name contains name.
func (p *DetailPage) ExpectName(ctx context.Context, name string) error {
	return p.s.ExpectText(ctx, locator.DetailName, name)
}

// State reads the cart membership of the displayed product.
func (p *DetailPage) State(ctx context.Context) (ItemState, Control, error) {
	e, err := p.s.WaitVisible(ctx, locator.DetailButton)
	if err != nil {
		return NotInCart, Control{}, err
	}
	ctl := Control{Label: e.TrimmedText(), TestID: e.TestID}
	state, err := StateFromTestID(e.TestID)
	if err != nil {
		return NotInCart, ctl, p.s.Annotate(ctx, err)
	}
	return state, ctl, nil
}

// AddToCart adds the displayed product. It fails if the product is already
// in the cart.
func (p *DetailPage) AddToCart(ctx context.Context) error {
	return p.toggle(ctx, NotInCart, InCart)
}

// RemoveFromCart removes the displayed product. It fails if the product is
// not in the cart.
func (p *DetailPage) RemoveFromCart(ctx context.Context) error {
	return p.toggle(ctx, InCart, NotInCart)
}

func (p *DetailPage) toggle(ctx context.Context, from, to ItemState) error {
	state, ctl, err := p.State(ctx)
	if err != nil {
		return err
	}
	if state != from {
		return &errs.Error{
			Code:     errs.FailedPrecondition,
			Message:  "product is already " + state.String(),
			Selector: locator.DetailButton,
			Expected: from.String(),
			Observed: state.String(),
		}
	}
	if err := p.s.Click(ctx, locator.ByTestID(ctl.TestID)); err != nil {
		return err
	}
	last, err := wait.Poll(ctx, p.s.WaitOptions(), "product "+to.String(), func(ctx context.Context) (ItemState, bool, error) {
		els, err := p.s.Query(ctx, locator.DetailButton)
		if err != nil {
			return NotInCart, false, err
		}
		if len(els) == 0 {
			return NotInCart, false, nil
		}
		st, err := StateFromTestID(els[0].TestID)
		if err != nil {
			return NotInCart, false, err
		}
		return st, st == to, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return p.s.Annotate(ctx, &errs.Error{
			Code:     errs.AssertionMismatch,
			Message:  "product did not change state",
			Selector: locator.DetailButton,
			Expected: to.String(),
			Observed: last.String(),
			Timeout:  p.s.WaitOptions().Timeout,
			Err:      err,
		})
	}
	return nil
}

// CartBadge reads the header badge without waiting.
func (p *DetailPage) CartBadge(ctx context.Context) (Badge, error) {
	return readBadge(ctx, p.s)
}

// ExpectBadgeCount waits until the badge reads n.
func (p *DetailPage) ExpectBadgeCount(ctx context.Context, n int) error {
	return expectBadgeCount(ctx, p.s, n)
}

// BackToProducts returns to the listing through the back button.
func (p *DetailPage) BackToProducts(ctx context.Context) (*InventoryPage, error) {
	if err := p.s.Click(ctx, locator.BackToProducts); err != nil {
		return nil, err
	}
	inv := NewInventoryPage(p.s)
	if err := inv.VerifyLoaded(ctx); err != nil {
		return nil, err
	}
	return inv, nil
}
