package pages

import (
	"context"
	"fmt"

	"github.com/kuitang/storefront-e2e/internal/locator"
	"github.com/kuitang/storefront-e2e/internal/session"
)

// CartPage is the cart screen.
type CartPage struct {
	s *session.Session
}

func NewCartPage(s *session.Session) *CartPage {
	return &CartPage{s: s}
}

// VerifyLoaded waits for the cart route and the cart list.
func (p *CartPage) VerifyLoaded(ctx context.Context) error {
	if err := p.s.WaitForRoute(ctx, locator.RouteCart); err != nil {
		return fmt.Errorf("cart: %w", err)
	}
	if err := p.s.WaitAttached(ctx, locator.CartList); err != nil {
		return fmt.Errorf("cart: %w", err)
	}
	return nil
}

// ItemNames reads the names of the items in the cart without waiting.
func (p *CartPage) ItemNames(ctx context.Context) ([]string, error) {
	els, err := p.s.Query(ctx, locator.CartItem+" "+locator.ItemName)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(els))
	for i, e := range els {
		names[i] = e.TrimmedText()
	}
	return names, nil
}

// ExpectItemCount waits until exactly n items are listed.
func (p *CartPage) ExpectItemCount(ctx context.Context, n int) error {
	return p.s.WaitCount(ctx, locator.CartItem, n)
}

// CartBadge reads the header badge without waiting.
func (p *CartPage) CartBadge(ctx context.Context) (Badge, error) {
	return readBadge(ctx, p.s)
}

// ContinueShopping returns to the inventory screen.
func (p *CartPage) ContinueShopping(ctx context.Context) (*InventoryPage, error) {
	if err := p.s.Click(ctx, locator.ContinueShopping); err != nil {
		return nil, err
	}
	inv := NewInventoryPage(p.s)
	if err := inv.VerifyLoaded(ctx); err != nil {
		return nil, err
	}
	return inv, nil
}
