package pages

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/kuitang/storefront-e2e/internal/commands"
	"github.com/kuitang/storefront-e2e/internal/errs"
	"github.com/kuitang/storefront-e2e/internal/locator"
	"github.com/kuitang/storefront-e2e/internal/obs"
	"github.com/kuitang/storefront-e2e/internal/session"
	"github.com/kuitang/storefront-e2e/internal/wait"
)

// InventoryPage is the product listing. It keeps no state: every call reads
// the live page.
type InventoryPage struct {
	s *session.Session
}

// NewInventoryPage binds the listing to a session.
func NewInventoryPage(s *session.Session) *InventoryPage {
	return &InventoryPage{s: s}
}

// VerifyLoaded is the ready gate: the URL is the inventory route and the
// list container is attached, both within the navigation timeout. Call it
// before any other inventory operation.
func (p *InventoryPage) VerifyLoaded(ctx context.Context) error {
	if err := p.s.WaitForRoute(ctx, locator.RouteInventory); err != nil {
		return fmt.Errorf("inventory: %w", err)
	}
	if err := p.s.WaitAttached(ctx, locator.InventoryList); err != nil {
		return fmt.Errorf("inventory: %w", err)
	}
	return nil
}

// AllItems waits until exactly CatalogSize rows are rendered and returns
// them in display order.
func (p *InventoryPage) AllItems(ctx context.Context) ([]CatalogItem, error) {
	rows, err := wait.Poll(ctx, p.s.WaitOptions(), "catalog rows", func(ctx context.Context) ([]rawRow, bool, error) {
		rows, err := readRows(ctx, p.s, inventoryRows)
		if err != nil {
			return nil, false, err
		}
		return rows, len(rows) == CatalogSize, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		mismatch := &errs.Error{
			Code:     errs.AssertionMismatch,
			Message:  "catalog size",
			Selector: locator.InventoryItem,
			Expected: fmt.Sprint(CatalogSize),
			Observed: fmt.Sprint(len(rows)),
			Timeout:  p.s.WaitOptions().Timeout,
			Err:      err,
		}
		return nil, p.s.Annotate(ctx, mismatch, locator.InventoryItem)
	}
	items, err := toItems(rows)
	if err != nil {
		return nil, p.s.Annotate(ctx, err)
	}
	return items, nil
}

// Items yields the rows in display order. Each range re-reads the page, so
// ranging again after a sort observes the new order. A read failure is
// yielded once and ends the sequence.
func (p *InventoryPage) Items(ctx context.Context) iter.Seq2[CatalogItem, error] {
	return func(yield func(CatalogItem, error) bool) {
		items, err := p.AllItems(ctx)
		if err != nil {
			yield(CatalogItem{}, err)
			return
		}
		for _, item := range items {
			if !yield(item, nil) {
				return
			}
		}
	}
}

// Names returns the item names in display order.
func (p *InventoryPage) Names(ctx context.Context) ([]string, error) {
	items, err := p.AllItems(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Name
	}
	return names, nil
}

// Prices returns the item prices in display order.
func (p *InventoryPage) Prices(ctx context.Context) ([]Price, error) {
	items, err := p.AllItems(ctx)
	if err != nil {
		return nil, err
	}
	prices := make([]Price, len(items))
	for i, item := range items {
		prices[i] = item.Price
	}
	return prices, nil
}

// ItemByName resolves exactly one row, by exact name first and substring
// second. An empty or unreadable list after the bounded wait is
// locator-not-found; a rendered list with zero or several matches is an
// ambiguous-match failure.
func (p *InventoryPage) ItemByName(ctx context.Context, name string) (CatalogItem, error) {
	type found struct {
		row     rawRow
		index   int
		rows    int
		matches int
		read    bool
	}
	var last found
	res, err := wait.Poll(ctx, p.s.WaitOptions(), "item "+name, func(ctx context.Context) (found, bool, error) {
		rows, err := readRows(ctx, p.s, inventoryRows)
		if err != nil {
			return found{}, false, err
		}
		idx, matches := resolveName(rowNames(rows), name)
		last = found{rows: len(rows), matches: matches, read: true}
		if idx < 0 {
			return last, false, nil
		}
		return found{row: rows[idx], index: idx, rows: len(rows), matches: 1, read: true}, true, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return CatalogItem{}, ctx.Err()
		}
		timeout := p.s.WaitOptions().Timeout
		if !last.read || last.rows == 0 {
			return CatalogItem{}, p.s.Annotate(ctx, errs.NotFound(locator.InventoryItem, timeout, err), locator.InventoryItem)
		}
		ambiguous := errs.Ambiguous(locator.InventoryItem, name, last.matches)
		if coded, ok := errs.As(ambiguous); ok {
			coded.Timeout = timeout
			coded.Err = err
		}
		return CatalogItem{}, p.s.Annotate(ctx, ambiguous, locator.InventoryItem)
	}
	item, err := toItem(res.index, res.row)
	if err != nil {
		return CatalogItem{}, p.s.Annotate(ctx, err)
	}
	return item, nil
}

// CurrentState reports whether the named item is in the cart, from its
// control's test id.
func (p *InventoryPage) CurrentState(ctx context.Context, name string) (ItemState, error) {
	item, err := p.ItemByName(ctx, name)
	if err != nil {
		return NotInCart, err
	}
	return item.State, nil
}

// ControlLabel returns the trimmed text of the named item's control.
func (p *InventoryPage) ControlLabel(ctx context.Context, name string) (string, error) {
	item, err := p.ItemByName(ctx, name)
	if err != nil {
		return "", err
	}
	return item.Control.Label, nil
}

// AddToCart moves the named item from not-in-cart to in-cart.
func (p *InventoryPage) AddToCart(ctx context.Context, name string) error {
	return p.toggle(ctx, name, NotInCart, InCart)
}

// RemoveFromCart moves the named item from in-cart to not-in-cart.
func (p *InventoryPage) RemoveFromCart(ctx context.Context, name string) error {
	return p.toggle(ctx, name, InCart, NotInCart)
}

// toggle checks the pre-state before clicking, so an item in the wrong state
// fails loudly instead of flipping the other way.
func (p *InventoryPage) toggle(ctx context.Context, name string, from, to ItemState) error {
	item, err := p.ItemByName(ctx, name)
	if err != nil {
		return err
	}
	if item.State != from {
		return &errs.Error{
			Code:     errs.FailedPrecondition,
			Message:  fmt.Sprintf("%q is already %s", name, item.State),
			Selector: locator.ByTestID(item.Control.TestID),
			Expected: from.String(),
			Observed: item.State.String(),
		}
	}

	control := locator.ByTestID(item.Control.TestID)
	obs.From(ctx).Debug("inventory_toggle", "item", name, "from", from.String(), "to", to.String())
	if err := p.s.Click(ctx, control); err != nil {
		return err
	}
	return p.waitState(ctx, name, to)
}

func (p *InventoryPage) waitState(ctx context.Context, name string, want ItemState) error {
	last, err := wait.Poll(ctx, p.s.WaitOptions(), fmt.Sprintf("%q %s", name, want), func(ctx context.Context) (ItemState, bool, error) {
		rows, err := readRows(ctx, p.s, inventoryRows)
		if err != nil {
			return NotInCart, false, err
		}
		idx, _ := resolveName(rowNames(rows), name)
		if idx < 0 {
			return NotInCart, false, errors.New("item not rendered")
		}
		state, err := StateFromTestID(rows[idx].TestID)
		if err != nil {
			return NotInCart, false, err
		}
		return state, state == want, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return p.s.Annotate(ctx, &errs.Error{
			Code:     errs.AssertionMismatch,
			Message:  fmt.Sprintf("%q did not change state", name),
			Selector: locator.InventoryItem,
			Expected: want.String(),
			Observed: last.String(),
			Timeout:  p.s.WaitOptions().Timeout,
			Err:      err,
		})
	}
	return nil
}

// CartBadge reads the badge without waiting.
func (p *InventoryPage) CartBadge(ctx context.Context) (Badge, error) {
	return readBadge(ctx, p.s)
}

// ExpectBadgeAbsent waits until the badge is gone, which means an empty cart.
func (p *InventoryPage) ExpectBadgeAbsent(ctx context.Context) error {
	return p.s.WaitAbsent(ctx, locator.CartBadge)
}

// ExpectBadgeCount waits until the badge reads n, which must be at least 1.
func (p *InventoryPage) ExpectBadgeCount(ctx context.Context, n int) error {
	return expectBadgeCount(ctx, p.s, n)
}

// SortBy selects a sort order and waits for the control to hold it.
func (p *InventoryPage) SortBy(ctx context.Context, order SortOrder) error {
	if !order.Valid() {
		return errs.New(errs.InvalidArgument, fmt.Sprintf("unknown sort order %q", order))
	}
	if err := p.s.Select(ctx, locator.SortSelect, string(order)); err != nil {
		return err
	}
	return p.s.ExpectValue(ctx, locator.SortSelect, string(order))
}

// CurrentSort reads the sort control's value without waiting.
func (p *InventoryPage) CurrentSort(ctx context.Context) (SortOrder, error) {
	els, err := p.s.Query(ctx, locator.SortSelect)
	if err != nil {
		return "", err
	}
	if len(els) == 0 {
		return "", p.s.Annotate(ctx, errs.NotFound(locator.SortSelect, 0, nil), locator.SortSelect)
	}
	return SortOrder(els[0].Value), nil
}

// GoToCart follows the header cart link and waits for the cart screen.
func (p *InventoryPage) GoToCart(ctx context.Context) (*CartPage, error) {
	if err := p.s.Click(ctx, locator.CartLink); err != nil {
		return nil, err
	}
	cart := NewCartPage(p.s)
	if err := cart.VerifyLoaded(ctx); err != nil {
		return nil, err
	}
	return cart, nil
}

// OpenItem opens the named item's detail screen through its name link or
// its image.
func (p *InventoryPage) OpenItem(ctx context.Context, name string, via OpenVia) (*DetailPage, error) {
	item, err := p.ItemByName(ctx, name)
	if err != nil {
		return nil, err
	}
	target := locator.InventoryItem + " " + locator.ItemName
	if via == ViaImage {
		target = locator.InventoryItem + " " + locator.ItemImage
	}
	if err := p.s.ClickNth(ctx, target, item.Index); err != nil {
		return nil, err
	}
	detail := NewDetailPage(p.s)
	if err := detail.VerifyLoaded(ctx); err != nil {
		return nil, err
	}
	return detail, nil
}

// Logout signs out through the navigation drawer.
func (p *InventoryPage) Logout(ctx context.Context) (*LoginPage, error) {
	if err := commands.Logout(ctx, p.s); err != nil {
		return nil, err
	}
	return NewLoginPage(p.s), nil
}
