package scenario

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/kuitang/storefront-e2e/internal/errs"
	"github.com/kuitang/storefront-e2e/internal/locator"
	"github.com/kuitang/storefront-e2e/internal/pages"
	"github.com/kuitang/storefront-e2e/internal/wait"
)

const (
	backpack  = "Sauce Labs Backpack"
	bikeLight = "Sauce Labs Bike Light"
	boltShirt = "Sauce Labs Bolt T-Shirt"
)

const (
	labelAdd    = "add to cart"
	labelRemove = "remove"
)

// wellFormed checks one row against the catalog item contract: a name, a
// well formed price, a visible image, and exactly one of the two control
// labels agreeing with the control's state.
func wellFormed(item pages.CatalogItem) error {
	sel := fmt.Sprintf("%s:nth-child(%d)", locator.InventoryItem, item.Index+1)
	if err := check(item.Name != "", sel, "item has no name", "non-empty name", "empty"); err != nil {
		return err
	}
	if err := check(item.ImageVisible, sel+" "+locator.ItemImage, "item image hidden", "visible", "hidden"); err != nil {
		return err
	}
	label := strings.ToLower(item.Control.Label)
	if err := check(label == labelAdd || label == labelRemove, sel+" "+locator.ItemButton,
		"control label", "Add to cart or Remove", item.Control.Label); err != nil {
		return err
	}
	want := labelAdd
	if item.State == pages.InCart {
		want = labelRemove
	}
	return check(label == want, sel+" "+locator.ItemButton, "control label disagrees with its state", want, label)
}

func checkCatalog(ctx context.Context, e *Env) error {
	items, err := e.Inventory.AllItems(ctx)
	if err != nil {
		return err
	}
	for _, item := range items {
		if err := wellFormed(item); err != nil {
			return e.Session.Annotate(ctx, err, locator.InventoryItem)
		}
	}
	return nil
}

// sortedNames sorts by order and waits until the names satisfy ordered. The
// list re-renders after the control changes, so the first read may be stale.
func sortedNames(ctx context.Context, e *Env, order pages.SortOrder, ordered func([]string) bool) ([]string, error) {
	if err := e.Inventory.SortBy(ctx, order); err != nil {
		return nil, err
	}
	return waitOrder(ctx, e, string(order), e.Inventory.Names, ordered)
}

func sortedPrices(ctx context.Context, e *Env, order pages.SortOrder, ordered func([]pages.Price) bool) ([]pages.Price, error) {
	if err := e.Inventory.SortBy(ctx, order); err != nil {
		return nil, err
	}
	return waitOrder(ctx, e, string(order), e.Inventory.Prices, ordered)
}

func waitOrder[T any](ctx context.Context, e *Env, order string, read func(context.Context) ([]T, error), ordered func([]T) bool) ([]T, error) {
	got, err := wait.Poll(ctx, e.Session.WaitOptions(), "order "+order, func(ctx context.Context) ([]T, bool, error) {
		v, err := read(ctx)
		if err != nil {
			return nil, false, err
		}
		return v, ordered(v), nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, e.Session.Annotate(ctx, &errs.Error{
			Code:     errs.AssertionMismatch,
			Message:  "items not in " + order + " order",
			Selector: locator.InventoryItem,
			Expected: order,
			Observed: fmt.Sprint(got),
			Timeout:  e.Session.WaitOptions().Timeout,
			Err:      err,
		}, locator.InventoryItem)
	}
	return got, nil
}

func ascending[T cmp.Ordered](v []T) bool { return slices.IsSorted(v) }

func descending[T cmp.Ordered](v []T) bool {
	return slices.IsSortedFunc(v, func(a, b T) int { return cmp.Compare(b, a) })
}

// cartCount counts items whose control says they are in the cart.
func cartCount(ctx context.Context, e *Env) (int, error) {
	n := 0
	for item, err := range e.Inventory.Items(ctx) {
		if err != nil {
			return 0, err
		}
		if item.State == pages.InCart {
			n++
		}
	}
	return n, nil
}

// badgeMatchesCart checks the badge against the in-cart item count: absent
// for an empty cart, otherwise equal to the count.
func badgeMatchesCart(ctx context.Context, e *Env) error {
	n, err := cartCount(ctx, e)
	if err != nil {
		return err
	}
	if n == 0 {
		return e.Inventory.ExpectBadgeAbsent(ctx)
	}
	return e.Inventory.ExpectBadgeCount(ctx, n)
}

func expectLabel(ctx context.Context, e *Env, name, want string) error {
	label, err := e.Inventory.ControlLabel(ctx, name)
	if err != nil {
		return err
	}
	return check(strings.EqualFold(label, want), locator.InventoryItem+" "+locator.ItemButton,
		fmt.Sprintf("control label of %q", name), want, label)
}

func inventoryScenarios() []Scenario {
	std := func(name string, run Step) Scenario {
		return Scenario{Name: name, Actor: StandardUser, Screen: ScreenInventory, Start: StartInventory, Run: run}
	}
	return []Scenario{
		std("lists six well formed items", checkCatalog),
		std("shows the header controls", func(ctx context.Context, e *Env) error {
			for _, sel := range []string{locator.CartLink, locator.BurgerButton, locator.SortSelect} {
				if _, err := e.Session.WaitVisible(ctx, sel); err != nil {
					return err
				}
			}
			return nil
		}),
		std("sorts by name ascending by default", func(ctx context.Context, e *Env) error {
			order, err := e.Inventory.CurrentSort(ctx)
			if err != nil {
				return err
			}
			if err := check(order == pages.SortNameAsc, locator.SortSelect, "default sort", pages.SortNameAsc, order); err != nil {
				return err
			}
			_, err = waitOrder(ctx, e, string(order), e.Inventory.Names, ascending[string])
			return err
		}),
		std("reverses the list between name orders", func(ctx context.Context, e *Env) error {
			az, err := sortedNames(ctx, e, pages.SortNameAsc, ascending[string])
			if err != nil {
				return err
			}
			za, err := sortedNames(ctx, e, pages.SortNameDesc, descending[string])
			if err != nil {
				return err
			}
			if err := check(az[0] == za[len(za)-1] && za[0] == az[len(az)-1], locator.InventoryItem,
				"name orders are not reverses", fmt.Sprint(az), fmt.Sprint(za)); err != nil {
				return err
			}
			reversed := slices.Clone(za)
			slices.Reverse(reversed)
			return check(slices.Equal(az, reversed), locator.InventoryItem, "name orders are not reverses", fmt.Sprint(az), fmt.Sprint(reversed))
		}),
		std("sorts by price low to high", func(ctx context.Context, e *Env) error {
			prices, err := sortedPrices(ctx, e, pages.SortPriceAsc, ascending[pages.Price])
			if err != nil {
				return err
			}
			return check(prices[0] < 1000, locator.ItemPrice, "cheapest item", "under $10.00", prices[0])
		}),
		std("sorts by price high to low", func(ctx context.Context, e *Env) error {
			prices, err := sortedPrices(ctx, e, pages.SortPriceDesc, descending[pages.Price])
			if err != nil {
				return err
			}
			return check(prices[0] > 4000, locator.ItemPrice, "dearest item", "over $40.00", prices[0])
		}),
		std("keeps every item well formed under every order", func(ctx context.Context, e *Env) error {
			for _, order := range pages.SortOrders {
				if err := e.Inventory.SortBy(ctx, order); err != nil {
					return err
				}
				if err := checkCatalog(ctx, e); err != nil {
					return err
				}
			}
			return nil
		}),
		std("has no badge with an empty cart", func(ctx context.Context, e *Env) error {
			badge, err := e.Inventory.CartBadge(ctx)
			if err != nil {
				return err
			}
			if err := check(!badge.Present, locator.CartBadge, "badge on an empty cart", "absent", badge); err != nil {
				return err
			}
			return badgeMatchesCart(ctx, e)
		}),
		std("counts one added item", func(ctx context.Context, e *Env) error {
			if err := e.Inventory.AddToCart(ctx, backpack); err != nil {
				return err
			}
			return e.Inventory.ExpectBadgeCount(ctx, 1)
		}),
		std("counts several added items", func(ctx context.Context, e *Env) error {
			for i, name := range []string{backpack, bikeLight, boltShirt} {
				if err := e.Inventory.AddToCart(ctx, name); err != nil {
					return err
				}
				if err := e.Inventory.ExpectBadgeCount(ctx, i+1); err != nil {
					return err
				}
			}
			return badgeMatchesCart(ctx, e)
		}),
		std("removes the badge when the cart empties", func(ctx context.Context, e *Env) error {
			if err := e.Inventory.AddToCart(ctx, backpack); err != nil {
				return err
			}
			if err := e.Inventory.ExpectBadgeCount(ctx, 1); err != nil {
				return err
			}
			if err := e.Inventory.RemoveFromCart(ctx, backpack); err != nil {
				return err
			}
			return e.Inventory.ExpectBadgeAbsent(ctx)
		}),
		std("toggles the control label", func(ctx context.Context, e *Env) error {
			if err := expectLabel(ctx, e, backpack, "Add to cart"); err != nil {
				return err
			}
			if err := e.Inventory.AddToCart(ctx, backpack); err != nil {
				return err
			}
			if err := expectLabel(ctx, e, backpack, "Remove"); err != nil {
				return err
			}
			if err := e.Inventory.RemoveFromCart(ctx, backpack); err != nil {
				return err
			}
			return expectLabel(ctx, e, backpack, "Add to cart")
		}),
		std("refuses to add an item twice", func(ctx context.Context, e *Env) error {
			if err := e.Inventory.AddToCart(ctx, backpack); err != nil {
				return err
			}
			if err := expectCode(e.Inventory.AddToCart(ctx, backpack), errs.FailedPrecondition); err != nil {
				return err
			}
			return e.Inventory.ExpectBadgeCount(ctx, 1)
		}),
		std("refuses to remove an item not in the cart", func(ctx context.Context, e *Env) error {
			if err := expectCode(e.Inventory.RemoveFromCart(ctx, backpack), errs.FailedPrecondition); err != nil {
				return err
			}
			return e.Inventory.ExpectBadgeAbsent(ctx)
		}),
		std("fails loudly on an ambiguous name", func(ctx context.Context, e *Env) error {
			_, err := e.Inventory.ItemByName(ctx, "T-Shirt")
			return expectCode(err, errs.AmbiguousMatch)
		}),
		std("resolves an item by a unique fragment", func(ctx context.Context, e *Env) error {
			item, err := e.Inventory.ItemByName(ctx, "Fleece")
			if err != nil {
				return err
			}
			return check(item.Name == "Sauce Labs Fleece Jacket", locator.ItemName, "resolved item", "Sauce Labs Fleece Jacket", item.Name)
		}),
		{
			Name:   "keeps the cart across cart navigation",
			Actor:  StandardUser,
			Screen: ScreenCart,
			Start:  StartInventory,
			Run: func(ctx context.Context, e *Env) error {
				if err := e.Inventory.AddToCart(ctx, backpack); err != nil {
					return err
				}
				if err := e.Inventory.ExpectBadgeCount(ctx, 1); err != nil {
					return err
				}
				cart, err := e.Inventory.GoToCart(ctx)
				if err != nil {
					return err
				}
				inv, err := cart.ContinueShopping(ctx)
				if err != nil {
					return err
				}
				return inv.ExpectBadgeCount(ctx, 1)
			},
		},
		{
			Name:   "lists added items in the cart",
			Actor:  StandardUser,
			Screen: ScreenCart,
			Start:  StartInventory,
			Run: func(ctx context.Context, e *Env) error {
				want := []string{backpack, bikeLight}
				for _, name := range want {
					if err := e.Inventory.AddToCart(ctx, name); err != nil {
						return err
					}
				}
				cart, err := e.Inventory.GoToCart(ctx)
				if err != nil {
					return err
				}
				if err := cart.ExpectItemCount(ctx, len(want)); err != nil {
					return err
				}
				names, err := cart.ItemNames(ctx)
				if err != nil {
					return err
				}
				if err := check(slices.Equal(names, want), locator.CartItem, "cart contents", want, names); err != nil {
					return err
				}
				badge, err := cart.CartBadge(ctx)
				if err != nil {
					return err
				}
				return check(badge.Present && badge.Count == len(want), locator.CartBadge, "cart badge", len(want), badge)
			},
		},
		{
			Name:   "shows an empty cart",
			Actor:  StandardUser,
			Screen: ScreenCart,
			Start:  StartInventory,
			Run: func(ctx context.Context, e *Env) error {
				cart, err := e.Inventory.GoToCart(ctx)
				if err != nil {
					return err
				}
				return cart.ExpectItemCount(ctx, 0)
			},
		},
	}
}
