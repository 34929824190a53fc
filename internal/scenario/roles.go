package scenario

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/kuitang/storefront-e2e/internal/errs"
	"github.com/kuitang/storefront-e2e/internal/locator"
	"github.com/kuitang/storefront-e2e/internal/pages"
	"github.com/kuitang/storefront-e2e/internal/wait"
)

// imageFragments maps each product to a fragment of its image file name.
var imageFragments = map[string]string{
	"Sauce Labs Backpack":               "sauce-backpack",
	"Sauce Labs Bike Light":             "bike-light",
	"Sauce Labs Bolt T-Shirt":           "bolt-shirt",
	"Sauce Labs Fleece Jacket":          "sauce-pullover",
	"Sauce Labs Onesie":                 "red-onesie",
	"Test.allTheThings() T-Shirt (Red)": "red-tatt",
}

const brokenImageFragment = "sl-404"

var meaningfulText = regexp.MustCompile(`\w{5,}`)

// viewports the visual account is checked at, besides the session default.
var viewports = []struct {
	name          string
	width, height int
}{
	{"mobile", 375, 667},
	{"tablet", 768, 1024},
}

func openDetail(via pages.OpenVia) Step {
	return func(ctx context.Context, e *Env) error {
		detail, err := e.Inventory.OpenItem(ctx, backpack, via)
		if err != nil {
			return err
		}
		if err := detail.ExpectName(ctx, backpack); err != nil {
			return err
		}
		price, err := detail.Price(ctx)
		if err != nil {
			return err
		}
		if err := check(price.String() == "$29.99", locator.DetailPrice, "detail price", "$29.99", price); err != nil {
			return err
		}
		desc, err := detail.Description(ctx)
		if err != nil {
			return err
		}
		if err := check(meaningfulText.MatchString(desc), locator.DetailDesc, "detail description", "a meaningful description", desc); err != nil {
			return err
		}
		state, ctl, err := detail.State(ctx)
		if err != nil {
			return err
		}
		return check(state == pages.NotInCart && strings.EqualFold(ctl.Label, labelAdd), locator.DetailButton,
			"detail control", "Add to cart", ctl.Label)
	}
}

func detailScenarios() []Scenario {
	std := func(name string, run Step) Scenario {
		return Scenario{Name: name, Actor: StandardUser, Screen: ScreenDetail, Start: StartInventory, Run: run}
	}
	return []Scenario{
		std("opens an item by its name", openDetail(pages.ViaName)),
		std("opens an item by its image", openDetail(pages.ViaImage)),
		std("adds to the cart from the detail screen", func(ctx context.Context, e *Env) error {
			detail, err := e.Inventory.OpenItem(ctx, backpack, pages.ViaName)
			if err != nil {
				return err
			}
			if err := detail.AddToCart(ctx); err != nil {
				return err
			}
			if err := detail.ExpectBadgeCount(ctx, 1); err != nil {
				return err
			}
			inv, err := detail.BackToProducts(ctx)
			if err != nil {
				return err
			}
			state, err := inv.CurrentState(ctx, backpack)
			if err != nil {
				return err
			}
			if err := check(state == pages.InCart, locator.InventoryItem, "state after detail add", pages.InCart, state); err != nil {
				return err
			}
			return inv.ExpectBadgeCount(ctx, 1)
		}),
		std("keeps the cart when going back in history", func(ctx context.Context, e *Env) error {
			detail, err := e.Inventory.OpenItem(ctx, boltShirt, pages.ViaImage)
			if err != nil {
				return err
			}
			if err := detail.AddToCart(ctx); err != nil {
				return err
			}
			if err := e.Session.Back(ctx); err != nil {
				return err
			}
			if err := e.Inventory.VerifyLoaded(ctx); err != nil {
				return err
			}
			if err := e.Inventory.ExpectBadgeCount(ctx, 1); err != nil {
				return err
			}
			return expectLabel(ctx, e, boltShirt, labelRemove)
		}),
		std("keeps the cart across a detail visit", func(ctx context.Context, e *Env) error {
			if err := e.Inventory.AddToCart(ctx, backpack); err != nil {
				return err
			}
			detail, err := e.Inventory.OpenItem(ctx, backpack, pages.ViaName)
			if err != nil {
				return err
			}
			state, ctl, err := detail.State(ctx)
			if err != nil {
				return err
			}
			if err := check(state == pages.InCart, locator.DetailButton, "detail state", pages.InCart, ctl.Label); err != nil {
				return err
			}
			inv, err := detail.BackToProducts(ctx)
			if err != nil {
				return err
			}
			if err := expectLabel(ctx, e, backpack, "Remove"); err != nil {
				return err
			}
			return inv.ExpectBadgeCount(ctx, 1)
		}),
		std("removes from the cart on the detail screen", func(ctx context.Context, e *Env) error {
			detail, err := e.Inventory.OpenItem(ctx, bikeLight, pages.ViaImage)
			if err != nil {
				return err
			}
			if err := expectCode(detail.RemoveFromCart(ctx), errs.FailedPrecondition); err != nil {
				return err
			}
			if err := detail.AddToCart(ctx); err != nil {
				return err
			}
			if err := detail.RemoveFromCart(ctx); err != nil {
				return err
			}
			return e.Session.WaitAbsent(ctx, locator.CartBadge)
		}),
	}
}

// imagesCorrect checks every row points at its own image and that all of
// them finish loading within the wait.
func imagesCorrect(ctx context.Context, e *Env) error {
	sel := locator.InventoryItem + " " + locator.ItemImage
	items, err := e.Inventory.AllItems(ctx)
	if err != nil {
		return err
	}
	for _, item := range items {
		want, ok := imageFragments[item.Name]
		if err := check(ok, locator.ItemName, "unknown product", "a catalog product", item.Name); err != nil {
			return err
		}
		if err := check(strings.Contains(item.ImageSrc, want), sel, fmt.Sprintf("image of %q", item.Name), want, item.ImageSrc); err != nil {
			return e.Session.Annotate(ctx, err, sel)
		}
	}

	err = wait.Until(ctx, e.Session.WaitOptions(), "images loaded", func(ctx context.Context) (string, bool, error) {
		items, err := e.Inventory.AllItems(ctx)
		if err != nil {
			return "", false, err
		}
		for _, item := range items {
			if !item.ImageVisible || !item.ImageLoaded {
				return item.Name, false, nil
			}
		}
		return "", true, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return e.Session.Annotate(ctx, errs.Wrap(errs.AssertionMismatch, "product images did not load", err), sel)
	}
	return nil
}

func visualScenarios() []Scenario {
	vis := func(name string, run Step) Scenario {
		return Scenario{Name: name, Actor: VisualUser, Screen: ScreenInventory, Start: StartInventory, Run: run}
	}
	return []Scenario{
		vis("lists six well formed items", checkCatalog),
		vis("shows the right image for every item", imagesCorrect),
		vis("shows meaningful descriptions", func(ctx context.Context, e *Env) error {
			for item, err := range e.Inventory.Items(ctx) {
				if err != nil {
					return err
				}
				if err := check(meaningfulText.MatchString(item.Description), locator.ItemDesc,
					fmt.Sprintf("description of %q", item.Name), "a meaningful description", item.Description); err != nil {
					return err
				}
			}
			return nil
		}),
		vis("shows the sort control", func(ctx context.Context, e *Env) error {
			_, err := e.Session.WaitVisible(ctx, locator.SortSelect)
			return err
		}),
		vis("toggles the control label", func(ctx context.Context, e *Env) error {
			if err := e.Inventory.AddToCart(ctx, bikeLight); err != nil {
				return err
			}
			if err := expectLabel(ctx, e, bikeLight, "Remove"); err != nil {
				return err
			}
			if err := e.Inventory.RemoveFromCart(ctx, bikeLight); err != nil {
				return err
			}
			if err := expectLabel(ctx, e, bikeLight, "Add to cart"); err != nil {
				return err
			}
			return e.Inventory.ExpectBadgeAbsent(ctx)
		}),
		vis("lays out six items on small screens", func(ctx context.Context, e *Env) error {
			for _, vp := range viewports {
				if err := e.Session.Page().SetViewportSize(vp.width, vp.height); err != nil {
					return errs.Wrap(errs.Internal, "resize to "+vp.name, err)
				}
				if err := checkCatalog(ctx, e); err != nil {
					return fmt.Errorf("%s viewport: %w", vp.name, err)
				}
			}
			return nil
		}),
	}
}

// showsBrokenImage reports whether a row points at the placeholder every
// problem_user row gets. Load state is not used: an image still in flight
// is not complete either, and the live placeholder does load.
func showsBrokenImage(item pages.CatalogItem) bool {
	return strings.Contains(item.ImageSrc, brokenImageFragment)
}

func problemScenarios() []Scenario {
	return []Scenario{{
		Name:   "sees broken product images",
		Actor:  ProblemUser,
		Screen: ScreenInventory,
		Start:  StartInventory,
		Run: func(ctx context.Context, e *Env) error {
			items, err := e.Inventory.AllItems(ctx)
			if err != nil {
				return err
			}
			for _, item := range items {
				if err := check(showsBrokenImage(item), locator.InventoryItem+" "+locator.ItemImage,
					fmt.Sprintf("image of %q", item.Name), brokenImageFragment, item.ImageSrc); err != nil {
					return e.Session.Annotate(ctx, err)
				}
			}
			return nil
		},
	}}
}

func errorScenarios() []Scenario {
	return []Scenario{{
		Name:   "cannot change the sort order",
		Actor:  ErrorUser,
		Screen: ScreenInventory,
		Start:  StartInventory,
		Run: func(ctx context.Context, e *Env) error {
			before, err := e.Inventory.Names(ctx)
			if err != nil {
				return err
			}
			if err := e.Inventory.SortBy(ctx, pages.SortNameDesc); err != nil && !errs.Is(err, errs.AssertionMismatch) {
				return err
			}
			after, err := e.Inventory.Names(ctx)
			if err != nil {
				return err
			}
			return check(after[0] == before[0], locator.InventoryItem, "sort order changed", before[0], after[0])
		},
	}}
}

func glitchScenarios() []Scenario {
	return []Scenario{{
		Name:   "reaches the inventory despite a slow login",
		Actor:  GlitchUser,
		Screen: ScreenInventory,
		Start:  StartLogin,
		Run: func(ctx context.Context, e *Env) error {
			inv, err := expectLoginOutcome(ctx, e)
			if err != nil {
				return err
			}
			_, err = inv.AllItems(ctx)
			return err
		},
	}}
}
