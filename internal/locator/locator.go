// Package locator is the registry of selectors and routes the automation layer
// depends on. Everything that touches the page goes through these values so a
// markup change on the storefront is a one-line edit here.
package locator

import (
	"fmt"
	"strings"
)

// TestIDAttribute is the attribute the storefront uses for stable test ids.
const TestIDAttribute = "data-test"

// ByTestID returns a CSS selector for an element with the given test id.
func ByTestID(id string) string {
	return fmt.Sprintf(`[%s=%q]`, TestIDAttribute, id)
}

// ByTestIDPrefix returns a CSS selector for test ids starting with prefix.
func ByTestIDPrefix(prefix string) string {
	return fmt.Sprintf(`[%s^=%q]`, TestIDAttribute, prefix)
}

// Login screen.
var (
	Username    = ByTestID("username")
	Password    = ByTestID("password")
	LoginButton = ByTestID("login-button")
	ErrorBanner = ByTestID("error")
	ErrorButton = ByTestID("error-button")
)

// Classes marking a failed validation.
const (
	ErrorIcon       = ".error_icon"
	InputErrorClass = "input_error"
)

// Inventory screen.
const (
	InventoryList = ".inventory_list"
	InventoryItem = ".inventory_item"
	ItemName      = ".inventory_item_name"
	ItemPrice     = ".inventory_item_price"
	ItemDesc      = ".inventory_item_desc"
	ItemImage     = "img"
	ItemButton    = "button"
)

// SortSelect is the product sort dropdown.
var SortSelect = ByTestID("product-sort-container")

// Header and navigation drawer.
const (
	CartBadge    = ".shopping_cart_badge"
	CartLink     = ".shopping_cart_link"
	BurgerButton = "#react-burger-menu-btn"
	LogoutLink   = "#logout_sidebar_link"
)

// Cart screen.
const (
	CartList         = ".cart_list"
	CartItem         = ".cart_item"
	ContinueShopping = "#continue-shopping"
)

// Item detail screen.
const (
	DetailContainer = ".inventory_details"
	DetailName      = ".inventory_details_name"
	DetailPrice     = ".inventory_details_price"
	DetailDesc      = ".inventory_details_desc"
	DetailButton    = ".inventory_details_container button.btn_inventory"
	BackToProducts  = "#back-to-products"
)

// Control test id prefixes. The prefix encodes the item's cart state.
const (
	AddToCartPrefix = "add-to-cart-"
	RemovePrefix    = "remove-"
)

// Routes of the storefront.
const (
	RouteLogin     = "/"
	RouteInventory = "/inventory.html"
	RouteCart      = "/cart.html"
	RouteDetail    = "/inventory-item.html"
)

// AddToCartControl selects an item's add control by slug.
func AddToCartControl(slug string) string {
	return ByTestID(AddToCartPrefix + slug)
}

// RemoveControl selects an item's remove control by slug.
func RemoveControl(slug string) string {
	return ByTestID(RemovePrefix + slug)
}

// Slug converts a product name into the form used in control test ids:
// lower case, runs of non-alphanumerics collapsed to single hyphens, except
// that dots and parentheses are kept, matching the storefront markup.
func Slug(name string) string {
	var b strings.Builder
	lastHyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '(', r == ')':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen && b.Len() > 0 {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
