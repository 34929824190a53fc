package pages

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/kuitang/storefront-e2e/internal/errs"
	"github.com/kuitang/storefront-e2e/internal/locator"
)

// CatalogSize is the number of items the inventory always lists. Any other
// count after the bounded wait is a failure, never tolerated.
const CatalogSize = 6

// ItemState is an item's cart membership.
type ItemState int

const (
	NotInCart ItemState = iota
	InCart
)

func (s ItemState) String() string {
	if s == InCart {
		return "in-cart"
	}
	return "not-in-cart"
}

// StateFromTestID derives cart membership from a control's test id prefix.
func StateFromTestID(id string) (ItemState, error) {
	switch {
	case hasControlPrefix(id, locator.AddToCartPrefix):
		return NotInCart, nil
	case hasControlPrefix(id, locator.RemovePrefix):
		return InCart, nil
	default:
		return NotInCart, errs.Mismatch(locator.ByTestID(id), "unrecognized cart control", "add-to-cart-* or remove-*", id)
	}
}

// hasControlPrefix accepts both the listing form ("remove-<slug>") and the
// detail screen form ("remove").
func hasControlPrefix(id, prefix string) bool {
	return id == strings.TrimSuffix(prefix, "-") || strings.HasPrefix(id, prefix)
}

// Price is an amount in cents.
type Price int64

var priceRe = regexp.MustCompile(`^\$(\d+)\.(\d{2})$`)

// ParsePrice parses the storefront price format "$<digits>.<2 digits>".
func ParsePrice(text string) (Price, error) {
	m := priceRe.FindStringSubmatch(text)
	if m == nil {
		return 0, fmt.Errorf("price %q does not match $<digits>.<2 digits>", text)
	}
	dollars, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("price %q: %w", text, err)
	}
	cents, _ := strconv.ParseInt(m[2], 10, 64)
	if dollars > (math.MaxInt64-cents)/100 {
		return 0, fmt.Errorf("price %q is out of range", text)
	}
	return Price(dollars*100 + cents), nil
}

func (p Price) String() string {
	return fmt.Sprintf("$%d.%02d", int64(p)/100, int64(p)%100)
}

// SortOrder is a value of the product sort control.
type SortOrder string

const (
	SortNameAsc   SortOrder = "az"
	SortNameDesc  SortOrder = "za"
	SortPriceAsc  SortOrder = "lohi"
	SortPriceDesc SortOrder = "hilo"
)

// SortOrders lists every order in control order.
var SortOrders = []SortOrder{SortNameAsc, SortNameDesc, SortPriceAsc, SortPriceDesc}

// Valid reports whether o is one of the four control values.
func (o SortOrder) Valid() bool {
	switch o {
	case SortNameAsc, SortNameDesc, SortPriceAsc, SortPriceDesc:
		return true
	}
	return false
}

// Badge is a read of the cart badge. An absent badge is not a zero count.
type Badge struct {
	Present bool
	Count   int
	Text    string
}

func (b Badge) String() string {
	if !b.Present {
		return "absent"
	}
	return b.Text
}

// Control is an item's add/remove button.
type Control struct {
	Label  string
	TestID string
}

// CatalogItem is one inventory row as rendered at the moment it was read.
type CatalogItem struct {
	Index        int
	Name         string
	Description  string
	PriceText    string
	Price        Price
	ImageSrc     string
	ImageVisible bool
	ImageLoaded  bool
	Control      Control
	State        ItemState
}

// ErrorState is the login error banner.
type ErrorState struct {
	Message string
	Active  bool
}

// OpenVia selects which part of an inventory row opens the detail screen.
type OpenVia int

const (
	ViaName OpenVia = iota
	ViaImage
)

// resolveName finds name among names: a unique exact match wins, otherwise
// substring matches are counted. It returns the index of the single match,
// or -1 and the number of matches when there is not exactly one.
func resolveName(names []string, name string) (int, int) {
	want := strings.TrimSpace(name)
	exact := -1
	exactCount := 0
	for i, n := range names {
		if strings.TrimSpace(n) == want {
			exact = i
			exactCount++
		}
	}
	if exactCount == 1 {
		return exact, 1
	}
	if exactCount > 1 {
		return -1, exactCount
	}

	sub := -1
	subCount := 0
	for i, n := range names {
		if strings.Contains(n, want) {
			sub = i
			subCount++
		}
	}
	if subCount == 1 {
		return sub, 1
	}
	return -1, subCount
}
