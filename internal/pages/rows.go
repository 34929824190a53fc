package pages

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/kuitang/storefront-e2e/internal/errs"
	"github.com/kuitang/storefront-e2e/internal/locator"
	"github.com/kuitang/storefront-e2e/internal/session"
)

// rowScript reads every inventory row in one round trip so names, prices and
// controls come from the same render.
const rowScript = `(sel) => {
  const visible = (e) => {
    if (!e) return false;
    const style = window.getComputedStyle(e);
    const rect = e.getBoundingClientRect();
    return style.visibility !== "hidden" && style.display !== "none" && rect.width > 0 && rect.height > 0;
  };
  const text = (row, s) => { const e = row.querySelector(s); return e ? (e.textContent || "") : ""; };
  return Array.from(document.querySelectorAll(sel.row)).map((row) => {
    const img = row.querySelector(sel.image);
    const btn = row.querySelector(sel.button);
    return {
      name: text(row, sel.name),
      desc: text(row, sel.desc),
      price: text(row, sel.price),
      imageSrc: img ? (img.getAttribute("src") || "") : "",
      imageVisible: visible(img),
      imageLoaded: img ? (img.complete && img.naturalWidth > 0) : false,
      label: btn ? (btn.textContent || "") : "",
      testId: btn ? (btn.getAttribute("data-test") || "") : "",
    };
  });
}`

type rowSelectors struct {
	Row    string `json:"row"`
	Name   string `json:"name"`
	Desc   string `json:"desc"`
	Price  string `json:"price"`
	Image  string `json:"image"`
	Button string `json:"button"`
}

var inventoryRows = rowSelectors{
	Row:    locator.InventoryItem,
	Name:   locator.ItemName,
	Desc:   locator.ItemDesc,
	Price:  locator.ItemPrice,
	Image:  locator.ItemImage,
	Button: locator.ItemButton,
}

type rawRow struct {
	Name         string `json:"name"`
	Desc         string `json:"desc"`
	Price        string `json:"price"`
	ImageSrc     string `json:"imageSrc"`
	ImageVisible bool   `json:"imageVisible"`
	ImageLoaded  bool   `json:"imageLoaded"`
	Label        string `json:"label"`
	TestID       string `json:"testId"`
}

func readRows(ctx context.Context, s *session.Session, sel rowSelectors) ([]rawRow, error) {
	var rows []rawRow
	if err := s.Eval(ctx, rowScript, sel, &rows); err != nil {
		return nil, fmt.Errorf("read rows %s: %w", sel.Row, err)
	}
	return rows, nil
}

func rowNames(rows []rawRow) []string {
	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = strings.TrimSpace(r.Name)
	}
	return names
}

// toItem validates one row against the storefront contract.
func toItem(i int, r rawRow) (CatalogItem, error) {
	item := CatalogItem{
		Index:        i,
		Name:         strings.TrimSpace(r.Name),
		Description:  strings.TrimSpace(r.Desc),
		PriceText:    strings.TrimSpace(r.Price),
		ImageSrc:     r.ImageSrc,
		ImageVisible: r.ImageVisible,
		ImageLoaded:  r.ImageLoaded,
		Control: Control{
			Label:  strings.TrimSpace(r.Label),
			TestID: r.TestID,
		},
	}
	if item.Name == "" {
		return item, errs.Mismatch(locator.ItemName, fmt.Sprintf("item %d has no name", i), "non-empty name", "")
	}
	price, err := ParsePrice(item.PriceText)
	if err != nil {
		return item, errs.Mismatch(locator.ItemPrice, fmt.Sprintf("price of %q breaks the price contract", item.Name), `$<digits>.<2 digits>`, item.PriceText)
	}
	item.Price = price
	state, err := StateFromTestID(item.Control.TestID)
	if err != nil {
		return item, fmt.Errorf("control of %q: %w", item.Name, err)
	}
	item.State = state
	return item, nil
}

func toItems(rows []rawRow) ([]CatalogItem, error) {
	items := make([]CatalogItem, 0, len(rows))
	for i, r := range rows {
		item, err := toItem(i, r)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// readBadge reads the cart badge without waiting.
func readBadge(ctx context.Context, s *session.Session) (Badge, error) {
	els, err := s.Query(ctx, locator.CartBadge)
	if err != nil {
		return Badge{}, err
	}
	if len(els) == 0 {
		return Badge{}, nil
	}
	text := els[0].TrimmedText()
	n, err := strconv.Atoi(text)
	if err != nil || n < 1 {
		return Badge{Present: true, Text: text}, errs.Mismatch(locator.CartBadge, "badge is not a positive count", "integer >= 1", text)
	}
	return Badge{Present: true, Count: n, Text: text}, nil
}

func expectBadgeCount(ctx context.Context, s *session.Session, n int) error {
	if n < 1 {
		return errs.New(errs.InvalidArgument, fmt.Sprintf("badge count %d: use ExpectBadgeAbsent for an empty cart", n))
	}
	return s.ExpectExactText(ctx, locator.CartBadge, strconv.Itoa(n))
}
