package storefront

import (
	_ "embed"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kuitang/storefront-e2e/internal/locator"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Product is one catalog entry.
type Product struct {
	ID          int    `yaml:"id"`
	Name        string `yaml:"name"`
	PriceCents  int64  `yaml:"price_cents"`
	Image       string `yaml:"image"`
	Description string `yaml:"description"`

	// Set at load time.
	Slug            string        `yaml:"-"`
	DescriptionHTML template.HTML `yaml:"-"`
}

// PriceText formats the price the way the storefront displays it.
func (p Product) PriceText() string {
	return fmt.Sprintf("$%d.%02d", p.PriceCents/100, p.PriceCents%100)
}

// ImagePath is the image URL for the product.
func (p Product) ImagePath() string {
	return "/static/img/" + p.Image + ".svg"
}

// Catalog is the fixed product list.
type Catalog struct {
	products []Product
	byID     map[int]Product
}

type catalogFile struct {
	Products []Product `yaml:"products"`
}

// LoadCatalog parses the embedded catalog.
func LoadCatalog() (*Catalog, error) {
	return ParseCatalog(catalogYAML)
}

// ParseCatalog parses a catalog document and validates it.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(f.Products) == 0 {
		return nil, fmt.Errorf("parse catalog: no products")
	}

	c := &Catalog{byID: make(map[int]Product, len(f.Products))}
	names := make(map[string]bool, len(f.Products))
	for _, p := range f.Products {
		p.Name = strings.TrimSpace(p.Name)
		switch {
		case p.Name == "":
			return nil, fmt.Errorf("parse catalog: product %d has no name", p.ID)
		case p.PriceCents < 0:
			return nil, fmt.Errorf("parse catalog: %q has a negative price", p.Name)
		case names[p.Name]:
			return nil, fmt.Errorf("parse catalog: duplicate name %q", p.Name)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("parse catalog: duplicate id %d", p.ID)
		}
		names[p.Name] = true
		p.Slug = locator.Slug(p.Name)
		p.DescriptionHTML = renderMarkdown(p.Description)
		c.products = append(c.products, p)
		c.byID[p.ID] = p
	}
	return c, nil
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	return len(c.products)
}

// ByID looks a product up by id.
func (c *Catalog) ByID(id int) (Product, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// Sorted returns the products in one of the four sort orders. Unknown
// orders fall back to name ascending.
func (c *Catalog) Sorted(order string) []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	var less func(a, b Product) bool
	switch order {
	case "za":
		less = func(a, b Product) bool { return a.Name > b.Name }
	case "lohi":
		less = func(a, b Product) bool {
			if a.PriceCents != b.PriceCents {
				return a.PriceCents < b.PriceCents
			}
			return a.Name < b.Name
		}
	case "hilo":
		less = func(a, b Product) bool {
			if a.PriceCents != b.PriceCents {
				return a.PriceCents > b.PriceCents
			}
			return a.Name < b.Name
		}
	default:
		less = func(a, b Product) bool { return a.Name < b.Name }
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// HasImage reports whether file is a catalog image.
func (c *Catalog) HasImage(file string) (Product, bool) {
	for _, p := range c.products {
		if p.Image+".svg" == file {
			return p, true
		}
	}
	return Product{}, false
}
