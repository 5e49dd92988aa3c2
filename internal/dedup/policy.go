package dedup

import (
	"fmt"

	"github.com/andygrunwald/fuel-price-scraper/internal/models"
)

// CapScope selects which accepted records of the current run count against a cap.
type CapScope string

const (
	// CapScopeCategory counts every record accepted in the run for the
	// category, whatever its observed date.
	CapScopeCategory CapScope = "category"
	// CapScopeCategoryDate counts only records accepted in the run for the
	// same category and observed date.
	CapScopeCategoryDate CapScope = "category-date"
)

// ParseCapScope parses a cap scope name.
func ParseCapScope(s string) (CapScope, error) {
	switch CapScope(s) {
	case CapScopeCategory, CapScopeCategoryDate:
		return CapScope(s), nil
	case "":
		return CapScopeCategory, nil
	default:
		return "", fmt.Errorf("unknown cap scope %q", s)
	}
}

// Bounds is an inclusive price range. A zero Max means no upper bound.
type Bounds struct {
	Min float64
	Max float64
}

// Contains reports whether price lies within the bounds.
func (b Bounds) Contains(price float64) bool {
	if price < b.Min {
		return false
	}
	return b.Max <= 0 || price <= b.Max
}

// Policy holds the per-category acceptance rules.
type Policy struct {
	// Bounds holds explicit price bounds per category.
	Bounds map[models.FuelCategory]Bounds
	// Fallback applies to categories without explicit bounds.
	Fallback Bounds
	// Caps limits accepted records per category. Categories without a cap are unlimited.
	Caps     map[models.FuelCategory]int
	CapScope CapScope
}

// BoundsFor returns the bounds that apply to category.
func (p Policy) BoundsFor(category models.FuelCategory) Bounds {
	if b, ok := p.Bounds[category]; ok {
		return b
	}
	return p.Fallback
}
