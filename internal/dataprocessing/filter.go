package dataprocessing

import (
	"sort"

	"demandplanner/pkg/contracts/domain"
)

// FilterSales keeps the sales records that fall inside f. A record whose sku
// is missing from the item master only matches when category and brand are
// both unconstrained. The all-wildcard filter returns sales unchanged.
func FilterSales(sales []domain.SalesRecord, items []domain.ItemRecord, f domain.SegmentFilter) []domain.SalesRecord {
	if f.IsAll() {
		return sales
	}

	index := domain.ItemIndex(items)
	anyCategory := domain.IsWildcard(f.Category)
	anyBrand := domain.IsWildcard(f.Brand)
	anySKU := domain.IsWildcard(f.SKU)

	out := make([]domain.SalesRecord, 0, len(sales))
	for _, s := range sales {
		if !anySKU && s.SKU != f.SKU {
			continue
		}
		item, known := index[s.SKU]
		if !known {
			if anyCategory && anyBrand {
				out = append(out, s)
			}
			continue
		}
		if !anyCategory && item.Category != f.Category {
			continue
		}
		if !anyBrand && item.Brand != f.Brand {
			continue
		}
		out = append(out, s)
	}
	return out
}

// SegmentOptions lists the selectable values at each level of the cascade
type SegmentOptions struct {
	Categories []string `json:"categories"`
	Brands     []string `json:"brands"`
	SKUs       []string `json:"skus"`
}

// Options returns the sorted, distinct choices for each level. Brands are
// restricted to the selected category and skus to category and brand.
func Options(items []domain.ItemRecord, f domain.SegmentFilter) SegmentOptions {
	categories := map[string]struct{}{}
	brands := map[string]struct{}{}
	skus := map[string]struct{}{}

	for _, item := range items {
		if item.Category != "" {
			categories[item.Category] = struct{}{}
		}
		if !domain.IsWildcard(f.Category) && item.Category != f.Category {
			continue
		}
		if item.Brand != "" {
			brands[item.Brand] = struct{}{}
		}
		if !domain.IsWildcard(f.Brand) && item.Brand != f.Brand {
			continue
		}
		if item.SKU != "" {
			skus[item.SKU] = struct{}{}
		}
	}

	return SegmentOptions{
		Categories: sortedKeys(categories),
		Brands:     sortedKeys(brands),
		SKUs:       sortedKeys(skus),
	}
}

// Reconcile resets lower levels of f that are no longer reachable from the
// levels above them, so changing the category clears a stale brand and sku
func Reconcile(items []domain.ItemRecord, f domain.SegmentFilter) domain.SegmentFilter {
	f = f.Canonical()
	if f.Category == domain.Wildcard && f.Brand == domain.Wildcard {
		return f
	}

	opts := Options(items, domain.SegmentFilter{Category: f.Category, Brand: domain.Wildcard})
	if f.Brand != domain.Wildcard && !contains(opts.Brands, f.Brand) {
		f.Brand = domain.Wildcard
	}

	opts = Options(items, domain.SegmentFilter{Category: f.Category, Brand: f.Brand})
	if f.SKU != domain.Wildcard && !contains(opts.SKUs, f.SKU) {
		f.SKU = domain.Wildcard
	}
	return f
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func contains(list []string, v string) bool {
	i := sort.SearchStrings(list, v)
	return i < len(list) && list[i] == v
}
