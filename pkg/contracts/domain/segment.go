package domain

import "strings"

// Wildcard is the sentinel selecting every value of a segment level
const Wildcard = "all"

// SegmentFilter is a cascading category -> brand -> sku selection
type SegmentFilter struct {
	Category string `json:"category" validate:"omitempty,max=128"`
	Brand    string `json:"brand" validate:"omitempty,max=128"`
	SKU      string `json:"sku" validate:"omitempty,max=128"`
}

// AllSegments selects everything
func AllSegments() SegmentFilter {
	return SegmentFilter{Category: Wildcard, Brand: Wildcard, SKU: Wildcard}
}

// IsWildcard reports whether a level value selects everything
func IsWildcard(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, Wildcard)
}

// IsAll reports whether no level is constrained
func (f SegmentFilter) IsAll() bool {
	return IsWildcard(f.Category) && IsWildcard(f.Brand) && IsWildcard(f.SKU)
}

// Canonical rewrites empty or differently cased wildcards to Wildcard
func (f SegmentFilter) Canonical() SegmentFilter {
	canon := func(v string) string {
		if IsWildcard(v) {
			return Wildcard
		}
		return v
	}
	return SegmentFilter{Category: canon(f.Category), Brand: canon(f.Brand), SKU: canon(f.SKU)}
}
