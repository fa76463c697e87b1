package constants

import (
	"strings"
)

// Category is the canonical transaction category label.
type Category string

const (
	Groceries      Category = "Groceries"
	Dining         Category = "Dining"
	Transportation Category = "Transportation"
	Entertainment  Category = "Entertainment"
	Shopping       Category = "Shopping"
	Utilities      Category = "Utilities"
	Healthcare     Category = "Healthcare"
	Other          Category = "Other"
)

// allCategories is the declared matching order; the categorizer walks it
// front to back, so the order is part of the contract.
var allCategories = []Category{
	Groceries,
	Dining,
	Transportation,
	Entertainment,
	Shopping,
	Utilities,
	Healthcare,
	Other,
}

// AllCategories returns the categories in declared order.
func AllCategories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// Canonicalize maps a free-form label onto the category enum.
// Unknown labels resolve to Other with ok=false.
func Canonicalize(input string) (Category, bool) {
	if input == "" {
		return Other, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))
	for _, cat := range allCategories {
		if normalized == strings.ToLower(string(cat)) {
			return cat, true
		}
	}
	return Other, false
}
