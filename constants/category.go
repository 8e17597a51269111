package constants

import (
	"strings"
)

type Category string

const (
	Vegetable Category = "Vegetable"
	Fruit     Category = "Fruit"
	Tuber     Category = "Tuber"
	Protein   Category = "Protein"
	Other     Category = "Other"
)

var allCategories = []Category{
	Vegetable,
	Fruit,
	Tuber,
	Protein,
	Other,
}

// Source tags the bulletin series every artifact comes from.
const Source = "PIMA-CENADA"

// AllCategory is the pseudo-category that disables category filtering.
const AllCategory = "All"

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// Canonicalize maps a free label (config files, RPC filters) onto the closed set.
func Canonicalize(input string) (Category, bool) {
	if input == "" {
		return Other, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	synonyms := map[string]Category{
		"verdura":   Vegetable,
		"vegetales": Vegetable,
		"hortaliza": Vegetable,
		"fruta":     Fruit,
		"frutas":    Fruit,
		"tuberculo": Tuber,
		"tubérculo": Tuber,
		"proteina":  Protein,
		"proteína":  Protein,
		"otro":      Other,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	for _, cat := range allCategories {
		if normalized == strings.ToLower(string(cat)) {
			return cat, true
		}
	}

	return Other, false
}
