// Package correction maintains the ordered string-replacement rule table
// and applies it to a dataset, single-pass or recursively to fixpoint.
package correction

import (
	"fmt"
	"strings"
)

// Category scopes a rule to one validated column category. General rules
// match cells in any column.
type Category string

const (
	CategoryGeneral   Category = "general"
	CategoryPlayer    Category = "player"
	CategoryChestType Category = "chest_type"
	CategorySource    Category = "source"
)

// ParseCategory converts a file/flag token into a Category.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "general", "":
		return CategoryGeneral, nil
	case "player":
		return CategoryPlayer, nil
	case "chest_type", "chest type", "chest":
		return CategoryChestType, nil
	case "source":
		return CategorySource, nil
	default:
		return "", fmt.Errorf("unknown rule category %q", s)
	}
}

// Rule is one ordered string-replacement rule. Order is the explicit rank:
// it decides which rule wins when several match the same cell, and the
// application order within a pass. Orders are kept dense and unique by the
// table.
type Rule struct {
	ID        string
	FromValue string
	ToValue   string
	Category  Category
	Enabled   bool
	Order     int
}

// AppliesTo reports whether the rule can match a cell belonging to category.
func (r *Rule) AppliesTo(category Category) bool {
	return r.Category == CategoryGeneral || r.Category == category
}
