package validation

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Strategy selects how a cell value is compared against list members.
type Strategy string

const (
	StrategyExact           Strategy = "exact"
	StrategyCaseInsensitive Strategy = "case_insensitive"
	StrategyFuzzy           Strategy = "fuzzy"
)

// ParseStrategy converts a config/flag string into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exact", "":
		return StrategyExact, nil
	case "case_insensitive", "case-insensitive", "ci":
		return StrategyCaseInsensitive, nil
	case "fuzzy":
		return StrategyFuzzy, nil
	default:
		return "", fmt.Errorf("unknown match strategy %q", s)
	}
}

// Similarity returns a normalized string similarity in [0,1]: 1 for equal
// strings, 0 for strings sharing nothing. Levenshtein distance over runes,
// divided by the longer length.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la := len([]rune(a))
	lb := len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
