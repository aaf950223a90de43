package engine

import (
	"strconv"
	"strings"
)

// DefaultShape is substituted when a shape string cannot be parsed or has
// fewer than 2 dimensions. A defined fallback, not an error.
var DefaultShape = []int{1, 1, 32, 32}

// ParseShape parses a comma-separated shape string ("1,1,32,32") into a
// sequence of positive ints. Malformed input falls back to DefaultShape.
func ParseShape(s string) []int {
	dims, ok := parseShapeStrict(s)
	if !ok {
		return append([]int(nil), DefaultShape...)
	}
	return dims
}

func parseShapeStrict(s string) ([]int, bool) {
	parts := strings.Split(s, ",")
	dims := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n <= 0 {
			return nil, false
		}
		dims = append(dims, n)
	}
	if len(dims) < 2 {
		return nil, false
	}
	return dims, true
}
