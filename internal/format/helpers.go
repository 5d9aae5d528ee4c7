package format

import (
	"fmt"
	"math"

	"coremirror/internal/selection"
)

// Eccentricity renders an eccentricity value, showing the undefined case
// explicitly instead of Go's default "NaN".
func Eccentricity(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%g", v)
}

// Radius renders an extraction radius, naming the infinite-radius sentinel.
func Radius(r int) string {
	if r == selection.InfiniteRadius {
		return "Inf"
	}
	return fmt.Sprintf("%d", r)
}

// Truncate shortens s to maxLen characters, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
