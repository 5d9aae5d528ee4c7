// Package selection picks the preferred run and extraction channel for a
// simulation: the run with the lowest orbital eccentricity and the channel
// extracted at the largest radius.
package selection

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// InfiniteRadius is the sentinel for channels extracted at infinite radius.
// It is the largest value representable in the fixed 5-digit radius field,
// so infinite-radius channels sort highest in any numeric comparison.
const InfiniteRadius = 99999

// infiniteMarker flags an infinite-radius channel name, e.g. "Rh_l2_m2_rInf.txt".
const infiniteMarker = "Inf"

// radiusWidth is the fixed width of the zero-padded radius field embedded in
// a channel name, located just before the 4-character extension.
const radiusWidth = 5

// ParseError reports a malformed eccentricity value or channel name.
type ParseError struct {
	Value  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("selection: cannot parse %q: %s", e.Value, e.Reason)
}

// ParseEccentricity converts a raw eccentricity attribute to a float.
// The empty string means the value was never measured and maps to NaN;
// the literal "NAN" (any case) parses to NaN as well. Anything else must
// be a decimal numeral or the call fails with a *ParseError.
func ParseEccentricity(s string) (float64, error) {
	if s == "" {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &ParseError{Value: s, Reason: "not a numeral"}
	}
	return v, nil
}

// BestRun picks the run with the lowest eccentricity from a map of run key
// to raw eccentricity attribute. The reference run is the first key in
// natural order (conventionally "R01"). A NaN reference is returned
// immediately as an acceptable fallback. Otherwise the remaining runs are
// scanned in key order: a strictly lower value replaces the incumbent, and
// the first NaN encountered wins outright and stops the scan.
//
// The NaN short-circuit means a NaN run displaces a numeric improvement
// found earlier in the scan. That mirrors the behavior of the reference
// tooling and is kept intentionally; see the package tests.
func BestRun(runs map[string]string) (string, float64, error) {
	if len(runs) == 0 {
		return "", 0, fmt.Errorf("selection: no runs to choose from")
	}

	keys := make([]string, 0, len(runs))
	for k := range runs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	best := keys[0]
	ecc, err := ParseEccentricity(runs[best])
	if err != nil {
		return "", 0, fmt.Errorf("selection: run %s: %w", best, err)
	}
	if math.IsNaN(ecc) {
		return best, ecc, nil
	}

	for _, k := range keys[1:] {
		e, err := ParseEccentricity(runs[k])
		if err != nil {
			return "", 0, fmt.Errorf("selection: run %s: %w", k, err)
		}
		switch {
		case e < ecc:
			best, ecc = k, e
		case math.IsNaN(e):
			return k, e, nil
		}
	}

	return best, ecc, nil
}

// Radius extracts the integer extraction radius embedded in a channel name.
// Names carrying the infinite marker report InfiniteRadius; all others must
// end in a fixed-width zero-padded radius followed by a 4-character
// extension (e.g. "Rh_l2_m2_r00400.txt" -> 400).
func Radius(name string) (int, error) {
	if strings.Contains(name, infiniteMarker) {
		return InfiniteRadius, nil
	}
	const tail = radiusWidth + 4
	if len(name) < tail {
		return 0, &ParseError{Value: name, Reason: "too short for a radius field"}
	}
	field := name[len(name)-tail : len(name)-4]
	r, err := strconv.Atoi(field)
	if err != nil {
		return 0, &ParseError{Value: name, Reason: "radius field is not numeric"}
	}
	return r, nil
}

// HighestExtraction picks the channel with the largest extraction radius.
// Radii are parsed and compared numerically rather than relying on the
// names' zero-padded lexicographic order; ties fall to the
// lexicographically larger name, which keeps the outcome identical to a
// plain string max over well-formed names.
func HighestExtraction(channels []string) (string, int, error) {
	if len(channels) == 0 {
		return "", 0, fmt.Errorf("selection: no channels to choose from")
	}

	bestName, bestRadius := "", -1
	for _, name := range channels {
		r, err := Radius(name)
		if err != nil {
			return "", 0, err
		}
		if r > bestRadius || (r == bestRadius && name > bestName) {
			bestName, bestRadius = name, r
		}
	}

	return bestName, bestRadius, nil
}
