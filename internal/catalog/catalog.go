// Package catalog builds an immutable snapshot of the per-simulation
// metadata table and answers equality filters and run counts over it.
// The snapshot is constructed once and passed by reference; there is no
// ambient global table.
package catalog

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"coremirror/internal/selection"
)

// FloatFields are the metadata attributes coerced to floats on build, with
// the empty string and "NAN" both mapping to NaN.
var FloatFields = []string{
	"id_mass",
	"id_rest_mass",
	"id_mass_ratio",
	"id_ADM_mass",
	"id_ADM_angularmomentum",
	"id_gw_frequency_Hz",
	"id_gw_frequency_Momega22",
	"id_kappa2T",
	"id_Lambda",
	"id_eccentricity",
	"id_mass_starA",
	"id_rest_mass_starA",
	"id_mass_starB",
	"id_rest_mass_starB",
}

// AttrSource supplies the raw simulation-level attributes, typically a
// coredb archive.
type AttrSource interface {
	SimAttrs(sim string) (map[string]string, error)
}

// Row is one simulation's metadata: the raw attributes plus the coerced
// float view of the numeric fields.
type Row struct {
	Key    string
	Attrs  map[string]string
	Floats map[string]float64
}

// Runs returns the run identifiers listed in the row's available_runs
// attribute, or nil when absent.
func (r Row) Runs() []string {
	raw := r.Attrs["available_runs"]
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ", ")
}

// Table is an immutable metadata snapshot. Filters return new tables
// sharing the underlying rows.
type Table struct {
	keys []string
	rows map[string]Row
}

// Build reads the attributes of every key from src and coerces the float
// fields. A float field that is neither empty, "NAN", nor a numeral fails
// the build.
func Build(src AttrSource, keys []string) (*Table, error) {
	t := &Table{
		keys: make([]string, 0, len(keys)),
		rows: make(map[string]Row, len(keys)),
	}
	for _, key := range keys {
		attrs, err := src.SimAttrs(key)
		if err != nil {
			return nil, fmt.Errorf("catalog: %s: %w", key, err)
		}
		row := Row{Key: key, Attrs: attrs, Floats: make(map[string]float64, len(FloatFields))}
		for _, field := range FloatFields {
			v, err := selection.ParseEccentricity(attrs[field])
			if err != nil {
				return nil, fmt.Errorf("catalog: %s: field %s: %w", key, field, err)
			}
			row.Floats[field] = v
		}
		t.keys = append(t.keys, key)
		t.rows[key] = row
	}
	sort.Strings(t.keys)
	return t, nil
}

// Len returns the number of simulations in the snapshot.
func (t *Table) Len() int { return len(t.keys) }

// Keys returns the simulation keys in sorted order.
func (t *Table) Keys() []string {
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// Row returns one simulation's metadata.
func (t *Table) Row(key string) (Row, bool) {
	r, ok := t.rows[key]
	return r, ok
}

// FilterBy returns the sub-table whose rows carry attribute name equal to
// value (raw string equality, as in the source table).
func (t *Table) FilterBy(name, value string) *Table {
	return t.FilterMultiple([][2]string{{name, value}})
}

// FilterMultiple applies a conjunction of attribute equality filters.
func (t *Table) FilterMultiple(filters [][2]string) *Table {
	out := &Table{rows: make(map[string]Row)}
	for _, key := range t.keys {
		row := t.rows[key]
		match := true
		for _, f := range filters {
			if row.Attrs[f[0]] != f[1] {
				match = false
				break
			}
		}
		if match {
			out.keys = append(out.keys, key)
			out.rows[key] = row
		}
	}
	return out
}

// CountRuns totals the available runs across the snapshot. Simulations
// without an available_runs attribute contribute nothing.
func (t *Table) CountRuns() int {
	total := 0
	for _, key := range t.keys {
		total += len(t.rows[key].Runs())
	}
	return total
}

// EOS returns the sorted set of equations of state present in the snapshot.
func (t *Table) EOS() []string {
	seen := make(map[string]bool)
	for _, key := range t.keys {
		if eos := t.rows[key].Attrs["id_eos"]; eos != "" {
			seen[eos] = true
		}
	}
	out := make([]string, 0, len(seen))
	for eos := range seen {
		out = append(out, eos)
	}
	sort.Strings(out)
	return out
}

// Float returns a coerced float field of one simulation; NaN when the
// simulation or field is unknown.
func (t *Table) Float(key, field string) float64 {
	row, ok := t.rows[key]
	if !ok {
		return math.NaN()
	}
	v, ok := row.Floats[field]
	if !ok {
		return math.NaN()
	}
	return v
}
