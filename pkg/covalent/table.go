// Package covalent holds per-species covalent radii and the bonding windows
// derived from them.
package covalent

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// ErrUnknownSpecies is returned when a species has no entry in a table.
var ErrUnknownSpecies = errors.New("species not in covalent radius table")

//go:embed cordero.toml
var referenceData []byte

// Radius is the covalent radius of one species.
type Radius struct {
	Radius float64 `toml:"radius"` // Å
	ESD    float64 `toml:"esd"`    // pm
}

// Table maps species symbols to covalent radii. It is read-only once built.
type Table map[string]Radius

type tableFile struct {
	Radii map[string]Radius `toml:"radii"`
}

var (
	referenceOnce  sync.Once
	referenceTable Table
	referenceErr   error
)

// Reference returns the built-in table (Cordero et al. 2008).
func Reference() (Table, error) {
	referenceOnce.Do(func() {
		referenceTable, referenceErr = Parse(referenceData)
	})
	return referenceTable, referenceErr
}

// Parse decodes a TOML document with a [radii] table of
// `Symbol = { radius = Å, esd = pm }` entries.
func Parse(data []byte) (Table, error) {
	var f tableFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing radius table: %w", err)
	}
	if len(f.Radii) == 0 {
		return nil, fmt.Errorf("radius table has no [radii] entries")
	}
	for sp, r := range f.Radii {
		if r.Radius <= 0 || r.ESD < 0 {
			return nil, fmt.Errorf("species %s: radius %.3f esd %.1f out of range", sp, r.Radius, r.ESD)
		}
	}
	return Table(f.Radii), nil
}

// Load reads a radius table from a TOML file.
func Load(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Lookup returns the radius entry for a species.
func (t Table) Lookup(species string) (Radius, error) {
	r, ok := t[species]
	if !ok {
		return Radius{}, fmt.Errorf("%q: %w", species, ErrUnknownSpecies)
	}
	return r, nil
}

// Species returns the table's species sorted by symbol.
func (t Table) Species() []string {
	out := make([]string, 0, len(t))
	for sp := range t {
		out = append(out, sp)
	}
	sort.Strings(out)
	return out
}

// Window returns the accepted bond length range for a pair of species:
// the sum of radii plus or minus max(minTol, sigma*(esd_a+esd_b)/100).
func Window(a, b Radius, sigma, minTol float64) (lo, hi float64) {
	sum := a.Radius + b.Radius
	margin := math.Max(minTol, sigma*(a.ESD+b.ESD)/100)
	return sum - margin, sum + margin
}

// PairWindow is Window for two species looked up in t.
func (t Table) PairWindow(a, b string, sigma, minTol float64) (lo, hi float64, err error) {
	ra, err := t.Lookup(a)
	if err != nil {
		return 0, 0, err
	}
	rb, err := t.Lookup(b)
	if err != nil {
		return 0, 0, err
	}
	lo, hi = Window(ra, rb, sigma, minTol)
	return lo, hi, nil
}
