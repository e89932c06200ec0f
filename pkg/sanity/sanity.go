// Package sanity checks a finished bond graph for chemically implausible
// atoms.
package sanity

import (
	"fmt"

	"github.com/ritzau/crystal-bonds/pkg/bondgraph"
	"github.com/ritzau/crystal-bonds/pkg/logging"
	"github.com/ritzau/crystal-bonds/pkg/metrics"
)

// Kind names a class of violation.
type Kind string

const (
	Unbonded        Kind = "unbonded"
	HydrogenValence Kind = "hydrogen_valence"
	CarbonValence   Kind = "carbon_valence"
)

// Valence caps.
const (
	maxHydrogenBonds = 1
	maxCarbonBonds   = 4
)

// Violation is one atom that failed a check.
type Violation struct {
	Kind    Kind   `json:"kind"`
	Atom    int    `json:"atom"`
	Species string `json:"species"`
	Degree  int    `json:"degree"`
}

func (v Violation) String() string {
	switch v.Kind {
	case Unbonded:
		return fmt.Sprintf("atom %d (%s) has no bonds", v.Atom, v.Species)
	case HydrogenValence:
		return fmt.Sprintf("hydrogen atom %d has %d bonds (max %d)", v.Atom, v.Degree, maxHydrogenBonds)
	default:
		return fmt.Sprintf("carbon atom %d has %d bonds (max %d)", v.Atom, v.Degree, maxCarbonBonds)
	}
}

// Violations returns every violation in atom order. species[i] is the
// species of vertex i.
func Violations(g *bondgraph.Graph, species []string) []Violation {
	var out []Violation
	for i := 0; i < g.Len(); i++ {
		d := g.Degree(i)
		sp := species[i]
		switch {
		case d == 0:
			out = append(out, Violation{Kind: Unbonded, Atom: i, Species: sp, Degree: d})
		case sp == "H" && d > maxHydrogenBonds:
			out = append(out, Violation{Kind: HydrogenValence, Atom: i, Species: sp, Degree: d})
		case sp == "C" && d > maxCarbonBonds:
			out = append(out, Violation{Kind: CarbonValence, Atom: i, Species: sp, Degree: d})
		}
	}
	return out
}

// Check reports every violation as a warning naming the crystal and returns
// true only if there were none. The graph is not modified.
func Check(g *bondgraph.Graph, species []string, crystalName string) bool {
	vs := Violations(g, species)
	log := logging.With("crystal", crystalName)
	for _, v := range vs {
		log.Warn(v.String(), "kind", string(v.Kind), "atom", v.Atom, "species", v.Species, "degree", v.Degree)
		metrics.SanityViolations.WithLabelValues(string(v.Kind)).Inc()
	}
	return len(vs) == 0
}
