// Package crystal holds the atoms of a periodic structure and owns its bond
// graph.
package crystal

import (
	"errors"
	"fmt"

	"github.com/ritzau/crystal-bonds/pkg/bondgraph"
	"github.com/ritzau/crystal-bonds/pkg/geometry"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrInvalid is returned when a crystal description is inconsistent.
var ErrInvalid = errors.New("invalid crystal")

// Crystal is a set of atoms in a periodic box. Atom count and coordinates
// are fixed after construction; only the bond graph changes.
type Crystal struct {
	Name    string
	species []string
	frac    []r3.Vec
	box     *geometry.Box
	bonds   *bondgraph.Graph
}

// New creates a crystal with an empty bond graph. The slices are copied.
func New(name string, species []string, frac []r3.Vec, box *geometry.Box) (*Crystal, error) {
	if len(species) != len(frac) {
		return nil, fmt.Errorf("%s: %d species for %d positions: %w", name, len(species), len(frac), ErrInvalid)
	}
	if box == nil {
		return nil, fmt.Errorf("%s: no box: %w", name, ErrInvalid)
	}
	for i, sp := range species {
		if sp == "" {
			return nil, fmt.Errorf("%s: atom %d has no species: %w", name, i, ErrInvalid)
		}
	}
	return &Crystal{
		Name:    name,
		species: append([]string(nil), species...),
		frac:    append([]r3.Vec(nil), frac...),
		box:     box,
		bonds:   bondgraph.New(len(species)),
	}, nil
}

// N returns the number of atoms.
func (c *Crystal) N() int { return len(c.species) }

// SpeciesOf returns the species of atom i.
func (c *Crystal) SpeciesOf(i int) string { return c.species[i] }

// Species returns a copy of all species labels.
func (c *Crystal) Species() []string { return append([]string(nil), c.species...) }

// Frac returns the fractional coordinates. Callers must not modify them.
func (c *Crystal) Frac() []r3.Vec { return c.frac }

// Box returns the periodic box.
func (c *Crystal) Box() *geometry.Box { return c.box }

// Bonds returns the crystal's bond graph.
func (c *Crystal) Bonds() *bondgraph.Graph { return c.bonds }

// MakeBond bonds atoms i and j with full distance metadata.
func (c *Crystal) MakeBond(i, j int, typ bondgraph.BondType) (bool, error) {
	return c.bonds.MakeBond(i, j, c.frac, c.box, typ)
}

// RemoveAllBonds clears the bond graph.
func (c *Crystal) RemoveAllBonds() {
	c.bonds.RemoveAllBonds()
}

// Distance returns the distance between atoms i and j.
func (c *Crystal) Distance(i, j int, periodic bool) float64 {
	return geometry.MinimumImageDistance(c.frac, c.box, i, j, periodic)
}
