package bondgraph

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/ritzau/crystal-bonds/pkg/geometry"
	"github.com/ritzau/crystal-bonds/pkg/logging"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrAtomRange is returned when a bond names an atom outside the graph.
	ErrAtomRange = errors.New("atom index out of range")
	// ErrSelfBond is returned when both ends of a bond are the same atom.
	ErrSelfBond = errors.New("atom cannot bond to itself")
)

// crossTolerance is how far (in Å) the periodic and raw distances may differ
// before a bond counts as crossing the cell boundary.
const crossTolerance = 1e-8

// BondType is the categorical label attached to a bond.
type BondType string

const (
	Single   BondType = "single"
	Double   BondType = "double"
	Triple   BondType = "triple"
	Aromatic BondType = "aromatic"
)

// Bond is the metadata stored for one edge.
// Distance and CrossBoundary are only meaningful when Known is true; bonds
// created without a box (e.g. imported from a bond list) leave them unknown.
type Bond struct {
	I             int      `json:"i"`
	J             int      `json:"j"`
	Type          BondType `json:"type"`
	Distance      float64  `json:"distance"`
	CrossBoundary bool     `json:"cross_boundary"`
	Known         bool     `json:"known"`
}

type pair struct{ lo, hi int }

func key(i, j int) pair {
	if j < i {
		i, j = j, i
	}
	return pair{i, j}
}

// Graph is the undirected bond graph of a crystal. The vertex set is fixed
// at construction: one vertex per atom, 0..n-1.
type Graph struct {
	graph *simple.UndirectedGraph
	bonds map[pair]*Bond
	n     int
}

// New creates an empty bond graph over n atoms.
func New(n int) *Graph {
	g := &Graph{
		graph: simple.NewUndirectedGraph(),
		bonds: make(map[pair]*Bond),
		n:     n,
	}
	for i := 0; i < n; i++ {
		g.graph.AddNode(simple.Node(i))
	}
	return g
}

// Len returns the number of atoms (vertices).
func (g *Graph) Len() int {
	return g.n
}

// NumBonds returns the number of edges.
func (g *Graph) NumBonds() int {
	return len(g.bonds)
}

// MakeBond is the only way edges enter the graph.
// When box is non-nil the bond distance is the periodic minimum-image
// distance and CrossBoundary records whether it differs from the raw
// same-image distance. A bond that already exists is left untouched (first
// write wins) and MakeBond reports false.
func (g *Graph) MakeBond(i, j int, frac []r3.Vec, box *geometry.Box, typ BondType) (bool, error) {
	if i < 0 || i >= g.n || j < 0 || j >= g.n {
		return false, fmt.Errorf("bond %d-%d in graph of %d atoms: %w", i, j, g.n, ErrAtomRange)
	}
	if i == j {
		return false, fmt.Errorf("bond %d-%d: %w", i, j, ErrSelfBond)
	}
	k := key(i, j)
	if _, exists := g.bonds[k]; exists {
		return false, nil
	}
	if typ == "" {
		typ = Single
	}

	b := &Bond{I: k.lo, J: k.hi, Type: typ}
	if box != nil && frac != nil {
		periodic := geometry.MinimumImageDistance(frac, box, i, j, true)
		raw := geometry.MinimumImageDistance(frac, box, i, j, false)
		b.Distance = periodic
		b.CrossBoundary = math.Abs(periodic-raw) > crossTolerance
		b.Known = true
	}

	g.graph.SetEdge(g.graph.NewEdge(simple.Node(k.lo), simple.Node(k.hi)))
	g.bonds[k] = b

	logging.Trace("bond created", "i", b.I, "j", b.J, "type", string(b.Type),
		"distance", b.Distance, "crossBoundary", b.CrossBoundary)
	return true, nil
}

// RemoveAllBonds deletes every edge, keeping all vertices.
func (g *Graph) RemoveAllBonds() {
	// Snapshot the keys first; removing while iterating the gonum edge
	// iterator is not allowed.
	keys := make([]pair, 0, len(g.bonds))
	for k := range g.bonds {
		keys = append(keys, k)
	}
	for _, k := range keys {
		g.graph.RemoveEdge(int64(k.lo), int64(k.hi))
		delete(g.bonds, k)
	}
}

// HasBond reports whether atoms i and j are bonded.
func (g *Graph) HasBond(i, j int) bool {
	_, ok := g.bonds[key(i, j)]
	return ok
}

// Bond returns the metadata of the i-j bond.
func (g *Graph) Bond(i, j int) (Bond, bool) {
	b, ok := g.bonds[key(i, j)]
	if !ok {
		return Bond{}, false
	}
	return *b, true
}

// Degree returns the number of bonds of atom i.
func (g *Graph) Degree(i int) int {
	if i < 0 || i >= g.n {
		return 0
	}
	return g.graph.From(int64(i)).Len()
}

// Neighbors returns the atoms bonded to i in ascending order.
func (g *Graph) Neighbors(i int) []int {
	if i < 0 || i >= g.n {
		return nil
	}
	var out []int
	it := g.graph.From(int64(i))
	for it.Next() {
		out = append(out, int(it.Node().ID()))
	}
	sort.Ints(out)
	return out
}

// Edges returns all bonds ordered by (I, J).
func (g *Graph) Edges() []Bond {
	out := make([]Bond, 0, len(g.bonds))
	for _, b := range g.bonds {
		out = append(out, *b)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].I != out[b].I {
			return out[a].I < out[b].I
		}
		return out[a].J < out[b].J
	})
	return out
}

// Fragments returns the connected components of the bond graph, each sorted,
// ordered by their smallest atom.
func (g *Graph) Fragments() [][]int {
	comps := topo.ConnectedComponents(g.graph)
	out := make([][]int, 0, len(comps))
	for _, c := range comps {
		ids := make([]int, 0, len(c))
		for _, n := range c {
			ids = append(ids, int(n.ID()))
		}
		sort.Ints(ids)
		out = append(out, ids)
	}
	sort.Slice(out, func(a, b int) bool { return out[a][0] < out[b][0] })
	return out
}

// Rings returns a cycle basis of the bond graph, one sorted atom list per
// ring, ordered by size and then by smallest atom. The basis has
// NumBonds - Len + len(Fragments) rings but is not necessarily the set of
// smallest rings. In a periodic crystal a bond path that closes through
// the cell boundary also counts as a ring.
func (g *Graph) Rings() [][]int {
	cycles := topo.UndirectedCyclesIn(g.graph)
	out := make([][]int, 0, len(cycles))
	for _, c := range cycles {
		if len(c) > 1 && c[0].ID() == c[len(c)-1].ID() {
			c = c[:len(c)-1]
		}
		ids := make([]int, 0, len(c))
		for _, n := range c {
			ids = append(ids, int(n.ID()))
		}
		sort.Ints(ids)
		out = append(out, ids)
	}
	sort.Slice(out, func(a, b int) bool {
		if len(out[a]) != len(out[b]) {
			return len(out[a]) < len(out[b])
		}
		return out[a][0] < out[b][0]
	})
	return out
}

// Shells groups the atoms within maxHops bonds of atom i by bond-path
// distance: shells[0] is {i}, shells[k] the atoms exactly k bonds away.
// It returns nil when i is out of range.
func (g *Graph) Shells(i, maxHops int) [][]int {
	if i < 0 || i >= g.n {
		return nil
	}
	var shells [][]int
	var bf traverse.BreadthFirst
	bf.Walk(g.graph, simple.Node(i), func(n graph.Node, d int) bool {
		if d > maxHops {
			return true
		}
		for len(shells) <= d {
			shells = append(shells, nil)
		}
		shells[d] = append(shells[d], int(n.ID()))
		return false
	})
	for _, s := range shells {
		sort.Ints(s)
	}
	return shells
}
