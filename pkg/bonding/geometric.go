package bonding

import (
	"context"
	"runtime"
	"time"

	"github.com/ritzau/crystal-bonds/pkg/bondgraph"
	"github.com/ritzau/crystal-bonds/pkg/covalent"
	"github.com/ritzau/crystal-bonds/pkg/crystal"
	"github.com/ritzau/crystal-bonds/pkg/geometry"
	"github.com/ritzau/crystal-bonds/pkg/logging"
	"github.com/ritzau/crystal-bonds/pkg/metrics"
	"github.com/ritzau/crystal-bonds/pkg/rules"
	"github.com/ritzau/crystal-bonds/pkg/sanity"
	"github.com/ritzau/crystal-bonds/pkg/voronoi"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultCutoff is the neighborhood radius (Å) searched for Voronoi
// neighbors.
const DefaultCutoff = 6.0

// Neighborhood returns the atoms j != i with 0 < dm[i,j] < r, their
// distances, and a point cloud centered on atom i: positions[0] is the
// origin (atom i) and positions[k+1] is ids[k] at its minimum-image offset
// when periodic is set.
func Neighborhood(c *crystal.Crystal, i int, r float64, dm mat.Symmetric, periodic bool) (ids []int, positions []r3.Vec, distances []float64) {
	positions = []r3.Vec{{}}
	for j := 0; j < c.N(); j++ {
		if j == i {
			continue
		}
		d := dm.At(i, j)
		if d <= 0 || d >= r {
			continue
		}
		ids = append(ids, j)
		distances = append(distances, d)
		positions = append(positions, geometry.Displacement(c.Frac(), c.Box(), i, j, periodic))
	}
	return ids, positions, distances
}

// SharedVoronoiFaces returns the ids whose Voronoi cells share a facet with
// the origin point of a Neighborhood point cloud.
func SharedVoronoiFaces(tess voronoi.Tessellator, ids []int, positions []r3.Vec) []int {
	var out []int
	for _, k := range tess.CellNeighbors(positions, 0) {
		out = append(out, ids[k-1])
	}
	return out
}

// GeometryBonder bonds Voronoi neighbors whose distance lies within the
// covalent radius window of their species.
type GeometryBonder struct {
	Cutoff      float64
	Sigma       float64
	MinTol      float64
	Radii       covalent.Table
	Tessellator voronoi.Tessellator
	// Workers bounds the number of neighborhoods analyzed in parallel.
	// Zero means GOMAXPROCS.
	Workers int
}

// NewGeometryBonder creates a bonder with default parameters. A nil table
// selects the built-in reference radii at inference time.
func NewGeometryBonder(radii covalent.Table) *GeometryBonder {
	return &GeometryBonder{
		Cutoff:      DefaultCutoff,
		Sigma:       rules.DefaultSigma,
		MinTol:      rules.DefaultMinTol,
		Radii:       radii,
		Tessellator: voronoi.Clipper{},
	}
}

// BondedAtoms returns the Voronoi neighbors j of atom i with
// lo <= dm[i,j] <= hi, where [lo, hi] is the covalent window of the pair.
// The window is inclusive on both sides.
func (b *GeometryBonder) BondedAtoms(c *crystal.Crystal, i int, dm mat.Symmetric, periodic bool) ([]int, error) {
	ids, positions, _ := Neighborhood(c, i, b.Cutoff, dm, periodic)
	var out []int
	for _, j := range SharedVoronoiFaces(b.Tessellator, ids, positions) {
		lo, hi, err := b.Radii.PairWindow(c.SpeciesOf(i), c.SpeciesOf(j), b.Sigma, b.MinTol)
		if err != nil {
			return nil, err
		}
		if d := dm.At(i, j); lo <= d && d <= hi {
			out = append(out, j)
		}
	}
	return out, nil
}

// Infer bonds every atom to the atoms BondedAtoms accepts. Neighborhoods
// are analyzed in parallel; bonds are created serially afterwards. Because
// each atom is judged from its own neighborhood a pair may be found from
// one side only, or from both; either way it yields a single edge.
func (b *GeometryBonder) Infer(ctx context.Context, c *crystal.Crystal, periodic bool) (bool, error) {
	if err := requireEmpty(c); err != nil {
		return false, err
	}
	eff, err := b.withDefaults()
	if err != nil {
		return false, err
	}
	start := time.Now()
	log := logging.With("crystal", c.Name, "method", MethodVoronoi)
	log.Debug("inferring bonds", "atoms", c.N(), "cutoff", b.Cutoff, "periodic", periodic)

	dm := geometry.DistanceMatrix(c.Frac(), c.Box(), periodic)
	found := make([][]int, c.N())

	workers := b.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < c.N(); i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			js, err := eff.BondedAtoms(c, i, dm, periodic)
			if err != nil {
				return err
			}
			found[i] = js
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}

	created := 0
	for i, js := range found {
		for _, j := range js {
			added, err := c.MakeBond(i, j, bondgraph.Single)
			if err != nil {
				return false, err
			}
			if added {
				created++
			}
		}
	}

	elapsed := time.Since(start)
	metrics.BondsCreated.WithLabelValues(MethodVoronoi).Add(float64(created))
	metrics.InferenceDuration.WithLabelValues(MethodVoronoi).Observe(elapsed.Seconds())
	log.Info("bonds inferred", "bonds", created, "durationMs", elapsed.Milliseconds())

	return sanity.Check(c.Bonds(), c.Species(), c.Name), nil
}

// withDefaults returns a copy of b with a nil Radii or Tessellator replaced
// by the built-in table and the Clipper. b itself is never written, so one
// bonder may serve concurrent calls.
func (b *GeometryBonder) withDefaults() (*GeometryBonder, error) {
	eff := *b
	if eff.Radii == nil {
		ref, err := covalent.Reference()
		if err != nil {
			return nil, err
		}
		eff.Radii = ref
	}
	if eff.Tessellator == nil {
		eff.Tessellator = voronoi.Clipper{}
	}
	return &eff, nil
}
