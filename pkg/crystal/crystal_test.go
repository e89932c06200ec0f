package crystal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ritzau/crystal-bonds/pkg/bondgraph"
	"github.com/ritzau/crystal-bonds/pkg/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

const waterTOML = `
species = ["O", "H", "H"]
frac = [[0.5, 0.5, 0.5], [0.575, 0.55992, 0.5], [0.425, 0.55992, 0.5]]

[box]
vectors = [[10, 0, 0], [0, 10, 0], [0, 0, 10]]
periodic = [true, true, false]
`

func TestNewRejectsMismatch(t *testing.T) {
	box, err := geometry.NewOrthorhombicBox(1, 1, 1)
	require.NoError(t, err)

	_, err = New("bad", []string{"C"}, nil, box)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = New("bad", []string{"C"}, []r3.Vec{{}}, nil)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = New("bad", []string{""}, []r3.Vec{{}}, box)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestNewCopiesInput(t *testing.T) {
	box, err := geometry.NewOrthorhombicBox(1, 1, 1)
	require.NoError(t, err)
	species := []string{"C", "O"}
	frac := []r3.Vec{{}, {X: 0.5}}

	c, err := New("co", species, frac, box)
	require.NoError(t, err)
	species[0] = "N"
	frac[1].X = 0.9

	assert.Equal(t, "C", c.SpeciesOf(0))
	assert.Equal(t, 0.5, c.Frac()[1].X)
	assert.Equal(t, 2, c.N())
	assert.Equal(t, 2, c.Bonds().Len())
	assert.Zero(t, c.Bonds().NumBonds())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "water.toml")
	require.NoError(t, os.WriteFile(path, []byte(waterTOML), 0o644))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "water", c.Name)
	assert.Equal(t, []string{"O", "H", "H"}, c.Species())
	assert.Equal(t, [3]bool{true, true, false}, c.Box().Periodic)
	assert.InDelta(t, 0.96, c.Distance(0, 1, true), 1e-3)
	assert.InDelta(t, 1.5, c.Distance(1, 2, true), 1e-9)
}

func TestParseDefaultsToFullyPeriodic(t *testing.T) {
	doc := `
name = "pair"
species = ["X", "X"]
frac = [[0.05, 0, 0], [0.95, 0, 0]]
[box]
vectors = [[3, 0, 0], [0, 3, 0], [0, 0, 3]]
`
	c, err := Parse([]byte(doc), "unused")
	require.NoError(t, err)
	assert.Equal(t, "pair", c.Name)
	assert.Equal(t, [3]bool{true, true, true}, c.Box().Periodic)

	added, err := c.MakeBond(0, 1, bondgraph.Single)
	require.NoError(t, err)
	require.True(t, added)
	b, _ := c.Bonds().Bond(0, 1)
	assert.True(t, b.CrossBoundary)
	assert.InDelta(t, 0.3, b.Distance, 1e-9)

	c.RemoveAllBonds()
	assert.Zero(t, c.Bonds().NumBonds())
}

func TestParseRejectsSingularBox(t *testing.T) {
	_, err := Parse([]byte("species = [\"X\"]\nfrac = [[0, 0, 0]]\n"), "flat")
	assert.ErrorIs(t, err, geometry.ErrSingularBox)
}
