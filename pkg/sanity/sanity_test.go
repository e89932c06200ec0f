package sanity

import (
	"testing"

	"github.com/ritzau/crystal-bonds/pkg/bondgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func graphWith(t *testing.T, n int, edges ...[2]int) *bondgraph.Graph {
	t.Helper()
	g := bondgraph.New(n)
	for _, e := range edges {
		_, err := g.MakeBond(e[0], e[1], nil, nil, bondgraph.Single)
		require.NoError(t, err)
	}
	return g
}

func TestTwoBondedAtomsPass(t *testing.T) {
	g := graphWith(t, 2, [2]int{0, 1})

	assert.True(t, Check(g, []string{"C", "O"}, "co"))
	assert.Empty(t, Violations(g, []string{"C", "O"}))
}

func TestLoneAtomFails(t *testing.T) {
	g := graphWith(t, 3, [2]int{0, 1})
	species := []string{"O", "H", "H"}

	assert.False(t, Check(g, species, "water"))
	assert.Equal(t, []Violation{{Kind: Unbonded, Atom: 2, Species: "H", Degree: 0}}, Violations(g, species))
}

func TestHydrogenValence(t *testing.T) {
	g := graphWith(t, 3, [2]int{0, 1}, [2]int{0, 2})
	species := []string{"H", "O", "O"}

	assert.False(t, Check(g, species, "h"))
	vs := Violations(g, species)
	require.Len(t, vs, 1)
	assert.Equal(t, HydrogenValence, vs[0].Kind)
	assert.Equal(t, 2, vs[0].Degree)
}

func TestCarbonValence(t *testing.T) {
	species := []string{"C", "H", "H", "H", "H", "H"}
	g := graphWith(t, 6, [2]int{0, 1}, [2]int{0, 2}, [2]int{0, 3}, [2]int{0, 4})
	assert.True(t, Check(g, species, "methane"))

	_, err := g.MakeBond(0, 5, nil, nil, bondgraph.Single)
	require.NoError(t, err)
	assert.False(t, Check(g, species, "pentavalent"))
	vs := Violations(g, species)
	require.Len(t, vs, 1)
	assert.Equal(t, CarbonValence, vs[0].Kind)
	assert.Equal(t, 5, vs[0].Degree)
}

func TestCollectsAllViolations(t *testing.T) {
	g := graphWith(t, 4, [2]int{0, 1}, [2]int{0, 2})
	species := []string{"H", "O", "O", "N"}

	vs := Violations(g, species)
	require.Len(t, vs, 2)
	assert.Equal(t, HydrogenValence, vs[0].Kind)
	assert.Equal(t, Unbonded, vs[1].Kind)
	assert.Equal(t, "atom 3 (N) has no bonds", vs[1].String())
}

func TestCheckDoesNotModifyGraph(t *testing.T) {
	g := graphWith(t, 3, [2]int{0, 1})
	before := g.Edges()

	Check(g, []string{"C", "C", "C"}, "c3")
	assert.Equal(t, before, g.Edges())
}
