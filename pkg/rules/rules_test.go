package rules

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/ritzau/crystal-bonds/pkg/covalent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternMatch(t *testing.T) {
	tests := []struct {
		name   string
		rule   Rule
		si, sj string
		want   bool
	}{
		{"all wildcard", Rule{SpeciesI: "*", SpeciesJ: "*"}, "C", "O", true},
		{"one wildcard left", Rule{SpeciesI: "H", SpeciesJ: "*"}, "H", "O", true},
		{"one wildcard right atom", Rule{SpeciesI: "H", SpeciesJ: "*"}, "O", "H", true},
		{"one wildcard leading", Rule{SpeciesI: "*", SpeciesJ: "H"}, "O", "H", true},
		{"one wildcard miss", Rule{SpeciesI: "H", SpeciesJ: "*"}, "C", "O", false},
		{"exact", Rule{SpeciesI: "C", SpeciesJ: "O"}, "C", "O", true},
		{"exact reversed", Rule{SpeciesI: "C", SpeciesJ: "O"}, "O", "C", true},
		{"exact miss", Rule{SpeciesI: "C", SpeciesJ: "O"}, "C", "C", false},
		{"exact self", Rule{SpeciesI: "C", SpeciesJ: "C"}, "C", "C", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rule.Pattern().Match(tt.si, tt.sj))
		})
	}
}

func TestPatternKinds(t *testing.T) {
	assert.Equal(t, Pattern{Kind: AllWildcard}, Rule{SpeciesI: "*", SpeciesJ: "*"}.Pattern())
	assert.Equal(t, Pattern{Kind: OneWildcard, A: "H"}, Rule{SpeciesI: "*", SpeciesJ: "H"}.Pattern())
	assert.Equal(t, Pattern{Kind: Exact, A: "C", B: "N"}, Rule{SpeciesI: "C", SpeciesJ: "N"}.Pattern())
}

func TestFindFirstMatchWins(t *testing.T) {
	rs := RuleSet{
		{SpeciesI: "H", SpeciesJ: "*", MinDist: 0.4, MaxDist: 1.2},
		{SpeciesI: "*", SpeciesJ: "*", MinDist: 0.4, MaxDist: 1.9},
	}

	r, ok := rs.Find("O", "H")
	require.True(t, ok)
	assert.Equal(t, rs[0], r)
	assert.False(t, r.Accepts(1.5), "H rule rejects 1.5 and later rules are not consulted")

	r, ok = rs.Find("C", "O")
	require.True(t, ok)
	assert.Equal(t, rs[1], r)
	assert.True(t, r.Accepts(1.5))

	_, ok = RuleSet{{SpeciesI: "C", SpeciesJ: "C", MinDist: 1, MaxDist: 2}}.Find("C", "O")
	assert.False(t, ok)
}

func TestAcceptsIsStrict(t *testing.T) {
	r := Rule{SpeciesI: "*", SpeciesJ: "*", MinDist: 1, MaxDist: 2}
	assert.False(t, r.Accepts(1))
	assert.False(t, r.Accepts(2))
	assert.True(t, r.Accepts(1.5))
}

func TestNewValidates(t *testing.T) {
	_, err := New("C", "O", 1.0, 1.5)
	assert.NoError(t, err)

	_, err = New("C", "O", 1.5, 1.0)
	assert.ErrorIs(t, err, ErrInvalidRule)

	_, err = New("C", "O", -0.1, 1.0)
	assert.ErrorIs(t, err, ErrInvalidRule)

	_, err = New("", "O", 0.1, 1.0)
	assert.ErrorIs(t, err, ErrInvalidRule)
}

func TestAppendPrependDoNotMutate(t *testing.T) {
	base := RuleSet{{SpeciesI: "*", SpeciesJ: "*", MinDist: 0.4, MaxDist: 1.9}}
	h := Rule{SpeciesI: "H", SpeciesJ: "*", MinDist: 0.4, MaxDist: 1.2}

	pre := base.Prepend(h)
	post := base.Append(h)

	assert.Len(t, base, 1)
	assert.Equal(t, RuleSet{h, base[0]}, pre)
	assert.Equal(t, RuleSet{base[0], h}, post)
}

func TestBuildDefaultSingleSpecies(t *testing.T) {
	rs := BuildDefault(covalent.Table{"X": {Radius: 0.7, ESD: 1.0}}, 3, 0.25)

	require.Len(t, rs, 1)
	assert.Equal(t, "X", rs[0].SpeciesI)
	assert.Equal(t, "X", rs[0].SpeciesJ)
	assert.InDelta(t, 1.15, rs[0].MinDist, 1e-12)
	assert.InDelta(t, 1.65, rs[0].MaxDist, 1e-12)
}

func TestBuildDefaultDeterministic(t *testing.T) {
	tbl := covalent.Table{
		"O": {Radius: 0.66, ESD: 2},
		"C": {Radius: 0.76, ESD: 1},
		"H": {Radius: 0.31, ESD: 5},
	}

	rs := BuildDefault(tbl, DefaultSigma, DefaultMinTol)
	require.Len(t, rs, 6)
	var pairs []string
	for _, r := range rs {
		pairs = append(pairs, r.SpeciesI+r.SpeciesJ)
	}
	assert.Equal(t, []string{"CC", "CH", "CO", "HH", "HO", "OO"}, pairs)

	for i := 0; i < 5; i++ {
		assert.Equal(t, rs, BuildDefault(tbl, DefaultSigma, DefaultMinTol))
	}
	assert.NoError(t, rs.Validate())
}

func TestBuildDefaultClampsLowerBound(t *testing.T) {
	// Margin max(0.25, 3*(10+10)/100) = 0.6 exceeds the radius sum 0.2.
	tbl := covalent.Table{"X": {Radius: 0.1, ESD: 10}, "O": {Radius: 0.66, ESD: 2}}

	rs := BuildDefault(tbl, DefaultSigma, DefaultMinTol)
	x, ok := rs.Find("X", "X")
	require.True(t, ok)
	assert.Zero(t, x.MinDist)
	assert.InDelta(t, 0.8, x.MaxDist, 1e-12)
	require.NoError(t, rs.Validate())

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rs))
	got, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, rs, got)
}

func TestStoreSnapshots(t *testing.T) {
	all := Rule{SpeciesI: "*", SpeciesJ: "*", MinDist: 0.4, MaxDist: 1.9}
	h := Rule{SpeciesI: "H", SpeciesJ: "*", MinDist: 0.4, MaxDist: 1.2}
	s := NewStore(RuleSet{all})

	snap := s.Current()
	s.Prepend(h)

	assert.Equal(t, RuleSet{all}, snap)
	assert.Equal(t, RuleSet{h, all}, s.Current())

	s.Append(h)
	assert.Equal(t, RuleSet{h, all, h}, s.Current())

	s.Set(nil)
	assert.Empty(t, s.Current())

	// Mutating a snapshot leaves the store alone.
	s.Set(RuleSet{all})
	got := s.Current()
	got[0].MaxDist = 99
	assert.Equal(t, 1.9, s.Current()[0].MaxDist)
}

func TestStoreConcurrentAppend(t *testing.T) {
	s := NewStore(nil)
	r := Rule{SpeciesI: "*", SpeciesJ: "*", MinDist: 0, MaxDist: 1}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Append(r)
		}()
	}
	wg.Wait()

	assert.Len(t, s.Current(), 50)
}

func TestCSVRoundTrip(t *testing.T) {
	rs := RuleSet{
		{SpeciesI: "H", SpeciesJ: "*", MinDist: 0.4, MaxDist: 1.2},
		{SpeciesI: "C", SpeciesJ: "O", MinDist: 1.0 / 3.0, MaxDist: 1.6},
		{SpeciesI: "*", SpeciesJ: "*", MinDist: 0.4, MaxDist: 1.9},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rs))
	assert.True(t, strings.HasPrefix(buf.String(), "H,*,0.4,1.2\n"))

	got, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, rs, got)
}

func TestReadCSVMalformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"three fields", "H,*,0.4\n"},
		{"five fields", "H,*,0.4,1.2,x\n"},
		{"bad min", "H,*,abc,1.2\n"},
		{"bad max", "H,*,0.4,\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs, err := ReadCSV(strings.NewReader("*,*,0.4,1.9\n" + tt.in))
			assert.ErrorIs(t, err, ErrMalformedRule)
			assert.Nil(t, rs)
		})
	}

	_, err := ReadCSV(strings.NewReader("C,O,2.0,1.0\n"))
	assert.ErrorIs(t, err, ErrInvalidRule)
}
