package rules

import (
	"math"
	"sync/atomic"

	"github.com/ritzau/crystal-bonds/pkg/covalent"
)

// Default generator parameters.
const (
	DefaultSigma  = 3.0
	DefaultMinTol = 0.25
)

// RuleSet is an ordered list of rules; earlier rules win.
type RuleSet []Rule

// Find returns the first rule whose species pattern matches the pair.
func (rs RuleSet) Find(si, sj string) (Rule, bool) {
	for _, r := range rs {
		if r.Pattern().Match(si, sj) {
			return r, true
		}
	}
	return Rule{}, false
}

// Append returns a new set with extra appended after rs (lower priority).
// rs itself is not modified.
func (rs RuleSet) Append(extra ...Rule) RuleSet {
	out := make(RuleSet, 0, len(rs)+len(extra))
	out = append(out, rs...)
	return append(out, extra...)
}

// Prepend returns a new set with extra placed ahead of rs (higher priority).
func (rs RuleSet) Prepend(extra ...Rule) RuleSet {
	out := make(RuleSet, 0, len(rs)+len(extra))
	out = append(out, extra...)
	return append(out, rs...)
}

// Validate checks every rule in the set.
func (rs RuleSet) Validate() error {
	for _, r := range rs {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// BuildDefault emits one rule for every unordered pair of species in the
// table, a species paired with itself included. Pairs are enumerated in
// symbol order so repeated calls give identical sets. A margin wider than
// the radius sum would make the lower bound negative; it is clamped at 0 so
// that every emitted rule passes Validate.
func BuildDefault(t covalent.Table, sigma, minTol float64) RuleSet {
	species := t.Species()
	rs := make(RuleSet, 0, len(species)*(len(species)+1)/2)
	for a := 0; a < len(species); a++ {
		for b := a; b < len(species); b++ {
			lo, hi := covalent.Window(t[species[a]], t[species[b]], sigma, minTol)
			rs = append(rs, Rule{
				SpeciesI: species[a],
				SpeciesJ: species[b],
				MinDist:  math.Max(0, lo),
				MaxDist:  hi,
			})
		}
	}
	return rs
}

// Store holds the "current" rule set shared by a process. Readers get a
// snapshot; replacing the set never affects a snapshot already taken.
type Store struct {
	current atomic.Pointer[RuleSet]
}

// NewStore creates a store holding initial.
func NewStore(initial RuleSet) *Store {
	s := &Store{}
	s.Set(initial)
	return s
}

// Current returns a snapshot of the active rule set.
func (s *Store) Current() RuleSet {
	p := s.current.Load()
	if p == nil {
		return nil
	}
	return (*p).Append()
}

// Set replaces the active rule set.
func (s *Store) Set(rs RuleSet) {
	cp := rs.Append()
	s.current.Store(&cp)
}

// Append adds rules behind the active ones.
func (s *Store) Append(extra ...Rule) {
	s.update(func(rs RuleSet) RuleSet { return rs.Append(extra...) })
}

// Prepend adds rules ahead of the active ones.
func (s *Store) Prepend(extra ...Rule) {
	s.update(func(rs RuleSet) RuleSet { return rs.Prepend(extra...) })
}

func (s *Store) update(f func(RuleSet) RuleSet) {
	for {
		old := s.current.Load()
		var base RuleSet
		if old != nil {
			base = *old
		}
		next := f(base)
		if s.current.CompareAndSwap(old, &next) {
			return
		}
	}
}
