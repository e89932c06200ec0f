// Package bonding infers the bonds of a crystal, either from species-pair
// distance rules or from Voronoi adjacency checked against covalent radii.
// Both methods fill the crystal's bond graph through crystal.MakeBond and
// finish with a sanity check.
package bonding

import (
	"errors"
	"fmt"
	"time"

	"github.com/ritzau/crystal-bonds/pkg/bondgraph"
	"github.com/ritzau/crystal-bonds/pkg/covalent"
	"github.com/ritzau/crystal-bonds/pkg/crystal"
	"github.com/ritzau/crystal-bonds/pkg/logging"
	"github.com/ritzau/crystal-bonds/pkg/metrics"
	"github.com/ritzau/crystal-bonds/pkg/rules"
	"github.com/ritzau/crystal-bonds/pkg/sanity"
)

// ErrAlreadyBonded is returned when inference is asked to fill a bond graph
// that already has edges.
var ErrAlreadyBonded = errors.New("crystal already has bonds")

// Method names, used for logs and metrics.
const (
	MethodRules   = "rules"
	MethodVoronoi = "voronoi"
)

func requireEmpty(c *crystal.Crystal) error {
	if n := c.Bonds().NumBonds(); n > 0 {
		return fmt.Errorf("crystal %q has %d bonds, call RemoveAllBonds before inferring again: %w",
			c.Name, n, ErrAlreadyBonded)
	}
	return nil
}

// IsBonded applies rs to atoms i and j. The first rule whose species
// pattern matches decides; the pair is bonded iff its distance is strictly
// inside that rule's window. Pairs no rule matches are not bonded.
func IsBonded(c *crystal.Crystal, i, j int, rs rules.RuleSet, periodic bool) bool {
	r := c.Distance(i, j, periodic)
	rule, ok := rs.Find(c.SpeciesOf(i), c.SpeciesOf(j))
	if !ok {
		return false
	}
	return rule.Accepts(r)
}

// RuleBonder infers bonds from a rule set.
type RuleBonder struct {
	// Store supplies the rule set when Infer is not given one.
	Store *rules.Store
}

// NewRuleBonder creates a bonder that falls back to store's current rules.
// With a nil store the fallback is the default rule set of the built-in
// radius table.
func NewRuleBonder(store *rules.Store) *RuleBonder {
	return &RuleBonder{Store: store}
}

// Infer bonds every pair i < j accepted by IsBonded. A nil rs means the
// store's current set, or the reference defaults without a store. It returns the sanity check result; an error means
// the crystal already had bonds and nothing was inferred.
func (b *RuleBonder) Infer(c *crystal.Crystal, periodic bool, rs rules.RuleSet) (bool, error) {
	if err := requireEmpty(c); err != nil {
		return false, err
	}
	if rs == nil {
		var err error
		if rs, err = b.currentRules(); err != nil {
			return false, err
		}
	}
	start := time.Now()
	log := logging.With("crystal", c.Name, "method", MethodRules)
	log.Debug("inferring bonds", "atoms", c.N(), "rules", len(rs), "periodic", periodic)

	created := 0
	for i := 0; i < c.N(); i++ {
		for j := i + 1; j < c.N(); j++ {
			if !IsBonded(c, i, j, rs, periodic) {
				continue
			}
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
	metrics.BondsCreated.WithLabelValues(MethodRules).Add(float64(created))
	metrics.InferenceDuration.WithLabelValues(MethodRules).Observe(elapsed.Seconds())
	log.Info("bonds inferred", "bonds", created, "durationMs", elapsed.Milliseconds())

	return sanity.Check(c.Bonds(), c.Species(), c.Name), nil
}

func (b *RuleBonder) currentRules() (rules.RuleSet, error) {
	if b.Store != nil {
		return b.Store.Current(), nil
	}
	ref, err := covalent.Reference()
	if err != nil {
		return nil, err
	}
	return rules.BuildDefault(ref, rules.DefaultSigma, rules.DefaultMinTol), nil
}
