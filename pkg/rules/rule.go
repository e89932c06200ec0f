// Package rules implements species-pair bonding rules.
//
// A RuleSet is an ordered list. Earlier rules take precedence: the first
// rule whose species pattern matches a pair decides whether the pair is
// bonded, and no later rule is consulted.
package rules

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Wildcard matches any species.
const Wildcard = "*"

var (
	// ErrInvalidRule is returned for a rule with an unusable distance window.
	ErrInvalidRule = errors.New("invalid bonding rule")
	// ErrMalformedRule is returned when a serialized rule cannot be parsed.
	ErrMalformedRule = errors.New("malformed bonding rule")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Rule bonds a pair of species whose distance lies strictly inside
// (MinDist, MaxDist). The order of SpeciesI and SpeciesJ does not matter.
type Rule struct {
	SpeciesI string  `json:"species_i" validate:"required"`
	SpeciesJ string  `json:"species_j" validate:"required"`
	MinDist  float64 `json:"min_dist" validate:"gte=0"`
	MaxDist  float64 `json:"max_dist" validate:"gtfield=MinDist"`
}

// New creates a validated rule.
func New(si, sj string, minDist, maxDist float64) (Rule, error) {
	r := Rule{SpeciesI: si, SpeciesJ: sj, MinDist: minDist, MaxDist: maxDist}
	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// Validate checks that both species are set and 0 <= MinDist < MaxDist.
func (r Rule) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%s: %v: %w", r, err, ErrInvalidRule)
	}
	return nil
}

// Accepts reports whether a distance falls inside the rule's open window.
func (r Rule) Accepts(dist float64) bool {
	return r.MinDist < dist && dist < r.MaxDist
}

// Pattern returns the species pattern of the rule.
func (r Rule) Pattern() Pattern {
	switch {
	case r.SpeciesI == Wildcard && r.SpeciesJ == Wildcard:
		return Pattern{Kind: AllWildcard}
	case r.SpeciesI == Wildcard:
		return Pattern{Kind: OneWildcard, A: r.SpeciesJ}
	case r.SpeciesJ == Wildcard:
		return Pattern{Kind: OneWildcard, A: r.SpeciesI}
	default:
		return Pattern{Kind: Exact, A: r.SpeciesI, B: r.SpeciesJ}
	}
}

func (r Rule) String() string {
	return fmt.Sprintf("(%s,%s,%g,%g)", r.SpeciesI, r.SpeciesJ, r.MinDist, r.MaxDist)
}

// PatternKind distinguishes the three species pattern shapes.
type PatternKind int

const (
	Exact PatternKind = iota
	OneWildcard
	AllWildcard
)

func (k PatternKind) String() string {
	switch k {
	case Exact:
		return "exact"
	case OneWildcard:
		return "one-wildcard"
	case AllWildcard:
		return "all-wildcard"
	}
	return fmt.Sprintf("PatternKind(%d)", int(k))
}

// Pattern is the species half of a rule.
// For Exact both A and B are set; for OneWildcard only A is.
type Pattern struct {
	Kind PatternKind
	A, B string
}

// Match reports whether the pattern covers the unordered species pair.
func (p Pattern) Match(si, sj string) bool {
	switch p.Kind {
	case AllWildcard:
		return true
	case OneWildcard:
		return si == p.A || sj == p.A
	default:
		return (si == p.A && sj == p.B) || (si == p.B && sj == p.A)
	}
}
