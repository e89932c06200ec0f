// Package output renders analysis results for the terminal.
package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/ritzau/crystal-bonds/pkg/analysis"
	"github.com/ritzau/crystal-bonds/pkg/rules"
)

// PrintBondReport prints a nicely formatted bond report with colors
func PrintBondReport(w io.Writer, res *analysis.Result) {
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	bold.Fprintln(w, "Crystal Bonds - Inference Report")
	bold.Fprintln(w, "================================")
	fmt.Fprintf(w, "Crystal: %s (%d atoms)\n", res.Crystal, len(res.Atoms))
	fmt.Fprintf(w, "Method: %s, periodic: %t\n", res.Method, res.Periodic)
	fmt.Fprintf(w, "Bonds: %d\n", len(res.Bonds))
	fmt.Fprintln(w)

	if len(res.Bonds) > 0 {
		bold.Fprintln(w, "BONDS:")
		for _, b := range res.Bonds {
			pair := fmt.Sprintf("%s%d-%s%d", res.Atoms[b.I].Species, b.I, res.Atoms[b.J].Species, b.J)
			if !b.Known {
				fmt.Fprintf(w, "  %-14s %s\n", pair, b.Type)
				continue
			}
			fmt.Fprintf(w, "  %-14s %s  %.4f Å", pair, b.Type, b.Distance)
			if b.CrossBoundary {
				cyan.Fprint(w, "  (crosses boundary)")
			}
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w)
	}

	if len(res.Violations) > 0 {
		red.Fprintln(w, "SANITY VIOLATIONS:")
		for _, v := range res.Violations {
			yellow.Fprintf(w, "  %s\n", v)
		}
		fmt.Fprintln(w)
	}

	fragColor := green
	if len(res.Fragments) > 1 {
		fragColor = yellow
	}
	fragColor.Fprintf(w, "Fragments: %d\n", len(res.Fragments))
	for i, f := range res.Fragments {
		fmt.Fprintf(w, "  #%d: %s\n", i+1, formatFragment(res, f))
	}

	if len(res.Rings) > 0 {
		fmt.Fprintf(w, "Rings: %d\n", len(res.Rings))
		for _, ring := range res.Rings {
			fmt.Fprintf(w, "  %d-membered: %v\n", len(ring), ring)
		}
	}

	if res.Sane {
		green.Fprintln(w, "✓ Bond graph passed the sanity check")
	} else {
		red.Fprintf(w, "✗ Sanity check failed with %d violation(s)\n", len(res.Violations))
	}
}

// formatFragment summarizes a fragment as its composition, e.g. "H2O (3 atoms)".
func formatFragment(res *analysis.Result, atoms []int) string {
	counts := map[string]int{}
	var order []string
	for _, i := range atoms {
		sp := res.Atoms[i].Species
		if counts[sp] == 0 {
			order = append(order, sp)
		}
		counts[sp]++
	}
	var sb strings.Builder
	for _, sp := range hillOrder(order) {
		sb.WriteString(sp)
		if n := counts[sp]; n > 1 {
			fmt.Fprintf(&sb, "%d", n)
		}
	}
	fmt.Fprintf(&sb, " (%d atoms)", len(atoms))
	return sb.String()
}

// hillOrder puts C then H first, the rest alphabetically.
func hillOrder(species []string) []string {
	rank := func(s string) string {
		switch s {
		case "C":
			return "\x00"
		case "H":
			return "\x01"
		}
		return s
	}
	out := append([]string(nil), species...)
	sort.Slice(out, func(i, j int) bool { return rank(out[i]) < rank(out[j]) })
	return out
}

// PrintRules prints a rule set in priority order.
func PrintRules(w io.Writer, rs rules.RuleSet) {
	bold := color.New(color.Bold)
	faint := color.New(color.Faint)

	bold.Fprintf(w, "%d rule(s), first match wins\n", len(rs))
	for i, r := range rs {
		fmt.Fprintf(w, "%4d  %-3s %-3s  (%.4f, %.4f)", i+1, r.SpeciesI, r.SpeciesJ, r.MinDist, r.MaxDist)
		if k := r.Pattern().Kind; k != rules.Exact {
			faint.Fprintf(w, "  %s", k)
		}
		fmt.Fprintln(w)
	}
}
