package main

import (
	"os"

	"github.com/ritzau/crystal-bonds/pkg/covalent"
	"github.com/ritzau/crystal-bonds/pkg/output"
	"github.com/ritzau/crystal-bonds/pkg/rules"
	"github.com/spf13/cobra"
)

var rulesPretty bool

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the active rule set",
	Long: `Print the rule set used by the rules method: the --rules file when
given, otherwise the default set derived from the radius table.

Examples:
  bonds rules > rules.csv            # CSV, readable by --rules
  bonds rules --radii my.toml -p     # human-readable`,
	RunE: runRules,
}

func init() {
	rulesCmd.Flags().BoolVarP(&rulesPretty, "pretty", "p", false, "Print a table instead of CSV")
	rootCmd.AddCommand(rulesCmd)
}

func runRules(cmd *cobra.Command, args []string) error {
	rs, err := activeRules()
	if err != nil {
		return err
	}
	if rulesPretty {
		output.PrintRules(os.Stdout, rs)
		return nil
	}
	return rules.WriteCSV(os.Stdout, rs)
}

func activeRules() (rules.RuleSet, error) {
	if cfg.Rules != "" {
		return rules.LoadFile(cfg.Rules)
	}
	t, err := covalent.Reference()
	if cfg.Radii != "" {
		t, err = covalent.Load(cfg.Radii)
	}
	if err != nil {
		return nil, err
	}
	return rules.BuildDefault(t, cfg.Sigma, cfg.MinTol), nil
}
