package main

import (
	"fmt"
	"os"

	"github.com/ritzau/crystal-bonds/pkg/analysis"
	"github.com/ritzau/crystal-bonds/pkg/output"
	"github.com/spf13/cobra"
)

var inferCmd = &cobra.Command{
	Use:   "infer",
	Short: "Infer bonds and print a report",
	Long: `Infer the bonds of a crystal and print the bond table, sanity
violations and fragments.

Exits 1 if the inputs cannot be loaded and, with --strict, 2 if the
bond graph fails the sanity check.`,
	RunE: runInfer,
}

var checkCmd = &cobra.Command{
	Use:   "check BONDS.csv",
	Short: "Sanity-check a given bond list",
	Long: `Read bonds from a list of "i,j[,type]" lines (0-based atom indices)
instead of inferring them, then run the sanity check.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	for _, c := range []*cobra.Command{inferCmd, checkCmd} {
		c.Flags().Bool("strict", false, "Exit with status 2 when the sanity check fails")
		rootCmd.AddCommand(c)
	}
}

func runInfer(cmd *cobra.Command, args []string) error {
	res, err := newRunner().Run(cmd.Context(), analysis.RunOptions{
		Trigger: analysis.TriggerCLI,
		Reason:  "command line",
	})
	if err != nil {
		return err
	}
	return report(res)
}

func runCheck(cmd *cobra.Command, args []string) error {
	res, err := newRunner().CheckBondList(args[0], analysis.RunOptions{
		Trigger: analysis.TriggerCLI,
		Reason:  "bond list check",
	})
	if err != nil {
		return err
	}
	return report(res)
}

func report(res *analysis.Result) error {
	output.PrintBondReport(os.Stdout, res)
	if cfg.Strict && !res.Sane {
		return &exitError{code: 2, msg: fmt.Sprintf("%d sanity violation(s)", len(res.Violations))}
	}
	return nil
}
