package main

import (
	"github.com/ritzau/crystal-bonds/pkg/analysis"
	"github.com/ritzau/crystal-bonds/pkg/bonding"
	"github.com/ritzau/crystal-bonds/pkg/config"
	"github.com/ritzau/crystal-bonds/pkg/logging"
	"github.com/ritzau/crystal-bonds/pkg/rules"
	"github.com/spf13/cobra"
)

// cfg is loaded before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "bonds",
	Short: "Infer chemical bonds in periodic crystals",
	Long: `Infer the bond graph of a crystal from species-pair distance rules or
from Voronoi adjacency checked against covalent radii.

Settings are read from bonds.toml, then BONDS_* environment variables,
then flags.

Examples:
  bonds infer --crystal water.toml
  bonds infer --crystal ice.toml --method voronoi --strict
  bonds rules > rules.csv
  bonds serve --crystal ice.toml --watch`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(cmd.Flags()); err != nil {
			return err
		}
		level := logging.ParseLevel(cfg.Verbosity, cfg.Verbose)
		if cfg.JSONLogs {
			logging.SetJSONOutput(level)
		} else {
			logging.SetLevel(level)
		}
		logging.Debug("configuration loaded", "method", cfg.Method, "periodic", cfg.Periodic, "crystal", cfg.Crystal)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("crystal", "", "Crystal description (TOML)")
	pf.String("rules", "", "Rule set (CSV: species_i,species_j,min,max); derived from radii when empty")
	pf.String("radii", "", "Covalent radius table (TOML); built-in Cordero radii when empty")
	pf.String("method", bonding.MethodRules, "Inference method: rules or voronoi")
	pf.Bool("periodic", true, "Use minimum-image distances on periodic axes")
	pf.Float64("cutoff", bonding.DefaultCutoff, "Voronoi neighborhood radius (Å)")
	pf.Float64("sigma", rules.DefaultSigma, "Margin in units of combined radius uncertainty")
	pf.Float64("min-tol", rules.DefaultMinTol, "Minimum distance margin (Å)")
	pf.Int("workers", 0, "Parallel Voronoi neighborhoods (0 = GOMAXPROCS)")
	pf.String("verbosity", "", "Log level: trace, debug, info, warn, error")
	pf.CountP("verbose", "v", "Increase log verbosity (repeatable)")
	pf.Bool("json-logs", false, "Log as JSON")
}

func newRunner() *analysis.Runner {
	return analysis.NewRunner(analysis.OptionsFromConfig(cfg), nil)
}
