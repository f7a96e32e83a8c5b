package cmd

import (
	"fmt"

	"github.com/fernfield/pointpat-cli/internal/estimate"
	"github.com/fernfield/pointpat-cli/internal/plot"
	"github.com/fernfield/pointpat-cli/internal/report"
	"github.com/spf13/cobra"
)

var (
	lineInput   inputFlags
	lineSims    int
	lineColumns int
	lineReveal  bool
)

var lineupCmd = &cobra.Command{
	Use:   "lineup <file>",
	Short: "Blind lineup: the observed pattern hidden among null simulations",
	Long: `lineup writes a panel grid of intensity surfaces: the observed pattern in
one randomly chosen slot, complete-spatial-randomness simulations in the
rest. If a viewer who does not know the slot can pick the observed panel
out, the pattern genuinely differs from randomness. Rerun with --reveal to
learn the slot afterwards.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireConfig(); err != nil {
			return err
		}
		p, _, err := loadPattern(args[0], &lineInput)
		if err != nil {
			return err
		}

		sims := cfg.Sims
		if lineSims > 0 {
			sims = lineSims
		}
		l, err := estimate.CSRLineup(newRNG(), p, sims)
		if err != nil {
			return err
		}
		surfs, err := l.Densities(estimate.DensityOptions{
			Bandwidth: cfg.DensityBandwidth, NX: 64, NY: 64,
		})
		if err != nil {
			return err
		}

		path, err := outPath(stem(args[0]) + "_lineup.png")
		if err != nil {
			return err
		}
		if err := plot.LineupGrid(path, surfs, lineColumns); err != nil {
			return err
		}

		rep := report.New("lineup")
		rep.Section("panels")
		rep.KV("Panels", "%d (%d simulations + observed)", len(l.Patterns), sims)
		rep.KV("Columns", "%d", lineColumns)
		if lineReveal {
			rep.KV("Observed panel", "%d (row-major, 1-based)", l.RealIndex+1)
		} else {
			rep.Line("Observed panel hidden. Rerun with --reveal and the same --seed to identify it.")
		}
		rep.Artifact(path)

		fmt.Print(rep.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lineupCmd)
	addInputFlags(lineupCmd, &lineInput)
	lineupCmd.Flags().IntVar(&lineSims, "sims", 0, "number of null simulations (default from config)")
	lineupCmd.Flags().IntVar(&lineColumns, "columns", 4, "panels per row in the grid")
	lineupCmd.Flags().BoolVar(&lineReveal, "reveal", false, "report which panel holds the observed pattern")
}
