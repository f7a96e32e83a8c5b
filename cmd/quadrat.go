package cmd

import (
	"fmt"
	"os"

	"github.com/fernfield/pointpat-cli/internal/estimate"
	"github.com/fernfield/pointpat-cli/internal/report"
	"github.com/spf13/cobra"
)

var (
	quadInput inputFlags
	quadNX    int
	quadNY    int
)

var quadratCmd = &cobra.Command{
	Use:   "quadrat <file>",
	Short: "Chi-square quadrat test of complete spatial randomness",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireConfig(); err != nil {
			return err
		}
		p, _, err := loadPattern(args[0], &quadInput)
		if err != nil {
			return err
		}

		opt := estimate.QuadratOptions{NX: cfg.QuadratNX, NY: cfg.QuadratNY}
		if quadNX > 0 {
			opt.NX = quadNX
		}
		if quadNY > 0 {
			opt.NY = quadNY
		}
		res, err := estimate.QuadratTest(p, opt)
		if err != nil {
			return err
		}
		for _, w := range res.Warnings {
			fmt.Fprintf(os.Stderr, "⚠ Warning: %s\n", w)
		}

		rep := report.New("quadrat test")
		rep.Section("counts")
		rep.KV("Grid", "%d x %d quadrats", res.NX, res.NY)
		// row 0 is the bottom of the window; print top first
		for iy := res.NY - 1; iy >= 0; iy-- {
			row := ""
			for ix := 0; ix < res.NX; ix++ {
				row += fmt.Sprintf("%5d", res.Counts[iy*res.NX+ix])
			}
			rep.Line("%s", row)
		}
		rep.Section("test")
		rep.KV("Statistic", "%.4f", res.Statistic)
		rep.KV("Degrees of freedom", "%d", res.DF)
		rep.KV("P-value", "%.6g", res.PValue)
		if res.Rejected() {
			rep.Line("Reject homogeneity at the 5%% level: counts are uneven across quadrats.")
		} else {
			rep.Line("No evidence against homogeneity at the 5%% level.")
		}

		fmt.Print(rep.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(quadratCmd)
	addInputFlags(quadratCmd, &quadInput)
	quadratCmd.Flags().IntVar(&quadNX, "nx", 0, "quadrat columns (default from config)")
	quadratCmd.Flags().IntVar(&quadNY, "ny", 0, "quadrat rows (default from config)")
}
