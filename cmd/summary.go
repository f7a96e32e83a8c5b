package cmd

import (
	"fmt"

	"github.com/fernfield/pointpat-cli/internal/plot"
	"github.com/fernfield/pointpat-cli/internal/report"
	"github.com/spf13/cobra"
)

var (
	sumInput  inputFlags
	sumPlot   bool
	sumByMark bool
)

var summaryCmd = &cobra.Command{
	Use:   "summary <file>",
	Short: "Summarize a point pattern: counts, intensity, marks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireConfig(); err != nil {
			return err
		}
		p, tbl, err := loadPattern(args[0], &sumInput)
		if err != nil {
			return err
		}

		rep := report.New("pattern summary")
		rep.Section("dataset")
		rep.KV("Table", "%s (%d rows)", tbl.Name, tbl.Rows)
		b := p.Window().Bounds()
		rep.KV("Window", "[%g, %g] x [%g, %g] %s", b.XMin, b.XMax, b.YMin, b.YMax, p.Unit())
		rep.KV("Area", "%.4g square %s", p.Window().Area(), p.Unit())
		rep.KV("Points", "%d", p.N())
		rep.KV("Intensity", "%.6g points per square %s", p.Intensity(), p.Unit())

		if p.Marked() && sumByMark {
			groups, err := p.SplitByMark()
			if err != nil {
				return err
			}
			rep.Section("marks")
			for _, m := range p.MarkValues() {
				g := groups[m]
				rep.KV(m, "%d points, intensity %.6g", g.N(), g.Intensity())
			}
		}

		if sumPlot {
			path, err := outPath(stem(args[0]) + "_points.png")
			if err != nil {
				return err
			}
			if err := plot.Points(path, p); err != nil {
				return err
			}
			rep.Artifact(path)
		}

		fmt.Print(rep.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	addInputFlags(summaryCmd, &sumInput)
	summaryCmd.Flags().BoolVar(&sumPlot, "plot", false, "write a dot map of the pattern")
	summaryCmd.Flags().BoolVar(&sumByMark, "by-mark", true, "break counts down by mark value")
}
