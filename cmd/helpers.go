package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fernfield/pointpat-cli/internal/loader"
	"github.com/fernfield/pointpat-cli/internal/pattern"
	"github.com/spf13/cobra"
)

// inputFlags are the table-reading flags shared by every command that takes
// a coordinate file.
type inputFlags struct {
	delimiter  string
	xColumn    string
	yColumn    string
	markColumn string
	covariates []string
	scale      float64
	maxRows    int
	mark       string
	keepDup    bool
}

func addInputFlags(c *cobra.Command, in *inputFlags) {
	c.Flags().StringVar(&in.delimiter, "delimiter", "", "table delimiter: ',' | ';' | 'tab' (default from config)")
	c.Flags().StringVar(&in.xColumn, "x-column", "", "x coordinate column name (default from config)")
	c.Flags().StringVar(&in.yColumn, "y-column", "", "y coordinate column name (default from config)")
	c.Flags().StringVar(&in.markColumn, "mark-column", "", "mark column name; 'none' for unmarked data (default from config)")
	c.Flags().StringSliceVar(&in.covariates, "covariate-column", nil, "extra numeric columns to load (repeatable)")
	c.Flags().Float64Var(&in.scale, "scale", 0, "divide raw coordinates by this factor (default from config)")
	c.Flags().IntVar(&in.maxRows, "max-rows", 0, "maximum rows to read (0 = unlimited)")
	c.Flags().StringVar(&in.mark, "mark", "", "restrict the pattern to points with this mark value")
	c.Flags().BoolVar(&in.keepDup, "keep-duplicates", false, "keep exactly coincident points instead of dropping them")
}

// requireConfig guards commands that need a loaded configuration.
func requireConfig() error {
	if cfg == nil {
		return fmt.Errorf("configuration not loaded (see warnings above)")
	}
	return nil
}

// loaderOptions merges config defaults with per-command flag overrides.
func loaderOptions(in *inputFlags) (loader.Options, error) {
	opt := loader.DefaultOptions()
	if cfg != nil {
		if cfg.Delimiter != "" {
			opt.Delimiter = rune(cfg.Delimiter[0])
		}
		opt.XColumn = cfg.XColumn
		opt.YColumn = cfg.YColumn
		opt.MarkColumn = cfg.MarkColumn
		opt.ScaleDivisor = cfg.ScaleDivisor
	}
	if in.delimiter != "" {
		switch in.delimiter {
		case ",":
			opt.Delimiter = ','
		case ";":
			opt.Delimiter = ';'
		case "\t", "tab":
			opt.Delimiter = '\t'
		default:
			return opt, fmt.Errorf("unsupported --delimiter: %s", in.delimiter)
		}
	}
	if in.xColumn != "" {
		opt.XColumn = in.xColumn
	}
	if in.yColumn != "" {
		opt.YColumn = in.yColumn
	}
	switch in.markColumn {
	case "":
	case "none":
		opt.MarkColumn = ""
	default:
		opt.MarkColumn = in.markColumn
	}
	if in.scale > 0 {
		opt.ScaleDivisor = in.scale
	}
	if in.maxRows > 0 {
		opt.MaxRows = in.maxRows
	}
	opt.Covariates = in.covariates
	return opt, nil
}

// configWindow is the observation window from config (possibly overridden by
// the persistent --window flag).
func configWindow() (pattern.Rect, error) {
	r := pattern.NewRect(cfg.WindowXMin, cfg.WindowXMax, cfg.WindowYMin, cfg.WindowYMax)
	if !r.Valid() {
		return r, fmt.Errorf("invalid window [%g,%g]x[%g,%g]", r.XMin, r.XMax, r.YMin, r.YMax)
	}
	return r, nil
}

// loadPattern reads a coordinate table and builds the working pattern:
// window from config, marks when a mark column is present, duplicates
// dropped unless --keep-duplicates is set.
func loadPattern(path string, in *inputFlags) (*pattern.Pattern[string], *loader.Table, error) {
	opt, err := loaderOptions(in)
	if err != nil {
		return nil, nil, err
	}
	tbl, err := loader.ReadTable(path, opt)
	if err != nil {
		return nil, nil, err
	}
	for _, w := range tbl.Warnings {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %s\n", w)
	}
	win, err := configWindow()
	if err != nil {
		return nil, nil, err
	}
	var p *pattern.Pattern[string]
	if tbl.Marks != nil {
		p, err = pattern.NewMarked(tbl.X, tbl.Y, tbl.Marks, win)
	} else {
		p, err = pattern.New[string](tbl.X, tbl.Y, win)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("build pattern from %s: %w", tbl.Name, err)
	}
	p.SetUnit(cfg.Unit)
	if !in.keepDup {
		var dropped int
		p, dropped = p.Dedup()
		if dropped > 0 {
			fmt.Fprintf(os.Stderr, "⚠ Warning: dropped %d duplicate point(s)\n", dropped)
		}
	}
	if in.mark != "" {
		p, err = p.SubsetByMark(in.mark)
		if err != nil {
			return nil, nil, err
		}
		if p.N() == 0 {
			fmt.Fprintf(os.Stderr, "⚠ Warning: no points with mark %q\n", in.mark)
		}
	}
	return p, tbl, nil
}

// outPath places a plot file in the configured output directory, creating
// it if needed.
func outPath(name string) (string, error) {
	dir := ""
	if cfg != nil {
		dir = cfg.OutputDir
	}
	if dir == "" {
		return name, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir output dir: %w", err)
	}
	return filepath.Join(dir, name), nil
}

// stem strips the directory and extension from a table path for use in
// output file names.
func stem(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
