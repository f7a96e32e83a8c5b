package cmd

import (
	"fmt"
	"strconv"

	cfgpkg "github.com/fernfield/pointpat-cli/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set pointpat configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Println("No config loaded")
			return nil
		}
		fmt.Printf("delimiter: %s\n", cfg.Delimiter)
		fmt.Printf("x_column: %s\n", cfg.XColumn)
		fmt.Printf("y_column: %s\n", cfg.YColumn)
		fmt.Printf("mark_column: %s\n", cfg.MarkColumn)
		fmt.Printf("scale_divisor: %g\n", cfg.ScaleDivisor)
		fmt.Printf("unit: %s\n", cfg.Unit)
		fmt.Printf("window: [%g, %g] x [%g, %g]\n", cfg.WindowXMin, cfg.WindowXMax, cfg.WindowYMin, cfg.WindowYMax)
		fmt.Printf("density_bandwidth: %g\n", cfg.DensityBandwidth)
		fmt.Printf("grid: %d x %d\n", cfg.GridNX, cfg.GridNY)
		fmt.Printf("quadrats: %d x %d\n", cfg.QuadratNX, cfg.QuadratNY)
		fmt.Printf("sims: %d\n", cfg.Sims)
		fmt.Printf("seed: %d\n", cfg.Seed)
		if cfg.OutputDir != "" {
			fmt.Printf("output_dir: %s\n", cfg.OutputDir)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		switch key {
		case "delimiter":
			switch val {
			case ",", ";", "\t", "tab":
				if val == "tab" {
					val = "\t"
				}
				cfg.Delimiter = val
			default:
				return fmt.Errorf("invalid delimiter: %q (use ','|';'|'tab')", val)
			}
		case "x_column":
			cfg.XColumn = val
		case "y_column":
			cfg.YColumn = val
		case "mark_column":
			cfg.MarkColumn = val
		case "scale_divisor":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil || f < 0 {
				return fmt.Errorf("invalid float for scale_divisor: %v", val)
			}
			cfg.ScaleDivisor = f
		case "unit":
			cfg.Unit = val
		case "window_x_min", "window_x_max", "window_y_min", "window_y_max", "density_bandwidth":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("invalid float for %s: %v", key, val)
			}
			switch key {
			case "window_x_min":
				cfg.WindowXMin = f
			case "window_x_max":
				cfg.WindowXMax = f
			case "window_y_min":
				cfg.WindowYMin = f
			case "window_y_max":
				cfg.WindowYMax = f
			case "density_bandwidth":
				cfg.DensityBandwidth = f
			}
		case "grid_nx", "grid_ny", "quadrat_nx", "quadrat_ny", "sims":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid positive int for %s: %v", key, val)
			}
			switch key {
			case "grid_nx":
				cfg.GridNX = i
			case "grid_ny":
				cfg.GridNY = i
			case "quadrat_nx":
				cfg.QuadratNX = i
			case "quadrat_ny":
				cfg.QuadratNY = i
			case "sims":
				cfg.Sims = i
			}
		case "seed":
			i, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid int for seed: %v", val)
			}
			cfg.Seed = i
		case "output_dir":
			cfg.OutputDir = val
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Println("Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
