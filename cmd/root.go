package cmd

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	cfgpkg "github.com/fernfield/pointpat-cli/internal/config"
	"github.com/spf13/cobra"
)

var (
	// Global flags (wired later to config/viper)
	cfgFile string
	debug   bool
	// Persistent overrides (take effect over config if set)
	flagSeed   int64
	flagOut    string
	flagWindow []float64

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "pointpat",
	Short: "pointpat: spatial point pattern analysis from coordinate tables",
	Long: `pointpat reads delimited coordinate tables, builds point patterns on an
observation window, and runs exploratory summaries, randomness tests, and
intensity model fits over them, writing plots as PNG files.`,
}

// Execute is the entry point called by main.main()
func Execute() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.pointpat/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().Int64Var(&flagSeed, "seed", 0, "random seed for simulations (0 = seed from the clock)")
	rootCmd.PersistentFlags().StringVar(&flagOut, "out", "", "directory for plot files (overrides config)")
	rootCmd.PersistentFlags().Float64SliceVar(&flagWindow, "window", nil, "observation window as xmin,xmax,ymin,ymax (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("seed") {
		cfg.Seed = flagSeed
	}
	if f.Changed("out") && flagOut != "" {
		cfg.OutputDir = flagOut
	}
	if f.Changed("window") {
		if len(flagWindow) != 4 {
			fmt.Fprintf(os.Stderr, "⚠ Warning: --window needs 4 values (xmin,xmax,ymin,ymax), got %d\n", len(flagWindow))
		} else {
			cfg.WindowXMin, cfg.WindowXMax = flagWindow[0], flagWindow[1]
			cfg.WindowYMin, cfg.WindowYMax = flagWindow[2], flagWindow[3]
		}
	}
}

// newRNG builds the run RNG from the configured seed. A zero seed means
// seed from the clock, so repeat runs differ unless --seed is given.
func newRNG() *rand.Rand {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if debug {
		fmt.Fprintf(os.Stderr, "seed: %d\n", seed)
	}
	return rand.New(rand.NewSource(seed))
}
