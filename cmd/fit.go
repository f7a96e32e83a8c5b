package cmd

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/fernfield/pointpat-cli/internal/estimate"
	"github.com/fernfield/pointpat-cli/internal/loader"
	"github.com/fernfield/pointpat-cli/internal/model"
	"github.com/fernfield/pointpat-cli/internal/pattern"
	"github.com/fernfield/pointpat-cli/internal/plot"
	"github.com/fernfield/pointpat-cli/internal/report"
	"github.com/spf13/cobra"
)

var (
	fitInput     inputFlags
	fitFormula   string
	fitCluster   bool
	fitCovMarks  []string
	fitBandwidth float64
	fitPredict   bool
	fitResiduals bool
	fitMarginal  string
	fitValidate  bool
	fitGlobal    bool
	fitLineup    int
)

var fitCmd = &cobra.Command{
	Use:   "fit <file>",
	Short: "Fit a Poisson or Thomas cluster intensity model",
	Long: `fit estimates a log-linear intensity model for a point pattern. The
formula names the trend: "1" for constant intensity, "polyN" for a degree-N
polynomial in the coordinates, "cov:NAME" for a covariate surface, joined
with "+". Covariate surfaces come from numeric table columns
(--covariate-column, kernel-smoothed onto the window) or from the density
of another mark's points (--covariate-mark). --cluster adds Thomas cluster
structure on top of the fitted trend by minimum contrast on the K-function.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireConfig(); err != nil {
			return err
		}
		p, tbl, err := loadPattern(args[0], &fitInput)
		if err != nil {
			return err
		}
		f, err := model.ParseFormula(fitFormula)
		if err != nil {
			return err
		}

		covs, err := buildCovariates(p, tbl)
		if err != nil {
			return err
		}

		rep := report.New("model fit")
		rep.Section("model")
		rep.KV("Formula", "%s", fitFormula)
		rep.KV("Points", "%d", p.N())

		var pois *model.PoissonFit
		var thomas *model.ThomasFit
		if fitCluster {
			thomas, err = model.FitThomas(p, f, covs, model.FitOptions{})
			if err != nil {
				return err
			}
			pois = thomas.Poisson
		} else {
			pois, err = model.FitPoisson(p, f, covs, model.FitOptions{})
			if err != nil {
				return err
			}
		}

		rep.Section("coefficients")
		for i, name := range pois.Names {
			rep.KV(name, "%.6g (se %.4g)", pois.Coef[i], pois.SE[i])
		}
		rep.KV("Log-likelihood", "%.6g", pois.LogLik)
		rep.KV("Iterations", "%d", pois.Iterations)

		if thomas != nil {
			rep.Section("cluster")
			rep.KV("Kappa", "%.6g parents per square %s", thomas.Kappa, p.Unit())
			rep.KV("Sigma", "%.6g %s", thomas.Sigma, p.Unit())
			rep.KV("Mu", "%.6g offspring per parent", thomas.Mu)
			rep.KV("Contrast", "%.6g", thomas.Contrast)
		}

		if fitPredict {
			surf, err := pois.Predict(cfg.GridNX, cfg.GridNY)
			if err != nil {
				return err
			}
			path, err := outPath(stem(args[0]) + "_fitted.png")
			if err != nil {
				return err
			}
			if err := plot.Heatmap(path, surf); err != nil {
				return err
			}
			rep.Artifact(path)
		}

		if fitResiduals {
			res, err := pois.Residuals(p, estimate.DensityOptions{
				Bandwidth: fitBandwidth, NX: cfg.GridNX, NY: cfg.GridNY,
			})
			if err != nil {
				return err
			}
			path, err := outPath(stem(args[0]) + "_residuals.png")
			if err != nil {
				return err
			}
			if err := plot.ResidualMap(path, res); err != nil {
				return err
			}
			rep.Section("residuals")
			rep.KV("Range", "%.6g to %.6g", res.Min(), res.Max())
			rep.Artifact(path)
		}

		if fitMarginal != "" {
			xs, ys, err := pois.Marginal(fitMarginal, 50)
			if err != nil {
				return err
			}
			path, err := outPath(stem(args[0]) + "_effect_" + fitMarginal + ".png")
			if err != nil {
				return err
			}
			if err := plot.MarginalCurve(path, fitMarginal, xs, ys); err != nil {
				return err
			}
			rep.Artifact(path)
		}

		if fitValidate {
			rng := newRNG()
			var env *estimate.EnvelopeResult
			if thomas != nil {
				env, err = thomasEnvelope(p, thomas, rng)
			} else {
				env, err = pois.ValidationEnvelope(p, rng, 39, fitGlobal)
			}
			if err != nil {
				return err
			}
			path, err := outPath(stem(args[0]) + "_validation.png")
			if err != nil {
				return err
			}
			if err := plot.EnvelopeCurve(path, "K function under the fitted model", "K(r)", env); err != nil {
				return err
			}
			rep.Section("validation")
			above, below := env.Exits()
			if len(above) == 0 && len(below) == 0 {
				rep.Line("Observed K stays inside the fitted-model envelope.")
			} else {
				rep.Line("Observed K leaves the envelope at %d distance(s): the model misses structure.", len(above)+len(below))
			}
			rep.Artifact(path)
		}

		if fitLineup > 0 {
			rng := newRNG()
			var l *estimate.Lineup
			if thomas != nil {
				l, err = thomas.Lineup(rng, p, fitLineup)
			} else {
				l, err = pois.Lineup(rng, p, fitLineup)
			}
			if err != nil {
				return err
			}
			surfs, err := l.Densities(estimate.DensityOptions{Bandwidth: fitBandwidth, NX: 64, NY: 64})
			if err != nil {
				return err
			}
			path, err := outPath(stem(args[0]) + "_fit_lineup.png")
			if err != nil {
				return err
			}
			if err := plot.LineupGrid(path, surfs, 4); err != nil {
				return err
			}
			rep.Section("lineup")
			rep.Line("Observed pattern hidden among %d draws from the fitted model.", fitLineup)
			rep.Artifact(path)
		}

		fmt.Print(rep.String())
		return nil
	},
}

// buildCovariates assembles the covariate surfaces a formula can reference:
// kernel-smoothed numeric columns (named by column) and per-mark density
// surfaces (named by mark value).
func buildCovariates(p *pattern.Pattern[string], tbl *loader.Table) (map[string]*estimate.Surface, error) {
	if len(tbl.Covariates) == 0 && len(fitCovMarks) == 0 {
		return nil, nil
	}
	covs := make(map[string]*estimate.Surface)
	opt := estimate.DensityOptions{Bandwidth: fitBandwidth, NX: cfg.GridNX, NY: cfg.GridNY}

	if len(tbl.Covariates) > 0 {
		// Smooth over the raw table rows, not the (deduped, subset) pattern,
		// so the column values line up with their coordinates.
		raw, err := pattern.New[string](tbl.X, tbl.Y, p.Window())
		if err != nil {
			return nil, fmt.Errorf("covariate coordinates: %w", err)
		}
		for name, vals := range tbl.Covariates {
			s, err := estimate.Smooth(raw, vals, opt)
			if err != nil {
				return nil, fmt.Errorf("covariate %s: %w", name, err)
			}
			covs[name] = s
		}
	}

	for _, m := range fitCovMarks {
		sub, err := p.SubsetByMark(m)
		if err != nil {
			return nil, err
		}
		if sub.N() == 0 {
			return nil, fmt.Errorf("covariate mark %q: no points", m)
		}
		s, err := estimate.Density(sub, opt)
		if err != nil {
			return nil, fmt.Errorf("covariate mark %q: %w", m, err)
		}
		covs[m] = s
	}
	return covs, nil
}

// thomasEnvelope re-envelopes the observed K against draws from a fitted
// Thomas process.
func thomasEnvelope(p *pattern.Pattern[string], t *model.ThomasFit, rng *rand.Rand) (*estimate.EnvelopeResult, error) {
	obs, err := estimate.KEst(p, estimate.KOptions{})
	if err != nil {
		return nil, err
	}
	sims := 39
	curves := make([][]float64, 0, sims)
	for s := 0; s < sims; s++ {
		sim, err := t.Simulate(rng)
		if err != nil {
			return nil, fmt.Errorf("cluster simulation %d: %w", s+1, err)
		}
		if sim.N() < 2 {
			continue
		}
		res, err := estimate.KEst(sim, estimate.KOptions{})
		if err != nil {
			return nil, fmt.Errorf("cluster simulation %d: %w", s+1, err)
		}
		curves = append(curves, res.Obs)
	}
	if len(curves) == 0 {
		return nil, fmt.Errorf("cluster validation: every simulation was degenerate")
	}
	env := &estimate.EnvelopeResult{
		R: obs.R, Obs: obs.Obs, Theo: obs.Theo,
		Lo:   make([]float64, len(obs.R)),
		Hi:   make([]float64, len(obs.R)),
		Sims: len(curves),
	}
	for i := range env.R {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, c := range curves {
			if math.IsNaN(c[i]) {
				continue
			}
			lo = math.Min(lo, c[i])
			hi = math.Max(hi, c[i])
		}
		env.Lo[i], env.Hi[i] = lo, hi
	}
	return env, nil
}

func init() {
	rootCmd.AddCommand(fitCmd)
	addInputFlags(fitCmd, &fitInput)
	fitCmd.Flags().StringVar(&fitFormula, "formula", "1", `trend formula: "1" | "polyN" | "cov:NAME", joined with "+"`)
	fitCmd.Flags().BoolVar(&fitCluster, "cluster", false, "fit Thomas cluster structure on top of the trend")
	fitCmd.Flags().StringSliceVar(&fitCovMarks, "covariate-mark", nil, "use the density of this mark's points as a covariate surface (repeatable)")
	fitCmd.Flags().Float64Var(&fitBandwidth, "bandwidth", 0, "bandwidth for covariate and residual smoothing (0 = rule of thumb)")
	fitCmd.Flags().BoolVar(&fitPredict, "predict", false, "write the fitted intensity surface as a heatmap")
	fitCmd.Flags().BoolVar(&fitResiduals, "residuals", false, "write a smoothed residual map")
	fitCmd.Flags().StringVar(&fitMarginal, "marginal", "", "write the marginal effect curve for this covariate")
	fitCmd.Flags().BoolVar(&fitValidate, "validate", false, "envelope the K function against the fitted model")
	fitCmd.Flags().BoolVar(&fitGlobal, "global", false, "constant-width global band for --validate")
	fitCmd.Flags().IntVar(&fitLineup, "lineup", 0, "hide the data among N fitted-model draws in a panel grid")
}
