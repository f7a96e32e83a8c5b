// Package plot renders analysis artifacts to PNG files: summary-function
// curves with envelope bands, intensity heatmaps, and lineup panels. Every
// renderer takes an explicit output path; there is no shared plotting state.
package plot

import (
	"fmt"
	"os"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/fernfield/pointpat-cli/internal/estimate"
)

var (
	observedColor = chart.ColorRed
	theoryColor   = chart.ColorBlue
	bandColor     = drawing.Color{R: 128, G: 128, B: 128, A: 255}
)

// EnvelopeCurve renders the observed summary function against its
// theoretical curve and simulation band.
func EnvelopeCurve(path, title, yLabel string, env *estimate.EnvelopeResult) error {
	graph := chart.Chart{
		Title:  title,
		Width:  800,
		Height: 500,
		XAxis:  chart.XAxis{Name: "r"},
		YAxis:  chart.YAxis{Name: yLabel},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "upper envelope",
				XValues: env.R,
				YValues: env.Hi,
				Style:   chart.Style{StrokeColor: bandColor, StrokeWidth: 1.5},
			},
			chart.ContinuousSeries{
				Name:    "lower envelope",
				XValues: env.R,
				YValues: env.Lo,
				Style:   chart.Style{StrokeColor: bandColor, StrokeWidth: 1.5},
			},
			chart.ContinuousSeries{
				Name:    "theoretical",
				XValues: env.R,
				YValues: env.Theo,
				Style:   chart.Style{StrokeColor: theoryColor, StrokeWidth: 2, StrokeDashArray: []float64{4, 4}},
			},
			chart.ContinuousSeries{
				Name:    "observed",
				XValues: env.R,
				YValues: env.Obs,
				Style:   chart.Style{StrokeColor: observedColor, StrokeWidth: 2.5},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	return renderPNG(path, &graph)
}

// SummaryCurve renders an observed curve against its theoretical reference
// without an envelope.
func SummaryCurve(path, title, yLabel string, k *estimate.KResult) error {
	graph := chart.Chart{
		Title:  title,
		Width:  800,
		Height: 500,
		XAxis:  chart.XAxis{Name: "r"},
		YAxis:  chart.YAxis{Name: yLabel},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "theoretical",
				XValues: k.R,
				YValues: k.Theo,
				Style:   chart.Style{StrokeColor: theoryColor, StrokeWidth: 2, StrokeDashArray: []float64{4, 4}},
			},
			chart.ContinuousSeries{
				Name:    "observed",
				XValues: k.R,
				YValues: k.Obs,
				Style:   chart.Style{StrokeColor: observedColor, StrokeWidth: 2.5},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	return renderPNG(path, &graph)
}

// MarginalCurve renders a single-covariate effect curve.
func MarginalCurve(path, covariate string, xs, ys []float64) error {
	graph := chart.Chart{
		Title:  fmt.Sprintf("Intensity vs %s", covariate),
		Width:  800,
		Height: 500,
		XAxis:  chart.XAxis{Name: covariate},
		YAxis:  chart.YAxis{Name: "intensity"},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "fitted effect",
				XValues: xs,
				YValues: ys,
				Style:   chart.Style{StrokeColor: observedColor, StrokeWidth: 2.5},
			},
		},
	}
	return renderPNG(path, &graph)
}

func renderPNG(path string, graph *chart.Chart) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create plot file: %w", err)
	}
	defer f.Close()
	if err := graph.Render(chart.PNG, f); err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	return nil
}
