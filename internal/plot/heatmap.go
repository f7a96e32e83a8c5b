package plot

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"

	"github.com/fernfield/pointpat-cli/internal/estimate"
	"github.com/fernfield/pointpat-cli/internal/pattern"
)

// viridis-like control points, dark blue through green to yellow.
var rampStops = []color.RGBA{
	{R: 68, G: 1, B: 84, A: 255},
	{R: 59, G: 82, B: 139, A: 255},
	{R: 33, G: 145, B: 140, A: 255},
	{R: 94, G: 201, B: 98, A: 255},
	{R: 253, G: 231, B: 37, A: 255},
}

var maskColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Heatmap renders a surface as a PNG raster, one pixel block per grid cell,
// mapping finite values linearly onto the colour ramp. Masked (NaN) cells
// render white.
func Heatmap(path string, s *estimate.Surface) error {
	img, err := surfaceImage(s, 4)
	if err != nil {
		return err
	}
	return writePNG(path, img)
}

// ResidualMap renders a residual surface with a symmetric scale around zero
// so under- and over-prediction are visually comparable.
func ResidualMap(path string, s *estimate.Surface) error {
	limit := math.Max(math.Abs(s.Min()), math.Abs(s.Max()))
	if limit == 0 {
		limit = 1
	}
	img := renderCells(s, 4, -limit, limit)
	return writePNG(path, img)
}

// LineupGrid renders lineup panels as a tiled grid image. The real pattern's
// position is deliberately not marked; the caller reports it separately.
func LineupGrid(path string, surfaces []*estimate.Surface, columns int) error {
	if len(surfaces) == 0 {
		return fmt.Errorf("lineup grid: no panels")
	}
	if columns < 1 {
		columns = 4
	}
	const gap = 4
	panels := make([]image.Image, len(surfaces))
	var pw, ph int
	for i, s := range surfaces {
		img, err := surfaceImage(s, 2)
		if err != nil {
			return fmt.Errorf("lineup panel %d: %w", i, err)
		}
		panels[i] = img
		pw = img.Bounds().Dx()
		ph = img.Bounds().Dy()
	}
	rows := (len(panels) + columns - 1) / columns
	out := image.NewRGBA(image.Rect(0, 0, columns*pw+(columns+1)*gap, rows*ph+(rows+1)*gap))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	for i, p := range panels {
		cx := i % columns
		cy := i / columns
		origin := image.Pt(gap+cx*(pw+gap), gap+cy*(ph+gap))
		draw.Draw(out, image.Rectangle{Min: origin, Max: origin.Add(image.Pt(pw, ph))}, p, p.Bounds().Min, draw.Src)
	}
	return writePNG(path, out)
}

// Points renders the point locations of a pattern over its window, a plain
// dot map for quick inspection.
func Points(path string, p *pattern.Pattern[string]) error {
	const scale = 40
	b := p.Window().Bounds()
	w := int(math.Ceil((b.XMax - b.XMin) * scale))
	h := int(math.Ceil((b.YMax - b.YMin) * scale))
	if w < 1 || h < 1 {
		return fmt.Errorf("point map: window has no extent")
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	dot := color.RGBA{R: 30, G: 30, B: 30, A: 255}
	for _, pt := range p.Points() {
		px := int((pt.X - b.XMin) * scale)
		// Image rows grow downward; flip y so north stays up.
		py := h - 1 - int((pt.Y-b.YMin)*scale)
		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				x, y := px+dx, py+dy
				if x >= 0 && x < w && y >= 0 && y < h {
					img.SetRGBA(x, y, dot)
				}
			}
		}
	}
	return writePNG(path, img)
}

func surfaceImage(s *estimate.Surface, blockSize int) (image.Image, error) {
	lo, hi := s.Min(), s.Max()
	if math.IsInf(lo, 1) {
		return nil, fmt.Errorf("heatmap: surface has no finite values")
	}
	if hi <= lo {
		hi = lo + 1
	}
	return renderCells(s, blockSize, lo, hi), nil
}

func renderCells(s *estimate.Surface, blockSize int, lo, hi float64) *image.RGBA {
	w, h := s.NX*blockSize, s.NY*blockSize
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for iy := 0; iy < s.NY; iy++ {
		for ix := 0; ix < s.NX; ix++ {
			v := s.Get(ix, iy)
			var c color.RGBA
			if math.IsNaN(v) {
				c = maskColor
			} else {
				c = rampColor((v - lo) / (hi - lo))
			}
			// Flip y so the image matches map orientation.
			y0 := (s.NY - 1 - iy) * blockSize
			for py := 0; py < blockSize; py++ {
				for px := 0; px < blockSize; px++ {
					img.SetRGBA(ix*blockSize+px, y0+py, c)
				}
			}
		}
	}
	return img
}

func rampColor(t float64) color.RGBA {
	if math.IsNaN(t) {
		return maskColor
	}
	t = math.Max(0, math.Min(1, t))
	seg := t * float64(len(rampStops)-1)
	i := int(seg)
	if i >= len(rampStops)-1 {
		return rampStops[len(rampStops)-1]
	}
	f := seg - float64(i)
	a, b := rampStops[i], rampStops[i+1]
	lerp := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + f*(float64(y)-float64(x))))
	}
	return color.RGBA{R: lerp(a.R, b.R), G: lerp(a.G, b.G), B: lerp(a.B, b.B), A: 255}
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create plot file: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}
