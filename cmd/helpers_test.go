package cmd

import (
	"os"
	"path/filepath"
	"testing"

	cfgpkg "github.com/fernfield/pointpat-cli/internal/config"
)

func testConfig() *cfgpkg.Global {
	return &cfgpkg.Global{
		Delimiter:    ";",
		XColumn:      "x",
		YColumn:      "y",
		MarkColumn:   "species",
		ScaleDivisor: 100,
		Unit:         "metres",
		WindowXMax:   15,
		WindowYMax:   10,
		GridNX:       64,
		GridNY:       64,
		QuadratNX:    5,
		QuadratNY:    5,
		Sims:         15,
	}
}

func writeTable(t *testing.T, rows string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ants.csv")
	if err := os.WriteFile(path, []byte(rows), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadPatternScalesAndDedups(t *testing.T) {
	cfg = testConfig()
	path := writeTable(t, "x;y;species\n120;340;messor\n120;340;messor\n500;500;cataglyphis\n")

	p, tbl, err := loadPattern(path, &inputFlags{})
	if err != nil {
		t.Fatalf("loadPattern: %v", err)
	}
	if tbl.Rows != 3 {
		t.Fatalf("rows = %d, want 3", tbl.Rows)
	}
	// duplicate row dropped, coordinates divided by 100
	if p.N() != 2 {
		t.Fatalf("N = %d, want 2 after dedup", p.N())
	}
	if got := p.At(0); got.X != 1.2 || got.Y != 3.4 {
		t.Fatalf("point 0 = (%g, %g), want (1.2, 3.4)", got.X, got.Y)
	}
	if !p.Marked() {
		t.Fatal("expected a marked pattern")
	}
}

func TestLoadPatternMarkSubsetAndUnmarked(t *testing.T) {
	cfg = testConfig()
	path := writeTable(t, "x;y;species\n100;100;messor\n200;200;cataglyphis\n300;300;messor\n")

	p, _, err := loadPattern(path, &inputFlags{mark: "messor"})
	if err != nil {
		t.Fatalf("loadPattern: %v", err)
	}
	if p.N() != 2 {
		t.Fatalf("messor subset N = %d, want 2", p.N())
	}

	p, _, err = loadPattern(path, &inputFlags{markColumn: "none"})
	if err != nil {
		t.Fatalf("loadPattern unmarked: %v", err)
	}
	if p.Marked() {
		t.Fatal("mark-column none should give an unmarked pattern")
	}
}

func TestLoadPatternOutsideWindow(t *testing.T) {
	cfg = testConfig()
	// 2000/100 = 20 exceeds the 15 m window
	path := writeTable(t, "x;y;species\n2000;100;messor\n")
	if _, _, err := loadPattern(path, &inputFlags{}); err == nil {
		t.Fatal("expected out-of-window error")
	}
}

func TestLoaderOptionsOverrides(t *testing.T) {
	cfg = testConfig()
	opt, err := loaderOptions(&inputFlags{delimiter: "tab", xColumn: "lon", scale: 1})
	if err != nil {
		t.Fatalf("loaderOptions: %v", err)
	}
	if opt.Delimiter != '\t' || opt.XColumn != "lon" || opt.ScaleDivisor != 1 {
		t.Fatalf("overrides not applied: %+v", opt)
	}
	if opt.YColumn != "y" || opt.MarkColumn != "species" {
		t.Fatalf("config defaults lost: %+v", opt)
	}
	if _, err := loaderOptions(&inputFlags{delimiter: "|"}); err == nil {
		t.Fatal("expected error for unsupported delimiter")
	}
}

func TestOutPathCreatesDir(t *testing.T) {
	cfg = testConfig()
	cfg.OutputDir = filepath.Join(t.TempDir(), "plots")
	p, err := outPath("density.png")
	if err != nil {
		t.Fatalf("outPath: %v", err)
	}
	if filepath.Dir(p) != cfg.OutputDir {
		t.Fatalf("path %s not under %s", p, cfg.OutputDir)
	}
	if _, err := os.Stat(cfg.OutputDir); err != nil {
		t.Fatalf("output dir not created: %v", err)
	}
}

func TestStem(t *testing.T) {
	if got := stem("/data/ants_full.csv"); got != "ants_full" {
		t.Fatalf("stem = %q, want %q", got, "ants_full")
	}
}
