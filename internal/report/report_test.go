package report

import (
	"strings"
	"testing"
)

func TestBuilderSectionsAndArtifacts(t *testing.T) {
	r := New("quadrat test")
	r.Section("test")
	r.KV("Statistic", "%.2f", 12.5)
	r.Artifact("plots/ants_quadrat.png")
	out := r.String()

	if !strings.HasPrefix(out, "[QUADRAT TEST]\n") {
		t.Fatalf("missing operation header:\n%s", out)
	}
	if !strings.Contains(out, "Run: "+r.RunID()) {
		t.Fatal("missing run id line")
	}
	if !strings.Contains(out, "[TEST]") {
		t.Fatal("missing section tag")
	}
	if !strings.Contains(out, "Statistic:") || !strings.Contains(out, "12.50") {
		t.Fatalf("missing key/value line:\n%s", out)
	}
	if !strings.Contains(out, "[ARTIFACTS]\n- plots/ants_quadrat.png") {
		t.Fatalf("missing artifact listing:\n%s", out)
	}
}

func TestBuilderNoArtifactsOmitsListing(t *testing.T) {
	r := New("pattern summary")
	if strings.Contains(r.String(), "[ARTIFACTS]") {
		t.Fatal("artifact section should be absent with no artifacts")
	}
}

func TestRunIDsDiffer(t *testing.T) {
	if New("a").RunID() == New("a").RunID() {
		t.Fatal("run ids should be unique per builder")
	}
}
