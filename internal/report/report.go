// Package report assembles the plain-text run report printed after each
// analysis: section-tagged summaries of patterns, tests and fits, plus a run
// identifier tying console output to the plot files it produced.
package report

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Builder accumulates a run report. Each run carries a fresh UUID so output
// files and console summaries from successive runs can be told apart.
type Builder struct {
	runID     string
	b         strings.Builder
	artifacts []string
}

// New returns a Builder for the named operation.
func New(operation string) *Builder {
	r := &Builder{runID: uuid.NewString()}
	fmt.Fprintf(&r.b, "[%s]\n", strings.ToUpper(operation))
	fmt.Fprintf(&r.b, "Run: %s\n", r.runID)
	return r
}

// RunID returns the run identifier.
func (r *Builder) RunID() string { return r.runID }

// Section starts a new tagged section.
func (r *Builder) Section(name string) {
	fmt.Fprintf(&r.b, "\n[%s]\n", strings.ToUpper(name))
}

// Line appends a formatted line.
func (r *Builder) Line(format string, args ...any) {
	fmt.Fprintf(&r.b, format+"\n", args...)
}

// KV appends an aligned key/value line.
func (r *Builder) KV(key string, format string, args ...any) {
	fmt.Fprintf(&r.b, "%-22s %s\n", key+":", fmt.Sprintf(format, args...))
}

// Artifact records an output file written during the run.
func (r *Builder) Artifact(path string) {
	r.artifacts = append(r.artifacts, path)
}

// String renders the report, ending with the artifact listing when any
// outputs were written.
func (r *Builder) String() string {
	out := r.b.String()
	if len(r.artifacts) > 0 {
		var a strings.Builder
		a.WriteString("\n[ARTIFACTS]\n")
		for _, p := range r.artifacts {
			fmt.Fprintf(&a, "- %s\n", p)
		}
		out += a.String()
	}
	return out
}
