// Package model fits log-linear intensity models to point patterns: plain
// and polynomial Poisson processes, covariate-driven intensities, and a
// Thomas cluster variant. Fitted models expose predicted surfaces, residual
// diagnostics and simulation.
package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Formula specifies the linear predictor of a log-linear intensity model:
// a full polynomial in the coordinates up to Degree, plus the named covariate
// surfaces entering linearly. Degree 0 with no covariates is the
// intercept-only (homogeneous Poisson) model.
type Formula struct {
	Degree     int
	Covariates []string
}

// InvalidFormulaError indicates a malformed predictor specification.
type InvalidFormulaError struct {
	Spec   string
	Reason string
}

func (e *InvalidFormulaError) Error() string {
	return fmt.Sprintf("invalid formula %q: %s", e.Spec, e.Reason)
}

// UnknownCovariateError indicates a covariate term with no matching surface.
type UnknownCovariateError struct {
	Name string
}

func (e *UnknownCovariateError) Error() string {
	return fmt.Sprintf("unknown covariate %q: no such surface was supplied", e.Name)
}

// ParseFormula parses a predictor specification of the form
//
//	1                   intercept only
//	poly2               full polynomial in x, y of degree 2
//	poly1+cov:elev      degree-1 trend plus the covariate surface "elev"
//	cov:elev+cov:soil   covariates only
func ParseFormula(spec string) (Formula, error) {
	s := strings.TrimSpace(spec)
	if s == "" || s == "1" {
		return Formula{}, nil
	}
	var f Formula
	for _, term := range strings.Split(s, "+") {
		term = strings.TrimSpace(term)
		switch {
		case term == "1":
			// intercept is always present
		case strings.HasPrefix(term, "poly"):
			d, err := strconv.Atoi(strings.TrimPrefix(term, "poly"))
			if err != nil || d < 1 {
				return Formula{}, &InvalidFormulaError{Spec: spec, Reason: fmt.Sprintf("bad polynomial term %q", term)}
			}
			if f.Degree != 0 {
				return Formula{}, &InvalidFormulaError{Spec: spec, Reason: "multiple polynomial terms"}
			}
			f.Degree = d
		case strings.HasPrefix(term, "cov:"):
			name := strings.TrimSpace(strings.TrimPrefix(term, "cov:"))
			if name == "" {
				return Formula{}, &InvalidFormulaError{Spec: spec, Reason: "empty covariate name"}
			}
			f.Covariates = append(f.Covariates, name)
		default:
			return Formula{}, &InvalidFormulaError{Spec: spec, Reason: fmt.Sprintf("unrecognised term %q", term)}
		}
	}
	return f, nil
}

// TermNames lists the design-matrix column names in order: intercept, the
// polynomial terms grouped by total degree, then the covariates.
func (f Formula) TermNames() []string {
	names := []string{"(intercept)"}
	for d := 1; d <= f.Degree; d++ {
		for px := d; px >= 0; px-- {
			names = append(names, polyName(px, d-px))
		}
	}
	names = append(names, f.Covariates...)
	return names
}

// NTerms returns the number of design-matrix columns.
func (f Formula) NTerms() int {
	// Full polynomial of degree d has (d+1)(d+2)/2 - 1 non-constant terms.
	return 1 + (f.Degree+1)*(f.Degree+2)/2 - 1 + len(f.Covariates)
}

func polyName(px, py int) string {
	var parts []string
	switch {
	case px == 1:
		parts = append(parts, "x")
	case px > 1:
		parts = append(parts, fmt.Sprintf("x^%d", px))
	}
	switch {
	case py == 1:
		parts = append(parts, "y")
	case py > 1:
		parts = append(parts, fmt.Sprintf("y^%d", py))
	}
	return strings.Join(parts, "*")
}
