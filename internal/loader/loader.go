// Package loader reads delimited coordinate tables into parallel slices
// ready for point-pattern construction. Coordinates are rescaled from survey
// units to the target unit on the way in.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Options controls table reading.
type Options struct {
	// Delimiter for the table. If 0, auto-detects among ';', ',' and '\t'
	// from the header line.
	Delimiter rune
	// Column names, matched case-insensitively. MarkColumn may be empty for
	// unmarked data.
	XColumn, YColumn, MarkColumn string
	// Covariates names extra numeric columns to load alongside coordinates.
	Covariates []string
	// ScaleDivisor divides raw coordinates to convert units, e.g. 100 for
	// centimetres to metres. Values <= 0 mean no rescaling.
	ScaleDivisor float64
	// DecimalSeparator for numeric parsing. If 0, both '.' and ',' are
	// accepted per value.
	DecimalSeparator rune
	// MaxRows limits rows processed; 0 means unlimited.
	MaxRows int
}

// DefaultOptions returns the conventions of the field survey files this tool
// was written for: semicolon-delimited, centimetre coordinates.
func DefaultOptions() Options {
	return Options{
		Delimiter:    ';',
		XColumn:      "x",
		YColumn:      "y",
		MarkColumn:   "species",
		ScaleDivisor: 100,
	}
}

// Table holds a parsed coordinate table.
type Table struct {
	Name string
	Rows int
	X, Y []float64
	// Marks is nil when no mark column was requested.
	Marks []string
	// Covariates maps requested column name to its numeric values.
	Covariates map[string][]float64
	Warnings   []string
}

// MissingColumnError indicates a requested column absent from the header.
type MissingColumnError struct {
	Column string
	Header []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("column %q not found in header (have: %s)", e.Column, strings.Join(e.Header, ", "))
}

// ReadTable streams a delimited file with a required header row and returns
// the parsed columns. Any unparseable coordinate aborts the read.
func ReadTable(path string, opt Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()
	return readTable(f, baseName(path), opt)
}

func readTable(f io.Reader, name string, opt Options) (*Table, error) {
	r := csv.NewReader(f)
	r.ReuseRecord = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	if opt.Delimiter != 0 {
		r.Comma = opt.Delimiter
	}

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if opt.Delimiter == 0 && len(header) == 1 {
		return nil, fmt.Errorf("read header: no delimiter found in %q", header[0])
	}

	colIndex := make(map[string]int, len(header))
	for i, h := range header {
		colIndex[strings.ToLower(strings.TrimSpace(h))] = i
	}
	lookup := func(name string) (int, error) {
		idx, ok := colIndex[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return 0, &MissingColumnError{Column: name, Header: header}
		}
		return idx, nil
	}

	xi, err := lookup(opt.XColumn)
	if err != nil {
		return nil, err
	}
	yi, err := lookup(opt.YColumn)
	if err != nil {
		return nil, err
	}
	mi := -1
	if opt.MarkColumn != "" {
		if mi, err = lookup(opt.MarkColumn); err != nil {
			return nil, err
		}
	}
	covIdx := make(map[string]int, len(opt.Covariates))
	for _, c := range opt.Covariates {
		idx, err := lookup(c)
		if err != nil {
			return nil, err
		}
		covIdx[c] = idx
	}

	tab := &Table{Name: name}
	if mi >= 0 {
		tab.Marks = []string{}
	}
	if len(covIdx) > 0 {
		tab.Covariates = make(map[string][]float64, len(covIdx))
	}
	scale := opt.ScaleDivisor
	if scale <= 0 {
		scale = 1
	}
	maxRows := opt.MaxRows

	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", tab.Rows+1, err)
		}
		tab.Rows++
		if maxRows > 0 && tab.Rows > maxRows {
			tab.Warnings = append(tab.Warnings, fmt.Sprintf("stopped after %d rows (max_rows)", maxRows))
			break
		}
		if len(rec) < len(header) {
			return nil, fmt.Errorf("row %d: %d fields, header has %d", tab.Rows, len(rec), len(header))
		}

		x, err := parseNumber(rec[xi], opt.DecimalSeparator)
		if err != nil {
			return nil, fmt.Errorf("row %d, column %q: %w", tab.Rows, opt.XColumn, err)
		}
		y, err := parseNumber(rec[yi], opt.DecimalSeparator)
		if err != nil {
			return nil, fmt.Errorf("row %d, column %q: %w", tab.Rows, opt.YColumn, err)
		}
		tab.X = append(tab.X, x/scale)
		tab.Y = append(tab.Y, y/scale)
		if mi >= 0 {
			tab.Marks = append(tab.Marks, strings.TrimSpace(rec[mi]))
		}
		for name, idx := range covIdx {
			v, err := parseNumber(rec[idx], opt.DecimalSeparator)
			if err != nil {
				return nil, fmt.Errorf("row %d, column %q: %w", tab.Rows, name, err)
			}
			tab.Covariates[name] = append(tab.Covariates[name], v)
		}
	}
	return tab, nil
}

// parseNumber parses a numeric cell, tolerating a comma decimal separator
// when no explicit separator is configured.
func parseNumber(s string, decimal rune) (float64, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, fmt.Errorf("empty numeric value")
	}
	switch decimal {
	case ',':
		raw = strings.ReplaceAll(raw, ",", ".")
	case 0:
		// Accept "3,25" when there is no '.' competing for the role.
		if strings.Contains(raw, ",") && !strings.Contains(raw, ".") {
			raw = strings.ReplaceAll(raw, ",", ".")
		}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}
	return v, nil
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}
