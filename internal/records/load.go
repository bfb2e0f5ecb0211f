package records

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"
)

// LoadError reports a dataset that could not be fetched or parsed. While a
// load error is outstanding nothing is rendered.
type LoadError struct {
	Source string
	Line   int
	Err    error
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("load %s: line %d: %v", e.Source, e.Line, e.Err)
	}
	return fmt.Sprintf("load %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// column identifiers after header normalization.
const (
	colDistrict   = "district"
	colCompany    = "company"
	colStructural = "structural"
	colVehicle    = "vehicle"
	colOther      = "other"
	colCompleted  = "checklistscompleted"
)

var requiredColumns = []string{colDistrict, colCompany, colStructural, colVehicle, colOther, colCompleted}

// LoadFile reads a CSV dataset from disk.
func LoadFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}
	defer f.Close()
	recs, err := LoadCSV(path, f)
	if err != nil {
		return nil, err
	}
	return NewStore(path, recs), nil
}

// LoadCSV parses checklist rows. Header names are matched ignoring case,
// spaces and punctuation, so "Checklists-Completed" and "Checklists Completed"
// both resolve to the same column.
func LoadCSV(source string, r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &LoadError{Source: source, Err: errors.New("empty dataset")}
		}
		return nil, &LoadError{Source: source, Line: 1, Err: err}
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[normalizeColumn(name)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, &LoadError{Source: source, Line: 1, Err: fmt.Errorf("missing column %q", col)}
		}
	}

	var out []Record
	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, &LoadError{Source: source, Line: line, Err: err}
		}
		rec, err := parseRow(row, index)
		if err != nil {
			return nil, &LoadError{Source: source, Line: line, Err: err}
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseRow(row []string, index map[string]int) (Record, error) {
	var rec Record
	var err error
	if rec.District, err = parseCount(row[index[colDistrict]], colDistrict); err != nil {
		return rec, err
	}
	rec.Company = strings.TrimSpace(row[index[colCompany]])
	if rec.Structural, err = parseCount(row[index[colStructural]], colStructural); err != nil {
		return rec, err
	}
	if rec.Vehicle, err = parseCount(row[index[colVehicle]], colVehicle); err != nil {
		return rec, err
	}
	if rec.Other, err = parseCount(row[index[colOther]], colOther); err != nil {
		return rec, err
	}
	if rec.ChecklistsCompleted, err = parseCount(row[index[colCompleted]], colCompleted); err != nil {
		return rec, err
	}
	return rec, nil
}

// parseCount coerces a numeric cell; a blank cell counts as zero.
func parseCount(raw, column string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, fmt.Errorf("column %s: invalid number %q", column, raw)
		}
		n = int(f)
	}
	return n, nil
}

func normalizeColumn(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
