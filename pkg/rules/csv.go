package rules

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadCSV parses one rule per line: species_i,species_j,min_dist,max_dist.
// There is no header. A line with the wrong number of fields or an
// unparsable distance fails the whole read.
func ReadCSV(r io.Reader) (RuleSet, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var rs RuleSet
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return rs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading rules: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if len(rec) != 4 {
			return nil, fmt.Errorf("line %d: want 4 fields, got %d: %w", line, len(rec), ErrMalformedRule)
		}
		lo, err := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: min_dist: %v: %w", line, err, ErrMalformedRule)
		}
		hi, err := strconv.ParseFloat(strings.TrimSpace(rec[3]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: max_dist: %v: %w", line, err, ErrMalformedRule)
		}
		rule, err := New(strings.TrimSpace(rec[0]), strings.TrimSpace(rec[1]), lo, hi)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rs = append(rs, rule)
	}
}

// WriteCSV writes rs in the format read by ReadCSV. Distances are written
// with full precision so that a round trip is lossless.
func WriteCSV(w io.Writer, rs RuleSet) error {
	cw := csv.NewWriter(w)
	for _, r := range rs {
		rec := []string{
			r.SpeciesI,
			r.SpeciesJ,
			strconv.FormatFloat(r.MinDist, 'g', -1, 64),
			strconv.FormatFloat(r.MaxDist, 'g', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// LoadFile reads a rule CSV file.
func LoadFile(path string) (RuleSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	rs, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rs, nil
}
