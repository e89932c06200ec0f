package bondgraph

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrMalformedBond is returned for a bond list line that cannot be parsed.
var ErrMalformedBond = errors.New("malformed bond line")

// ReadCSV adds the bonds listed in r to g. Each line is "i,j" or
// "i,j,type" with 0-based atom indices. Imported bonds carry no coordinate
// context, so their distance and boundary flags stay unknown.
// It returns the number of bonds added.
func ReadCSV(r io.Reader, g *Graph) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	added := 0
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return added, nil
		}
		if err != nil {
			return added, fmt.Errorf("reading bond list: %w", err)
		}
		if len(rec) != 2 && len(rec) != 3 {
			return added, fmt.Errorf("line %d: want 2 or 3 fields, got %d: %w", line, len(rec), ErrMalformedBond)
		}
		i, err := strconv.Atoi(strings.TrimSpace(rec[0]))
		if err != nil {
			return added, fmt.Errorf("line %d: %v: %w", line, err, ErrMalformedBond)
		}
		j, err := strconv.Atoi(strings.TrimSpace(rec[1]))
		if err != nil {
			return added, fmt.Errorf("line %d: %v: %w", line, err, ErrMalformedBond)
		}
		typ := Single
		if len(rec) == 3 {
			typ = BondType(strings.TrimSpace(rec[2]))
		}
		ok, err := g.MakeBond(i, j, nil, nil, typ)
		if err != nil {
			return added, fmt.Errorf("line %d: %w", line, err)
		}
		if ok {
			added++
		}
	}
}
