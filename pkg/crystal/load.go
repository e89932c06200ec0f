package crystal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/ritzau/crystal-bonds/pkg/geometry"
	"gonum.org/v1/gonum/spatial/r3"
)

// file is the on-disk TOML layout:
//
//	name = "water"
//	species = ["O", "H", "H"]
//	frac = [[0.5, 0.5, 0.5], ...]
//	[box]
//	vectors = [[10, 0, 0], [0, 10, 0], [0, 0, 10]]
//	periodic = [true, true, true]
type file struct {
	Name    string       `toml:"name"`
	Species []string     `toml:"species"`
	Frac    [][3]float64 `toml:"frac"`
	Box     struct {
		Vectors  [3][3]float64 `toml:"vectors"`
		Periodic *[3]bool      `toml:"periodic"`
	} `toml:"box"`
}

// Parse decodes a crystal description. fallbackName is used when the
// document has no name.
func Parse(data []byte, fallbackName string) (*Crystal, error) {
	var f file
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing crystal: %w", err)
	}
	name := f.Name
	if name == "" {
		name = fallbackName
	}

	v := f.Box.Vectors
	box, err := geometry.NewBox(
		r3.Vec{X: v[0][0], Y: v[0][1], Z: v[0][2]},
		r3.Vec{X: v[1][0], Y: v[1][1], Z: v[1][2]},
		r3.Vec{X: v[2][0], Y: v[2][1], Z: v[2][2]},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if f.Box.Periodic != nil {
		box.Periodic = *f.Box.Periodic
	}

	frac := make([]r3.Vec, len(f.Frac))
	for i, p := range f.Frac {
		frac[i] = r3.Vec{X: p[0], Y: p[1], Z: p[2]}
	}
	return New(name, f.Species, frac, box)
}

// Load reads a crystal from a TOML file. The crystal is named after the
// file when the document has no name.
func Load(path string) (*Crystal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Parse(data, base)
}
