package wireframe

import (
	"io"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// fileFormat is the on-disk YAML layout. Points are written as [x, y, z]
// triples to keep files hand-editable.
type fileFormat struct {
	Vertices [][3]float64 `yaml:"vertices"`
	Edges    [][2]int     `yaml:"edges"`
	Excluded []int        `yaml:"excluded,omitempty"`
}

// Load decodes a YAML wireframe.
func Load(r io.Reader) (*Wireframe, error) {
	var f fileFormat
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, errors.Wrap(err, "wireframe: decode yaml")
	}
	w := New()
	for _, p := range f.Vertices {
		w.Vertices = append(w.Vertices, v3.Vec{X: p[0], Y: p[1], Z: p[2]})
	}
	w.Edges = f.Edges
	w.Excluded = f.Excluded
	return w, nil
}

// Save encodes w as YAML.
func Save(out io.Writer, w *Wireframe) error {
	f := fileFormat{Edges: w.Edges, Excluded: w.Excluded}
	for _, p := range w.Vertices {
		f.Vertices = append(f.Vertices, [3]float64{p.X, p.Y, p.Z})
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(&f); err != nil {
		return errors.Wrap(err, "wireframe: encode yaml")
	}
	return errors.Wrap(enc.Close(), "wireframe: close yaml encoder")
}
