// Package sdfx implements kernel.Exporter using the
// github.com/deadsy/sdfx render package.
package sdfx

import (
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/pkg/errors"

	"github.com/chazu/swiftblock/pkg/kernel"
)

// Compile-time interface check.
var _ kernel.Exporter = (*STLExporter)(nil)

// STLExporter writes meshes as a single STL file.
type STLExporter struct {
	// Scale multiplies every coordinate, e.g. convertToMeters.
	Scale float64
}

// New returns an exporter with unit scale.
func New() *STLExporter {
	return &STLExporter{Scale: 1}
}

// Triangles converts meshes to sdfx triangles, applying scale.
func Triangles(scale float64, meshes ...*kernel.Mesh) []*sdf.Triangle3 {
	if scale == 0 {
		scale = 1
	}
	var out []*sdf.Triangle3
	for _, m := range meshes {
		for i := 0; i < m.TriangleCount(); i++ {
			t := m.Triangle(i)
			for j := range t {
				t[j] = t[j].MulScalar(scale)
			}
			out = append(out, &t)
		}
	}
	return out
}

// Export writes all meshes to one STL file at path.
func (e *STLExporter) Export(path string, meshes ...*kernel.Mesh) error {
	tris := Triangles(e.Scale, meshes...)
	if len(tris) == 0 {
		return errors.Errorf("sdfx: nothing to export to %s", path)
	}
	return errors.Wrapf(render.SaveSTL(path, tris), "sdfx: save %s", path)
}

// Bounds returns the axis-aligned box around the meshes.
func Bounds(meshes ...*kernel.Mesh) sdf.Box3 {
	var b sdf.Box3
	first := true
	for _, m := range meshes {
		for i := 0; i+2 < len(m.Vertices); i += 3 {
			p := v3.Vec{X: float64(m.Vertices[i]), Y: float64(m.Vertices[i+1]), Z: float64(m.Vertices[i+2])}
			if first {
				b = sdf.Box3{Min: p, Max: p}
				first = false
				continue
			}
			b.Min = b.Min.Min(p)
			b.Max = b.Max.Max(p)
		}
	}
	return b
}
