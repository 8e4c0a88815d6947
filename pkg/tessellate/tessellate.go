// Package tessellate turns a block model's boundary patches into triangle
// meshes for preview. One mesh is produced per patch.
package tessellate

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/pkg/errors"

	"github.com/chazu/swiftblock/pkg/blockmesh"
	"github.com/chazu/swiftblock/pkg/kernel"
)

// ErrMissingVertex is returned for patch faces that reference vertices
// outside the model.
var ErrMissingVertex = errors.New("tessellate: face references a missing vertex")

// Patches produces one mesh per non-empty patch of m, in patch order.
// Coordinates are scaled by the model's convertToMeters. Tessellate is
// read-only and never mutates the model.
func Patches(m *blockmesh.Model) ([]*kernel.Mesh, error) {
	if m == nil {
		return nil, nil
	}
	scale := m.ConvertToMeters
	if scale == 0 {
		scale = 1
	}

	var meshes []*kernel.Mesh
	for _, p := range m.Patches {
		if len(p.Faces) == 0 {
			continue
		}
		mesh, err := patchMesh(m.Vertices, &p, scale)
		if err != nil {
			return nil, errors.Wrapf(err, "tessellate: patch %s", p.Name)
		}
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}

func patchMesh(verts []v3.Vec, p *blockmesh.BoundaryPatch, scale float64) (*kernel.Mesh, error) {
	mesh := &kernel.Mesh{Name: p.Name}
	for _, f := range p.Faces {
		var q [4]v3.Vec
		for i, v := range f {
			if v < 0 || v >= len(verts) {
				return nil, errors.Wrapf(ErrMissingVertex, "face %v vertex %d", f, v)
			}
			q[i] = verts[v].MulScalar(scale)
		}
		mesh.AddQuad(q)
	}
	return mesh, nil
}

// Merged returns every patch as a single mesh named name.
func Merged(m *blockmesh.Model, name string) (*kernel.Mesh, error) {
	meshes, err := Patches(m)
	if err != nil {
		return nil, err
	}
	out := &kernel.Mesh{Name: name}
	for _, mesh := range meshes {
		out.Append(mesh)
	}
	return out, nil
}
