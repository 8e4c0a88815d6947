package kernel

import (
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Mesh is a triangle mesh suitable for preview and export.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	Name     string    `json:"name"`     // patch or surface the mesh came from
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// AddTriangle appends one flat-shaded triangle.
func (m *Mesh) AddTriangle(t sdf.Triangle3) {
	n := t.Normal()
	base := uint32(m.VertexCount())
	for j := 0; j < 3; j++ {
		m.Vertices = append(m.Vertices, float32(t[j].X), float32(t[j].Y), float32(t[j].Z))
		m.Normals = append(m.Normals, float32(n.X), float32(n.Y), float32(n.Z))
		m.Indices = append(m.Indices, base+uint32(j))
	}
}

// AddQuad splits a planar or near-planar quad along its 0-2 diagonal into
// two triangles that keep its winding.
func (m *Mesh) AddQuad(q [4]v3.Vec) {
	m.AddTriangle(sdf.Triangle3{q[0], q[1], q[2]})
	m.AddTriangle(sdf.Triangle3{q[0], q[2], q[3]})
}

// Triangle returns triangle i.
func (m *Mesh) Triangle(i int) sdf.Triangle3 {
	var t sdf.Triangle3
	for j := 0; j < 3; j++ {
		k := int(m.Indices[i*3+j]) * 3
		t[j] = v3.Vec{X: float64(m.Vertices[k]), Y: float64(m.Vertices[k+1]), Z: float64(m.Vertices[k+2])}
	}
	return t
}

// Append adds the triangles of o to m.
func (m *Mesh) Append(o *Mesh) {
	base := uint32(m.VertexCount())
	m.Vertices = append(m.Vertices, o.Vertices...)
	m.Normals = append(m.Normals, o.Normals...)
	for _, i := range o.Indices {
		m.Indices = append(m.Indices, base+i)
	}
}
