// Package kernel defines the host surface that block toggles are pushed to
// and the flat triangle mesh used for previews and export. Implementations
// of Exporter (sdfx) write meshes to files behind this interface.
package kernel

import (
	"sort"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/pkg/errors"
)

var (
	ErrFaceExists = errors.New("kernel: face already on surface")
	ErrNoFace     = errors.New("kernel: face not on surface")
)

// Surface is the host's active boundary surface. Faces are quads given as
// ordered vertex indices; the order defines the outward normal. RemoveFace
// matches by vertex set regardless of order.
type Surface interface {
	AddFace(verts [4]int) error
	RemoveFace(verts [4]int) error
	Faces() [][4]int
}

// Exporter writes meshes to path.
type Exporter interface {
	Export(path string, meshes ...*Mesh) error
}

// MemSurface is an in-memory Surface that keeps faces in insertion order.
type MemSurface struct {
	faces [][4]int
	index map[[4]int]int
}

// Compile-time interface check.
var _ Surface = (*MemSurface)(nil)

// NewMemSurface returns an empty surface.
func NewMemSurface() *MemSurface {
	return &MemSurface{index: make(map[[4]int]int)}
}

func quadKey(v [4]int) [4]int {
	sort.Ints(v[:])
	return v
}

// AddFace adds a face. Adding a vertex set twice is an error.
func (s *MemSurface) AddFace(verts [4]int) error {
	k := quadKey(verts)
	if _, ok := s.index[k]; ok {
		return errors.Wrapf(ErrFaceExists, "%v", verts)
	}
	s.index[k] = len(s.faces)
	s.faces = append(s.faces, verts)
	return nil
}

// RemoveFace removes the face with the same vertex set as verts.
func (s *MemSurface) RemoveFace(verts [4]int) error {
	k := quadKey(verts)
	i, ok := s.index[k]
	if !ok {
		return errors.Wrapf(ErrNoFace, "%v", verts)
	}
	s.faces = append(s.faces[:i], s.faces[i+1:]...)
	delete(s.index, k)
	for j := i; j < len(s.faces); j++ {
		s.index[quadKey(s.faces[j])] = j
	}
	return nil
}

// Faces returns a copy of the current faces.
func (s *MemSurface) Faces() [][4]int {
	return append([][4]int(nil), s.faces...)
}

// Len returns the number of faces.
func (s *MemSurface) Len() int {
	return len(s.faces)
}

// Contains reports whether a face with the vertex set of verts is present.
func (s *MemSurface) Contains(verts [4]int) bool {
	_, ok := s.index[quadKey(verts)]
	return ok
}

// ToMesh triangulates the surface using the given vertex positions.
func (s *MemSurface) ToMesh(name string, positions []v3.Vec) *Mesh {
	m := &Mesh{Name: name}
	for _, f := range s.faces {
		m.AddQuad([4]v3.Vec{positions[f[0]], positions[f[1]], positions[f[2]], positions[f[3]]})
	}
	return m
}
