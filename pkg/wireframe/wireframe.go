package wireframe

import (
	"sort"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// WeldTolerance is the distance under which AddVertex reuses an existing
// vertex instead of appending a new one.
const WeldTolerance = 1e-9

// Wireframe is a raw vertex/edge graph without face or cell information.
// Vertex indices are dense and 0-based.
type Wireframe struct {
	Vertices []v3.Vec `json:"vertices" yaml:"vertices"`
	Edges    [][2]int `json:"edges" yaml:"edges"`
	Excluded []int    `json:"excluded,omitempty" yaml:"excluded,omitempty"`
}

// New creates an empty wireframe.
func New() *Wireframe {
	return &Wireframe{}
}

// AddVertex appends a vertex and returns its index. A position within
// WeldTolerance of an existing vertex returns that vertex instead.
func (w *Wireframe) AddVertex(p v3.Vec) int {
	for i, q := range w.Vertices {
		if p.Sub(q).Length() < WeldTolerance {
			return i
		}
	}
	w.Vertices = append(w.Vertices, p)
	return len(w.Vertices) - 1
}

// AddEdge connects a and b. Connecting an already connected pair is a no-op
// and reports false.
func (w *Wireframe) AddEdge(a, b int) bool {
	if w.HasEdge(a, b) {
		return false
	}
	w.Edges = append(w.Edges, [2]int{a, b})
	return true
}

// HasEdge reports whether a and b are connected in either direction.
func (w *Wireframe) HasEdge(a, b int) bool {
	for _, e := range w.Edges {
		if (e[0] == a && e[1] == b) || (e[0] == b && e[1] == a) {
			return true
		}
	}
	return false
}

// Exclude marks vertices that may not take part in newly formed blocks.
func (w *Wireframe) Exclude(ids ...int) {
	seen := w.ExcludedSet()
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			w.Excluded = append(w.Excluded, id)
		}
	}
	sort.Ints(w.Excluded)
}

// ExcludedSet returns the excluded vertices as a set.
func (w *Wireframe) ExcludedSet() map[int]bool {
	set := make(map[int]bool, len(w.Excluded))
	for _, id := range w.Excluded {
		set[id] = true
	}
	return set
}

// EdgeLength returns the straight-line length between two vertices.
func (w *Wireframe) EdgeLength(a, b int) float64 {
	return w.Vertices[a].Sub(w.Vertices[b]).Length()
}

// Clone returns a deep copy.
func (w *Wireframe) Clone() *Wireframe {
	c := &Wireframe{
		Vertices: append([]v3.Vec(nil), w.Vertices...),
		Edges:    append([][2]int(nil), w.Edges...),
		Excluded: append([]int(nil), w.Excluded...),
	}
	return c
}

// VertexCount returns the number of vertices.
func (w *Wireframe) VertexCount() int {
	return len(w.Vertices)
}

// EdgeCount returns the number of edges.
func (w *Wireframe) EdgeCount() int {
	return len(w.Edges)
}
