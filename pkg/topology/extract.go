package topology

import (
	"fmt"
	"sort"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/pkg/errors"

	"github.com/chazu/swiftblock/pkg/wireframe"
)

// Input is the raw graph handed to Extract.
type Input struct {
	Positions []v3.Vec
	Edges     [][2]int
	// Excluded vertices may not join a newly formed block.
	Excluded map[int]bool
}

// InputFrom builds an extraction input from a wireframe.
func InputFrom(w *wireframe.Wireframe) Input {
	return Input{
		Positions: w.Vertices,
		Edges:     w.Edges,
		Excluded:  w.ExcludedSet(),
	}
}

// extraction holds the working state shared by the stages.
type extraction struct {
	in    Input
	adj   []map[int]bool
	log   []string
	edges []Edge
	index map[[2]int]EdgeID
}

func (x *extraction) logf(format string, args ...interface{}) {
	x.log = append(x.log, fmt.Sprintf(format, args...))
}

func (x *extraction) connected(a, b int) bool {
	return x.adj[a][b]
}

// Extract reconstructs blocks, faces and edge groups from in. Running it
// twice on the same input yields identical results.
//
// When no block can be formed the returned topology is empty and the error
// is a *TopologyError wrapping ErrNoBlocks.
func Extract(in Input) (*Topology, error) {
	x := &extraction{
		in:    in,
		adj:   make([]map[int]bool, len(in.Positions)),
		index: make(map[[2]int]EdgeID),
	}
	for i := range x.adj {
		x.adj[i] = make(map[int]bool)
	}
	if err := x.collectEdges(); err != nil {
		return nil, err
	}

	faces := x.detectFaces()
	x.logf("%d candidate faces", faces.Size())

	blocks := x.assembleBlocks(faces)
	if len(blocks) == 0 {
		x.logf("no closed blocks among %d vertices", len(in.Positions))
		return &Topology{Log: x.log}, &TopologyError{Err: ErrNoBlocks, Log: x.log}
	}

	for i := range blocks {
		blocks[i] = x.canonicalize(blocks[i])
	}
	sort.Slice(blocks, func(i, j int) bool {
		return lessOctet(blocks[i], blocks[j])
	})

	t := &Topology{
		Edges:     x.edges,
		edgeIndex: x.index,
	}
	for i, v := range blocks {
		t.Blocks = append(t.Blocks, Block{ID: BlockID(i), Verts: v})
	}

	if err := x.assignFaces(t, faces); err != nil {
		return nil, &TopologyError{Err: err, Log: x.log}
	}
	x.groupEdges(t)
	x.orientEdges(t)
	x.logf("%d blocks, %d faces, %d edge groups", len(t.Blocks), len(t.Faces), len(t.Groups))

	t.Log = x.log
	return t, nil
}

// collectEdges validates indices and drops self-loops and duplicate pairs.
func (x *extraction) collectEdges() error {
	n := len(x.in.Positions)
	for i, e := range x.in.Edges {
		if e[0] < 0 || e[0] >= n || e[1] < 0 || e[1] >= n {
			return errors.Wrapf(ErrIndexOutOfRange, "edge %d (%d-%d) with %d vertices", i, e[0], e[1], n)
		}
		if e[0] == e[1] {
			x.logf("edge %d: self-loop on vertex %d skipped", i, e[0])
			continue
		}
		key := pairKey(e[0], e[1])
		if _, ok := x.index[key]; ok {
			x.logf("edge %d: duplicate %d-%d skipped", i, e[0], e[1])
			continue
		}
		id := EdgeID(len(x.edges))
		x.index[key] = id
		x.edges = append(x.edges, Edge{ID: id, U: e[0], V: e[1]})
		x.adj[e[0]][e[1]] = true
		x.adj[e[1]][e[0]] = true
	}
	return nil
}

func (x *extraction) neighbours(v int) []int {
	out := make([]int, 0, len(x.adj[v]))
	for n := range x.adj[v] {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// detectFaces indexes every chordless 4-cycle by its sorted vertex key. The
// stored value is the cycle starting at its smallest vertex and heading to
// the smaller of that vertex's two cycle neighbours.
func (x *extraction) detectFaces() *redblacktree.Tree {
	faces := &redblacktree.Tree{Comparator: compareFaceKeys}
	for a := range x.adj {
		nb := x.neighbours(a)
		for i := 0; i < len(nb); i++ {
			for j := i + 1; j < len(nb); j++ {
				b, d := nb[i], nb[j]
				if x.connected(b, d) {
					continue
				}
				for _, c := range x.neighbours(b) {
					if c == a || !x.connected(c, d) || x.connected(a, c) {
						continue
					}
					if a > b || a > c || a > d {
						continue
					}
					key := faceKey([4]int{a, b, c, d})
					if _, found := faces.Get(key); !found {
						faces.Put(key, [4]int{a, b, c, d})
					}
				}
			}
		}
	}
	return faces
}

// assembleBlocks finds every 8-vertex cube graph whose six faces are
// candidate faces. Results are unordered, one per vertex set.
func (x *extraction) assembleBlocks(faces *redblacktree.Tree) [][8]int {
	seen := make(map[[8]int]bool)
	var out [][8]int

	it := faces.Iterator()
	for it.Next() {
		f := it.Value().([4]int)
		a, b, c, d := f[0], f[1], f[2], f[3]
		onFace := func(v int) bool { return v == a || v == b || v == c || v == d }

		for _, a2 := range x.neighbours(a) {
			if onFace(a2) {
				continue
			}
			for _, b2 := range x.neighbours(b) {
				if onFace(b2) || b2 == a2 || !x.connected(a2, b2) {
					continue
				}
				for _, c2 := range x.neighbours(c) {
					if onFace(c2) || c2 == a2 || c2 == b2 || !x.connected(b2, c2) {
						continue
					}
					for _, d2 := range x.neighbours(d) {
						if onFace(d2) || d2 == a2 || d2 == b2 || d2 == c2 {
							continue
						}
						if !x.connected(c2, d2) || !x.connected(d2, a2) {
							continue
						}
						verts := [8]int{a, b, c, d, a2, b2, c2, d2}
						key := verts
						sort.Ints(key[:])
						if seen[key] {
							continue
						}
						seen[key] = true
						if !x.isCube(verts, faces) {
							continue
						}
						if v, ok := x.excludedVertex(verts); ok {
							x.logf("block %v rejected: vertex %d is excluded", key, v)
							continue
						}
						out = append(out, verts)
					}
				}
			}
		}
	}
	return out
}

// isCube checks that the vertex set carries exactly the 12 cube edges and
// that all six sides are candidate faces. verts is ordered bottom then top.
func (x *extraction) isCube(verts [8]int, faces *redblacktree.Tree) bool {
	count := 0
	for i := 0; i < 8; i++ {
		for j := i + 1; j < 8; j++ {
			if x.connected(verts[i], verts[j]) {
				count++
			}
		}
	}
	if count != 12 {
		return false
	}
	for _, fc := range BlockFaceCorners {
		key := faceKey([4]int{verts[fc[0]], verts[fc[1]], verts[fc[2]], verts[fc[3]]})
		if _, ok := faces.Get(key); !ok {
			return false
		}
	}
	return true
}

func (x *extraction) excludedVertex(verts [8]int) (int, bool) {
	for _, v := range verts {
		if x.in.Excluded[v] {
			return v, true
		}
	}
	return 0, false
}

// canonicalize reorders a block so corner 0 is its smallest vertex and the
// corners are right-handed where the geometry allows it.
func (x *extraction) canonicalize(verts [8]int) [8]int {
	inBlock := make(map[int]bool, 8)
	v0 := verts[0]
	for _, v := range verts {
		inBlock[v] = true
		if v < v0 {
			v0 = v
		}
	}
	local := func(v int) []int {
		var out []int
		for _, n := range x.neighbours(v) {
			if inBlock[n] {
				out = append(out, n)
			}
		}
		return out
	}

	n := local(v0)
	perms := [6][3]int{
		{n[0], n[1], n[2]}, {n[0], n[2], n[1]},
		{n[1], n[0], n[2]}, {n[1], n[2], n[0]},
		{n[2], n[0], n[1]}, {n[2], n[1], n[0]},
	}
	p0 := x.in.Positions[v0]
	best := -1
	for i, p := range perms {
		if !rightHanded(p0, x.in.Positions[p[0]], x.in.Positions[p[1]], x.in.Positions[p[2]]) {
			continue
		}
		if best < 0 || lessTriple(p, perms[best]) {
			best = i
		}
	}
	if best < 0 {
		x.logf("block with corner %d is degenerate, using index order", v0)
		best = 0
	}
	v1, v3, v4 := perms[best][0], perms[best][1], perms[best][2]

	common := func(a, b int) int {
		for _, u := range local(a) {
			if u != v0 && x.connected(u, b) {
				return u
			}
		}
		return -1
	}
	v2 := common(v1, v3)
	v5 := common(v1, v4)
	v7 := common(v3, v4)
	v6 := -1
	for _, v := range verts {
		if v != v0 && v != v1 && v != v2 && v != v3 && v != v4 && v != v5 && v != v7 {
			v6 = v
		}
	}
	return [8]int{v0, v1, v2, v3, v4, v5, v6, v7}
}

// rightHanded reports whether (p1-p0, p3-p0, p4-p0) has a positive triple
// product, relative to the edge lengths.
func rightHanded(p0, p1, p3, p4 v3.Vec) bool {
	ex, ey, ez := p1.Sub(p0), p3.Sub(p0), p4.Sub(p0)
	tp := ex.Cross(ey).Dot(ez)
	scale := ex.Length() * ey.Length() * ez.Length()
	return tp > 1e-12*scale
}

func lessTriple(a, b [3]int) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func lessOctet(a, b [8]int) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
