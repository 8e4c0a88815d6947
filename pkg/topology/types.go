package topology

import (
	"sort"

	"github.com/emirpasic/gods/trees/redblacktree"
)

type (
	BlockID int
	FaceID  int
	GroupID int
	EdgeID  int
)

// Edge is an undirected wireframe edge stored in its canonical direction.
type Edge struct {
	ID EdgeID
	U  int
	V  int
}

// Ownership records which blocks a face belongs to. It is either Boundary
// or Internal.
type Ownership interface {
	isOwnership()
	// Owners lists the owning blocks, Pos first.
	Owners() []BlockID
}

// Boundary is a face owned by exactly one block.
type Boundary struct {
	Owner BlockID
}

// Internal is a face shared by two blocks. Pos has the lower block id and
// the face's stored winding points out of Pos.
type Internal struct {
	Pos BlockID
	Neg BlockID
}

func (Boundary) isOwnership() {}
func (Internal) isOwnership() {}

func (b Boundary) Owners() []BlockID { return []BlockID{b.Owner} }
func (i Internal) Owners() []BlockID { return []BlockID{i.Pos, i.Neg} }

// Face is a quadrilateral bounded by four wireframe edges.
type Face struct {
	ID     FaceID
	Verts  [4]int
	Owners Ownership
}

// IsBoundary reports whether the face has a single owner.
func (f *Face) IsBoundary() bool {
	_, ok := f.Owners.(Boundary)
	return ok
}

// Reversed returns the face winding flipped, keeping the first vertex.
func (f *Face) Reversed() [4]int {
	return [4]int{f.Verts[0], f.Verts[3], f.Verts[2], f.Verts[1]}
}

// Block is a hexahedron with corners in canonical order.
type Block struct {
	ID    BlockID
	Verts [8]int
}

// EdgeGroup is a set of edges that must share a node count.
type EdgeGroup struct {
	ID    GroupID
	Edges []EdgeID
}

// Direction is a block-local axis.
type Direction int

const (
	DirX Direction = iota
	DirY
	DirZ
)

func (d Direction) String() string {
	return [...]string{"x", "y", "z"}[d]
}

// BlockEdgeCorners lists the 12 block edges as corner pairs, four per
// direction, each pointing along the positive local axis.
var BlockEdgeCorners = [12][2]int{
	{0, 1}, {3, 2}, {7, 6}, {4, 5},
	{0, 3}, {1, 2}, {5, 6}, {4, 7},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

// BlockFaceCorners lists the 6 block faces wound outward: bottom, top,
// front, back, left, right.
var BlockFaceCorners = [6][4]int{
	{0, 3, 2, 1},
	{4, 5, 6, 7},
	{0, 1, 5, 4},
	{2, 3, 7, 6},
	{0, 4, 7, 3},
	{1, 2, 6, 5},
}

// FaceNames are the labels of BlockFaceCorners entries.
var FaceNames = [6]string{"bottom", "top", "front", "back", "left", "right"}

// FaceCorners returns face i of b, wound outward.
func (b *Block) FaceCorners(i int) [4]int {
	var out [4]int
	for k, c := range BlockFaceCorners[i] {
		out[k] = b.Verts[c]
	}
	return out
}

// EdgeCorners returns block edge i of b as a vertex pair along the local axis.
func (b *Block) EdgeCorners(i int) (int, int) {
	c := BlockEdgeCorners[i]
	return b.Verts[c[0]], b.Verts[c[1]]
}

// Topology is the result of a successful extraction.
type Topology struct {
	Blocks   []Block
	Faces    []Face
	Groups   []EdgeGroup
	Edges    []Edge
	Reversed []EdgeID
	Log      []string

	faceIndex  *redblacktree.Tree
	edgeIndex  map[[2]int]EdgeID
	groupOf    map[EdgeID]GroupID
	blockFaces [][6]FaceID
	blockEdges [][12]EdgeID
}

// FaceVerts returns every face as a vertex list in stored winding.
func (t *Topology) FaceVerts() [][]int {
	out := make([][]int, len(t.Faces))
	for i, f := range t.Faces {
		out[i] = append([]int(nil), f.Verts[:]...)
	}
	return out
}

// FaceByVerts finds a face by its vertex set, in any order.
func (t *Topology) FaceByVerts(a, b, c, d int) (FaceID, bool) {
	if t.faceIndex == nil {
		return 0, false
	}
	v, ok := t.faceIndex.Get(faceKey([4]int{a, b, c, d}))
	if !ok {
		return 0, false
	}
	return v.(FaceID), true
}

// EdgeBetween finds the edge joining a and b.
func (t *Topology) EdgeBetween(a, b int) (EdgeID, bool) {
	id, ok := t.edgeIndex[pairKey(a, b)]
	return id, ok
}

// GroupOf returns the edge group containing e. Edges outside every block
// have no group.
func (t *Topology) GroupOf(e EdgeID) (GroupID, bool) {
	g, ok := t.groupOf[e]
	return g, ok
}

// BlockFaces returns the faces of block id in BlockFaceCorners order.
func (t *Topology) BlockFaces(id BlockID) [6]FaceID {
	return t.blockFaces[id]
}

// BlockEdges returns the edges of block id in BlockEdgeCorners order.
func (t *Topology) BlockEdges(id BlockID) [12]EdgeID {
	return t.blockEdges[id]
}

// HasBlock reports whether id names a block of t.
func (t *Topology) HasBlock(id BlockID) bool {
	return id >= 0 && int(id) < len(t.Blocks)
}

// VertsInBlocks returns the set of vertices used by the given blocks.
func (t *Topology) VertsInBlocks(ids []BlockID) map[int]bool {
	set := make(map[int]bool)
	for _, id := range ids {
		for _, v := range t.Blocks[id].Verts {
			set[v] = true
		}
	}
	return set
}

func pairKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

func faceKey(v [4]int) [4]int {
	s := v[:]
	sort.Ints(s)
	return v
}

func compareFaceKeys(a, b interface{}) int {
	ka := a.([4]int)
	kb := b.([4]int)
	for i := range ka {
		if ka[i] != kb[i] {
			if ka[i] < kb[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}
