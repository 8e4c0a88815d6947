package topology

import (
	"reflect"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/pkg/errors"
)

// --- Fixtures ---

// cubeEdges run along +x, +y and +z of the unit cube.
var cubeEdges = [][2]int{
	{0, 1}, {1, 2}, {3, 2}, {0, 3},
	{4, 5}, {5, 6}, {7, 6}, {4, 7},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

func unitCube() Input {
	return Input{
		Positions: []v3.Vec{
			{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 0},
			{X: 0, Y: 0, Z: 1}, {X: 1, Y: 0, Z: 1}, {X: 1, Y: 1, Z: 1}, {X: 0, Y: 1, Z: 1},
		},
		Edges: append([][2]int(nil), cubeEdges...),
	}
}

// twoCubes is the unit cube plus a second cube glued to its x=1 side.
func twoCubes() Input {
	in := unitCube()
	in.Positions = append(in.Positions,
		v3.Vec{X: 2, Y: 0, Z: 0}, v3.Vec{X: 2, Y: 1, Z: 0},
		v3.Vec{X: 2, Y: 0, Z: 1}, v3.Vec{X: 2, Y: 1, Z: 1},
	)
	in.Edges = append(in.Edges,
		[2]int{1, 8}, [2]int{2, 9}, [2]int{5, 10}, [2]int{6, 11},
		[2]int{8, 9}, [2]int{9, 11}, [2]int{11, 10}, [2]int{10, 8},
	)
	return in
}

func mustExtract(t *testing.T, in Input) *Topology {
	t.Helper()
	topo, err := Extract(in)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	return topo
}

func countFaces(topo *Topology) (boundary, internal int) {
	for i := range topo.Faces {
		if topo.Faces[i].IsBoundary() {
			boundary++
		} else {
			internal++
		}
	}
	return boundary, internal
}

// --- Scenarios ---

func TestUnitCube(t *testing.T) {
	topo := mustExtract(t, unitCube())

	if len(topo.Blocks) != 1 {
		t.Fatalf("blocks: got %d, want 1", len(topo.Blocks))
	}
	want := [8]int{0, 1, 2, 3, 4, 5, 6, 7}
	if topo.Blocks[0].Verts != want {
		t.Errorf("corners: got %v, want %v", topo.Blocks[0].Verts, want)
	}
	b, i := countFaces(topo)
	if b != 6 || i != 0 {
		t.Errorf("faces: got %d boundary / %d internal, want 6 / 0", b, i)
	}
	if len(topo.Groups) != 3 {
		t.Fatalf("groups: got %d, want 3", len(topo.Groups))
	}
	for _, g := range topo.Groups {
		if len(g.Edges) != 4 {
			t.Errorf("group %d: got %d edges, want 4", g.ID, len(g.Edges))
		}
	}
	if len(topo.Reversed) != 0 {
		t.Errorf("Reversed: got %v, want none", topo.Reversed)
	}
}

func TestTwoCubesSharingFace(t *testing.T) {
	topo := mustExtract(t, twoCubes())

	if len(topo.Blocks) != 2 {
		t.Fatalf("blocks: got %d, want 2", len(topo.Blocks))
	}
	if got, want := topo.Blocks[1].Verts, [8]int{1, 2, 6, 5, 8, 9, 11, 10}; got != want {
		t.Errorf("block 1 corners: got %v, want %v", got, want)
	}
	b, i := countFaces(topo)
	if b != 10 || i != 1 {
		t.Errorf("faces: got %d boundary / %d internal, want 10 / 1", b, i)
	}

	id, ok := topo.FaceByVerts(5, 6, 2, 1)
	if !ok {
		t.Fatal("shared face not found")
	}
	in, ok := topo.Faces[id].Owners.(Internal)
	if !ok {
		t.Fatalf("shared face owners: got %T, want Internal", topo.Faces[id].Owners)
	}
	if in.Pos != 0 || in.Neg != 1 {
		t.Errorf("owners: got pos=%d neg=%d, want 0/1", in.Pos, in.Neg)
	}

	lists := topo.FaceVerts()
	if len(lists) != 11 {
		t.Fatalf("FaceVerts: got %d faces, want 11", len(lists))
	}
	if got, want := lists[id], topo.Faces[id].Verts[:]; !reflect.DeepEqual(got, want) {
		t.Errorf("FaceVerts[%d]: got %v, want %v", id, got, want)
	}
	lists[id][0] = -1
	if topo.Faces[id].Verts[0] == -1 {
		t.Error("FaceVerts shares storage with the topology")
	}

	sizes := []int{}
	for _, g := range topo.Groups {
		sizes = append(sizes, len(g.Edges))
	}
	if !reflect.DeepEqual(sizes, []int{4, 6, 6, 4}) {
		t.Errorf("group sizes: got %v, want [4 6 6 4]", sizes)
	}
}

// --- Properties ---

func TestInternalFacesWindOppositely(t *testing.T) {
	topo := mustExtract(t, twoCubes())
	for _, f := range topo.Faces {
		in, ok := f.Owners.(Internal)
		if !ok {
			continue
		}
		var fromPos, fromNeg [4]int
		for k, fid := range topo.BlockFaces(in.Pos) {
			if fid == f.ID {
				fromPos = topo.Blocks[in.Pos].FaceCorners(k)
			}
		}
		for k, fid := range topo.BlockFaces(in.Neg) {
			if fid == f.ID {
				fromNeg = topo.Blocks[in.Neg].FaceCorners(k)
			}
		}
		if faceKey(fromPos) != faceKey(fromNeg) {
			t.Errorf("face %d: vertex sets differ %v vs %v", f.ID, fromPos, fromNeg)
		}
		if !sameCycle(fromPos, f.Verts) {
			t.Errorf("face %d: stored winding %v not outward from pos %v", f.ID, f.Verts, fromPos)
		}
		rev := [4]int{fromPos[0], fromPos[3], fromPos[2], fromPos[1]}
		if !sameCycle(rev, fromNeg) {
			t.Errorf("face %d: pos %v and neg %v wind the same way", f.ID, fromPos, fromNeg)
		}
	}
}

func TestGroupClosure(t *testing.T) {
	topo := mustExtract(t, twoCubes())
	for _, blk := range topo.Blocks {
		edges := topo.BlockEdges(blk.ID)
		for d := 0; d < 3; d++ {
			g, ok := topo.GroupOf(edges[d*4])
			if !ok {
				t.Fatalf("block %d: edge %d has no group", blk.ID, edges[d*4])
			}
			for k := 1; k < 4; k++ {
				if h, _ := topo.GroupOf(edges[d*4+k]); h != g {
					t.Errorf("block %d dir %s: edge %d in group %d, want %d",
						blk.ID, Direction(d), edges[d*4+k], h, g)
				}
			}
		}
	}
}

func TestExtractIsIdempotent(t *testing.T) {
	a := mustExtract(t, twoCubes())
	b := mustExtract(t, twoCubes())
	if !reflect.DeepEqual(a.Blocks, b.Blocks) {
		t.Error("blocks differ between runs")
	}
	if !reflect.DeepEqual(a.Faces, b.Faces) {
		t.Error("faces differ between runs")
	}
	if !reflect.DeepEqual(a.Groups, b.Groups) {
		t.Error("groups differ between runs")
	}
	if !reflect.DeepEqual(a.Edges, b.Edges) {
		t.Error("edges differ between runs")
	}
}

func TestRelabelledCubeIsRightHanded(t *testing.T) {
	// Same cube with its vertices stored in a scrambled order.
	perm := []int{5, 2, 7, 0, 3, 6, 1, 4}
	src := unitCube()
	in := Input{Positions: make([]v3.Vec, 8)}
	for old, p := range src.Positions {
		in.Positions[perm[old]] = p
	}
	for _, e := range src.Edges {
		in.Edges = append(in.Edges, [2]int{perm[e[0]], perm[e[1]]})
	}

	topo := mustExtract(t, in)
	if len(topo.Blocks) != 1 {
		t.Fatalf("blocks: got %d, want 1", len(topo.Blocks))
	}
	v := topo.Blocks[0].Verts
	if v[0] != 0 {
		t.Errorf("corner 0: got %d, want smallest index 0", v[0])
	}
	p := in.Positions
	if !rightHanded(p[v[0]], p[v[1]], p[v[3]], p[v[4]]) {
		t.Errorf("corners %v are not right-handed", v)
	}
}

func TestReversedEdges(t *testing.T) {
	in := unitCube()
	in.Edges[0] = [2]int{1, 0}
	in.Edges[6] = [2]int{6, 7}
	topo := mustExtract(t, in)

	a, ok := topo.EdgeBetween(0, 1)
	if !ok {
		t.Fatal("edge 0-1 missing")
	}
	b, ok := topo.EdgeBetween(6, 7)
	if !ok {
		t.Fatal("edge 6-7 missing")
	}
	if want := []EdgeID{a, b}; !reflect.DeepEqual(topo.Reversed, want) {
		t.Fatalf("Reversed: got %v, want %v", topo.Reversed, want)
	}
	if e := topo.Edges[a]; e.U != 0 || e.V != 1 {
		t.Errorf("canonical edge: got %d-%d, want 0-1", e.U, e.V)
	}
	if e := topo.Edges[b]; e.U != 7 || e.V != 6 {
		t.Errorf("canonical edge: got %d-%d, want 7-6", e.U, e.V)
	}
}

// --- Failures ---

func TestExtractFailures(t *testing.T) {
	tests := []struct {
		name string
		in   func() Input
		want error
	}{
		{"no blocks", func() Input {
			in := unitCube()
			in.Edges = in.Edges[:8]
			return in
		}, ErrNoBlocks},
		{"excluded corner", func() Input {
			in := unitCube()
			in.Excluded = map[int]bool{0: true}
			return in
		}, ErrNoBlocks},
		{"out of range", func() Input {
			in := unitCube()
			in.Edges = append(in.Edges, [2]int{3, 99})
			return in
		}, ErrIndexOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.in())
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNoBlocksKeepsLog(t *testing.T) {
	in := unitCube()
	in.Edges = in.Edges[:4]
	topo, err := Extract(in)
	var terr *TopologyError
	if !errors.As(err, &terr) {
		t.Fatalf("got %T, want *TopologyError", err)
	}
	if len(terr.Log) == 0 || len(topo.Log) == 0 {
		t.Error("expected extraction log to be retained")
	}
	if len(topo.Blocks) != 0 {
		t.Errorf("blocks: got %d, want 0", len(topo.Blocks))
	}
}

func TestExclusionKeepsOtherBlocks(t *testing.T) {
	in := twoCubes()
	in.Excluded = map[int]bool{8: true}
	topo := mustExtract(t, in)
	if len(topo.Blocks) != 1 || topo.Blocks[0].Verts[0] != 0 {
		t.Fatalf("blocks: got %v, want only the first cube", topo.Blocks)
	}
}

func TestSkipsSelfLoopsAndDuplicates(t *testing.T) {
	in := unitCube()
	in.Edges = append(in.Edges, [2]int{2, 2}, [2]int{1, 0})
	topo := mustExtract(t, in)
	if len(topo.Edges) != 12 {
		t.Errorf("edges: got %d, want 12", len(topo.Edges))
	}
	if len(topo.Reversed) != 0 {
		t.Errorf("Reversed: got %v, want none", topo.Reversed)
	}
}
