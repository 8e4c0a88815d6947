package session

import (
	"bytes"
	"reflect"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/pkg/errors"

	"github.com/chazu/swiftblock/pkg/blockmesh"
	"github.com/chazu/swiftblock/pkg/blockstate"
	"github.com/chazu/swiftblock/pkg/grading"
	"github.com/chazu/swiftblock/pkg/kernel"
	"github.com/chazu/swiftblock/pkg/store"
	"github.com/chazu/swiftblock/pkg/topology"
	"github.com/chazu/swiftblock/pkg/wireframe"
)

// --- Fixtures ---

// boxRow builds n boxes of size 10x1x1 glued along x.
func boxRow(n int) *wireframe.Wireframe {
	w := wireframe.New()
	idx := func(i, y, z int) int { return i*4 + y*2 + z }
	for i := 0; i <= n; i++ {
		for y := 0; y < 2; y++ {
			for z := 0; z < 2; z++ {
				w.AddVertex(v3.Vec{X: float64(10 * i), Y: float64(y), Z: float64(z)})
			}
		}
		w.AddEdge(idx(i, 0, 0), idx(i, 1, 0))
		w.AddEdge(idx(i, 1, 0), idx(i, 1, 1))
		w.AddEdge(idx(i, 1, 1), idx(i, 0, 1))
		w.AddEdge(idx(i, 0, 1), idx(i, 0, 0))
		if i > 0 {
			for k := 0; k < 4; k++ {
				w.AddEdge((i-1)*4+k, i*4+k)
			}
		}
	}
	return w
}

func newSession(t *testing.T, n int) (*Session, *kernel.MemSurface, uint64) {
	t.Helper()
	return newSessionWith(t, DefaultOptions(), n)
}

func newSessionWith(t *testing.T, opts Options, n int) (*Session, *kernel.MemSurface, uint64) {
	t.Helper()
	surf := kernel.NewMemSurface()
	s := New(opts, surf)
	gen, err := s.Extract(boxRow(n))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	return s, surf, gen
}

func sharedFaceID(t *testing.T, topo *topology.Topology) topology.FaceID {
	t.Helper()
	for _, f := range topo.Faces {
		if !f.IsBoundary() {
			return f.ID
		}
	}
	t.Fatal("no internal face")
	return 0
}

// --- Extraction ---

func TestExtractPushesSurface(t *testing.T) {
	s, surf, gen := newSession(t, 2)
	if gen != 1 {
		t.Errorf("generation = %d, want 1", gen)
	}
	if surf.Len() != 10 {
		t.Errorf("surface faces = %d, want 10", surf.Len())
	}
	if len(s.Topology().Blocks) != 2 {
		t.Errorf("blocks = %d, want 2", len(s.Topology().Blocks))
	}
}

func TestFailedExtractionKeepsModel(t *testing.T) {
	s, surf, gen := newSession(t, 2)
	before := s.Topology()

	broken := wireframe.New()
	broken.AddVertex(v3.Vec{})
	broken.AddVertex(v3.Vec{X: 1})
	broken.AddEdge(0, 1)
	got, err := s.Extract(broken)
	if !errors.Is(err, topology.ErrNoBlocks) {
		t.Fatalf("Extract: got %v, want ErrNoBlocks", err)
	}
	if got != gen || s.Generation() != gen {
		t.Errorf("generation moved to %d", s.Generation())
	}
	if s.Topology() != before || surf.Len() != 10 {
		t.Error("previous model was replaced")
	}
}

func TestReextractReplacesSurface(t *testing.T) {
	s, surf, _ := newSession(t, 2)
	gen, err := s.Extract(boxRow(3))
	if err != nil {
		t.Fatal(err)
	}
	if gen != 2 {
		t.Errorf("generation = %d, want 2", gen)
	}
	if surf.Len() != 14 {
		t.Errorf("surface faces = %d, want 14", surf.Len())
	}
}

// --- Toggles ---

func TestToggleScenario(t *testing.T) {
	s, surf, gen := newSession(t, 2)
	shared := s.Topology().Faces[sharedFaceID(t, s.Topology())]

	tr, err := s.Toggle(gen, 0)
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if tr.Enabled {
		t.Error("block 0 should be disabled")
	}
	if surf.Len() != 6 {
		t.Errorf("surface faces = %d, want 6", surf.Len())
	}
	found := false
	for _, f := range surf.Faces() {
		if f == shared.Reversed() {
			found = true
		}
	}
	if !found {
		t.Errorf("shared face %v not on surface wound from block 1", shared.Reversed())
	}
}

func TestStaleGeneration(t *testing.T) {
	s, _, gen := newSession(t, 2)
	if _, err := s.Extract(boxRow(2)); err != nil {
		t.Fatal(err)
	}
	_, err := s.Toggle(gen, 0)
	if !errors.Is(err, ErrStaleGeneration) {
		t.Errorf("Toggle: got %v, want ErrStaleGeneration", err)
	}
	if !errors.Is(err, blockstate.ErrInconsistentToggle) {
		t.Errorf("stale toggle should be an InconsistentToggle: %v", err)
	}
	if err := s.SetGrading(gen, 0, grading.Constraints{}); !errors.Is(err, ErrStaleGeneration) {
		t.Errorf("SetGrading: got %v, want ErrStaleGeneration", err)
	}
	if err := s.NameBlock(gen, 0, "a"); !errors.Is(err, ErrStaleGeneration) {
		t.Errorf("NameBlock: got %v, want ErrStaleGeneration", err)
	}
}

func TestToggleBeforeExtract(t *testing.T) {
	s := New(DefaultOptions(), nil)
	if _, err := s.Toggle(0, 0); !errors.Is(err, ErrStaleGeneration) {
		t.Errorf("got %v, want ErrStaleGeneration", err)
	}
	if _, err := s.Export(nil); !errors.Is(err, ErrNoTopology) {
		t.Errorf("Export: got %v, want ErrNoTopology", err)
	}
}

func TestExcludeDisabled(t *testing.T) {
	opts := DefaultOptions()
	opts.ExcludeDisabled = true
	s := New(opts, nil)
	gen, err := s.Extract(boxRow(2))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Toggle(gen, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Extract(boxRow(2)); err != nil {
		t.Fatal(err)
	}
	if n := len(s.Topology().Blocks); n != 1 {
		t.Errorf("blocks = %d, want 1 after excluding the disabled block's vertices", n)
	}
}

// --- Grading and export ---

func TestGradingUsesDefaults(t *testing.T) {
	s, _, _ := newSession(t, 1)
	for _, g := range s.Topology().Groups {
		sp, err := s.Grading(g.ID)
		if err != nil {
			t.Fatal(err)
		}
		if sp.Nodes != 4 || !sp.IsUniform() {
			t.Errorf("group %d: got %+v, want 4 uniform nodes", g.ID, sp)
		}
	}
}

func TestGradingUsesCellSize(t *testing.T) {
	opts := DefaultOptions()
	opts.Fallback.CellSize = 1
	s, _, _ := newSessionWith(t, opts, 1)
	topo := s.Topology()
	for _, g := range topo.Groups {
		sp, err := s.Grading(g.ID)
		if err != nil {
			t.Fatal(err)
		}
		e := topo.Edges[g.Edges[0]]
		want := int(s.Wireframe().EdgeLength(e.U, e.V)+0.5) + 1
		if sp.Nodes != want {
			t.Errorf("group %d: nodes = %d, want %d", g.ID, sp.Nodes, want)
		}
	}
}

func TestExportModel(t *testing.T) {
	s, _, gen := newSession(t, 2)
	topo := s.Topology()

	// Edges along x have length 10.
	id, _ := topo.EdgeBetween(0, 4)
	g, _ := topo.GroupOf(id)
	if err := s.SetGrading(gen, g, grading.Constraints{X1: 0.1, R1: 1.2}); err != nil {
		t.Fatal(err)
	}
	if err := s.NameBlock(gen, 1, "outlet_zone"); err != nil {
		t.Fatal(err)
	}
	if err := s.NameBlock(gen, 0, "bad name"); !errors.Is(err, blockmesh.ErrBadName) {
		t.Errorf("NameBlock: got %v, want ErrBadName", err)
	}
	inletFace, ok := topo.FaceByVerts(0, 1, 2, 3)
	if !ok {
		t.Fatal("inlet face not found")
	}
	if err := s.AssignPatch(gen, "inlet", blockmesh.Patch, []topology.FaceID{inletFace}); err != nil {
		t.Fatal(err)
	}

	m, err := s.Export(nil)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(m.Blocks) != 2 || len(m.Vertices) != 12 {
		t.Fatalf("got %d blocks / %d vertices, want 2 / 12", len(m.Blocks), len(m.Vertices))
	}
	if m.Blocks[1].Name != "outlet_zone" {
		t.Errorf("block 1 name = %q", m.Blocks[1].Name)
	}
	if len(m.Patches) != 2 || m.Patches[0].Name != "inlet" || m.Patches[1].Name != "defaultName" {
		t.Fatalf("patches = %+v", m.Patches)
	}
	if m.FaceCount() != 10 {
		t.Errorf("faces = %d, want 10", m.FaceCount())
	}

	// The overridden group resolves to 17 cells; the reverse direction is the mirror.
	fwd, ok := m.EdgeSpecs[[2]int{0, 4}]
	if !ok || fwd.Nodes != 18 {
		t.Fatalf("edge 0-4 spec = %+v", fwd)
	}
	back := m.EdgeSpecs[[2]int{4, 0}]
	if back.Nodes != 18 || back.Segments[0].Shrinking == fwd.Segments[0].Shrinking {
		t.Errorf("reverse spec %+v is not the mirror of %+v", back, fwd)
	}

	var buf bytes.Buffer
	if err := blockmesh.Write(&buf, m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := blockmesh.Parse(&buf); err != nil {
		t.Fatalf("re-parse: %v", err)
	}
}

func TestExportPolylineLength(t *testing.T) {
	opts := DefaultOptions()
	opts.Fallback.CellSize = 1
	s, _, _ := newSessionWith(t, opts, 1)
	// A detour of about 14 units along edge 0-4 wins over the straight 10.
	pl := blockmesh.Polyline{From: 0, To: 4, Points: []v3.Vec{{X: 5, Y: -5, Z: 0}}}
	m, err := s.Export([]blockmesh.Polyline{pl})
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Polylines) != 1 {
		t.Fatalf("polylines = %d, want 1", len(m.Polylines))
	}
	if sp := m.EdgeSpecs[[2]int{0, 4}]; sp.Nodes != 15 {
		t.Errorf("nodes = %d, want 15", sp.Nodes)
	}
}

func TestExportDisabledBlocksCompacts(t *testing.T) {
	s, _, gen := newSession(t, 2)
	if _, err := s.Toggle(gen, 0); err != nil {
		t.Fatal(err)
	}
	m, err := s.Export(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Blocks) != 1 || len(m.Vertices) != 8 {
		t.Fatalf("got %d blocks / %d vertices, want 1 / 8", len(m.Blocks), len(m.Vertices))
	}
	if m.FaceCount() != 6 {
		t.Errorf("faces = %d, want 6", m.FaceCount())
	}
}

// --- Polylines and edge sets ---

func TestStoredPolylines(t *testing.T) {
	s, _, gen := newSession(t, 1)
	p1, p2 := v3.Vec{X: 5, Y: -5, Z: 0}, v3.Vec{X: 7, Y: -3, Z: 0}
	if err := s.SetPolyline(gen, blockmesh.Polyline{From: 4, To: 0, Points: []v3.Vec{p1, p2}}); err != nil {
		t.Fatal(err)
	}
	want := []blockmesh.Polyline{{From: 0, To: 4, Points: []v3.Vec{p2, p1}}}
	if got := s.Polylines(); !reflect.DeepEqual(got, want) {
		t.Errorf("Polylines: got %+v, want %+v", got, want)
	}
	if err := s.SetPolyline(gen, blockmesh.Polyline{From: 0, To: 7, Points: []v3.Vec{p1}}); !errors.Is(err, ErrUnknownEdge) {
		t.Errorf("got %v, want ErrUnknownEdge", err)
	}

	m, err := s.Export(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Polylines) != 1 || m.Polylines[0].From != 0 || m.Polylines[0].To != 4 {
		t.Errorf("exported polylines = %+v", m.Polylines)
	}

	st, err := store.Open(store.Options{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	if err := s.Save(st, "curved"); err != nil {
		t.Fatal(err)
	}
	r := New(DefaultOptions(), nil)
	rgen, err := r.Load(st, "curved")
	if err != nil {
		t.Fatal(err)
	}
	if got := r.Polylines(); !reflect.DeepEqual(got, want) {
		t.Errorf("restored polylines: got %+v, want %+v", got, want)
	}

	if err := r.SetPolyline(rgen, blockmesh.Polyline{From: 0, To: 4}); err != nil {
		t.Fatal(err)
	}
	if n := len(r.Polylines()); n != 0 {
		t.Errorf("polylines after clearing = %d, want 0", n)
	}
}

func TestEdgeSets(t *testing.T) {
	s, _, gen := newSession(t, 1)
	if err := s.SetEdgeSet(gen, "inflow", [][2]int{{4, 0}, {1, 5}, {0, 4}, {0, 1}}); err != nil {
		t.Fatal(err)
	}
	set, ok := s.EdgeSet("inflow")
	if want := [][2]int{{0, 4}, {1, 5}, {0, 1}}; !ok || !reflect.DeepEqual(set, want) {
		t.Errorf("EdgeSet: got %v, want %v", set, want)
	}
	groups, err := s.EdgeSetGroups("inflow")
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 2 {
		t.Errorf("groups: got %v, want the x group and the z group", groups)
	}

	tests := []struct {
		name  string
		set   string
		edges [][2]int
		want  error
	}{
		{"bad name", "two words", [][2]int{{0, 4}}, blockmesh.ErrBadName},
		{"unknown edge", "diag", [][2]int{{0, 7}}, ErrUnknownEdge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.SetEdgeSet(gen, tt.set, tt.edges); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
	if _, err := s.EdgeSetGroups("nope"); !errors.Is(err, ErrUnknownEdgeSet) {
		t.Errorf("got %v, want ErrUnknownEdgeSet", err)
	}

	st, err := store.Open(store.Options{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	if err := s.Save(st, "sets"); err != nil {
		t.Fatal(err)
	}
	r := New(DefaultOptions(), nil)
	if _, err := r.Load(st, "sets"); err != nil {
		t.Fatal(err)
	}
	if names := r.EdgeSetNames(); !reflect.DeepEqual(names, []string{"inflow"}) {
		t.Errorf("restored names = %v", names)
	}
	if !r.DeleteEdgeSet("inflow") || r.DeleteEdgeSet("inflow") {
		t.Error("DeleteEdgeSet should report true once")
	}
}

// --- Snapshots ---

func TestSnapshotRestore(t *testing.T) {
	s, _, gen := newSession(t, 2)
	if _, err := s.Toggle(gen, 1); err != nil {
		t.Fatal(err)
	}
	if err := s.NameBlock(gen, 0, "core"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetGrading(gen, 0, grading.Constraints{X1: 0.05, R1: 1.1}); err != nil {
		t.Fatal(err)
	}
	if err := s.AssignPatch(gen, "walls", blockmesh.Wall, []topology.FaceID{0, 1}); err != nil {
		t.Fatal(err)
	}

	st, err := store.Open(store.Options{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	if err := s.Save(st, "row"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	surf := kernel.NewMemSurface()
	r := New(DefaultOptions(), surf)
	rgen, err := r.Load(st, "row")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if on, _ := r.Machine().Enabled(1); on {
		t.Error("block 1 should be disabled after restore")
	}
	if surf.Len() != 6 {
		t.Errorf("surface faces = %d, want 6", surf.Len())
	}
	if r.BlockName(0) != "core" {
		t.Errorf("block 0 name = %q", r.BlockName(0))
	}
	if c := r.Constraints(0); c.X1 != 0.05 || c.R1 != 1.1 {
		t.Errorf("group 0 constraints = %+v", c)
	}
	if r.PatchOf(0) != "walls" || r.PatchOf(2) != "defaultName" {
		t.Errorf("patches = %q, %q", r.PatchOf(0), r.PatchOf(2))
	}
	if snapA, snapB := s.Snapshot(), r.Snapshot(); len(snapA.Disabled) != len(snapB.Disabled) || len(snapB.Grading) != 1 {
		t.Errorf("snapshots differ: %+v vs %+v", snapA, snapB)
	}
	if rgen != 1 {
		t.Errorf("generation = %d, want 1", rgen)
	}
}

func TestLoadMissing(t *testing.T) {
	st, err := store.Open(store.Options{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	s := New(DefaultOptions(), nil)
	if _, err := s.Load(st, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}
