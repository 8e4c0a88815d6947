package session

import (
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/swiftblock/pkg/blockmesh"
	"github.com/chazu/swiftblock/pkg/grading"
	"github.com/chazu/swiftblock/pkg/topology"
	"github.com/chazu/swiftblock/pkg/wireframe"
)

// Snapshot is the authored state of a session keyed by vertex indices, so
// it survives re-extraction. Blocks are named by their corner octet and
// edge groups by one member edge.
type Snapshot struct {
	Vertices  [][3]float64       `msgpack:"vertices"`
	Edges     [][2]int           `msgpack:"edges"`
	Excluded  []int              `msgpack:"excluded,omitempty"`
	Disabled  [][8]int           `msgpack:"disabled,omitempty"`
	Names     []NamedBlock       `msgpack:"names,omitempty"`
	Grading   []GradingOverride  `msgpack:"grading,omitempty"`
	Patches   []PatchSnapshot    `msgpack:"patches,omitempty"`
	Polylines []PolylineSnapshot `msgpack:"polylines,omitempty"`
	EdgeSets  []EdgeSetSnapshot  `msgpack:"edge_sets,omitempty"`
}

type NamedBlock struct {
	Verts [8]int `msgpack:"verts"`
	Name  string `msgpack:"name"`
}

type GradingOverride struct {
	Edge [2]int  `msgpack:"edge"`
	X1   float64 `msgpack:"x1"`
	X2   float64 `msgpack:"x2"`
	R1   float64 `msgpack:"r1"`
	R2   float64 `msgpack:"r2"`
}

type PatchSnapshot struct {
	Name  string   `msgpack:"name"`
	Type  string   `msgpack:"type"`
	Faces [][4]int `msgpack:"faces"`
}

type PolylineSnapshot struct {
	From   int          `msgpack:"from"`
	To     int          `msgpack:"to"`
	Points [][3]float64 `msgpack:"points"`
}

type EdgeSetSnapshot struct {
	Name  string   `msgpack:"name"`
	Edges [][2]int `msgpack:"edges"`
}

// Snapshot captures the authored state. Before the first extraction it is
// empty.
func (s *Session) Snapshot() Snapshot {
	var snap Snapshot
	if s.wf == nil {
		return snap
	}
	for _, p := range s.wf.Vertices {
		snap.Vertices = append(snap.Vertices, [3]float64{p.X, p.Y, p.Z})
	}
	snap.Edges = append(snap.Edges, s.wf.Edges...)
	snap.Excluded = append(snap.Excluded, s.wf.Excluded...)

	for _, id := range s.machine.DisabledBlocks() {
		snap.Disabled = append(snap.Disabled, s.topo.Blocks[id].Verts)
	}
	for id := range s.topo.Blocks {
		if name := s.names[topology.BlockID(id)]; name != "" {
			snap.Names = append(snap.Names, NamedBlock{Verts: s.topo.Blocks[id].Verts, Name: name})
		}
	}
	for g := range s.topo.Groups {
		c, ok := s.overrides[topology.GroupID(g)]
		if !ok {
			continue
		}
		e := s.topo.Edges[s.topo.Groups[g].Edges[0]]
		snap.Grading = append(snap.Grading, GradingOverride{Edge: [2]int{e.U, e.V}, X1: c.X1, X2: c.X2, R1: c.R1, R2: c.R2})
	}
	for _, p := range s.patches {
		snap.Patches = append(snap.Patches, PatchSnapshot{
			Name:  p.name,
			Type:  string(p.typ),
			Faces: append([][4]int(nil), p.faces...),
		})
	}
	for _, pl := range s.Polylines() {
		ps := PolylineSnapshot{From: pl.From, To: pl.To}
		for _, p := range pl.Points {
			ps.Points = append(ps.Points, [3]float64{p.X, p.Y, p.Z})
		}
		snap.Polylines = append(snap.Polylines, ps)
	}
	for _, name := range s.EdgeSetNames() {
		set, _ := s.EdgeSet(name)
		snap.EdgeSets = append(snap.EdgeSets, EdgeSetSnapshot{Name: name, Edges: set})
	}
	return snap
}

// Restore re-extracts the snapshot's wireframe and reapplies its choices.
// Entries that no longer match the topology are logged and skipped.
func (s *Session) Restore(snap Snapshot) (uint64, error) {
	wf := wireframe.New()
	for _, p := range snap.Vertices {
		wf.Vertices = append(wf.Vertices, v3.Vec{X: p[0], Y: p[1], Z: p[2]})
	}
	wf.Edges = append(wf.Edges, snap.Edges...)
	wf.Excluded = append(wf.Excluded, snap.Excluded...)

	prev := s.patches
	s.patches = nil
	gen, err := s.Extract(wf)
	if err != nil {
		s.patches = prev
		return gen, err
	}

	byVerts := make(map[[8]int]topology.BlockID, len(s.topo.Blocks))
	for _, b := range s.topo.Blocks {
		byVerts[b.Verts] = b.ID
	}
	for _, v := range snap.Disabled {
		id, ok := byVerts[v]
		if !ok {
			s.warnf("restore: disabled block %v not found", v)
			continue
		}
		if _, err := s.SetEnabled(gen, id, false); err != nil {
			return gen, err
		}
	}
	for _, nb := range snap.Names {
		id, ok := byVerts[nb.Verts]
		if !ok {
			s.warnf("restore: named block %v not found", nb.Verts)
			continue
		}
		if err := s.NameBlock(gen, id, nb.Name); err != nil {
			s.warnf("restore: %v", err)
		}
	}
	for _, o := range snap.Grading {
		eid, ok := s.topo.EdgeBetween(o.Edge[0], o.Edge[1])
		g, grouped := s.topo.GroupOf(eid)
		if !ok || !grouped {
			s.warnf("restore: grading edge %v not in any group", o.Edge)
			continue
		}
		c := grading.Constraints{X1: o.X1, X2: o.X2, R1: o.R1, R2: o.R2}
		if e := s.topo.Edges[eid]; e.U != o.Edge[0] {
			c = c.Swapped()
		}
		if err := s.SetGrading(gen, g, c); err != nil {
			return gen, err
		}
	}
	for _, p := range snap.Patches {
		typ, err := blockmesh.ParsePatchType(p.Type)
		if err != nil || !blockmesh.ValidName(p.Name) {
			s.warnf("restore: patch %q skipped", p.Name)
			continue
		}
		s.assign(p.Name, typ, p.Faces)
	}
	s.polylines = make(map[[2]int]blockmesh.Polyline)
	for _, ps := range snap.Polylines {
		pl := blockmesh.Polyline{From: ps.From, To: ps.To}
		for _, p := range ps.Points {
			pl.Points = append(pl.Points, v3.Vec{X: p[0], Y: p[1], Z: p[2]})
		}
		if err := s.SetPolyline(gen, pl); err != nil {
			s.warnf("restore: %v", err)
		}
	}
	s.edgeSets = make(map[string][][2]int)
	for _, es := range snap.EdgeSets {
		if err := s.SetEdgeSet(gen, es.Name, es.Edges); err != nil {
			s.warnf("restore: %v", err)
		}
	}
	return gen, nil
}
