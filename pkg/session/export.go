package session

import (
	"sort"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/pkg/errors"

	"github.com/chazu/swiftblock/pkg/blockmesh"
	"github.com/chazu/swiftblock/pkg/blockstate"
	"github.com/chazu/swiftblock/pkg/grading"
	"github.com/chazu/swiftblock/pkg/topology"
)

// arcLength measures a polyline from its start vertex through its points
// to its end vertex.
func arcLength(from, to v3.Vec, pts []v3.Vec) float64 {
	l := 0.0
	prev := from
	for _, p := range pts {
		l += p.Sub(prev).Length()
		prev = p
	}
	return l + to.Sub(prev).Length()
}

// Export builds the mesher model from the enabled blocks. Vertices are
// renumbered densely in their original order. The stored polylines are
// used, with extra replacing any stored one on the same edge. A polyline's
// arc length replaces the straight length of its edge during grading. Grading
// failures degrade to uniform distributions and are logged, not returned.
func (s *Session) Export(extra []blockmesh.Polyline) (*blockmesh.Model, error) {
	if s.topo == nil {
		return nil, ErrNoTopology
	}
	enabled := s.machine.EnabledBlocks()
	if len(enabled) == 0 {
		return nil, errors.New("session: every block is disabled")
	}

	used := s.topo.VertsInBlocks(enabled)
	old := make([]int, 0, len(used))
	for v := range used {
		old = append(old, v)
	}
	sort.Ints(old)
	renum := make(map[int]int, len(old))
	m := &blockmesh.Model{
		ConvertToMeters: s.opts.ConvertToMeters,
		EdgeSpecs:       make(map[[2]int]grading.Spec),
	}
	for i, v := range old {
		renum[v] = i
		m.Vertices = append(m.Vertices, s.wf.Vertices[v])
	}

	arcs := make(map[[2]int]float64)
	for _, pl := range s.withPolylines(extra) {
		if pl.From < 0 || pl.From >= len(s.wf.Vertices) || pl.To < 0 || pl.To >= len(s.wf.Vertices) {
			return nil, errors.Wrapf(blockmesh.ErrMalformed, "polyline %d-%d out of range", pl.From, pl.To)
		}
		if _, ok := s.topo.EdgeBetween(pl.From, pl.To); !ok {
			s.warnf("polyline %d-%d follows no edge, dropped", pl.From, pl.To)
			continue
		}
		_, a := renum[pl.From]
		_, b := renum[pl.To]
		if !a || !b {
			continue
		}
		arcs[pair(pl.From, pl.To)] = arcLength(s.wf.Vertices[pl.From], s.wf.Vertices[pl.To], pl.Points)
		m.Polylines = append(m.Polylines, blockmesh.Polyline{
			From:   renum[pl.From],
			To:     renum[pl.To],
			Points: append([]v3.Vec(nil), pl.Points...),
		})
	}

	specs := make(map[topology.GroupID]grading.Spec)
	specOf := func(g topology.GroupID) grading.Spec {
		if sp, ok := specs[g]; ok {
			return sp
		}
		sp, _ := s.grading(g, arcs)
		specs[g] = sp
		return sp
	}

	for _, id := range enabled {
		blk := s.topo.Blocks[id]
		out := blockmesh.Block{Name: s.names[id]}
		for i, v := range blk.Verts {
			out.Verts[i] = renum[v]
		}
		edges := s.topo.BlockEdges(id)
		for i, eid := range edges {
			g, _ := s.topo.GroupOf(eid)
			sp := specOf(g)
			e := s.topo.Edges[eid]
			from, _ := blk.EdgeCorners(i)
			if from != e.U {
				sp = sp.Mirror()
			}
			out.Grading[i] = sp.Triples()
			if i%4 == 0 {
				out.Cells[i/4] = sp.Cells()
			}
			m.EdgeSpecs[[2]int{renum[e.U], renum[e.V]}] = specOf(g)
			m.EdgeSpecs[[2]int{renum[e.V], renum[e.U]}] = specOf(g).Mirror()
		}
		m.Blocks = append(m.Blocks, out)
	}

	m.Patches = s.exportPatches(s.machine.Active(), renum)
	return m, m.Check()
}

// exportPatches groups visible faces by patch in assignment order; faces
// with no assignment land in the default patch, which comes last.
func (s *Session) exportPatches(active []blockstate.FaceChange, renum map[int]int) []blockmesh.BoundaryPatch {
	owner := make(map[[4]int]int)
	for i, p := range s.patches {
		for _, q := range p.faces {
			owner[sortedQuad(q)] = i
		}
	}
	out := make([]blockmesh.BoundaryPatch, len(s.patches))
	for i, p := range s.patches {
		out[i] = blockmesh.BoundaryPatch{Name: p.name, Type: p.typ}
	}
	def := blockmesh.BoundaryPatch{Name: s.opts.DefaultPatch, Type: s.opts.DefaultPatchType}
	defIndex := -1
	for i, p := range s.patches {
		if p.name == def.Name {
			defIndex = i
		}
	}

	for _, c := range active {
		var q [4]int
		for i, v := range c.Verts {
			q[i] = renum[v]
		}
		i, ok := owner[sortedQuad(c.Verts)]
		switch {
		case ok:
			out[i].Faces = append(out[i].Faces, q)
		case defIndex >= 0:
			out[defIndex].Faces = append(out[defIndex].Faces, q)
		default:
			def.Faces = append(def.Faces, q)
		}
	}

	var patches []blockmesh.BoundaryPatch
	for _, p := range out {
		if len(p.Faces) > 0 {
			patches = append(patches, p)
		}
	}
	if len(def.Faces) > 0 {
		patches = append(patches, def)
	}
	return patches
}
