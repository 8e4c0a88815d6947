package session

import (
	"sort"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/pkg/errors"

	"github.com/chazu/swiftblock/pkg/blockmesh"
	"github.com/chazu/swiftblock/pkg/topology"
)

// Polylines and edge sets are keyed by vertex pairs, so like patches they
// survive re-extraction.

// SetPolyline replaces the straight edge pl.From-pl.To with pl.Points. An
// empty point list restores the straight edge.
func (s *Session) SetPolyline(gen uint64, pl blockmesh.Polyline) error {
	if err := s.check(gen); err != nil {
		return err
	}
	if _, ok := s.topo.EdgeBetween(pl.From, pl.To); !ok {
		return errors.Wrapf(ErrUnknownEdge, "polyline %d-%d", pl.From, pl.To)
	}
	s.setPolyline(pl)
	return nil
}

func (s *Session) setPolyline(pl blockmesh.Polyline) {
	key := pair(pl.From, pl.To)
	if len(pl.Points) == 0 {
		delete(s.polylines, key)
		return
	}
	pts := append([]v3.Vec(nil), pl.Points...)
	if pl.From > pl.To {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}
	s.polylines[key] = blockmesh.Polyline{From: key[0], To: key[1], Points: pts}
}

// Polylines returns the stored polylines ordered by vertex pair, each
// running from its smaller vertex.
func (s *Session) Polylines() []blockmesh.Polyline {
	keys := make([][2]int, 0, len(s.polylines))
	for k := range s.polylines {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})
	out := make([]blockmesh.Polyline, len(keys))
	for i, k := range keys {
		out[i] = s.polylines[k]
	}
	return out
}

// withPolylines returns the stored polylines with extra laid over them.
func (s *Session) withPolylines(extra []blockmesh.Polyline) []blockmesh.Polyline {
	if len(extra) == 0 {
		return s.Polylines()
	}
	seen := make(map[[2]int]bool, len(extra))
	for _, pl := range extra {
		seen[pair(pl.From, pl.To)] = true
	}
	var out []blockmesh.Polyline
	for _, pl := range s.Polylines() {
		if !seen[pair(pl.From, pl.To)] {
			out = append(out, pl)
		}
	}
	return append(out, extra...)
}

// SetEdgeSet names a set of wireframe edges, replacing any set of the same
// name. Sets select edges for grading and are not written to the mesher.
func (s *Session) SetEdgeSet(gen uint64, name string, edges [][2]int) error {
	if err := s.check(gen); err != nil {
		return err
	}
	if !blockmesh.ValidName(name) {
		return errors.Wrapf(blockmesh.ErrBadName, "edge set %q", name)
	}
	if len(edges) == 0 {
		return errors.Errorf("session: edge set %s is empty", name)
	}
	seen := make(map[[2]int]bool, len(edges))
	var set [][2]int
	for _, e := range edges {
		if _, ok := s.topo.EdgeBetween(e[0], e[1]); !ok {
			return errors.Wrapf(ErrUnknownEdge, "edge set %s: %d-%d", name, e[0], e[1])
		}
		k := pair(e[0], e[1])
		if !seen[k] {
			seen[k] = true
			set = append(set, k)
		}
	}
	s.edgeSets[name] = set
	return nil
}

// EdgeSet returns the edges of the set called name.
func (s *Session) EdgeSet(name string) ([][2]int, bool) {
	set, ok := s.edgeSets[name]
	return append([][2]int(nil), set...), ok
}

// DeleteEdgeSet removes the set called name and reports whether it existed.
func (s *Session) DeleteEdgeSet(name string) bool {
	_, ok := s.edgeSets[name]
	delete(s.edgeSets, name)
	return ok
}

// EdgeSetNames returns the defined set names in order.
func (s *Session) EdgeSetNames() []string {
	names := make([]string, 0, len(s.edgeSets))
	for n := range s.edgeSets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// EdgeSetGroups returns the edge groups touched by the set called name.
// Members that no longer lie on a block are logged and skipped.
func (s *Session) EdgeSetGroups(name string) ([]topology.GroupID, error) {
	if s.topo == nil {
		return nil, ErrNoTopology
	}
	set, ok := s.edgeSets[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownEdgeSet, "%q", name)
	}
	seen := make(map[topology.GroupID]bool)
	var out []topology.GroupID
	for _, e := range set {
		eid, ok := s.topo.EdgeBetween(e[0], e[1])
		g, grouped := s.topo.GroupOf(eid)
		if !ok || !grouped {
			s.warnf("edge set %s: %d-%d is on no block", name, e[0], e[1])
			continue
		}
		if !seen[g] {
			seen[g] = true
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
