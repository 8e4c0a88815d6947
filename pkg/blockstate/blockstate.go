// Package blockstate tracks which blocks are enabled and derives the
// visible boundary surface from them.
//
// A boundary face is visible when its owner is enabled. An internal face is
// visible when exactly one of its owners is enabled, and it then faces out
// of that owner.
package blockstate

import (
	"github.com/pkg/errors"

	"github.com/chazu/swiftblock/pkg/topology"
)

// ErrInconsistentToggle is returned for block or face ids that the current
// topology does not contain.
var ErrInconsistentToggle = errors.New("blockstate: inconsistent toggle")

// ChangeKind says how a face changed during a transition.
type ChangeKind int

const (
	Materialize ChangeKind = iota
	Remove
)

func (k ChangeKind) String() string {
	if k == Materialize {
		return "materialize"
	}
	return "remove"
}

// FaceChange is a single edit to the active boundary surface. Verts is
// wound outward from the enabled owner for Materialize and is the face's
// previous winding for Remove.
type FaceChange struct {
	Kind  ChangeKind
	Face  topology.FaceID
	Verts [4]int
}

// Transition is the outcome of a toggle.
type Transition struct {
	Block   topology.BlockID
	Enabled bool
	Changes []FaceChange
}

// FaceState is the derived visibility of one face.
type FaceState struct {
	Visible bool
	// Verts is the outward winding while visible.
	Verts [4]int
}

// Machine holds the enabled flags for one topology generation.
type Machine struct {
	topo    *topology.Topology
	enabled []bool
	faces   []FaceState
}

// New returns a machine with every block enabled.
func New(t *topology.Topology) *Machine {
	m := &Machine{
		topo:    t,
		enabled: make([]bool, len(t.Blocks)),
		faces:   make([]FaceState, len(t.Faces)),
	}
	for i := range m.enabled {
		m.enabled[i] = true
	}
	for i := range t.Faces {
		m.faces[i] = m.derive(&t.Faces[i])
	}
	return m
}

// Topology returns the topology the machine was built for.
func (m *Machine) Topology() *topology.Topology {
	return m.topo
}

// Enabled reports the flag of block id.
func (m *Machine) Enabled(id topology.BlockID) (bool, error) {
	if !m.topo.HasBlock(id) {
		return false, errors.Wrapf(ErrInconsistentToggle, "unknown block %d", id)
	}
	return m.enabled[id], nil
}

// EnabledBlocks lists enabled block ids in order.
func (m *Machine) EnabledBlocks() []topology.BlockID {
	var out []topology.BlockID
	for i, on := range m.enabled {
		if on {
			out = append(out, topology.BlockID(i))
		}
	}
	return out
}

// DisabledBlocks lists disabled block ids in order.
func (m *Machine) DisabledBlocks() []topology.BlockID {
	var out []topology.BlockID
	for i, on := range m.enabled {
		if !on {
			out = append(out, topology.BlockID(i))
		}
	}
	return out
}

// State returns the visibility of face id.
func (m *Machine) State(id topology.FaceID) (FaceState, error) {
	if id < 0 || int(id) >= len(m.faces) {
		return FaceState{}, errors.Wrapf(ErrInconsistentToggle, "unknown face %d", id)
	}
	return m.faces[id], nil
}

// Active returns a Materialize change for every currently visible face, in
// face order. It describes the surface from scratch.
func (m *Machine) Active() []FaceChange {
	var out []FaceChange
	for i, st := range m.faces {
		if st.Visible {
			out = append(out, FaceChange{Kind: Materialize, Face: topology.FaceID(i), Verts: st.Verts})
		}
	}
	return out
}

// Toggle flips the enabled flag of block id.
func (m *Machine) Toggle(id topology.BlockID) (Transition, error) {
	if !m.topo.HasBlock(id) {
		return Transition{}, errors.Wrapf(ErrInconsistentToggle, "unknown block %d", id)
	}
	return m.set(id, !m.enabled[id]), nil
}

// SetEnabled sets the flag of block id. Setting the current value yields an
// empty transition.
func (m *Machine) SetEnabled(id topology.BlockID, on bool) (Transition, error) {
	if !m.topo.HasBlock(id) {
		return Transition{}, errors.Wrapf(ErrInconsistentToggle, "unknown block %d", id)
	}
	if m.enabled[id] == on {
		return Transition{Block: id, Enabled: on}, nil
	}
	return m.set(id, on), nil
}

// set applies the flag and recomputes only the six faces of the block.
func (m *Machine) set(id topology.BlockID, on bool) Transition {
	m.enabled[id] = on
	tr := Transition{Block: id, Enabled: on}
	for _, fid := range m.topo.BlockFaces(id) {
		before := m.faces[fid]
		after := m.derive(&m.topo.Faces[fid])
		switch {
		case before.Visible && !after.Visible:
			tr.Changes = append(tr.Changes, FaceChange{Kind: Remove, Face: fid, Verts: before.Verts})
		case !before.Visible && after.Visible:
			tr.Changes = append(tr.Changes, FaceChange{Kind: Materialize, Face: fid, Verts: after.Verts})
		case before.Visible && after.Verts != before.Verts:
			tr.Changes = append(tr.Changes,
				FaceChange{Kind: Remove, Face: fid, Verts: before.Verts},
				FaceChange{Kind: Materialize, Face: fid, Verts: after.Verts})
		}
		m.faces[fid] = after
	}
	return tr
}

func (m *Machine) derive(f *topology.Face) FaceState {
	switch o := f.Owners.(type) {
	case topology.Boundary:
		if m.enabled[o.Owner] {
			return FaceState{Visible: true, Verts: f.Verts}
		}
	case topology.Internal:
		pos, neg := m.enabled[o.Pos], m.enabled[o.Neg]
		switch {
		case pos && !neg:
			return FaceState{Visible: true, Verts: f.Verts}
		case neg && !pos:
			return FaceState{Visible: true, Verts: f.Reversed()}
		}
	}
	return FaceState{}
}
