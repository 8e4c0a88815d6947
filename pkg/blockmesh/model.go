// Package blockmesh holds the mesher-facing model and reads and writes it
// as an OpenFOAM blockMeshDict.
package blockmesh

import (
	"regexp"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/pkg/errors"

	"github.com/chazu/swiftblock/pkg/grading"
)

var (
	// ErrMalformed is returned when a dictionary does not describe a model.
	ErrMalformed = errors.New("blockmesh: malformed dictionary")
	// ErrBadName is returned for block or patch names that are not words.
	ErrBadName = errors.New("blockmesh: invalid name")
	// ErrPatchType is returned for patch types outside PatchTypes.
	ErrPatchType = errors.New("blockmesh: unknown patch type")
)

// PatchType is the boundary condition class of a patch.
type PatchType string

const (
	Wall          PatchType = "wall"
	Patch         PatchType = "patch"
	Empty         PatchType = "empty"
	SymmetryPlane PatchType = "symmetryPlane"
)

// PatchTypes lists every supported patch type.
var PatchTypes = []PatchType{Wall, Patch, Empty, SymmetryPlane}

// ParsePatchType validates s.
func ParsePatchType(s string) (PatchType, error) {
	for _, t := range PatchTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", errors.Wrapf(ErrPatchType, "%q", s)
}

var wordRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidName reports whether s can be written as a dictionary word.
func ValidName(s string) bool {
	return wordRE.MatchString(s)
}

// Block is one hex entry. Grading holds the multi-grading triples of the 12
// block edges in local order.
type Block struct {
	Verts   [8]int
	Name    string
	Cells   [3]int
	Grading [12][]grading.Triple
}

// BoundaryPatch is a named set of outward wound faces.
type BoundaryPatch struct {
	Name  string
	Type  PatchType
	Faces [][4]int
}

// Polyline replaces the straight edge From-To with a point sequence.
type Polyline struct {
	From   int
	To     int
	Points []v3.Vec
}

// Model is everything the mesher needs.
type Model struct {
	ConvertToMeters float64
	Vertices        []v3.Vec
	Blocks          []Block
	Patches         []BoundaryPatch
	Polylines       []Polyline
	// EdgeSpecs maps each directed block edge to its resolved distribution.
	// It is not part of the dictionary.
	EdgeSpecs map[[2]int]grading.Spec
}

// Patch returns the patch called name.
func (m *Model) Patch(name string) (*BoundaryPatch, bool) {
	for i := range m.Patches {
		if m.Patches[i].Name == name {
			return &m.Patches[i], true
		}
	}
	return nil, false
}

// FaceCount returns the number of boundary faces over all patches.
func (m *Model) FaceCount() int {
	n := 0
	for _, p := range m.Patches {
		n += len(p.Faces)
	}
	return n
}

// CellCount returns the number of hexahedral cells the mesher will create.
func (m *Model) CellCount() int {
	n := 0
	for _, b := range m.Blocks {
		n += b.Cells[0] * b.Cells[1] * b.Cells[2]
	}
	return n
}

// Check validates names and index ranges.
func (m *Model) Check() error {
	n := len(m.Vertices)
	inRange := func(v int) bool { return v >= 0 && v < n }
	for i, b := range m.Blocks {
		if b.Name != "" && !ValidName(b.Name) {
			return errors.Wrapf(ErrBadName, "block %d name %q", i, b.Name)
		}
		for _, v := range b.Verts {
			if !inRange(v) {
				return errors.Wrapf(ErrMalformed, "block %d references vertex %d", i, v)
			}
		}
	}
	for _, p := range m.Patches {
		if !ValidName(p.Name) {
			return errors.Wrapf(ErrBadName, "patch %q", p.Name)
		}
		for _, f := range p.Faces {
			for _, v := range f {
				if !inRange(v) {
					return errors.Wrapf(ErrMalformed, "patch %s references vertex %d", p.Name, v)
				}
			}
		}
	}
	for _, pl := range m.Polylines {
		if !inRange(pl.From) || !inRange(pl.To) {
			return errors.Wrapf(ErrMalformed, "polyline %d-%d out of range", pl.From, pl.To)
		}
	}
	return nil
}
