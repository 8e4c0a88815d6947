package blockmesh

import (
	"io"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/pkg/errors"

	"github.com/chazu/swiftblock/pkg/grading"
)

// Parse reads a blockMeshDict. Only the subset Write produces is decoded:
// hex blocks with simple or edge grading, polyLine edges and boundary
// patches.
func Parse(r io.Reader) (*Model, error) {
	f, err := foamParser.Parse("blockMeshDict", r)
	if err != nil {
		return nil, errors.Wrap(err, "blockmesh: parse")
	}
	m := &Model{ConvertToMeters: 1}
	for _, e := range f.Entries {
		if err := decodeEntry(m, e); err != nil {
			return nil, errors.Wrapf(err, "entry %s", e.Key)
		}
	}
	return m, nil
}

func malformed(format string, args ...interface{}) error {
	return errors.Wrapf(ErrMalformed, format, args...)
}

func decodeEntry(m *Model, e *foamEntry) error {
	switch e.Key {
	case "FoamFile", "mergePatchPairs", "defaultPatch":
		return nil
	case "convertToMeters", "scale":
		if len(e.Values) != 1 || e.Values[0].Number == nil {
			return malformed("want a single number")
		}
		m.ConvertToMeters = *e.Values[0].Number
		return nil
	}
	items, err := entryList(e)
	if err != nil {
		return err
	}
	switch e.Key {
	case "vertices":
		for i, it := range items {
			p, err := point(it)
			if err != nil {
				return errors.Wrapf(err, "vertex %d", i)
			}
			m.Vertices = append(m.Vertices, p)
		}
	case "blocks":
		return decodeBlocks(m, items)
	case "edges":
		return decodeEdges(m, items)
	case "boundary":
		return decodeBoundary(m, items)
	}
	return nil
}

func entryList(e *foamEntry) ([]*foamValue, error) {
	if len(e.Values) != 1 || e.Values[0].List == nil {
		return nil, malformed("want a single list")
	}
	return e.Values[0].List.Items, nil
}

func numbers(v *foamValue, n int) ([]float64, error) {
	if v.List == nil || len(v.List.Items) != n {
		return nil, malformed("want a list of %d numbers", n)
	}
	out := make([]float64, n)
	for i, it := range v.List.Items {
		if it.Number == nil {
			return nil, malformed("want a number at position %d", i)
		}
		out[i] = *it.Number
	}
	return out, nil
}

func point(v *foamValue) (v3.Vec, error) {
	xs, err := numbers(v, 3)
	if err != nil {
		return v3.Vec{}, err
	}
	return v3.Vec{X: xs[0], Y: xs[1], Z: xs[2]}, nil
}

func intsOf(v *foamValue, n int) ([]int, error) {
	xs, err := numbers(v, n)
	if err != nil {
		return nil, err
	}
	out := make([]int, n)
	for i, x := range xs {
		out[i] = int(x)
		if float64(out[i]) != x {
			return nil, malformed("want an integer, got %g", x)
		}
	}
	return out, nil
}

func word(v *foamValue) (string, bool) {
	if v == nil || v.Word == nil {
		return "", false
	}
	return *v.Word, true
}

// decodeBlocks walks: hex (8) [name] (3) simpleGrading|edgeGrading (...).
func decodeBlocks(m *Model, items []*foamValue) error {
	for i := 0; i < len(items); {
		if kind, ok := word(items[i]); !ok || kind != "hex" {
			return malformed("block %d: want hex", len(m.Blocks))
		}
		i++
		if i >= len(items) {
			return malformed("block %d: truncated", len(m.Blocks))
		}
		var b Block
		verts, err := intsOf(items[i], 8)
		if err != nil {
			return errors.Wrapf(err, "block %d vertices", len(m.Blocks))
		}
		copy(b.Verts[:], verts)
		i++
		if i < len(items) {
			if name, ok := word(items[i]); ok {
				b.Name = name
				i++
			}
		}
		if i >= len(items) {
			return malformed("block %d: missing cell counts", len(m.Blocks))
		}
		cells, err := intsOf(items[i], 3)
		if err != nil {
			return errors.Wrapf(err, "block %d cells", len(m.Blocks))
		}
		copy(b.Cells[:], cells)
		i++
		if i+1 >= len(items) {
			return malformed("block %d: missing grading", len(m.Blocks))
		}
		kind, _ := word(items[i])
		if err := decodeGrading(&b, kind, items[i+1]); err != nil {
			return errors.Wrapf(err, "block %d grading", len(m.Blocks))
		}
		i += 2
		m.Blocks = append(m.Blocks, b)
	}
	return nil
}

func decodeGrading(b *Block, kind string, v *foamValue) error {
	if v.List == nil {
		return malformed("want a grading list")
	}
	entries := v.List.Items
	switch {
	case kind == "simpleGrading" && len(entries) == 3:
		for d := 0; d < 3; d++ {
			ts, err := triples(entries[d])
			if err != nil {
				return err
			}
			for k := 0; k < 4; k++ {
				b.Grading[d*4+k] = ts
			}
		}
	case kind == "edgeGrading" && len(entries) == 12:
		for k, entry := range entries {
			ts, err := triples(entry)
			if err != nil {
				return err
			}
			b.Grading[k] = ts
		}
	default:
		return malformed("%s with %d entries", kind, len(entries))
	}
	return nil
}

// triples decodes either a bare expansion ratio or a list of
// (length-fraction cell-fraction expansion) triples.
func triples(v *foamValue) ([]grading.Triple, error) {
	if v.Number != nil {
		return []grading.Triple{{LengthFrac: 1, CellFrac: 1, Expansion: *v.Number}}, nil
	}
	if v.List == nil {
		return nil, malformed("want a grading entry")
	}
	var out []grading.Triple
	for _, it := range v.List.Items {
		xs, err := numbers(it, 3)
		if err != nil {
			return nil, err
		}
		out = append(out, grading.Triple{LengthFrac: xs[0], CellFrac: xs[1], Expansion: xs[2]})
	}
	return out, nil
}

// decodeEdges walks: polyLine from to ((x y z) ...).
func decodeEdges(m *Model, items []*foamValue) error {
	for i := 0; i < len(items); i += 4 {
		kind, ok := word(items[i])
		if !ok {
			return malformed("edge %d: want a curve type", len(m.Polylines))
		}
		if kind != "polyLine" {
			return malformed("edge %d: unsupported curve type %s", len(m.Polylines), kind)
		}
		if i+3 >= len(items) || items[i+1].Number == nil || items[i+2].Number == nil || items[i+3].List == nil {
			return malformed("edge %d: want from, to and points", len(m.Polylines))
		}
		pl := Polyline{From: int(*items[i+1].Number), To: int(*items[i+2].Number)}
		for _, it := range items[i+3].List.Items {
			p, err := point(it)
			if err != nil {
				return err
			}
			pl.Points = append(pl.Points, p)
		}
		m.Polylines = append(m.Polylines, pl)
	}
	return nil
}

// decodeBoundary walks: name { type t; faces ((a b c d) ...); }.
func decodeBoundary(m *Model, items []*foamValue) error {
	for i := 0; i < len(items); i += 2 {
		name, ok := word(items[i])
		if !ok || i+1 >= len(items) || items[i+1].Dict == nil {
			return malformed("patch %d: want name and dictionary", len(m.Patches))
		}
		p := BoundaryPatch{Name: name}
		for _, e := range items[i+1].Dict.Entries {
			switch e.Key {
			case "type":
				if len(e.Values) != 1 {
					return malformed("patch %s: bad type", name)
				}
				t, ok := word(e.Values[0])
				if !ok {
					return malformed("patch %s: bad type", name)
				}
				pt, err := ParsePatchType(t)
				if err != nil {
					return errors.Wrapf(ErrMalformed, "patch %s: %v", name, err)
				}
				p.Type = pt
			case "faces":
				faces, err := entryList(e)
				if err != nil {
					return errors.Wrapf(err, "patch %s faces", name)
				}
				for _, fv := range faces {
					vs, err := intsOf(fv, 4)
					if err != nil {
						return errors.Wrapf(err, "patch %s", name)
					}
					p.Faces = append(p.Faces, [4]int{vs[0], vs[1], vs[2], vs[3]})
				}
			}
		}
		m.Patches = append(m.Patches, p)
	}
	return nil
}
