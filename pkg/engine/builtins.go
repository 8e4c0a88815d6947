package engine

import (
	"fmt"

	"github.com/chazu/swiftblock/pkg/wireframe"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/pkg/errors"
)

// boxCorners are the unit offsets of a box's corners, bottom ring then top
// ring, counter-clockwise seen from +z.
var boxCorners = [8]v3.Vec{
	{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 0},
	{X: 0, Y: 0, Z: 1}, {X: 1, Y: 0, Z: 1}, {X: 1, Y: 1, Z: 1}, {X: 0, Y: 1, Z: 1},
}

// boxEdges connect boxCorners into the 12 edges of a hexahedron.
var boxEdges = [12][2]int{
	{0, 1}, {1, 2}, {2, 3}, {3, 0},
	{4, 5}, {5, 6}, {6, 7}, {7, 4},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

// sexpVec3 wraps a position so it can be passed between builtins.
type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, errors.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 accepts a vec3 value.
func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return v3.Vec{}, errors.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toIndex extracts a vertex index of wf.
func toIndex(wf *wireframe.Wireframe, s zygo.Sexp) (int, error) {
	v, ok := s.(*zygo.SexpInt)
	if !ok {
		return 0, errors.Errorf("expected vertex index, got %T (%s)", s, s.SexpString(nil))
	}
	if v.Val < 0 || int(v.Val) >= wf.VertexCount() {
		return 0, errors.Errorf("vertex %d out of range [0, %d)", v.Val, wf.VertexCount())
	}
	return int(v.Val), nil
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, errors.Errorf("expected list or array, got %T", s)
}

// toIndices flattens index arguments, expanding lists and arrays in place.
func toIndices(wf *wireframe.Wireframe, args []zygo.Sexp) ([]int, error) {
	var out []int
	for _, a := range args {
		switch a.(type) {
		case *zygo.SexpPair, *zygo.SexpArray:
			items, err := sexpListToSlice(a)
			if err != nil {
				return nil, err
			}
			inner, err := toIndices(wf, items)
			if err != nil {
				return nil, err
			}
			out = append(out, inner...)
			continue
		}
		i, err := toIndex(wf, a)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, nil
}

// point reads either a single vec3 or three numbers.
func point(args []zygo.Sexp) (v3.Vec, error) {
	if len(args) == 1 {
		return toVec3(args[0])
	}
	if len(args) != 3 {
		return v3.Vec{}, errors.Errorf("expected a vec3 or 3 numbers, got %d arguments", len(args))
	}
	var xyz [3]float64
	for i, a := range args {
		f, err := toFloat64(a)
		if err != nil {
			return v3.Vec{}, errors.Wrap(err, [3]string{"x", "y", "z"}[i])
		}
		xyz[i] = f
	}
	return v3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}

func indexArray(ids []int) zygo.Sexp {
	vals := make([]zygo.Sexp, len(ids))
	for i, id := range ids {
		vals[i] = &zygo.SexpInt{Val: int64(id)}
	}
	return &zygo.SexpArray{Val: vals}
}

// registerBuiltins installs the wireframe builtins into a zygomys
// environment. They append to wf as the script runs. box reads keywords,
// so sources go through rewriteSource first.
func registerBuiltins(env *zygo.Zlisp, wf *wireframe.Wireframe) {

	// (vec3 1 2 3)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, errors.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		p, err := point(args)
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "vec3")
		}
		return &sexpVec3{vec: p}, nil
	})

	// (vertex 0 0 1) or (vertex (vec3 0 0 1)) returns the vertex index.
	env.AddFunction("vertex", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		p, err := point(args)
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "vertex")
		}
		return &zygo.SexpInt{Val: int64(wf.AddVertex(p))}, nil
	})

	// (edge a b)
	env.AddFunction("edge", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, errors.Errorf("edge requires exactly 2 vertices, got %d", len(args))
		}
		ids, err := toIndices(wf, args)
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "edge")
		}
		if ids[0] == ids[1] {
			return zygo.SexpNull, errors.Errorf("edge: vertex %d connected to itself", ids[0])
		}
		wf.AddEdge(ids[0], ids[1])
		return zygo.SexpNull, nil
	})

	// (path a b c ...) connects consecutive vertices; repeat the first to close.
	env.AddFunction("path", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		ids, err := toIndices(wf, args)
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "path")
		}
		if len(ids) < 2 {
			return zygo.SexpNull, errors.Errorf("path requires at least 2 vertices, got %d", len(ids))
		}
		for i := 1; i < len(ids); i++ {
			if ids[i-1] != ids[i] {
				wf.AddEdge(ids[i-1], ids[i])
			}
		}
		return zygo.SexpNull, nil
	})

	// (exclude i ...)
	env.AddFunction("exclude", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		ids, err := toIndices(wf, args)
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "exclude")
		}
		wf.Exclude(ids...)
		return zygo.SexpNull, nil
	})

	// (box :at (vec3 0 0 0) :size (vec3 1 1 1)) returns the 8 corner indices.
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		kw, err := keywordArgs(args, "at", "size")
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "box")
		}

		at := v3.Vec{}
		size := v3.Vec{X: 1, Y: 1, Z: 1}
		if v, ok := kw["at"]; ok {
			p, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, errors.Wrap(err, "box: at")
			}
			at = p
		}
		if v, ok := kw["size"]; ok {
			p, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, errors.Wrap(err, "box: size")
			}
			size = p
		}
		if size.X <= 0 || size.Y <= 0 || size.Z <= 0 {
			return zygo.SexpNull, errors.Errorf("box: size must be positive, got %g %g %g", size.X, size.Y, size.Z)
		}

		var ids [8]int
		for i, c := range boxCorners {
			ids[i] = wf.AddVertex(at.Add(v3.Vec{X: c.X * size.X, Y: c.Y * size.Y, Z: c.Z * size.Z}))
		}
		for _, e := range boxEdges {
			wf.AddEdge(ids[e[0]], ids[e[1]])
		}
		return indexArray(ids[:]), nil
	})
}
