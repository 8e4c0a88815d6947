// Package grading resolves one-dimensional node distributions along block
// edges from first/last cell sizes and growth ratios.
//
// A resolved Spec is normalized: segment lengths and cell counts are given
// as fractions of the edge, so the same Spec applies to every edge of a
// group regardless of its length.
package grading

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

var (
	// ErrUnsatisfiable is returned when no node count within the search
	// bound reproduces the requested length. The accompanying Spec is the
	// uniform fallback.
	ErrUnsatisfiable = errors.New("grading: constraints unsatisfiable")
	// ErrInvalidLength is returned for non-positive edge lengths.
	ErrInvalidLength = errors.New("grading: edge length must be positive")
)

// Constraints are the user-facing grading inputs for one edge. X1 and X2
// are the first and last cell sizes, zero meaning unconstrained. R1 and R2
// are growth ratios away from the respective end.
type Constraints struct {
	Length float64
	X1     float64
	X2     float64
	R1     float64
	R2     float64
}

// Swapped returns the constraints seen from the other end of the edge.
func (c Constraints) Swapped() Constraints {
	return Constraints{Length: c.Length, X1: c.X2, X2: c.X1, R1: c.R2, R2: c.R1}
}

// Fallback is the nominal subdivision used when no cell size is constrained
// and as the core size of two-sided distributions.
type Fallback struct {
	Nodes    int
	CellSize float64
}

// Options bound the node-count search. CellTolerance is the relative
// deviation allowed between a requested end cell size of a two-sided
// distribution and the cell actually placed there.
type Options struct {
	MaxNodes      int
	Tolerance     float64
	CellTolerance float64
}

// DefaultOptions returns a 400 node bound, a 1e-6 relative length
// tolerance and a 25% end cell tolerance.
func DefaultOptions() Options {
	return Options{MaxNodes: 400, Tolerance: 1e-6, CellTolerance: 0.25}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxNodes < 2 {
		o.MaxNodes = d.MaxNodes
	}
	if o.Tolerance <= 0 {
		o.Tolerance = d.Tolerance
	}
	if o.CellTolerance <= 0 {
		o.CellTolerance = d.CellTolerance
	}
	return o
}

// Segment is one run of cells with constant growth.
type Segment struct {
	LengthFrac float64
	CellFrac   float64
	Cells      int
	// Growth is the ratio between consecutive cells, >= 1.
	Growth float64
	// Shrinking segments apply Growth from the far end.
	Shrinking bool
}

// Expansion returns the last-to-first cell size ratio.
func (s Segment) Expansion() float64 {
	if s.Cells <= 1 || s.Growth == 1 {
		return 1
	}
	e := math.Pow(s.Growth, float64(s.Cells-1))
	if s.Shrinking {
		return 1 / e
	}
	return e
}

// cellSizes returns the first and last cell sizes of s on an edge of the
// given length.
func (s Segment) cellSizes(length float64) (first, last float64) {
	span := s.LengthFrac * length
	if s.Cells <= 0 {
		return 0, 0
	}
	if s.Growth == 1 {
		c := span / float64(s.Cells)
		return c, c
	}
	small := span / geometricSum(1, s.Growth, s.Cells)
	large := small * math.Pow(s.Growth, float64(s.Cells-1))
	if s.Shrinking {
		return large, small
	}
	return small, large
}

// Spec is a resolved distribution. Nodes is one more than the total cell
// count of the segments.
type Spec struct {
	Nodes    int
	Segments []Segment
}

// Triple is a blockMesh multi-grading entry.
type Triple struct {
	LengthFrac float64
	CellFrac   float64
	Expansion  float64
}

// Cells returns the number of cells along the edge.
func (s Spec) Cells() int {
	return s.Nodes - 1
}

// Triples returns the (length fraction, cell fraction, expansion) entries.
func (s Spec) Triples() []Triple {
	out := make([]Triple, len(s.Segments))
	for i, seg := range s.Segments {
		out[i] = Triple{LengthFrac: seg.LengthFrac, CellFrac: seg.CellFrac, Expansion: seg.Expansion()}
	}
	return out
}

// Mirror returns the distribution seen from the other end. It reverses the
// segments and flips the direction of graded ones without touching any
// floating-point value, so Mirror(Mirror(s)) equals s exactly.
func (s Spec) Mirror() Spec {
	out := Spec{Nodes: s.Nodes, Segments: make([]Segment, len(s.Segments))}
	for i, seg := range s.Segments {
		if seg.Growth != 1 {
			seg.Shrinking = !seg.Shrinking
		}
		out.Segments[len(s.Segments)-1-i] = seg
	}
	return out
}

// IsUniform reports whether every cell has the same size.
func (s Spec) IsUniform() bool {
	for _, seg := range s.Segments {
		if seg.Growth != 1 && seg.Cells > 1 {
			return false
		}
	}
	return true
}

// Uniform returns an evenly spaced distribution: round(L/dx)+1 nodes when
// a nominal cell size is given, else the fallback node count.
func Uniform(length float64, fb Fallback, opts Options) Spec {
	opts = opts.withDefaults()
	nodes := fb.Nodes
	if fb.CellSize > 0 && length > 0 {
		nodes = int(math.Round(length/fb.CellSize)) + 1
	}
	if nodes < 2 {
		nodes = 2
	}
	if nodes > opts.MaxNodes {
		nodes = opts.MaxNodes
	}
	return Spec{
		Nodes:    nodes,
		Segments: []Segment{{LengthFrac: 1, CellFrac: 1, Cells: nodes - 1, Growth: 1}},
	}
}

// Resolve computes the distribution for c. On ErrUnsatisfiable or
// ErrInvalidLength the returned Spec is the uniform fallback and is still
// usable.
func Resolve(c Constraints, fb Fallback, opts Options) (Spec, error) {
	opts = opts.withDefaults()
	if !(c.Length > 0) || math.IsInf(c.Length, 0) {
		return Uniform(c.Length, fb, opts), errors.Wrapf(ErrInvalidLength, "length %g", c.Length)
	}
	c = normalize(c)
	if c.X1 == 0 && c.X2 == 0 {
		return Uniform(c.Length, fb, opts), nil
	}
	if !canonical(c) {
		s, err := resolveCanonical(c.Swapped(), fb, opts)
		return s.Mirror(), err
	}
	return resolveCanonical(c, fb, opts)
}

// ForGroup resolves one distribution for a set of edges that must share a
// node count, using the longest of their lengths.
func ForGroup(lengths []float64, c Constraints, fb Fallback, opts Options) (Spec, error) {
	if len(lengths) == 0 {
		return Uniform(0, fb, opts), errors.Wrap(ErrInvalidLength, "empty edge group")
	}
	c.Length = floats.Max(lengths)
	return Resolve(c, fb, opts)
}

func normalize(c Constraints) Constraints {
	if c.X1 < 0 || math.IsNaN(c.X1) {
		c.X1 = 0
	}
	if c.X2 < 0 || math.IsNaN(c.X2) {
		c.X2 = 0
	}
	if !(c.R1 >= 1) {
		c.R1 = 1
	}
	if !(c.R2 >= 1) {
		c.R2 = 1
	}
	return c
}

// canonical reports whether (X1, R1) >= (X2, R2) lexicographically.
func canonical(c Constraints) bool {
	if c.X1 != c.X2 {
		return c.X1 > c.X2
	}
	return c.R1 >= c.R2
}

func resolveCanonical(c Constraints, fb Fallback, opts Options) (Spec, error) {
	var segs []Segment
	var err error
	if c.X2 == 0 {
		segs, err = singleSided(c, opts)
	} else {
		segs, err = twoSided(c, fb, opts)
	}
	if err != nil {
		return Uniform(c.Length, fb, opts), err
	}
	return finish(c, segs, fb, opts)
}

// geometricSum is the length of n cells starting at x and growing by r.
func geometricSum(x, r float64, n int) float64 {
	if r == 1 {
		return x * float64(n)
	}
	return x * (math.Pow(r, float64(n)) - 1) / (r - 1)
}

// singleSided finds the smallest cell count whose geometric series covers
// the length.
func singleSided(c Constraints, opts Options) ([]Segment, error) {
	target := c.Length * (1 - opts.Tolerance)
	for n := 1; n < opts.MaxNodes; n++ {
		if geometricSum(c.X1, c.R1, n) >= target {
			return []Segment{{LengthFrac: 1, Cells: n, Growth: c.R1}}, nil
		}
	}
	return nil, errors.Wrapf(ErrUnsatisfiable, "first cell %g at ratio %g needs more than %d nodes for length %g",
		c.X1, c.R1, opts.MaxNodes, c.Length)
}

type layer struct {
	cells  int
	length float64
	size   float64 // first cell
	ratio  float64
}

// grow adds cells starting at x until the next one would reach dc.
func grow(x, r, dc float64, limit int) layer {
	l := layer{size: x, ratio: r}
	if r == 1 {
		return l
	}
	cell := x
	for cell < dc && l.cells < limit {
		l.cells++
		l.length += cell
		cell *= r
	}
	return l
}

func (l *layer) dropLast() {
	if l.cells == 0 {
		return
	}
	l.cells--
	l.length = geometricSum(l.size, l.ratio, l.cells)
}

// coreSize picks the uniform cell size between two graded layers.
func coreSize(c Constraints, fb Fallback) float64 {
	switch {
	case c.R1 == 1 && c.R2 == 1:
		return (c.X1 + c.X2) / 2
	case c.R1 == 1:
		return c.X1
	case c.R2 == 1:
		return c.X2
	}
	dc := fb.CellSize
	if dc <= 0 {
		nodes := fb.Nodes
		if nodes < 2 {
			nodes = 2
		}
		dc = c.Length / float64(nodes-1)
	}
	return math.Max(dc, math.Max(c.X1, c.X2))
}

// twoSided builds first layer, uniform core and last layer.
func twoSided(c Constraints, fb Fallback, opts Options) ([]Segment, error) {
	dc := coreSize(c, fb)
	limit := opts.MaxNodes
	first := grow(c.X1, c.R1, dc, limit)
	last := grow(c.X2, c.R2, dc, limit)

	for first.length+last.length > c.Length && first.cells+last.cells > 0 {
		switch {
		case first.length > last.length:
			first.dropLast()
		case last.length > first.length:
			last.dropLast()
		default:
			first.dropLast()
			last.dropLast()
		}
	}

	core := c.Length - first.length - last.length
	coreCells := 0
	if core > c.Length*opts.Tolerance {
		coreCells = int(math.Round(core / dc))
		if coreCells < 1 {
			coreCells = 1
		}
	}
	if first.cells+coreCells+last.cells >= opts.MaxNodes {
		return nil, errors.Wrapf(ErrUnsatisfiable, "%d cells exceed the %d node bound",
			first.cells+coreCells+last.cells, opts.MaxNodes)
	}

	var segs []Segment
	if first.cells > 0 {
		segs = append(segs, Segment{LengthFrac: first.length / c.Length, Cells: first.cells, Growth: c.R1})
	}
	if coreCells > 0 {
		segs = append(segs, Segment{LengthFrac: core / c.Length, Cells: coreCells, Growth: 1})
	}
	if last.cells > 0 {
		segs = append(segs, Segment{LengthFrac: last.length / c.Length, Cells: last.cells, Growth: c.R2, Shrinking: true})
	}
	if len(segs) == 0 {
		return nil, errors.Wrap(ErrUnsatisfiable, "no cells")
	}

	x1, _ := segs[0].cellSizes(c.Length)
	_, x2 := segs[len(segs)-1].cellSizes(c.Length)
	if !nearCell(x1, c.X1, opts.CellTolerance) || !nearCell(x2, c.X2, opts.CellTolerance) {
		return nil, errors.Wrapf(ErrUnsatisfiable, "end cells %g/%g cannot meet requested %g/%g",
			x1, x2, c.X1, c.X2)
	}
	return segs, nil
}

// nearCell reports whether got is within the relative tolerance of want.
func nearCell(got, want, tol float64) bool {
	return scalar.EqualWithinRel(got, want, tol)
}

// finish fills cell fractions and checks that both fraction sets sum to one.
func finish(c Constraints, segs []Segment, fb Fallback, opts Options) (Spec, error) {
	total := 0
	for _, s := range segs {
		total += s.Cells
	}
	if total == 0 {
		return Uniform(c.Length, fb, opts), errors.Wrap(ErrUnsatisfiable, "no cells")
	}
	lf := make([]float64, len(segs))
	cf := make([]float64, len(segs))
	for i := range segs {
		segs[i].CellFrac = float64(segs[i].Cells) / float64(total)
		lf[i] = segs[i].LengthFrac
		cf[i] = segs[i].CellFrac
	}
	tol := opts.Tolerance
	if !scalar.EqualWithinAbsOrRel(floats.Sum(lf), 1, tol, tol) || !scalar.EqualWithinAbsOrRel(floats.Sum(cf), 1, tol, tol) {
		return Uniform(c.Length, fb, opts), errors.Wrapf(ErrUnsatisfiable,
			"segment fractions sum to %g/%g", floats.Sum(lf), floats.Sum(cf))
	}
	return Spec{Nodes: total + 1, Segments: segs}, nil
}
