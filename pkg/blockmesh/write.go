package blockmesh

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/pkg/errors"

	"github.com/chazu/swiftblock/pkg/grading"
)

const header = `/*--------------------------------*- C++ -*----------------------------------*\
  =========                 |
  \\      /  F ield         | OpenFOAM: The Open Source CFD Toolbox
   \\    /   O peration     |
    \\  /    A nd           | Written by swiftblock
     \\/     M anipulation  |
\*---------------------------------------------------------------------------*/
FoamFile
{
    version     2.0;
    format      ascii;
    class       dictionary;
    object      blockMeshDict;
}
// * * * * * * * * * * * * * * * * * * * * * * * * * * * * * * * * * * * * * //
`

func num(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func vec(p v3.Vec) string {
	return "(" + num(p.X) + " " + num(p.Y) + " " + num(p.Z) + ")"
}

func ints(vs []int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.Itoa(v)
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// gradingEntry writes a single expansion ratio when the edge has one
// segment covering it, else the full multi-grading list.
func gradingEntry(ts []grading.Triple) string {
	if len(ts) == 0 {
		return "1"
	}
	if len(ts) == 1 && ts[0].LengthFrac == 1 && ts[0].CellFrac == 1 {
		return num(ts[0].Expansion)
	}
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = "(" + num(t.LengthFrac) + " " + num(t.CellFrac) + " " + num(t.Expansion) + ")"
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// Write emits m as a blockMeshDict.
func Write(out io.Writer, m *Model) error {
	if err := m.Check(); err != nil {
		return err
	}
	w := bufio.NewWriter(out)
	scale := m.ConvertToMeters
	if scale == 0 {
		scale = 1
	}

	fmt.Fprint(w, header)
	fmt.Fprintf(w, "\nconvertToMeters %s;\n", num(scale))

	fmt.Fprint(w, "\nvertices\n(\n")
	for i, p := range m.Vertices {
		fmt.Fprintf(w, "    %s // %d\n", vec(p), i)
	}
	fmt.Fprint(w, ");\n")

	fmt.Fprint(w, "\nblocks\n(\n")
	for _, b := range m.Blocks {
		fmt.Fprintf(w, "    hex %s", ints(b.Verts[:]))
		if b.Name != "" {
			fmt.Fprintf(w, " %s", b.Name)
		}
		fmt.Fprintf(w, " %s edgeGrading\n    (\n", ints(b.Cells[:]))
		for i := 0; i < 12; i += 4 {
			fmt.Fprintf(w, "        %s %s %s %s\n",
				gradingEntry(b.Grading[i]), gradingEntry(b.Grading[i+1]),
				gradingEntry(b.Grading[i+2]), gradingEntry(b.Grading[i+3]))
		}
		fmt.Fprint(w, "    )\n")
	}
	fmt.Fprint(w, ");\n")

	fmt.Fprint(w, "\nedges\n(\n")
	for _, pl := range m.Polylines {
		fmt.Fprintf(w, "    polyLine %d %d\n    (\n", pl.From, pl.To)
		for _, p := range pl.Points {
			fmt.Fprintf(w, "        %s\n", vec(p))
		}
		fmt.Fprint(w, "    )\n")
	}
	fmt.Fprint(w, ");\n")

	fmt.Fprint(w, "\nboundary\n(\n")
	for _, p := range m.Patches {
		fmt.Fprintf(w, "    %s\n    {\n        type %s;\n        faces\n        (\n", p.Name, p.Type)
		for _, f := range p.Faces {
			fmt.Fprintf(w, "            %s\n", ints(f[:]))
		}
		fmt.Fprint(w, "        );\n    }\n")
	}
	fmt.Fprint(w, ");\n")

	fmt.Fprint(w, "\nmergePatchPairs\n(\n);\n")
	fmt.Fprint(w, "\n// ************************************************************************* //\n")
	return errors.Wrap(w.Flush(), "blockmesh: write")
}
