package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"

	"github.com/chazu/swiftblock/pkg/blockmesh"
	"github.com/chazu/swiftblock/pkg/blockstate"
	"github.com/chazu/swiftblock/pkg/config"
	"github.com/chazu/swiftblock/pkg/engine"
	"github.com/chazu/swiftblock/pkg/kernel"
	"github.com/chazu/swiftblock/pkg/kernel/sdfx"
	"github.com/chazu/swiftblock/pkg/session"
	"github.com/chazu/swiftblock/pkg/store"
	"github.com/chazu/swiftblock/pkg/tessellate"
	"github.com/chazu/swiftblock/pkg/topology"
	"github.com/chazu/swiftblock/pkg/wireframe"
)

// app is one CLI invocation: configuration plus the open project store.
type app struct {
	cfg *config.Config
	st  *store.Store
	out io.Writer
}

func openApp(configPath, storePath string, out io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	for _, w := range cfg.Validate() {
		klog.Warningf("config: %s", w)
	}
	if storePath != "" {
		cfg.Store.Path = storePath
	}
	st, err := store.Open(store.Options{Dir: cfg.Store.Path, InMemory: cfg.Store.InMemory})
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, st: st, out: out}, nil
}

func (a *app) Close() error {
	return a.st.Close()
}

func (a *app) newSession() (*session.Session, *kernel.MemSurface) {
	surf := kernel.NewMemSurface()
	return session.New(session.OptionsFrom(a.cfg), surf), surf
}

// open loads project into a fresh session.
func (a *app) open(project string) (*session.Session, error) {
	s, _, err := a.openSurface(project)
	return s, err
}

// openSurface is open that also returns the session's visible surface.
func (a *app) openSurface(project string) (*session.Session, *kernel.MemSurface, error) {
	if project == "" {
		return nil, nil, errors.New("a project name is required (--project)")
	}
	s, surf := a.newSession()
	if _, err := s.Load(a.st, project); err != nil {
		return nil, nil, err
	}
	return s, surf, nil
}

// readWireframe loads a .swb script through the engine or a YAML wireframe.
func (a *app) readWireframe(path string) (*wireframe.Wireframe, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return wireframe.Load(f)
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	eng := engine.NewEngine()
	eng.Timeout = a.cfg.Engine.Timeout
	wf, evalErrs, err := eng.Evaluate(string(src))
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			klog.Errorf("%s: %v", path, e)
		}
		return nil, errors.Errorf("%s: %v", path, evalErrs[0])
	}
	return wf, nil
}

func (a *app) build(input, project string) error {
	if project == "" {
		project = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	}
	wf, err := a.readWireframe(input)
	if err != nil {
		return err
	}
	for _, v := range wireframe.Validate(wf) {
		if v.Severity == wireframe.SeverityWarning {
			klog.Warningf("%s: %v", input, v)
		}
	}

	s, surf := a.newSession()
	if _, err := s.Extract(wf); err != nil {
		return err
	}
	if err := s.Save(a.st, project); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "project %s: %d vertices, %d edges\n", project, wf.VertexCount(), wf.EdgeCount())
	printSummary(a.out, s, surf.Len())
	return nil
}

func printSummary(out io.Writer, s *session.Session, surface int) {
	t := s.Topology()
	internal := 0
	for i := range t.Faces {
		if !t.Faces[i].IsBoundary() {
			internal++
		}
	}
	fmt.Fprintf(out, "%d blocks, %d faces (%d internal), %d edge groups, %d visible faces\n",
		len(t.Blocks), len(t.Faces), internal, len(t.Groups), surface)
	for _, b := range t.Blocks {
		on, _ := s.Machine().Enabled(b.ID)
		name := s.BlockName(b.ID)
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(out, "  block %d %v enabled=%v zone=%s\n", b.ID, b.Verts, on, name)
	}
	for _, line := range t.Log {
		klog.V(1).Infof("extract: %s", line)
	}
}

func parseBlock(s string) (topology.BlockID, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrapf(err, "block id %q", s)
	}
	return topology.BlockID(n), nil
}

func (a *app) toggle(project string, ids []string, state string) error {
	s, err := a.open(project)
	if err != nil {
		return err
	}
	for _, arg := range ids {
		id, err := parseBlock(arg)
		if err != nil {
			return err
		}
		var tr blockstate.Transition
		switch state {
		case "":
			tr, err = s.Toggle(s.Generation(), id)
		case "on", "off":
			tr, err = s.SetEnabled(s.Generation(), id, state == "on")
		default:
			return errors.Errorf("--state must be on or off, got %q", state)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "block %d enabled=%v\n", tr.Block, tr.Enabled)
		for _, c := range tr.Changes {
			fmt.Fprintf(a.out, "  %s face %d %v\n", c.Kind, c.Face, c.Verts)
		}
	}
	return s.Save(a.st, project)
}

// gradingFlags carries the grading command's overrides. changed reports
// which flags were given explicitly.
type gradingFlags struct {
	x1, x2, r1, r2 float64
	changed        func(name string) bool
}

func (a *app) listGrading(project string) error {
	s, err := a.open(project)
	if err != nil {
		return err
	}
	for _, g := range s.Topology().Groups {
		printGroup(a.out, s, g.ID)
	}
	return nil
}

func printGroup(out io.Writer, s *session.Session, g topology.GroupID) {
	c := s.Constraints(g)
	spec, err := s.Grading(g)
	status := ""
	if err != nil {
		status = " (uniform fallback)"
	}
	fmt.Fprintf(out, "group %d: %d edges x1=%g x2=%g r1=%g r2=%g -> %d nodes, %d segments%s\n",
		g, len(s.Topology().Groups[g].Edges), c.X1, c.X2, c.R1, c.R2, spec.Nodes, len(spec.Segments), status)
}

// groupsOf resolves a grading target: a group id or an edge set name.
func groupsOf(s *session.Session, target string) ([]topology.GroupID, error) {
	if n, err := strconv.Atoi(target); err == nil {
		return []topology.GroupID{topology.GroupID(n)}, nil
	}
	return s.EdgeSetGroups(target)
}

func (a *app) grading(project, target string, gf gradingFlags, clearOverride bool) error {
	s, err := a.open(project)
	if err != nil {
		return err
	}
	groups, err := groupsOf(s, target)
	if err != nil {
		return err
	}
	for _, g := range groups {
		if err := a.gradeGroup(s, g, gf, clearOverride); err != nil {
			return err
		}
	}
	return s.Save(a.st, project)
}

func (a *app) gradeGroup(s *session.Session, g topology.GroupID, gf gradingFlags, clearOverride bool) error {
	var err error
	gen := s.Generation()

	switch {
	case clearOverride:
		err = s.ClearGrading(gen, g)
	case gf.changed != nil && (gf.changed("x1") || gf.changed("x2") || gf.changed("r1") || gf.changed("r2")):
		c := s.Constraints(g)
		if gf.changed("x1") {
			c.X1 = gf.x1
		}
		if gf.changed("x2") {
			c.X2 = gf.x2
		}
		if gf.changed("r1") {
			c.R1 = gf.r1
		}
		if gf.changed("r2") {
			c.R2 = gf.r2
		}
		err = s.SetGrading(gen, g, c)
	default:
		if int(g) < 0 || int(g) >= len(s.Topology().Groups) {
			return errors.Wrapf(session.ErrUnknownGroup, "group %d", g)
		}
		printGroup(a.out, s, g)
		return nil
	}
	if err != nil {
		return err
	}
	printGroup(a.out, s, g)
	return nil
}

func (a *app) patch(project, name, typ string, faces []string) error {
	s, err := a.open(project)
	if err != nil {
		return err
	}
	pt, err := blockmesh.ParsePatchType(typ)
	if err != nil {
		return err
	}
	var ids []topology.FaceID
	for _, f := range faces {
		n, err := strconv.Atoi(f)
		if err != nil {
			return errors.Wrapf(err, "face id %q", f)
		}
		ids = append(ids, topology.FaceID(n))
	}
	if err := s.AssignPatch(s.Generation(), name, pt, ids); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "patch %s (%s): %d faces assigned\n", name, pt, len(ids))
	return s.Save(a.st, project)
}

func (a *app) name(project, block, zone string) error {
	s, err := a.open(project)
	if err != nil {
		return err
	}
	id, err := parseBlock(block)
	if err != nil {
		return err
	}
	if err := s.NameBlock(s.Generation(), id, zone); err != nil {
		return err
	}
	return s.Save(a.st, project)
}

// writeOptions selects the outputs of the write command.
type writeOptions struct {
	output  string
	stl     string
	merge   bool
	surface string
}

func (a *app) write(project string, wo writeOptions) error {
	s, surf, err := a.openSurface(project)
	if err != nil {
		return err
	}
	m, err := s.Export(nil)
	if err != nil {
		return err
	}

	if wo.output == "-" {
		if err := blockmesh.Write(a.out, m); err != nil {
			return err
		}
	} else {
		f, err := os.Create(wo.output)
		if err != nil {
			return err
		}
		if err := blockmesh.Write(f, m); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "wrote %s: %d vertices, %d blocks, %d patches, %d cells\n",
			wo.output, len(m.Vertices), len(m.Blocks), len(m.Patches), m.CellCount())
	}

	if wo.stl != "" {
		var meshes []*kernel.Mesh
		if wo.merge {
			merged, err := tessellate.Merged(m, project)
			if err != nil {
				return err
			}
			meshes = []*kernel.Mesh{merged}
		} else if meshes, err = tessellate.Patches(m); err != nil {
			return err
		}
		if err := a.exportSTL(wo.stl, meshes...); err != nil {
			return err
		}
	}
	if wo.surface != "" {
		scaled := make([]v3.Vec, len(s.Wireframe().Vertices))
		for i, p := range s.Wireframe().Vertices {
			scaled[i] = p.MulScalar(a.cfg.Mesh.ConvertToMeters)
		}
		if err := a.exportSTL(wo.surface, surf.ToMesh("surface", scaled)); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) exportSTL(path string, meshes ...*kernel.Mesh) error {
	if err := sdfx.New().Export(path, meshes...); err != nil {
		return err
	}
	b := sdfx.Bounds(meshes...)
	klog.Infof("wrote %s: %d meshes", path, len(meshes))
	fmt.Fprintf(a.out, "wrote %s: bounds %v .. %v\n", path, b.Min, b.Max)
	return nil
}

func (a *app) faces(project string) error {
	s, err := a.open(project)
	if err != nil {
		return err
	}
	t := s.Topology()
	for _, f := range t.Faces {
		st, _ := s.Machine().State(f.ID)
		fmt.Fprintf(a.out, "face %d %v visible=%v patch=%s", f.ID, f.Verts, st.Visible, s.PatchOf(f.ID))
		for _, side := range faceSides(t, f.ID) {
			fmt.Fprintf(a.out, " %s", side)
		}
		fmt.Fprintln(a.out)
	}
	return nil
}

// faceSides names face id by the block faces it is, e.g. "block0:right".
func faceSides(t *topology.Topology, id topology.FaceID) []string {
	var out []string
	for _, b := range t.Blocks {
		for k, fid := range t.BlockFaces(b.ID) {
			if fid == id {
				out = append(out, fmt.Sprintf("block%d:%s", b.ID, topology.FaceNames[k]))
			}
		}
	}
	return out
}

func (a *app) polyline(project, from, to string, coords []string) error {
	s, err := a.open(project)
	if err != nil {
		return err
	}
	u, err := strconv.Atoi(from)
	if err != nil {
		return errors.Wrapf(err, "vertex %q", from)
	}
	v, err := strconv.Atoi(to)
	if err != nil {
		return errors.Wrapf(err, "vertex %q", to)
	}
	if len(coords)%3 != 0 {
		return errors.Errorf("points need x y z triples, got %d numbers", len(coords))
	}
	pl := blockmesh.Polyline{From: u, To: v}
	for i := 0; i < len(coords); i += 3 {
		var xyz [3]float64
		for k := range xyz {
			if xyz[k], err = strconv.ParseFloat(coords[i+k], 64); err != nil {
				return errors.Wrapf(err, "point %d", i/3)
			}
		}
		pl.Points = append(pl.Points, v3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]})
	}
	if err := s.SetPolyline(s.Generation(), pl); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "polyline %d-%d: %d points\n", u, v, len(pl.Points))
	return s.Save(a.st, project)
}

// parseEdge reads an "a-b" vertex pair.
func parseEdge(arg string) ([2]int, error) {
	parts := strings.SplitN(arg, "-", 2)
	if len(parts) != 2 {
		return [2]int{}, errors.Errorf("edge %q: want a-b", arg)
	}
	var e [2]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return [2]int{}, errors.Wrapf(err, "edge %q", arg)
		}
		e[i] = n
	}
	return e, nil
}

func (a *app) edgeSets(project string, args []string, del bool) error {
	s, err := a.open(project)
	if err != nil {
		return err
	}
	switch {
	case len(args) == 0:
		for _, name := range s.EdgeSetNames() {
			a.printEdgeSet(s, name)
		}
		return nil
	case del:
		for _, name := range args {
			if !s.DeleteEdgeSet(name) {
				return errors.Wrapf(session.ErrUnknownEdgeSet, "%q", name)
			}
		}
		return s.Save(a.st, project)
	case len(args) == 1:
		if _, ok := s.EdgeSet(args[0]); !ok {
			return errors.Wrapf(session.ErrUnknownEdgeSet, "%q", args[0])
		}
		a.printEdgeSet(s, args[0])
		return nil
	}
	var edges [][2]int
	for _, arg := range args[1:] {
		e, err := parseEdge(arg)
		if err != nil {
			return err
		}
		edges = append(edges, e)
	}
	if err := s.SetEdgeSet(s.Generation(), args[0], edges); err != nil {
		return err
	}
	a.printEdgeSet(s, args[0])
	return s.Save(a.st, project)
}

func (a *app) printEdgeSet(s *session.Session, name string) {
	set, _ := s.EdgeSet(name)
	groups, _ := s.EdgeSetGroups(name)
	fmt.Fprintf(a.out, "edges %s: %d edges in groups %v\n", name, len(set), groups)
}

func (a *app) list() error {
	names, err := a.st.List()
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Fprintln(a.out, n)
	}
	return nil
}
