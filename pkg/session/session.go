// Package session owns the editable scene state: the authored wireframe,
// the topology extracted from it, the block enable flags and the grading,
// naming and patch choices made against that topology.
//
// Every successful extraction starts a new generation. Calls that name
// blocks, faces or groups carry the generation they were issued against
// and are rejected once it is stale.
package session

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"github.com/plan-systems/klog"

	"github.com/chazu/swiftblock/pkg/blockmesh"
	"github.com/chazu/swiftblock/pkg/blockstate"
	"github.com/chazu/swiftblock/pkg/config"
	"github.com/chazu/swiftblock/pkg/grading"
	"github.com/chazu/swiftblock/pkg/kernel"
	"github.com/chazu/swiftblock/pkg/topology"
	"github.com/chazu/swiftblock/pkg/wireframe"
)

var (
	// ErrStaleGeneration is returned for requests issued against an older
	// topology. It is an InconsistentToggle.
	ErrStaleGeneration = errors.WithMessage(blockstate.ErrInconsistentToggle, "session: stale generation")
	// ErrNoTopology is returned before the first successful extraction.
	ErrNoTopology = errors.New("session: no topology")
	// ErrUnknownGroup is returned for edge group ids outside the topology.
	ErrUnknownGroup = errors.New("session: unknown edge group")
	// ErrUnknownEdge is returned for vertex pairs that are not wireframe edges.
	ErrUnknownEdge = errors.New("session: unknown edge")
	// ErrUnknownEdgeSet is returned for edge set names never defined.
	ErrUnknownEdgeSet = errors.New("session: unknown edge set")
)

// Options are the session defaults.
type Options struct {
	Fallback         grading.Fallback
	Defaults         grading.Constraints
	Grading          grading.Options
	ConvertToMeters  float64
	DefaultPatch     string
	DefaultPatchType blockmesh.PatchType
	ExcludeDisabled  bool
}

// OptionsFrom maps configuration onto session options.
func OptionsFrom(cfg *config.Config) Options {
	return Options{
		Fallback:         cfg.Fallback(),
		Defaults:         cfg.DefaultConstraints(),
		Grading:          cfg.GradingOptions(),
		ConvertToMeters:  cfg.Mesh.ConvertToMeters,
		DefaultPatch:     cfg.Mesh.DefaultPatch,
		DefaultPatchType: cfg.PatchType(),
		ExcludeDisabled:  cfg.Mesh.ExcludeDisabled,
	}
}

// DefaultOptions returns the options of the built-in configuration.
func DefaultOptions() Options {
	return OptionsFrom(config.Default())
}

type patchAssignment struct {
	name  string
	typ   blockmesh.PatchType
	faces [][4]int // vertex sets, stable across extractions
}

// Session is the explicit scene-state context. It is not safe for
// concurrent use; callers serialize access.
type Session struct {
	opts    Options
	surface kernel.Surface

	wf      *wireframe.Wireframe
	topo    *topology.Topology
	machine *blockstate.Machine
	gen     uint64

	overrides map[topology.GroupID]grading.Constraints
	names     map[topology.BlockID]string
	patches   []*patchAssignment
	polylines map[[2]int]blockmesh.Polyline
	edgeSets  map[string][][2]int

	log []string
}

// New creates a session. surface may be nil when no host needs the
// boundary surface edits.
func New(opts Options, surface kernel.Surface) *Session {
	return &Session{
		opts:      opts,
		surface:   surface,
		polylines: make(map[[2]int]blockmesh.Polyline),
		edgeSets:  make(map[string][][2]int),
	}
}

func (s *Session) logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	s.log = append(s.log, msg)
	klog.V(1).Info(msg)
}

func (s *Session) warnf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	s.log = append(s.log, "warning: "+msg)
	klog.Warning(msg)
}

// Log returns the session's diagnostic log.
func (s *Session) Log() []string {
	return append([]string(nil), s.log...)
}

// Generation returns the current generation, 0 before any extraction.
func (s *Session) Generation() uint64 { return s.gen }

// Topology returns the current topology or nil.
func (s *Session) Topology() *topology.Topology { return s.topo }

// Wireframe returns the wireframe of the current topology or nil.
func (s *Session) Wireframe() *wireframe.Wireframe { return s.wf }

// Machine returns the block state machine of the current topology or nil.
func (s *Session) Machine() *blockstate.Machine { return s.machine }

func (s *Session) check(gen uint64) error {
	if s.topo == nil {
		return errors.Wrap(ErrStaleGeneration, ErrNoTopology.Error())
	}
	if gen != s.gen {
		return errors.Wrapf(ErrStaleGeneration, "generation %d, current %d", gen, s.gen)
	}
	return nil
}

// exclusions merges the authored exclusions with vertices used only by
// disabled blocks of the current topology when ExcludeDisabled is set.
func (s *Session) exclusions(wf *wireframe.Wireframe) map[int]bool {
	ex := wf.ExcludedSet()
	if !s.opts.ExcludeDisabled || s.machine == nil {
		return ex
	}
	on := s.topo.VertsInBlocks(s.machine.EnabledBlocks())
	for v := range s.topo.VertsInBlocks(s.machine.DisabledBlocks()) {
		if !on[v] {
			ex[v] = true
		}
	}
	return ex
}

// Extract rebuilds the topology from wf. On failure the previous model is
// kept and the error is returned. On success every block is enabled, all
// id-keyed choices are dropped and the generation advances.
func (s *Session) Extract(wf *wireframe.Wireframe) (uint64, error) {
	if errs := wireframe.Validate(wf); wireframe.HasErrors(errs) {
		for _, e := range errs {
			s.warnf("wireframe: %v", e)
		}
		return s.gen, errors.Wrapf(topology.ErrIndexOutOfRange, "wireframe has %d findings", len(errs))
	}

	in := topology.InputFrom(wf)
	in.Excluded = s.exclusions(wf)
	topo, err := topology.Extract(in)
	if err != nil {
		s.warnf("extraction failed, keeping generation %d: %v", s.gen, err)
		return s.gen, err
	}
	for _, line := range topo.Log {
		s.logf("extract: %s", line)
	}

	if s.machine != nil {
		s.push(removeAll(s.machine.Active()))
	}
	s.wf = wf.Clone()
	s.topo = topo
	s.machine = blockstate.New(topo)
	s.gen++
	s.overrides = make(map[topology.GroupID]grading.Constraints)
	s.names = make(map[topology.BlockID]string)
	s.push(s.machine.Active())
	s.logf("generation %d: %d blocks, %d faces, %d edge groups",
		s.gen, len(topo.Blocks), len(topo.Faces), len(topo.Groups))
	return s.gen, nil
}

func removeAll(active []blockstate.FaceChange) []blockstate.FaceChange {
	out := make([]blockstate.FaceChange, len(active))
	for i, c := range active {
		c.Kind = blockstate.Remove
		out[i] = c
	}
	return out
}

// push forwards face edits to the host surface. Host failures are logged;
// the session state stays authoritative.
func (s *Session) push(changes []blockstate.FaceChange) {
	if s.surface == nil {
		return
	}
	for _, c := range changes {
		var err error
		if c.Kind == blockstate.Remove {
			err = s.surface.RemoveFace(c.Verts)
		} else {
			err = s.surface.AddFace(c.Verts)
		}
		if err != nil {
			s.warnf("surface %s face %d: %v", c.Kind, c.Face, err)
		}
	}
}

// Toggle flips block id and pushes the resulting face edits.
func (s *Session) Toggle(gen uint64, id topology.BlockID) (blockstate.Transition, error) {
	if err := s.check(gen); err != nil {
		return blockstate.Transition{}, err
	}
	tr, err := s.machine.Toggle(id)
	if err != nil {
		return tr, err
	}
	s.push(tr.Changes)
	s.logf("block %d enabled=%v: %d face changes", id, tr.Enabled, len(tr.Changes))
	return tr, nil
}

// SetEnabled sets block id and pushes the resulting face edits.
func (s *Session) SetEnabled(gen uint64, id topology.BlockID, on bool) (blockstate.Transition, error) {
	if err := s.check(gen); err != nil {
		return blockstate.Transition{}, err
	}
	tr, err := s.machine.SetEnabled(id, on)
	if err != nil {
		return tr, err
	}
	s.push(tr.Changes)
	return tr, nil
}

func (s *Session) checkGroup(gen uint64, g topology.GroupID) error {
	if err := s.check(gen); err != nil {
		return err
	}
	if g < 0 || int(g) >= len(s.topo.Groups) {
		return errors.Wrapf(ErrUnknownGroup, "group %d", g)
	}
	return nil
}

// SetGrading overrides the constraints of group g. X1 and R1 apply at the
// start of the group's canonical direction. Length is ignored.
func (s *Session) SetGrading(gen uint64, g topology.GroupID, c grading.Constraints) error {
	if err := s.checkGroup(gen, g); err != nil {
		return err
	}
	c.Length = 0
	s.overrides[g] = c
	return nil
}

// ClearGrading removes the override of group g.
func (s *Session) ClearGrading(gen uint64, g topology.GroupID) error {
	if err := s.checkGroup(gen, g); err != nil {
		return err
	}
	delete(s.overrides, g)
	return nil
}

// Constraints returns the constraints in effect for group g.
func (s *Session) Constraints(g topology.GroupID) grading.Constraints {
	if c, ok := s.overrides[g]; ok {
		return c
	}
	return s.opts.Defaults
}

// Grading resolves group g in its canonical direction. A degraded result
// is logged and returned together with its error.
func (s *Session) Grading(g topology.GroupID) (grading.Spec, error) {
	return s.grading(g, nil)
}

func (s *Session) grading(g topology.GroupID, arcs map[[2]int]float64) (grading.Spec, error) {
	if s.topo == nil {
		return grading.Spec{}, ErrNoTopology
	}
	if g < 0 || int(g) >= len(s.topo.Groups) {
		return grading.Spec{}, errors.Wrapf(ErrUnknownGroup, "group %d", g)
	}
	var lengths []float64
	for _, eid := range s.topo.Groups[g].Edges {
		e := s.topo.Edges[eid]
		if l, ok := arcs[pair(e.U, e.V)]; ok {
			lengths = append(lengths, l)
			continue
		}
		lengths = append(lengths, s.wf.EdgeLength(e.U, e.V))
	}
	spec, err := grading.ForGroup(lengths, s.Constraints(g), s.opts.Fallback, s.opts.Grading)
	if err != nil {
		s.warnf("group %d: %v, using %d uniform nodes", g, err, spec.Nodes)
	}
	return spec, err
}

// NameBlock attaches a zone name to block id. An empty name clears it.
func (s *Session) NameBlock(gen uint64, id topology.BlockID, name string) error {
	if err := s.check(gen); err != nil {
		return err
	}
	if !s.topo.HasBlock(id) {
		return errors.Wrapf(blockstate.ErrInconsistentToggle, "unknown block %d", id)
	}
	if name == "" {
		delete(s.names, id)
		return nil
	}
	if !blockmesh.ValidName(name) {
		return errors.Wrapf(blockmesh.ErrBadName, "%q", name)
	}
	s.names[id] = name
	return nil
}

// BlockName returns the zone name of block id.
func (s *Session) BlockName(id topology.BlockID) string {
	return s.names[id]
}

// AssignPatch puts faces into the patch called name, creating it with the
// given type or updating its type. A face belongs to one patch at a time.
func (s *Session) AssignPatch(gen uint64, name string, typ blockmesh.PatchType, faces []topology.FaceID) error {
	if err := s.check(gen); err != nil {
		return err
	}
	if !blockmesh.ValidName(name) {
		return errors.Wrapf(blockmesh.ErrBadName, "patch %q", name)
	}
	if _, err := blockmesh.ParsePatchType(string(typ)); err != nil {
		return err
	}
	var quads [][4]int
	for _, fid := range faces {
		if fid < 0 || int(fid) >= len(s.topo.Faces) {
			return errors.Wrapf(blockstate.ErrInconsistentToggle, "unknown face %d", fid)
		}
		quads = append(quads, s.topo.Faces[fid].Verts)
	}
	s.assign(name, typ, quads)
	return nil
}

func (s *Session) assign(name string, typ blockmesh.PatchType, quads [][4]int) {
	moving := make(map[[4]int]bool)
	for _, q := range quads {
		moving[sortedQuad(q)] = true
	}
	var target *patchAssignment
	for _, p := range s.patches {
		kept := p.faces[:0]
		for _, q := range p.faces {
			if !moving[sortedQuad(q)] {
				kept = append(kept, q)
			}
		}
		p.faces = kept
		if p.name == name {
			target = p
		}
	}
	if target == nil {
		target = &patchAssignment{name: name}
		s.patches = append(s.patches, target)
	}
	target.typ = typ
	target.faces = append(target.faces, quads...)
}

// PatchOf returns the patch name of face id, or the default patch.
func (s *Session) PatchOf(id topology.FaceID) string {
	if s.topo == nil || id < 0 || int(id) >= len(s.topo.Faces) {
		return ""
	}
	key := sortedQuad(s.topo.Faces[id].Verts)
	for _, p := range s.patches {
		for _, q := range p.faces {
			if sortedQuad(q) == key {
				return p.name
			}
		}
	}
	return s.opts.DefaultPatch
}

func pair(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

func sortedQuad(q [4]int) [4]int {
	sort.Ints(q[:])
	return q
}
