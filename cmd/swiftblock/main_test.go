package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/swiftblock/pkg/blockmesh"
)

// run executes one CLI invocation against storeDir and returns its output.
func run(t *testing.T, storeDir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--store", storeDir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, storeDir string, args ...string) string {
	t.Helper()
	out, err := run(t, storeDir, args...)
	if err != nil {
		t.Fatalf("swiftblock %v: %v\n%s", args, err, out)
	}
	return out
}

func TestBuildToggleWrite(t *testing.T) {
	dir := t.TempDir()
	storeDir := filepath.Join(dir, "store")

	out := mustRun(t, storeDir, "build", "../../examples/channel.swb")
	if !strings.Contains(out, "project channel") {
		t.Errorf("build output missing project name:\n%s", out)
	}
	if !strings.Contains(out, "3 blocks") {
		t.Errorf("build output missing block count:\n%s", out)
	}

	out = mustRun(t, storeDir, "toggle", "-p", "channel", "1")
	if !strings.Contains(out, "block 1 enabled=false") {
		t.Errorf("toggle output:\n%s", out)
	}

	out = mustRun(t, storeDir, "grading", "-p", "channel", "0", "--x1", "0.1")
	if !strings.Contains(out, "group 0:") || !strings.Contains(out, "x1=0.1") {
		t.Errorf("grading output:\n%s", out)
	}

	mustRun(t, storeDir, "patch", "-p", "channel", "--type", "wall", "walls", "0")
	mustRun(t, storeDir, "name", "-p", "channel", "0", "inlet_zone")

	out = mustRun(t, storeDir, "faces", "-p", "channel")
	if !strings.Contains(out, "patch=walls") || !strings.Contains(out, "block0:") {
		t.Errorf("faces output:\n%s", out)
	}

	out = mustRun(t, storeDir, "polyline", "-p", "channel", "0", "1", "--", "0.5", "-0.1", "0")
	if !strings.Contains(out, "polyline 0-1: 1 points") {
		t.Errorf("polyline output:\n%s", out)
	}

	out = mustRun(t, storeDir, "edges", "-p", "channel", "inflow", "0-1", "3-0")
	if !strings.Contains(out, "edges inflow: 2 edges") {
		t.Errorf("edges output:\n%s", out)
	}
	out = mustRun(t, storeDir, "grading", "-p", "channel", "inflow", "--r1", "1.1")
	if strings.Count(out, "group ") != 2 || !strings.Contains(out, "r1=1.1") {
		t.Errorf("edge set grading output:\n%s", out)
	}

	dict := filepath.Join(dir, "blockMeshDict")
	stl := filepath.Join(dir, "boundary.stl")
	surface := filepath.Join(dir, "surface.stl")
	out = mustRun(t, storeDir, "write", "-p", "channel", "-o", dict, "--stl", stl, "--merge", "--surface", surface)
	if !strings.Contains(out, "2 blocks") || !strings.Contains(out, " cells") {
		t.Errorf("write output:\n%s", out)
	}

	f, err := os.Open(dict)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	m, err := blockmesh.Parse(f)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(m.Blocks) != 2 {
		t.Errorf("got %d blocks, want 2", len(m.Blocks))
	}
	if len(m.Vertices) != 16 {
		t.Errorf("got %d vertices, want 16", len(m.Vertices))
	}
	if got := m.FaceCount(); got != 12 {
		t.Errorf("got %d boundary faces, want 12", got)
	}
	if len(m.Polylines) != 1 {
		t.Errorf("got %d polylines, want 1", len(m.Polylines))
	}
	cells := 0
	for _, b := range m.Blocks {
		cells += b.Cells[0] * b.Cells[1] * b.Cells[2]
	}
	if want := fmt.Sprintf("%d cells", cells); !strings.Contains(out, want) {
		t.Errorf("write output missing %q:\n%s", want, out)
	}
	for _, path := range []string{stl, surface} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("stl not written: %v", err)
		}
	}

	out = mustRun(t, storeDir, "list")
	if strings.TrimSpace(out) != "channel" {
		t.Errorf("list = %q, want channel", out)
	}
}

func TestBuildYAML(t *testing.T) {
	storeDir := filepath.Join(t.TempDir(), "store")
	out := mustRun(t, storeDir, "build", "-p", "cubes", "../../examples/two_cubes.yaml")
	if !strings.Contains(out, "2 blocks, 11 faces (1 internal)") {
		t.Errorf("build output:\n%s", out)
	}
}

func TestBuildExcluded(t *testing.T) {
	storeDir := filepath.Join(t.TempDir(), "store")
	out := mustRun(t, storeDir, "build", "../../examples/wedge.swb")
	if !strings.Contains(out, "1 blocks") {
		t.Errorf("build output:\n%s", out)
	}
}

func TestCommandErrors(t *testing.T) {
	storeDir := filepath.Join(t.TempDir(), "store")
	mustRun(t, storeDir, "build", "../../examples/channel.swb")

	tests := []struct {
		name string
		args []string
	}{
		{"missing project", []string{"toggle", "0"}},
		{"unknown project", []string{"toggle", "-p", "nope", "0"}},
		{"bad block id", []string{"toggle", "-p", "channel", "x"}},
		{"unknown block", []string{"toggle", "-p", "channel", "9"}},
		{"bad state", []string{"toggle", "-p", "channel", "--state", "maybe", "0"}},
		{"unknown group", []string{"grading", "-p", "channel", "99"}},
		{"bad patch type", []string{"patch", "-p", "channel", "--type", "inlet", "in", "0"}},
		{"bad patch name", []string{"patch", "-p", "channel", "in let", "0"}},
		{"missing input", []string{"build", "nope.swb"}},
		{"polyline not triples", []string{"polyline", "-p", "channel", "0", "1", "--", "1", "2"}},
		{"polyline off edge", []string{"polyline", "-p", "channel", "0", "6", "--", "1", "2", "3"}},
		{"unknown edge set", []string{"edges", "-p", "channel", "nope"}},
		{"bad edge", []string{"edges", "-p", "channel", "s", "0-x"}},
		{"grading unknown edge set", []string{"grading", "-p", "channel", "nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, storeDir, tt.args...); err == nil {
				t.Errorf("swiftblock %v: expected error", tt.args)
			}
		})
	}
}
