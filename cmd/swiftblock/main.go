package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/plan-systems/klog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func main() {
	root := newRootCmd()
	addKlogFlags(root.PersistentFlags())

	if err := root.Execute(); err != nil {
		klog.Flush()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	klog.Flush()
}

// addKlogFlags exposes klog's -v, -logtostderr and friends on fs.
func addKlogFlags(fs *pflag.FlagSet) {
	fset := flag.NewFlagSet("", flag.ContinueOnError)
	klog.InitFlags(fset)
	fset.Set("logtostderr", "true")
	klog.SetFormatter(&klog.FmtConstWidth{
		FileNameCharWidth: 16,
		UseColor:          true,
	})
	fs.AddGoFlagSet(fset)
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		storePath  string
		project    string
	)

	rootCmd := &cobra.Command{
		Use:           "swiftblock",
		Short:         "Build structured hexahedral blockMeshDict files from wireframes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path")
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "", "Project store directory (overrides store.path)")
	rootCmd.PersistentFlags().StringVarP(&project, "project", "p", "", "Project name in the store")

	open := func(cmd *cobra.Command) (*app, error) {
		return openApp(configPath, storePath, cmd.OutOrStdout())
	}

	buildCmd := &cobra.Command{
		Use:   "build <input.swb|input.yaml>",
		Short: "Extract blocks from a wireframe script or file and store the project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.build(args[0], project)
		},
	}

	var state string
	toggleCmd := &cobra.Command{
		Use:   "toggle <block>...",
		Short: "Toggle blocks, or set them with --state on|off",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.toggle(project, args, state)
		},
	}
	toggleCmd.Flags().StringVar(&state, "state", "", "Set blocks on or off instead of toggling")

	var (
		gc            gradingFlags
		clearOverride bool
	)
	gradingCmd := &cobra.Command{
		Use:   "grading [group|edge-set]",
		Short: "Show edge group gradings or override a group or the groups of an edge set",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if len(args) == 0 {
				return a.listGrading(project)
			}
			gc.changed = func(name string) bool { return cmd.Flags().Changed(name) }
			return a.grading(project, args[0], gc, clearOverride)
		},
	}
	gradingCmd.Flags().Float64Var(&gc.x1, "x1", 0, "First cell size at the group start")
	gradingCmd.Flags().Float64Var(&gc.x2, "x2", 0, "First cell size at the group end")
	gradingCmd.Flags().Float64Var(&gc.r1, "r1", 1.2, "Growth ratio from the group start")
	gradingCmd.Flags().Float64Var(&gc.r2, "r2", 1.2, "Growth ratio from the group end")
	gradingCmd.Flags().BoolVar(&clearOverride, "clear", false, "Remove the override")

	var patchType string
	patchCmd := &cobra.Command{
		Use:   "patch <name> <face>...",
		Short: "Assign faces to a boundary patch",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.patch(project, args[0], patchType, args[1:])
		},
	}
	patchCmd.Flags().StringVar(&patchType, "type", "patch", "Patch type (wall, patch, empty, symmetryPlane)")

	nameCmd := &cobra.Command{
		Use:   "name <block> [zone]",
		Short: "Name a block's zone, or clear it",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			zone := ""
			if len(args) == 2 {
				zone = args[1]
			}
			return a.name(project, args[0], zone)
		},
	}

	var wo writeOptions
	writeCmd := &cobra.Command{
		Use:   "write",
		Short: "Write the project's blockMeshDict",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.write(project, wo)
		},
	}
	writeCmd.Flags().StringVarP(&wo.output, "output", "o", "blockMeshDict", "Output path, - for stdout")
	writeCmd.Flags().StringVar(&wo.stl, "stl", "", "Also write the boundary patches as STL")
	writeCmd.Flags().BoolVar(&wo.merge, "merge", false, "Write the --stl patches as one solid")
	writeCmd.Flags().StringVar(&wo.surface, "surface", "", "Also write the visible block surface as STL")

	facesCmd := &cobra.Command{
		Use:   "faces",
		Short: "List faces with their visibility, patch and owning block sides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.faces(project)
		},
	}

	polylineCmd := &cobra.Command{
		Use:     "polyline <from> <to> [x y z]...",
		Short:   "Curve an edge through points; no points restores the straight edge",
		Example: "  swiftblock polyline -p channel 0 1 -- 0.5 -0.1 0",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.polyline(project, args[0], args[1], args[2:])
		},
	}

	var deleteSets bool
	edgesCmd := &cobra.Command{
		Use:   "edges [name] [a-b]...",
		Short: "List, show, define or delete named edge sets",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.edgeSets(project, args, deleteSets)
		},
	}
	edgesCmd.Flags().BoolVar(&deleteSets, "delete", false, "Delete the named sets")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.list()
		},
	}

	rootCmd.AddCommand(buildCmd, toggleCmd, gradingCmd, patchCmd, nameCmd, writeCmd,
		facesCmd, polylineCmd, edgesCmd, listCmd)
	return rootCmd
}
