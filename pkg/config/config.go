// Package config loads swiftblock settings from a file and SWIFTBLOCK_*
// environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/chazu/swiftblock/pkg/blockmesh"
	"github.com/chazu/swiftblock/pkg/grading"
)

// Config holds all application configuration.
type Config struct {
	Defaults DefaultsConfig `mapstructure:"defaults"`
	Grading  GradingConfig  `mapstructure:"grading"`
	Mesh     MeshConfig     `mapstructure:"mesh"`
	Store    StoreConfig    `mapstructure:"store"`
	Engine   EngineConfig   `mapstructure:"engine"`
}

// DefaultsConfig is the grading applied to edge groups without overrides.
// Unconstrained edges take Nodes unless CellSize is set.
type DefaultsConfig struct {
	Nodes    int     `mapstructure:"nodes"`
	CellSize float64 `mapstructure:"cell_size"`
	X1       float64 `mapstructure:"x1"`
	X2       float64 `mapstructure:"x2"`
	R1       float64 `mapstructure:"r1"`
	R2       float64 `mapstructure:"r2"`
}

type GradingConfig struct {
	MaxNodes      int     `mapstructure:"max_nodes"`
	Tolerance     float64 `mapstructure:"tolerance"`
	CellTolerance float64 `mapstructure:"cell_tolerance"`
}

type MeshConfig struct {
	ConvertToMeters  float64 `mapstructure:"convert_to_meters"`
	DefaultPatch     string  `mapstructure:"default_patch"`
	DefaultPatchType string  `mapstructure:"default_patch_type"`
	// ExcludeDisabled keeps vertices used only by disabled blocks out of
	// blocks formed by the next extraction.
	ExcludeDisabled bool `mapstructure:"exclude_disabled"`
}

type StoreConfig struct {
	Path     string `mapstructure:"path"`
	InMemory bool   `mapstructure:"in_memory"`
}

type EngineConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

var defaults = map[string]interface{}{
	"defaults.nodes":          4,
	"defaults.cell_size":      0.0,
	"defaults.x1":             0.0,
	"defaults.x2":             0.0,
	"defaults.r1":             1.2,
	"defaults.r2":             1.2,
	"grading.max_nodes":       400,
	"grading.tolerance":       1e-6,
	"grading.cell_tolerance":  0.25,
	"mesh.convert_to_meters":  1.0,
	"mesh.default_patch":      "defaultName",
	"mesh.default_patch_type": "wall",
	"mesh.exclude_disabled":   false,
	"store.path":              ".swiftblock",
	"store.in_memory":         false,
	"engine.timeout":          "5s",
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := load(viper.New())
	if err != nil {
		panic(fmt.Sprintf("config: built-in defaults: %v", err))
	}
	return cfg
}

// Load reads configuration from path and the environment. An empty path
// uses defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "reading config")
		}
	}
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix("SWIFTBLOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshalling config")
	}
	return &cfg, nil
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string
	d := c.Defaults
	if d.Nodes < 2 {
		warnings = append(warnings, fmt.Sprintf("defaults.nodes %d is below 2 and will be raised", d.Nodes))
	}
	if d.CellSize < 0 {
		warnings = append(warnings, fmt.Sprintf("defaults.cell_size %g is negative", d.CellSize))
	}
	if d.R1 < 1 || d.R2 < 1 {
		warnings = append(warnings, fmt.Sprintf("growth ratios %g/%g below 1 are clamped to 1", d.R1, d.R2))
	}
	if c.Grading.MaxNodes < 2 {
		warnings = append(warnings, fmt.Sprintf("grading.max_nodes %d is below 2", c.Grading.MaxNodes))
	}
	if c.Grading.Tolerance <= 0 || c.Grading.Tolerance >= 1 {
		warnings = append(warnings, fmt.Sprintf("grading.tolerance %g is outside (0, 1)", c.Grading.Tolerance))
	}
	if c.Grading.CellTolerance <= 0 || c.Grading.CellTolerance >= 1 {
		warnings = append(warnings, fmt.Sprintf("grading.cell_tolerance %g is outside (0, 1)", c.Grading.CellTolerance))
	}
	if c.Mesh.ConvertToMeters <= 0 {
		warnings = append(warnings, fmt.Sprintf("mesh.convert_to_meters %g is not positive", c.Mesh.ConvertToMeters))
	}
	if !blockmesh.ValidName(c.Mesh.DefaultPatch) {
		warnings = append(warnings, fmt.Sprintf("mesh.default_patch %q is not a valid patch name", c.Mesh.DefaultPatch))
	}
	if _, err := blockmesh.ParsePatchType(c.Mesh.DefaultPatchType); err != nil {
		warnings = append(warnings, fmt.Sprintf("mesh.default_patch_type: %v", err))
	}
	if c.Engine.Timeout <= 0 {
		warnings = append(warnings, fmt.Sprintf("engine.timeout %v is not positive", c.Engine.Timeout))
	}
	return warnings
}

// Fallback returns the nominal subdivision for the grading resolver.
func (c *Config) Fallback() grading.Fallback {
	return grading.Fallback{Nodes: c.Defaults.Nodes, CellSize: c.Defaults.CellSize}
}

// DefaultConstraints returns the cell-size constraints applied to groups
// without overrides. Length is filled in per group.
func (c *Config) DefaultConstraints() grading.Constraints {
	d := c.Defaults
	return grading.Constraints{X1: d.X1, X2: d.X2, R1: d.R1, R2: d.R2}
}

// GradingOptions returns the resolver search bounds.
func (c *Config) GradingOptions() grading.Options {
	return grading.Options{
		MaxNodes:      c.Grading.MaxNodes,
		Tolerance:     c.Grading.Tolerance,
		CellTolerance: c.Grading.CellTolerance,
	}
}

// PatchType returns the default patch type, falling back to wall.
func (c *Config) PatchType() blockmesh.PatchType {
	t, err := blockmesh.ParsePatchType(c.Mesh.DefaultPatchType)
	if err != nil {
		return blockmesh.Wall
	}
	return t
}
