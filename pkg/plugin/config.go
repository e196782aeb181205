package plugin

import (
	"path/filepath"
	"strings"

	"github.com/waxwing-dev/waxwing/pkg/permission"
	"github.com/waxwing-dev/waxwing/pkg/sandbox"
)

// SandboxSettings is the serialised per-plugin sandbox record. Zero fields
// take the package defaults when the runtime config is built.
type SandboxSettings struct {
	MemoryLimit uint64   `json:"memory_limit,omitempty" mapstructure:"memory_limit"`
	TimeoutMS   uint64   `json:"timeout_ms,omitempty" mapstructure:"timeout_ms"`
	FuelLimit   *uint64  `json:"fuel_limit,omitempty" mapstructure:"fuel_limit"`
	ReadPaths   []string `json:"read_paths,omitempty" mapstructure:"read_paths"`
	WritePaths  []string `json:"write_paths,omitempty" mapstructure:"write_paths"`
	EnvVars     []string `json:"env_vars,omitempty" mapstructure:"env_vars"`
	WorkDir     string   `json:"work_dir,omitempty" mapstructure:"work_dir"`
}

// Build derives the runtime sandbox configuration. The permission set is
// {time, random} plus the declared path and environment grants.
func (s SandboxSettings) Build() sandbox.Config {
	cfg := sandbox.DefaultConfig()
	if s.MemoryLimit > 0 {
		cfg.MemoryLimit = s.MemoryLimit
	}
	if s.TimeoutMS > 0 {
		cfg.TimeoutMS = s.TimeoutMS
	}
	if s.FuelLimit != nil {
		if *s.FuelLimit == 0 {
			cfg.FuelLimit = nil
		} else {
			limit := *s.FuelLimit
			cfg.FuelLimit = &limit
		}
	}
	cfg.WorkDir = s.WorkDir

	perms := permission.NewSet(permission.Time(), permission.Random())
	for _, p := range s.ReadPaths {
		perms.Add(permission.ReadPath(p))
	}
	for _, p := range s.WritePaths {
		perms.Add(permission.WritePath(p))
	}
	for _, name := range s.EnvVars {
		perms.Add(permission.Env(name))
	}
	cfg.Permissions = perms
	return cfg
}

// Config describes one plugin to load.
type Config struct {
	// Path locates the wasm module on disk.
	Path string `json:"path" mapstructure:"path"`

	// ID overrides the identity derived from the filename stem.
	ID string `json:"id,omitempty" mapstructure:"id"`

	// Enabled defaults to true when absent.
	Enabled *bool `json:"enabled,omitempty" mapstructure:"enabled"`

	// Sandbox carries the resource budget and grants.
	Sandbox SandboxSettings `json:"sandbox,omitempty" mapstructure:"sandbox"`

	// Settings are plugin-specific values handed through the invocation
	// context.
	Settings map[string]any `json:"config,omitempty" mapstructure:"config"`
}

// NewConfig builds a config for the module at path with defaults.
func NewConfig(path string) Config {
	return Config{Path: path}
}

// IsEnabled reports whether the plugin should be loaded.
func (c Config) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// ResolvedID returns the plugin identity: the explicit ID, else the
// filename stem, else "unknown".
func (c Config) ResolvedID() string {
	if c.ID != "" {
		return c.ID
	}
	stem := strings.TrimSuffix(filepath.Base(c.Path), filepath.Ext(c.Path))
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		return "unknown"
	}
	return stem
}
