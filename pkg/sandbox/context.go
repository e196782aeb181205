package sandbox

import (
	"github.com/waxwing-dev/waxwing/pkg/api"
)

// PluginContext is the per-invocation input handed to a guest. It is
// immutable during one invocation.
type PluginContext struct {
	// Event is the occurrence that triggered the invocation.
	Event api.Event `json:"event"`

	// Config carries rule-level settings for the plugin action.
	Config map[string]any `json:"config,omitempty"`

	// WorkDir overrides the sandbox working directory for this
	// invocation.
	WorkDir string `json:"work_dir,omitempty"`

	// Env provides invocation-scoped environment variables. Lookups
	// through the get_env host call consult these before the process
	// environment; the permission check applies either way.
	Env map[string]string `json:"env,omitempty"`
}

// NewPluginContext builds a context for the given event.
func NewPluginContext(event api.Event) PluginContext {
	return PluginContext{Event: event}
}

// WithConfig returns a copy of the context with one setting added.
func (c PluginContext) WithConfig(key string, value any) PluginContext {
	cfg := make(map[string]any, len(c.Config)+1)
	for k, v := range c.Config {
		cfg[k] = v
	}
	cfg[key] = value
	c.Config = cfg
	return c
}

// WithWorkDir returns a copy of the context with the working directory set.
func (c PluginContext) WithWorkDir(dir string) PluginContext {
	c.WorkDir = dir
	return c
}
