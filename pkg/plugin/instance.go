package plugin

import (
	"slices"

	"github.com/waxwing-dev/waxwing/internal/errx"
	"github.com/waxwing-dev/waxwing/pkg/sandbox"
)

// Instance is a loaded but not-yet-running plugin: its configuration,
// metadata, compiled module, enumerated entry points, and the sandbox
// bound to its grants. Instances are immutable while live; the registry
// replaces them wholesale on reload.
type Instance struct {
	config   Config
	metadata Metadata
	module   *sandbox.Module
	sb       *sandbox.Sandbox
	actions  []string
}

// ID returns the plugin identity.
func (i *Instance) ID() string { return i.metadata.ID }

// Config returns the configuration the instance was loaded with.
func (i *Instance) Config() Config { return i.config }

// Metadata returns the plugin metadata.
func (i *Instance) Metadata() Metadata { return i.metadata }

// Actions returns the callable entry points.
func (i *Instance) Actions() []string { return slices.Clone(i.actions) }

// HasAction reports whether the plugin exports the named action.
func (i *Instance) HasAction(action string) bool {
	return slices.Contains(i.actions, action)
}

// Execute runs one action in a fresh sandbox invocation.
func (i *Instance) Execute(action string, ctx sandbox.PluginContext) (sandbox.ActionOutcome, error) {
	if !i.HasAction(action) {
		return sandbox.ActionOutcome{}, errx.With(sandbox.ErrExecutionFailed,
			": Plugin '%s' does not have action '%s'", i.ID(), action)
	}
	return i.sb.Execute(i.module, action, ctx)
}

// close releases the instance's sandbox resources.
func (i *Instance) close() {
	i.sb.Close()
}
