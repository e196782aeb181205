package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/waxwing-dev/waxwing/internal/errx"
	"github.com/waxwing-dev/waxwing/pkg/api"
	"github.com/waxwing-dev/waxwing/pkg/plugin"
	"github.com/waxwing-dev/waxwing/pkg/sandbox"
)

// PluginAction bridges one plugin invocation into the action pipeline. It
// holds only the plugin id and a registry handle; the instance is looked
// up on every execution so reloads take effect immediately.
type PluginAction struct {
	PluginID   string
	ActionName string
	Settings   map[string]any
	Registry   *plugin.Registry
}

func (a *PluginAction) Name() string { return "plugin" }

func (a *PluginAction) Validate() error {
	if a.PluginID == "" {
		return errx.With(api.ErrInvalidConfig, ": plugin id cannot be empty")
	}
	if a.ActionName == "" {
		return errx.With(api.ErrInvalidConfig, ": plugin action name cannot be empty")
	}
	return nil
}

func (a *PluginAction) Execute(_ context.Context, event api.Event) (api.ActionResult, error) {
	if a.Registry == nil {
		return api.ActionResult{}, errx.With(api.ErrActionFailed, ": plugin registry not configured")
	}

	ctx := sandbox.NewPluginContext(event)
	ctx.Config = a.Settings

	outcome, err := a.Registry.ExecuteAction(a.PluginID, a.ActionName, ctx)
	if err != nil {
		// Invocation-fatal errors surface as a failed result so the
		// runner counts them without stopping the loop.
		if errors.Is(err, sandbox.ErrTimeout) ||
			errors.Is(err, sandbox.ErrResourceLimitExceeded) ||
			errors.Is(err, sandbox.ErrExecutionFailed) {
			return api.Fail(fmt.Sprintf("plugin %s::%s: %v", a.PluginID, a.ActionName, err)), nil
		}
		return api.ActionResult{}, err
	}

	result := api.ActionResult{
		Success: outcome.Success,
		Message: outcome.Message,
		Output:  outcome.Output,
		// Plugin actions surface no affected paths; writes happen behind
		// the host-call mediation layer.
		AffectedPaths: nil,
	}
	return result, nil
}
