package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/waxwing-dev/waxwing/internal/errx"
	"github.com/waxwing-dev/waxwing/pkg/api"
)

// MoveAction moves the event's file into a destination directory. A rename
// is attempted first; cross-filesystem moves fall back to copy+delete.
type MoveAction struct {
	Destination string
	Overwrite   bool
}

func (a *MoveAction) Name() string { return "move" }

func (a *MoveAction) Validate() error {
	if a.Destination == "" {
		return errx.With(api.ErrInvalidConfig, ": move destination cannot be empty")
	}
	return nil
}

func (a *MoveAction) Execute(_ context.Context, event api.Event) (api.ActionResult, error) {
	source, ok := eventSubject(event)
	if !ok {
		return api.Fail("move action only supports file creation/modification events"), nil
	}
	if _, err := os.Stat(source); err != nil {
		return api.Fail(fmt.Sprintf("source file does not exist: %s", source)), nil
	}

	dest := filepath.Join(a.Destination, filepath.Base(source))
	if _, err := os.Stat(dest); err == nil && !a.Overwrite {
		return api.Fail(fmt.Sprintf("destination already exists and overwrite is disabled: %s", dest)), nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return api.ActionResult{}, errx.Wrap(api.ErrActionFailed, err)
	}

	if err := os.Rename(source, dest); err != nil {
		if err := copyFile(source, dest); err != nil {
			return api.ActionResult{}, errx.Wrap(api.ErrActionFailed, err)
		}
		if err := os.Remove(source); err != nil {
			return api.ActionResult{}, errx.Wrap(api.ErrActionFailed, err)
		}
	}
	return api.Succeed(fmt.Sprintf("moved to %s", dest)).WithPaths(dest), nil
}
