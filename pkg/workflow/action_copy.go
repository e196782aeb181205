package workflow

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/waxwing-dev/waxwing/internal/errx"
	"github.com/waxwing-dev/waxwing/pkg/api"
)

// CopyAction copies the event's file into a destination directory.
type CopyAction struct {
	Destination string
	Overwrite   bool
}

func (a *CopyAction) Name() string { return "copy" }

func (a *CopyAction) Validate() error {
	if a.Destination == "" {
		return errx.With(api.ErrInvalidConfig, ": copy destination cannot be empty")
	}
	return nil
}

func (a *CopyAction) Execute(_ context.Context, event api.Event) (api.ActionResult, error) {
	source, ok := eventSubject(event)
	if !ok {
		return api.Fail("copy action only supports file creation/modification events"), nil
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

	if err := copyFile(source, dest); err != nil {
		return api.ActionResult{}, errx.Wrap(api.ErrActionFailed, err)
	}
	return api.Succeed(fmt.Sprintf("copied to %s", dest)).WithPaths(dest), nil
}

func copyFile(source, dest string) error {
	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
