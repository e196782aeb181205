package workflow

import (
	"context"
	"fmt"
	"os"

	"github.com/waxwing-dev/waxwing/internal/errx"
	"github.com/waxwing-dev/waxwing/pkg/api"
)

// DeleteAction removes the event's file. With ToTrash the file is renamed
// aside with a .trash suffix instead of being unlinked.
type DeleteAction struct {
	ToTrash bool
}

func (a *DeleteAction) Name() string { return "delete" }

func (a *DeleteAction) Validate() error { return nil }

func (a *DeleteAction) Execute(_ context.Context, event api.Event) (api.ActionResult, error) {
	source, ok := eventSubject(event)
	if !ok {
		return api.Fail("delete action only supports file creation/modification events"), nil
	}
	if _, err := os.Stat(source); err != nil {
		return api.Succeed(fmt.Sprintf("file already deleted: %s", source)), nil
	}

	if a.ToTrash {
		trash := source + ".trash"
		if err := os.Rename(source, trash); err != nil {
			return api.ActionResult{}, errx.Wrap(api.ErrActionFailed, err)
		}
		return api.Succeed(fmt.Sprintf("moved to trash: %s", trash)).WithPaths(trash), nil
	}

	if err := os.Remove(source); err != nil {
		return api.ActionResult{}, errx.Wrap(api.ErrActionFailed, err)
	}
	return api.Succeed(fmt.Sprintf("deleted: %s", source)), nil
}
