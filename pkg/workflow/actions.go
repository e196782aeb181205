package workflow

import (
	"github.com/waxwing-dev/waxwing/internal/errx"
	"github.com/waxwing-dev/waxwing/pkg/api"
	"github.com/waxwing-dev/waxwing/pkg/plugin"
)

// ActionType discriminates the action variants a rule can run.
type ActionType string

const (
	ActionCopy    ActionType = "copy"
	ActionMove    ActionType = "move"
	ActionArchive ActionType = "archive"
	ActionDelete  ActionType = "delete"
	ActionRename  ActionType = "rename"
	ActionPlugin  ActionType = "plugin"
)

// ArchiveFormat selects the archive container.
type ArchiveFormat string

const (
	FormatTarGz ArchiveFormat = "tar_gz"
	FormatZip   ArchiveFormat = "zip"
)

// ActionConfig is the tagged union of action settings as it appears in a
// workflow file. Fields beyond Type apply per variant.
type ActionConfig struct {
	Type ActionType `json:"type" mapstructure:"type"`

	// copy / move / archive
	Destination string `json:"destination,omitempty" mapstructure:"destination"`

	// copy / move
	Overwrite bool `json:"overwrite,omitempty" mapstructure:"overwrite"`

	// archive
	Format       ArchiveFormat `json:"format,omitempty" mapstructure:"format"`
	DeleteSource bool          `json:"delete_source,omitempty" mapstructure:"delete_source"`

	// delete
	ToTrash bool `json:"to_trash,omitempty" mapstructure:"to_trash"`

	// rename
	Pattern string `json:"pattern,omitempty" mapstructure:"pattern"`

	// plugin
	Plugin   string         `json:"plugin,omitempty" mapstructure:"plugin"`
	Action   string         `json:"action,omitempty" mapstructure:"action"`
	Settings map[string]any `json:"config,omitempty" mapstructure:"config"`
}

// Build constructs the runnable action. The registry is required only for
// plugin actions.
func (c ActionConfig) Build(registry *plugin.Registry) (api.Action, error) {
	switch c.Type {
	case ActionCopy:
		return &CopyAction{Destination: c.Destination, Overwrite: c.Overwrite}, nil
	case ActionMove:
		return &MoveAction{Destination: c.Destination, Overwrite: c.Overwrite}, nil
	case ActionArchive:
		format := c.Format
		if format == "" {
			format = FormatTarGz
		}
		return &ArchiveAction{Destination: c.Destination, Format: format, DeleteSource: c.DeleteSource}, nil
	case ActionDelete:
		return &DeleteAction{ToTrash: c.ToTrash}, nil
	case ActionRename:
		return &RenameAction{Pattern: c.Pattern}, nil
	case ActionPlugin:
		return &PluginAction{
			PluginID:   c.Plugin,
			ActionName: c.Action,
			Settings:   c.Settings,
			Registry:   registry,
		}, nil
	}
	return nil, errx.With(ErrUnknownAction, ": %q", c.Type)
}

// Validate checks the config without constructing the action.
func (c ActionConfig) Validate() error {
	action, err := c.Build(nil)
	if err != nil {
		return err
	}
	return action.Validate()
}

// eventSubject extracts the file a created/modified event is about.
// Actions that transform files only fire for those kinds.
func eventSubject(event api.Event) (string, bool) {
	switch event.Kind.Type {
	case api.EventFileCreated, api.EventFileModified:
		return event.Kind.Path, true
	}
	return "", false
}
