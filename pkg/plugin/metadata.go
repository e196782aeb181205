package plugin

import (
	"github.com/waxwing-dev/waxwing/internal/errx"
	"github.com/waxwing-dev/waxwing/pkg/permission"
)

// APIVersion is the current plugin API version.
const APIVersion = "0.1.0"

// Metadata describes a loaded plugin. It is produced at load time and
// never mutated afterwards.
type Metadata struct {
	ID                  string         `json:"id"`
	Name                string         `json:"name"`
	Version             string         `json:"version"`
	Description         string         `json:"description,omitempty"`
	Author              string         `json:"author,omitempty"`
	License             string         `json:"license,omitempty"`
	APIVersion          string         `json:"api_version"`
	RequiredPermissions permission.Set `json:"-"`
	Extra               map[string]any `json:"extra,omitempty"`
}

// NewMetadata builds metadata with the current API version.
func NewMetadata(id, name, version string) Metadata {
	return Metadata{
		ID:         id,
		Name:       name,
		Version:    version,
		APIVersion: APIVersion,
	}
}

// CheckAPIVersion verifies the plugin targets the host's API version.
func (m Metadata) CheckAPIVersion() error {
	if m.APIVersion != APIVersion {
		return errx.With(ErrVersionMismatch, ": expected %s, got %s", APIVersion, m.APIVersion)
	}
	return nil
}
