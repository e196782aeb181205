package plugin

import "errors"

var (
	ErrNotFound        = errors.New("plugin not found")
	ErrVersionMismatch = errors.New("plugin API version mismatch")
)
