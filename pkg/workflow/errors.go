package workflow

import "errors"

var (
	ErrLoadConfig    = errors.New("load workflow config")
	ErrUnknownAction = errors.New("unknown action type")
)
