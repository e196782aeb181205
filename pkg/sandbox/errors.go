package sandbox

import "errors"

var (
	ErrLoadFailed            = errors.New("plugin load failed")
	ErrInvalidFormat         = errors.New("invalid plugin format")
	ErrExecutionFailed       = errors.New("plugin execution failed")
	ErrResourceLimitExceeded = errors.New("resource limit exceeded")
	ErrTimeout               = errors.New("timeout")
	ErrWasm                  = errors.New("wasm error")
)
