package api

import "errors"

var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrActionFailed  = errors.New("action failed")
	ErrWatch         = errors.New("watch error")
)
