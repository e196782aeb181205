package state

import "errors"

var (
	ErrRecordRun    = errors.New("record run")
	ErrRecordAction = errors.New("record action")
	ErrQueryHistory = errors.New("query history")
)
