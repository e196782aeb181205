package logging

import "errors"

var (
	ErrMarshalData   = errors.New("marshal event data")
	ErrCreateLogFile = errors.New("create log file")
	ErrWriteEvent    = errors.New("write event")
	ErrCloseWriter   = errors.New("close writer")
)
