package main

import "errors"

var (
	ErrFileExists  = errors.New("file already exists")
	ErrWriteConfig = errors.New("write config")
)
