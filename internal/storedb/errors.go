package storedb

import "errors"

var (
	ErrOpenDatabase = errors.New("open database")
	ErrMigrate      = errors.New("apply migration")
)
