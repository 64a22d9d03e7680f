package persistence

import "errors"

var (
	ErrNoDatabaseURL = errors.New("no database url provided")
)
