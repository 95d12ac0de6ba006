package repository

import "errors"

// Sentinel kinds for cache errors.
var (
	ErrNoEntry = errors.New("no cached entry")
)
