package database

import "errors"

// ErrNotFound is returned when a history record does not exist
var ErrNotFound = errors.New("history record not found")
