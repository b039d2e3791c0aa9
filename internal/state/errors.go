package state

import "errors"

var (
	// ErrClosed is returned by Flush after Close.
	ErrClosed = errors.New("state: store closed")

	// ErrCorruptSnapshot is returned when a stored snapshot is not valid JSON.
	ErrCorruptSnapshot = errors.New("state: corrupt snapshot")
)
