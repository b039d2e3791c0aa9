package controller

import "errors"

var (
	// ErrUnknownButton is returned by Press for a name not in Buttons.
	ErrUnknownButton = errors.New("controller: unknown button")

	// ErrPanic wraps a panic recovered from a controller operation.
	ErrPanic = errors.New("controller: operation panicked")

	// ErrClosed is returned by PressAsync after Close.
	ErrClosed = errors.New("controller: closed")
)
