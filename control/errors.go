package control

import "errors"

// Package errors.
var (
	// ErrUnknownCommand is returned for a cmd the server does not dispatch.
	ErrUnknownCommand = errors.New("control: unknown command")

	// ErrBadArgs is returned when the args object does not decode.
	ErrBadArgs = errors.New("control: invalid arguments")

	// ErrBadRequest is returned when a message is not a JSON request.
	ErrBadRequest = errors.New("control: malformed request")

	// ErrServerClosed is returned by Serve after Shutdown.
	ErrServerClosed = errors.New("control: server closed")
)
