package rcon

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned when the transport was never connected or
	// has been closed.
	ErrNotConnected = errors.New("rcon: transport not connected")
	// ErrTimeout is returned by a single receive that hit its deadline.
	ErrTimeout = errors.New("rcon: receive timed out")
	// ErrNoData is matched by *NoDataError.
	ErrNoData = errors.New("rcon: no data received")
)

// NoDataError reports that every attempt of a command was met with silence.
type NoDataError struct {
	Command  string
	Attempts int
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("rcon: no data received for %q after %d attempts", e.Command, e.Attempts)
}

func (e *NoDataError) Unwrap() error {
	return ErrNoData
}
