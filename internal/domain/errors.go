package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPlayerLine is matched by *InvalidPlayerLineError.
	ErrInvalidPlayerLine = errors.New("invalid player line")
	// ErrParse is matched by *ParseError.
	ErrParse = errors.New("status parse error")
	// ErrMissingGameTime is returned by Server.GameTime when the reply had
	// no GameTime header.
	ErrMissingGameTime = errors.New("game time not set")
)

// InvalidPlayerLineError carries a roster line that did not match the
// player grammar.
type InvalidPlayerLineError struct {
	Line string
}

func (e *InvalidPlayerLineError) Error() string {
	return fmt.Sprintf("invalid player line: %q", e.Line)
}

func (e *InvalidPlayerLineError) Unwrap() error {
	return ErrInvalidPlayerLine
}

// ParseError reports a reply that broke a status invariant. Raw holds the
// whole reply for diagnostics.
type ParseError struct {
	Reason string
	Raw    string
}

func (e *ParseError) Error() string {
	return "status parse error: " + e.Reason
}

func (e *ParseError) Unwrap() error {
	return ErrParse
}
