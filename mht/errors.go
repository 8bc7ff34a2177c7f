package mht

import (
	"errors"
	"fmt"
)

// ErrMalformedInput is matched by every MalformedInputError.
var ErrMalformedInput = errors.New("malformed mht input")

// MalformedInputError reports a required marker that could not be found.
type MalformedInputError struct {
	Pass   string
	Marker string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("%s: missing marker %q", e.Pass, e.Marker)
}

func (e *MalformedInputError) Is(target error) bool {
	return target == ErrMalformedInput
}

func missing(pass, marker string) error {
	return &MalformedInputError{Pass: pass, Marker: marker}
}
