package compose

import (
	"errors"
	"fmt"
)

// ErrSubmitInFlight is returned when Submit is called while a previous
// submission has not completed.
var ErrSubmitInFlight = errors.New("a post is already being submitted")

var errEmptyImage = errors.New("image is empty")

// ValidationError is a local check that failed before any request was sent
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// EncodingError means the attached image could not be prepared for upload.
// Nothing was sent.
type EncodingError struct {
	Path string
	Err  error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("Could not read image %s: %v", e.Path, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }
