package archive

import (
	"errors"
	"fmt"
)

var (
	ErrConnectivity = errors.New("archive unreachable")
	ErrEmptyResult  = errors.New("archive returned no records")
	ErrNotFound     = errors.New("submission not found")

	errEmptyPage = errors.New("empty page")
)

// FatalError ends a fetch. Resume is the cursor of the last page handed to the consumer, or zero when nothing was
// retrieved; a new fetch starting after Resume continues where this one stopped.
type FatalError struct {
	Kind   error
	Resume int64
	Err    error
}

func (e *FatalError) Error() string {
	if e.Resumable() {
		return fmt.Sprintf("%s (resume after %d): %s", e.Kind, e.Resume, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *FatalError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func (e *FatalError) Resumable() bool {
	return e.Resume > 0
}
