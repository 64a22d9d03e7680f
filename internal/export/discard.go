package export

import (
	"context"

	"threadlytics/internal/core"
)

// Discard stands in for an output that is not configured.
type Discard struct{}

func (Discard) Write(context.Context, core.Thread) error {
	return nil
}

func (Discard) Close() error {
	return nil
}
