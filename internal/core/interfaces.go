package core

import (
	"context"
)

// CursorStore keeps pagination checkpoints between runs.
type CursorStore interface {
	Load(ctx context.Context, key string) (int64, bool, error)
	Save(ctx context.Context, key string, cursor int64) error
}

// Sink consumes normalized threads.
type Sink interface {
	Write(ctx context.Context, thread Thread) error
	Close() error
}

// Publisher announces threads to other services.
type Publisher interface {
	Sink
}

// Repository stores threads for later queries.
type Repository interface {
	Sink
}

// CursorKey is the CursorStore key of a subreddit.
func CursorKey(subreddit string) string {
	return "cursor." + subreddit
}
