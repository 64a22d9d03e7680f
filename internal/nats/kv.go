package nats

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/nats-io/nats.go/jetstream"
)

// CursorStore keeps cursors in the application's KeyValue bucket.
type CursorStore struct {
	NATS *NATS
}

func (c *CursorStore) Load(ctx context.Context, key string) (int64, bool, error) {
	entry, err := c.NATS.KV.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}

	cursor, err := strconv.ParseInt(string(entry.Value()), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("malformed cursor %s: %w", key, err)
	}

	return cursor, true, nil
}

func (c *CursorStore) Save(ctx context.Context, key string, cursor int64) error {
	_, err := c.NATS.KV.Put(ctx, key, []byte(strconv.FormatInt(cursor, 10)))
	if err != nil {
		return fmt.Errorf("failed to store key %s: %w", key, err)
	}
	return nil
}
