package reddit

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidLimit = errors.New("invalid limit")

// Limit bounds a listing either by the number of posts or by their age. Build it with ByCount or ByDuration.
type Limit struct {
	count  int
	window time.Duration
}

// ByCount stops a listing after n posts.
func ByCount(n int) Limit {
	return Limit{count: n}
}

// ByDuration stops a listing at the first post older than d.
func ByDuration(d time.Duration) Limit {
	return Limit{window: d}
}

func (l Limit) Validate() error {
	switch {
	case l.count > 0 && l.window == 0, l.window > 0 && l.count == 0:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrInvalidLimit, l)
	}
}

func (l Limit) String() string {
	if l.window > 0 {
		return fmt.Sprintf("last %s", l.window)
	}
	return fmt.Sprintf("%d posts", l.count)
}

// done reports whether a listing that has collected n posts should stop before a post created at created.
func (l Limit) done(n int, created, now time.Time) bool {
	if l.count > 0 {
		return n >= l.count
	}
	return created.Before(now.Add(-l.window))
}
