package async

import "context"

// Yielder hands a value to the consumer. It blocks until the value is taken and returns false when the
// generator's context is done, in which case the generator function should return.
type Yielder[T any] func(T) bool

// Generator runs gen in a goroutine and exposes the produced values as a channel. The channel is closed after gen
// returns; a non-nil error from gen is delivered as the last Result. Production is paced by the consumer: gen is
// suspended on every yield until the value has been received, so it works at most one value ahead.
func Generator[T any](ctx context.Context, gen func(context.Context, Yielder[T]) error) <-chan Result[T] {
	ch := make(chan Result[T])

	y := func(t T) bool {
		if ctx.Err() != nil {
			return false
		}

		select {
		case <-ctx.Done():
			return false
		case ch <- NewResult(t):
			return true
		}
	}

	go func() {
		defer close(ch)

		err := gen(ctx, y)
		if err == nil {
			return
		}

		select {
		case <-ctx.Done():
		case ch <- NewResult(*new(T), err):
		}
	}()

	return ch
}

// Drain collects every value of ch, stopping at the first error.
func Drain[T any](ch <-chan Result[T]) ([]T, error) {
	var out []T

	for res := range ch {
		v, err := res.Unpack()
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}

	return out, nil
}
