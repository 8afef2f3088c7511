package sanitize

import "context"

// Wrap returns op with its successful result passed through As. Typed
// results, including structs and pointers to them, come back as sanitized
// copies of the same type. Errors from op are returned unchanged with a zero
// result.
func Wrap[T any](op func(context.Context) (T, error)) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		res, err := op(ctx)
		if err != nil {
			var zero T
			return zero, err
		}
		return As(res), nil
	}
}
