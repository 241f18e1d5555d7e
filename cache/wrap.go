package cache

import (
	"context"
	"dogs-api-go/utils"
	"encoding/json"
	"fmt"
)

// Wrap memoizes a one-argument call. Errors propagate wrapped with name.
// P must be JSON-serializable; its canonical JSON forms the key.
func Wrap[P, R any](m *Memo, name string, fn func(context.Context, P) (R, error)) func(context.Context, P) (R, error) {
	return wrap(m, name, fn, nil)
}

// WrapWithFallback memoizes a one-argument call. On failure it returns a
// fresh copy of fallback instead of the error.
func WrapWithFallback[P, R any](m *Memo, name string, fn func(context.Context, P) (R, error), fallback R) func(context.Context, P) (R, error) {
	return wrap(m, name, fn, captureFallback(name, fallback))
}

// Wrap0 memoizes a call without arguments
func Wrap0[R any](m *Memo, name string, fn func(context.Context) (R, error)) func(context.Context) (R, error) {
	return wrap0(m, name, fn, nil)
}

// Wrap0WithFallback memoizes a call without arguments, degrading to fallback
func Wrap0WithFallback[R any](m *Memo, name string, fn func(context.Context) (R, error), fallback R) func(context.Context) (R, error) {
	return wrap0(m, name, fn, captureFallback(name, fallback))
}

func wrap[P, R any](m *Memo, name string, fn func(context.Context, P) (R, error), fallback func() (interface{}, error)) func(context.Context, P) (R, error) {
	return func(ctx context.Context, p P) (R, error) {
		var zero R

		key, err := utils.StableKey(name, p)
		if err != nil {
			return zero, err
		}

		v, err := m.call(ctx, name, key, func(ctx context.Context) (interface{}, error) {
			return fn(ctx, p)
		}, fallback)
		if err != nil {
			return zero, err
		}
		r, ok := v.(R)
		if !ok {
			return zero, fmt.Errorf("%s: cached value is %T, not %T", name, v, zero)
		}
		return r, nil
	}
}

func wrap0[R any](m *Memo, name string, fn func(context.Context) (R, error), fallback func() (interface{}, error)) func(context.Context) (R, error) {
	return func(ctx context.Context) (R, error) {
		var zero R

		key, err := utils.StableKey(name)
		if err != nil {
			return zero, err
		}

		v, err := m.call(ctx, name, key, func(ctx context.Context) (interface{}, error) {
			return fn(ctx)
		}, fallback)
		if err != nil {
			return zero, err
		}
		r, ok := v.(R)
		if !ok {
			return zero, fmt.Errorf("%s: cached value is %T, not %T", name, v, zero)
		}
		return r, nil
	}
}

// captureFallback serializes fallback once so every failure can decode its
// own copy. A fallback that cannot be serialized is a programming error.
func captureFallback[R any](name string, fallback R) func() (interface{}, error) {
	raw, err := json.Marshal(fallback)
	if err != nil {
		panic(fmt.Sprintf("cache: fallback for %s is not JSON-serializable: %v", name, err))
	}

	return func() (interface{}, error) {
		return utils.DecodeJSON[R](raw)
	}
}
