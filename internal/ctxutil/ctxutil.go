package ctxutil

import (
	"context"
	"time"
)

// private keys so nothing outside this package collides with them
type key int

const (
	keyRunID key = iota
	keyFlow
)

// WithRunID / RunID carry the id of the current sync run.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRunID, id)
}

func RunID(ctx context.Context) (string, bool) {
	v := ctx.Value(keyRunID)
	if v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// WithFlow / Flow carry the sync flow name (students, courses, ...) for logs and metrics.
func WithFlow(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, keyFlow, name)
}

func Flow(ctx context.Context) (string, bool) {
	v := ctx.Value(keyFlow)
	if v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

var (
	DefaultDBTimeout = 5 * time.Second
)

// WithTimeout is context.WithTimeout that treats d <= 0 as "no timeout".
func WithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, d)
}

// WithDBTimeout bounds a single storage call. A shorter parent deadline wins.
func WithDBTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if dl, ok := parent.Deadline(); ok {
		remain := time.Until(dl)
		if remain < DefaultDBTimeout {
			return context.WithTimeout(parent, remain)
		}
	}
	return context.WithTimeout(parent, DefaultDBTimeout)
}
