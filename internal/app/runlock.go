package app

import (
	"context"
	"errors"
	"sync"
)

// ErrBusy is returned by a flow started with SkipIfBusy while another run of
// the same flow holds the lock.
var ErrBusy = errors.New("sync flow already running")

type skipKey struct{}

// SkipIfBusy marks ctx so that flow runs give up instead of queueing.
func SkipIfBusy(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipKey{}, true)
}

func skipIfBusy(ctx context.Context) bool {
	v, _ := ctx.Value(skipKey{}).(bool)
	return v
}

// FlowLimiter keeps two runs of the same sync flow from overlapping. Runs of
// different flows proceed in parallel.
type FlowLimiter struct {
	mu     sync.Mutex
	byFlow map[string]*sync.Mutex
}

func NewFlowLimiter() *FlowLimiter {
	return &FlowLimiter{byFlow: make(map[string]*sync.Mutex)}
}

func (l *FlowLimiter) lock(flow string) func() {
	l.mu.Lock()
	m, ok := l.byFlow[flow]
	if !ok {
		m = &sync.Mutex{}
		l.byFlow[flow] = m
	}
	l.mu.Unlock()

	m.Lock()
	return func() { m.Unlock() }
}

// TryLock is lock without waiting; ok is false while another run holds flow.
func (l *FlowLimiter) TryLock(flow string) (unlock func(), ok bool) {
	l.mu.Lock()
	m, exists := l.byFlow[flow]
	if !exists {
		m = &sync.Mutex{}
		l.byFlow[flow] = m
	}
	l.mu.Unlock()

	if !m.TryLock() {
		return nil, false
	}
	return func() { m.Unlock() }, true
}
