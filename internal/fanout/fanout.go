// Package fanout invokes ordered handler collections with per-handler fault
// isolation.
//
// Every handler runs exactly once, in order, even when earlier handlers
// fail. Failures are collected and surfaced together after all handlers have
// run. Side effects of handlers that succeeded are not rolled back: this is
// fire-and-continue dispatch, not a transaction.
package fanout

import (
	"fmt"
	"strings"
	"sync"
)

// Handler processes one fan-out argument.
type Handler[T any] func(T) error

// AggregateError carries every failure produced by one fan-out invocation,
// in handler order. It is never produced empty.
type AggregateError struct {
	Failures []error
}

// Error returns a summary of all collected failures.
func (e *AggregateError) Error() string {
	if len(e.Failures) == 1 {
		return fmt.Sprintf("1 handler failed: %v", e.Failures[0])
	}
	msgs := make([]string, len(e.Failures))
	for i, err := range e.Failures {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d handlers failed: %s", len(e.Failures), strings.Join(msgs, "; "))
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *AggregateError) Unwrap() []error {
	return e.Failures
}

// Invoke calls every non-nil handler exactly once, in order, with arg.
// A panicking handler is recovered and reported as a failure. Returns nil
// when every handler succeeded, otherwise an *AggregateError holding each
// failure in handler order.
func Invoke[T any](handlers []Handler[T], arg T) error {
	var failures []error
	for _, h := range handlers {
		if h == nil {
			continue
		}
		if err := call(h, arg); err != nil {
			failures = append(failures, err)
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return &AggregateError{Failures: failures}
}

func call[T any](h Handler[T], arg T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(arg)
}

// Group is an ordered subscriber list safe for concurrent subscription and
// invocation. Handlers are invoked in subscription order.
type Group[T any] struct {
	mu       sync.RWMutex
	handlers []Handler[T]
}

// Subscribe appends a handler and returns a function that removes it.
// Unsubscribing leaves a nil slot so the indices of other handlers are
// stable.
func (g *Group[T]) Subscribe(h Handler[T]) func() {
	if h == nil {
		return func() {}
	}

	g.mu.Lock()
	g.handlers = append(g.handlers, h)
	index := len(g.handlers) - 1
	g.mu.Unlock()

	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if index < len(g.handlers) {
			g.handlers[index] = nil
		}
	}
}

// Invoke dispatches arg to every subscriber with per-handler fault
// isolation. See Invoke.
func (g *Group[T]) Invoke(arg T) error {
	g.mu.RLock()
	handlers := make([]Handler[T], len(g.handlers))
	copy(handlers, g.handlers)
	g.mu.RUnlock()

	return Invoke(handlers, arg)
}

// Len returns the number of subscribed handlers, including removed slots.
func (g *Group[T]) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.handlers)
}
