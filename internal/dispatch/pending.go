package dispatch

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/mcncl/jsonmigration/elemental"
	"github.com/mcncl/jsonmigration/host"
	"github.com/mcncl/jsonmigration/internal/codec"
)

// PendingResult wraps a host script result so handlers always receive
// elemental values, whatever family the host completes with.
type PendingResult struct {
	strategy Strategy
	delegate host.PendingJavaScriptResult
}

// NewPendingResult wraps delegate for strategy s.
func NewPendingResult(s Strategy, delegate host.PendingJavaScriptResult) *PendingResult {
	return &PendingResult{strategy: s, delegate: delegate}
}

// Then registers handlers. The host later calls exactly one of them. A
// result that cannot be converted is reported to onError.
func (p *PendingResult) Then(onResult func(elemental.Value), onError func(string)) {
	p.delegate.Then(func(value any) {
		v, err := p.strategy.FromHost(value)
		if err != nil {
			if onError != nil {
				onError(err.Error())
			}
			return
		}
		if onResult != nil {
			onResult(v)
		}
	}, onError)
}

// ThenAs registers handlers receiving the result decoded as target.
func (p *PendingResult) ThenAs(target reflect.Type, onResult func(any), onError func(string)) {
	p.Then(func(v elemental.Value) {
		out, err := codec.DecodeAs(v, target)
		if err != nil {
			if onError != nil {
				onError(err.Error())
			}
			return
		}
		if onResult != nil {
			onResult(out)
		}
	}, onError)
}

// ThenTyped is ThenAs with the target taken from T.
func ThenTyped[T any](p *PendingResult, onResult func(T), onError func(string)) {
	p.ThenAs(reflect.TypeFor[T](), func(v any) {
		if onResult == nil {
			return
		}
		var out T
		if v != nil {
			out = v.(T)
		}
		onResult(out)
	}, onError)
}

// Future registers handlers that record the outcome in a Completion.
func (p *PendingResult) Future(target reflect.Type) *Completion {
	c := &Completion{done: make(chan struct{})}
	p.ThenAs(target, func(v any) {
		c.finish(v, nil)
	}, func(msg string) {
		c.finish(nil, fmt.Errorf("script evaluation failed: %s", msg))
	})
	return c
}

// Completion is the outcome of a pending result, available once the host
// completes it.
type Completion struct {
	once  sync.Once
	done  chan struct{}
	value any
	err   error
}

func (c *Completion) finish(v any, err error) {
	c.once.Do(func() {
		c.value, c.err = v, err
		close(c.done)
	})
}

// Done is closed when the host has completed the result.
func (c *Completion) Done() <-chan struct{} { return c.done }

// Wait blocks until the host completes the result or ctx ends. Ending ctx
// stops waiting; it does not cancel the script.
func (c *Completion) Wait(ctx context.Context) (any, error) {
	select {
	case <-c.done:
		return c.value, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
