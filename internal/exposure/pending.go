package exposure

import (
	"context"
	"sync"

	"github.com/example/exposure-bridge/internal/engine"
)

type completion[T any] struct {
	value T
	err   error
}

// pending bridges one engine callback to one waiting caller. Only the first
// completion is delivered; later ones are reported through onLate.
type pending[T any] struct {
	once   sync.Once
	done   chan completion[T]
	onLate func(completion[T])
}

func newPending[T any](onLate func(completion[T])) *pending[T] {
	return &pending[T]{
		done:   make(chan completion[T], 1),
		onLate: onLate,
	}
}

// settle delivers c if this is the first completion. onWin runs inside the
// guard before delivery, so side effects tied to winning happen at most once.
func (p *pending[T]) settle(c completion[T], onWin func()) {
	won := false
	p.once.Do(func() {
		won = true
		if onWin != nil {
			onWin()
		}
		p.done <- c
	})
	if !won && p.onLate != nil {
		p.onLate(c)
	}
}

// callback returns the engine callback feeding p. onSuccess, when set, runs
// only for a winning success.
func (p *pending[T]) callback(onSuccess func(T)) engine.Callback[T] {
	return engine.Callback[T]{
		OnSuccess: func(v T) {
			var hook func()
			if onSuccess != nil {
				hook = func() { onSuccess(v) }
			}
			p.settle(completion[T]{value: v}, hook)
		},
		OnFailure: func(err error) {
			p.settle(completion[T]{err: err}, nil)
		},
	}
}

// wait blocks until the engine completes or ctx is done. A completion that
// has already been delivered always takes precedence over ctx. Abandoning the
// wait does not cancel the engine call.
func (p *pending[T]) wait(ctx context.Context) (completion[T], error) {
	select {
	case c := <-p.done:
		return c, nil
	default:
	}
	select {
	case c := <-p.done:
		return c, nil
	case <-ctx.Done():
		select {
		case c := <-p.done:
			return c, nil
		default:
		}
		return completion[T]{}, ctx.Err()
	}
}
