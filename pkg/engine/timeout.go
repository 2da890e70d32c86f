package engine

import (
	"fmt"
	"time"
)

// EvalTimeout is the default bound on a single evaluation.
const EvalTimeout = 5 * time.Second

type evalResult struct {
	script *Script
	errors []EvalError
	err    error
}

// WithTimeout bounds each evaluation by d instead of EvalTimeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// current reports whether gen is still the latest evaluation.
func (e *Engine) current(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return gen == e.generation
}

// wait returns the result on ch unless the evaluation times out or a newer
// one started meanwhile. A timed out sandbox keeps running until it
// finishes; its result lands in the buffered channel and is dropped.
func (e *Engine) wait(ch <-chan evalResult, gen uint64) (*Script, []EvalError, error) {
	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if !e.current(gen) {
			return nil, nil, fmt.Errorf("evaluation superseded by newer request")
		}
		return res.script, res.errors, res.err
	case <-timer.C:
		return nil, nil, fmt.Errorf("evaluation timed out after %s", e.timeout)
	}
}
