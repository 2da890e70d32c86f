// Package engine evaluates job scripts: a small Lisp, run in a sandboxed
// zygomys interpreter, that defines tools, builds models from kernel solids
// and declares the jobs to run.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/swarf/pkg/job"
	"github.com/chazu/swarf/pkg/kernel"
	"github.com/chazu/swarf/pkg/kernel/sdfx"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError is a problem in the script itself, such as a parse error or a
// bad builtin argument.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalWarning is advisory.
type EvalWarning struct {
	Job     string
	Message string
}

func (w EvalWarning) String() string {
	if w.Job == "" {
		return w.Message
	}
	return fmt.Sprintf("job %s: %s", w.Job, w.Message)
}

// Script is everything a successful evaluation declared, in source order.
type Script struct {
	Jobs     []job.Job
	Warnings []EvalWarning
}

// EvalResult bundles an evaluation for callers that report rather than
// branch on errors.
type EvalResult struct {
	Script   *Script
	Errors   []EvalError
	Warnings []EvalWarning
}

// Engine evaluates scripts. It is safe for concurrent use; every evaluation
// runs in a fresh sandbox and a newer call supersedes an older one.
type Engine struct {
	mu         sync.Mutex
	generation uint64
	timeout    time.Duration

	kernel kernel.Kernel
	base   job.Job
}

// Option configures an Engine.
type Option func(*Engine)

// WithKernel selects the geometry kernel models are built with.
func WithKernel(k kernel.Kernel) Option {
	return func(e *Engine) { e.kernel = k }
}

// WithDefaults sets the job every (job ...) starts from, typically built
// from the machine profile.
func WithDefaults(j job.Job) Option {
	return func(e *Engine) { e.base = j }
}

// NewEngine returns an Engine using the sdfx kernel and the default job.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{base: job.New(""), timeout: EvalTimeout}
	for _, o := range opts {
		o(e)
	}
	if e.kernel == nil {
		e.kernel = sdfx.New()
	}
	return e
}

// Kernel returns the kernel the engine builds models with.
func (e *Engine) Kernel() kernel.Kernel {
	return e.kernel
}

// Evaluate runs source and returns the script it declares.
//
//   - On success: script, nil, nil
//   - On parse or evaluation failure: nil, eval errors, nil
//   - On timeout, supersession or panic: nil, nil, error
func (e *Engine) Evaluate(source string) (*Script, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()
		s, evalErrs, err := e.evaluate(source)
		ch <- evalResult{script: s, errors: evalErrs, err: err}
	}()

	return e.wait(ch, gen)
}

// EvaluateResult is Evaluate folded into one value. Fatal errors become
// an EvalError without a line.
func (e *Engine) EvaluateResult(source string) EvalResult {
	s, evalErrs, err := e.Evaluate(source)
	if err != nil {
		return EvalResult{Errors: []EvalError{{Message: err.Error()}}}
	}
	res := EvalResult{Script: s, Errors: evalErrs}
	if s != nil {
		res.Warnings = s.Warnings
	}
	return res
}

func (e *Engine) evaluate(source string) (*Script, []EvalError, error) {
	script := &Script{}
	if strings.TrimSpace(source) == "" {
		return script, nil, nil
	}

	env := zygo.NewZlispSandbox()
	defer env.Stop()

	registerBuiltins(env, &builder{
		k:      e.kernel,
		base:   e.base,
		script: script,
		names:  make(map[string]bool),
	})

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}
	return script, nil, nil
}

var (
	// linePattern matches "Error on line N: ..." from the parser.
	linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)
	// linePatternShort matches "line N: ...".
	linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)
)

// parseZygomysError extracts a line number from a zygomys error when it
// carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
