package macro

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/macrokit/macrokit/pkg/logging"
)

// Polling defaults, overridable through !TIMEOUT and !TIMEOUT_STEP.
const (
	DefaultTimeout     = 60 * time.Second
	DefaultTimeoutStep = 200 * time.Millisecond
)

// runState is the executor's control-flow state.
type runState int

const (
	stateRunning runState = iota
	stateJumped
	stateStoppedOK
	stateStoppedError
)

// MacroResult is the outcome of one full macro execution. It is created
// once at the end of Execute and immutable after return.
type MacroResult struct {
	RunID     string
	Success   bool
	Code      ErrorCode
	Message   string
	Variables map[string]string
	Extract   string
	Runtime   time.Duration
}

// Executor drives the control-flow state machine over a loaded program:
// sequential advance, label jumps, conditional branches, whole-program
// loop iteration and the error policy. One executor runs one macro at a
// time; concurrent runs get independent executors with independent
// variable stores.
type Executor struct {
	registry *Registry
	vars     *Store
	log      *logging.Logger

	program []*Command
	labels  map[string]int

	mu      sync.Mutex
	stop    chan struct{}
	running bool
	last    *MacroResult
}

// NewExecutor creates an executor over a handler registry. The logger
// may be nil.
func NewExecutor(registry *Registry, log *logging.Logger) *Executor {
	return &Executor{
		registry: registry,
		vars:     NewStore(),
		log:      log,
		labels:   make(map[string]int),
	}
}

// Vars returns the executor's variable store.
func (x *Executor) Vars() *Store { return x.vars }

// LoadMacro parses source into the executor's program and rebuilds the
// label table. Loading never fails; unparsable lines surface as
// line-scoped failures during execution.
func (x *Executor) LoadMacro(source string) {
	x.program = Parse(source)
	x.labels = make(map[string]int)
	for i, cmd := range x.program {
		if cmd.Label != "" {
			x.labels[strings.ToUpper(cmd.Label)] = i
		}
	}
}

// Program returns the loaded command list.
func (x *Executor) Program() []*Command { return x.program }

// Busy reports whether a run is in flight.
func (x *Executor) Busy() bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.running
}

// Stop asks the current run to stop. Stopping is cooperative: the
// dispatch loop observes it between commands and retry polls observe it
// at their next tick.
func (x *Executor) Stop() {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.stop != nil {
		select {
		case <-x.stop:
		default:
			close(x.stop)
		}
	}
}

// LastResult returns the result of the most recently finished run, or
// nil when none has run yet.
func (x *Executor) LastResult() *MacroResult {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.last
}

// Execute runs the loaded program from loopStart to loopEnd inclusive.
// The whole command list is re-executed from the top for each value of
// !LOOP; this macro-level repeat is the language's only loop construct.
// !LOOP is incremented after each completed pass, so a run over
// (1, 5) finishes with !LOOP == 6.
func (x *Executor) Execute(ctx context.Context, loopStart, loopEnd int) MacroResult {
	start := time.Now()
	if loopStart < 1 {
		loopStart = 1
	}
	if loopEnd < loopStart {
		loopEnd = loopStart
	}

	x.mu.Lock()
	x.running = true
	x.stop = make(chan struct{})
	stop := x.stop
	x.mu.Unlock()

	if x.log != nil {
		x.log.Infof("executing macro: %d commands, loop %d..%d", len(x.program), loopStart, loopEnd)
	}

	state := stateRunning
	var failure *CommandResult

	for loop := loopStart; loop <= loopEnd && state == stateRunning; loop++ {
		x.vars.Set(VarLoop, strconv.Itoa(loop))
		state = x.runPass(ctx, stop, &failure)
		if state == stateRunning {
			x.vars.Set(VarLoop, strconv.Itoa(loop+1))
		}
	}
	if state == stateRunning {
		state = stateStoppedOK
	}

	result := MacroResult{
		RunID:     uuid.New().String(),
		Success:   state == stateStoppedOK,
		Code:      ErrOK,
		Variables: x.vars.Snapshot(),
		Extract:   x.vars.Extract(),
		Runtime:   time.Since(start),
	}
	if failure != nil {
		result.Code = failure.Code
		result.Message = failure.Message
	}
	if x.log != nil {
		x.log.Infof("macro finished: success=%t code=%s runtime=%s", result.Success, result.Code, result.Runtime)
	}

	x.mu.Lock()
	x.running = false
	x.last = &result
	x.mu.Unlock()

	return result
}

// runPass executes one full pass over the program. It returns
// stateRunning when the pass completed and the loop may continue.
func (x *Executor) runPass(ctx context.Context, stop <-chan struct{}, failure **CommandResult) runState {
	pc := 0
	for pc < len(x.program) {
		if stopRequested(ctx, stop) {
			x.recordFailure(failure, Fail(ErrScript, "macro stopped"))
			return stateStoppedError
		}

		cmd := x.program[pc]
		switch cmd.Type {
		case TypeLabel:
			pc++
			continue
		case "GOTO":
			target, ok := x.jumpTarget(cmd, cmd.PositionalValues())
			if !ok {
				x.recordFailure(failure, Fail(ErrInvalidParameter, "label not found (line %d): %s", cmd.LineNumber, cmd.Raw))
				return stateStoppedError
			}
			pc = target
			continue
		case "IF":
			target, jump, result := x.evalIf(cmd)
			if !result.Success {
				if x.ignoreErrors() {
					x.recordFailure(failure, result)
					pc++
					continue
				}
				x.recordFailure(failure, result)
				return stateStoppedError
			}
			if jump {
				pc = target
			} else {
				pc++
			}
			continue
		}

		result := x.runCommand(ctx, stop, cmd)
		if !result.Success {
			x.recordFailure(failure, result)
			if x.log != nil {
				x.log.Warnf("line %d failed: %s: %s", cmd.LineNumber, result.Code, result.Message)
			}
			if !x.ignoreErrors() {
				return stateStoppedError
			}
		}
		pc++
	}
	return stateRunning
}

// runCommand dispatches one command through the registry with a fresh
// per-command execution context.
func (x *Executor) runCommand(ctx context.Context, stop <-chan struct{}, cmd *Command) CommandResult {
	ec := &ExecutionContext{
		Ctx:     ctx,
		Command: cmd,
		Vars:    x.vars,
		stop:    stop,
		log:     x.log,
	}
	switch cmd.Type {
	case TypeSyntaxError:
		return Fail(ErrSyntax, "syntax error (line %d): %s", cmd.LineNumber, cmd.Raw)
	default:
		return x.registry.Dispatch(ec)
	}
}

// jumpTarget resolves the label argument of a GOTO. Labels are
// case-insensitive.
func (x *Executor) jumpTarget(cmd *Command, args []string) (int, bool) {
	if len(args) == 0 {
		return 0, false
	}
	label := x.vars.mustExpand(args[len(args)-1])
	idx, ok := x.labels[strings.ToUpper(label)]
	return idx, ok
}

// evalIf evaluates "IF <condition> THEN GOTO <label>". A true condition
// behaves as GOTO; a false one advances normally.
func (x *Executor) evalIf(cmd *Command) (target int, jump bool, result CommandResult) {
	args := cmd.PositionalValues()

	then := -1
	for i, a := range args {
		if strings.EqualFold(a, "THEN") {
			then = i
			break
		}
	}
	if then <= 0 || then+2 >= len(args) || !strings.EqualFold(args[then+1], "GOTO") {
		return 0, false, Fail(ErrSyntax, "malformed IF (line %d): %s", cmd.LineNumber, cmd.Raw)
	}

	cond, err := x.evalCondition(strings.Join(args[:then], " "))
	if err != nil {
		return 0, false, Fail(ErrInvalidParameter, "bad condition (line %d): %v", cmd.LineNumber, err)
	}
	if !cond {
		return 0, false, OK()
	}

	tgt, ok := x.jumpTarget(cmd, args[then+2:then+3])
	if !ok {
		return 0, false, Fail(ErrInvalidParameter, "label not found (line %d): %s", cmd.LineNumber, cmd.Raw)
	}
	return tgt, true, OK()
}

// ignoreErrors reports whether !ERRORIGNORE is truthy.
func (x *Executor) ignoreErrors() bool {
	v, _ := x.vars.Get(VarErrorIgnore)
	return Truthy(v)
}

func (x *Executor) recordFailure(failure **CommandResult, result CommandResult) {
	if *failure == nil {
		*failure = &result
	}
}

func stopRequested(ctx context.Context, stop <-chan struct{}) bool {
	select {
	case <-stop:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// mustExpand is Expand without the usage list, for executor internals.
func (s *Store) mustExpand(text string) string {
	out, _ := s.Expand(text)
	return out
}
