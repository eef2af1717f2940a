package macro

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/macrokit/macrokit/pkg/logging"
)

// CommandResult is the outcome of one handler invocation.
type CommandResult struct {
	Success bool
	Code    ErrorCode
	Message string
	Output  string
}

// OK returns a successful result.
func OK() CommandResult {
	return CommandResult{Success: true, Code: ErrOK}
}

// OKOutput returns a successful result carrying output data.
func OKOutput(output string) CommandResult {
	return CommandResult{Success: true, Code: ErrOK, Output: output}
}

// Fail returns a failed result with a formatted message.
func Fail(code ErrorCode, format string, args ...interface{}) CommandResult {
	return CommandResult{Code: code, Message: fmt.Sprintf(format, args...)}
}

// HandlerFunc implements one command type. A handler turns validated,
// expanded parameters into at most one bridge call and maps the bridge's
// response to a CommandResult. Handlers must not panic and must not let
// bridge errors escape as Go errors.
type HandlerFunc func(ctx *ExecutionContext) CommandResult

// Registry maps command type names to handlers. Registering a type twice
// overwrites silently, which lets call sites compose partial handler
// sets (navigation-only, interaction-only) without central coordination.
// The registry is mutated only at setup time and read-only during a run.
type Registry struct {
	handlers map[string]HandlerFunc
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]HandlerFunc)}
}

// Register binds a handler to a command type.
func (r *Registry) Register(cmdType string, h HandlerFunc) {
	r.handlers[strings.ToUpper(cmdType)] = h
}

// RegisterAll binds a whole handler set.
func (r *Registry) RegisterAll(set map[string]HandlerFunc) {
	for t, h := range set {
		r.Register(t, h)
	}
}

// Dispatch runs the handler registered for the context's command.
func (r *Registry) Dispatch(ctx *ExecutionContext) CommandResult {
	h, ok := r.handlers[ctx.Command.Type]
	if !ok {
		return Fail(ErrUnknownCommand, "unknown command %s (line %d)", ctx.Command.Type, ctx.Command.LineNumber)
	}
	return h(ctx)
}

// ExecutionContext is the per-command handle a handler works through.
// It lives for exactly one handler invocation.
type ExecutionContext struct {
	// Ctx carries run-level cancellation and deadlines.
	Ctx context.Context

	// Command is the instruction being executed.
	Command *Command

	// Vars is the run's variable store.
	Vars *Store

	stop <-chan struct{}
	log  *logging.Logger
}

// Param returns the raw, pre-expansion value of a parameter.
func (c *ExecutionContext) Param(key string) (string, bool) {
	return c.Command.Param(key)
}

// RequiredParam returns the raw value of a parameter that must be
// present and non-empty. Handlers check the second result before
// touching any bridge, so a missing parameter never causes partial side
// effects.
func (c *ExecutionContext) RequiredParam(key string) (string, bool) {
	v, ok := c.Command.Param(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// ExpandedParam returns a parameter value with {{NAME}} references
// resolved.
func (c *ExecutionContext) ExpandedParam(key string) (string, bool) {
	v, ok := c.Command.Param(key)
	if !ok {
		return "", false
	}
	return c.Expand(v), true
}

// Expand interpolates {{NAME}} references against the variable store.
func (c *ExecutionContext) Expand(text string) string {
	out, _ := c.Vars.Expand(text)
	return out
}

// Logf writes a handler log line tagged with the command's source line.
func (c *ExecutionContext) Logf(format string, args ...interface{}) {
	if c.log == nil {
		return
	}
	c.log.Infof("line %d [%s] %s", c.Command.LineNumber, c.Command.Type, fmt.Sprintf(format, args...))
}

// Stopped reports whether the run has been asked to stop.
func (c *ExecutionContext) Stopped() bool {
	select {
	case <-c.stop:
		return true
	case <-c.Ctx.Done():
		return true
	default:
		return false
	}
}

// Sleep waits for d or until the run is asked to stop. It returns false
// when interrupted.
func (c *ExecutionContext) Sleep(d time.Duration) bool {
	if d <= 0 {
		return !c.Stopped()
	}
	select {
	case <-time.After(d):
		return true
	case <-c.stop:
		return false
	case <-c.Ctx.Done():
		return false
	}
}

// TimeoutBudget resolves the polling budget for a retrying handler: the
// override parameter when numeric, else !TIMEOUT, else the default.
// Non-numeric values fall back silently; they are never a parse error.
func (c *ExecutionContext) TimeoutBudget(override string) time.Duration {
	if d, ok := parseSeconds(override); ok {
		return d
	}
	if v, ok := c.Vars.Get(VarTimeout); ok {
		if d, ok := parseSeconds(v); ok {
			return d
		}
	}
	return DefaultTimeout
}

// TimeoutStep resolves the polling interval. Zero disables the delay,
// which tests use to make retries deterministic.
func (c *ExecutionContext) TimeoutStep() time.Duration {
	if v, ok := c.Vars.Get(VarTimeoutStep); ok {
		if n, numeric := NumberValue(v); numeric && n >= 0 {
			return time.Duration(n * float64(time.Second))
		}
	}
	return DefaultTimeoutStep
}

// Poll retries attempt until it succeeds or the timeout budget is spent,
// sleeping one timeout step between attempts. On exhaustion it fails
// with timeoutCode and the message of the last attempt. The loop reacts
// to a stop request at every tick; an attempt that is already in flight
// is not interrupted.
func (c *ExecutionContext) Poll(budget time.Duration, timeoutCode ErrorCode, attempt func() CommandResult) CommandResult {
	deadline := time.Now().Add(budget)
	last := Fail(timeoutCode, "timed out after %s", budget)

	for {
		if c.Stopped() {
			return Fail(ErrScript, "macro stopped")
		}
		result := attempt()
		if result.Success {
			return result
		}
		last = result
		if time.Now().After(deadline) {
			break
		}
		if step := c.TimeoutStep(); step > 0 {
			select {
			case <-time.After(step):
			case <-c.stop:
				return Fail(ErrScript, "macro stopped")
			case <-c.Ctx.Done():
				return Fail(ErrScript, "macro stopped")
			}
		}
	}

	return Fail(timeoutCode, "%s", last.Message)
}

func parseSeconds(v string) (time.Duration, bool) {
	n, ok := NumberValue(v)
	if !ok || n < 0 {
		return 0, false
	}
	return time.Duration(n * float64(time.Second)), true
}
