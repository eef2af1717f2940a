package handlers

import (
	"strings"
	"time"

	"github.com/macrokit/macrokit/pkg/bridge"
	"github.com/macrokit/macrokit/pkg/macro"
)

// Cmdline returns the handler for external process launches.
func Cmdline(c bridge.Cmdline) map[string]macro.HandlerFunc {
	return map[string]macro.HandlerFunc{
		"CMDLINE": cmdlineHandler(c),
	}
}

// cmdlineHandler implements "CMDLINE CMD=command [TIMEOUT=seconds]
// [WAIT=NO]". With WAIT=NO the process is fired and forgotten; its exit
// status never fails the macro.
func cmdlineHandler(c bridge.Cmdline) macro.HandlerFunc {
	return func(ctx *macro.ExecutionContext) macro.CommandResult {
		cmd, ok := ctx.RequiredParam("CMD")
		if !ok {
			return macro.Fail(macro.ErrMissingParameter, "CMDLINE needs CMD")
		}
		if c == nil {
			return macro.Fail(macro.ErrScript, "no cmdline bridge configured")
		}

		req := bridge.CmdlineRequest{Command: ctx.Expand(cmd), Wait: true}
		if t, ok := ctx.ExpandedParam("TIMEOUT"); ok {
			seconds, numeric := macro.NumberValue(t)
			if !numeric || seconds < 0 {
				return macro.Fail(macro.ErrInvalidParameter, "CMDLINE TIMEOUT=%s is not a number", t)
			}
			req.Timeout = time.Duration(seconds * float64(time.Second))
		}
		if w, ok := ctx.ExpandedParam("WAIT"); ok {
			req.Wait = !strings.EqualFold(w, "NO") && macro.Truthy(w)
		}

		result, err := c.Execute(ctx.Ctx, req)
		if err != nil {
			return macro.Fail(macro.ErrScript, "command failed: %v", err)
		}
		if req.Wait && result.ExitCode != 0 {
			return macro.Fail(macro.ErrScript, "command exited %d: %s", result.ExitCode, result.Stderr)
		}
		return macro.OKOutput(result.Stdout)
	}
}
