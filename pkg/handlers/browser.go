package handlers

import (
	"strconv"
	"strings"

	"github.com/macrokit/macrokit/pkg/bridge"
	"github.com/macrokit/macrokit/pkg/macro"
)

// Browser returns the handlers that drive tab- and frame-level
// navigation. Page loads and frame selection target resources that may
// not exist yet, so they poll inside the retry/timeout budget.
func Browser(b bridge.Browser) map[string]macro.HandlerFunc {
	return map[string]macro.HandlerFunc{
		"URL":     urlHandler(b),
		"BACK":    simpleBrowserOp(b, bridge.OpGoBack),
		"REFRESH": simpleBrowserOp(b, bridge.OpRefresh),
		"FRAME":   frameHandler(b),
		"TAB":     tabHandler(b),
	}
}

// urlHandler implements "URL GOTO=address", retrying until the page
// loads or the timeout budget is spent.
func urlHandler(b bridge.Browser) macro.HandlerFunc {
	return func(ctx *macro.ExecutionContext) macro.CommandResult {
		target, ok := ctx.RequiredParam("GOTO")
		if !ok {
			return macro.Fail(macro.ErrMissingParameter, "URL needs GOTO")
		}
		if b == nil {
			return macro.Fail(macro.ErrScript, "no browser bridge configured")
		}
		address := ctx.Expand(target)

		result := ctx.Poll(ctx.TimeoutBudget(""), macro.ErrPageTimeout, func() macro.CommandResult {
			resp := b.Send(ctx.Ctx, bridge.BrowserOp{Kind: bridge.OpNavigate, URL: address})
			if !resp.OK {
				return macro.Fail(macro.ErrPageTimeout, "%s", resp.Err)
			}
			return macro.OK()
		})
		if result.Success {
			updateCurrentURL(ctx, b)
		}
		return result
	}
}

// simpleBrowserOp wraps a one-shot browser operation such as BACK or
// REFRESH.
func simpleBrowserOp(b bridge.Browser, kind bridge.BrowserOpKind) macro.HandlerFunc {
	return func(ctx *macro.ExecutionContext) macro.CommandResult {
		if b == nil {
			return macro.Fail(macro.ErrScript, "no browser bridge configured")
		}
		resp := b.Send(ctx.Ctx, bridge.BrowserOp{Kind: kind})
		if !resp.OK {
			return macro.Fail(macro.ErrScript, "%s", resp.Err)
		}
		updateCurrentURL(ctx, b)
		return macro.OK()
	}
}

// frameHandler implements "FRAME F=n" and "FRAME NAME=name". Frames
// appear asynchronously, so selection polls within the timeout budget.
// When selection ultimately fails, a compensating select-main-frame call
// keeps subsequent commands from addressing a nonexistent frame.
func frameHandler(b bridge.Browser) macro.HandlerFunc {
	return func(ctx *macro.ExecutionContext) macro.CommandResult {
		if b == nil {
			return macro.Fail(macro.ErrScript, "no browser bridge configured")
		}

		op := bridge.BrowserOp{Kind: bridge.OpSelectFrame, FrameIndex: -1}
		if f, ok := ctx.ExpandedParam("F"); ok {
			n, err := strconv.Atoi(strings.TrimSpace(f))
			if err != nil || n < 0 {
				return macro.Fail(macro.ErrInvalidParameter, "FRAME F=%s is not a frame index", f)
			}
			op.FrameIndex = n
		} else if name, ok := ctx.ExpandedParam("NAME"); ok {
			op.FrameName = name
		} else {
			return macro.Fail(macro.ErrMissingParameter, "FRAME needs F or NAME")
		}

		result := ctx.Poll(ctx.TimeoutBudget(""), macro.ErrFrameNotFound, func() macro.CommandResult {
			resp := b.Send(ctx.Ctx, op)
			if !resp.OK {
				return macro.Fail(macro.ErrFrameNotFound, "%s", resp.Err)
			}
			return macro.OK()
		})
		if !result.Success {
			b.Send(ctx.Ctx, bridge.BrowserOp{Kind: bridge.OpSelectMainFrame})
		}
		return result
	}
}

// tabHandler implements "TAB T=n", "TAB OPEN", "TAB CLOSE" and
// "TAB CLOSEALLOTHERS".
func tabHandler(b bridge.Browser) macro.HandlerFunc {
	return func(ctx *macro.ExecutionContext) macro.CommandResult {
		if b == nil {
			return macro.Fail(macro.ErrScript, "no browser bridge configured")
		}

		var op bridge.BrowserOp
		switch {
		case hasPositional(ctx.Command, "OPEN"):
			op = bridge.BrowserOp{Kind: bridge.OpOpenTab}
		case hasPositional(ctx.Command, "CLOSE"):
			op = bridge.BrowserOp{Kind: bridge.OpCloseTab}
		case hasPositional(ctx.Command, "CLOSEALLOTHERS"):
			op = bridge.BrowserOp{Kind: bridge.OpCloseOtherTabs}
		default:
			t, ok := ctx.ExpandedParam("T")
			if !ok {
				return macro.Fail(macro.ErrMissingParameter, "TAB needs T, OPEN, CLOSE or CLOSEALLOTHERS")
			}
			n, err := strconv.Atoi(strings.TrimSpace(t))
			if err != nil || n < 1 {
				return macro.Fail(macro.ErrInvalidParameter, "TAB T=%s is not a tab number", t)
			}
			// T is 1-based in macro source.
			op = bridge.BrowserOp{Kind: bridge.OpSwitchTab, TabIndex: n - 1}
		}

		resp := b.Send(ctx.Ctx, op)
		if !resp.OK {
			return macro.Fail(macro.ErrScript, "%s", resp.Err)
		}
		updateCurrentURL(ctx, b)
		return macro.OK()
	}
}

// updateCurrentURL refreshes !URLCURRENT after any navigation-affecting
// operation. Failures are ignored; the variable just goes stale.
func updateCurrentURL(ctx *macro.ExecutionContext, b bridge.Browser) {
	resp := b.Send(ctx.Ctx, bridge.BrowserOp{Kind: bridge.OpCurrentURL})
	if resp.OK {
		ctx.Vars.Set(macro.VarURLCurrent, resp.Data)
	}
}

func hasPositional(cmd *macro.Command, word string) bool {
	for _, v := range cmd.PositionalValues() {
		if strings.EqualFold(v, word) {
			return true
		}
	}
	return false
}
