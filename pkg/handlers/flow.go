package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/macrokit/macrokit/pkg/bridge"
	"github.com/macrokit/macrokit/pkg/macro"
)

// Flow returns the handlers that need no browser: variable assignment,
// arithmetic, waiting and source search. The clipboard bridge backs
// SET !CLIPBOARD and may be nil; the content sender feeds SEARCH with
// page source and may be nil as well.
func Flow(clip bridge.Clipboard, content bridge.ContentSender) map[string]macro.HandlerFunc {
	return map[string]macro.HandlerFunc{
		"SET":     setHandler(clip),
		"ADD":     addHandler,
		"WAIT":    waitHandler,
		"PAUSE":   pauseHandler,
		"PROMPT":  promptHandler,
		"VERSION": versionHandler,
		"SIZE":    sizeHandler,
		"SEARCH":  searchHandler(content),
	}
}

// setHandler implements "SET name value...". The value is the expanded
// remainder of the line, so unquoted values may contain spaces.
// SET !EXTRACT NULL clears the accumulated extract; any other write to
// !EXTRACT is ignored, since extract data only grows through ADD.
func setHandler(clip bridge.Clipboard) macro.HandlerFunc {
	return func(ctx *macro.ExecutionContext) macro.CommandResult {
		args := ctx.Command.PositionalValues()
		if len(args) < 2 {
			return macro.Fail(macro.ErrMissingParameter, "SET needs a variable name and a value")
		}
		name := args[0]
		value := ctx.Expand(strings.Join(args[1:], " "))

		if strings.EqualFold(name, macro.VarExtract) {
			if strings.EqualFold(value, "NULL") {
				ctx.Vars.ClearExtract()
			}
			return macro.OK()
		}
		if strings.EqualFold(name, macro.VarClipboard) && clip != nil {
			if err := clip.Set(value); err != nil {
				ctx.Logf("clipboard write failed: %v", err)
			}
		}
		ctx.Vars.Set(name, value)
		return macro.OK()
	}
}

// addHandler implements "ADD name value". Numeric operands add, anything
// else concatenates. ADD !EXTRACT is the accumulate operation.
func addHandler(ctx *macro.ExecutionContext) macro.CommandResult {
	args := ctx.Command.PositionalValues()
	if len(args) < 2 {
		return macro.Fail(macro.ErrMissingParameter, "ADD needs a variable name and a value")
	}
	name := args[0]
	value := ctx.Expand(strings.Join(args[1:], " "))

	if strings.EqualFold(name, macro.VarExtract) {
		ctx.Vars.AppendExtract(value)
		return macro.OK()
	}

	current, _ := ctx.Vars.Get(name)
	if cn, cok := macro.NumberValue(current); cok {
		if vn, vok := macro.NumberValue(value); vok {
			ctx.Vars.Set(name, formatNumber(cn+vn))
			return macro.OK()
		}
	}
	ctx.Vars.Set(name, current+value)
	return macro.OK()
}

// waitHandler implements "WAIT SECONDS=n" with a stop-aware sleep.
func waitHandler(ctx *macro.ExecutionContext) macro.CommandResult {
	raw, ok := ctx.RequiredParam("SECONDS")
	if !ok {
		return macro.Fail(macro.ErrMissingParameter, "WAIT needs SECONDS")
	}
	seconds, numeric := macro.NumberValue(ctx.Expand(raw))
	if !numeric || seconds < 0 {
		return macro.Fail(macro.ErrInvalidParameter, "WAIT SECONDS=%s is not a number", raw)
	}
	if !ctx.Sleep(time.Duration(seconds * float64(time.Second))) {
		return macro.Fail(macro.ErrScript, "macro stopped")
	}
	return macro.OK()
}

// pauseHandler logs and continues; there is nobody to resume an
// unattended run.
func pauseHandler(ctx *macro.ExecutionContext) macro.CommandResult {
	ctx.Logf("PAUSE ignored in unattended run")
	return macro.OK()
}

// promptHandler logs its message and optionally seeds a variable with a
// default value: PROMPT message [variable [default]].
func promptHandler(ctx *macro.ExecutionContext) macro.CommandResult {
	args := ctx.Command.PositionalValues()
	if len(args) == 0 {
		return macro.Fail(macro.ErrMissingParameter, "PROMPT needs a message")
	}
	ctx.Logf("prompt: %s", ctx.Expand(args[0]))
	if len(args) >= 2 {
		def := ""
		if len(args) >= 3 {
			def = ctx.Expand(args[2])
		}
		ctx.Vars.Set(args[1], def)
	}
	return macro.OK()
}

func versionHandler(ctx *macro.ExecutionContext) macro.CommandResult {
	return macro.OK()
}

// sizeHandler accepts and ignores window sizing; the driver owns the
// viewport.
func sizeHandler(ctx *macro.ExecutionContext) macro.CommandResult {
	ctx.Logf("SIZE ignored")
	return macro.OK()
}

// searchHandler implements "SEARCH SOURCE=TXT:pat|REGEXP:pat
// [IGNORE_CASE=YES] [EXTRACT=template]" against the current page
// source. A miss fails the command; with !ERRORIGNORE set the run moves
// on, which is the idiomatic way to probe for optional content.
func searchHandler(content bridge.ContentSender) macro.HandlerFunc {
	return func(ctx *macro.ExecutionContext) macro.CommandResult {
		spec, ok := ctx.RequiredParam("SOURCE")
		if !ok {
			return macro.Fail(macro.ErrMissingParameter, "SEARCH needs SOURCE")
		}
		if content == nil {
			return macro.Fail(macro.ErrScript, "no content bridge configured")
		}

		ignoreCase := false
		if v, ok := ctx.ExpandedParam("IGNORE_CASE"); ok {
			ignoreCase = strings.EqualFold(v, "YES") || macro.Truthy(v)
		}
		template, _ := ctx.ExpandedParam("EXTRACT")

		resp := content.Send(ctx.Ctx, bridge.ContentOp{Kind: bridge.OpPageSource})
		if !resp.OK {
			return macro.Fail(macro.ErrScript, "page source unavailable: %s", resp.Err)
		}

		result := macro.Search(resp.Data, ctx.Expand(spec), ignoreCase, template)
		if result.CompileError != "" {
			return macro.Fail(macro.ErrInvalidParameter, "bad pattern: %s", result.CompileError)
		}
		if !result.Found {
			return macro.Fail(macro.ErrScript, "pattern not found: %s", spec)
		}
		if _, hasTemplate := ctx.Param("EXTRACT"); hasTemplate {
			ctx.Vars.AppendExtract(result.Match)
		}
		return macro.OKOutput(result.Match)
	}
}

// formatNumber renders an arithmetic result the way the macro language
// shows numbers: integral values without a decimal point.
func formatNumber(n float64) string {
	if n == float64(int64(n)) {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}
