package handlers

import (
	"strings"

	"github.com/macrokit/macrokit/pkg/bridge"
	"github.com/macrokit/macrokit/pkg/macro"
)

// Files returns the handlers for sandboxed filesystem commands. SAVEAS
// TYPE=TXT also needs the content sender to pull page text.
func Files(f bridge.File, content bridge.ContentSender) map[string]macro.HandlerFunc {
	return map[string]macro.HandlerFunc{
		"FILEDELETE": fileDeleteHandler(f),
		"FILEREAD":   fileReadHandler(f),
		"SAVEAS":     saveAsHandler(f, content),
	}
}

// fileDeleteHandler implements "FILEDELETE NAME=file". The parameter is
// validated before anything touches the bridge.
func fileDeleteHandler(f bridge.File) macro.HandlerFunc {
	return func(ctx *macro.ExecutionContext) macro.CommandResult {
		name, ok := ctx.RequiredParam("NAME")
		if !ok {
			return macro.Fail(macro.ErrMissingParameter, "FILEDELETE needs NAME")
		}
		if f == nil {
			return macro.Fail(macro.ErrScript, "no file bridge configured")
		}

		resp := f.Send(ctx.Ctx, bridge.FileOp{Kind: bridge.OpFileDelete, Name: ctx.Expand(name)})
		if !resp.OK {
			return macro.Fail(macro.ClassifyFileError(resp.Err), "%s", resp.Err)
		}
		return macro.OK()
	}
}

// fileReadHandler implements "FILEREAD FILE=name [VAR=!VAR1]". The file
// contents land in the named variable, or accumulate into !EXTRACT when
// VAR is omitted or names !EXTRACT itself.
func fileReadHandler(f bridge.File) macro.HandlerFunc {
	return func(ctx *macro.ExecutionContext) macro.CommandResult {
		file, ok := ctx.RequiredParam("FILE")
		if !ok {
			return macro.Fail(macro.ErrMissingParameter, "FILEREAD needs FILE")
		}
		if f == nil {
			return macro.Fail(macro.ErrScript, "no file bridge configured")
		}

		resp := f.Send(ctx.Ctx, bridge.FileOp{Kind: bridge.OpFileRead, Name: ctx.Expand(file)})
		if !resp.OK {
			return macro.Fail(macro.ClassifyFileError(resp.Err), "%s", resp.Err)
		}

		target, _ := ctx.Param("VAR")
		if target == "" || strings.EqualFold(target, macro.VarExtract) {
			ctx.Vars.AppendExtract(resp.Data)
		} else {
			ctx.Vars.Set(target, resp.Data)
		}
		return macro.OK()
	}
}

// saveAsHandler implements "SAVEAS TYPE=EXTRACT|TXT FILE=name".
// TYPE=EXTRACT writes the accumulated extract data and clears it;
// TYPE=TXT writes the visible text of the current page.
func saveAsHandler(f bridge.File, content bridge.ContentSender) macro.HandlerFunc {
	return func(ctx *macro.ExecutionContext) macro.CommandResult {
		kind, ok := ctx.RequiredParam("TYPE")
		if !ok {
			return macro.Fail(macro.ErrMissingParameter, "SAVEAS needs TYPE")
		}
		file, ok := ctx.RequiredParam("FILE")
		if !ok {
			return macro.Fail(macro.ErrMissingParameter, "SAVEAS needs FILE")
		}
		if f == nil {
			return macro.Fail(macro.ErrScript, "no file bridge configured")
		}
		name := ctx.Expand(file)

		var data string
		switch strings.ToUpper(ctx.Expand(kind)) {
		case "EXTRACT":
			data = ctx.Vars.Extract()
		case "TXT":
			if content == nil {
				return macro.Fail(macro.ErrScript, "no content bridge configured")
			}
			resp := content.Send(ctx.Ctx, bridge.ContentOp{Kind: bridge.OpExtractText})
			if !resp.OK {
				return macro.Fail(macro.ErrScript, "page text unavailable: %s", resp.Err)
			}
			data = resp.Data
		default:
			return macro.Fail(macro.ErrInvalidParameter, "SAVEAS TYPE=%s is not supported", kind)
		}

		resp := f.Send(ctx.Ctx, bridge.FileOp{Kind: bridge.OpFileWrite, Name: name, Data: data})
		if !resp.OK {
			return macro.Fail(macro.ClassifyFileError(resp.Err), "%s", resp.Err)
		}
		if strings.EqualFold(ctx.Expand(kind), "EXTRACT") {
			ctx.Vars.ClearExtract()
		}
		return macro.OK()
	}
}
