package handlers

import (
	"github.com/macrokit/macrokit/pkg/bridge"
	"github.com/macrokit/macrokit/pkg/macro"
)

// Print returns the handler for the PRINT command. The print service is
// optional; a missing service logs and succeeds rather than failing the
// macro.
func Print(p bridge.Print) map[string]macro.HandlerFunc {
	return map[string]macro.HandlerFunc{
		"PRINT": printHandler(p),
	}
}

func printHandler(p bridge.Print) macro.HandlerFunc {
	return func(ctx *macro.ExecutionContext) macro.CommandResult {
		if p == nil {
			ctx.Logf("no print service configured, PRINT skipped")
			return macro.OK()
		}
		printer, _ := ctx.ExpandedParam("PRINTER")
		if err := p.Print(ctx.Ctx, bridge.PrintOptions{Printer: printer}); err != nil {
			return macro.Fail(macro.ErrScript, "print failed: %v", err)
		}
		return macro.OK()
	}
}
