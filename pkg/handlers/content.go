package handlers

import (
	"strconv"
	"strings"

	"github.com/macrokit/macrokit/pkg/bridge"
	"github.com/macrokit/macrokit/pkg/macro"
)

// Content returns the handlers for DOM-level interaction.
func Content(c bridge.ContentSender) map[string]macro.HandlerFunc {
	return map[string]macro.HandlerFunc{
		"CLICK": clickHandler(c),
	}
}

// clickHandler implements "CLICK X=n Y=n [BUTTON=left|right|middle]
// [CONTENT=text]". The target coordinates may not be interactive until
// the page settles, so the click polls within the timeout budget and
// reports ELEMENT_NOT_FOUND on exhaustion.
func clickHandler(c bridge.ContentSender) macro.HandlerFunc {
	return func(ctx *macro.ExecutionContext) macro.CommandResult {
		xRaw, ok := ctx.RequiredParam("X")
		if !ok {
			return macro.Fail(macro.ErrMissingParameter, "CLICK needs X")
		}
		yRaw, ok := ctx.RequiredParam("Y")
		if !ok {
			return macro.Fail(macro.ErrMissingParameter, "CLICK needs Y")
		}
		if c == nil {
			return macro.Fail(macro.ErrScript, "no content bridge configured")
		}

		x, err := strconv.Atoi(strings.TrimSpace(ctx.Expand(xRaw)))
		if err != nil {
			return macro.Fail(macro.ErrInvalidParameter, "CLICK X=%s is not a coordinate", xRaw)
		}
		y, err := strconv.Atoi(strings.TrimSpace(ctx.Expand(yRaw)))
		if err != nil {
			return macro.Fail(macro.ErrInvalidParameter, "CLICK Y=%s is not a coordinate", yRaw)
		}

		op := bridge.ContentOp{Kind: bridge.OpClick, X: x, Y: y}
		if button, ok := ctx.ExpandedParam("BUTTON"); ok {
			switch strings.ToLower(button) {
			case "left", "right", "middle":
				op.Button = strings.ToLower(button)
			default:
				return macro.Fail(macro.ErrInvalidParameter, "CLICK BUTTON=%s is not a mouse button", button)
			}
		}
		if content, ok := ctx.ExpandedParam("CONTENT"); ok {
			op.Content = content
		}

		return ctx.Poll(ctx.TimeoutBudget(""), macro.ErrElementNotFound, func() macro.CommandResult {
			resp := c.Send(ctx.Ctx, op)
			if !resp.OK {
				return macro.Fail(macro.ErrElementNotFound, "%s", resp.Err)
			}
			return macro.OK()
		})
	}
}
