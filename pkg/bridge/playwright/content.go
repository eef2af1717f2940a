package playwright

import (
	"context"
	"fmt"

	"github.com/playwright-community/playwright-go"

	"github.com/macrokit/macrokit/pkg/bridge"
)

// contentSender exposes DOM-level operations on the driver's active
// page and selected frame.
type contentSender struct {
	d *Driver
}

// Content returns the DOM-level bridge backed by this driver.
func (d *Driver) Content() bridge.ContentSender {
	return &contentSender{d: d}
}

// Send implements the ContentSender bridge.
func (c *contentSender) Send(_ context.Context, op bridge.ContentOp) bridge.Response {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()

	if !c.d.started {
		return bridge.Failf(fmt.Errorf("browser not started"))
	}

	switch op.Kind {
	case bridge.OpClick:
		return c.click(op)

	case bridge.OpPageSource:
		source, err := c.source()
		if err != nil {
			return bridge.Failf(err)
		}
		return bridge.OK(source)

	case bridge.OpExtractText:
		source, err := c.source()
		if err != nil {
			return bridge.Failf(err)
		}
		text, err := htmlToText(source)
		if err != nil {
			return bridge.Failf(fmt.Errorf("failed to extract text: %w", err))
		}
		return bridge.OK(text)

	default:
		return bridge.Failf(fmt.Errorf("unsupported content operation %q", op.Kind))
	}
}

// click presses a mouse button at viewport coordinates and optionally
// types text into whatever took focus.
func (c *contentSender) click(op bridge.ContentOp) bridge.Response {
	clickOpts := playwright.MouseClickOptions{}
	if op.Button != "" {
		button := playwright.MouseButton(op.Button)
		clickOpts.Button = &button
	}

	if err := c.d.active.Mouse().Click(float64(op.X), float64(op.Y), clickOpts); err != nil {
		return bridge.Failf(fmt.Errorf("click failed: %w", err))
	}
	if op.Content != "" {
		if err := c.d.active.Keyboard().Type(op.Content); err != nil {
			return bridge.Failf(fmt.Errorf("typing failed: %w", err))
		}
	}
	return bridge.OK("")
}

// source returns the HTML of the selected frame, or of the whole page
// when the main frame is selected.
func (c *contentSender) source() (string, error) {
	if c.d.frame != nil {
		source, err := c.d.frame.Content()
		if err != nil {
			return "", fmt.Errorf("frame source unavailable: %w", err)
		}
		return source, nil
	}
	source, err := c.d.active.Content()
	if err != nil {
		return "", fmt.Errorf("page source unavailable: %w", err)
	}
	return source, nil
}
