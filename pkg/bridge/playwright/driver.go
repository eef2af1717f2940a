// Package playwright implements the browser and content bridges against
// a real Chromium page driven through Playwright.
package playwright

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/macrokit/macrokit/pkg/bridge"
	"github.com/macrokit/macrokit/pkg/logging"
)

// Defaults for the browser context.
const (
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 800
)

// Options configures the driver.
type Options struct {
	Headless bool
	Viewport *Viewport
}

// Viewport is the page size in CSS pixels.
type Viewport struct {
	Width  int
	Height int
}

// Driver owns one Playwright instance, one browser context and its
// tabs. It implements the Browser bridge directly and hands out a
// ContentSender for DOM-level operations. All operations serialize on
// the driver's lock; macro execution is sequential anyway, and the lock
// keeps a concurrent control-protocol stop from racing teardown.
type Driver struct {
	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	active  playwright.Page
	frame   playwright.Frame // nil means main frame
	opts    Options
	log     *logging.Logger
	started bool
}

// New creates an unstarted driver. The logger may be nil.
func New(opts Options, log *logging.Logger) *Driver {
	if opts.Viewport == nil {
		opts.Viewport = &Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight}
	}
	return &Driver{opts: opts, log: log}
}

// Start installs and launches Playwright, opens a browser context and
// the first tab. It is safe to call once per driver.
func (d *Driver) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return nil
	}

	// Discard installer output so it cannot interleave with CLI output.
	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if err := playwright.Install(runOpts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}
	pw, err := playwright.Run(runOpts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &d.opts.Headless,
	})
	if err != nil {
		pw.Stop()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	browserCtx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  d.opts.Viewport.Width,
			Height: d.opts.Viewport.Height,
		},
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return fmt.Errorf("failed to create browser context: %w", err)
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		browserCtx.Close()
		browser.Close()
		pw.Stop()
		return fmt.Errorf("failed to create page: %w", err)
	}

	d.pw = pw
	d.browser = browser
	d.context = browserCtx
	d.active = page
	d.frame = nil
	d.started = true
	if d.log != nil {
		d.log.Infof("browser started (headless=%t)", d.opts.Headless)
	}
	return nil
}

// Stop closes the browser and the Playwright driver.
func (d *Driver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.started {
		return nil
	}
	d.context.Close()
	d.browser.Close()
	err := d.pw.Stop()
	d.started = false
	d.active = nil
	d.frame = nil
	if err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}

// Send implements the Browser bridge.
func (d *Driver) Send(_ context.Context, op bridge.BrowserOp) bridge.Response {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.started {
		return bridge.Failf(fmt.Errorf("browser not started"))
	}

	switch op.Kind {
	case bridge.OpNavigate:
		waitUntil := playwright.WaitUntilStateLoad
		if _, err := d.active.Goto(op.URL, playwright.PageGotoOptions{WaitUntil: waitUntil}); err != nil {
			return bridge.Failf(fmt.Errorf("navigation failed: %w", err))
		}
		d.frame = nil
		return bridge.OK(d.active.URL())

	case bridge.OpGoBack:
		if _, err := d.active.GoBack(); err != nil {
			return bridge.Failf(fmt.Errorf("go back failed: %w", err))
		}
		d.frame = nil
		return bridge.OK(d.active.URL())

	case bridge.OpRefresh:
		if _, err := d.active.Reload(); err != nil {
			return bridge.Failf(fmt.Errorf("reload failed: %w", err))
		}
		d.frame = nil
		return bridge.OK(d.active.URL())

	case bridge.OpCurrentURL:
		return bridge.OK(d.active.URL())

	case bridge.OpSelectFrame:
		return d.selectFrame(op)

	case bridge.OpSelectMainFrame:
		d.frame = nil
		return bridge.OK("")

	case bridge.OpSwitchTab:
		pages := d.context.Pages()
		if op.TabIndex < 0 || op.TabIndex >= len(pages) {
			return bridge.Failf(fmt.Errorf("tab %d not found (%d open)", op.TabIndex+1, len(pages)))
		}
		d.active = pages[op.TabIndex]
		d.frame = nil
		if err := d.active.BringToFront(); err != nil {
			return bridge.Failf(fmt.Errorf("failed to focus tab: %w", err))
		}
		return bridge.OK(d.active.URL())

	case bridge.OpOpenTab:
		page, err := d.context.NewPage()
		if err != nil {
			return bridge.Failf(fmt.Errorf("failed to open tab: %w", err))
		}
		d.active = page
		d.frame = nil
		return bridge.OK("")

	case bridge.OpCloseTab:
		return d.closeActiveTab()

	case bridge.OpCloseOtherTabs:
		for _, page := range d.context.Pages() {
			if page != d.active {
				page.Close()
			}
		}
		return bridge.OK("")

	default:
		return bridge.Failf(fmt.Errorf("unsupported browser operation %q", op.Kind))
	}
}

// selectFrame targets a frame by index or name. Index 0 is the main
// frame.
func (d *Driver) selectFrame(op bridge.BrowserOp) bridge.Response {
	frames := d.active.Frames()

	if op.FrameName != "" {
		for _, f := range frames {
			if f.Name() == op.FrameName {
				d.frame = f
				return bridge.OK("")
			}
		}
		return bridge.Failf(fmt.Errorf("frame %q not found", op.FrameName))
	}

	if op.FrameIndex == 0 {
		d.frame = nil
		return bridge.OK("")
	}
	if op.FrameIndex < 0 || op.FrameIndex >= len(frames) {
		return bridge.Failf(fmt.Errorf("frame %d not found (%d frames)", op.FrameIndex, len(frames)))
	}
	d.frame = frames[op.FrameIndex]
	return bridge.OK("")
}

// closeActiveTab closes the current tab and makes the last remaining
// one active, opening a fresh tab when the context would be left empty.
func (d *Driver) closeActiveTab() bridge.Response {
	if err := d.active.Close(); err != nil {
		return bridge.Failf(fmt.Errorf("failed to close tab: %w", err))
	}
	pages := d.context.Pages()
	if len(pages) == 0 {
		page, err := d.context.NewPage()
		if err != nil {
			return bridge.Failf(fmt.Errorf("failed to open replacement tab: %w", err))
		}
		d.active = page
	} else {
		d.active = pages[len(pages)-1]
	}
	d.frame = nil
	return bridge.OK("")
}
