// Package bridge defines the narrow interfaces through which the macro
// engine reaches the outside world: browser tabs and frames, page
// content, the filesystem, external processes, printing and the system
// clipboard. The executor never talks to any of these directly; command
// handlers translate parameters into bridge operations and map the
// responses back onto the engine's error taxonomy.
package bridge

import (
	"context"
	"time"
)

// Response is the uniform result of a browser, content or file
// operation. Bridges never raise; a failed operation sets OK to false
// and describes the failure in Err.
type Response struct {
	OK   bool
	Data string
	Err  string
}

// OK returns a successful response carrying data.
func OK(data string) Response {
	return Response{OK: true, Data: data}
}

// Failf returns a failed response with a plain error message.
func Failf(err error) Response {
	return Response{Err: err.Error()}
}

// BrowserOpKind enumerates tab- and frame-level browser operations.
type BrowserOpKind string

const (
	OpNavigate        BrowserOpKind = "navigate"
	OpGoBack          BrowserOpKind = "goBack"
	OpRefresh         BrowserOpKind = "refresh"
	OpCurrentURL      BrowserOpKind = "getCurrentUrl"
	OpSelectFrame     BrowserOpKind = "selectFrame"
	OpSelectMainFrame BrowserOpKind = "selectMainFrame"
	OpSwitchTab       BrowserOpKind = "switchTab"
	OpOpenTab         BrowserOpKind = "openTab"
	OpCloseTab        BrowserOpKind = "closeTab"
	OpCloseOtherTabs  BrowserOpKind = "closeOtherTabs"
)

// BrowserOp is one browser-level operation. Unused fields are zero.
type BrowserOp struct {
	Kind       BrowserOpKind
	URL        string
	FrameIndex int
	FrameName  string
	TabIndex   int
}

// Browser drives tab- and frame-level navigation.
type Browser interface {
	Send(ctx context.Context, op BrowserOp) Response
}

// ContentOpKind enumerates DOM-level operations on the current page.
type ContentOpKind string

const (
	OpClick       ContentOpKind = "click"
	OpPageSource  ContentOpKind = "pageSource"
	OpExtractText ContentOpKind = "extractText"
)

// ContentOp is one DOM-level operation.
type ContentOp struct {
	Kind    ContentOpKind
	X, Y    int
	Button  string // "left", "right" or "middle"; empty means left
	Content string // text typed after a click, if any
}

// ContentSender drives DOM-level interaction with the selected frame.
type ContentSender interface {
	Send(ctx context.Context, op ContentOp) Response
}

// FileOpKind enumerates filesystem operations under the macros root.
type FileOpKind string

const (
	OpFileRead   FileOpKind = "read"
	OpFileWrite  FileOpKind = "write"
	OpFileAppend FileOpKind = "append"
	OpFileDelete FileOpKind = "delete"
)

// FileOp is one sandboxed file operation. Name is relative to the
// macros root.
type FileOp struct {
	Kind FileOpKind
	Name string
	Data string
}

// File performs sandboxed filesystem operations. Errors come back as
// Response.Err strings; handlers map them onto typed error codes.
type File interface {
	Send(ctx context.Context, op FileOp) Response
}

// CmdlineRequest describes an external process launch.
type CmdlineRequest struct {
	Command string
	Timeout time.Duration
	Wait    bool
}

// CmdlineResult is the outcome of a completed process.
type CmdlineResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Cmdline launches external processes.
type Cmdline interface {
	Execute(ctx context.Context, req CmdlineRequest) (CmdlineResult, error)
}

// PrintOptions selects a print target.
type PrintOptions struct {
	Printer string
}

// Print sends the current page to a printer. The service is optional;
// handlers degrade gracefully when none is configured.
type Print interface {
	Print(ctx context.Context, opts PrintOptions) error
}

// Clipboard reads and writes the system clipboard, backing !CLIPBOARD.
type Clipboard interface {
	Get() (string, error)
	Set(text string) error
}
