// Package runtime wires the macro engine to its bridges and exposes
// the player surface the CLI and the control protocols drive.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/macrokit/macrokit/pkg/bridge"
	"github.com/macrokit/macrokit/pkg/config"
	"github.com/macrokit/macrokit/pkg/handlers"
	"github.com/macrokit/macrokit/pkg/logging"
	"github.com/macrokit/macrokit/pkg/macro"
	"github.com/macrokit/macrokit/pkg/store"
)

// Sentinel errors the protocol layers translate into response codes.
var (
	// ErrBusy reports that a macro is already running.
	ErrBusy = errors.New("macro already running")

	// ErrMacroNotFound reports that no macro matched the requested name.
	ErrMacroNotFound = errors.New("macro not found")

	// ErrTimeout reports that a play exceeded its caller-imposed budget.
	ErrTimeout = errors.New("macro timed out")
)

// Options configures a runtime. Bridge fields may be nil; the affected
// commands then fail at execution time instead of construction time.
type Options struct {
	Config    config.Config
	Browser   bridge.Browser
	Content   bridge.ContentSender
	File      bridge.File
	Cmdline   bridge.Cmdline
	Print     bridge.Print
	Clipboard bridge.Clipboard
	Log       *logging.Logger
}

// Runtime owns one executor, its variable store and the macro store.
// Submissions are serialized here: concurrent Play calls beyond the
// first fail with ErrBusy rather than queueing, matching the control
// protocol's "already running" response.
type Runtime struct {
	cfg   config.Config
	store *store.Store
	exec  *macro.Executor
	clip  bridge.Clipboard
	log   *logging.Logger

	playMu sync.Mutex
}

// New builds a runtime from options.
func New(opts Options) (*Runtime, error) {
	st, err := store.New(opts.Config.MacrosDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open macro store: %w", err)
	}

	registry := macro.NewRegistry()
	handlers.RegisterAll(registry, handlers.Deps{
		Browser:   opts.Browser,
		Content:   opts.Content,
		File:      opts.File,
		Cmdline:   opts.Cmdline,
		Print:     opts.Print,
		Clipboard: opts.Clipboard,
	})

	exec := macro.NewExecutor(registry, opts.Log)
	seedDefaults(exec.Vars(), opts.Config)

	return &Runtime{
		cfg:   opts.Config,
		store: st,
		exec:  exec,
		clip:  opts.Clipboard,
		log:   opts.Log,
	}, nil
}

// seedDefaults maps config values onto the built-in variables a fresh
// store starts with.
func seedDefaults(vars *macro.Store, cfg config.Config) {
	if cfg.TimeoutSeconds > 0 {
		vars.Set(macro.VarTimeout, trimFloat(cfg.TimeoutSeconds))
	}
	if cfg.TimeoutStepMS >= 0 {
		vars.Set(macro.VarTimeoutStep, trimFloat(float64(cfg.TimeoutStepMS)/1000))
	}
}

func trimFloat(f float64) string {
	return fmt.Sprintf("%g", f)
}

// Store returns the macro store.
func (r *Runtime) Store() *store.Store { return r.store }

// Vars returns the executor's variable store.
func (r *Runtime) Vars() *macro.Store { return r.exec.Vars() }

// Busy reports whether a play is in flight.
func (r *Runtime) Busy() bool { return r.exec.Busy() }

// Play resolves a macro by name and executes it once. A zero timeout
// means no caller-imposed budget. Play returns ErrBusy without touching
// the executor when a run is already in flight.
func (r *Runtime) Play(name string, timeout time.Duration) (macro.MacroResult, error) {
	source, err := r.store.Load(name)
	if err != nil {
		return macro.MacroResult{}, fmt.Errorf("%w: %s", ErrMacroNotFound, name)
	}
	return r.PlaySource(source, 1, 1, timeout)
}

// PlaySource executes macro source text over the loop range.
func (r *Runtime) PlaySource(source string, loopStart, loopEnd int, timeout time.Duration) (macro.MacroResult, error) {
	if !r.playMu.TryLock() {
		return macro.MacroResult{}, ErrBusy
	}
	defer r.playMu.Unlock()

	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	r.seedClipboard()
	r.exec.LoadMacro(source)
	result := r.exec.Execute(ctx, loopStart, loopEnd)

	if timeout > 0 && ctx.Err() == context.DeadlineExceeded {
		return result, ErrTimeout
	}
	return result, nil
}

// seedClipboard mirrors the system clipboard into !CLIPBOARD so macros
// can read it through normal expansion.
func (r *Runtime) seedClipboard() {
	if r.clip == nil {
		return
	}
	if v, err := r.clip.Get(); err == nil {
		r.exec.Vars().Set(macro.VarClipboard, v)
	}
}

// SetVariable writes a variable for the next play. The store persists
// across plays on the same runtime.
func (r *Runtime) SetVariable(name, value string) {
	r.exec.Vars().Set(name, value)
}

// LastExtract returns the extract data of the most recent play.
func (r *Runtime) LastExtract() string {
	if last := r.exec.LastResult(); last != nil {
		return last.Extract
	}
	return ""
}

// LastError returns a human-readable description of the most recent
// play's outcome.
func (r *Runtime) LastError() string {
	last := r.exec.LastResult()
	if last == nil {
		return ""
	}
	if last.Message == "" {
		return last.Code.String()
	}
	return fmt.Sprintf("%s: %s", last.Code, last.Message)
}

// Stop asks the current play to stop cooperatively.
func (r *Runtime) Stop() {
	r.exec.Stop()
}
