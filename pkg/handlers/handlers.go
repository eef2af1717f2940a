// Package handlers implements the built-in macro commands against the
// bridge interfaces. Each constructor returns a partial handler set for
// one bridge group; call sites compose the sets they need and register
// them on a macro.Registry. Registering a type twice overwrites, so a
// later set may shadow an earlier one.
package handlers

import (
	"github.com/macrokit/macrokit/pkg/bridge"
	"github.com/macrokit/macrokit/pkg/macro"
)

// Deps bundles the bridge implementations a full handler set works
// against. Any field may be nil; the affected commands then fail with a
// script error (or degrade gracefully, for the optional print service)
// instead of being unregistered.
type Deps struct {
	Browser   bridge.Browser
	Content   bridge.ContentSender
	File      bridge.File
	Cmdline   bridge.Cmdline
	Print     bridge.Print
	Clipboard bridge.Clipboard
}

// RegisterAll composes every built-in handler set onto a registry.
func RegisterAll(reg *macro.Registry, deps Deps) {
	reg.RegisterAll(Flow(deps.Clipboard, deps.Content))
	reg.RegisterAll(Browser(deps.Browser))
	reg.RegisterAll(Content(deps.Content))
	reg.RegisterAll(Files(deps.File, deps.Content))
	reg.RegisterAll(Cmdline(deps.Cmdline))
	reg.RegisterAll(Print(deps.Print))
}
