package macro

import "strings"

// Reserved command types produced by the parser itself. They never reach
// the handler registry; the executor interprets them directly.
const (
	// TypeLabel is a line that carries only a jump target.
	TypeLabel = "#LABEL"

	// TypeSyntaxError is a line that could not be tokenized. Keeping it in
	// the program lets the executor report a line-scoped failure instead
	// of rejecting the whole macro at load time.
	TypeSyntaxError = "#SYNTAX_ERROR"
)

// Command is one parsed macro instruction. Commands are immutable once
// parsed and are owned by the executor's program list.
type Command struct {
	// Type is the upper-cased command word, e.g. "URL" or "CLICK".
	Type string

	// Parameters in source order. A parameter without '=' is positional
	// and its Key equals its literal text.
	Parameters []Parameter

	// Raw is the original source line, trimmed.
	Raw string

	// LineNumber is the 1-based line in the original source, preserved
	// across dropped blank and comment lines for error reporting.
	LineNumber int

	// Label is the jump target attached to this command, if any.
	Label string
}

// Parameter is a single KEY=value or positional token of a command.
type Parameter struct {
	// Key is the upper-cased parameter name, or the literal token text
	// for positional parameters.
	Key string

	// Value is the token value after escape expansion and quote
	// stripping, but before variable expansion.
	Value string

	// RawValue is the original token as written in the source.
	RawValue string

	// ReferencedVariables lists the {{NAME}} references found in Value.
	// The parser records them without resolving them.
	ReferencedVariables []string

	positional bool
}

// Param returns the value of the named parameter. Lookup is
// case-insensitive on the key.
func (c *Command) Param(key string) (string, bool) {
	for i := range c.Parameters {
		if strings.EqualFold(c.Parameters[i].Key, key) {
			return c.Parameters[i].Value, true
		}
	}
	return "", false
}

// Positional returns the i-th positional (non KEY=value) parameter.
func (c *Command) Positional(i int) (string, bool) {
	n := 0
	for j := range c.Parameters {
		if !c.Parameters[j].keyed() {
			if n == i {
				return c.Parameters[j].Value, true
			}
			n++
		}
	}
	return "", false
}

// PositionalValues returns all positional parameter values in order.
func (c *Command) PositionalValues() []string {
	var out []string
	for i := range c.Parameters {
		if !c.Parameters[i].keyed() {
			out = append(out, c.Parameters[i].Value)
		}
	}
	return out
}

func (p *Parameter) keyed() bool {
	return !p.positional
}
