package macro

import (
	"regexp"
	"strings"
)

// CommentMarker starts a full-line comment.
const CommentMarker = "'"

var (
	labelNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	paramKeyRe  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	variableRe  = regexp.MustCompile(`\{\{([^{}]+)\}\}`)
)

// Parse turns macro source text into a command sequence. It never fails:
// a line that cannot be tokenized becomes a Command of type
// TypeSyntaxError so the executor can report a failure scoped to that
// line. Blank lines and comment lines are dropped; line numbers of the
// remaining commands refer to the original source.
func Parse(source string) []*Command {
	var program []*Command

	for i, line := range strings.Split(source, "\n") {
		lineNo := i + 1
		trimmed := strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if trimmed == "" || strings.HasPrefix(trimmed, CommentMarker) {
			continue
		}

		label, rest := splitLabel(trimmed)
		if rest == "" {
			program = append(program, &Command{
				Type:       TypeLabel,
				Raw:        trimmed,
				LineNumber: lineNo,
				Label:      label,
			})
			continue
		}

		cmd, err := parseLine(rest)
		if err != nil {
			program = append(program, &Command{
				Type:       TypeSyntaxError,
				Raw:        trimmed,
				LineNumber: lineNo,
				Label:      label,
			})
			continue
		}
		cmd.Raw = trimmed
		cmd.LineNumber = lineNo
		cmd.Label = label
		program = append(program, cmd)
	}

	return program
}

// splitLabel peels a leading "NAME:" jump target off a line. The colon
// must terminate the first token and the name must be a plain
// identifier, so "URL GOTO=http://x" is never mistaken for a label.
func splitLabel(line string) (label, rest string) {
	tok := line
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		tok = line[:i]
		rest = strings.TrimSpace(line[i:])
	}
	if !strings.HasSuffix(tok, ":") {
		return "", line
	}
	name := strings.TrimSuffix(tok, ":")
	if !labelNameRe.MatchString(name) {
		return "", line
	}
	return name, rest
}

// parseLine tokenizes one command line into a Command. The first token
// is the command type; the rest split into KEY=value and positional
// parameters.
func parseLine(line string) (*Command, error) {
	tokens, err := tokenize(line)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, errEmptyLine
	}

	cmd := &Command{Type: strings.ToUpper(stripQuotes(applyEscapes(tokens[0])))}
	for _, tok := range tokens[1:] {
		cmd.Parameters = append(cmd.Parameters, parseParameter(tok))
	}
	return cmd, nil
}

// parseParameter turns one token into a Parameter. A token is keyed only
// when the text left of the first '=' is a plain identifier and the '='
// does not open a "==" comparison; this keeps condition operands like
// "A==3", "A!=3" and "A<=3" positional.
func parseParameter(tok string) Parameter {
	if eq := strings.IndexByte(tok, '='); eq > 0 {
		key := tok[:eq]
		if paramKeyRe.MatchString(key) && !strings.HasPrefix(tok[eq:], "==") {
			value := stripQuotes(applyEscapes(tok[eq+1:]))
			return Parameter{
				Key:                 strings.ToUpper(key),
				Value:               value,
				RawValue:            tok,
				ReferencedVariables: referencedVariables(value),
			}
		}
	}
	value := stripQuotes(applyEscapes(tok))
	return Parameter{
		Key:                 value,
		Value:               value,
		RawValue:            tok,
		ReferencedVariables: referencedVariables(value),
		positional:          true,
	}
}

type parseError string

func (e parseError) Error() string { return string(e) }

const errEmptyLine = parseError("empty command line")
const errUnterminatedQuote = parseError("unterminated quote")

// tokenize splits a line on whitespace, keeping single- and double-quoted
// spans intact. Quotes may appear mid-token (X="a b") and quoted spans
// may contain '=', ':' and spaces verbatim.
func tokenize(line string) ([]string, error) {
	var tokens []string
	var cur strings.Builder
	var quote rune

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	for _, r := range line {
		switch {
		case quote != 0:
			cur.WriteRune(r)
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
			cur.WriteRune(r)
		case r == ' ' || r == '\t':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	if quote != 0 {
		return nil, errUnterminatedQuote
	}
	flush()
	return tokens, nil
}

// applyEscapes expands the literal escape tokens before quote stripping.
func applyEscapes(s string) string {
	r := strings.NewReplacer(
		"<SP>", " ",
		"<BR>", "\n",
		"<ENTER>", "\n",
		"<TAB>", "\t",
	)
	return r.Replace(s)
}

// stripQuotes removes one pair of surrounding matching quotes, if any.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// referencedVariables extracts the {{NAME}} references from a value.
func referencedVariables(value string) []string {
	matches := variableRe.FindAllStringSubmatch(value, -1)
	if len(matches) == 0 {
		return nil
	}
	var names []string
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}
