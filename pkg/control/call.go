package control

import (
	"fmt"
	"strings"
)

// parseCall splits a call line of the form `name("arg", 123)` into the
// call name and its argument list. String arguments are double-quoted
// with backslash escapes; anything else is taken as a bare token.
func parseCall(line string) (string, []string, error) {
	open := strings.IndexByte(line, '(')
	if open < 0 {
		return "", nil, fmt.Errorf("malformed call %q: missing '('", line)
	}
	name := strings.TrimSpace(line[:open])
	if name == "" || !identifier(name) {
		return "", nil, fmt.Errorf("malformed call %q: bad name", line)
	}
	rest := strings.TrimSpace(line[open+1:])
	if !strings.HasSuffix(rest, ")") {
		return "", nil, fmt.Errorf("malformed call %q: missing ')'", line)
	}
	args, err := parseArgs(rest[:len(rest)-1])
	if err != nil {
		return "", nil, err
	}
	return name, args, nil
}

func parseArgs(s string) ([]string, error) {
	var args []string
	i := 0
	for {
		for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
			i++
		}
		if i >= len(s) {
			if len(args) == 0 {
				return nil, nil
			}
			return nil, fmt.Errorf("trailing comma in argument list")
		}

		var arg string
		if s[i] == '"' {
			var err error
			arg, i, err = scanQuoted(s, i)
			if err != nil {
				return nil, err
			}
		} else {
			start := i
			for i < len(s) && s[i] != ',' {
				i++
			}
			arg = strings.TrimSpace(s[start:i])
			if arg == "" {
				return nil, fmt.Errorf("empty argument")
			}
		}
		args = append(args, arg)

		for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
			i++
		}
		if i >= len(s) {
			return args, nil
		}
		if s[i] != ',' {
			return nil, fmt.Errorf("unexpected %q after argument", s[i])
		}
		i++
	}
}

// scanQuoted consumes a double-quoted string starting at s[start] and
// returns its unescaped value and the index past the closing quote.
func scanQuoted(s string, start int) (string, int, error) {
	var b strings.Builder
	i := start + 1
	for i < len(s) {
		switch s[i] {
		case '\\':
			if i+1 >= len(s) {
				return "", 0, fmt.Errorf("dangling escape in string argument")
			}
			switch s[i+1] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(s[i+1])
			}
			i += 2
		case '"':
			return b.String(), i + 1, nil
		default:
			b.WriteByte(s[i])
			i++
		}
	}
	return "", 0, fmt.Errorf("unterminated string argument")
}

func identifier(s string) bool {
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
