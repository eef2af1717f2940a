package macro

import (
	"fmt"
	"regexp"
	"strings"
)

var bareNameRe = regexp.MustCompile(`^!?[A-Za-z_][A-Za-z0-9_]*$`)

// conditionOps in match order. Two-character operators come before the
// single-character ones they contain, and the negated CONTAINS before
// the plain one, so no operator is mis-split by a shorter prefix.
var conditionOps = []string{"==", "!=", "<=", ">=", "!CONTAINS", "CONTAINS", "<", ">"}

// evalCondition evaluates an IF condition of the form "LEFT OP RIGHT".
// Each side may be a quoted literal, a {{VAR}} reference, a bare
// variable name or a numeric literal. A bare expression with no
// recognized operator is a truthiness check: "", "0" and "false" are
// false, everything else true.
func (x *Executor) evalCondition(expr string) (bool, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return false, fmt.Errorf("empty condition")
	}

	for _, op := range conditionOps {
		idx := findOperator(expr, op)
		if idx <= 0 {
			continue
		}
		left := x.resolveSide(expr[:idx])
		right := x.resolveSide(expr[idx+len(op):])
		return compare(op, left, right), nil
	}

	return Truthy(x.resolveSide(expr)), nil
}

// findOperator locates op in expr. Word operators (CONTAINS forms) must
// be whitespace-delimited and match case-insensitively.
func findOperator(expr, op string) int {
	if strings.HasSuffix(op, "CONTAINS") {
		upper := strings.ToUpper(expr)
		idx := strings.Index(upper, " "+op+" ")
		if idx < 0 {
			return -1
		}
		return idx + 1
	}
	return strings.Index(expr, op)
}

// resolveSide turns one side of a condition into its string value:
// expand {{NAME}} references, strip one level of quotes, then look up a
// bare variable name if one remains.
func (x *Executor) resolveSide(s string) string {
	s = strings.TrimSpace(s)
	s, _ = x.vars.Expand(s)
	if stripped := stripQuotes(s); stripped != s {
		return stripped
	}
	if bareNameRe.MatchString(s) {
		if v, ok := x.vars.Get(s); ok {
			return v
		}
	}
	return s
}

// compare applies a condition operator. Relational operators compare
// numerically when both sides are numeric, lexically otherwise;
// CONTAINS is a substring test on the string forms.
func compare(op, left, right string) bool {
	ln, lok := NumberValue(left)
	rn, rok := NumberValue(right)
	numeric := lok && rok

	switch op {
	case "==":
		if numeric {
			return ln == rn
		}
		return left == right
	case "!=":
		if numeric {
			return ln != rn
		}
		return left != right
	case "<":
		if numeric {
			return ln < rn
		}
		return left < right
	case ">":
		if numeric {
			return ln > rn
		}
		return left > right
	case "<=":
		if numeric {
			return ln <= rn
		}
		return left <= right
	case ">=":
		if numeric {
			return ln >= rn
		}
		return left >= right
	case "CONTAINS":
		return strings.Contains(left, right)
	case "!CONTAINS":
		return !strings.Contains(left, right)
	default:
		return false
	}
}
