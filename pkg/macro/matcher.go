package macro

import (
	"regexp"
	"strings"
)

// MatchMode selects how a search pattern is interpreted.
type MatchMode int

const (
	// ModeText matches literal text with '*' wildcards and loose
	// whitespace.
	ModeText MatchMode = iota

	// ModeRegexp matches a raw regular expression.
	ModeRegexp
)

// MatchResult is the outcome of a pattern search. A miss is a normal,
// non-exceptional outcome: Found is false and CompileError is empty.
type MatchResult struct {
	Found        bool
	Match        string
	Index        int
	Groups       []string
	CompileError string
}

// ParsePattern splits a "TYPE:pattern" specifier into its mode and
// pattern. Accepted prefixes are TXT:, TEXT:, REGEXP: and REGEX:; any
// other or missing prefix is a format error.
func ParsePattern(spec string) (MatchMode, string, bool) {
	i := strings.IndexByte(spec, ':')
	if i <= 0 {
		return 0, "", false
	}
	switch strings.ToUpper(spec[:i]) {
	case "TXT", "TEXT":
		return ModeText, spec[i+1:], true
	case "REGEXP", "REGEX":
		return ModeRegexp, spec[i+1:], true
	default:
		return 0, "", false
	}
}

// Search runs a "TYPE:pattern" specifier against text. extractTemplate,
// when non-empty, is a $1..$9 template applied to the capture groups of
// a regexp match.
func Search(text, patternSpec string, ignoreCase bool, extractTemplate string) MatchResult {
	mode, pattern, ok := ParsePattern(patternSpec)
	if !ok {
		return MatchResult{CompileError: "pattern must start with TXT: or REGEXP:"}
	}
	switch mode {
	case ModeText:
		return SearchText(text, pattern, ignoreCase)
	default:
		return SearchRegexp(text, pattern, ignoreCase, extractTemplate)
	}
}

// SearchText matches a wildcard-text pattern: '*' matches any run of
// characters non-greedily, a literal space matches any run of
// whitespace. Matching is case-sensitive unless ignoreCase is set.
func SearchText(text, pattern string, ignoreCase bool) MatchResult {
	re, err := compileTextPattern(pattern, ignoreCase)
	if err != nil {
		return MatchResult{CompileError: err.Error()}
	}
	loc := re.FindStringIndex(text)
	if loc == nil {
		return MatchResult{}
	}
	return MatchResult{Found: true, Match: text[loc[0]:loc[1]], Index: loc[0]}
}

// SearchRegexp matches a raw regular expression. With capture groups and
// no template, the first group is the match result; with a template,
// each $N is replaced by the corresponding group (empty when out of
// range); with no groups, the whole match. An invalid pattern reports a
// compile error instead of failing the caller.
func SearchRegexp(text, pattern string, ignoreCase bool, extractTemplate string) MatchResult {
	if ignoreCase {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return MatchResult{CompileError: err.Error()}
	}

	loc := re.FindStringSubmatchIndex(text)
	if loc == nil {
		return MatchResult{}
	}
	sub := re.FindStringSubmatch(text)

	result := MatchResult{Found: true, Index: loc[0], Groups: sub[1:]}
	switch {
	case extractTemplate != "":
		result.Match = expandExtractTemplate(extractTemplate, sub)
	case len(sub) > 1:
		result.Match = sub[1]
	default:
		result.Match = sub[0]
	}
	return result
}

// compileTextPattern turns a TXT pattern into a regular expression by
// escaping everything, then re-expanding the two placeholders.
func compileTextPattern(pattern string, ignoreCase bool) (*regexp.Regexp, error) {
	escaped := regexp.QuoteMeta(pattern)
	escaped = strings.ReplaceAll(escaped, `\*`, `(?s:.*?)`)
	escaped = strings.ReplaceAll(escaped, " ", `\s+`)
	if ignoreCase {
		escaped = "(?i)" + escaped
	}
	return regexp.Compile(escaped)
}

// expandExtractTemplate substitutes $1..$9 in a template with capture
// groups. An out-of-range group substitutes the empty string; a '$' not
// followed by a digit is literal.
func expandExtractTemplate(template string, sub []string) string {
	var b strings.Builder
	for i := 0; i < len(template); i++ {
		c := template[i]
		if c == '$' && i+1 < len(template) && template[i+1] >= '1' && template[i+1] <= '9' {
			n := int(template[i+1] - '0')
			if n < len(sub) {
				b.WriteString(sub[n])
			}
			i++
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
