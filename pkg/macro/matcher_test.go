package macro

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePattern(t *testing.T) {
	mode, pattern, ok := ParsePattern("TXT:hello")
	require.True(t, ok)
	assert.Equal(t, ModeText, mode)
	assert.Equal(t, "hello", pattern)

	mode, pattern, ok = ParsePattern("regexp:a(b)c")
	require.True(t, ok)
	assert.Equal(t, ModeRegexp, mode)
	assert.Equal(t, "a(b)c", pattern)

	_, _, ok = ParsePattern("GLOB:x")
	assert.False(t, ok)

	_, _, ok = ParsePattern("no prefix here")
	assert.False(t, ok)
}

func TestSearchText_Literal(t *testing.T) {
	result := SearchText("say hello world now", "hello world", false)
	require.True(t, result.Found)
	assert.Equal(t, "hello world", result.Match)
	assert.Equal(t, 4, result.Index)
}

func TestSearchText_WildcardNonGreedy(t *testing.T) {
	result := SearchText("<a>first</a> <a>second</a>", "<a>*</a>", false)
	require.True(t, result.Found)
	assert.Equal(t, "<a>first</a>", result.Match)
}

func TestSearchText_WildcardSpansNewlines(t *testing.T) {
	result := SearchText("begin\nmiddle\nend", "begin*end", false)
	require.True(t, result.Found)
	assert.Equal(t, "begin\nmiddle\nend", result.Match)
}

func TestSearchText_SpaceMatchesWhitespaceRun(t *testing.T) {
	result := SearchText("hello \t  world", "hello world", false)
	assert.True(t, result.Found)
}

func TestSearchText_CaseSensitivity(t *testing.T) {
	assert.False(t, SearchText("HELLO", "hello", false).Found)
	assert.True(t, SearchText("HELLO", "hello", true).Found)
}

func TestSearchText_MissIsNotAnError(t *testing.T) {
	result := SearchText("haystack", "needle", false)
	assert.False(t, result.Found)
	assert.Empty(t, result.CompileError)
}

func TestSearchText_RegexMetacharactersAreLiteral(t *testing.T) {
	result := SearchText("price is $4.99 (sale)", "$4.99 (sale)", false)
	require.True(t, result.Found)
	assert.Equal(t, "$4.99 (sale)", result.Match)
}

func TestSearchRegexp_WholeMatch(t *testing.T) {
	result := SearchRegexp("order 12345 shipped", `\d+`, false, "")
	require.True(t, result.Found)
	assert.Equal(t, "12345", result.Match)
	assert.Equal(t, 6, result.Index)
}

func TestSearchRegexp_FirstGroupWithoutTemplate(t *testing.T) {
	result := SearchRegexp("name: Alice, age: 30", `name: (\w+), age: (\d+)`, false, "")
	require.True(t, result.Found)
	assert.Equal(t, "Alice", result.Match)
	assert.Equal(t, []string{"Alice", "30"}, result.Groups)
}

func TestSearchRegexp_Template(t *testing.T) {
	result := SearchRegexp("name: Alice, age: 30", `name: (\w+), age: (\d+)`, false, "$2 years: $1")
	require.True(t, result.Found)
	assert.Equal(t, "30 years: Alice", result.Match)
}

func TestSearchRegexp_TemplateOutOfRangeGroupIsEmpty(t *testing.T) {
	result := SearchRegexp("ab", `(a)`, false, "[$1][$3]")
	require.True(t, result.Found)
	assert.Equal(t, "[a][]", result.Match)
}

func TestSearchRegexp_IgnoreCase(t *testing.T) {
	assert.False(t, SearchRegexp("HELLO", "hello", false, "").Found)
	assert.True(t, SearchRegexp("HELLO", "hello", true, "").Found)
}

func TestSearchRegexp_InvalidPatternReportsCompileError(t *testing.T) {
	result := SearchRegexp("text", "(unclosed", false, "")
	assert.False(t, result.Found)
	assert.NotEmpty(t, result.CompileError)
}

func TestSearch_DispatchesOnPrefix(t *testing.T) {
	assert.True(t, Search("abc123", "TXT:abc", false, "").Found)
	assert.True(t, Search("abc123", `REGEXP:\d+`, false, "").Found)

	result := Search("abc", "abc", false, "")
	assert.False(t, result.Found)
	assert.NotEmpty(t, result.CompileError)
}
