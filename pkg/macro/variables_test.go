package macro

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SetGetCaseInsensitive(t *testing.T) {
	s := NewStore()
	s.Set("MyVar", "hello")

	v, ok := s.Get("myvar")
	require.True(t, ok)
	assert.Equal(t, "hello", v)

	v, ok = s.Get("MYVAR")
	require.True(t, ok)
	assert.Equal(t, "hello", v)
}

func TestStore_SetReturnsPrevious(t *testing.T) {
	s := NewStore()
	assert.Empty(t, s.Set("X", "1"))
	assert.Equal(t, "1", s.Set("X", "2"))
}

func TestStore_SnapshotKeepsFirstSpelling(t *testing.T) {
	s := NewStore()
	s.Set("MyVar", "1")
	s.Set("MYVAR", "2")

	snap := s.Snapshot()
	assert.Equal(t, map[string]string{"MyVar": "2"}, snap)
}

func TestStore_ExtractOnlyGrowsThroughAppend(t *testing.T) {
	s := NewStore()
	s.Set(VarExtract, "direct write")
	assert.Empty(t, s.Extract())

	s.AppendExtract("a")
	s.AppendExtract("b")
	assert.Equal(t, "a"+ExtractDelimiter+"b", s.Extract())

	s.ClearExtract()
	assert.Empty(t, s.Extract())
}

func TestStore_Expand(t *testing.T) {
	s := NewStore()
	s.Set("NAME", "world")
	s.Set("!VAR1", "3")

	out, used := s.Expand("hello {{NAME}} {{!VAR1}}")
	assert.Equal(t, "hello world 3", out)
	assert.Equal(t, []string{"NAME", "!VAR1"}, used)
}

func TestStore_ExpandUnsetVariableIsEmpty(t *testing.T) {
	s := NewStore()
	out, used := s.Expand("[{{MISSING}}]")
	assert.Equal(t, "[]", out)
	assert.Equal(t, []string{"MISSING"}, used)
}

func TestStore_ExpandDoesNotRescanSubstitutions(t *testing.T) {
	s := NewStore()
	s.Set("A", "{{B}}")
	s.Set("B", "nested")

	out, _ := s.Expand("{{A}}")
	assert.Equal(t, "{{B}}", out)
}

func TestStore_ExpandUnclosedBraceIsLiteral(t *testing.T) {
	s := NewStore()
	s.Set("A", "x")

	out, used := s.Expand("{{A}} and {{open")
	assert.Equal(t, "x and {{open", out)
	assert.Equal(t, []string{"A"}, used)
}

func TestTruthy(t *testing.T) {
	cases := []struct {
		value string
		want  bool
	}{
		{"", false},
		{"0", false},
		{"false", false},
		{"FALSE", false},
		{"1", true},
		{"yes", true},
		{"NO", true}, // only "", "0" and "false" are false
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Truthy(tc.value), "Truthy(%q)", tc.value)
	}
}

func TestNumberValue(t *testing.T) {
	n, ok := NumberValue(" 3.5 ")
	require.True(t, ok)
	assert.Equal(t, 3.5, n)

	_, ok = NumberValue("abc")
	assert.False(t, ok)

	_, ok = NumberValue("")
	assert.False(t, ok)
}
