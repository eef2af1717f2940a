package macro

import (
	"strconv"
	"strings"
	"sync"
)

// Built-in variable names. Built-ins are prefixed with '!'.
const (
	VarLoop        = "!LOOP"
	VarExtract     = "!EXTRACT"
	VarURLCurrent  = "!URLCURRENT"
	VarTimeout     = "!TIMEOUT"
	VarTimeoutStep = "!TIMEOUT_STEP"
	VarErrorIgnore = "!ERRORIGNORE"
	VarClipboard   = "!CLIPBOARD"
)

// ExtractDelimiter joins accumulated extract values.
const ExtractDelimiter = "[EXTRACT]"

// Store holds named macro variables and performs {{NAME}} interpolation.
// Lookup is case-insensitive; the original spelling of a name is kept
// from its first write. The executor reads and writes its store while a
// macro runs, and control clients may set variables on the same store at
// any time, so every accessor takes the lock.
type Store struct {
	mu     sync.RWMutex
	values map[string]storeEntry // upper-cased name -> entry
}

type storeEntry struct {
	name  string // original spelling
	value string
}

// NewStore creates an empty variable store.
func NewStore() *Store {
	return &Store{values: make(map[string]storeEntry)}
}

// Get returns the value of a variable. The second result reports whether
// the variable was set.
func (s *Store) Get(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.values[strings.ToUpper(name)]
	return e.value, ok
}

// Set stores a value and returns the previous one, so callers can undo
// or diagnose overwrites. !EXTRACT is never overwritten through Set;
// it only grows through AppendExtract.
func (s *Store) Set(name, value string) (previous string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToUpper(name)
	prev := s.values[key]
	if key == VarExtract {
		return prev.value
	}
	spelling := prev.name
	if spelling == "" {
		spelling = name
	}
	s.values[key] = storeEntry{name: spelling, value: value}
	return prev.value
}

// AppendExtract accumulates a value into !EXTRACT, joining entries with
// the extract delimiter.
func (s *Store) AppendExtract(value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.values[VarExtract]
	next := value
	if cur.value != "" {
		next = cur.value + ExtractDelimiter + value
	}
	s.values[VarExtract] = storeEntry{name: VarExtract, value: next}
}

// Extract returns the accumulated extract data.
func (s *Store) Extract() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[VarExtract].value
}

// ClearExtract resets the accumulated extract data.
func (s *Store) ClearExtract() {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, VarExtract)
}

// Expand replaces each {{NAME}} span in text with the variable's value,
// in a single left-to-right pass. Substituted text is never re-scanned,
// so a value containing {{...}} cannot trigger further interpolation.
// Unset variables expand to the empty string. The second result lists
// the variable names that were referenced.
func (s *Store) Expand(text string) (string, []string) {
	var b strings.Builder
	var used []string

	for i := 0; i < len(text); {
		open := strings.Index(text[i:], "{{")
		if open < 0 {
			b.WriteString(text[i:])
			break
		}
		open += i
		end := strings.Index(text[open+2:], "}}")
		if end < 0 {
			b.WriteString(text[i:])
			break
		}
		name := text[open+2 : open+2+end]
		b.WriteString(text[i:open])
		value, _ := s.Get(name)
		b.WriteString(value)
		used = append(used, name)
		i = open + 2 + end + 2
	}

	return b.String(), used
}

// Snapshot returns a copy of all variables keyed by their original
// spelling. Used to build the final MacroResult.
func (s *Store) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.values))
	for _, e := range s.values {
		out[e.name] = e.value
	}
	return out
}

// Truthy reports whether a variable value counts as true in conditions
// and error policy. Empty string, "0" and "false" are false.
func Truthy(value string) bool {
	if value == "" || value == "0" {
		return false
	}
	return !strings.EqualFold(value, "false")
}

// NumberValue parses a value the way the condition evaluator coerces
// numbers. The second result reports whether the value is numeric.
func NumberValue(value string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	return n, err == nil
}
