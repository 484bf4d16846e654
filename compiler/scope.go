package compiler

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// scope is one activation's variable frame: a method or a block. Arguments
// occupy the first slots, temporaries follow.
type scope struct {
	outer   *scope
	slots   map[string]int
	numArgs int
	size    int
}

func newScope(outer *scope, params, temps []string) *scope {
	s := &scope{outer: outer, slots: make(map[string]int, len(params)+len(temps)), numArgs: len(params)}
	for _, name := range params {
		s.declare(name)
	}
	for _, name := range temps {
		s.declare(name)
	}
	return s
}

// declare adds a name to the frame. Redeclaring a name keeps the first slot
// and reports false.
func (s *scope) declare(name string) bool {
	if _, dup := s.slots[name]; dup {
		s.size++
		return false
	}
	s.slots[name] = s.size
	s.size++
	return true
}

// lookup resolves name through the enclosing frames. depth is the number of
// frames between s and the frame that owns the slot.
func (s *scope) lookup(name string) (depth, index int, isArg, ok bool) {
	for f := s; f != nil; f = f.outer {
		if idx, found := f.slots[name]; found {
			return depth, idx, idx < f.numArgs, true
		}
		depth++
	}
	return 0, 0, false, false
}

// isGlobalName reports whether name denotes a global: capitalized or
// namespace-qualified with '::'.
func isGlobalName(name string) bool {
	if strings.Contains(name, "::") {
		return true
	}
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}

// globalName converts a source-level global to its binary form,
// Acme::Tools::Greeter -> Acme.Tools.Greeter.
func globalName(name string) string {
	return strings.ReplaceAll(name, "::", ".")
}
