package vm

import (
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Value model
// ---------------------------------------------------------------------------

// Value is any runtime value. Literals map onto plain Go values:
//
//	nil        UndefinedObject
//	bool       Boolean
//	int64      SmallInteger
//	float64    Float
//	string     String
//	Symbol     Symbol
//	Character  Character
//	*Array     Array
//	*Object    instances of loaded classes
//	*Class     classes themselves
//	*BlockClosure
type Value = any

// Symbol is an interned-by-value selector or name.
type Symbol string

// Character is a single Unicode code point.
type Character rune

// Array is a mutable, fixed-size sequence of values.
type Array struct {
	Elems []Value
}

// NewArray returns an array holding elems.
func NewArray(elems ...Value) *Array {
	return &Array{Elems: elems}
}

// Object is an instance of a loaded class.
type Object struct {
	class *Class
	slots []Value
}

// Class returns the object's class.
func (o *Object) Class() *Class {
	return o.class
}

// NumSlots returns the number of instance variable slots.
func (o *Object) NumSlots() int {
	return len(o.slots)
}

// Slot returns the value of slot i.
func (o *Object) Slot(i int) Value {
	return o.slots[i]
}

// SetSlot stores v into slot i.
func (o *Object) SetSlot(i int, v Value) {
	o.slots[i] = v
}

// InstVar returns the instance variable with the given name, searching the
// full class hierarchy.
func (o *Object) InstVar(name string) (Value, bool) {
	idx := o.class.InstVarIndex(name)
	if idx < 0 {
		return nil, false
	}
	return o.slots[idx], true
}

// ClassOf returns the class of any value.
func ClassOf(v Value) *Class {
	b := Boot()
	switch x := v.(type) {
	case nil:
		return b.undefinedObject
	case bool:
		return b.boolean
	case int64:
		return b.smallInteger
	case float64:
		return b.float
	case string:
		return b.string
	case Symbol:
		return b.symbol
	case Character:
		return b.character
	case *Array:
		return b.array
	case *Object:
		return x.class
	case *Class:
		return b.class
	case *BlockClosure:
		return b.blockClosure
	}
	return b.object
}

// PrintString renders a value the way printString does for builtins.
func PrintString(v Value) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case bool:
		if x {
			return "true"
		}
		return "false"
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		s := strconv.FormatFloat(x, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEnN") {
			s += ".0"
		}
		return s
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	case Symbol:
		return "#" + string(x)
	case Character:
		return "$" + string(rune(x))
	case *Array:
		var sb strings.Builder
		sb.WriteString("#(")
		for i, e := range x.Elems {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(PrintString(e))
		}
		sb.WriteByte(')')
		return sb.String()
	case *Class:
		return x.FullName()
	case *BlockClosure:
		return "a BlockClosure"
	case *Object:
		return articleFor(x.class.Name) + " " + x.class.Name
	}
	return "an Object"
}

// DisplayString is PrintString without quoting strings and symbols.
func DisplayString(v Value) string {
	switch x := v.(type) {
	case string:
		return x
	case Symbol:
		return string(x)
	case Character:
		return string(rune(x))
	}
	return PrintString(v)
}

func articleFor(name string) string {
	if name != "" && strings.ContainsRune("AEIOU", rune(name[0])) {
		return "an"
	}
	return "a"
}

// IsTruthy reports whether v is the boolean true.
func IsTruthy(v Value) bool {
	b, ok := v.(bool)
	return ok && b
}
