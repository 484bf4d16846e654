package vm

import (
	"github.com/chazu/classforge/classfile"
)

// ---------------------------------------------------------------------------
// Class
// ---------------------------------------------------------------------------

// Class is a loaded class. Classes are immutable once DefineClass (or the
// bootstrap loader) returns them, so they may be shared between goroutines.
type Class struct {
	Name       string
	Namespace  string
	Superclass *Class
	InstVars   []string // instance variables declared by this class only
	NumSlots   int      // total slots including inherited ones
	Imports    []string

	methods      map[string]*Method
	classMethods map[string]*Method
	loader       ClassLoader
	digest       [32]byte
	sealed       bool // builtin with a native representation; no subclasses, no basicNew
}

// NewClass creates a class with the given superclass and instance variables.
func NewClass(namespace, name string, superclass *Class, instVars []string) *Class {
	numSlots := 0
	if superclass != nil {
		numSlots = superclass.NumSlots
	}
	return &Class{
		Name:         name,
		Namespace:    namespace,
		Superclass:   superclass,
		InstVars:     instVars,
		NumSlots:     numSlots + len(instVars),
		methods:      make(map[string]*Method),
		classMethods: make(map[string]*Method),
	}
}

// FullName returns the dotted binary name of the class.
func (c *Class) FullName() string {
	return classfile.BinaryName(c.Namespace, c.Name)
}

// String implements the Stringer interface.
func (c *Class) String() string {
	return c.FullName()
}

// Loader returns the loader that defined this class.
func (c *Class) Loader() ClassLoader {
	return c.loader
}

// Digest returns the content hash of the artifact the class was defined
// from. Builtin classes have a zero digest.
func (c *Class) Digest() [32]byte {
	return c.digest
}

// instVarOffset returns the slot index of this class's first own instance
// variable.
func (c *Class) instVarOffset() int {
	return c.NumSlots - len(c.InstVars)
}

// InstVarIndex returns the slot index for name, or -1.
func (c *Class) InstVarIndex(name string) int {
	for k := c; k != nil; k = k.Superclass {
		for i, v := range k.InstVars {
			if v == name {
				return k.instVarOffset() + i
			}
		}
	}
	return -1
}

// AllInstVarNames returns instance variable names in slot order.
func (c *Class) AllInstVarNames() []string {
	if c.Superclass == nil {
		return append([]string(nil), c.InstVars...)
	}
	return append(c.Superclass.AllInstVarNames(), c.InstVars...)
}

// IsSubclassOf reports whether c inherits from other (or is other).
func (c *Class) IsSubclassOf(other *Class) bool {
	for k := c; k != nil; k = k.Superclass {
		if k == other {
			return true
		}
	}
	return false
}

// AddMethod installs an instance-side method.
func (c *Class) AddMethod(m *Method) {
	m.class = c
	c.methods[m.Selector] = m
}

// AddClassMethod installs a class-side method.
func (c *Class) AddClassMethod(m *Method) {
	m.class = c
	m.classSide = true
	c.classMethods[m.Selector] = m
}

// LookupMethod finds an instance-side method by walking the superclass chain.
func (c *Class) LookupMethod(selector string) *Method {
	for k := c; k != nil; k = k.Superclass {
		if m, ok := k.methods[selector]; ok {
			return m
		}
	}
	return nil
}

// LookupClassMethod finds a class-side method. Class-side chains fall back
// to the instance side of Class, so every class answers new, name, etc.
func (c *Class) LookupClassMethod(selector string) *Method {
	for k := c; k != nil; k = k.Superclass {
		if m, ok := k.classMethods[selector]; ok {
			return m
		}
	}
	return Boot().class.LookupMethod(selector)
}

// HasMethod reports whether instances of c understand selector.
func (c *Class) HasMethod(selector string) bool {
	return c.LookupMethod(selector) != nil
}

// Selectors returns the selectors defined directly on the instance side.
func (c *Class) Selectors() []string {
	out := make([]string, 0, len(c.methods))
	for s := range c.methods {
		out = append(out, s)
	}
	return out
}

// Method returns the instance-side method defined directly on c.
func (c *Class) Method(selector string) *Method {
	return c.methods[selector]
}

// Sealed reports whether the class is a builtin that cannot be subclassed or
// instantiated with basicNew.
func (c *Class) Sealed() bool {
	return c.sealed
}

// BasicNew allocates an instance with all slots set to nil.
func (c *Class) BasicNew() *Object {
	return &Object{class: c, slots: make([]Value, c.NumSlots)}
}
