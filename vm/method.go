package vm

// PrimitiveFunc is a Go function that implements a primitive method. Failures
// are reported by calling in.Fail, which unwinds to the nearest Send.
type PrimitiveFunc func(in *Interpreter, receiver Value, args []Value) Value

// Method is a compiled or primitive method installed on a class.
type Method struct {
	Selector  string
	NumArgs   int
	NumTemps  int
	Bytecode  []byte
	Literals  []Value
	Blocks    []*BlockMethod
	Source    string
	Primitive PrimitiveFunc

	class     *Class
	classSide bool
}

// Class returns the class the method is installed on.
func (m *Method) Class() *Class {
	return m.class
}

// IsPrimitive reports whether the method is implemented in Go.
func (m *Method) IsPrimitive() bool {
	return m.Primitive != nil
}

// ClassSide reports whether the method belongs to the class side.
func (m *Method) ClassSide() bool {
	return m.classSide
}

// BlockMethod is the compiled body of a block literal. Blocks of a method are
// kept in one flat list; CREATE_BLOCK operands index into it.
type BlockMethod struct {
	NumArgs  int
	NumTemps int
	Bytecode []byte
	Literals []Value
}

// BlockClosure is a block bound to the frame it was created in.
type BlockClosure struct {
	block *BlockMethod
	outer *frame
	home  *frame
	self  Value
}

// NumArgs returns the number of arguments the block takes.
func (c *BlockClosure) NumArgs() int {
	return c.block.NumArgs
}

// selectorArity returns the number of arguments implied by a selector.
func selectorArity(selector string) int {
	if selector == "" {
		return 0
	}
	if isBinarySelector(selector) {
		return 1
	}
	n := 0
	for _, r := range selector {
		if r == ':' {
			n++
		}
	}
	return n
}

func isBinarySelector(selector string) bool {
	for _, r := range selector {
		switch {
		case r == '_', r == ':':
			return false
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return false
		}
	}
	return true
}
