package vm

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Arity-specialized primitive installers
// ---------------------------------------------------------------------------

// Method0Func is a primitive taking no arguments.
type Method0Func func(in *Interpreter, recv Value) Value

// Method1Func is a primitive taking one argument.
type Method1Func func(in *Interpreter, recv Value, arg Value) Value

// Method2Func is a primitive taking two arguments.
type Method2Func func(in *Interpreter, recv Value, arg1, arg2 Value) Value

func (c *Class) addMethod0(selector string, fn Method0Func) {
	c.AddMethod(&Method{Selector: selector, Primitive: func(in *Interpreter, recv Value, _ []Value) Value {
		return fn(in, recv)
	}})
}

func (c *Class) addMethod1(selector string, fn Method1Func) {
	c.AddMethod(&Method{Selector: selector, NumArgs: 1, Primitive: func(in *Interpreter, recv Value, args []Value) Value {
		return fn(in, recv, args[0])
	}})
}

func (c *Class) addMethod2(selector string, fn Method2Func) {
	c.AddMethod(&Method{Selector: selector, NumArgs: 2, Primitive: func(in *Interpreter, recv Value, args []Value) Value {
		return fn(in, recv, args[0], args[1])
	}})
}

func (c *Class) addMethodN(selector string, fn PrimitiveFunc) {
	c.AddMethod(&Method{Selector: selector, NumArgs: selectorArity(selector), Primitive: fn})
}

func (c *Class) addClassMethod0(selector string, fn Method0Func) {
	c.AddClassMethod(&Method{Selector: selector, Primitive: func(in *Interpreter, recv Value, _ []Value) Value {
		return fn(in, recv)
	}})
}

func (c *Class) addClassMethod1(selector string, fn Method1Func) {
	c.AddClassMethod(&Method{Selector: selector, NumArgs: 1, Primitive: func(in *Interpreter, recv Value, args []Value) Value {
		return fn(in, recv, args[0])
	}})
}

func (c *Class) addClassMethodN(selector string, fn PrimitiveFunc) {
	c.AddClassMethod(&Method{Selector: selector, NumArgs: selectorArity(selector), Primitive: fn})
}

// ---------------------------------------------------------------------------
// Argument helpers
// ---------------------------------------------------------------------------

func (in *Interpreter) primitiveFailed(selector string, recv Value, format string, args ...any) {
	panic(&RuntimeError{
		Kind:     ErrPrimitiveFailed,
		Selector: selector,
		Receiver: PrintString(recv),
		Message:  fmt.Sprintf(format, args...),
	})
}

func (in *Interpreter) intArg(selector string, recv, v Value) int64 {
	n, ok := v.(int64)
	if !ok {
		in.primitiveFailed(selector, recv, "expected SmallInteger argument, got %s", PrintString(v))
	}
	return n
}

func (in *Interpreter) stringArg(selector string, recv, v Value) string {
	switch s := v.(type) {
	case string:
		return s
	case Symbol:
		return string(s)
	}
	in.primitiveFailed(selector, recv, "expected String argument, got %s", PrintString(v))
	return ""
}

func (in *Interpreter) blockArg(selector string, recv, v Value, numArgs int) *BlockClosure {
	b, ok := v.(*BlockClosure)
	if !ok || b.NumArgs() != numArgs {
		in.primitiveFailed(selector, recv, "expected %d-argument block, got %s", numArgs, PrintString(v))
	}
	return b
}

// index converts a 1-based index into a 0-based one, checking bounds.
func (in *Interpreter) index(selector string, recv, v Value, size int) int {
	i := in.intArg(selector, recv, v)
	if i < 1 || i > int64(size) {
		in.primitiveFailed(selector, recv, "index %d out of bounds for size %d", i, size)
	}
	return int(i - 1)
}

// evaluate calls v when it is a block and returns it unchanged otherwise.
func (in *Interpreter) evaluate(v Value, args ...Value) Value {
	if b, ok := v.(*BlockClosure); ok {
		return in.callBlock(b, args)
	}
	return v
}

// equal sends = so user classes can override equality.
func (in *Interpreter) equal(a, b Value) bool {
	return IsTruthy(in.send(a, "=", []Value{b}))
}

func boolValue(v Value) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}
