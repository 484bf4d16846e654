package vm

import (
	"errors"
	"fmt"
)

// DefaultMaxDepth bounds nested sends and block activations.
const DefaultMaxDepth = 1000

// ---------------------------------------------------------------------------
// frame: execution state for one method or block activation
// ---------------------------------------------------------------------------

type frame struct {
	method   *Method // home method; blocks share it for globals and super sends
	code     []byte
	literals []Value
	temps    []Value
	self     Value
	stack    []Value

	outer    *frame // lexically enclosing frame, nil for methods
	home     *frame // method frame; a method frame is its own home
	returned bool   // set once a method frame has exited
}

func (f *frame) isBlock() bool {
	return f.home != f
}

func (f *frame) push(v Value) {
	f.stack = append(f.stack, v)
}

func (f *frame) pop() Value {
	n := len(f.stack) - 1
	if n < 0 {
		panic(errBytecodeUnderflow)
	}
	v := f.stack[n]
	f.stack = f.stack[:n]
	return v
}

func (f *frame) top() Value {
	if len(f.stack) == 0 {
		panic(errBytecodeUnderflow)
	}
	return f.stack[len(f.stack)-1]
}

func (f *frame) popN(n int) []Value {
	if n > len(f.stack) {
		panic(errBytecodeUnderflow)
	}
	base := len(f.stack) - n
	out := make([]Value, n)
	copy(out, f.stack[base:])
	f.stack = f.stack[:base]
	return out
}

func (f *frame) outerAt(depth int) *frame {
	o := f
	for ; depth > 0 && o != nil; depth-- {
		o = o.outer
	}
	if o == nil {
		panic(errBytecodeUnderflow)
	}
	return o
}

// nonLocalReturn unwinds Go frames up to the home method activation.
type nonLocalReturn struct {
	home  *frame
	value Value
}

// ---------------------------------------------------------------------------
// Interpreter
// ---------------------------------------------------------------------------

// Interpreter executes bytecode. An Interpreter serves one call chain at a
// time; use one per goroutine. Classes and methods may be shared freely.
type Interpreter struct {
	MaxDepth int

	depth int
}

// NewInterpreter creates an interpreter with the default depth limit.
func NewInterpreter() *Interpreter {
	return &Interpreter{MaxDepth: DefaultMaxDepth}
}

// Send delivers a message and returns the result. Errors raised while the
// message executes are returned as *RuntimeError.
func (in *Interpreter) Send(receiver Value, selector string, args ...Value) (result Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = in.recovered(r)
		}
	}()
	return in.send(receiver, selector, args), nil
}

// Call evaluates a block closure with arguments.
func (in *Interpreter) Call(block *BlockClosure, args ...Value) (result Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = in.recovered(r)
		}
	}()
	return in.callBlock(block, args), nil
}

func (in *Interpreter) recovered(r any) error {
	switch x := r.(type) {
	case *RuntimeError:
		return x
	case *nonLocalReturn:
		return &RuntimeError{Kind: ErrBlockCannotReturn}
	case error:
		if errors.Is(x, errBytecodeUnderflow) {
			return &RuntimeError{Kind: ErrPrimitiveFailed, Message: "malformed bytecode"}
		}
	}
	panic(r)
}

// Fail aborts the current send with a runtime error of the given kind.
func (in *Interpreter) Fail(kind error, format string, args ...any) {
	panic(&RuntimeError{Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// Depth returns the current activation depth.
func (in *Interpreter) Depth() int {
	return in.depth
}

func (in *Interpreter) enter() {
	limit := in.MaxDepth
	if limit <= 0 {
		limit = DefaultMaxDepth
	}
	if in.depth >= limit {
		panic(&RuntimeError{Kind: ErrStackOverflow, Message: fmt.Sprintf("depth limit %d exceeded", limit)})
	}
	in.depth++
}

func (in *Interpreter) leave() {
	in.depth--
}

// ---------------------------------------------------------------------------
// Dispatch
// ---------------------------------------------------------------------------

func lookup(receiver Value, selector string) *Method {
	if c, ok := receiver.(*Class); ok {
		return c.LookupClassMethod(selector)
	}
	return ClassOf(receiver).LookupMethod(selector)
}

func (in *Interpreter) send(receiver Value, selector string, args []Value) Value {
	m := lookup(receiver, selector)
	if m == nil {
		panic(&RuntimeError{
			Kind:     ErrDoesNotUnderstand,
			Selector: selector,
			Receiver: PrintString(receiver),
		})
	}
	return in.invoke(m, receiver, args)
}

func (in *Interpreter) sendSuper(f *frame, selector string, args []Value) Value {
	owner := f.method.class
	var m *Method
	switch {
	case f.method.classSide && owner.Superclass != nil:
		m = owner.Superclass.LookupClassMethod(selector)
	case f.method.classSide:
		m = Boot().class.LookupMethod(selector)
	case owner.Superclass != nil:
		m = owner.Superclass.LookupMethod(selector)
	}
	if m == nil {
		panic(&RuntimeError{
			Kind:     ErrDoesNotUnderstand,
			Selector: selector,
			Receiver: "super " + PrintString(f.self),
		})
	}
	return in.invoke(m, f.self, args)
}

func (in *Interpreter) invoke(m *Method, receiver Value, args []Value) Value {
	if len(args) != m.NumArgs {
		panic(&RuntimeError{
			Kind:     ErrWrongArgumentCount,
			Selector: m.Selector,
			Receiver: PrintString(receiver),
			Message:  fmt.Sprintf("expected %d arguments, got %d", m.NumArgs, len(args)),
		})
	}
	in.enter()
	defer in.leave()

	if m.Primitive != nil {
		return m.Primitive(in, receiver, args)
	}
	return in.runMethod(m, receiver, args)
}

func (in *Interpreter) runMethod(m *Method, receiver Value, args []Value) (result Value) {
	f := &frame{
		method:   m,
		code:     m.Bytecode,
		literals: m.Literals,
		temps:    make([]Value, m.NumArgs+m.NumTemps),
		self:     receiver,
	}
	f.home = f
	copy(f.temps, args)

	defer func() {
		f.returned = true
		if r := recover(); r != nil {
			if nlr, ok := r.(*nonLocalReturn); ok && nlr.home == f {
				result = nlr.value
				return
			}
			panic(r)
		}
	}()
	return in.run(f)
}

func (in *Interpreter) callBlock(c *BlockClosure, args []Value) Value {
	if len(args) != c.block.NumArgs {
		panic(&RuntimeError{
			Kind:     ErrWrongArgumentCount,
			Selector: "value",
			Receiver: "a BlockClosure",
			Message:  fmt.Sprintf("block takes %d arguments, got %d", c.block.NumArgs, len(args)),
		})
	}
	in.enter()
	defer in.leave()

	f := &frame{
		method:   c.home.method,
		code:     c.block.Bytecode,
		literals: c.block.Literals,
		temps:    make([]Value, c.block.NumArgs+c.block.NumTemps),
		self:     c.self,
		outer:    c.outer,
		home:     c.home,
	}
	copy(f.temps, args)
	return in.run(f)
}

// ---------------------------------------------------------------------------
// Main loop
// ---------------------------------------------------------------------------

func (in *Interpreter) run(f *frame) Value {
	r := NewBytecodeReader(f.code)
	for r.HasMore() {
		op := r.ReadOpcode()
		switch op {
		case OpNOP:
		case OpPOP:
			f.pop()
		case OpDUP:
			f.push(f.top())

		case OpPushNil:
			f.push(nil)
		case OpPushTrue:
			f.push(true)
		case OpPushFalse:
			f.push(false)
		case OpPushSelf:
			f.push(f.self)
		case OpPushInt8:
			f.push(int64(r.ReadInt8()))
		case OpPushLiteral:
			f.push(copyLiteral(in.literal(f, r.ReadUint16())))

		case OpPushTemp:
			f.push(in.temp(f, int(r.ReadByte())))
		case OpStoreTemp:
			idx := int(r.ReadByte())
			in.temp(f, idx)
			f.temps[idx] = f.top()
		case OpPushOuterTemp:
			o := f.outerAt(int(r.ReadByte()))
			f.push(in.temp(o, int(r.ReadByte())))
		case OpStoreOuterTemp:
			o := f.outerAt(int(r.ReadByte()))
			idx := int(r.ReadByte())
			in.temp(o, idx)
			o.temps[idx] = f.top()
		case OpPushIvar:
			obj, idx := in.ivar(f, int(r.ReadByte()))
			f.push(obj.slots[idx])
		case OpStoreIvar:
			obj, idx := in.ivar(f, int(r.ReadByte()))
			obj.slots[idx] = f.top()
		case OpPushGlobal:
			f.push(in.global(f, r.ReadUint16()))

		case OpSend, OpSendSuper:
			selector := in.selector(f, r.ReadUint16())
			argc := int(r.ReadByte())
			args := f.popN(argc)
			recv := f.pop()
			if op == OpSendSuper {
				f.push(in.sendSuper(f, selector, args))
			} else {
				f.push(in.send(recv, selector, args))
			}

		case OpReturnTop:
			v := f.pop()
			if f.isBlock() {
				in.nonLocalReturn(f, v)
			}
			return v
		case OpReturnSelf:
			if f.isBlock() {
				in.nonLocalReturn(f, f.self)
			}
			return f.self
		case OpBlockReturn:
			return f.pop()

		case OpCreateBlock:
			idx := int(r.ReadUint16())
			if idx >= len(f.method.Blocks) {
				panic(errBytecodeUnderflow)
			}
			f.push(&BlockClosure{block: f.method.Blocks[idx], outer: f, home: f.home, self: f.self})
		case OpCreateArray:
			f.push(NewArray(f.popN(int(r.ReadByte()))...))

		default:
			panic(errBytecodeUnderflow)
		}
	}
	if f.isBlock() {
		if len(f.stack) > 0 {
			return f.top()
		}
		return nil
	}
	return f.self
}

func (in *Interpreter) nonLocalReturn(f *frame, v Value) {
	if f.home.returned {
		panic(&RuntimeError{Kind: ErrBlockCannotReturn, Message: "home method " + f.home.method.Selector + " has already returned"})
	}
	panic(&nonLocalReturn{home: f.home, value: v})
}

func (in *Interpreter) literal(f *frame, idx uint16) Value {
	if int(idx) >= len(f.literals) {
		panic(errBytecodeUnderflow)
	}
	return f.literals[idx]
}

func (in *Interpreter) selector(f *frame, idx uint16) string {
	s, ok := in.literal(f, idx).(Symbol)
	if !ok {
		panic(errBytecodeUnderflow)
	}
	return string(s)
}

func (in *Interpreter) temp(f *frame, idx int) Value {
	if idx >= len(f.temps) {
		panic(errBytecodeUnderflow)
	}
	return f.temps[idx]
}

// ivar maps an owner-relative instance variable index onto a slot of self.
func (in *Interpreter) ivar(f *frame, idx int) (*Object, int) {
	obj, ok := f.self.(*Object)
	owner := f.method.class
	if !ok || idx >= len(owner.InstVars) {
		panic(errBytecodeUnderflow)
	}
	return obj, owner.instVarOffset() + idx
}

func (in *Interpreter) global(f *frame, idx uint16) Value {
	name := in.selector(f, idx)
	owner := f.method.class
	c, err := Resolve(owner.loader, owner.Namespace, owner.Imports, name)
	if err != nil {
		kind := ErrUndefinedGlobal
		if !errors.Is(err, ErrClassNotFound) {
			kind = ErrPrimitiveFailed
		}
		panic(&RuntimeError{Kind: kind, Message: name, Cause: err})
	}
	return c
}

// copyLiteral gives each activation its own copy of array literals.
func copyLiteral(v Value) Value {
	a, ok := v.(*Array)
	if !ok {
		return v
	}
	elems := make([]Value, len(a.Elems))
	for i, e := range a.Elems {
		elems[i] = copyLiteral(e)
	}
	return NewArray(elems...)
}
