package vm

import (
	"errors"
	"testing"

	"github.com/chazu/classforge/classfile"
)

// ---------------------------------------------------------------------------
// Test fixtures
// ---------------------------------------------------------------------------

// mapLoader serves classes from a map and delegates misses to the boot loader.
type mapLoader struct {
	classes map[string]*Class
}

func newMapLoader() *mapLoader {
	return &mapLoader{classes: make(map[string]*Class)}
}

func (l *mapLoader) LoadClass(name string) (*Class, error) {
	if c, ok := l.classes[name]; ok {
		return c, nil
	}
	return Boot().LoadClass(name)
}

func (l *mapLoader) Parent() ClassLoader { return Boot() }

func (l *mapLoader) define(t *testing.T, cf *classfile.ClassFile) *Class {
	t.Helper()
	c, err := DefineClass(l, cf, [32]byte{})
	if err != nil {
		t.Fatalf("DefineClass(%s): %v", cf.BinaryName(), err)
	}
	l.classes[cf.BinaryName()] = c
	return c
}

func sym(s string) classfile.Literal {
	return classfile.Literal{Kind: classfile.LitSelector, Str: s}
}

func global(s string) classfile.Literal {
	return classfile.Literal{Kind: classfile.LitGlobal, Str: s}
}

func method(selector string, numTemps int, build func(b *BytecodeBuilder), lits ...classfile.Literal) classfile.Method {
	b := NewBytecodeBuilder()
	build(b)
	return classfile.Method{
		Selector: selector,
		NumArgs:  selectorArity(selector),
		NumTemps: numTemps,
		Bytecode: b.Bytes(),
		Literals: lits,
	}
}

func send(t *testing.T, recv Value, selector string, args ...Value) Value {
	t.Helper()
	v, err := NewInterpreter().Send(recv, selector, args...)
	if err != nil {
		t.Fatalf("%s %s: %v", PrintString(recv), selector, err)
	}
	return v
}

// ---------------------------------------------------------------------------
// Basic execution
// ---------------------------------------------------------------------------

func TestSendCompiledMethod(t *testing.T) {
	l := newMapLoader()
	cf := classfile.New("", "Answer")
	cf.Methods = []classfile.Method{
		method("answer", 0, func(b *BytecodeBuilder) {
			b.EmitInt8(OpPushInt8, 42)
			b.Emit(OpReturnTop)
		}),
		method("add:", 0, func(b *BytecodeBuilder) {
			b.EmitByte(OpPushTemp, 0)
			b.EmitInt8(OpPushInt8, 1)
			b.EmitSend(OpSend, 0, 1)
			b.Emit(OpReturnTop)
		}, sym("+")),
	}
	c := l.define(t, cf)

	obj := send(t, c, "new")
	if got := send(t, obj, "answer"); got != int64(42) {
		t.Errorf("answer = %v, want 42", got)
	}
	if got := send(t, obj, "add:", int64(9)); got != int64(10) {
		t.Errorf("add: 9 = %v, want 10", got)
	}
	if got := PrintString(obj); got != "an Answer" {
		t.Errorf("printString = %q", got)
	}
}

func TestInstanceVariablesAcrossHierarchy(t *testing.T) {
	l := newMapLoader()

	base := classfile.New("", "Base")
	base.InstVars = []string{"x"}
	base.Methods = []classfile.Method{
		method("x:", 0, func(b *BytecodeBuilder) {
			b.EmitByte(OpPushTemp, 0)
			b.EmitByte(OpStoreIvar, 0)
			b.Emit(OpPOP)
			b.Emit(OpReturnSelf)
		}),
		method("value", 0, func(b *BytecodeBuilder) {
			b.EmitByte(OpPushIvar, 0)
			b.Emit(OpReturnTop)
		}),
	}
	l.define(t, base)

	derived := classfile.New("", "Derived")
	derived.Superclass = "Base"
	derived.InstVars = []string{"y"}
	derived.Methods = []classfile.Method{
		method("y:", 0, func(b *BytecodeBuilder) {
			b.EmitByte(OpPushTemp, 0)
			b.EmitByte(OpStoreIvar, 0)
			b.Emit(OpPOP)
			b.Emit(OpReturnSelf)
		}),
		// value ^super value + y
		method("value", 0, func(b *BytecodeBuilder) {
			b.Emit(OpPushSelf)
			b.EmitSend(OpSendSuper, 0, 0)
			b.EmitByte(OpPushIvar, 0)
			b.EmitSend(OpSend, 1, 1)
			b.Emit(OpReturnTop)
		}, sym("value"), sym("+")),
	}
	c := l.define(t, derived)

	if c.NumSlots != 2 {
		t.Fatalf("NumSlots = %d, want 2", c.NumSlots)
	}
	obj := send(t, c, "new").(*Object)
	send(t, obj, "x:", int64(3))
	send(t, obj, "y:", int64(4))

	if obj.Slot(0) != int64(3) || obj.Slot(1) != int64(4) {
		t.Errorf("slots = %v, %v; want 3, 4", obj.Slot(0), obj.Slot(1))
	}
	if v, ok := obj.InstVar("y"); !ok || v != int64(4) {
		t.Errorf("InstVar(y) = %v, %v", v, ok)
	}
	if got := send(t, obj, "value"); got != int64(7) {
		t.Errorf("value = %v, want 7", got)
	}
}

func TestNewRunsInitialize(t *testing.T) {
	l := newMapLoader()
	cf := classfile.New("", "Counter")
	cf.InstVars = []string{"count"}
	cf.Methods = []classfile.Method{
		method("initialize", 0, func(b *BytecodeBuilder) {
			b.EmitInt8(OpPushInt8, 5)
			b.EmitByte(OpStoreIvar, 0)
			b.Emit(OpPOP)
			b.Emit(OpReturnSelf)
		}),
	}
	c := l.define(t, cf)

	obj := send(t, c, "new").(*Object)
	if obj.Slot(0) != int64(5) {
		t.Errorf("count = %v, want 5", obj.Slot(0))
	}
	raw := send(t, c, "basicNew").(*Object)
	if raw.Slot(0) != nil {
		t.Errorf("basicNew count = %v, want nil", raw.Slot(0))
	}
}

// ---------------------------------------------------------------------------
// Blocks
// ---------------------------------------------------------------------------

func TestBlockNonLocalReturn(t *testing.T) {
	l := newMapLoader()
	cf := classfile.New("", "Early")
	m := method("early", 0, func(b *BytecodeBuilder) {
		b.EmitUint16(OpCreateBlock, 0)
		b.EmitSend(OpSend, 0, 0)
		b.Emit(OpPOP)
		b.EmitInt8(OpPushInt8, 99)
		b.Emit(OpReturnTop)
	}, sym("value"))
	blk := NewBytecodeBuilder()
	blk.EmitInt8(OpPushInt8, 7)
	blk.Emit(OpReturnTop)
	m.Blocks = []classfile.Block{{Bytecode: blk.Bytes()}}
	cf.Methods = []classfile.Method{m}
	c := l.define(t, cf)

	if got := send(t, send(t, c, "new"), "early"); got != int64(7) {
		t.Errorf("early = %v, want 7", got)
	}
}

func TestBlockCannotReturnFromDeadHome(t *testing.T) {
	l := newMapLoader()
	cf := classfile.New("", "Maker")
	m := method("makeBlock", 0, func(b *BytecodeBuilder) {
		b.EmitUint16(OpCreateBlock, 0)
		b.Emit(OpReturnTop)
	})
	blk := NewBytecodeBuilder()
	blk.EmitInt8(OpPushInt8, 1)
	blk.Emit(OpReturnTop)
	m.Blocks = []classfile.Block{{Bytecode: blk.Bytes()}}
	cf.Methods = []classfile.Method{m}
	c := l.define(t, cf)

	in := NewInterpreter()
	v := send(t, send(t, c, "new"), "makeBlock")
	closure, ok := v.(*BlockClosure)
	if !ok {
		t.Fatalf("makeBlock = %T, want *BlockClosure", v)
	}
	_, err := in.Call(closure)
	if !errors.Is(err, ErrBlockCannotReturn) {
		t.Fatalf("Call error = %v, want ErrBlockCannotReturn", err)
	}
}

func TestBlockOuterTemps(t *testing.T) {
	l := newMapLoader()
	cf := classfile.New("", "Counter")
	// count := 0. blk := [count := count + 1]. blk value. blk value. ^count
	m := method("count", 1, func(b *BytecodeBuilder) {
		b.EmitInt8(OpPushInt8, 0)
		b.EmitByte(OpStoreTemp, 0)
		b.Emit(OpPOP)
		b.EmitUint16(OpCreateBlock, 0)
		b.Emit(OpDUP)
		b.EmitSend(OpSend, 0, 0)
		b.Emit(OpPOP)
		b.EmitSend(OpSend, 0, 0)
		b.Emit(OpPOP)
		b.EmitByte(OpPushTemp, 0)
		b.Emit(OpReturnTop)
	}, sym("value"))
	blk := NewBytecodeBuilder()
	blk.EmitOuter(OpPushOuterTemp, 1, 0)
	blk.EmitInt8(OpPushInt8, 1)
	blk.EmitSend(OpSend, 0, 1)
	blk.EmitOuter(OpStoreOuterTemp, 1, 0)
	blk.Emit(OpBlockReturn)
	m.Blocks = []classfile.Block{{Bytecode: blk.Bytes(), Literals: []classfile.Literal{sym("+")}}}
	cf.Methods = []classfile.Method{m}
	c := l.define(t, cf)

	if got := send(t, send(t, c, "new"), "count"); got != int64(2) {
		t.Errorf("count = %v, want 2", got)
	}
}

// ---------------------------------------------------------------------------
// Globals and loaders
// ---------------------------------------------------------------------------

func TestGlobalResolution(t *testing.T) {
	l := newMapLoader()
	l.define(t, classfile.New("acme", "Helper"))

	cf := classfile.New("acme", "User")
	cf.Methods = []classfile.Method{
		method("helper", 0, func(b *BytecodeBuilder) {
			b.EmitUint16(OpPushGlobal, 0)
			b.Emit(OpReturnTop)
		}, global("Helper")),
		method("missing", 0, func(b *BytecodeBuilder) {
			b.EmitUint16(OpPushGlobal, 0)
			b.Emit(OpReturnTop)
		}, global("Nowhere")),
		method("builtin", 0, func(b *BytecodeBuilder) {
			b.EmitUint16(OpPushGlobal, 0)
			b.Emit(OpReturnTop)
		}, global("Array")),
	}
	c := l.define(t, cf)
	obj := send(t, c, "new")

	got, ok := send(t, obj, "helper").(*Class)
	if !ok || got.FullName() != "acme.Helper" {
		t.Errorf("helper = %v, want acme.Helper", got)
	}
	if got := send(t, obj, "builtin"); got != Boot().array {
		t.Errorf("builtin = %v, want Array", got)
	}

	_, err := NewInterpreter().Send(obj, "missing")
	if !errors.Is(err, ErrUndefinedGlobal) {
		t.Errorf("missing: err = %v, want ErrUndefinedGlobal", err)
	}
	if !errors.Is(err, ErrClassNotFound) {
		t.Errorf("missing: err = %v, want to wrap ErrClassNotFound", err)
	}
}

func TestDefineClassErrors(t *testing.T) {
	l := newMapLoader()

	missing := classfile.New("", "Orphan")
	missing.Superclass = "NoSuchBase"
	if _, err := DefineClass(l, missing, [32]byte{}); !errors.Is(err, ErrClassNotFound) {
		t.Errorf("missing superclass: err = %v, want ErrClassNotFound", err)
	}

	sealed := classfile.New("", "MyInt")
	sealed.Superclass = "SmallInteger"
	var formatErr *ClassFormatError
	if _, err := DefineClass(l, sealed, [32]byte{}); !errors.As(err, &formatErr) {
		t.Errorf("sealed superclass: err = %v, want *ClassFormatError", err)
	}

	bad := classfile.New("", "Bad")
	bad.Methods = []classfile.Method{{Selector: "foo", Bytecode: []byte{byte(OpSend), 0}}}
	if _, err := DefineClass(l, bad, [32]byte{}); !errors.As(err, &formatErr) {
		t.Errorf("truncated bytecode: err = %v, want *ClassFormatError", err)
	}

	arity := classfile.New("", "Arity")
	arity.Methods = []classfile.Method{{Selector: "at:put:", NumArgs: 1}}
	if _, err := DefineClass(l, arity, [32]byte{}); !errors.As(err, &formatErr) {
		t.Errorf("arity mismatch: err = %v, want *ClassFormatError", err)
	}
}

func TestRootClassWithoutSuperclass(t *testing.T) {
	cf := classfile.New("", "Root")
	cf.Superclass = NoSuperclass
	c, err := DefineClass(nil, cf, [32]byte{})
	if err != nil {
		t.Fatalf("DefineClass: %v", err)
	}
	if c.Superclass != nil {
		t.Errorf("superclass = %v, want nil", c.Superclass)
	}
	if c.Loader() != Boot() {
		t.Errorf("nil loader should default to the boot loader")
	}
}

// ---------------------------------------------------------------------------
// Runtime errors
// ---------------------------------------------------------------------------

func TestRuntimeErrors(t *testing.T) {
	l := newMapLoader()
	cf := classfile.New("", "Looper")
	cf.Methods = []classfile.Method{
		method("recurse", 0, func(b *BytecodeBuilder) {
			b.Emit(OpPushSelf)
			b.EmitSend(OpSend, 0, 0)
			b.Emit(OpReturnTop)
		}, sym("recurse")),
	}
	c := l.define(t, cf)
	obj := send(t, c, "new")
	smallInteger, _ := Boot().LoadClass("SmallInteger")

	tests := []struct {
		name     string
		recv     Value
		selector string
		args     []Value
		want     error
	}{
		{"does not understand", int64(3), "frobnicate", nil, ErrDoesNotUnderstand},
		{"wrong argument count", int64(3), "+", nil, ErrWrongArgumentCount},
		{"stack overflow", obj, "recurse", nil, ErrStackOverflow},
		{"not instantiable", smallInteger, "new", nil, ErrNotInstantiable},
		{"error:", obj, "error:", []Value{"boom"}, ErrUserError},
		{"division by zero", int64(1), "/", []Value{int64(0)}, ErrPrimitiveFailed},
		{"index out of bounds", NewArray(), "at:", []Value{int64(1)}, ErrPrimitiveFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := NewInterpreter()
			in.MaxDepth = 64
			_, err := in.Send(tt.recv, tt.selector, tt.args...)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			var rt *RuntimeError
			if !errors.As(err, &rt) {
				t.Fatalf("err = %T, want *RuntimeError", err)
			}
			if in.Depth() != 0 {
				t.Errorf("depth after error = %d, want 0", in.Depth())
			}
		})
	}
}

func TestUserErrorMessage(t *testing.T) {
	_, err := NewInterpreter().Send(int64(3), "error:", "bad thing")
	if err == nil || err.Error() != "3>>error:: bad thing" {
		t.Errorf("err = %v", err)
	}
}
