package compiler

import (
	"fmt"
	"math"

	"github.com/chazu/classforge/classfile"
	"github.com/chazu/classforge/toolchain"
	"github.com/chazu/classforge/vm"
)

// ---------------------------------------------------------------------------
// Codegen: Compile AST to class files
// ---------------------------------------------------------------------------

// Compiler compiles class definitions to classfile.ClassFile values. The
// AST must have passed semantic analysis.
type Compiler struct {
	namespace string
	imports   []string
	errors    []Problem

	// per class
	instVars  map[string]int
	classSide bool

	// per method
	blocks []classfile.Block
	frame  *frameGen
}

// frameGen holds the code being generated for one method or block body.
type frameGen struct {
	builder  *vm.BytecodeBuilder
	literals []classfile.Literal
	index    map[literalKey]int
	scope    *scope
}

// literalKey deduplicates scalar literals within one literal frame.
type literalKey struct {
	kind classfile.LiteralKind
	i    int64
	s    string
}

func newFrameGen(sc *scope) *frameGen {
	return &frameGen{
		builder: vm.NewBytecodeBuilder(),
		index:   make(map[literalKey]int),
		scope:   sc,
	}
}

// NewCompiler creates a code generator for classes declared in namespace
// with the given imports, both in binary (dotted) form.
func NewCompiler(namespace string, imports []string) *Compiler {
	return &Compiler{namespace: namespace, imports: imports}
}

// Errors returns accumulated code generation errors.
func (c *Compiler) Errors() []Problem {
	return c.errors
}

func (c *Compiler) errorAt(node Node, format string, args ...any) {
	c.errors = append(c.errors, Problem{
		Severity: toolchain.SeverityError,
		Pos:      node.Span().Start,
		Msg:      fmt.Sprintf(format, args...),
	})
}

// SetInstanceVars sets the instance variable names of the class being
// compiled. Indexes are relative to the declaring class.
func (c *Compiler) SetInstanceVars(names []string) {
	c.instVars = make(map[string]int, len(names))
	for i, name := range names {
		c.instVars[name] = i
	}
}

// CompileClass compiles a class definition. sourceName records the unit the
// class came from.
func (c *Compiler) CompileClass(cls *ClassDef, sourceName string) *classfile.ClassFile {
	cf := classfile.New(c.namespace, cls.Name)
	cf.Superclass = globalName(cls.Superclass)
	cf.InstVars = append([]string(nil), cls.InstanceVariables...)
	cf.Imports = append([]string(nil), c.imports...)
	cf.SourceName = sourceName

	c.SetInstanceVars(cls.InstanceVariables)
	for _, m := range cls.Methods {
		cf.Methods = append(cf.Methods, c.CompileMethod(m))
	}
	for _, m := range cls.ClassMethods {
		cf.ClassMethods = append(cf.ClassMethods, c.CompileMethod(m))
	}
	return cf
}

// CompileMethod compiles a method definition.
func (c *Compiler) CompileMethod(method *MethodDef) classfile.Method {
	c.classSide = method.ClassSide
	c.blocks = nil
	c.frame = newFrameGen(newScope(nil, method.Parameters, method.Temps))

	for _, stmt := range method.Statements {
		c.compileStmt(stmt)
		if _, ok := stmt.(*ExprStmt); ok {
			c.emit(vm.OpPOP)
		}
	}
	if !endsWithReturn(method.Statements) {
		c.emit(vm.OpReturnSelf)
	}

	f := c.frame
	out := classfile.Method{
		Selector: method.Selector,
		NumArgs:  len(method.Parameters),
		NumTemps: f.scope.size - f.scope.numArgs,
		Bytecode: f.builder.Bytes(),
		Literals: f.literals,
		Blocks:   c.blocks,
		Source:   method.SourceText,
	}
	c.frame = nil
	c.blocks = nil
	return out
}

func endsWithReturn(stmts []Stmt) bool {
	if len(stmts) == 0 {
		return false
	}
	_, ok := stmts[len(stmts)-1].(*Return)
	return ok
}

func (c *Compiler) emit(op vm.Opcode) {
	c.frame.builder.Emit(op)
}

// ---------------------------------------------------------------------------
// Statement compilation
// ---------------------------------------------------------------------------

func (c *Compiler) compileStmt(stmt Stmt) {
	switch s := stmt.(type) {
	case *ExprStmt:
		c.compileExpr(s.Expr)
	case *Return:
		c.compileExpr(s.Value)
		c.emit(vm.OpReturnTop)
	default:
		c.errorAt(stmt, "unknown statement type %T", stmt)
	}
}

// ---------------------------------------------------------------------------
// Expression compilation
// ---------------------------------------------------------------------------

func (c *Compiler) compileExpr(expr Expr) {
	switch e := expr.(type) {
	case *IntLiteral:
		c.compileInt(e.Value)
	case *FloatLiteral:
		c.pushLiteral(e, classfile.Literal{Kind: classfile.LitFloat, Float: e.Value})
	case *StringLiteral:
		c.pushLiteral(e, classfile.Literal{Kind: classfile.LitString, Str: e.Value})
	case *SymbolLiteral:
		c.pushLiteral(e, classfile.Literal{Kind: classfile.LitSymbol, Str: e.Value})
	case *CharLiteral:
		c.pushLiteral(e, classfile.Literal{Kind: classfile.LitChar, Int: int64(e.Value)})
	case *ArrayLiteral:
		c.pushLiteral(e, c.arrayLiteral(e))
	case *DynamicArray:
		for _, elem := range e.Elements {
			c.compileExpr(elem)
		}
		c.frame.builder.EmitByte(vm.OpCreateArray, byte(len(e.Elements)))
	case *Constant:
		switch e.Kind {
		case ConstTrue:
			c.emit(vm.OpPushTrue)
		case ConstFalse:
			c.emit(vm.OpPushFalse)
		default:
			c.emit(vm.OpPushNil)
		}
	case *SelfRef:
		c.emit(vm.OpPushSelf)
	case *Variable:
		c.compileVariable(e)
	case *Assignment:
		c.compileAssignment(e)
	case *UnaryMessage:
		c.compileExpr(e.Receiver)
		c.emitSend(e, e.Receiver, e.Selector, 0)
	case *BinaryMessage:
		c.compileExpr(e.Receiver)
		c.compileExpr(e.Argument)
		c.emitSend(e, e.Receiver, e.Selector, 1)
	case *KeywordMessage:
		c.compileExpr(e.Receiver)
		for _, arg := range e.Arguments {
			c.compileExpr(arg)
		}
		c.emitSend(e, e.Receiver, e.Selector, len(e.Arguments))
	case *Cascade:
		c.compileCascade(e)
	case *Block:
		c.compileBlock(e)
	default:
		c.errorAt(expr, "unknown expression type %T", expr)
	}
}

// ---------------------------------------------------------------------------
// Literal compilation
// ---------------------------------------------------------------------------

func (c *Compiler) compileInt(value int64) {
	if value >= math.MinInt8 && value <= math.MaxInt8 {
		c.frame.builder.EmitInt8(vm.OpPushInt8, int8(value))
		return
	}
	idx := c.addLiteral(nil, classfile.Literal{Kind: classfile.LitInt, Int: value})
	c.frame.builder.EmitUint16(vm.OpPushLiteral, idx)
}

func (c *Compiler) pushLiteral(at Node, lit classfile.Literal) {
	c.frame.builder.EmitUint16(vm.OpPushLiteral, c.addLiteral(at, lit))
}

var constLiteralKind = [...]classfile.LiteralKind{
	ConstNil:   classfile.LitNil,
	ConstTrue:  classfile.LitTrue,
	ConstFalse: classfile.LitFalse,
}

// arrayLiteral converts #(...) to a constant array literal.
func (c *Compiler) arrayLiteral(arr *ArrayLiteral) classfile.Literal {
	out := classfile.Literal{Kind: classfile.LitArray, Elems: make([]classfile.Literal, 0, len(arr.Elements))}
	for _, elem := range arr.Elements {
		var lit classfile.Literal
		switch e := elem.(type) {
		case *IntLiteral:
			lit = classfile.Literal{Kind: classfile.LitInt, Int: e.Value}
		case *FloatLiteral:
			lit = classfile.Literal{Kind: classfile.LitFloat, Float: e.Value}
		case *StringLiteral:
			lit = classfile.Literal{Kind: classfile.LitString, Str: e.Value}
		case *SymbolLiteral:
			lit = classfile.Literal{Kind: classfile.LitSymbol, Str: e.Value}
		case *CharLiteral:
			lit = classfile.Literal{Kind: classfile.LitChar, Int: int64(e.Value)}
		case *Constant:
			lit = classfile.Literal{Kind: constLiteralKind[e.Kind]}
		case *ArrayLiteral:
			lit = c.arrayLiteral(e)
		default:
			c.errorAt(elem, "unsupported literal array element %T", elem)
		}
		out.Elems = append(out.Elems, lit)
	}
	return out
}

// addLiteral adds a literal to the current frame, returning its index.
// Scalars are shared; arrays always get a fresh slot.
func (c *Compiler) addLiteral(at Node, lit classfile.Literal) uint16 {
	f := c.frame
	key, shared := literalKeyOf(lit)
	if shared {
		if idx, ok := f.index[key]; ok {
			return uint16(idx)
		}
	}

	idx := len(f.literals)
	if idx > math.MaxUint16 {
		if at == nil {
			at = &Constant{}
		}
		c.errorAt(at, "too many literals")
		return 0
	}
	f.literals = append(f.literals, lit)
	if shared {
		f.index[key] = idx
	}
	return uint16(idx)
}

func literalKeyOf(lit classfile.Literal) (literalKey, bool) {
	switch lit.Kind {
	case classfile.LitArray:
		return literalKey{}, false
	case classfile.LitFloat:
		return literalKey{kind: lit.Kind, i: int64(math.Float64bits(lit.Float))}, true
	}
	return literalKey{kind: lit.Kind, i: lit.Int, s: lit.Str}, true
}

// ---------------------------------------------------------------------------
// Variable compilation
// ---------------------------------------------------------------------------

func (c *Compiler) compileVariable(v *Variable) {
	b := c.frame.builder
	if depth, idx, _, ok := c.frame.scope.lookup(v.Name); ok {
		if depth == 0 {
			b.EmitByte(vm.OpPushTemp, byte(idx))
		} else {
			b.EmitOuter(vm.OpPushOuterTemp, uint8(depth), uint8(idx))
		}
		return
	}
	if idx, ok := c.instVars[v.Name]; ok && !c.classSide {
		b.EmitByte(vm.OpPushIvar, byte(idx))
		return
	}
	if !isGlobalName(v.Name) {
		c.errorAt(v, "undefined variable %q", v.Name)
		return
	}
	idx := c.addLiteral(v, classfile.Literal{Kind: classfile.LitGlobal, Str: globalName(v.Name)})
	b.EmitUint16(vm.OpPushGlobal, idx)
}

// compileAssignment stores the value and leaves it on the stack; the store
// opcodes do not pop.
func (c *Compiler) compileAssignment(a *Assignment) {
	c.compileExpr(a.Value)

	b := c.frame.builder
	if depth, idx, _, ok := c.frame.scope.lookup(a.Variable); ok {
		if depth == 0 {
			b.EmitByte(vm.OpStoreTemp, byte(idx))
		} else {
			b.EmitOuter(vm.OpStoreOuterTemp, uint8(depth), uint8(idx))
		}
		return
	}
	if idx, ok := c.instVars[a.Variable]; ok && !c.classSide {
		b.EmitByte(vm.OpStoreIvar, byte(idx))
		return
	}
	c.errorAt(a, "cannot assign to %s", a.Variable)
}

// ---------------------------------------------------------------------------
// Message compilation
// ---------------------------------------------------------------------------

// emitSend emits a send of selector. A super receiver has already been
// compiled as self and turns the send into a super send.
func (c *Compiler) emitSend(at Node, receiver Expr, selector string, numArgs int) {
	op := vm.OpSend
	if isSuper(receiver) {
		op = vm.OpSendSuper
	}
	idx := c.addLiteral(at, classfile.Literal{Kind: classfile.LitSelector, Str: selector})
	c.frame.builder.EmitSend(op, idx, uint8(numArgs))
}

// compileCascade evaluates the receiver once; every message but the last
// works on a duplicate and its result is discarded.
func (c *Compiler) compileCascade(cascade *Cascade) {
	c.compileExpr(cascade.Receiver)

	last := len(cascade.Messages) - 1
	for i, msg := range cascade.Messages {
		if i < last {
			c.emit(vm.OpDUP)
		}
		for _, arg := range msg.Arguments {
			c.compileExpr(arg)
		}
		c.emitSend(cascade, cascade.Receiver, msg.Selector, len(msg.Arguments))
		if i < last {
			c.emit(vm.OpPOP)
		}
	}
}

// ---------------------------------------------------------------------------
// Block compilation
// ---------------------------------------------------------------------------

// compileBlock compiles a block body into the method's flat block list.
// Blocks have their own literal frame and reach enclosing temporaries by
// frame depth.
func (c *Compiler) compileBlock(block *Block) {
	outer := c.frame
	c.frame = newFrameGen(newScope(outer.scope, block.Parameters, block.Temps))

	stmts := block.Statements
	if len(stmts) == 0 {
		c.emit(vm.OpPushNil)
	}
	for i, stmt := range stmts {
		c.compileStmt(stmt)
		if _, ok := stmt.(*ExprStmt); ok && i < len(stmts)-1 {
			c.emit(vm.OpPOP)
		}
	}
	if !endsWithReturn(stmts) {
		c.emit(vm.OpBlockReturn)
	}

	f := c.frame
	c.frame = outer

	idx := len(c.blocks)
	if idx > math.MaxUint16 {
		c.errorAt(block, "too many blocks")
		return
	}
	c.blocks = append(c.blocks, classfile.Block{
		NumArgs:  len(block.Parameters),
		NumTemps: f.scope.size - f.scope.numArgs,
		Bytecode: f.builder.Bytes(),
		Literals: f.literals,
	})
	c.frame.builder.EmitUint16(vm.OpCreateBlock, uint16(idx))
}
