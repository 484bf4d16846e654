package compiler

// Position is a location in a source unit.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based
	Column int // 1-based, in runes
}

// Span is the source range a node was parsed from.
type Span struct {
	Start Position
	End   Position
}

// MakeSpan returns the span from start to end.
func MakeSpan(start, end Position) Span {
	return Span{Start: start, End: end}
}

// Node is any syntax tree node.
type Node interface {
	Span() Span
}

// Expr is a node that produces a value.
type Expr interface {
	Node
	expr()
}

// Stmt is a node that appears in a statement list.
type Stmt interface {
	Node
	stmt()
}

// isSuper reports whether e is the super pseudo-variable.
func isSuper(e Expr) bool {
	r, ok := e.(*SelfRef)
	return ok && r.Super
}

// ---------------------------------------------------------------------------
// Literals
// ---------------------------------------------------------------------------

type IntLiteral struct {
	SpanVal Span
	Value   int64
}

type FloatLiteral struct {
	SpanVal Span
	Value   float64
}

type StringLiteral struct {
	SpanVal Span
	Value   string
}

// SymbolLiteral is #foo, or a bare word inside a literal array.
type SymbolLiteral struct {
	SpanVal Span
	Value   string
}

type CharLiteral struct {
	SpanVal Span
	Value   rune
}

// ConstKind names one of the three constant pseudo-variables.
type ConstKind uint8

const (
	ConstNil ConstKind = iota
	ConstTrue
	ConstFalse
)

// Constant is nil, true or false.
type Constant struct {
	SpanVal Span
	Kind    ConstKind
}

// ArrayLiteral is #( ... ); every element is itself a literal.
type ArrayLiteral struct {
	SpanVal  Span
	Elements []Expr
}

// DynamicArray is { e1. e2 }, built at run time.
type DynamicArray struct {
	SpanVal  Span
	Elements []Expr
}

func (n *IntLiteral) Span() Span    { return n.SpanVal }
func (n *FloatLiteral) Span() Span  { return n.SpanVal }
func (n *StringLiteral) Span() Span { return n.SpanVal }
func (n *SymbolLiteral) Span() Span { return n.SpanVal }
func (n *CharLiteral) Span() Span   { return n.SpanVal }
func (n *Constant) Span() Span      { return n.SpanVal }
func (n *ArrayLiteral) Span() Span  { return n.SpanVal }
func (n *DynamicArray) Span() Span  { return n.SpanVal }

func (*IntLiteral) expr()    {}
func (*FloatLiteral) expr()  {}
func (*StringLiteral) expr() {}
func (*SymbolLiteral) expr() {}
func (*CharLiteral) expr()   {}
func (*Constant) expr()      {}
func (*ArrayLiteral) expr()  {}
func (*DynamicArray) expr()  {}

// ---------------------------------------------------------------------------
// Names, sends and blocks
// ---------------------------------------------------------------------------

// SelfRef is self, or super when Super is set.
type SelfRef struct {
	SpanVal Span
	Super   bool
}

// Variable names an argument, temporary, instance variable or global.
// Globals written Acme::Thing arrive here already dotted.
type Variable struct {
	SpanVal Span
	Name    string
}

type Assignment struct {
	SpanVal  Span
	Variable string
	Value    Expr
}

type UnaryMessage struct {
	SpanVal  Span
	Receiver Expr
	Selector string
}

type BinaryMessage struct {
	SpanVal  Span
	Receiver Expr
	Selector string
	Argument Expr
}

// KeywordMessage holds the joined selector, e.g. at:put:.
type KeywordMessage struct {
	SpanVal   Span
	Receiver  Expr
	Selector  string
	Arguments []Expr
}

// Cascade sends every message to the value of Receiver and answers the
// result of the last one.
type Cascade struct {
	SpanVal  Span
	Receiver Expr
	Messages []CascadedMessage
}

// CascadedMessage is one part of a cascade. The number of arguments follows
// from the selector.
type CascadedMessage struct {
	Selector  string
	Arguments []Expr
}

type Block struct {
	SpanVal    Span
	Parameters []string
	Temps      []string
	Statements []Stmt
}

func (n *SelfRef) Span() Span        { return n.SpanVal }
func (n *Variable) Span() Span       { return n.SpanVal }
func (n *Assignment) Span() Span     { return n.SpanVal }
func (n *UnaryMessage) Span() Span   { return n.SpanVal }
func (n *BinaryMessage) Span() Span  { return n.SpanVal }
func (n *KeywordMessage) Span() Span { return n.SpanVal }
func (n *Cascade) Span() Span        { return n.SpanVal }
func (n *Block) Span() Span          { return n.SpanVal }

func (*SelfRef) expr()        {}
func (*Variable) expr()       {}
func (*Assignment) expr()     {}
func (*UnaryMessage) expr()   {}
func (*BinaryMessage) expr()  {}
func (*KeywordMessage) expr() {}
func (*Cascade) expr()        {}
func (*Block) expr()          {}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

type ExprStmt struct {
	SpanVal Span
	Expr    Expr
}

// Return is ^expr. Inside a block it returns from the enclosing method.
type Return struct {
	SpanVal Span
	Value   Expr
}

func (n *ExprStmt) Span() Span { return n.SpanVal }
func (n *Return) Span() Span   { return n.SpanVal }

func (*ExprStmt) stmt() {}
func (*Return) stmt()   {}

// ---------------------------------------------------------------------------
// Units
// ---------------------------------------------------------------------------

// MethodDef is a method: or classMethod: body.
type MethodDef struct {
	SpanVal    Span
	Selector   string
	Parameters []string
	Temps      []string
	Statements []Stmt
	DocString  string
	SourceText string // from "method:" to the closing bracket
	ClassSide  bool
}

// ClassDef is one "Name subclass: Super" declaration with its body.
type ClassDef struct {
	SpanVal           Span
	Name              string
	Superclass        string // "nil" declares a root class
	InstanceVariables []string
	DocString         string
	Methods           []*MethodDef
	ClassMethods      []*MethodDef
}

// Method returns the instance-side method with the given selector, or nil.
func (n *ClassDef) Method(selector string) *MethodDef {
	for _, m := range n.Methods {
		if m.Selector == selector {
			return m
		}
	}
	return nil
}

type NamespaceDecl struct {
	SpanVal Span
	Name    string
}

type ImportDecl struct {
	SpanVal Span
	Path    string // acme.tools or Acme::Tools
}

// SourceFile is a parsed unit: an optional namespace, imports, and the
// classes it declares.
type SourceFile struct {
	SpanVal   Span
	Namespace *NamespaceDecl
	Imports   []*ImportDecl
	Classes   []*ClassDef
}

func (n *MethodDef) Span() Span     { return n.SpanVal }
func (n *ClassDef) Span() Span      { return n.SpanVal }
func (n *NamespaceDecl) Span() Span { return n.SpanVal }
func (n *ImportDecl) Span() Span    { return n.SpanVal }
func (n *SourceFile) Span() Span    { return n.SpanVal }
