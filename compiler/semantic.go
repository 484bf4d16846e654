package compiler

import (
	"fmt"

	"github.com/chazu/classforge/toolchain"
)

// ---------------------------------------------------------------------------
// Semantic Analyzer: Pre-codegen semantic checks
// ---------------------------------------------------------------------------

// Problem is an error or warning found by the analyzer.
type Problem struct {
	Severity toolchain.Severity
	Pos      Position
	Msg      string
}

func (p Problem) String() string {
	return fmt.Sprintf("line %d, column %d: %s: %s", p.Pos.Line, p.Pos.Column, p.Severity, p.Msg)
}

// GlobalResolver reports whether a global, written in binary form, will be
// visible to the compiled class.
type GlobalResolver func(name string) bool

// SemanticAnalyzer performs semantic analysis on the AST before code
// generation: undefined and misused variables, duplicate definitions and
// unreachable code.
type SemanticAnalyzer struct {
	problems []Problem

	knownGlobal GlobalResolver

	// per class
	instVars  map[string]bool
	classSide bool

	// per method
	scope *scope
}

// NewSemanticAnalyzer creates an analyzer. A nil resolver treats every
// global as unknown.
func NewSemanticAnalyzer(known GlobalResolver) *SemanticAnalyzer {
	if known == nil {
		known = func(string) bool { return false }
	}
	return &SemanticAnalyzer{knownGlobal: known}
}

// Problems returns accumulated problems in report order.
func (s *SemanticAnalyzer) Problems() []Problem {
	return s.problems
}

// HasErrors reports whether any error-severity problem was found.
func (s *SemanticAnalyzer) HasErrors() bool {
	for _, p := range s.problems {
		if p.Severity == toolchain.SeverityError {
			return true
		}
	}
	return false
}

func (s *SemanticAnalyzer) errorAt(node Node, format string, args ...any) {
	s.report(toolchain.SeverityError, node.Span().Start, format, args...)
}

func (s *SemanticAnalyzer) warnAt(node Node, format string, args ...any) {
	s.report(toolchain.SeverityWarning, node.Span().Start, format, args...)
}

func (s *SemanticAnalyzer) report(sev toolchain.Severity, pos Position, format string, args ...any) {
	s.problems = append(s.problems, Problem{Severity: sev, Pos: pos, Msg: fmt.Sprintf(format, args...)})
}

// SetInstanceVars sets the instance variable names visible to instance-side
// methods.
func (s *SemanticAnalyzer) SetInstanceVars(names []string) {
	s.instVars = make(map[string]bool, len(names))
	for _, name := range names {
		s.instVars[name] = true
	}
}

// AnalyzeSourceFile checks every class of a unit. unitName is the logical
// binary name the unit was submitted under; a warning is reported when no
// class matches it.
func (s *SemanticAnalyzer) AnalyzeSourceFile(sf *SourceFile, namespace, unitName string) {
	seen := make(map[string]bool, len(sf.Classes))
	matched := false
	for _, cls := range sf.Classes {
		if seen[cls.Name] {
			s.errorAt(cls, "duplicate class %s", cls.Name)
			continue
		}
		seen[cls.Name] = true
		if unitName != "" && (cls.Name == unitName || namespace+"."+cls.Name == unitName) {
			matched = true
		}
		s.AnalyzeClass(cls)
	}
	if unitName != "" && len(sf.Classes) > 0 && !matched {
		s.report(toolchain.SeverityWarning, Position{}, "unit %s declares no class named after it", unitName)
	}
}

// AnalyzeClass checks a class definition and all of its methods.
func (s *SemanticAnalyzer) AnalyzeClass(cls *ClassDef) {
	if cls.Name == cls.Superclass {
		s.errorAt(cls, "class %s cannot be its own superclass", cls.Name)
	}

	seen := make(map[string]bool, len(cls.InstanceVariables))
	for _, iv := range cls.InstanceVariables {
		if seen[iv] {
			s.errorAt(cls, "duplicate instance variable %q in %s", iv, cls.Name)
		}
		if isGlobalName(iv) {
			s.warnAt(cls, "instance variable %q of %s is capitalized", iv, cls.Name)
		}
		seen[iv] = true
	}
	if len(cls.InstanceVariables) > 255 {
		s.errorAt(cls, "class %s declares %d instance variables, at most 255 are allowed", cls.Name, len(cls.InstanceVariables))
	}
	s.SetInstanceVars(cls.InstanceVariables)

	for _, group := range [][]*MethodDef{cls.Methods, cls.ClassMethods} {
		selectors := make(map[string]bool, len(group))
		for _, m := range group {
			if selectors[m.Selector] {
				s.errorAt(m, "duplicate method %s in %s", m.Selector, cls.Name)
				continue
			}
			selectors[m.Selector] = true
			s.AnalyzeMethod(m)
		}
	}
}

// AnalyzeMethod performs semantic analysis on a method definition.
func (s *SemanticAnalyzer) AnalyzeMethod(method *MethodDef) {
	s.classSide = method.ClassSide
	s.scope = s.declare(nil, method, method.Parameters, method.Temps)
	if s.scope.size > 255 {
		s.errorAt(method, "method %s uses %d arguments and temporaries, at most 255 are allowed", method.Selector, s.scope.size)
	}

	s.analyzeStatements(method.Statements)
	s.checkUnreachableCode(method.Statements)
	s.scope = nil
}

// declare opens a frame, reporting duplicate names.
func (s *SemanticAnalyzer) declare(outer *scope, at Node, params, temps []string) *scope {
	sc := newScope(outer, nil, nil)
	for _, name := range params {
		if !sc.declare(name) {
			s.errorAt(at, "duplicate argument name %q", name)
		}
	}
	sc.numArgs = len(params)
	for _, name := range temps {
		if !sc.declare(name) {
			s.errorAt(at, "duplicate temporary name %q", name)
		}
	}
	return sc
}

func (s *SemanticAnalyzer) analyzeStatements(stmts []Stmt) {
	for _, stmt := range stmts {
		switch st := stmt.(type) {
		case *ExprStmt:
			s.analyzeExpr(st.Expr)
		case *Return:
			s.analyzeExpr(st.Value)
		}
	}
}

func (s *SemanticAnalyzer) analyzeExpr(expr Expr) {
	switch e := expr.(type) {
	case *Variable:
		s.checkVariableDefined(e)
	case *Assignment:
		s.analyzeExpr(e.Value)
		s.checkAssignmentTarget(e)
	case *UnaryMessage:
		s.analyzeReceiver(e.Receiver)
	case *BinaryMessage:
		s.analyzeReceiver(e.Receiver)
		s.analyzeExpr(e.Argument)
	case *KeywordMessage:
		s.analyzeReceiver(e.Receiver)
		for _, arg := range e.Arguments {
			s.analyzeExpr(arg)
		}
	case *Cascade:
		if isSuper(e.Receiver) {
			s.errorAt(e, "cascade to super is not supported")
		} else {
			s.analyzeExpr(e.Receiver)
		}
		for _, msg := range e.Messages {
			for _, arg := range msg.Arguments {
				s.analyzeExpr(arg)
			}
		}
	case *Block:
		s.analyzeBlock(e)
	case *DynamicArray:
		if len(e.Elements) > 255 {
			s.errorAt(e, "dynamic array has %d elements, at most 255 are allowed", len(e.Elements))
		}
		for _, elem := range e.Elements {
			s.analyzeExpr(elem)
		}
	case *SelfRef:
		if e.Super {
			s.errorAt(e, "super must be the receiver of a message")
		}
	}
}

// analyzeReceiver analyzes a message receiver, where super is allowed.
func (s *SemanticAnalyzer) analyzeReceiver(expr Expr) {
	if isSuper(expr) {
		return
	}
	s.analyzeExpr(expr)
}

// checkVariableDefined resolves a variable reference. Unknown lowercase
// names are errors; unknown globals are warnings, since they may be
// supplied by the loader at run time.
func (s *SemanticAnalyzer) checkVariableDefined(v *Variable) {
	name := v.Name
	if _, _, _, ok := s.scope.lookup(name); ok {
		return
	}
	if s.instVars[name] {
		if s.classSide {
			s.errorAt(v, "instance variable %q cannot be used in a class method", name)
		}
		return
	}
	if !isGlobalName(name) {
		s.errorAt(v, "undefined variable %q", name)
		return
	}
	if !s.knownGlobal(globalName(name)) {
		s.warnAt(v, "unknown global %s, assuming it is resolved at load time", globalName(name))
	}
}

// checkAssignmentTarget checks that an assignment stores into a temporary
// or an instance variable.
func (s *SemanticAnalyzer) checkAssignmentTarget(a *Assignment) {
	name := a.Variable
	if _, _, isArg, ok := s.scope.lookup(name); ok {
		if isArg {
			s.errorAt(a, "cannot assign to argument %q", name)
		}
		return
	}
	switch {
	case s.instVars[name] && s.classSide:
		s.errorAt(a, "instance variable %q cannot be used in a class method", name)
	case s.instVars[name]:
	case isGlobalName(name):
		s.errorAt(a, "cannot assign to global %s", globalName(name))
	default:
		s.errorAt(a, "undefined variable %q", name)
	}
}

func (s *SemanticAnalyzer) analyzeBlock(block *Block) {
	s.scope = s.declare(s.scope, block, block.Parameters, block.Temps)
	if s.scope.size > 255 {
		s.errorAt(block, "block uses %d arguments and temporaries, at most 255 are allowed", s.scope.size)
	}

	s.analyzeStatements(block.Statements)
	s.checkUnreachableCode(block.Statements)

	s.scope = s.scope.outer
}

// checkUnreachableCode warns once about statements following a return.
func (s *SemanticAnalyzer) checkUnreachableCode(stmts []Stmt) {
	for i, stmt := range stmts {
		if _, isReturn := stmt.(*Return); isReturn && i < len(stmts)-1 {
			s.warnAt(stmts[i+1], "unreachable code after return")
			return
		}
	}
}

// ---------------------------------------------------------------------------
// Convenience entry point
// ---------------------------------------------------------------------------

// Analyze runs semantic analysis on a single instance-side method.
func Analyze(method *MethodDef, instVars []string, known GlobalResolver) []Problem {
	analyzer := NewSemanticAnalyzer(known)
	analyzer.SetInstanceVars(instVars)
	analyzer.AnalyzeMethod(method)
	return analyzer.Problems()
}
