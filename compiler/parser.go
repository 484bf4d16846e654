package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for Maggie syntax
// ---------------------------------------------------------------------------

// SyntaxError is a parse error at a source position.
type SyntaxError struct {
	Pos Position
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Msg)
}

// Parser parses Maggie source code into an AST.
type Parser struct {
	lexer     *Lexer
	curToken  Token
	peekToken Token
	errors    []*SyntaxError
	input     string // original source text (for source preservation)

	// panicking suppresses follow-on errors until the parser resynchronizes
	// at the next method or class boundary.
	panicking bool
	depth     int // brackets opened by consumed tokens
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{
		lexer: NewLexer(input),
		input: input,
	}
	// Read two tokens to fill curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	switch p.curToken.Type {
	case TokenLBracket:
		p.depth++
	case TokenRBracket:
		p.depth--
	}
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
}

func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peekToken.Type == t
}

// expect advances if the current token matches, otherwise records an error.
func (p *Parser) expect(t TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.errorf("expected %s, got %s", t, p.describe(p.curToken))
	return false
}

func (p *Parser) describe(tok Token) string {
	switch tok.Type {
	case TokenEOF:
		return "end of input"
	case TokenError:
		return tok.Literal
	case TokenIdentifier, TokenKeyword, TokenBinarySelector:
		return fmt.Sprintf("%s %q", tok.Type, tok.Literal)
	}
	return tok.Type.String()
}

// errorf records a parse error at the current token. Only the first error
// after a synchronization point is kept.
func (p *Parser) errorf(format string, args ...any) {
	if p.panicking {
		return
	}
	p.panicking = true
	p.errors = append(p.errors, &SyntaxError{Pos: p.curToken.Pos, Msg: fmt.Sprintf(format, args...)})
}

// Errors returns accumulated parse errors in source order.
func (p *Parser) Errors() []*SyntaxError {
	return p.errors
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// ParseExpression parses a single expression.
func (p *Parser) ParseExpression() Expr {
	return p.parseKeywordSend()
}

// ParseStatement parses a single statement.
func (p *Parser) ParseStatement() Stmt {
	if p.curTokenIs(TokenCaret) {
		if ret := p.parseReturn(); ret != nil {
			return ret
		}
		return nil
	}

	expr := p.parseKeywordSend()
	if expr == nil {
		return nil
	}
	return &ExprStmt{SpanVal: expr.Span(), Expr: expr}
}

// ParseStatements parses statements separated by periods, stopping at a
// closing bracket, a closing brace or the end of input.
func (p *Parser) ParseStatements() []Stmt {
	var stmts []Stmt

	for !p.curTokenIs(TokenEOF) && !p.curTokenIs(TokenRBracket) && !p.curTokenIs(TokenRBrace) {
		if p.curTokenIs(TokenPeriod) {
			p.nextToken() // empty statement
			continue
		}
		stmt := p.ParseStatement()
		if stmt == nil {
			break
		}
		stmts = append(stmts, stmt)

		if !p.curTokenIs(TokenPeriod) {
			break
		}
		p.nextToken()
	}

	return stmts
}

// ParseMethod parses a bare method definition: a signature, optional
// temporaries and statements, without surrounding brackets.
func (p *Parser) ParseMethod() *MethodDef {
	startPos := p.curToken.Pos

	selector, params := p.parseMethodSignature()
	if selector == "" {
		return nil
	}

	var temps []string
	if p.curTokenIs(TokenBar) {
		temps = p.parseTemporaries()
	}

	stmts := p.ParseStatements()
	if !p.curTokenIs(TokenEOF) {
		p.errorf("unexpected %s after method body", p.describe(p.curToken))
	}

	return &MethodDef{
		SpanVal:    MakeSpan(startPos, p.curToken.Pos),
		Selector:   selector,
		Parameters: params,
		Temps:      temps,
		Statements: stmts,
		SourceText: p.input,
	}
}

// parseMethodSignature parses a unary, binary or keyword method signature.
func (p *Parser) parseMethodSignature() (string, []string) {
	switch {
	case p.curTokenIs(TokenIdentifier):
		selector := p.curToken.Literal
		p.nextToken()
		return selector, nil

	case p.curTokenIs(TokenBinarySelector) || p.curTokenIs(TokenBar):
		selector := p.curToken.Literal
		p.nextToken()
		if !p.curTokenIs(TokenIdentifier) {
			p.errorf("expected parameter name after binary selector %s", selector)
			return "", nil
		}
		param := p.curToken.Literal
		p.nextToken()
		return selector, []string{param}

	case p.curTokenIs(TokenKeyword):
		var selector strings.Builder
		var params []string
		for p.curTokenIs(TokenKeyword) {
			selector.WriteString(p.curToken.Literal)
			p.nextToken()
			if !p.curTokenIs(TokenIdentifier) {
				p.errorf("expected parameter name after keyword")
				return "", nil
			}
			params = append(params, p.curToken.Literal)
			p.nextToken()
		}
		return selector.String(), params

	default:
		p.errorf("expected method signature, got %s", p.describe(p.curToken))
		return "", nil
	}
}

// parseTemporaries parses | temp1 temp2 |
func (p *Parser) parseTemporaries() []string {
	p.nextToken() // consume |
	var temps []string
	for p.curTokenIs(TokenIdentifier) {
		temps = append(temps, p.curToken.Literal)
		p.nextToken()
	}
	if !p.expect(TokenBar) {
		return nil
	}
	return temps
}

// parseReturn parses ^expr
func (p *Parser) parseReturn() *Return {
	startPos := p.curToken.Pos
	p.nextToken() // consume ^

	value := p.parseKeywordSend()
	if value == nil {
		return nil
	}

	return &Return{
		SpanVal: MakeSpan(startPos, value.Span().End),
		Value:   value,
	}
}

// ---------------------------------------------------------------------------
// Expression parsing (message precedence)
// ---------------------------------------------------------------------------

// parseKeywordSend parses keyword message sends (lowest precedence) and a
// trailing cascade.
func (p *Parser) parseKeywordSend() Expr {
	receiver := p.parseBinarySend()
	if receiver == nil {
		return nil
	}

	result := receiver
	if p.curTokenIs(TokenKeyword) {
		result = p.parseKeywordMessage(receiver)
		if result == nil {
			return nil
		}
	}

	if p.curTokenIs(TokenSemicolon) {
		return p.parseCascade(result)
	}
	return result
}

// parseKeywordMessage parses a keyword message with the given receiver.
func (p *Parser) parseKeywordMessage(receiver Expr) Expr {
	selector, args := p.parseKeywordParts()
	if args == nil {
		return nil
	}
	return &KeywordMessage{
		SpanVal:   MakeSpan(receiver.Span().Start, args[len(args)-1].Span().End),
		Receiver:  receiver,
		Selector:  selector,
		Arguments: args,
	}
}

// parseKeywordParts parses "key1: arg1 key2: arg2". Arguments are parsed at
// binary level; a nil argument slice signals an error.
func (p *Parser) parseKeywordParts() (string, []Expr) {
	var selector strings.Builder
	var args []Expr

	for p.curTokenIs(TokenKeyword) {
		selector.WriteString(p.curToken.Literal)
		p.nextToken()

		arg := p.parseBinarySend()
		if arg == nil {
			return "", nil
		}
		args = append(args, arg)
	}
	return selector.String(), args
}

// parseBinarySend parses binary message sends (middle precedence, left
// associative).
func (p *Parser) parseBinarySend() Expr {
	left := p.parseUnarySend()
	if left == nil {
		return nil
	}

	// '|' is a binary selector in expression context
	for p.curTokenIs(TokenBinarySelector) || p.curTokenIs(TokenBar) {
		selector := p.curToken.Literal
		p.nextToken()

		right := p.parseUnarySend()
		if right == nil {
			return nil
		}

		left = &BinaryMessage{
			SpanVal:  MakeSpan(left.Span().Start, right.Span().End),
			Receiver: left,
			Selector: selector,
			Argument: right,
		}
	}

	return left
}

// parseCascade parses "; msg" parts following a message send. The cascade
// receiver is the receiver of the first message.
func (p *Parser) parseCascade(first Expr) Expr {
	var receiver Expr
	var messages []CascadedMessage

	switch msg := first.(type) {
	case *UnaryMessage:
		receiver = msg.Receiver
		messages = append(messages, CascadedMessage{Selector: msg.Selector})
	case *BinaryMessage:
		receiver = msg.Receiver
		messages = append(messages, CascadedMessage{
			Selector:  msg.Selector,
			Arguments: []Expr{msg.Argument},
		})
	case *KeywordMessage:
		receiver = msg.Receiver
		messages = append(messages, CascadedMessage{
			Selector:  msg.Selector,
			Arguments: msg.Arguments,
		})
	default:
		p.errorf("cascade requires a message send")
		return nil
	}

	for p.curTokenIs(TokenSemicolon) {
		p.nextToken() // consume ;

		msg := p.parseCascadedMessage()
		if msg == nil {
			return nil
		}
		messages = append(messages, *msg)
	}

	return &Cascade{
		SpanVal:  MakeSpan(first.Span().Start, p.curToken.Pos),
		Receiver: receiver,
		Messages: messages,
	}
}

// parseCascadedMessage parses a single cascaded message without receiver.
func (p *Parser) parseCascadedMessage() *CascadedMessage {
	switch {
	case p.curTokenIs(TokenIdentifier):
		selector := p.curToken.Literal
		p.nextToken()
		return &CascadedMessage{Selector: selector}

	case p.curTokenIs(TokenBinarySelector) || p.curTokenIs(TokenBar):
		selector := p.curToken.Literal
		p.nextToken()
		arg := p.parseUnarySend()
		if arg == nil {
			return nil
		}
		return &CascadedMessage{Selector: selector, Arguments: []Expr{arg}}

	case p.curTokenIs(TokenKeyword):
		selector, args := p.parseKeywordParts()
		if args == nil {
			return nil
		}
		return &CascadedMessage{Selector: selector, Arguments: args}

	default:
		p.errorf("expected message in cascade, got %s", p.describe(p.curToken))
		return nil
	}
}

// parseUnarySend parses unary message sends (highest precedence).
func (p *Parser) parseUnarySend() Expr {
	primary := p.parsePrimary()
	if primary == nil {
		return nil
	}

	for p.curTokenIs(TokenIdentifier) && !p.peekTokenIs(TokenAssign) {
		end := p.curToken.Pos
		end.Offset += len(p.curToken.Literal)
		end.Column += len(p.curToken.Literal)
		primary = &UnaryMessage{
			SpanVal:  MakeSpan(primary.Span().Start, end),
			Receiver: primary,
			Selector: p.curToken.Literal,
		}
		p.nextToken()
	}

	return primary
}

// parsePrimary parses primary expressions.
func (p *Parser) parsePrimary() Expr {
	switch p.curToken.Type {
	case TokenInteger:
		return p.parseInteger()
	case TokenFloat:
		return p.parseFloat()
	case TokenString:
		return p.parseString()
	case TokenSymbol:
		return p.parseSymbol()
	case TokenCharacter:
		return p.parseCharacter()
	case TokenHashLParen:
		return p.parseLiteralArray()
	case TokenLParen:
		return p.parseParenExpr()
	case TokenLBracket:
		return p.parseBlock()
	case TokenLBrace:
		return p.parseDynamicArray()
	case TokenIdentifier:
		return p.parseIdentifier()
	case TokenSelf:
		return &SelfRef{SpanVal: p.advanceSpan()}
	case TokenSuper:
		return &SelfRef{SpanVal: p.advanceSpan(), Super: true}
	case TokenNil:
		return &Constant{SpanVal: p.advanceSpan(), Kind: ConstNil}
	case TokenTrue:
		return &Constant{SpanVal: p.advanceSpan(), Kind: ConstTrue}
	case TokenFalse:
		return &Constant{SpanVal: p.advanceSpan(), Kind: ConstFalse}
	case TokenError:
		p.errorf("%s", p.curToken.Literal)
		return nil
	default:
		p.errorf("unexpected %s", p.describe(p.curToken))
		return nil
	}
}

// advanceSpan consumes the current token and returns its span.
func (p *Parser) advanceSpan() Span {
	start := p.curToken.Pos
	end := start
	end.Offset += len(p.curToken.Literal)
	end.Column += len([]rune(p.curToken.Literal))
	p.nextToken()
	return MakeSpan(start, end)
}

// ---------------------------------------------------------------------------
// Literal parsing
// ---------------------------------------------------------------------------

// parseIntegerLiteral converts "42", "-7" or "16rFF" to an int64.
func parseIntegerLiteral(literal string) (int64, error) {
	neg := strings.HasPrefix(literal, "-")
	digits := strings.TrimPrefix(literal, "-")
	radix := 10
	if idx := strings.IndexByte(digits, 'r'); idx > 0 {
		r, err := strconv.Atoi(digits[:idx])
		if err != nil || r < 2 || r > 36 {
			return 0, fmt.Errorf("invalid radix in %s", literal)
		}
		radix = r
		digits = digits[idx+1:]
	}
	if neg {
		digits = "-" + digits
	}
	return strconv.ParseInt(digits, radix, 64)
}

func (p *Parser) parseInteger() Expr {
	literal := p.curToken.Literal
	value, err := parseIntegerLiteral(literal)
	if err != nil {
		p.errorf("invalid integer %s", literal)
		return nil
	}
	return &IntLiteral{SpanVal: p.advanceSpan(), Value: value}
}

func (p *Parser) parseFloat() Expr {
	value, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.errorf("invalid float %s", p.curToken.Literal)
		return nil
	}
	return &FloatLiteral{SpanVal: p.advanceSpan(), Value: value}
}

func (p *Parser) parseString() Expr {
	value := p.curToken.Literal
	return &StringLiteral{SpanVal: p.advanceSpan(), Value: value}
}

func (p *Parser) parseSymbol() Expr {
	value := p.curToken.Literal
	return &SymbolLiteral{SpanVal: p.advanceSpan(), Value: value}
}

func (p *Parser) parseCharacter() Expr {
	value := []rune(p.curToken.Literal)[0]
	return &CharLiteral{SpanVal: p.advanceSpan(), Value: value}
}

// parseLiteralArray parses #(...) and nested (...) inside a literal array.
func (p *Parser) parseLiteralArray() Expr {
	pos := p.curToken.Pos
	p.nextToken() // consume #( or (

	var elements []Expr
	for !p.curTokenIs(TokenRParen) && !p.curTokenIs(TokenEOF) {
		elem := p.parseLiteralArrayElement()
		if elem == nil {
			return nil
		}
		elements = append(elements, elem)
	}

	end := p.curToken.Pos
	if !p.expect(TokenRParen) {
		return nil
	}
	end.Column++
	end.Offset++

	return &ArrayLiteral{SpanVal: MakeSpan(pos, end), Elements: elements}
}

// parseBareSymbol reads the current token's text as a symbol. The text is
// taken before advancing.
func (p *Parser) parseBareSymbol() *SymbolLiteral {
	value := p.curToken.Literal
	return &SymbolLiteral{SpanVal: p.advanceSpan(), Value: value}
}

func (p *Parser) parseLiteralArrayElement() Expr {
	switch p.curToken.Type {
	case TokenInteger:
		return p.parseInteger()
	case TokenFloat:
		return p.parseFloat()
	case TokenString:
		return p.parseString()
	case TokenSymbol:
		return p.parseSymbol()
	case TokenCharacter:
		return p.parseCharacter()
	case TokenIdentifier, TokenKeyword:
		// bare words inside literal arrays are symbols
		return p.parseBareSymbol()
	case TokenBinarySelector:
		if p.curToken.Literal == "-" && (p.peekTokenIs(TokenInteger) || p.peekTokenIs(TokenFloat)) {
			p.nextToken()
			p.curToken.Literal = "-" + p.curToken.Literal
			if p.curTokenIs(TokenInteger) {
				return p.parseInteger()
			}
			return p.parseFloat()
		}
		return p.parseBareSymbol()
	case TokenHashLParen, TokenLParen:
		return p.parseLiteralArray()
	case TokenNil:
		return &Constant{SpanVal: p.advanceSpan(), Kind: ConstNil}
	case TokenTrue:
		return &Constant{SpanVal: p.advanceSpan(), Kind: ConstTrue}
	case TokenFalse:
		return &Constant{SpanVal: p.advanceSpan(), Kind: ConstFalse}
	default:
		p.errorf("unexpected %s in literal array", p.describe(p.curToken))
		return nil
	}
}

func (p *Parser) parseParenExpr() Expr {
	p.nextToken() // consume (
	expr := p.parseKeywordSend()
	if expr == nil {
		return nil
	}
	if !p.expect(TokenRParen) {
		return nil
	}
	return expr
}

// parseDynamicArray parses {expr. expr. expr}.
func (p *Parser) parseDynamicArray() Expr {
	pos := p.curToken.Pos
	p.nextToken() // consume {

	var elements []Expr
	for !p.curTokenIs(TokenRBrace) && !p.curTokenIs(TokenEOF) {
		elem := p.parseKeywordSend()
		if elem == nil {
			return nil
		}
		elements = append(elements, elem)
		if p.curTokenIs(TokenPeriod) {
			p.nextToken()
		} else if !p.curTokenIs(TokenRBrace) {
			break
		}
	}

	end := p.curToken.Pos
	if !p.expect(TokenRBrace) {
		return nil
	}
	end.Column++
	end.Offset++

	return &DynamicArray{SpanVal: MakeSpan(pos, end), Elements: elements}
}

// parseBlock parses [:a :b | | t | statements].
func (p *Parser) parseBlock() Expr {
	pos := p.curToken.Pos
	p.nextToken() // consume [

	var params []string
	for p.curTokenIs(TokenColon) {
		p.nextToken() // consume :
		if !p.curTokenIs(TokenIdentifier) {
			p.errorf("expected parameter name after ':'")
			return nil
		}
		params = append(params, p.curToken.Literal)
		p.nextToken()
	}

	if len(params) > 0 {
		// "[:x]" is accepted without the bar
		if !p.curTokenIs(TokenRBracket) && !p.expect(TokenBar) {
			return nil
		}
	}

	var temps []string
	if p.curTokenIs(TokenBar) {
		temps = p.parseTemporaries()
	}

	stmts := p.ParseStatements()

	end := p.curToken.Pos
	if !p.expect(TokenRBracket) {
		return nil
	}
	end.Column++
	end.Offset++

	return &Block{
		SpanVal:    MakeSpan(pos, end),
		Parameters: params,
		Temps:      temps,
		Statements: stmts,
	}
}

func (p *Parser) parseIdentifier() Expr {
	name := p.curToken.Literal
	span := p.advanceSpan()

	if p.curTokenIs(TokenAssign) {
		p.nextToken() // consume :=
		value := p.parseKeywordSend()
		if value == nil {
			return nil
		}
		return &Assignment{
			SpanVal:  MakeSpan(span.Start, value.Span().End),
			Variable: name,
			Value:    value,
		}
	}

	return &Variable{SpanVal: span, Name: name}
}

// ---------------------------------------------------------------------------
// Source file parsing
// ---------------------------------------------------------------------------

// ParseSourceFile parses a complete source unit.
//
// File format:
//
//	namespace: 'acme.tools'          (optional, before classes)
//	import: 'acme.util'              (zero or more, before classes)
//
//	"""Greets people."""
//	Greeter subclass: Object
//	  instanceVars: name count
//	  method: greet: who [ ^'hello ', who ]
//	  classMethod: named: aName [ ^self new setName: aName ]
func (p *Parser) ParseSourceFile() *SourceFile {
	startPos := p.curToken.Pos
	sf := &SourceFile{}

	for p.curTokenIs(TokenKeyword) {
		switch p.curToken.Literal {
		case "namespace:":
			if ns := p.parseNamespaceDecl(); ns != nil {
				if sf.Namespace != nil {
					p.errorAt(ns.SpanVal.Start, "duplicate namespace declaration")
				}
				sf.Namespace = ns
			}
			continue
		case "import:":
			if imp := p.parseImportDecl(); imp != nil {
				sf.Imports = append(sf.Imports, imp)
			}
			continue
		}
		break
	}

	var doc string
	for !p.curTokenIs(TokenEOF) {
		p.panicking = false
		switch {
		case p.curTokenIs(TokenDocstring):
			doc = p.curToken.Literal
			p.nextToken()

		case p.curTokenIs(TokenIdentifier) && p.peekTokenIs(TokenKeyword) && p.peekToken.Literal == "subclass:":
			classDef := p.parseClassDef(doc)
			if classDef != nil {
				sf.Classes = append(sf.Classes, classDef)
			}
			doc = ""

		default:
			p.errorf("expected class definition, got %s", p.describe(p.curToken))
			p.skipToClass()
		}
	}

	sf.SpanVal = MakeSpan(startPos, p.curToken.Pos)
	return sf
}

// errorAt records an error at an explicit position.
func (p *Parser) errorAt(pos Position, format string, args ...any) {
	p.errors = append(p.errors, &SyntaxError{Pos: pos, Msg: fmt.Sprintf(format, args...)})
}

// skipToClass advances to the start of the next class definition.
func (p *Parser) skipToClass() {
	for !p.curTokenIs(TokenEOF) {
		p.nextToken()
		if p.atClassStart() {
			return
		}
	}
}

func (p *Parser) atClassStart() bool {
	return (p.curTokenIs(TokenIdentifier) && p.peekTokenIs(TokenKeyword) && p.peekToken.Literal == "subclass:") ||
		p.curTokenIs(TokenDocstring)
}

// parseNameOperand parses the operand of namespace:, import: or subclass:,
// written either as a string or as a (possibly '::' qualified) identifier.
func (p *Parser) parseNameOperand(what string) (string, bool) {
	switch {
	case p.curTokenIs(TokenString), p.curTokenIs(TokenIdentifier):
		name := p.curToken.Literal
		p.nextToken()
		if name == "" {
			p.errorf("empty %s", what)
			return "", false
		}
		return name, true
	default:
		p.errorf("expected string or identifier after '%s'", what)
		return "", false
	}
}

// parseNamespaceDecl parses namespace: 'acme.tools' or namespace: Acme::Tools
func (p *Parser) parseNamespaceDecl() *NamespaceDecl {
	startPos := p.curToken.Pos
	p.nextToken() // consume "namespace:"

	name, ok := p.parseNameOperand("namespace:")
	if !ok {
		p.panicking = false
		return nil
	}
	return &NamespaceDecl{SpanVal: MakeSpan(startPos, p.curToken.Pos), Name: name}
}

// parseImportDecl parses import: 'acme.util' or import: Acme::Util
func (p *Parser) parseImportDecl() *ImportDecl {
	startPos := p.curToken.Pos
	p.nextToken() // consume "import:"

	path, ok := p.parseNameOperand("import:")
	if !ok {
		p.panicking = false
		return nil
	}
	return &ImportDecl{SpanVal: MakeSpan(startPos, p.curToken.Pos), Path: path}
}

// parseClassDef parses "Name subclass: Super" followed by the class body.
func (p *Parser) parseClassDef(doc string) *ClassDef {
	startPos := p.curToken.Pos
	className := p.curToken.Literal
	p.nextToken() // consume name
	p.nextToken() // consume "subclass:"

	var superclass string
	if p.curTokenIs(TokenNil) {
		superclass = "nil"
		p.nextToken()
	} else {
		name, ok := p.parseNameOperand("subclass:")
		if !ok {
			p.skipToClass()
			return nil
		}
		superclass = name
	}

	classDef := &ClassDef{
		Name:       className,
		Superclass: superclass,
		DocString:  doc,
	}

	var methodDoc string
	for p.inClassBody() {
		if p.curTokenIs(TokenDocstring) {
			methodDoc = p.curToken.Literal
			p.nextToken()
			continue
		}

		if !p.curTokenIs(TokenKeyword) {
			p.errorf("unexpected %s in body of class %s", p.describe(p.curToken), className)
			p.nextToken()
			continue
		}

		switch p.curToken.Literal {
		case "instanceVars:", "instanceVariables:":
			p.panicking = false
			classDef.InstanceVariables = append(classDef.InstanceVariables, p.parseInstanceVars()...)

		case "method:", "classMethod:":
			p.panicking = false
			classSide := p.curToken.Literal == "classMethod:"
			if method := p.parseMethodInBrackets(classSide); method != nil {
				method.DocString = methodDoc
				if classSide {
					classDef.ClassMethods = append(classDef.ClassMethods, method)
				} else {
					classDef.Methods = append(classDef.Methods, method)
				}
			}
			methodDoc = ""

		default:
			p.errorf("unexpected %s in body of class %s", p.describe(p.curToken), className)
			p.nextToken()
		}
	}

	classDef.SpanVal = MakeSpan(startPos, p.curToken.Pos)
	return classDef
}

// inClassBody reports whether the current token still belongs to the class
// being parsed. A docstring belongs to the next class only when that class
// definition follows it directly.
func (p *Parser) inClassBody() bool {
	switch {
	case p.curTokenIs(TokenEOF):
		return false
	case p.curTokenIs(TokenDocstring):
		return !(p.peekTokenIs(TokenIdentifier) && p.lexerPeekIsSubclass())
	}
	return !p.atClassStart()
}

// lexerPeekIsSubclass looks one token past peekToken without consuming input.
func (p *Parser) lexerPeekIsSubclass() bool {
	saved := *p.lexer
	tok := p.lexer.NextToken()
	*p.lexer = saved
	return tok.Type == TokenKeyword && tok.Literal == "subclass:"
}

// parseInstanceVars parses instanceVars: a b c, or instanceVariables: 'a b c'.
func (p *Parser) parseInstanceVars() []string {
	p.nextToken() // consume the keyword

	if p.curTokenIs(TokenString) {
		vars := strings.Fields(p.curToken.Literal)
		p.nextToken()
		return vars
	}

	var vars []string
	for p.curTokenIs(TokenIdentifier) && !p.atClassStart() {
		vars = append(vars, p.curToken.Literal)
		p.nextToken()
	}
	return vars
}

// parseMethodInBrackets parses "method: selector [body]" or
// "classMethod: selector [body]".
func (p *Parser) parseMethodInBrackets(classSide bool) *MethodDef {
	startPos := p.curToken.Pos
	p.nextToken() // consume "method:" or "classMethod:"

	selector, params := p.parseMethodSignature()
	if selector == "" {
		p.skipMethod()
		return nil
	}

	base := p.depth
	if !p.expect(TokenLBracket) {
		p.skipMethod()
		return nil
	}

	var doc string
	if p.curTokenIs(TokenDocstring) {
		doc = p.curToken.Literal
		p.nextToken()
	}

	var temps []string
	if p.curTokenIs(TokenBar) {
		temps = p.parseTemporaries()
	}

	stmts := p.ParseStatements()

	endPos := p.curToken.Pos
	if !p.panicking && !p.curTokenIs(TokenRBracket) {
		p.errorf("expected ']' to close method %s, got %s", selector, p.describe(p.curToken))
	}
	if p.panicking {
		p.skipTo(base)
		return nil
	}
	p.nextToken()

	return &MethodDef{
		SpanVal:    MakeSpan(startPos, endPos),
		Selector:   selector,
		Parameters: params,
		Temps:      temps,
		Statements: stmts,
		DocString:  doc,
		SourceText: p.input[startPos.Offset : endPos.Offset+1],
		ClassSide:  classSide,
	}
}

// skipMethod skips the bracketed body of a method whose signature failed to
// parse.
func (p *Parser) skipMethod() {
	for !p.curTokenIs(TokenEOF) && !p.curTokenIs(TokenLBracket) {
		if p.curTokenIs(TokenKeyword) && (p.curToken.Literal == "method:" || p.curToken.Literal == "classMethod:") {
			return
		}
		if p.atClassStart() {
			return
		}
		p.nextToken()
	}
	if p.curTokenIs(TokenLBracket) {
		base := p.depth
		p.nextToken()
		p.skipTo(base)
	}
}

// skipTo consumes tokens until the bracket depth falls back to depth or the
// input ends.
func (p *Parser) skipTo(depth int) {
	for p.depth > depth && !p.curTokenIs(TokenEOF) {
		p.nextToken()
	}
}
