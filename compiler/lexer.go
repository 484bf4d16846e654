package compiler

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for Maggie source
// ---------------------------------------------------------------------------

// Lexer tokenizes Maggie source code.
type Lexer struct {
	input   string
	pos     int  // offset of ch
	readPos int  // offset after ch
	ch      rune // current character, 0 at EOF
	line    int  // line of ch (1-based)
	col     int  // column of ch in runes (1-based)
	last    TokenType
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		last:  TokenEOF,
	}
	l.readChar()
	return l
}

// readChar advances to the next character. Line and column always describe
// the character in l.ch.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	if l.readPos >= len(l.input) {
		if l.ch != 0 {
			l.col++
		}
		l.ch = 0
		l.pos = len(l.input)
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
	l.col++
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

// peekString reports whether the input at the current character starts with s.
func (l *Lexer) peekString(s string) bool {
	return strings.HasPrefix(l.input[l.pos:], s)
}

func (l *Lexer) position() Position {
	return Position{Offset: l.pos, Line: l.line, Column: l.col}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	tok := l.scan()
	l.last = tok.Type
	return tok
}

func (l *Lexer) scan() Token {
	l.skipWhitespaceAndComments()

	pos := l.position()
	single := func(t TokenType, lit string) Token {
		l.readChar()
		return Token{Type: t, Literal: lit, Pos: pos}
	}

	switch {
	case l.ch == 0:
		return Token{Type: TokenEOF, Pos: pos}
	case l.ch == '(':
		return single(TokenLParen, "(")
	case l.ch == ')':
		return single(TokenRParen, ")")
	case l.ch == '[':
		return single(TokenLBracket, "[")
	case l.ch == ']':
		return single(TokenRBracket, "]")
	case l.ch == '{':
		return single(TokenLBrace, "{")
	case l.ch == '}':
		return single(TokenRBrace, "}")
	case l.ch == '^':
		return single(TokenCaret, "^")
	case l.ch == '.':
		return single(TokenPeriod, ".")
	case l.ch == ';':
		return single(TokenSemicolon, ";")
	case l.ch == '|':
		return single(TokenBar, "|")

	case l.ch == ':':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return Token{Type: TokenAssign, Literal: ":=", Pos: pos}
		}
		return Token{Type: TokenColon, Literal: ":", Pos: pos}

	case l.peekString(`"""`):
		return l.readDocstring(pos)
	case l.ch == '#':
		return l.readHashToken(pos)
	case l.ch == '\'':
		return l.readString(pos)
	case l.ch == '$':
		return l.readCharacter(pos)
	case isDigit(l.ch):
		return l.readNumber(pos)
	case l.ch == '-' && isDigit(l.peekChar()) && !l.last.endsOperand():
		return l.readNumber(pos)
	case isLetter(l.ch) || l.ch == '_':
		return l.readIdentifierOrKeyword(pos)
	case IsBinaryChar(l.ch):
		return l.readBinarySelector(pos)

	default:
		ch := l.ch
		l.readChar()
		return Token{Type: TokenError, Literal: fmt.Sprintf("unexpected character %q", ch), Pos: pos}
	}
}

// skipWhitespaceAndComments skips whitespace, "quoted" comments and
// '# ' line comments. Triple-quoted docstrings are left for NextToken.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for unicode.IsSpace(l.ch) {
			l.readChar()
		}

		if l.ch == '"' && !l.peekString(`"""`) {
			l.readChar()
			for l.ch != '"' && l.ch != 0 {
				l.readChar()
			}
			if l.ch == '"' {
				l.readChar()
			}
			continue
		}

		if l.ch == '#' {
			peek := l.peekChar()
			if peek == 0 || unicode.IsSpace(peek) {
				for l.ch != '\n' && l.ch != 0 {
					l.readChar()
				}
				continue
			}
		}

		return
	}
}

// readHashToken reads a token starting with #.
func (l *Lexer) readHashToken(pos Position) Token {
	l.readChar() // consume #

	switch {
	case l.ch == '(':
		l.readChar()
		return Token{Type: TokenHashLParen, Literal: "#(", Pos: pos}

	case l.ch == '\'':
		tok := l.readString(pos)
		if tok.Type == TokenString {
			tok.Type = TokenSymbol
		}
		return tok

	case isLetter(l.ch) || l.ch == '_':
		return l.readSymbol(pos)

	case IsBinaryChar(l.ch):
		start := l.pos
		for IsBinaryChar(l.ch) {
			l.readChar()
		}
		return Token{Type: TokenSymbol, Literal: l.input[start:l.pos], Pos: pos}

	default:
		return Token{Type: TokenHash, Literal: "#", Pos: pos}
	}
}

// readSymbol reads #foo, #foo: or #at:put:.
func (l *Lexer) readSymbol(pos Position) Token {
	start := l.pos
	for {
		for isIdentChar(l.ch) {
			l.readChar()
		}
		if l.ch != ':' {
			break
		}
		l.readChar()
		if !isLetter(l.ch) && l.ch != '_' {
			break
		}
	}
	return Token{Type: TokenSymbol, Literal: l.input[start:l.pos], Pos: pos}
}

// readDocstring reads a triple-quoted docstring: """..."""
func (l *Lexer) readDocstring(pos Position) Token {
	for i := 0; i < 3; i++ {
		l.readChar()
	}

	start := l.pos
	for l.ch != 0 {
		if l.peekString(`"""`) {
			body := l.input[start:l.pos]
			for i := 0; i < 3; i++ {
				l.readChar()
			}
			return Token{Type: TokenDocstring, Literal: dedentDocstring(body), Pos: pos}
		}
		l.readChar()
	}

	return Token{Type: TokenError, Literal: "unterminated docstring", Pos: pos}
}

// dedentDocstring strips the common leading whitespace of every line after
// the first, then trims the result.
func dedentDocstring(s string) string {
	lines := strings.Split(s, "\n")

	minIndent := -1
	for _, line := range lines[1:] {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			continue
		}
		if indent := len(line) - len(trimmed); minIndent == -1 || indent < minIndent {
			minIndent = indent
		}
	}

	if minIndent > 0 {
		for i := 1; i < len(lines); i++ {
			if len(lines[i]) >= minIndent {
				lines[i] = lines[i][minIndent:]
			}
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// readString reads a quoted literal in which a doubled quote stands for one
// quote. The current character must be the opening quote.
func (l *Lexer) readString(pos Position) Token {
	l.readChar() // consume opening '

	var sb strings.Builder
	for l.ch != 0 {
		if l.ch == '\'' {
			if l.peekChar() != '\'' {
				l.readChar()
				return Token{Type: TokenString, Literal: sb.String(), Pos: pos}
			}
			l.readChar()
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}

	return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
}

// readCharacter reads a character literal.
func (l *Lexer) readCharacter(pos Position) Token {
	l.readChar() // consume $

	if l.ch == 0 {
		return Token{Type: TokenError, Literal: "unexpected EOF in character literal", Pos: pos}
	}

	ch := l.ch
	l.readChar()
	return Token{Type: TokenCharacter, Literal: string(ch), Pos: pos}
}

// readNumber reads an integer or float literal, including radix integers
// such as 16rFF.
func (l *Lexer) readNumber(pos Position) Token {
	start := l.pos
	if l.ch == '-' {
		l.readChar()
	}
	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == 'r' && isRadixDigit(l.peekChar()) {
		l.readChar()
		for isRadixDigit(l.ch) {
			l.readChar()
		}
		return Token{Type: TokenInteger, Literal: l.input[start:l.pos], Pos: pos}
	}

	isFloat := false
	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || next == '+' || next == '-' {
			isFloat = true
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}

	if isFloat {
		return Token{Type: TokenFloat, Literal: l.input[start:l.pos], Pos: pos}
	}
	return Token{Type: TokenInteger, Literal: l.input[start:l.pos], Pos: pos}
}

// readIdentifierOrKeyword reads an identifier, a keyword, or a qualified
// name written with '::' (Acme::Tools::Greeter).
func (l *Lexer) readIdentifierOrKeyword(pos Position) Token {
	start := l.pos
	for isIdentChar(l.ch) {
		l.readChar()
	}

	qualified := false
	for l.ch == ':' && l.peekChar() == ':' {
		l.readChar()
		l.readChar()
		if !isLetter(l.ch) && l.ch != '_' {
			return Token{Type: TokenError, Literal: "expected name after '::'", Pos: pos}
		}
		qualified = true
		for isIdentChar(l.ch) {
			l.readChar()
		}
	}

	literal := l.input[start:l.pos]
	if qualified {
		return Token{Type: TokenIdentifier, Literal: literal, Pos: pos}
	}

	if l.ch == ':' && l.peekChar() != '=' {
		l.readChar()
		return Token{Type: TokenKeyword, Literal: literal + ":", Pos: pos}
	}

	if tokType, ok := reservedWords[literal]; ok {
		return Token{Type: tokType, Literal: literal, Pos: pos}
	}
	return Token{Type: TokenIdentifier, Literal: literal, Pos: pos}
}

// readBinarySelector reads a binary selector. A '-' that follows another
// selector character is only consumed when it cannot start a number.
func (l *Lexer) readBinarySelector(pos Position) Token {
	start := l.pos
	l.readChar()
	for IsBinaryChar(l.ch) && !(l.ch == '-' && isDigit(l.peekChar())) {
		l.readChar()
	}
	return Token{Type: TokenBinarySelector, Literal: l.input[start:l.pos], Pos: pos}
}

func isLetter(r rune) bool {
	return unicode.IsLetter(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentChar(r rune) bool {
	return isLetter(r) || isDigit(r) || r == '_'
}

func isRadixDigit(r rune) bool {
	return isDigit(r) || (r >= 'A' && r <= 'Z')
}

// Tokenize returns all tokens from the input, stopping after EOF or the
// first error token.
func Tokenize(input string) []Token {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			return tokens
		}
	}
}
