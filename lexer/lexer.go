package lexer

import (
	"strings"
	"sync"

	"github.com/feathersql/feather/diagnostic"
)

// Lexer scans a SQL source string into Tokens, one at a time, with one
// token of lookahead via Peek. It never throws away source position: even
// an invalid character becomes an Invalid token carrying its own range, and
// a diagnostic is appended to Diagnostics.
//
// Lexing is idempotent and restartable: two Lexers over the same text
// starting from the same offset produce the same token stream.
type Lexer struct {
	src string

	pos  int // byte offset of the next unread rune
	line int
	col  int

	peeked    bool
	peekedTok Token

	Diagnostics *diagnostic.Bag
}

var pool = sync.Pool{New: func() any { return &Lexer{} }}

// New returns a Lexer over src, starting at byte offset 0.
func New(src string) *Lexer {
	return &Lexer{src: src, line: 1, col: 1, Diagnostics: diagnostic.NewBag()}
}

// Get borrows a pooled Lexer for src; return it with Put when done. Useful
// for the compiler's hot path of re-lexing a statement it already knows is
// valid (e.g. an observation re-running its query).
func Get(src string) *Lexer {
	l := pool.Get().(*Lexer)
	l.Reset(src)
	return l
}

func Put(l *Lexer) {
	pool.Put(l)
}

// Reset restarts l over src at offset 0.
func (l *Lexer) Reset(src string) {
	l.src = src
	l.pos = 0
	l.line = 1
	l.col = 1
	l.peeked = false
	l.peekedTok = Token{}
	l.Diagnostics = diagnostic.NewBag()
}

// ResetAt restarts l over src starting at a given byte offset, preserving
// line/col as if the lexer had already consumed src[:offset] on a single
// line (callers who need exact multi-line restart accuracy should instead
// scan from 0).
func (l *Lexer) ResetAt(src string, offset int) {
	l.Reset(src)
	l.pos = offset
	l.col = 1 + offset
}

func (l *Lexer) byteAt(i int) byte {
	if i < 0 || i >= len(l.src) {
		return 0
	}
	return l.src[i]
}

func (l *Lexer) cur() byte  { return l.byteAt(l.pos) }
func (l *Lexer) next1() byte { return l.byteAt(l.pos + 1) }

func (l *Lexer) advance() byte {
	c := l.cur()
	l.pos++
	if c == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return c
}

// Next returns and consumes the next token.
func (l *Lexer) Next() Token {
	if l.peeked {
		l.peeked = false
		return l.peekedTok
	}
	return l.scan()
}

// Peek returns the next token without consuming it.
func (l *Lexer) Peek() Token {
	if !l.peeked {
		l.peekedTok = l.scan()
		l.peeked = true
	}
	return l.peekedTok
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (l *Lexer) skipTrivia() {
	for {
		c := l.cur()
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance()
		case c == '-' && l.next1() == '-':
			for l.cur() != 0 && l.cur() != '\n' {
				l.advance()
			}
		case c == '/' && l.next1() == '*':
			l.advance()
			l.advance()
			for {
				if l.cur() == 0 {
					return
				}
				if l.cur() == '*' && l.next1() == '/' {
					l.advance()
					l.advance()
					break
				}
				l.advance()
			}
		default:
			return
		}
	}
}

func (l *Lexer) mark() (pos, line, col int) {
	return l.pos, l.line, l.col
}

func (l *Lexer) loc(startPos, startLine, startCol int) diagnostic.Location {
	return diagnostic.Location{
		Start: startPos, End: l.pos,
		StartLine: startLine, StartCol: startCol,
		EndLine: l.line, EndCol: l.col,
	}
}

func (l *Lexer) scan() Token {
	l.skipTrivia()
	if l.cur() == 0 && l.pos >= len(l.src) {
		p, ln, col := l.mark()
		return Token{Kind: EOF, Loc: l.loc(p, ln, col)}
	}

	startPos, startLine, startCol := l.mark()
	c := l.cur()

	switch {
	case (c == 'x' || c == 'X') && l.next1() == '\'':
		return l.scanBlob(startPos, startLine, startCol)
	case isIdentStart(c):
		return l.scanIdentOrKeyword(startPos, startLine, startCol)
	case isDigit(c):
		return l.scanNumber(startPos, startLine, startCol)
	case c == '.' && isDigit(l.next1()):
		return l.scanNumber(startPos, startLine, startCol)
	case c == '\'':
		return l.scanString(startPos, startLine, startCol)
	case c == '"' || c == '`' || c == '[':
		return l.scanQuotedIdent(startPos, startLine, startCol)
	case c == '?':
		return l.scanPositionalBind(startPos, startLine, startCol)
	case c == ':' || c == '@' || c == '$':
		return l.scanNamedBind(startPos, startLine, startCol)
	default:
		return l.scanOperator(startPos, startLine, startCol)
	}
}

func (l *Lexer) scanIdentOrKeyword(startPos, startLine, startCol int) Token {
	for isIdentCont(l.cur()) {
		l.advance()
	}
	text := l.src[startPos:l.pos]
	loc := l.loc(startPos, startLine, startCol)
	if kind, ok := IsKeyword(strings.ToLower(text)); ok {
		return Token{Kind: kind, Text: text, Loc: loc}
	}
	return Token{Kind: Ident, Text: text, Loc: loc}
}

func (l *Lexer) scanQuotedIdent(startPos, startLine, startCol int) Token {
	open := l.advance()
	closeCh := open
	switch open {
	case '[':
		closeCh = ']'
	}
	for {
		c := l.cur()
		if c == 0 {
			loc := l.loc(startPos, startLine, startCol)
			l.Diagnostics.Errorf(loc, "unterminated quoted identifier")
			return Token{Kind: Invalid, Text: l.src[startPos:l.pos], Loc: loc}
		}
		if c == closeCh {
			l.advance()
			if closeCh != ']' && l.cur() == closeCh {
				// doubled-quote escape, e.g. "a""b"
				l.advance()
				continue
			}
			break
		}
		l.advance()
	}
	loc := l.loc(startPos, startLine, startCol)
	return Token{Kind: Ident, Text: l.src[startPos:l.pos], Loc: loc}
}

func (l *Lexer) scanNumber(startPos, startLine, startCol int) Token {
	if l.cur() == '0' && (l.next1() == 'x' || l.next1() == 'X') {
		l.advance()
		l.advance()
		for isHexDigit(l.cur()) {
			l.advance()
		}
		loc := l.loc(startPos, startLine, startCol)
		return Token{Kind: Number, Text: l.src[startPos:l.pos], Loc: loc}
	}

	for isDigit(l.cur()) {
		l.advance()
	}
	if l.cur() == '.' {
		l.advance()
		for isDigit(l.cur()) {
			l.advance()
		}
	}
	if l.cur() == 'e' || l.cur() == 'E' {
		save := l.pos
		l.advance()
		if l.cur() == '+' || l.cur() == '-' {
			l.advance()
		}
		if isDigit(l.cur()) {
			for isDigit(l.cur()) {
				l.advance()
			}
		} else {
			l.pos = save
		}
	}
	loc := l.loc(startPos, startLine, startCol)
	return Token{Kind: Number, Text: l.src[startPos:l.pos], Loc: loc}
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func (l *Lexer) scanString(startPos, startLine, startCol int) Token {
	l.advance() // opening '
	for {
		c := l.cur()
		if c == 0 {
			loc := l.loc(startPos, startLine, startCol)
			l.Diagnostics.Errorf(loc, "unterminated string literal")
			return Token{Kind: Invalid, Text: l.src[startPos:l.pos], Loc: loc}
		}
		if c == '\'' {
			l.advance()
			if l.cur() == '\'' {
				l.advance() // '' escape
				continue
			}
			break
		}
		l.advance()
	}
	loc := l.loc(startPos, startLine, startCol)
	return Token{Kind: String, Text: l.src[startPos:l.pos], Loc: loc}
}

func (l *Lexer) scanBlob(startPos, startLine, startCol int) Token {
	l.advance() // x/X
	l.advance() // '
	for isHexDigit(l.cur()) {
		l.advance()
	}
	if l.cur() != '\'' {
		loc := l.loc(startPos, startLine, startCol)
		l.Diagnostics.Errorf(loc, "unterminated blob literal")
		return Token{Kind: Invalid, Text: l.src[startPos:l.pos], Loc: loc}
	}
	l.advance()
	loc := l.loc(startPos, startLine, startCol)
	return Token{Kind: Blob, Text: l.src[startPos:l.pos], Loc: loc}
}

func (l *Lexer) scanPositionalBind(startPos, startLine, startCol int) Token {
	l.advance() // ?
	for isDigit(l.cur()) {
		l.advance()
	}
	loc := l.loc(startPos, startLine, startCol)
	return Token{Kind: BindParam, Text: l.src[startPos:l.pos], Loc: loc}
}

func (l *Lexer) scanNamedBind(startPos, startLine, startCol int) Token {
	l.advance() // : @ $
	for isIdentCont(l.cur()) {
		l.advance()
	}
	loc := l.loc(startPos, startLine, startCol)
	return Token{Kind: BindParam, Text: l.src[startPos:l.pos], Loc: loc}
}

func (l *Lexer) scanOperator(startPos, startLine, startCol int) Token {
	c := l.advance()
	two := func(k Kind) Token {
		l.advance()
		return Token{Kind: k, Text: l.src[startPos:l.pos], Loc: l.loc(startPos, startLine, startCol)}
	}
	three := func(k Kind) Token {
		l.advance()
		l.advance()
		return Token{Kind: k, Text: l.src[startPos:l.pos], Loc: l.loc(startPos, startLine, startCol)}
	}
	one := func(k Kind) Token {
		return Token{Kind: k, Text: l.src[startPos:l.pos], Loc: l.loc(startPos, startLine, startCol)}
	}

	switch c {
	case '+':
		return one(Plus)
	case '-':
		if l.cur() == '>' {
			if l.next1() == '>' {
				return three(Arrow2)
			}
			return two(Arrow)
		}
		return one(Minus)
	case '*':
		return one(Star)
	case '/':
		return one(Slash)
	case '%':
		return one(Percent)
	case '&':
		return one(Amp)
	case '|':
		if l.cur() == '|' {
			return two(PipePipe)
		}
		return one(Pipe)
	case '<':
		if l.cur() == '<' {
			return two(Shl)
		}
		if l.cur() == '=' {
			return two(Le)
		}
		if l.cur() == '>' {
			return two(Ne2)
		}
		return one(Lt)
	case '>':
		if l.cur() == '>' {
			return two(Shr)
		}
		if l.cur() == '=' {
			return two(Ge)
		}
		return one(Gt)
	case '=':
		if l.cur() == '=' {
			return two(EqEq)
		}
		return one(Eq)
	case '!':
		if l.cur() == '=' {
			return two(Ne)
		}
		loc := l.loc(startPos, startLine, startCol)
		l.Diagnostics.Errorf(loc, "invalid character '!'")
		return Token{Kind: Invalid, Text: l.src[startPos:l.pos], Loc: loc}
	case '~':
		return one(Tilde)
	case '(':
		return one(LParen)
	case ')':
		return one(RParen)
	case ',':
		return one(Comma)
	case '.':
		return one(Dot)
	case ';':
		return one(Semi)
	default:
		loc := l.loc(startPos, startLine, startCol)
		l.Diagnostics.Errorf(loc, "invalid character %q", c)
		return Token{Kind: Invalid, Text: l.src[startPos:l.pos], Loc: loc}
	}
}
