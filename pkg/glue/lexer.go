package glue

import (
	"strings"

	"github.com/daimatz/jvmc/pkg/diag"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokPunct
	tokComment
)

// token is one lexeme of a Java source file. Comments are kept since
// native code lives in them; string and character literals and line
// comments are dropped.
type token struct {
	kind   tokenKind
	text   string
	offset int
	line   int
}

// isBlockComment reports whether the token is a block comment whose body
// starts with prefix.
func (t token) isBlockComment(prefix string) bool {
	return t.kind == tokComment && strings.HasPrefix(t.text, prefix)
}

type lexer struct {
	input string
	pos   int
	line  int
}

func newLexer(input string) *lexer {
	return &lexer{input: input, line: 1}
}

func (l *lexer) peekByte(n int) byte {
	if l.pos+n < len(l.input) {
		return l.input[l.pos+n]
	}
	return 0
}

func (l *lexer) advance(n int) {
	for i := 0; i < n && l.pos < len(l.input); i++ {
		if l.input[l.pos] == '\n' {
			l.line++
		}
		l.pos++
	}
}

// next returns the next token, or a tokEOF token at the end of input.
func (l *lexer) next() (token, error) {
	for {
		for l.pos < len(l.input) && isSpace(l.input[l.pos]) {
			l.advance(1)
		}
		if l.pos >= len(l.input) {
			return token{kind: tokEOF, offset: l.pos, line: l.line}, nil
		}
		start, line := l.pos, l.line
		c := l.input[l.pos]
		switch {
		case c == '/' && l.peekByte(1) == '/':
			for l.pos < len(l.input) && l.input[l.pos] != '\n' {
				l.advance(1)
			}
		case c == '/' && l.peekByte(1) == '*':
			end := strings.Index(l.input[l.pos+2:], "*/")
			if end < 0 {
				return token{}, diag.Malformed(l.input[start:min(start+20, len(l.input))], "unterminated comment at line %d", line)
			}
			body := l.input[l.pos+2 : l.pos+2+end]
			l.advance(end + 4)
			return token{kind: tokComment, text: body, offset: start, line: line}, nil
		case c == '"' && strings.HasPrefix(l.input[l.pos:], `"""`):
			end := strings.Index(l.input[l.pos+3:], `"""`)
			if end < 0 {
				return token{}, diag.Malformed(`"""`, "unterminated text block at line %d", line)
			}
			l.advance(end + 6)
		case c == '"' || c == '\'':
			if err := l.skipQuoted(c); err != nil {
				return token{}, err
			}
		case isIdentStart(c):
			for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
				l.advance(1)
			}
			return token{kind: tokIdent, text: l.input[start:l.pos], offset: start, line: line}, nil
		case c == '.' && strings.HasPrefix(l.input[l.pos:], "..."):
			l.advance(3)
			return token{kind: tokPunct, text: "...", offset: start, line: line}, nil
		default:
			l.advance(1)
			return token{kind: tokPunct, text: string(c), offset: start, line: line}, nil
		}
	}
}

func (l *lexer) skipQuoted(quote byte) error {
	line := l.line
	l.advance(1)
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case '\\':
			l.advance(2)
			continue
		case quote:
			l.advance(1)
			return nil
		case '\n':
			return diag.Malformed(string(quote), "unterminated literal at line %d", line)
		}
		l.advance(1)
	}
	return diag.Malformed(string(quote), "unterminated literal at line %d", line)
}

// tokenize returns every token of input, without the trailing EOF.
func tokenize(input string) ([]token, error) {
	l := newLexer(input)
	var out []token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		if tok.kind == tokEOF {
			return out, nil
		}
		out = append(out, tok)
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= 0x80
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}
