// Package glue generates the C bindings of native methods whose code is
// written inline in Java sources, next to the native declaration.
package glue

import (
	"strings"

	"github.com/daimatz/jvmc/pkg/diag"
)

// Segment is a piece of a source file that produces glue.
type Segment interface {
	segment()
	Start() int
}

// JNISection is a /*JNI ... */ block copied verbatim into the output.
type JNISection struct {
	Code   string
	Offset int
	Line   int
}

// TypeRef is a type as written in the source.
type TypeRef struct {
	Name string // "int", "String", "java.nio.ByteBuffer", "Outer.Inner"
	Dims int
}

// Param is one parameter of a native method.
type Param struct {
	Name string
	Type TypeRef
}

// NativeMethod is a native method declaration. Code is the block comment
// that directly follows the declaration, or nil.
type NativeMethod struct {
	ClassName string // nested path inside the file, e.g. Outer.Inner
	Name      string
	Static    bool
	Return    TypeRef
	Params    []Param
	Code      *string
	Offset    int
	Line      int
}

func (*JNISection) segment()   {}
func (*NativeMethod) segment() {}

func (s *JNISection) Start() int   { return s.Offset }
func (m *NativeMethod) Start() int { return m.Offset }

// File is the parsed view of one source file.
type File struct {
	Package  string   // dotted, "" for the default package
	Imports  []string // single type imports, dotted
	Classes  []string // nested paths of every declared type
	Segments []Segment
}

// Parse returns the segments of a source file in source order.
func Parse(code string) ([]Segment, error) {
	f, err := ParseFile(code)
	if err != nil {
		return nil, err
	}
	return f.Segments, nil
}

type scope struct {
	path  string
	depth int
}

var modifiers = map[string]bool{
	"public": true, "protected": true, "private": true, "static": true,
	"final": true, "native": true, "synchronized": true, "abstract": true,
	"strictfp": true, "default": true, "transient": true, "volatile": true,
}

// ParseFile scans a Java source file for its package, imports, declared
// types, JNI sections and native methods. Only declarations are
// understood; method bodies are skipped.
func ParseFile(code string) (*File, error) {
	toks, err := tokenize(code)
	if err != nil {
		return nil, err
	}
	f := &File{}
	var (
		stack   []scope
		depth   int
		pending string
		decl    []token
	)
	inBody := func() bool { return len(stack) > 0 && stack[len(stack)-1].depth == depth }

	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		if tok.kind == tokComment {
			if tok.isBlockComment("JNI") {
				f.Segments = append(f.Segments, &JNISection{Code: tok.text[3:], Offset: tok.offset, Line: tok.line})
			}
			continue
		}
		switch {
		case depth == 0 && len(stack) == 0 && tok.text == "package":
			name, n := qualifiedName(toks, i+1)
			f.Package = name
			i = n
		case depth == 0 && len(stack) == 0 && tok.text == "import":
			j := i + 1
			static := j < len(toks) && toks[j].text == "static"
			if static {
				j++
			}
			name, n := qualifiedName(toks, j)
			if !static && !strings.HasSuffix(name, ".*") {
				f.Imports = append(f.Imports, name)
			}
			i = n
		case isTypeKeyword(tok.text) && (i == 0 || toks[i-1].text != "."):
			if i+1 < len(toks) && toks[i+1].kind == tokIdent {
				pending = toks[i+1].text
				i++
			}
			decl = nil
		case tok.text == "{":
			depth++
			if pending != "" {
				path := pending
				if len(stack) > 0 {
					path = stack[len(stack)-1].path + "." + pending
				}
				stack = append(stack, scope{path: path, depth: depth})
				f.Classes = append(f.Classes, path)
				pending = ""
			}
			decl = nil
		case tok.text == "}":
			if inBody() {
				stack = stack[:len(stack)-1]
			}
			depth--
			decl = nil
		case tok.text == ";":
			if inBody() && hasNative(decl) {
				m, err := parseNative(decl, stack[len(stack)-1].path)
				if err != nil {
					return nil, err
				}
				if i+1 < len(toks) && toks[i+1].kind == tokComment &&
					!toks[i+1].isBlockComment("JNI") && !toks[i+1].isBlockComment("*") {
					code := toks[i+1].text
					m.Code = &code
					i++
				}
				f.Segments = append(f.Segments, m)
			}
			decl = nil
		default:
			if inBody() {
				decl = append(decl, tok)
			}
		}
	}
	return f, nil
}

func isTypeKeyword(s string) bool {
	return s == "class" || s == "interface" || s == "enum" || s == "record"
}

func hasNative(decl []token) bool {
	for _, t := range decl {
		if t.text == "native" {
			return true
		}
	}
	return false
}

// qualifiedName reads a dotted name starting at i and returns it with the
// index of the terminating semicolon.
func qualifiedName(toks []token, i int) (string, int) {
	var b strings.Builder
	for ; i < len(toks) && toks[i].text != ";"; i++ {
		if toks[i].kind != tokComment {
			b.WriteString(toks[i].text)
		}
	}
	return b.String(), i
}

// declParser walks the tokens of one member declaration.
type declParser struct {
	toks []token
	pos  int
}

func (p *declParser) peek() string {
	if p.pos < len(p.toks) {
		return p.toks[p.pos].text
	}
	return ""
}

func (p *declParser) take() string {
	s := p.peek()
	p.pos++
	return s
}

// skipBalanced skips from an opening token to its matching close.
func (p *declParser) skipBalanced(open, close string) bool {
	n := 0
	for p.pos < len(p.toks) {
		switch p.take() {
		case open:
			n++
		case close:
			n--
			if n == 0 {
				return true
			}
		}
	}
	return false
}

func (p *declParser) skipAnnotations() {
	for p.peek() == "@" && p.pos+1 < len(p.toks) && p.toks[p.pos+1].text != "interface" {
		p.pos += 2
		for p.peek() == "." {
			p.pos += 2
		}
		if p.peek() == "(" {
			p.skipBalanced("(", ")")
		}
	}
}

func (p *declParser) typeRef() (TypeRef, bool) {
	var name strings.Builder
	if p.pos >= len(p.toks) || p.toks[p.pos].kind != tokIdent {
		return TypeRef{}, false
	}
	name.WriteString(p.take())
	for p.peek() == "." && p.pos+1 < len(p.toks) && p.toks[p.pos+1].kind == tokIdent {
		p.pos++
		name.WriteString(".")
		name.WriteString(p.take())
	}
	if p.peek() == "<" && !p.skipBalanced("<", ">") {
		return TypeRef{}, false
	}
	ref := TypeRef{Name: name.String()}
	ref.Dims = p.dims()
	return ref, true
}

func (p *declParser) dims() int {
	n := 0
	for p.peek() == "[" && p.pos+1 < len(p.toks) && p.toks[p.pos+1].text == "]" {
		p.pos += 2
		n++
	}
	return n
}

func declText(decl []token) string {
	parts := make([]string, len(decl))
	for i, t := range decl {
		parts[i] = t.text
	}
	return strings.Join(parts, " ")
}

func parseNative(decl []token, class string) (*NativeMethod, error) {
	p := &declParser{toks: decl}
	m := &NativeMethod{ClassName: class, Offset: decl[0].offset, Line: decl[0].line}
	malformed := func(reason string) error {
		err := diag.Malformed(declText(decl), "%s", reason)
		err.Class = class
		return err
	}

	for {
		p.skipAnnotations()
		if !modifiers[p.peek()] {
			break
		}
		if p.take() == "static" {
			m.Static = true
		}
	}
	if p.peek() == "<" && !p.skipBalanced("<", ">") {
		return nil, malformed("unbalanced type parameters")
	}
	ret, ok := p.typeRef()
	if !ok {
		return nil, malformed("missing return type")
	}
	m.Return = ret
	if p.pos >= len(decl) || decl[p.pos].kind != tokIdent {
		return nil, malformed("missing method name")
	}
	m.Name = p.take()
	if p.take() != "(" {
		return nil, malformed("missing parameter list")
	}
	for p.peek() != ")" {
		p.skipAnnotations()
		for p.peek() == "final" {
			p.pos++
			p.skipAnnotations()
		}
		t, ok := p.typeRef()
		if !ok {
			return nil, malformed("bad parameter type")
		}
		if p.peek() == "..." {
			p.pos++
			t.Dims++
		}
		if p.pos >= len(decl) || decl[p.pos].kind != tokIdent {
			return nil, malformed("missing parameter name")
		}
		param := Param{Name: p.take(), Type: t}
		param.Type.Dims += p.dims()
		m.Params = append(m.Params, param)
		switch p.peek() {
		case ",":
			p.pos++
		case ")":
		default:
			return nil, malformed("unterminated parameter list")
		}
	}
	return m, nil
}
