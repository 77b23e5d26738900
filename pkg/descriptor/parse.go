package descriptor

import (
	"strings"

	"github.com/daimatz/jvmc/pkg/diag"
)

// maxDims is the JVM limit on array dimensions.
const maxDims = 255

// Parse parses a complete field descriptor such as "I", "[J" or
// "Ljava/lang/String;".
func Parse(desc string) (Type, error) {
	t, n, err := parseType(desc, 0)
	if err != nil {
		return Type{}, err
	}
	if n != len(desc) {
		return Type{}, diag.Malformed(desc, "trailing characters after offset %d", n)
	}
	if t.IsVoid() {
		return Type{}, diag.Malformed(desc, "void is not a field type")
	}
	return t, nil
}

// ParseMethod parses a method descriptor such as "(ILjava/lang/String;)Z".
func ParseMethod(desc string) (MethodType, error) {
	if len(desc) == 0 || desc[0] != '(' {
		return MethodType{}, diag.Malformed(desc, "method descriptor must start with '('")
	}
	var mt MethodType
	i := 1
	for {
		if i >= len(desc) {
			return MethodType{}, diag.Malformed(desc, "missing ')'")
		}
		if desc[i] == ')' {
			i++
			break
		}
		p, n, err := parseType(desc, i)
		if err != nil {
			return MethodType{}, err
		}
		if p.IsVoid() {
			return MethodType{}, diag.Malformed(desc, "void parameter at offset %d", i)
		}
		mt.Params = append(mt.Params, p)
		i = n
	}
	ret, n, err := parseType(desc, i)
	if err != nil {
		return MethodType{}, err
	}
	if n != len(desc) {
		return MethodType{}, diag.Malformed(desc, "trailing characters after return type")
	}
	mt.Return = ret
	return mt, nil
}

// parseType parses one type starting at desc[i] and returns it with the
// offset just past it.
func parseType(desc string, i int) (Type, int, error) {
	start := i
	dims := 0
	for i < len(desc) && desc[i] == '[' {
		dims++
		i++
	}
	if dims > maxDims {
		return Type{}, 0, diag.Malformed(desc, "too many array dimensions (%d)", dims)
	}
	if i >= len(desc) {
		if dims > 0 {
			return Type{}, 0, diag.Malformed(desc, "unbalanced array prefix at offset %d", start)
		}
		return Type{}, 0, diag.Malformed(desc, "empty type at offset %d", start)
	}
	c := desc[i]
	if c == 'L' {
		end := strings.IndexByte(desc[i:], ';')
		if end < 0 {
			return Type{}, 0, diag.Malformed(desc, "reference type at offset %d is missing ';'", i)
		}
		name := desc[i+1 : i+end]
		if name == "" {
			return Type{}, 0, diag.Malformed(desc, "empty class name at offset %d", i)
		}
		return Type{Kind: Object, Class: name, Dims: dims}, i + end + 1, nil
	}
	k, ok := KindFromSymbol(c)
	if !ok {
		return Type{}, 0, diag.Malformed(desc, "invalid type code %q at offset %d", c, i)
	}
	if k == Void && dims > 0 {
		return Type{}, 0, diag.Malformed(desc, "array of void at offset %d", start)
	}
	return Type{Kind: k, Dims: dims}, i + 1, nil
}

// ParseClassRef parses the operand of a CONSTANT_Class entry, which is an
// internal name for classes and a field descriptor for array types.
func ParseClassRef(name string) (Type, error) {
	if strings.HasPrefix(name, "[") {
		return Parse(name)
	}
	if name == "" {
		return Type{}, diag.Malformed(name, "empty class name")
	}
	return Reference(name), nil
}
