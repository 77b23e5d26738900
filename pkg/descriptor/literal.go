package descriptor

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// BoolLiteral renders a boolean constant.
func BoolLiteral(v bool) string {
	if v {
		return "JAVA_TRUE"
	}
	return "JAVA_FALSE"
}

// IntLiteral renders an int constant. MIN_VALUE has no decimal literal in C
// so it goes through its bit pattern.
func IntLiteral(v int32) string {
	if v == math.MinInt32 {
		return "((JAVA_INT)0x80000000)"
	}
	return strconv.FormatInt(int64(v), 10)
}

// LongLiteral renders a long constant.
func LongLiteral(v int64) string {
	if v == math.MinInt64 {
		return "((JAVA_LONG)0x8000000000000000LL)"
	}
	return strconv.FormatInt(v, 10) + "LL"
}

// FloatLiteral renders a float constant.
func FloatLiteral(v float32) string {
	f := float64(v)
	switch {
	case math.IsNaN(f):
		return "(0.0f/0.0f)"
	case math.IsInf(f, 1):
		return "(1.0f/0.0f)"
	case math.IsInf(f, -1):
		return "(-1.0f/0.0f)"
	}
	return withPoint(strconv.FormatFloat(f, 'g', -1, 32)) + "f"
}

// DoubleLiteral renders a double constant.
func DoubleLiteral(v float64) string {
	switch {
	case math.IsNaN(v):
		return "(0.0/0.0)"
	case math.IsInf(v, 1):
		return "(1.0/0.0)"
	case math.IsInf(v, -1):
		return "(-1.0/0.0)"
	}
	return withPoint(strconv.FormatFloat(v, 'g', -1, 64))
}

func withPoint(s string) string {
	if strings.ContainsAny(s, ".eE") {
		return s
	}
	return s + ".0"
}

// StringLiteral renders s as a C string literal. Non-ASCII and control
// characters are written as octal escapes of their UTF-8 bytes.
func StringLiteral(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if c < 0x20 || c >= 0x7f {
				fmt.Fprintf(&b, "\\%03o", c)
			} else {
				b.WriteByte(c)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

// Literal renders a constant value of a Go type produced by the class file
// parser. The second result is false for unsupported values.
func Literal(v any) (string, bool) {
	switch x := v.(type) {
	case bool:
		return BoolLiteral(x), true
	case int32:
		return IntLiteral(x), true
	case int64:
		return LongLiteral(x), true
	case float32:
		return FloatLiteral(x), true
	case float64:
		return DoubleLiteral(x), true
	case uint16:
		return strconv.Itoa(int(x)), true
	case int8:
		return strconv.Itoa(int(x)), true
	case int16:
		return strconv.Itoa(int(x)), true
	}
	return "", false
}
