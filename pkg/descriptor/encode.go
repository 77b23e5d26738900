package descriptor

import (
	"strconv"
	"strings"
)

// Characters that may appear in names but not in C identifiers are escaped
// the way JNI mangles them, so distinct names never share an identifier.
// Package separators become a bare underscore.
var (
	classSanitizer  = strings.NewReplacer("_", "_1", "$", "_00024", "-", "_0002d", "/", "_", ".", "_")
	memberSanitizer = strings.NewReplacer("_", "_1", "$", "_00024", "-", "_0002d")
)

// SanitizeClass turns an internal or binary class name into a C identifier
// fragment: java/lang/String becomes java_lang_String and a/Outer$Inner
// becomes a_Outer_00024Inner.
func SanitizeClass(name string) string {
	return classSanitizer.Replace(name)
}

// ClassName normalizes a source-level class name (java.lang.String) into
// internal form (java/lang/String).
func ClassName(name string) string {
	return strings.NewReplacer(".", "/", "-", "_").Replace(name)
}

// Encode returns the canonical identifier for a type. Primitives use their
// Java name, references their sanitized class name, and arrays append
// _<dims>ARRAY to the element identifier.
func Encode(t Type) string {
	var base string
	if t.Kind == Object {
		base = SanitizeClass(t.Class)
	} else {
		base = t.Kind.Name()
	}
	if t.Dims == 0 {
		return base
	}
	return base + "_" + strconv.Itoa(t.Dims) + "ARRAY"
}

// EncodeDescriptor parses desc and encodes it.
func EncodeDescriptor(desc string) (string, error) {
	t, err := Parse(desc)
	if err != nil {
		return "", err
	}
	return Encode(t), nil
}

// MethodSuffix returns the signature part of a method symbol: one
// _<param> per parameter followed by _R_<return> for non-void methods.
func MethodSuffix(mt MethodType) string {
	var b strings.Builder
	for _, p := range mt.Params {
		b.WriteByte('_')
		b.WriteString(Encode(p))
	}
	if !mt.Return.IsVoid() {
		b.WriteString("_R_")
		b.WriteString(Encode(mt.Return))
	}
	return b.String()
}

// MemberName maps a method name to its symbol form.
func MemberName(name string) string {
	switch name {
	case "<init>":
		return "__INIT__"
	case "<clinit>":
		return "__CLINIT__"
	}
	return memberSanitizer.Replace(name)
}

// MethodSymbol returns the C function name of a method:
// <owner>_<name>__<suffix>.
func MethodSymbol(owner, name string, mt MethodType) string {
	return SanitizeClass(owner) + "_" + MemberName(name) + "__" + MethodSuffix(mt)
}

// VirtualSymbol returns the name of the dynamic dispatch entry for a method.
func VirtualSymbol(owner, name string, mt MethodType) string {
	return "virtual_" + MethodSymbol(owner, name, mt)
}

// ClassSymbol returns the name of the runtime class object for a type.
func ClassSymbol(t Type) string {
	if t.Dims == 0 {
		if t.Kind == Object {
			return "class__" + SanitizeClass(t.Class)
		}
		return "class__" + t.Kind.Name()
	}
	elem := t.Kind.Name()
	if t.Kind == Object {
		elem = SanitizeClass(t.Class)
	}
	return "class_array" + strconv.Itoa(t.Dims) + "__" + elem
}

// FieldSymbol returns the name of a field member in generated structs.
func FieldSymbol(owner, name string) string {
	return SanitizeClass(owner) + "_" + memberSanitizer.Replace(name)
}
