package glue

import (
	"fmt"
	"sort"
	"strings"

	"github.com/daimatz/jvmc/pkg/descriptor"
	"github.com/daimatz/jvmc/pkg/diag"
)

var javaLang = map[string]bool{
	"Boolean": true, "Byte": true, "Character": true, "CharSequence": true,
	"Class": true, "Comparable": true, "Double": true, "Enum": true,
	"Error": true, "Exception": true, "Float": true, "Integer": true,
	"Iterable": true, "Long": true, "Math": true, "Number": true,
	"Object": true, "Runnable": true, "RuntimeException": true, "Short": true,
	"String": true, "StringBuilder": true, "System": true, "Thread": true,
	"Throwable": true, "Void": true,
}

func internal(dotted string) string { return strings.ReplaceAll(dotted, ".", "/") }

func (f *File) qualify(path string) string {
	name := strings.ReplaceAll(path, ".", "$")
	if f.Package == "" {
		return name
	}
	return internal(f.Package) + "/" + name
}

// Owner returns the internal name of the class declaring m.
func (f *File) Owner(m *NativeMethod) string { return f.qualify(m.ClassName) }

// Resolve maps a type written at the top level of the file to a
// descriptor type.
func (f *File) Resolve(ref TypeRef) descriptor.Type { return f.ResolveIn("", ref) }

// ResolveIn maps a type written inside the class at the nested path scope
// to a descriptor type. Simple names are looked up among the member types
// of scope and its enclosing classes, innermost first, then the top-level
// types of the file, the imports, java.lang and the file's package.
func (f *File) ResolveIn(scope string, ref TypeRef) descriptor.Type {
	if k, ok := primitiveNames[ref.Name]; ok {
		return descriptor.Type{Kind: k, Dims: ref.Dims}
	}
	parts := strings.Split(ref.Name, ".")
	first, rest := parts[0], parts[1:]
	nested := func(base string) descriptor.Type {
		for _, r := range rest {
			base += "$" + r
		}
		return descriptor.Type{Kind: descriptor.Object, Class: base, Dims: ref.Dims}
	}
	if path, ok := f.lookup(scope, first); ok {
		return nested(f.qualify(path))
	}
	for _, imp := range f.Imports {
		if imp == first || strings.HasSuffix(imp, "."+first) {
			return nested(internal(imp))
		}
	}
	if len(rest) > 0 && first != "" && first[0] >= 'a' && first[0] <= 'z' {
		i := 0
		for i < len(parts) && (parts[i] == "" || parts[i][0] < 'A' || parts[i][0] > 'Z') {
			i++
		}
		if i < len(parts) {
			pkg := strings.Join(parts[:i], "/")
			first, rest = parts[i], parts[i+1:]
			return nested(pkg + "/" + first)
		}
		return descriptor.Type{Kind: descriptor.Object, Class: internal(ref.Name), Dims: ref.Dims}
	}
	if javaLang[first] {
		return nested("java/lang/" + first)
	}
	return nested(f.qualify(first))
}

// lookup finds the declared type a simple name denotes inside scope.
func (f *File) lookup(scope, name string) (string, bool) {
	for {
		path := name
		if scope != "" {
			path = scope + "." + name
		}
		for _, c := range f.Classes {
			if c == path {
				return c, true
			}
		}
		if scope == "" {
			return "", false
		}
		if i := strings.LastIndexByte(scope, '.'); i >= 0 {
			scope = scope[:i]
		} else {
			scope = ""
		}
	}
}

var primitiveNames = map[string]descriptor.Kind{
	"void": descriptor.Void, "boolean": descriptor.Boolean, "byte": descriptor.Byte,
	"char": descriptor.Char, "short": descriptor.Short, "int": descriptor.Int,
	"long": descriptor.Long, "float": descriptor.Float, "double": descriptor.Double,
}

// MethodType returns the resolved signature of m.
func (f *File) MethodType(m *NativeMethod) descriptor.MethodType {
	mt := descriptor.MethodType{Return: f.ResolveIn(m.ClassName, m.Return)}
	for _, p := range m.Params {
		mt.Params = append(mt.Params, f.ResolveIn(m.ClassName, p.Type))
	}
	return mt
}

// BindingName returns the C function implementing m. It is the symbol the
// translator calls for the method, so overloads get distinct names.
func BindingName(f *File, m *NativeMethod) string {
	return descriptor.MethodSymbol(f.Owner(m), m.Name, f.MethodType(m))
}

// UnitName returns the output file name for a source path.
func UnitName(path string) string {
	name := strings.TrimSuffix(strings.ReplaceAll(path, "\\", "/"), ".java")
	return descriptor.SanitizeClass(name) + "_natives.c"
}

// cleanCode normalizes inline code before it is emitted.
func cleanCode(code string) string {
	code = strings.ReplaceAll(code, "\r", "")
	code = strings.TrimLeft(code, "\n")
	code = strings.TrimRight(code, "\t")
	if !strings.HasSuffix(code, "\n") {
		code += "\n"
	}
	return code
}

// Generate produces the glue unit for one source file. out is nil when the
// file has no native method with inline code. Methods without code are
// reported as warnings and skipped.
func Generate(path, code string) (out []byte, warnings []*diag.MissingBodyWarning, err error) {
	if !strings.Contains(code, "native") {
		return nil, nil, nil
	}
	f, err := ParseFile(code)
	if err != nil {
		return nil, nil, err
	}

	var body strings.Builder
	headers := map[string]bool{}
	methods := 0
	for _, seg := range f.Segments {
		switch s := seg.(type) {
		case *JNISection:
			fmt.Fprintf(&body, "\n// @Line: %d\n%s\n", s.Line, strings.ReplaceAll(s.Code, "\r", ""))
		case *NativeMethod:
			if s.Code == nil {
				warnings = append(warnings, &diag.MissingBodyWarning{File: path, Method: s.ClassName + "." + s.Name})
				continue
			}
			headers[descriptor.SanitizeClass(f.Owner(s))] = true
			if f.method(&body, s) {
				headers["java_nio_Buffer"] = true
			}
			methods++
		}
	}
	if methods == 0 {
		return nil, warnings, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "// Generated native bindings for %s\n\n#include \"cn1_globals.h\"\n", path)
	names := make([]string, 0, len(headers))
	for h := range headers {
		names = append(names, h)
	}
	sort.Strings(names)
	for _, h := range names {
		fmt.Fprintf(&b, "#include \"%s.h\"\n", h)
	}
	b.WriteString(body.String())
	return []byte(b.String()), warnings, nil
}

// method writes the binding of m and reports whether it reads a buffer.
func (f *File) method(b *strings.Builder, m *NativeMethod) bool {
	mt := f.MethodType(m)
	types := make([]ArgumentType, len(m.Params))
	for i := range m.Params {
		types[i] = argumentType(mt.Params[i])
	}

	fmt.Fprintf(b, "\n%s %s(CODENAME_ONE_THREAD_STATE", mt.Return.CType(), BindingName(f, m))
	if !m.Static {
		b.WriteString(", JAVA_OBJECT __cn1ThisObject")
	}
	for i, p := range m.Params {
		fmt.Fprintf(b, ", %s %s", mt.Params[i].CType(), p.Name)
		if types[i].Marshalled() {
			b.WriteString("__object")
		}
	}
	b.WriteString(") {\n")

	buffers := false
	for i, p := range m.Params {
		switch a := types[i]; {
		case a.IsString():
			fmt.Fprintf(b, "    const char* %s = toNativeString(threadStateData, %s__object);\n", p.Name, p.Name)
		case a.IsBuffer():
			buffers = true
			fmt.Fprintf(b, "    %s %s = (%s)((struct obj__java_nio_Buffer*)%s__object)->java_nio_Buffer_address;\n",
				a.PointerType(), p.Name, a.PointerType(), p.Name)
		case a.IsPrimitiveArray():
			fmt.Fprintf(b, "    %s %s = (%s)((JAVA_ARRAY)%s__object)->data;\n", a.PointerType(), p.Name, a.PointerType(), p.Name)
		}
	}
	b.WriteString(cleanCode(*m.Code))
	b.WriteString("}\n")
	return buffers
}
