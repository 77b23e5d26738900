package glue

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/daimatz/jvmc/pkg/descriptor"
	"github.com/daimatz/jvmc/pkg/diag"
	"github.com/daimatz/jvmc/pkg/sink"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const natives = `package com.example;

import java.nio.ByteBuffer;

public class Natives {
	/*JNI
	#include <string.h>
	*/

	private static final String LABEL = "{ native } /* not a comment";
	private Class<?> self = Natives.class;

	// native code for the check
	public static native boolean check(int count, String name); /*
		return strlen(name) == count;
	*/

	public native void fill(ByteBuffer buf, int[] values);/*
		buf[0] = values[0];
	*/

	static native int size(int a); /* return a; */
	static native int size(long a); /* return (int)a; */

	public native void missing(Object o);

	/** Documented. */
	@Deprecated
	public static native <T> void many(final java.util.List<String> list, byte b[], int... xs);
	/** Not code. */

	void body() {
		Runnable r = new Runnable() { public void run() {} };
	}

	static class Inner {
		native float scale(float[] f, Helper h); /* return f[0]; */
	}

	static class Helper {}
}
`

func methods(segs []Segment) []*NativeMethod {
	var out []*NativeMethod
	for _, s := range segs {
		if m, ok := s.(*NativeMethod); ok {
			out = append(out, m)
		}
	}
	return out
}

func TestParseFile(t *testing.T) {
	f, err := ParseFile(natives)
	require.NoError(t, err)

	assert.Equal(t, "com.example", f.Package)
	assert.Equal(t, []string{"java.nio.ByteBuffer"}, f.Imports)
	assert.Equal(t, []string{"Natives", "Natives.Inner", "Natives.Helper"}, f.Classes)

	jni, ok := f.Segments[0].(*JNISection)
	require.True(t, ok)
	assert.Contains(t, jni.Code, "#include <string.h>")
	assert.Equal(t, 6, jni.Line)

	ms := methods(f.Segments)
	require.Len(t, ms, 7)

	check := ms[0]
	assert.Equal(t, "Natives", check.ClassName)
	assert.Equal(t, "check", check.Name)
	assert.True(t, check.Static)
	assert.Equal(t, TypeRef{Name: "boolean"}, check.Return)
	assert.Equal(t, []Param{{Name: "count", Type: TypeRef{Name: "int"}}, {Name: "name", Type: TypeRef{Name: "String"}}}, check.Params)
	require.NotNil(t, check.Code)
	assert.Contains(t, *check.Code, "return strlen(name) == count;")
	assert.Equal(t, 14, check.Line)

	assert.False(t, ms[1].Static)
	assert.Equal(t, "missing", ms[4].Name)
	assert.Nil(t, ms[4].Code)

	many := ms[5]
	assert.Nil(t, many.Code, "javadoc is not native code")
	assert.Equal(t, []Param{
		{Name: "list", Type: TypeRef{Name: "java.util.List"}},
		{Name: "b", Type: TypeRef{Name: "byte", Dims: 1}},
		{Name: "xs", Type: TypeRef{Name: "int", Dims: 1}},
	}, many.Params)

	assert.Equal(t, "Natives.Inner", ms[6].ClassName)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		code string
	}{
		{"unterminated comment", "class A { native void f(); /* oops"},
		{"unterminated string", "class A { String s = \"abc\n; native void f(); }"},
		{"missing parameter list", "class A { native void f; }"},
		{"missing parameter name", "class A { native void f(int); }"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.code)
			var mal *diag.MalformedInputError
			assert.ErrorAs(t, err, &mal)
		})
	}
}

func TestResolve(t *testing.T) {
	f := &File{
		Package: "com.example",
		Imports: []string{"java.nio.ByteBuffer", "java.util.Map"},
		Classes: []string{"Natives", "Natives.Inner", "K", "K.A", "K.A.B", "K.B"},
	}
	tests := []struct {
		scope string
		ref   TypeRef
		want  descriptor.Type
	}{
		{"Natives", TypeRef{Name: "int"}, descriptor.Primitive(descriptor.Int)},
		{"Natives", TypeRef{Name: "long", Dims: 2}, descriptor.Type{Kind: descriptor.Long, Dims: 2}},
		{"Natives", TypeRef{Name: "ByteBuffer"}, descriptor.Reference("java/nio/ByteBuffer")},
		{"Natives", TypeRef{Name: "Map.Entry"}, descriptor.Reference("java/util/Map$Entry")},
		{"Natives", TypeRef{Name: "Inner"}, descriptor.Reference("com/example/Natives$Inner")},
		{"Natives.Inner", TypeRef{Name: "Inner"}, descriptor.Reference("com/example/Natives$Inner")},
		{"Natives", TypeRef{Name: "String", Dims: 1}, descriptor.Type{Kind: descriptor.Object, Class: "java/lang/String", Dims: 1}},
		{"Natives", TypeRef{Name: "java.io.File"}, descriptor.Reference("java/io/File")},
		{"Natives", TypeRef{Name: "Other"}, descriptor.Reference("com/example/Other")},
		{"", TypeRef{Name: "Inner"}, descriptor.Reference("com/example/Inner")},
		{"K", TypeRef{Name: "B"}, descriptor.Reference("com/example/K$B")},
		{"K.A", TypeRef{Name: "B"}, descriptor.Reference("com/example/K$A$B")},
		{"K.A.B", TypeRef{Name: "B"}, descriptor.Reference("com/example/K$A$B")},
		{"K.B", TypeRef{Name: "A.B"}, descriptor.Reference("com/example/K$A$B")},
		{"Natives", TypeRef{Name: "K"}, descriptor.Reference("com/example/K")},
	}
	for _, tt := range tests {
		t.Run(tt.scope+"/"+tt.ref.Name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.ResolveIn(tt.scope, tt.ref))
		})
	}
	assert.Equal(t, descriptor.Reference("com/example/K"), f.Resolve(TypeRef{Name: "K"}))
}

func TestNestedTypeShadowing(t *testing.T) {
	code := `package app;

class K {
	class A {
		class B {}
		native void m(B b); /* */
	}
	class B {}
	native void m(B b); /* */
}
`
	f, err := ParseFile(code)
	require.NoError(t, err)
	assert.Equal(t, []string{"K", "K.A", "K.A.B", "K.B"}, f.Classes)

	ms := methods(f.Segments)
	require.Len(t, ms, 2)
	assert.Equal(t, "app_K_00024A_m___app_K_00024A_00024B", BindingName(f, ms[0]))
	assert.Equal(t, "app_K_m___app_K_00024B", BindingName(f, ms[1]))
}

func TestOverloadsWithSimilarNames(t *testing.T) {
	code := `package app;

class K {
	native void m(lib.X_Y a); /* */
	native void m(lib.X.Y a); /* */
	native void m(lib.X_Y.Z a); /* */
}
`
	f, err := ParseFile(code)
	require.NoError(t, err)
	ms := methods(f.Segments)
	require.Len(t, ms, 3)

	seen := map[string]int{}
	for i, m := range ms {
		name := BindingName(f, m)
		if j, ok := seen[name]; ok {
			t.Errorf("overloads %d and %d share the binding %q", j, i, name)
		}
		seen[name] = i
	}
	assert.Equal(t, "app_K_m___lib_X_1Y", BindingName(f, ms[0]))
	assert.Equal(t, "app_K_m___lib_X_Y", BindingName(f, ms[1]))
}

func TestArgumentType(t *testing.T) {
	tests := []struct {
		typ       descriptor.Type
		want      ArgumentType
		pointer   string
		marshaled bool
	}{
		{descriptor.Primitive(descriptor.Int), Integer, "", false},
		{descriptor.Primitive(descriptor.Boolean), Boolean, "", false},
		{descriptor.Type{Kind: descriptor.Int, Dims: 1}, IntegerArray, "JAVA_ARRAY_INT*", true},
		{descriptor.Type{Kind: descriptor.Byte, Dims: 1}, ByteArray, "JAVA_ARRAY_BYTE*", true},
		{descriptor.Type{Kind: descriptor.Int, Dims: 2}, ObjectArray, "", false},
		{descriptor.Reference("java/lang/String"), String, "", true},
		{descriptor.Reference("java/nio/ByteBuffer"), ByteBuffer, "JAVA_ARRAY_BYTE*", true},
		{descriptor.Reference("java/nio/FloatBuffer"), FloatBuffer, "JAVA_ARRAY_FLOAT*", true},
		{descriptor.Reference("java/lang/Class"), Class, "", false},
		{descriptor.Reference("java/lang/Throwable"), Throwable, "", false},
		{descriptor.Reference("app/Thing"), Object, "", false},
		{descriptor.Type{Kind: descriptor.Object, Class: "java/lang/String", Dims: 1}, ObjectArray, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.typ.Descriptor(), func(t *testing.T) {
			got := argumentType(tt.typ)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.pointer, got.PointerType())
			assert.Equal(t, tt.marshaled, got.Marshalled())
		})
	}
	assert.Equal(t, "JAVA_INT", Integer.CType())
	assert.Equal(t, "JAVA_OBJECT", ByteBuffer.CType())
	assert.True(t, ObjectArray.IsObject())
	assert.Equal(t, "IntegerArray", IntegerArray.String())
}

func TestBindingNames(t *testing.T) {
	f, err := ParseFile(natives)
	require.NoError(t, err)
	ms := methods(f.Segments)

	names := make([]string, len(ms))
	for i, m := range ms {
		names[i] = BindingName(f, m)
	}
	assert.Equal(t, []string{
		"com_example_Natives_check___int_java_lang_String_R_boolean",
		"com_example_Natives_fill___java_nio_ByteBuffer_int_1ARRAY",
		"com_example_Natives_size___int_R_int",
		"com_example_Natives_size___long_R_int",
		"com_example_Natives_missing___java_lang_Object",
		"com_example_Natives_many___java_util_List_byte_1ARRAY_int_1ARRAY",
		"com_example_Natives_00024Inner_scale___float_1ARRAY_com_example_Natives_00024Helper_R_float",
	}, names)
	assert.NotEqual(t, names[2], names[3])
}

func TestGenerate(t *testing.T) {
	out, warnings, err := Generate("com/example/Natives.java", natives)
	require.NoError(t, err)
	s := string(out)

	assert.Contains(t, s, "#include \"cn1_globals.h\"\n"+
		"#include \"com_example_Natives.h\"\n"+
		"#include \"com_example_Natives_00024Inner.h\"\n"+
		"#include \"java_nio_Buffer.h\"\n")
	assert.Contains(t, s, "\n// @Line: 6\n")
	assert.Contains(t, s, "#include <string.h>")

	assert.Contains(t, s, "JAVA_BOOLEAN com_example_Natives_check___int_java_lang_String_R_boolean(CODENAME_ONE_THREAD_STATE, JAVA_INT count, JAVA_OBJECT name__object) {\n"+
		"    const char* name = toNativeString(threadStateData, name__object);\n"+
		"\t\treturn strlen(name) == count;\n"+
		"}\n")
	assert.Contains(t, s, "JAVA_VOID com_example_Natives_fill___java_nio_ByteBuffer_int_1ARRAY(CODENAME_ONE_THREAD_STATE, JAVA_OBJECT __cn1ThisObject, JAVA_OBJECT buf__object, JAVA_OBJECT values__object) {\n"+
		"    JAVA_ARRAY_BYTE* buf = (JAVA_ARRAY_BYTE*)((struct obj__java_nio_Buffer*)buf__object)->java_nio_Buffer_address;\n"+
		"    JAVA_ARRAY_INT* values = (JAVA_ARRAY_INT*)((JAVA_ARRAY)values__object)->data;\n"+
		"\t\tbuf[0] = values[0];\n"+
		"}\n")
	assert.Contains(t, s, "JAVA_INT com_example_Natives_size___long_R_int(CODENAME_ONE_THREAD_STATE, JAVA_LONG a) {\n return (int)a; \n}\n")
	assert.Contains(t, s, "JAVA_FLOAT com_example_Natives_00024Inner_scale___float_1ARRAY_com_example_Natives_00024Helper_R_float(CODENAME_ONE_THREAD_STATE, JAVA_OBJECT __cn1ThisObject, JAVA_OBJECT f__object, JAVA_OBJECT h) {\n")
	assert.NotContains(t, s, "missing")

	require.Len(t, warnings, 2)
	assert.Equal(t, &diag.MissingBodyWarning{File: "com/example/Natives.java", Method: "Natives.missing"}, warnings[0])
	assert.Equal(t, "Natives.many", warnings[1].Method)
	assert.True(t, diag.IsWarning(warnings[0]))
}

func TestGenerateSkips(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		warnings int
	}{
		{"no native keyword", "class A { void f() {} }", 0},
		{"only declarations", "class A { native void f(); }", 1},
		{"only jni", "class A {\n/*JNI\nint x;\n*/\n native void f(); }", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, warnings, err := Generate("A.java", tt.code)
			require.NoError(t, err)
			assert.Nil(t, out)
			assert.Len(t, warnings, tt.warnings)
		})
	}
}

func TestUnitName(t *testing.T) {
	assert.Equal(t, "com_example_Natives_natives.c", UnitName("com/example/Natives.java"))
	assert.Equal(t, "A_natives.c", UnitName("A.java"))
	assert.Equal(t, "x_Y_natives.c", UnitName(`x\Y.java`))
	assert.NotEqual(t, UnitName("a_b/C.java"), UnitName("a/b_C.java"))
}

func writeFile(t *testing.T, root, path, data string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(path))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(data), 0o644))
}

func TestGenerateAll(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "com/example/Natives.java", natives)
	writeFile(t, root, "com/example/Plain.java", "package com.example;\nclass Plain {}\n")
	writeFile(t, root, "com/example/Broken.java", "class Broken { native void f(); /* never closed")
	writeFile(t, root, "com/example/notes.txt", "native")
	writeFile(t, root, "skip/Ignored.java", "class Ignored { native void f(); /* return; */ }")

	src, err := NewDirSource(root, []string{"skip.**"})
	require.NoError(t, err)
	files, err := src.Files()
	require.NoError(t, err)
	assert.Equal(t, []string{"com/example/Broken.java", "com/example/Natives.java", "com/example/Plain.java"}, files)

	var out sink.Memory
	written, err := NewGenerator(zerolog.Nop()).GenerateAll(src, &out)
	assert.Equal(t, []string{"com_example_Natives_natives.c"}, written)
	assert.Equal(t, written, out.Names())

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	require.Len(t, merr.Errors, 1)
	assert.Contains(t, merr.Errors[0].Error(), "com/example/Broken.java")
	var mal *diag.MalformedInputError
	assert.ErrorAs(t, err, &mal)
}

func TestDirSourceIgnoresFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a/Keep.java", "class Keep {}")
	writeFile(t, root, "a/Drop.java", "class Drop {}")

	src, err := NewDirSource(root, []string{"a.Drop"})
	require.NoError(t, err)
	files, err := src.Files()
	require.NoError(t, err)
	assert.Equal(t, []string{"a/Keep.java"}, files)

	code, err := src.Read("a/Keep.java")
	require.NoError(t, err)
	assert.Equal(t, "class Keep {}", code)

	_, err = src.Read("a/Gone.java")
	assert.Error(t, err)
}
