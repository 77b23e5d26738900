package descriptor

import (
	"errors"
	"math"
	"testing"

	"github.com/daimatz/jvmc/pkg/diag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		desc string
		want Type
	}{
		{"I", Type{Kind: Int}},
		{"Z", Type{Kind: Boolean}},
		{"J", Type{Kind: Long}},
		{"[D", Type{Kind: Double, Dims: 1}},
		{"Ljava/lang/String;", Type{Kind: Object, Class: "java/lang/String"}},
		{"[[Ljava/lang/Object;", Type{Kind: Object, Class: "java/lang/Object", Dims: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			got, err := Parse(tt.desc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.desc, got.Descriptor())
		})
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []string{"", "[", "[[", "Q", "Ljava/lang/String", "L;", "II", "V", "[V"}
	for _, desc := range tests {
		t.Run(desc, func(t *testing.T) {
			_, err := Parse(desc)
			require.Error(t, err)
			var mal *diag.MalformedInputError
			assert.True(t, errors.As(err, &mal), "want MalformedInputError, got %T", err)
		})
	}
}

func TestParseMethod(t *testing.T) {
	mt, err := ParseMethod("(ILjava/lang/String;[JD)Z")
	require.NoError(t, err)
	require.Len(t, mt.Params, 4)
	assert.Equal(t, Primitive(Int), mt.Params[0])
	assert.Equal(t, Reference("java/lang/String"), mt.Params[1])
	assert.Equal(t, Type{Kind: Long, Dims: 1}, mt.Params[2])
	assert.Equal(t, Primitive(Double), mt.Params[3])
	assert.Equal(t, Primitive(Boolean), mt.Return)
	assert.Equal(t, 5, mt.ArgSlots())
	assert.Equal(t, []Slot{SlotInt, SlotObject, SlotObject, SlotDouble}, mt.StackArgs())
	assert.Equal(t, "(ILjava/lang/String;[JD)Z", mt.Descriptor())

	for _, bad := range []string{"", "I)V", "(I", "(V)V", "()", "()VV", "(Q)V"} {
		_, err := ParseMethod(bad)
		assert.Error(t, err, "ParseMethod(%q)", bad)
	}
}

func TestEncode(t *testing.T) {
	tests := []struct {
		desc string
		want string
	}{
		{"I", "int"},
		{"Z", "boolean"},
		{"C", "char"},
		{"[B", "byte_1ARRAY"},
		{"Ljava/lang/String;", "java_lang_String"},
		{"[[Ljava/lang/String;", "java_lang_String_2ARRAY"},
		{"Lcom/x/Outer$Inner;", "com_x_Outer_00024Inner"},
		{"Lcom/x/Outer_Inner;", "com_x_Outer_1Inner"},
		{"Lcom/x/Outer$1;", "com_x_Outer_000241"},
		{"Lmy-lib/Thing;", "my_0002dlib_Thing"},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			got, err := EncodeDescriptor(tt.desc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeIsPure(t *testing.T) {
	descs := []string{
		"I", "J", "[I", "[[I", "Ljava/lang/String;", "[Ljava/lang/String;", "Ljava/lang/Object;", "[Z",
		"Lapp/Outer$Inner;", "Lapp/Outer_Inner;", "Lapp/Outer/Inner;", "Lapp/Outer$_Inner;",
		"Llib/X_Y;", "Llib/X$Y;", "Llib/X_Y$Z;", "Llib/X$Y_Z;",
	}
	seen := map[string]string{}
	for _, d := range descs {
		a, err := EncodeDescriptor(d)
		require.NoError(t, err)
		b, err := EncodeDescriptor(d)
		require.NoError(t, err)
		assert.Equal(t, a, b, "encoding of %s must be stable", d)
		if prev, ok := seen[a]; ok {
			t.Errorf("%s and %s encode to the same identifier %q", prev, d, a)
		}
		seen[a] = d
	}
}

func TestMethodSymbol(t *testing.T) {
	tests := []struct {
		owner, name, desc string
		want              string
	}{
		{"java/lang/String", "charAt", "(I)C", "java_lang_String_charAt___int_R_char"},
		{"app/Main", "main", "([Ljava/lang/String;)V", "app_Main_main___java_lang_String_1ARRAY"},
		{"app/Main", "<init>", "()V", "app_Main___INIT____"},
		{"app/Main", "<clinit>", "()V", "app_Main___CLINIT____"},
		{"app/Main", "run", "()Ljava/lang/Object;", "app_Main_run___R_java_lang_Object"},
		{"app/B", "c_d", "()V", "app_B_c_1d__"},
		{"app/B/c", "d", "()V", "app_B_c_d__"},
		{"app/Main", "lambda$main$0", "()V", "app_Main_lambda_00024main_000240__"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			mt, err := ParseMethod(tt.desc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, MethodSymbol(tt.owner, tt.name, mt))
		})
	}
}

func TestClassSymbol(t *testing.T) {
	assert.Equal(t, "class__java_lang_String", ClassSymbol(Reference("java/lang/String")))
	assert.Equal(t, "class_array1__int", ClassSymbol(Type{Kind: Int, Dims: 1}))
	assert.Equal(t, "class_array2__java_lang_Object", ClassSymbol(Type{Kind: Object, Class: "java/lang/Object", Dims: 2}))
}

func TestLiterals(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"int", IntLiteral(42), "42"},
		{"int min", IntLiteral(math.MinInt32), "((JAVA_INT)0x80000000)"},
		{"long", LongLiteral(-7), "-7LL"},
		{"long min", LongLiteral(math.MinInt64), "((JAVA_LONG)0x8000000000000000LL)"},
		{"float", FloatLiteral(1.5), "1.5f"},
		{"float whole", FloatLiteral(2), "2.0f"},
		{"float nan", FloatLiteral(float32(math.NaN())), "(0.0f/0.0f)"},
		{"double inf", DoubleLiteral(math.Inf(-1)), "(-1.0/0.0)"},
		{"double", DoubleLiteral(0.25), "0.25"},
		{"bool", BoolLiteral(true), "JAVA_TRUE"},
		{"string", StringLiteral("a\"b\\c\n\t"), `"a\"b\\c\n\t"`},
		{"string utf8", StringLiteral("é"), `"\303\251"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}
