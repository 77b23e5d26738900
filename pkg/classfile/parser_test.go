package classfile_test

import (
	"bytes"
	"testing"

	"github.com/daimatz/jvmc/pkg/classfile"
	ct "github.com/daimatz/jvmc/pkg/classfile/classfiletest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClassFile(t *testing.T) {
	b := ct.New("app/Hello", "java/lang/Object").Implements("java/lang/Runnable")
	b.Annotate(ct.SourceFile("Hello.java"))
	out := b.FieldRef("java/lang/System", "out", "Ljava/io/PrintStream;")
	printRef := b.MethodRef("java/io/PrintStream", "println", "(Ljava/lang/String;)V")
	msg := b.String("hello")
	b.Method(classfile.AccPublic|classfile.AccStatic, "main", "([Ljava/lang/String;)V").
		Code(2, 1,
			0xb2, byte(out>>8), byte(out), // getstatic
			0x12, byte(msg), // ldc
			0xb6, byte(printRef>>8), byte(printRef), // invokevirtual
			0xb1, // return
		)

	cf, err := b.Parse()
	require.NoError(t, err)

	assert.Equal(t, uint16(52), cf.MajorVersion)
	name, err := cf.ClassName()
	require.NoError(t, err)
	assert.Equal(t, "app/Hello", name)
	assert.Equal(t, "java/lang/Object", cf.SuperClassName())
	ifaces, err := cf.InterfaceNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"java/lang/Runnable"}, ifaces)
	assert.Equal(t, "Hello.java", cf.SourceFile)

	main := cf.FindMethod("main", "([Ljava/lang/String;)V")
	require.NotNil(t, main)
	require.NotNil(t, main.Code)
	assert.Len(t, main.Code.Code, 9)
	assert.Equal(t, uint16(2), main.Code.MaxStack)
	assert.Equal(t, uint16(1), main.Code.MaxLocals)

	ref, err := classfile.ResolveMethodref(cf.ConstantPool, printRef)
	require.NoError(t, err)
	assert.Equal(t, "java/io/PrintStream", ref.ClassName)
	assert.Equal(t, "println", ref.MethodName)
	assert.False(t, ref.Interface)

	c, err := classfile.GetLoadable(cf.ConstantPool, uint16(msg))
	require.NoError(t, err)
	assert.Equal(t, classfile.StringConstant("hello"), c)
}

func TestParseRootClass(t *testing.T) {
	cf, err := ct.New("java/lang/Object", "").Parse()
	require.NoError(t, err)
	assert.Equal(t, "", cf.SuperClassName())
}

func TestParseExceptionTable(t *testing.T) {
	b := ct.New("app/Try", "java/lang/Object")
	b.Method(classfile.AccStatic, "f", "()V").
		Code(1, 1, 0x00, 0x00, 0xa7, 0x00, 0x04, 0x4b, 0xb1).
		Handler(0, 2, 5, "java/lang/Exception").
		Handler(0, 5, 5, "").
		Attrs(ct.Exceptions("java/io/IOException"))

	cf, err := b.Parse()
	require.NoError(t, err)
	m := cf.FindMethodByName("f")
	require.NotNil(t, m)
	require.Len(t, m.Code.ExceptionHandlers, 2)

	h := m.Code.ExceptionHandlers[0]
	assert.Equal(t, uint16(0), h.StartPC)
	assert.Equal(t, uint16(2), h.EndPC)
	assert.Equal(t, uint16(5), h.HandlerPC)
	catch, err := classfile.GetClassName(cf.ConstantPool, h.CatchType)
	require.NoError(t, err)
	assert.Equal(t, "java/lang/Exception", catch)
	assert.Zero(t, m.Code.ExceptionHandlers[1].CatchType)
	assert.Equal(t, []string{"java/io/IOException"}, m.Exceptions)
}

func TestParseConstantValue(t *testing.T) {
	b := ct.New("app/Consts", "java/lang/Object")
	b.Field(classfile.AccStatic|classfile.AccFinal, "ANSWER", "I", ct.ConstantValue(b.Int(42)))
	b.Field(classfile.AccStatic|classfile.AccFinal, "BIG", "J", ct.ConstantValue(b.Long(1<<40)))
	b.Field(classfile.AccStatic|classfile.AccFinal, "NAME", "Ljava/lang/String;", ct.ConstantValue(b.String("x")))

	cf, err := b.Parse()
	require.NoError(t, err)
	require.Len(t, cf.Fields, 3)

	want := []any{int32(42), int64(1 << 40), classfile.StringConstant("x")}
	for i, f := range cf.Fields {
		require.NotZero(t, f.ConstantValue, f.Name)
		v, err := classfile.GetLoadable(cf.ConstantPool, f.ConstantValue)
		require.NoError(t, err)
		assert.Equal(t, want[i], v, f.Name)
	}
}

func TestParseAnnotations(t *testing.T) {
	b := ct.New("app/Annotated", "java/lang/Object")
	b.Annotate(ct.Visible(ct.Ann{
		Type: "Lapp/Marker;",
		Members: []ct.Member{
			{Name: "count", Value: ct.IntElem(3)},
			{Name: "flag", Value: ct.BoolElem(true)},
			{Name: "letter", Value: ct.CharElem('q')},
			{Name: "name", Value: ct.StringElem("n")},
			{Name: "mode", Value: ct.EnumElem("Lapp/Mode;", "FAST")},
			{Name: "type", Value: ct.ClassElem("Ljava/lang/String;")},
			{Name: "nested", Value: ct.ArrayElem(
				ct.AnnElem(ct.Ann{Type: "Lapp/Inner;", Members: []ct.Member{{Name: "v", Value: ct.LongElem(9)}}}),
			)},
		},
	}), ct.Invisible(ct.Ann{Type: "Lapp/Hidden;"}))
	b.Method(classfile.AccPublic|classfile.AccAbstract, "value", "()I").Attrs(ct.Default(ct.IntElem(7)))

	cf, err := b.Parse()
	require.NoError(t, err)
	require.Len(t, cf.Annotations, 2)

	a := cf.Annotations[0]
	assert.Equal(t, "Lapp/Marker;", a.Type)
	assert.True(t, a.Visible)
	assert.False(t, cf.Annotations[1].Visible)
	require.Len(t, a.Members, 7)

	assert.Equal(t, int32(3), a.Members[0].Value.Const)
	assert.Equal(t, true, a.Members[1].Value.Const)
	assert.Equal(t, uint16('q'), a.Members[2].Value.Const)
	assert.Equal(t, "n", a.Members[3].Value.Const)
	assert.Equal(t, "Lapp/Mode;", a.Members[4].Value.EnumType)
	assert.Equal(t, "FAST", a.Members[4].Value.EnumName)
	assert.Equal(t, "Ljava/lang/String;", a.Members[5].Value.Class)

	nested := a.Members[6].Value
	assert.Equal(t, byte('['), nested.Tag)
	require.Len(t, nested.Array, 1)
	require.NotNil(t, nested.Array[0].Annotation)
	assert.Equal(t, "Lapp/Inner;", nested.Array[0].Annotation.Type)
	assert.Equal(t, int64(9), nested.Array[0].Annotation.Members[0].Value.Const)

	m := cf.FindMethodByName("value")
	require.NotNil(t, m)
	require.NotNil(t, m.AnnotationDefault)
	assert.Equal(t, int32(7), m.AnnotationDefault.Const)
}

func TestParseInvalidMagic(t *testing.T) {
	_, err := classfile.Parse(bytes.NewReader([]byte{0xDE, 0xAD, 0xBE, 0xEF}))
	assert.ErrorContains(t, err, "invalid magic number")
}

func TestParseTruncated(t *testing.T) {
	data := ct.New("app/Short", "java/lang/Object").Bytes()
	for _, n := range []int{4, 9, len(data) - 1} {
		_, err := classfile.Parse(bytes.NewReader(data[:n]))
		assert.Error(t, err, "truncated at %d", n)
	}
}
