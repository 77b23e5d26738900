package loader

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/daimatz/jvmc/pkg/classfile"
	ct "github.com/daimatz/jvmc/pkg/classfile/classfiletest"
	"github.com/daimatz/jvmc/pkg/diag"
	"github.com/daimatz/jvmc/pkg/instruction"
	"github.com/daimatz/jvmc/pkg/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func helloClass() *ct.Builder {
	b := ct.New("app/Hello", "java/lang/Object")
	b.Annotate(ct.SourceFile("Hello.java"))
	b.Field(classfile.AccPublic|classfile.AccStatic|classfile.AccFinal, "GREETING", "Ljava/lang/String;",
		ct.ConstantValue(b.String("hi")))
	b.Field(classfile.AccPrivate, "count", "I")
	b.Method(classfile.AccPublic|classfile.AccStatic, "main", "([Ljava/lang/String;)V").
		Code(1, 1, 0x03, 0x3c, 0xb1) // iconst_0, istore_1, return
	return b
}

func writeArchive(t *testing.T, path string, header []byte, entries map[string][]byte) {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(header)
	zw := zip.NewWriter(&buf)
	for name, data := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func writeClass(t *testing.T, root string, b *ct.Builder, name string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(name)+".class")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, b.Bytes(), 0o644))
}

func TestConvert(t *testing.T) {
	cf, err := helloClass().Parse()
	require.NoError(t, err)

	c, err := Convert(cf)
	require.NoError(t, err)
	assert.Equal(t, "app/Hello", c.Name)
	assert.Equal(t, "java/lang/Object", c.Super)
	assert.Equal(t, "Hello.java", c.SourceFile)

	greeting := c.FindField("GREETING")
	require.NotNil(t, greeting)
	assert.Equal(t, "hi", greeting.Constant)
	assert.True(t, greeting.IsStatic())

	main := c.MainMethod()
	require.NotNil(t, main)
	assert.Same(t, c, main.Owner)
	assert.Equal(t, 1, main.MaxLocals)
	require.Len(t, main.Instructions, 3)
	assert.Equal(t, &instruction.Push{Value: int32(0)}, main.Instructions[0])
	assert.Equal(t, &instruction.Var{Op: instruction.OpIstore, Index: 1}, main.Instructions[1])
}

func TestConvertAnnotations(t *testing.T) {
	b := ct.New("app/Tagged", "java/lang/Object")
	b.Annotate(ct.Visible(ct.Ann{Type: "Lapp/Marker;", Members: []ct.Member{
		{Name: "kind", Value: ct.EnumElem("Lapp/Kind;", "FAST")},
		{Name: "type", Value: ct.ClassElem("V")},
		{Name: "list", Value: ct.ArrayElem(ct.IntElem(1), ct.IntElem(2))},
		{Name: "inner", Value: ct.AnnElem(ct.Ann{Type: "Lapp/Inner;"})},
	}}))
	cf, err := b.Parse()
	require.NoError(t, err)

	c, err := Convert(cf)
	require.NoError(t, err)
	require.Len(t, c.Annotations, 1)
	a := c.Annotations[0]
	assert.Equal(t, "app/Marker", a.Type)

	kind, ok := a.Get("kind")
	require.True(t, ok)
	assert.Equal(t, metadata.EnumConstant{Owner: "app/Kind", Name: "FAST"}, kind)

	typ, _ := a.Get("type")
	assert.IsType(t, metadata.ClassLiteral{}, typ)

	list, _ := a.Get("list")
	assert.Equal(t, metadata.Array{Elements: []metadata.Value{
		metadata.Literal{V: int32(1)}, metadata.Literal{V: int32(2)},
	}}, list)

	inner, _ := a.Get("inner")
	require.IsType(t, metadata.Nested{}, inner)
	assert.Equal(t, "app/Inner", inner.(metadata.Nested).Annotation.Type)
}

func TestConvertMalformedBody(t *testing.T) {
	b := ct.New("app/Bad", "java/lang/Object")
	b.Method(classfile.AccStatic, "jsr", "()V").Code(1, 0, 0xa8, 0x00, 0x03, 0xb1)
	cf, err := b.Parse()
	require.NoError(t, err)

	_, err = Convert(cf)
	var mal *diag.MalformedInputError
	require.ErrorAs(t, err, &mal)
	assert.Equal(t, "app/Bad", mal.Class)
	assert.Equal(t, "jsr()V", mal.Member)
}

func TestArchiveLoader(t *testing.T) {
	dir := t.TempDir()
	jar := filepath.Join(dir, "app.jar")
	writeArchive(t, jar, nil, map[string][]byte{
		"app/Hello.class": helloClass().Bytes(),
		"jvmc.toml":       []byte("line_numbers = false\n"),
	})

	cl := NewArchiveLoader(jar)
	cf, err := cl.LoadClass("app/Hello")
	require.NoError(t, err)
	name, _ := cf.ClassName()
	assert.Equal(t, "app/Hello", name)

	again, err := cl.LoadClass("app/Hello")
	require.NoError(t, err)
	assert.Same(t, cf, again)

	_, err = cl.LoadClass("app/Missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	names, err := cl.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"app/Hello"}, names)

	data, ok, err := cl.Resource("jvmc.toml")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "line_numbers = false\n", string(data))

	_, ok, err = cl.Resource("absent.toml")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArchiveLoaderJmod(t *testing.T) {
	dir := t.TempDir()
	jmod := filepath.Join(dir, "java.base.jmod")
	writeArchive(t, jmod, []byte("JM\x01\x00"), map[string][]byte{
		"classes/app/Hello.class": helloClass().Bytes(),
	})

	cl := NewArchiveLoader(jmod)
	_, err := cl.LoadClass("app/Hello")
	require.NoError(t, err)

	names, err := Scan(jmod)
	require.NoError(t, err)
	assert.Equal(t, []string{"app/Hello"}, names)
}

func TestDirLoaderParentFirst(t *testing.T) {
	parentDir, childDir := t.TempDir(), t.TempDir()
	writeClass(t, parentDir, helloClass(), "app/Hello")
	writeClass(t, childDir, ct.New("app/Hello", "app/Shadow"), "app/Hello")
	writeClass(t, childDir, ct.New("app/Only", "java/lang/Object"), "app/Only")

	cl := NewDirLoader(childDir, NewDirLoader(parentDir, nil))
	cf, err := cl.LoadClass("app/Hello")
	require.NoError(t, err)
	assert.Equal(t, "java/lang/Object", cf.SuperClassName())

	_, err = cl.LoadClass("app/Only")
	require.NoError(t, err)

	_, err = cl.LoadClass("app/Nothing")
	assert.True(t, errors.Is(err, ErrNotFound))

	names, err := Scan(childDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"app/Hello", "app/Only"}, names)
}

func TestChain(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	writeClass(t, b, helloClass(), "app/Hello")

	chain := Chain{NewDirLoader(a, nil), NewDirLoader(b, nil)}
	_, err := chain.LoadClass("app/Hello")
	require.NoError(t, err)

	_, err = chain.LoadClass("app/Missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLoader(t *testing.T) {
	dir := t.TempDir()
	writeClass(t, dir, helloClass(), "app/Hello")
	l := New(NewDirLoader(dir, nil))

	c, err := l.Load("app/Hello")
	require.NoError(t, err)
	again, err := l.Load("app/Hello")
	require.NoError(t, err)
	assert.Same(t, c, again)

	_, err = l.Load("app/Missing")
	var unresolved *diag.UnresolvedReferenceError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "class app/Missing", unresolved.Reference)

	_, ok := l.Lookup("app/Hello")
	assert.True(t, ok)
	assert.Len(t, l.Loaded(), 1)
}

func TestOpenUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	_, err := Open(path)
	assert.Error(t, err)
}
