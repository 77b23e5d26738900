package deps

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/daimatz/jvmc/pkg/classfile"
	"github.com/daimatz/jvmc/pkg/descriptor"
	"github.com/daimatz/jvmc/pkg/instruction"
	"github.com/daimatz/jvmc/pkg/metadata"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapLoader metadata.ClassMap

func (m mapLoader) Load(name string) (*metadata.Class, error) {
	if c, ok := m[name]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("class %s not found", name)
}

func field(c *metadata.Class, name, desc string) {
	t, err := descriptor.Parse(desc)
	if err != nil {
		panic(err)
	}
	c.Fields = append(c.Fields, &metadata.Field{Owner: c, Name: name, Descriptor: desc, Type: t})
}

func method(c *metadata.Class, name, desc string, body ...instruction.Instruction) *metadata.Method {
	mt, err := descriptor.ParseMethod(desc)
	if err != nil {
		panic(err)
	}
	m := &metadata.Method{Owner: c, Name: name, Descriptor: desc, Type: mt, Instructions: body}
	c.Methods = append(c.Methods, m)
	return m
}

func program() metadata.ClassMap {
	a := &metadata.Class{Name: "app/A", Super: "java/lang/Object", Interfaces: []string{"app/I"}}
	field(a, "b", "Lapp/B;")
	field(a, "grid", "[[Lapp/Cell;")
	field(a, "n", "I")
	m := method(a, "run", "(Lapp/Arg;)[Lapp/Result;",
		&instruction.TypeOp{Op: instruction.OpNew, Class: "app/Made"},
		&instruction.Invoke{Op: instruction.OpInvokestatic, Owner: "app/Helper", Name: "go", Type: descriptor.MethodType{Return: descriptor.Primitive(descriptor.Void)}},
		&instruction.TryRegionBegin{Exception: "app/Oops"},
	)
	m.Exceptions = []string{"java/io/IOException"}
	a.Annotations = []*metadata.Annotation{{Type: "app/Marker", Members: []metadata.Member{
		{Name: "kind", Value: metadata.EnumConstant{Owner: "app/Kind", Name: "X"}},
	}}}

	b := &metadata.Class{Name: "app/B", Super: "app/Base"}
	field(b, "self", "Lapp/B;")
	base := &metadata.Class{Name: "app/Base", Super: "java/lang/Object"}
	field(base, "gone", "Lapp/Gone;")

	marker := &metadata.Class{Name: "app/Marker", Access: classfile.AccAnnotation | classfile.AccInterface}
	method(marker, "kind", "()Lapp/Kind;")

	obj := &metadata.Class{Name: "java/lang/Object"}
	method(obj, "toString", "()Ljava/lang/String;")
	str := &metadata.Class{Name: "java/lang/String", Super: "java/lang/Object"}

	classes := metadata.ClassMap{}
	classes.Add(a, b, base, marker, obj, str)
	return classes
}

func TestCollect(t *testing.T) {
	classes := program()
	a, _ := classes.Lookup("app/A")
	got := Collect(a, classes).Sorted()

	assert.Equal(t, []string{
		"app/Arg", "app/B", "app/Cell", "app/Helper", "app/I", "app/Kind", "app/Made", "app/Marker", "app/Oops", "app/Result",
		"java/io/IOException", "java/lang/Class", "java/lang/Object", "java/lang/String", "java/lang/annotation/Annotation",
	}, got)
}

func TestCollectIsOneLevel(t *testing.T) {
	classes := program()
	a, _ := classes.Lookup("app/A")
	set := Collect(a, classes)

	assert.True(t, set.Has("app/B"))
	assert.False(t, set.Has("app/Base"), "super of a dependency")
	assert.False(t, set.Has("app/Gone"), "field of a dependency's super")
	assert.False(t, set.Has("app/A"), "the class itself")

	b, _ := classes.Lookup("app/B")
	assert.Equal(t, []string{"app/Base", "java/lang/Object", "java/lang/String"}, Collect(b, classes).Sorted())
}

func TestCollectAlwaysIncludesFoundation(t *testing.T) {
	empty := &metadata.Class{Name: "app/Empty"}
	assert.Equal(t, Always, Collect(empty, metadata.ClassMap{}).Sorted())

	obj := &metadata.Class{Name: "java/lang/Object"}
	assert.Equal(t, []string{"java/lang/String"}, Collect(obj, metadata.ClassMap{}).Sorted())
}

func TestSetAdd(t *testing.T) {
	s := Set{}
	s.Add("", "[I", "[[Ljava/util/List;", "app/X", "app/X")
	assert.Equal(t, []string{"app/X", "java/util/List"}, s.Sorted())
}

func TestClosure(t *testing.T) {
	classes := program()
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	got, missing := Closure([]string{"app/B"}, mapLoader(classes), log)
	var names []string
	for _, c := range got {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"app/B", "app/Base", "java/lang/Object", "java/lang/String"}, names)
	assert.Equal(t, []string{"app/Gone"}, missing)
	assert.Contains(t, buf.String(), "failed to find class dependency")
	assert.Contains(t, buf.String(), `"class":"app/Gone"`)
}

func TestClosureDoesNotExpandObject(t *testing.T) {
	classes := metadata.ClassMap{}
	obj := &metadata.Class{Name: "java/lang/Object"}
	field(obj, "hidden", "Lapp/Hidden;")
	classes.Add(obj)

	got, missing := Closure([]string{"java/lang/Object"}, mapLoader(classes), zerolog.Nop())
	require.Len(t, got, 1)
	assert.Empty(t, missing)
}
