package loader

import (
	"fmt"

	"github.com/daimatz/jvmc/pkg/classfile"
	"github.com/daimatz/jvmc/pkg/descriptor"
	"github.com/daimatz/jvmc/pkg/diag"
	"github.com/daimatz/jvmc/pkg/instruction"
	"github.com/daimatz/jvmc/pkg/metadata"
)

// Convert builds the metadata of a parsed class file and decodes every
// method body into instructions.
func Convert(cf *classfile.ClassFile) (*metadata.Class, error) {
	name, err := cf.ClassName()
	if err != nil {
		return nil, diag.Malformed("this_class", "%v", err)
	}
	ifaces, err := cf.InterfaceNames()
	if err != nil {
		return nil, fmt.Errorf("%s: interfaces: %w", name, err)
	}
	c := &metadata.Class{
		Name:       name,
		Super:      cf.SuperClassName(),
		Interfaces: ifaces,
		Access:     cf.AccessFlags,
		SourceFile: cf.SourceFile,
		Signature:  cf.Signature,
	}
	if c.Annotations, err = annotations(cf.Annotations); err != nil {
		return nil, diag.InClass(err, name, "")
	}

	for _, fi := range cf.Fields {
		f, err := convertField(cf, c, fi)
		if err != nil {
			return nil, diag.InClass(err, name, fi.Name)
		}
		c.Fields = append(c.Fields, f)
	}
	for i := range cf.Methods {
		mi := &cf.Methods[i]
		m, err := convertMethod(cf, c, mi)
		if err != nil {
			return nil, diag.InClass(err, name, mi.Name+mi.Descriptor)
		}
		c.Methods = append(c.Methods, m)
	}
	return c, nil
}

func convertField(cf *classfile.ClassFile, owner *metadata.Class, fi classfile.FieldInfo) (*metadata.Field, error) {
	t, err := descriptor.Parse(fi.Descriptor)
	if err != nil {
		return nil, err
	}
	f := &metadata.Field{
		Owner:      owner,
		Name:       fi.Name,
		Descriptor: fi.Descriptor,
		Type:       t,
		Access:     fi.AccessFlags,
		Signature:  fi.Signature,
	}
	if fi.ConstantValue != 0 {
		v, err := classfile.GetLoadable(cf.ConstantPool, fi.ConstantValue)
		if err != nil {
			return nil, diag.Malformed("ConstantValue", "%v", err)
		}
		if s, ok := v.(classfile.StringConstant); ok {
			v = string(s)
		}
		f.Constant = v
	}
	if f.Annotations, err = annotations(fi.Annotations); err != nil {
		return nil, err
	}
	return f, nil
}

func convertMethod(cf *classfile.ClassFile, owner *metadata.Class, mi *classfile.MethodInfo) (*metadata.Method, error) {
	mt, err := descriptor.ParseMethod(mi.Descriptor)
	if err != nil {
		return nil, err
	}
	m := &metadata.Method{
		Owner:      owner,
		Name:       mi.Name,
		Descriptor: mi.Descriptor,
		Type:       mt,
		Access:     mi.AccessFlags,
		Exceptions: mi.Exceptions,
	}
	if m.Annotations, err = annotations(mi.Annotations); err != nil {
		return nil, err
	}
	if mi.AnnotationDefault != nil {
		if m.AnnotationDefault, err = value(*mi.AnnotationDefault); err != nil {
			return nil, err
		}
	}
	if mi.Code != nil {
		m.MaxStack = int(mi.Code.MaxStack)
		m.MaxLocals = int(mi.Code.MaxLocals)
		if m.Instructions, err = instruction.Decode(mi.Code, cf.ConstantPool, cf.BootstrapMethods); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func annotations(list []classfile.Annotation) ([]*metadata.Annotation, error) {
	var out []*metadata.Annotation
	for i := range list {
		a, err := annotation(&list[i])
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func annotation(a *classfile.Annotation) (*metadata.Annotation, error) {
	t, err := descriptor.Parse(a.Type)
	if err != nil {
		return nil, err
	}
	if t.Kind != descriptor.Object || t.IsArray() {
		return nil, diag.Malformed(a.Type, "annotation type is not a class")
	}
	out := &metadata.Annotation{Type: t.Class}
	for _, p := range a.Members {
		v, err := value(p.Value)
		if err != nil {
			return nil, err
		}
		out.Members = append(out.Members, metadata.Member{Name: p.Name, Value: v})
	}
	return out, nil
}

func value(ev classfile.ElementValue) (metadata.Value, error) {
	switch ev.Tag {
	case 'e':
		t, err := descriptor.Parse(ev.EnumType)
		if err != nil {
			return nil, err
		}
		return metadata.EnumConstant{Owner: t.Class, Name: ev.EnumName}, nil
	case 'c':
		if ev.Class == "V" {
			return metadata.ClassLiteral{Type: descriptor.Primitive(descriptor.Void)}, nil
		}
		t, err := descriptor.Parse(ev.Class)
		if err != nil {
			return nil, err
		}
		return metadata.ClassLiteral{Type: t}, nil
	case '@':
		if ev.Annotation == nil {
			return nil, diag.Malformed("@", "missing nested annotation")
		}
		a, err := annotation(ev.Annotation)
		if err != nil {
			return nil, err
		}
		return metadata.Nested{Annotation: a}, nil
	case '[':
		arr := metadata.Array{Elements: make([]metadata.Value, 0, len(ev.Array))}
		for _, e := range ev.Array {
			v, err := value(e)
			if err != nil {
				return nil, err
			}
			arr.Elements = append(arr.Elements, v)
		}
		return arr, nil
	}
	if ev.Const == nil {
		return nil, diag.Malformed(string(ev.Tag), "unknown element value tag")
	}
	return metadata.Literal{V: ev.Const}, nil
}
