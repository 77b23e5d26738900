// Package metadata is the in-memory model of the classes being translated.
// A Class is built once by the loader and is read-only afterwards, except
// for annotation default merging.
package metadata

import (
	"github.com/daimatz/jvmc/pkg/classfile"
	"github.com/daimatz/jvmc/pkg/descriptor"
	"github.com/daimatz/jvmc/pkg/instruction"
)

// Class is one compilation unit.
type Class struct {
	Name        string // internal form, e.g. java/lang/String
	Super       string // "" for the root class
	Interfaces  []string
	Access      uint16
	Fields      []*Field
	Methods     []*Method
	Annotations []*Annotation
	SourceFile  string
	Signature   string
}

// Ident returns the C identifier fragment of the class.
func (c *Class) Ident() string { return descriptor.SanitizeClass(c.Name) }

func (c *Class) IsInterface() bool  { return c.Access&classfile.AccInterface != 0 }
func (c *Class) IsAbstract() bool   { return c.Access&classfile.AccAbstract != 0 }
func (c *Class) IsAnnotation() bool { return c.Access&classfile.AccAnnotation != 0 }
func (c *Class) IsEnum() bool       { return c.Access&classfile.AccEnum != 0 }

// FindMethod finds a method by name and descriptor.
func (c *Class) FindMethod(name, desc string) *Method {
	for _, m := range c.Methods {
		if m.Name == name && m.Descriptor == desc {
			return m
		}
	}
	return nil
}

// FindMethodByName finds the first method with the given name.
func (c *Class) FindMethodByName(name string) *Method {
	for _, m := range c.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// FindField finds a field declared directly on the class.
func (c *Class) FindField(name string) *Field {
	for _, f := range c.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// IsMethodPrivate reports whether the class declares name+desc as private.
func (c *Class) IsMethodPrivate(name, desc string) bool {
	m := c.FindMethod(name, desc)
	return m != nil && m.IsPrivate()
}

// HasStaticInitializer reports whether the class declares <clinit>.
func (c *Class) HasStaticInitializer() bool {
	return c.FindMethod("<clinit>", "()V") != nil
}

// MainMethod returns public static void main(String[]) if declared.
func (c *Class) MainMethod() *Method {
	m := c.FindMethod("main", "([Ljava/lang/String;)V")
	if m == nil || !m.IsStatic() || m.Access&classfile.AccPublic == 0 {
		return nil
	}
	return m
}

// StaticFields returns the static fields in declaration order.
func (c *Class) StaticFields() []*Field {
	var out []*Field
	for _, f := range c.Fields {
		if f.IsStatic() {
			out = append(out, f)
		}
	}
	return out
}

// InstanceFields returns the non-static fields in declaration order.
func (c *Class) InstanceFields() []*Field {
	var out []*Field
	for _, f := range c.Fields {
		if !f.IsStatic() {
			out = append(out, f)
		}
	}
	return out
}

// Field is a field declaration.
type Field struct {
	Owner       *Class
	Name        string
	Descriptor  string
	Type        descriptor.Type
	Access      uint16
	Constant    any // from ConstantValue: int32, int64, float32, float64 or string
	Signature   string
	Annotations []*Annotation
}

func (f *Field) IsStatic() bool { return f.Access&classfile.AccStatic != 0 }
func (f *Field) IsFinal() bool  { return f.Access&classfile.AccFinal != 0 }

// Method is a method declaration with its decoded body.
type Method struct {
	Owner             *Class
	Name              string
	Descriptor        string
	Type              descriptor.MethodType
	Access            uint16
	MaxStack          int
	MaxLocals         int
	Instructions      []instruction.Instruction
	Annotations       []*Annotation
	AnnotationDefault Value
	Exceptions        []string

	// Intrinsic marks a method whose body is supplied by the runtime even
	// though the class file carries bytecode for it.
	Intrinsic bool
}

func (m *Method) IsStatic() bool       { return m.Access&classfile.AccStatic != 0 }
func (m *Method) IsSynchronized() bool { return m.Access&classfile.AccSynchronized != 0 }
func (m *Method) IsNative() bool       { return m.Access&classfile.AccNative != 0 }
func (m *Method) IsAbstract() bool     { return m.Access&classfile.AccAbstract != 0 }
func (m *Method) IsPrivate() bool      { return m.Access&classfile.AccPrivate != 0 }
func (m *Method) IsConstructor() bool  { return m.Name == "<init>" }
func (m *Method) IsInitializer() bool  { return m.Name == "<clinit>" }

// IsVirtual reports whether calls to the method go through dynamic dispatch.
func (m *Method) IsVirtual() bool {
	return !m.IsStatic() && !m.IsPrivate() && !m.IsConstructor() && !m.IsInitializer()
}

// HasBody reports whether C code is generated for the method body.
func (m *Method) HasBody() bool {
	return !m.IsAbstract() && !m.IsNative() && !m.Intrinsic
}

// Symbol returns the C function name of the method.
func (m *Method) Symbol() string {
	return descriptor.MethodSymbol(m.Owner.Name, m.Name, m.Type)
}

// String returns owner.name+descriptor for diagnostics.
func (m *Method) String() string {
	if m.Owner == nil {
		return m.Name + m.Descriptor
	}
	return m.Owner.Name + "." + m.Name + m.Descriptor
}

// Resolver looks up classes by internal name.
type Resolver interface {
	Lookup(name string) (*Class, bool)
}

// ClassMap is a Resolver backed by a map.
type ClassMap map[string]*Class

// Lookup implements Resolver.
func (m ClassMap) Lookup(name string) (*Class, bool) {
	c, ok := m[name]
	return c, ok
}

// IsMethodPrivate implements instruction.PrivacyResolver.
func (m ClassMap) IsMethodPrivate(owner, name, desc string) bool {
	return Privacy{m}.IsMethodPrivate(owner, name, desc)
}

// Add registers classes by name.
func (m ClassMap) Add(classes ...*Class) {
	for _, c := range classes {
		m[c.Name] = c
	}
}

// Privacy adapts a Resolver to instruction.PrivacyResolver. Unknown owners
// count as non-private.
type Privacy struct {
	Resolver
}

// IsMethodPrivate implements instruction.PrivacyResolver.
func (p Privacy) IsMethodPrivate(owner, name, desc string) bool {
	c, ok := p.Lookup(owner)
	return ok && c.IsMethodPrivate(name, desc)
}

// StaticOwner returns the nearest class in the superclass chain of owner
// that declares a static method called name. javac sometimes names the
// subclass as the owner of an inherited static call.
func StaticOwner(r Resolver, owner, name string) string {
	for cur := owner; cur != ""; {
		c, ok := r.Lookup(cur)
		if !ok {
			break
		}
		for _, m := range c.Methods {
			if m.Name == name && m.IsStatic() {
				return c.Name
			}
		}
		cur = c.Super
	}
	return owner
}

// FieldOwner returns the class or interface reachable from owner that
// declares the field. Unknown owners are returned unchanged.
func FieldOwner(r Resolver, owner, name string) string {
	if found, ok := fieldOwner(r, owner, name); ok {
		return found
	}
	return owner
}

func fieldOwner(r Resolver, owner, name string) (string, bool) {
	c, ok := r.Lookup(owner)
	if !ok {
		return "", false
	}
	if c.FindField(name) != nil {
		return c.Name, true
	}
	for _, itf := range c.Interfaces {
		if found, ok := fieldOwner(r, itf, name); ok {
			return found, true
		}
	}
	if c.Super == "" {
		return "", false
	}
	return fieldOwner(r, c.Super, name)
}
