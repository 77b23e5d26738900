package metadata

import "github.com/daimatz/jvmc/pkg/descriptor"

// Annotation is an ordered name to value mapping attached to a class,
// field or method.
type Annotation struct {
	Type    string // internal name of the annotation interface
	Members []Member
}

// Member is one name = value pair of an annotation.
type Member struct {
	Name  string
	Value Value
}

// Get returns the value of the named member.
func (a *Annotation) Get(name string) (Value, bool) {
	for _, m := range a.Members {
		if m.Name == name {
			return m.Value, true
		}
	}
	return nil, false
}

// Set replaces the named member or appends it.
func (a *Annotation) Set(name string, v Value) {
	for i := range a.Members {
		if a.Members[i].Name == name {
			a.Members[i].Value = v
			return
		}
	}
	a.Members = append(a.Members, Member{Name: name, Value: v})
}

// Clone returns a deep copy.
func (a *Annotation) Clone() *Annotation {
	if a == nil {
		return nil
	}
	out := &Annotation{Type: a.Type, Members: make([]Member, len(a.Members))}
	for i, m := range a.Members {
		out.Members[i] = Member{Name: m.Name, Value: CloneValue(m.Value)}
	}
	return out
}

// Value is the closed set of annotation member values: Literal,
// ClassLiteral, EnumConstant, Nested and Array.
type Value interface {
	value()
}

// Literal is a primitive or string constant. V holds bool, int8, uint16,
// int16, int32, int64, float32, float64 or string.
type Literal struct {
	V any
}

// ClassLiteral is a Foo.class value.
type ClassLiteral struct {
	Type descriptor.Type
}

// EnumConstant names one constant of an enum.
type EnumConstant struct {
	Owner string // internal name of the enum class
	Name  string
}

// Nested is an annotation used as a value.
type Nested struct {
	Annotation *Annotation
}

// Array is an array value; element kinds need not be declared here since
// the accessor return type determines them.
type Array struct {
	Elements []Value
}

func (Literal) value()      {}
func (ClassLiteral) value() {}
func (EnumConstant) value() {}
func (Nested) value()       {}
func (Array) value()        {}

// CloneValue returns a deep copy of v.
func CloneValue(v Value) Value {
	switch x := v.(type) {
	case Nested:
		return Nested{Annotation: x.Annotation.Clone()}
	case Array:
		out := Array{Elements: make([]Value, len(x.Elements))}
		for i, e := range x.Elements {
			out.Elements[i] = CloneValue(e)
		}
		return out
	}
	return v
}
