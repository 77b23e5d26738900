// Package descriptor parses JVM type descriptors and encodes them into the
// identifiers used by generated C code.
package descriptor

// Kind is the closed set of JVM value kinds.
type Kind int

const (
	Void Kind = iota
	Boolean
	Byte
	Char
	Short
	Int
	Long
	Float
	Double
	Object
)

type kindInfo struct {
	symbol byte
	name   string
	ctype  string
	array  string
	slot   Slot
}

var kinds = [...]kindInfo{
	Void:    {'V', "void", "JAVA_VOID", "", SlotNone},
	Boolean: {'Z', "boolean", "JAVA_BOOLEAN", "JAVA_ARRAY_BOOLEAN", SlotInt},
	Byte:    {'B', "byte", "JAVA_BYTE", "JAVA_ARRAY_BYTE", SlotInt},
	Char:    {'C', "char", "JAVA_CHAR", "JAVA_ARRAY_CHAR", SlotInt},
	Short:   {'S', "short", "JAVA_SHORT", "JAVA_ARRAY_SHORT", SlotInt},
	Int:     {'I', "int", "JAVA_INT", "JAVA_ARRAY_INT", SlotInt},
	Long:    {'J', "long", "JAVA_LONG", "JAVA_ARRAY_LONG", SlotLong},
	Float:   {'F', "float", "JAVA_FLOAT", "JAVA_ARRAY_FLOAT", SlotFloat},
	Double:  {'D', "double", "JAVA_DOUBLE", "JAVA_ARRAY_DOUBLE", SlotDouble},
	Object:  {'L', "object", "JAVA_OBJECT", "JAVA_ARRAY_OBJECT", SlotObject},
}

// KindFromSymbol maps a primitive descriptor character to its Kind.
func KindFromSymbol(c byte) (Kind, bool) {
	switch c {
	case 'V':
		return Void, true
	case 'Z':
		return Boolean, true
	case 'B':
		return Byte, true
	case 'C':
		return Char, true
	case 'S':
		return Short, true
	case 'I':
		return Int, true
	case 'J':
		return Long, true
	case 'F':
		return Float, true
	case 'D':
		return Double, true
	}
	return 0, false
}

// Symbol returns the descriptor character.
func (k Kind) Symbol() byte { return kinds[k].symbol }

// Name returns the Java simple name (int, boolean, ...).
func (k Kind) Name() string { return kinds[k].name }

// CType returns the runtime C type name.
func (k Kind) CType() string { return kinds[k].ctype }

// ArrayElementCType returns the C type of one element of a primitive array
// (JAVA_ARRAY_INT, ...).
func (k Kind) ArrayElementCType() string { return kinds[k].array }

// Slot returns the operand stack slot used for values of this kind.
func (k Kind) Slot() Slot { return kinds[k].slot }

// Wide reports whether the kind occupies two local variable slots.
func (k Kind) Wide() bool { return k == Long || k == Double }

// Primitive reports whether the kind is a non-void primitive.
func (k Kind) Primitive() bool { return k != Void && k != Object }

func (k Kind) String() string { return kinds[k].name }

// Slot is the closed set of operand stack slot kinds.
type Slot int

const (
	SlotNone Slot = iota
	SlotObject
	SlotInt
	SlotLong
	SlotFloat
	SlotDouble
)

var slots = [...]struct {
	letter, ctype, push, pop, tag string
}{
	SlotNone:   {"", "JAVA_VOID", "", "", ""},
	SlotObject: {"o", "JAVA_OBJECT", "PUSH_OBJ", "POP_OBJ", "CN1_TYPE_OBJECT"},
	SlotInt:    {"i", "JAVA_INT", "PUSH_INT", "POP_INT", "CN1_TYPE_INT"},
	SlotLong:   {"l", "JAVA_LONG", "PUSH_LONG", "POP_LONG", "CN1_TYPE_LONG"},
	SlotFloat:  {"f", "JAVA_FLOAT", "PUSH_FLOAT", "POP_FLOAT", "CN1_TYPE_FLOAT"},
	SlotDouble: {"d", "JAVA_DOUBLE", "PUSH_DOUBLE", "POP_DOUBLE", "CN1_TYPE_DOUBLE"},
}

// Letter returns the union member of a stack element (SP[-1].data.<letter>).
func (s Slot) Letter() string { return slots[s].letter }

// CType returns the C type held by the slot.
func (s Slot) CType() string { return slots[s].ctype }

// Push returns the push macro for the slot.
func (s Slot) Push() string { return slots[s].push }

// Pop returns the pop macro for the slot.
func (s Slot) Pop() string { return slots[s].pop }

// Tag returns the runtime type tag stored next to the value.
func (s Slot) Tag() string { return slots[s].tag }

func (s Slot) String() string {
	if s == SlotNone {
		return "none"
	}
	return slots[s].letter
}

// Type is a parsed field type. Reference types carry their internal class
// name; arrays carry the element type plus a dimension count.
type Type struct {
	Kind  Kind
	Class string
	Dims  int
}

// Primitive returns the non-array type of kind k.
func Primitive(k Kind) Type { return Type{Kind: k} }

// Reference returns the non-array reference type for an internal class name.
func Reference(class string) Type { return Type{Kind: Object, Class: class} }

// IsArray reports whether the type has at least one dimension.
func (t Type) IsArray() bool { return t.Dims > 0 }

// IsReference reports whether values of the type are objects.
func (t Type) IsReference() bool { return t.Kind == Object || t.Dims > 0 }

// IsVoid reports whether the type is the void return type.
func (t Type) IsVoid() bool { return t.Kind == Void && t.Dims == 0 }

// Element returns the type with all array dimensions removed.
func (t Type) Element() Type { return Type{Kind: t.Kind, Class: t.Class} }

// Component returns the type with one array dimension removed.
func (t Type) Component() Type {
	if t.Dims == 0 {
		return t
	}
	return Type{Kind: t.Kind, Class: t.Class, Dims: t.Dims - 1}
}

// Slot returns the stack slot used for values of the type.
func (t Type) Slot() Slot {
	if t.Dims > 0 {
		return SlotObject
	}
	return t.Kind.Slot()
}

// CType returns the C type used for parameters and returns of this type.
func (t Type) CType() string {
	if t.Dims > 0 {
		return "JAVA_OBJECT"
	}
	return t.Kind.CType()
}

// Descriptor returns the JVM descriptor for the type.
func (t Type) Descriptor() string {
	b := make([]byte, 0, t.Dims+len(t.Class)+2)
	for i := 0; i < t.Dims; i++ {
		b = append(b, '[')
	}
	if t.Kind == Object {
		b = append(b, 'L')
		b = append(b, t.Class...)
		return string(append(b, ';'))
	}
	return string(append(b, t.Kind.Symbol()))
}

func (t Type) String() string { return t.Descriptor() }

// MethodType is a parsed method descriptor.
type MethodType struct {
	Params []Type
	Return Type
}

// ArgSlots returns the number of local variable slots the parameters use.
func (m MethodType) ArgSlots() int {
	n := 0
	for _, p := range m.Params {
		if p.Dims == 0 && p.Kind.Wide() {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// StackArgs returns the operand stack slot of every parameter in order.
func (m MethodType) StackArgs() []Slot {
	out := make([]Slot, len(m.Params))
	for i, p := range m.Params {
		out[i] = p.Slot()
	}
	return out
}

// Descriptor returns the JVM method descriptor.
func (m MethodType) Descriptor() string {
	s := "("
	for _, p := range m.Params {
		s += p.Descriptor()
	}
	return s + ")" + m.Return.Descriptor()
}
