package glue

import (
	"strings"

	"github.com/daimatz/jvmc/pkg/descriptor"
)

// ArgumentType classifies a native method parameter by how it is passed to
// the inline code.
type ArgumentType int

const (
	Boolean ArgumentType = iota
	Byte
	Char
	Short
	Integer
	Long
	Float
	Double
	Buffer
	ByteBuffer
	CharBuffer
	ShortBuffer
	IntBuffer
	LongBuffer
	FloatBuffer
	DoubleBuffer
	BooleanArray
	ByteArray
	CharArray
	ShortArray
	IntegerArray
	LongArray
	FloatArray
	DoubleArray
	String
	Class
	Throwable
	Object
	ObjectArray
)

var argumentTypeNames = [...]string{
	Boolean: "Boolean", Byte: "Byte", Char: "Char", Short: "Short",
	Integer: "Integer", Long: "Long", Float: "Float", Double: "Double",
	Buffer: "Buffer", ByteBuffer: "ByteBuffer", CharBuffer: "CharBuffer",
	ShortBuffer: "ShortBuffer", IntBuffer: "IntBuffer", LongBuffer: "LongBuffer",
	FloatBuffer: "FloatBuffer", DoubleBuffer: "DoubleBuffer",
	BooleanArray: "BooleanArray", ByteArray: "ByteArray", CharArray: "CharArray",
	ShortArray: "ShortArray", IntegerArray: "IntegerArray", LongArray: "LongArray",
	FloatArray: "FloatArray", DoubleArray: "DoubleArray",
	String: "String", Class: "Class", Throwable: "Throwable", Object: "Object",
	ObjectArray: "ObjectArray",
}

func (a ArgumentType) String() string { return argumentTypeNames[a] }

// IsBuffer reports whether the parameter is a java.nio buffer.
func (a ArgumentType) IsBuffer() bool { return a >= Buffer && a <= DoubleBuffer }

// IsPrimitiveArray reports whether the parameter is a one dimensional
// primitive array.
func (a ArgumentType) IsPrimitiveArray() bool { return a >= BooleanArray && a <= DoubleArray }

func (a ArgumentType) IsString() bool { return a == String }

// IsObject reports whether the parameter is passed as a plain object.
func (a ArgumentType) IsObject() bool { return a == Object || a == ObjectArray }

// Marshalled reports whether the inline code sees a converted value instead
// of the object.
func (a ArgumentType) Marshalled() bool {
	return a.IsBuffer() || a.IsPrimitiveArray() || a.IsString()
}

var elementKinds = map[ArgumentType]descriptor.Kind{
	Buffer: descriptor.Byte, ByteBuffer: descriptor.Byte, CharBuffer: descriptor.Char,
	ShortBuffer: descriptor.Short, IntBuffer: descriptor.Int, LongBuffer: descriptor.Long,
	FloatBuffer: descriptor.Float, DoubleBuffer: descriptor.Double,
	BooleanArray: descriptor.Boolean, ByteArray: descriptor.Byte, CharArray: descriptor.Char,
	ShortArray: descriptor.Short, IntegerArray: descriptor.Int, LongArray: descriptor.Long,
	FloatArray: descriptor.Float, DoubleArray: descriptor.Double,
}

// PointerType returns the C pointer type the inline code receives for a
// buffer or primitive array, or "" for other parameters.
func (a ArgumentType) PointerType() string {
	k, ok := elementKinds[a]
	if !ok {
		return ""
	}
	return k.ArrayElementCType() + "*"
}

// CType returns the C type of the value passed to the binding.
func (a ArgumentType) CType() string {
	if k, ok := primitiveKinds[a]; ok {
		return k.CType()
	}
	return "JAVA_OBJECT"
}

var primitiveKinds = map[ArgumentType]descriptor.Kind{
	Boolean: descriptor.Boolean, Byte: descriptor.Byte, Char: descriptor.Char,
	Short: descriptor.Short, Integer: descriptor.Int, Long: descriptor.Long,
	Float: descriptor.Float, Double: descriptor.Double,
}

var bufferTypes = map[string]ArgumentType{
	"Buffer": Buffer, "ByteBuffer": ByteBuffer, "CharBuffer": CharBuffer,
	"ShortBuffer": ShortBuffer, "IntBuffer": IntBuffer, "LongBuffer": LongBuffer,
	"FloatBuffer": FloatBuffer, "DoubleBuffer": DoubleBuffer,
}

// argumentType classifies a resolved parameter type.
func argumentType(t descriptor.Type) ArgumentType {
	if t.Kind != descriptor.Object {
		for a, k := range primitiveKinds {
			if k == t.Kind {
				if t.Dims == 0 {
					return a
				}
				if t.Dims == 1 {
					return a + BooleanArray
				}
			}
		}
		return ObjectArray
	}
	if t.Dims > 0 {
		return ObjectArray
	}
	switch t.Class {
	case "java/lang/String":
		return String
	case "java/lang/Class":
		return Class
	case "java/lang/Throwable":
		return Throwable
	}
	if strings.HasPrefix(t.Class, "java/nio/") {
		if a, ok := bufferTypes[strings.TrimPrefix(t.Class, "java/nio/")]; ok {
			return a
		}
	}
	return Object
}
