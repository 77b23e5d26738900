// Package classfiletest assembles class files in memory for tests.
package classfiletest

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/daimatz/jvmc/pkg/classfile"
)

type poolKey struct {
	tag uint8
	val string
}

// Builder accumulates a class file. Pool entries are deduplicated, so
// calling the index helpers repeatedly is cheap and stable.
type Builder struct {
	pool    bytes.Buffer
	count   uint16
	indexes map[poolKey]uint16

	access     uint16
	this       uint16
	super      uint16
	interfaces []uint16
	fields     [][]byte
	methods    []*MethodBuilder
	attrs      [][]byte
}

// New starts a public class. An empty super name produces a root class.
func New(name, super string) *Builder {
	b := &Builder{count: 1, indexes: map[poolKey]uint16{}, access: classfile.AccPublic | classfile.AccSuper}
	b.this = b.Class(name)
	if super != "" {
		b.super = b.Class(super)
	}
	return b
}

// Access replaces the class access flags.
func (b *Builder) Access(flags uint16) *Builder {
	b.access = flags
	return b
}

// Implements adds direct superinterfaces.
func (b *Builder) Implements(names ...string) *Builder {
	for _, n := range names {
		b.interfaces = append(b.interfaces, b.Class(n))
	}
	return b
}

func (b *Builder) entry(key poolKey, body []byte, slots uint16) uint16 {
	if idx, ok := b.indexes[key]; ok {
		return idx
	}
	idx := b.count
	b.pool.WriteByte(key.tag)
	b.pool.Write(body)
	b.count += slots
	b.indexes[key] = idx
	return idx
}

// Utf8 returns the index of a CONSTANT_Utf8 entry.
func (b *Builder) Utf8(s string) uint16 {
	body := u16(uint16(len(s)))
	body = append(body, s...)
	return b.entry(poolKey{classfile.TagUtf8, s}, body, 1)
}

// Class returns the index of a CONSTANT_Class entry.
func (b *Builder) Class(name string) uint16 {
	n := b.Utf8(name)
	return b.entry(poolKey{classfile.TagClass, name}, u16(n), 1)
}

// String returns the index of a CONSTANT_String entry.
func (b *Builder) String(s string) uint16 {
	n := b.Utf8(s)
	return b.entry(poolKey{classfile.TagString, s}, u16(n), 1)
}

// Int returns the index of a CONSTANT_Integer entry.
func (b *Builder) Int(v int32) uint16 {
	body := make([]byte, 4)
	binary.BigEndian.PutUint32(body, uint32(v))
	return b.entry(poolKey{classfile.TagInteger, string(body)}, body, 1)
}

// Long returns the index of a CONSTANT_Long entry.
func (b *Builder) Long(v int64) uint16 {
	body := make([]byte, 8)
	binary.BigEndian.PutUint64(body, uint64(v))
	return b.entry(poolKey{classfile.TagLong, string(body)}, body, 2)
}

// Double returns the index of a CONSTANT_Double entry.
func (b *Builder) Double(v float64) uint16 {
	body := make([]byte, 8)
	binary.BigEndian.PutUint64(body, math.Float64bits(v))
	return b.entry(poolKey{classfile.TagDouble, string(body)}, body, 2)
}

// Float returns the index of a CONSTANT_Float entry.
func (b *Builder) Float(v float32) uint16 {
	body := make([]byte, 4)
	binary.BigEndian.PutUint32(body, math.Float32bits(v))
	return b.entry(poolKey{classfile.TagFloat, string(body)}, body, 1)
}

func (b *Builder) nameAndType(name, desc string) uint16 {
	body := append(u16(b.Utf8(name)), u16(b.Utf8(desc))...)
	return b.entry(poolKey{classfile.TagNameAndType, name + " " + desc}, body, 1)
}

func (b *Builder) memberRef(tag uint8, owner, name, desc string) uint16 {
	body := append(u16(b.Class(owner)), u16(b.nameAndType(name, desc))...)
	return b.entry(poolKey{tag, owner + "." + name + desc}, body, 1)
}

// MethodRef returns the index of a CONSTANT_Methodref entry.
func (b *Builder) MethodRef(owner, name, desc string) uint16 {
	return b.memberRef(classfile.TagMethodref, owner, name, desc)
}

// InterfaceMethodRef returns the index of a CONSTANT_InterfaceMethodref entry.
func (b *Builder) InterfaceMethodRef(owner, name, desc string) uint16 {
	return b.memberRef(classfile.TagInterfaceMethodref, owner, name, desc)
}

// FieldRef returns the index of a CONSTANT_Fieldref entry.
func (b *Builder) FieldRef(owner, name, desc string) uint16 {
	return b.memberRef(classfile.TagFieldref, owner, name, desc)
}

// Field adds a field. Attributes are built with the Attr helpers.
func (b *Builder) Field(flags uint16, name, desc string, attrs ...Attr) *Builder {
	var out []byte
	out = append(out, u16(flags)...)
	out = append(out, u16(b.Utf8(name))...)
	out = append(out, u16(b.Utf8(desc))...)
	out = append(out, b.attributes(attrs)...)
	b.fields = append(b.fields, out)
	return b
}

// Annotate adds class-level attributes, typically annotations.
func (b *Builder) Annotate(attrs ...Attr) *Builder {
	for _, a := range attrs {
		b.attrs = append(b.attrs, a(b))
	}
	return b
}

// MethodBuilder accumulates one method.
type MethodBuilder struct {
	b         *Builder
	flags     uint16
	name      string
	desc      string
	code      []byte
	maxStack  uint16
	maxLocals uint16
	hasCode   bool
	handlers  []handler
	attrs     []Attr
}

type handler struct {
	start, end, target uint16
	catchType          string
}

// Method adds a method and returns its builder.
func (b *Builder) Method(flags uint16, name, desc string) *MethodBuilder {
	m := &MethodBuilder{b: b, flags: flags, name: name, desc: desc}
	b.methods = append(b.methods, m)
	return m
}

// Code sets the bytecode of the method.
func (m *MethodBuilder) Code(maxStack, maxLocals uint16, code ...byte) *MethodBuilder {
	m.maxStack, m.maxLocals, m.code, m.hasCode = maxStack, maxLocals, code, true
	return m
}

// Handler adds an exception table entry. An empty catch type catches all.
func (m *MethodBuilder) Handler(start, end, target uint16, catchType string) *MethodBuilder {
	m.handlers = append(m.handlers, handler{start, end, target, catchType})
	return m
}

// Attrs adds method attributes such as annotations or AnnotationDefault.
func (m *MethodBuilder) Attrs(attrs ...Attr) *MethodBuilder {
	m.attrs = append(m.attrs, attrs...)
	return m
}

func (m *MethodBuilder) bytes() []byte {
	b := m.b
	var out []byte
	out = append(out, u16(m.flags)...)
	out = append(out, u16(b.Utf8(m.name))...)
	out = append(out, u16(b.Utf8(m.desc))...)
	attrs := m.attrs
	if m.hasCode {
		attrs = append([]Attr{m.codeAttr()}, attrs...)
	}
	return append(out, b.attributes(attrs)...)
}

func (m *MethodBuilder) codeAttr() Attr {
	return func(b *Builder) []byte {
		var body []byte
		body = append(body, u16(m.maxStack)...)
		body = append(body, u16(m.maxLocals)...)
		body = append(body, u32(uint32(len(m.code)))...)
		body = append(body, m.code...)
		body = append(body, u16(uint16(len(m.handlers)))...)
		for _, h := range m.handlers {
			var ct uint16
			if h.catchType != "" {
				ct = b.Class(h.catchType)
			}
			body = append(body, u16(h.start)...)
			body = append(body, u16(h.end)...)
			body = append(body, u16(h.target)...)
			body = append(body, u16(ct)...)
		}
		body = append(body, u16(0)...)
		return raw(b, "Code", body)
	}
}

func (b *Builder) attributes(attrs []Attr) []byte {
	out := u16(uint16(len(attrs)))
	for _, a := range attrs {
		out = append(out, a(b)...)
	}
	return out
}

// Bytes serializes the class file.
func (b *Builder) Bytes() []byte {
	// Methods and fields may add pool entries, so serialize them first.
	var body bytes.Buffer
	body.Write(u16(b.access))
	body.Write(u16(b.this))
	body.Write(u16(b.super))
	body.Write(u16(uint16(len(b.interfaces))))
	for _, i := range b.interfaces {
		body.Write(u16(i))
	}
	body.Write(u16(uint16(len(b.fields))))
	for _, f := range b.fields {
		body.Write(f)
	}
	methods := make([][]byte, len(b.methods))
	for i, m := range b.methods {
		methods[i] = m.bytes()
	}
	body.Write(u16(uint16(len(methods))))
	for _, m := range methods {
		body.Write(m)
	}
	body.Write(u16(uint16(len(b.attrs))))
	for _, a := range b.attrs {
		body.Write(a)
	}

	var out bytes.Buffer
	out.Write(u32(0xCAFEBABE))
	out.Write(u16(0))
	out.Write(u16(52))
	out.Write(u16(b.count))
	out.Write(b.pool.Bytes())
	out.Write(body.Bytes())
	return out.Bytes()
}

// Parse serializes and parses the class, for tests that want the
// classfile.ClassFile directly.
func (b *Builder) Parse() (*classfile.ClassFile, error) {
	return classfile.Parse(bytes.NewReader(b.Bytes()))
}

func u16(v uint16) []byte {
	out := make([]byte, 2)
	binary.BigEndian.PutUint16(out, v)
	return out
}

func u32(v uint32) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, v)
	return out
}

func raw(b *Builder, name string, body []byte) []byte {
	out := u16(b.Utf8(name))
	out = append(out, u32(uint32(len(body)))...)
	return append(out, body...)
}
