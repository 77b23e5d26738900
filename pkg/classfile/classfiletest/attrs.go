package classfiletest

// Attr renders one attribute_info against the builder's constant pool.
type Attr func(b *Builder) []byte

// Raw is an attribute with an opaque body.
func Raw(name string, body []byte) Attr {
	return func(b *Builder) []byte { return raw(b, name, body) }
}

// ConstantValue points a field at an existing pool index, usually from
// Builder.Int or Builder.String.
func ConstantValue(idx uint16) Attr {
	return func(b *Builder) []byte { return raw(b, "ConstantValue", u16(idx)) }
}

// SourceFile names the source file of the class.
func SourceFile(name string) Attr {
	return func(b *Builder) []byte { return raw(b, "SourceFile", u16(b.Utf8(name))) }
}

// Signature records a generic signature.
func Signature(sig string) Attr {
	return func(b *Builder) []byte { return raw(b, "Signature", u16(b.Utf8(sig))) }
}

// Exceptions lists checked exceptions of a method.
func Exceptions(names ...string) Attr {
	return func(b *Builder) []byte {
		body := u16(uint16(len(names)))
		for _, n := range names {
			body = append(body, u16(b.Class(n))...)
		}
		return raw(b, "Exceptions", body)
	}
}

// Ann describes one annotation to encode.
type Ann struct {
	Type    string // field descriptor
	Members []Member
}

// Member is one name = value pair.
type Member struct {
	Name  string
	Value Elem
}

// Elem renders an element_value.
type Elem func(b *Builder) []byte

// Visible renders RuntimeVisibleAnnotations.
func Visible(anns ...Ann) Attr {
	return annotations("RuntimeVisibleAnnotations", anns)
}

// Invisible renders RuntimeInvisibleAnnotations.
func Invisible(anns ...Ann) Attr {
	return annotations("RuntimeInvisibleAnnotations", anns)
}

// Default renders an AnnotationDefault attribute.
func Default(e Elem) Attr {
	return func(b *Builder) []byte { return raw(b, "AnnotationDefault", e(b)) }
}

func annotations(name string, anns []Ann) Attr {
	return func(b *Builder) []byte {
		body := u16(uint16(len(anns)))
		for _, a := range anns {
			body = append(body, a.encode(b)...)
		}
		return raw(b, name, body)
	}
}

func (a Ann) encode(b *Builder) []byte {
	out := u16(b.Utf8(a.Type))
	out = append(out, u16(uint16(len(a.Members)))...)
	for _, m := range a.Members {
		out = append(out, u16(b.Utf8(m.Name))...)
		out = append(out, m.Value(b)...)
	}
	return out
}

func tagged(tag byte, idx func(b *Builder) uint16) Elem {
	return func(b *Builder) []byte { return append([]byte{tag}, u16(idx(b))...) }
}

// IntElem is an 'I' element.
func IntElem(v int32) Elem {
	return tagged('I', func(b *Builder) uint16 { return b.Int(v) })
}

// BoolElem is a 'Z' element.
func BoolElem(v bool) Elem {
	i := int32(0)
	if v {
		i = 1
	}
	return tagged('Z', func(b *Builder) uint16 { return b.Int(i) })
}

// CharElem is a 'C' element.
func CharElem(v uint16) Elem {
	return tagged('C', func(b *Builder) uint16 { return b.Int(int32(v)) })
}

// LongElem is a 'J' element.
func LongElem(v int64) Elem {
	return tagged('J', func(b *Builder) uint16 { return b.Long(v) })
}

// DoubleElem is a 'D' element.
func DoubleElem(v float64) Elem {
	return tagged('D', func(b *Builder) uint16 { return b.Double(v) })
}

// StringElem is an 's' element. Its index points at a Utf8 entry.
func StringElem(s string) Elem {
	return tagged('s', func(b *Builder) uint16 { return b.Utf8(s) })
}

// ClassElem is a 'c' element holding a return descriptor.
func ClassElem(desc string) Elem {
	return tagged('c', func(b *Builder) uint16 { return b.Utf8(desc) })
}

// EnumElem is an 'e' element.
func EnumElem(typ, name string) Elem {
	return func(b *Builder) []byte {
		out := []byte{'e'}
		out = append(out, u16(b.Utf8(typ))...)
		return append(out, u16(b.Utf8(name))...)
	}
}

// AnnElem is a nested '@' element.
func AnnElem(a Ann) Elem {
	return func(b *Builder) []byte { return append([]byte{'@'}, a.encode(b)...) }
}

// ArrayElem is a '[' element.
func ArrayElem(elems ...Elem) Elem {
	return func(b *Builder) []byte {
		out := append([]byte{'['}, u16(uint16(len(elems)))...)
		for _, e := range elems {
			out = append(out, e(b)...)
		}
		return out
	}
}
