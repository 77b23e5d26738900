package classfile

import (
	"encoding/binary"
	"fmt"
)

// decoder reads big-endian values out of an attribute body that is already
// in memory.
type decoder struct {
	pool []ConstantPoolEntry
	data []byte
	off  int
}

func (d *decoder) u8() (uint8, error) {
	if d.off+1 > len(d.data) {
		return 0, fmt.Errorf("truncated at offset %d", d.off)
	}
	v := d.data[d.off]
	d.off++
	return v, nil
}

func (d *decoder) u16() (uint16, error) {
	if d.off+2 > len(d.data) {
		return 0, fmt.Errorf("truncated at offset %d", d.off)
	}
	v := binary.BigEndian.Uint16(d.data[d.off:])
	d.off += 2
	return v, nil
}

func (d *decoder) utf8() (string, error) {
	idx, err := d.u16()
	if err != nil {
		return "", err
	}
	return GetUtf8(d.pool, idx)
}

// attribute reads one nested attribute_info.
func (d *decoder) attribute() (string, []byte, error) {
	name, err := d.utf8()
	if err != nil {
		return "", nil, err
	}
	if d.off+4 > len(d.data) {
		return "", nil, fmt.Errorf("truncated attribute length at offset %d", d.off)
	}
	n := int(binary.BigEndian.Uint32(d.data[d.off:]))
	d.off += 4
	if d.off+n > len(d.data) {
		return "", nil, fmt.Errorf("attribute %s overruns its parent (%d bytes)", name, n)
	}
	body := d.data[d.off : d.off+n]
	d.off += n
	return name, body, nil
}

func parseAnnotations(pool []ConstantPoolEntry, data []byte, visible bool) ([]Annotation, error) {
	d := &decoder{pool: pool, data: data}
	n, err := d.u16()
	if err != nil {
		return nil, err
	}
	out := make([]Annotation, n)
	for i := range out {
		a, err := d.annotation()
		if err != nil {
			return nil, fmt.Errorf("annotation %d: %w", i, err)
		}
		a.Visible = visible
		out[i] = *a
	}
	return out, nil
}

func (d *decoder) annotation() (*Annotation, error) {
	typ, err := d.utf8()
	if err != nil {
		return nil, fmt.Errorf("reading type: %w", err)
	}
	n, err := d.u16()
	if err != nil {
		return nil, err
	}
	a := &Annotation{Type: typ, Members: make([]ElementPair, n)}
	for i := range a.Members {
		name, err := d.utf8()
		if err != nil {
			return nil, fmt.Errorf("reading member %d name: %w", i, err)
		}
		v, err := d.elementValue()
		if err != nil {
			return nil, fmt.Errorf("member %s: %w", name, err)
		}
		a.Members[i] = ElementPair{Name: name, Value: v}
	}
	return a, nil
}

func (d *decoder) elementValue() (ElementValue, error) {
	tag, err := d.u8()
	if err != nil {
		return ElementValue{}, err
	}
	v := ElementValue{Tag: tag}
	switch tag {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		idx, err := d.u16()
		if err != nil {
			return v, err
		}
		c, err := GetLoadable(d.pool, idx)
		if err != nil {
			return v, err
		}
		v.Const = narrowConst(tag, c)
	case 's':
		s, err := d.utf8()
		if err != nil {
			return v, err
		}
		v.Const = s
	case 'e':
		if v.EnumType, err = d.utf8(); err != nil {
			return v, err
		}
		if v.EnumName, err = d.utf8(); err != nil {
			return v, err
		}
	case 'c':
		if v.Class, err = d.utf8(); err != nil {
			return v, err
		}
	case '@':
		if v.Annotation, err = d.annotation(); err != nil {
			return v, err
		}
	case '[':
		n, err := d.u16()
		if err != nil {
			return v, err
		}
		v.Array = make([]ElementValue, n)
		for i := range v.Array {
			if v.Array[i], err = d.elementValue(); err != nil {
				return v, fmt.Errorf("array element %d: %w", i, err)
			}
		}
	default:
		return v, fmt.Errorf("unknown element_value tag %q", tag)
	}
	return v, nil
}

// narrowConst converts the int32 pool entry used for B, C, S and Z into the
// Go type of the declared member.
func narrowConst(tag byte, c any) any {
	i, ok := c.(int32)
	if !ok {
		return c
	}
	switch tag {
	case 'B':
		return int8(i)
	case 'C':
		return uint16(i)
	case 'S':
		return int16(i)
	case 'Z':
		return i != 0
	}
	return c
}
