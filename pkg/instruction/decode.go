package instruction

import (
	"fmt"
	"sort"

	"github.com/daimatz/jvmc/pkg/classfile"
	"github.com/daimatz/jvmc/pkg/descriptor"
	"github.com/daimatz/jvmc/pkg/diag"
)

// codeReader reads operands out of a bytecode array. Reads past the end
// set err instead of panicking; callers check it once per instruction.
type codeReader struct {
	code []byte
	pc   int
	err  error
}

func (r *codeReader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.pc+n > len(r.code) {
		r.err = fmt.Errorf("truncated operand at pc %d", r.pc)
		return false
	}
	return true
}

// ReadU8 reads a uint8 operand and advances pc.
func (r *codeReader) ReadU8() uint8 {
	if !r.need(1) {
		return 0
	}
	val := r.code[r.pc]
	r.pc++
	return val
}

// ReadI8 reads an int8 operand and advances pc.
func (r *codeReader) ReadI8() int8 {
	return int8(r.ReadU8())
}

// ReadU16 reads a big-endian uint16 operand and advances pc by 2.
func (r *codeReader) ReadU16() uint16 {
	if !r.need(2) {
		return 0
	}
	val := uint16(r.code[r.pc])<<8 | uint16(r.code[r.pc+1])
	r.pc += 2
	return val
}

// ReadI16 reads a big-endian int16 operand and advances pc by 2.
func (r *codeReader) ReadI16() int16 {
	return int16(r.ReadU16())
}

// ReadI32 reads a big-endian int32 operand and advances pc by 4.
func (r *codeReader) ReadI32() int32 {
	if !r.need(4) {
		return 0
	}
	c := r.code[r.pc:]
	val := int32(uint32(c[0])<<24 | uint32(c[1])<<16 | uint32(c[2])<<8 | uint32(c[3]))
	r.pc += 4
	return val
}

// decoded is one instruction with the offset it started at.
type decoded struct {
	pc  int
	ins Instruction
}

type decoder struct {
	pool       []classfile.ConstantPoolEntry
	bootstraps []classfile.BootstrapMethod
	labels     map[int]*Label
}

func (d *decoder) label(pc int) *Label {
	l, ok := d.labels[pc]
	if !ok {
		l = &Label{Offset: pc}
		d.labels[pc] = l
	}
	return l
}

// Decode turns a Code attribute into the instruction list of a method.
// Exception table entries become region markers at the head of the list,
// in table order. Labels are created for every branch target, switch
// target and handler boundary and numbered in offset order.
func Decode(code *classfile.CodeAttribute, pool []classfile.ConstantPoolEntry, bootstraps []classfile.BootstrapMethod) ([]Instruction, error) {
	d := &decoder{pool: pool, bootstraps: bootstraps, labels: map[int]*Label{}}

	var head []Instruction
	for i, h := range code.ExceptionHandlers {
		exc := ""
		if h.CatchType != 0 {
			name, err := classfile.GetClassName(pool, h.CatchType)
			if err != nil {
				return nil, diag.Malformed("exception table", "entry %d: %v", i, err)
			}
			exc = name
		}
		head = append(head,
			&TryRegionBegin{Start: d.label(int(h.StartPC)), Handler: d.label(int(h.HandlerPC)), Exception: exc, Region: i},
			&TryRegionEnd{End: d.label(int(h.EndPC)), Region: i},
		)
	}

	r := &codeReader{code: code.Code}
	var body []decoded
	starts := map[int]bool{}
	for r.pc < len(r.code) {
		pc := r.pc
		starts[pc] = true
		op := r.ReadU8()
		ins, err := d.decodeOne(r, pc, op)
		if err != nil {
			return nil, err
		}
		if r.err != nil {
			return nil, diag.Malformed(fmt.Sprintf("opcode 0x%02X", op), "%v", r.err)
		}
		body = append(body, decoded{pc: pc, ins: ins})
	}
	starts[len(r.code)] = true

	offsets := make([]int, 0, len(d.labels))
	for pc := range d.labels {
		if !starts[pc] {
			return nil, diag.Malformed(fmt.Sprintf("offset %d", pc), "label is not on an instruction boundary")
		}
		offsets = append(offsets, pc)
	}
	sort.Ints(offsets)
	for i, pc := range offsets {
		d.labels[pc].ID = i + 1
	}

	lines := map[int]int{}
	for _, ln := range code.LineNumbers {
		lines[int(ln.StartPC)] = int(ln.Line)
	}

	out := make([]Instruction, 0, len(head)+len(body)+len(offsets)+len(lines))
	out = append(out, head...)
	for _, di := range body {
		if l, ok := d.labels[di.pc]; ok {
			out = append(out, &LabelMark{Label: l})
		}
		if line, ok := lines[di.pc]; ok {
			out = append(out, &LineNumber{Line: line})
		}
		out = append(out, di.ins)
	}
	if l, ok := d.labels[len(code.Code)]; ok {
		out = append(out, &LabelMark{Label: l})
	}
	return out, nil
}

func (d *decoder) decodeOne(r *codeReader, pc int, op byte) (Instruction, error) {
	if _, ok := opNames[op]; ok {
		return &Basic{Op: op}, nil
	}
	if generic, ok := loadStore[op]; ok {
		if idx, short := shortIndex(op); short {
			return &Var{Op: generic, Index: idx}, nil
		}
		return &Var{Op: generic, Index: int(r.ReadU8())}, nil
	}

	switch {
	case op >= OpIfeq && op <= OpGoto, op == OpIfnull, op == OpIfnonnull:
		return &Branch{Op: op, Target: d.label(pc + int(r.ReadI16()))}, nil
	}

	switch op {
	case OpAconstNull:
		return &Push{Value: nil}, nil
	case OpIconstM1, OpIconst0, OpIconst1, OpIconst2, OpIconst3, OpIconst4, OpIconst5:
		return &Push{Value: int32(op) - OpIconst0}, nil
	case OpLconst0, OpLconst1:
		return &Push{Value: int64(op - OpLconst0)}, nil
	case OpFconst0, OpFconst1, OpFconst2:
		return &Push{Value: float32(op - OpFconst0)}, nil
	case OpDconst0, OpDconst1:
		return &Push{Value: float64(op - OpDconst0)}, nil
	case OpBipush:
		return &Push{Value: int32(r.ReadI8())}, nil
	case OpSipush:
		return &Push{Value: int32(r.ReadI16())}, nil
	case OpLdc:
		return d.ldc(uint16(r.ReadU8()))
	case OpLdcW, OpLdc2W:
		return d.ldc(r.ReadU16())

	case OpIinc:
		idx := int(r.ReadU8())
		return &Inc{Index: idx, Delta: int(r.ReadI8())}, nil
	case OpWide:
		return d.wide(r)

	case OpGotoW:
		return &Branch{Op: OpGoto, Target: d.label(pc + int(r.ReadI32()))}, nil
	case OpJsr, OpJsrW, OpRet:
		return nil, diag.Malformed(fmt.Sprintf("opcode 0x%02X", op), "subroutines are not supported")

	case OpTableswitch, OpLookupswitch:
		return d.switchOp(r, pc, op)

	case OpGetstatic, OpPutstatic, OpGetfield, OpPutfield:
		ref, err := classfile.ResolveFieldref(d.pool, r.ReadU16())
		if err != nil {
			return nil, diag.Malformed("field reference", "%v", err)
		}
		t, err := descriptor.Parse(ref.Descriptor)
		if err != nil {
			return nil, err
		}
		return &Field{Op: op, Owner: ref.ClassName, Name: ref.FieldName, Desc: ref.Descriptor, Type: t}, nil

	case OpInvokevirtual, OpInvokespecial, OpInvokestatic, OpInvokeinterface:
		ref, err := classfile.ResolveMethodref(d.pool, r.ReadU16())
		if err != nil {
			return nil, diag.Malformed("method reference", "%v", err)
		}
		if op == OpInvokeinterface {
			r.ReadU8() // count
			r.ReadU8() // zero
		}
		mt, err := descriptor.ParseMethod(ref.Descriptor)
		if err != nil {
			return nil, err
		}
		return &Invoke{Op: op, Owner: ref.ClassName, Name: ref.MethodName, Desc: ref.Descriptor, Type: mt, Interface: ref.Interface}, nil

	case OpInvokedynamic:
		idx := r.ReadU16()
		r.ReadU16() // zero
		return d.invokeDynamic(idx)

	case OpNew, OpAnewarray, OpCheckcast, OpInstanceof:
		name, err := classfile.GetClassName(d.pool, r.ReadU16())
		if err != nil {
			return nil, diag.Malformed("class reference", "%v", err)
		}
		return &TypeOp{Op: op, Class: name}, nil

	case OpNewarray:
		code := r.ReadU8()
		k, ok := arrayTypes[code]
		if !ok {
			return nil, diag.Malformed("newarray", "unknown array type %d", code)
		}
		return &NewArray{Kind: k}, nil

	case OpMultianewarray:
		name, err := classfile.GetClassName(d.pool, r.ReadU16())
		if err != nil {
			return nil, diag.Malformed("class reference", "%v", err)
		}
		dims := int(r.ReadU8())
		t, err := descriptor.Parse(name)
		if err != nil {
			return nil, err
		}
		if dims < 1 || dims > t.Dims {
			return nil, diag.Malformed(name, "multianewarray with %d dimensions", dims)
		}
		return &MultiArray{Type: t, Dims: dims}, nil
	}
	return nil, diag.Malformed(fmt.Sprintf("opcode 0x%02X", op), "unknown opcode at pc %d", pc)
}

func (d *decoder) ldc(idx uint16) (Instruction, error) {
	c, err := classfile.GetLoadable(d.pool, idx)
	if err != nil {
		return nil, diag.Malformed("ldc", "%v", err)
	}
	switch v := c.(type) {
	case classfile.StringConstant:
		return &Push{Value: string(v)}, nil
	case classfile.ClassConstant:
		t, err := classType(string(v))
		if err != nil {
			return nil, err
		}
		return &Push{Value: t}, nil
	}
	return &Push{Value: c}, nil
}

// classType converts a CONSTANT_Class name, which is either an internal
// name or an array descriptor, into a Type.
func classType(name string) (descriptor.Type, error) {
	if len(name) > 0 && name[0] == '[' {
		return descriptor.Parse(name)
	}
	return descriptor.Reference(name), nil
}

func (d *decoder) wide(r *codeReader) (Instruction, error) {
	op := r.ReadU8()
	if op == OpIinc {
		idx := int(r.ReadU16())
		return &Inc{Index: idx, Delta: int(r.ReadI16())}, nil
	}
	generic, ok := loadStore[op]
	if !ok || op != generic {
		return nil, diag.Malformed(fmt.Sprintf("wide 0x%02X", op), "opcode cannot be widened")
	}
	return &Var{Op: op, Index: int(r.ReadU16())}, nil
}

func (d *decoder) switchOp(r *codeReader, pc int, op byte) (Instruction, error) {
	for r.pc%4 != 0 {
		r.ReadU8()
	}
	s := &Switch{Default: d.label(pc + int(r.ReadI32()))}
	if op == OpTableswitch {
		low, high := r.ReadI32(), r.ReadI32()
		if high < low || int64(high)-int64(low) > int64(len(r.code)) {
			return nil, diag.Malformed("tableswitch", "bad range %d..%d", low, high)
		}
		for k := int64(low); k <= int64(high) && r.err == nil; k++ {
			s.Keys = append(s.Keys, int32(k))
			s.Targets = append(s.Targets, d.label(pc+int(r.ReadI32())))
		}
		return s, nil
	}
	n := r.ReadI32()
	if n < 0 || int(n) > len(r.code) {
		return nil, diag.Malformed("lookupswitch", "bad pair count %d", n)
	}
	for i := int32(0); i < n && r.err == nil; i++ {
		s.Keys = append(s.Keys, r.ReadI32())
		s.Targets = append(s.Targets, d.label(pc+int(r.ReadI32())))
	}
	return s, nil
}

func (d *decoder) invokeDynamic(idx uint16) (Instruction, error) {
	info, err := classfile.ResolveInvokeDynamic(d.pool, idx)
	if err != nil {
		return nil, diag.Malformed("invokedynamic", "%v", err)
	}
	mt, err := descriptor.ParseMethod(info.Descriptor)
	if err != nil {
		return nil, err
	}
	ins := &InvokeDynamic{Name: info.Name, Desc: info.Descriptor, Type: mt}
	if int(info.BootstrapIndex) >= len(d.bootstraps) {
		return nil, diag.Malformed("invokedynamic", "bootstrap method %d out of range", info.BootstrapIndex)
	}
	bsm := d.bootstraps[info.BootstrapIndex]
	if h, ok := d.entry(bsm.MethodRef).(*classfile.ConstantMethodHandle); ok {
		if ref, err := classfile.ResolveMethodref(d.pool, h.ReferenceIndex); err == nil {
			ins.BootstrapOwner, ins.BootstrapName = ref.ClassName, ref.MethodName
		}
	}
	for _, a := range bsm.BootstrapArguments {
		c, err := classfile.GetLoadable(d.pool, a)
		if err != nil {
			// method handles and method types only matter to lambda
			// bootstraps, which are not translated.
			ins.Args = append(ins.Args, nil)
			continue
		}
		switch v := c.(type) {
		case classfile.StringConstant:
			ins.Args = append(ins.Args, string(v))
		case classfile.ClassConstant:
			t, err := classType(string(v))
			if err != nil {
				return nil, err
			}
			ins.Args = append(ins.Args, t)
		default:
			ins.Args = append(ins.Args, v)
		}
	}
	return ins, nil
}

func (d *decoder) entry(idx uint16) classfile.ConstantPoolEntry {
	if int(idx) >= len(d.pool) {
		return nil
	}
	return d.pool[idx]
}
