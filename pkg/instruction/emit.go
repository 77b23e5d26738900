package instruction

import (
	"fmt"
	"strings"

	"github.com/daimatz/jvmc/pkg/descriptor"
)

// Context supplies what an instruction needs from the method being
// translated.
type Context interface {
	PrivacyResolver

	// EmitLabel writes a label definition, or nothing for a dead label.
	EmitLabel(b *strings.Builder, l *Label)

	// StaticOwner returns the class that really declares a static method.
	StaticOwner(owner, name string) string

	// FieldOwner returns the class that really declares a field.
	FieldOwner(owner, name string) string

	// Exit returns the statements that release the frame before a return.
	Exit() string

	// LineNumbers reports whether line markers are emitted.
	LineNumbers() bool
}

// Emit writes the C fragment of one instruction.
func Emit(b *strings.Builder, ins Instruction, ctx Context) error {
	switch x := ins.(type) {
	case *Basic:
		emitBasic(b, x, ctx)
	case *Push:
		return emitPush(b, x)
	case *Var:
		s := varSlot(x.Op)
		if isLoad(x.Op) {
			fmt.Fprintf(b, "    %s(locals[%d].data.%s);\n", s.Push(), x.Index, s.Letter())
		} else {
			fmt.Fprintf(b, "    locals[%d].data.%s = %s(); locals[%d].type = %s;\n", x.Index, s.Letter(), s.Pop(), x.Index, s.Tag())
		}
	case *Inc:
		fmt.Fprintf(b, "    locals[%d].data.i += %d;\n", x.Index, x.Delta)
	case *Branch:
		emitBranch(b, x)
	case *Switch:
		b.WriteString("    switch(POP_INT()) {\n")
		for i, k := range x.Keys {
			fmt.Fprintf(b, "        case %s: goto %s;\n", descriptor.IntLiteral(k), x.Targets[i].Name())
		}
		fmt.Fprintf(b, "        default: goto %s;\n    }\n", x.Default.Name())
	case *Field:
		emitField(b, x, ctx)
	case *Invoke:
		EmitInvoke(b, x, Overlay{}, ctx)
	case *InvokeDynamic:
		return emitInvokeDynamic(b, x)
	case *TypeOp:
		return emitTypeOp(b, x)
	case *NewArray:
		fmt.Fprintf(b, "    SP[-1].data.o = __NEW_ARRAY_%s(threadStateData, SP[-1].data.i); SP[-1].type = CN1_TYPE_OBJECT;\n", x.Kind.CType())
	case *MultiArray:
		emitMultiArray(b, x)
	case *LabelMark:
		ctx.EmitLabel(b, x.Label)
	case *LineNumber:
		if ctx.LineNumbers() {
			fmt.Fprintf(b, "    __CN1_DEBUG_INFO(%d);\n", x.Line)
		}
	case *TryRegionBegin, *TryRegionEnd:
		// consumed by the region tracker
	default:
		return fmt.Errorf("unknown instruction %T", ins)
	}
	return nil
}

func emitBasic(b *strings.Builder, x *Basic, ctx Context) {
	switch x.Op {
	case OpNop:
	case OpReturn:
		fmt.Fprintf(b, "    %sreturn;\n", ctx.Exit())
	case OpIreturn, OpLreturn, OpFreturn, OpDreturn, OpAreturn:
		s := returnSlot(x.Op)
		fmt.Fprintf(b, "    { %s __ret = %s(); %sreturn __ret; }\n", s.CType(), s.Pop(), ctx.Exit())
	case OpAthrow:
		b.WriteString("    throwException(threadStateData, POP_OBJ());\n")
	case OpMonitorenter:
		b.WriteString("    monitorEnter(threadStateData, POP_OBJ());\n")
	case OpMonitorexit:
		b.WriteString("    monitorExit(threadStateData, POP_OBJ());\n")
	default:
		fmt.Fprintf(b, "    BC_%s();\n", opNames[x.Op])
	}
}

func emitPush(b *strings.Builder, x *Push) error {
	switch v := x.Value.(type) {
	case nil:
		b.WriteString("    PUSH_OBJ(JAVA_NULL);\n")
	case int32:
		fmt.Fprintf(b, "    PUSH_INT(%s);\n", descriptor.IntLiteral(v))
	case int64:
		fmt.Fprintf(b, "    PUSH_LONG(%s);\n", descriptor.LongLiteral(v))
	case float32:
		fmt.Fprintf(b, "    PUSH_FLOAT(%s);\n", descriptor.FloatLiteral(v))
	case float64:
		fmt.Fprintf(b, "    PUSH_DOUBLE(%s);\n", descriptor.DoubleLiteral(v))
	case string:
		fmt.Fprintf(b, "    PUSH_OBJ(fromNativeString(threadStateData, %s));\n", descriptor.StringLiteral(v))
	case descriptor.Type:
		fmt.Fprintf(b, "    PUSH_OBJ((JAVA_OBJECT)&%s);\n", descriptor.ClassSymbol(v))
	default:
		return fmt.Errorf("unsupported constant %T", x.Value)
	}
	return nil
}

// PushLiteral returns the C expression of a constant load, for use as an
// overlay operand.
func PushLiteral(x *Push) (string, bool) {
	switch v := x.Value.(type) {
	case nil:
		return "JAVA_NULL", true
	case int32:
		return descriptor.IntLiteral(v), true
	case int64:
		return descriptor.LongLiteral(v), true
	case float32:
		return descriptor.FloatLiteral(v), true
	case float64:
		return descriptor.DoubleLiteral(v), true
	case string:
		return "fromNativeString(threadStateData, " + descriptor.StringLiteral(v) + ")", true
	case descriptor.Type:
		return "(JAVA_OBJECT)&" + descriptor.ClassSymbol(v), true
	}
	return "", false
}

func isLoad(op byte) bool { return op >= OpIload && op <= OpAload }

func varSlot(op byte) descriptor.Slot {
	switch op {
	case OpIload, OpIstore:
		return descriptor.SlotInt
	case OpLload, OpLstore:
		return descriptor.SlotLong
	case OpFload, OpFstore:
		return descriptor.SlotFloat
	case OpDload, OpDstore:
		return descriptor.SlotDouble
	}
	return descriptor.SlotObject
}

func returnSlot(op byte) descriptor.Slot {
	switch op {
	case OpIreturn:
		return descriptor.SlotInt
	case OpLreturn:
		return descriptor.SlotLong
	case OpFreturn:
		return descriptor.SlotFloat
	case OpDreturn:
		return descriptor.SlotDouble
	}
	return descriptor.SlotObject
}

var conditions = map[byte]string{
	OpIfeq: "==", OpIfne: "!=", OpIflt: "<", OpIfge: ">=", OpIfgt: ">", OpIfle: "<=",
	OpIfIcmpeq: "==", OpIfIcmpne: "!=", OpIfIcmplt: "<", OpIfIcmpge: ">=", OpIfIcmpgt: ">", OpIfIcmple: "<=",
	OpIfAcmpeq: "==", OpIfAcmpne: "!=",
}

func emitBranch(b *strings.Builder, x *Branch) {
	target := x.Target.Name()
	switch {
	case x.Op == OpGoto:
		fmt.Fprintf(b, "    goto %s;\n", target)
	case x.Op == OpIfnull:
		fmt.Fprintf(b, "    if(POP_OBJ() == JAVA_NULL) goto %s;\n", target)
	case x.Op == OpIfnonnull:
		fmt.Fprintf(b, "    if(POP_OBJ() != JAVA_NULL) goto %s;\n", target)
	case x.Op >= OpIfeq && x.Op <= OpIfle:
		fmt.Fprintf(b, "    if(POP_INT() %s 0) goto %s;\n", conditions[x.Op], target)
	case x.Op >= OpIfIcmpeq && x.Op <= OpIfIcmple:
		fmt.Fprintf(b, "    SP -= 2; if(SP[0].data.i %s SP[1].data.i) goto %s;\n", conditions[x.Op], target)
	default:
		fmt.Fprintf(b, "    SP -= 2; if(SP[0].data.o %s SP[1].data.o) goto %s;\n", conditions[x.Op], target)
	}
}

func emitField(b *strings.Builder, x *Field, ctx Context) {
	s := x.Type.Slot()
	sym := descriptor.FieldSymbol(ctx.FieldOwner(x.Owner, x.Name), x.Name)
	switch x.Op {
	case OpGetstatic:
		fmt.Fprintf(b, "    %s(get_static_%s(threadStateData));\n", s.Push(), sym)
	case OpPutstatic:
		fmt.Fprintf(b, "    set_static_%s(threadStateData, %s());\n", sym, s.Pop())
	case OpGetfield:
		fmt.Fprintf(b, "    SP[-1].data.%s = get_field_%s(SP[-1].data.o); SP[-1].type = %s;\n", s.Letter(), sym, s.Tag())
	case OpPutfield:
		fmt.Fprintf(b, "    set_field_%s(threadStateData, SP[-1].data.%s, SP[-2].data.o); SP -= 2;\n", sym, s.Letter())
	}
}

func emitTypeOp(b *strings.Builder, x *TypeOp) error {
	t, err := classType(x.Class)
	if err != nil {
		return err
	}
	switch x.Op {
	case OpNew:
		fmt.Fprintf(b, "    PUSH_OBJ(__NEW_%s(threadStateData));\n", descriptor.Encode(t))
	case OpAnewarray:
		fmt.Fprintf(b, "    SP[-1].data.o = __NEW_ARRAY_%s(threadStateData, SP[-1].data.i); SP[-1].type = CN1_TYPE_OBJECT;\n", descriptor.Encode(t))
	case OpCheckcast:
		fmt.Fprintf(b, "    checkCast(threadStateData, SP[-1].data.o, &%s);\n", descriptor.ClassSymbol(t))
	case OpInstanceof:
		fmt.Fprintf(b, "    SP[-1].data.i = instanceOf(threadStateData, SP[-1].data.o, &%s); SP[-1].type = CN1_TYPE_INT;\n", descriptor.ClassSymbol(t))
	}
	return nil
}

func emitMultiArray(b *strings.Builder, x *MultiArray) {
	dims := make([]string, x.Dims)
	for i := range dims {
		dims[i] = fmt.Sprintf("SP[-%d].data.i", x.Dims-i)
	}
	fmt.Fprintf(b, "    { JAVA_INT dims[] = {%s}; SP -= %d; PUSH_OBJ(allocMultiArray(threadStateData, &%s, %d, dims)); }\n",
		strings.Join(dims, ", "), x.Dims, descriptor.ClassSymbol(x.Type), x.Dims)
}
