package translator

import (
	"fmt"
	"strings"

	"github.com/daimatz/jvmc/pkg/descriptor"
	"github.com/daimatz/jvmc/pkg/diag"
	"github.com/daimatz/jvmc/pkg/instruction"
	"github.com/daimatz/jvmc/pkg/metadata"
	"github.com/daimatz/jvmc/pkg/regions"
)

// methodContext is what instructions of one method see while being
// emitted. It owns the region tracker of that method.
type methodContext struct {
	*regions.Tracker
	r     metadata.Resolver
	exit  string
	lines bool
}

func (m *methodContext) IsMethodPrivate(owner, name, desc string) bool {
	return metadata.Privacy{Resolver: m.r}.IsMethodPrivate(owner, name, desc)
}

func (m *methodContext) StaticOwner(owner, name string) string {
	return metadata.StaticOwner(m.r, owner, name)
}

func (m *methodContext) FieldOwner(owner, name string) string {
	return metadata.FieldOwner(m.r, owner, name)
}

func (m *methodContext) Exit() string      { return m.exit }
func (m *methodContext) LineNumbers() bool { return m.lines }

// monitorTarget is the object locked by a synchronized method.
func monitorTarget(c *metadata.Class, m *metadata.Method) string {
	if m.IsStatic() {
		return "(JAVA_OBJECT)&class__" + c.Ident()
	}
	return "__cn1ThisObject"
}

// method writes the body of m. Abstract, native and intrinsic methods have
// none.
func (t *Translator) method(b *strings.Builder, c *metadata.Class, m *metadata.Method, index int) error {
	if !m.HasBody() {
		return nil
	}

	tracker := regions.New(m.Instructions, m.IsSynchronized())
	if err := tracker.Validate(); err != nil {
		return diag.InClass(err, c.Name, m.Name+m.Descriptor)
	}
	ctx := &methodContext{
		Tracker: tracker,
		r:       t.Resolver,
		exit:    "releaseForReturn(threadStateData); ",
		lines:   t.Config.LineNumbers,
	}
	if m.IsSynchronized() {
		ctx.exit = fmt.Sprintf("monitorExitBlock(threadStateData, %s); %s", monitorTarget(c, m), ctx.exit)
	}

	var body strings.Builder
	fmt.Fprintf(&body, "%s {\n", prototype(m.Symbol(), m))
	fmt.Fprintf(&body, "    DEFINE_METHOD_STACK(%d, %d, 0, cn1_class_id_%s, %d);\n", m.MaxStack, m.MaxLocals, c.Ident(), index)
	copyArguments(&body, m)
	tracker.Declarations(&body)
	if m.IsSynchronized() {
		fmt.Fprintf(&body, "    monitorEnterBlock(threadStateData, %s);\n", monitorTarget(c, m))
	}
	if err := emitInstructions(&body, m.Instructions, ctx); err != nil {
		return err
	}
	tracker.CatchStubs(&body)
	body.WriteString("}\n\n")

	b.WriteString(body.String())
	return nil
}

// copyArguments moves the receiver and parameters into the locals array.
// long and double take two local slots.
func copyArguments(b *strings.Builder, m *metadata.Method) {
	slot := 0
	if !m.IsStatic() {
		b.WriteString("    locals[0].data.o = __cn1ThisObject; locals[0].type = CN1_TYPE_OBJECT;\n")
		slot++
	}
	for i, p := range m.Type.Params {
		s := p.Slot()
		fmt.Fprintf(b, "    locals[%d].data.%s = __cn1Arg%d; locals[%d].type = %s;\n", slot, s.Letter(), i+1, slot, s.Tag())
		slot++
		if p.Dims == 0 && p.Kind.Wide() {
			slot++
		}
	}
}

// plan records the call sites whose constant operands are folded into the
// call instead of going through the operand stack.
type plan struct {
	overlays map[int]instruction.Overlay
	skip     map[int]bool
}

// deadLabel reports whether ins places a label nothing refers to. Such
// labels emit nothing and must not split a run.
func deadLabel(ins instruction.Instruction, used func(*instruction.Label) bool) bool {
	m, ok := ins.(*instruction.LabelMark)
	return ok && !used(m.Label)
}

// fuse finds runs of constant loads directly feeding the trailing
// parameters of a call and turns them into overlays. A used label inside
// the run is a jump target and stops it.
func fuse(instrs []instruction.Instruction, used func(*instruction.Label) bool) plan {
	p := plan{overlays: map[int]instruction.Overlay{}, skip: map[int]bool{}}
	for i, ins := range instrs {
		inv, ok := ins.(*instruction.Invoke)
		if !ok || inv.IsArrayClone() {
			continue
		}
		params := len(inv.Type.Params)
		ov := instruction.Overlay{Args: map[int]string{}}
		var folded []int
		j := i - 1
		for k := 1; k <= params; k++ {
			for j >= 0 && deadLabel(instrs[j], used) {
				j--
			}
			if j < 0 {
				break
			}
			push, ok := instrs[j].(*instruction.Push)
			if !ok || p.skip[j] {
				break
			}
			lit, ok := instruction.PushLiteral(push)
			if !ok {
				break
			}
			ov.Args[params-k] = lit
			folded = append(folded, j)
			j--
		}
		if ov.Empty() {
			continue
		}
		p.overlays[i] = ov
		for _, j := range folded {
			p.skip[j] = true
		}
	}
	return p
}

var storeSlots = map[byte]descriptor.Slot{
	instruction.OpIstore: descriptor.SlotInt,
	instruction.OpLstore: descriptor.SlotLong,
	instruction.OpFstore: descriptor.SlotFloat,
	instruction.OpDstore: descriptor.SlotDouble,
	instruction.OpAstore: descriptor.SlotObject,
}

// emitInstructions emits a method body. A call whose operands are all
// folded and whose result is stored straight into a local is written as a
// single assignment.
func emitInstructions(b *strings.Builder, instrs []instruction.Instruction, ctx *methodContext) error {
	p := fuse(instrs, ctx.Used)
	for i := 0; i < len(instrs); i++ {
		if p.skip[i] {
			continue
		}
		inv, ok := instrs[i].(*instruction.Invoke)
		if !ok {
			if err := instruction.Emit(b, instrs[i], ctx); err != nil {
				return err
			}
			continue
		}
		ov := p.overlays[i]
		next := i + 1
		for next < len(instrs) && deadLabel(instrs[next], ctx.Used) {
			next++
		}
		if expr, ok := instruction.EmitInline(inv, ov, ctx); ok && next < len(instrs) {
			if v, ok := instrs[next].(*instruction.Var); ok && storeSlots[v.Op] == inv.Type.Return.Slot() {
				s := inv.Type.Return.Slot()
				fmt.Fprintf(b, "    locals[%d].data.%s = %s; locals[%d].type = %s;\n", v.Index, s.Letter(), expr, v.Index, s.Tag())
				i = next
				continue
			}
		}
		instruction.EmitInvoke(b, inv, ov, ctx)
	}
	return nil
}
