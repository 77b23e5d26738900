package instruction

import (
	"fmt"
	"strings"

	"github.com/daimatz/jvmc/pkg/descriptor"
	"github.com/daimatz/jvmc/pkg/diag"
)

// Overlay supplies literal operands for a call site so they are not read
// from the operand stack. It is kept apart from the Invoke it applies to.
type Overlay struct {
	Target string         // receiver expression, "" to read it from the stack
	Args   map[int]string // operand expressions by parameter index
}

// Empty reports whether the overlay supplies nothing.
func (o Overlay) Empty() bool { return o.Target == "" && len(o.Args) == 0 }

// Symbol returns the C function called by the instruction.
func Symbol(inv *Invoke, ctx Context) string {
	owner := inv.Owner
	if inv.Op == OpInvokestatic {
		owner = ctx.StaticOwner(owner, inv.Name)
	}
	if strings.HasPrefix(owner, "[") {
		owner = "java/lang/Object"
	}
	switch inv.Dispatch(ctx) {
	case Virtual, Interface:
		return descriptor.VirtualSymbol(owner, inv.Name, inv.Type)
	}
	return descriptor.MethodSymbol(owner, inv.Name, inv.Type)
}

// arguments renders the receiver and parameter expressions and returns the
// number of stack slots they consume.
func arguments(inv *Invoke, ov Overlay) ([]string, int) {
	stackArgs := 0
	for i := range inv.Type.Params {
		if _, ok := ov.Args[i]; !ok {
			stackArgs++
		}
	}
	args := []string{"threadStateData"}
	popped := stackArgs
	if inv.Op != OpInvokestatic {
		if ov.Target != "" {
			args = append(args, ov.Target)
		} else {
			args = append(args, fmt.Sprintf("SP[-%d].data.o", stackArgs+1))
			popped++
		}
	}
	offset := stackArgs
	for i, p := range inv.Type.Params {
		if lit, ok := ov.Args[i]; ok {
			args = append(args, lit)
			continue
		}
		args = append(args, fmt.Sprintf("SP[-%d].data.%s", offset, p.Slot().Letter()))
		offset--
	}
	return args, popped
}

// EmitInvoke writes a call as statements over the operand stack. Operands
// present in the overlay are used in place of stack reads.
func EmitInvoke(b *strings.Builder, inv *Invoke, ov Overlay, ctx Context) {
	if inv.IsArrayClone() {
		if ov.Target != "" {
			fmt.Fprintf(b, "    PUSH_OBJ(cloneArray(%s));\n", ov.Target)
		} else {
			b.WriteString("    POP_MANY_AND_PUSH_OBJ(cloneArray(PEEK_OBJ(1)), 1);\n")
		}
		return
	}
	args, popped := arguments(inv, ov)
	call := Symbol(inv, ctx) + "(" + strings.Join(args, ", ") + ")"
	ret := inv.Type.Return.Slot()
	switch {
	case ret == descriptor.SlotNone:
		fmt.Fprintf(b, "    %s;", call)
		if popped > 0 {
			fmt.Fprintf(b, " SP -= %d;", popped)
		}
		b.WriteByte('\n')
	case popped == 0:
		fmt.Fprintf(b, "    %s(%s);\n", ret.Push(), call)
	default:
		fmt.Fprintf(b, "    { %s tmpResult = %s;\n", ret.CType(), call)
		if popped > 1 {
			fmt.Fprintf(b, "    SP -= %d;\n", popped-1)
		}
		fmt.Fprintf(b, "    SP[-1].data.%s = tmpResult; SP[-1].type = %s; }\n", ret.Letter(), ret.Tag())
	}
}

// EmitInline returns the call as a single C expression. It only succeeds
// when the overlay supplies every operand and the method returns a value.
func EmitInline(inv *Invoke, ov Overlay, ctx Context) (string, bool) {
	if inv.IsArrayClone() {
		if ov.Target == "" {
			return "", false
		}
		return "cloneArray(" + ov.Target + ")", true
	}
	if inv.Type.Return.IsVoid() {
		return "", false
	}
	args, popped := arguments(inv, ov)
	if popped > 0 {
		return "", false
	}
	return Symbol(inv, ctx) + "(" + strings.Join(args, ", ") + ")", true
}

const stringConcatFactory = "java/lang/invoke/StringConcatFactory"

// IsStringConcat reports whether the call site is javac's string
// concatenation bootstrap.
func (x *InvokeDynamic) IsStringConcat() bool {
	return x.BootstrapOwner == stringConcatFactory &&
		(x.BootstrapName == "makeConcatWithConstants" || x.BootstrapName == "makeConcat")
}

func emitInvokeDynamic(b *strings.Builder, x *InvokeDynamic) error {
	if !x.IsStringConcat() {
		return &diag.UnresolvedReferenceError{
			Member:    x.Name + x.Desc,
			Reference: "bootstrap method " + x.BootstrapOwner + "." + x.BootstrapName,
		}
	}
	recipe := strings.Repeat("\x01", len(x.Type.Params))
	var constants []any
	if x.BootstrapName == "makeConcatWithConstants" {
		if len(x.Args) == 0 {
			return diag.Malformed(x.Desc, "string concatenation without a recipe")
		}
		r, ok := x.Args[0].(string)
		if !ok {
			return diag.Malformed(x.Desc, "string concatenation recipe is %T", x.Args[0])
		}
		recipe, constants = r, x.Args[1:]
	}

	n := len(x.Type.Params)
	var parts []string
	var text strings.Builder
	flush := func() {
		if text.Len() > 0 {
			parts = append(parts, "fromNativeString(threadStateData, "+descriptor.StringLiteral(text.String())+")")
			text.Reset()
		}
	}
	arg := 0
	for _, c := range recipe {
		switch c {
		case '\x01':
			if arg >= n {
				return diag.Malformed(recipe, "recipe uses more arguments than %s declares", x.Desc)
			}
			flush()
			p := x.Type.Params[arg]
			parts = append(parts, stringValue(p, fmt.Sprintf("SP[-%d].data.%s", n-arg, p.Slot().Letter())))
			arg++
		case '\x02':
			if len(constants) == 0 {
				return diag.Malformed(recipe, "recipe uses more constants than supplied")
			}
			flush()
			lit, ok := PushLiteral(&Push{Value: constants[0]})
			if !ok {
				return diag.Malformed(recipe, "unsupported concatenation constant %T", constants[0])
			}
			parts = append(parts, lit)
			constants = constants[1:]
		default:
			text.WriteRune(c)
		}
	}
	flush()

	call := fmt.Sprintf("concatStrings(threadStateData, %d%s)", len(parts), joinArgs(parts))
	if n == 0 {
		fmt.Fprintf(b, "    PUSH_OBJ(%s);\n", call)
		return nil
	}
	fmt.Fprintf(b, "    { JAVA_OBJECT tmpResult = %s;\n    SP -= %d; PUSH_OBJ(tmpResult); }\n", call, n)
	return nil
}

func joinArgs(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	return ", " + strings.Join(parts, ", ")
}

// stringValue converts one concatenation operand to a String through the
// matching String.valueOf overload.
func stringValue(t descriptor.Type, expr string) string {
	param := t
	switch {
	case t.IsReference():
		param = descriptor.Reference("java/lang/Object")
	case t.Kind == descriptor.Byte || t.Kind == descriptor.Short:
		param = descriptor.Primitive(descriptor.Int)
	}
	mt := descriptor.MethodType{Params: []descriptor.Type{param}, Return: descriptor.Reference("java/lang/String")}
	return descriptor.MethodSymbol("java/lang/String", "valueOf", mt) + "(threadStateData, " + expr + ")"
}
