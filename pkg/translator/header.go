package translator

import (
	"fmt"
	"strings"

	"github.com/daimatz/jvmc/pkg/descriptor"
	"github.com/daimatz/jvmc/pkg/metadata"
)

// arrayDims is the number of array class objects generated per class.
const arrayDims = 3

const annotationBase = "java/lang/annotation/Annotation"

// prototype renders the C declaration of a method body under sym.
func prototype(sym string, m *metadata.Method) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s(CODENAME_ONE_THREAD_STATE", m.Type.Return.CType(), sym)
	if !m.IsStatic() {
		b.WriteString(", JAVA_OBJECT __cn1ThisObject")
	}
	for i, p := range m.Type.Params {
		fmt.Fprintf(&b, ", %s __cn1Arg%d", p.CType(), i+1)
	}
	b.WriteString(")")
	return b.String()
}

func (t *Translator) header(b *strings.Builder, c *metadata.Class) {
	ident := c.Ident()
	guard := "__" + strings.ToUpper(ident) + "_H__"
	fmt.Fprintf(b, "#ifndef %s\n#define %s\n\n#include \"cn1_globals.h\"\n", guard, guard)
	if c.Super != "" {
		fmt.Fprintf(b, "#include \"%s.h\"\n", descriptor.SanitizeClass(c.Super))
	}
	b.WriteString("\n")

	fmt.Fprintf(b, "extern struct clazz class__%s;\n", ident)
	for d := 1; d <= arrayDims; d++ {
		fmt.Fprintf(b, "extern struct clazz class_array%d__%s;\n", d, ident)
	}
	b.WriteString("\n")

	t.layout(b, c)

	fmt.Fprintf(b, "extern void __STATIC_INITIALIZER_%s(CODENAME_ONE_THREAD_STATE);\n", ident)
	fmt.Fprintf(b, "extern JAVA_OBJECT __NEW_%s(CODENAME_ONE_THREAD_STATE);\n", ident)
	fmt.Fprintf(b, "extern JAVA_OBJECT __NEW_ARRAY_%s(CODENAME_ONE_THREAD_STATE, JAVA_INT size);\n", ident)
	if c.IsAnnotation() {
		fmt.Fprintf(b, "extern JAVA_OBJECT __NEW_INSTANCE_%s(CODENAME_ONE_THREAD_STATE);\n", ident)
	}
	if len(c.Annotations) > 0 {
		fmt.Fprintf(b, "extern JAVA_OBJECT __ANNOTATIONS_%s(CODENAME_ONE_THREAD_STATE);\n", ident)
	}
	b.WriteString("\n")

	for _, f := range c.StaticFields() {
		sym := descriptor.FieldSymbol(c.Name, f.Name)
		ct := f.Type.CType()
		fmt.Fprintf(b, "extern %s get_static_%s(CODENAME_ONE_THREAD_STATE);\n", ct, sym)
		fmt.Fprintf(b, "extern JAVA_VOID set_static_%s(CODENAME_ONE_THREAD_STATE, %s __cn1Val);\n", sym, ct)
	}
	for _, f := range c.InstanceFields() {
		sym := descriptor.FieldSymbol(c.Name, f.Name)
		fmt.Fprintf(b, "#define get_field_%s(__cn1Obj) (((struct obj__%s *)(__cn1Obj))->%s)\n", sym, ident, sym)
		fmt.Fprintf(b, "#define set_field_%s(threadStateData, __cn1Val, __cn1Obj) (((struct obj__%s *)(__cn1Obj))->%s = (__cn1Val))\n", sym, ident, sym)
	}
	b.WriteString("\n")

	for _, m := range c.Methods {
		if !m.IsAbstract() || isAccessor(c, m) {
			fmt.Fprintf(b, "extern %s;\n", prototype(m.Symbol(), m))
		}
	}
	for _, m := range t.virtualMethods(c) {
		fmt.Fprintf(b, "extern %s;\n", prototype(descriptor.VirtualSymbol(c.Name, m.Name, m.Type), m))
	}
	fmt.Fprintf(b, "\n#endif\n")
}

// isAccessor reports whether m is a member accessor of an annotation type.
// Instances of annotation types store each member in a field__<name> slot.
func isAccessor(c *metadata.Class, m *metadata.Method) bool {
	return c.IsAnnotation() && !m.IsStatic() && len(m.Type.Params) == 0
}

// layout writes the instance struct. Fields of resolvable superclasses come
// first so a pointer to the struct can be used as any of its ancestors.
func (t *Translator) layout(b *strings.Builder, c *metadata.Class) {
	ident := c.Ident()
	fmt.Fprintf(b, "struct obj__%s {\n", ident)
	b.WriteString("    DEBUG_GC_VARIABLES\n")
	b.WriteString("    struct clazz *__codenameOneParentClsReference;\n")
	b.WriteString("    int __codenameOneReferenceCount;\n")
	b.WriteString("    void* __codenameOneThreadData;\n")
	b.WriteString("    int __codenameOneGcMark;\n")
	b.WriteString("    void* __ownerThread;\n")
	b.WriteString("    int __heapPosition;\n")
	for _, sc := range t.superChain(c) {
		for _, f := range sc.InstanceFields() {
			fmt.Fprintf(b, "    %s %s;\n", f.Type.CType(), descriptor.FieldSymbol(sc.Name, f.Name))
		}
	}
	if c.IsAnnotation() || c.Name == annotationBase {
		b.WriteString("    JAVA_BOOLEAN __isAnnotation;\n")
		for _, m := range c.Methods {
			if isAccessor(c, m) {
				fmt.Fprintf(b, "    %s field__%s;\n", m.Type.Return.CType(), m.Name)
			}
		}
	}
	b.WriteString("};\n\n")
}
