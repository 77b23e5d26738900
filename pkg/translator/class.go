package translator

import (
	"fmt"
	"strings"

	"github.com/daimatz/jvmc/pkg/descriptor"
	"github.com/daimatz/jvmc/pkg/metadata"
)

// statics writes static field storage, the static initializer and the
// static accessors. Accessors run the initializer first.
func (t *Translator) statics(b *strings.Builder, c *metadata.Class) {
	ident := c.Ident()
	fields := c.StaticFields()
	for _, f := range fields {
		init := "0"
		if lit, ok := descriptor.Literal(f.Constant); ok {
			init = lit
		}
		fmt.Fprintf(b, "static %s STATIC_FIELD_%s = %s;\n", f.Type.CType(), descriptor.FieldSymbol(c.Name, f.Name), init)
	}
	if len(fields) > 0 {
		b.WriteString("\n")
	}

	fmt.Fprintf(b, "void __STATIC_INITIALIZER_%s(CODENAME_ONE_THREAD_STATE) {\n", ident)
	fmt.Fprintf(b, "    if(class__%s.initialized) return;\n", ident)
	fmt.Fprintf(b, "    class__%s.initialized = JAVA_TRUE;\n", ident)
	if c.Super != "" {
		fmt.Fprintf(b, "    __STATIC_INITIALIZER_%s(threadStateData);\n", descriptor.SanitizeClass(c.Super))
	}
	for _, f := range fields {
		if s, ok := f.Constant.(string); ok {
			fmt.Fprintf(b, "    STATIC_FIELD_%s = fromNativeString(threadStateData, %s);\n",
				descriptor.FieldSymbol(c.Name, f.Name), descriptor.StringLiteral(s))
		}
	}
	if m := c.FindMethod("<clinit>", "()V"); m != nil {
		fmt.Fprintf(b, "    %s(threadStateData);\n", m.Symbol())
	}
	b.WriteString("}\n\n")

	for _, f := range fields {
		sym := descriptor.FieldSymbol(c.Name, f.Name)
		ct := f.Type.CType()
		fmt.Fprintf(b, "%s get_static_%s(CODENAME_ONE_THREAD_STATE) {\n", ct, sym)
		fmt.Fprintf(b, "    __STATIC_INITIALIZER_%s(threadStateData);\n", ident)
		fmt.Fprintf(b, "    return STATIC_FIELD_%s;\n}\n\n", sym)
		fmt.Fprintf(b, "JAVA_VOID set_static_%s(CODENAME_ONE_THREAD_STATE, %s __cn1Val) {\n", sym, ct)
		fmt.Fprintf(b, "    __STATIC_INITIALIZER_%s(threadStateData);\n", ident)
		fmt.Fprintf(b, "    STATIC_FIELD_%s = __cn1Val;\n}\n\n", sym)
	}
}

// classObject writes the runtime class descriptor and its array classes.
func (t *Translator) classObject(b *strings.Builder, c *metadata.Class) {
	ident := c.Ident()
	base := "0"
	if c.Super != "" {
		base = "&class__" + descriptor.SanitizeClass(c.Super)
	}
	annotations := "0"
	if len(c.Annotations) > 0 {
		annotations = "__ANNOTATIONS_" + ident
	}
	fmt.Fprintf(b, "struct clazz class__%s = {\n", ident)
	fmt.Fprintf(b, "    .clsName = %s,\n", descriptor.StringLiteral(strings.ReplaceAll(c.Name, "/", ".")))
	fmt.Fprintf(b, "    .classId = cn1_class_id_%s,\n", ident)
	fmt.Fprintf(b, "    .baseClass = %s,\n", base)
	fmt.Fprintf(b, "    .isInterface = %s,\n", descriptor.BoolLiteral(c.IsInterface()))
	fmt.Fprintf(b, "    .isAnnotation = %s,\n", descriptor.BoolLiteral(c.IsAnnotation()))
	fmt.Fprintf(b, "    .isEnum = %s,\n", descriptor.BoolLiteral(c.IsEnum()))
	fmt.Fprintf(b, "    .size = sizeof(struct obj__%s),\n", ident)
	fmt.Fprintf(b, "    .initializer = __STATIC_INITIALIZER_%s,\n", ident)
	fmt.Fprintf(b, "    .annotations = %s,\n", annotations)
	b.WriteString("};\n\n")

	elem := "L" + c.Name + ";"
	for d := 1; d <= arrayDims; d++ {
		component := "&class__" + ident
		if d > 1 {
			component = fmt.Sprintf("&class_array%d__%s", d-1, ident)
		}
		fmt.Fprintf(b, "struct clazz class_array%d__%s = {\n", d, ident)
		fmt.Fprintf(b, "    .clsName = %s,\n", descriptor.StringLiteral(strings.Repeat("[", d)+elem))
		fmt.Fprintf(b, "    .classId = cn1_array_%d_id_%s,\n", d, ident)
		fmt.Fprintf(b, "    .baseClass = &class__java_lang_Object,\n")
		fmt.Fprintf(b, "    .isArray = JAVA_TRUE,\n")
		fmt.Fprintf(b, "    .dimensions = %d,\n", d)
		fmt.Fprintf(b, "    .arrayType = %s,\n", component)
		b.WriteString("};\n\n")
	}
}

// allocators writes __NEW_ and __NEW_ARRAY_ for the class, and the
// annotation instance allocator and accessors for annotation types.
func (t *Translator) allocators(b *strings.Builder, c *metadata.Class) {
	ident := c.Ident()
	fmt.Fprintf(b, "JAVA_OBJECT __NEW_%s(CODENAME_ONE_THREAD_STATE) {\n", ident)
	fmt.Fprintf(b, "    __STATIC_INITIALIZER_%s(threadStateData);\n", ident)
	fmt.Fprintf(b, "    return codenameOneGcMalloc(threadStateData, sizeof(struct obj__%s), &class__%s);\n}\n\n", ident, ident)
	fmt.Fprintf(b, "JAVA_OBJECT __NEW_ARRAY_%s(CODENAME_ONE_THREAD_STATE, JAVA_INT size) {\n", ident)
	fmt.Fprintf(b, "    return allocArray(threadStateData, size, &class_array1__%s, sizeof(JAVA_OBJECT), 1);\n}\n\n", ident)
	if !c.IsAnnotation() {
		return
	}
	fmt.Fprintf(b, "JAVA_OBJECT __NEW_INSTANCE_%s(CODENAME_ONE_THREAD_STATE) {\n", ident)
	fmt.Fprintf(b, "    return codenameOneGcMalloc(threadStateData, sizeof(struct obj__%s), &class__%s);\n}\n\n", ident, ident)
	for _, m := range c.Methods {
		if !isAccessor(c, m) {
			continue
		}
		fmt.Fprintf(b, "%s {\n", prototype(m.Symbol(), m))
		fmt.Fprintf(b, "    return ((struct obj__%s *)__cn1ThisObject)->field__%s;\n}\n\n", ident, m.Name)
	}
}

// virtuals writes one dispatch entry per overridable method visible on the
// class. The entry looks the implementation up on the receiver's class.
func (t *Translator) virtuals(b *strings.Builder, c *metadata.Class) {
	for _, m := range t.virtualMethods(c) {
		sym := descriptor.VirtualSymbol(c.Name, m.Name, m.Type)
		params := []string{"CODENAME_ONE_THREAD_STATE", "JAVA_OBJECT"}
		args := []string{"threadStateData", "__cn1ThisObject"}
		for i, p := range m.Type.Params {
			params = append(params, p.CType())
			args = append(args, fmt.Sprintf("__cn1Arg%d", i+1))
		}
		fn := fmt.Sprintf("((%s (*)(%s))resolveVirtual(threadStateData, __cn1ThisObject, %s))",
			m.Type.Return.CType(), strings.Join(params, ", "), descriptor.StringLiteral(m.Name+m.Descriptor))
		call := fn + "(" + strings.Join(args, ", ") + ")"

		fmt.Fprintf(b, "%s {\n", prototype(sym, m))
		if m.Type.Return.IsVoid() {
			fmt.Fprintf(b, "    %s;\n}\n\n", call)
		} else {
			fmt.Fprintf(b, "    return %s;\n}\n\n", call)
		}
	}
}
