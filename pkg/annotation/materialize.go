package annotation

import (
	"fmt"
	"strings"

	"github.com/daimatz/jvmc/pkg/descriptor"
	"github.com/daimatz/jvmc/pkg/diag"
	"github.com/daimatz/jvmc/pkg/metadata"
)

// Materializer emits the statements that allocate an annotation instance
// and assign its members.
type Materializer struct {
	Resolver metadata.Resolver
}

type emitter struct {
	r   metadata.Resolver
	b   *strings.Builder
	tmp int
}

// Materialize writes statements that store a new instance of ann into the
// C lvalue target.
func (m Materializer) Materialize(b *strings.Builder, ann *metadata.Annotation, target string) error {
	e := &emitter{r: m.Resolver, b: b}
	return e.annotation(ann, target)
}

// Accessor returns the accessor method of an annotation member.
func Accessor(r metadata.Resolver, annType, name string) (*metadata.Method, error) {
	c, ok := r.Lookup(annType)
	if !ok {
		return nil, &diag.UnresolvedReferenceError{Member: name, Reference: "annotation class " + annType}
	}
	for _, m := range c.Methods {
		if m.Name == name && len(m.Type.Params) == 0 && !m.IsStatic() {
			return m, nil
		}
	}
	return nil, &diag.UnresolvedReferenceError{Class: annType, Member: name, Reference: "annotation accessor " + annType + "." + name}
}

func (e *emitter) annotation(ann *metadata.Annotation, target string) error {
	ident := descriptor.SanitizeClass(ann.Type)
	fmt.Fprintf(e.b, "    %s = __NEW_INSTANCE_%s(threadStateData);\n", target, ident)
	fmt.Fprintf(e.b, "    ((struct obj__java_lang_annotation_Annotation *)%s)->__isAnnotation = JAVA_TRUE;\n", target)
	for _, m := range ann.Members {
		acc, err := Accessor(e.r, ann.Type, m.Name)
		if err != nil {
			return err
		}
		field := fmt.Sprintf("((struct obj__%s *)%s)->field__%s", ident, target, m.Name)
		if err := e.value(m.Value, acc.Type.Return, field); err != nil {
			return diag.InClass(err, ann.Type, m.Name)
		}
	}
	return nil
}

func (e *emitter) value(v metadata.Value, t descriptor.Type, target string) error {
	switch x := v.(type) {
	case metadata.Array:
		if !t.IsArray() {
			return diag.Malformed(t.Descriptor(), "array value for a non-array member")
		}
		return e.array(x, t, target)
	case metadata.Nested:
		return e.nested(x.Annotation, target)
	}
	expr, err := e.scalar(v)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.b, "    %s = %s;\n", target, expr)
	return nil
}

// scalar renders a value that fits in a single expression.
func (e *emitter) scalar(v metadata.Value) (string, error) {
	switch x := v.(type) {
	case metadata.Literal:
		if s, ok := x.V.(string); ok {
			return "fromNativeString(threadStateData, " + descriptor.StringLiteral(s) + ")", nil
		}
		lit, ok := descriptor.Literal(x.V)
		if !ok {
			return "", diag.Malformed(fmt.Sprintf("%v", x.V), "unsupported annotation literal %T", x.V)
		}
		return lit, nil
	case metadata.ClassLiteral:
		return "(JAVA_OBJECT)&" + descriptor.ClassSymbol(x.Type), nil
	case metadata.EnumConstant:
		c, ok := e.r.Lookup(x.Owner)
		if !ok || c.FindField(x.Name) == nil {
			return "", &diag.UnresolvedReferenceError{Reference: "enum constant " + x.Owner + "." + x.Name}
		}
		return "get_static_" + descriptor.FieldSymbol(x.Owner, x.Name) + "(threadStateData)", nil
	}
	return "", fmt.Errorf("unexpected annotation value %T", v)
}

func (e *emitter) nested(ann *metadata.Annotation, target string) error {
	e.tmp++
	tmp := fmt.Sprintf("__tmp%d", e.tmp)
	fmt.Fprintf(e.b, "    {\n    JAVA_OBJECT %s;\n", tmp)
	if err := e.annotation(ann, tmp); err != nil {
		return err
	}
	fmt.Fprintf(e.b, "    %s = %s;\n    }\n", target, tmp)
	return nil
}

// array allocates an array sized from the value and typed from the
// declared member type t, then assigns each element in order.
func (e *emitter) array(a metadata.Array, t descriptor.Type, target string) error {
	comp := t.Component()
	n := len(a.Elements)
	if !comp.IsReference() {
		k := comp.Kind
		fmt.Fprintf(e.b, "    %s = __NEW_ARRAY_%s(threadStateData, %d);\n", target, k.CType(), n)
		for i, el := range a.Elements {
			expr, err := e.scalar(el)
			if err != nil {
				return err
			}
			fmt.Fprintf(e.b, "    ((%s*)((JAVA_ARRAY)%s)->data)[%d] = %s;\n", k.ArrayElementCType(), target, i, expr)
		}
		return nil
	}
	fmt.Fprintf(e.b, "    %s = __NEW_ARRAY_%s(threadStateData, %d);\n", target, descriptor.Encode(comp), n)
	for i, el := range a.Elements {
		slot := fmt.Sprintf("((JAVA_OBJECT*)((JAVA_ARRAY)%s)->data)[%d]", target, i)
		if err := e.value(el, comp, slot); err != nil {
			return err
		}
	}
	return nil
}
