// Package annotation back-fills annotation defaults and turns annotation
// values into C statements that build the runtime annotation instance.
package annotation

import "github.com/daimatz/jvmc/pkg/metadata"

// Merge copies every member of defaults that subject lacks. Members that
// are nested annotations on both sides are merged recursively. Present
// members are never replaced, even when the two sides hold different value
// kinds. Merging is idempotent.
func Merge(subject, defaults *metadata.Annotation) {
	if subject == nil || defaults == nil {
		return
	}
	for _, d := range defaults.Members {
		cur, ok := subject.Get(d.Name)
		if !ok {
			subject.Set(d.Name, metadata.CloneValue(d.Value))
			continue
		}
		sn, ok1 := cur.(metadata.Nested)
		dn, ok2 := d.Value.(metadata.Nested)
		if ok1 && ok2 {
			Merge(sn.Annotation, dn.Annotation)
		}
	}
}

// Defaults collects the default values declared by the accessors of an
// annotation interface. It returns nil for other classes.
func Defaults(c *metadata.Class) *metadata.Annotation {
	if c == nil || !c.IsAnnotation() {
		return nil
	}
	out := &metadata.Annotation{Type: c.Name}
	for _, m := range c.Methods {
		if m.AnnotationDefault != nil {
			out.Members = append(out.Members, metadata.Member{Name: m.Name, Value: metadata.CloneValue(m.AnnotationDefault)})
		}
	}
	return out
}

// ApplyDefaults merges declared defaults into every annotation in anns and
// into the annotations nested in their values. Annotation types that cannot
// be resolved are left as they are.
func ApplyDefaults(anns []*metadata.Annotation, r metadata.Resolver) {
	for _, a := range anns {
		applyDefaults(a, r)
	}
}

func applyDefaults(a *metadata.Annotation, r metadata.Resolver) {
	if c, ok := r.Lookup(a.Type); ok {
		Merge(a, Defaults(c))
	}
	for _, m := range a.Members {
		walkNested(m.Value, func(n *metadata.Annotation) { applyDefaults(n, r) })
	}
}

func walkNested(v metadata.Value, fn func(*metadata.Annotation)) {
	switch x := v.(type) {
	case metadata.Nested:
		fn(x.Annotation)
	case metadata.Array:
		for _, e := range x.Elements {
			walkNested(e, fn)
		}
	}
}

// ApplyClassDefaults applies defaults to the annotations of a class and of
// all its members.
func ApplyClassDefaults(c *metadata.Class, r metadata.Resolver) {
	ApplyDefaults(c.Annotations, r)
	for _, f := range c.Fields {
		ApplyDefaults(f.Annotations, r)
	}
	for _, m := range c.Methods {
		ApplyDefaults(m.Annotations, r)
	}
}
