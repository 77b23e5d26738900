package annotation

import (
	"github.com/daimatz/jvmc/pkg/descriptor"
	"github.com/daimatz/jvmc/pkg/metadata"
)

// Dependencies reports every class the materialized form of ann needs:
// the annotation type, the declared reference types of its accessors,
// enum owners, class literals and, recursively, nested annotations.
// Accessor types come from the declaration, so arrays of enums or
// annotations resolve to their element class even when empty.
func Dependencies(ann *metadata.Annotation, r metadata.Resolver, add func(string)) {
	add(ann.Type)
	add("java/lang/annotation/Annotation")
	add("java/lang/Class")
	add("java/lang/String")
	for _, m := range ann.Members {
		if acc, err := Accessor(r, ann.Type, m.Name); err == nil {
			if ret := acc.Type.Return; ret.Kind == descriptor.Object {
				add(ret.Class)
			}
		}
		valueDependencies(m.Value, r, add)
	}
}

func valueDependencies(v metadata.Value, r metadata.Resolver, add func(string)) {
	switch x := v.(type) {
	case metadata.ClassLiteral:
		if x.Type.Kind == descriptor.Object {
			add(x.Type.Class)
		}
	case metadata.EnumConstant:
		add(x.Owner)
	case metadata.Nested:
		Dependencies(x.Annotation, r, add)
	case metadata.Array:
		for _, e := range x.Elements {
			valueDependencies(e, r, add)
		}
	}
}
