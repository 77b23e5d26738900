// Package deps computes the classes a translated class refers to and the
// transitive set of classes a program needs.
package deps

import (
	"sort"

	"github.com/daimatz/jvmc/pkg/annotation"
	"github.com/daimatz/jvmc/pkg/descriptor"
	"github.com/daimatz/jvmc/pkg/instruction"
	"github.com/daimatz/jvmc/pkg/metadata"
)

// Always lists the classes generated code depends on unconditionally.
var Always = []string{"java/lang/Object", "java/lang/String"}

// Set is a set of internal class names.
type Set map[string]struct{}

// Add inserts names into the set. Array descriptors are reduced to their
// element class and primitive arrays are dropped.
func (s Set) Add(names ...string) {
	for _, n := range names {
		if n == "" {
			continue
		}
		if n[0] == '[' {
			t, err := descriptor.Parse(n)
			if err != nil || t.Kind != descriptor.Object {
				continue
			}
			n = t.Class
		}
		s[n] = struct{}{}
	}
}

// Has reports whether name is in the set.
func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Sorted returns the names in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (s Set) addType(t descriptor.Type) {
	if t.Kind == descriptor.Object {
		s[t.Class] = struct{}{}
	}
}

// Collect returns the direct dependencies of c: its supertypes, field and
// signature types, declared exceptions, every class its instructions name
// and the classes reachable through its annotations. Dependencies of
// dependencies are not followed. The class itself is never included.
func Collect(c *metadata.Class, r metadata.Resolver) Set {
	s := Set{}
	s.Add(Always...)
	s.Add(c.Super)
	s.Add(c.Interfaces...)

	add := func(n string) { s.Add(n) }
	anns := func(list []*metadata.Annotation) {
		for _, a := range list {
			annotation.Dependencies(a, r, add)
		}
	}
	anns(c.Annotations)

	for _, f := range c.Fields {
		s.addType(f.Type)
		anns(f.Annotations)
	}
	for _, m := range c.Methods {
		for _, p := range m.Type.Params {
			s.addType(p)
		}
		s.addType(m.Type.Return)
		s.Add(m.Exceptions...)
		anns(m.Annotations)
		for _, ins := range m.Instructions {
			s.Add(instruction.Dependencies(ins)...)
		}
	}
	delete(s, c.Name)
	return s
}
