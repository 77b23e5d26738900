// Package translator turns class metadata into C compilation units for the
// stack VM runtime.
package translator

import (
	"fmt"
	"strings"

	"github.com/daimatz/jvmc/pkg/annotation"
	"github.com/daimatz/jvmc/pkg/config"
	"github.com/daimatz/jvmc/pkg/deps"
	"github.com/daimatz/jvmc/pkg/descriptor"
	"github.com/daimatz/jvmc/pkg/diag"
	"github.com/daimatz/jvmc/pkg/metadata"
	"github.com/rs/zerolog"
)

// Translator generates C code for classes.
type Translator struct {
	Config   *config.Config
	Resolver metadata.Resolver
	Logger   zerolog.Logger
}

// New creates a new Translator. A nil cfg uses the defaults.
func New(cfg *config.Config, r metadata.Resolver, log zerolog.Logger) *Translator {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Translator{Config: cfg, Resolver: r, Logger: log}
}

// Unit is the generated code of one class.
type Unit struct {
	Class        string
	Header       []byte
	Source       []byte
	Dependencies []string
}

// Ident returns the file name stem of the unit.
func (u *Unit) Ident() string { return descriptor.SanitizeClass(u.Class) }

// TranslateClass generates the header and source of c. Annotation defaults
// must already be merged.
func (t *Translator) TranslateClass(c *metadata.Class) (*Unit, error) {
	u := &Unit{
		Class:        c.Name,
		Dependencies: deps.Collect(c, t.Resolver).Sorted(),
	}

	var h strings.Builder
	t.header(&h, c)
	u.Header = []byte(h.String())

	var s strings.Builder
	if err := t.source(&s, c, u.Dependencies); err != nil {
		return nil, err
	}
	u.Source = []byte(s.String())
	return u, nil
}

func (t *Translator) source(b *strings.Builder, c *metadata.Class, dependencies []string) error {
	ident := c.Ident()
	fmt.Fprintf(b, "#include \"cn1_globals.h\"\n#include \"%s.h\"\n", ident)
	for _, d := range dependencies {
		fmt.Fprintf(b, "#include \"%s.h\"\n", descriptor.SanitizeClass(d))
	}
	b.WriteString("\n")

	t.statics(b, c)
	t.classObject(b, c)
	t.allocators(b, c)
	if err := t.annotations(b, c); err != nil {
		return err
	}
	for i, m := range c.Methods {
		if err := t.method(b, c, m, i); err != nil {
			return diag.InClass(err, c.Name, m.Name+m.Descriptor)
		}
	}
	t.virtuals(b, c)
	return nil
}

// annotations writes __ANNOTATIONS_<ident>, which builds the array of
// annotation instances attached to the class.
func (t *Translator) annotations(b *strings.Builder, c *metadata.Class) error {
	if len(c.Annotations) == 0 {
		return nil
	}
	fmt.Fprintf(b, "JAVA_OBJECT __ANNOTATIONS_%s(CODENAME_ONE_THREAD_STATE) {\n", c.Ident())
	fmt.Fprintf(b, "    JAVA_OBJECT __annotations = __NEW_ARRAY_java_lang_annotation_Annotation(threadStateData, %d);\n", len(c.Annotations))
	mat := annotation.Materializer{Resolver: t.Resolver}
	for i, a := range c.Annotations {
		b.WriteString("    {\n    JAVA_OBJECT __annotation;\n")
		if err := mat.Materialize(b, a, "__annotation"); err != nil {
			return diag.InClass(err, c.Name, "")
		}
		fmt.Fprintf(b, "    ((JAVA_OBJECT*)((JAVA_ARRAY)__annotations)->data)[%d] = __annotation;\n    }\n", i)
	}
	b.WriteString("    return __annotations;\n}\n\n")
	return nil
}

// superChain returns c and its resolvable superclasses, root first.
func (t *Translator) superChain(c *metadata.Class) []*metadata.Class {
	chain := []*metadata.Class{c}
	seen := map[string]bool{c.Name: true}
	for cur := c.Super; cur != "" && !seen[cur]; {
		seen[cur] = true
		sc, ok := t.Resolver.Lookup(cur)
		if !ok {
			break
		}
		chain = append(chain, sc)
		cur = sc.Super
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// virtualMethods returns every overridable method visible on c: its own,
// then inherited ones from superclasses and interfaces, once per
// signature.
func (t *Translator) virtualMethods(c *metadata.Class) []*metadata.Method {
	var out []*metadata.Method
	seenSig := map[string]bool{}
	seenClass := map[string]bool{}
	var walk func(c *metadata.Class)
	walk = func(c *metadata.Class) {
		if seenClass[c.Name] {
			return
		}
		seenClass[c.Name] = true
		for _, m := range c.Methods {
			if !m.IsVirtual() || seenSig[m.Name+m.Descriptor] {
				continue
			}
			seenSig[m.Name+m.Descriptor] = true
			out = append(out, m)
		}
		next := c.Interfaces
		if c.Super != "" {
			next = append([]string{c.Super}, next...)
		}
		for _, n := range next {
			if sc, ok := t.Resolver.Lookup(n); ok {
				walk(sc)
			}
		}
	}
	walk(c)
	return out
}
