package deps

import (
	"sort"

	"github.com/daimatz/jvmc/pkg/metadata"
	"github.com/rs/zerolog"
)

// Loader resolves a class by internal name.
type Loader interface {
	Load(name string) (*metadata.Class, error)
}

// Resolver adapts a Loader to metadata.Resolver.
type Resolver struct {
	Loader Loader
}

// Lookup implements metadata.Resolver.
func (r Resolver) Lookup(name string) (*metadata.Class, bool) {
	c, err := r.Loader.Load(name)
	return c, err == nil && c != nil
}

// Closure loads roots and everything they transitively depend on. A
// dependency that cannot be loaded is logged and skipped; the missing roots
// are returned. The root object class is loaded but its own dependencies
// are not followed. Classes are returned sorted by name.
func Closure(roots []string, l Loader, log zerolog.Logger) ([]*metadata.Class, []string) {
	r := Resolver{Loader: l}
	seen := map[string]bool{}
	var out []*metadata.Class
	var missing []string

	queue := append([]string(nil), roots...)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if seen[name] {
			continue
		}
		seen[name] = true

		c, err := l.Load(name)
		if err != nil {
			log.Warn().Err(err).Str("class", name).Msg("failed to find class dependency")
			missing = append(missing, name)
			continue
		}
		out = append(out, c)
		if name == "java/lang/Object" {
			continue
		}
		for _, dep := range Collect(c, r).Sorted() {
			if !seen[dep] {
				queue = append(queue, dep)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, missing
}
