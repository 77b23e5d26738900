package loader

import (
	"errors"
	"sync"

	"github.com/daimatz/jvmc/pkg/diag"
	"github.com/daimatz/jvmc/pkg/metadata"
)

// Loader converts classes found by a ClassLoader into metadata and caches
// the result. It is safe for concurrent use.
type Loader struct {
	cl ClassLoader

	mu      sync.Mutex
	classes map[string]*metadata.Class
}

// New creates a new Loader on top of cl.
func New(cl ClassLoader) *Loader {
	return &Loader{cl: cl, classes: make(map[string]*metadata.Class)}
}

// Load returns the metadata of the named class. A class that does not exist
// yields *diag.UnresolvedReferenceError.
func (l *Loader) Load(name string) (*metadata.Class, error) {
	l.mu.Lock()
	c, ok := l.classes[name]
	l.mu.Unlock()
	if ok {
		return c, nil
	}

	cf, err := l.cl.LoadClass(name)
	if errors.Is(err, ErrNotFound) {
		return nil, &diag.UnresolvedReferenceError{Reference: "class " + name}
	}
	if err != nil {
		return nil, diag.InClass(err, name, "")
	}
	c, err = Convert(cf)
	if err != nil {
		return nil, diag.InClass(err, name, "")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if prev, ok := l.classes[name]; ok {
		return prev, nil
	}
	l.classes[name] = c
	return c, nil
}

// Lookup implements metadata.Resolver.
func (l *Loader) Lookup(name string) (*metadata.Class, bool) {
	c, err := l.Load(name)
	return c, err == nil
}

// IsMethodPrivate implements instruction.PrivacyResolver.
func (l *Loader) IsMethodPrivate(owner, name, desc string) bool {
	return metadata.Privacy{Resolver: l}.IsMethodPrivate(owner, name, desc)
}

// Loaded returns every class converted so far.
func (l *Loader) Loaded() metadata.ClassMap {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(metadata.ClassMap, len(l.classes))
	for k, v := range l.classes {
		out[k] = v
	}
	return out
}
